package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskStatus is the workflow state of a task. There is no enforced transition
// order: any status may follow any other.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// TaskPriority is the urgency of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task represents a unit of work. CreatedByID is set at creation and never
// changes; AssignedToID is nullable and mutable by an admin.
type Task struct {
	ID          uuid.UUID    `json:"id" gorm:"type:char(36);primaryKey"`
	Title       string       `json:"title" gorm:"size:255;not null;index"`
	Description string       `json:"description" gorm:"type:text"`
	Status      TaskStatus   `json:"status" gorm:"size:50;default:'TODO'"`
	Priority    TaskPriority `json:"priority" gorm:"size:50;default:'MEDIUM'"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CreatedByID uuid.UUID    `json:"created_by_id" gorm:"type:char(36);not null"`
	CreatedBy   *User        `json:"created_by,omitempty" gorm:"foreignKey:CreatedByID"`
	AssignedToID *uuid.UUID  `json:"assigned_to_id,omitempty" gorm:"type:char(36);index"`
	AssignedTo  *User        `json:"assigned_to,omitempty" gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
