package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"taskboard/internal/authz"
	"taskboard/internal/cache"
	apperrors "taskboard/internal/errors"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

// TaskPage is one page of a task listing.
type TaskPage struct {
	Data []model.Task `json:"data"`
	Meta PageMeta     `json:"meta"`
}

// CreateTaskInput carries the fields of a new task. Status and priority
// default to TODO and MEDIUM when empty.
type CreateTaskInput struct {
	Title        string
	Description  string
	Status       model.TaskStatus
	Priority     model.TaskPriority
	DueDate      *time.Time
	AssignedToID *uuid.UUID
}

// TaskPatch is the explicit partial-update structure for a task. All fields
// are optional; Unassign clears the assignee when the client sends an
// explicit null. Only admins may apply a full patch; assignees are limited to
// UpdateStatus.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *model.TaskStatus
	Priority     *model.TaskPriority
	DueDate      *time.Time
	AssignedToID *uuid.UUID
	Unassign     bool
}

// TaskService exposes task domain operations.
type TaskService interface {
	Create(ctx context.Context, actor authz.Actor, input CreateTaskInput) (*model.Task, error)
	ListAll(ctx context.Context, actor authz.Actor, search string, page, limit int) (*TaskPage, error)
	ListAssigned(ctx context.Context, actor authz.Actor, userID uuid.UUID, page, limit int, status *model.TaskStatus) (*TaskPage, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
	UpdateStatus(ctx context.Context, actor authz.Actor, id uuid.UUID, status model.TaskStatus) (*model.Task, error)
	GetByID(ctx context.Context, actor authz.Actor, id uuid.UUID) (*model.Task, error)
	Update(ctx context.Context, actor authz.Actor, id uuid.UUID, patch TaskPatch) (*model.Task, error)
}

type taskService struct {
	tasks repository.TaskRepository
	users repository.UserRepository
	coord *cache.Coordinator
	log   zerolog.Logger
}

// NewTaskService builds a TaskService.
func NewTaskService(tasks repository.TaskRepository, users repository.UserRepository, coord *cache.Coordinator, log zerolog.Logger) TaskService {
	return &taskService{tasks: tasks, users: users, coord: coord, log: log}
}

// Create makes a new task. Admin only. Validation runs before any store call;
// an assignee that does not exist is a validation error, never a silent null.
func (s *taskService) Create(ctx context.Context, actor authz.Actor, input CreateTaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.Validation("EMPTY_TITLE", "task title is required")
	}
	status := input.Status
	if status == "" {
		status = model.StatusTodo
	}
	if !status.Valid() {
		return nil, apperrors.Validation("INVALID_STATUS", "status must be TODO, IN_PROGRESS, or DONE")
	}
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.Validation("INVALID_PRIORITY", "priority must be LOW, MEDIUM, or HIGH")
	}

	if d := authz.Decide(actor, authz.ActionCreateTask, authz.Facts{}); !d.Allowed {
		return nil, denied(d)
	}

	// The creator reference must point at an existing user at creation time.
	creator, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, apperrors.NotFound("USER_NOT_FOUND", "authenticated user not found"))
	}
	if input.AssignedToID != nil {
		if _, err := s.users.FindByID(ctx, *input.AssignedToID); err != nil {
			return nil, storeErr(err, apperrors.Validation("ASSIGNEE_NOT_FOUND", "assigned user does not exist"))
		}
	}

	task := &model.Task{
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Status:       status,
		Priority:     priority,
		DueDate:      input.DueDate,
		CreatedByID:  creator.ID,
		AssignedToID: input.AssignedToID,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.Unavailable("store unavailable", err)
	}

	prefixes := []string{cache.TaskListPrefix}
	if task.AssignedToID != nil {
		prefixes = append(prefixes, cache.AssignedTaskUserPrefix(*task.AssignedToID))
	}
	s.coord.WriteThrough(ctx, cache.TaskKey(task.ID), task, cache.EntityTTL, prefixes...)

	s.log.Info().Str("task_id", task.ID.String()).Msg("task created")
	return task, nil
}

// ListAll returns one page of tasks. Admin only.
func (s *taskService) ListAll(ctx context.Context, actor authz.Actor, search string, page, limit int) (*TaskPage, error) {
	if d := authz.Decide(actor, authz.ActionListTasks, authz.Facts{}); !d.Allowed {
		return nil, denied(d)
	}
	page, limit = normalizePage(page, limit)

	var result TaskPage
	err := s.coord.ReadThrough(ctx, cache.TaskListKey(search, page, limit), cache.CollectionTTL, &result, func() (interface{}, error) {
		tasks, total, err := s.tasks.Search(ctx, search, page, limit)
		if err != nil {
			return nil, apperrors.Unavailable("store unavailable", err)
		}
		return &TaskPage{Data: tasks, Meta: newPageMeta(total, page, limit)}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAssigned returns one page of tasks assigned to userID. Admins may read
// anyone's listing; a user only their own.
func (s *taskService) ListAssigned(ctx context.Context, actor authz.Actor, userID uuid.UUID, page, limit int, status *model.TaskStatus) (*TaskPage, error) {
	if status != nil && !status.Valid() {
		return nil, apperrors.Validation("INVALID_STATUS", "status must be TODO, IN_PROGRESS, or DONE")
	}
	if d := authz.Decide(actor, authz.ActionListAssignedTasks, authz.Facts{TargetUserID: userID}); !d.Allowed {
		return nil, denied(d)
	}
	page, limit = normalizePage(page, limit)

	statusLabel := ""
	if status != nil {
		statusLabel = string(*status)
	}

	var result TaskPage
	err := s.coord.ReadThrough(ctx, cache.AssignedTaskListKey(userID, page, limit, statusLabel), cache.CollectionTTL, &result, func() (interface{}, error) {
		tasks, total, err := s.tasks.FindByAssignee(ctx, userID, status, page, limit)
		if err != nil {
			return nil, apperrors.Unavailable("store unavailable", err)
		}
		return &TaskPage{Data: tasks, Meta: newPageMeta(total, page, limit)}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a task. Admin only. A second delete of the same id reports
// NotFound.
func (s *taskService) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if d := authz.Decide(actor, authz.ActionDeleteTask, authz.Facts{}); !d.Allowed {
		return denied(d)
	}

	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return storeErr(err, apperrors.NotFound("TASK_NOT_FOUND", "task not found"))
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return apperrors.Unavailable("store unavailable", err)
	}

	s.coord.Evict(ctx, cache.TaskKey(id))
	prefixes := []string{cache.TaskListPrefix}
	if task.AssignedToID != nil {
		prefixes = append(prefixes, cache.AssignedTaskUserPrefix(*task.AssignedToID))
	}
	s.coord.EvictCollections(ctx, prefixes...)

	s.log.Info().Str("task_id", id.String()).Msg("task deleted")
	return nil
}

// UpdateStatus moves a task to a new status. Admins may move any task; a user
// only a task currently assigned to them. Creatorship grants nothing here.
func (s *taskService) UpdateStatus(ctx context.Context, actor authz.Actor, id uuid.UUID, status model.TaskStatus) (*model.Task, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("INVALID_STATUS", "status must be TODO, IN_PROGRESS, or DONE")
	}

	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, apperrors.NotFound("TASK_NOT_FOUND", "task not found"))
	}
	if d := authz.Decide(actor, authz.ActionUpdateTaskStatus, authz.Facts{AssigneeID: task.AssignedToID}); !d.Allowed {
		return nil, denied(d)
	}

	task.Status = status
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, apperrors.Unavailable("store unavailable", err)
	}

	prefixes := []string{cache.TaskListPrefix}
	if task.AssignedToID != nil {
		prefixes = append(prefixes, cache.AssignedTaskUserPrefix(*task.AssignedToID))
	}
	s.coord.WriteThrough(ctx, cache.TaskKey(task.ID), task, cache.EntityTTL, prefixes...)

	return task, nil
}

// GetByID returns a task by id. Admin only.
func (s *taskService) GetByID(ctx context.Context, actor authz.Actor, id uuid.UUID) (*model.Task, error) {
	if d := authz.Decide(actor, authz.ActionReadTask, authz.Facts{}); !d.Allowed {
		return nil, denied(d)
	}

	var task model.Task
	err := s.coord.ReadThrough(ctx, cache.TaskKey(id), cache.EntityTTL, &task, func() (interface{}, error) {
		found, err := s.tasks.FindByID(ctx, id)
		if err != nil {
			return nil, storeErr(err, apperrors.NotFound("TASK_NOT_FOUND", "task not found"))
		}
		return found, nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Update applies an admin patch to any task field. The whole read-modify-write
// runs in one transaction; the cache write path afterwards also drops the
// assigned listings of both the old and the new assignee.
func (s *taskService) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, patch TaskPatch) (*model.Task, error) {
	if d := authz.Decide(actor, authz.ActionUpdateTask, authz.Facts{}); !d.Allowed {
		return nil, denied(d)
	}

	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperrors.Validation("EMPTY_TITLE", "title cannot be empty")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, apperrors.Validation("INVALID_STATUS", "status must be TODO, IN_PROGRESS, or DONE")
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return nil, apperrors.Validation("INVALID_PRIORITY", "priority must be LOW, MEDIUM, or HIGH")
	}
	if patch.AssignedToID != nil {
		if _, err := s.users.FindByID(ctx, *patch.AssignedToID); err != nil {
			return nil, storeErr(err, apperrors.Validation("ASSIGNEE_NOT_FOUND", "assigned user does not exist"))
		}
	}

	var task *model.Task
	var oldAssignee *uuid.UUID
	err := s.tasks.WithTransaction(ctx, func(ctx context.Context, repo repository.TaskRepository) error {
		found, err := repo.FindByID(ctx, id)
		if err != nil {
			return storeErr(err, apperrors.NotFound("TASK_NOT_FOUND", "task not found"))
		}
		oldAssignee = found.AssignedToID

		if patch.Title != nil {
			found.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			found.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Status != nil {
			found.Status = *patch.Status
		}
		if patch.Priority != nil {
			found.Priority = *patch.Priority
		}
		if patch.DueDate != nil {
			found.DueDate = patch.DueDate
		}
		if patch.Unassign {
			found.AssignedToID = nil
			found.AssignedTo = nil
		} else if patch.AssignedToID != nil {
			found.AssignedToID = patch.AssignedToID
			found.AssignedTo = nil
		}

		if err := repo.Update(ctx, found); err != nil {
			return apperrors.Unavailable("store unavailable", err)
		}
		task = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	prefixes := []string{cache.TaskListPrefix}
	if oldAssignee != nil {
		prefixes = append(prefixes, cache.AssignedTaskUserPrefix(*oldAssignee))
	}
	if task.AssignedToID != nil && (oldAssignee == nil || *task.AssignedToID != *oldAssignee) {
		prefixes = append(prefixes, cache.AssignedTaskUserPrefix(*task.AssignedToID))
	}
	s.coord.WriteThrough(ctx, cache.TaskKey(task.ID), task, cache.EntityTTL, prefixes...)

	s.log.Info().Str("task_id", id.String()).Msg("task updated")
	return task, nil
}
