package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "taskboard/internal/errors"
	"taskboard/internal/model"
	"taskboard/internal/service"
)

// TaskHandler bundles task HTTP handlers.
type TaskHandler struct {
	tasks service.TaskService
}

// NewTaskHandler creates a handler layer.
func NewTaskHandler(tasks service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// CreateTaskRequest represents a task creation request.
type CreateTaskRequest struct {
	Title        string  `json:"title" validate:"required"`
	Description  string  `json:"description"`
	Status       string  `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority     string  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	DueDate      *string `json:"due_date" validate:"omitempty"`
	AssignedToID *string `json:"assigned_to_id" validate:"omitempty,uuid"`
}

// EditTaskRequest is the admin patch body. All fields are optional; an empty
// assigned_to_id clears the assignee.
type EditTaskRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Status       *string `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority     *string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	DueDate      *string `json:"due_date"`
	AssignedToID *string `json:"assigned_to_id"`
}

// UpdateStatusRequest carries the new status for a task.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=TODO IN_PROGRESS DONE"`
}

// parseDueDate accepts RFC 3339 timestamps or plain dates.
func parseDueDate(raw string) (*time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	return nil, apperrors.Validation("INVALID_DUE_DATE", "due_date must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

// Create godoc
// @Summary Create a task (admin)
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body CreateTaskRequest true "Task fields"
// @Success 201 {object} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	var req CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	input := service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskStatus(req.Status),
		Priority:    model.TaskPriority(req.Priority),
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return respondError(c, err)
		}
		input.DueDate = due
	}
	if req.AssignedToID != nil {
		id, err := uuid.Parse(*req.AssignedToID)
		if err != nil {
			return respondError(c, apperrors.Validation("INVALID_ID", "assigned_to_id must be a UUID"))
		}
		input.AssignedToID = &id
	}

	task, err := h.tasks.Create(c.Request().Context(), actor, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, task)
}

// List godoc
// @Summary List all tasks (admin)
// @Tags tasks
// @Produce json
// @Param search query string false "Case-insensitive title filter"
// @Param page query int false "Page, starting at 1"
// @Param limit query int false "Page size, default 10"
// @Success 200 {object} service.TaskPage
// @Failure 403 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 10)
	result, err := h.tasks.ListAll(c.Request().Context(), actor, c.QueryParam("search"), page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// ListAssigned godoc
// @Summary List tasks assigned to a user (self or admin)
// @Tags tasks
// @Produce json
// @Param userId path string true "User ID"
// @Param page query int false "Page, starting at 1"
// @Param limit query int false "Page size, default 10"
// @Param status query string false "Optional status filter"
// @Success 200 {object} service.TaskPage
// @Failure 403 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /tasks/assigned/{userId} [get]
func (h *TaskHandler) ListAssigned(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, err)
	}
	userID, err := uuidParam(c, "userId")
	if err != nil {
		return respondError(c, err)
	}

	var status *model.TaskStatus
	if raw := c.QueryParam("status"); raw != "" {
		s := model.TaskStatus(raw)
		status = &s
	}

	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 10)
	result, err := h.tasks.ListAssigned(c.Request().Context(), actor, userID, page, limit, status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Get godoc
// @Summary Get a task by id (admin)
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} model.Task
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	task, err := h.tasks.GetByID(c.Request().Context(), actor, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// Update godoc
// @Summary Update a task (admin)
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body EditTaskRequest true "Task patch"
// @Success 200 {object} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [patch]
func (h *TaskHandler) Update(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req EditTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	patch := service.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		s := model.TaskStatus(*req.Status)
		patch.Status = &s
	}
	if req.Priority != nil {
		p := model.TaskPriority(*req.Priority)
		patch.Priority = &p
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return respondError(c, err)
		}
		patch.DueDate = due
	}
	if req.AssignedToID != nil {
		if *req.AssignedToID == "" {
			patch.Unassign = true
		} else {
			assignee, err := uuid.Parse(*req.AssignedToID)
			if err != nil {
				return respondError(c, apperrors.Validation("INVALID_ID", "assigned_to_id must be a UUID"))
			}
			patch.AssignedToID = &assignee
		}
	}

	task, err := h.tasks.Update(c.Request().Context(), actor, id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// UpdateStatus godoc
// @Summary Update a task's status (assignee or admin)
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body UpdateStatusRequest true "New status"
// @Success 200 {object} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id}/status [patch]
func (h *TaskHandler) UpdateStatus(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req UpdateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	task, err := h.tasks.UpdateStatus(c.Request().Context(), actor, id, model.TaskStatus(req.Status))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// Delete godoc
// @Summary Delete a task (admin)
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.tasks.Delete(c.Request().Context(), actor, id); err != nil {
		return respondError(c, err)
	}
	return ok(c, "task deleted successfully")
}
