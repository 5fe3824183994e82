package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// TaskHandler handles task lifecycle requests
type TaskHandler struct {
	taskService ports.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// CreateTask creates a task
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body ports.CreateTaskRequest true "Task payload"
// @Success 201 {object} entities.Task
// @Security BearerAuth
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Error("Create task failed", "error", err, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTask returns one task
func (h *TaskHandler) GetTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.GetTask(c.Request().Context(), userID, taskID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// UpdateTask applies a partial update
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), userID, taskID, req)
	if err != nil {
		h.logger.Error("Update task failed", "error", err, "task_id", taskID, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask removes a task
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), userID, taskID); err != nil {
		h.logger.Error("Delete task failed", "error", err, "task_id", taskID, "user_id", userID)
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// ListTasks returns a filtered, paginated task list
// @Summary List tasks
// @Tags tasks
// @Produce json
// @Param status query string false "PENDING, COMPLETED or ARCHIVED"
// @Param priority query string false "HIGH, MEDIUM or LOW"
// @Param category_id query string false "Category UUID"
// @Param tag_id query string false "Tag UUID"
// @Param search query string false "Title substring"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Page offset"
// @Success 200 {object} PaginatedResponse[entities.Task]
// @Security BearerAuth
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	userID := getUserIDFromContext(c)

	filter, err := parseTaskFilter(c)
	if err != nil {
		return err
	}

	tasks, total, err := h.taskService.ListTasks(c.Request().Context(), userID, filter)
	if err != nil {
		h.logger.Error("List tasks failed", "error", err, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, PaginatedResponse[*entities.Task]{
		Data:   tasks,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// CompleteTask marks a task completed
func (h *TaskHandler) CompleteTask(c echo.Context) error {
	return h.lifecycle(c, h.taskService.CompleteTask)
}

// ReopenTask moves a task back to pending
func (h *TaskHandler) ReopenTask(c echo.Context) error {
	return h.lifecycle(c, h.taskService.ReopenTask)
}

// ArchiveTask archives a task
func (h *TaskHandler) ArchiveTask(c echo.Context) error {
	return h.lifecycle(c, h.taskService.ArchiveTask)
}

// ToggleCalendarSync mirrors the task into Google Calendar or removes the mirror
// @Summary Toggle calendar sync
// @Description Creates or deletes the Google Calendar event mirroring this task
// @Tags tasks
// @Produce json
// @Param id path string true "Task UUID"
// @Success 200 {object} entities.Task
// @Failure 409 {object} ErrorResponse "Sync state changed concurrently"
// @Failure 502 {object} ErrorResponse "Calendar service unavailable"
// @Security BearerAuth
// @Router /tasks/{id}/sync [post]
func (h *TaskHandler) ToggleCalendarSync(c echo.Context) error {
	return h.lifecycle(c, h.taskService.ToggleCalendarSync)
}

func (h *TaskHandler) lifecycle(c echo.Context, op func(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error)) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	task, err := op(c.Request().Context(), userID, taskID)
	if err != nil {
		h.logger.Error("Task transition failed", "error", err, "task_id", taskID, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// TodayView returns the pending tasks due today in the user's timezone
func (h *TaskHandler) TodayView(c echo.Context) error {
	userID := getUserIDFromContext(c)

	response, err := h.taskService.TodayView(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Today view failed", "error", err, "user_id", userID)
		return httpError(err)
	}

	return c.JSON(http.StatusOK, response)
}

func parseTaskFilter(c echo.Context) (ports.TaskFilter, error) {
	var filter ports.TaskFilter

	if v := c.QueryParam("status"); v != "" {
		status := entities.TaskStatus(v)
		if !status.IsValid() {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "Invalid status")
		}
		filter.Status = &status
	}
	if v := c.QueryParam("priority"); v != "" {
		priority := entities.Priority(v)
		if !priority.IsValid() {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "Invalid priority")
		}
		filter.Priority = &priority
	}
	if v := c.QueryParam("category_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "Invalid category_id")
		}
		filter.CategoryID = &id
	}
	if v := c.QueryParam("tag_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "Invalid tag_id")
		}
		filter.TagID = &id
	}
	if v := c.QueryParam("due_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "Invalid due_after")
		}
		filter.DueAfter = &t
	}
	if v := c.QueryParam("due_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, echo.NewHTTPError(http.StatusBadRequest, "Invalid due_before")
		}
		filter.DueBefore = &t
	}
	if v := c.QueryParam("search"); v != "" {
		filter.Search = &v
	}

	filter.Limit, _ = parseIntParam(c, "limit")
	filter.Offset, _ = parseIntParam(c, "offset")

	return filter, nil
}
