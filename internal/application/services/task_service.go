package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/config"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

const todayCacheTTL = 2 * time.Minute

// TaskService handles the task lifecycle: CRUD, completion with recurrence,
// calendar sync and the today view.
type TaskService struct {
	taskRepo     ports.TaskRepository
	categoryRepo ports.CategoryRepository
	accountRepo  ports.AccountRepository
	userRepo     ports.UserRepository
	calendar     ports.CalendarAdapter
	cache        ports.CacheRepository
	googleCfg    config.GoogleConfig
	logger       *logger.Logger
	now          func() time.Time
}

// NewTaskService creates a new task service. cache may be nil when Redis is
// not configured; calendar calls then still work, only caching is skipped.
func NewTaskService(taskRepo ports.TaskRepository, categoryRepo ports.CategoryRepository, accountRepo ports.AccountRepository, userRepo ports.UserRepository, calendar ports.CalendarAdapter, cache ports.CacheRepository, googleCfg config.GoogleConfig, logger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo:     taskRepo,
		categoryRepo: categoryRepo,
		accountRepo:  accountRepo,
		userRepo:     userRepo,
		calendar:     calendar,
		cache:        cache,
		googleCfg:    googleCfg,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateTask creates a new task for the user
func (s *TaskService) CreateTask(ctx context.Context, userID uuid.UUID, req ports.CreateTaskRequest) (*entities.Task, error) {
	if !req.Priority.IsValid() {
		return nil, entities.ErrInvalidPriority
	}
	recurring := req.Recurring
	if recurring == "" {
		recurring = entities.RecurringNone
	}
	if !recurring.IsValid() {
		return nil, entities.ErrInvalidRecurrence
	}

	// Verify category ownership before attaching it
	if req.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, userID, *req.CategoryID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	task := &entities.Task{
		ID:               uuid.New(),
		UserID:           userID,
		CategoryID:       req.CategoryID,
		Title:            req.Title,
		Description:      req.Description,
		DueDate:          req.DueDate,
		DueTime:          req.DueTime,
		Priority:         req.Priority,
		Status:           entities.TaskStatusPending,
		Recurring:        recurring,
		EstimatedMinutes: req.EstimatedMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if len(req.TagIDs) > 0 {
		if err := s.taskRepo.SetTags(ctx, userID, task.ID, req.TagIDs); err != nil {
			return nil, fmt.Errorf("failed to attach tags: %w", err)
		}
	}

	s.invalidateCache(ctx, userID)
	s.logger.Info("Task created successfully", "task_id", task.ID, "user_id", userID)

	return s.taskRepo.GetByID(ctx, userID, task.ID)
}

// GetTask retrieves one task owned by the user
func (s *TaskService) GetTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error) {
	return s.taskRepo.GetByID(ctx, userID, taskID)
}

// UpdateTask applies a partial update to a task owned by the user
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req ports.UpdateTaskRequest) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = req.Description
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.DueTime != nil {
		task.DueTime = req.DueTime
	}
	if req.Priority != nil {
		if !req.Priority.IsValid() {
			return nil, entities.ErrInvalidPriority
		}
		task.Priority = *req.Priority
	}
	if req.Recurring != nil {
		if !req.Recurring.IsValid() {
			return nil, entities.ErrInvalidRecurrence
		}
		task.Recurring = *req.Recurring
	}
	if req.EstimatedMinutes != nil {
		task.EstimatedMinutes = req.EstimatedMinutes
	}
	if req.CategoryID != nil {
		if _, err := s.categoryRepo.GetByID(ctx, userID, *req.CategoryID); err != nil {
			return nil, err
		}
		task.CategoryID = req.CategoryID
	}

	task.UpdatedAt = s.now()
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if req.TagIDs != nil {
		if err := s.taskRepo.SetTags(ctx, userID, taskID, req.TagIDs); err != nil {
			return nil, fmt.Errorf("failed to update tags: %w", err)
		}
	}

	s.invalidateCache(ctx, userID)

	return s.taskRepo.GetByID(ctx, userID, taskID)
}

// DeleteTask removes a task owned by the user
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error {
	if err := s.taskRepo.Delete(ctx, userID, taskID); err != nil {
		return err
	}

	s.invalidateCache(ctx, userID)
	s.logger.Info("Task deleted successfully", "task_id", taskID, "user_id", userID)
	return nil
}

// ListTasks returns the user's tasks narrowed by the filter, with the total count
func (s *TaskService) ListTasks(ctx context.Context, userID uuid.UUID, filter ports.TaskFilter) ([]*entities.Task, int, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.taskRepo.List(ctx, userID, filter)
}

// CompleteTask marks a task completed. Completing a recurring task also
// inserts its next occurrence; the completed row stays behind as history.
func (s *TaskService) CompleteTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := task.Complete(now); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to complete task: %w", err)
	}

	if next := task.NextOccurrence(now); next != nil {
		if err := s.taskRepo.Create(ctx, next); err != nil {
			return nil, fmt.Errorf("failed to create next occurrence: %w", err)
		}
		if len(next.Tags) > 0 {
			tagIDs := make([]uuid.UUID, len(next.Tags))
			for i, tag := range next.Tags {
				tagIDs[i] = tag.ID
			}
			if err := s.taskRepo.SetTags(ctx, userID, next.ID, tagIDs); err != nil {
				return nil, fmt.Errorf("failed to carry tags to next occurrence: %w", err)
			}
		}
		s.logger.Info("Recurring task advanced", "task_id", task.ID, "next_id", next.ID, "due_date", next.DueDate)
	}

	s.invalidateCache(ctx, userID)

	return task, nil
}

// ReopenTask moves a completed or archived task back to PENDING
func (s *TaskService) ReopenTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error) {
	return s.transition(ctx, userID, taskID, (*entities.Task).Reopen)
}

// ArchiveTask moves a task to ARCHIVED
func (s *TaskService) ArchiveTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error) {
	return s.transition(ctx, userID, taskID, (*entities.Task).Archive)
}

func (s *TaskService) transition(ctx context.Context, userID, taskID uuid.UUID, step func(*entities.Task, time.Time) error) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if err := step(task, s.now()); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}

	s.invalidateCache(ctx, userID)
	return task, nil
}

// ToggleCalendarSync mirrors the task into Google Calendar or removes the
// mirror, depending on the current state. The remote call happens first and
// a remote failure leaves the local row untouched. The local write is a
// compare-and-swap on the event id read here, so two concurrent toggles
// cannot both win.
func (s *TaskService) ToggleCalendarSync(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetForUser(ctx, userID, providerGoogle)
	if err != nil {
		return nil, entities.ErrCalendarNotLinked
	}

	callCtx, cancel := context.WithTimeout(ctx, s.googleCfg.CallTimeout)
	defer cancel()

	if task.IsSynced() {
		prev := task.GoogleEventID
		if err := s.calendar.DeleteEvent(callCtx, account, *prev); err != nil {
			return nil, err
		}
		if err := s.taskRepo.SetGoogleEventID(ctx, userID, taskID, prev, nil); err != nil {
			return nil, err
		}
		task.GoogleEventID = nil
		s.logger.Info("Calendar event removed", "task_id", taskID, "user_id", userID)
	} else {
		if task.DueDate == nil {
			return nil, entities.ErrNoDueDate
		}

		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}

		event := ports.CalendarEvent{
			Title:    task.Title,
			Date:     *task.DueDate,
			Timezone: user.Timezone,
		}
		if task.Description != nil {
			event.Description = *task.Description
		}
		if task.DueTime != nil {
			event.StartTime = *task.DueTime
		}
		if task.EstimatedMinutes != nil {
			event.DurationMin = *task.EstimatedMinutes
		}

		eventID, err := s.calendar.CreateEvent(callCtx, account, event)
		if err != nil {
			return nil, err
		}
		if err := s.taskRepo.SetGoogleEventID(ctx, userID, taskID, nil, &eventID); err != nil {
			// The local row lost the race; the remote event is now orphaned.
			// Best effort cleanup, then surface the conflict.
			if delErr := s.calendar.DeleteEvent(callCtx, account, eventID); delErr != nil {
				s.logger.Warn("Failed to clean up orphaned calendar event", "error", delErr, "event_id", eventID)
			}
			return nil, err
		}
		task.GoogleEventID = &eventID
		s.logger.Info("Calendar event created", "task_id", taskID, "user_id", userID, "event_id", eventID)
	}

	s.invalidateCache(ctx, userID)
	return task, nil
}

// TodayView returns the user's pending tasks due today in their timezone,
// ordered by priority, due time and creation time, together with day stats.
func (s *TaskService) TodayView(ctx context.Context, userID uuid.UUID) (*ports.TodayResponse, error) {
	cacheKey := fmt.Sprintf("user:%s:tasks:today", userID)
	if s.cache != nil {
		var cached ports.TodayResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().In(user.Location())
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	tasks, err := s.taskRepo.ListDueBetween(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list today's tasks: %w", err)
	}

	entities.OrderForToday(tasks)

	stats, err := s.taskRepo.CountStats(ctx, userID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to compute today stats: %w", err)
	}

	response := &ports.TodayResponse{
		Tasks: tasks,
		Total: len(tasks),
		Stats: stats,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response, todayCacheTTL); err != nil {
			s.logger.Warn("Failed to cache today view", "error", err, "user_id", userID)
		}
	}

	return response, nil
}

// invalidateCache drops every cached query for the user after a write.
func (s *TaskService) invalidateCache(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, fmt.Sprintf("user:%s:*", userID)); err != nil {
		s.logger.Warn("Failed to invalidate cache", "error", err, "user_id", userID)
	}
}
