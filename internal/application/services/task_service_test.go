package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/config"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/logger"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

type taskServiceFixture struct {
	service  *TaskService
	tasks    *fakeTaskRepo
	accounts *fakeAccountRepo
	users    *fakeUserRepo
	calendar *fakeCalendar
	cache    *fakeCache
	user     *entities.User
}

func newTaskServiceFixture(t *testing.T) *taskServiceFixture {
	t.Helper()

	user := &entities.User{
		ID:       uuid.New(),
		Email:    "ada@example.com",
		Name:     "Ada",
		Timezone: "UTC",
	}

	f := &taskServiceFixture{
		tasks: newFakeTaskRepo(),
		accounts: newFakeAccountRepo(&entities.Account{
			UserID:   user.ID,
			Provider: "google",
		}),
		users:    newFakeUserRepo(user),
		calendar: &fakeCalendar{},
		cache:    newFakeCache(),
		user:     user,
	}

	f.service = NewTaskService(
		f.tasks,
		newFakeCategoryRepo(),
		f.accounts,
		f.users,
		f.calendar,
		f.cache,
		config.GoogleConfig{CallTimeout: time.Second},
		logger.NewNop(),
	)
	return f
}

func (f *taskServiceFixture) addTask(t *testing.T, mutate func(*entities.Task)) *entities.Task {
	t.Helper()

	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	task := &entities.Task{
		ID:       uuid.New(),
		UserID:   f.user.ID,
		Title:    "write report",
		Priority: entities.PriorityMedium,
		Status:   entities.TaskStatusPending,
		DueDate:  &due,
	}
	if mutate != nil {
		mutate(task)
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	return task
}

func TestToggleCalendarSyncCreatesEvent(t *testing.T) {
	f := newTaskServiceFixture(t)
	dueTime := "14:30"
	task := f.addTask(t, func(task *entities.Task) { task.DueTime = &dueTime })

	got, err := f.service.ToggleCalendarSync(context.Background(), f.user.ID, task.ID)
	require.NoError(t, err)

	require.NotNil(t, got.GoogleEventID)
	require.Len(t, f.calendar.created, 1)
	assert.Equal(t, "write report", f.calendar.created[0].Title)
	assert.Equal(t, "14:30", f.calendar.created[0].StartTime)

	stored, err := f.tasks.GetByID(context.Background(), f.user.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, *got.GoogleEventID, *stored.GoogleEventID)
}

func TestToggleCalendarSyncRemovesEvent(t *testing.T) {
	f := newTaskServiceFixture(t)
	eventID := "evt-42"
	task := f.addTask(t, func(task *entities.Task) { task.GoogleEventID = &eventID })

	got, err := f.service.ToggleCalendarSync(context.Background(), f.user.ID, task.ID)
	require.NoError(t, err)

	assert.Nil(t, got.GoogleEventID)
	assert.Equal(t, []string{"evt-42"}, f.calendar.deleted)

	stored, err := f.tasks.GetByID(context.Background(), f.user.ID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.GoogleEventID)
}

func TestToggleCalendarSyncRemoteFailureLeavesTaskUntouched(t *testing.T) {
	f := newTaskServiceFixture(t)
	f.calendar.createErr = entities.ErrCalendarUnavailable
	task := f.addTask(t, nil)

	_, err := f.service.ToggleCalendarSync(context.Background(), f.user.ID, task.ID)
	assert.ErrorIs(t, err, entities.ErrCalendarUnavailable)

	stored, err := f.tasks.GetByID(context.Background(), f.user.ID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.GoogleEventID)
	assert.Zero(t, f.tasks.casCalls, "no local write may happen when the remote call fails")
}

func TestToggleCalendarSyncConcurrentToggleLosesCleanly(t *testing.T) {
	f := newTaskServiceFixture(t)
	task := f.addTask(t, nil)

	// Another toggle wins between our read and our write.
	winner := "evt-winner"
	f.calendar.nextEventID = "evt-loser"
	f.tasks.onGet = func() {
		require.NoError(t, f.tasks.SetGoogleEventID(context.Background(), f.user.ID, task.ID, nil, &winner))
	}

	_, err := f.service.ToggleCalendarSync(context.Background(), f.user.ID, task.ID)
	assert.ErrorIs(t, err, entities.ErrSyncStateChanged)

	// The loser's orphaned remote event gets cleaned up; the winner's link survives.
	assert.Equal(t, []string{"evt-loser"}, f.calendar.deleted)
	stored, err := f.tasks.GetByID(context.Background(), f.user.ID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.GoogleEventID)
	assert.Equal(t, winner, *stored.GoogleEventID)
}

func TestToggleCalendarSyncDeleteFailureKeepsLink(t *testing.T) {
	f := newTaskServiceFixture(t)
	f.calendar.deleteErr = entities.ErrCalendarUnavailable
	eventID := "evt-42"
	task := f.addTask(t, func(task *entities.Task) { task.GoogleEventID = &eventID })

	_, err := f.service.ToggleCalendarSync(context.Background(), f.user.ID, task.ID)
	assert.ErrorIs(t, err, entities.ErrCalendarUnavailable)

	stored, err := f.tasks.GetByID(context.Background(), f.user.ID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.GoogleEventID)
	assert.Equal(t, "evt-42", *stored.GoogleEventID)
	assert.Zero(t, f.tasks.casCalls, "no local write may happen when the remote call fails")
}

func TestToggleCalendarSyncRequiresDueDate(t *testing.T) {
	f := newTaskServiceFixture(t)
	task := f.addTask(t, func(task *entities.Task) { task.DueDate = nil })

	_, err := f.service.ToggleCalendarSync(context.Background(), f.user.ID, task.ID)
	assert.ErrorIs(t, err, entities.ErrNoDueDate)
	assert.Empty(t, f.calendar.created)
}

func TestToggleCalendarSyncWithoutLinkedAccount(t *testing.T) {
	f := newTaskServiceFixture(t)
	stranger := uuid.New()
	require.NoError(t, f.users.Create(context.Background(), &entities.User{ID: stranger, Timezone: "UTC"}))
	due := time.Now()
	task := &entities.Task{ID: uuid.New(), UserID: stranger, Status: entities.TaskStatusPending, Priority: entities.PriorityLow, DueDate: &due}
	require.NoError(t, f.tasks.Create(context.Background(), task))

	_, err := f.service.ToggleCalendarSync(context.Background(), stranger, task.ID)
	assert.ErrorIs(t, err, entities.ErrCalendarNotLinked)
}

func TestCompleteTaskSpawnsNextOccurrence(t *testing.T) {
	f := newTaskServiceFixture(t)
	task := f.addTask(t, func(task *entities.Task) { task.Recurring = entities.RecurringDaily })

	fixed := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return fixed }

	completed, err := f.service.CompleteTask(context.Background(), f.user.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TaskStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	// The completed row stays, a new pending one appears a day later.
	all, total, err := f.tasks.List(context.Background(), f.user.ID, ports.TaskFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, total)

	var next *entities.Task
	for _, candidate := range all {
		if candidate.ID != task.ID {
			next = candidate
		}
	}
	require.NotNil(t, next)
	assert.Equal(t, entities.TaskStatusPending, next.Status)
	assert.Equal(t, task.Title, next.Title)
	require.NotNil(t, next.DueDate)
	assert.Equal(t, time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), *next.DueDate)
}

func TestCompleteTaskNonRecurring(t *testing.T) {
	f := newTaskServiceFixture(t)
	task := f.addTask(t, nil)

	_, err := f.service.CompleteTask(context.Background(), f.user.ID, task.ID)
	require.NoError(t, err)

	_, total, err := f.tasks.List(context.Background(), f.user.ID, ports.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestCompleteTaskAlreadyCompleted(t *testing.T) {
	f := newTaskServiceFixture(t)
	task := f.addTask(t, nil)

	_, err := f.service.CompleteTask(context.Background(), f.user.ID, task.ID)
	require.NoError(t, err)

	_, err = f.service.CompleteTask(context.Background(), f.user.ID, task.ID)
	assert.ErrorIs(t, err, entities.ErrAlreadyCompleted)
}

func TestTaskOwnershipScoping(t *testing.T) {
	f := newTaskServiceFixture(t)
	task := f.addTask(t, nil)

	_, err := f.service.GetTask(context.Background(), uuid.New(), task.ID)
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)

	err = f.service.DeleteTask(context.Background(), uuid.New(), task.ID)
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)
}

func TestTodayViewOrderingAndStats(t *testing.T) {
	f := newTaskServiceFixture(t)
	fixed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return fixed }

	nine, fourteen := "09:00", "14:00"
	est := 45
	f.addTask(t, func(task *entities.Task) {
		task.Title = "low early"
		task.Priority = entities.PriorityLow
		task.DueTime = &nine
	})
	f.addTask(t, func(task *entities.Task) {
		task.Title = "high late"
		task.Priority = entities.PriorityHigh
		task.DueTime = &fourteen
		task.EstimatedMinutes = &est
	})
	f.addTask(t, func(task *entities.Task) {
		task.Title = "tomorrow"
		due := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
		task.DueDate = &due
	})

	response, err := f.service.TodayView(context.Background(), f.user.ID)
	require.NoError(t, err)

	require.Equal(t, 2, response.Total)
	assert.Equal(t, "high late", response.Tasks[0].Title)
	assert.Equal(t, "low early", response.Tasks[1].Title)
	assert.Equal(t, 2, response.Stats.Pending)
	assert.Equal(t, 1, response.Stats.HighPriority)
	assert.Equal(t, 45, response.Stats.TotalEstimatedTime)
}

func TestTodayViewWesternTimezone(t *testing.T) {
	f := newTaskServiceFixture(t)
	f.user.Timezone = "America/New_York"
	require.NoError(t, f.users.Update(context.Background(), f.user))

	// Afternoon of March 10 in New York; the stored due dates are plain
	// calendar dates, which scan back as UTC midnights.
	fixed := time.Date(2025, 3, 10, 19, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return fixed }

	f.addTask(t, func(task *entities.Task) { task.Title = "today" })
	f.addTask(t, func(task *entities.Task) {
		task.Title = "tomorrow"
		due := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
		task.DueDate = &due
	})

	response, err := f.service.TodayView(context.Background(), f.user.ID)
	require.NoError(t, err)

	require.Equal(t, 1, response.Total)
	assert.Equal(t, "today", response.Tasks[0].Title)
	assert.Equal(t, 1, response.Stats.Pending)
}

func TestTodayViewUsesCache(t *testing.T) {
	f := newTaskServiceFixture(t)
	fixed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return fixed }
	f.addTask(t, nil)

	first, err := f.service.TodayView(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 1, first.Total)

	// Bypass the service to mutate storage; the cached view must win until
	// a write through the service invalidates it.
	extra := f.addTask(t, func(task *entities.Task) { task.Title = "sneaky" })
	_ = extra

	second, err := f.service.TodayView(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Total)
}

func TestWritesInvalidateCache(t *testing.T) {
	f := newTaskServiceFixture(t)
	task := f.addTask(t, nil)

	_, err := f.service.TodayView(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, f.cache.entries)

	require.NoError(t, f.service.DeleteTask(context.Background(), f.user.ID, task.ID))
	assert.Empty(t, f.cache.entries)
	assert.Contains(t, f.cache.dropped, "user:"+f.user.ID.String()+":*")
}

func TestCreateTaskValidatesEnums(t *testing.T) {
	f := newTaskServiceFixture(t)

	_, err := f.service.CreateTask(context.Background(), f.user.ID, ports.CreateTaskRequest{
		Title:    "bad",
		Priority: entities.Priority("URGENT"),
	})
	assert.ErrorIs(t, err, entities.ErrInvalidPriority)

	_, err = f.service.CreateTask(context.Background(), f.user.ID, ports.CreateTaskRequest{
		Title:     "bad",
		Priority:  entities.PriorityLow,
		Recurring: entities.RecurringPattern("HOURLY"),
	})
	assert.ErrorIs(t, err, entities.ErrInvalidRecurrence)
}

func TestCreateTaskRejectsForeignCategory(t *testing.T) {
	f := newTaskServiceFixture(t)
	foreign := uuid.New()

	_, err := f.service.CreateTask(context.Background(), f.user.ID, ports.CreateTaskRequest{
		Title:      "categorized",
		Priority:   entities.PriorityLow,
		CategoryID: &foreign,
	})
	assert.ErrorIs(t, err, entities.ErrCategoryNotFound)
}
