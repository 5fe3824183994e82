package entities

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskCompletionInvariant(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("complete sets completedAt", func(t *testing.T) {
		task := &Task{Status: TaskStatusPending}
		require.NoError(t, task.Complete(now))
		assert.Equal(t, TaskStatusCompleted, task.Status)
		require.NotNil(t, task.CompletedAt)
		assert.Equal(t, now, *task.CompletedAt)
	})

	t.Run("complete twice fails", func(t *testing.T) {
		task := &Task{Status: TaskStatusPending}
		require.NoError(t, task.Complete(now))
		assert.ErrorIs(t, task.Complete(now), ErrAlreadyCompleted)
	})

	t.Run("reopen clears completedAt", func(t *testing.T) {
		task := &Task{Status: TaskStatusPending}
		require.NoError(t, task.Complete(now))
		require.NoError(t, task.Reopen(now.Add(time.Hour)))
		assert.Equal(t, TaskStatusPending, task.Status)
		assert.Nil(t, task.CompletedAt)
	})

	t.Run("reopen pending fails", func(t *testing.T) {
		task := &Task{Status: TaskStatusPending}
		assert.ErrorIs(t, task.Reopen(now), ErrInvalidStatus)
	})

	t.Run("archive clears completedAt", func(t *testing.T) {
		task := &Task{Status: TaskStatusPending}
		require.NoError(t, task.Complete(now))
		require.NoError(t, task.Archive(now))
		assert.Equal(t, TaskStatusArchived, task.Status)
		assert.Nil(t, task.CompletedAt)
	})

	t.Run("archive twice fails", func(t *testing.T) {
		task := &Task{Status: TaskStatusArchived}
		assert.ErrorIs(t, task.Archive(now), ErrInvalidStatus)
	})
}

func TestNextOccurrence(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC) // a Monday
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		recurring RecurringPattern
		dueDate   *time.Time
		wantDue   time.Time
	}{
		{
			name:      "daily advances one day",
			recurring: RecurringDaily,
			dueDate:   &due,
			wantDue:   time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "weekly advances seven days",
			recurring: RecurringWeekly,
			dueDate:   &due,
			wantDue:   time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "monthly advances one month",
			recurring: RecurringMonthly,
			dueDate:   &due,
			wantDue:   time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{
				ID:        uuid.New(),
				UserID:    uuid.New(),
				Title:     "water the plants",
				Priority:  PriorityMedium,
				Recurring: tt.recurring,
				DueDate:   tt.dueDate,
			}

			next := task.NextOccurrence(now)
			require.NotNil(t, next)
			require.NotNil(t, next.DueDate)
			assert.Equal(t, tt.wantDue, *next.DueDate)
			assert.Equal(t, TaskStatusPending, next.Status)
			assert.Nil(t, next.CompletedAt)
			assert.Nil(t, next.GoogleEventID)
			assert.Equal(t, task.Title, next.Title)
			assert.Equal(t, task.UserID, next.UserID)
			assert.NotEqual(t, task.ID, next.ID)
		})
	}

	t.Run("non-recurring returns nil", func(t *testing.T) {
		task := &Task{Recurring: RecurringNone, DueDate: &due}
		assert.Nil(t, task.NextOccurrence(now))
	})

	t.Run("overdue recurring task lands in the future", func(t *testing.T) {
		stale := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		task := &Task{Recurring: RecurringWeekly, DueDate: &stale}

		next := task.NextOccurrence(now)
		require.NotNil(t, next)
		today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
		assert.False(t, next.DueDate.Before(today), "next due %v is in the past", next.DueDate)
		// Weekly cadence stays on the original weekday (Wednesday)
		assert.Equal(t, stale.Weekday(), next.DueDate.Weekday())
	})

	t.Run("no due date starts from now", func(t *testing.T) {
		task := &Task{Recurring: RecurringDaily}
		next := task.NextOccurrence(now)
		require.NotNil(t, next)
		assert.Equal(t, time.Date(2025, 3, 11, 15, 30, 0, 0, time.UTC), *next.DueDate)
	})
}

func TestOrderForToday(t *testing.T) {
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	str := func(s string) *string { return &s }

	// Deliberately shuffled: the expected order is e, b, a, d, c.
	a := &Task{Title: "a", Priority: PriorityHigh, DueTime: nil, CreatedAt: base}
	b := &Task{Title: "b", Priority: PriorityHigh, DueTime: str("14:00"), CreatedAt: base.Add(time.Hour)}
	c := &Task{Title: "c", Priority: PriorityLow, DueTime: str("09:00"), CreatedAt: base}
	d := &Task{Title: "d", Priority: PriorityMedium, DueTime: str("09:00"), CreatedAt: base}
	e := &Task{Title: "e", Priority: PriorityHigh, DueTime: str("09:00"), CreatedAt: base.Add(2 * time.Hour)}

	tasks := []*Task{a, b, c, d, e}
	OrderForToday(tasks)

	got := make([]string, len(tasks))
	for i, task := range tasks {
		got[i] = task.Title
	}
	assert.Equal(t, []string{"e", "b", "a", "d", "c"}, got)
}

func TestOrderForTodayCreatedAtTieBreak(t *testing.T) {
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	str := func(s string) *string { return &s }

	first := &Task{Title: "first", Priority: PriorityLow, DueTime: str("10:00"), CreatedAt: base}
	second := &Task{Title: "second", Priority: PriorityLow, DueTime: str("10:00"), CreatedAt: base.Add(time.Minute)}

	tasks := []*Task{second, first}
	OrderForToday(tasks)

	assert.Equal(t, "first", tasks[0].Title)
	assert.Equal(t, "second", tasks[1].Title)
}

func TestDefaultNotificationPreference(t *testing.T) {
	userID := uuid.New()
	now := time.Now()

	pref := DefaultNotificationPreference(userID, now)

	assert.Equal(t, userID, pref.UserID)
	assert.True(t, pref.PushEnabled)
	assert.True(t, pref.DailyEmail)
	assert.Equal(t, "08:00", pref.DailyEmailTime)
	assert.True(t, pref.WeeklyEmail)
	assert.Equal(t, int(time.Monday), pref.WeeklyEmailDay)
	assert.Equal(t, "09:00", pref.WeeklyEmailTime)
}

func TestSessionValidity(t *testing.T) {
	now := time.Now()
	revoked := now.Add(-time.Minute)

	tests := []struct {
		name    string
		session Session
		valid   bool
	}{
		{"active", Session{ExpiresAt: now.Add(time.Hour)}, true},
		{"expired", Session{ExpiresAt: now.Add(-time.Hour)}, false},
		{"revoked", Session{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.session.IsValid())
		})
	}
}
