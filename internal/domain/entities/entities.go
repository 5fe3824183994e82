package entities

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTagNotFound         = errors.New("tag not found")
	ErrPreferenceNotFound  = errors.New("notification preference not found")
	ErrAccountNotFound     = errors.New("linked account not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrDuplicateName       = errors.New("name already in use")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidPriority     = errors.New("invalid priority")
	ErrInvalidRecurrence   = errors.New("invalid recurring pattern")
	ErrInvalidTimezone     = errors.New("invalid timezone")
	ErrSyncStateChanged    = errors.New("task sync state changed concurrently")
	ErrNoDueDate           = errors.New("task has no due date to sync")
	ErrCalendarNotLinked   = errors.New("no google account linked")
	ErrCalendarUnavailable = errors.New("calendar service unavailable")
	ErrAlreadyCompleted    = errors.New("task is already completed")
)

// Enums and types
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "PENDING"
	TaskStatusCompleted TaskStatus = "COMPLETED"
	TaskStatusArchived  TaskStatus = "ARCHIVED"
)

type RecurringPattern string

const (
	RecurringNone    RecurringPattern = "NONE"
	RecurringDaily   RecurringPattern = "DAILY"
	RecurringWeekly  RecurringPattern = "WEEKLY"
	RecurringMonthly RecurringPattern = "MONTHLY"
)

// User is the identity anchor; every other entity carries its ID.
type User struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	Name           string    `json:"name" db:"name"`
	AvatarURL      *string   `json:"avatar_url" db:"avatar_url"`
	Timezone       string    `json:"timezone" db:"timezone"`
	OnboardingDone bool      `json:"onboarding_done" db:"onboarding_done"`
	OnboardingStep int       `json:"onboarding_step" db:"onboarding_step"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Location resolves the user's IANA timezone, falling back to UTC.
func (u *User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Account binds a user to an external identity provider.
type Account struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	UserID            uuid.UUID  `json:"user_id" db:"user_id"`
	Provider          string     `json:"provider" db:"provider"`
	ProviderAccountID string     `json:"provider_account_id" db:"provider_account_id"`
	AccessToken       string     `json:"-" db:"access_token"`
	RefreshToken      string     `json:"-" db:"refresh_token"`
	TokenExpiry       *time.Time `json:"token_expiry" db:"token_expiry"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// Session is an active login, identified by the sha256 hash of its refresh token.
type Session struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	TokenHash string     `json:"-" db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

func (s *Session) IsValid() bool {
	return !s.IsExpired() && !s.IsRevoked()
}

// Task is a user-owned unit of work.
//
// Two invariants hold on every row: CompletedAt is set if and only if
// Status is COMPLETED, and GoogleEventID is set if and only if the task
// is currently mirrored in Google Calendar. All mutation paths go through
// the methods below so the first invariant cannot drift.
type Task struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	UserID           uuid.UUID        `json:"user_id" db:"user_id"`
	CategoryID       *uuid.UUID       `json:"category_id" db:"category_id"`
	Title            string           `json:"title" db:"title"`
	Description      *string          `json:"description" db:"description"`
	DueDate          *time.Time       `json:"due_date" db:"due_date"`
	DueTime          *string          `json:"due_time" db:"due_time"` // "HH:MM", kept separate from the date
	Priority         Priority         `json:"priority" db:"priority"`
	Status           TaskStatus       `json:"status" db:"status"`
	Recurring        RecurringPattern `json:"recurring" db:"recurring"`
	EstimatedMinutes *int             `json:"estimated_minutes" db:"estimated_minutes"`
	GoogleEventID    *string          `json:"google_event_id" db:"google_event_id"`
	CompletedAt      *time.Time       `json:"completed_at" db:"completed_at"`
	Tags             []Tag            `json:"tags,omitempty"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// IsSynced reports whether the task is mirrored in Google Calendar.
func (t *Task) IsSynced() bool {
	return t.GoogleEventID != nil && *t.GoogleEventID != ""
}

// IsRecurring reports whether completing the task should spawn a next occurrence.
func (t *Task) IsRecurring() bool {
	return t.Recurring != "" && t.Recurring != RecurringNone
}

// Complete moves a pending or archived task to COMPLETED and stamps CompletedAt.
func (t *Task) Complete(now time.Time) error {
	if t.Status == TaskStatusCompleted {
		return ErrAlreadyCompleted
	}
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

// Reopen moves a completed or archived task back to PENDING and clears CompletedAt.
func (t *Task) Reopen(now time.Time) error {
	if t.Status == TaskStatusPending {
		return ErrInvalidStatus
	}
	t.Status = TaskStatusPending
	t.CompletedAt = nil
	t.UpdatedAt = now
	return nil
}

// Archive moves the task to ARCHIVED from any state. Archiving clears
// CompletedAt so the completion invariant keeps holding.
func (t *Task) Archive(now time.Time) error {
	if t.Status == TaskStatusArchived {
		return ErrInvalidStatus
	}
	t.Status = TaskStatusArchived
	t.CompletedAt = nil
	t.UpdatedAt = now
	return nil
}

// NextOccurrence builds the follow-up PENDING task for a recurring task.
// The new task inherits everything except the calendar link and completion
// state; the due date advances by the recurrence cadence. The completed
// task itself is retained as history.
func (t *Task) NextOccurrence(now time.Time) *Task {
	if !t.IsRecurring() {
		return nil
	}

	next := &Task{
		ID:               uuid.New(),
		UserID:           t.UserID,
		CategoryID:       t.CategoryID,
		Title:            t.Title,
		Description:      t.Description,
		DueTime:          t.DueTime,
		Priority:         t.Priority,
		Status:           TaskStatusPending,
		Recurring:        t.Recurring,
		EstimatedMinutes: t.EstimatedMinutes,
		Tags:             t.Tags,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	base := now
	if t.DueDate != nil {
		base = *t.DueDate
	}

	due := advance(base, t.Recurring)
	// A recurring task that fell behind schedule resumes in the future,
	// not on a date that is already past.
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for due.Before(today) {
		due = advance(due, t.Recurring)
	}

	next.DueDate = &due
	return next
}

func advance(from time.Time, pattern RecurringPattern) time.Time {
	switch pattern {
	case RecurringDaily:
		return from.AddDate(0, 0, 1)
	case RecurringWeekly:
		return from.AddDate(0, 0, 7)
	case RecurringMonthly:
		return from.AddDate(0, 1, 0)
	default:
		return from
	}
}

// OrderForToday sorts tasks in place with the today-view tie-break policy:
// priority HIGH→MEDIUM→LOW, then due time ascending with unset times last,
// then creation time ascending.
func OrderForToday(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		pi, pj := tasks[i].Priority.rank(), tasks[j].Priority.rank()
		if pi != pj {
			return pi < pj
		}
		ti, tj := tasks[i].DueTime, tasks[j].DueTime
		switch {
		case ti != nil && tj != nil && *ti != *tj:
			return *ti < *tj
		case ti == nil && tj != nil:
			return false
		case ti != nil && tj == nil:
			return true
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Category groups tasks; deleting one disassociates its tasks instead of
// deleting them.
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Tag labels tasks through a join relation.
type Tag struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NotificationPreference is the single per-user record governing push and
// email notifications. Created lazily on first subscribe.
type NotificationPreference struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	PushEnabled     bool      `json:"push_enabled" db:"push_enabled"`
	PushEndpoint    *string   `json:"push_endpoint" db:"push_endpoint"`
	PushP256dhKey   *string   `json:"push_p256dh_key" db:"push_p256dh_key"`
	PushAuthKey     *string   `json:"push_auth_key" db:"push_auth_key"`
	DailyEmail      bool      `json:"daily_email" db:"daily_email"`
	DailyEmailTime  string    `json:"daily_email_time" db:"daily_email_time"` // "HH:MM" in the user's timezone
	WeeklyEmail     bool      `json:"weekly_email" db:"weekly_email"`
	WeeklyEmailDay  int       `json:"weekly_email_day" db:"weekly_email_day"` // time.Weekday, 0=Sunday
	WeeklyEmailTime string    `json:"weekly_email_time" db:"weekly_email_time"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultNotificationPreference returns the record created on first subscribe:
// push enabled, daily email at 08:00, weekly email on Monday at 09:00.
func DefaultNotificationPreference(userID uuid.UUID, now time.Time) *NotificationPreference {
	return &NotificationPreference{
		ID:              uuid.New(),
		UserID:          userID,
		PushEnabled:     true,
		DailyEmail:      true,
		DailyEmailTime:  "08:00",
		WeeklyEmail:     true,
		WeeklyEmailDay:  int(time.Monday),
		WeeklyEmailTime: "09:00",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// TaskStats summarizes a day's workload for the today view.
type TaskStats struct {
	Pending            int `json:"pending"`
	Completed          int `json:"completed"`
	HighPriority       int `json:"highPriority"`
	TotalEstimatedTime int `json:"totalEstimatedTime"`
}

// Utility methods
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusPending, TaskStatusCompleted, TaskStatusArchived:
		return true
	default:
		return false
	}
}

func (rp RecurringPattern) IsValid() bool {
	switch rp {
	case RecurringNone, RecurringDaily, RecurringWeekly, RecurringMonthly:
		return true
	default:
		return false
	}
}
