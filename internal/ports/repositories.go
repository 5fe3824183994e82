package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	Update(ctx context.Context, user *entities.User) error
}

// AccountRepository manages external-identity bindings (OAuth tokens).
type AccountRepository interface {
	Upsert(ctx context.Context, account *entities.Account) error
	GetByProvider(ctx context.Context, provider, providerAccountID string) (*entities.Account, error)
	GetForUser(ctx context.Context, userID uuid.UUID, provider string) (*entities.Account, error)
}

// SessionRepository manages login sessions keyed by refresh-token hash.
type SessionRepository interface {
	Create(ctx context.Context, session *entities.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*entities.Session, error)
	Revoke(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

// TaskRepository defines the interface for task data operations.
// Every method is scoped by the owning user; there is no unscoped query path.
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error)
	Update(ctx context.Context, task *entities.Task) error
	Delete(ctx context.Context, userID, taskID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*entities.Task, int, error)
	ListDueBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.Task, error)
	CountStats(ctx context.Context, userID uuid.UUID, from, to time.Time) (*entities.TaskStats, error)
	SetTags(ctx context.Context, userID, taskID uuid.UUID, tagIDs []uuid.UUID) error
	// SetGoogleEventID is a compare-and-swap: the write succeeds only if the
	// stored event id still equals expected (nil meaning unset). A concurrent
	// toggle surfaces as entities.ErrSyncStateChanged instead of a lost update.
	SetGoogleEventID(ctx context.Context, userID, taskID uuid.UUID, expected, next *string) error
}

// CategoryRepository defines the interface for category data operations
type CategoryRepository interface {
	Create(ctx context.Context, category *entities.Category) error
	GetByID(ctx context.Context, userID, categoryID uuid.UUID) (*entities.Category, error)
	Update(ctx context.Context, category *entities.Category) error
	// Delete disassociates referencing tasks (category_id set to null) and
	// removes the category, atomically.
	Delete(ctx context.Context, userID, categoryID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]*entities.Category, error)
}

// TagRepository defines the interface for tag data operations
type TagRepository interface {
	Create(ctx context.Context, tag *entities.Tag) error
	GetByID(ctx context.Context, userID, tagID uuid.UUID) (*entities.Tag, error)
	Update(ctx context.Context, tag *entities.Tag) error
	// Delete removes the tag and its join rows only; tagged tasks survive.
	Delete(ctx context.Context, userID, tagID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.Tag, error)
}

// NotificationRepository manages the single per-user preference record.
type NotificationRepository interface {
	Create(ctx context.Context, pref *entities.NotificationPreference) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.NotificationPreference, error)
	Update(ctx context.Context, pref *entities.NotificationPreference) error
	ListEmailEnabled(ctx context.Context) ([]*entities.NotificationPreference, error)
}

// AccountWipe is the ordered set of delete steps for full account erasure.
// The order mirrors the schema's dependency edges: join rows first, the user
// row last. All steps run inside one transaction provided by Transactor.
type AccountWipe interface {
	DeleteTaskTagLinks(ctx context.Context, userID uuid.UUID) error
	DeleteTasks(ctx context.Context, userID uuid.UUID) error
	DeleteCategories(ctx context.Context, userID uuid.UUID) error
	DeleteTags(ctx context.Context, userID uuid.UUID) error
	DeleteNotificationPreference(ctx context.Context, userID uuid.UUID) error
	DeleteSessions(ctx context.Context, userID uuid.UUID) error
	DeleteAccounts(ctx context.Context, userID uuid.UUID) error
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// Transactor runs fn against an AccountWipe bound to a single transaction;
// any error from fn rolls back every step.
type Transactor interface {
	WipeInTx(ctx context.Context, fn func(AccountWipe) error) error
}

// CalendarAdapter bridges to the external calendar service. It is a remote
// collaborator with its own failure modes; callers impose timeouts and must
// not mutate local state when a call fails.
type CalendarAdapter interface {
	CreateEvent(ctx context.Context, account *entities.Account, event CalendarEvent) (string, error)
	DeleteEvent(ctx context.Context, account *entities.Account, eventID string) error
}

// CalendarEvent is the projection of a task onto a remote calendar event.
type CalendarEvent struct {
	Title       string
	Description string
	Date        time.Time
	StartTime   string // "HH:MM", empty for all-day events
	DurationMin int
	Timezone    string
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// Mailer delivers digest emails. Delivery failures are logged, never retried.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// TaskFilter narrows task listings. Nil fields mean "no constraint".
type TaskFilter struct {
	Status     *entities.TaskStatus
	Priority   *entities.Priority
	CategoryID *uuid.UUID
	TagID      *uuid.UUID
	DueAfter   *time.Time
	DueBefore  *time.Time
	Search     *string
	Limit      int
	Offset     int
}
