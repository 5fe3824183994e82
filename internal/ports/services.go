package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
)

// AuthService interface for authentication operations
type AuthService interface {
	AuthCodeURL(state string) string
	HandleGoogleCallback(ctx context.Context, code string) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ValidateToken(tokenString string) (*Claims, error)
}

// UserService interface for profile, onboarding and account teardown
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*entities.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*entities.User, error)
	GetOnboarding(ctx context.Context, id uuid.UUID) (*OnboardingState, error)
	UpdateOnboarding(ctx context.Context, id uuid.UUID, req UpdateOnboardingRequest) (*OnboardingState, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) (time.Time, error)
}

// TaskService interface for the task lifecycle
type TaskService interface {
	CreateTask(ctx context.Context, userID uuid.UUID, req CreateTaskRequest) (*entities.Task, error)
	GetTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error)
	UpdateTask(ctx context.Context, userID, taskID uuid.UUID, req UpdateTaskRequest) (*entities.Task, error)
	DeleteTask(ctx context.Context, userID, taskID uuid.UUID) error
	ListTasks(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*entities.Task, int, error)
	CompleteTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error)
	ReopenTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error)
	ArchiveTask(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error)
	ToggleCalendarSync(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error)
	TodayView(ctx context.Context, userID uuid.UUID) (*TodayResponse, error)
}

// CategoryService interface for category CRUD
type CategoryService interface {
	CreateCategory(ctx context.Context, userID uuid.UUID, req CreateCategoryRequest) (*entities.Category, error)
	UpdateCategory(ctx context.Context, userID, categoryID uuid.UUID, req UpdateCategoryRequest) (*entities.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID uuid.UUID) error
	ListCategories(ctx context.Context, userID uuid.UUID) ([]*entities.Category, error)
}

// TagService interface for tag CRUD
type TagService interface {
	CreateTag(ctx context.Context, userID uuid.UUID, req CreateTagRequest) (*entities.Tag, error)
	UpdateTag(ctx context.Context, userID, tagID uuid.UUID, req UpdateTagRequest) (*entities.Tag, error)
	DeleteTag(ctx context.Context, userID, tagID uuid.UUID) error
	ListTags(ctx context.Context, userID uuid.UUID) ([]*entities.Tag, error)
}

// NotificationService interface for notification preferences
type NotificationService interface {
	Subscribe(ctx context.Context, userID uuid.UUID, req SubscribeRequest) (*entities.NotificationPreference, error)
	Unsubscribe(ctx context.Context, userID uuid.UUID) (*entities.NotificationPreference, error)
	GetPreference(ctx context.Context, userID uuid.UUID) (*entities.NotificationPreference, error)
}

// Request/Response Types

type AuthResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
	User         *entities.User `json:"user"`
}

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Timezone *string `json:"timezone" validate:"omitempty,max=64"`
}

type OnboardingState struct {
	Done bool `json:"done"`
	Step int  `json:"step"`
}

type UpdateOnboardingRequest struct {
	Done *bool `json:"done"`
	Step *int  `json:"step" validate:"omitempty,min=0,max=10"`
}

type CreateTaskRequest struct {
	Title            string                    `json:"title" validate:"required,min=1,max=200"`
	Description      *string                   `json:"description" validate:"omitempty,max=2000"`
	DueDate          *time.Time                `json:"due_date"`
	DueTime          *string                   `json:"due_time" validate:"omitempty,len=5"`
	Priority         entities.Priority         `json:"priority" validate:"required"`
	Recurring        entities.RecurringPattern `json:"recurring" validate:"omitempty"`
	EstimatedMinutes *int                      `json:"estimated_minutes" validate:"omitempty,min=1,max=1440"`
	CategoryID       *uuid.UUID                `json:"category_id"`
	TagIDs           []uuid.UUID               `json:"tag_ids"`
}

type UpdateTaskRequest struct {
	Title            *string                    `json:"title" validate:"omitempty,min=1,max=200"`
	Description      *string                    `json:"description" validate:"omitempty,max=2000"`
	DueDate          *time.Time                 `json:"due_date"`
	DueTime          *string                    `json:"due_time" validate:"omitempty,len=5"`
	Priority         *entities.Priority         `json:"priority"`
	Recurring        *entities.RecurringPattern `json:"recurring"`
	EstimatedMinutes *int                       `json:"estimated_minutes" validate:"omitempty,min=1,max=1440"`
	CategoryID       *uuid.UUID                 `json:"category_id"`
	TagIDs           []uuid.UUID                `json:"tag_ids"`
}

type TodayResponse struct {
	Tasks []*entities.Task    `json:"tasks"`
	Total int                 `json:"total"`
	Stats *entities.TaskStats `json:"stats"`
}

type CreateCategoryRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=50"`
	Color string `json:"color" validate:"required,hexcolor"`
}

type UpdateCategoryRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=50"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

type CreateTagRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=50"`
	Color string `json:"color" validate:"required,hexcolor"`
}

type UpdateTagRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=50"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

type SubscribeRequest struct {
	Endpoint  string `json:"endpoint" validate:"required,url"`
	P256dhKey string `json:"p256dh_key" validate:"required"`
	AuthKey   string `json:"auth_key" validate:"required"`
}
