package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// NotificationRepositoryImpl implements the NotificationRepository interface
type NotificationRepositoryImpl struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification preference repository
func NewNotificationRepository(db *sqlx.DB) ports.NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

const prefColumns = `id, user_id, push_enabled, push_endpoint, push_p256dh_key, push_auth_key,
	daily_email, daily_email_time, weekly_email, weekly_email_day, weekly_email_time,
	created_at, updated_at`

func (r *NotificationRepositoryImpl) Create(ctx context.Context, pref *entities.NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences (id, user_id, push_enabled, push_endpoint,
			push_p256dh_key, push_auth_key, daily_email, daily_email_time,
			weekly_email, weekly_email_day, weekly_email_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	if pref.ID == uuid.Nil {
		pref.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		pref.ID, pref.UserID, pref.PushEnabled, pref.PushEndpoint,
		pref.PushP256dhKey, pref.PushAuthKey, pref.DailyEmail, pref.DailyEmailTime,
		pref.WeeklyEmail, pref.WeeklyEmailDay, pref.WeeklyEmailTime,
	).Scan(&pref.CreatedAt, &pref.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create notification preference: %w", err)
	}

	return nil
}

func (r *NotificationRepositoryImpl) GetByUserID(ctx context.Context, userID uuid.UUID) (*entities.NotificationPreference, error) {
	query := `SELECT ` + prefColumns + ` FROM notification_preferences WHERE user_id = $1`

	var pref entities.NotificationPreference
	err := r.db.GetContext(ctx, &pref, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrPreferenceNotFound
		}
		return nil, fmt.Errorf("get notification preference: %w", err)
	}

	return &pref, nil
}

func (r *NotificationRepositoryImpl) Update(ctx context.Context, pref *entities.NotificationPreference) error {
	query := `
		UPDATE notification_preferences
		SET push_enabled = $2, push_endpoint = $3, push_p256dh_key = $4, push_auth_key = $5,
			daily_email = $6, daily_email_time = $7, weekly_email = $8,
			weekly_email_day = $9, weekly_email_time = $10, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		pref.UserID, pref.PushEnabled, pref.PushEndpoint, pref.PushP256dhKey, pref.PushAuthKey,
		pref.DailyEmail, pref.DailyEmailTime, pref.WeeklyEmail,
		pref.WeeklyEmailDay, pref.WeeklyEmailTime,
	).Scan(&pref.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return entities.ErrPreferenceNotFound
		}
		return fmt.Errorf("update notification preference: %w", err)
	}

	return nil
}

func (r *NotificationRepositoryImpl) ListEmailEnabled(ctx context.Context) ([]*entities.NotificationPreference, error) {
	query := `SELECT ` + prefColumns + ` FROM notification_preferences
		WHERE daily_email = true OR weekly_email = true`

	var prefs []*entities.NotificationPreference
	if err := r.db.SelectContext(ctx, &prefs, query); err != nil {
		return nil, fmt.Errorf("list email-enabled preferences: %w", err)
	}

	return prefs, nil
}
