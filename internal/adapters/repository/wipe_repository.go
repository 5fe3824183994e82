package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/infrastructure/database"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// WipeTransactor implements ports.Transactor on a single Postgres transaction.
// The deletes it exposes are the only unordered-looking pieces; the ordering
// policy itself lives in the account deletion coordinator so it stays visible
// and testable in one place.
type WipeTransactor struct {
	db *database.DB
}

// NewWipeTransactor creates a transactor for account erasure
func NewWipeTransactor(db *database.DB) ports.Transactor {
	return &WipeTransactor{db: db}
}

func (t *WipeTransactor) WipeInTx(ctx context.Context, fn func(ports.AccountWipe) error) error {
	return t.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		return fn(&wipeTx{tx: tx})
	})
}

type wipeTx struct {
	tx *sqlx.Tx
}

func (w *wipeTx) exec(ctx context.Context, step, query string, userID uuid.UUID) error {
	if _, err := w.tx.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}

func (w *wipeTx) DeleteTaskTagLinks(ctx context.Context, userID uuid.UUID) error {
	return w.exec(ctx, "delete task tag links",
		`DELETE FROM task_tags WHERE task_id IN (SELECT id FROM tasks WHERE user_id = $1)`, userID)
}

func (w *wipeTx) DeleteTasks(ctx context.Context, userID uuid.UUID) error {
	return w.exec(ctx, "delete tasks", `DELETE FROM tasks WHERE user_id = $1`, userID)
}

func (w *wipeTx) DeleteCategories(ctx context.Context, userID uuid.UUID) error {
	return w.exec(ctx, "delete categories", `DELETE FROM categories WHERE user_id = $1`, userID)
}

func (w *wipeTx) DeleteTags(ctx context.Context, userID uuid.UUID) error {
	return w.exec(ctx, "delete tags", `DELETE FROM tags WHERE user_id = $1`, userID)
}

func (w *wipeTx) DeleteNotificationPreference(ctx context.Context, userID uuid.UUID) error {
	return w.exec(ctx, "delete notification preference",
		`DELETE FROM notification_preferences WHERE user_id = $1`, userID)
}

func (w *wipeTx) DeleteSessions(ctx context.Context, userID uuid.UUID) error {
	return w.exec(ctx, "delete sessions", `DELETE FROM sessions WHERE user_id = $1`, userID)
}

func (w *wipeTx) DeleteAccounts(ctx context.Context, userID uuid.UUID) error {
	return w.exec(ctx, "delete accounts", `DELETE FROM accounts WHERE user_id = $1`, userID)
}

func (w *wipeTx) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	result, err := w.tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrUserNotFound
	}

	return nil
}
