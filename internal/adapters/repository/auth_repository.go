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

// AccountRepositoryImpl implements the AccountRepository interface
type AccountRepositoryImpl struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sqlx.DB) ports.AccountRepository {
	return &AccountRepositoryImpl{db: db}
}

// Upsert refreshes the provider tokens on every sign-in, keyed by the
// provider identity rather than the row id.
func (r *AccountRepositoryImpl) Upsert(ctx context.Context, account *entities.Account) error {
	query := `
		INSERT INTO accounts (id, user_id, provider, provider_account_id, access_token, refresh_token, token_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider, provider_account_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = CASE WHEN EXCLUDED.refresh_token <> '' THEN EXCLUDED.refresh_token ELSE accounts.refresh_token END,
			token_expiry = EXCLUDED.token_expiry,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at`

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.UserID, account.Provider, account.ProviderAccountID,
		account.AccessToken, account.RefreshToken, account.TokenExpiry,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}

	return nil
}

func (r *AccountRepositoryImpl) GetByProvider(ctx context.Context, provider, providerAccountID string) (*entities.Account, error) {
	query := `
		SELECT id, user_id, provider, provider_account_id, access_token, refresh_token,
			token_expiry, created_at, updated_at
		FROM accounts
		WHERE provider = $1 AND provider_account_id = $2`

	var account entities.Account
	err := r.db.GetContext(ctx, &account, query, provider, providerAccountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account by provider: %w", err)
	}

	return &account, nil
}

func (r *AccountRepositoryImpl) GetForUser(ctx context.Context, userID uuid.UUID, provider string) (*entities.Account, error) {
	query := `
		SELECT id, user_id, provider, provider_account_id, access_token, refresh_token,
			token_expiry, created_at, updated_at
		FROM accounts
		WHERE user_id = $1 AND provider = $2`

	var account entities.Account
	err := r.db.GetContext(ctx, &account, query, userID, provider)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account for user: %w", err)
	}

	return &account, nil
}

// SessionRepositoryImpl implements the SessionRepository interface
type SessionRepositoryImpl struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sqlx.DB) ports.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *entities.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		session.ID, session.UserID, session.TokenHash, session.ExpiresAt,
	).Scan(&session.CreatedAt)

	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

func (r *SessionRepositoryImpl) GetByTokenHash(ctx context.Context, tokenHash string) (*entities.Session, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked_at, created_at
		FROM sessions
		WHERE token_hash = $1`

	var session entities.Session
	err := r.db.GetContext(ctx, &session, query, tokenHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session by token hash: %w", err)
	}

	return &session, nil
}

func (r *SessionRepositoryImpl) Revoke(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE sessions SET revoked_at = CURRENT_TIMESTAMP
		WHERE token_hash = $1 AND revoked_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (r *SessionRepositoryImpl) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE sessions SET revoked_at = CURRENT_TIMESTAMP
		WHERE user_id = $1 AND revoked_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}

	return nil
}
