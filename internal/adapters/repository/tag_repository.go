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

// TagRepositoryImpl implements the TagRepository interface
type TagRepositoryImpl struct {
	db *sqlx.DB
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *sqlx.DB) ports.TagRepository {
	return &TagRepositoryImpl{db: db}
}

func (r *TagRepositoryImpl) Create(ctx context.Context, tag *entities.Tag) error {
	query := `
		INSERT INTO tags (id, user_id, name, color)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		tag.ID, tag.UserID, tag.Name, tag.Color,
	).Scan(&tag.CreatedAt, &tag.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return entities.ErrDuplicateName
		}
		return fmt.Errorf("create tag: %w", err)
	}

	return nil
}

func (r *TagRepositoryImpl) GetByID(ctx context.Context, userID, tagID uuid.UUID) (*entities.Tag, error) {
	query := `
		SELECT id, user_id, name, color, created_at, updated_at
		FROM tags
		WHERE id = $1 AND user_id = $2`

	var tag entities.Tag
	err := r.db.GetContext(ctx, &tag, query, tagID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrTagNotFound
		}
		return nil, fmt.Errorf("get tag by id: %w", err)
	}

	return &tag, nil
}

func (r *TagRepositoryImpl) Update(ctx context.Context, tag *entities.Tag) error {
	query := `
		UPDATE tags
		SET name = $3, color = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		tag.ID, tag.UserID, tag.Name, tag.Color,
	).Scan(&tag.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return entities.ErrTagNotFound
		}
		if isUniqueViolation(err) {
			return entities.ErrDuplicateName
		}
		return fmt.Errorf("update tag: %w", err)
	}

	return nil
}

// Delete removes the tag; its task_tags rows go with it via ON DELETE CASCADE.
// Tagged tasks themselves are untouched.
func (r *TagRepositoryImpl) Delete(ctx context.Context, userID, tagID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1 AND user_id = $2`, tagID, userID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrTagNotFound
	}

	return nil
}

func (r *TagRepositoryImpl) List(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.Tag, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := `
		SELECT id, user_id, name, color, created_at, updated_at
		FROM tags
		WHERE user_id = $1
		ORDER BY name
		LIMIT $2`

	var tags []*entities.Tag
	if err := r.db.SelectContext(ctx, &tags, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	return tags, nil
}
