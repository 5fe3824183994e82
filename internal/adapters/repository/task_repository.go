package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Paul-Karonji/taskiq/internal/domain/entities"
	"github.com/Paul-Karonji/taskiq/internal/ports"
)

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

const taskColumns = `id, user_id, category_id, title, description, due_date, due_time,
	priority, status, recurring, estimated_minutes, google_event_id, completed_at,
	created_at, updated_at`

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, category_id, title, description, due_date, due_time,
			priority, status, recurring, estimated_minutes, google_event_id, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		task.ID, task.UserID, task.CategoryID, task.Title, task.Description,
		task.DueDate, task.DueTime, task.Priority, task.Status, task.Recurring,
		task.EstimatedMinutes, task.GoogleEventID, task.CompletedAt,
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, userID, taskID uuid.UUID) (*entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`

	var task entities.Task
	err := r.db.GetContext(ctx, &task, query, taskID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	if err := r.loadTags(ctx, []*entities.Task{&task}); err != nil {
		return nil, err
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, task *entities.Task) error {
	query := `
		UPDATE tasks
		SET category_id = $3, title = $4, description = $5, due_date = $6, due_time = $7,
			priority = $8, status = $9, recurring = $10, estimated_minutes = $11,
			completed_at = $12, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		task.ID, task.UserID, task.CategoryID, task.Title, task.Description,
		task.DueDate, task.DueTime, task.Priority, task.Status, task.Recurring,
		task.EstimatedMinutes, task.CompletedAt,
	).Scan(&task.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return entities.ErrTaskNotFound
		}
		return fmt.Errorf("update task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, userID, taskID uuid.UUID) error {
	query := `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, taskID, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepositoryImpl) List(ctx context.Context, userID uuid.UUID, filter ports.TaskFilter) ([]*entities.Task, int, error) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}

	appendArg := func(cond string, v interface{}) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != nil {
		appendArg("status = $%d", *filter.Status)
	}
	if filter.Priority != nil {
		appendArg("priority = $%d", *filter.Priority)
	}
	if filter.CategoryID != nil {
		appendArg("category_id = $%d", *filter.CategoryID)
	}
	if filter.TagID != nil {
		appendArg("id IN (SELECT task_id FROM task_tags WHERE tag_id = $%d)", *filter.TagID)
	}
	if filter.DueAfter != nil {
		appendArg("due_date >= $%d::date", filter.DueAfter.Format(dateLayout))
	}
	if filter.DueBefore != nil {
		appendArg("due_date <= $%d::date", filter.DueBefore.Format(dateLayout))
	}
	if filter.Search != nil {
		appendArg("title ILIKE '%%' || $%d || '%%'", *filter.Search)
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM tasks WHERE ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT `+taskColumns+` FROM tasks WHERE %s
		ORDER BY created_at DESC
		LIMIT %d OFFSET %d`, where, limit, filter.Offset)

	var tasks []*entities.Task
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}

	if err := r.loadTags(ctx, tasks); err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// dateLayout renders a time.Time as the calendar date in its own zone.
const dateLayout = "2006-01-02"

func (r *TaskRepositoryImpl) ListDueBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.Task, error) {
	// due_date is a DATE column. Comparing it against a timestamp makes
	// Postgres promote the date at the session timezone, which shifts the
	// window for users in other zones. Compare calendar dates instead,
	// rendered in the bounds' own zone.
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE user_id = $1 AND status = $2 AND due_date >= $3::date AND due_date < $4::date`

	var tasks []*entities.Task
	err := r.db.SelectContext(ctx, &tasks, query, userID, entities.TaskStatusPending, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list tasks due between: %w", err)
	}

	if err := r.loadTags(ctx, tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) CountStats(ctx context.Context, userID uuid.UUID, from, to time.Time) (*entities.TaskStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
			COUNT(*) FILTER (WHERE status = 'COMPLETED') AS completed,
			COUNT(*) FILTER (WHERE status = 'PENDING' AND priority = 'HIGH') AS high_priority,
			COALESCE(SUM(estimated_minutes) FILTER (WHERE status = 'PENDING'), 0) AS total_estimated
		FROM tasks
		WHERE user_id = $1 AND due_date >= $2::date AND due_date < $3::date`

	var row struct {
		Pending        int `db:"pending"`
		Completed      int `db:"completed"`
		HighPriority   int `db:"high_priority"`
		TotalEstimated int `db:"total_estimated"`
	}

	if err := r.db.GetContext(ctx, &row, query, userID, from.Format(dateLayout), to.Format(dateLayout)); err != nil {
		return nil, fmt.Errorf("count task stats: %w", err)
	}

	return &entities.TaskStats{
		Pending:            row.Pending,
		Completed:          row.Completed,
		HighPriority:       row.HighPriority,
		TotalEstimatedTime: row.TotalEstimated,
	}, nil
}

func (r *TaskRepositoryImpl) SetTags(ctx context.Context, userID, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set tags: %w", err)
	}
	defer tx.Rollback()

	var owned int
	if err := tx.GetContext(ctx, &owned, `SELECT COUNT(*) FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID); err != nil {
		return fmt.Errorf("check task ownership: %w", err)
	}
	if owned == 0 {
		return entities.ErrTaskNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_tags WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("clear task tags: %w", err)
	}

	for _, tagID := range tagIDs {
		// Ownership of the tag is enforced in the insert itself.
		res, err := tx.ExecContext(ctx, `
			INSERT INTO task_tags (task_id, tag_id)
			SELECT $1, id FROM tags WHERE id = $2 AND user_id = $3`, taskID, tagID, userID)
		if err != nil {
			return fmt.Errorf("link tag: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if n == 0 {
			return entities.ErrTagNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set tags: %w", err)
	}

	return nil
}

// SetGoogleEventID writes the calendar link only when the stored value still
// matches the one the caller read, so two concurrent sync toggles cannot
// silently overwrite each other.
func (r *TaskRepositoryImpl) SetGoogleEventID(ctx context.Context, userID, taskID uuid.UUID, expected, next *string) error {
	var (
		result sql.Result
		err    error
	)

	if expected == nil {
		result, err = r.db.ExecContext(ctx, `
			UPDATE tasks SET google_event_id = $3, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1 AND user_id = $2 AND google_event_id IS NULL`,
			taskID, userID, next)
	} else {
		result, err = r.db.ExecContext(ctx, `
			UPDATE tasks SET google_event_id = $3, updated_at = CURRENT_TIMESTAMP
			WHERE id = $1 AND user_id = $2 AND google_event_id = $4`,
			taskID, userID, next, *expected)
	}

	if err != nil {
		return fmt.Errorf("set google event id: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Either the row is gone or another toggle got there first.
		var exists int
		if err := r.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID); err != nil {
			return fmt.Errorf("check task existence: %w", err)
		}
		if exists == 0 {
			return entities.ErrTaskNotFound
		}
		return entities.ErrSyncStateChanged
	}

	return nil
}

func (r *TaskRepositoryImpl) loadTags(ctx context.Context, tasks []*entities.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(tasks))
	byID := make(map[uuid.UUID]*entities.Task, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}

	query, args, err := sqlx.In(`
		SELECT tt.task_id AS task_id, t.id AS id, t.user_id AS user_id, t.name AS name,
			t.color AS color, t.created_at AS created_at, t.updated_at AS updated_at
		FROM task_tags tt
		JOIN tags t ON t.id = tt.tag_id
		WHERE tt.task_id IN (?)
		ORDER BY t.name`, ids)
	if err != nil {
		return fmt.Errorf("build tag query: %w", err)
	}

	var rows []struct {
		TaskID uuid.UUID `db:"task_id"`
		entities.Tag
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load task tags: %w", err)
	}

	for _, row := range rows {
		task := byID[row.TaskID]
		task.Tags = append(task.Tags, row.Tag)
	}

	return nil
}
