package primary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"subgen/internal/models"
	"subgen/internal/store"
)

const taskColumns = `id, user_id, file_path, filename, language, model, status, progress, priority, failure_reason, created_at, updated_at, completed_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	t := &models.Task{}
	var reason sql.NullString
	var completed sql.NullTime
	err := row.Scan(
		&t.ID, &t.UserID, &t.FilePath, &t.Filename, &t.Language, &t.Model,
		&t.Status, &t.Progress, &t.Priority, &reason, &t.CreatedAt, &t.UpdatedAt, &completed,
	)
	if err != nil {
		return nil, err
	}
	if reason.Valid {
		t.FailureReason = &reason.String
	}
	if completed.Valid {
		c := completed.Time
		t.CompletedAt = &c
	}
	return t, nil
}

// statusGuard renders "status IN ($n, ...)" starting at placeholder index n.
func statusGuard(sources []models.TaskStatus, n int) (string, []any) {
	placeholders := make([]string, len(sources))
	args := make([]any, len(sources))
	for i, s := range sources {
		placeholders[i] = fmt.Sprintf("$%d", n+i)
		args[i] = string(s)
	}
	return "status IN (" + strings.Join(placeholders, ", ") + ")", args
}

func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	now := time.Now().UTC()
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Language == "" {
		task.Language = "auto"
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO tasks (user_id, file_path, filename, language, model, status, progress, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		task.UserID, task.FilePath, task.Filename, task.Language, task.Model,
		string(task.Status), task.Progress, task.Priority, now, now,
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	row := s.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return task, nil
}

func (s *Store) UpdateTaskStatus(ctx context.Context, id int64, status models.TaskStatus) error {
	sources := models.TransitionSources(status)
	if len(sources) == 0 {
		return fmt.Errorf("%w: %q is not a valid transition target", store.ErrConflict, status)
	}

	now := time.Now().UTC()
	var query string
	var args []any
	if status == models.StatusCompleted {
		guard, guardArgs := statusGuard(sources, 5)
		query = `UPDATE tasks SET status = $1, updated_at = $2, completed_at = $3 WHERE id = $4 AND ` + guard
		args = append([]any{string(status), now, now, id}, guardArgs...)
	} else {
		guard, guardArgs := statusGuard(sources, 4)
		query = `UPDATE tasks SET status = $1, updated_at = $2 WHERE id = $3 AND ` + guard
		args = append([]any{string(status), now, id}, guardArgs...)
	}

	cmdTag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task %d status: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return s.explainNoTransition(ctx, id, status)
	}
	return nil
}

func (s *Store) MarkTaskFailed(ctx context.Context, id int64, reason string) error {
	guard, guardArgs := statusGuard(models.TransitionSources(models.StatusFailed), 5)
	args := append([]any{string(models.StatusFailed), reason, time.Now().UTC(), id}, guardArgs...)
	cmdTag, err := s.db.Exec(ctx,
		`UPDATE tasks SET status = $1, failure_reason = $2, updated_at = $3 WHERE id = $4 AND `+guard, args...)
	if err != nil {
		return fmt.Errorf("mark task %d failed: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return s.explainNoTransition(ctx, id, models.StatusFailed)
	}
	return nil
}

func (s *Store) explainNoTransition(ctx context.Context, id int64, target models.TaskStatus) error {
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: task %d cannot move from %s to %s", store.ErrConflict, id, current.Status, target)
}

func (s *Store) UpdateTaskProgress(ctx context.Context, id int64, progress int) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("progress %d out of range [0,100]", progress)
	}
	_, err := s.db.Exec(ctx, `
		UPDATE tasks SET progress = $1, updated_at = $2
		WHERE id = $3 AND status = $4 AND progress <= $1`,
		progress, time.Now().UTC(), id, string(models.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("update task %d progress: %w", id, err)
	}
	return nil
}

func (s *Store) UpdateTaskPriority(ctx context.Context, id int64, priority int) error {
	cmdTag, err := s.db.Exec(ctx, `
		UPDATE tasks SET priority = $1, updated_at = $2
		WHERE id = $3 AND status IN ($4, $5)`,
		priority, time.Now().UTC(), id,
		string(models.StatusPending), string(models.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("update task %d priority: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		current, err := s.GetTask(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: cannot change priority of %s task %d", store.ErrConflict, current.Status, id)
	}
	return nil
}

func (s *Store) ListTasksByUser(ctx context.Context, userID int64, params store.ListTasksParams) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}
	if params.Status != nil {
		query += ` AND status = $2`
		args = append(args, string(*params.Status))
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, params.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks for user %d: %w", userID, err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	cmdTag, err := s.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
