package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"subgen/internal/models"
	"subgen/internal/store"
)

const taskColumns = `id, user_id, file_path, filename, language, model, status, progress, priority, failure_reason, created_at, updated_at, completed_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
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

// statusGuard renders a "status IN (...)" clause plus its arguments for the
// statuses a transition may originate from.
func statusGuard(sources []models.TaskStatus) (string, []any) {
	placeholders := make([]string, len(sources))
	args := make([]any, len(sources))
	for i, s := range sources {
		placeholders[i] = "?"
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
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, file_path, filename, language, model, status, progress, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.UserID, task.FilePath, task.Filename, task.Language, task.Model,
		string(task.Status), task.Progress, task.Priority, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("task insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
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
	guard, guardArgs := statusGuard(sources)

	now := time.Now().UTC()
	query := `UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND ` + guard
	args := append([]any{string(status), now, id}, guardArgs...)
	if status == models.StatusCompleted {
		query = `UPDATE tasks SET status = ?, updated_at = ?, completed_at = ? WHERE id = ? AND ` + guard
		args = append([]any{string(status), now, now, id}, guardArgs...)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update task %d status: %w", id, err)
	}
	return s.explainNoTransition(ctx, id, status, res)
}

func (s *Store) MarkTaskFailed(ctx context.Context, id int64, reason string) error {
	guard, guardArgs := statusGuard(models.TransitionSources(models.StatusFailed))
	now := time.Now().UTC()
	args := append([]any{string(models.StatusFailed), reason, now, id}, guardArgs...)
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, failure_reason = ?, updated_at = ? WHERE id = ? AND `+guard, args...)
	if err != nil {
		return fmt.Errorf("mark task %d failed: %w", id, err)
	}
	return s.explainNoTransition(ctx, id, models.StatusFailed, res)
}

// explainNoTransition turns a zero-row guarded UPDATE into ErrNotFound or
// ErrConflict so illegal transitions are rejected, not silently ignored.
func (s *Store) explainNoTransition(ctx context.Context, id int64, target models.TaskStatus, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("task %d rows affected: %w", id, err)
	}
	if n > 0 {
		return nil
	}
	current, err := s.GetTask(ctx, id)
	if err != nil {
		return err // ErrNotFound or query failure
	}
	return fmt.Errorf("%w: task %d cannot move from %s to %s", store.ErrConflict, id, current.Status, target)
}

func (s *Store) UpdateTaskProgress(ctx context.Context, id int64, progress int) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("progress %d out of range [0,100]", progress)
	}
	// Best-effort, last-write-wins. The guard keeps progress monotonic and
	// drops late writes against tasks that already left processing.
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET progress = ?, updated_at = ?
		WHERE id = ? AND status = ? AND progress <= ?`,
		progress, time.Now().UTC(), id, string(models.StatusProcessing), progress,
	)
	if err != nil {
		return fmt.Errorf("update task %d progress: %w", id, err)
	}
	return nil
}

func (s *Store) UpdateTaskPriority(ctx context.Context, id int64, priority int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET priority = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		priority, time.Now().UTC(), id,
		string(models.StatusPending), string(models.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("update task %d priority: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("task %d rows affected: %w", id, err)
	}
	if n == 0 {
		current, err := s.GetTask(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: cannot change priority of %s task %d", store.ErrConflict, current.Status, id)
	}
	return nil
}

func (s *Store) ListTasksByUser(ctx context.Context, userID int64, params store.ListTasksParams) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	args := []any{userID}
	if params.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*params.Status))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
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
	// Subtitles cascade via the foreign key.
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("task %d rows affected: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
