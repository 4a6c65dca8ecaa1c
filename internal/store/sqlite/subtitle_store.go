package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"subgen/internal/models"
	"subgen/internal/store"
)

const subtitleColumns = `id, task_id, format, content, created_at, updated_at`

func scanSubtitle(row interface{ Scan(...any) error }) (*models.Subtitle, error) {
	sub := &models.Subtitle{}
	err := row.Scan(&sub.ID, &sub.TaskID, &sub.Format, &sub.Content, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Store) CreateSubtitle(ctx context.Context, sub *models.Subtitle) error {
	if sub.Content == "" {
		return fmt.Errorf("%w: subtitle content cannot be empty", models.ErrValidation)
	}
	if _, err := models.ParseSubtitleFormat(string(sub.Format)); err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO subtitles (task_id, format, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		sub.TaskID, string(sub.Format), sub.Content, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: subtitle %s for task %d", store.ErrDuplicate, sub.Format, sub.TaskID)
		}
		return fmt.Errorf("insert subtitle: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("subtitle insert id: %w", err)
	}
	sub.ID = id
	sub.CreatedAt = now
	sub.UpdatedAt = now
	return nil
}

func (s *Store) GetSubtitle(ctx context.Context, id int64) (*models.Subtitle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+subtitleColumns+` FROM subtitles WHERE id = ?`, id)
	sub, err := scanSubtitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subtitle %d: %w", id, err)
	}
	return sub, nil
}

func (s *Store) GetSubtitlesByTask(ctx context.Context, taskID int64) ([]*models.Subtitle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subtitleColumns+` FROM subtitles WHERE task_id = ? ORDER BY format`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list subtitles for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var subs []*models.Subtitle
	for rows.Next() {
		sub, err := scanSubtitle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subtitle row: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *Store) GetSubtitleByTaskAndFormat(ctx context.Context, taskID int64, format models.SubtitleFormat) (*models.Subtitle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subtitleColumns+` FROM subtitles WHERE task_id = ? AND format = ?`, taskID, string(format))
	sub, err := scanSubtitle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subtitle %s for task %d: %w", format, taskID, err)
	}
	return sub, nil
}

func (s *Store) UpdateSubtitleContent(ctx context.Context, id int64, content string) error {
	if content == "" {
		return fmt.Errorf("%w: subtitle content cannot be empty", models.ErrValidation)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE subtitles SET content = ?, updated_at = ? WHERE id = ?`,
		content, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update subtitle %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("subtitle %d rows affected: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSubtitle(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subtitles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subtitle %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("subtitle %d rows affected: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
