package primary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"subgen/internal/models"
	"subgen/internal/store"
)

const subtitleColumns = `id, task_id, format, content, created_at, updated_at`

func scanSubtitle(row pgx.Row) (*models.Subtitle, error) {
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
	err := s.db.QueryRow(ctx, `
		INSERT INTO subtitles (task_id, format, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		sub.TaskID, string(sub.Format), sub.Content, now, now,
	).Scan(&sub.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: subtitle %s for task %d", store.ErrDuplicate, sub.Format, sub.TaskID)
		}
		return fmt.Errorf("insert subtitle: %w", err)
	}
	sub.CreatedAt = now
	sub.UpdatedAt = now
	return nil
}

func (s *Store) GetSubtitle(ctx context.Context, id int64) (*models.Subtitle, error) {
	row := s.db.QueryRow(ctx, `SELECT `+subtitleColumns+` FROM subtitles WHERE id = $1`, id)
	sub, err := scanSubtitle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subtitle %d: %w", id, err)
	}
	return sub, nil
}

func (s *Store) GetSubtitlesByTask(ctx context.Context, taskID int64) ([]*models.Subtitle, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+subtitleColumns+` FROM subtitles WHERE task_id = $1 ORDER BY format`, taskID)
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
	row := s.db.QueryRow(ctx,
		`SELECT `+subtitleColumns+` FROM subtitles WHERE task_id = $1 AND format = $2`, taskID, string(format))
	sub, err := scanSubtitle(row)
	if errors.Is(err, pgx.ErrNoRows) {
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
	cmdTag, err := s.db.Exec(ctx,
		`UPDATE subtitles SET content = $1, updated_at = $2 WHERE id = $3`,
		content, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update subtitle %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSubtitle(ctx context.Context, id int64) error {
	cmdTag, err := s.db.Exec(ctx, `DELETE FROM subtitles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subtitle %d: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
