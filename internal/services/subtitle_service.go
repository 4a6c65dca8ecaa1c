package services

import (
	"context"
	"errors"
	"fmt"

	"subgen/internal/models"
	"subgen/internal/store"
	"subgen/internal/subtitle"
)

// SubtitleService reads and edits rendered subtitles. Ownership is always
// checked through the owning task; subtitles of another user's task are
// reported as not found.
type SubtitleService struct {
	subtitles store.SubtitleStore
	tasks     store.TaskStore
}

func NewSubtitleService(subtitles store.SubtitleStore, tasks store.TaskStore) *SubtitleService {
	return &SubtitleService{subtitles: subtitles, tasks: tasks}
}

// ownedTask loads a task and verifies ownership.
func (s *SubtitleService) ownedTask(ctx context.Context, taskID, userID int64) (*models.Task, error) {
	task, err := s.tasks.GetTask(ctx, taskID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, models.ErrNotFound
	}
	return task, nil
}

// GetSubtitle returns one subtitle by id after checking the owning task.
func (s *SubtitleService) GetSubtitle(ctx context.Context, subtitleID, userID int64) (*models.Subtitle, error) {
	sub, err := s.subtitles.GetSubtitle(ctx, subtitleID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedTask(ctx, sub.TaskID, userID); err != nil {
		return nil, err
	}
	return sub, nil
}

// GetSubtitlesByTask lists a completed task's subtitles. Non-completed tasks
// have no visible subtitles.
func (s *SubtitleService) GetSubtitlesByTask(ctx context.Context, taskID, userID int64) ([]*models.Subtitle, error) {
	task, err := s.ownedTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.StatusCompleted {
		return []*models.Subtitle{}, nil
	}
	return s.subtitles.GetSubtitlesByTask(ctx, taskID)
}

// GetSubtitleByFormat returns the subtitle of the given format for a
// completed task.
func (s *SubtitleService) GetSubtitleByFormat(ctx context.Context, taskID, userID int64, format models.SubtitleFormat) (*models.Subtitle, error) {
	task, err := s.ownedTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.StatusCompleted {
		return nil, models.ErrNotFound
	}
	sub, err := s.subtitles.GetSubtitleByTaskAndFormat(ctx, taskID, format)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrNotFound
	}
	return sub, err
}

// UpdateContent replaces a subtitle's text, the only mutation allowed after
// rendering.
func (s *SubtitleService) UpdateContent(ctx context.Context, subtitleID, userID int64, content string) (*models.Subtitle, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: subtitle content cannot be empty", models.ErrValidation)
	}
	sub, err := s.GetSubtitle(ctx, subtitleID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.subtitles.UpdateSubtitleContent(ctx, sub.ID, content); err != nil {
		return nil, err
	}
	return s.subtitles.GetSubtitle(ctx, sub.ID)
}

// DeleteSubtitle removes a single rendered format.
func (s *SubtitleService) DeleteSubtitle(ctx context.Context, subtitleID, userID int64) error {
	sub, err := s.GetSubtitle(ctx, subtitleID, userID)
	if err != nil {
		return err
	}
	return s.subtitles.DeleteSubtitle(ctx, sub.ID)
}

// ExportResult is a downloadable subtitle file.
type ExportResult struct {
	Filename    string
	Content     string
	Format      models.SubtitleFormat
	ContentType string
}

// Export packages a completed task's subtitle for download, deriving the
// filename from the original upload.
func (s *SubtitleService) Export(ctx context.Context, taskID, userID int64, format models.SubtitleFormat) (*ExportResult, error) {
	task, err := s.ownedTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: task %d is %s, subtitles are available once completed",
			models.ErrConflict, taskID, task.Status)
	}
	sub, err := s.subtitles.GetSubtitleByTaskAndFormat(ctx, taskID, format)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    subtitle.ExportFilename(task.Filename, format),
		Content:     sub.Content,
		Format:      format,
		ContentType: subtitle.ContentType(format),
	}, nil
}
