package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgen/internal/models"
	"subgen/internal/store/sqlite"
)

func newTestSubtitleService(t *testing.T) (*SubtitleService, *sqlite.Store) {
	t.Helper()
	s, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewSubtitleService(s, s), s
}

// completedTask seeds a completed task with one subtitle per format.
func completedTask(t *testing.T, s *sqlite.Store, userID int64) *models.Task {
	t.Helper()
	ctx := context.Background()
	task := &models.Task{UserID: userID, FilePath: "/tmp/talk.mp4", Filename: "talk.mp4", Model: "base"}
	require.NoError(t, s.CreateTask(ctx, task))
	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, models.StatusProcessing))
	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, models.StatusCompleted))
	for _, f := range models.SupportedFormats() {
		require.NoError(t, s.CreateSubtitle(ctx, &models.Subtitle{
			TaskID: task.ID, Format: f, Content: "content-" + string(f),
		}))
	}
	return task
}

func TestExport(t *testing.T) {
	svc, s := newTestSubtitleService(t)
	task := completedTask(t, s, 1)

	result, err := svc.Export(context.Background(), task.ID, 1, models.FormatSRT)
	require.NoError(t, err)
	assert.Equal(t, "talk.srt", result.Filename)
	assert.Equal(t, "content-srt", result.Content)
	assert.Equal(t, "text/srt", result.ContentType)

	result, err = svc.Export(context.Background(), task.ID, 1, models.FormatVTT)
	require.NoError(t, err)
	assert.Equal(t, "text/vtt", result.ContentType)
}

func TestExportNonCompletedTask(t *testing.T) {
	svc, s := newTestSubtitleService(t)
	ctx := context.Background()

	task := &models.Task{UserID: 1, FilePath: "/tmp/talk.mp4", Filename: "talk.mp4"}
	require.NoError(t, s.CreateTask(ctx, task))

	_, err := svc.Export(ctx, task.ID, 1, models.FormatSRT)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestExportOwnership(t *testing.T) {
	svc, s := newTestSubtitleService(t)
	task := completedTask(t, s, 1)

	_, err := svc.Export(context.Background(), task.ID, 2, models.FormatSRT)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetSubtitlesByTaskHidesIncomplete(t *testing.T) {
	svc, s := newTestSubtitleService(t)
	ctx := context.Background()

	task := &models.Task{UserID: 1, FilePath: "/tmp/talk.mp4", Filename: "talk.mp4"}
	require.NoError(t, s.CreateTask(ctx, task))
	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, models.StatusProcessing))
	// Partial artifact written before a failure.
	require.NoError(t, s.CreateSubtitle(ctx, &models.Subtitle{
		TaskID: task.ID, Format: models.FormatSRT, Content: "partial",
	}))

	subs, err := svc.GetSubtitlesByTask(ctx, task.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, subs, "non-completed tasks expose no subtitles")
}

func TestGetSubtitlesByTaskCompleted(t *testing.T) {
	svc, s := newTestSubtitleService(t)
	task := completedTask(t, s, 1)

	subs, err := svc.GetSubtitlesByTask(context.Background(), task.ID, 1)
	require.NoError(t, err)
	assert.Len(t, subs, 3)
}

func TestUpdateContent(t *testing.T) {
	svc, s := newTestSubtitleService(t)
	ctx := context.Background()
	task := completedTask(t, s, 1)

	sub, err := s.GetSubtitleByTaskAndFormat(ctx, task.ID, models.FormatTXT)
	require.NoError(t, err)

	updated, err := svc.UpdateContent(ctx, sub.ID, 1, "edited transcript")
	require.NoError(t, err)
	assert.Equal(t, "edited transcript", updated.Content)

	_, err = svc.UpdateContent(ctx, sub.ID, 1, "")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.UpdateContent(ctx, sub.ID, 2, "someone else's edit")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteSubtitle(t *testing.T) {
	svc, s := newTestSubtitleService(t)
	ctx := context.Background()
	task := completedTask(t, s, 1)

	sub, err := s.GetSubtitleByTaskAndFormat(ctx, task.ID, models.FormatSRT)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteSubtitle(ctx, sub.ID, 2), models.ErrNotFound)
	require.NoError(t, svc.DeleteSubtitle(ctx, sub.ID, 1))

	_, err = svc.GetSubtitle(ctx, sub.ID, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
