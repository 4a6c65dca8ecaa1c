package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgen/internal/dispatch"
	"subgen/internal/models"
	"subgen/internal/store/sqlite"
)

// fakeDispatcher records submissions and can be told to fail or to disown
// tasks on cancellation.
type fakeDispatcher struct {
	submitted map[int64]int
	canceled  []int64
	submitErr error
	cancelErr error
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{submitted: make(map[int64]int)}
}

func (d *fakeDispatcher) Submit(taskID int64, priority int) error {
	if d.submitErr != nil {
		return d.submitErr
	}
	d.submitted[taskID] = priority
	return nil
}

func (d *fakeDispatcher) RequestCancel(taskID int64) error {
	if d.cancelErr != nil {
		return d.cancelErr
	}
	d.canceled = append(d.canceled, taskID)
	return nil
}

func (d *fakeDispatcher) Stop() {}

func newTestTaskService(t *testing.T) (*TaskService, *sqlite.Store, *fakeDispatcher) {
	t.Helper()
	s, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	d := newFakeDispatcher()
	svc := NewTaskService(TaskServiceDeps{
		Tasks:       s,
		Subtitles:   s,
		Dispatcher:  d,
		MaxFileSize: 1 << 20,
	})
	return svc, s, d
}

func mediaFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func TestSubmitTask(t *testing.T) {
	svc, _, d := newTestTaskService(t)
	path := mediaFile(t, "clip.mp4", 128)

	task, err := svc.SubmitTask(context.Background(), SubmitTaskParams{
		UserID: 1, FilePath: path, Filename: "clip.mp4", Priority: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.Equal(t, "base", task.Model, "default model fills empty submissions")
	assert.Equal(t, 5, d.submitted[task.ID])
}

func TestSubmitTaskValidation(t *testing.T) {
	svc, _, _ := newTestTaskService(t)
	ctx := context.Background()

	_, err := svc.SubmitTask(ctx, SubmitTaskParams{UserID: 1, FilePath: "/nonexistent/clip.mp4"})
	assert.ErrorIs(t, err, models.ErrValidation)

	doc := mediaFile(t, "notes.pdf", 64)
	_, err = svc.SubmitTask(ctx, SubmitTaskParams{UserID: 1, FilePath: doc, Filename: "notes.pdf"})
	assert.ErrorIs(t, err, models.ErrValidation)

	big := mediaFile(t, "big.mp3", 2<<20)
	_, err = svc.SubmitTask(ctx, SubmitTaskParams{UserID: 1, FilePath: big, Filename: "big.mp3"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSubmitTaskDispatchFailure(t *testing.T) {
	svc, s, d := newTestTaskService(t)
	ctx := context.Background()
	d.submitErr = errors.New("redis down")

	path := mediaFile(t, "clip.mp3", 64)
	task, err := svc.SubmitTask(ctx, SubmitTaskParams{UserID: 1, FilePath: path, Filename: "clip.mp3"})
	require.ErrorIs(t, err, models.ErrDispatchUnavailable)
	require.NotNil(t, task, "the pending row survives the dispatch failure")

	got, gerr := s.GetTask(ctx, task.ID)
	require.NoError(t, gerr)
	assert.Equal(t, models.StatusPending, got.Status)

	// Recovery: resubmit once the dispatcher is healthy again.
	d.submitErr = nil
	resubmitted, err := svc.ResubmitTask(ctx, task.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, task.ID, resubmitted.ID)
	assert.Contains(t, d.submitted, task.ID)
}

func TestResubmitNonPending(t *testing.T) {
	svc, s, _ := newTestTaskService(t)
	ctx := context.Background()

	path := mediaFile(t, "clip.mp3", 64)
	task, err := svc.SubmitTask(ctx, SubmitTaskParams{UserID: 1, FilePath: path, Filename: "clip.mp3"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, models.StatusProcessing))
	_, err = svc.ResubmitTask(ctx, task.ID, 1)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestGetTaskOwnership(t *testing.T) {
	svc, _, _ := newTestTaskService(t)
	ctx := context.Background()

	path := mediaFile(t, "clip.mp3", 64)
	task, err := svc.SubmitTask(ctx, SubmitTaskParams{UserID: 1, FilePath: path, Filename: "clip.mp3"})
	require.NoError(t, err)

	_, err = svc.GetTask(ctx, task.ID, 2)
	assert.ErrorIs(t, err, models.ErrNotFound, "foreign tasks look missing, not forbidden")

	_, err = svc.GetTask(ctx, 999, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUpdatePriorityTerminalConflict(t *testing.T) {
	svc, s, _ := newTestTaskService(t)
	ctx := context.Background()

	path := mediaFile(t, "clip.mp3", 64)
	task, err := svc.SubmitTask(ctx, SubmitTaskParams{UserID: 1, FilePath: path, Filename: "clip.mp3"})
	require.NoError(t, err)

	updated, err := svc.UpdatePriority(ctx, task.ID, 1, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, updated.Priority)

	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, models.StatusCanceled))
	_, err = svc.UpdatePriority(ctx, task.ID, 1, 2)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestCancelDelegatesToDispatcher(t *testing.T) {
	svc, _, d := newTestTaskService(t)
	ctx := context.Background()

	path := mediaFile(t, "clip.mp3", 64)
	task, err := svc.SubmitTask(ctx, SubmitTaskParams{UserID: 1, FilePath: path, Filename: "clip.mp3"})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, task.ID, 1)
	require.NoError(t, err)
	assert.Contains(t, d.canceled, task.ID)
}

func TestCancelUnknownToDispatcher(t *testing.T) {
	svc, s, d := newTestTaskService(t)
	ctx := context.Background()
	d.cancelErr = dispatch.ErrUnknownTask

	path := mediaFile(t, "clip.mp3", 64)
	task, err := svc.SubmitTask(ctx, SubmitTaskParams{UserID: 1, FilePath: path, Filename: "clip.mp3"})
	require.NoError(t, err)

	// The dispatcher lost track of the task (e.g. dispatch had failed), so
	// the service makes the terminal transition itself.
	canceled, err := svc.Cancel(ctx, task.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, canceled.Status)

	got, err := s.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, got.Status)
}

func TestCancelTerminalConflict(t *testing.T) {
	svc, s, _ := newTestTaskService(t)
	ctx := context.Background()

	path := mediaFile(t, "clip.mp3", 64)
	task, err := svc.SubmitTask(ctx, SubmitTaskParams{UserID: 1, FilePath: path, Filename: "clip.mp3"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, models.StatusProcessing))
	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, models.StatusCompleted))

	_, err = svc.Cancel(ctx, task.ID, 1)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestGetTaskStatus(t *testing.T) {
	svc, s, _ := newTestTaskService(t)
	ctx := context.Background()

	path := mediaFile(t, "clip.mp3", 64)
	task, err := svc.SubmitTask(ctx, SubmitTaskParams{UserID: 1, FilePath: path, Filename: "clip.mp3"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateTaskStatus(ctx, task.ID, models.StatusProcessing))
	require.NoError(t, s.UpdateTaskProgress(ctx, task.ID, 55))

	info, err := svc.GetTaskStatus(ctx, task.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, task.ID, info.TaskID)
	assert.Equal(t, models.StatusProcessing, info.Status)
	assert.Equal(t, 55, info.Progress)
	assert.Nil(t, info.CompletedAt)
}

func TestDeleteTaskRemovesFile(t *testing.T) {
	svc, s, _ := newTestTaskService(t)
	ctx := context.Background()

	path := mediaFile(t, "clip.mp3", 64)
	task, err := svc.SubmitTask(ctx, SubmitTaskParams{UserID: 1, FilePath: path, Filename: "clip.mp3"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, task.ID, 1))

	_, err = s.GetTask(ctx, task.ID)
	assert.Error(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
