package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgen/internal/models"
	"subgen/internal/store/sqlite"
	"subgen/internal/transcribe"
)

type fakeTranscoder struct {
	called bool
	dst    string
	err    error
}

func (f *fakeTranscoder) ExtractAudio(ctx context.Context, inputPath, outputPath string) error {
	f.called = true
	f.dst = outputPath
	if f.err != nil {
		return f.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("pcm"), 0o644)
}

type fakeTranscriber struct {
	segments  []models.Segment
	err       error
	audioPath string
	progress  []float64
	cancelMid context.CancelFunc // when set, cancels ctx mid-transcription
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string, opts transcribe.Options, progress transcribe.ProgressFunc) ([]models.Segment, error) {
	f.audioPath = audioPath
	if progress != nil {
		progress(0.25)
		f.progress = append(f.progress, 0.25)
	}
	if f.cancelMid != nil {
		f.cancelMid()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.segments, nil
}

func testSegments() []models.Segment {
	return []models.Segment{
		{Start: 0, End: time.Second, Text: "Hello."},
		{Start: time.Second, End: 2 * time.Second, Text: "World."},
	}
}

func testEnv(t *testing.T, ext string, tc *fakeTranscoder, tr *fakeTranscriber) (*Executor, *sqlite.Store, *models.Task) {
	t.Helper()
	s, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	source := filepath.Join(t.TempDir(), "media"+ext)
	require.NoError(t, os.WriteFile(source, []byte("data"), 0o644))

	task := &models.Task{UserID: 1, FilePath: source, Filename: "media" + ext, Model: "base"}
	require.NoError(t, s.CreateTask(context.Background(), task))

	exec, err := New(Deps{
		Tasks:       s,
		Subtitles:   s,
		Transcoder:  tc,
		Transcriber: tr,
		TempDir:     t.TempDir(),
	})
	require.NoError(t, err)
	return exec, s, task
}

func TestRunAudioSuccess(t *testing.T) {
	tc := &fakeTranscoder{}
	tr := &fakeTranscriber{segments: testSegments()}
	exec, s, task := testEnv(t, ".mp3", tc, tr)

	exec.Run(context.Background(), task.ID)

	got, err := s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.NotNil(t, got.CompletedAt)

	// Audio input goes straight to the transcriber, no extraction.
	assert.False(t, tc.called)
	assert.Equal(t, task.FilePath, tr.audioPath)

	subs, err := s.GetSubtitlesByTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Len(t, subs, len(models.SupportedFormats()))
}

func TestRunVideoExtractsAudio(t *testing.T) {
	tc := &fakeTranscoder{}
	tr := &fakeTranscriber{segments: testSegments()}
	exec, s, task := testEnv(t, ".mp4", tc, tr)

	exec.Run(context.Background(), task.ID)

	got, err := s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	require.True(t, tc.called)
	assert.Equal(t, tc.dst, tr.audioPath, "transcriber consumes the extracted audio")

	// Temporary audio is removed on the way out.
	_, statErr := os.Stat(tc.dst)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunExtractionFailure(t *testing.T) {
	tc := &fakeTranscoder{err: errors.New("ffmpeg exited 1")}
	tr := &fakeTranscriber{segments: testSegments()}
	exec, s, task := testEnv(t, ".mp4", tc, tr)

	exec.Run(context.Background(), task.ID)

	got, err := s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Contains(t, *got.FailureReason, "audio extraction")
}

func TestRunTranscriptionFailure(t *testing.T) {
	tr := &fakeTranscriber{err: errors.New("model not found")}
	exec, s, task := testEnv(t, ".wav", &fakeTranscoder{}, tr)

	exec.Run(context.Background(), task.ID)

	got, err := s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Contains(t, *got.FailureReason, "transcription")
}

func TestRunEmptyTranscript(t *testing.T) {
	tr := &fakeTranscriber{segments: nil}
	exec, s, task := testEnv(t, ".wav", &fakeTranscoder{}, tr)

	exec.Run(context.Background(), task.ID)

	got, err := s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
}

func TestRunMissingSourceFile(t *testing.T) {
	tr := &fakeTranscriber{segments: testSegments()}
	exec, s, task := testEnv(t, ".wav", &fakeTranscoder{}, tr)
	require.NoError(t, os.Remove(task.FilePath))

	exec.Run(context.Background(), task.ID)

	got, err := s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Contains(t, *got.FailureReason, "source file missing")
}

func TestRunCanceledMidTranscription(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &fakeTranscriber{cancelMid: cancel}
	exec, s, task := testEnv(t, ".wav", &fakeTranscoder{}, tr)

	exec.Run(ctx, task.ID)

	// The cancellation is observed at the checkpoint and persisted despite
	// the dead context.
	got, err := s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, got.Status)
	assert.Nil(t, got.FailureReason)

	subs, err := s.GetSubtitlesByTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Empty(t, subs, "no artifacts for a canceled task")
}

func TestRunSkipsNonPendingTask(t *testing.T) {
	tr := &fakeTranscriber{segments: testSegments()}
	exec, s, task := testEnv(t, ".wav", &fakeTranscoder{}, tr)

	// Cancellation won the race before the worker dequeued the task.
	require.NoError(t, s.UpdateTaskStatus(context.Background(), task.ID, models.StatusCanceled))

	exec.Run(context.Background(), task.ID)

	got, err := s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, got.Status)
	assert.Empty(t, tr.audioPath, "transcriber must not run")
}

func TestRunUnknownTask(t *testing.T) {
	tr := &fakeTranscriber{segments: testSegments()}
	exec, _, _ := testEnv(t, ".wav", &fakeTranscoder{}, tr)

	// Must not panic or create anything.
	exec.Run(context.Background(), 9999)
	assert.Empty(t, tr.audioPath)
}

func TestAbort(t *testing.T) {
	tr := &fakeTranscriber{segments: testSegments()}
	exec, s, task := testEnv(t, ".wav", &fakeTranscoder{}, tr)

	exec.Abort(task.ID)

	got, err := s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, got.Status)

	// Aborting an already-terminal task is a no-op.
	exec.Abort(task.ID)
	got, err = s.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, got.Status)
}
