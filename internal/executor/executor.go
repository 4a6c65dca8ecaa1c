// Package executor drives one task through the pipeline: transcode,
// transcribe, encode, persist. It owns every status transition after
// submission and the cooperative cancellation checkpoints.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"subgen/internal/media"
	"subgen/internal/models"
	"subgen/internal/store"
	"subgen/internal/subtitle"
	"subgen/internal/transcribe"
)

// Deps are the collaborators one Executor needs.
type Deps struct {
	Tasks       store.TaskStore
	Subtitles   store.SubtitleStore
	Transcoder  media.Transcoder
	Transcriber transcribe.Transcriber

	// Formats rendered for every task; defaults to the full supported set.
	Formats []models.SubtitleFormat
	// MaxCueChars splits over-long transcriber segments at sentence
	// boundaries; zero disables splitting.
	MaxCueChars int
	// TempDir holds per-invocation extracted audio; defaults to os.TempDir.
	TempDir string
}

type Executor struct {
	deps Deps
}

func New(deps Deps) (*Executor, error) {
	if deps.Tasks == nil || deps.Subtitles == nil {
		return nil, errors.New("executor requires task and subtitle stores")
	}
	if deps.Transcoder == nil || deps.Transcriber == nil {
		return nil, errors.New("executor requires a transcoder and a transcriber")
	}
	if len(deps.Formats) == 0 {
		deps.Formats = models.SupportedFormats()
	}
	if deps.TempDir == "" {
		deps.TempDir = os.TempDir()
	}
	return &Executor{deps: deps}, nil
}

// Run executes the pipeline for one task. It never returns an error and never
// panics out: every failure is converted into a terminal task status so the
// worker stays healthy for subsequent tasks. Cancellation arrives through ctx
// and is honored at checkpoints, not mid-step.
func (e *Executor) Run(ctx context.Context, taskID int64) {
	logger := log.WithField("task_id", taskID)

	// Status and progress writes must survive ctx cancellation: a canceled
	// task still needs its terminal transition persisted.
	persistCtx := context.WithoutCancel(ctx)

	task, err := e.deps.Tasks.GetTask(persistCtx, taskID)
	if errors.Is(err, store.ErrNotFound) {
		logger.Warn("Task vanished before execution, nothing to update")
		return
	}
	if err != nil {
		logger.WithError(err).Error("Loading task")
		return
	}

	if _, err := os.Stat(task.FilePath); err != nil {
		e.fail(persistCtx, logger, taskID, fmt.Errorf("source file missing: %s", task.FilePath))
		return
	}

	// Persist PROCESSING before any work so status queries during a long
	// transcription never observe a stale pending. A conflict here means the
	// task was canceled (or otherwise finished) between dequeue and start.
	if err := e.deps.Tasks.UpdateTaskStatus(persistCtx, taskID, models.StatusProcessing); err != nil {
		if errors.Is(err, store.ErrConflict) {
			logger.Info("Task no longer pending, skipping execution")
			return
		}
		logger.WithError(err).Error("Transitioning task to processing")
		return
	}

	logger.WithFields(log.Fields{"file": task.Filename, "model": task.Model, "language": task.Language}).
		Info("Task processing started")

	audioPath := task.FilePath
	if media.IsVideo(task.FilePath) {
		tempAudio := filepath.Join(e.deps.TempDir, uuid.NewString()+".wav")
		defer removeTemp(logger, tempAudio)

		if err := e.deps.Transcoder.ExtractAudio(ctx, task.FilePath, tempAudio); err != nil {
			if canceled(ctx) {
				e.cancel(persistCtx, logger, taskID)
				return
			}
			e.fail(persistCtx, logger, taskID, fmt.Errorf("audio extraction: %w", err))
			return
		}
		audioPath = tempAudio
	}

	// Checkpoint: after extraction, before the expensive transcription.
	if canceled(ctx) {
		e.cancel(persistCtx, logger, taskID)
		return
	}

	segments, err := e.deps.Transcriber.Transcribe(ctx, audioPath,
		transcribe.Options{Model: task.Model, Language: task.Language},
		e.progressSink(persistCtx, taskID),
	)
	if err != nil {
		if canceled(ctx) {
			e.cancel(persistCtx, logger, taskID)
			return
		}
		e.fail(persistCtx, logger, taskID, fmt.Errorf("transcription: %w", err))
		return
	}
	if len(segments) == 0 {
		e.fail(persistCtx, logger, taskID, errors.New("transcription produced no segments"))
		return
	}

	// Checkpoint: before artifacts are written. Artifacts already persisted
	// by an earlier run are left in place; there is no rollback.
	if canceled(ctx) {
		e.cancel(persistCtx, logger, taskID)
		return
	}

	if e.deps.MaxCueChars > 0 {
		segments = subtitle.SplitLongSegments(segments, e.deps.MaxCueChars)
	}

	for _, format := range e.deps.Formats {
		content, err := subtitle.Encode(segments, format)
		if err != nil {
			e.fail(persistCtx, logger, taskID, err)
			return
		}
		err = e.deps.Subtitles.CreateSubtitle(persistCtx, &models.Subtitle{
			TaskID:  taskID,
			Format:  format,
			Content: content,
		})
		if err != nil {
			// A fault mid-batch leaves partial artifacts and a failed task;
			// resubmission is the owner's recovery path.
			e.fail(persistCtx, logger, taskID, fmt.Errorf("persist %s subtitle: %w", format, err))
			return
		}
	}

	if err := e.deps.Tasks.UpdateTaskProgress(persistCtx, taskID, 100); err != nil {
		logger.WithError(err).Warn("Recording final progress")
	}
	// Completed only after every format is persisted. A conflict means a
	// cancellation won the race at the very end; the artifacts remain.
	if err := e.deps.Tasks.UpdateTaskStatus(persistCtx, taskID, models.StatusCompleted); err != nil {
		if errors.Is(err, store.ErrConflict) {
			logger.Info("Task finished but was already in a terminal state")
			return
		}
		logger.WithError(err).Error("Transitioning task to completed")
		return
	}

	logger.WithField("formats", len(e.deps.Formats)).Info("Task completed")
}

// Abort marks a task that never started as canceled. The dispatcher calls it
// when a queued task is withdrawn before any worker picks it up.
func (e *Executor) Abort(taskID int64) {
	logger := log.WithField("task_id", taskID)
	err := e.deps.Tasks.UpdateTaskStatus(context.Background(), taskID, models.StatusCanceled)
	if err != nil && !errors.Is(err, store.ErrConflict) && !errors.Is(err, store.ErrNotFound) {
		logger.WithError(err).Error("Canceling queued task")
		return
	}
	logger.Info("Canceled before execution")
}

// progressSink converts the transcriber's fractional progress into integer
// percentages and persists them best-effort. Writes are monotonic: a late or
// repeated callback never moves progress backwards.
func (e *Executor) progressSink(persistCtx context.Context, taskID int64) transcribe.ProgressFunc {
	var mu sync.Mutex
	last := -1
	return func(fraction float64) {
		pct := int(fraction * 100)
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		mu.Lock()
		if pct <= last {
			mu.Unlock()
			return
		}
		last = pct
		mu.Unlock()
		if err := e.deps.Tasks.UpdateTaskProgress(persistCtx, taskID, pct); err != nil {
			log.WithError(err).WithField("task_id", taskID).Debug("Dropping progress update")
		}
	}
}

func (e *Executor) fail(ctx context.Context, logger *log.Entry, taskID int64, cause error) {
	logger.WithError(cause).Error("Task failed")
	if err := e.deps.Tasks.MarkTaskFailed(ctx, taskID, cause.Error()); err != nil {
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
			return
		}
		logger.WithError(err).Error("Recording task failure")
	}
}

func (e *Executor) cancel(ctx context.Context, logger *log.Entry, taskID int64) {
	if err := e.deps.Tasks.UpdateTaskStatus(ctx, taskID, models.StatusCanceled); err != nil {
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
			return
		}
		logger.WithError(err).Error("Recording task cancellation")
		return
	}
	logger.Info("Task canceled at checkpoint")
}

func canceled(ctx context.Context) bool {
	return ctx.Err() != nil
}

func removeTemp(logger *log.Entry, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.WithError(err).WithField("path", path).Warn("Removing temporary audio file")
	}
}
