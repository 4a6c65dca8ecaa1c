package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"subgen/internal/dispatch"
	"subgen/internal/media"
	"subgen/internal/models"
	"subgen/internal/store"
)

// TaskServiceDeps bundles the collaborators for TaskService.
type TaskServiceDeps struct {
	Tasks       store.TaskStore
	Subtitles   store.SubtitleStore
	Dispatcher  dispatch.Dispatcher
	MaxFileSize int64
	// DefaultModel fills the model field when a submission leaves it empty.
	DefaultModel string
}

// TaskService owns the request-time side of the task lifecycle: submission,
// queries, priority changes, cancellation, deletion. Everything after
// submission belongs to the executor.
type TaskService struct {
	deps TaskServiceDeps
}

func NewTaskService(deps TaskServiceDeps) *TaskService {
	if deps.DefaultModel == "" {
		deps.DefaultModel = "base"
	}
	return &TaskService{deps: deps}
}

// SubmitTaskParams describes one submission.
type SubmitTaskParams struct {
	UserID   int64
	FilePath string
	Filename string
	Language string
	Model    string
	Priority int
}

// SubmitTask validates the source file, creates the pending task row and
// hands it to the dispatcher. When the dispatcher is unavailable the task is
// still returned alongside ErrDispatchUnavailable: it stays pending and can
// be resubmitted.
func (s *TaskService) SubmitTask(ctx context.Context, params SubmitTaskParams) (*models.Task, error) {
	info, err := os.Stat(params.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: file not found: %s", models.ErrValidation, params.FilePath)
	}
	if info.Size() > s.deps.MaxFileSize {
		return nil, fmt.Errorf("%w: file too large (%d bytes, maximum %d)",
			models.ErrValidation, info.Size(), s.deps.MaxFileSize)
	}
	if !media.IsSupported(params.FilePath) {
		return nil, fmt.Errorf("%w: unsupported file type: %s", models.ErrValidation, params.Filename)
	}

	task := &models.Task{
		UserID:   params.UserID,
		FilePath: params.FilePath,
		Filename: params.Filename,
		Language: params.Language,
		Model:    params.Model,
		Status:   models.StatusPending,
		Priority: params.Priority,
	}
	if task.Model == "" {
		task.Model = s.deps.DefaultModel
	}
	if err := s.deps.Tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if err := s.deps.Dispatcher.Submit(task.ID, task.Priority); err != nil {
		log.WithError(err).WithField("task_id", task.ID).
			Warn("Task created but dispatch failed; task stays pending")
		return task, fmt.Errorf("%w: %w", models.ErrDispatchUnavailable, err)
	}

	log.WithFields(log.Fields{"task_id": task.ID, "user_id": task.UserID, "priority": task.Priority}).
		Info("Task submitted")
	return task, nil
}

// ResubmitTask re-enqueues a pending task, the recovery path after a failed
// dispatch.
func (s *TaskService) ResubmitTask(ctx context.Context, taskID, userID int64) (*models.Task, error) {
	task, err := s.GetTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: cannot resubmit %s task %d", models.ErrConflict, task.Status, taskID)
	}
	if err := s.deps.Dispatcher.Submit(task.ID, task.Priority); err != nil {
		return task, fmt.Errorf("%w: %w", models.ErrDispatchUnavailable, err)
	}
	return task, nil
}

// GetTask returns the task only when it belongs to userID; a foreign task is
// indistinguishable from a missing one.
func (s *TaskService) GetTask(ctx context.Context, taskID, userID int64) (*models.Task, error) {
	task, err := s.deps.Tasks.GetTask(ctx, taskID)
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

// ListTasks returns the user's tasks, optionally filtered by status.
func (s *TaskService) ListTasks(ctx context.Context, userID int64, status *models.TaskStatus, limit, offset int) ([]*models.Task, error) {
	return s.deps.Tasks.ListTasksByUser(ctx, userID, store.ListTasksParams{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
}

// TaskStatusInfo is the status-query projection of a task.
type TaskStatusInfo struct {
	TaskID        int64             `json:"task_id"`
	Status        models.TaskStatus `json:"status"`
	Progress      int               `json:"progress"`
	FailureReason *string           `json:"failure_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

func (s *TaskService) GetTaskStatus(ctx context.Context, taskID, userID int64) (*TaskStatusInfo, error) {
	task, err := s.GetTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	return &TaskStatusInfo{
		TaskID:        task.ID,
		Status:        task.Status,
		Progress:      task.Progress,
		FailureReason: task.FailureReason,
		CreatedAt:     task.CreatedAt,
		UpdatedAt:     task.UpdatedAt,
		CompletedAt:   task.CompletedAt,
	}, nil
}

// UpdatePriority changes the priority of a pending or processing task.
func (s *TaskService) UpdatePriority(ctx context.Context, taskID, userID int64, priority int) (*models.Task, error) {
	task, err := s.GetTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if task.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot update priority of %s task %d", models.ErrConflict, task.Status, taskID)
	}
	if err := s.deps.Tasks.UpdateTaskPriority(ctx, taskID, priority); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: %w", models.ErrConflict, err)
		}
		return nil, err
	}
	return s.GetTask(ctx, taskID, userID)
}

// Cancel requests cooperative cancellation of a pending or processing task.
// The terminal transition is made by whoever owns the task at that moment:
// the dispatcher's abort path for queued tasks, the executor's next
// checkpoint for running ones, or this method when the dispatcher no longer
// tracks the id (a pending task whose dispatch failed).
func (s *TaskService) Cancel(ctx context.Context, taskID, userID int64) (*models.Task, error) {
	task, err := s.GetTask(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	if task.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot cancel %s task %d", models.ErrConflict, task.Status, taskID)
	}

	err = s.deps.Dispatcher.RequestCancel(taskID)
	if errors.Is(err, dispatch.ErrUnknownTask) {
		if uerr := s.deps.Tasks.UpdateTaskStatus(ctx, taskID, models.StatusCanceled); uerr != nil && !errors.Is(uerr, store.ErrConflict) {
			return nil, uerr
		}
	} else if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"task_id": taskID, "user_id": userID}).Info("Cancellation requested")
	return s.GetTask(ctx, taskID, userID)
}

// DeleteTask removes the task, its subtitles (cascaded) and the uploaded
// source file.
func (s *TaskService) DeleteTask(ctx context.Context, taskID, userID int64) error {
	task, err := s.GetTask(ctx, taskID, userID)
	if err != nil {
		return err
	}
	if err := os.Remove(task.FilePath); err != nil && !os.IsNotExist(err) {
		log.WithError(err).WithField("path", task.FilePath).Warn("Removing source file")
	}
	if err := s.deps.Tasks.DeleteTask(ctx, taskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.ErrNotFound
		}
		return err
	}
	return nil
}
