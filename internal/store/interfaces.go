package store

import (
	"context"

	"subgen/internal/models"
)

// --- Task Store ---

// ListTasksParams bundles filtering and pagination for ListTasksByUser.
type ListTasksParams struct {
	Status *models.TaskStatus // nil = all statuses
	Limit  int
	Offset int
}

// TaskStore is the durable record of tasks. All mutations are atomic
// single-row operations; status updates are guarded so a row never leaves the
// state machine (an illegal transition returns ErrConflict, never silently
// succeeds). Progress updates are last-write-wins but monotonic.
type TaskStore interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	// UpdateTaskStatus transitions the task to status. It stamps completed_at
	// when the target is StatusCompleted.
	UpdateTaskStatus(ctx context.Context, id int64, status models.TaskStatus) error
	// MarkTaskFailed transitions to StatusFailed and records the reason for
	// operational diagnosis.
	MarkTaskFailed(ctx context.Context, id int64, reason string) error
	// UpdateTaskProgress writes progress (0-100). Writes that would regress
	// progress or touch a non-processing task are dropped without error.
	UpdateTaskProgress(ctx context.Context, id int64, progress int) error
	// UpdateTaskPriority is allowed only while the task is non-terminal.
	UpdateTaskPriority(ctx context.Context, id int64, priority int) error
	ListTasksByUser(ctx context.Context, userID int64, params ListTasksParams) ([]*models.Task, error)
	// DeleteTask removes the task and cascades to its subtitles.
	DeleteTask(ctx context.Context, id int64) error

	Ping(ctx context.Context) error
}

// --- Subtitle Store ---

type SubtitleStore interface {
	CreateSubtitle(ctx context.Context, sub *models.Subtitle) error
	GetSubtitle(ctx context.Context, id int64) (*models.Subtitle, error)
	GetSubtitlesByTask(ctx context.Context, taskID int64) ([]*models.Subtitle, error)
	GetSubtitleByTaskAndFormat(ctx context.Context, taskID int64, format models.SubtitleFormat) (*models.Subtitle, error)
	UpdateSubtitleContent(ctx context.Context, id int64, content string) error
	DeleteSubtitle(ctx context.Context, id int64) error
}

// Store is the combined persistence surface a backend must provide.
type Store interface {
	TaskStore
	SubtitleStore
	Close() error
}
