// Package dispatch hands tasks to worker capacity in priority order and
// carries cooperative cancellation intent. Two implementations exist: an
// in-process pool (default) and a Redis-backed asynq dispatcher for
// multi-process deployments.
package dispatch

import (
	"context"
	"errors"
)

// ErrUnknownTask reports that a task id is not tracked by the dispatcher —
// it was never enqueued, or it already finished. Callers decide what that
// means; for cancellation it usually means updating the store directly.
var ErrUnknownTask = errors.New("dispatch: unknown task")

// ErrStopped reports a submission against a dispatcher that is shutting down.
var ErrStopped = errors.New("dispatch: dispatcher stopped")

// Runner executes one task. The dispatcher guarantees Run is invoked at most
// once per submitted task id; Abort is invoked instead when the task is
// canceled before it ever starts.
type Runner interface {
	Run(ctx context.Context, taskID int64)
	Abort(taskID int64)
}

// Dispatcher accepts (task id, priority) pairs and eventually hands each to
// exactly one Runner invocation. Among queued tasks, dispatch order is by
// descending priority, then submission order. Priority governs queue order
// only; running tasks are never preempted.
type Dispatcher interface {
	// Submit enqueues without blocking. Failure is recoverable: the task row
	// stays pending and may be resubmitted.
	Submit(taskID int64, priority int) error
	// RequestCancel records intent to cancel. Queued tasks are withdrawn and
	// aborted; running tasks observe the cancellation at their next
	// checkpoint. Returns ErrUnknownTask when the id is not tracked.
	RequestCancel(taskID int64) error
	Stop()
}
