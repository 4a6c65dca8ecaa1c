package dispatch

import (
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"subgen/internal/tasks"
)

// Asynq queue names, highest priority first. The server must run with
// StrictPriority so the critical queue fully drains before lower tiers.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues returns the asynq server queue weights.
func Queues() map[string]int {
	return map[string]int{QueueCritical: 6, QueueDefault: 3, QueueLow: 1}
}

// QueueForPriority maps an integer task priority onto a queue tier. Ordering
// across tiers is strict; within a tier asynq preserves enqueue order, so the
// coarse mapping keeps the priority-then-FIFO shape at tier granularity.
func QueueForPriority(priority int) string {
	switch {
	case priority >= 7:
		return QueueCritical
	case priority >= 3:
		return QueueDefault
	default:
		return QueueLow
	}
}

// AsynqDispatcher hands tasks to a separate worker process through Redis.
// It is selected with dispatcher.mode=asynq; the default single-process
// deployment uses Pool instead.
type AsynqDispatcher struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	runner    Runner
}

var _ Dispatcher = (*AsynqDispatcher)(nil)

func NewAsynqDispatcher(redisOpt asynq.RedisClientOpt, runner Runner) *AsynqDispatcher {
	return &AsynqDispatcher{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		runner:    runner,
	}
}

func (d *AsynqDispatcher) Submit(taskID int64, priority int) error {
	task, err := tasks.NewGenerateSubtitlesTask(taskID)
	if err != nil {
		return err
	}
	info, err := d.client.Enqueue(task,
		asynq.Queue(QueueForPriority(priority)),
		asynq.TaskID(tasks.TaskID(taskID)),
		asynq.MaxRetry(0), // failure is terminal; retry is an explicit resubmission
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil // already queued, submission is idempotent
		}
		return fmt.Errorf("enqueue task %d: %w", taskID, err)
	}
	log.WithFields(log.Fields{"task_id": taskID, "queue": info.Queue}).
		Debug("Enqueued subtitle generation task")
	return nil
}

func (d *AsynqDispatcher) RequestCancel(taskID int64) error {
	id := tasks.TaskID(taskID)

	// Withdraw the message if it has not started; the runner then owns the
	// canceled transition, same as the in-process pool.
	for queue := range Queues() {
		if err := d.inspector.DeleteTask(queue, id); err == nil {
			d.runner.Abort(taskID)
			return nil
		}
	}

	// Already running (or already gone): broadcast cancellation so the
	// worker's handler context is canceled at its next checkpoint.
	if err := d.inspector.CancelProcessing(id); err != nil {
		return fmt.Errorf("cancel task %d: %w", taskID, err)
	}
	return nil
}

func (d *AsynqDispatcher) Stop() {
	if err := d.client.Close(); err != nil {
		log.WithError(err).Warn("Closing asynq client")
	}
	if err := d.inspector.Close(); err != nil {
		log.WithError(err).Warn("Closing asynq inspector")
	}
}
