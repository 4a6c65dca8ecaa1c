// Package tasks defines the asynq task types and payloads shared between the
// enqueueing side and the worker.
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// TypeGenerateSubtitles is the task type for the full subtitle pipeline
	// (transcode, transcribe, encode, persist) for one task row.
	TypeGenerateSubtitles = "subtitle:generate"
)

// GenerateSubtitlesPayload carries the task row id; everything else is read
// from the store at execution time so the worker never acts on stale data.
type GenerateSubtitlesPayload struct {
	TaskID int64 `json:"task_id"`
}

// NewGenerateSubtitlesTask builds the asynq task for one task row.
func NewGenerateSubtitlesTask(taskID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(GenerateSubtitlesPayload{TaskID: taskID})
	if err != nil {
		return nil, fmt.Errorf("marshal generate payload: %w", err)
	}
	return asynq.NewTask(TypeGenerateSubtitles, payload), nil
}

// TaskID returns the stable asynq task id for a task row, so cancellation can
// address the queued or running message.
func TaskID(taskID int64) string {
	return fmt.Sprintf("subtitle:task:%d", taskID)
}
