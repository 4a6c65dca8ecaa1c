package models

import "fmt"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
	StatusCanceled   TaskStatus = "canceled"
)

// validTransitions maps a target status to the set of statuses it may be
// reached from. Terminal statuses never appear as a source.
var validTransitions = map[TaskStatus][]TaskStatus{
	StatusProcessing: {StatusPending},
	StatusCompleted:  {StatusProcessing},
	StatusFailed:     {StatusPending, StatusProcessing},
	StatusCanceled:   {StatusPending, StatusProcessing},
}

// IsTerminal reports whether no further transitions are allowed out of s.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine permits moving from s to
// target.
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	for _, from := range validTransitions[target] {
		if from == s {
			return true
		}
	}
	return false
}

// TransitionSources returns the statuses from which target may be entered.
// Store implementations use this to guard UPDATE statements.
func TransitionSources(target TaskStatus) []TaskStatus {
	return validTransitions[target]
}

// ParseTaskStatus validates a user-supplied status string.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCanceled:
		return TaskStatus(s), nil
	}
	return "", fmt.Errorf("%w: unknown task status %q", ErrValidation, s)
}
