package store

import "errors"

var (
	ErrNotFound  = errors.New("store: resource not found")
	ErrDuplicate = errors.New("store: duplicate resource")
	// ErrConflict reports a rejected state transition, e.g. an update against
	// a task that already reached a terminal status.
	ErrConflict = errors.New("store: conflicting resource state")
)
