package models

import (
	"errors"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation error")

	// ErrDispatchUnavailable reports that a task was created but could not be
	// handed to the dispatcher. The task stays pending and may be resubmitted.
	ErrDispatchUnavailable = errors.New("dispatcher unavailable")
)
