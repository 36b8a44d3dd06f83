package taskgraph

import "errors"

var (
	// ErrNotFound is returned when a task id does not exist.
	ErrNotFound = errors.New("task not found")
	// ErrValidation is returned when input fails validation.
	ErrValidation = errors.New("validation failed")
)
