package queue

import "errors"

// Reasons a job is not accepted.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)
