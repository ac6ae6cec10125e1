package document

import "errors"

var (
	// ErrTooLarge is returned when a file exceeds the configured upload limit.
	ErrTooLarge = errors.New("file too large")
	// ErrEmpty is returned for a zero-length file.
	ErrEmpty = errors.New("file is empty")
	// ErrNoName is returned when a file has no name.
	ErrNoName = errors.New("file has no name")
)
