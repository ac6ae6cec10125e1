package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind classifies a failed analysis request.
type Kind string

// Error kinds.
const (
	KindTransport Kind = "transport"
	KindTimeout   Kind = "timeout"
	KindService   Kind = "service"
	KindMalformed Kind = "malformed"
	KindCancelled Kind = "cancelled"
)

// User-facing messages.
const (
	MsgTransport = "could not reach the analysis service"
	MsgMalformed = "analysis service returned an unreadable report"
	MsgCancelled = "analysis cancelled"
)

// ErrInvalidBaseURL is returned by New for a base URL that is not absolute http(s).
var ErrInvalidBaseURL = errors.New("invalid analysis service url")

// ErrResponseTooLarge is the cause of a malformed error for a report body
// cut off at the response limit.
var ErrResponseTooLarge = errors.New("analysis response exceeds limit")

// Error is a failed analysis request. Error() returns the message meant for
// the user; the cause is kept for logs.
type Error struct {
	Kind    Kind
	Status  int // HTTP status for KindService, zero otherwise
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Message returns the text to show the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	if errors.Is(err, context.Canceled) {
		return MsgCancelled
	}
	return err.Error()
}

// KindOf returns the kind of err, or "" when it did not come from this package.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: MsgTransport, Err: err}
}

func timeoutError(d time.Duration, err error) *Error {
	msg := "analysis timed out"
	if d > 0 {
		msg = fmt.Sprintf("%s after %s", msg, d)
	}
	return &Error{Kind: KindTimeout, Message: msg, Err: err}
}

func cancelledError(err error) *Error {
	return &Error{Kind: KindCancelled, Message: MsgCancelled, Err: err}
}

func malformedError(err error) *Error {
	return &Error{Kind: KindMalformed, Message: MsgMalformed, Err: err}
}

// serviceError prefers the service's own error text and falls back to the status.
func serviceError(status int, serviceMsg string) *Error {
	msg := strings.TrimSpace(serviceMsg)
	if msg == "" {
		text := http.StatusText(status)
		if text == "" {
			text = "an error"
		}
		msg = fmt.Sprintf("analysis service returned %d %s", status, text)
	}
	return &Error{
		Kind:    KindService,
		Status:  status,
		Message: msg,
		Err:     fmt.Errorf("analysis service status %d", status),
	}
}
