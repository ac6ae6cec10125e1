package service

import "errors"

var (
	// ErrNoFile is returned by Begin when no file is selected; no request is issued.
	ErrNoFile = errors.New("no file selected")
	// ErrInFlight is returned by Begin while an analysis is outstanding; nothing changes.
	ErrInFlight = errors.New("analysis already in progress")
	// ErrStale is returned by Run for a job whose result would be discarded.
	ErrStale = errors.New("analysis job is stale")
	// ErrQueueFull resolves a begun analysis the worker pool cannot take.
	ErrQueueFull = errors.New("analysis queue is full; try again")
	// ErrNotStarted is returned when jobs are submitted before Start or after Stop.
	ErrNotStarted = errors.New("analysis service is not running")
	// ErrUnknownSession is returned by Execute for a job whose session is gone.
	ErrUnknownSession = errors.New("unknown session")
)
