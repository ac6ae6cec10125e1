// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/okian/paperlens/internal/domain/document"
)

// AnalysisJob is one begun analysis waiting for a worker.
type AnalysisJob struct {
	ID         string        // unique id, used in logs
	SessionID  string        // owner of the controller that began the job
	Generation uint64        // controller generation at Begin; stale jobs are discarded
	Document   document.File // file snapshot taken at Begin
	Enqueued   time.Time     // time the job was begun
}

// NewAnalysisJob stamps a job with a fresh id and the current time.
func NewAnalysisJob(sessionID string, generation uint64, doc document.File) AnalysisJob {
	return AnalysisJob{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Generation: generation,
		Document:   doc,
		Enqueued:   time.Now(),
	}
}

// Wait returns how long the job has been waiting at now.
func (j AnalysisJob) Wait(now time.Time) time.Duration {
	if j.Enqueued.IsZero() || now.Before(j.Enqueued) {
		return 0
	}
	return now.Sub(j.Enqueued)
}
