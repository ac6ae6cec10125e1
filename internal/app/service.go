// Package service wires the upload controllers to the job queue, the worker
// pool and the analysis client, and implements the dependencies required by
// the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/okian/paperlens/internal/adapters/analysis"
	"github.com/okian/paperlens/internal/adapters/mq/queue"
	"github.com/okian/paperlens/internal/adapters/mq/worker"
	"github.com/okian/paperlens/internal/domain/document"
	"github.com/okian/paperlens/internal/domain/model"
	"github.com/okian/paperlens/internal/domain/session"
	"github.com/okian/paperlens/pkg/logger"
	"github.com/okian/paperlens/pkg/metrics"
)

// DefaultSessionBytes bounds retained documents when WithSessionBytes is not given.
const DefaultSessionBytes int64 = 512 << 20

// HealthChecker is implemented by analyzers that can probe the remote service.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Service keeps one controller per session and runs their analyses on a
// bounded worker pool.
type Service struct {
	mu sync.RWMutex

	// Core components
	analyzer Analyzer
	sessions *session.Registry[*Controller]
	jobs     *queue.InMemoryQueue
	pool     *worker.Pool

	// Configuration
	workerCount  int
	queueSize    int
	sessionLimit int
	sessionBytes int64

	// State
	started   bool
	runCancel context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of concurrent analyses.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many begun analyses may wait for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSessionLimit bounds the number of live sessions.
func WithSessionLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.sessionLimit = limit
		}
	}
}

// WithSessionBytes bounds the document bytes held across all sessions.
// The least recently used sessions are evicted to stay under it.
func WithSessionBytes(limit int64) Option {
	return func(s *Service) {
		if limit > 0 {
			s.sessionBytes = limit
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service around analyzer.
func New(analyzer Analyzer, opts ...Option) *Service {
	s := &Service{
		analyzer:     analyzer,
		workerCount:  runtime.NumCPU(),
		queueSize:    64,
		sessionLimit: session.DefaultMaxSize,
		sessionBytes: DefaultSessionBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.sessions = session.New(
		session.WithMaxSize[*Controller](s.sessionLimit),
		session.WithMaxBytes(s.sessionBytes, (*Controller).RetainedBytes),
		session.WithOnEvict(func(id string, c *Controller) {
			c.Reset(context.Background())
			metrics.RecordSessionEvicted()
			s.logger.Debug(context.Background(), "session evicted", logger.String("session", id))
		}),
	)
	return s
}

// Start creates the queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting analysis service...")

	// Workers outlive the request that started the service; Stop cancels them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.runCancel = cancel

	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.jobs, s)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "analysis service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("sessionLimit", s.sessionLimit),
		logger.Int64("sessionBytes", s.sessionBytes),
	)
	return nil
}

// Stop cancels outstanding analyses and waits for the workers to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping analysis service...")

	// Cancel first so workers blocked on the remote service return promptly.
	s.runCancel()
	if err := s.pool.Shutdown(context.Background()); err != nil {
		s.logger.Warn(context.Background(), "worker pool shutdown incomplete", logger.Error(err))
	}

	// Jobs still waiting would leave their controllers loading forever.
	for job := range s.jobs.Dequeue(context.Background()) {
		if c, ok := s.Lookup(context.Background(), job.SessionID); ok {
			c.Fail(context.Background(), job, ErrNotStarted)
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "analysis service stopped")
}

// Session returns the controller for id, creating a session when id is
// unknown or malformed. The returned id is the one to hand back to the client.
func (s *Service) Session(ctx context.Context, id string) (*Controller, string) {
	if session.ValidID(id) {
		if c, ok := s.sessions.Get(ctx, id); ok {
			return c, id
		}
	} else {
		id = session.NewID()
	}

	c, created := s.sessions.GetOrCreate(ctx, id, func() *Controller {
		return NewController(s.analyzer, WithControllerID(id), WithControllerLogger(s.logger.Named("controller")))
	})
	if created {
		metrics.RecordSessionCreated()
		metrics.UpdateSessionsActive(int(s.sessions.Size()))
	}
	return c, id
}

// State returns the snapshot of the session's controller and its id.
func (s *Service) State(ctx context.Context, id string) (State, string) {
	c, id := s.Session(ctx, id)
	return c.Snapshot(), id
}

// Lookup returns the controller for an existing session.
func (s *Service) Lookup(ctx context.Context, id string) (*Controller, bool) {
	return s.sessions.Get(ctx, id)
}

// SelectFile selects f on the session's controller.
func (s *Service) SelectFile(ctx context.Context, id string, f document.File) State { //nolint:gocritic // hugeParam: File is copied into the controller
	c, id := s.Session(ctx, id)
	c.SelectFile(ctx, f)
	s.sessions.Reweigh(ctx, id)
	return c.Snapshot()
}

// Submit begins an analysis and hands it to the worker pool. Precondition
// failures (ErrNoFile, ErrInFlight) are returned with the unchanged state.
// A job the pool cannot take resolves the controller to an error.
func (s *Service) Submit(ctx context.Context, id string) (State, error) {
	c, _ := s.Session(ctx, id)

	job, err := c.Begin(ctx)
	if err != nil {
		return c.Snapshot(), err
	}

	if err := s.enqueue(ctx, job); err != nil {
		s.logger.Warn(ctx, "analysis job rejected",
			logger.String("session", id),
			logger.String("job", job.ID),
			logger.Error(err),
		)
		c.Fail(ctx, job, err)
		return c.Snapshot(), nil
	}
	return c.Snapshot(), nil
}

func (s *Service) enqueue(ctx context.Context, job model.AnalysisJob) error { //nolint:gocritic // hugeParam: job is passed by value to the queue
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}
	// The request context ends with the HTTP response; the job must not.
	switch err := s.jobs.Enqueue(context.WithoutCancel(ctx), job); {
	case err == nil:
		return nil
	case errors.Is(err, queue.ErrFull):
		return ErrQueueFull
	case errors.Is(err, queue.ErrClosed):
		return ErrNotStarted
	default:
		return fmt.Errorf("enqueue analysis: %w", err)
	}
}

// Cancel abandons the session's outstanding analysis.
func (s *Service) Cancel(ctx context.Context, id string) State {
	c, _ := s.Session(ctx, id)
	c.Cancel(ctx)
	return c.Snapshot()
}

// Reset returns the session's controller to idle.
func (s *Service) Reset(ctx context.Context, id string) State {
	c, id := s.Session(ctx, id)
	c.Reset(ctx)
	s.sessions.Reweigh(ctx, id)
	return c.Snapshot()
}

// Execute runs one job for the worker pool. Analysis failures are already
// reflected in the controller and are not returned.
func (s *Service) Execute(ctx context.Context, job model.AnalysisJob) error { //nolint:gocritic // hugeParam: job is passed by value from the queue
	c, ok := s.Lookup(ctx, job.SessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, job.SessionID)
	}

	err := c.Run(ctx, job)
	switch {
	case err == nil, errors.Is(err, ErrStale), analysis.KindOf(err) != "":
		return nil
	default:
		return err
	}
}

// Ready probes the analysis service when the analyzer supports it.
func (s *Service) Ready(ctx context.Context) error {
	if !s.isStarted() {
		return ErrNotStarted
	}
	if hc, ok := s.analyzer.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"sessionLimit": s.sessionLimit,
		"sessionBytes": s.sessionBytes,
		"sessions":     s.sessions.Size(),
		"heldBytes":    s.sessions.Bytes(),
	}

	phases := map[Phase]int{}
	s.sessions.Range(func(_ string, c *Controller) bool {
		phases[c.Snapshot().Phase]++
		return true
	})
	stats["phases"] = phases

	if s.started {
		queueLen := s.jobs.Len(ctx)
		stats["queueLength"] = queueLen

		metrics.UpdateWorkerCount(s.pool.Size())
		metrics.UpdateSessionsActive(int(s.sessions.Size()))
	}

	return stats
}
