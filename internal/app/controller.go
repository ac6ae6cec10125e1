package service

import (
	"context"
	"sync"

	"github.com/okian/paperlens/internal/adapters/analysis"
	"github.com/okian/paperlens/internal/domain/document"
	"github.com/okian/paperlens/internal/domain/model"
	"github.com/okian/paperlens/internal/domain/report"
	"github.com/okian/paperlens/pkg/logger"
	"github.com/okian/paperlens/pkg/metrics"
)

// Phase is the request lifecycle of a controller.
type Phase string

// Phases.
const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseError   Phase = "error"
	PhaseSuccess Phase = "success"
)

// Analyzer turns a document into a report. Failures should be *analysis.Error
// so the controller can show their message.
type Analyzer interface {
	Analyze(ctx context.Context, f document.File) (*report.Report, error)
}

// FileInfo describes the selected file without its content.
type FileInfo struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Pages int    `json:"pages,omitempty"`
	PDF   bool   `json:"pdf"`
}

// State is a point-in-time copy of a controller, safe to render.
type State struct {
	Phase   Phase          `json:"phase"`
	File    *FileInfo      `json:"file,omitempty"`
	Report  *report.Report `json:"report,omitempty"`
	Message string         `json:"message,omitempty"`
}

// CanAnalyze reports whether the analyze action should be enabled.
func (s State) CanAnalyze() bool {
	return s.File != nil && s.Phase != PhaseLoading
}

// Loading reports whether a request is outstanding.
func (s State) Loading() bool { return s.Phase == PhaseLoading }

// ControllerOption applies a configuration option to a Controller.
type ControllerOption func(*Controller)

// WithControllerID sets the id stamped on jobs and logs.
func WithControllerID(id string) ControllerOption {
	return func(c *Controller) {
		c.id = id
	}
}

// WithControllerLogger sets a custom logger for the controller.
func WithControllerLogger(l logger.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller owns the selected file and the lifecycle of its analysis.
// At most one analysis is outstanding at a time.
//
// A result is applied only if its job generation is still current; Cancel,
// Reset and every Begin move the generation on. Selecting a file while
// loading keeps the phase but marks the outstanding result for discard, so
// its arrival returns the controller to idle.
type Controller struct {
	mu       sync.Mutex
	id       string
	analyzer Analyzer
	logger   logger.Logger

	selected   *document.File
	phase      Phase
	report     *report.Report
	message    string
	generation uint64
	discard    bool
	cancel     context.CancelFunc
}

// NewController creates an idle controller.
func NewController(analyzer Analyzer, opts ...ControllerOption) *Controller {
	c := &Controller{analyzer: analyzer, phase: PhaseIdle}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("controller")
	}
	return c
}

// ID returns the controller id.
func (c *Controller) ID() string { return c.id }

// RetainedBytes returns the size of the document the controller holds.
func (c *Controller) RetainedBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return 0
	}
	return c.selected.Size()
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := State{Phase: c.phase, Report: c.report, Message: c.message}
	if c.selected != nil {
		s.File = &FileInfo{
			Name:  c.selected.Name,
			Size:  c.selected.Size(),
			Pages: c.selected.Pages,
			PDF:   c.selected.PDF,
		}
	}
	return s
}

// SelectFile replaces the selected file. A previous error or report is
// cleared. While loading, the outstanding request is cancelled and its
// result will be discarded.
func (c *Controller) SelectFile(ctx context.Context, f document.File) { //nolint:gocritic // hugeParam: File is copied into the controller
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selected = &f
	metrics.RecordUploadBytes(f.Size())
	c.logger.Debug(ctx, "file selected",
		logger.String("session", c.id),
		logger.String("file", f.Name),
		logger.Int64("bytes", f.Size()),
		logger.Int("pages", f.Pages),
	)

	switch c.phase {
	case PhaseLoading:
		c.discard = true
		if c.cancel != nil {
			c.cancel()
		}
	case PhaseError, PhaseSuccess:
		c.report = nil
		c.message = ""
		c.setPhase(PhaseIdle)
	}
}

// Analyze runs one analysis of the selected file on the calling goroutine.
// It returns ErrNoFile or ErrInFlight without side effects when the
// preconditions fail, and otherwise the analysis error, if any, after the
// controller has settled in the error or success phase.
func (c *Controller) Analyze(ctx context.Context) error {
	job, err := c.Begin(ctx)
	if err != nil {
		return err
	}
	return c.Run(ctx, job)
}

// Begin moves to loading and returns the job to run.
func (c *Controller) Begin(ctx context.Context) (model.AnalysisJob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.selected == nil:
		metrics.RecordAnalyzeIgnored("no_file")
		return model.AnalysisJob{}, ErrNoFile
	case c.phase == PhaseLoading:
		metrics.RecordAnalyzeIgnored("in_flight")
		return model.AnalysisJob{}, ErrInFlight
	}

	c.generation++
	c.report = nil
	c.message = ""
	c.discard = false
	c.setPhase(PhaseLoading)
	metrics.IncAnalysesInFlight()

	job := model.NewAnalysisJob(c.id, c.generation, *c.selected)
	c.logger.Info(ctx, "analysis started",
		logger.String("session", c.id),
		logger.String("job", job.ID),
		logger.String("file", job.Document.Name),
	)
	return job, nil
}

// Run issues the request for a begun job and applies its result.
// A job that went stale before it started is not sent.
func (c *Controller) Run(ctx context.Context, job model.AnalysisJob) error { //nolint:gocritic // hugeParam: job is passed by value from the queue
	c.mu.Lock()
	if job.Generation != c.generation || c.phase != PhaseLoading {
		c.mu.Unlock()
		metrics.RecordStaleResultDropped()
		return ErrStale
	}
	if c.discard {
		c.settleDiscardedLocked(ctx)
		c.mu.Unlock()
		return ErrStale
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	rep, err := c.analyzer.Analyze(runCtx, job.Document)
	cancel()

	if !c.resolve(ctx, job, rep, err) {
		return ErrStale
	}
	return err
}

// Fail resolves a begun job without sending it.
func (c *Controller) Fail(ctx context.Context, job model.AnalysisJob, err error) { //nolint:gocritic // hugeParam: job is passed by value from the queue
	c.resolve(ctx, job, nil, err)
}

// Cancel abandons the outstanding analysis. It returns false when there is none.
func (c *Controller) Cancel(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseLoading {
		return false
	}
	c.abandonLocked()
	c.message = analysis.MsgCancelled
	c.setPhase(PhaseError)
	c.logger.Info(ctx, "analysis cancelled", logger.String("session", c.id))
	return true
}

// Reset returns to idle and forgets the file, report and error.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseLoading {
		c.abandonLocked()
	}
	c.selected = nil
	c.report = nil
	c.message = ""
	if c.phase != PhaseIdle {
		c.setPhase(PhaseIdle)
	}
	c.logger.Debug(ctx, "controller reset", logger.String("session", c.id))
}

// resolve applies a result and reports whether it was current.
func (c *Controller) resolve(ctx context.Context, job model.AnalysisJob, rep *report.Report, err error) bool { //nolint:gocritic // hugeParam: job is passed by value from the queue
	c.mu.Lock()
	defer c.mu.Unlock()

	if job.Generation != c.generation || c.phase != PhaseLoading {
		metrics.RecordStaleResultDropped()
		c.logger.Debug(ctx, "stale analysis result dropped",
			logger.String("session", c.id),
			logger.String("job", job.ID),
		)
		return false
	}
	if c.discard {
		c.settleDiscardedLocked(ctx)
		return false
	}

	c.cancel = nil
	metrics.DecAnalysesInFlight()

	if err != nil {
		c.message = analysis.Message(err)
		c.setPhase(PhaseError)
		return true
	}

	if rep == nil {
		rep = &report.Report{}
	}
	c.report = rep
	c.setPhase(PhaseSuccess)

	if v, ok := rep.OverallPercent.Value(); ok {
		metrics.RecordOverallPercent(v)
	}
	for _, issue := range rep.Validate() {
		metrics.RecordReportIssue(issue.Code)
		c.logger.Warn(ctx, "report contract violation",
			logger.String("session", c.id),
			logger.String("code", issue.Code),
			logger.String("field", issue.Field),
		)
	}
	c.logger.Info(ctx, "analysis succeeded",
		logger.String("session", c.id),
		logger.String("job", job.ID),
		logger.String("overall", rep.OverallPercent.Format()),
	)
	return true
}

// settleDiscardedLocked ends a load whose file was replaced.
func (c *Controller) settleDiscardedLocked(ctx context.Context) {
	c.cancel = nil
	c.discard = false
	metrics.DecAnalysesInFlight()
	metrics.RecordStaleResultDropped()
	c.setPhase(PhaseIdle)
	c.logger.Debug(ctx, "result for replaced file discarded", logger.String("session", c.id))
}

// abandonLocked invalidates the outstanding job.
func (c *Controller) abandonLocked() {
	c.generation++
	c.discard = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	metrics.DecAnalysesInFlight()
}

func (c *Controller) setPhase(p Phase) {
	c.phase = p
	metrics.RecordPhaseTransition(string(p))
}
