// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	service "github.com/okian/paperlens/internal/app"
	"github.com/okian/paperlens/internal/domain/document"
	"github.com/okian/paperlens/internal/domain/render"
	"github.com/okian/paperlens/pkg/logger"
)

// DefaultMaxUploadBytes bounds a single upload when no limit is configured.
const DefaultMaxUploadBytes int64 = 32 << 20

// Dependencies required by HTTP handlers. Each call addresses one browser
// session; an unknown or empty id starts a new one and the id actually used
// is returned by State.
type Dependencies interface {
	State(ctx context.Context, id string) (service.State, string)
	SelectFile(ctx context.Context, id string, f document.File) service.State
	Submit(ctx context.Context, id string) (service.State, error)
	Cancel(ctx context.Context, id string) service.State
	Reset(ctx context.Context, id string) service.State
	Ready(ctx context.Context) error
}

// Server wires HTTP routes for the viewer.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	pageHandler    *PageHandler
	actionsHandler *ActionsHandler
}

// Option configures the Server.
type Option func(*options)

type options struct {
	maxUploadBytes int64
	logger         logger.Logger
}

// WithMaxUploadBytes bounds uploads accepted by POST /file.
func WithMaxUploadBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxUploadBytes = n
		}
	}
}

// WithLogger sets the logger used by the handlers.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{maxUploadBytes: DefaultMaxUploadBytes}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("http")
	}

	page := NewPageHandler(deps, o.maxUploadBytes, o.logger)
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(statsProvider),
		pageHandler:    page,
		actionsHandler: NewActionsHandler(deps, page, o.maxUploadBytes, o.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/state", MetricsMiddleware(s.actionsHandler.HandleState, "state"))
	mux.HandleFunc("/file", MetricsMiddleware(s.actionsHandler.HandleSelectFile, "file"))
	mux.HandleFunc("/analyze", MetricsMiddleware(s.actionsHandler.HandleAnalyze, "analyze"))
	mux.HandleFunc("/cancel", MetricsMiddleware(s.actionsHandler.HandleCancel, "cancel"))
	mux.HandleFunc("/reset", MetricsMiddleware(s.actionsHandler.HandleReset, "reset"))
	mux.HandleFunc("/{$}", MetricsMiddleware(s.pageHandler.HandlePage, "page"))
}

// stateResponse is the JSON form of a session snapshot.
type stateResponse struct {
	service.State
	CanAnalyze bool         `json:"canAnalyze"`
	View       *render.View `json:"view,omitempty"`
}

func newStateResponse(st service.State) stateResponse { //nolint:gocritic // hugeParam: State is a snapshot copy
	return stateResponse{
		State:      st,
		CanAnalyze: st.CanAnalyze(),
		View:       render.Render(st.Report),
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// wantsJSON reports whether the client asked for a JSON answer instead of
// a redirect back to the page.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
