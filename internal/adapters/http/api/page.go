package api

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	service "github.com/okian/paperlens/internal/app"
	"github.com/okian/paperlens/internal/domain/render"
	"github.com/okian/paperlens/pkg/logger"
)

// refreshSeconds is how often a loading page reloads itself.
const refreshSeconds = 2

var pageTemplate = template.Must(render.AddTo(template.Must( //nolint:gochecknoglobals // parsed once
	template.New("page.html").
		Funcs(render.Funcs()).
		Funcs(template.FuncMap{"size": sizeLabel}).
		ParseFS(pageFS, "static/page.html"),
)))

// pageData feeds static/page.html.
type pageData struct {
	State          service.State
	View           *render.View
	Notice         string
	MaxUploadBytes int64
	RefreshSeconds int
}

// Failed reports whether the error area is shown.
func (d pageData) Failed() bool { //nolint:gocritic // hugeParam: template receiver
	return d.State.Phase == service.PhaseError && d.State.Message != ""
}

// Idle reports whether the start hint is shown: nothing selected, nothing to report.
func (d pageData) Idle() bool { //nolint:gocritic // hugeParam: template receiver
	return d.State.Phase == service.PhaseIdle && d.State.File == nil && d.Notice == ""
}

// PageHandler serves the viewer page.
type PageHandler struct {
	deps           Dependencies
	maxUploadBytes int64
	logger         logger.Logger
}

// NewPageHandler creates a new page handler.
func NewPageHandler(deps Dependencies, maxUploadBytes int64, l logger.Logger) *PageHandler {
	return &PageHandler{deps: deps, maxUploadBytes: maxUploadBytes, logger: l}
}

// HandlePage handles GET / requests.
func (h *PageHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	st, id := h.deps.State(r.Context(), sessionID(r))
	bindSession(w, r, id)
	h.render(w, r, http.StatusOK, st, "")
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, st service.State, notice string) { //nolint:gocritic // hugeParam: State is a snapshot copy
	const op = "api.page"
	data := pageData{
		State:          st,
		View:           render.Render(st.Report),
		Notice:         notice,
		MaxUploadBytes: h.maxUploadBytes,
		RefreshSeconds: refreshSeconds,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error(r.Context(), "page render failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "render_failed", WrapKind(op, ErrRender, err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func sizeLabel(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
