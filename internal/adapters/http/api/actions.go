package api

import (
	"errors"
	"net/http"

	service "github.com/okian/paperlens/internal/app"
	"github.com/okian/paperlens/internal/domain/document"
	"github.com/okian/paperlens/pkg/logger"
)

// FileField is the multipart field POST /file reads the upload from.
const FileField = "file"

// multipartOverhead is allowed on top of the upload limit for boundaries
// and part headers.
const multipartOverhead = 64 << 10

// ActionsHandler handles the upload controller routes.
type ActionsHandler struct {
	deps           Dependencies
	page           *PageHandler
	maxUploadBytes int64
	logger         logger.Logger
}

// NewActionsHandler creates a new actions handler. Browser requests that
// fail are answered by re-rendering page with a notice.
func NewActionsHandler(deps Dependencies, page *PageHandler, maxUploadBytes int64, l logger.Logger) *ActionsHandler {
	return &ActionsHandler{deps: deps, page: page, maxUploadBytes: maxUploadBytes, logger: l}
}

// HandleState handles GET /state requests.
func (h *ActionsHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	st, id := h.deps.State(r.Context(), sessionID(r))
	bindSession(w, r, id)
	writeJSON(w, http.StatusOK, newStateResponse(st))
}

// HandleSelectFile handles POST /file requests carrying a multipart upload.
func (h *ActionsHandler) HandleSelectFile(w http.ResponseWriter, r *http.Request) {
	const op = "api.select_file"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	ctx := r.Context()
	_, id := h.deps.State(ctx, sessionID(r))
	bindSession(w, r, id)

	doc, err := h.readUpload(w, r)
	if err != nil {
		status, code := http.StatusBadRequest, "bad_request"
		kind := ErrBadRequest
		if errors.Is(err, document.ErrTooLarge) {
			status, code, kind = http.StatusRequestEntityTooLarge, "too_large", ErrTooLarge
		}
		h.logger.Debug(ctx, "upload rejected", logger.String("session", id), logger.Error(err))
		h.fail(w, r, id, status, code, WrapKind(op, kind, err), uploadNotice(err))
		return
	}

	st := h.deps.SelectFile(ctx, id, doc)
	h.done(w, r, st)
}

func (h *ActionsHandler) readUpload(w http.ResponseWriter, r *http.Request) (document.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	f, hdr, err := r.FormFile(FileField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return document.File{}, document.ErrTooLarge
		}
		return document.File{}, err
	}
	defer func() { _ = f.Close() }()
	return document.Read(hdr.Filename, f, h.maxUploadBytes)
}

// HandleAnalyze handles POST /analyze requests. Requests made without a
// selected file or while one is outstanding leave the session untouched.
func (h *ActionsHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze"
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	ctx := r.Context()
	_, id := h.deps.State(ctx, sessionID(r))
	bindSession(w, r, id)

	st, err := h.deps.Submit(ctx, id)
	if err != nil {
		if !wantsJSON(r) {
			// The page already shows why the action is unavailable.
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		code := "no_file"
		if errors.Is(err, service.ErrInFlight) {
			code = "in_flight"
		}
		writeError(w, http.StatusConflict, code, WrapKind(op, ErrConflict, err))
		return
	}
	h.done(w, r, st)
}

// HandleCancel handles POST /cancel requests.
func (h *ActionsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	_, id := h.deps.State(r.Context(), sessionID(r))
	bindSession(w, r, id)
	h.done(w, r, h.deps.Cancel(r.Context(), id))
}

// HandleReset handles POST /reset requests.
func (h *ActionsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	_, id := h.deps.State(r.Context(), sessionID(r))
	bindSession(w, r, id)
	h.done(w, r, h.deps.Reset(r.Context(), id))
}

func (h *ActionsHandler) done(w http.ResponseWriter, r *http.Request, st service.State) { //nolint:gocritic // hugeParam: State is a snapshot copy
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, newStateResponse(st))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *ActionsHandler) fail(w http.ResponseWriter, r *http.Request, id string, status int, code string, err error, notice string) {
	if wantsJSON(r) {
		writeError(w, status, code, err)
		return
	}
	st, _ := h.deps.State(r.Context(), id)
	h.page.render(w, r, status, st, notice)
}

func uploadNotice(err error) string {
	switch {
	case errors.Is(err, document.ErrTooLarge):
		return "The selected file is too large."
	case errors.Is(err, document.ErrEmpty):
		return "The selected file is empty."
	default:
		return "Choose a PDF file to upload."
	}
}
