package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/paperlens/internal/adapters/http/api"
	service "github.com/okian/paperlens/internal/app"
	"github.com/okian/paperlens/internal/domain/document"
	"github.com/okian/paperlens/internal/domain/report"
	"github.com/okian/paperlens/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() { //nolint:gochecknoinits // handlers log through the global logger
	_ = logger.Init(logger.WithWriter(io.Discard))
}

const testSession = "6f1c2f0e-7d3b-4f3a-9a55-0b5f4c1e2a10"

// Mock implementations for testing
type mockDependencies struct {
	mu        sync.Mutex
	state     service.State
	selected  []document.File
	submitErr error
	readyErr  error
	cancelled int
	reset     int
}

func (m *mockDependencies) State(_ context.Context, id string) (service.State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		id = testSession
	}
	return m.state, id
}

func (m *mockDependencies) SelectFile(_ context.Context, _ string, f document.File) service.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = append(m.selected, f)
	m.state = service.State{Phase: service.PhaseIdle, File: &service.FileInfo{Name: f.Name, Size: f.Size(), Pages: f.Pages, PDF: f.PDF}}
	return m.state
}

func (m *mockDependencies) Submit(_ context.Context, _ string) (service.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return m.state, m.submitErr
	}
	m.state.Phase = service.PhaseLoading
	return m.state, nil
}

func (m *mockDependencies) Cancel(_ context.Context, _ string) service.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled++
	m.state.Phase = service.PhaseError
	m.state.Message = "analysis cancelled"
	return m.state
}

func (m *mockDependencies) Reset(_ context.Context, _ string) service.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset++
	m.state = service.State{Phase: service.PhaseIdle}
	return m.state
}

func (m *mockDependencies) Ready(_ context.Context) error { return m.readyErr }

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps api.Dependencies, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, opts...).
		Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func uploadRequest(field, name string, data []byte) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile(field, name)
	_, _ = part.Write(data)
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/file", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeReport(s string) *report.Report {
	r, err := report.Decode([]byte(s))
	if err != nil {
		panic(err)
	}
	return r
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockDependencies{state: service.State{Phase: service.PhaseIdle}}
		mux := newMux(deps)

		Convey("Then health endpoint should serve metrics", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And stats endpoint should answer JSON", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet, "/stats", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("And readiness should follow the dependencies", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			So(w.Code, ShouldEqual, http.StatusOK)

			deps.readyErr = errors.New("could not reach the analysis service")
			w = do(mux, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, "not_ready")
		})

		Convey("And unknown paths should not be found", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet, "/unknown", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And actions should reject the wrong method", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet, "/analyze", nil))
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, http.MethodPost)
		})
	})
}

func TestPage(t *testing.T) {
	Convey("Given the viewer page", t, func() {
		deps := &mockDependencies{state: service.State{Phase: service.PhaseIdle}}
		mux := newMux(deps)

		Convey("When nothing is selected", func() {
			w := do(mux, httptest.NewRequest(http.MethodGet, "/", nil))
			body := w.Body.String()

			Convey("Then the analyze button should be disabled", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body, ShouldContainSubstring, `class="primary" disabled>Analyze<`)
				So(body, ShouldNotContainSubstring, `role="alert"`)
				So(body, ShouldNotContainSubstring, "Overall Similarity")
			})

			Convey("Then the start hint and the disclaimer should be shown", func() {
				So(body, ShouldContainSubstring, "Upload a PDF file to begin analysis.")
				So(body, ShouldContainSubstring, "not a legal plagiarism determination")
			})

			Convey("And a session cookie should be issued", func() {
				cookies := w.Result().Cookies()
				So(len(cookies), ShouldEqual, 1)
				So(cookies[0].Name, ShouldEqual, api.SessionCookie)
				So(cookies[0].Value, ShouldEqual, testSession)
				So(cookies[0].HttpOnly, ShouldBeTrue)
			})
		})

		Convey("When the client already holds the session", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: api.SessionCookie, Value: testSession})
			w := do(mux, req)

			Convey("Then no cookie should be set again", func() {
				So(w.Result().Cookies(), ShouldBeEmpty)
			})
		})

		Convey("When a file is selected", func() {
			deps.state = service.State{Phase: service.PhaseIdle, File: &service.FileInfo{Name: "paper.pdf", Size: 2048, Pages: 3, PDF: true}}
			body := do(mux, httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()

			Convey("Then the button should be enabled and the file described", func() {
				So(body, ShouldContainSubstring, `class="primary">Analyze<`)
				So(body, ShouldContainSubstring, "paper.pdf")
				So(body, ShouldContainSubstring, "2.0 KiB")
				So(body, ShouldContainSubstring, "3 pages")
				So(body, ShouldContainSubstring, `action="/reset"`)
				So(body, ShouldNotContainSubstring, "Upload a PDF file to begin analysis.")
			})
		})

		Convey("When an analysis is loading", func() {
			deps.state = service.State{Phase: service.PhaseLoading, File: &service.FileInfo{Name: "paper.pdf", Size: 10}}
			body := do(mux, httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()

			Convey("Then the button should read Analyzing and the page refresh", func() {
				So(body, ShouldContainSubstring, `class="primary" disabled>Analyzing…<`)
				So(body, ShouldContainSubstring, `http-equiv="refresh"`)
				So(body, ShouldContainSubstring, `action="/cancel"`)
			})
		})

		Convey("When the analysis failed", func() {
			deps.state = service.State{Phase: service.PhaseError, File: &service.FileInfo{Name: "paper.pdf", Size: 10}, Message: "PDF text extraction failed"}
			body := do(mux, httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()

			Convey("Then the message should be shown and no report", func() {
				So(body, ShouldContainSubstring, `role="alert">PDF text extraction failed<`)
				So(body, ShouldNotContainSubstring, "Overall Similarity")
				So(body, ShouldContainSubstring, `class="primary">Analyze<`)
			})
		})

		Convey("When the analysis succeeded", func() {
			deps.state = service.State{
				Phase: service.PhaseSuccess,
				File:  &service.FileInfo{Name: "paper.pdf", Size: 10},
				Report: decodeReport(`{"overall_percent": 12.5, "overall_category": "Low",
					"sections": {"Title": {"best_similarity_percent": 5, "category": "Low", "matches": []}}}`),
			}
			body := do(mux, httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()

			Convey("Then the report area should be rendered", func() {
				So(body, ShouldContainSubstring, "Overall Similarity")
				So(body, ShouldContainSubstring, "12.50%")
				So(body, ShouldContainSubstring, `id="section-Title"`)
				So(body, ShouldContainSubstring, "No close matches found.")
				So(body, ShouldNotContainSubstring, `id="section-Abstract"`)
			})
		})
	})
}

func TestActions(t *testing.T) {
	Convey("Given the action routes", t, func() {
		deps := &mockDependencies{state: service.State{Phase: service.PhaseIdle}}
		mux := newMux(deps, api.WithMaxUploadBytes(1024))

		Convey("When a browser uploads a file", func() {
			w := do(mux, uploadRequest(api.FileField, "paper.pdf", []byte("%PDF-1.4 not really")))

			Convey("Then it should be selected and the browser redirected", func() {
				So(w.Code, ShouldEqual, http.StatusSeeOther)
				So(w.Header().Get("Location"), ShouldEqual, "/")
				So(len(deps.selected), ShouldEqual, 1)
				So(deps.selected[0].Name, ShouldEqual, "paper.pdf")
				So(deps.selected[0].PDF, ShouldBeTrue)
			})
		})

		Convey("When a JSON client uploads a file", func() {
			req := uploadRequest(api.FileField, "notes.pdf", []byte("content"))
			req.Header.Set("Accept", "application/json")
			w := do(mux, req)

			Convey("Then the snapshot should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got["phase"], ShouldEqual, "idle")
				So(got["canAnalyze"], ShouldEqual, true)
				So(got["file"].(map[string]any)["name"], ShouldEqual, "notes.pdf")
			})
		})

		Convey("When the upload lacks the file field", func() {
			req := uploadRequest("other", "paper.pdf", []byte("content"))
			w := do(mux, req)

			Convey("Then the page should be shown with a notice", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "Choose a PDF file to upload.")
				So(deps.selected, ShouldBeEmpty)
			})
		})

		Convey("When the upload is empty", func() {
			req := uploadRequest(api.FileField, "paper.pdf", nil)
			req.Header.Set("Accept", "application/json")
			w := do(mux, req)

			Convey("Then it should be rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
			})
		})

		Convey("When the upload exceeds the limit", func() {
			req := uploadRequest(api.FileField, "big.pdf", bytes.Repeat([]byte("x"), 2048))
			req.Header.Set("Accept", "application/json")
			w := do(mux, req)

			Convey("Then it should be rejected as too large", func() {
				So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
				So(w.Body.String(), ShouldContainSubstring, "too_large")
				So(deps.selected, ShouldBeEmpty)
			})
		})

		Convey("When analyze is requested without a file", func() {
			deps.submitErr = service.ErrNoFile

			Convey("Then a browser should be sent back to the page", func() {
				w := do(mux, httptest.NewRequest(http.MethodPost, "/analyze", nil))
				So(w.Code, ShouldEqual, http.StatusSeeOther)
			})

			Convey("Then a JSON client should get a conflict", func() {
				req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
				req.Header.Set("Accept", "application/json")
				w := do(mux, req)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(w.Body.String(), ShouldContainSubstring, `"code":"no_file"`)
			})
		})

		Convey("When analyze is requested while loading", func() {
			deps.submitErr = service.ErrInFlight
			req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
			req.Header.Set("Accept", "application/json")
			w := do(mux, req)

			Convey("Then the conflict should name the in-flight request", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(w.Body.String(), ShouldContainSubstring, `"code":"in_flight"`)
			})
		})

		Convey("When cancel and reset are posted", func() {
			w := do(mux, httptest.NewRequest(http.MethodPost, "/cancel", nil))
			So(w.Code, ShouldEqual, http.StatusSeeOther)
			w = do(mux, httptest.NewRequest(http.MethodPost, "/reset", nil))
			So(w.Code, ShouldEqual, http.StatusSeeOther)

			Convey("Then both should reach the session", func() {
				So(deps.cancelled, ShouldEqual, 1)
				So(deps.reset, ShouldEqual, 1)
			})
		})
	})
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(ctx context.Context, f document.File) (*report.Report, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
	}
	return decodeReport(`{"overall_percent": 30, "overall_category": "Moderate",
		"sections": {"Abstract": {"best_similarity_percent": 30, "category": "Moderate",
			"matches": [{"percent": 30, "title": "A Prior Paper", "url": "https://example.org/p"}]}}}`), nil
}

func TestEndToEnd(t *testing.T) {
	Convey("Given the routes backed by a running service", t, func() {
		ctx := context.Background()
		svc := service.New(stubAnalyzer{}, service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		cookie := &http.Cookie{Name: api.SessionCookie, Value: testSession}

		post := func(req *http.Request) *httptest.ResponseRecorder {
			req.AddCookie(cookie)
			req.Header.Set("Accept", "application/json")
			return do(mux, req)
		}

		Convey("When a file is uploaded and analyzed", func() {
			So(post(uploadRequest(api.FileField, "paper.pdf", []byte("%PDF-1.4"))).Code, ShouldEqual, http.StatusOK)
			So(post(httptest.NewRequest(http.MethodPost, "/analyze", nil)).Code, ShouldEqual, http.StatusOK)

			var got map[string]any
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				req := httptest.NewRequest(http.MethodGet, "/state", nil)
				req.AddCookie(cookie)
				w := do(mux, req)
				got = map[string]any{}
				_ = json.Unmarshal(w.Body.Bytes(), &got)
				if got["phase"] == "success" {
					break
				}
				time.Sleep(5 * time.Millisecond)
			}

			Convey("Then the state should carry the report and its view", func() {
				So(got["phase"], ShouldEqual, "success")
				view := got["view"].(map[string]any)
				So(view["overall"].(map[string]any)["percent"], ShouldEqual, "30.00")
				sections := view["sections"].([]any)
				So(len(sections), ShouldEqual, 1)
				So(sections[0].(map[string]any)["name"], ShouldEqual, "Abstract")
			})

			Convey("And the page should show the match table", func() {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.AddCookie(cookie)
				body := do(mux, req).Body.String()
				So(body, ShouldContainSubstring, "A Prior Paper")
				So(strings.Count(body, `target="_blank"`), ShouldEqual, 1)
			})
		})
	})
}

func TestUploadsWithoutSession(t *testing.T) {
	Convey("Given a service with a small document budget", t, func() {
		const fileSize = 64 << 10
		const budget = 4 * fileSize
		svc := service.New(stubAnalyzer{}, service.WithSessionBytes(budget))

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(context.Background(), mux)

		Convey("When many clients upload without a session cookie", func() {
			data := append([]byte("%PDF-1.4"), bytes.Repeat([]byte{' '}, fileSize-8)...)
			for i := 0; i < 50; i++ {
				req := uploadRequest(api.FileField, "paper.pdf", data)
				req.Header.Set("Accept", "application/json")
				So(do(mux, req).Code, ShouldEqual, http.StatusOK)
			}

			Convey("Then the held documents should stay within the budget", func() {
				stats := svc.GetStats()
				So(stats["heldBytes"], ShouldEqual, int64(budget))
				So(stats["sessions"], ShouldEqual, int64(4))
			})
		})
	})
}
