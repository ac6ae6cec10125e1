package analysis_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	analysis "github.com/okian/paperlens/internal/adapters/analysis"
	document "github.com/okian/paperlens/internal/domain/document"
	report "github.com/okian/paperlens/internal/domain/report"
	"github.com/okian/paperlens/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

var paper = document.File{Name: "paper.pdf", Data: []byte("%PDF-1.4 body")} //nolint:gochecknoglobals // shared fixture

func serve(h http.HandlerFunc) (*httptest.Server, *analysis.Client) {
	srv := httptest.NewServer(h)
	c, err := analysis.New(srv.URL, analysis.WithTimeout(2*time.Second))
	So(err, ShouldBeNil)
	return srv, c
}

func TestNew(t *testing.T) {
	Convey("Given base URLs", t, func() {
		Convey("Then absolute http(s) URLs should be accepted", func() {
			c, err := analysis.New("http://localhost:8000")
			So(err, ShouldBeNil)
			So(c.BaseURL(), ShouldEqual, "http://localhost:8000")
			So(c.Timeout(), ShouldEqual, analysis.DefaultTimeout)
		})

		Convey("Then anything else should be rejected", func() {
			for _, u := range []string{"", "localhost:8000", "ftp://host", "http://", "::"} {
				_, err := analysis.New(u)
				So(errors.Is(err, analysis.ErrInvalidBaseURL), ShouldBeTrue)
			}
		})
	})
}

func TestAnalyze(t *testing.T) {
	Convey("Given a service that returns a report", t, func() {
		var gotName, gotType, gotBody, gotMethod, gotPath string
		srv, c := serve(func(w http.ResponseWriter, r *http.Request) {
			gotMethod, gotPath = r.Method, r.URL.Path
			f, hdr, err := r.FormFile(analysis.FormField)
			if err == nil {
				gotName = hdr.Filename
				gotType = hdr.Header.Get("Content-Type")
				b, _ := io.ReadAll(f)
				gotBody = string(b)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"overall_percent": 12.5, "overall_category": "Low",
				"sections": {"Title": {"best_similarity_percent": 5, "category": "Low", "matches": []}}}`)
		})
		defer srv.Close()

		rep, err := c.Analyze(context.Background(), paper)

		Convey("Then the document should be sent as one multipart upload", func() {
			So(err, ShouldBeNil)
			So(gotMethod, ShouldEqual, http.MethodPost)
			So(gotPath, ShouldEqual, "/analyze")
			So(gotName, ShouldEqual, "paper.pdf")
			So(gotType, ShouldEqual, document.ContentTypePDF)
			So(gotBody, ShouldEqual, "%PDF-1.4 body")
		})

		Convey("Then the report should be decoded", func() {
			So(rep.OverallPercent.Format(), ShouldEqual, "12.50")
			So(rep.Section(report.SectionTitle), ShouldNotBeNil)
		})
	})

	Convey("Given a service that fails with an error envelope", t, func() {
		srv, c := serve(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error": "extraction failed"}`)
		})
		defer srv.Close()

		_, err := c.Analyze(context.Background(), paper)

		Convey("Then the service message should be used verbatim", func() {
			var ae *analysis.Error
			So(errors.As(err, &ae), ShouldBeTrue)
			So(ae.Kind, ShouldEqual, analysis.KindService)
			So(ae.Status, ShouldEqual, http.StatusInternalServerError)
			So(err.Error(), ShouldEqual, "extraction failed")
			So(analysis.Message(err), ShouldEqual, "extraction failed")
		})
	})

	Convey("Given a service that fails without a JSON body", t, func() {
		srv, c := serve(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "<html>bad gateway</html>")
		})
		defer srv.Close()

		_, err := c.Analyze(context.Background(), paper)

		Convey("Then the message should fall back to the status", func() {
			So(analysis.KindOf(err), ShouldEqual, analysis.KindService)
			So(analysis.Message(err), ShouldEqual, "analysis service returned 502 Bad Gateway")
		})
	})

	Convey("Given a service that rejects the request with a validation body", t, func() {
		srv, c := serve(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"detail": [{"loc": ["body", "file"], "msg": "field required"}]}`)
		})
		defer srv.Close()

		_, err := c.Analyze(context.Background(), paper)

		Convey("Then the message should fall back to the status", func() {
			So(analysis.KindOf(err), ShouldEqual, analysis.KindService)
			So(analysis.Message(err), ShouldEqual, "analysis service returned 422 Unprocessable Entity")
		})
	})

	Convey("Given a service whose report exceeds the response limit", t, func() {
		body := `{"overall_percent": 12.5, "sections": {}}`
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, body)
		}))
		defer srv.Close()

		Convey("When the limit cuts the body short", func() {
			c, err := analysis.New(srv.URL, analysis.WithMaxResponseBytes(int64(len(body)-1)))
			So(err, ShouldBeNil)
			_, err = c.Analyze(context.Background(), paper)

			Convey("Then the response should be reported as unreadable", func() {
				So(analysis.KindOf(err), ShouldEqual, analysis.KindMalformed)
				So(analysis.Message(err), ShouldEqual, analysis.MsgMalformed)
				So(errors.Is(err, analysis.ErrResponseTooLarge), ShouldBeTrue)
			})
		})

		Convey("When the body fits exactly", func() {
			c, err := analysis.New(srv.URL, analysis.WithMaxResponseBytes(int64(len(body))))
			So(err, ShouldBeNil)
			rep, err := c.Analyze(context.Background(), paper)

			Convey("Then the report should be decoded", func() {
				So(err, ShouldBeNil)
				So(rep.OverallPercent.Format(), ShouldEqual, "12.50")
			})
		})
	})

	Convey("Given a service that cannot be reached", t, func() {
		srv, c := serve(func(http.ResponseWriter, *http.Request) {})
		srv.Close()

		_, err := c.Analyze(context.Background(), paper)

		Convey("Then a generic transport message should be returned", func() {
			So(analysis.KindOf(err), ShouldEqual, analysis.KindTransport)
			So(analysis.Message(err), ShouldEqual, analysis.MsgTransport)
			So(errors.Unwrap(err), ShouldNotBeNil)
		})
	})

	Convey("Given a service that answers 200 with something other than an object", t, func() {
		srv, c := serve(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `["not", "a", "report"]`)
		})
		defer srv.Close()

		_, err := c.Analyze(context.Background(), paper)

		Convey("Then the response should be reported as unreadable", func() {
			So(analysis.KindOf(err), ShouldEqual, analysis.KindMalformed)
			So(analysis.Message(err), ShouldEqual, analysis.MsgMalformed)
			So(errors.Is(err, report.ErrMalformed), ShouldBeTrue)
		})
	})

	Convey("Given a service slower than the timeout", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()
		c, err := analysis.New(srv.URL, analysis.WithTimeout(50*time.Millisecond))
		So(err, ShouldBeNil)

		_, err = c.Analyze(context.Background(), paper)

		Convey("Then the request should time out", func() {
			So(analysis.KindOf(err), ShouldEqual, analysis.KindTimeout)
			So(analysis.Message(err), ShouldEqual, "analysis timed out after 50ms")
		})
	})

	Convey("Given a request cancelled by the caller", t, func() {
		started := make(chan struct{})
		srv, c := serve(func(_ http.ResponseWriter, r *http.Request) {
			close(started)
			<-r.Context().Done()
		})
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-started
			cancel()
		}()
		_, err := c.Analyze(ctx, paper)

		Convey("Then the request should be reported as cancelled", func() {
			So(analysis.KindOf(err), ShouldEqual, analysis.KindCancelled)
			So(analysis.Message(err), ShouldEqual, analysis.MsgCancelled)
		})
	})
}

func TestHealth(t *testing.T) {
	Convey("Given a healthy service", t, func() {
		srv, c := serve(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/health" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = io.WriteString(w, `{"status": "ok"}`)
		})
		defer srv.Close()

		So(c.Health(context.Background()), ShouldBeNil)
	})

	Convey("Given an unhealthy service", t, func() {
		srv, c := serve(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		defer srv.Close()

		err := c.Health(context.Background())
		So(analysis.KindOf(err), ShouldEqual, analysis.KindService)
		So(analysis.Message(err), ShouldEqual, "analysis service returned 503 Service Unavailable")
	})
}

func TestMessage(t *testing.T) {
	Convey("Given errors from outside the client", t, func() {
		So(analysis.Message(nil), ShouldEqual, "")
		So(analysis.Message(context.Canceled), ShouldEqual, analysis.MsgCancelled)
		So(analysis.Message(errors.New("boom")), ShouldEqual, "boom")
		So(analysis.KindOf(errors.New("boom")), ShouldEqual, analysis.Kind(""))
	})
}
