// Package analysis is the client of the remote similarity analysis service.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/okian/paperlens/internal/domain/document"
	"github.com/okian/paperlens/internal/domain/report"
	"github.com/okian/paperlens/pkg/logger"
	"github.com/okian/paperlens/pkg/metrics"
)

// Default client configuration constants.
const (
	DefaultTimeout          = 60 * time.Second
	defaultMaxResponseBytes = 8 << 20

	// FormField is the multipart field carrying the document.
	FormField = "file"

	analyzePath = "analyze"
	healthPath  = "health"

	outcomeSuccess = "success"
)

// Client sends documents to POST {base}/analyze.
type Client struct {
	base             *url.URL
	http             *http.Client
	timeout          time.Duration
	maxResponseBytes int64
	logger           logger.Logger
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		base:             u,
		http:             &http.Client{},
		timeout:          DefaultTimeout,
		maxResponseBytes: defaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("analysis")
	}
	return c, nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string { return c.base.String() }

// Timeout returns the per-request bound, zero when disabled.
func (c *Client) Timeout() time.Duration { return c.timeout }

// Analyze uploads f and returns the decoded report. Every failure is an *Error.
func (c *Client) Analyze(ctx context.Context, f document.File) (*report.Report, error) {
	start := time.Now()
	rep, err := c.analyze(ctx, f)
	latency := time.Since(start)

	metrics.RecordAnalysisLatency(float64(latency.Milliseconds()))
	if err != nil {
		metrics.RecordAnalysisRequest(string(KindOf(err)))
		c.logger.Warn(ctx, "analysis failed",
			logger.String("file", f.Name),
			logger.String("kind", string(KindOf(err))),
			logger.Duration("took", latency),
			logger.Error(errors.Unwrap(err)),
		)
		return nil, err
	}

	metrics.RecordAnalysisRequest(outcomeSuccess)
	c.logger.Debug(ctx, "analysis finished",
		logger.String("file", f.Name),
		logger.Int64("bytes", f.Size()),
		logger.Duration("took", latency),
	)
	return rep, nil
}

func (c *Client) analyze(parent context.Context, f document.File) (*report.Report, error) {
	ctx, cancel := c.withTimeout(parent)
	defer cancel()

	body, contentType, err := multipartBody(f)
	if err != nil {
		return nil, transportError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.JoinPath(analyzePath).String(), body)
	if err != nil {
		return nil, transportError(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.classify(parent, ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, c.classify(parent, ctx, err)
	}
	truncated := int64(len(data)) > c.maxResponseBytes
	if truncated {
		data = data[:c.maxResponseBytes]
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serviceError(resp.StatusCode, errorField(data))
	}
	if truncated {
		return nil, malformedError(fmt.Errorf("%w: %d bytes", ErrResponseTooLarge, c.maxResponseBytes))
	}

	rep, err := report.Decode(data)
	if err != nil {
		return nil, malformedError(err)
	}
	return rep, nil
}

// Health probes GET {base}/health.
func (c *Client) Health(parent context.Context) error {
	ctx, cancel := c.withTimeout(parent)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.JoinPath(healthPath).String(), nil)
	if err != nil {
		return transportError(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.classify(parent, ctx, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serviceError(resp.StatusCode, errorField(data))
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// classify tells a cancelled caller from our own deadline from a network failure.
func (c *Client) classify(parent, ctx context.Context, err error) *Error {
	switch {
	case parent.Err() != nil:
		if errors.Is(parent.Err(), context.DeadlineExceeded) {
			return timeoutError(c.timeout, err)
		}
		return cancelledError(err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return timeoutError(c.timeout, err)
	default:
		return transportError(err)
	}
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`) //nolint:gochecknoglobals // stateless replacer

func multipartBody(f document.File) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(FormField), quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", document.ContentTypePDF)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// errorField extracts a string "error" member from a JSON error body.
func errorField(data []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ""
	}
	var msg string
	if err := json.Unmarshal(envelope.Error, &msg); err != nil {
		return ""
	}
	return msg
}
