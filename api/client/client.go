// Package client calls a running overlap API server. Client implements
// scoring.Scorer so commands can switch between remote and local scoring.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/overlap/api"
	"github.com/papercomputeco/overlap/pkg/scoring"
	"github.com/papercomputeco/overlap/pkg/utils"
)

// DefaultTimeout bounds each request made by a Client.
const DefaultTimeout = 2 * time.Minute

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("overlap API returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Client talks to the overlap HTTP API.
type Client struct {
	target     *url.URL
	httpClient *http.Client
}

var _ scoring.Scorer = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New returns a Client for the server at target, e.g. http://localhost:8000.
func New(target string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(target, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API target URL %q: scheme must be http or https", target)
	}

	c := &Client{
		target:     u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Status calls the root liveness probe.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var out api.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/", "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Compare implements scoring.Scorer.
func (c *Client) Compare(ctx context.Context, text1, text2 string) (*scoring.CompareResult, error) {
	body, err := json.Marshal(api.CompareRequest{Text1: text1, Text2: text2})
	if err != nil {
		return nil, err
	}

	var out scoring.CompareResult
	if err := c.do(ctx, http.MethodPost, "/api/compare-text", "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Check implements scoring.Scorer.
func (c *Client) Check(ctx context.Context, text string) (*scoring.CheckResult, error) {
	body, err := json.Marshal(api.CheckRequest{Text: text})
	if err != nil {
		return nil, err
	}

	var out scoring.CheckResult
	if err := c.do(ctx, http.MethodPost, "/api/check-text", "application/json", bytes.NewReader(body), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Extract uploads r as filename and returns the server-side extracted text.
func (c *Client) Extract(ctx context.Context, filename string, r io.Reader) (*api.ExtractResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("creating upload: %w", err)
	}

	var out api.ExtractResponse
	if err := c.do(ctx, http.MethodPost, "/api/extract-text", w.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	u := *c.target
	u.Path = strings.TrimRight(u.Path, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", utils.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to overlap API at %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func statusError(code int, body []byte) *StatusError {
	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return &StatusError{StatusCode: code, Message: e.Error}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(code)
	}
	return &StatusError{StatusCode: code, Message: utils.Truncate(msg, 200)}
}
