// Package transport posts encoded form bodies to the /bfhl endpoint.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/verte-zerg/bfhl/internal/model"
	"github.com/verte-zerg/bfhl/internal/payload"
	"github.com/verte-zerg/bfhl/internal/response"
)

// DefaultTimeout bounds a single submission.
const DefaultTimeout = 30 * time.Second

// DefaultURL is the deployed endpoint used when none is configured.
const DefaultURL = "https://bajaj-bfhs-end.onrender.com/bfhl"

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 4 << 20

// Client sends one POST per call. It never retries.
type Client struct {
	url  string
	http *http.Client
}

// Result is a decoded successful response.
type Result struct {
	Response model.Response
	Status   int
	Duration time.Duration
	Raw      []byte
}

// New returns a client for url. A non-positive timeout uses DefaultTimeout.
func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Post sends req and decodes the response. Failures are typed: RequestSetupError
// before sending, NetworkError when no response arrived, HTTPError for non-2xx
// and ParseError for an undecodable body.
func (c *Client) Post(ctx context.Context, req payload.Request) (Result, error) {
	startTime := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(req.Body))
	if err != nil {
		return Result{}, &model.RequestSetupError{Message: "failed to create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", req.ContentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Result{Duration: time.Since(startTime)}, &model.NetworkError{Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	duration := time.Since(startTime)
	if err != nil {
		return Result{Status: resp.StatusCode, Duration: duration}, &model.NetworkError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	result := Result{Status: resp.StatusCode, Duration: duration, Raw: body}
	if !IsSuccessStatus(resp.StatusCode) {
		return result, &model.HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	decoded, err := response.Decode(body)
	if err != nil {
		return result, err
	}
	result.Response = decoded
	return result, nil
}

// IsSuccessStatus returns true if status code is 2xx.
func IsSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}

// FormatDuration formats a duration for status lines.
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.2fs", float64(ms)/1000.0)
}
