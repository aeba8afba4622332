// Package services provides external service integrations and technical concerns like tokens and photo encoding
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/pick-intro/config"
	"github.com/amirphl/pick-intro/utils"
)

// Backend error constants
var (
	ErrBackendNotConfigured = errors.New("backend api url is not configured")
	ErrNotFound             = errors.New("resource not found")
)

const maxErrorBodyBytes = 64 * 1024

// ServiceError is a non-2xx answer from the Pick API.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// RateLimitError is a 429 answer. RetryAfter is zero when the server gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// AsRateLimit extracts a RateLimitError from err.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// ServiceMessage returns the message carried by a backend error, or "" when err is not one.
func ServiceMessage(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	if rl, ok := AsRateLimit(err); ok {
		return rl.Message
	}
	return ""
}

// WithAccessToken attaches the caller's bearer token for forwarding to the backend
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, utils.AccessTokenKey, token)
}

// WithUserID attaches the caller's user id for forwarding to the backend
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, utils.UserIDKey, userID)
}

// BackendClient is the shared HTTP transport for the Pick API collaborators.
type BackendClient struct {
	baseURL string
	client  *http.Client
}

// NewBackendClient creates a client for the configured API. A trailing slash on the URL is ignored.
func NewBackendClient(cfg *config.BackendConfig) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// do sends a JSON request and decodes a JSON answer into out.
// fallback is the error message used when the server returns an empty error body.
func (b *BackendClient) do(ctx context.Context, method, path string, query url.Values, body, out any, fallback string) error {
	if b.baseURL == "" {
		return ErrBackendNotConfigured
	}

	endpoint := b.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token, ok := ctx.Value(utils.AccessTokenKey).(string); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if userID, ok := ctx.Value(utils.UserIDKey).(string); ok && userID != "" {
		req.Header.Set(utils.UserIDHeader, userID)
	}
	if requestID, ok := ctx.Value(utils.RequestIDKey).(string); ok && requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("backend request %s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		message := extractErrorMessage(raw, fallback)
		if resp.StatusCode == http.StatusTooManyRequests {
			return &RateLimitError{
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), raw, time.Now()),
				Message:    message,
			}
		}
		return &ServiceError{Status: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// extractErrorMessage prefers a JSON "message" or "error" field, then the raw text, then the fallback.
func extractErrorMessage(raw []byte, fallback string) string {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return fallback
	}
	var body struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if s, ok := body.Error.(string); ok && s != "" {
			return s
		}
	}
	return text
}

// parseRetryAfter reads a Retry-After header (delta seconds or HTTP date),
// falling back to a "retryAfter"/"retry_after" seconds field in the body.
func parseRetryAfter(header string, raw []byte, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header != "" {
		if secs, err := strconv.ParseFloat(header, 64); err == nil && secs > 0 {
			return secondsToDuration(secs)
		}
		if at, err := http.ParseTime(header); err == nil {
			if d := at.Sub(now); d > 0 {
				return min(d, maxRetryAfter)
			}
		}
	}

	var body struct {
		RetryAfter      *float64 `json:"retryAfter"`
		RetryAfterSnake *float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.RetryAfter != nil && *body.RetryAfter > 0:
			return secondsToDuration(*body.RetryAfter)
		case body.RetryAfterSnake != nil && *body.RetryAfterSnake > 0:
			return secondsToDuration(*body.RetryAfterSnake)
		}
	}
	return 0
}

// maxRetryAfter caps a backend-supplied wait
const maxRetryAfter = 24 * time.Hour

func secondsToDuration(secs float64) time.Duration {
	if secs >= maxRetryAfter.Seconds() {
		return maxRetryAfter
	}
	return time.Duration(secs * float64(time.Second))
}
