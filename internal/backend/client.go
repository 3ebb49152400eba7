// Package backend is the REST client for the session and catalog service.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/Veraticus/quotedesk/internal/common"
)

// DefaultBaseURL is used when no backend URL is configured.
const DefaultBaseURL = "http://localhost:8000/api"

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Config configures a Client.
type Config struct {
	Logger  *slog.Logger
	BaseURL string
	Timeout time.Duration
	Retries int
}

// Client talks to the backend over HTTP.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
	retry  common.RetryOptions
}

// New creates a backend client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("%w: backend url must be http(s): %s", common.ErrInvalidConfig, baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = 1
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		logger: common.LoggerOrDefault(cfg.Logger),
		retry: common.RetryOptions{
			MaxAttempts:  retries,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

// errorBody is the shape of backend error responses.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// detail extracts a human-readable message from an error body. Validation
// failures carry a list of objects rather than a string.
func detail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(eb.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			msgs = append(msgs, it.Msg)
		}
		return strings.Join(msgs, "; ")
	}
	return string(eb.Detail)
}

// do executes one request. result may be nil when the body is ignored.
func (c *Client) do(ctx context.Context, op, method, path string, body, result any, query map[string]string) error {
	reqID := uuid.NewString()
	req := c.http.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, reqID)
	if body != nil {
		req.SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		return fmt.Errorf("%s: %w: %w", op, common.ErrTransport, err)
	}

	c.logger.Debug("backend request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
		"request_id", reqID,
		"duration", time.Since(start))

	if resp.IsError() {
		return &common.HTTPError{Op: op, Status: resp.StatusCode(), Detail: detail(resp.Body())}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

// get runs an idempotent GET with retry on transient failures.
func (c *Client) get(ctx context.Context, op, path string, result any, query map[string]string) error {
	return common.WithRetry(ctx, func() error {
		return c.do(ctx, op, http.MethodGet, path, nil, result, query)
	}, c.retry)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
