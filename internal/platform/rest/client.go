// Package rest is the JSON transport shared by the record model and its
// loaders. It classifies server responses so callers can distinguish an
// optimistic-concurrency conflict from a generic failure.
package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrConflict reports an HTTP 409: the record changed on the server after it
// was loaded. Callers should refresh and retry rather than overwrite.
var ErrConflict = errors.New("record was modified on the server")

// StatusError is any other non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d", e.Code)
}

// Options configures a Client.
type Options struct {
	// BaseURL is the root of the OPAL server, e.g. "https://opal.example.org".
	BaseURL string
	// Token, when set, is sent as a bearer token on every request.
	Token string
	// Timeout bounds each request. Defaults to 30 seconds.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Client wraps a resty client with the conventions every OPAL endpoint
// shares: JSON bodies, bearer auth, a generated X-Request-ID per request,
// and response classification.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewClient builds a Client for the given server.
func NewClient(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	hc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if opts.Token != "" {
		hc.SetAuthToken(opts.Token)
	}
	return &Client{http: hc, log: opts.Logger}
}

// Get fetches path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, resty.MethodGet, path, nil, out)
}

// Post creates a resource at path and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, resty.MethodPost, path, body, out)
}

// Put updates the resource at path and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, resty.MethodPut, path, body, out)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, resty.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString())
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode()).
		Dur("duration", resp.Time()).
		Msg("request complete")

	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, path, ErrConflict)
	default:
		return fmt.Errorf("%s %s: %w", method, path, &StatusError{
			Code: resp.StatusCode(),
			Body: string(resp.Body()),
		})
	}
}
