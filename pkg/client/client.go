// Package client talks to the pull request analysis backend.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/resty.v1"

	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
)

// Backend endpoints relative to the base URL.
const (
	AnalyzePRPath     = "/api/analysis/analyze-pr"
	AnalyzePRFilePath = "/api/analysis/analyze-pr-file"
)

const (
	DefaultBaseURL = "http://localhost:3003"
	DefaultTimeout = 5 * time.Minute
)

// Fallback messages when an error response carries no message of its own.
const (
	fallbackPRMessage   = "Failed to analyze PR"
	fallbackFileMessage = "Failed to analyze PR file"
)

// Client posts analysis requests to the backend. It never retries.
type Client struct {
	baseURL string
	timeout time.Duration
	rest    *resty.Client
	logger  zerolog.Logger
}

type Option func(*Client)

// WithTimeout bounds each request. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.rest = resty.NewWithClient(hc)
	}
}

func New(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		rest:    resty.NewWithClient(&http.Client{}),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.rest.SetHostURL(c.baseURL)
	c.rest.SetHeader("Content-Type", "application/json")
	c.rest.SetHeader("Accept", "application/json")
	return c
}

// BaseURL returns the backend base URL in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AnalyzePR grades a whole pull request.
func (c *Client) AnalyzePR(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	return c.post(ctx, AnalyzePRPath, req, fallbackPRMessage)
}

// AnalyzePRFile grades one file within a pull request.
func (c *Client) AnalyzePRFile(ctx context.Context, req analysis.FileRequest) (*analysis.Result, error) {
	return c.post(ctx, AnalyzePRFilePath, req, fallbackFileMessage)
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, body any, fallback string) (*analysis.Result, error) {
	requestID := uuid.New().String()
	log := c.logger.With().Str("endpoint", path).Str("request_id", requestID).Logger()

	t := timeout.New[*resty.Response](timeout.Config{
		DefaultTimeout: c.timeout,
	})

	start := time.Now()
	resp, err := t.Execute(ctx, c.timeout, func(ctx context.Context) (*resty.Response, error) {
		return c.rest.R().
			SetContext(ctx).
			SetHeader("X-Request-ID", requestID).
			SetBody(body).
			Post(path)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		log.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("request failed")
		return nil, &NetworkError{Endpoint: path, Err: err}
	}

	log.Debug().Int("status", resp.StatusCode()).Dur("elapsed", time.Since(start)).Msg("response received")

	if !resp.IsSuccess() {
		var eb errorBody
		if err := json.Unmarshal(resp.Body(), &eb); err != nil {
			return nil, &NetworkError{Endpoint: path, Err: fmt.Errorf("decode error response: %w", err)}
		}
		msg := eb.Error
		if msg == "" {
			msg = fallback
		}
		return nil, &BackendError{Endpoint: path, Status: resp.StatusCode(), Message: msg, RequestID: requestID}
	}

	result, err := analysis.Decode(resp.Body())
	if err != nil {
		if errors.Is(err, analysis.ErrInvalidJSON) {
			return nil, &NetworkError{Endpoint: path, Err: err}
		}
		return nil, err
	}
	return result, nil
}
