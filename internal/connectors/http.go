package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultMaxRetries = 3
	defaultRetryWait  = 500 * time.Millisecond
	defaultTimeout    = 15 * time.Second
	maxErrorBody      = 512
)

// APIError is a non-retryable 4xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Body)
}

// IsAPIError reports whether err is an APIError with the given status. A zero
// status matches any APIError.
func IsAPIError(err error, status int) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return status == 0 || apiErr.StatusCode == status
}

// HTTPClientConfig configures an HTTPClient.
type HTTPClientConfig struct {
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	RetryWait         time.Duration
	Timeout           time.Duration
	Breaker           Breaker
	Logger            *logrus.Logger
}

// HTTPClient issues JSON GET requests behind a token bucket, retries 429 and
// 5xx responses with exponential backoff, and reports failures to a breaker.
type HTTPClient struct {
	http       *http.Client
	limiter    *rate.Limiter
	breaker    Breaker
	logger     *logrus.Logger
	maxRetries int
	retryWait  time.Duration
	requests   atomic.Int64
}

// NewHTTPClient creates a client. A zero RequestsPerSecond disables limiting
// and a negative MaxRetries disables retries.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultRetryWait
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Breaker == nil {
		cfg.Breaker = noopBreaker{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	return &HTTPClient{
		http:       &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		breaker:    cfg.Breaker,
		logger:     cfg.Logger,
		maxRetries: cfg.MaxRetries,
		retryWait:  cfg.RetryWait,
	}
}

// Requests returns the number of HTTP requests sent so far.
func (c *HTTPClient) Requests() int64 {
	return c.requests.Load()
}

// GetJSON fetches rawURL with query params and decodes the body into out.
// The response headers are returned for callers that track quota.
func (c *HTTPClient) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) (http.Header, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	var (
		header http.Header
		apiErr error
	)
	// 4xx responses are returned without counting against the breaker.
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		h, err := c.doWithRetry(ctx, u.String(), out)
		header = h
		if IsAPIError(err, 0) {
			apiErr = err
			return nil
		}
		return err
	})
	if err != nil {
		return header, err
	}
	return header, apiErr
}

func (c *HTTPClient) doWithRetry(ctx context.Context, target string, out any) (http.Header, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, attempt-1); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		c.requests.Add(1)
		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("upstream status %d", resp.StatusCode)
			c.logger.WithFields(logrus.Fields{
				"status":  resp.StatusCode,
				"attempt": attempt + 1,
			}).Warn("Retryable upstream response")
			continue
		case resp.StatusCode >= 400:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			return resp.Header, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return resp.Header, fmt.Errorf("decode response: %w", err)
		}
		return resp.Header, nil
	}
	return nil, fmt.Errorf("exhausted %d retries: %w", c.maxRetries, lastErr)
}

func (c *HTTPClient) sleep(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
