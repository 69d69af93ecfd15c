// Package fetch is the single place outbound registry HTTP happens. It owns
// per-attempt timeouts, the transient/client failure taxonomy, capped
// exponential backoff, and per-host rate limiting for the rate-sensitive
// origins.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Options tune one logical fetch. Zero values fall back to the client
// defaults supplied at construction.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Client executes single HTTP requests with retry. It is safe for concurrent
// use.
type Client struct {
	http     *http.Client
	defaults Options
	ratePer  float64
	logger   *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds an executor. ratePerHost caps request rate per origin
// host; zero disables limiting.
func NewClient(defaults Options, ratePerHost float64, logger *slog.Logger) *Client {
	if defaults.Timeout <= 0 {
		defaults.Timeout = 15 * time.Second
	}
	if defaults.BaseDelay <= 0 {
		defaults.BaseDelay = 500 * time.Millisecond
	}
	if defaults.MaxDelay <= 0 {
		defaults.MaxDelay = 10 * time.Second
	}
	return &Client{
		http:     &http.Client{},
		defaults: defaults,
		ratePer:  ratePerHost,
		logger:   logger.With("component", "fetch"),
		limiters: make(map[string]*rate.Limiter),
		sleep:    sleepCtx,
	}
}

// GetJSON fetches rawURL and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, opts Options, v any) error {
	body, err := c.Get(ctx, rawURL, opts)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &Error{URL: rawURL, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Get fetches rawURL and returns the response body. Transient failures
// (timeout, connection failure, 5xx) are retried with capped exponential
// backoff; 4xx client errors surface immediately.
func (c *Client) Get(ctx context.Context, rawURL string, opts Options) ([]byte, error) {
	opts = c.fill(opts)

	host := hostOf(rawURL)
	start := time.Now()
	defer func() {
		durationSeconds.WithLabelValues(host).Observe(time.Since(start).Seconds())
	}()

	var lastErr *Error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			retriesTotal.Inc()
			if err := c.sleep(ctx, backoffDelay(opts, attempt-1)); err != nil {
				break
			}
		}
		if lim := c.limiter(host); lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return nil, &Error{URL: rawURL, Err: err}
			}
		}

		body, ferr := c.attempt(ctx, rawURL, opts.Timeout)
		if ferr == nil {
			requestsTotal.WithLabelValues(host, "ok").Inc()
			return body, nil
		}
		lastErr = ferr
		if !ferr.Transient {
			requestsTotal.WithLabelValues(host, "client_error").Inc()
			return nil, ferr
		}
		c.logger.WarnContext(ctx, "transient fetch failure",
			"url", rawURL,
			"attempt", attempt+1,
			"status", ferr.Status,
			"error", ferr.Err,
		)
	}

	requestsTotal.WithLabelValues(host, "exhausted").Inc()
	if lastErr == nil {
		lastErr = &Error{URL: rawURL, Err: ctx.Err()}
	}
	return nil, lastErr
}

// attempt issues one request under a hard per-attempt deadline.
func (c *Client) attempt(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, *Error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// A timeout counts as transient; so do connection-level failures.
		// A canceled parent context is not retryable.
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, &Error{URL: rawURL, Err: err}
		}
		return nil, &Error{URL: rawURL, Transient: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, &Error{
			URL:       rawURL,
			Status:    resp.StatusCode,
			Transient: true,
			Err:       fmt.Errorf("server error"),
		}
	}
	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return nil, &Error{
			URL:    rawURL,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("client error"),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: rawURL, Transient: true, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

func (c *Client) fill(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = c.defaults.Timeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = c.defaults.MaxRetries
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = c.defaults.BaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = c.defaults.MaxDelay
	}
	return opts
}

func (c *Client) limiter(host string) *rate.Limiter {
	if c.ratePer <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(c.ratePer), int(c.ratePer)+1)
		c.limiters[host] = lim
	}
	return lim
}

// backoffDelay computes baseDelay * 2^attempt, capped.
func backoffDelay(opts Options, attempt int) time.Duration {
	d := opts.BaseDelay << uint(attempt)
	if d > opts.MaxDelay || d <= 0 {
		return opts.MaxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	return u.Host
}
