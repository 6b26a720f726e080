// Package client wraps every out-of-process call behind retries, per-call
// timeouts and a per-endpoint circuit breaker, and normalizes the outcome
// into a uniform response envelope.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/querywarden/querywarden/internal/analysis"
	"github.com/querywarden/querywarden/internal/redact"
)

// Response is the uniform envelope every wrapped call resolves to.
// Callers branch on Status, never on raw transport errors.
type Response struct {
	Status    string             `json:"status"` // "success" | "error"
	Data      any                `json:"data,omitempty"`
	Error     string             `json:"error,omitempty"`
	Code      analysis.ErrorCode `json:"code,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

func (r Response) OK() bool { return r.Status == "success" }

// StatusError carries an HTTP status from a remote call so retry logic can
// tell transient failures (5xx, 429) from caller mistakes (other 4xx).
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// Op is one attempt of an out-of-process operation.
type Op func(ctx context.Context) (any, error)

// Config bounds wrapped calls.
type Config struct {
	Timeout          time.Duration // per attempt
	Retries          int           // attempts after the first
	BackoffBase      time.Duration
	BreakerThreshold int // consecutive failed calls before opening
	Cooldown         time.Duration
}

type endpointHealth struct {
	failures       int
	state          analysis.CircuitState
	lastTransition time.Time
	probing        bool
}

// Client executes Ops with retry and breaker policy. Safe for concurrent
// use; per-endpoint health is mutated only under the mutex.
type Client struct {
	cfg Config

	mu        sync.Mutex
	endpoints map[string]*endpointHealth

	now   func() time.Time
	sleep func(context.Context, time.Duration)
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 200 * time.Millisecond
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Client{
		cfg:       cfg,
		endpoints: make(map[string]*endpointHealth),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Do runs op against endpoint under the client's policy. The envelope is
// always returned; an open circuit resolves immediately without invoking op.
func (c *Client) Do(ctx context.Context, endpoint string, op Op) Response {
	if !c.allow(endpoint) {
		return c.errResponse(analysis.CodeProviderUnavailable, fmt.Sprintf("circuit open for %s", endpoint))
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			c.sleep(ctx, c.cfg.BackoffBase*(1<<(attempt-1)))
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				break
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		data, err := op(callCtx)
		cancel()
		if err == nil {
			c.success(endpoint)
			return Response{Status: "success", Data: data, Timestamp: c.now().UTC()}
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
		redact.Logf("client: %s attempt %d failed, will retry: %v", endpoint, attempt+1, err)
	}

	code := codeFor(lastErr)
	// A rejected request is the caller's problem, not the endpoint's health.
	if code != analysis.CodePeerValidation {
		c.failure(endpoint)
	}
	return c.errResponse(code, lastErr.Error())
}

func (c *Client) errResponse(code analysis.ErrorCode, msg string) Response {
	return Response{Status: "error", Code: code, Error: msg, Timestamp: c.now().UTC()}
}

// allow decides whether a call may proceed and performs the open → half-open
// transition when the cool-down has elapsed.
func (c *Client) allow(endpoint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.health(endpoint)
	switch h.state {
	case analysis.CircuitClosed:
		return true
	case analysis.CircuitOpen:
		if c.now().Sub(h.lastTransition) >= c.cfg.Cooldown {
			h.state = analysis.CircuitHalfOpen
			h.lastTransition = c.now()
			h.probing = true
			return true
		}
		return false
	case analysis.CircuitHalfOpen:
		// One probe at a time.
		if h.probing {
			return false
		}
		h.probing = true
		return true
	}
	return true
}

func (c *Client) success(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.health(endpoint)
	if h.state != analysis.CircuitClosed {
		redact.Logf("client: circuit closed for %s", endpoint)
		h.lastTransition = c.now()
	}
	h.state = analysis.CircuitClosed
	h.failures = 0
	h.probing = false
}

func (c *Client) failure(endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.health(endpoint)
	h.failures++
	h.probing = false
	switch {
	case h.state == analysis.CircuitHalfOpen:
		h.state = analysis.CircuitOpen
		h.lastTransition = c.now()
		redact.Logf("client: probe failed, circuit reopened for %s", endpoint)
	case h.state == analysis.CircuitClosed && h.failures >= c.cfg.BreakerThreshold:
		h.state = analysis.CircuitOpen
		h.lastTransition = c.now()
		redact.Logf("client: circuit opened for %s after %d consecutive failures", endpoint, h.failures)
	}
}

// health must be called with the mutex held.
func (c *Client) health(endpoint string) *endpointHealth {
	h, ok := c.endpoints[endpoint]
	if !ok {
		h = &endpointHealth{state: analysis.CircuitClosed, lastTransition: c.now()}
		c.endpoints[endpoint] = h
	}
	return h
}

// Health snapshots every endpoint the client has seen.
func (c *Client) Health() map[string]analysis.ServiceHealth {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]analysis.ServiceHealth, len(c.endpoints))
	for name, h := range c.endpoints {
		out[name] = analysis.ServiceHealth{
			Endpoint:            name,
			ConsecutiveFailures: h.failures,
			State:               h.state,
			LastTransition:      h.lastTransition,
		}
	}
	return out
}

// retryable is true for transient failures: network errors, timeouts of a
// single attempt, 5xx and 429. Other 4xx never retry.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 500 || se.StatusCode == 429
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	// Unknown transport-level failure; treat as transient.
	return true
}

func codeFor(err error) analysis.ErrorCode {
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500 && se.StatusCode != 429 {
		return analysis.CodePeerValidation
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return analysis.CodeTimeout
	}
	if code := analysis.CodeOf(err); code != "" {
		return code
	}
	return analysis.CodeProviderUnavailable
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
