package client

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/querywarden/querywarden/internal/analysis"
)

func newTestClient(cfg Config) (*Client, *[]time.Duration, *time.Time) {
	c := New(cfg)
	delays := &[]time.Duration{}
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	clock := &now
	c.now = func() time.Time { return *clock }
	c.sleep = func(_ context.Context, d time.Duration) { *delays = append(*delays, d) }
	return c, delays, clock
}

func TestDoRetriesOn503WithGrowingBackoff(t *testing.T) {
	c, delays, _ := newTestClient(Config{Retries: 3, BackoffBase: 100 * time.Millisecond})

	calls := 0
	resp := c.Do(context.Background(), "tier2", func(ctx context.Context) (any, error) {
		calls++
		return nil, &StatusError{StatusCode: 503, Message: "unavailable"}
	})
	if resp.OK() {
		t.Fatalf("expected error envelope")
	}
	if calls != 4 {
		t.Fatalf("expected 1 initial + 3 retries, got %d calls", calls)
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if len(*delays) != len(want) {
		t.Fatalf("expected %d backoffs, got %v", len(want), *delays)
	}
	for i, d := range *delays {
		if d != want[i] {
			t.Fatalf("backoff %d: got %v want %v", i, d, want[i])
		}
	}
}

func TestDoNeverRetries4xx(t *testing.T) {
	c, delays, _ := newTestClient(Config{Retries: 5})

	calls := 0
	resp := c.Do(context.Background(), "peer", func(ctx context.Context) (any, error) {
		calls++
		return nil, &StatusError{StatusCode: 400, Message: "bad request"}
	})
	if calls != 1 || len(*delays) != 0 {
		t.Fatalf("4xx must not retry: %d calls, %v delays", calls, *delays)
	}
	if resp.Code != analysis.CodePeerValidation {
		t.Fatalf("expected peer validation code, got %s", resp.Code)
	}
}

func TestDoNeverRetriesWrappedProviderRejection(t *testing.T) {
	c, delays, _ := newTestClient(Config{Retries: 4, BreakerThreshold: 1})

	calls := 0
	resp := c.Do(context.Background(), "tier2_local", func(ctx context.Context) (any, error) {
		calls++
		return nil, fmt.Errorf("create embedding: %w", &StatusError{StatusCode: 401, Message: "invalid api key"})
	})
	if calls != 1 || len(*delays) != 0 {
		t.Fatalf("provider 4xx must not retry: %d calls, %v delays", calls, *delays)
	}
	if resp.Code != analysis.CodePeerValidation {
		t.Fatalf("expected rejection code, got %s", resp.Code)
	}
	if h := c.Health()["tier2_local"]; h.State != analysis.CircuitClosed || h.ConsecutiveFailures != 0 {
		t.Fatalf("rejection counted against endpoint health: %+v", h)
	}
}

func TestDoSuccessEnvelope(t *testing.T) {
	c, _, _ := newTestClient(Config{})
	resp := c.Do(context.Background(), "tier2", func(ctx context.Context) (any, error) {
		return "payload", nil
	})
	if !resp.OK() || resp.Data != "payload" || resp.Timestamp.IsZero() {
		t.Fatalf("bad success envelope: %+v", resp)
	}
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	c, _, _ := newTestClient(Config{Retries: 0, BreakerThreshold: 3, Cooldown: time.Minute})

	fail := func(ctx context.Context) (any, error) { return nil, errors.New("conn refused") }
	for i := 0; i < 3; i++ {
		c.Do(context.Background(), "tier2", fail)
	}
	h := c.Health()["tier2"]
	if h.State != analysis.CircuitOpen || h.ConsecutiveFailures != 3 {
		t.Fatalf("expected open circuit after 3 failures: %+v", h)
	}

	calls := 0
	resp := c.Do(context.Background(), "tier2", func(ctx context.Context) (any, error) {
		calls++
		return "x", nil
	})
	if calls != 0 || resp.OK() {
		t.Fatalf("open circuit must short-circuit: calls=%d resp=%+v", calls, resp)
	}
	if resp.Code != analysis.CodeProviderUnavailable {
		t.Fatalf("expected provider unavailable, got %s", resp.Code)
	}
}

func TestBreakerHalfOpenProbeRecovers(t *testing.T) {
	c, _, clock := newTestClient(Config{Retries: 0, BreakerThreshold: 1, Cooldown: time.Minute})

	c.Do(context.Background(), "tier2", func(ctx context.Context) (any, error) {
		return nil, errors.New("down")
	})
	if c.Health()["tier2"].State != analysis.CircuitOpen {
		t.Fatalf("expected open circuit")
	}

	*clock = clock.Add(2 * time.Minute)
	resp := c.Do(context.Background(), "tier2", func(ctx context.Context) (any, error) {
		return "recovered", nil
	})
	if !resp.OK() {
		t.Fatalf("probe should have run after cooldown: %+v", resp)
	}
	h := c.Health()["tier2"]
	if h.State != analysis.CircuitClosed || h.ConsecutiveFailures != 0 {
		t.Fatalf("expected closed circuit after successful probe: %+v", h)
	}
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	c, _, clock := newTestClient(Config{Retries: 0, BreakerThreshold: 1, Cooldown: time.Minute})

	fail := func(ctx context.Context) (any, error) { return nil, errors.New("down") }
	c.Do(context.Background(), "tier2", fail)
	*clock = clock.Add(2 * time.Minute)
	c.Do(context.Background(), "tier2", fail)

	if got := c.Health()["tier2"].State; got != analysis.CircuitOpen {
		t.Fatalf("expected reopened circuit after failed probe, got %s", got)
	}
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	c, _, _ := newTestClient(Config{Retries: 5})
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	c.Do(ctx, "tier2", func(ctx context.Context) (any, error) {
		calls++
		cancel()
		return nil, &StatusError{StatusCode: 503, Message: "unavailable"}
	})
	if calls != 1 {
		t.Fatalf("cancelled context must stop retries, got %d calls", calls)
	}
}

func TestHealthReportsUnseenEndpointAbsent(t *testing.T) {
	c, _, _ := newTestClient(Config{})
	if _, ok := c.Health()["never-called"]; ok {
		t.Fatalf("health must only report seen endpoints")
	}
}
