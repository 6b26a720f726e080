package peer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/querywarden/querywarden/internal/analysis"
	"github.com/querywarden/querywarden/internal/client"
)

func newSvc() *client.Client {
	return client.New(client.Config{
		Timeout:     2 * time.Second,
		Retries:     1,
		BackoffBase: time.Millisecond,
	})
}

func TestAnalyzeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req analysis.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": analysis.Result{
				Vulnerable: true,
				Score:      80,
				Tier:       analysis.TierOneTwo,
				Confidence: analysis.ConfidenceHigh,
			},
		})
	}))
	defer srv.Close()

	p := New("peer-a", srv.URL, "", newSvc())
	got, err := p.Analyze(context.Background(), analysis.Request{Query: "1 UNION SELECT password FROM users"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !got.Vulnerable || got.Score != 80 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestAnalyzeRejectionIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"status": "error", "error": "query too long"})
	}))
	defer srv.Close()

	p := New("peer-a", srv.URL, "", newSvc())
	_, err := p.Analyze(context.Background(), analysis.Request{Query: "q"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if analysis.CodeOf(err) != analysis.CodePeerValidation {
		t.Fatalf("expected peer validation, got %s", analysis.CodeOf(err))
	}
	if calls != 1 {
		t.Fatalf("4xx must not retry, got %d calls", calls)
	}
}

func TestAnalyzeRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   analysis.Result{Score: 30, Tier: analysis.TierOneOnly, Confidence: analysis.ConfidenceMedium},
		})
	}))
	defer srv.Close()

	p := New("peer-a", srv.URL, "", newSvc())
	got, err := p.Analyze(context.Background(), analysis.Request{Query: "q"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if calls != 2 || got.Score != 30 {
		t.Fatalf("expected retry then success: calls=%d result=%+v", calls, got)
	}
}

func TestPoolFailsOverToNextPeer(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   analysis.Result{Score: 60},
		})
	}))
	defer up.Close()

	svc := client.New(client.Config{Retries: 0, BackoffBase: time.Millisecond, Timeout: 2 * time.Second})
	pool := NewPool([]*Client{
		New("down", down.URL, "", svc),
		New("up", up.URL, "", svc),
	})

	got, err := pool.Analyze(context.Background(), analysis.Request{Query: "q"})
	if err != nil {
		t.Fatalf("pool analyze: %v", err)
	}
	if got.Score != 60 {
		t.Fatalf("expected result from healthy peer, got %+v", got)
	}
}

func TestPoolEmpty(t *testing.T) {
	var pool *Pool
	if _, err := pool.Analyze(context.Background(), analysis.Request{Query: "q"}); err == nil {
		t.Fatalf("expected error from empty pool")
	}
}
