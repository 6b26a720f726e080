// Package audit records one event per completed analysis. Events carry a
// redacted query preview and the outcome summary; delivery happens off the
// request path through a buffered emitter.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/querywarden/querywarden/internal/analysis"
	"github.com/querywarden/querywarden/internal/redact"
)

const eventVersion = "1"

// Outcome summarizes the merged result for the audit trail.
type Outcome struct {
	Vulnerable bool     `json:"vulnerable"`
	Score      int      `json:"score"`
	Tier       string   `json:"tier"`
	Confidence string   `json:"confidence"`
	Patterns   []string `json:"patterns,omitempty"`
	Sources    int      `json:"sources"`
}

// TimingMs captures per-tier latency.
type TimingMs struct {
	Tier1 float64 `json:"tier1"`
	Tier2 float64 `json:"tier2,omitempty"`
	Total float64 `json:"total"`
}

// Event is the canonical audit payload.
type Event struct {
	Version      string    `json:"version"`
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
	QueryPreview string    `json:"query_preview"`
	Dialect      string    `json:"dialect,omitempty"`
	Outcome      Outcome   `json:"outcome"`
	TimingMs     TimingMs  `json:"timing_ms"`
}

const previewLimit = 160

// BuildEvent assembles an audit event for one analysis. The raw query never
// enters the event; only a bounded, flattened preview does.
func BuildEvent(req analysis.Request, result analysis.Result, timing TimingMs) *Event {
	return &Event{
		Version:      eventVersion,
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		RequestID:    req.ID,
		QueryPreview: redact.Snippet(req.Query, previewLimit),
		Dialect:      req.Dialect,
		Outcome: Outcome{
			Vulnerable: result.Vulnerable,
			Score:      result.Score,
			Tier:       string(result.Tier),
			Confidence: string(result.Confidence),
			Patterns:   result.DetectedPatterns,
			Sources:    len(result.Sources),
		},
		TimingMs: timing,
	}
}
