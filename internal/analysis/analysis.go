package analysis

import "time"

// Tier identifies which passes contributed to a result.
type Tier string

const (
	TierOneOnly     Tier = "tier1_only"
	TierOneTwo      Tier = "tier1_tier2"
	TierOneFallback Tier = "tier1_fallback"
)

// Confidence expresses agreement between the deterministic and
// model-assisted passes.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// Severity tiers used by detection patterns and scan findings.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Query is the normalized unit of work. Dialect is an optional hint
// ("mysql", "postgresql", "mssql", ...); empty means generic checks only.
type Query struct {
	Text    string `json:"text"`
	Dialect string `json:"dialect,omitempty"`
}

// RiskFactor is a single matched signal from the pattern engine.
type RiskFactor struct {
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Matched     string   `json:"matched,omitempty"`
}

// SearchResult references a knowledge document with a normalized score.
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	Name       string  `json:"name"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
	Source     string  `json:"source"` // "store" | "in_memory"
}

// Result is the merged outcome of one analysis.
type Result struct {
	Vulnerable        bool           `json:"vulnerable"`
	Score             int            `json:"score"` // 0..100
	RiskFactors       []RiskFactor   `json:"risk_factors,omitempty"`
	DetectedPatterns  []string       `json:"detected_patterns,omitempty"`
	Recommendations   []string       `json:"recommendations,omitempty"`
	SecureAlternative string         `json:"secure_alternative,omitempty"`
	Analysis          string         `json:"analysis,omitempty"` // tier-2 narrative
	Tier              Tier           `json:"tier"`
	Confidence        Confidence     `json:"confidence"`
	Sources           []SearchResult `json:"sources,omitempty"`
}

// CircuitState is the lifecycle of one endpoint's breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half-open"
)

// ServiceHealth is the per-endpoint view returned by healthCheck.
type ServiceHealth struct {
	Endpoint            string       `json:"endpoint"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	State               CircuitState `json:"state"`
	LastTransition      time.Time    `json:"last_transition"`
}

// IngestReceipt reports what ingestion did with a document.
type IngestReceipt struct {
	Chunks  int  `json:"chunks"`
	Deduped bool `json:"deduped"`
}

// Request is the wire shape accepted from callers and analysis peers.
type Request struct {
	ID      string `json:"id,omitempty"`
	Query   string `json:"query"`
	Dialect string `json:"dialect,omitempty"`
}
