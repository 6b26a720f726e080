// Package detect is the deterministic first-pass scorer. It tests a query
// against an ordered, weighted signature set and never performs I/O, so it
// is safe under unbounded concurrent use.
package detect

import (
	"strings"
	"unicode/utf8"

	"github.com/querywarden/querywarden/internal/analysis"
)

const (
	// VulnerableThreshold is the score above which a query is flagged.
	VulnerableThreshold = 20
	// RemediationThreshold is the score at or above which a secure
	// alternative is synthesized.
	RemediationThreshold = 50
	maxScore             = 100
)

// Engine holds the compiled signature set. Patterns are read-only after
// construction.
type Engine struct {
	patterns []Pattern
	dialects map[string][]Pattern
}

// NewEngine compiles the built-in signature set once.
func NewEngine() *Engine {
	return &Engine{
		patterns: defaultPatterns(),
		dialects: dialectPatterns(),
	}
}

// Patterns exposes the loaded set for health/introspection endpoints.
func (e *Engine) Patterns() []Pattern {
	out := make([]Pattern, len(e.patterns))
	copy(out, e.patterns)
	return out
}

// Analyze scores a query against the signature set. By contract it cannot
// fail on well-formed string input; an unknown dialect simply means no
// dialect-specific checks run.
func (e *Engine) Analyze(q analysis.Query) analysis.Result {
	score := 0
	var factors []analysis.RiskFactor
	var matched []string

	apply := func(ps []Pattern) {
		for _, p := range ps {
			loc := p.Matcher.FindString(q.Text)
			if loc == "" {
				continue
			}
			score += p.Weight
			matched = append(matched, p.Category)
			factors = append(factors, analysis.RiskFactor{
				Severity:    p.Severity,
				Description: p.Description,
				Matched:     truncateMatch(loc),
			})
		}
	}

	apply(e.patterns)
	if extra, ok := e.dialects[strings.ToLower(q.Dialect)]; ok {
		apply(extra)
	}

	if score > maxScore {
		score = maxScore
	}

	res := analysis.Result{
		Vulnerable:       score > VulnerableThreshold,
		Score:            score,
		RiskFactors:      factors,
		DetectedPatterns: dedupe(matched),
		Tier:             analysis.TierOneOnly,
		Confidence:       analysis.ConfidenceMedium,
	}
	res.Recommendations = recommendations(res.DetectedPatterns)
	if score >= RemediationThreshold {
		res.SecureAlternative = secureAlternative(q.Text)
	}
	return res
}

// truncateMatch caps a preview without splitting a multi-byte rune.
func truncateMatch(s string) string {
	const limit = 60
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
