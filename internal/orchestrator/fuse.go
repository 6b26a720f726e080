package orchestrator

import (
	"github.com/querywarden/querywarden/internal/analysis"
	"github.com/querywarden/querywarden/internal/analyst"
)

// severityScore maps a tier-2 severity verdict onto the 0..100 scale so it
// can compete with the deterministic score.
func severityScore(sev analysis.Severity) int {
	switch sev {
	case analysis.SeverityCritical:
		return 95
	case analysis.SeverityHigh:
		return 80
	case analysis.SeverityMedium:
		return 60
	case analysis.SeverityLow:
		return 40
	}
	return 0
}

// assessmentResult lifts a generative assessment into the shared result
// shape so local and peer tier-2 outcomes fuse identically.
func assessmentResult(a analyst.Assessment) analysis.Result {
	score := 0
	if a.Vulnerable {
		score = severityScore(a.Severity)
	}
	return analysis.Result{
		Vulnerable: a.Vulnerable,
		Score:      score,
		Analysis:   a.AnswerText,
		Sources:    a.Sources,
		Tier:       analysis.TierOneTwo,
	}
}

// fuse merges both tiers. The deterministic tier keeps its risk factors,
// patterns and secure alternative; the generative tier contributes score
// pressure, narrative, sources and extra recommendations.
func fuse(tier1, tier2 analysis.Result) analysis.Result {
	out := tier1
	if tier2.Score > out.Score {
		out.Score = tier2.Score
	}
	out.Vulnerable = tier1.Vulnerable || tier2.Vulnerable
	if tier1.Vulnerable == tier2.Vulnerable {
		out.Confidence = analysis.ConfidenceHigh
	} else {
		out.Confidence = analysis.ConfidenceMedium
	}
	out.Recommendations = dedupe(append(append([]string{}, tier1.Recommendations...), tier2.Recommendations...))
	out.Sources = tier2.Sources
	out.Analysis = tier2.Analysis
	out.Tier = analysis.TierOneTwo
	return out
}

// fallback returns the tier-1 result marked as degraded.
func fallback(tier1 analysis.Result) analysis.Result {
	out := tier1
	out.Tier = analysis.TierOneFallback
	out.Confidence = analysis.ConfidenceMedium
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
