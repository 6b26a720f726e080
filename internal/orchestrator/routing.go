package orchestrator

import (
	"regexp"

	"github.com/querywarden/querywarden/internal/analysis"
	"github.com/querywarden/querywarden/internal/detect"
)

// Obfuscation markers the deterministic tier is mostly blind to: keyword
// rebuilding via char()/chr()/concat(), hex literals, percent-encoding runs
// and long base64 spans.
var obfuscationMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(char|chr|concat|concat_ws|unhex)\s*\(`),
	regexp.MustCompile(`(?i)0x[0-9a-f]{6,}`),
	regexp.MustCompile(`(?i)(%[0-9a-f]{2}){3,}`),
	regexp.MustCompile(`(?i)\b(from_base64|to_base64)\b`),
	regexp.MustCompile(`[A-Za-z0-9+/]{32,}={1,2}`),
}

// decision is the routing verdict for one query.
type decision struct {
	escalate bool
	reason   string
}

// route is a pure function of the tier-1 result and structural heuristics
// on the raw text. A score above the vulnerable threshold is conclusive on
// its own; a zero score stops unless the raw text looks obfuscated or is
// suspiciously long.
func route(text string, tier1 analysis.Result, escalationLength int) decision {
	if tier1.Score > detect.VulnerableThreshold {
		return decision{escalate: false, reason: "tier1 conclusive: vulnerable"}
	}
	for _, re := range obfuscationMarkers {
		if re.MatchString(text) {
			return decision{escalate: true, reason: "obfuscation markers present"}
		}
	}
	if escalationLength > 0 && len(text) > escalationLength {
		return decision{escalate: true, reason: "query length over threshold"}
	}
	if tier1.Score > 0 {
		return decision{escalate: true, reason: "suspicious but inconclusive score"}
	}
	return decision{escalate: false, reason: "tier1 conclusive: clean"}
}
