package detect

import "github.com/querywarden/querywarden/internal/analysis"

// ScanType selects which vectors the multi-vector scan covers.
type ScanType string

const (
	ScanInjection     ScanType = "injection"
	ScanXSS           ScanType = "xss"
	ScanPathInput     ScanType = "path-input"
	ScanComprehensive ScanType = "comprehensive"
)

// severityWeights is the fixed scoring table for scan findings.
var severityWeights = map[analysis.Severity]int{
	analysis.SeverityCritical: 30,
	analysis.SeverityHigh:     20,
	analysis.SeverityMedium:   10,
	analysis.SeverityLow:      5,
}

// Finding is one typed vulnerability from a scan.
type Finding struct {
	PatternID string            `json:"pattern_id"`
	Category  string            `json:"category"`
	Severity  analysis.Severity `json:"severity"`
	Matched   string            `json:"matched"`
}

// ScanReport aggregates scan findings with a capped score.
type ScanReport struct {
	Type     ScanType  `json:"type"`
	Findings []Finding `json:"findings"`
	Score    int       `json:"score"`
}

var scanCategories = map[ScanType]map[string]bool{
	ScanInjection: {
		CategoryBooleanTautology: true,
		CategoryUnion:            true,
		CategoryComment:          true,
		CategoryTimeBased:        true,
		CategoryErrorBased:       true,
		CategoryDestructive:      true,
		CategoryCommand:          true,
		CategoryGeneric:          true,
	},
	ScanXSS: {
		CategoryXSS: true,
	},
	ScanPathInput: {
		CategoryTraversal: true,
		CategoryCommand:   true,
	},
}

// Scan runs the multi-vector pass. Comprehensive covers every category.
func (e *Engine) Scan(input string, st ScanType) ScanReport {
	allowed := scanCategories[st]
	report := ScanReport{Type: st}
	for _, p := range e.patterns {
		if st != ScanComprehensive && !allowed[p.Category] {
			continue
		}
		m := p.Matcher.FindString(input)
		if m == "" {
			continue
		}
		report.Findings = append(report.Findings, Finding{
			PatternID: p.ID,
			Category:  p.Category,
			Severity:  p.Severity,
			Matched:   truncateMatch(m),
		})
		report.Score += severityWeights[p.Severity]
	}
	if report.Score > maxScore {
		report.Score = maxScore
	}
	return report
}
