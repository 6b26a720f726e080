// Package analyst implements the generative second pass: it assembles
// retrieved knowledge into a bounded context block, prompts the generative
// provider and parses the structured verdict out of the answer.
package analyst

import (
	"context"
	"fmt"
	"strings"

	"github.com/querywarden/querywarden/internal/analysis"
	"github.com/querywarden/querywarden/internal/knowledge"
	"github.com/querywarden/querywarden/internal/provider"
)

const systemPrompt = "You are a database security analyst. You classify SQL " +
	"queries as exploit attempts or legitimate traffic using the reference " +
	"material provided. Be precise and conservative: only mark a query " +
	"vulnerable when the evidence supports it."

const promptTemplate = `Reference material:
%s

Query under analysis:
%s

Respond in exactly this format:
VERDICT: VULNERABLE or NOT VULNERABLE
SEVERITY: critical, high, medium or low
Then explain which exploit class the query matches (or why it is benign),
what an attacker would gain, and how to remediate it.`

// Assessment is the parsed outcome of one generative analysis.
type Assessment struct {
	Vulnerable bool
	Severity   analysis.Severity
	AnswerText string
	Sources    []analysis.SearchResult
}

// Config bounds the generative call.
type Config struct {
	ContextBudget int // characters of reference material
	Temperature   float32
	MaxTokens     int
}

// Analyzer drives the generative provider. A nil generator is a
// configuration error surfaced at Analyze time, not a panic.
type Analyzer struct {
	gen provider.Generator
	cfg Config
}

func NewAnalyzer(gen provider.Generator, cfg Config) *Analyzer {
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = 4000
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 700
	}
	return &Analyzer{gen: gen, cfg: cfg}
}

// Analyze renders the prompt from query and retrieved hits, invokes the
// provider and parses the verdict header. Provider failure returns an
// error value so callers can fall back to the deterministic tier.
func (a *Analyzer) Analyze(ctx context.Context, q analysis.Query, hits []knowledge.Hit) (Assessment, error) {
	if a.gen == nil {
		return Assessment{}, analysis.NewError(analysis.CodeProviderUnavailable, "no generative provider configured", nil)
	}

	block, sources := Assemble(hits, a.cfg.ContextBudget)
	if block == "" {
		block = "(no reference material retrieved)"
	}

	answer, err := a.gen.Generate(ctx, provider.GenerateRequest{
		System:      systemPrompt,
		Prompt:      fmt.Sprintf(promptTemplate, block, q.Text),
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Assessment{}, analysis.NewError(analysis.CodeTimeout, "generative analysis deadline", err)
		}
		return Assessment{}, analysis.NewError(analysis.CodeProviderUnavailable, "generative analysis", err)
	}

	out := parseAnswer(answer)
	out.Sources = sources
	return out, nil
}

// parseAnswer extracts VERDICT and SEVERITY headers. Models do not always
// follow instructions, so the first line doubles as a fallback verdict and
// an unparseable severity defaults by verdict rather than failing the call.
func parseAnswer(answer string) Assessment {
	out := Assessment{AnswerText: strings.TrimSpace(answer)}

	var verdictSeen, severitySeen bool
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case !verdictSeen && strings.HasPrefix(upper, "VERDICT:"):
			verdictSeen = true
			out.Vulnerable = !strings.Contains(upper, "NOT VULNERABLE") &&
				strings.Contains(upper, "VULNERABLE")
		case !severitySeen && strings.HasPrefix(upper, "SEVERITY:"):
			if sev, ok := parseSeverity(line[len("SEVERITY:"):]); ok {
				severitySeen = true
				out.Severity = sev
			}
		}
	}

	if !verdictSeen {
		first := strings.ToUpper(firstLine(answer))
		out.Vulnerable = !strings.Contains(first, "NOT VULNERABLE") &&
			strings.Contains(first, "VULNERABLE")
	}
	if !severitySeen {
		if out.Vulnerable {
			out.Severity = analysis.SeverityMedium
		} else {
			out.Severity = analysis.SeverityLow
		}
	}
	return out
}

func parseSeverity(s string) (analysis.Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return analysis.SeverityCritical, true
	case "high":
		return analysis.SeverityHigh, true
	case "medium":
		return analysis.SeverityMedium, true
	case "low":
		return analysis.SeverityLow, true
	}
	return "", false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
