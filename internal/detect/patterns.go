package detect

import (
	"regexp"

	"github.com/querywarden/querywarden/internal/analysis"
)

// Pattern categories. Categories drive routing, recommendations and the
// multi-vector scan filters, so they are stable identifiers.
const (
	CategoryBooleanTautology = "boolean_tautology"
	CategoryUnion            = "union_based"
	CategoryComment          = "comment_injection"
	CategoryTimeBased        = "time_based"
	CategoryErrorBased       = "error_based"
	CategoryDestructive      = "destructive_statement"
	CategoryCommand          = "command_injection"
	CategoryTraversal        = "path_traversal"
	CategoryXSS              = "xss"
	CategoryGeneric          = "generic_suspicious"
)

// Pattern is one immutable signature. The severity tag is assigned here at
// construction time, never derived from the matcher text.
type Pattern struct {
	ID          string
	Matcher     *regexp.Regexp
	Category    string
	Severity    analysis.Severity
	Weight      int
	Description string
}

// defaultPatterns returns the ordered signature set. Order is part of the
// contract: earlier entries report first and break score ties in scan mode.
func defaultPatterns() []Pattern {
	return []Pattern{
		{
			ID:          "sql-destructive",
			Matcher:     regexp.MustCompile(`(?i)(;\s*(drop|delete|truncate|alter|shutdown)\b|\bdrop\s+(table|database)\b|\btruncate\s+table\b)`),
			Category:    CategoryDestructive,
			Severity:    analysis.SeverityCritical,
			Weight:      40,
			Description: "stacked or destructive statement",
		},
		{
			ID:          "sql-union",
			Matcher:     regexp.MustCompile(`(?i)\bunion(\s+all)?\s+select\b`),
			Category:    CategoryUnion,
			Severity:    analysis.SeverityCritical,
			Weight:      35,
			Description: "UNION-based data extraction",
		},
		{
			ID:          "sql-tautology",
			Matcher:     regexp.MustCompile(`(?i)(\b(or|and)\s+['"]?\d+['"]?\s*=\s*['"]?\d+|'\s*or\s+'[^']*'\s*=\s*')`),
			Category:    CategoryBooleanTautology,
			Severity:    analysis.SeverityHigh,
			Weight:      30,
			Description: "boolean tautology bypassing a predicate",
		},
		{
			ID:          "cmd-injection",
			Matcher:     regexp.MustCompile("(?i)(;\\s*(rm|cat|wget|curl|bash|sh|powershell)\\b|\\|\\s*(rm|cat|nc)\\b|\\$\\(|`)"),
			Category:    CategoryCommand,
			Severity:    analysis.SeverityCritical,
			Weight:      25,
			Description: "shell command injection",
		},
		{
			ID:          "path-traversal",
			Matcher:     regexp.MustCompile(`(?i)(\.\./|\.\.\\|%2e%2e%2f|/etc/passwd|c:\\windows)`),
			Category:    CategoryTraversal,
			Severity:    analysis.SeverityHigh,
			Weight:      25,
			Description: "path traversal sequence",
		},
		{
			ID:          "sql-comment",
			Matcher:     regexp.MustCompile(`(--|#|/\*)`),
			Category:    CategoryComment,
			Severity:    analysis.SeverityMedium,
			Weight:      20,
			Description: "comment sequence truncating the statement",
		},
		{
			ID:          "sql-time-based",
			Matcher:     regexp.MustCompile(`(?i)\b(sleep\s*\(|benchmark\s*\(|waitfor\s+delay|pg_sleep\s*\()`),
			Category:    CategoryTimeBased,
			Severity:    analysis.SeverityHigh,
			Weight:      20,
			Description: "time-based blind probe",
		},
		{
			ID:          "xss-markup",
			Matcher:     regexp.MustCompile(`(?i)(<script\b|javascript:|onerror\s*=|onload\s*=)`),
			Category:    CategoryXSS,
			Severity:    analysis.SeverityHigh,
			Weight:      20,
			Description: "script or event-handler markup",
		},
		{
			ID:          "sql-error-based",
			Matcher:     regexp.MustCompile(`(?i)\b(extractvalue\s*\(|updatexml\s*\(|cast\s*\(|convert\s*\()`),
			Category:    CategoryErrorBased,
			Severity:    analysis.SeverityMedium,
			Weight:      15,
			Description: "error-based extraction function",
		},
		{
			ID:          "sql-generic",
			Matcher:     regexp.MustCompile(`(?i)(\binformation_schema\b|\bsysobjects\b|@@version|\bexec(ute)?\s)`),
			Category:    CategoryGeneric,
			Severity:    analysis.SeverityLow,
			Weight:      10,
			Description: "suspicious metadata or execution keyword",
		},
	}
}

// dialectPatterns returns engine-specific dangerous primitives. Unknown
// dialects map to nil, which keeps Analyze on generic checks only.
func dialectPatterns() map[string][]Pattern {
	return map[string][]Pattern{
		"mysql": {
			{
				ID:          "mysql-file-io",
				Matcher:     regexp.MustCompile(`(?i)\b(load_file\s*\(|into\s+(out|dump)file\b)`),
				Category:    CategoryDestructive,
				Severity:    analysis.SeverityCritical,
				Weight:      25,
				Description: "MySQL file read/write primitive",
			},
		},
		"postgresql": {
			{
				ID:          "pg-exec",
				Matcher:     regexp.MustCompile(`(?i)(\bpg_read_file\s*\(|\bcopy\b.+\bfrom\s+program\b|\blo_import\s*\()`),
				Category:    CategoryCommand,
				Severity:    analysis.SeverityCritical,
				Weight:      25,
				Description: "PostgreSQL file or program execution primitive",
			},
		},
		"mssql": {
			{
				ID:          "mssql-cmdshell",
				Matcher:     regexp.MustCompile(`(?i)\b(xp_cmdshell|sp_executesql|openrowset)\b`),
				Category:    CategoryCommand,
				Severity:    analysis.SeverityCritical,
				Weight:      25,
				Description: "MSSQL command execution primitive",
			},
		},
	}
}
