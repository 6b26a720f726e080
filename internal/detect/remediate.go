package detect

import "regexp"

// Recommendation text is keyed by category so output stays deterministic
// for a given set of matches.
const (
	recParameterize   = "Use parameterized queries or prepared statements instead of string concatenation"
	recValidate       = "Validate and allow-list user-supplied input before it reaches the query layer"
	recLeastPrivilege = "Run database accounts with least privilege; deny DDL to application users"
	recWAF            = "Deploy WAF rules covering SQL injection and command execution signatures"
	recAuditLog       = "Enable query audit logging to capture injection attempts"
	recEncodeOutput   = "Encode output and apply a Content-Security-Policy to block script injection"
)

var categoryRecommendations = map[string][]string{
	CategoryBooleanTautology: {recParameterize, recValidate},
	CategoryUnion:            {recParameterize, recValidate},
	CategoryComment:          {recParameterize, recValidate},
	CategoryTimeBased:        {recParameterize, recWAF},
	CategoryErrorBased:       {recParameterize, recWAF},
	CategoryDestructive:      {recLeastPrivilege, recAuditLog},
	CategoryCommand:          {recValidate, recLeastPrivilege},
	CategoryTraversal:        {recValidate},
	CategoryXSS:              {recEncodeOutput, recValidate},
	CategoryGeneric:          {recAuditLog},
}

// recommendations maps matched categories to remediation advice, first
// occurrence wins so ordering follows the pattern set.
func recommendations(categories []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range categories {
		for _, rec := range categoryRecommendations[c] {
			if _, ok := seen[rec]; ok {
				continue
			}
			seen[rec] = struct{}{}
			out = append(out, rec)
		}
	}
	return out
}

var (
	stringLiteralRe   = regexp.MustCompile(`'[^']*'`)
	numericLiteralRe  = regexp.MustCompile(`(=\s*)\d+(\.\d+)?`)
	stackedTailRe     = regexp.MustCompile(`(?i);\s*(drop|delete|truncate|alter|insert|update|shutdown)\b.*$`)
	trailingCommentRe = regexp.MustCompile(`(--|#).*$`)
)

// secureAlternative rewrites the query with positional placeholders and
// drops any stacked destructive tail. It is advisory text, not executable
// SQL for every engine.
func secureAlternative(query string) string {
	out := stackedTailRe.ReplaceAllString(query, "")
	out = trailingCommentRe.ReplaceAllString(out, "")
	out = stringLiteralRe.ReplaceAllString(out, "?")
	out = numericLiteralRe.ReplaceAllString(out, "${1}?")
	return out
}
