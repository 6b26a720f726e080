package detect

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/querywarden/querywarden/internal/analysis"
)

func TestAnalyzeTautologyIsVulnerable(t *testing.T) {
	e := NewEngine()
	res := e.Analyze(analysis.Query{Text: `SELECT name FROM users WHERE pass = '' OR '1'='1'`})
	if !res.Vulnerable {
		t.Fatalf("expected vulnerable=true, score=%d", res.Score)
	}
	if res.Score <= VulnerableThreshold {
		t.Fatalf("expected score > %d, got %d", VulnerableThreshold, res.Score)
	}
	if !containsCategory(res.DetectedPatterns, CategoryBooleanTautology) {
		t.Fatalf("expected tautology category, got %v", res.DetectedPatterns)
	}
}

func TestAnalyzeCleanQueryScoresZero(t *testing.T) {
	e := NewEngine()
	res := e.Analyze(analysis.Query{Text: "show me last month sales figures"})
	if res.Score != 0 {
		t.Fatalf("expected score 0, got %d", res.Score)
	}
	if res.Vulnerable {
		t.Fatalf("expected vulnerable=false")
	}
	if len(res.Recommendations) != 0 {
		t.Fatalf("expected no recommendations, got %v", res.Recommendations)
	}
}

func TestAnalyzeClassicInjectionEndToEnd(t *testing.T) {
	e := NewEngine()
	res := e.Analyze(analysis.Query{Text: `SELECT * FROM users WHERE id = '1' OR '1'='1' --`})
	if res.Score < 50 {
		t.Fatalf("expected score >= 50, got %d", res.Score)
	}
	if !res.Vulnerable {
		t.Fatalf("expected vulnerable=true")
	}
	if !containsCategory(res.DetectedPatterns, CategoryBooleanTautology) {
		t.Fatalf("missing tautology category: %v", res.DetectedPatterns)
	}
	if !containsCategory(res.DetectedPatterns, CategoryComment) {
		t.Fatalf("missing comment category: %v", res.DetectedPatterns)
	}
	if res.SecureAlternative == "" {
		t.Fatalf("expected a secure alternative at score %d", res.Score)
	}
}

func TestAnalyzeScoreCappedAtHundred(t *testing.T) {
	e := NewEngine()
	q := `'; DROP TABLE users; -- UNION SELECT 1 OR 1=1 sleep(5) xp_cmdshell ../../etc/passwd <script>`
	res := e.Analyze(analysis.Query{Text: q, Dialect: "mssql"})
	if res.Score != 100 {
		t.Fatalf("expected capped score 100, got %d", res.Score)
	}
}

func TestAnalyzeDialectAddsWeight(t *testing.T) {
	e := NewEngine()
	q := "SELECT load_file('/etc/hosts')"
	generic := e.Analyze(analysis.Query{Text: q})
	mysql := e.Analyze(analysis.Query{Text: q, Dialect: "mysql"})
	if mysql.Score <= generic.Score {
		t.Fatalf("expected mysql dialect to add weight: generic=%d mysql=%d", generic.Score, mysql.Score)
	}
}

func TestAnalyzeUnknownDialectFallsBackToGeneric(t *testing.T) {
	e := NewEngine()
	q := "SELECT * FROM t WHERE a = 1 OR 1=1"
	base := e.Analyze(analysis.Query{Text: q})
	odd := e.Analyze(analysis.Query{Text: q, Dialect: "cobolql"})
	if base.Score != odd.Score {
		t.Fatalf("unknown dialect changed score: %d vs %d", base.Score, odd.Score)
	}
}

func TestSecureAlternativeStripsStackedTail(t *testing.T) {
	out := secureAlternative("SELECT * FROM users WHERE name = 'bob'; DROP TABLE users")
	if strings.Contains(strings.ToLower(out), "drop table") {
		t.Fatalf("stacked tail survived: %q", out)
	}
	if !strings.Contains(out, "?") {
		t.Fatalf("expected placeholder substitution: %q", out)
	}
}

func TestRecommendationsAreDeduplicated(t *testing.T) {
	recs := recommendations([]string{CategoryBooleanTautology, CategoryUnion, CategoryComment})
	seen := map[string]int{}
	for _, r := range recs {
		seen[r]++
		if seen[r] > 1 {
			t.Fatalf("duplicate recommendation %q", r)
		}
	}
}

func TestScanXSSOnlyReportsXSS(t *testing.T) {
	e := NewEngine()
	report := e.Scan(`<script>alert(1)</script> OR 1=1`, ScanXSS)
	for _, f := range report.Findings {
		if f.Category != CategoryXSS {
			t.Fatalf("xss scan leaked category %s", f.Category)
		}
	}
	if len(report.Findings) == 0 {
		t.Fatalf("expected xss finding")
	}
}

func TestScanComprehensiveScoresBySeverityTable(t *testing.T) {
	e := NewEngine()
	report := e.Scan("admin' OR 1=1 --", ScanComprehensive)
	want := 0
	for _, f := range report.Findings {
		want += severityWeights[f.Severity]
	}
	if want > 100 {
		want = 100
	}
	if report.Score != want {
		t.Fatalf("score %d does not match severity table sum %d", report.Score, want)
	}
}

func TestTruncateMatchKeepsRuneBoundary(t *testing.T) {
	got := truncateMatch(strings.Repeat("a", 59) + "世界")
	if !utf8.ValidString(got) {
		t.Fatalf("truncated match is not valid UTF-8: %q", got)
	}
	if got != strings.Repeat("a", 59) {
		t.Fatalf("expected cut at the rune boundary, got %q", got)
	}
}

func TestPatternIDsAreUnique(t *testing.T) {
	e := NewEngine()
	seen := map[string]bool{}
	for _, p := range e.Patterns() {
		if seen[p.ID] {
			t.Fatalf("duplicate pattern id %s", p.ID)
		}
		seen[p.ID] = true
	}
}

func containsCategory(cats []string, want string) bool {
	for _, c := range cats {
		if c == want {
			return true
		}
	}
	return false
}
