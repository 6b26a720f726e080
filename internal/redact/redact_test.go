package redact

import (
	"strings"
	"testing"
)

func TestStringRedactsBearerToken(t *testing.T) {
	out := String("Authorization: Bearer sk-abc123def456")
	if strings.Contains(out, "sk-abc123def456") {
		t.Fatalf("token survived redaction: %q", out)
	}
}

func TestStringRedactsAPIKey(t *testing.T) {
	out := String("api_key=super-secret-value-42")
	if strings.Contains(out, "super-secret-value-42") {
		t.Fatalf("api key survived redaction: %q", out)
	}
}

func TestStringLeavesPlainTextAlone(t *testing.T) {
	in := "analyzed 3 queries in 12ms"
	if out := String(in); out != in {
		t.Fatalf("plain text modified: %q", out)
	}
}

func TestSnippetTruncates(t *testing.T) {
	out := Snippet(strings.Repeat("a", 200), 40)
	if len(out) != 43 {
		t.Fatalf("expected 43 chars, got %d", len(out))
	}
	if !strings.HasSuffix(out, "...") {
		t.Fatalf("expected ellipsis suffix: %q", out)
	}
}

func TestSnippetFlattensNewlines(t *testing.T) {
	out := Snippet("line1\nline2", 100)
	if strings.Contains(out, "\n") {
		t.Fatalf("newline survived: %q", out)
	}
}
