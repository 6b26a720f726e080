package telemetry

import "testing"

func TestSafeAttributesFiltersSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(map[string]interface{}{
		"query_text":    "SELECT * FROM users WHERE id = '1' OR '1'='1'",
		"api_key":       "sk-secret",
		"tier":          "tier1_tier2",
		"score":         int(80),
		"vulnerable":    true,
		"unsupported":   struct{}{},
		"sources_count": int64(3),
	})

	for _, a := range attrs {
		switch string(a.Key) {
		case "query_text", "api_key", "unsupported":
			t.Fatalf("unsafe key leaked: %s", a.Key)
		}
	}
	if len(attrs) != 4 {
		t.Fatalf("expected 4 safe attributes, got %d", len(attrs))
	}
}
