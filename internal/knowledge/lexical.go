package knowledge

import "strings"

// lexicalScore is a fuzzy term-overlap measure in [0,1]. It counts query
// terms that appear in the document (whole or as a prefix of a longer
// token) and normalizes by query term count, so short queries are not
// drowned out by long documents.
func lexicalScore(query, content string) float64 {
	qTerms := tokenize(query)
	if len(qTerms) == 0 {
		return 0
	}
	dTerms := tokenize(content)
	if len(dTerms) == 0 {
		return 0
	}

	index := make(map[string]bool, len(dTerms))
	for _, t := range dTerms {
		index[t] = true
	}

	hits := 0
	for _, q := range qTerms {
		if index[q] {
			hits++
			continue
		}
		if len(q) >= 4 {
			for _, d := range dTerms {
				if strings.HasPrefix(d, q) || strings.HasPrefix(q, d) {
					hits++
					break
				}
			}
		}
	}
	return float64(hits) / float64(len(qTerms))
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '_')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}
