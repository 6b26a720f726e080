package analyst

import (
	"strings"

	"github.com/querywarden/querywarden/internal/analysis"
	"github.com/querywarden/querywarden/internal/knowledge"
)

const separator = "\n\n---\n\n"

// Assemble concatenates the content of ranked hits into one context block,
// highest-ranked first, stopping before a document would push the block past
// budget characters. Only document content goes into the block; scores and
// metadata stay out of the prompt. It returns the block plus attributions
// for the documents actually included.
func Assemble(hits []knowledge.Hit, budget int) (string, []analysis.SearchResult) {
	if budget <= 0 {
		return "", nil
	}
	var (
		b       strings.Builder
		sources []analysis.SearchResult
	)
	for _, h := range hits {
		content := strings.TrimSpace(h.Document.Content)
		if content == "" {
			continue
		}
		need := len(content)
		if b.Len() > 0 {
			need += len(separator)
		}
		if b.Len()+need > budget {
			break
		}
		if b.Len() > 0 {
			b.WriteString(separator)
		}
		b.WriteString(content)
		sources = append(sources, analysis.SearchResult{
			DocumentID: h.Document.ID,
			Name:       h.Document.Name,
			Content:    content,
			Score:      h.Score,
			Source:     h.Source,
		})
	}
	return b.String(), sources
}
