package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/querywarden/querywarden/internal/analysis"
	"github.com/querywarden/querywarden/internal/redact"
)

// Ingest splits content into fixed-size overlapping chunks, embeds them
// and stores them. Identical content (by checksum) is a no-op with
// deduped=true. Embedding failures leave chunks lexical-only; ingestion
// itself does not fail when the provider is down.
func (r *Retriever) Ingest(ctx context.Context, name, content, docType string) (analysis.IngestReceipt, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return analysis.IngestReceipt{}, analysis.NewError(analysis.CodeInput, "empty document content", nil)
	}

	sum := sha256.Sum256([]byte(content))
	checksum := hex.EncodeToString(sum[:])

	if dup, err := r.hasChecksum(ctx, checksum); err != nil {
		return analysis.IngestReceipt{}, err
	} else if dup {
		return analysis.IngestReceipt{Deduped: true}, nil
	}

	pieces := chunk(content, r.cfg.ChunkSize, r.cfg.ChunkOverlap)
	docs := make([]Document, 0, len(pieces))
	for i, piece := range pieces {
		doc := Document{
			ID:       chunkID(name, checksum, i),
			Name:     name,
			Content:  piece,
			Meta:     Metadata{Type: docType},
			Checksum: checksum,
		}
		if r.embedder != nil {
			vec, err := r.embedder.Embed(ctx, piece)
			if err != nil {
				redact.Logf("knowledge: embedding chunk %d of %s failed, storing lexical-only: %v", i, name, err)
			} else if err := r.checkDimension(vec); err != nil {
				redact.Logf("knowledge: %v", err)
			} else {
				doc.Embedding = vec
			}
		}
		docs = append(docs, doc)
	}

	if r.store != nil {
		if err := r.store.Put(ctx, docs); err != nil {
			return analysis.IngestReceipt{}, analysis.NewError(analysis.CodeProviderUnavailable, "document store put", err)
		}
	} else {
		// Knowledge-base-only mode: documents live in process memory.
		r.mu.Lock()
		r.corpus = append(r.corpus, docs...)
		r.checksums[checksum] = true
		r.mu.Unlock()
	}
	return analysis.IngestReceipt{Chunks: len(docs)}, nil
}

func (r *Retriever) hasChecksum(ctx context.Context, checksum string) (bool, error) {
	if r.store != nil {
		dup, err := r.store.HasChecksum(ctx, checksum)
		if err != nil {
			return false, analysis.NewError(analysis.CodeProviderUnavailable, "document store checksum lookup", err)
		}
		return dup, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checksums[checksum], nil
}

// checkDimension records the first observed dimension and rejects later
// vectors that disagree with it.
func (r *Retriever) checkDimension(vec []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dim == 0 {
		r.dim = len(vec)
		return nil
	}
	if len(vec) != r.dim {
		return analysis.NewError(analysis.CodeInternalInconsistency,
			fmt.Sprintf("embedding dimension %d differs from established %d", len(vec), r.dim), nil)
	}
	return nil
}

// chunk splits text into overlapping pieces, breaking on word boundaries
// where possible.
func chunk(content string, size, overlap int) []string {
	var out []string
	start := 0
	for start < len(content) {
		end := start + size
		if end > len(content) {
			end = len(content)
		}
		if end < len(content) {
			if cut := strings.LastIndex(content[start:end], " "); cut > 0 {
				end = start + cut
			}
		}
		piece := strings.TrimSpace(content[start:end])
		if piece != "" {
			out = append(out, piece)
		}
		if end >= len(content) {
			break
		}
		// The overlap step must strictly advance or a long unbroken token
		// would pin the window in place forever.
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

func chunkID(name, checksum string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", name, checksum, index)))
	return hex.EncodeToString(h[:8])
}
