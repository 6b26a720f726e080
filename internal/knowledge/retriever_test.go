package knowledge

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/querywarden/querywarden/internal/provider"
)

func TestSearchRespectsKAndThreshold(t *testing.T) {
	r := NewRetriever(&provider.FakeEmbedder{Dimension: 16}, nil, Config{})
	r.Warm(context.Background())

	hits := r.Search(context.Background(), "union select information_schema injection", Options{K: 5})
	if len(hits) > 5 {
		t.Fatalf("expected <= 5 hits, got %d", len(hits))
	}
	for i, h := range hits {
		if h.Score < 0.1 {
			t.Fatalf("hit %d below default threshold: %f", i, h.Score)
		}
		if i > 0 && hits[i-1].Score < h.Score {
			t.Fatalf("hits not sorted descending at %d: %f < %f", i, hits[i-1].Score, h.Score)
		}
	}
}

func TestSearchEmptyCorpusReturnsEmpty(t *testing.T) {
	r := NewRetriever(&provider.FakeEmbedder{Dimension: 8}, nil, Config{})
	r.corpus = nil

	hits := r.Search(context.Background(), "union select", Options{})
	if len(hits) != 0 {
		t.Fatalf("expected no hits from empty corpus, got %d", len(hits))
	}
}

func TestSearchEmbeddingFailureFallsBackToLexical(t *testing.T) {
	r := NewRetriever(&provider.FakeEmbedder{Err: errors.New("provider down")}, nil, Config{})

	hits := r.Search(context.Background(), "tautology OR 1=1 bypass authentication", Options{K: 3, Mode: ModeSemantic})
	if len(hits) == 0 {
		t.Fatalf("expected lexical fallback hits")
	}
	for _, h := range hits {
		if h.Source != SourceInMemory {
			t.Fatalf("lexical fallback must stay in-memory, got %s", h.Source)
		}
	}
}

func TestSearchLexicalRanksTermOverlapFirst(t *testing.T) {
	r := NewRetriever(nil, nil, Config{})
	hits := r.Search(context.Background(), "union select information_schema", Options{K: 1, Mode: ModeLexical})
	if len(hits) != 1 {
		t.Fatalf("expected one hit, got %d", len(hits))
	}
	if hits[0].Document.ID != "kb-union" {
		t.Fatalf("expected kb-union first, got %s", hits[0].Document.ID)
	}
}

func TestSearchSkipsMismatchedDimensions(t *testing.T) {
	r := NewRetriever(&provider.FakeEmbedder{Dimension: 8}, nil, Config{})
	r.Warm(context.Background())
	r.corpus = append(r.corpus, Document{
		ID: "kb-bad-dim", Name: "bad", Content: "union select content",
		Embedding: make([]float32, 4),
	})

	hits := r.Search(context.Background(), "union select", Options{K: 20, Mode: ModeSemantic, ScoreThreshold: 0.0001})
	for _, h := range hits {
		if h.Document.ID == "kb-bad-dim" {
			t.Fatalf("mismatched-dimension document was scored")
		}
	}
}

func TestIngestDeduplicatesByChecksum(t *testing.T) {
	r := NewRetriever(&provider.FakeEmbedder{Dimension: 8}, nil, Config{ChunkSize: 50, ChunkOverlap: 10})

	first, err := r.Ingest(context.Background(), "advisory-1", "payload catalogue for union select probes and sleep timing", "advisory")
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.Deduped || first.Chunks == 0 {
		t.Fatalf("unexpected first receipt: %+v", first)
	}
	before := r.CorpusSize()

	second, err := r.Ingest(context.Background(), "advisory-1-copy", "payload catalogue for union select probes and sleep timing", "advisory")
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Deduped {
		t.Fatalf("expected deduped=true on identical content")
	}
	if r.CorpusSize() != before {
		t.Fatalf("dedup created documents: %d -> %d", before, r.CorpusSize())
	}
}

func TestIngestRejectsEmptyContent(t *testing.T) {
	r := NewRetriever(nil, nil, Config{})
	if _, err := r.Ingest(context.Background(), "x", "   ", "advisory"); err == nil {
		t.Fatalf("expected input error for empty content")
	}
}

func TestChunkOverlaps(t *testing.T) {
	pieces := chunk("alpha bravo charlie delta echo foxtrot golf hotel india juliet", 20, 5)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(pieces))
	}
	for _, p := range pieces {
		if len(p) > 25 {
			t.Fatalf("chunk exceeds size+overlap bound: %q", p)
		}
	}
}

func TestChunkTerminatesOnLongUnbrokenToken(t *testing.T) {
	content := strings.Repeat("a", 60) + " " + strings.Repeat("b", 600)

	done := make(chan []string, 1)
	go func() { done <- chunk(content, 500, 50) }()

	var pieces []string
	select {
	case pieces = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("chunk did not terminate on a token longer than the chunk size")
	}

	if len(pieces) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(pieces))
	}
	covered := 0
	for _, p := range pieces {
		covered += strings.Count(p, "b")
	}
	if covered < 600 {
		t.Fatalf("long token not fully covered: %d of 600 bytes", covered)
	}
}

func TestSearchNegativeThresholdDisablesFiltering(t *testing.T) {
	r := NewRetriever(nil, nil, Config{})

	filtered := r.Search(context.Background(), "zzzz qqqq", Options{K: 3, Mode: ModeLexical})
	if len(filtered) != 0 {
		t.Fatalf("expected default threshold to drop zero-score hits, got %d", len(filtered))
	}

	all := r.Search(context.Background(), "zzzz qqqq", Options{K: 3, Mode: ModeLexical, ScoreThreshold: -1})
	if len(all) != 3 {
		t.Fatalf("expected 3 unfiltered hits, got %d", len(all))
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kb.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	docs := []Document{
		{ID: "d1", Name: "a", Content: "union select", Embedding: []float32{1, 0, 0}, Checksum: "c1"},
		{ID: "d2", Name: "a", Content: "sleep timing", Embedding: []float32{0, 1, 0}, Checksum: "c1"},
		{ID: "d3", Name: "b", Content: "mismatched", Embedding: []float32{1, 0}, Checksum: "c2"},
	}
	if err := store.Put(context.Background(), docs); err != nil {
		t.Fatalf("put: %v", err)
	}

	if dup, err := store.HasChecksum(context.Background(), "c1"); err != nil || !dup {
		t.Fatalf("expected checksum c1 present, dup=%v err=%v", dup, err)
	}

	scored, err := store.Similar(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("expected 2 candidates (mismatched dim skipped), got %d", len(scored))
	}
	if scored[0].Document.ID != "d1" {
		t.Fatalf("expected d1 ranked first, got %s", scored[0].Document.ID)
	}

	if err := store.Delete(context.Background(), "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	n, err := store.Count(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("expected 1 document after delete, got %d (err=%v)", n, err)
	}
}

func TestCosineHandlesDegenerateVectors(t *testing.T) {
	if got := Cosine(nil, nil); got != 0 {
		t.Fatalf("expected 0 for empty vectors, got %f", got)
	}
	if got := Cosine([]float32{1, 2}, []float32{1}); got != 0 {
		t.Fatalf("expected 0 for mismatched vectors, got %f", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Fatalf("expected ~1 for identical vectors, got %f", got)
	}
}
