package knowledge

import (
	"context"
	"sort"
	"sync"

	"github.com/querywarden/querywarden/internal/provider"
	"github.com/querywarden/querywarden/internal/redact"
)

// Mode selects the ranking strategy.
type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
	ModeLexical  Mode = "lexical"
)

// Source labels in search results.
const (
	SourceStore    = "store"
	SourceInMemory = "in_memory"
)

// Options narrows one search. Zero values take retriever defaults; a
// negative ScoreThreshold disables score filtering entirely.
type Options struct {
	K              int
	ScoreThreshold float64
	SourceFilter   string // "", "store" or "in_memory"
	Mode           Mode
}

// Config carries retrieval tuning.
type Config struct {
	DefaultK         int
	DefaultThreshold float64
	HybridWeight     float64 // lexical share in hybrid mode
	ChunkSize        int
	ChunkOverlap     int
}

// Hit is one ranked result.
type Hit struct {
	Document Document
	Score    float64
	Source   string
}

// Retriever performs hybrid search over the static corpus, documents
// ingested without a store, and the injected store. A nil store means
// knowledge-base-only mode; that is an explicit configuration choice,
// not an accident of initialization.
type Retriever struct {
	embedder provider.Embedder
	store    Store
	cfg      Config

	mu        sync.RWMutex
	corpus    []Document // builtin + ingested-without-store, stable order
	checksums map[string]bool
	dim       int // embedding dimension, fixed once observed
	warmed    bool
}

// NewRetriever builds a retriever over the builtin corpus. store may be nil.
func NewRetriever(embedder provider.Embedder, store Store, cfg Config) *Retriever {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = 5
	}
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = 0.1
	}
	if cfg.HybridWeight <= 0 || cfg.HybridWeight >= 1 {
		cfg.HybridWeight = 0.3
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 50
	}
	return &Retriever{
		embedder:  embedder,
		store:     store,
		cfg:       cfg,
		corpus:    builtinCorpus(),
		checksums: make(map[string]bool),
	}
}

// Warm embeds the static corpus. Best effort: failures leave the corpus
// lexical-only and are logged, never returned as fatal.
func (r *Retriever) Warm(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.warmed || r.embedder == nil {
		return
	}
	for i := range r.corpus {
		if len(r.corpus[i].Embedding) > 0 {
			continue
		}
		vec, err := r.embedder.Embed(ctx, r.corpus[i].Content)
		if err != nil {
			redact.Logf("knowledge: corpus warm aborted at %s: %v", r.corpus[i].ID, err)
			return
		}
		if r.dim == 0 {
			r.dim = len(vec)
		}
		r.corpus[i].Embedding = vec
	}
	r.warmed = true
}

// Search returns ranked hits: descending score, length <= k, every score
// >= threshold, ties broken by stable document order. An empty corpus
// yields an empty slice, never an error; an embedding failure degrades to
// lexical mode over the in-memory corpus.
func (r *Retriever) Search(ctx context.Context, query string, opts Options) []Hit {
	k := opts.K
	if k <= 0 {
		k = r.cfg.DefaultK
	}
	threshold := opts.ScoreThreshold
	if threshold == 0 {
		threshold = r.cfg.DefaultThreshold
	} else if threshold < 0 {
		threshold = 0
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeHybrid
	}

	if mode != ModeLexical && r.embedder != nil {
		if vec, err := r.embedder.Embed(ctx, query); err == nil {
			return r.rank(ctx, query, vec, mode, k, threshold, opts.SourceFilter)
		} else {
			redact.Logf("knowledge: query embedding failed, falling back to lexical: %v", err)
		}
	}
	return r.lexicalOnly(query, k, threshold, opts.SourceFilter)
}

// rank scores in-memory and store candidates with semantic or blended
// relevance.
func (r *Retriever) rank(ctx context.Context, query string, vec []float32, mode Mode, k int, threshold float64, sourceFilter string) []Hit {
	r.mu.RLock()
	if r.dim == 0 {
		r.mu.RUnlock()
		r.mu.Lock()
		if r.dim == 0 {
			r.dim = len(vec)
		}
		r.mu.Unlock()
		r.mu.RLock()
	}
	dim := r.dim
	corpus := r.corpus
	r.mu.RUnlock()

	if len(vec) != dim {
		// Provider changed dimensions mid-flight; treat vector math as
		// unusable for this query rather than comparing garbage.
		redact.Logf("knowledge: embedding dimension mismatch (got %d, want %d), using lexical", len(vec), dim)
		return r.lexicalOnly(query, k, threshold, sourceFilter)
	}

	var hits []Hit
	if sourceFilter == "" || sourceFilter == SourceInMemory {
		for _, d := range corpus {
			if len(d.Embedding) == 0 {
				continue
			}
			if len(d.Embedding) != dim {
				redact.Logf("knowledge: skipping %s: stored dimension %d != %d", d.ID, len(d.Embedding), dim)
				continue
			}
			hits = append(hits, Hit{Document: d, Score: Cosine(vec, d.Embedding), Source: SourceInMemory})
		}
	}
	if r.store != nil && (sourceFilter == "" || sourceFilter == SourceStore) {
		scored, err := r.store.Similar(ctx, vec, k*4)
		if err != nil {
			redact.Logf("knowledge: store search failed, continuing with in-memory only: %v", err)
		} else {
			for _, s := range scored {
				hits = append(hits, Hit{Document: s.Document, Score: s.Score, Source: SourceStore})
			}
		}
	}

	if mode == ModeHybrid {
		w := r.cfg.HybridWeight
		for i := range hits {
			lex := lexicalScore(query, hits[i].Document.Content)
			hits[i].Score = hits[i].Score*(1-w) + lex*w
		}
	}
	return topK(hits, k, threshold)
}

func (r *Retriever) lexicalOnly(query string, k int, threshold float64, sourceFilter string) []Hit {
	if sourceFilter == SourceStore {
		return nil
	}
	r.mu.RLock()
	corpus := r.corpus
	r.mu.RUnlock()

	var hits []Hit
	for _, d := range corpus {
		hits = append(hits, Hit{Document: d, Score: lexicalScore(query, d.Content), Source: SourceInMemory})
	}
	return topK(hits, k, threshold)
}

func topK(hits []Hit, k int, threshold float64) []Hit {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	out := hits[:0]
	for _, h := range hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
		if len(out) == k {
			break
		}
	}
	return out
}

// CorpusSize reports how many documents are searchable in memory.
func (r *Retriever) CorpusSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.corpus)
}
