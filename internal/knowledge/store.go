// Package knowledge implements hybrid lexical/semantic retrieval over an
// injected document store plus a static in-memory exploit-knowledge corpus.
package knowledge

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Metadata classifies a knowledge document.
type Metadata struct {
	Type     string `json:"type"`
	Severity string `json:"severity,omitempty"`
	Category string `json:"category,omitempty"`
}

// Document is one stored knowledge record. Embedding is immutable once
// computed; Checksum is the dedup key for the ingest that produced it.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
	Meta      Metadata  `json:"meta"`
	Checksum  string    `json:"checksum,omitempty"`
}

// Scored pairs a document with a normalized similarity score.
type Scored struct {
	Document Document
	Score    float64
}

// Store is the injected document store. Implementations must be safe for
// concurrent use and must skip records whose embedding dimension differs
// from the query vector rather than failing the whole search.
type Store interface {
	Put(ctx context.Context, docs []Document) error
	HasChecksum(ctx context.Context, checksum string) (bool, error)
	Similar(ctx context.Context, embedding []float32, k int) ([]Scored, error)
	// Delete removes every document ingested under name, checksums included.
	Delete(ctx context.Context, name string) error
	Count(ctx context.Context) (int, error)
}

// InMemoryStore keeps documents in process memory, ordered by insertion so
// tie-breaking stays stable.
type InMemoryStore struct {
	mu        sync.RWMutex
	docs      []Document
	checksums map[string]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{checksums: make(map[string]bool)}
}

func (s *InMemoryStore) Put(ctx context.Context, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.docs = append(s.docs, d)
		if d.Checksum != "" {
			s.checksums[d.Checksum] = true
		}
	}
	return nil
}

func (s *InMemoryStore) HasChecksum(ctx context.Context, checksum string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checksums[checksum], nil
}

func (s *InMemoryStore) Similar(ctx context.Context, embedding []float32, k int) ([]Scored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Scored
	for _, d := range s.docs {
		if len(d.Embedding) == 0 || len(d.Embedding) != len(embedding) {
			continue
		}
		out = append(out, Scored{Document: d, Score: Cosine(embedding, d.Embedding)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.docs[:0]
	for _, d := range s.docs {
		if d.Name == name {
			delete(s.checksums, d.Checksum)
			continue
		}
		kept = append(kept, d)
	}
	s.docs = kept
	return nil
}

func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// Cosine computes cosine similarity, zero for mismatched or empty vectors.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
