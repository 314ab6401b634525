package memory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"lsa/internal/domain"
)

// Storage is an in-memory vector index using brute-force cosine similarity.
// Vectors are L2-normalised on insert so a dot product is the cosine.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	docs      []domain.Document
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.docs = nil
	return nil
}

func (s *Storage) Upsert(docs []domain.Document, vectors [][]float64) error {
	if len(docs) != len(vectors) {
		return errors.New("documents and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	normed := make([][]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector dimension %d, want %d", len(v), s.dimension)
		}
		normed[i] = unit(v)
	}
	s.docs = append(s.docs, docs...)
	s.vectors = append(s.vectors, normed...)
	return nil
}

// Search returns the topK most similar documents, ties broken by insertion
// order. A zero query scores every document 0.
func (s *Storage) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("query dimension %d, want %d", len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 5
	}
	q := unit(vector)
	scores := make([]float64, len(s.vectors))
	for i, v := range s.vectors {
		scores[i] = floats.Dot(v, q)
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	topK = min(topK, len(idxs))
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.SearchResult{Document: s.docs[j], Score: scores[j]})
	}
	return results, nil
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func unit(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	if n := floats.Norm(out, 2); n > 0 {
		floats.Scale(1/n, out)
	}
	return out
}
