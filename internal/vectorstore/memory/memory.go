package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"policyqa/internal/domain"
	"policyqa/internal/vectorstore"
)

type entry struct {
	id       string
	vector   []float64
	norm     float64
	document string
	metadata domain.Metadata
}

// Storage is an in-memory vector store using brute-force cosine similarity.
// Queries may run concurrently with each other; writes take an exclusive lock.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry
	byID      map[string]int
}

func NewStorage() *Storage { return &Storage{byID: make(map[string]int)} }

// Init sets the vector dimension and drops any stored entries.
func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.entries = nil
	s.byID = make(map[string]int)
	return nil
}

// Add appends entries. An id already stored by an earlier call is skipped,
// so the first write wins.
func (s *Storage) Add(_ context.Context, ids []string, vectors [][]float64, documents []string, metadatas []domain.Metadata) error {
	if err := vectorstore.ValidateBatch(ids, vectors, documents, metadatas); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("%w: got %d, expected %d", vectorstore.ErrDimensionMismatch, len(v), s.dimension)
		}
	}
	for i, id := range ids {
		if _, ok := s.byID[id]; ok {
			continue
		}
		vec := make([]float64, len(vectors[i]))
		copy(vec, vectors[i])
		s.byID[id] = len(s.entries)
		s.entries = append(s.entries, entry{
			id:       id,
			vector:   vec,
			norm:     l2(vec),
			document: documents[i],
			metadata: metadatas[i],
		})
	}
	return nil
}

// Query returns up to k ids by descending cosine similarity. Equal scores keep
// insertion order.
func (s *Storage) Query(_ context.Context, vector []float64, k int) ([]vectorstore.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.entries) == 0 {
		return nil, nil
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, expected %d", vectorstore.ErrDimensionMismatch, len(vector), s.dimension)
	}
	qnorm := l2(vector)
	matches := make([]vectorstore.Match, len(s.entries))
	for i, e := range s.entries {
		matches[i] = vectorstore.Match{ID: e.id, Score: cosine(vector, qnorm, e.vector, e.norm)}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Count returns the number of stored entries.
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Document returns the stored text and metadata for id.
func (s *Storage) Document(id string) (string, domain.Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return "", domain.Metadata{}, false
	}
	return s.entries[i].document, s.entries[i].metadata, true
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.byID = make(map[string]int)
	return nil
}

func l2(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// cosine treats a zero vector as orthogonal to everything.
func cosine(a []float64, anorm float64, b []float64, bnorm float64) float64 {
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (anorm * bnorm)
}
