package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"policyqa/internal/domain"
)

var (
	// ErrDimensionMismatch is returned when a vector does not match the
	// dimension the store was initialised with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrDuplicateID is returned when one Add batch repeats an id.
	ErrDuplicateID = errors.New("duplicate id in batch")
)

// Match is one ranked hit returned by Query.
type Match struct {
	ID    string
	Score float64
}

// Storage holds passage vectors with their documents and metadata and answers
// nearest-neighbour queries ranked by cosine similarity.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Add(ctx context.Context, ids []string, vectors [][]float64, documents []string, metadatas []domain.Metadata) error
	Query(ctx context.Context, vector []float64, k int) ([]Match, error)
	Count() int
	Clear(ctx context.Context) error
}

// ValidateBatch checks the parallel slices passed to Add and rejects ids
// repeated within the batch.
func ValidateBatch(ids []string, vectors [][]float64, documents []string, metadatas []domain.Metadata) error {
	if len(ids) != len(vectors) || len(ids) != len(documents) || len(ids) != len(metadatas) {
		return fmt.Errorf("batch length mismatch: %d ids, %d vectors, %d documents, %d metadatas",
			len(ids), len(vectors), len(documents), len(metadatas))
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
