package embedding

import (
	"context"
	"errors"
)

// ErrNotPrepared is returned by embedders that need a corpus before they can
// encode anything.
var ErrNotPrepared = errors.New("embedder not prepared")

// Embedder converts free text into fixed-length numeric vectors. The same
// instance must embed both documents and queries so they share one space.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Encode(ctx context.Context, texts []string) ([][]float64, error)
}

// EncodeOne embeds a single text.
func EncodeOne(ctx context.Context, e Embedder, text string) ([]float64, error) {
	vecs, err := e.Encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, errors.New("embedder returned no vector")
	}
	return vecs[0], nil
}
