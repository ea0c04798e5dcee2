// Package memory provides a brute-force, in-process vector.Index.
package memory

import (
	"context"
	"fmt"

	"github.com/papercomputeco/overlap/pkg/vector"
)

// Index scores every stored embedding on each query. Embeddings are copied on
// construction and never written again.
type Index struct {
	embeddings [][]float32
	dimensions int
}

// NewIndex builds an index over embeddings; position i in the slice is the
// corpus index reported in hits.
func NewIndex(embeddings [][]float32) (*Index, error) {
	idx := &Index{
		embeddings: make([][]float32, len(embeddings)),
	}

	for i, emb := range embeddings {
		if len(emb) == 0 {
			return nil, fmt.Errorf("%w: entry %d", vector.ErrEmptyEmbedding, i)
		}
		if idx.dimensions == 0 {
			idx.dimensions = len(emb)
		}
		if len(emb) != idx.dimensions {
			return nil, fmt.Errorf("%w: entry %d has %d dimensions, expected %d",
				vector.ErrDimensionMismatch, i, len(emb), idx.dimensions)
		}

		cp := make([]float32, len(emb))
		copy(cp, emb)
		idx.embeddings[i] = cp
	}

	return idx, nil
}

// Query implements vector.Index.
func (m *Index) Query(ctx context.Context, embedding []float32, k int) ([]vector.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k = vector.ClampK(k, len(m.embeddings))
	if k == 0 {
		return []vector.Hit{}, nil
	}

	if len(embedding) != m.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			vector.ErrDimensionMismatch, len(embedding), m.dimensions)
	}

	hits := make([]vector.Hit, len(m.embeddings))
	for i, emb := range m.embeddings {
		hits[i] = vector.Hit{Index: i, Score: vector.Cosine(embedding, emb)}
	}

	return vector.TopK(hits, k), nil
}

// Len implements vector.Index.
func (m *Index) Len() int {
	return len(m.embeddings)
}

// Close implements vector.Index.
func (m *Index) Close() error {
	return nil
}

var _ vector.Index = (*Index)(nil)
