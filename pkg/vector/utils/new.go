// Package vectorutils builds a vector.Index from corpus texts.
package vectorutils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/overlap/pkg/embeddings"
	"github.com/papercomputeco/overlap/pkg/vector"
	"github.com/papercomputeco/overlap/pkg/vector/memory"
	"github.com/papercomputeco/overlap/pkg/vector/sqlitevec"
)

const defaultBatchSize = 64

// NewIndexOpts configures NewIndex.
type NewIndexOpts struct {
	// ProviderType selects the backend: "memory" or "sqlite".
	ProviderType string

	// Embedder encodes Texts. Required.
	Embedder embeddings.Embedder

	// Texts are the corpus texts in corpus order.
	Texts []string

	// BatchSize caps the number of texts sent in one EmbedBatch call.
	BatchSize int

	Logger *slog.Logger
}

// NewIndex encodes every text and loads the vectors into the selected backend.
func NewIndex(ctx context.Context, o *NewIndexOpts) (vector.Index, error) {
	if o.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if o.Logger == nil {
		return nil, errors.New("logger is required")
	}

	// validate before spending time on embeddings
	switch o.ProviderType {
	case "memory", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported index provider: %s", o.ProviderType)
	}

	vecs, err := EmbedAll(ctx, o.Embedder, o.Texts, o.BatchSize, o.Logger)
	if err != nil {
		return nil, err
	}

	if o.ProviderType == "sqlite" {
		return sqlitevec.NewIndex(ctx, sqlitevec.Config{}, vecs, o.Logger)
	}
	return memory.NewIndex(vecs)
}

// EmbedAll encodes texts in batches and returns one vector per text, in order.
func EmbedAll(ctx context.Context, e embeddings.Embedder, texts []string, batchSize int, logger *slog.Logger) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))

		vecs, err := e.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding corpus texts %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts",
				vector.ErrEmbedding, len(vecs), end-start)
		}

		out = append(out, vecs...)
		logger.Debug("embedded corpus batch", "done", end, "total", len(texts))
	}

	return out, nil
}
