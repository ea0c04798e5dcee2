// Package embeddings defines the text → vector capability the scoring pipeline
// depends on. Concrete providers live in subpackages.
package embeddings

import "context"

// Embedder provides text embedding capabilities. Implementations must be safe
// for concurrent use: the API server calls Embed from many requests at once.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts texts into embeddings, returned in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
