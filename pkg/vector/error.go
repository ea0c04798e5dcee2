package vector

import "errors"

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when an index or embedding backend cannot be reached.
	ErrConnection = errors.New("vector backend connection failed")

	// ErrDimensionMismatch is returned when embeddings of different lengths
	// are mixed in one index or query.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptyEmbedding is returned when a provider hands back a zero-length vector.
	ErrEmptyEmbedding = errors.New("empty embedding")
)
