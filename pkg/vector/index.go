// Package vector provides the read-only similarity index built once over the
// corpus embeddings, plus the cosine and ranking primitives its backends share.
package vector

import (
	"context"
	"math"
	"sort"
)

// Hit is one query match: the position of a corpus entry and its similarity
// score (higher = more similar).
type Hit struct {
	Index int
	Score float32
}

// Index answers top-k nearest-neighbor queries over a fixed set of embeddings.
// Implementations expose no mutation after construction, so a single Index is
// safe to share across concurrent requests.
type Index interface {
	// Query returns at most min(k, Len()) hits ordered by descending score,
	// ties broken by ascending corpus index. k <= 0 yields an empty result.
	Query(ctx context.Context, embedding []float32, k int) ([]Hit, error)

	// Len is the number of indexed embeddings.
	Len() int

	// Close releases any resources held by the index.
	Close() error
}

// Cosine returns the cosine similarity of a and b in [-1, 1]. Vectors of
// different length, empty vectors and zero vectors score 0.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// rounding can push identical vectors a hair past 1
	return float32(math.Max(-1, math.Min(1, sim)))
}

// SortHits orders hits by descending score, then ascending index.
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Index < hits[j].Index
	})
}

// TopK sorts hits with SortHits and returns the first k of them.
func TopK(hits []Hit, k int) []Hit {
	if k <= 0 {
		return []Hit{}
	}

	SortHits(hits)
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// Floor raises negative scores to zero in place and returns hits.
func Floor(hits []Hit) []Hit {
	for i := range hits {
		hits[i].Score = max(0, hits[i].Score)
	}
	return hits
}

// ClampK bounds a requested k by the index size.
func ClampK(k, size int) int {
	if k > size {
		return size
	}
	if k < 0 {
		return 0
	}
	return k
}
