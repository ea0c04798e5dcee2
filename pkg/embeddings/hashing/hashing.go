// Package hashing implements a deterministic, in-process Embedder based on
// signed feature hashing of word unigrams and character trigrams. It needs no
// model download or network and is the default provider for tests and offline
// runs.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/papercomputeco/overlap/pkg/embeddings"
)

const (
	// DefaultDimensions matches all-MiniLM-L6-v2 so indexes can be swapped
	// between providers without reconfiguring dimensions.
	DefaultDimensions = 384

	wordWeight    = 1.0
	trigramWeight = 0.5
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// Embedder hashes features into a fixed number of buckets. It holds no
// mutable state, so it is safe for concurrent use.
type Embedder struct {
	dimensions int
}

// NewEmbedder creates a hashing embedder. Zero dimensions selects
// DefaultDimensions.
func NewEmbedder(dimensions uint) *Embedder {
	d := int(dimensions)
	if d <= 0 {
		d = DefaultDimensions
	}
	return &Embedder{dimensions: d}
}

// Dimensions reports the vector length produced by Embed.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Embed returns the L2-normalized feature vector for text. Text without any
// characters yields the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vectorize(text), nil
}

// EmbedBatch embeds each text in order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vectorize(t)
	}
	return out, nil
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

func (e *Embedder) vectorize(text string) []float32 {
	acc := make([]float64, e.dimensions)
	lower := strings.ToLower(text)

	tokens := tokenPattern.FindAllString(lower, -1)
	for _, tok := range tokens {
		e.add(acc, "w:"+tok, wordWeight)
		for _, tri := range trigrams(" " + tok + " ") {
			e.add(acc, "c:"+tri, trigramWeight)
		}
	}

	// punctuation or symbols only: fall back to raw character shingles
	if len(tokens) == 0 {
		if s := strings.TrimSpace(lower); s != "" {
			for _, tri := range trigrams(" " + s + " ") {
				e.add(acc, "c:"+tri, trigramWeight)
			}
		}
	}

	return normalize(acc)
}

// add accumulates weight into the feature's bucket; the sign comes from a
// separate hash bit so collisions tend to cancel instead of pile up.
func (e *Embedder) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()

	bucket := int(sum % uint64(len(acc)))
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

func trigrams(s string) []string {
	runes := []rune(s)
	if len(runes) < 3 {
		return []string{s}
	}

	out := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		out = append(out, string(runes[i:i+3]))
	}
	return out
}

func normalize(acc []float64) []float32 {
	var norm float64
	for _, v := range acc {
		norm += v * v
	}

	out := make([]float32, len(acc))
	if norm == 0 {
		return out
	}

	norm = math.Sqrt(norm)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out
}

var _ embeddings.Embedder = (*Embedder)(nil)
