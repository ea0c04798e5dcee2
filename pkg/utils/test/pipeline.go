package testutils

import (
	"context"

	"github.com/onsi/gomega"

	"github.com/papercomputeco/overlap/pkg/corpus"
	"github.com/papercomputeco/overlap/pkg/embeddings"
	"github.com/papercomputeco/overlap/pkg/scoring"
	"github.com/papercomputeco/overlap/pkg/vector/memory"
)

// NewTestPipeline indexes c with embedder into a memory index and returns a
// pipeline over it. opts adjust the config before construction.
func NewTestPipeline(embedder embeddings.Embedder, c *corpus.Corpus, opts ...func(*scoring.Config)) *scoring.Pipeline {
	vecs, err := embedder.EmbedBatch(context.Background(), c.Texts())
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	idx, err := memory.NewIndex(vecs)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	cfg := &scoring.Config{Embedder: embedder, Index: idx, Corpus: c}
	for _, o := range opts {
		o(cfg)
	}

	p, err := scoring.NewPipeline(cfg)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return p
}
