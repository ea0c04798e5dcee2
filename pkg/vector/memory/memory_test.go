package memory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/overlap/pkg/vector"
	"github.com/papercomputeco/overlap/pkg/vector/memory"
)

var _ = Describe("Index", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("NewIndex", func() {
		It("rejects mixed dimensions", func() {
			_, err := memory.NewIndex([][]float32{{1, 0}, {1, 0, 0}})
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("rejects empty embeddings", func() {
			_, err := memory.NewIndex([][]float32{{1, 0}, {}})
			Expect(err).To(MatchError(vector.ErrEmptyEmbedding))
		})

		It("copies its input", func() {
			emb := [][]float32{{1, 0}}
			idx, err := memory.NewIndex(emb)
			Expect(err).NotTo(HaveOccurred())

			emb[0][0] = -1
			hits, err := idx.Query(ctx, []float32{1, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits[0].Score).To(BeNumerically("~", 1.0, 1e-6))
		})
	})

	Describe("Query", func() {
		var idx *memory.Index

		BeforeEach(func() {
			var err error
			idx, err = memory.NewIndex([][]float32{
				{0, 1},   // 0: orthogonal to query
				{1, 0},   // 1: identical to query
				{1, 1},   // 2: 45 degrees
				{2, 0},   // 3: identical direction, ties with 1
				{-1, 0},  // 4: opposite
				{1, 0.5}, // 5: close
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("reports its size", func() {
			Expect(idx.Len()).To(Equal(6))
		})

		It("returns hits ordered by score with ties on lower index first", func() {
			hits, err := idx.Query(ctx, []float32{1, 0}, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(4))

			indices := []int{hits[0].Index, hits[1].Index, hits[2].Index, hits[3].Index}
			Expect(indices).To(Equal([]int{1, 3, 5, 2}))
			Expect(hits[0].Score).To(Equal(hits[1].Score))
		})

		It("clamps k to the index size", func() {
			hits, err := idx.Query(ctx, []float32{1, 0}, 50)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(6))
			Expect(hits[5].Index).To(Equal(4))
			Expect(hits[5].Score).To(BeNumerically("~", -1.0, 1e-6))
		})

		It("returns an empty result for k = 0", func() {
			hits, err := idx.Query(ctx, []float32{1, 0}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(BeEmpty())
		})

		It("rejects a query with the wrong dimensions", func() {
			_, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("honors a cancelled context", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := idx.Query(cctx, []float32{1, 0}, 2)
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("empty index", func() {
		It("returns an empty result instead of erroring", func() {
			idx, err := memory.NewIndex(nil)
			Expect(err).NotTo(HaveOccurred())

			hits, err := idx.Query(ctx, []float32{1, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(BeEmpty())
		})
	})
})
