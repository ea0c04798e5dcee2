package scoring_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/overlap/pkg/corpus"
	"github.com/papercomputeco/overlap/pkg/embeddings/hashing"
	"github.com/papercomputeco/overlap/pkg/eventstream"
	"github.com/papercomputeco/overlap/pkg/scoring"
	testutils "github.com/papercomputeco/overlap/pkg/utils/test"
	"github.com/papercomputeco/overlap/pkg/vector"
	"github.com/papercomputeco/overlap/pkg/vector/memory"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []*eventstream.CheckCompletedEvent
	err    error
}

func (c *capturePublisher) PublishCheck(_ context.Context, e *eventstream.CheckCompletedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return c.err
}

func (c *capturePublisher) Close() error { return nil }

var _ = Describe("Pipeline", func() {
	var (
		ctx      context.Context
		embedder *testutils.MockEmbedder
		docs     *corpus.Corpus
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		embedder.Embeddings = map[string][]float32{
			"orthogonal":     {0, 1},
			"exact":          {1, 0},
			"diagonal":       {1, 1},
			"exact again":    {1, 0},
			"opposite":       {-1, 0},
			"diagonal again": {1, 1},
			"close":          {2, 1},
			"query":          {1, 0},
		}
		docs = testutils.NewTestCorpus(
			"doc0", "orthogonal",
			"doc1", "exact",
			"doc2", "diagonal",
			"doc3", "exact again",
			"doc4", "opposite",
			"doc5", "diagonal again",
			"doc6", "close",
		)
	})

	Describe("NewPipeline", func() {
		It("rejects an index that does not match the corpus", func() {
			idx, err := memory.NewIndex([][]float32{{1, 0}})
			Expect(err).NotTo(HaveOccurred())

			_, err = scoring.NewPipeline(&scoring.Config{Embedder: embedder, Index: idx, Corpus: docs})
			Expect(err).To(HaveOccurred())
		})

		It("requires an embedder", func() {
			_, err := scoring.NewPipeline(&scoring.Config{Corpus: docs})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Check", func() {
		It("returns at most TopK results ordered by score then corpus index", func() {
			p := testutils.NewTestPipeline(embedder, docs)

			res, err := p.Check(ctx, "query")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Results).To(HaveLen(scoring.TopK))

			names := make([]string, len(res.Results))
			for i, r := range res.Results {
				names[i] = r.DocumentName
			}
			Expect(names).To(Equal([]string{"doc1", "doc3", "doc6", "doc2", "doc5"}))

			Expect(res.Results[0].Similarity).To(BeNumerically("~", 100, 1e-4))
			Expect(res.Results[0].Similarity).To(Equal(res.Results[1].Similarity))
			Expect(res.Results[3].Similarity).To(Equal(res.Results[4].Similarity))
			for i := 1; i < len(res.Results); i++ {
				Expect(res.Results[i].Similarity).To(BeNumerically("<=", res.Results[i-1].Similarity))
			}
		})

		It("never returns more results than the corpus holds", func() {
			small := testutils.NewTestCorpus("a", "exact", "b", "orthogonal")
			p := testutils.NewTestPipeline(embedder, small)

			res, err := p.Check(ctx, "query")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Results).To(HaveLen(2))
		})

		It("averages exactly the returned similarities", func() {
			p := testutils.NewTestPipeline(embedder, docs)

			res, err := p.Check(ctx, "query")
			Expect(err).NotTo(HaveOccurred())

			var sum float64
			for _, r := range res.Results {
				sum += r.Similarity
			}
			Expect(res.AverageScore).To(Equal(sum / float64(len(res.Results))))
		})

		It("always ends previews with an ellipsis after at most 150 characters", func() {
			long := strings.Repeat("é", 200)
			embedder.Embeddings[long] = []float32{1, 0}
			c := testutils.NewTestCorpus("long", long, "short", "exact")
			p := testutils.NewTestPipeline(embedder, c)

			res, err := p.Check(ctx, "query")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Results).To(HaveLen(2))

			Expect(res.Results[0].DocumentName).To(Equal("long"))
			Expect(res.Results[0].PreviewText).To(Equal(strings.Repeat("é", 150) + "..."))
			Expect(res.Results[1].PreviewText).To(Equal("exact..."))

			for _, r := range res.Results {
				Expect(r.PreviewText).To(HaveSuffix(scoring.Ellipsis))
				body := strings.TrimSuffix(r.PreviewText, scoring.Ellipsis)
				Expect(len([]rune(body))).To(BeNumerically("<=", scoring.PreviewLength))
			}
		})

		It("floors negative scores at zero", func() {
			c := testutils.NewTestCorpus("opposite", "opposite", "orthogonal", "orthogonal")
			p := testutils.NewTestPipeline(embedder, c)

			res, err := p.Check(ctx, "query")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Results).To(HaveLen(2))
			Expect(res.Results[0].DocumentName).To(Equal("opposite"))
			Expect(res.Results[1].DocumentName).To(Equal("orthogonal"))
			for _, r := range res.Results {
				Expect(r.Similarity).To(BeNumerically(">=", 0))
			}
			Expect(res.AverageScore).To(BeZero())
		})

		It("ranks floored ties by corpus index across the whole index", func() {
			// six documents score 0 after flooring; the raw order would put
			// the orthogonal ones (index 3 and up) ahead of the opposites
			c := testutils.NewTestCorpus(
				"neg0", "opposite",
				"neg1", "opposite",
				"neg2", "opposite",
				"zero3", "orthogonal",
				"zero4", "orthogonal",
				"zero5", "orthogonal",
			)
			p := testutils.NewTestPipeline(embedder, c)

			res, err := p.Check(ctx, "query")
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, len(res.Results))
			for i, r := range res.Results {
				names[i] = r.DocumentName
				Expect(r.Similarity).To(BeZero())
			}
			Expect(names).To(Equal([]string{"neg0", "neg1", "neg2", "zero3", "zero4"}))
		})

		It("reports a query of the wrong dimension as a provider failure", func() {
			embedder.Embeddings["short query"] = []float32{1}
			p := testutils.NewTestPipeline(embedder, docs)

			_, err := p.Check(ctx, "short query")
			Expect(err).To(MatchError(scoring.ErrProviderFailure))
			Expect(err).To(MatchError(vector.ErrDimensionMismatch))
		})

		It("returns a zero average and no results for an empty index", func() {
			empty, err := corpus.New()
			Expect(err).NotTo(HaveOccurred())
			p := testutils.NewTestPipeline(embedder, empty)

			res, err := p.Check(ctx, "query")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.AverageScore).To(BeZero())
			Expect(res.Results).NotTo(BeNil())
			Expect(res.Results).To(BeEmpty())
		})

		DescribeTable("rejects blank text without calling the provider",
			func(text string) {
				p := testutils.NewTestPipeline(embedder, docs)
				before := embedder.Calls()

				_, err := p.Check(ctx, text)
				Expect(err).To(MatchError(scoring.ErrEmptyInput))
				Expect(errors.Is(err, scoring.ErrInvalidInput)).To(BeTrue())
				Expect(embedder.Calls()).To(Equal(before))
			},
			Entry("empty", ""),
			Entry("spaces", "   "),
			Entry("mixed whitespace", "\n\t \r\n"),
		)

		It("surfaces provider errors as ProviderFailure with the cause", func() {
			p := testutils.NewTestPipeline(embedder, docs)
			embedder.Err = errors.New("model exploded")

			_, err := p.Check(ctx, "query")
			Expect(err).To(MatchError(scoring.ErrProviderFailure))
			Expect(err.Error()).To(ContainSubstring("model exploded"))
			Expect(errors.Is(err, scoring.ErrProviderTimeout)).To(BeFalse())
		})

		It("times out slow provider calls", func() {
			p := testutils.NewTestPipeline(embedder, docs, func(c *scoring.Config) { c.Timeout = 20 * time.Millisecond })
			embedder.Delay = 5 * time.Second

			start := time.Now()
			_, err := p.Check(ctx, "query")
			Expect(err).To(MatchError(scoring.ErrProviderTimeout))
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
		})

		It("publishes a check event carrying the request id", func() {
			pub := &capturePublisher{}
			p := testutils.NewTestPipeline(embedder, docs, func(c *scoring.Config) { c.Publisher = pub })

			res, err := p.Check(scoring.WithRequestID(ctx, "req-42"), "query")
			Expect(err).NotTo(HaveOccurred())

			Expect(pub.events).To(HaveLen(1))
			event := pub.events[0]
			Expect(event.RequestID).To(Equal("req-42"))
			Expect(event.AverageScore).To(Equal(res.AverageScore))
			Expect(event.Matches).To(HaveLen(len(res.Results)))
			Expect(event.Matches[0].DocumentName).To(Equal("doc1"))
			Expect(event.Corpus.Size).To(Equal(docs.Len()))
		})

		It("does not fail the check when publishing fails", func() {
			pub := &capturePublisher{err: errors.New("broker down")}
			p := testutils.NewTestPipeline(embedder, docs, func(c *scoring.Config) { c.Publisher = pub })

			_, err := p.Check(ctx, "query")
			Expect(err).NotTo(HaveOccurred())
			Expect(pub.events).To(HaveLen(1))
		})

		It("serves concurrent checks against the shared index", func() {
			p := testutils.NewTestPipeline(embedder, docs)

			var wg sync.WaitGroup
			errs := make(chan error, 16)
			for range 16 {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					res, err := p.Check(ctx, "query")
					if err == nil && res.Results[0].DocumentName != "doc1" {
						err = errors.New("unexpected order")
					}
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}
		})
	})

	Describe("Compare", func() {
		It("scores identical texts near 100 with a real embedder", func() {
			e := hashing.NewEmbedder(0)
			idx, err := memory.NewIndex(nil)
			Expect(err).NotTo(HaveOccurred())
			empty, err := corpus.New()
			Expect(err).NotTo(HaveOccurred())

			p, err := scoring.NewPipeline(&scoring.Config{Embedder: e, Index: idx, Corpus: empty})
			Expect(err).NotTo(HaveOccurred())

			for _, text := range []string{"a", "The quick brown fox jumps over the lazy dog."} {
				res, err := p.Compare(ctx, text, text)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.Similarity).To(BeNumerically(">=", 99))
				Expect(res.Similarity).To(BeNumerically("<=", 100))
			}
		})

		It("uses a single provider call for both texts", func() {
			p := testutils.NewTestPipeline(embedder, docs)
			before := embedder.Calls()

			res, err := p.Compare(ctx, "exact", "diagonal")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Similarity).To(BeNumerically("~", 70.71, 0.01))
			Expect(embedder.Calls()).To(Equal(before + 1))
		})

		It("floors anti-similar texts at zero", func() {
			p := testutils.NewTestPipeline(embedder, docs)

			res, err := p.Compare(ctx, "exact", "opposite")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Similarity).To(BeZero())
		})

		DescribeTable("rejects blank input without calling the provider",
			func(a, b string) {
				p := testutils.NewTestPipeline(embedder, docs)
				before := embedder.Calls()

				_, err := p.Compare(ctx, a, b)
				Expect(err).To(MatchError(scoring.ErrEmptyInput))
				Expect(embedder.Calls()).To(Equal(before))
			},
			Entry("first empty", "", "anything"),
			Entry("second empty", "anything", ""),
			Entry("both whitespace", " ", "\t"),
		)

		It("maps provider failures", func() {
			p := testutils.NewTestPipeline(embedder, docs)
			embedder.FailOn = "boom"

			_, err := p.Compare(ctx, "fine", "boom")
			Expect(err).To(MatchError(scoring.ErrProviderFailure))
			Expect(err.Error()).To(ContainSubstring("mock embedding failure for: boom"))
		})

		It("times out slow provider calls", func() {
			p := testutils.NewTestPipeline(embedder, docs, func(c *scoring.Config) { c.Timeout = 10 * time.Millisecond })
			embedder.Delay = 5 * time.Second

			_, err := p.Compare(ctx, "a", "b")
			Expect(err).To(MatchError(scoring.ErrProviderTimeout))
		})
	})

	Describe("Percentage", func() {
		It("floors negatives and scales to 100", func() {
			Expect(scoring.Percentage(-0.5)).To(BeZero())
			Expect(scoring.Percentage(0.5)).To(Equal(50.0))
			Expect(scoring.Percentage(1)).To(Equal(100.0))
		})
	})

	Describe("Preview", func() {
		It("appends the ellipsis to short texts", func() {
			Expect(scoring.Preview("hi")).To(Equal("hi..."))
			Expect(scoring.Preview("")).To(Equal("..."))
		})
	})
})
