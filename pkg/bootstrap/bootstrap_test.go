package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/overlap/pkg/bootstrap"
	"github.com/papercomputeco/overlap/pkg/config"
	"github.com/papercomputeco/overlap/pkg/eventstream/nop"
	"github.com/papercomputeco/overlap/pkg/logger"
	"github.com/papercomputeco/overlap/pkg/worker"
)

var _ = Describe("New", func() {
	var (
		ctx    context.Context
		cfg    *config.Config
		tmpDir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()

		csv := "title,text\n" +
			"Go,Go is an open source programming language.\n" +
			"Rust,Rust is a systems programming language.\n" +
			"Empty,   \n"
		Expect(os.WriteFile(filepath.Join(tmpDir, "articles.csv"), []byte(csv), 0o600)).To(Succeed())

		cfg = config.NewDefaultConfig()
		cfg.Corpus.Sources = []string{
			filepath.Join(tmpDir, "articles.csv"),
			filepath.Join(tmpDir, "missing.csv"),
		}
	})

	It("loads the corpus and serves checks", func() {
		var steps []string
		rt, err := bootstrap.New(ctx, cfg, logger.Nop(), bootstrap.WithStep(func(msg string, fn func() error) error {
			steps = append(steps, msg)
			return fn()
		}))
		Expect(err).NotTo(HaveOccurred())
		defer rt.Close()

		Expect(steps).To(Equal([]string{"Loading corpus", "Indexing 2 documents"}))
		Expect(rt.Corpus.Names()).To(Equal([]string{"Go", "Rust"}))
		Expect(rt.Index.Len()).To(Equal(2))
		Expect(rt.Device).To(Equal("cpu"))
		Expect(rt.Publisher).To(BeAssignableToTypeOf(&nop.Publisher{}))

		res, err := rt.Pipeline.Check(ctx, "Go is an open source programming language.")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Results).To(HaveLen(2))
		Expect(res.Results[0].DocumentName).To(Equal("Go"))
		Expect(res.Results[0].Similarity).To(BeNumerically(">=", 99))
	})

	It("falls back to the placeholder corpus when nothing loads", func() {
		cfg.Corpus.Sources = []string{filepath.Join(tmpDir, "missing.csv")}

		rt, err := bootstrap.New(ctx, cfg, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		defer rt.Close()

		Expect(rt.Corpus.IsFallback()).To(BeTrue())
		Expect(rt.Index.Len()).To(Equal(2))
	})

	It("builds the sqlite index backend", func() {
		cfg.Index.Provider = "sqlite"

		rt, err := bootstrap.New(ctx, cfg, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		defer rt.Close()

		res, err := rt.Pipeline.Check(ctx, "Rust is a systems programming language.")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Results[0].DocumentName).To(Equal("Rust"))
	})

	It("skips the corpus for compare-only runtimes", func() {
		rt, err := bootstrap.New(ctx, cfg, logger.Nop(), bootstrap.WithoutCorpus())
		Expect(err).NotTo(HaveOccurred())
		defer rt.Close()

		Expect(rt.Corpus.Len()).To(BeZero())

		cmp, err := rt.Pipeline.Compare(ctx, "same text", "same text")
		Expect(err).NotTo(HaveOccurred())
		Expect(cmp.Similarity).To(BeNumerically(">=", 99))

		res, err := rt.Pipeline.Check(ctx, "anything")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Results).To(BeEmpty())
		Expect(res.AverageScore).To(BeZero())
	})

	It("rejects unknown providers", func() {
		cfg.Embedding.Provider = "telepathy"
		_, err := bootstrap.New(ctx, cfg, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unsupported embedding provider")))

		cfg.Embedding.Provider = "hashing"
		cfg.Index.Provider = "faiss"
		_, err = bootstrap.New(ctx, cfg, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unsupported index provider")))
	})

	It("rejects an invalid embedding timeout", func() {
		cfg.Embedding.Timeout = "soon"
		_, err := bootstrap.New(ctx, cfg, logger.Nop())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewPublisher", func() {
	It("is a no-op without brokers", func() {
		p, err := bootstrap.NewPublisher(config.EventsConfig{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("queues events for Kafka when brokers are set", func() {
		p, err := bootstrap.NewPublisher(config.EventsConfig{
			KafkaBrokers: []string{"localhost:9092"},
			KafkaTopic:   "checks",
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&worker.Pool{}))
		Expect(p.Close()).To(Succeed())
	})

	It("requires a topic", func() {
		_, err := bootstrap.NewPublisher(config.EventsConfig{KafkaBrokers: []string{"localhost:9092"}}, logger.Nop())
		Expect(err).To(HaveOccurred())
	})
})
