// Package bootstrap assembles the long-lived components shared by the API
// server and the local CLI commands: embedder, corpus, similarity index, event
// publisher and scoring pipeline.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/papercomputeco/overlap/pkg/config"
	"github.com/papercomputeco/overlap/pkg/corpus"
	"github.com/papercomputeco/overlap/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/overlap/pkg/embeddings/utils"
	"github.com/papercomputeco/overlap/pkg/eventstream"
	"github.com/papercomputeco/overlap/pkg/eventstream/kafka"
	"github.com/papercomputeco/overlap/pkg/eventstream/nop"
	"github.com/papercomputeco/overlap/pkg/scoring"
	"github.com/papercomputeco/overlap/pkg/vector"
	vectorutils "github.com/papercomputeco/overlap/pkg/vector/utils"
	"github.com/papercomputeco/overlap/pkg/worker"
)

// StepFunc runs fn as a named startup step, e.g. behind a spinner.
type StepFunc func(msg string, fn func() error) error

// Option configures New.
type Option func(*options)

type options struct {
	step       StepFunc
	skipCorpus bool
}

// WithStep wraps each startup step.
func WithStep(step StepFunc) Option {
	return func(o *options) { o.step = step }
}

// WithoutCorpus skips corpus loading and indexing. The pipeline can still
// compare texts; checks return no matches.
func WithoutCorpus() Option {
	return func(o *options) { o.skipCorpus = true }
}

// Runtime holds the assembled components. Close releases them in reverse
// order of construction.
type Runtime struct {
	Embedder  embeddings.Embedder
	Corpus    *corpus.Corpus
	Index     vector.Index
	Publisher eventstream.Publisher
	Pipeline  *scoring.Pipeline

	// Device is reported by the status probe.
	Device string

	closers []io.Closer
}

// New builds a Runtime from cfg. The corpus is loaded once here and the index
// is never modified afterwards.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (rt *Runtime, err error) {
	o := &options{
		step: func(_ string, fn func() error) error { return fn() },
	}
	for _, opt := range opts {
		opt(o)
	}

	timeout, err := cfg.Embedding.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	rt = &Runtime{Device: embeddingutils.Device(cfg.Embedding.Provider)}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	rt.Embedder, err = embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
		ProviderType:  cfg.Embedding.Provider,
		TargetURL:     cfg.Embedding.Target,
		Model:         cfg.Embedding.Model,
		APIKey:        cfg.Embedding.APIKey,
		Dimensions:    cfg.Embedding.Dimensions,
		CacheAddr:     cfg.Cache.RedisAddr,
		CachePassword: cfg.Cache.RedisPassword,
		CacheDB:       cfg.Cache.RedisDB,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	rt.closers = append(rt.closers, rt.Embedder)

	rt.Corpus, err = corpus.New()
	if err != nil {
		return nil, err
	}
	if !o.skipCorpus {
		err = o.step("Loading corpus", func() error {
			var err error
			rt.Corpus, err = loadCorpus(ctx, cfg, logger)
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	err = o.step(fmt.Sprintf("Indexing %d documents", rt.Corpus.Len()), func() error {
		var err error
		rt.Index, err = vectorutils.NewIndex(ctx, &vectorutils.NewIndexOpts{
			ProviderType: cfg.Index.Provider,
			Embedder:     rt.Embedder,
			Texts:        rt.Corpus.Texts(),
			BatchSize:    int(cfg.Embedding.BatchSize),
			Logger:       logger,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	rt.closers = append(rt.closers, rt.Index)

	rt.Publisher, err = NewPublisher(cfg.Events, logger)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, rt.Publisher)

	rt.Pipeline, err = scoring.NewPipeline(&scoring.Config{
		Embedder:  rt.Embedder,
		Index:     rt.Index,
		Corpus:    rt.Corpus,
		Timeout:   timeout,
		Publisher: rt.Publisher,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("runtime ready",
		"embedding_provider", cfg.Embedding.Provider,
		"index_provider", cfg.Index.Provider,
		"documents", rt.Corpus.Len(),
		"fallback_corpus", rt.Corpus.IsFallback(),
		"device", rt.Device,
	)

	return rt, nil
}

// NewPublisher returns a Kafka publisher behind an async worker pool when
// brokers are configured, and a no-op publisher otherwise.
func NewPublisher(c config.EventsConfig, logger *slog.Logger) (eventstream.Publisher, error) {
	if len(c.KafkaBrokers) == 0 {
		return nop.NewPublisher(), nil
	}

	backend, err := kafka.NewPublisher(kafka.Config{
		Brokers:  c.KafkaBrokers,
		Topic:    c.KafkaTopic,
		ClientID: "overlap",
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	pool, err := worker.NewPool(&worker.Config{Publisher: backend, Logger: logger})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	logger.Info("publishing check events", "brokers", c.KafkaBrokers, "topic", c.KafkaTopic)
	return pool, nil
}

func loadCorpus(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*corpus.Corpus, error) {
	sources, err := corpus.ParseSources(cfg.Corpus.Sources, corpus.StorageConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Region:    cfg.Storage.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("parsing corpus sources: %w", err)
	}

	return corpus.NewLoader(logger, sources...).Load(ctx)
}

// Close releases every component, draining queued events first.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
