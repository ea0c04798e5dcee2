// Package scoring turns embeddings into user-facing similarity results. It
// provides the pairwise compare path and the corpus check path.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/overlap/pkg/corpus"
	"github.com/papercomputeco/overlap/pkg/embeddings"
	"github.com/papercomputeco/overlap/pkg/eventstream"
	"github.com/papercomputeco/overlap/pkg/logger"
	"github.com/papercomputeco/overlap/pkg/utils"
	"github.com/papercomputeco/overlap/pkg/vector"
)

const (
	// TopK is the number of corpus matches returned by Check.
	TopK = 5

	// PreviewLength is the number of characters of a matched document
	// included in its preview.
	PreviewLength = 150

	// Ellipsis is appended to every preview.
	Ellipsis = "..."

	// DefaultTimeout bounds each embedding provider call.
	DefaultTimeout = 30 * time.Second
)

// CompareResult is the outcome of comparing two texts.
type CompareResult struct {
	Similarity float64 `json:"similarity"`
}

// ScoredResult is one corpus match.
type ScoredResult struct {
	DocumentName string  `json:"document_name"`
	Similarity   float64 `json:"similarity"`
	PreviewText  string  `json:"preview_text"`
}

// CheckResult is the outcome of checking a text against the corpus.
type CheckResult struct {
	AverageScore float64        `json:"average_score"`
	Results      []ScoredResult `json:"results"`
}

// Scorer is the scoring surface served to clients. Pipeline implements it.
type Scorer interface {
	Compare(ctx context.Context, text1, text2 string) (*CompareResult, error)
	Check(ctx context.Context, text string) (*CheckResult, error)
}

var _ Scorer = (*Pipeline)(nil)

// Config configures a Pipeline.
type Config struct {
	Embedder embeddings.Embedder
	Index    vector.Index
	Corpus   *corpus.Corpus

	// Timeout bounds each provider call. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Publisher receives an event after each successful Check. Optional.
	Publisher eventstream.Publisher

	Logger *slog.Logger
}

// Pipeline scores texts against each other and against an immutable corpus.
// It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	embedder  embeddings.Embedder
	index     vector.Index
	corpus    *corpus.Corpus
	timeout   time.Duration
	publisher eventstream.Publisher
	logger    *slog.Logger
}

// NewPipeline validates c and returns a Pipeline.
func NewPipeline(c *Config) (*Pipeline, error) {
	if c.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if c.Index == nil {
		return nil, errors.New("index is required")
	}
	if c.Corpus == nil {
		return nil, errors.New("corpus is required")
	}
	if c.Index.Len() != c.Corpus.Len() {
		return nil, fmt.Errorf("index has %d vectors but corpus has %d entries", c.Index.Len(), c.Corpus.Len())
	}

	p := &Pipeline{
		embedder:  c.Embedder,
		index:     c.Index,
		corpus:    c.Corpus,
		timeout:   c.Timeout,
		publisher: c.Publisher,
		logger:    c.Logger,
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.logger == nil {
		p.logger = logger.Nop()
	}
	return p, nil
}

// Compare returns the similarity of text1 and text2 as a percentage in
// [0, 100]. Both texts are encoded in a single provider call.
func (p *Pipeline) Compare(ctx context.Context, text1, text2 string) (*CompareResult, error) {
	if isBlank(text1) || isBlank(text2) {
		return nil, fmt.Errorf("%w: both texts are required", ErrEmptyInput)
	}

	var vecs [][]float32
	err := p.callProvider(ctx, func(ctx context.Context) error {
		var err error
		vecs, err = p.embedder.EmbedBatch(ctx, []string{text1, text2})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 2 {
		return nil, fmt.Errorf("%w: %w: got %d vectors for 2 texts", ErrProviderFailure, vector.ErrEmbedding, len(vecs))
	}

	return &CompareResult{Similarity: Percentage(vector.Cosine(vecs[0], vecs[1]))}, nil
}

// Check returns the TopK corpus documents most similar to text, best first,
// and the mean of their similarities. An index with no hits yields a zero
// average and an empty result list.
func (p *Pipeline) Check(ctx context.Context, text string) (*CheckResult, error) {
	if isBlank(text) {
		return nil, fmt.Errorf("%w: text is required", ErrEmptyInput)
	}

	started := time.Now()

	var query []float32
	err := p.callProvider(ctx, func(ctx context.Context) error {
		var err error
		query, err = p.embedder.Embed(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Reported scores are floored at zero, so ranking happens on the floored
	// scores over every entry: documents that all show 0 keep corpus order.
	hits, err := p.index.Query(ctx, query, p.index.Len())
	if err != nil {
		if errors.Is(err, vector.ErrDimensionMismatch) {
			return nil, fmt.Errorf("%w: %w", ErrProviderFailure, err)
		}
		return nil, fmt.Errorf("querying index: %w", err)
	}
	hits = vector.TopK(vector.Floor(hits), TopK)

	result := &CheckResult{Results: make([]ScoredResult, 0, len(hits))}
	var total float64
	for _, hit := range hits {
		entry := p.corpus.Entry(hit.Index)
		sim := Percentage(hit.Score)
		result.Results = append(result.Results, ScoredResult{
			DocumentName: entry.Name,
			Similarity:   sim,
			PreviewText:  Preview(entry.Text),
		})
		total += sim
	}
	if n := len(result.Results); n > 0 {
		result.AverageScore = total / float64(n)
	}

	p.logger.Debug("check completed",
		"matches", len(result.Results),
		"average_score", result.AverageScore,
		"duration", time.Since(started),
	)

	p.publish(ctx, text, started, result)
	return result, nil
}

// Percentage converts a cosine score to a percentage, flooring negative
// scores at zero.
func Percentage(score float32) float64 {
	return max(0, float64(score)) * 100
}

// Preview returns the first PreviewLength characters of text followed by
// Ellipsis. The ellipsis is added even when nothing was cut.
func Preview(text string) string {
	return utils.Head(text, PreviewLength) + Ellipsis
}

func (p *Pipeline) callProvider(ctx context.Context, call func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := call(ctx); err != nil {
		err = providerError(err, p.timeout)
		p.logger.Error("embedding provider call failed", "error", err)
		return err
	}
	return nil
}

func (p *Pipeline) publish(ctx context.Context, text string, started time.Time, result *CheckResult) {
	if p.publisher == nil {
		return
	}

	event := eventstream.NewCheckCompletedEvent(text, started)
	event.RequestID = RequestIDFromContext(ctx)
	event.AverageScore = result.AverageScore
	event.Corpus = eventstream.CorpusMeta{Size: p.corpus.Len(), Fallback: p.corpus.IsFallback()}
	event.Matches = make([]eventstream.MatchMeta, len(result.Results))
	for i, r := range result.Results {
		event.Matches[i] = eventstream.MatchMeta{DocumentName: r.DocumentName, Similarity: r.Similarity}
	}

	if err := p.publisher.PublishCheck(ctx, event); err != nil {
		p.logger.Warn("failed to publish check event", "event_id", event.EventID, "error", err)
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
