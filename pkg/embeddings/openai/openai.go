// Package openai implements an Embedder for OpenAI-compatible /embeddings
// endpoints (OpenAI, vLLM, LiteLLM, llama.cpp server, text-embeddings-inference).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/papercomputeco/overlap/pkg/embeddings"
	"github.com/papercomputeco/overlap/pkg/utils"
	"github.com/papercomputeco/overlap/pkg/vector"
)

const (
	// DefaultBaseURL is the OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultEmbeddingModel is used when no model is configured.
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// EmbedderConfig holds configuration for the OpenAI-compatible embedder.
type EmbedderConfig struct {
	// BaseURL is the API root that /embeddings is appended to.
	BaseURL string

	// APIKey is sent as a Bearer token when non-empty.
	APIKey string

	// Model is the embedding model name.
	Model string

	// Dimensions requests shortened embeddings from models that support it.
	// Zero leaves the model default.
	Dimensions uint
}

// Embedder calls an OpenAI-compatible embeddings endpoint.
type Embedder struct {
	cfg        EmbedderConfig
	httpClient *http.Client
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions uint     `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewEmbedder creates a new OpenAI-compatible embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Model == "" {
		cfg.Model = DefaultEmbeddingModel
	}

	return &Embedder{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request. Results are reordered by the
// response's index field, since providers are not required to preserve order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	body, err := json.Marshal(embeddingRequest{
		Model:      e.cfg.Model,
		Input:      texts,
		Dimensions: e.cfg.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", vector.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", vector.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", utils.UserAgent())
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %w", vector.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: embeddings endpoint returned status %d: %s",
			vector.ErrEmbedding, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", vector.ErrEmbedding, err)
	}

	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", vector.ErrEmbedding, len(texts), len(parsed.Data))
	}

	sort.SliceStable(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})

	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: %w at position %d", vector.ErrEmbedding, vector.ErrEmptyEmbedding, i)
		}
		out[i] = d.Embedding
	}

	return out, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
