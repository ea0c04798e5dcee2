// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/overlap/pkg/embeddings"
	"github.com/papercomputeco/overlap/pkg/embeddings/cache"
	"github.com/papercomputeco/overlap/pkg/embeddings/hashing"
	"github.com/papercomputeco/overlap/pkg/embeddings/ollama"
	"github.com/papercomputeco/overlap/pkg/embeddings/openai"
)

// Supported provider types.
const (
	ProviderHashing = "hashing"
	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Dimensions   uint

	// CacheAddr enables the Redis cache when non-empty.
	CacheAddr     string
	CachePassword string
	CacheDB       int

	Logger *slog.Logger
}

func NewEmbedder(ctx context.Context, o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		e   embeddings.Embedder
		err error
	)

	switch o.ProviderType {
	case ProviderHashing:
		e = hashing.NewEmbedder(o.Dimensions)
	case ProviderOllama:
		e, err = ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case ProviderOpenAI:
		e, err = openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL:    o.TargetURL,
			APIKey:     o.APIKey,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	if o.CacheAddr == "" {
		return e, nil
	}

	namespace := o.ProviderType + ":" + o.Model
	if o.ProviderType == ProviderHashing {
		namespace = fmt.Sprintf("%s:%d", ProviderHashing, e.(*hashing.Embedder).Dimensions())
	}

	cached, err := cache.NewEmbedder(ctx, e, cache.Config{
		Addr:      o.CacheAddr,
		Password:  o.CachePassword,
		DB:        o.CacheDB,
		Namespace: namespace,
	}, o.Logger)
	if err != nil {
		e.Close()
		return nil, err
	}
	return cached, nil
}

// Device describes where vectors for providerType are computed, as reported
// by the status probe.
func Device(providerType string) string {
	if providerType == ProviderHashing {
		return "cpu"
	}
	return "remote:" + providerType
}
