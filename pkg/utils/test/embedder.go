package testutils

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// MockEmbedder is a test embedder that returns predictable embeddings
type MockEmbedder struct {
	Embeddings map[string][]float32

	// Default is returned for texts with no entry in Embeddings.
	Default []float32

	// FailOn causes Embed to return an error when the input text matches
	FailOn string

	// Err, when set, is returned from every call.
	Err error

	// Delay makes each call wait this long or until the context is done.
	Delay time.Duration

	calls atomic.Int64
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
		Default:    []float32{0.1, 0.2, 0.3},
	}
}

// Calls returns how many times Embed or EmbedBatch has been invoked.
func (m *MockEmbedder) Calls() int {
	return int(m.calls.Load())
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.lookup(text)
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := m.lookup(text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}

func (m *MockEmbedder) wait(ctx context.Context) error {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.Err
}

func (m *MockEmbedder) lookup(text string) ([]float32, error) {
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	return m.Default, nil
}
