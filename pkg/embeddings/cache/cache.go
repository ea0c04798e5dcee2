// Package cache provides a Redis read-through cache in front of any
// embeddings.Embedder. Cache failures are logged and bypassed; they never fail
// an embedding call.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/papercomputeco/overlap/pkg/embeddings"
	"github.com/papercomputeco/overlap/pkg/vector"
)

const (
	keyPrefix      = "overlap:emb"
	defaultTTL     = 7 * 24 * time.Hour
	defaultTimeout = 5 * time.Second
)

// Config holds the Redis connection and keying settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// Namespace separates vectors from different models; use the model name.
	Namespace string

	// TTL is applied to every cached vector. Defaults to 7 days.
	TTL time.Duration
}

// Embedder wraps another Embedder with a Redis cache.
type Embedder struct {
	next      embeddings.Embedder
	client    *redis.Client
	namespace string
	ttl       time.Duration
	logger    *slog.Logger
}

// NewEmbedder connects to Redis and verifies the connection with PING.
func NewEmbedder(ctx context.Context, next embeddings.Embedder, c Config, logger *slog.Logger) (*Embedder, error) {
	if next == nil {
		return nil, errors.New("embedder is required")
	}
	if c.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        c.Addr,
		Password:    c.Password,
		DB:          c.DB,
		DialTimeout: defaultTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis %s: %v", vector.ErrConnection, c.Addr, err)
	}

	ttl := c.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	logger.Info("embedding cache enabled", "addr", c.Addr, "namespace", c.Namespace, "ttl", ttl)

	return &Embedder{
		next:      next,
		client:    client,
		namespace: c.Namespace,
		ttl:       ttl,
		logger:    logger,
	}, nil
}

// Embed returns the cached vector for text or computes and stores it.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := Key(e.namespace, text)

	raw, err := e.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if vec, derr := decode(raw); derr == nil {
			return vec, nil
		}
		e.logger.Warn("discarding corrupt cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		e.logger.Warn("embedding cache read failed", "error", err)
	}

	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.client.Set(ctx, key, encode(vec), e.ttl).Err(); err != nil {
		e.logger.Warn("embedding cache write failed", "error", err)
	}

	return vec, nil
}

// EmbedBatch fetches all keys with MGET and only sends the misses on to the
// wrapped embedder.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = Key(e.namespace, t)
	}

	out := make([][]float32, len(texts))
	var missIdx []int

	vals, err := e.client.MGet(ctx, keys...).Result()
	if err != nil {
		e.logger.Warn("embedding cache read failed", "error", err)
		vals = make([]any, len(keys))
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			missIdx = append(missIdx, i)
			continue
		}
		vec, derr := decode([]byte(s))
		if derr != nil {
			missIdx = append(missIdx, i)
			continue
		}
		out[i] = vec
	}

	e.logger.Debug("embedding cache lookup", "hits", len(texts)-len(missIdx), "misses", len(missIdx))

	if len(missIdx) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}

	computed, err := e.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(computed) != len(missTexts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", vector.ErrEmbedding, len(missTexts), len(computed))
	}

	pipe := e.client.Pipeline()
	for j, i := range missIdx {
		out[i] = computed[j]
		pipe.Set(ctx, keys[i], encode(computed[j]), e.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		e.logger.Warn("embedding cache write failed", "error", err)
	}

	return out, nil
}

// Close closes the Redis client and the wrapped embedder.
func (e *Embedder) Close() error {
	return errors.Join(e.client.Close(), e.next.Close())
}

// Key is the Redis key for text under namespace.
func Key(namespace, text string) string {
	sum := sha256.Sum256([]byte(text))
	return keyPrefix + ":" + namespace + ":" + hex.EncodeToString(sum[:])
}

func encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decode(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid cached embedding length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
