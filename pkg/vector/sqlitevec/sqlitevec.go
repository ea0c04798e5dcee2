// Package sqlitevec provides a vector.Index that scores corpus embeddings inside
// SQLite with the sqlite-vec extension. The database lives in memory and is
// rebuilt on every start.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/overlap/pkg/vector"
)

// Config holds configuration for the sqlite-vec index.
type Config struct {
	// DSN overrides the database location. Defaults to a private shared-cache
	// in-memory database so every pooled connection sees the same table.
	DSN string
}

// Index implements vector.Index on top of sqlite-vec's vec_distance_cosine.
type Index struct {
	db         *sql.DB
	size       int
	dimensions int
	logger     *slog.Logger
}

// NewIndex creates the backing table and loads embeddings in corpus order.
func NewIndex(ctx context.Context, c Config, embeddings [][]float32, logger *slog.Logger) (*Index, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	dsn := c.DSN
	if dsn == "" {
		dsn = fmt.Sprintf("file:overlap-%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var vecVersion string
	if err := db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	idx := &Index{
		db:     db,
		logger: logger,
	}

	if err := idx.load(ctx, embeddings); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite-vec index built",
		"entries", idx.size,
		"dimensions", idx.dimensions,
		"vec_version", vecVersion,
	)

	return idx, nil
}

func (s *Index) load(ctx context.Context, embeddings [][]float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS corpus_embeddings`); err != nil {
		return fmt.Errorf("dropping embeddings table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE corpus_embeddings (
			idx INTEGER PRIMARY KEY,
			embedding BLOB NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating embeddings table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO corpus_embeddings(idx, embedding) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, emb := range embeddings {
		if len(emb) == 0 {
			return fmt.Errorf("%w: entry %d", vector.ErrEmptyEmbedding, i)
		}
		if s.dimensions == 0 {
			s.dimensions = len(emb)
		}
		if len(emb) != s.dimensions {
			return fmt.Errorf("%w: entry %d has %d dimensions, expected %d",
				vector.ErrDimensionMismatch, i, len(emb), s.dimensions)
		}

		if _, err := stmt.ExecContext(ctx, i, serializeFloat32(emb)); err != nil {
			return fmt.Errorf("inserting embedding %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.size = len(embeddings)
	return nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Query implements vector.Index. Every row is scored so that the tie-break on
// corpus index is applied over the full set rather than a truncated KNN window.
func (s *Index) Query(ctx context.Context, embedding []float32, k int) ([]vector.Hit, error) {
	k = vector.ClampK(k, s.size)
	if k == 0 {
		return []vector.Hit{}, nil
	}

	if len(embedding) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			vector.ErrDimensionMismatch, len(embedding), s.dimensions)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, vec_distance_cosine(embedding, ?) AS distance
		FROM corpus_embeddings
	`, serializeFloat32(embedding))
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	hits := make([]vector.Hit, 0, s.size)
	for rows.Next() {
		var (
			idx      int
			distance sql.NullFloat64
		)
		if err := rows.Scan(&idx, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		// cosine distance is 1 - similarity; NULL comes back for zero vectors
		var score float32
		if distance.Valid {
			score = float32(1 - distance.Float64)
		}
		hits = append(hits, vector.Hit{Index: idx, Score: score})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	s.logger.Debug("queried sqlite-vec", "candidates", len(hits), "k", k)

	return vector.TopK(hits, k), nil
}

// Len implements vector.Index.
func (s *Index) Len() int {
	return s.size
}

// Close releases the database, dropping the in-memory table with it.
func (s *Index) Close() error {
	return s.db.Close()
}

var _ vector.Index = (*Index)(nil)
