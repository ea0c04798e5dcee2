package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// TextColumns are tried in order to find the document text.
	TextColumns = []string{"text", "Body"}

	// NameColumns are tried in order to find the document title.
	NameColumns = []string{"title", "Title"}
)

// Loader reads every source into a single deduplicated corpus.
type Loader struct {
	sources []Source
	logger  *slog.Logger
}

// NewLoader creates a loader over sources, read in the given order.
func NewLoader(logger *slog.Logger, sources ...Source) *Loader {
	return &Loader{
		sources: sources,
		logger:  logger,
	}
}

// Load reads all sources. A missing or broken source is logged and skipped; it
// never aborts the others. If no documents were found the fallback corpus is
// returned. The only error is context cancellation.
func (l *Loader) Load(ctx context.Context) (*Corpus, error) {
	b := NewBuilder()

	for _, src := range l.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		added, err := l.loadSource(ctx, b, src)
		switch {
		case err == nil:
			l.logger.Info("loaded rows", "source", src.Name(), "rows", added)
		case errors.Is(err, ErrSourceMissing):
			l.logger.Warn("corpus source not found, skipping", "source", src.Name(), "error", err)
		case errors.Is(err, ErrNoTextColumn):
			l.logger.Warn("corpus source has no text column, skipping",
				"source", src.Name(),
				"expected", strings.Join(TextColumns, " or "),
			)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			l.logger.Error("failed to load corpus source", "source", src.Name(), "error", err)
		}
	}

	if b.Len() == 0 {
		l.logger.Warn("no documents loaded, using fallback corpus")
		return Fallback(), nil
	}

	c := b.Build()
	l.logger.Info("corpus loaded", "total", c.Len(), "sources", len(l.sources))
	return c, nil
}

// loadSource adds the rows of one source to b and returns how many were kept.
// The table is read in full before any row is added, so a read failure leaves
// b untouched.
func (l *Loader) loadSource(ctx context.Context, b *Builder, src Source) (int, error) {
	table, err := src.Read(ctx)
	if err != nil {
		return 0, err
	}

	textCol := table.column(TextColumns...)
	if textCol < 0 {
		return 0, ErrNoTextColumn
	}
	nameCol := table.column(NameColumns...)

	added := 0
	for rowIdx, row := range table.Rows {
		text := cell(row, textCol)
		if strings.TrimSpace(text) == "" {
			continue
		}

		name := ""
		if nameCol >= 0 {
			name = strings.TrimSpace(cell(row, nameCol))
		}
		if name == "" {
			name = fmt.Sprintf("%s_%d", src.Name(), rowIdx)
		}

		stored, err := b.Add(name, text)
		if err != nil {
			return added, fmt.Errorf("row %d: %w", rowIdx, err)
		}
		if stored != name {
			l.logger.Debug("renamed duplicate document", "name", name, "stored_as", stored)
		}
		added++
	}

	return added, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
