package corpus

import (
	"context"
	"errors"
)

var (
	// ErrSourceMissing marks a source that does not exist (file, object or
	// table). The loader skips it with a warning.
	ErrSourceMissing = errors.New("corpus source not found")

	// ErrNoTextColumn marks a source without any recognised text column.
	ErrNoTextColumn = errors.New("no text column")
)

// Table is the tabular content of one source. Missing or NULL cells are empty
// strings; short rows are padded to the header width.
type Table struct {
	Columns []string
	Rows    [][]string
}

// column returns the index of the first candidate present in the header, or -1.
func (t *Table) column(candidates ...string) int {
	for _, want := range candidates {
		for i, have := range t.Columns {
			if have == want {
				return i
			}
		}
	}
	return -1
}

// Source is one tabular input to the loader.
type Source interface {
	// Name labels the source in logs and in synthesized document names.
	Name() string

	// Read returns the whole table. Errors wrapping ErrSourceMissing are
	// treated as a missing source.
	Read(ctx context.Context) (*Table, error)
}
