package corpus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteTable reads every row of a table in a SQLite database file, opened
// read-only.
type SQLiteTable struct {
	path  string
	table string
}

// NewSQLiteTable creates a source for table inside the database at path.
func NewSQLiteTable(path, table string) *SQLiteTable {
	return &SQLiteTable{
		path:  path,
		table: table,
	}
}

// Name implements Source.
func (s *SQLiteTable) Name() string {
	return s.table
}

// Read implements Source.
func (s *SQLiteTable) Read(ctx context.Context) (*Table, error) {
	// opening a missing file read-only fails late and vaguely; check first
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, s.path)
		}
		return nil, fmt.Errorf("checking %s: %w", s.path, err)
	}

	db, err := sql.Open("sqlite3", "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer db.Close()

	quoted := `"` + strings.ReplaceAll(s.table, `"`, `""`) + `"`
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoted)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return nil, fmt.Errorf("%w: table %s in %s", ErrSourceMissing, s.table, s.path)
		}
		return nil, fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", s.table, err)
	}

	table := &Table{Columns: columns}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row of %s: %w", s.table, err)
		}

		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = stringify(v)
		}
		table.Rows = append(table.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", s.table, err)
	}

	return table, nil
}
