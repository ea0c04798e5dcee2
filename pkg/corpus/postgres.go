package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes treated as a missing source.
const (
	pgUndefinedTable = "42P01"
	pgInvalidCatalog = "3D000"
)

// PostgresTable reads every row of a PostgreSQL table.
type PostgresTable struct {
	connString string
	table      string
}

// NewPostgresTable creates a source for table (optionally schema-qualified,
// e.g. "public.articles") reachable through connString.
func NewPostgresTable(connString, table string) *PostgresTable {
	return &PostgresTable{
		connString: connString,
		table:      table,
	}
}

// Name implements Source. Connection strings carry credentials, so only the
// table name is used.
func (p *PostgresTable) Name() string {
	return p.table
}

// Read implements Source.
func (p *PostgresTable) Read(ctx context.Context) (*Table, error) {
	conn, err := pgx.Connect(ctx, p.connString)
	if err != nil {
		return nil, p.classify(err)
	}
	defer conn.Close(ctx)

	ident := pgx.Identifier(strings.Split(p.table, "."))
	rows, err := conn.Query(ctx, "SELECT * FROM "+ident.Sanitize())
	if err != nil {
		return nil, p.classify(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	table := &Table{Columns: make([]string, len(fields))}
	for i, f := range fields {
		table.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row from %s: %w", p.table, err)
		}

		row := make([]string, len(values))
		for i, v := range values {
			row[i] = stringify(v)
		}
		table.Rows = append(table.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, p.classify(err)
	}

	return table, nil
}

func (p *PostgresTable) classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == pgUndefinedTable || pgErr.Code == pgInvalidCatalog) {
		return fmt.Errorf("%w: postgres table %s", ErrSourceMissing, p.table)
	}
	return fmt.Errorf("reading postgres table %s: %w", p.table, err)
}

// stringify renders a scanned SQL value as cell text; NULL becomes "".
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
