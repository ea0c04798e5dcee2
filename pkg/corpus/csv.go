package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// CSVFile reads a local CSV file with a header row.
type CSVFile struct {
	path string
}

// NewCSVFile creates a CSV source for path.
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

// Name implements Source. It is the file's base name, so documents are named
// the same wherever the corpus directory lives.
func (f *CSVFile) Name() string {
	return filepath.Base(f.path)
}

// Read implements Source.
func (f *CSVFile) Read(_ context.Context) (*Table, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, f.path)
		}
		return nil, fmt.Errorf("opening %s: %w", f.path, err)
	}
	defer file.Close()

	return ReadCSV(file)
}

// ReadCSV parses CSV content with a header row. Quoted fields may span lines
// (article bodies usually do); rows with fewer fields than the header are
// padded, extra fields are dropped.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty CSV: no header row")
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := &Table{Columns: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}

		row := make([]string, len(header))
		copy(row, record)
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}
