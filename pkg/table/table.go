// Package table loads and saves the CSV datasets the batch runs over.
package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/marker-finder/markersum/pkg/logger"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a header row plus data rows. Every row has exactly one cell
// per column.
type Table struct {
	columns []string
	rows    [][]string
}

// New creates a table with the given columns and no rows.
func New(columns ...string) *Table {
	return &Table{columns: slices.Clone(columns)}
}

// Load reads a CSV file whose first record is the header.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV from r. Short rows are padded with empty cells and long
// rows truncated to the header width.
func Read(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty table: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	t := New(header...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse row %d: %w", len(t.rows)+1, err)
		}
		if extra := len(rec) - len(t.columns); extra > 0 {
			logger.Logger.Warnw("Row has more fields than the header, dropping the extra fields",
				"row", len(t.rows)+1, "dropped", extra)
		}
		t.rows = append(t.rows, t.fit(rec))
	}
	return t, nil
}

// Save writes the table to path, header first. The file is written to a
// temp file in the same directory and renamed into place.
func (t *Table) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := t.Write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("commit output: %w", err)
	}
	return nil
}

// Write encodes the table as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// Columns returns a copy of the header.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// Len is the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// ColumnIndex returns the position of name, or -1. The first of duplicate
// names wins.
func (t *Table) ColumnIndex(name string) int {
	return slices.Index(t.columns, name)
}

// HasColumn reports whether name is in the header.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// EnsureColumn appends an empty column called name unless it exists, and
// returns its index.
func (t *Table) EnsureColumn(name string) int {
	if i := t.ColumnIndex(name); i >= 0 {
		return i
	}
	t.columns = append(t.columns, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], "")
	}
	return len(t.columns) - 1
}

// Truncate keeps only the first n rows. n <= 0 or n >= Len is a no-op.
func (t *Table) Truncate(n int) {
	if n > 0 && n < len(t.rows) {
		t.rows = t.rows[:n]
	}
}

// Get returns the cell at row, col and whether it exists.
func (t *Table) Get(row, col int) (string, bool) {
	if row < 0 || row >= len(t.rows) || col < 0 || col >= len(t.columns) {
		return "", false
	}
	return t.rows[row][col], true
}

// Set stores value at row, col.
func (t *Table) Set(row, col int, value string) error {
	if row < 0 || row >= len(t.rows) || col < 0 || col >= len(t.columns) {
		return fmt.Errorf("cell (%d, %d) out of range", row, col)
	}
	t.rows[row][col] = value
	return nil
}

// AppendRow adds a row, fitted to the header width.
func (t *Table) AppendRow(cells ...string) {
	t.rows = append(t.rows, t.fit(cells))
}

func (t *Table) fit(rec []string) []string {
	row := make([]string, len(t.columns))
	copy(row, rec)
	return row
}
