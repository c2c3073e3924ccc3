// Package table holds the in-memory tabular data model loaded from
// evaluation CSV exports. Cells are stored as strings; numeric behaviour
// (sorting, diffing, SQL typing) is derived by sniffing the column.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
)

// Table is an ordered set of named columns over string cells. A Table is
// never mutated in place by transformations; operations return copies so
// the original upload stays available for reset.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New creates an empty table with the given columns.
func New(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Read parses CSV from r. The first record is the header.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %v", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV has no header row")
	}
	t := New(records[0])
	t.Rows = records[1:]
	return t, nil
}

// ReadFile loads a CSV file from disk.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %v", err)
	}
	defer f.Close()
	return Read(f)
}

// Write serialises the table as CSV with a header row.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to a CSV file, truncating any existing file.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV: %v", err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Cell returns the value at (row, column name). The second return is false
// when the column does not exist or the row is ragged.
func (t *Table) Cell(row int, name string) (string, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return "", false
	}
	return t.Rows[row][idx], true
}

// SetCell sets the value at (row, column name).
func (t *Table) SetCell(row int, name, value string) error {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return fmt.Errorf("no such column %q", name)
	}
	if row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return fmt.Errorf("row %d out of range for column %q", row, name)
	}
	t.Rows[row][idx] = value
	return nil
}

// Column returns a copy of the named column's cells.
func (t *Table) Column(name string) ([]string, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("no such column %q", name)
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out, nil
}

// AddColumn appends a column with the given cells. The cell count must
// match the row count.
func (t *Table) AddColumn(name string, cells []string) error {
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(cells) != len(t.Rows) {
		return fmt.Errorf("column %q has %d cells for %d rows", name, len(cells), len(t.Rows))
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], cells[i])
	}
	return nil
}

// SetColumn writes a column's cells, overwriting an existing column of
// the same name or appending a new one. The cell count must match the
// row count.
func (t *Table) SetColumn(name string, cells []string) error {
	if len(cells) != len(t.Rows) {
		return fmt.Errorf("column %q has %d cells for %d rows", name, len(cells), len(t.Rows))
	}
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return t.AddColumn(name, cells)
	}
	for i := range t.Rows {
		if idx >= len(t.Rows[i]) {
			return fmt.Errorf("row %d too short for column %q", i, name)
		}
		t.Rows[i][idx] = cells[i]
	}
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := New(t.Columns)
	c.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		c.Rows[i] = append([]string(nil), row...)
	}
	return c
}

// IsNumeric reports whether every non-empty cell of the named column
// parses as a float. An absent column is not numeric.
func (t *Table) IsNumeric(name string) bool {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return false
	}
	seen := false
	for _, row := range t.Rows {
		if idx >= len(row) || row[idx] == "" {
			continue
		}
		if _, err := strconv.ParseFloat(row[idx], 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

// Floats returns the named column parsed as float64. Empty and unparsable
// cells become NaN.
func (t *Table) Floats(name string) ([]float64, error) {
	cells, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := strconv.ParseFloat(c, 64)
		if err != nil {
			v = math.NaN()
		}
		out[i] = v
	}
	return out, nil
}

// Sort returns a copy sorted by the named column. Numeric columns compare
// as floats, everything else lexically. The sort is stable so repeated
// application with unrelated state is deterministic.
func (t *Table) Sort(column string, ascending bool) (*Table, error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("cannot sort by unknown column %q", column)
	}
	c := t.Clone()
	numeric := t.IsNumeric(column)
	less := func(a, b string) bool {
		if numeric {
			fa, _ := strconv.ParseFloat(a, 64)
			fb, _ := strconv.ParseFloat(b, 64)
			return fa < fb
		}
		return a < b
	}
	sort.SliceStable(c.Rows, func(i, j int) bool {
		var a, b string
		if idx < len(c.Rows[i]) {
			a = c.Rows[i][idx]
		}
		if idx < len(c.Rows[j]) {
			b = c.Rows[j][idx]
		}
		if ascending {
			return less(a, b)
		}
		return less(b, a)
	})
	return c, nil
}

// PageCount returns the number of pages for the given page size.
func (t *Table) PageCount(rowsPerPage int) int {
	if rowsPerPage <= 0 {
		return 0
	}
	return (len(t.Rows) + rowsPerPage - 1) / rowsPerPage
}

// Page returns the rows for the 1-based page number. Out-of-range pages
// return an empty slice rather than an error.
func (t *Table) Page(page, rowsPerPage int) [][]string {
	if page < 1 || rowsPerPage <= 0 {
		return nil
	}
	start := (page - 1) * rowsPerPage
	if start >= len(t.Rows) {
		return nil
	}
	end := start + rowsPerPage
	if end > len(t.Rows) {
		end = len(t.Rows)
	}
	return t.Rows[start:end]
}
