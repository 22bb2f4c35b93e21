// Package dataset holds the in-memory table the cleaning step operates on and
// the row level transformations applied to it.
package dataset

import (
	"errors"
	"fmt"
	"slices"
)

// ErrColumnNotFound is returned when a transformation names a column the
// table does not have.
var ErrColumnNotFound = errors.New("column not found")

// Table is an ordered sequence of rows sharing one header. Every row has
// exactly len(Columns) fields; an empty field is the null marker.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New returns an empty table with the given header.
func New(columns ...string) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Index returns the position of column in the header.
func (t *Table) Index(column string) (int, error) {
	idx := slices.Index(t.Columns, column)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	return idx, nil
}

// Column returns a copy of every value in column, in row order.
func (t *Table) Column(column string) ([]string, error) {
	idx, err := t.Index(column)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Append adds a row, padding short rows with null markers.
func (t *Table) Append(values ...string) error {
	if len(values) > len(t.Columns) {
		return fmt.Errorf("row has %d fields, header has %d", len(values), len(t.Columns))
	}
	row := make([]string, len(t.Columns))
	copy(row, values)
	t.Rows = append(t.Rows, row)
	return nil
}

// Require fails unless every named column is present.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if _, err := t.Index(c); err != nil {
			return err
		}
	}
	return nil
}

func (t *Table) withRows(rows [][]string) *Table {
	return &Table{Columns: slices.Clone(t.Columns), Rows: rows}
}
