// Package frame describes tabular input as an ordered list of named, typed columns
// and infers that description from CSV data.
package frame

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// Column is one frame column: its header name and dtype name.
type Column struct {
	Name  string
	DType string
}

// Frame exposes the ordered columns of a dataframe-like input.
type Frame interface {
	Columns() []Column
}

// Table is the in-memory Frame implementation.
type Table struct {
	columns []Column
}

// NewTable returns a Table with a copy of columns.
func NewTable(columns ...Column) *Table {
	return &Table{columns: append([]Column(nil), columns...)}
}

// Columns returns a copy of the table columns in order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Len returns the number of columns.
func (t *Table) Len() int {
	return len(t.columns)
}

// WithOverrides returns a Table where each named column carries the given dtype.
// Naming a column the frame does not have is an error.
func WithOverrides(f Frame, dtypes map[string]string) (*Table, error) {
	columns := f.Columns()
	if len(dtypes) == 0 {
		return NewTable(columns...), nil
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c.Name] = i
	}

	var unknown []string
	for name, dtype := range dtypes {
		i, ok := index[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		columns[i].DType = dtype
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("dtype override for unknown column(s) %s: %w",
			strings.Join(unknown, ", "), csv2hyper.ErrInvalidConfig)
	}

	return &Table{columns: columns}, nil
}

func checkDuplicates(names []string) error {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return fmt.Errorf("duplicate column name %q: %w", n, csv2hyper.ErrInvalidConfig)
		}
		seen[n] = struct{}{}
	}
	return nil
}
