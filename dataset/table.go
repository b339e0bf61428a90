// Package dataset provides column-oriented tabular data handling for the
// training pipeline: delimited-file loading, cleaning, imputation and
// stratified splitting.
//
// A Table stores each column as either categorical (string cells, "" marks a
// missing value) or numeric (float64 cells, NaN marks a missing value).
// Column order is preserved from the source file and is significant: the
// encoding transform fixes its block order from it.
package dataset

import (
	"math"
	"sort"

	scierr "github.com/YuminosukeSato/mycogo/pkg/errors"
)

// ColumnKind distinguishes categorical from numeric columns.
type ColumnKind int

const (
	// Categorical columns hold string cells; the empty string is a missing value.
	Categorical ColumnKind = iota
	// Numeric columns hold float64 cells; NaN is a missing value.
	Numeric
)

// Column is a single named column of a Table. Exactly one of Strs or Vals is
// populated depending on Kind.
type Column struct {
	Name string
	Kind ColumnKind
	Strs []string
	Vals []float64
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Vals)
	}
	return len(c.Strs)
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	if c.Kind == Numeric {
		for _, v := range c.Vals {
			if math.IsNaN(v) {
				n++
			}
		}
		return n
	}
	for _, s := range c.Strs {
		if s == "" {
			n++
		}
	}
	return n
}

// clone returns a deep copy of the column.
func (c *Column) clone() *Column {
	cp := &Column{Name: c.Name, Kind: c.Kind}
	if c.Kind == Numeric {
		cp.Vals = append([]float64(nil), c.Vals...)
	} else {
		cp.Strs = append([]string(nil), c.Strs...)
	}
	return cp
}

// Table is an ordered collection of equally sized columns.
type Table struct {
	cols  []*Column
	index map[string]int
	nrows int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// AddStringColumn appends a categorical column. All columns of a table must
// have the same length.
func (t *Table) AddStringColumn(name string, cells []string) error {
	return t.addColumn(&Column{Name: name, Kind: Categorical, Strs: cells})
}

// AddNumericColumn appends a numeric column.
func (t *Table) AddNumericColumn(name string, vals []float64) error {
	return t.addColumn(&Column{Name: name, Kind: Numeric, Vals: vals})
}

func (t *Table) addColumn(c *Column) error {
	if _, exists := t.index[c.Name]; exists {
		return scierr.NewValueError("Table.AddColumn", "duplicate column name: "+c.Name)
	}
	if len(t.cols) == 0 {
		t.nrows = c.Len()
	} else if c.Len() != t.nrows {
		return scierr.NewDimensionError("Table.AddColumn", t.nrows, c.Len(), 0)
	}
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return t.nrows }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column, or false if it does not exist.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Strings returns the cells of a categorical column.
func (t *Table) Strings(name string) ([]string, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, scierr.NewValueError("Table.Strings", "no such column: "+name)
	}
	if c.Kind != Categorical {
		return nil, scierr.NewValueError("Table.Strings", "column is not categorical: "+name)
	}
	return c.Strs, nil
}

// Floats returns the cells of a numeric column.
func (t *Table) Floats(name string) ([]float64, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, scierr.NewValueError("Table.Floats", "no such column: "+name)
	}
	if c.Kind != Numeric {
		return nil, scierr.NewValueError("Table.Floats", "column is not numeric: "+name)
	}
	return c.Vals, nil
}

// DropColumn removes the named column, reporting whether it existed.
func (t *Table) DropColumn(name string) bool {
	i, ok := t.index[name]
	if !ok {
		return false
	}
	t.cols = append(t.cols[:i], t.cols[i+1:]...)
	delete(t.index, name)
	for j := i; j < len(t.cols); j++ {
		t.index[t.cols[j].Name] = j
	}
	if len(t.cols) == 0 {
		t.nrows = 0
	}
	return true
}

// SelectRows returns a new table containing the given rows, in the given
// order. Row indices must be valid.
func (t *Table) SelectRows(rows []int) *Table {
	out := NewTable()
	for _, c := range t.cols {
		nc := &Column{Name: c.Name, Kind: c.Kind}
		if c.Kind == Numeric {
			nc.Vals = make([]float64, len(rows))
			for i, r := range rows {
				nc.Vals[i] = c.Vals[r]
			}
		} else {
			nc.Strs = make([]string, len(rows))
			for i, r := range rows {
				nc.Strs[i] = c.Strs[r]
			}
		}
		// addColumn cannot fail here: names are unique, lengths equal.
		_ = out.addColumn(nc)
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := NewTable()
	for _, c := range t.cols {
		_ = out.addColumn(c.clone())
	}
	return out
}

// DistinctSorted returns the sorted distinct non-missing values of a
// categorical column.
func (t *Table) DistinctSorted(name string) ([]string, error) {
	cells, err := t.Strings(name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, s := range cells {
		if s == "" {
			continue
		}
		seen[s] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
