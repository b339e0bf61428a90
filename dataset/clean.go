package dataset

import (
	"math"
	"sort"
	"strconv"
	"strings"

	scierr "github.com/YuminosukeSato/mycogo/pkg/errors"
)

// DropDuplicates removes rows that are exact duplicates of an earlier row,
// keeping the first occurrence. It returns the number of rows removed.
func (t *Table) DropDuplicates() int {
	if t.nrows == 0 {
		return 0
	}
	seen := make(map[string]struct{}, t.nrows)
	keep := make([]int, 0, t.nrows)
	var sb strings.Builder
	for i := 0; i < t.nrows; i++ {
		sb.Reset()
		for _, c := range t.cols {
			if c.Kind == Numeric {
				sb.WriteString(strconv.FormatFloat(c.Vals[i], 'g', -1, 64))
			} else {
				sb.WriteString(c.Strs[i])
			}
			sb.WriteByte(0x1f) // unit separator, cannot appear in cells
		}
		key := sb.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}
	removed := t.nrows - len(keep)
	if removed == 0 {
		return 0
	}
	compacted := t.SelectRows(keep)
	t.cols = compacted.cols
	t.index = compacted.index
	t.nrows = compacted.nrows
	return removed
}

// AddPresenceIndicator appends a numeric 0/1 column named name that is 1
// where the source column has a non-missing value. The source column is left
// in place; see DropColumn and DropSparseColumns for removal.
func (t *Table) AddPresenceIndicator(name, from string) error {
	src, ok := t.Column(from)
	if !ok {
		return scierr.NewValueError("Table.AddPresenceIndicator", "no such column: "+from)
	}
	vals := make([]float64, src.Len())
	if src.Kind == Numeric {
		for i, v := range src.Vals {
			if !math.IsNaN(v) {
				vals[i] = 1
			}
		}
	} else {
		for i, s := range src.Strs {
			if s != "" {
				vals[i] = 1
			}
		}
	}
	return t.AddNumericColumn(name, vals)
}

// MissingRatio returns the fraction of missing cells in the named column.
func (t *Table) MissingRatio(name string) (float64, error) {
	c, ok := t.Column(name)
	if !ok {
		return 0, scierr.NewValueError("Table.MissingRatio", "no such column: "+name)
	}
	if c.Len() == 0 {
		return 0, nil
	}
	return float64(c.MissingCount()) / float64(c.Len()), nil
}

// DropSparseColumns removes every column whose missing-value ratio exceeds
// threshold, except those listed in keep. It returns the names of the
// dropped columns in table order.
func (t *Table) DropSparseColumns(threshold float64, keep ...string) []string {
	protected := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		protected[k] = struct{}{}
	}
	var dropped []string
	for _, name := range t.ColumnNames() {
		if _, ok := protected[name]; ok {
			continue
		}
		ratio, err := t.MissingRatio(name)
		if err != nil {
			continue
		}
		if ratio > threshold {
			t.DropColumn(name)
			dropped = append(dropped, name)
		}
	}
	return dropped
}

// Imputation records the fill values applied by ImputeMissing, frozen at the
// time of the call. Medians are computed over non-missing cells only.
type Imputation struct {
	CategoricalFill string
	Medians         map[string]float64
	FilledCells     int
}

// CategoricalMissingSentinel is the replacement value for missing
// categorical cells.
const CategoricalMissingSentinel = "Unknown"

// ImputeMissing replaces missing cells in place: categorical cells with the
// "Unknown" sentinel, numeric cells with the column median. Columns listed
// in skip are left untouched (the label column must not be imputed).
func (t *Table) ImputeMissing(skip ...string) *Imputation {
	skipped := make(map[string]struct{}, len(skip))
	for _, s := range skip {
		skipped[s] = struct{}{}
	}
	imp := &Imputation{
		CategoricalFill: CategoricalMissingSentinel,
		Medians:         make(map[string]float64),
	}
	for _, c := range t.cols {
		if _, ok := skipped[c.Name]; ok {
			continue
		}
		if c.Kind == Categorical {
			for i, s := range c.Strs {
				if s == "" {
					c.Strs[i] = CategoricalMissingSentinel
					imp.FilledCells++
				}
			}
			continue
		}
		med := median(c.Vals)
		imp.Medians[c.Name] = med
		for i, v := range c.Vals {
			if math.IsNaN(v) {
				c.Vals[i] = med
				imp.FilledCells++
			}
		}
	}
	return imp
}

// median returns the median of the non-NaN values, or 0 when there are none.
func median(vals []float64) float64 {
	clean := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return 0
	}
	sort.Float64s(clean)
	mid := len(clean) / 2
	if len(clean)%2 == 1 {
		return clean[mid]
	}
	return (clean[mid-1] + clean[mid]) / 2
}
