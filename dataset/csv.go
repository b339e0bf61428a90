package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	scierr "github.com/YuminosukeSato/mycogo/pkg/errors"
)

// ReadCSV reads delimited data with a header row into a Table. Every column
// is read as categorical; use ConvertNumeric to type numeric columns
// afterwards. Empty cells are missing values.
func ReadCSV(r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, scierr.Wrap(err, "dataset: failed to read delimited data")
	}
	if len(records) == 0 {
		return nil, scierr.Wrap(scierr.ErrEmptyData, "dataset: no header row")
	}

	header := records[0]
	rows := records[1:]

	t := NewTable()
	for j, name := range header {
		cells := make([]string, len(rows))
		for i, row := range rows {
			if j < len(row) {
				cells[i] = row[j]
			}
		}
		if err := t.AddStringColumn(name, cells); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ReadCSVFile reads a delimited file with a header row into a Table.
func ReadCSVFile(path string, comma rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, scierr.Wrapf(err, "dataset: failed to open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, comma)
}

// ConvertNumeric retypes the named categorical columns to numeric. Empty
// cells become NaN. A cell that cannot be parsed as a float also becomes NaN
// and raises a DataConversionWarning; the count of such cells is returned
// per column.
func (t *Table) ConvertNumeric(names ...string) (map[string]int, error) {
	badCells := make(map[string]int)
	for _, name := range names {
		c, ok := t.Column(name)
		if !ok {
			return nil, scierr.NewValueError("Table.ConvertNumeric", "no such column: "+name)
		}
		if c.Kind == Numeric {
			continue
		}
		vals := make([]float64, len(c.Strs))
		bad := 0
		for i, s := range c.Strs {
			if s == "" {
				vals[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				vals[i] = math.NaN()
				bad++
				continue
			}
			vals[i] = v
		}
		if bad > 0 {
			badCells[name] = bad
			scierr.Warn(scierr.NewDataConversionWarning("string", "float64",
				"unparseable cells in column "+name+" treated as missing"))
		}
		c.Kind = Numeric
		c.Vals = vals
		c.Strs = nil
	}
	return badCells, nil
}
