package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDropDuplicates(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.AddStringColumn("cap-shape", []string{"x", "b", "x", "x", "b"}))
	require.NoError(t, tbl.AddNumericColumn("cap-diameter", []float64{8.5, 3.1, 8.5, 6.0, 3.1}))

	removed := tbl.DropDuplicates()

	assert.Equal(t, 2, removed)
	assert.Equal(t, 3, tbl.NumRows())
	got, err := tbl.Strings("cap-shape")
	require.NoError(t, err)
	// First occurrences survive in original order.
	assert.Equal(t, []string{"x", "b", "x"}, got)

	assert.Equal(t, 0, tbl.DropDuplicates(), "second pass finds nothing")
}

func TestDropDuplicatesDistinguishesNaN(t *testing.T) {
	// Rows that differ only in a NaN cell are not duplicates of filled rows.
	tbl := NewTable()
	require.NoError(t, tbl.AddStringColumn("cap-shape", []string{"x", "x"}))
	require.NoError(t, tbl.AddNumericColumn("cap-diameter", []float64{8.5, math.NaN()}))

	assert.Equal(t, 0, tbl.DropDuplicates())
	assert.Equal(t, 2, tbl.NumRows())
}

func TestAddPresenceIndicator(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.AddStringColumn("spore-print-color", []string{"k", "", "w", ""}))

	require.NoError(t, tbl.AddPresenceIndicator("spore_print_color_present", "spore-print-color"))

	got, err := tbl.Floats("spore_print_color_present")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 1, 0}, got)

	err = tbl.AddPresenceIndicator("x", "no-such-column")
	assert.Error(t, err)
}

func TestDropSparseColumns(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.AddStringColumn("veil-color", []string{"", "", "", "", "w"}))
	require.NoError(t, tbl.AddStringColumn("cap-shape", []string{"x", "b", "x", "f", "s"}))
	require.NoError(t, tbl.AddStringColumn("spore-print-color", []string{"", "", "", "", "k"}))

	dropped := tbl.DropSparseColumns(0.8, "spore-print-color")

	// veil-color is 80% missing which does not exceed the threshold;
	// make it sparser and try again.
	assert.Empty(t, dropped)

	c, _ := tbl.Column("veil-color")
	c.Strs[4] = ""
	dropped = tbl.DropSparseColumns(0.8, "spore-print-color")

	assert.Equal(t, []string{"veil-color"}, dropped)
	assert.True(t, tbl.HasColumn("spore-print-color"), "protected column survives")
	assert.True(t, tbl.HasColumn("cap-shape"))
}

func TestImputeMissing(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.AddStringColumn("class", []string{"e", "p", "e", "p"}))
	require.NoError(t, tbl.AddStringColumn("habitat", []string{"d", "", "g", ""}))
	require.NoError(t, tbl.AddNumericColumn("stem-height", []float64{1.0, math.NaN(), 3.0, 5.0}))

	imp := tbl.ImputeMissing("class")

	habitat, err := tbl.Strings("habitat")
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "Unknown", "g", "Unknown"}, habitat)

	heights, err := tbl.Floats("stem-height")
	require.NoError(t, err)
	assert.Equal(t, 3.0, heights[1], "NaN replaced with the median of 1, 3, 5")

	assert.Equal(t, "Unknown", imp.CategoricalFill)
	assert.Equal(t, 3.0, imp.Medians["stem-height"])
	assert.Equal(t, 3, imp.FilledCells)
	assert.NotContains(t, imp.Medians, "class")
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		vals []float64
		want float64
	}{
		{"odd count", []float64{5, 1, 3}, 3},
		{"even count averages the middle pair", []float64{4, 1, 3, 2}, 2.5},
		{"ignores NaN", []float64{math.NaN(), 2, 4}, 3},
		{"all NaN", []float64{math.NaN(), math.NaN()}, 0},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, median(tt.vals))
		})
	}
}
