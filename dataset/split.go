package dataset

import (
	"math"
	"math/rand"
	"sort"

	scierr "github.com/YuminosukeSato/mycogo/pkg/errors"
)

// StratifiedSplit partitions the table into train and test tables so that
// each label class contributes testFraction of its rows to the test side.
// The split is deterministic for a given seed. Row order within each side
// follows the original table order.
func StratifiedSplit(t *Table, labelCol string, testFraction float64, seed int64) (train, test *Table, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, scierr.NewValidationError("testFraction", "must be in (0, 1)", testFraction)
	}
	labels, err := t.Strings(labelCol)
	if err != nil {
		return nil, nil, err
	}
	if t.NumRows() == 0 {
		return nil, nil, scierr.Wrap(scierr.ErrEmptyData, "dataset.StratifiedSplit")
	}

	byClass := make(map[string][]int)
	for i, lab := range labels {
		byClass[lab] = append(byClass[lab], i)
	}
	classes := make([]string, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	rng := rand.New(rand.NewSource(seed))
	var trainIdx, testIdx []int
	for _, c := range classes {
		idx := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(math.Round(testFraction * float64(len(idx))))
		if len(idx) >= 2 {
			if nTest < 1 {
				nTest = 1
			}
			if nTest > len(idx)-1 {
				nTest = len(idx) - 1
			}
		} else {
			nTest = 0 // singleton classes stay on the train side
		}
		testIdx = append(testIdx, idx[:nTest]...)
		trainIdx = append(trainIdx, idx[nTest:]...)
	}
	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, nil, scierr.NewValueError("dataset.StratifiedSplit", "split produced an empty side")
	}
	return t.SelectRows(trainIdx), t.SelectRows(testIdx), nil
}
