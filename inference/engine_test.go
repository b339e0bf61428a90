package inference

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mycogo/artifact"
	"github.com/YuminosukeSato/mycogo/boosting"
	"github.com/YuminosukeSato/mycogo/dataset"
	scierr "github.com/YuminosukeSato/mycogo/pkg/errors"
	"github.com/YuminosukeSato/mycogo/preprocessing"
)

// fullColumns mirrors the reference dataset: 13 categorical columns whose
// vocabulary sizes sum to 102, each vocabulary containing the letter used
// by completeRecord, plus filler values.
var fullColumns = []struct {
	name   string
	letter string
	size   int
}{
	{"cap-shape", "x", 7},
	{"cap-surface", "s", 11},
	{"cap-color", "n", 12},
	{"does-bruise-or-bleed", "f", 2},
	{"gill-attachment", "f", 8},
	{"gill-spacing", "c", 5},
	{"gill-color", "k", 12},
	{"stem-surface", "s", 9},
	{"stem-color", "w", 13},
	{"has-ring", "t", 2},
	{"ring-type", "p", 9},
	{"habitat", "d", 8},
	{"season", "s", 4},
}

// fullBundle trains a bundle with the full reference layout: 102 one-hot
// positions plus 4 numeric columns, 106 features in total.
func fullBundle(t *testing.T) *artifact.Bundle {
	t.Helper()

	const n = 60
	tbl := dataset.NewTable()
	categorical := make([]string, 0, len(fullColumns))
	for _, col := range fullColumns {
		vocab := make([]string, col.size)
		vocab[0] = col.letter
		for v := 1; v < col.size; v++ {
			vocab[v] = fmt.Sprintf("%s%02d", col.name[:1], v)
		}
		cells := make([]string, n)
		for i := 0; i < n; i++ {
			cells[i] = vocab[i%col.size]
		}
		require.NoError(t, tbl.AddStringColumn(col.name, cells))
		categorical = append(categorical, col.name)
	}

	enc := preprocessing.NewOneHotEncoder()
	encoded, err := enc.FitTransform(tbl, categorical)
	require.NoError(t, err)
	rows, width := encoded.Dims()
	require.Equal(t, 102, width)

	X := mat.NewDense(rows, width+4, nil)
	y := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < width; j++ {
			X.Set(i, j, encoded.At(i, j))
		}
		X.Set(i, width, float64(i%10)+1)    // cap-diameter
		X.Set(i, width+1, float64(i%7)+1)   // stem-height
		X.Set(i, width+2, float64(i%5)+0.5) // stem-width
		X.Set(i, width+3, float64(i%2))     // indicator
		y.Set(i, 0, float64(i%2))
	}

	clf := boosting.NewGBTClassifier().
		WithNumIterations(10).
		WithMaxDepth(3).
		WithEarlyStopping(0).
		WithRandomState(42)
	require.NoError(t, clf.Fit(X, y))

	names, err := enc.FeatureNames()
	require.NoError(t, err)
	names = append(names, "cap-diameter", "stem-height", "stem-width", IndicatorColumn)

	return &artifact.Bundle{
		Model:              clf,
		Encoder:            enc,
		Labels:             artifact.NewLabelMapping([]string{"e", "p"}),
		FeatureNames:       names,
		CategoricalColumns: categorical,
		NumericalColumns:   []string{"cap-diameter", "stem-height", "stem-width", IndicatorColumn},
	}
}

// completeRecord is a fully populated observation using values every
// vocabulary of fullBundle knows.
func completeRecord() Record {
	return Record{
		CapDiameter:       8.5,
		StemHeight:        7.2,
		StemWidth:         6.5,
		CapShape:          "x",
		CapSurface:        "s",
		CapColor:          "n",
		DoesBruiseOrBleed: "f",
		GillAttachment:    "f",
		GillSpacing:       "c",
		GillColor:         "k",
		StemSurface:       "s",
		StemColor:         "w",
		HasRing:           "t",
		RingType:          "p",
		Habitat:           "d",
		Season:            "s",
	}
}

func TestNewEngine(t *testing.T) {
	_, err := NewEngine(nil)
	assert.Error(t, err)

	b := smallBundle(t)
	b.Model = nil
	_, err = NewEngine(b)
	var modelErr *scierr.ModelError
	require.True(t, scierr.As(err, &modelErr))

	eng, err := NewEngine(smallBundle(t))
	require.NoError(t, err)
	assert.NotNil(t, eng.Bundle())
}

func TestEngineCompleteRecord(t *testing.T) {
	b := fullBundle(t)
	eng, err := NewEngine(b)
	require.NoError(t, err)
	warnings := captureWarnings(t)

	vec, err := NewMapper(b).Vector(completeRecord())
	require.NoError(t, err)
	assert.Len(t, vec, 106)
	assert.Empty(t, *warnings)

	pred, err := eng.Predict(completeRecord())
	require.NoError(t, err)

	assert.Contains(t, []string{"edible", "poisonous"}, pred.Label)
	assert.GreaterOrEqual(t, pred.Probability, 0.5)
	assert.LessOrEqual(t, pred.Probability, 1.0)
	assert.InDelta(t, 1.0, pred.Probabilities["edible"]+pred.Probabilities["poisonous"], 1e-12)
	assert.Equal(t, pred.Probabilities[pred.Label], pred.Probability)
}

func TestEnginePredictDeterministic(t *testing.T) {
	eng, err := NewEngine(smallBundle(t))
	require.NoError(t, err)

	first, err := eng.Predict(smallRecord())
	require.NoError(t, err)
	second, err := eng.Predict(smallRecord())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnginePredictFollowsTraining(t *testing.T) {
	eng, err := NewEngine(smallBundle(t))
	require.NoError(t, err)

	// The model was trained to call cap-shape "x" poisonous.
	poisonous := smallRecord()
	pred, err := eng.Predict(poisonous)
	require.NoError(t, err)
	assert.Equal(t, "poisonous", pred.Label)
	assert.Equal(t, 1, pred.Class)

	edible := smallRecord()
	edible.CapShape = "b"
	pred, err = eng.Predict(edible)
	require.NoError(t, err)
	assert.Equal(t, "edible", pred.Label)
	assert.Equal(t, 0, pred.Class)
}

func TestEngineBatchMatchesSingle(t *testing.T) {
	eng, err := NewEngine(smallBundle(t))
	require.NoError(t, err)

	recs := make([]Record, 6)
	for i := range recs {
		recs[i] = smallRecord()
		recs[i].CapShape = []string{"b", "x"}[i%2]
		recs[i].CapDiameter = float64(i) + 0.5
	}

	batch, err := eng.PredictBatch(recs)
	require.NoError(t, err)
	require.Len(t, batch, len(recs))

	for i, rec := range recs {
		single, err := eng.Predict(rec)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i], "record %d", i)
	}
}

func TestEngineEmptyBatch(t *testing.T) {
	eng, err := NewEngine(smallBundle(t))
	require.NoError(t, err)

	preds, err := eng.PredictBatch(nil)
	require.NoError(t, err)
	assert.NotNil(t, preds)
	assert.Empty(t, preds)
}

func TestEngineValidationPropagates(t *testing.T) {
	eng, err := NewEngine(smallBundle(t))
	require.NoError(t, err)

	bad := smallRecord()
	bad.Season = ""

	_, err = eng.Predict(bad)
	var validation *scierr.ValidationError
	require.True(t, scierr.As(err, &validation))
	assert.Equal(t, "season", validation.ParamName)

	_, err = eng.PredictBatch([]Record{smallRecord(), bad})
	require.True(t, scierr.As(err, &validation))
	assert.Equal(t, "season", validation.ParamName)
}

func TestEngineUnseenCategoryStillPredicts(t *testing.T) {
	eng, err := NewEngine(smallBundle(t))
	require.NoError(t, err)
	warnings := captureWarnings(t)

	rec := smallRecord()
	rec.Habitat = "swamp"
	pred, err := eng.Predict(rec)
	require.NoError(t, err)
	assert.Contains(t, []string{"edible", "poisonous"}, pred.Label)
	assert.Len(t, *warnings, 1)
}

func TestEngineTieResolvesToFirstClass(t *testing.T) {
	// A model with no trees emits probability 0.5 for both classes; the
	// strict comparison keeps class 0.
	b := smallBundle(t)
	m := boosting.NewModel()
	m.NumFeatures = b.Width()
	clf := boosting.NewGBTClassifier()
	clf.Model = m
	clf.State.SetDimensions(b.Width(), 1)
	clf.State.SetFitted()
	b.Model = clf

	eng, err := NewEngine(b)
	require.NoError(t, err)

	pred, err := eng.Predict(smallRecord())
	require.NoError(t, err)
	assert.Equal(t, 0, pred.Class)
	assert.Equal(t, "edible", pred.Label)
	assert.Equal(t, 0.5, pred.Probability)
}
