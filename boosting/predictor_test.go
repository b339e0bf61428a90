package boosting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	scierr "github.com/YuminosukeSato/mycogo/pkg/errors"
)

// stumpModel builds a two-tree model by hand: each tree routes on feature
// 0 at threshold 5 and emits -1 or +1 before shrinkage.
func stumpModel() *Model {
	stump := func(index int) Tree {
		return Tree{
			TreeIndex:     index,
			NumLeaves:     2,
			ShrinkageRate: 0.5,
			Nodes: []Node{
				{NodeID: 0, ParentID: -1, NodeType: SplitNode, SplitFeature: 0, Threshold: 5, LeftChild: 1, RightChild: 2},
				{NodeID: 1, ParentID: 0, NodeType: LeafNode, LeafValue: -1, LeftChild: -1, RightChild: -1},
				{NodeID: 2, ParentID: 0, NodeType: LeafNode, LeafValue: 1, LeftChild: -1, RightChild: -1},
			},
		}
	}
	m := NewModel()
	m.NumFeatures = 2
	m.NumIteration = 2
	m.Trees = []Tree{stump(0), stump(1)}
	return m
}

func TestPredictorRawScores(t *testing.T) {
	p := NewPredictor(stumpModel())

	X := mat.NewDense(2, 2, []float64{
		3, 99, // left leaf twice: 2 * (-1 * 0.5) = -1
		7, 99, // right leaf twice: +1
	})
	raw, err := p.RawScores(X)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, raw.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0, raw.At(1, 0), 1e-12)
}

func TestPredictorDimensionMismatch(t *testing.T) {
	p := NewPredictor(stumpModel())
	X := mat.NewDense(1, 3, []float64{1, 2, 3})

	_, err := p.RawScores(X)
	var dim *scierr.DimensionError
	require.True(t, scierr.As(err, &dim))
	assert.Equal(t, 2, dim.Expected)
	assert.Equal(t, 3, dim.Got)
}

func TestPredictorProbaRowsSumToOne(t *testing.T) {
	p := NewPredictor(stumpModel())
	X := mat.NewDense(3, 2, []float64{3, 0, 5, 0, 7, 0})

	proba, err := p.PredictProba(X)
	require.NoError(t, err)
	rows, cols := proba.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		sum := proba.At(i, 0) + proba.At(i, 1)
		assert.InDelta(t, 1.0, sum, 1e-12)
	}

	// Threshold row (x = 5 goes left): negative margin, class 0 likelier.
	assert.Greater(t, proba.At(1, 0), proba.At(1, 1))
}

func TestPredictorTieGoesToClassZero(t *testing.T) {
	// A model with no trees always emits the init score; at zero margin
	// the probability is exactly 0.5 for both classes.
	m := NewModel()
	m.NumFeatures = 1

	p := NewPredictor(m)
	X := mat.NewDense(1, 1, []float64{1})

	proba, err := p.PredictProba(X)
	require.NoError(t, err)
	assert.Equal(t, 0.5, proba.At(0, 0))
	assert.Equal(t, 0.5, proba.At(0, 1))

	labels, err := p.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, 0.0, labels.At(0, 0))
}

func TestPredictorBestIterationRespected(t *testing.T) {
	m := stumpModel()
	m.BestIteration = 1 // use only the first tree

	p := NewPredictor(m)
	X := mat.NewDense(1, 2, []float64{7, 0})
	raw, err := p.RawScores(X)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, raw.At(0, 0), 1e-12)
}

func TestPredictorParallelMatchesSequential(t *testing.T) {
	m := stumpModel()
	p := NewPredictor(m)

	// Large enough to take the parallel path.
	n := 4 * parallelThreshold
	X := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i%11))
		X.Set(i, 1, float64(i))
	}

	batch, err := p.RawScores(X)
	require.NoError(t, err)

	features := make([]float64, 2)
	for i := 0; i < n; i++ {
		mat.Row(features, i, X)
		assert.Equal(t, m.RawScore(features), batch.At(i, 0), "row %d", i)
	}
}

func TestModelFeatureImportance(t *testing.T) {
	m := stumpModel()
	m.Trees[0].Nodes[0].Gain = 3
	m.Trees[1].Nodes[0].Gain = 1

	bySplit, err := m.FeatureImportance("split")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, bySplit)

	byGain, err := m.FeatureImportance("gain")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, byGain)

	_, err = m.FeatureImportance("cover")
	assert.Error(t, err)
}
