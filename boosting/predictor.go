package boosting

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mycogo/core/parallel"
	"github.com/YuminosukeSato/mycogo/pkg/errors"
)

// parallelThreshold is the batch size above which prediction fans out to
// worker goroutines. Per-row work is independent, so sequential and
// parallel paths produce identical floats.
const parallelThreshold = 256

// Predictor turns a trained model into probabilities and labels. It is
// stateless across calls and safe for concurrent use.
type Predictor struct {
	model *Model
}

// NewPredictor creates a predictor for the given model
func NewPredictor(model *Model) *Predictor {
	return &Predictor{model: model}
}

// RawScores returns the additive margin of every row (n×1)
func (p *Predictor) RawScores(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != p.model.NumFeatures {
		return nil, errors.NewDimensionError("Predictor.RawScores", p.model.NumFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	parallel.ParallelizeWithThreshold(rows, parallelThreshold, func(start, end int) {
		features := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(features, i, X)
			out.Set(i, 0, p.model.RawScore(features))
		}
	})
	return out, nil
}

// PredictProba returns class probabilities (n×2). Column 0 is the
// negative class, column 1 the positive class; rows sum to 1.
func (p *Predictor) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	raw, err := p.RawScores(X)
	if err != nil {
		return nil, err
	}
	rows, _ := raw.Dims()
	proba := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		pos := Sigmoid(raw.At(i, 0))
		proba.Set(i, 0, 1-pos)
		proba.Set(i, 1, pos)
	}
	return proba, nil
}

// Predict returns hard class labels (n×1) with values 0 or 1. The
// positive class is chosen only when its probability strictly exceeds
// 0.5, so an exact tie resolves to class 0.
func (p *Predictor) Predict(X mat.Matrix) (*mat.Dense, error) {
	raw, err := p.RawScores(X)
	if err != nil {
		return nil, err
	}
	rows, _ := raw.Dims()
	labels := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		if Sigmoid(raw.At(i, 0)) > 0.5 {
			labels.Set(i, 0, 1)
		}
	}
	return labels, nil
}
