package inference

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mycogo/artifact"
	"github.com/YuminosukeSato/mycogo/pkg/errors"
	"github.com/YuminosukeSato/mycogo/pkg/log"
)

// Prediction is the outcome for a single record.
type Prediction struct {
	// Label is the display name of the predicted class ("edible",
	// "poisonous").
	Label string

	// Class is the integer class the label maps to.
	Class int

	// Probability is the probability of the predicted class.
	Probability float64

	// Probabilities holds every class probability keyed by display label.
	Probabilities map[string]float64
}

// Engine answers predictions against a loaded artifact bundle. It is
// built once at startup and only ever reads the bundle, so a single
// Engine is safe for concurrent use.
type Engine struct {
	bundle *artifact.Bundle
	mapper *Mapper
	logger log.Logger
}

// NewEngine validates the bundle and builds the engine over it.
func NewEngine(b *artifact.Bundle) (*Engine, error) {
	if b == nil {
		return nil, errors.NewValueError("inference.NewEngine", "nil bundle")
	}
	if err := b.Validate(); err != nil {
		return nil, errors.NewModelError("inference.NewEngine", "invalid bundle", err)
	}
	return &Engine{
		bundle: b,
		mapper: NewMapper(b),
		logger: log.GetLoggerWithName("inference.engine"),
	}, nil
}

// Bundle returns the artifact the engine was built over.
func (e *Engine) Bundle() *artifact.Bundle {
	return e.bundle
}

// Predict maps one record to a prediction. Validation failures surface
// as the mapper's ValidationError; no inference happens on bad input.
func (e *Engine) Predict(rec Record) (Prediction, error) {
	vec, err := e.mapper.Vector(rec)
	if err != nil {
		return Prediction{}, err
	}
	proba, err := e.bundle.Model.PredictProba(mat.NewDense(1, len(vec), vec))
	if err != nil {
		return Prediction{}, err
	}
	return e.prediction(proba, 0)
}

// PredictBatch maps a batch of records to predictions, elementwise
// equivalent to calling Predict on each record; output order matches
// input order.
func (e *Engine) PredictBatch(recs []Record) ([]Prediction, error) {
	if len(recs) == 0 {
		return []Prediction{}, nil
	}
	X, err := e.mapper.Matrix(recs)
	if err != nil {
		return nil, err
	}
	proba, err := e.bundle.Model.PredictProba(X)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("prediction batch evaluated", log.BatchSizeKey, len(recs))

	out := make([]Prediction, len(recs))
	for i := range recs {
		p, err := e.prediction(proba, i)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// prediction reads row of the probability matrix into a Prediction. The
// class with the strictly highest probability wins, so an exact 0.5 tie
// in the binary case resolves to class 0.
func (e *Engine) prediction(proba mat.Matrix, row int) (Prediction, error) {
	classes := e.bundle.Labels.NumClasses()

	class := 0
	best := proba.At(row, 0)
	for c := 1; c < classes; c++ {
		if p := proba.At(row, c); p > best {
			class, best = c, p
		}
	}

	label, err := e.bundle.Labels.DisplayLabel(class)
	if err != nil {
		return Prediction{}, err
	}
	probs := make(map[string]float64, classes)
	for c := 0; c < classes; c++ {
		name, err := e.bundle.Labels.DisplayLabel(c)
		if err != nil {
			return Prediction{}, err
		}
		probs[name] = proba.At(row, c)
	}
	return Prediction{
		Label:         label,
		Class:         class,
		Probability:   best,
		Probabilities: probs,
	}, nil
}
