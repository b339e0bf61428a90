package inference

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mycogo/artifact"
	"github.com/YuminosukeSato/mycogo/pkg/errors"
	"github.com/YuminosukeSato/mycogo/pkg/log"
)

// Mapper encodes Records into feature vectors using the column order and
// vocabularies frozen in the artifact bundle. It never re-derives either;
// the vector layout is identical to the one the model saw at fit time.
type Mapper struct {
	bundle *artifact.Bundle
	logger log.Logger
}

// NewMapper creates a mapper over a validated bundle.
func NewMapper(b *artifact.Bundle) *Mapper {
	return &Mapper{
		bundle: b,
		logger: log.GetLoggerWithName("inference.mapper"),
	}
}

// Vector validates rec and encodes it into a vector of exactly
// bundle.Width() values: the one-hot blocks in categorical-column order
// followed by the numeric columns.
//
// A missing categorical value or a non-finite numeric fails with a
// ValidationError naming the column, before any encoding happens. A
// category unseen at fit time encodes as its column's all-zero block;
// the condition is reported through the warnings system and the logger,
// and the prediction proceeds.
func (m *Mapper) Vector(rec Record) ([]float64, error) {
	cats, err := m.categoricalValues(rec)
	if err != nil {
		return nil, err
	}
	nums, err := m.numericValues(rec)
	if err != nil {
		return nil, err
	}

	vec, unseen, err := m.bundle.Encoder.EncodeRow(cats)
	if err != nil {
		return nil, err
	}
	for _, w := range unseen {
		errors.Warn(w)
		m.logger.Warn("category not seen during training",
			log.EncodingColumnKey, w.Column,
			log.EncodingValueKey, w.Value)
	}
	return append(vec, nums...), nil
}

// Matrix encodes a batch of records into an n×Width matrix, one row per
// record in input order.
func (m *Mapper) Matrix(recs []Record) (*mat.Dense, error) {
	if len(recs) == 0 {
		return nil, errors.NewValueError("Mapper.Matrix", "no records")
	}
	X := mat.NewDense(len(recs), m.bundle.Width(), nil)
	for i, rec := range recs {
		vec, err := m.Vector(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		X.SetRow(i, vec)
	}
	return X, nil
}

// categoricalValues collects the categorical inputs in bundle column
// order, rejecting empty values before anything is encoded.
func (m *Mapper) categoricalValues(rec Record) ([]string, error) {
	values := make([]string, len(m.bundle.CategoricalColumns))
	for i, column := range m.bundle.CategoricalColumns {
		v, known := rec.categorical(column)
		if !known {
			return nil, errors.NewValidationError(column, "not a known categorical input", nil)
		}
		if v == "" {
			return nil, errors.NewValidationError(column, "is required", v)
		}
		values[i] = v
	}
	return values, nil
}

// numericValues collects the numeric inputs in bundle column order,
// rejecting NaN and infinities.
func (m *Mapper) numericValues(rec Record) ([]float64, error) {
	values := make([]float64, len(m.bundle.NumericalColumns))
	for i, column := range m.bundle.NumericalColumns {
		v, known := rec.numeric(column)
		if !known {
			return nil, errors.NewValidationError(column, "not a known numeric input", nil)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewValidationError(column, "must be a finite number", v)
		}
		values[i] = v
	}
	return values, nil
}
