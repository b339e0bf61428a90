package boosting

import (
	"math"

	"github.com/YuminosukeSato/mycogo/pkg/errors"
)

// ObjectiveType names a supported objective function
type ObjectiveType string

const (
	// ObjectiveBinary is binary classification with the logistic link
	ObjectiveBinary ObjectiveType = "binary"
)

// ObjectiveFunction supplies the per-sample derivatives the trainer needs.
// Predictions passed in are raw margins, not probabilities.
type ObjectiveFunction interface {
	// CalculateGradient returns the first derivative of the loss with
	// respect to the raw score
	CalculateGradient(rawScore, target float64) float64

	// CalculateHessian returns the second derivative of the loss with
	// respect to the raw score
	CalculateHessian(rawScore, target float64) float64

	// CalculateLoss returns the loss for a single sample
	CalculateLoss(rawScore, target float64) float64

	// GetInitScore returns the constant base score fitted to the targets
	GetInitScore(targets []float64) float64

	// Name returns the objective's registry name
	Name() string
}

// probabilityEpsilon clips probabilities away from 0 and 1 so the log
// loss and hessian stay finite
const probabilityEpsilon = 1e-15

// BinaryLogisticObjective implements binary cross-entropy on raw margins.
//
// With p = sigmoid(score) the derivatives are grad = p - y and
// hess = p * (1 - p).
type BinaryLogisticObjective struct{}

// NewBinaryLogisticObjective creates the binary log-loss objective
func NewBinaryLogisticObjective() *BinaryLogisticObjective {
	return &BinaryLogisticObjective{}
}

func (o *BinaryLogisticObjective) CalculateGradient(rawScore, target float64) float64 {
	return Sigmoid(rawScore) - target
}

func (o *BinaryLogisticObjective) CalculateHessian(rawScore, target float64) float64 {
	p := Sigmoid(rawScore)
	h := p * (1 - p)
	// A vanishing hessian would blow up the leaf values
	if h < probabilityEpsilon {
		h = probabilityEpsilon
	}
	return h
}

func (o *BinaryLogisticObjective) CalculateLoss(rawScore, target float64) float64 {
	p := clipProbability(Sigmoid(rawScore))
	return -(target*math.Log(p) + (1-target)*math.Log(1-p))
}

// GetInitScore returns the log-odds of the positive class, the constant
// minimizer of the log loss
func (o *BinaryLogisticObjective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	p := clipProbability(sum / float64(len(targets)))
	return math.Log(p / (1 - p))
}

func (o *BinaryLogisticObjective) Name() string {
	return string(ObjectiveBinary)
}

func clipProbability(p float64) float64 {
	if p < probabilityEpsilon {
		return probabilityEpsilon
	}
	if p > 1-probabilityEpsilon {
		return 1 - probabilityEpsilon
	}
	return p
}

// CreateObjective builds the objective function registered under name
func CreateObjective(name string) (ObjectiveFunction, error) {
	switch ObjectiveType(name) {
	case ObjectiveBinary:
		return NewBinaryLogisticObjective(), nil
	default:
		return nil, errors.NewValueError("boosting.CreateObjective", "unknown objective: "+name)
	}
}
