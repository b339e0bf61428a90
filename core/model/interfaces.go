package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is the interface for models that learn from data.
type Fitter interface {
	// Fit trains the model on the given samples and targets.
	Fit(X, y mat.Matrix) error
}

// Predictor is the interface for models that predict targets for samples.
type Predictor interface {
	// Predict returns the predicted targets for X.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is the common contract of trainable predictors.
type Estimator interface {
	Fitter
	Predictor

	// IsFitted reports whether Fit has completed successfully.
	IsFitted() bool
}

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns a goodness-of-fit measure of the prediction.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Estimator
	Scorer

	// PredictProba returns probability estimates for each class.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the unique classes seen during fitting.
	Classes() []int
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}

// Persistable is the interface for models that can be saved and loaded.
type Persistable interface {
	// Save saves the model to a file.
	Save(path string) error

	// Load loads the model from a file.
	Load(path string) error
}
