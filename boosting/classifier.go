package boosting

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mycogo/core/model"
	"github.com/YuminosukeSato/mycogo/metrics"
	"github.com/YuminosukeSato/mycogo/pkg/errors"
	"github.com/YuminosukeSato/mycogo/pkg/log"
)

// GBTClassifier is a gradient-boosted tree binary classifier with a
// scikit-learn flavoured API. Class labels are 0 (negative) and 1
// (positive); a prediction is positive only when its probability strictly
// exceeds 0.5.
//
// All fields are exported so a fitted classifier can be persisted with
// encoding/gob.
type GBTClassifier struct {
	State *model.StateManager

	Model *Model

	// Hyperparameters
	NumIterations      int
	LearningRate       float64
	MaxDepth           int
	MinDataInLeaf      int
	RegLambda          float64
	RegAlpha           float64
	MinGainToSplit     float64
	BaggingFraction    float64
	FeatureFraction    float64
	EarlyStopping      int
	ValidationFraction float64
	Objective          string
	RandomState        int64
	Verbosity          int

	// Per-iteration loss curves recorded during Fit
	TrainLossHistory      []float64
	ValidationLossHistory []float64

	// predictor is rebuilt lazily after gob decoding; predictorOnce makes
	// the rebuild safe under concurrent Predict calls.
	predictor     *Predictor
	predictorOnce sync.Once
}

var (
	_ model.Classifier      = (*GBTClassifier)(nil)
	_ model.ParameterGetter = (*GBTClassifier)(nil)
	_ model.ParameterSetter = (*GBTClassifier)(nil)
	_ model.Persistable     = (*GBTClassifier)(nil)
)

// NewGBTClassifier creates a classifier with the default hyperparameters
// (100 rounds, learning rate 0.1, depth 7, early stopping after 10 stale
// rounds on a 10% validation slice, seed 42).
func NewGBTClassifier() *GBTClassifier {
	def := DefaultTrainingParams()
	return &GBTClassifier{
		State:              model.NewStateManager(),
		NumIterations:      def.NumIterations,
		LearningRate:       def.LearningRate,
		MaxDepth:           def.MaxDepth,
		MinDataInLeaf:      def.MinDataInLeaf,
		RegLambda:          def.Lambda,
		RegAlpha:           def.Alpha,
		MinGainToSplit:     def.MinGainToSplit,
		BaggingFraction:    def.BaggingFraction,
		FeatureFraction:    def.FeatureFraction,
		EarlyStopping:      def.EarlyStopping,
		ValidationFraction: def.ValidationFraction,
		Objective:          def.Objective,
		RandomState:        def.Seed,
	}
}

// NewGBTClassifierFromParams creates a classifier with every
// hyperparameter taken from params. Zero values are filled with the
// defaults when training starts.
func NewGBTClassifierFromParams(params TrainingParams) *GBTClassifier {
	return &GBTClassifier{
		State:              model.NewStateManager(),
		NumIterations:      params.NumIterations,
		LearningRate:       params.LearningRate,
		MaxDepth:           params.MaxDepth,
		MinDataInLeaf:      params.MinDataInLeaf,
		RegLambda:          params.Lambda,
		RegAlpha:           params.Alpha,
		MinGainToSplit:     params.MinGainToSplit,
		BaggingFraction:    params.BaggingFraction,
		FeatureFraction:    params.FeatureFraction,
		EarlyStopping:      params.EarlyStopping,
		ValidationFraction: params.ValidationFraction,
		Objective:          params.Objective,
		RandomState:        params.Seed,
		Verbosity:          params.Verbosity,
	}
}

// WithNumIterations sets the number of boosting rounds
func (c *GBTClassifier) WithNumIterations(n int) *GBTClassifier {
	c.NumIterations = n
	return c
}

// WithLearningRate sets the shrinkage rate
func (c *GBTClassifier) WithLearningRate(lr float64) *GBTClassifier {
	c.LearningRate = lr
	return c
}

// WithMaxDepth sets the maximum tree depth
func (c *GBTClassifier) WithMaxDepth(d int) *GBTClassifier {
	c.MaxDepth = d
	return c
}

// WithRandomState sets the seed for sampling and the validation split
func (c *GBTClassifier) WithRandomState(seed int64) *GBTClassifier {
	c.RandomState = seed
	return c
}

// WithEarlyStopping sets the stale-round budget (0 disables)
func (c *GBTClassifier) WithEarlyStopping(rounds int) *GBTClassifier {
	c.EarlyStopping = rounds
	return c
}

// WithVerbosity sets the logging verbosity
func (c *GBTClassifier) WithVerbosity(v int) *GBTClassifier {
	c.Verbosity = v
	return c
}

// trainingParams assembles TrainingParams from the classifier fields
func (c *GBTClassifier) trainingParams() TrainingParams {
	return TrainingParams{
		NumIterations:      c.NumIterations,
		LearningRate:       c.LearningRate,
		MaxDepth:           c.MaxDepth,
		MinDataInLeaf:      c.MinDataInLeaf,
		Lambda:             c.RegLambda,
		Alpha:              c.RegAlpha,
		MinGainToSplit:     c.MinGainToSplit,
		BaggingFraction:    c.BaggingFraction,
		FeatureFraction:    c.FeatureFraction,
		EarlyStopping:      c.EarlyStopping,
		ValidationFraction: c.ValidationFraction,
		Objective:          c.Objective,
		Seed:               c.RandomState,
		Verbosity:          c.Verbosity,
	}
}

// Fit trains the classifier on X (n×d) and binary targets y (n×1)
func (c *GBTClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GBTClassifier.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("GBTClassifier.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("GBTClassifier.Fit", 1, yCols, 1)
	}

	logger := log.GetLoggerWithName("boosting.classifier")
	if c.Verbosity > 0 {
		logger.Info("Training GBTClassifier",
			log.SamplesKey, rows,
			log.FeaturesKey, cols,
			log.IterationKey, c.NumIterations,
			log.LearningRateKey, c.LearningRate,
			log.RandomSeedKey, c.RandomState)
	}

	trainer := NewTrainer(c.trainingParams())
	if err := trainer.Fit(X, y); err != nil {
		return errors.Wrap(err, "GBTClassifier.Fit")
	}

	c.Model = trainer.GetModel()
	c.TrainLossHistory, c.ValidationLossHistory = trainer.TrainingHistory()
	c.predictor = NewPredictor(c.Model)

	if c.State == nil {
		c.State = model.NewStateManager()
	}
	c.State.SetDimensions(cols, rows)
	c.State.SetFitted()

	if c.Verbosity > 0 {
		logger.Info("Training completed",
			"trees", len(c.Model.Trees),
			"best_iteration", c.Model.BestIteration)
	}
	return nil
}

// IsFitted returns whether Fit has completed
func (c *GBTClassifier) IsFitted() bool {
	return c.State != nil && c.State.IsFitted()
}

// ensurePredictor rebuilds the predictor after gob decoding
func (c *GBTClassifier) ensurePredictor() (*Predictor, error) {
	if !c.IsFitted() || c.Model == nil {
		return nil, errors.NewNotFittedError("GBTClassifier", "Predict")
	}
	c.predictorOnce.Do(func() {
		if c.predictor == nil {
			c.predictor = NewPredictor(c.Model)
		}
	})
	return c.predictor, nil
}

// Predict returns hard class labels (n×1) with values 0 or 1
func (c *GBTClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	p, err := c.ensurePredictor()
	if err != nil {
		return nil, err
	}
	return p.Predict(X)
}

// PredictProba returns class probabilities (n×2); each row sums to 1
func (c *GBTClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	p, err := c.ensurePredictor()
	if err != nil {
		return nil, err
	}
	return p.PredictProba(X)
}

// DecisionFunction returns raw additive margins (n×1)
func (c *GBTClassifier) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	p, err := c.ensurePredictor()
	if err != nil {
		return nil, err
	}
	return p.RawScores(X)
}

// Score returns the mean accuracy on X against the true labels y
func (c *GBTClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := c.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	yVec := mat.NewVecDense(rows, nil)
	predVec := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, pred.At(i, 0))
	}
	return metrics.Accuracy(yVec, predVec)
}

// Classes returns the class labels in probability-column order
func (c *GBTClassifier) Classes() []int {
	return []int{0, 1}
}

// GetParams returns the hyperparameters in scikit-learn naming
func (c *GBTClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":        c.NumIterations,
		"learning_rate":       c.LearningRate,
		"max_depth":           c.MaxDepth,
		"min_data_in_leaf":    c.MinDataInLeaf,
		"reg_lambda":          c.RegLambda,
		"reg_alpha":           c.RegAlpha,
		"min_gain_to_split":   c.MinGainToSplit,
		"bagging_fraction":    c.BaggingFraction,
		"feature_fraction":    c.FeatureFraction,
		"n_iter_no_change":    c.EarlyStopping,
		"validation_fraction": c.ValidationFraction,
		"objective":           c.Objective,
		"random_state":        c.RandomState,
	}
}

// SetParams updates hyperparameters from a scikit-learn style map.
// Unknown keys are rejected.
func (c *GBTClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "n_estimators":
			v, ok := toInt(value)
			if !ok {
				return errors.NewValidationError(key, "must be an integer", value)
			}
			c.NumIterations = v
		case "learning_rate":
			v, ok := toFloat(value)
			if !ok {
				return errors.NewValidationError(key, "must be a number", value)
			}
			c.LearningRate = v
		case "max_depth":
			v, ok := toInt(value)
			if !ok {
				return errors.NewValidationError(key, "must be an integer", value)
			}
			c.MaxDepth = v
		case "min_data_in_leaf":
			v, ok := toInt(value)
			if !ok {
				return errors.NewValidationError(key, "must be an integer", value)
			}
			c.MinDataInLeaf = v
		case "reg_lambda":
			v, ok := toFloat(value)
			if !ok {
				return errors.NewValidationError(key, "must be a number", value)
			}
			c.RegLambda = v
		case "reg_alpha":
			v, ok := toFloat(value)
			if !ok {
				return errors.NewValidationError(key, "must be a number", value)
			}
			c.RegAlpha = v
		case "min_gain_to_split":
			v, ok := toFloat(value)
			if !ok {
				return errors.NewValidationError(key, "must be a number", value)
			}
			c.MinGainToSplit = v
		case "bagging_fraction":
			v, ok := toFloat(value)
			if !ok {
				return errors.NewValidationError(key, "must be a number", value)
			}
			c.BaggingFraction = v
		case "feature_fraction":
			v, ok := toFloat(value)
			if !ok {
				return errors.NewValidationError(key, "must be a number", value)
			}
			c.FeatureFraction = v
		case "n_iter_no_change":
			v, ok := toInt(value)
			if !ok {
				return errors.NewValidationError(key, "must be an integer", value)
			}
			c.EarlyStopping = v
		case "validation_fraction":
			v, ok := toFloat(value)
			if !ok {
				return errors.NewValidationError(key, "must be a number", value)
			}
			c.ValidationFraction = v
		case "objective":
			v, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			c.Objective = v
		case "random_state":
			v, ok := toInt(value)
			if !ok {
				return errors.NewValidationError(key, "must be an integer", value)
			}
			c.RandomState = int64(v)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}

// Save persists the fitted classifier to path with encoding/gob
func (c *GBTClassifier) Save(path string) error {
	if !c.IsFitted() {
		return errors.NewNotFittedError("GBTClassifier", "Save")
	}
	return model.SaveModel(c, path)
}

// Load restores a fitted classifier from path
func (c *GBTClassifier) Load(path string) error {
	if err := model.LoadModel(c, path); err != nil {
		return err
	}
	c.predictor = nil
	c.predictorOnce = sync.Once{}
	return nil
}

func toInt(v interface{}) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x == float64(int(x)) {
			return int(x), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
