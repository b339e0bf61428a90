package boosting

import (
	"math/rand"

	"github.com/YuminosukeSato/mycogo/pkg/errors"
)

// TrainingParams contains all training hyperparameters
type TrainingParams struct {
	// Boosting schedule
	NumIterations int     `json:"num_iterations" yaml:"num_iterations"`
	LearningRate  float64 `json:"learning_rate" yaml:"learning_rate"`

	// Tree growth
	MaxDepth      int `json:"max_depth" yaml:"max_depth"`
	MinDataInLeaf int `json:"min_data_in_leaf" yaml:"min_data_in_leaf"`

	// Regularization
	Lambda         float64 `json:"lambda_l2" yaml:"lambda_l2"`
	Alpha          float64 `json:"lambda_l1" yaml:"lambda_l1"`
	MinGainToSplit float64 `json:"min_gain_to_split" yaml:"min_gain_to_split"`

	// Sampling
	BaggingFraction float64 `json:"bagging_fraction" yaml:"bagging_fraction"`
	FeatureFraction float64 `json:"feature_fraction" yaml:"feature_fraction"`

	// Early stopping on an internal validation slice
	EarlyStopping      int     `json:"early_stopping_rounds" yaml:"early_stopping_rounds"`
	ValidationFraction float64 `json:"validation_fraction" yaml:"validation_fraction"`

	Objective string `json:"objective" yaml:"objective"`
	Seed      int64  `json:"seed" yaml:"seed"`
	Verbosity int    `json:"verbosity" yaml:"verbosity"`
}

// DefaultTrainingParams mirrors the reference training run: 100 rounds at
// learning rate 0.1, depth-7 trees, early stopping after 10 stale rounds
// on a 10% validation slice.
func DefaultTrainingParams() TrainingParams {
	return TrainingParams{
		NumIterations:      100,
		LearningRate:       0.1,
		MaxDepth:           7,
		MinDataInLeaf:      1,
		Lambda:             0,
		Alpha:              0,
		MinGainToSplit:     1e-7,
		BaggingFraction:    1.0,
		FeatureFraction:    1.0,
		EarlyStopping:      10,
		ValidationFraction: 0.1,
		Objective:          string(ObjectiveBinary),
		Seed:               42,
	}
}

// withDefaults fills zero values with their defaults
func (p TrainingParams) withDefaults() TrainingParams {
	def := DefaultTrainingParams()
	if p.NumIterations == 0 {
		p.NumIterations = def.NumIterations
	}
	if p.LearningRate == 0 {
		p.LearningRate = def.LearningRate
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = def.MaxDepth
	}
	if p.MinDataInLeaf == 0 {
		p.MinDataInLeaf = def.MinDataInLeaf
	}
	if p.MinGainToSplit == 0 {
		p.MinGainToSplit = def.MinGainToSplit
	}
	if p.BaggingFraction == 0 {
		p.BaggingFraction = def.BaggingFraction
	}
	if p.FeatureFraction == 0 {
		p.FeatureFraction = def.FeatureFraction
	}
	if p.ValidationFraction == 0 {
		p.ValidationFraction = def.ValidationFraction
	}
	if p.Objective == "" {
		p.Objective = def.Objective
	}
	return p
}

// Validate rejects parameter combinations the trainer cannot honor
func (p TrainingParams) Validate() error {
	if p.NumIterations < 1 {
		return errors.NewValidationError("num_iterations", "must be at least 1", p.NumIterations)
	}
	if p.LearningRate <= 0 || p.LearningRate > 1 {
		return errors.NewValidationError("learning_rate", "must be in (0, 1]", p.LearningRate)
	}
	if p.MaxDepth < 1 {
		return errors.NewValidationError("max_depth", "must be at least 1", p.MaxDepth)
	}
	if p.MinDataInLeaf < 1 {
		return errors.NewValidationError("min_data_in_leaf", "must be at least 1", p.MinDataInLeaf)
	}
	if p.BaggingFraction <= 0 || p.BaggingFraction > 1 {
		return errors.NewValidationError("bagging_fraction", "must be in (0, 1]", p.BaggingFraction)
	}
	if p.FeatureFraction <= 0 || p.FeatureFraction > 1 {
		return errors.NewValidationError("feature_fraction", "must be in (0, 1]", p.FeatureFraction)
	}
	if p.EarlyStopping > 0 && (p.ValidationFraction <= 0 || p.ValidationFraction >= 1) {
		return errors.NewValidationError("validation_fraction", "must be in (0, 1) when early stopping is enabled", p.ValidationFraction)
	}
	return nil
}

// SamplingStrategy draws the row and feature subsets used for one
// boosting iteration. Draws are deterministic for a fixed seed.
type SamplingStrategy struct {
	rng             *rand.Rand
	baggingFraction float64
	featureFraction float64
}

// NewSamplingStrategy creates a seeded sampling strategy
func NewSamplingStrategy(params TrainingParams) *SamplingStrategy {
	return &SamplingStrategy{
		rng:             rand.New(rand.NewSource(params.Seed)),
		baggingFraction: params.BaggingFraction,
		featureFraction: params.FeatureFraction,
	}
}

// SampleInstances returns the row indices participating in this iteration
func (s *SamplingStrategy) SampleInstances(numInstances int) []int {
	return s.sample(numInstances, s.baggingFraction)
}

// SampleFeatures returns the feature indices the tree may split on
func (s *SamplingStrategy) SampleFeatures(numFeatures int) []int {
	return s.sample(numFeatures, s.featureFraction)
}

func (s *SamplingStrategy) sample(n int, fraction float64) []int {
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	if fraction >= 1.0 || fraction <= 0 {
		return all
	}
	k := int(float64(n) * fraction)
	if k < 1 {
		k = 1
	}
	// Partial Fisher-Yates: the first k entries are the sample
	for i := 0; i < k; i++ {
		j := i + s.rng.Intn(n-i)
		all[i], all[j] = all[j], all[i]
	}
	return all[:k]
}

// RegularizationStrategy computes regularized leaf values and split gains
type RegularizationStrategy struct {
	lambdaL1 float64
	lambdaL2 float64
}

// NewRegularizationStrategy creates a regularization strategy from params
func NewRegularizationStrategy(params TrainingParams) *RegularizationStrategy {
	return &RegularizationStrategy{
		lambdaL1: params.Alpha,
		lambdaL2: params.Lambda,
	}
}

const leafEpsilon = 1e-10

// LeafValue returns the optimal leaf weight -G/(H+lambda), with L1 soft
// thresholding when configured
func (r *RegularizationStrategy) LeafValue(sumGrad, sumHess float64) float64 {
	denom := sumHess + r.lambdaL2 + leafEpsilon
	if r.lambdaL1 > 0 {
		switch {
		case sumGrad > r.lambdaL1:
			return -(sumGrad - r.lambdaL1) / denom
		case sumGrad < -r.lambdaL1:
			return -(sumGrad + r.lambdaL1) / denom
		default:
			return 0
		}
	}
	return -sumGrad / denom
}

// SplitGain returns 0.5 * (GL^2/(HL+lambda) + GR^2/(HR+lambda) - G^2/(H+lambda))
func (r *RegularizationStrategy) SplitGain(leftGrad, leftHess, rightGrad, rightHess float64) float64 {
	totalGrad := leftGrad + rightGrad
	totalHess := leftHess + rightHess
	return 0.5 * (r.score(leftGrad, leftHess) + r.score(rightGrad, rightHess) - r.score(totalGrad, totalHess))
}

func (r *RegularizationStrategy) score(sumGrad, sumHess float64) float64 {
	return (sumGrad * sumGrad) / (sumHess + r.lambdaL2 + leafEpsilon)
}
