package boosting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainingParamsDefaults(t *testing.T) {
	p := TrainingParams{}.withDefaults()

	assert.Equal(t, 100, p.NumIterations)
	assert.Equal(t, 0.1, p.LearningRate)
	assert.Equal(t, 7, p.MaxDepth)
	assert.Equal(t, "binary", p.Objective)
	assert.Equal(t, 1.0, p.BaggingFraction)
	assert.Equal(t, 0.1, p.ValidationFraction)

	// Explicit values survive
	p2 := TrainingParams{NumIterations: 5, MaxDepth: 3}.withDefaults()
	assert.Equal(t, 5, p2.NumIterations)
	assert.Equal(t, 3, p2.MaxDepth)
}

func TestTrainingParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TrainingParams)
	}{
		{"zero iterations", func(p *TrainingParams) { p.NumIterations = -1 }},
		{"learning rate above one", func(p *TrainingParams) { p.LearningRate = 1.5 }},
		{"negative depth", func(p *TrainingParams) { p.MaxDepth = -2 }},
		{"bagging fraction above one", func(p *TrainingParams) { p.BaggingFraction = 2 }},
		{"validation fraction with early stopping", func(p *TrainingParams) {
			p.EarlyStopping = 10
			p.ValidationFraction = 1.0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultTrainingParams()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}

	assert.NoError(t, DefaultTrainingParams().Validate())
}

func TestSamplingStrategyDeterministic(t *testing.T) {
	params := DefaultTrainingParams()
	params.BaggingFraction = 0.5
	params.FeatureFraction = 0.5
	params.Seed = 7

	s1 := NewSamplingStrategy(params)
	s2 := NewSamplingStrategy(params)

	assert.Equal(t, s1.SampleInstances(100), s2.SampleInstances(100))
	assert.Equal(t, s1.SampleFeatures(20), s2.SampleFeatures(20))
}

func TestSamplingStrategyFractions(t *testing.T) {
	params := DefaultTrainingParams()
	params.BaggingFraction = 0.5
	s := NewSamplingStrategy(params)

	rows := s.SampleInstances(100)
	assert.Len(t, rows, 50)

	// Sampling is without replacement
	seen := make(map[int]struct{})
	for _, r := range rows {
		_, dup := seen[r]
		require.False(t, dup, "row %d sampled twice", r)
		seen[r] = struct{}{}
		assert.GreaterOrEqual(t, r, 0)
		assert.Less(t, r, 100)
	}

	// Full fraction returns every index in order
	params.BaggingFraction = 1.0
	all := NewSamplingStrategy(params).SampleInstances(5)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, all)
}

func TestRegularizationLeafValue(t *testing.T) {
	t.Run("Plain newton step", func(t *testing.T) {
		r := NewRegularizationStrategy(TrainingParams{})
		// -G/H = -(-10)/20
		assert.InDelta(t, 0.5, r.LeafValue(-10, 20), 1e-9)
	})

	t.Run("L2 shrinks the leaf", func(t *testing.T) {
		r := NewRegularizationStrategy(TrainingParams{Lambda: 20})
		assert.InDelta(t, 0.25, r.LeafValue(-10, 20), 1e-9)
	})

	t.Run("L1 soft thresholding zeroes small leaves", func(t *testing.T) {
		r := NewRegularizationStrategy(TrainingParams{Alpha: 5})
		assert.Equal(t, 0.0, r.LeafValue(3, 10))
		assert.InDelta(t, -0.5, r.LeafValue(10, 10), 1e-9)
	})
}

func TestRegularizationSplitGain(t *testing.T) {
	r := NewRegularizationStrategy(TrainingParams{})

	// Perfectly separated gradients give a large positive gain
	gain := r.SplitGain(-10, 5, 10, 5)
	// 0.5 * (100/5 + 100/5 - 0/10) = 20
	assert.InDelta(t, 20, gain, 1e-6)

	// A split that separates nothing gains nothing
	flat := r.SplitGain(-5, 5, -5, 5)
	assert.InDelta(t, 0, flat, 1e-6)
}
