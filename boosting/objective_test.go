package boosting

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryLogisticGradients(t *testing.T) {
	obj := NewBinaryLogisticObjective()

	t.Run("Gradient is p minus y", func(t *testing.T) {
		// At raw score 0 the probability is 0.5
		assert.InDelta(t, 0.5, obj.CalculateGradient(0, 0), 1e-12)
		assert.InDelta(t, -0.5, obj.CalculateGradient(0, 1), 1e-12)

		// Confident correct prediction has a small gradient
		assert.Less(t, math.Abs(obj.CalculateGradient(5, 1)), 0.01)
		// Confident wrong prediction has a gradient near -1
		assert.InDelta(t, -1.0, obj.CalculateGradient(-5, 1), 0.01)
	})

	t.Run("Hessian is p times one minus p", func(t *testing.T) {
		assert.InDelta(t, 0.25, obj.CalculateHessian(0, 0), 1e-12)
		// The hessian never vanishes completely
		assert.Greater(t, obj.CalculateHessian(100, 1), 0.0)
	})

	t.Run("Loss is the binary cross entropy", func(t *testing.T) {
		// p = 0.5 for both classes
		assert.InDelta(t, math.Log(2), obj.CalculateLoss(0, 1), 1e-12)
		assert.InDelta(t, math.Log(2), obj.CalculateLoss(0, 0), 1e-12)
		// Certain and correct costs almost nothing
		assert.Less(t, obj.CalculateLoss(10, 1), 0.001)
	})
}

func TestBinaryLogisticInitScore(t *testing.T) {
	obj := NewBinaryLogisticObjective()

	t.Run("Balanced classes give zero log odds", func(t *testing.T) {
		assert.InDelta(t, 0.0, obj.GetInitScore([]float64{0, 1, 0, 1}), 1e-12)
	})

	t.Run("Imbalanced classes give the log odds", func(t *testing.T) {
		// 3 positives out of 4: log(0.75/0.25) = log(3)
		got := obj.GetInitScore([]float64{1, 1, 1, 0})
		assert.InDelta(t, math.Log(3), got, 1e-12)
	})

	t.Run("Single-class targets stay finite", func(t *testing.T) {
		got := obj.GetInitScore([]float64{1, 1, 1})
		assert.False(t, math.IsInf(got, 0))
		assert.Greater(t, got, 0.0)
	})

	t.Run("Empty targets give zero", func(t *testing.T) {
		assert.Equal(t, 0.0, obj.GetInitScore(nil))
	})
}

func TestSigmoid(t *testing.T) {
	assert.InDelta(t, 0.5, Sigmoid(0), 1e-12)
	assert.InDelta(t, 1.0, Sigmoid(40), 1e-12)
	assert.InDelta(t, 0.0, Sigmoid(-40), 1e-12)
	// Extreme scores must not overflow
	assert.False(t, math.IsNaN(Sigmoid(1e6)))
	assert.False(t, math.IsNaN(Sigmoid(-1e6)))
}

func TestCreateObjective(t *testing.T) {
	obj, err := CreateObjective("binary")
	require.NoError(t, err)
	assert.Equal(t, "binary", obj.Name())

	_, err = CreateObjective("regression")
	assert.Error(t, err)
}
