package boosting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEarlyStoppingDisabled(t *testing.T) {
	es := NewEarlyStopping(0, 1e-4)
	assert.False(t, es.Enabled)
	assert.False(t, es.Update(0, 1.0))
	assert.Equal(t, 0, es.BestTreeCount())
}

func TestEarlyStoppingStopsAfterStaleRounds(t *testing.T) {
	es := NewEarlyStopping(3, 1e-4)

	assert.False(t, es.Update(0, 0.70))
	assert.False(t, es.Update(1, 0.60)) // improvement
	assert.False(t, es.Update(2, 0.61)) // stale 1
	assert.False(t, es.Update(3, 0.62)) // stale 2
	assert.True(t, es.Update(4, 0.63)) // stale 3 -> stop

	assert.Equal(t, 1, es.BestIteration)
	assert.Equal(t, 2, es.BestTreeCount())
	assert.InDelta(t, 0.60, es.BestScore, 1e-12)
}

func TestEarlyStoppingMinDelta(t *testing.T) {
	es := NewEarlyStopping(2, 0.01)

	assert.False(t, es.Update(0, 0.500))
	// Improves, but by less than min delta: counts as stale
	assert.False(t, es.Update(1, 0.495))
	assert.True(t, es.Update(2, 0.494))

	assert.Equal(t, 0, es.BestIteration)
	assert.Equal(t, 1, es.BestTreeCount())
}

func TestEarlyStoppingCounterResets(t *testing.T) {
	es := NewEarlyStopping(2, 0)

	assert.False(t, es.Update(0, 1.0))
	assert.False(t, es.Update(1, 1.1)) // stale 1
	assert.False(t, es.Update(2, 0.9)) // improvement resets the counter
	assert.False(t, es.Update(3, 1.0)) // stale 1
	assert.True(t, es.Update(4, 1.0)) // stale 2

	assert.Equal(t, 2, es.BestIteration)
	assert.Equal(t, 3, es.BestTreeCount())
}
