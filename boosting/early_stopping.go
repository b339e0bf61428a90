package boosting

import "math"

// EarlyStopping tracks the validation loss across boosting iterations and
// signals when training has stopped improving. Scores are minimized.
type EarlyStopping struct {
	Rounds          int     // Stale rounds tolerated before stopping
	MinDelta        float64 // Improvement below this counts as stale
	BestScore       float64
	BestIteration   int // 0-based iteration of the best score
	RoundsNoImprove int
	Enabled         bool
}

// NewEarlyStopping creates an early stopping monitor. A non-positive
// rounds value disables it.
func NewEarlyStopping(rounds int, minDelta float64) *EarlyStopping {
	if rounds <= 0 {
		return &EarlyStopping{Enabled: false}
	}
	if minDelta < 0 {
		minDelta = 0
	}
	return &EarlyStopping{
		Rounds:    rounds,
		MinDelta:  minDelta,
		BestScore: math.Inf(1),
		Enabled:   true,
	}
}

// Update records the validation score of one iteration and returns true
// when training should stop
func (es *EarlyStopping) Update(iteration int, score float64) bool {
	if !es.Enabled {
		return false
	}
	if score < es.BestScore-es.MinDelta {
		es.BestScore = score
		es.BestIteration = iteration
		es.RoundsNoImprove = 0
	} else {
		es.RoundsNoImprove++
	}
	return es.RoundsNoImprove >= es.Rounds
}

// BestTreeCount returns the number of trees to keep, 0 when disabled or
// before any update
func (es *EarlyStopping) BestTreeCount() int {
	if !es.Enabled || math.IsInf(es.BestScore, 1) {
		return 0
	}
	return es.BestIteration + 1
}
