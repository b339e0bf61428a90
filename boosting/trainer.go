package boosting

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mycogo/pkg/errors"
	"github.com/YuminosukeSato/mycogo/pkg/log"
)

// Trainer implements gradient boosting with second-order leaf weights.
// One regression tree is grown per iteration on the logistic gradients,
// with an optional internal validation slice driving early stopping.
type Trainer struct {
	params TrainingParams

	X *mat.Dense
	y *mat.Dense

	// Internal train/validation partition (row indices into X)
	trainIdx []int
	valIdx   []int

	// Cached raw margins, updated incrementally per tree
	rawScores []float64

	gradients []float64
	hessians  []float64

	trees     []Tree
	iteration int

	objective      ObjectiveFunction
	initScore      float64
	sampling       *SamplingStrategy
	regularization *RegularizationStrategy
	earlyStopping  *EarlyStopping

	// Per-iteration loss history for reporting
	trainLossHistory []float64
	valLossHistory   []float64
}

// SplitInfo describes the best split found for a node
type SplitInfo struct {
	Feature    int
	Threshold  float64
	Gain       float64
	LeftCount  int
	RightCount int
}

// NewTrainer creates a trainer, filling unset parameters with defaults
func NewTrainer(params TrainingParams) *Trainer {
	params = params.withDefaults()
	return &Trainer{
		params:         params,
		sampling:       NewSamplingStrategy(params),
		regularization: NewRegularizationStrategy(params),
		earlyStopping:  NewEarlyStopping(params.EarlyStopping, 1e-4),
	}
}

// Params returns the effective training parameters
func (t *Trainer) Params() TrainingParams {
	return t.params
}

// Fit trains the ensemble on X (n×d) and binary targets y (n×1)
func (t *Trainer) Fit(X, y mat.Matrix) error {
	if err := t.params.Validate(); err != nil {
		return err
	}

	t.X = denseCopy(X)
	t.y = denseCopy(y)

	rows, _ := t.X.Dims()
	yRows, yCols := t.y.Dims()
	if rows == 0 {
		return errors.NewModelError("Trainer.Fit", "empty training data", errors.ErrEmptyData)
	}
	if yRows != rows {
		return errors.NewDimensionError("Trainer.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("Trainer.Fit", 1, yCols, 1)
	}
	for i := 0; i < rows; i++ {
		v := t.y.At(i, 0)
		if v != 0 && v != 1 {
			return errors.NewValueError("Trainer.Fit", "targets must be binary (0 or 1)")
		}
	}

	objective, err := CreateObjective(t.params.Objective)
	if err != nil {
		return err
	}
	t.objective = objective

	t.partitionValidation(rows)

	targets := make([]float64, len(t.trainIdx))
	for i, idx := range t.trainIdx {
		targets[i] = t.y.At(idx, 0)
	}
	t.initScore = t.objective.GetInitScore(targets)
	if err := errors.CheckScalar("Trainer.Fit", t.initScore, 0); err != nil {
		return err
	}

	t.rawScores = make([]float64, rows)
	for i := range t.rawScores {
		t.rawScores[i] = t.initScore
	}
	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)

	logger := log.GetLoggerWithName("boosting.trainer")
	if t.params.Verbosity > 0 {
		logger.Info("Training started",
			"samples", len(t.trainIdx),
			"validation_samples", len(t.valIdx),
			"iterations", t.params.NumIterations,
			"learning_rate", t.params.LearningRate,
			"max_depth", t.params.MaxDepth)
	}

	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.iteration = iter

		t.calculateGradients()

		rowSample := t.sampleTrainRows()
		features := t.sampling.SampleFeatures(t.numFeatures())

		tree, err := t.buildTree(rowSample, features)
		if err != nil {
			return errors.Wrapf(err, "tree building failed at iteration %d", iter)
		}
		t.trees = append(t.trees, tree)
		t.updateRawScores(tree)
		if err := errors.CheckNumericalStability("Trainer.Fit", t.rawScores, iter); err != nil {
			return err
		}

		trainLoss := t.meanLoss(t.trainIdx)
		t.trainLossHistory = append(t.trainLossHistory, trainLoss)

		if len(t.valIdx) > 0 {
			valLoss := t.meanLoss(t.valIdx)
			t.valLossHistory = append(t.valLossHistory, valLoss)

			if t.earlyStopping.Update(iter, valLoss) {
				best := t.earlyStopping.BestTreeCount()
				if best > 0 && best < len(t.trees) {
					t.trees = t.trees[:best]
				}
				if t.params.Verbosity > 0 {
					logger.Info("Early stopping",
						"iteration", iter,
						"best_iteration", t.earlyStopping.BestIteration,
						"best_score", t.earlyStopping.BestScore)
				}
				break
			}
		}

		if t.params.Verbosity > 0 && iter%10 == 0 {
			logger.Debug("Training progress",
				"iteration", iter,
				"loss", trainLoss)
		}
	}

	return nil
}

// partitionValidation carves the internal validation slice out of the
// training rows with a seeded shuffle
func (t *Trainer) partitionValidation(rows int) {
	if t.params.EarlyStopping <= 0 || t.params.ValidationFraction <= 0 {
		t.trainIdx = sequence(rows)
		t.valIdx = nil
		return
	}
	nVal := int(math.Round(t.params.ValidationFraction * float64(rows)))
	if nVal < 1 {
		nVal = 1
	}
	if nVal >= rows {
		// Too little data to hold out; train on everything
		t.trainIdx = sequence(rows)
		t.valIdx = nil
		return
	}
	idx := sequence(rows)
	rng := rand.New(rand.NewSource(t.params.Seed))
	rng.Shuffle(rows, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	t.valIdx = idx[:nVal]
	t.trainIdx = idx[nVal:]
	sort.Ints(t.valIdx)
	sort.Ints(t.trainIdx)
}

func (t *Trainer) numFeatures() int {
	_, cols := t.X.Dims()
	return cols
}

// sampleTrainRows maps the bagging sample back to training row indices
func (t *Trainer) sampleTrainRows() []int {
	local := t.sampling.SampleInstances(len(t.trainIdx))
	rows := make([]int, len(local))
	for i, l := range local {
		rows[i] = t.trainIdx[l]
	}
	return rows
}

// calculateGradients refreshes the gradient and hessian of every training
// row from the cached raw margins
func (t *Trainer) calculateGradients() {
	for _, idx := range t.trainIdx {
		target := t.y.At(idx, 0)
		t.gradients[idx] = t.objective.CalculateGradient(t.rawScores[idx], target)
		t.hessians[idx] = t.objective.CalculateHessian(t.rawScores[idx], target)
	}
}

// updateRawScores folds one new tree into the cached margins of all rows
func (t *Trainer) updateRawScores(tree Tree) {
	rows, cols := t.X.Dims()
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, t.X)
		t.rawScores[i] += tree.Predict(features)
	}
}

// meanLoss computes the mean objective loss over the given rows
func (t *Trainer) meanLoss(rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	loss := 0.0
	for _, idx := range rows {
		loss += t.objective.CalculateLoss(t.rawScores[idx], t.y.At(idx, 0))
	}
	return loss / float64(len(rows))
}

// buildTree grows one depth-first regression tree on the sampled rows
func (t *Trainer) buildTree(indices, features []int) (Tree, error) {
	tree := Tree{
		TreeIndex:     t.iteration,
		ShrinkageRate: t.params.LearningRate,
	}
	t.buildNode(&tree, indices, features, -1, 0)
	for _, node := range tree.Nodes {
		if node.IsLeaf() {
			tree.NumLeaves++
		}
	}
	return tree, nil
}

// buildNode appends the subtree for the given rows and returns its index
func (t *Trainer) buildNode(tree *Tree, indices, features []int, parentID, depth int) int {
	nodeID := len(tree.Nodes)

	if depth >= t.params.MaxDepth || len(indices) < 2*t.params.MinDataInLeaf {
		return t.appendLeaf(tree, indices, parentID)
	}

	best := t.findBestSplit(indices, features)
	if best.Gain < t.params.MinGainToSplit {
		return t.appendLeaf(tree, indices, parentID)
	}

	tree.Nodes = append(tree.Nodes, Node{
		NodeID:       nodeID,
		ParentID:     parentID,
		NodeType:     SplitNode,
		SplitFeature: best.Feature,
		Threshold:    best.Threshold,
		Gain:         best.Gain,
		LeftChild:    -1,
		RightChild:   -1,
		SampleCount:  len(indices),
	})

	var left, right []int
	for _, idx := range indices {
		if t.X.At(idx, best.Feature) <= best.Threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	leftChild := t.buildNode(tree, left, features, nodeID, depth+1)
	rightChild := t.buildNode(tree, right, features, nodeID, depth+1)
	tree.Nodes[nodeID].LeftChild = leftChild
	tree.Nodes[nodeID].RightChild = rightChild
	return nodeID
}

// appendLeaf appends a leaf with the regularized optimal weight
func (t *Trainer) appendLeaf(tree *Tree, indices []int, parentID int) int {
	nodeID := len(tree.Nodes)
	sumGrad, sumHess := 0.0, 0.0
	for _, idx := range indices {
		sumGrad += t.gradients[idx]
		sumHess += t.hessians[idx]
	}
	tree.Nodes = append(tree.Nodes, Node{
		NodeID:      nodeID,
		ParentID:    parentID,
		NodeType:    LeafNode,
		LeafValue:   t.regularization.LeafValue(sumGrad, sumHess),
		LeftChild:   -1,
		RightChild:  -1,
		SampleCount: len(indices),
	})
	return nodeID
}

// findBestSplit scans the sampled features for the highest-gain split
func (t *Trainer) findBestSplit(indices, features []int) SplitInfo {
	best := SplitInfo{Gain: math.Inf(-1)}
	for _, feature := range features {
		split := t.findBestSplitForFeature(indices, feature)
		if split.Gain > best.Gain {
			best = split
		}
	}
	return best
}

// findBestSplitForFeature scans every threshold of one feature with a
// sorted prefix sweep over gradients and hessians
func (t *Trainer) findBestSplitForFeature(indices []int, feature int) SplitInfo {
	type valueIndex struct {
		value float64
		idx   int
	}
	values := make([]valueIndex, len(indices))
	totalGrad, totalHess := 0.0, 0.0
	for i, idx := range indices {
		values[i] = valueIndex{value: t.X.At(idx, feature), idx: idx}
		totalGrad += t.gradients[idx]
		totalHess += t.hessians[idx]
	}
	sort.Slice(values, func(a, b int) bool { return values[a].value < values[b].value })

	best := SplitInfo{Feature: feature, Gain: math.Inf(-1)}
	leftGrad, leftHess := 0.0, 0.0
	leftCount := 0

	for i := 0; i < len(values)-1; i++ {
		leftGrad += t.gradients[values[i].idx]
		leftHess += t.hessians[values[i].idx]
		leftCount++

		// Cannot split between identical values
		if values[i].value == values[i+1].value {
			continue
		}

		rightCount := len(indices) - leftCount
		if leftCount < t.params.MinDataInLeaf || rightCount < t.params.MinDataInLeaf {
			continue
		}

		gain := t.regularization.SplitGain(leftGrad, leftHess, totalGrad-leftGrad, totalHess-leftHess)
		if gain > best.Gain {
			best.Gain = gain
			best.Threshold = (values[i].value + values[i+1].value) / 2
			best.LeftCount = leftCount
			best.RightCount = rightCount
		}
	}
	return best
}

// GetModel returns the trained ensemble
func (t *Trainer) GetModel() *Model {
	model := NewModel()
	model.Trees = t.trees
	model.NumIteration = len(t.trees)
	model.NumFeatures = t.numFeatures()
	model.Objective = t.params.Objective
	model.LearningRate = t.params.LearningRate
	model.MaxDepth = t.params.MaxDepth
	model.InitScore = t.initScore
	if best := t.earlyStopping.BestTreeCount(); best > 0 {
		model.BestIteration = best
	}
	return model
}

// TrainingHistory returns the per-iteration train and validation losses.
// The validation slice is empty when early stopping was disabled.
func (t *Trainer) TrainingHistory() (trainLoss, valLoss []float64) {
	return t.trainLossHistory, t.valLossHistory
}

// denseCopy converts any matrix into a fresh Dense copy
func denseCopy(m mat.Matrix) *mat.Dense {
	if d, ok := m.(*mat.Dense); ok {
		var cp mat.Dense
		cp.CloneFrom(d)
		return &cp
	}
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(i, j))
		}
	}
	return out
}

// sequence returns [0, 1, ..., n-1]
func sequence(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}
