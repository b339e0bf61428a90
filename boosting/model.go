package boosting

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mycogo/pkg/errors"
)

// NodeType represents the type of a tree node
type NodeType int

const (
	// LeafNode is a terminal node carrying a value
	LeafNode NodeType = iota
	// SplitNode is an internal node with a numerical threshold split
	SplitNode
)

// Node is a single node in a regression tree. All fields are exported so
// the containing model can be persisted with encoding/gob.
type Node struct {
	NodeID     int
	ParentID   int // -1 for the root
	LeftChild  int // -1 if leaf
	RightChild int // -1 if leaf
	NodeType   NodeType

	// Split information (internal nodes)
	SplitFeature int
	Threshold    float64
	Gain         float64

	// Leaf information
	LeafValue   float64
	SampleCount int
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is a single regression tree in the ensemble. Samples are routed
// left when feature <= threshold.
type Tree struct {
	TreeIndex     int
	NumLeaves     int
	ShrinkageRate float64
	Nodes         []Node
}

// Predict returns the shrunken leaf value for one sample
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0
}

// Model is a trained gradient-boosted tree ensemble for binary
// classification. Raw scores are additive margins; the objective link
// (sigmoid) is applied by the Predictor.
type Model struct {
	Objective    string
	NumFeatures  int
	NumIteration int
	// BestIteration is the 1-based number of trees selected by early
	// stopping, or 0 when every tree is used.
	BestIteration int
	LearningRate  float64
	MaxDepth      int
	InitScore     float64
	Trees         []Tree
	FeatureNames  []string
}

// NewModel creates an empty model
func NewModel() *Model {
	return &Model{
		Objective:    string(ObjectiveBinary),
		LearningRate: 0.1,
	}
}

// usableTrees returns how many trees prediction should accumulate
func (m *Model) usableTrees() int {
	n := len(m.Trees)
	if m.BestIteration > 0 && m.BestIteration < n {
		n = m.BestIteration
	}
	return n
}

// RawScore computes the additive margin for one sample
func (m *Model) RawScore(features []float64) float64 {
	score := m.InitScore
	n := m.usableTrees()
	for i := 0; i < n; i++ {
		score += m.Trees[i].Predict(features)
	}
	return score
}

// RawScores computes additive margins for every row of X
func (m *Model) RawScores(X mat.Matrix) (*mat.VecDense, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.RawScores", m.NumFeatures, cols, 1)
	}
	out := mat.NewVecDense(rows, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		out.SetVec(i, m.RawScore(features))
	}
	return out, nil
}

// Sigmoid applies the logistic link with guards against overflow
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// FeatureImportance returns per-feature importance scores normalized to
// sum to 1. importanceType is "split" (number of times a feature is used)
// or "gain" (total gain contributed by the feature's splits).
func (m *Model) FeatureImportance(importanceType string) ([]float64, error) {
	if importanceType != "split" && importanceType != "gain" {
		return nil, errors.NewValueError("Model.FeatureImportance", "importance type must be \"split\" or \"gain\"")
	}
	importance := make([]float64, m.NumFeatures)
	n := m.usableTrees()
	for i := 0; i < n; i++ {
		for _, node := range m.Trees[i].Nodes {
			if node.IsLeaf() {
				continue
			}
			switch importanceType {
			case "split":
				importance[node.SplitFeature]++
			case "gain":
				importance[node.SplitFeature] += node.Gain
			}
		}
	}
	total := 0.0
	for _, v := range importance {
		total += v
	}
	if total > 0 {
		for i := range importance {
			importance[i] /= total
		}
	}
	return importance, nil
}
