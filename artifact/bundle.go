// Package artifact defines the serialized contract between the training
// pipeline and the serving process.
//
// A Bundle carries everything the server needs to answer predictions:
// the fitted classifier, the fitted encoding transform, the label mapping
// and the frozen column and feature ordering. Bundles are written once by
// the training pipeline and are read-only after load; a bundle that fails
// validation is rejected at load time, never repaired.
package artifact

import (
	"sort"
	"time"

	"github.com/YuminosukeSato/mycogo/boosting"
	"github.com/YuminosukeSato/mycogo/core/model"
	"github.com/YuminosukeSato/mycogo/pkg/errors"
	"github.com/YuminosukeSato/mycogo/preprocessing"
)

// displayNames maps the raw dataset labels to the names shown to API
// callers. Labels without an entry fall back to the raw value.
var displayNames = map[string]string{
	"e": "edible",
	"p": "poisonous",
}

// LabelMapping fixes the bijection between raw class labels and the
// integer classes the model was trained on. Index i of both slices
// describes class i.
type LabelMapping struct {
	// Classes holds the raw labels in class-index order ("e", "p").
	Classes []string
	// Display holds the human-readable names in the same order
	// ("edible", "poisonous").
	Display []string
}

// NewLabelMapping builds the mapping from the distinct raw labels seen at
// training time. Labels are sorted lexicographically, so for the mushroom
// dataset "e" becomes class 0 and "p" class 1.
func NewLabelMapping(labels []string) LabelMapping {
	classes := make([]string, len(labels))
	copy(classes, labels)
	sort.Strings(classes)

	display := make([]string, len(classes))
	for i, c := range classes {
		if name, ok := displayNames[c]; ok {
			display[i] = name
		} else {
			display[i] = c
		}
	}
	return LabelMapping{Classes: classes, Display: display}
}

// NumClasses returns the number of classes in the mapping.
func (m LabelMapping) NumClasses() int {
	return len(m.Classes)
}

// ClassIndex returns the integer class for a raw label.
func (m LabelMapping) ClassIndex(label string) (int, error) {
	for i, c := range m.Classes {
		if c == label {
			return i, nil
		}
	}
	return 0, errors.NewValueError("LabelMapping.ClassIndex", "unknown label "+label)
}

// RawLabel returns the raw dataset label for an integer class.
func (m LabelMapping) RawLabel(class int) (string, error) {
	if class < 0 || class >= len(m.Classes) {
		return "", errors.NewValueError("LabelMapping.RawLabel", "class index out of range")
	}
	return m.Classes[class], nil
}

// DisplayLabel returns the human-readable name for an integer class.
func (m LabelMapping) DisplayLabel(class int) (string, error) {
	if class < 0 || class >= len(m.Display) {
		return "", errors.NewValueError("LabelMapping.DisplayLabel", "class index out of range")
	}
	return m.Display[class], nil
}

func (m LabelMapping) validate() error {
	if len(m.Classes) < 2 {
		return errors.Newf("label mapping has %d classes, need at least 2", len(m.Classes))
	}
	if len(m.Display) != len(m.Classes) {
		return errors.Newf("label mapping has %d display names for %d classes", len(m.Display), len(m.Classes))
	}
	seen := make(map[string]struct{}, len(m.Classes))
	for i, c := range m.Classes {
		if c == "" {
			return errors.Newf("label mapping class %d is empty", i)
		}
		if _, dup := seen[c]; dup {
			return errors.Newf("label mapping class %q appears twice", c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Metadata records how and when the bundle was produced.
type Metadata struct {
	CreatedAt time.Time
	Params    boosting.TrainingParams
	// Metrics holds the held-out evaluation results keyed by metric name.
	Metrics map[string]float64
}

// Bundle is the artifact written by the training pipeline and loaded by
// the server. All fields are exported for gob.
type Bundle struct {
	Model   *boosting.GBTClassifier
	Encoder *preprocessing.OneHotEncoder
	Labels  LabelMapping

	// FeatureNames lists every model input in order: the one-hot block
	// names followed by the numeric column names.
	FeatureNames []string

	// CategoricalColumns and NumericalColumns freeze the input column
	// ordering the encoder and mapper rely on.
	CategoricalColumns []string
	NumericalColumns   []string

	Meta Metadata
}

// Width returns the model input width.
func (b *Bundle) Width() int {
	return len(b.FeatureNames)
}

// Validate checks the structural integrity of the bundle: every part
// present, every part fitted, and the widths consistent with each other.
func (b *Bundle) Validate() error {
	if b.Model == nil {
		return errors.New("bundle has no model")
	}
	if !b.Model.IsFitted() {
		return errors.New("bundle model is not fitted")
	}
	if b.Model.Model == nil {
		return errors.New("bundle model has no trees")
	}
	if b.Encoder == nil {
		return errors.New("bundle has no encoding transform")
	}
	if !b.Encoder.IsFitted() {
		return errors.New("bundle encoding transform is not fitted")
	}
	if err := b.Labels.validate(); err != nil {
		return err
	}
	if want := len(b.Model.Classes()); b.Labels.NumClasses() != want {
		return errors.Newf("label mapping has %d classes, model predicts %d",
			b.Labels.NumClasses(), want)
	}
	if len(b.FeatureNames) == 0 {
		return errors.New("bundle has no feature names")
	}
	if len(b.CategoricalColumns) != len(b.Encoder.Columns) {
		return errors.Newf("bundle lists %d categorical columns, transform was fitted on %d",
			len(b.CategoricalColumns), len(b.Encoder.Columns))
	}
	for i, name := range b.CategoricalColumns {
		if b.Encoder.Columns[i] != name {
			return errors.Newf("categorical column %d is %q in the bundle but %q in the transform",
				i, name, b.Encoder.Columns[i])
		}
	}
	if want := b.Encoder.Width + len(b.NumericalColumns); len(b.FeatureNames) != want {
		return errors.Newf("bundle lists %d feature names, transform and numeric columns produce %d",
			len(b.FeatureNames), want)
	}
	if b.Model.Model.NumFeatures != len(b.FeatureNames) {
		return errors.Newf("model expects %d features, bundle lists %d",
			b.Model.Model.NumFeatures, len(b.FeatureNames))
	}
	return nil
}

// Save validates the bundle and writes it to path with encoding/gob.
func Save(b *Bundle, path string) error {
	if err := b.Validate(); err != nil {
		return errors.NewModelError("artifact.Save", "invalid bundle", err)
	}
	if err := model.SaveModel(b, path); err != nil {
		return errors.NewModelError("artifact.Save", "write failed", err)
	}
	return nil
}

// Load reads a bundle from path and validates it. Any failure, from a
// missing file to an inconsistent width, is a ModelError with op
// "artifact.Load"; callers are expected to treat it as fatal.
func Load(path string) (*Bundle, error) {
	b := &Bundle{}
	if err := model.LoadModel(b, path); err != nil {
		return nil, errors.NewModelError("artifact.Load", "read failed", err)
	}
	if err := b.Validate(); err != nil {
		return nil, errors.NewModelError("artifact.Load", "invalid bundle", err)
	}
	return b, nil
}
