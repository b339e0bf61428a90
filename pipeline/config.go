// Package pipeline runs the end-to-end training flow: load, clean,
// split, encode, train, evaluate, report, persist. Every step is logged
// with structured attributes and timed; the product is the artifact
// bundle the prediction service loads at startup.
package pipeline

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/mycogo/boosting"
	"github.com/YuminosukeSato/mycogo/pkg/errors"
)

// Config drives one training run. The YAML schema mirrors the field
// names; flags on the train command override individual fields.
type Config struct {
	// DataPath is the `;` separated dataset file.
	DataPath string `yaml:"data"`

	// ArtifactPath is where the bundle is written.
	ArtifactPath string `yaml:"artifact"`

	// ReportDir receives the JSON run report and the learning-curve PNG.
	// Empty disables both.
	ReportDir string `yaml:"report_dir"`

	// LabelColumn is the target column of the dataset.
	LabelColumn string `yaml:"label_column"`

	// TestFraction is the held-out share of the stratified split.
	TestFraction float64 `yaml:"test_fraction"`

	// SparseThreshold drops columns whose missing ratio strictly
	// exceeds it.
	SparseThreshold float64 `yaml:"sparse_threshold"`

	// Seed drives the train/test shuffle.
	Seed int64 `yaml:"seed"`

	// Training holds the boosting hyperparameters.
	Training boosting.TrainingParams `yaml:"training"`
}

// DefaultConfig mirrors the reference training run: 80/20 stratified
// split with seed 42, 0.8 sparse-column threshold, and the default
// boosting parameters.
func DefaultConfig() Config {
	return Config{
		DataPath:        "data/secondary_data.csv",
		ArtifactPath:    "artifacts/mushroom_model.gob",
		ReportDir:       "artifacts",
		LabelColumn:     "class",
		TestFraction:    0.2,
		SparseThreshold: 0.8,
		Seed:            42,
		Training:        boosting.DefaultTrainingParams(),
	}
}

// LoadConfig reads a YAML config file over the defaults. Fields absent
// from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "pipeline: read config %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "pipeline: parse config %s", path)
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.DataPath == "" {
		return errors.NewValidationError("data", "dataset path is required", c.DataPath)
	}
	if c.ArtifactPath == "" {
		return errors.NewValidationError("artifact", "artifact path is required", c.ArtifactPath)
	}
	if c.LabelColumn == "" {
		return errors.NewValidationError("label_column", "label column is required", c.LabelColumn)
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return errors.NewValidationError("test_fraction", "must be in (0, 1)", c.TestFraction)
	}
	if c.SparseThreshold < 0 || c.SparseThreshold > 1 {
		return errors.NewValidationError("sparse_threshold", "must be in [0, 1]", c.SparseThreshold)
	}
	return c.Training.Validate()
}
