package pipeline

import (
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mycogo/artifact"
	"github.com/YuminosukeSato/mycogo/boosting"
	"github.com/YuminosukeSato/mycogo/dataset"
	"github.com/YuminosukeSato/mycogo/inference"
	"github.com/YuminosukeSato/mycogo/metrics"
	"github.com/YuminosukeSato/mycogo/pkg/errors"
	"github.com/YuminosukeSato/mycogo/pkg/log"
	"github.com/YuminosukeSato/mycogo/preprocessing"
)

const (
	csvSeparator    = ';'
	indicatorSource = "spore-print-color"
)

var (
	// droppedColumns are removed before encoding regardless of their
	// missing ratio: veil-type is constant in the dataset, and
	// spore-print-color is replaced by the presence indicator.
	droppedColumns = []string{"veil-type", indicatorSource}

	// rawNumericColumns are parsed from the raw strings at load time;
	// every other column except the label is categorical.
	rawNumericColumns = []string{"cap-diameter", "stem-height", "stem-width"}
)

// Result is what one pipeline run produced and where it was written.
type Result struct {
	Bundle *artifact.Bundle
	Report *Report

	ArtifactPath string
	ReportPath   string
	CurvePath    string
}

// Run executes the full training flow against cfg and writes the
// artifact bundle, the JSON run report and the learning-curve plot.
func Run(cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("pipeline")
	started := time.Now()
	report := &Report{
		CreatedAt: started.UTC(),
		DataPath:  cfg.DataPath,
		Params:    cfg.Training,
		Timings:   make(map[string]float64),
	}

	// Load
	stepStart := time.Now()
	tbl, err := dataset.ReadCSVFile(cfg.DataPath, csvSeparator)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: load")
	}
	conversions, err := tbl.ConvertNumeric(rawNumericColumns...)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: load")
	}
	report.RowsLoaded = tbl.NumRows()
	report.Timings["load"] = seconds(stepStart)
	logger.Info("dataset loaded",
		log.SamplesKey, tbl.NumRows(),
		log.FeaturesKey, tbl.NumCols(),
		"unparseable_cells", totalCells(conversions),
		log.DurationSecondsKey, report.Timings["load"])

	// Clean
	stepStart = time.Now()
	report.DuplicatesDropped = tbl.DropDuplicates()
	if err := tbl.AddPresenceIndicator(inference.IndicatorColumn, indicatorSource); err != nil {
		return nil, errors.Wrap(err, "pipeline: clean")
	}
	for _, name := range droppedColumns {
		tbl.DropColumn(name)
	}
	report.SparseDropped = tbl.DropSparseColumns(cfg.SparseThreshold, cfg.LabelColumn, inference.IndicatorColumn)
	imputation := tbl.ImputeMissing(cfg.LabelColumn)
	report.ImputedCells = imputation.FilledCells
	report.Medians = imputation.Medians
	report.Timings["clean"] = seconds(stepStart)
	logger.Info("dataset cleaned",
		log.SamplesKey, tbl.NumRows(),
		"duplicates_dropped", report.DuplicatesDropped,
		"sparse_columns_dropped", len(report.SparseDropped),
		"imputed_cells", report.ImputedCells,
		log.DurationSecondsKey, report.Timings["clean"])

	// Label mapping
	distinct, err := tbl.DistinctSorted(cfg.LabelColumn)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: labels")
	}
	if len(distinct) != 2 {
		return nil, errors.NewValueError("pipeline.Run",
			"label column must have exactly two classes")
	}
	mapping := artifact.NewLabelMapping(distinct)
	report.Classes = mapping.Classes

	// Split
	stepStart = time.Now()
	trainTbl, testTbl, err := dataset.StratifiedSplit(tbl, cfg.LabelColumn, cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: split")
	}
	report.TrainRows = trainTbl.NumRows()
	report.TestRows = testTbl.NumRows()
	report.Timings["split"] = seconds(stepStart)
	logger.Info("dataset split",
		"train_rows", report.TrainRows,
		"test_rows", report.TestRows,
		log.RandomSeedKey, cfg.Seed,
		log.DurationSecondsKey, report.Timings["split"])

	// Encode: the transform is fitted on the training partition only.
	stepStart = time.Now()
	categorical, numeric := columnRoles(tbl, cfg.LabelColumn)
	enc := preprocessing.NewOneHotEncoder()
	if err := enc.Fit(trainTbl, categorical); err != nil {
		return nil, errors.Wrap(err, "pipeline: encode")
	}
	XTrain, err := assembleMatrix(trainTbl, enc, numeric)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: encode")
	}
	XTest, err := assembleMatrix(testTbl, enc, numeric)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: encode")
	}
	yTrain, err := labelVector(trainTbl, cfg.LabelColumn, mapping)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: encode")
	}
	yTest, err := labelVector(testTbl, cfg.LabelColumn, mapping)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: encode")
	}
	featureNames, err := enc.FeatureNames()
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: encode")
	}
	featureNames = append(featureNames, numeric...)
	report.CategoricalColumns = categorical
	report.NumericalColumns = numeric
	report.Features = len(featureNames)
	report.Timings["encode"] = seconds(stepStart)
	logger.Info("features encoded",
		log.FeaturesKey, report.Features,
		"categorical_columns", len(categorical),
		"numerical_columns", len(numeric),
		log.DurationSecondsKey, report.Timings["encode"])

	// Train
	stepStart = time.Now()
	clf := boosting.NewGBTClassifierFromParams(cfg.Training)
	if err := clf.Fit(XTrain, yTrain); err != nil {
		return nil, errors.Wrap(err, "pipeline: train")
	}
	report.TreesBuilt = len(clf.Model.Trees)
	report.BestIteration = clf.Model.BestIteration
	report.TrainLoss = clf.TrainLossHistory
	report.ValidationLoss = clf.ValidationLossHistory
	report.Timings["train"] = seconds(stepStart)
	logger.Info("model trained",
		"trees", report.TreesBuilt,
		"best_iteration", report.BestIteration,
		log.DurationSecondsKey, report.Timings["train"])

	// Evaluate on the held-out partition
	stepStart = time.Now()
	evalMetrics, confusion, err := evaluate(clf, XTest, yTest)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: evaluate")
	}
	report.Metrics = evalMetrics
	report.ConfusionMatrix = confusion
	report.Timings["evaluate"] = seconds(stepStart)
	logger.Info("model evaluated",
		log.AccuracyKey, evalMetrics["accuracy"],
		"f1", evalMetrics["f1"],
		"auc", evalMetrics["auc"],
		log.LossKey, evalMetrics["log_loss"],
		log.DurationSecondsKey, report.Timings["evaluate"])

	// Persist
	stepStart = time.Now()
	bundle := &artifact.Bundle{
		Model:              clf,
		Encoder:            enc,
		Labels:             mapping,
		FeatureNames:       featureNames,
		CategoricalColumns: categorical,
		NumericalColumns:   numeric,
		Meta: artifact.Metadata{
			CreatedAt: report.CreatedAt,
			Params:    cfg.Training,
			Metrics:   evalMetrics,
		},
	}
	if dir := filepath.Dir(cfg.ArtifactPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "pipeline: persist")
		}
	}
	if err := artifact.Save(bundle, cfg.ArtifactPath); err != nil {
		return nil, errors.Wrap(err, "pipeline: persist")
	}
	report.Timings["persist"] = seconds(stepStart)
	logger.Info("artifact written",
		"artifact", cfg.ArtifactPath,
		log.DurationSecondsKey, report.Timings["persist"])

	result := &Result{
		Bundle:       bundle,
		Report:       report,
		ArtifactPath: cfg.ArtifactPath,
	}
	if cfg.ReportDir != "" {
		if err := os.MkdirAll(cfg.ReportDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "pipeline: report")
		}
		result.ReportPath = filepath.Join(cfg.ReportDir, "training_report.json")
		if err := report.WriteJSON(result.ReportPath); err != nil {
			return nil, errors.Wrap(err, "pipeline: report")
		}
		result.CurvePath = filepath.Join(cfg.ReportDir, "learning_curve.png")
		if err := RenderLearningCurve(report.TrainLoss, report.ValidationLoss, result.CurvePath); err != nil {
			return nil, errors.Wrap(err, "pipeline: report")
		}
	}

	logger.Info("training pipeline finished",
		"artifact", result.ArtifactPath,
		log.DurationSecondsKey, seconds(started))
	return result, nil
}

// columnRoles partitions the cleaned table into categorical and numeric
// model inputs, keeping table order. The label column is excluded.
func columnRoles(t *dataset.Table, labelCol string) (categorical, numeric []string) {
	for _, name := range t.ColumnNames() {
		if name == labelCol {
			continue
		}
		c, ok := t.Column(name)
		if !ok {
			continue
		}
		if c.Kind == dataset.Numeric {
			numeric = append(numeric, name)
		} else {
			categorical = append(categorical, name)
		}
	}
	return categorical, numeric
}

// assembleMatrix builds the model input for one partition: the one-hot
// blocks followed by the numeric columns in order.
func assembleMatrix(t *dataset.Table, enc *preprocessing.OneHotEncoder, numeric []string) (*mat.Dense, error) {
	encoded, err := enc.Transform(t)
	if err != nil {
		return nil, err
	}
	rows, width := encoded.Dims()
	X := mat.NewDense(rows, width+len(numeric), nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < width; j++ {
			X.Set(i, j, encoded.At(i, j))
		}
	}
	for k, name := range numeric {
		vals, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		for i := 0; i < rows; i++ {
			X.Set(i, width+k, vals[i])
		}
	}
	return X, nil
}

// labelVector maps the label column through the class mapping into a
// column vector of 0/1 targets.
func labelVector(t *dataset.Table, labelCol string, mapping artifact.LabelMapping) (*mat.Dense, error) {
	labels, err := t.Strings(labelCol)
	if err != nil {
		return nil, err
	}
	y := mat.NewDense(len(labels), 1, nil)
	for i, raw := range labels {
		class, err := mapping.ClassIndex(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		y.Set(i, 0, float64(class))
	}
	return y, nil
}

// evaluate computes the held-out metrics and the confusion matrix.
func evaluate(clf *boosting.GBTClassifier, X mat.Matrix, y *mat.Dense) (map[string]float64, [][]float64, error) {
	rows, _ := y.Dims()
	yTrue := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yTrue.SetVec(i, y.At(i, 0))
	}

	pred, err := clf.Predict(X)
	if err != nil {
		return nil, nil, err
	}
	yPred := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yPred.SetVec(i, pred.At(i, 0))
	}

	proba, err := clf.PredictProba(X)
	if err != nil {
		return nil, nil, err
	}
	yProb := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yProb.SetVec(i, proba.At(i, 1))
	}

	accuracy, err := metrics.Accuracy(yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}
	precision, err := metrics.Precision(yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}
	recall, err := metrics.Recall(yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}
	f1, err := metrics.F1Score(yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}
	logLoss, err := metrics.BinaryLogLoss(yTrue, yProb)
	if err != nil {
		return nil, nil, err
	}
	auc, err := metrics.AUC(yTrue, yProb)
	if err != nil {
		return nil, nil, err
	}
	cm, _, err := metrics.ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return nil, nil, err
	}

	cmRows, _ := cm.Dims()
	confusion := make([][]float64, cmRows)
	for i := 0; i < cmRows; i++ {
		confusion[i] = mat.Row(nil, i, cm)
	}

	return map[string]float64{
		"accuracy":  accuracy,
		"precision": precision,
		"recall":    recall,
		"f1":        f1,
		"log_loss":  logLoss,
		"auc":       auc,
	}, confusion, nil
}

func seconds(since time.Time) float64 {
	return time.Since(since).Seconds()
}

func totalCells(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
