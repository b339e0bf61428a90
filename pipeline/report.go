package pipeline

import (
	"encoding/json"
	"image/color"
	"os"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/mycogo/boosting"
	"github.com/YuminosukeSato/mycogo/pkg/errors"
)

// Report captures one training run: what went in, what was cleaned,
// how the model scored and how long each step took.
type Report struct {
	CreatedAt time.Time `json:"created_at"`
	DataPath  string    `json:"data_path"`

	RowsLoaded        int                `json:"rows_loaded"`
	DuplicatesDropped int                `json:"duplicates_dropped"`
	SparseDropped     []string           `json:"sparse_columns_dropped"`
	ImputedCells      int                `json:"imputed_cells"`
	Medians           map[string]float64 `json:"medians"`

	TrainRows int `json:"train_rows"`
	TestRows  int `json:"test_rows"`
	Features  int `json:"features"`

	CategoricalColumns []string `json:"categorical_columns"`
	NumericalColumns   []string `json:"numerical_columns"`
	Classes            []string `json:"classes"`

	Params boosting.TrainingParams `json:"params"`

	TreesBuilt    int `json:"trees_built"`
	BestIteration int `json:"best_iteration"`

	Metrics         map[string]float64 `json:"metrics"`
	ConfusionMatrix [][]float64        `json:"confusion_matrix"`

	TrainLoss      []float64 `json:"train_loss"`
	ValidationLoss []float64 `json:"validation_loss,omitempty"`

	Timings map[string]float64 `json:"timings_seconds"`
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "report: marshal")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "report: write")
	}
	return nil
}

// RenderLearningCurve plots the per-iteration training loss, and the
// validation loss when early stopping recorded one, as a PNG.
func RenderLearningCurve(trainLoss, valLoss []float64, path string) error {
	if len(trainLoss) == 0 {
		return errors.NewValueError("pipeline.RenderLearningCurve",
			"no loss history to plot")
	}

	p := plot.New()
	p.Title.Text = "Learning Curve"
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Log Loss"

	trainLine, err := plotter.NewLine(lossPoints(trainLoss))
	if err != nil {
		return errors.Wrap(err, "report: plot")
	}
	trainLine.Color = color.RGBA{B: 255, A: 255}
	trainLine.Width = vg.Points(1.5)
	p.Add(trainLine)
	p.Legend.Add("train", trainLine)

	if len(valLoss) > 0 {
		valLine, err := plotter.NewLine(lossPoints(valLoss))
		if err != nil {
			return errors.Wrap(err, "report: plot")
		}
		valLine.Color = color.RGBA{R: 255, A: 255}
		valLine.Width = vg.Points(1.5)
		valLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(valLine)
		p.Legend.Add("validation", valLine)
	}
	p.Legend.Top = true

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrap(err, "report: plot")
	}
	return nil
}

func lossPoints(loss []float64) plotter.XYs {
	pts := make(plotter.XYs, len(loss))
	for i, v := range loss {
		pts[i].X = float64(i + 1)
		pts[i].Y = v
	}
	return pts
}
