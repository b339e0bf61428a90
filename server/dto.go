package server

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/mycogo/inference"
	"github.com/YuminosukeSato/mycogo/pkg/errors"
)

// predictRequest mirrors the raw dataset schema. Every physical
// characteristic is required; pointer fields distinguish absent from
// zero-valued. spore-print-color is optional and only drives the derived
// presence indicator.
type predictRequest struct {
	CapDiameter       *float64 `json:"cap-diameter"`
	CapShape          *string  `json:"cap-shape"`
	CapSurface        *string  `json:"cap-surface"`
	CapColor          *string  `json:"cap-color"`
	DoesBruiseOrBleed *string  `json:"does-bruise-or-bleed"`
	GillAttachment    *string  `json:"gill-attachment"`
	GillSpacing       *string  `json:"gill-spacing"`
	GillColor         *string  `json:"gill-color"`
	StemHeight        *float64 `json:"stem-height"`
	StemWidth         *float64 `json:"stem-width"`
	StemSurface       *string  `json:"stem-surface"`
	StemColor         *string  `json:"stem-color"`
	HasRing           *string  `json:"has-ring"`
	RingType          *string  `json:"ring-type"`
	Habitat           *string  `json:"habitat"`
	Season            *string  `json:"season"`
	SporePrintColor   *string  `json:"spore-print-color"`
}

// validate reports the first absent required field.
func (r *predictRequest) validate() error {
	required := []struct {
		name    string
		present bool
	}{
		{"cap-diameter", r.CapDiameter != nil},
		{"cap-shape", r.CapShape != nil},
		{"cap-surface", r.CapSurface != nil},
		{"cap-color", r.CapColor != nil},
		{"does-bruise-or-bleed", r.DoesBruiseOrBleed != nil},
		{"gill-attachment", r.GillAttachment != nil},
		{"gill-spacing", r.GillSpacing != nil},
		{"gill-color", r.GillColor != nil},
		{"stem-height", r.StemHeight != nil},
		{"stem-width", r.StemWidth != nil},
		{"stem-surface", r.StemSurface != nil},
		{"stem-color", r.StemColor != nil},
		{"has-ring", r.HasRing != nil},
		{"ring-type", r.RingType != nil},
		{"habitat", r.Habitat != nil},
		{"season", r.Season != nil},
	}
	for _, f := range required {
		if !f.present {
			return errors.NewValidationError(f.name, "is required", nil)
		}
	}
	return nil
}

// record converts a validated request into the inference input.
func (r *predictRequest) record() inference.Record {
	rec := inference.Record{
		CapDiameter:       *r.CapDiameter,
		StemHeight:        *r.StemHeight,
		StemWidth:         *r.StemWidth,
		CapShape:          *r.CapShape,
		CapSurface:        *r.CapSurface,
		CapColor:          *r.CapColor,
		DoesBruiseOrBleed: *r.DoesBruiseOrBleed,
		GillAttachment:    *r.GillAttachment,
		GillSpacing:       *r.GillSpacing,
		GillColor:         *r.GillColor,
		StemSurface:       *r.StemSurface,
		StemColor:         *r.StemColor,
		HasRing:           *r.HasRing,
		RingType:          *r.RingType,
		Habitat:           *r.Habitat,
		Season:            *r.Season,
	}
	if r.SporePrintColor != nil {
		rec.SporePrintColor = *r.SporePrintColor
	}
	return rec
}

// predictResponse is the wire form of one prediction.
type predictResponse struct {
	Prediction        string             `json:"prediction"`
	Probability       float64            `json:"probability"`
	ConfidencePercent string             `json:"confidence_percent"`
	Probabilities     map[string]float64 `json:"probabilities"`
}

func newPredictResponse(p inference.Prediction) predictResponse {
	probs := make(map[string]float64, len(p.Probabilities))
	for label, v := range p.Probabilities {
		probs[label] = round4(v)
	}
	return predictResponse{
		Prediction:        p.Label,
		Probability:       round4(p.Probability),
		ConfidencePercent: fmt.Sprintf("%.2f%%", p.Probability*100),
		Probabilities:     probs,
	}
}

type batchPredictResponse struct {
	Predictions []predictResponse `json:"predictions"`
	Count       int               `json:"count"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Timestamp   string `json:"timestamp"`
}

type infoResponse struct {
	Service     string   `json:"service"`
	Description string   `json:"description"`
	ModelLoaded bool     `json:"model_loaded"`
	Endpoints   []string `json:"endpoints"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
