// Package inference turns raw mushroom observations into model
// predictions using a loaded artifact bundle.
//
// The package is split along the two serving-time concerns: the Mapper
// validates a Record and encodes it into the feature vector the model
// was trained on, and the Engine runs the model and maps the result back
// to labels. Both only read the bundle, so a single Engine serves
// concurrent requests.
package inference

// IndicatorColumn is the derived numeric column fed to the model in
// place of the raw spore-print-color value.
const IndicatorColumn = "spore_print_color_present"

// Record is one mushroom observation submitted for prediction. Field
// names follow the dataset columns; categorical values are the raw
// single-letter codes from the dataset ("x", "f", ...).
type Record struct {
	CapDiameter float64
	StemHeight  float64
	StemWidth   float64

	CapShape          string
	CapSurface        string
	CapColor          string
	DoesBruiseOrBleed string
	GillAttachment    string
	GillSpacing       string
	GillColor         string
	StemSurface       string
	StemColor         string
	HasRing           string
	RingType          string
	Habitat           string
	Season            string

	// SporePrintColor is optional. The model never sees the color
	// itself, only whether one was reported.
	SporePrintColor string
}

// categorical returns the value of a categorical input by its dataset
// column name.
func (r Record) categorical(column string) (string, bool) {
	switch column {
	case "cap-shape":
		return r.CapShape, true
	case "cap-surface":
		return r.CapSurface, true
	case "cap-color":
		return r.CapColor, true
	case "does-bruise-or-bleed":
		return r.DoesBruiseOrBleed, true
	case "gill-attachment":
		return r.GillAttachment, true
	case "gill-spacing":
		return r.GillSpacing, true
	case "gill-color":
		return r.GillColor, true
	case "stem-surface":
		return r.StemSurface, true
	case "stem-color":
		return r.StemColor, true
	case "has-ring":
		return r.HasRing, true
	case "ring-type":
		return r.RingType, true
	case "habitat":
		return r.Habitat, true
	case "season":
		return r.Season, true
	}
	return "", false
}

// numeric returns the value of a numeric input by its dataset column
// name. The presence indicator is derived here: 1 when a spore print
// color was reported, 0 otherwise.
func (r Record) numeric(column string) (float64, bool) {
	switch column {
	case "cap-diameter":
		return r.CapDiameter, true
	case "stem-height":
		return r.StemHeight, true
	case "stem-width":
		return r.StemWidth, true
	case IndicatorColumn:
		if r.SporePrintColor != "" {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
