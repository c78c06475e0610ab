// Package predict turns user-entered parameters into the feature record a
// pre-trained yield model expects, invokes the model and derives the
// production and reference metrics shown with the result.
package predict

import (
	"math"
	"strings"

	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

// DefaultReferenceYield is the reference yield in t/ha that predictions are
// compared against.
const DefaultReferenceYield = 2.5

// Year bounds accepted by Request.Validate.
const (
	MinYear = 1900
	MaxYear = 2100
)

// Request is one set of parameters to predict a yield for. It does not need
// to exist in the dataset.
type Request struct {
	Region        string  `json:"region"`
	Cereal        string  `json:"cereal"`
	Year          int     `json:"year"`
	Area          float64 `json:"area"`
	Temperature   float64 `json:"temperature"`
	Precipitation float64 `json:"precipitation"`
	RainDays      float64 `json:"rain_days"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"wind_speed"`
	Sunshine      float64 `json:"sunshine"`
}

// DefaultRequest returns the values the prediction form starts with.
func DefaultRequest() Request {
	return Request{
		Region:        "Sahel",
		Cereal:        "Arachide",
		Year:          2023,
		Area:          5500,
		Temperature:   30,
		Precipitation: 200,
		RainDays:      7,
		Humidity:      65,
		WindSpeed:     22,
		Sunshine:      6,
	}
}

// Validate checks the request before any model is involved.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Region) == "" {
		return errors.NewValidationError("region", "must not be empty", r.Region)
	}
	if strings.TrimSpace(r.Cereal) == "" {
		return errors.NewValidationError("cereal", "must not be empty", r.Cereal)
	}
	if r.Year < MinYear || r.Year > MaxYear {
		return errors.NewValidationError("year", "out of range 1900-2100", r.Year)
	}
	numbers := []struct {
		name  string
		value float64
	}{
		{"area", r.Area},
		{"temperature", r.Temperature},
		{"precipitation", r.Precipitation},
		{"rain_days", r.RainDays},
		{"humidity", r.Humidity},
		{"wind_speed", r.WindSpeed},
		{"sunshine", r.Sunshine},
	}
	for _, n := range numbers {
		if math.IsNaN(n.value) || math.IsInf(n.value, 0) {
			return errors.NewValidationError(n.name, "must be a finite number", n.value)
		}
	}
	if r.Area < 0 {
		return errors.NewValidationError("area", "must not be negative", r.Area)
	}
	if r.RainDays < 0 {
		return errors.NewValidationError("rain_days", "must not be negative", r.RainDays)
	}
	if r.Humidity < 0 || r.Humidity > 100 {
		return errors.NewValidationError("humidity", "must be between 0 and 100", r.Humidity)
	}
	return nil
}

// Schema is the ordered list of columns the yield model was trained with:
// the categorical columns first, then the numeric ones.
var Schema = []dataset.Field{
	dataset.FieldRegion,
	dataset.FieldCereal,
	dataset.FieldYear,
	dataset.FieldArea,
	dataset.FieldTemperature,
	dataset.FieldPrecipitation,
	dataset.FieldRainDays,
	dataset.FieldHumidity,
	dataset.FieldWindSpeed,
	dataset.FieldSunshine,
}

// SchemaNames returns Schema as header strings.
func SchemaNames() []string {
	return dataset.FieldNames(Schema)
}

// Feature is one named cell of a FeatureRecord. Label carries the text of
// region, cereal and year; Value carries every numeric cell, the year
// included, and is NaN for text-only columns.
type Feature struct {
	Name  string
	Label string
	Value float64
}

// FeatureRecord is a single-row model input, ordered as Schema.
type FeatureRecord []Feature

// Names returns the column names in order.
func (fr FeatureRecord) Names() []string {
	out := make([]string, len(fr))
	for i, f := range fr {
		out[i] = f.Name
	}
	return out
}

// Get returns the feature called name.
func (fr FeatureRecord) Get(name string) (Feature, bool) {
	for _, f := range fr {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}

// Features assembles the feature record for req in Schema order.
func Features(req Request) FeatureRecord {
	rec := dataset.Record{
		Region:        req.Region,
		Cereal:        req.Cereal,
		Year:          req.Year,
		Area:          req.Area,
		Temperature:   req.Temperature,
		Precipitation: req.Precipitation,
		RainDays:      req.RainDays,
		Humidity:      req.Humidity,
		WindSpeed:     req.WindSpeed,
		Sunshine:      req.Sunshine,
	}
	out := make(FeatureRecord, len(Schema))
	for i, f := range Schema {
		ft := Feature{Name: string(f), Value: math.NaN()}
		if label, err := rec.Label(f); err == nil {
			ft.Label = label
		}
		if v, err := rec.Value(f); err == nil {
			ft.Value = v
		}
		out[i] = ft
	}
	return out
}

// FromRecord builds a request from a dataset row, for back-testing a model
// on known data.
func FromRecord(r dataset.Record) Request {
	return Request{
		Region:        r.Region,
		Cereal:        r.Cereal,
		Year:          r.Year,
		Area:          r.Area,
		Temperature:   r.Temperature,
		Precipitation: r.Precipitation,
		RainDays:      r.RainDays,
		Humidity:      r.Humidity,
		WindSpeed:     r.WindSpeed,
		Sunshine:      r.Sunshine,
	}
}
