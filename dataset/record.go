package dataset

import (
	"fmt"

	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

// Record is one row of the source spreadsheet. Records are values; a Dataset
// never hands out pointers into its storage.
type Record struct {
	Region        string
	Cereal        string
	Year          int
	Area          float64 // ha
	Production    float64 // t
	Yield         float64 // t/ha
	Temperature   float64 // °C
	Precipitation float64 // mm
	RainDays      float64
	Humidity      float64 // %
	WindSpeed     float64 // km/h
	Sunshine      float64 // h
}

// Value returns the numeric value of field f.
func (r Record) Value(f Field) (float64, error) {
	switch f {
	case FieldYear:
		return float64(r.Year), nil
	case FieldArea:
		return r.Area, nil
	case FieldProduction:
		return r.Production, nil
	case FieldYield:
		return r.Yield, nil
	case FieldTemperature:
		return r.Temperature, nil
	case FieldPrecipitation:
		return r.Precipitation, nil
	case FieldRainDays:
		return r.RainDays, nil
	case FieldHumidity:
		return r.Humidity, nil
	case FieldWindSpeed:
		return r.WindSpeed, nil
	case FieldSunshine:
		return r.Sunshine, nil
	}
	return 0, errors.NewValidationError("field", "not a numeric column", string(f))
}

// Label returns the grouping label of field f: the text of a categorical
// column or the decimal year.
func (r Record) Label(f Field) (string, error) {
	switch f {
	case FieldRegion:
		return r.Region, nil
	case FieldCereal:
		return r.Cereal, nil
	case FieldYear:
		return fmt.Sprintf("%d", r.Year), nil
	}
	return "", errors.NewValidationError("field", "not a grouping column", string(f))
}

func (r *Record) set(f Field, v float64) {
	switch f {
	case FieldYear:
		r.Year = int(v)
	case FieldArea:
		r.Area = v
	case FieldProduction:
		r.Production = v
	case FieldYield:
		r.Yield = v
	case FieldTemperature:
		r.Temperature = v
	case FieldPrecipitation:
		r.Precipitation = v
	case FieldRainDays:
		r.RainDays = v
	case FieldHumidity:
		r.Humidity = v
	case FieldWindSpeed:
		r.WindSpeed = v
	case FieldSunshine:
		r.Sunshine = v
	}
}
