// Package dataset holds the in-memory table of regional cereal statistics:
// the column schema, immutable records, read-only datasets and the views
// derived from them, plus loaders for the source spreadsheet.
package dataset

import (
	"strings"
)

// Field names a column of the source spreadsheet.
type Field string

// Column headers, spelled as in the source spreadsheet.
const (
	FieldRegion        Field = "Région"
	FieldCereal        Field = "Céréale"
	FieldYear          Field = "Année"
	FieldArea          Field = "Superficie"
	FieldProduction    Field = "Production"
	FieldYield         Field = "Rendement"
	FieldTemperature   Field = "Température"
	FieldPrecipitation Field = "Précipitation"
	FieldRainDays      Field = "Nombre_Jour_Pluie"
	FieldHumidity      Field = "Humidité"
	FieldWindSpeed     Field = "Vitèsse_Vent"
	FieldSunshine      Field = "Durée_Ensoleillement"
)

// Columns lists every field in spreadsheet order.
var Columns = []Field{
	FieldRegion, FieldCereal, FieldYear,
	FieldArea, FieldProduction, FieldYield,
	FieldTemperature, FieldPrecipitation, FieldRainDays,
	FieldHumidity, FieldWindSpeed, FieldSunshine,
}

// CategoricalFields are the text columns.
var CategoricalFields = []Field{FieldRegion, FieldCereal}

// ProductivityFields are offered as "productivity variable" choices.
var ProductivityFields = []Field{FieldProduction, FieldArea, FieldYield}

// ClimateFields are offered as "climate variable" choices.
var ClimateFields = []Field{
	FieldPrecipitation, FieldRainDays, FieldTemperature,
	FieldHumidity, FieldWindSpeed, FieldSunshine,
}

// String implements fmt.Stringer.
func (f Field) String() string { return string(f) }

// IsCategorical reports whether f holds text labels.
func (f Field) IsCategorical() bool {
	return f == FieldRegion || f == FieldCereal
}

// IsNumeric reports whether f holds numbers (the year included).
func (f Field) IsNumeric() bool {
	return f.Valid() && !f.IsCategorical()
}

// Valid reports whether f is one of Columns.
func (f Field) Valid() bool {
	for _, c := range Columns {
		if c == f {
			return true
		}
	}
	return false
}

// NumericFields returns the numeric columns in spreadsheet order.
func NumericFields() []Field {
	out := make([]Field, 0, len(Columns)-len(CategoricalFields))
	for _, f := range Columns {
		if f.IsNumeric() {
			out = append(out, f)
		}
	}
	return out
}

// ParseField resolves a header or user-supplied name to a Field. Matching
// ignores case and surrounding whitespace, which absorbs spelling drift such
// as "Nombre_jour_Pluie".
func ParseField(name string) (Field, bool) {
	name = strings.TrimSpace(name)
	for _, f := range Columns {
		if strings.EqualFold(name, string(f)) {
			return f, true
		}
	}
	return "", false
}

// FieldNames converts fields to their header strings.
func FieldNames(fields []Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}
