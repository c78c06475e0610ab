package stats

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

// CorrelationFields is the default set used for the production/climate
// heatmap.
var CorrelationFields = []dataset.Field{
	dataset.FieldProduction,
	dataset.FieldTemperature,
	dataset.FieldPrecipitation,
	dataset.FieldHumidity,
	dataset.FieldWindSpeed,
	dataset.FieldSunshine,
	dataset.FieldRainDays,
}

// CorrelationMatrix is a symmetric matrix of Pearson coefficients. Entries
// involving a field without variance are NaN, the diagonal included.
type CorrelationMatrix struct {
	Fields []dataset.Field
	Values *mat.SymDense
	// N is the number of rows the matrix was computed over.
	N int
}

// At returns the coefficient between the i-th and j-th fields.
func (c *CorrelationMatrix) At(i, j int) float64 {
	return c.Values.At(i, j)
}

// Get returns the coefficient between fields a and b.
func (c *CorrelationMatrix) Get(a, b dataset.Field) (float64, bool) {
	i, j := c.index(a), c.index(b)
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return c.Values.At(i, j), true
}

// Rows returns the matrix as a dense row-major slice.
func (c *CorrelationMatrix) Rows() [][]float64 {
	n := len(c.Fields)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = c.Values.At(i, j)
		}
	}
	return out
}

// Undefined returns the fields whose correlations are undefined.
func (c *CorrelationMatrix) Undefined() []dataset.Field {
	var out []dataset.Field
	for i, f := range c.Fields {
		if math.IsNaN(c.Values.At(i, i)) {
			out = append(out, f)
		}
	}
	return out
}

func (c *CorrelationMatrix) index(f dataset.Field) int {
	for i, g := range c.Fields {
		if g == f {
			return i
		}
	}
	return -1
}

// Correlate computes Pearson correlations between fields over view. When
// every cell is present the matrix comes from stat.CorrelationMatrix;
// otherwise each pair is computed over the rows where both values exist.
func Correlate(view *dataset.View, fields []dataset.Field) (*CorrelationMatrix, error) {
	if view == nil || view.Empty() {
		return nil, errors.ErrNoData
	}
	if len(fields) == 0 {
		fields = CorrelationFields
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	n, p := view.Len(), len(fields)
	cols := make([][]float64, p)
	complete := true
	for j, f := range fields {
		col, err := view.Column(f)
		if err != nil {
			return nil, err
		}
		for _, v := range col {
			if math.IsNaN(v) {
				complete = false
			}
		}
		cols[j] = col
	}

	corr := mat.NewSymDense(p, nil)
	if complete && n > 1 {
		data := mat.NewDense(n, p, nil)
		for j, col := range cols {
			data.SetCol(j, col)
		}
		stat.CorrelationMatrix(corr, data, nil)
	} else {
		for i := 0; i < p; i++ {
			for j := i; j < p; j++ {
				corr.SetSym(i, j, pairwise(cols[i], cols[j]))
			}
		}
	}

	// Constant fields have undefined correlations everywhere, the diagonal
	// included; stat.CorrelationMatrix forces the diagonal to 1.
	var constant []string
	for j, col := range cols {
		if variance(col) > 0 {
			corr.SetSym(j, j, 1)
			continue
		}
		constant = append(constant, string(fields[j]))
		for k := 0; k < p; k++ {
			corr.SetSym(j, k, math.NaN())
		}
	}
	if len(constant) > 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("correlation",
			fmt.Sprintf("zero variance in [%s] over %d rows", strings.Join(constant, ", "), n), math.NaN()))
	}

	return &CorrelationMatrix{
		Fields: append([]dataset.Field(nil), fields...),
		Values: corr,
		N:      n,
	}, nil
}

func pairwise(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// variance is the sample variance of the non-NaN entries, NaN when fewer
// than two remain.
func variance(x []float64) float64 {
	clean := dropNaN(x)
	if len(clean) < 2 {
		return math.NaN()
	}
	return stat.Variance(clean, nil)
}

func dropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func validateFields(fields []dataset.Field) error {
	seen := make(map[dataset.Field]bool, len(fields))
	for _, f := range fields {
		if !f.IsNumeric() {
			return errors.NewValidationError("fields", "not a numeric column", string(f))
		}
		if seen[f] {
			return errors.NewValidationError("fields", "duplicate column", string(f))
		}
		seen[f] = true
	}
	return nil
}
