package stats

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

// Point is the mean of a metric for one year.
type Point struct {
	Year  int
	Value float64
}

// Series is the yearly trend of one group. With several grouping columns
// Group joins their labels with SeriesSep and Keys holds them apart.
type Series struct {
	Group  string
	Keys   []string
	Points []Point
}

// SeriesSep separates the labels of a composite series group.
const SeriesSep = " / "

// Trend averages metric per year and per group, one Series per distinct
// combination of the groups columns (one or two categorical fields).
// Series are ordered by group labels and points by year.
func Trend(view *dataset.View, metric dataset.Field, groups ...dataset.Field) ([]Series, error) {
	if view == nil || view.Empty() {
		return nil, errors.ErrNoData
	}
	if !metric.IsNumeric() {
		return nil, errors.NewValidationError("metric", "not a numeric column", string(metric))
	}
	if err := validateGroupKeys(groups); err != nil {
		return nil, err
	}
	for _, g := range groups {
		if !g.IsCategorical() {
			return nil, errors.NewValidationError("group", "not a categorical column", string(g))
		}
	}

	buckets := groupBy(view, append(append([]dataset.Field(nil), groups...), dataset.FieldYear))
	var out []Series
	for _, b := range buckets {
		keys := b.keys[:len(groups):len(groups)]
		label := strings.Join(keys, SeriesSep)
		if len(out) == 0 || out[len(out)-1].Group != label {
			out = append(out, Series{Group: label, Keys: keys})
		}
		s := &out[len(out)-1]
		s.Points = append(s.Points, Point{Year: b.first.Year, Value: meanOf(b.rows, metric)})
	}
	return out, nil
}

// GroupMean is the mean of a metric over one group.
type GroupMean struct {
	Group string
	Mean  float64
	Count int
}

// GroupMeans averages metric per value of key, ordered by key.
func GroupMeans(view *dataset.View, key, metric dataset.Field) ([]GroupMean, error) {
	if view == nil || view.Empty() {
		return nil, errors.ErrNoData
	}
	if err := validateGroupKeys([]dataset.Field{key}); err != nil {
		return nil, err
	}
	if !metric.IsNumeric() {
		return nil, errors.NewValidationError("metric", "not a numeric column", string(metric))
	}

	buckets := groupBy(view, []dataset.Field{key})
	out := make([]GroupMean, len(buckets))
	for i, b := range buckets {
		out[i] = GroupMean{Group: b.keys[0], Mean: meanOf(b.rows, metric), Count: len(b.rows)}
	}
	return out, nil
}

func meanOf(rows []dataset.Record, metric dataset.Field) float64 {
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		v, _ := r.Value(metric)
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// ScatterPoint is one row of a relation plot.
type ScatterPoint struct {
	X, Y   float64
	Size   float64 // area, ha
	Region string
	Year   int
}

// Fit is an ordinary least squares line y = Intercept + Slope*x.
type Fit struct {
	Intercept float64
	Slope     float64
	R2        float64
}

// Eval returns the fitted value at x.
func (f Fit) Eval(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// RelationSeries is the scatter and trendline of one group.
type RelationSeries struct {
	Group  string
	Points []ScatterPoint
	Fit    Fit
}

// Relation collects (x, y) pairs per group and fits an OLS trendline to
// each. Rows where x or y is NaN are dropped. A group with fewer than two
// points or no spread in x gets a NaN fit.
func Relation(view *dataset.View, x, y, group dataset.Field) ([]RelationSeries, error) {
	if view == nil || view.Empty() {
		return nil, errors.ErrNoData
	}
	if !x.IsNumeric() {
		return nil, errors.NewValidationError("x", "not a numeric column", string(x))
	}
	if !y.IsNumeric() {
		return nil, errors.NewValidationError("y", "not a numeric column", string(y))
	}
	if !group.IsCategorical() {
		return nil, errors.NewValidationError("group", "not a categorical column", string(group))
	}

	index := make(map[string]int)
	var out []RelationSeries
	for _, r := range view.Records() {
		xv, _ := r.Value(x)
		yv, _ := r.Value(y)
		if math.IsNaN(xv) || math.IsNaN(yv) {
			continue
		}
		label, _ := r.Label(group)
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, RelationSeries{Group: label})
		}
		out[i].Points = append(out[i].Points, ScatterPoint{X: xv, Y: yv, Size: r.Area, Region: r.Region, Year: r.Year})
	}
	if len(out) == 0 {
		return nil, errors.ErrNoData
	}

	for i := range out {
		out[i].Fit = fitLine(out[i].Points)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out, nil
}

func fitLine(points []ScatterPoint) Fit {
	nan := Fit{Intercept: math.NaN(), Slope: math.NaN(), R2: math.NaN()}
	if len(points) < 2 {
		return nan
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
	}
	if !(stat.Variance(xs, nil) > 0) {
		return nan
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Fit{Intercept: alpha, Slope: beta, R2: stat.RSquared(xs, ys, nil, alpha, beta)}
}
