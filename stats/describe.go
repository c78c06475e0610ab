// Package stats computes grouped descriptive statistics, correlation
// matrices and per-year trends over filtered views.
//
// Every entry point refuses an empty view with errors.ErrNoData before doing
// any arithmetic. NaN cells are skipped in counts and moments; undefined
// results (a standard deviation over one sample, a correlation with a
// constant column) are reported as NaN and announced through errors.Warn.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

// GroupingFields are the columns a summary can be grouped by.
var GroupingFields = []dataset.Field{dataset.FieldRegion, dataset.FieldCereal, dataset.FieldYear}

// Group holds the descriptive statistics of one group.
type Group struct {
	Keys   []string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Summary is the result of Describe: one Group per distinct key
// combination, sorted by key.
type Summary struct {
	GroupKeys []dataset.Field
	Metric    dataset.Field
	Groups    []Group
}

// Lookup returns the group whose keys equal keys.
func (s *Summary) Lookup(keys ...string) (Group, bool) {
	for _, g := range s.Groups {
		if equalStrings(g.Keys, keys) {
			return g, true
		}
	}
	return Group{}, false
}

// Describe groups view by one or two of GroupingFields and computes count,
// mean, sample standard deviation, min, quartiles and max of metric per
// group.
func Describe(view *dataset.View, groupKeys []dataset.Field, metric dataset.Field) (*Summary, error) {
	if view == nil || view.Empty() {
		return nil, errors.ErrNoData
	}
	if err := validateGroupKeys(groupKeys); err != nil {
		return nil, err
	}
	if !metric.IsNumeric() {
		return nil, errors.NewValidationError("metric", "not a numeric column", string(metric))
	}

	buckets := groupBy(view, groupKeys)
	summary := &Summary{
		GroupKeys: append([]dataset.Field(nil), groupKeys...),
		Metric:    metric,
		Groups:    make([]Group, 0, len(buckets)),
	}
	undefinedStd := 0
	for _, b := range buckets {
		values := make([]float64, 0, len(b.rows))
		for _, r := range b.rows {
			v, _ := r.Value(metric)
			if !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		g := describeValues(values)
		g.Keys = b.keys
		if g.Count < 2 {
			undefinedStd++
		}
		summary.Groups = append(summary.Groups, g)
	}

	if undefinedStd > 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("std("+string(metric)+")",
			fmt.Sprintf("fewer than 2 samples in %d of %d groups", undefinedStd, len(buckets)), math.NaN()))
	}
	return summary, nil
}

func describeValues(values []float64) Group {
	nan := math.NaN()
	g := Group{Count: len(values), Mean: nan, Std: nan, Min: nan, Q25: nan, Median: nan, Q75: nan, Max: nan}
	if len(values) == 0 {
		return g
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	g.Mean = stat.Mean(sorted, nil)
	if len(sorted) > 1 {
		g.Std = stat.StdDev(sorted, nil)
	}
	g.Min = sorted[0]
	g.Max = sorted[len(sorted)-1]
	g.Q25 = Quantile(sorted, 0.25)
	g.Median = Quantile(sorted, 0.5)
	g.Q75 = Quantile(sorted, 0.75)
	return g
}

// Quantile returns the p-quantile of sorted, interpolating linearly between
// the two closest ranks. sorted must be in ascending order.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func validateGroupKeys(keys []dataset.Field) error {
	if len(keys) == 0 || len(keys) > 2 {
		return errors.NewValidationError("group_keys", "expected one or two grouping columns", len(keys))
	}
	for i, k := range keys {
		if !isGrouping(k) {
			return errors.NewValidationError("group_keys", "not a grouping column", string(k))
		}
		for _, prev := range keys[:i] {
			if prev == k {
				return errors.NewValidationError("group_keys", "duplicate grouping column", string(k))
			}
		}
	}
	return nil
}

func isGrouping(f dataset.Field) bool {
	for _, g := range GroupingFields {
		if g == f {
			return true
		}
	}
	return false
}

type bucket struct {
	keys  []string
	first dataset.Record
	rows  []dataset.Record
}

// groupBy buckets the rows of view by keys and returns the buckets sorted:
// years numerically, labels lexically.
func groupBy(view *dataset.View, keys []dataset.Field) []*bucket {
	index := make(map[string]*bucket)
	var out []*bucket
	for _, r := range view.Records() {
		labels := make([]string, len(keys))
		for i, k := range keys {
			labels[i], _ = r.Label(k)
		}
		id := strings.Join(labels, "\x00")
		b, ok := index[id]
		if !ok {
			b = &bucket{keys: labels, first: r}
			index[id] = b
			out = append(out, b)
		}
		b.rows = append(b.rows, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessRecord(out[i].first, out[j].first, keys)
	})
	return out
}

func lessRecord(a, b dataset.Record, keys []dataset.Field) bool {
	for _, k := range keys {
		switch k {
		case dataset.FieldYear:
			if a.Year != b.Year {
				return a.Year < b.Year
			}
		default:
			la, _ := a.Label(k)
			lb, _ := b.Label(k)
			if la != lb {
				return la < lb
			}
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
