package dataset

import (
	"sort"
)

// Dataset is the ordered, read-only collection of records loaded once per
// session. Every View derived from it refers back to it.
type Dataset struct {
	records []Record
	source  string
}

// New builds a Dataset from records, copying the slice.
func New(records []Record) *Dataset {
	return &Dataset{records: append([]Record(nil), records...)}
}

// Source is the path the dataset was loaded from, if any.
func (d *Dataset) Source() string { return d.source }

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// At returns the i-th record.
func (d *Dataset) At(i int) Record { return d.records[i] }

// Records returns a copy of all records in source order.
func (d *Dataset) Records() []Record {
	return append([]Record(nil), d.records...)
}

// All returns the view covering every record.
func (d *Dataset) All() *View {
	idx := make([]int, len(d.records))
	for i := range idx {
		idx[i] = i
	}
	return &View{ds: d, idx: idx}
}

// Regions returns the distinct regions, sorted.
func (d *Dataset) Regions() []string {
	return d.distinct(func(r Record) string { return r.Region })
}

// Cereals returns the distinct cereals, sorted.
func (d *Dataset) Cereals() []string {
	return d.distinct(func(r Record) string { return r.Cereal })
}

// YearRange returns the smallest and largest year; ok is false for an empty
// dataset.
func (d *Dataset) YearRange() (min, max int, ok bool) {
	if len(d.records) == 0 {
		return 0, 0, false
	}
	min, max = d.records[0].Year, d.records[0].Year
	for _, r := range d.records[1:] {
		if r.Year < min {
			min = r.Year
		}
		if r.Year > max {
			max = r.Year
		}
	}
	return min, max, true
}

func (d *Dataset) distinct(key func(Record) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range d.records {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// View is a subset of a Dataset, addressed by ascending source indices. A
// view never contains rows that are not in its dataset.
type View struct {
	ds  *Dataset
	idx []int
}

// Dataset returns the dataset the view was taken from.
func (v *View) Dataset() *Dataset { return v.ds }

// Len returns the number of rows in the view.
func (v *View) Len() int { return len(v.idx) }

// Empty reports whether the view has no rows.
func (v *View) Empty() bool { return len(v.idx) == 0 }

// At returns the i-th row of the view.
func (v *View) At(i int) Record { return v.ds.records[v.idx[i]] }

// Indices returns the source positions of the view's rows.
func (v *View) Indices() []int { return append([]int(nil), v.idx...) }

// Records returns the view's rows in source order.
func (v *View) Records() []Record {
	out := make([]Record, len(v.idx))
	for i, j := range v.idx {
		out[i] = v.ds.records[j]
	}
	return out
}

// Where returns the sub-view of rows for which keep returns true.
func (v *View) Where(keep func(Record) bool) *View {
	idx := make([]int, 0, len(v.idx))
	for _, j := range v.idx {
		if keep(v.ds.records[j]) {
			idx = append(idx, j)
		}
	}
	return &View{ds: v.ds, idx: idx}
}

// Column returns the numeric values of f over the view.
func (v *View) Column(f Field) ([]float64, error) {
	out := make([]float64, len(v.idx))
	for i, j := range v.idx {
		x, err := v.ds.records[j].Value(f)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

// Equal reports whether both views select the same rows of the same dataset.
func (v *View) Equal(other *View) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.ds != other.ds || len(v.idx) != len(other.idx) {
		return false
	}
	for i := range v.idx {
		if v.idx[i] != other.idx[i] {
			return false
		}
	}
	return true
}
