// Package filter derives views of a dataset from the user's selection of
// regions, cereals and years.
//
// Apply implements the general rule: every non-empty predicate must hold,
// an empty region or cereal set matches everything. Legacy and Select keep
// the three historical table views (region only, cereal only, both), which
// are picked from the sets that are actually filled in.
package filter

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

// YearRange is an inclusive [Min, Max] range of years.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether year lies in the range, both ends included.
func (r YearRange) Contains(year int) bool {
	return year >= r.Min && year <= r.Max
}

// Spec is a set of filter predicates.
type Spec struct {
	Regions []string   `json:"regions,omitempty"`
	Cereals []string   `json:"cereals,omitempty"`
	Years   *YearRange `json:"years,omitempty"`
}

// Validate rejects inverted year ranges and blank labels.
func (s Spec) Validate() error {
	if s.Years != nil && s.Years.Min > s.Years.Max {
		return errors.NewValidationError("years", "min must not exceed max", *s.Years)
	}
	for _, r := range s.Regions {
		if strings.TrimSpace(r) == "" {
			return errors.NewValidationError("regions", "empty region name", r)
		}
	}
	for _, c := range s.Cereals {
		if strings.TrimSpace(c) == "" {
			return errors.NewValidationError("cereals", "empty cereal name", c)
		}
	}
	return nil
}

// Match reports whether rec satisfies every non-empty predicate of s.
func (s Spec) Match(rec dataset.Record) bool {
	if len(s.Regions) > 0 && !contains(s.Regions, rec.Region) {
		return false
	}
	if len(s.Cereals) > 0 && !contains(s.Cereals, rec.Cereal) {
		return false
	}
	if s.Years != nil && !s.Years.Contains(rec.Year) {
		return false
	}
	return true
}

// Apply returns the rows of view matching spec, in their original order.
// The result is always a subset of view and Apply(Apply(v, s), s) equals
// Apply(v, s).
func Apply(view *dataset.View, spec Spec) *dataset.View {
	return view.Where(spec.Match)
}

// Describe renders the selection as a short label, e.g. "Sahel et Mil".
func (s Spec) Describe() string {
	var parts []string
	if len(s.Regions) > 0 {
		parts = append(parts, joinFrench(s.Regions))
	}
	if len(s.Cereals) > 0 {
		parts = append(parts, joinFrench(s.Cereals))
	}
	label := strings.Join(parts, " et ")
	if label == "" {
		label = "toutes les données"
	}
	if s.Years != nil {
		label += fmt.Sprintf(" (%d-%d)", s.Years.Min, s.Years.Max)
	}
	return label
}

func joinFrench(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " et " + items[len(items)-1]
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
