package filter

import (
	"github.com/YuminosukeSato/agriyield/dataset"
)

// Mode is one of the historical table views.
type Mode int

const (
	// ModeNone means neither regions nor cereals were selected.
	ModeNone Mode = iota
	// ModeRegion filters on regions only; cereals are ignored.
	ModeRegion
	// ModeCereal filters on cereals only; regions are ignored.
	ModeCereal
	// ModeRegionCereal filters on both.
	ModeRegionCereal
)

var modeNames = [...]string{"none", "region", "cereal", "region_cereal"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Mode picks the view implied by which sets are non-empty.
func (s Spec) Mode() Mode {
	switch {
	case len(s.Regions) > 0 && len(s.Cereals) > 0:
		return ModeRegionCereal
	case len(s.Regions) > 0:
		return ModeRegion
	case len(s.Cereals) > 0:
		return ModeCereal
	}
	return ModeNone
}

// Legacy reproduces one of the historical views regardless of which sets are
// filled in. The mode's own dimensions are mandatory: ModeRegion with no
// region selected matches nothing, as does ModeRegionCereal when either set
// is empty. The year range, when present, applies in every mode.
// ModeNone returns an empty view.
func Legacy(view *dataset.View, spec Spec, mode Mode) *dataset.View {
	keep := func(rec dataset.Record) bool {
		if spec.Years != nil && !spec.Years.Contains(rec.Year) {
			return false
		}
		switch mode {
		case ModeRegion:
			return contains(spec.Regions, rec.Region)
		case ModeCereal:
			return contains(spec.Cereals, rec.Cereal)
		case ModeRegionCereal:
			return contains(spec.Regions, rec.Region) && contains(spec.Cereals, rec.Cereal)
		}
		return false
	}
	return view.Where(keep)
}

// State is the outcome of a table selection.
type State int

const (
	// StateReady means the view has at least one row.
	StateReady State = iota
	// StateNoData means the selection matched no rows.
	StateNoData
	// StateSelectionRequired means neither a region nor a cereal was chosen.
	StateSelectionRequired
)

var stateNames = [...]string{"ready", "no_data", "selection_required"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Selection is the table view for a spec. View is nil unless State is
// StateReady or StateNoData.
type Selection struct {
	State State
	Mode  Mode
	View  *dataset.View
}

// Select resolves spec to the legacy view its filled-in sets imply. With no
// region and no cereal it returns StateSelectionRequired and a nil view; the
// full dataset is never returned as a fallback.
func Select(view *dataset.View, spec Spec) Selection {
	mode := spec.Mode()
	if mode == ModeNone {
		return Selection{State: StateSelectionRequired, Mode: mode}
	}
	v := Legacy(view, spec, mode)
	state := StateReady
	if v.Empty() {
		state = StateNoData
	}
	return Selection{State: state, Mode: mode, View: v}
}
