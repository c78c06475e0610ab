package filter

import (
	"testing"

	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/dataset/datasettest"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

func TestApplyExampleScenario(t *testing.T) {
	view := datasettest.TwoRows().All()

	got := Apply(view, Spec{Regions: []string{"Sahel"}})

	if got.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", got.Len())
	}
	if rec := got.At(0); rec.Region != "Sahel" || rec.Cereal != "Mil" || rec.Year != 2020 {
		t.Errorf("unexpected row %+v", rec)
	}
}

func TestApplyMatchesDefinition(t *testing.T) {
	ds := datasettest.Regional()
	regionSets := [][]string{nil, {"Sahel"}, {"Sahel", "Centre"}, {"Nord"}}
	cerealSets := [][]string{nil, {"Mil"}, {"Maïs", "Mil"}}

	for _, regions := range regionSets {
		for _, cereals := range cerealSets {
			spec := Spec{Regions: regions, Cereals: cereals}
			got := Apply(ds.All(), spec)

			var want []int
			for i := 0; i < ds.Len(); i++ {
				rec := ds.At(i)
				okRegion := len(regions) == 0 || contains(regions, rec.Region)
				okCereal := len(cereals) == 0 || contains(cereals, rec.Cereal)
				if okRegion && okCereal {
					want = append(want, i)
				}
			}

			idx := got.Indices()
			if len(idx) != len(want) {
				t.Errorf("%v/%v: got %d rows, want %d", regions, cereals, len(idx), len(want))
				continue
			}
			for i := range idx {
				if idx[i] != want[i] {
					t.Errorf("%v/%v: row %d = %d, want %d", regions, cereals, i, idx[i], want[i])
				}
			}
		}
	}
}

func TestApplyIdempotent(t *testing.T) {
	view := datasettest.Regional().All()
	specs := []Spec{
		{},
		{Regions: []string{"Centre"}},
		{Cereals: []string{"Mil"}, Years: &YearRange{Min: 2021, Max: 2021}},
		{Regions: []string{"Sahel", "Cascades"}, Cereals: []string{"Maïs"}},
	}

	for _, spec := range specs {
		once := Apply(view, spec)
		twice := Apply(once, spec)
		if !once.Equal(twice) {
			t.Errorf("Apply not idempotent for %+v", spec)
		}
	}
}

func TestApplyYearRangeInclusive(t *testing.T) {
	view := datasettest.Regional().All()

	tests := []struct {
		name  string
		years YearRange
		want  int
	}{
		{"both years", YearRange{Min: 2020, Max: 2021}, 12},
		{"single year", YearRange{Min: 2021, Max: 2021}, 6},
		{"outside", YearRange{Min: 1996, Max: 2019}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			years := tt.years
			if got := Apply(view, Spec{Years: &years}).Len(); got != tt.want {
				t.Errorf("Len() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSpecValidate(t *testing.T) {
	bad := Spec{Years: &YearRange{Min: 2022, Max: 2000}}
	var valErr *errors.ValidationError
	if err := bad.Validate(); !errors.As(err, &valErr) {
		t.Errorf("Validate() = %v, want ValidationError", err)
	}
	if err := (Spec{Regions: []string{" "}}).Validate(); err == nil {
		t.Error("blank region should be rejected")
	}
	if err := (Spec{Regions: []string{"Sahel"}}).Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestSpecMode(t *testing.T) {
	tests := []struct {
		spec Spec
		want Mode
	}{
		{Spec{}, ModeNone},
		{Spec{Regions: []string{"Sahel"}}, ModeRegion},
		{Spec{Cereals: []string{"Mil"}}, ModeCereal},
		{Spec{Regions: []string{"Sahel"}, Cereals: []string{"Mil"}}, ModeRegionCereal},
	}
	for _, tt := range tests {
		if got := tt.spec.Mode(); got != tt.want {
			t.Errorf("Mode(%+v) = %v, want %v", tt.spec, got, tt.want)
		}
	}
}

func TestLegacyViews(t *testing.T) {
	view := datasettest.Regional().All()
	spec := Spec{Regions: []string{"Sahel"}, Cereals: []string{"Mil"}}

	tests := []struct {
		mode  Mode
		want  int
		check func(dataset.Record) bool
	}{
		{ModeRegion, 4, func(r dataset.Record) bool { return r.Region == "Sahel" }},
		{ModeCereal, 6, func(r dataset.Record) bool { return r.Cereal == "Mil" }},
		{ModeRegionCereal, 2, func(r dataset.Record) bool { return r.Region == "Sahel" && r.Cereal == "Mil" }},
		{ModeNone, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			got := Legacy(view, spec, tt.mode)
			if got.Len() != tt.want {
				t.Fatalf("Len() = %d, want %d", got.Len(), tt.want)
			}
			for _, r := range got.Records() {
				if !tt.check(r) {
					t.Errorf("row %+v does not belong to %v", r, tt.mode)
				}
			}
		})
	}
}

func TestLegacyOwnDimensionRequired(t *testing.T) {
	view := datasettest.Regional().All()

	got := Legacy(view, Spec{Cereals: []string{"Mil"}}, ModeRegion)

	if !got.Empty() {
		t.Errorf("region view without regions should be empty, got %d rows", got.Len())
	}
}

func TestSelect(t *testing.T) {
	view := datasettest.TwoRows().All()

	tests := []struct {
		name      string
		spec      Spec
		wantState State
		wantMode  Mode
		wantRows  int
	}{
		{"nothing selected", Spec{}, StateSelectionRequired, ModeNone, -1},
		{"region", Spec{Regions: []string{"Sahel"}}, StateReady, ModeRegion, 1},
		{"cereal", Spec{Cereals: []string{"Maïs"}}, StateReady, ModeCereal, 1},
		{"both without match", Spec{Regions: []string{"Sahel"}, Cereals: []string{"Maïs"}}, StateNoData, ModeRegionCereal, 0},
		{"years only", Spec{Years: &YearRange{Min: 2020, Max: 2021}}, StateSelectionRequired, ModeNone, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Select(view, tt.spec)
			if sel.State != tt.wantState || sel.Mode != tt.wantMode {
				t.Errorf("Select() = (%v, %v), want (%v, %v)", sel.State, sel.Mode, tt.wantState, tt.wantMode)
			}
			if tt.wantRows < 0 {
				if sel.View != nil {
					t.Error("selection-required state must not carry a view")
				}
				return
			}
			if sel.View == nil || sel.View.Len() != tt.wantRows {
				t.Errorf("view rows mismatch, want %d", tt.wantRows)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		spec Spec
		want string
	}{
		{Spec{Regions: []string{"Sahel"}, Cereals: []string{"Mil"}}, "Sahel et Mil"},
		{Spec{Regions: []string{"Sahel", "Centre", "Est"}}, "Sahel, Centre et Est"},
		{Spec{}, "toutes les données"},
		{Spec{Cereals: []string{"Riz"}, Years: &YearRange{Min: 2000, Max: 2010}}, "Riz (2000-2010)"},
	}
	for _, tt := range tests {
		if got := tt.spec.Describe(); got != tt.want {
			t.Errorf("Describe() = %q, want %q", got, tt.want)
		}
	}
}

func TestStateText(t *testing.T) {
	b, _ := StateSelectionRequired.MarshalText()
	if string(b) != "selection_required" {
		t.Errorf("MarshalText() = %q", b)
	}
	if ModeRegionCereal.String() != "region_cereal" {
		t.Errorf("String() = %q", ModeRegionCereal.String())
	}
}
