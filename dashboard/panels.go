package dashboard

import (
	"strings"

	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/filter"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
	"github.com/YuminosukeSato/agriyield/pkg/log"
	"github.com/YuminosukeSato/agriyield/stats"
)

// PanelKind names one analysis block of the dashboard.
type PanelKind string

const (
	PanelRegionProductivity       PanelKind = "region_productivity"
	PanelCerealProductivity       PanelKind = "cereal_productivity"
	PanelRegionCerealProductivity PanelKind = "region_cereal_productivity"
	PanelRegionClimate            PanelKind = "region_climate"
)

// Panel is one filtered, grouped analysis block. Summary and Trend are set
// only when State is filter.StateReady.
type Panel struct {
	Kind      PanelKind
	Title     string
	Mode      filter.Mode
	GroupKeys []dataset.Field
	Metric    dataset.Field
	State     filter.State
	Rows      int
	Summary   *stats.Summary
	Trend     []stats.Series
}

// panelDef is the parameter set of one block.
type panelDef struct {
	kind      PanelKind
	mode      filter.Mode
	groupKeys []dataset.Field
	trendBy   []dataset.Field
	climate   bool
}

var (
	regionKey        = []dataset.Field{dataset.FieldRegion}
	cerealKey        = []dataset.Field{dataset.FieldCereal}
	regionCerealKeys = []dataset.Field{dataset.FieldRegion, dataset.FieldCereal}
)

var panelDefs = []panelDef{
	{PanelRegionProductivity, filter.ModeRegion, regionKey, regionKey, false},
	{PanelCerealProductivity, filter.ModeCereal, cerealKey, cerealKey, false},
	{PanelRegionCerealProductivity, filter.ModeRegionCereal, regionCerealKeys, regionCerealKeys, false},
	{PanelRegionClimate, filter.ModeRegion, regionKey, regionKey, true},
}

// Panels computes every analysis block for spec. productivity and climate
// are the metrics chosen for the productivity and climate blocks; they
// must belong to dataset.ProductivityFields and dataset.ClimateFields.
func (s *Session) Panels(spec filter.Spec, productivity, climate dataset.Field) ([]Panel, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if !member(dataset.ProductivityFields, productivity) {
		return nil, errors.NewValidationError("productivity_metric", "not a productivity variable", string(productivity))
	}
	if !member(dataset.ClimateFields, climate) {
		return nil, errors.NewValidationError("climate_metric", "not a climate variable", string(climate))
	}

	all := s.ds.All()
	out := make([]Panel, 0, len(panelDefs))
	for _, def := range panelDefs {
		metric := productivity
		if def.climate {
			metric = climate
		}
		p, err := s.panel(all, spec, def, metric)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// panel is the single filter and aggregate routine behind every block.
func (s *Session) panel(all *dataset.View, spec filter.Spec, def panelDef, metric dataset.Field) (Panel, error) {
	p := Panel{
		Kind:      def.kind,
		Mode:      def.mode,
		GroupKeys: def.groupKeys,
		Metric:    metric,
		Title:     string(metric) + " par " + strings.Join(dataset.FieldNames(def.groupKeys), " et "),
	}
	if !selected(spec, def.mode) {
		p.State = filter.StateSelectionRequired
		return p, nil
	}

	view := filter.Legacy(all, spec, def.mode)
	p.Rows = view.Len()
	if view.Empty() {
		p.State = filter.StateNoData
		return p, nil
	}
	p.State = filter.StateReady

	summary, err := stats.Describe(view, def.groupKeys, metric)
	if err != nil {
		return Panel{}, err
	}
	trend, err := stats.Trend(view, metric, def.trendBy...)
	if err != nil {
		return Panel{}, err
	}
	p.Summary = summary
	p.Trend = trend

	s.logger.Debug("panel computed",
		log.OperationKey, log.OperationDescribe,
		log.FilterModeKey, def.mode.String(),
		log.MetricKey, string(metric),
		log.GroupsKey, len(summary.Groups),
		log.ViewRowsKey, p.Rows,
	)
	return p, nil
}

// selected reports whether every dimension mode depends on has a value.
func selected(spec filter.Spec, mode filter.Mode) bool {
	switch mode {
	case filter.ModeRegion:
		return len(spec.Regions) > 0
	case filter.ModeCereal:
		return len(spec.Cereals) > 0
	case filter.ModeRegionCereal:
		return len(spec.Regions) > 0 && len(spec.Cereals) > 0
	}
	return false
}

// Exploration is the free exploration section over the AND-filtered view.
type Exploration struct {
	State       filter.State
	Rows        int
	Label       string
	Trend       []stats.Series
	Correlation *stats.CorrelationMatrix
	RegionMeans []stats.GroupMean
}

// Explore computes the production trend per cereal, the correlation matrix
// of production and climate, and the mean production per region over the
// rows matching spec. Unlike Table, empty sets act as wildcards.
func (s *Session) Explore(spec filter.Spec) (*Exploration, error) {
	view, err := s.View(spec)
	if err != nil {
		return nil, err
	}
	ex := &Exploration{Rows: view.Len(), Label: spec.Describe()}
	if view.Empty() {
		ex.State = filter.StateNoData
		return ex, nil
	}
	ex.State = filter.StateReady

	if ex.Trend, err = stats.Trend(view, dataset.FieldProduction, dataset.FieldCereal); err != nil {
		return nil, err
	}
	if ex.Correlation, err = stats.Correlate(view, nil); err != nil {
		return nil, err
	}
	if ex.RegionMeans, err = stats.GroupMeans(view, dataset.FieldRegion, dataset.FieldProduction); err != nil {
		return nil, err
	}
	s.logger.Debug("exploration computed",
		log.OperationKey, log.OperationCorrelate,
		log.ViewRowsKey, ex.Rows,
		log.FieldsKey, len(ex.Correlation.Fields),
	)
	return ex, nil
}

func correlationFields() []dataset.Field {
	return append([]dataset.Field(nil), stats.CorrelationFields...)
}

func member(set []dataset.Field, f dataset.Field) bool {
	for _, g := range set {
		if g == f {
			return true
		}
	}
	return false
}
