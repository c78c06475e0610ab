package server

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/YuminosukeSato/agriyield/dashboard"
	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/filter"
	"github.com/YuminosukeSato/agriyield/stats"
)

// number is a float64 that encodes NaN and ±Inf as null.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

type groupJSON struct {
	Keys   []string `json:"keys"`
	Count  int      `json:"count"`
	Mean   number   `json:"mean"`
	Std    number   `json:"std"`
	Min    number   `json:"min"`
	Q25    number   `json:"q25"`
	Median number   `json:"median"`
	Q75    number   `json:"q75"`
	Max    number   `json:"max"`
}

type summaryJSON struct {
	GroupKeys []dataset.Field `json:"group_keys"`
	Metric    dataset.Field   `json:"metric"`
	Groups    []groupJSON     `json:"groups"`
}

func encodeSummary(s *stats.Summary) *summaryJSON {
	if s == nil {
		return nil
	}
	out := &summaryJSON{GroupKeys: s.GroupKeys, Metric: s.Metric, Groups: make([]groupJSON, len(s.Groups))}
	for i, g := range s.Groups {
		out.Groups[i] = groupJSON{
			Keys: g.Keys, Count: g.Count,
			Mean: number(g.Mean), Std: number(g.Std),
			Min: number(g.Min), Q25: number(g.Q25), Median: number(g.Median), Q75: number(g.Q75), Max: number(g.Max),
		}
	}
	return out
}

type pointJSON struct {
	Year  int    `json:"year"`
	Value number `json:"value"`
}

type seriesJSON struct {
	Group  string      `json:"group"`
	Keys   []string    `json:"keys"`
	Points []pointJSON `json:"points"`
}

func encodeSeries(series []stats.Series) []seriesJSON {
	out := make([]seriesJSON, len(series))
	for i, s := range series {
		out[i] = seriesJSON{Group: s.Group, Keys: s.Keys, Points: make([]pointJSON, len(s.Points))}
		for k, p := range s.Points {
			out[i].Points[k] = pointJSON{Year: p.Year, Value: number(p.Value)}
		}
	}
	return out
}

type correlationJSON struct {
	Fields    []dataset.Field `json:"fields"`
	Values    [][]number      `json:"values"`
	N         int             `json:"n"`
	Undefined []dataset.Field `json:"undefined,omitempty"`
}

func encodeCorrelation(c *stats.CorrelationMatrix) *correlationJSON {
	if c == nil {
		return nil
	}
	rows := c.Rows()
	out := &correlationJSON{Fields: c.Fields, N: c.N, Undefined: c.Undefined(), Values: make([][]number, len(rows))}
	for i, row := range rows {
		out.Values[i] = make([]number, len(row))
		for j, v := range row {
			out.Values[i][j] = number(v)
		}
	}
	return out
}

type groupMeanJSON struct {
	Group string `json:"group"`
	Mean  number `json:"mean"`
	Count int    `json:"count"`
}

func encodeMeans(means []stats.GroupMean) []groupMeanJSON {
	out := make([]groupMeanJSON, len(means))
	for i, m := range means {
		out[i] = groupMeanJSON{Group: m.Group, Mean: number(m.Mean), Count: m.Count}
	}
	return out
}

type scatterPointJSON struct {
	X      number `json:"x"`
	Y      number `json:"y"`
	Size   number `json:"size"`
	Region string `json:"region"`
	Year   int    `json:"year"`
}

type fitJSON struct {
	Intercept number `json:"intercept"`
	Slope     number `json:"slope"`
	R2        number `json:"r2"`
}

type relationJSON struct {
	Group  string             `json:"group"`
	Points []scatterPointJSON `json:"points"`
	Fit    fitJSON            `json:"fit"`
}

func encodeRelation(series []stats.RelationSeries) []relationJSON {
	out := make([]relationJSON, len(series))
	for i, s := range series {
		out[i] = relationJSON{
			Group:  s.Group,
			Points: make([]scatterPointJSON, len(s.Points)),
			Fit:    fitJSON{Intercept: number(s.Fit.Intercept), Slope: number(s.Fit.Slope), R2: number(s.Fit.R2)},
		}
		for k, p := range s.Points {
			out[i].Points[k] = scatterPointJSON{X: number(p.X), Y: number(p.Y), Size: number(p.Size), Region: p.Region, Year: p.Year}
		}
	}
	return out
}

// tableJSON is a view as column names plus rows of cells in column order.
type tableJSON struct {
	Columns []dataset.Field     `json:"columns"`
	Rows    [][]json.RawMessage `json:"rows"`
}

func encodeTable(view *dataset.View) *tableJSON {
	if view == nil {
		return nil
	}
	out := &tableJSON{Columns: dataset.Columns, Rows: make([][]json.RawMessage, 0, view.Len())}
	for _, rec := range view.Records() {
		row := make([]json.RawMessage, len(dataset.Columns))
		for j, f := range dataset.Columns {
			if f.IsCategorical() {
				label, _ := rec.Label(f)
				row[j], _ = json.Marshal(label)
				continue
			}
			v, _ := rec.Value(f)
			row[j], _ = number(v).MarshalJSON()
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

type panelJSON struct {
	Kind      dashboard.PanelKind `json:"kind"`
	Title     string              `json:"title"`
	Mode      filter.Mode         `json:"mode"`
	GroupKeys []dataset.Field     `json:"group_keys"`
	Metric    dataset.Field       `json:"metric"`
	State     filter.State        `json:"state"`
	Rows      int                 `json:"rows"`
	Summary   *summaryJSON        `json:"summary,omitempty"`
	Trend     []seriesJSON        `json:"trend,omitempty"`
}

func encodePanels(panels []dashboard.Panel) []panelJSON {
	out := make([]panelJSON, len(panels))
	for i, p := range panels {
		out[i] = panelJSON{
			Kind: p.Kind, Title: p.Title, Mode: p.Mode, GroupKeys: p.GroupKeys,
			Metric: p.Metric, State: p.State, Rows: p.Rows,
			Summary: encodeSummary(p.Summary),
		}
		if p.Trend != nil {
			out[i].Trend = encodeSeries(p.Trend)
		}
	}
	return out
}

type explorationJSON struct {
	State       filter.State     `json:"state"`
	Rows        int              `json:"rows"`
	Label       string           `json:"label"`
	Trend       []seriesJSON     `json:"trend,omitempty"`
	Correlation *correlationJSON `json:"correlation,omitempty"`
	RegionMeans []groupMeanJSON  `json:"region_means,omitempty"`
}

func encodeExploration(ex *dashboard.Exploration) explorationJSON {
	out := explorationJSON{
		State: ex.State, Rows: ex.Rows, Label: ex.Label,
		Correlation: encodeCorrelation(ex.Correlation),
	}
	if ex.Trend != nil {
		out.Trend = encodeSeries(ex.Trend)
	}
	if ex.RegionMeans != nil {
		out.RegionMeans = encodeMeans(ex.RegionMeans)
	}
	return out
}
