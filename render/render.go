// Package render draws the dashboard charts as PNG images with gonum/plot.
//
// Every function returns the encoded image; an empty input returns
// errors.ErrNoData and nothing is drawn.
package render

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
	"github.com/YuminosukeSato/agriyield/stats"
)

// MIMEPNG is the content type of every rendered chart.
const MIMEPNG = "image/png"

// Default image size.
var (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
)

var (
	nanColor = color.Gray{Y: 200}
	barColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
)

func newPlot(title, x, y string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = x
	p.Y.Label.Text = y
	return p
}

func encode(p *plot.Plot, w, h vg.Length) ([]byte, error) {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return nil, errors.Wrap(err, "render png")
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "render png")
	}
	return buf.Bytes(), nil
}

// TrendChart draws one line per series of the yearly mean of metric.
// Years where the mean is undefined are left out of the line.
func TrendChart(series []stats.Series, metric dataset.Field) ([]byte, error) {
	p := newPlot(fmt.Sprintf("Évolution de %s", metric), string(dataset.FieldYear), string(metric))
	drawn := 0
	for i, s := range series {
		pts := make(plotter.XYs, 0, len(s.Points))
		for _, pt := range s.Points {
			if math.IsNaN(pt.Value) || math.IsInf(pt.Value, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(pt.Year), Y: pt.Value})
		}
		if len(pts) == 0 {
			continue
		}
		line, marks, err := plotter.NewLinePoints(pts)
		if err != nil {
			return nil, errors.Wrap(err, "trend line")
		}
		c := plotutil.Color(i)
		line.Color = c
		line.Width = vg.Points(2)
		marks.GlyphStyle.Color = c
		marks.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(line, marks)
		p.Legend.Add(s.Group, line, marks)
		drawn++
	}
	if drawn == 0 {
		return nil, errors.ErrNoData
	}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.X.Tick.Marker = yearTicks{}
	return encode(p, Width, Height)
}

// yearTicks labels every integer year inside the axis range.
type yearTicks struct{}

func (yearTicks) Ticks(min, max float64) []plot.Tick {
	first, last := int(math.Ceil(min)), int(math.Floor(max))
	step := 1
	if n := last - first; n > 12 {
		step = (n + 11) / 12
	}
	var ticks []plot.Tick
	for y := first; y <= last; y += step {
		ticks = append(ticks, plot.Tick{Value: float64(y), Label: fmt.Sprint(y)})
	}
	return ticks
}

// corrGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 of the
// matrix is drawn at the top.
type corrGrid struct {
	m *stats.CorrelationMatrix
	n int
}

func (g corrGrid) Dims() (c, r int)   { return g.n, g.n }
func (g corrGrid) Z(c, r int) float64 { return g.m.At(g.n-1-r, c) }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

func formatCoef(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.2f", v)
}

// Heatmap draws the correlation matrix on a blue-red diverging scale fixed
// to [-1, 1]. Undefined cells are grey; every cell is annotated with its
// value to two decimals.
func Heatmap(corr *stats.CorrelationMatrix) ([]byte, error) {
	if corr == nil || len(corr.Fields) == 0 {
		return nil, errors.ErrNoData
	}
	g := corrGrid{m: corr, n: len(corr.Fields)}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)
	hm := plotter.NewHeatMap(g, cm.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = nanColor

	p := newPlot("Matrice de corrélation", "", "")
	p.Add(hm)

	xys := make(plotter.XYs, 0, g.n*g.n)
	texts := make([]string, 0, g.n*g.n)
	for r := 0; r < g.n; r++ {
		for c := 0; c < g.n; c++ {
			xys = append(xys, plotter.XY{X: g.X(c), Y: g.Y(r)})
			texts = append(texts, formatCoef(g.Z(c, r)))
		}
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, errors.Wrap(err, "heatmap labels")
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(labels)

	cols := make([]string, g.n)
	rows := make([]string, g.n)
	for i := 0; i < g.n; i++ {
		cols[i] = string(corr.Fields[i])
		rows[i] = string(corr.Fields[g.n-1-i])
	}
	p.NominalX(cols...)
	p.NominalY(rows...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	side := vg.Length(g.n)*vg.Inch + 2*vg.Inch
	return encode(p, side, side)
}

// BarChart draws one bar per group mean. Groups without a defined mean are
// skipped.
func BarChart(means []stats.GroupMean, metric dataset.Field) ([]byte, error) {
	var (
		values plotter.Values
		names  []string
	)
	for _, m := range means {
		if math.IsNaN(m.Mean) || math.IsInf(m.Mean, 0) {
			continue
		}
		values = append(values, m.Mean)
		names = append(names, m.Group)
	}
	if len(values) == 0 {
		return nil, errors.ErrNoData
	}

	p := newPlot(fmt.Sprintf("%s moyenne", metric), "", string(metric))
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, errors.Wrap(err, "bar chart")
	}
	bars.Color = barColor
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Y.Min = math.Min(0, p.Y.Min)
	return encode(p, Width, Height)
}

// ScatterChart draws each relation series in its own colour with its
// trendline. Marker radius grows with the cultivated area.
func ScatterChart(series []stats.RelationSeries, x, y dataset.Field) ([]byte, error) {
	maxSize := 0.0
	for _, s := range series {
		for _, pt := range s.Points {
			if pt.Size > maxSize {
				maxSize = pt.Size
			}
		}
	}

	p := newPlot(fmt.Sprintf("%s en fonction de %s", y, x), string(x), string(y))
	drawn := 0
	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s.Points))
		lo, hi := math.Inf(1), math.Inf(-1)
		for k, pt := range s.Points {
			pts[k] = plotter.XY{X: pt.X, Y: pt.Y}
			lo, hi = math.Min(lo, pt.X), math.Max(hi, pt.X)
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, errors.Wrap(err, "scatter")
		}
		c := plotutil.Color(i)
		points := s.Points
		sc.GlyphStyleFunc = func(k int) draw.GlyphStyle {
			return draw.GlyphStyle{Color: c, Shape: draw.CircleGlyph{}, Radius: radius(points[k].Size, maxSize)}
		}
		p.Add(sc)
		p.Legend.Add(s.Group, sc)

		if fit := s.Fit; !math.IsNaN(fit.Slope) {
			line := plotter.NewFunction(fit.Eval)
			line.XMin, line.XMax = lo, hi
			line.Color = c
			line.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
			p.Add(line)
		}
		drawn++
	}
	if drawn == 0 {
		return nil, errors.ErrNoData
	}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	return encode(p, Width, Height)
}

func radius(size, maxSize float64) vg.Length {
	if !(maxSize > 0) || math.IsNaN(size) || size <= 0 {
		return vg.Points(3)
	}
	return vg.Points(3 + 7*size/maxSize)
}
