package main

import (
	"io"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/metrics"
	"github.com/YuminosukeSato/agriyield/stats"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetHeader(header)
	return table
}

// cell formats v with three decimals, "-" when undefined.
func cell(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func renderSummary(w io.Writer, s *stats.Summary) {
	header := append(dataset.FieldNames(s.GroupKeys), "n", "moyenne", "écart-type", "min", "q25", "médiane", "q75", "max")
	table := newTable(w, header)
	for _, g := range s.Groups {
		row := append([]string(nil), g.Keys...)
		row = append(row, strconv.Itoa(g.Count),
			cell(g.Mean), cell(g.Std), cell(g.Min), cell(g.Q25), cell(g.Median), cell(g.Q75), cell(g.Max))
		table.Append(row)
	}
	table.SetCaption(true, string(s.Metric))
	table.Render()
}

func renderCorrelation(w io.Writer, c *stats.CorrelationMatrix) {
	names := dataset.FieldNames(c.Fields)
	table := newTable(w, append([]string{""}, names...))
	for i, row := range c.Rows() {
		line := make([]string, 0, len(row)+1)
		line = append(line, names[i])
		for _, v := range row {
			line = append(line, cell(v))
		}
		table.Append(line)
	}
	table.SetCaption(true, "n = "+strconv.Itoa(c.N))
	table.Render()
}

func renderReport(w io.Writer, r metrics.Report) {
	table := newTable(w, []string{"n", "MSE", "RMSE", "MAE", "R²"})
	table.Append([]string{strconv.Itoa(r.N), cell(r.MSE), cell(r.RMSE), cell(r.MAE), cell(r.R2)})
	table.Render()
}
