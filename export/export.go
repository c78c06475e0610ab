// Package export encodes filtered views and prediction results as
// downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
	"github.com/YuminosukeSato/agriyield/predict"
)

// SheetName is the name of the single sheet of a filtered export.
const SheetName = "Données filtrées"

// FilteredFilename is the download name of a filtered export.
const FilteredFilename = "donnees_filtrees.xlsx"

// MIME types of the exported files.
const (
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMECSV  = "text/csv; charset=utf-8"
)

// PredictionFilename returns the date-stamped download name of a prediction
// export, e.g. "prediction_rendement_20250314.csv".
func PredictionFilename(t time.Time) string {
	return "prediction_rendement_" + t.Format("20060102") + ".csv"
}

// XLSX encodes view as a workbook.
func XLSX(view *dataset.View) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes view as a workbook with one sheet: a header row of field
// names followed by the view's rows in their original order. NaN cells are
// left empty.
func WriteXLSX(w io.Writer, view *dataset.View) error {
	if view == nil {
		return errors.NewValidationError("view", "must not be nil", nil)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return errors.Wrap(err, "rename sheet")
	}

	header := make([]interface{}, len(dataset.Columns))
	for i, c := range dataset.Columns {
		header[i] = string(c)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}

	for i, rec := range view.Records() {
		row := make([]interface{}, len(dataset.Columns))
		for j, c := range dataset.Columns {
			row[j] = cellValue(rec, c)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "cell name")
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return errors.Wrapf(err, "write row %d", i+2)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

func cellValue(rec dataset.Record, f dataset.Field) interface{} {
	switch f {
	case dataset.FieldRegion:
		return rec.Region
	case dataset.FieldCereal:
		return rec.Cereal
	case dataset.FieldYear:
		return rec.Year
	}
	v, _ := rec.Value(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// PredictionHeader is the header row of a prediction export.
var PredictionHeader = append(predict.SchemaNames(),
	"Rendement_Prédit", "Production_Totale", "Ratio_Référence", "Rendement_Référence", "Date")

// PredictionCSV encodes a prediction result as a header and one row.
func PredictionCSV(res *predict.Result) ([]byte, error) {
	if res == nil {
		return nil, errors.ErrNoPrediction
	}
	req := res.Request
	row := []string{
		req.Region,
		req.Cereal,
		strconv.Itoa(req.Year),
		formatFloat(req.Area),
		formatFloat(req.Temperature),
		formatFloat(req.Precipitation),
		formatFloat(req.RainDays),
		formatFloat(req.Humidity),
		formatFloat(req.WindSpeed),
		formatFloat(req.Sunshine),
		strconv.FormatFloat(res.Yield, 'f', 4, 64),
		strconv.FormatFloat(res.TotalProduction, 'f', 2, 64),
		strconv.FormatFloat(res.ReferenceRatio, 'f', 4, 64),
		formatFloat(res.ReferenceYield),
		res.PredictedAt.Format("2006-01-02"),
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(PredictionHeader); err != nil {
		return nil, errors.Wrap(err, "write csv header")
	}
	if err := w.Write(row); err != nil {
		return nil, errors.Wrap(err, "write csv row")
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "flush csv")
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
