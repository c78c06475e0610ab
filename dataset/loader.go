package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

// LoadFile reads a dataset from path, choosing the format by extension
// (.xlsx or .csv).
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	var ds *Dataset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		ds, err = ReadXLSX(f)
	case ".csv":
		ds, err = ReadCSV(f)
	default:
		return nil, errors.NewValidationError("dataset", "unsupported file extension (want .xlsx or .csv)", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load dataset %s", path)
	}
	ds.source = path
	return ds, nil
}

// ReadXLSX reads the first sheet of a workbook. The first row must hold the
// column headers.
func ReadXLSX(r io.Reader) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.NewValueError("dataset.ReadXLSX", fmt.Sprintf("invalid workbook: %v", err))
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewValueError("dataset.ReadXLSX", "workbook has no sheet")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheets[0])
	}
	return parseTable("dataset.ReadXLSX", rows)
}

// ReadCSV reads comma- or semicolon-separated text with a header row.
// A UTF-8 byte order mark is ignored.
func ReadCSV(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewValueError("dataset.ReadCSV", fmt.Sprintf("invalid csv: %v", err))
	}
	return parseTable("dataset.ReadCSV", rows)
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func parseTable(op string, rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, errors.NewModelError(op, "no header row", errors.ErrEmptyData)
	}

	header := rows[0]
	pos := make(map[Field]int, len(Columns))
	for i, h := range header {
		if f, ok := ParseField(h); ok {
			if _, dup := pos[f]; !dup {
				pos[f] = i
			}
		}
	}
	if len(pos) != len(Columns) {
		got := make([]string, len(header))
		for i, h := range header {
			got[i] = strings.TrimSpace(h)
			if f, ok := ParseField(h); ok {
				got[i] = string(f)
			}
		}
		return nil, errors.NewSchemaError(op, FieldNames(Columns), got)
	}

	cell := func(row []string, f Field) string {
		i := pos[f]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]Record, 0, len(rows)-1)
	emptyCells := 0
	for n, row := range rows[1:] {
		line := n + 2
		if blank(row) {
			continue
		}

		rec := Record{
			Region: cell(row, FieldRegion),
			Cereal: cell(row, FieldCereal),
		}
		if rec.Region == "" || rec.Cereal == "" {
			return nil, errors.NewValueError(op, fmt.Sprintf("row %d: empty %s or %s", line, FieldRegion, FieldCereal))
		}

		year, err := parseNumber(cell(row, FieldYear))
		if err != nil || math.IsNaN(year) || year != math.Trunc(year) {
			return nil, errors.NewValueError(op, fmt.Sprintf("row %d, column %s: invalid year %q", line, FieldYear, cell(row, FieldYear)))
		}
		rec.Year = int(year)

		for _, f := range NumericFields() {
			if f == FieldYear {
				continue
			}
			raw := cell(row, f)
			v, err := parseNumber(raw)
			if err != nil {
				return nil, errors.NewValueError(op, fmt.Sprintf("row %d, column %s: invalid number %q", line, f, raw))
			}
			if raw == "" {
				emptyCells++
			}
			rec.set(f, v)
		}
		records = append(records, rec)
	}

	if emptyCells > 0 {
		errors.Warn(errors.NewDataConversionWarning("empty cell", "NaN",
			fmt.Sprintf("%d empty numeric cells in %d rows", emptyCells, len(records))))
	}
	return New(records), nil
}

// parseNumber accepts "1.5", "1,5" and "" (NaN).
func parseNumber(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
