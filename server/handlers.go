package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/filter"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
	"github.com/YuminosukeSato/agriyield/pkg/log"
	"github.com/YuminosukeSato/agriyield/predict"
	"github.com/YuminosukeSato/agriyield/render"
	"github.com/YuminosukeSato/agriyield/stats"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFile(w http.ResponseWriter, name, mime string, data []byte) {
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type errorJSON struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

// statusOf maps an error to its HTTP status.
func statusOf(err error) (int, string) {
	var (
		validationErr *errors.ValidationError
		valueErr      *errors.ValueError
		schemaErr     *errors.SchemaError
		numericErr    *errors.NumericalInstabilityError
		inferenceErr  *errors.InferenceError
		notFittedErr  *errors.NotFittedError
	)
	switch {
	case errors.As(err, &inferenceErr):
		return http.StatusBadGateway, "InferenceError"
	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity, "SchemaError"
	case errors.As(err, &numericErr):
		return http.StatusUnprocessableEntity, "NumericalInstabilityError"
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "ValidationError"
	case errors.As(err, &valueErr):
		return http.StatusBadRequest, "ValueError"
	case errors.Is(err, errors.ErrSelectionRequired):
		return http.StatusBadRequest, "SelectionRequired"
	case errors.Is(err, errors.ErrNoPrediction):
		return http.StatusNotFound, "NoPrediction"
	case errors.As(err, &notFittedErr):
		return http.StatusServiceUnavailable, "NotFittedError"
	}
	return http.StatusInternalServerError, ""
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", err,
			log.HTTPPathKey, r.URL.Path,
			log.ErrorTypeKey, kind,
		)
	}
	writeJSON(w, status, errorJSON{Error: errors.UserMessage(err), Type: kind})
}

// decode reads the JSON body into v. An empty body leaves v unchanged.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.NewValidationError("body", "invalid JSON: "+err.Error(), nil)
	}
	return nil
}

// parseField resolves a column name from a request, case-insensitively.
// An empty name selects def.
func parseField(param, name string, def dataset.Field) (dataset.Field, error) {
	if name == "" {
		return def, nil
	}
	f, ok := dataset.ParseField(name)
	if !ok {
		return "", errors.NewValidationError(param, "unknown column", name)
	}
	return f, nil
}

func parseFields(param string, names []string) ([]dataset.Field, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]dataset.Field, len(names))
	for i, n := range names {
		f, err := parseField(param, n, "")
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Options())
}

type tableResponse struct {
	State filter.State `json:"state"`
	Mode  filter.Mode  `json:"mode"`
	Label string       `json:"label"`
	Rows  int          `json:"rows"`
	Table *tableJSON   `json:"table,omitempty"`
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	var spec filter.Spec
	if err := decode(w, r, &spec); err != nil {
		s.writeError(w, r, err)
		return
	}
	sel, err := s.session.Table(spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := tableResponse{State: sel.State, Mode: sel.Mode, Label: spec.Describe(), Table: encodeTable(sel.View)}
	if sel.View != nil {
		resp.Rows = sel.View.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}

type panelsRequest struct {
	Filter       filter.Spec `json:"filter"`
	Productivity string      `json:"productivity"`
	Climate      string      `json:"climate"`
}

func (s *Server) handlePanels(w http.ResponseWriter, r *http.Request) {
	var req panelsRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	prod, err := parseField("productivity", req.Productivity, dataset.ProductivityFields[0])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	climate, err := parseField("climate", req.Climate, dataset.ClimateFields[0])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	panels, err := s.session.Panels(req.Filter, prod, climate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"panels": encodePanels(panels)})
}

func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	var spec filter.Spec
	if err := decode(w, r, &spec); err != nil {
		s.writeError(w, r, err)
		return
	}
	ex, err := s.session.Explore(spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, encodeExploration(ex))
}

// statsRequest is the body shared by the statistics and chart endpoints.
// Each endpoint reads the members it needs.
type statsRequest struct {
	Filter    filter.Spec `json:"filter"`
	GroupKeys []string    `json:"group_keys"`
	Metric    string      `json:"metric"`
	Group     string      `json:"group"`
	Key       string      `json:"key"`
	Fields    []string    `json:"fields"`
	X         string      `json:"x"`
	Y         string      `json:"y"`
}

// stateResponse is returned instead of a result when the view is empty.
type stateResponse struct {
	State filter.State `json:"state"`
	Rows  int          `json:"rows"`
}

// view decodes a statsRequest and applies its filter. ok is false when a
// response has already been written.
func (s *Server) view(w http.ResponseWriter, r *http.Request) (statsRequest, *dataset.View, bool) {
	var req statsRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return req, nil, false
	}
	v, err := s.session.View(req.Filter)
	if err != nil {
		s.writeError(w, r, err)
		return req, nil, false
	}
	if v.Empty() {
		writeJSON(w, http.StatusOK, stateResponse{State: filter.StateNoData})
		return req, nil, false
	}
	return req, v, true
}

// noData answers 200 with the no_data state when err is ErrNoData. A view
// whose rows all lack the requested columns ends here.
func noData(w http.ResponseWriter, v *dataset.View, err error) bool {
	if !errors.Is(err, errors.ErrNoData) {
		return false
	}
	writeJSON(w, http.StatusOK, stateResponse{State: filter.StateNoData, Rows: v.Len()})
	return true
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	req, v, ok := s.view(w, r)
	if !ok {
		return
	}
	keys, err := parseFields("group_keys", req.GroupKeys)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if keys == nil {
		keys = []dataset.Field{dataset.FieldRegion}
	}
	metric, err := parseField("metric", req.Metric, dataset.FieldYield)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	summary, err := stats.Describe(v, keys, metric)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": filter.StateReady, "rows": v.Len(), "summary": encodeSummary(summary)})
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	req, v, ok := s.view(w, r)
	if !ok {
		return
	}
	fields, err := parseFields("fields", req.Fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	corr, err := stats.Correlate(v, fields)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": filter.StateReady, "rows": v.Len(), "correlation": encodeCorrelation(corr)})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	req, v, ok := s.view(w, r)
	if !ok {
		return
	}
	series, _, err := trendOf(req, v)
	if noData(w, v, err) {
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": filter.StateReady, "rows": v.Len(), "series": encodeSeries(series)})
}

func trendOf(req statsRequest, v *dataset.View) ([]stats.Series, dataset.Field, error) {
	metric, err := parseField("metric", req.Metric, dataset.FieldProduction)
	if err != nil {
		return nil, "", err
	}
	group, err := parseField("group", req.Group, dataset.FieldCereal)
	if err != nil {
		return nil, "", err
	}
	series, err := stats.Trend(v, metric, group)
	return series, metric, err
}

func (s *Server) handleRelation(w http.ResponseWriter, r *http.Request) {
	req, v, ok := s.view(w, r)
	if !ok {
		return
	}
	series, _, _, err := relationOf(req, v)
	if noData(w, v, err) {
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": filter.StateReady, "rows": v.Len(), "series": encodeRelation(series)})
}

func relationOf(req statsRequest, v *dataset.View) ([]stats.RelationSeries, dataset.Field, dataset.Field, error) {
	x, err := parseField("x", req.X, dataset.FieldPrecipitation)
	if err != nil {
		return nil, "", "", err
	}
	y, err := parseField("y", req.Y, dataset.FieldYield)
	if err != nil {
		return nil, "", "", err
	}
	group, err := parseField("group", req.Group, dataset.FieldCereal)
	if err != nil {
		return nil, "", "", err
	}
	series, err := stats.Relation(v, x, y, group)
	return series, x, y, err
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var spec filter.Spec
	if err := decode(w, r, &spec); err != nil {
		s.writeError(w, r, err)
		return
	}
	dl, err := s.session.ExportView(spec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeFile(w, dl.Filename, dl.MIME, dl.Data)
}

type predictionResponse struct {
	*predict.Result
	Message string `json:"message"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	// Fields left out keep the form defaults.
	req := predict.DefaultRequest()
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.session.Predict(req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, predictionResponse{Result: res, Message: res.Summary()})
}

func (s *Server) handleLastPrediction(w http.ResponseWriter, r *http.Request) {
	res, ok := s.session.LastPrediction()
	if !ok {
		s.writeError(w, r, errors.ErrNoPrediction)
		return
	}
	writeJSON(w, http.StatusOK, predictionResponse{Result: res, Message: res.Summary()})
}

func (s *Server) handleExportPrediction(w http.ResponseWriter, r *http.Request) {
	dl, err := s.session.ExportPrediction(s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeFile(w, dl.Filename, dl.MIME, dl.Data)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	switch kind {
	case "trend", "heatmap", "means", "scatter":
	default:
		writeJSON(w, http.StatusNotFound, errorJSON{Error: "unknown chart " + strconv.Quote(kind)})
		return
	}
	req, v, ok := s.view(w, r)
	if !ok {
		return
	}

	var (
		img []byte
		err error
	)
	switch kind {
	case "trend":
		var series []stats.Series
		var metric dataset.Field
		if series, metric, err = trendOf(req, v); err == nil {
			img, err = render.TrendChart(series, metric)
		}
	case "heatmap":
		var fields []dataset.Field
		if fields, err = parseFields("fields", req.Fields); err == nil {
			var corr *stats.CorrelationMatrix
			if corr, err = stats.Correlate(v, fields); err == nil {
				img, err = render.Heatmap(corr)
			}
		}
	case "means":
		img, err = meansChart(req, v)
	case "scatter":
		var series []stats.RelationSeries
		var x, y dataset.Field
		if series, x, y, err = relationOf(req, v); err == nil {
			img, err = render.ScatterChart(series, x, y)
		}
	}
	if noData(w, v, err) {
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Debug("chart rendered", log.OperationKey, log.OperationRender, "chart", kind, log.ExportBytesKey, len(img))
	w.Header().Set("Content-Type", render.MIMEPNG)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func meansChart(req statsRequest, v *dataset.View) ([]byte, error) {
	key, err := parseField("key", req.Key, dataset.FieldRegion)
	if err != nil {
		return nil, err
	}
	metric, err := parseField("metric", req.Metric, dataset.FieldProduction)
	if err != nil {
		return nil, err
	}
	means, err := stats.GroupMeans(v, key, metric)
	if err != nil {
		return nil, err
	}
	return render.BarChart(means, metric)
}
