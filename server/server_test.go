package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/YuminosukeSato/agriyield/dashboard"
	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/dataset/datasettest"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
	"github.com/YuminosukeSato/agriyield/pkg/log"
	"github.com/YuminosukeSato/agriyield/predict"
)

var fixedNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

type stubModel struct {
	yield float64
	err   error
}

func (m stubModel) Name() string           { return "stub" }
func (m stubModel) FeatureNames() []string { return predict.SchemaNames() }
func (m stubModel) Predict(predict.FeatureRecord) (float64, error) {
	return m.yield, m.err
}

func newTestServer(t *testing.T, m predict.Model) (*httptest.Server, *log.TestLogger) {
	t.Helper()
	return newTestServerFor(t, datasettest.Regional(), m)
}

func newTestServerFor(t *testing.T, ds *dataset.Dataset, m predict.Model) (*httptest.Server, *log.TestLogger) {
	t.Helper()
	errors.SetZerologWarnFunc(nil)
	errors.SetWarningHandler(func(error) {})

	session, err := dashboard.New(ds, m, dashboard.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("dashboard.New() error = %v", err)
	}
	logger, _ := log.NewTestLogger(log.LevelDebug)
	srv := New(session,
		WithLogger(logger),
		WithClock(func() time.Time { return fixedNow }),
		WithAllowedOrigins([]string{"http://localhost:5173"}),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, logger
}

func post(t *testing.T, ts *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func TestOptions(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp := get(t, ts, "/api/options")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if regions := body["regions"].([]any); len(regions) != 3 {
		t.Errorf("regions = %v", regions)
	}
	if body["model_available"] != false {
		t.Errorf("model_available = %v", body["model_available"])
	}
}

func TestTableStates(t *testing.T) {
	ts, logger := newTestServer(t, nil)

	tests := []struct {
		name  string
		body  string
		state string
		rows  float64
	}{
		{"selection required", `{}`, "selection_required", 0},
		{"empty body", ``, "selection_required", 0},
		{"region", `{"regions":["Sahel"]}`, "ready", 4},
		{"no data", `{"regions":["Sahel"],"years":{"min":1990,"max":1991}}`, "no_data", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts, "/api/table", tt.body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			body := decodeBody(t, resp)
			if body["state"] != tt.state || body["rows"] != tt.rows {
				t.Errorf("state = %v, rows = %v", body["state"], body["rows"])
			}
		})
	}

	if !logger.ContainsField("http.path", "/api/table") {
		t.Errorf("request log missing: %s", logger)
	}
}

func TestTableRows(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp := post(t, ts, "/api/table", `{"regions":["Sahel"],"cereals":["Mil"]}`)
	body := decodeBody(t, resp)

	table := body["table"].(map[string]any)
	rows := table["rows"].([]any)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	first := rows[0].([]any)
	if first[0] != "Sahel" || first[1] != "Mil" || first[2] != float64(2020) {
		t.Errorf("first row = %v", first)
	}
	if body["mode"] != "region_cereal" || body["label"] != "Sahel et Mil" {
		t.Errorf("mode = %v, label = %v", body["mode"], body["label"])
	}
}

func TestBadRequests(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	tests := []struct {
		path string
		body string
	}{
		{"/api/table", `{"regions":`},
		{"/api/table", `{"years":{"min":2022,"max":2020}}`},
		{"/api/describe", `{"metric":"Inconnu"}`},
		{"/api/describe", `{"group_keys":["Superficie"]}`},
		{"/api/panels", `{"filter":{"regions":["Sahel"]},"productivity":"Humidité"}`},
		{"/api/export", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.body, func(t *testing.T) {
			resp := post(t, ts, tt.path, tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if body := decodeBody(t, resp); body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := post(t, ts, "/api/describe", `{"filter":{"regions":["Sahel"],"years":{"min":2020,"max":2020}},"group_keys":["Région","Céréale"],"metric":"rendement"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	groups := body["summary"].(map[string]any)["groups"].([]any)
	if len(groups) != 2 {
		t.Fatalf("groups = %v", groups)
	}
	g := groups[0].(map[string]any)
	// a single-row group has no std
	if g["std"] != nil || g["count"] != float64(1) {
		t.Errorf("group = %v", g)
	}

	resp = post(t, ts, "/api/describe", `{"filter":{"cereals":["Sorgho"]}}`)
	if body := decodeBody(t, resp); resp.StatusCode != http.StatusOK || body["state"] != "no_data" {
		t.Errorf("empty view: status %d, body %v", resp.StatusCode, body)
	}
}

func TestCorrelationEncodesNaNAsNull(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := post(t, ts, "/api/correlation", `{}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	corr := decodeBody(t, resp)["correlation"].(map[string]any)
	fields := corr["fields"].([]any)
	values := corr["values"].([]any)

	for i, f := range fields {
		v := values[i].([]any)[i]
		if f == string(dataset.FieldHumidity) {
			if v != nil {
				t.Errorf("humidity diagonal = %v, want null", v)
			}
		} else if v != float64(1) {
			t.Errorf("%v diagonal = %v, want 1", f, v)
		}
	}
}

func TestTrendAndRelation(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := post(t, ts, "/api/trend", `{"metric":"Production","group":"Céréale"}`)
	series := decodeBody(t, resp)["series"].([]any)
	if len(series) != 2 {
		t.Errorf("trend series = %d, want 2", len(series))
	}

	resp = post(t, ts, "/api/relation", `{"x":"Précipitation","y":"Rendement","group":"Région"}`)
	rel := decodeBody(t, resp)["series"].([]any)
	if len(rel) != 3 {
		t.Fatalf("relation series = %d, want 3", len(rel))
	}
	fit := rel[0].(map[string]any)["fit"].(map[string]any)
	if _, ok := fit["slope"].(float64); !ok {
		t.Errorf("fit = %v", fit)
	}
}

func TestRelationWithoutCompleteRows(t *testing.T) {
	ds := dataset.New([]dataset.Record{
		{Region: "Sahel", Cereal: "Mil", Year: 2020, Area: 100, Yield: 0.8, Production: 80, Precipitation: math.NaN()},
		{Region: "Sahel", Cereal: "Mil", Year: 2021, Area: 120, Yield: 0.9, Production: 108, Precipitation: math.NaN()},
	})
	ts, logger := newTestServerFor(t, ds, nil)

	for _, path := range []string{"/api/relation", "/api/charts/scatter"} {
		resp := post(t, ts, path, `{"x":"Précipitation","y":"Rendement","group":"Région"}`)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, resp.StatusCode)
			continue
		}
		body := decodeBody(t, resp)
		if body["state"] != "no_data" || body["rows"] != float64(2) {
			t.Errorf("%s: body = %v", path, body)
		}
	}
	if logger.ContainsMessage("request failed") {
		t.Error("an empty relation should not be logged as a failure")
	}
}

func TestPanelsAndExplore(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := post(t, ts, "/api/panels", `{"filter":{"cereals":["Mil"]},"productivity":"Rendement","climate":"Température"}`)
	panels := decodeBody(t, resp)["panels"].([]any)
	states := make(map[string]any)
	for _, p := range panels {
		m := p.(map[string]any)
		states[m["kind"].(string)] = m["state"]
	}
	if states["cereal_productivity"] != "ready" || states["region_productivity"] != "selection_required" {
		t.Errorf("states = %v", states)
	}

	resp = post(t, ts, "/api/explore", `{"regions":["Centre"]}`)
	ex := decodeBody(t, resp)
	if ex["state"] != "ready" || ex["rows"] != float64(4) || ex["correlation"] == nil {
		t.Errorf("exploration = %v", ex)
	}
}

func TestExport(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := post(t, ts, "/api/export", `{"regions":["Sahel"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "donnees_filtrees.xlsx") {
		t.Errorf("Content-Disposition = %s", cd)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	ds, err := dataset.ReadXLSX(&buf)
	if err != nil {
		t.Fatalf("ReadXLSX() error = %v", err)
	}
	if ds.Len() != 4 {
		t.Errorf("exported rows = %d", ds.Len())
	}
}

func TestPredictFlow(t *testing.T) {
	ts, _ := newTestServer(t, stubModel{yield: 3})

	if resp := get(t, ts, "/api/predict/last"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("last before predict: status = %d, want 404", resp.StatusCode)
	}
	if resp := get(t, ts, "/api/predict/export"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("export before predict: status = %d, want 404", resp.StatusCode)
	}

	resp := post(t, ts, "/api/predict", `{"region":"Centre","cereal":"Maïs"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("predict status = %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["yield"] != float64(3) || body["total_production"] != float64(16500) {
		t.Errorf("prediction = %v", body)
	}
	if ratio := body["reference_ratio"].(float64); math.Abs(ratio-1.2) > 1e-12 {
		t.Errorf("reference_ratio = %v", ratio)
	}
	if msg, _ := body["message"].(string); !strings.Contains(msg, "3.00 tonne/ha") {
		t.Errorf("message = %q", msg)
	}

	if resp := get(t, ts, "/api/predict/last"); resp.StatusCode != http.StatusOK {
		t.Errorf("last: status = %d", resp.StatusCode)
	}
	resp = get(t, ts, "/api/predict/export")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "prediction_rendement_20250314.csv") {
		t.Errorf("Content-Disposition = %s", cd)
	}
}

func TestPredictErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		model  predict.Model
		body   string
		status int
	}{
		{"invalid request", stubModel{yield: 1}, `{"humidity":150}`, http.StatusBadRequest},
		{"inference failure", stubModel{err: errors.New("boom")}, `{}`, http.StatusBadGateway},
		{"non-finite output", stubModel{yield: math.Inf(1)}, `{}`, http.StatusUnprocessableEntity},
		{"no model", nil, `{}`, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newTestServer(t, tt.model)
			resp := post(t, ts, "/api/predict", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if body := decodeBody(t, resp); body["error"] == "" {
				t.Error("missing user message")
			}
		})
	}
}

func TestCharts(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	for _, kind := range []string{"trend", "heatmap", "means", "scatter"} {
		t.Run(kind, func(t *testing.T) {
			resp := post(t, ts, "/api/charts/"+kind, `{}`)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
				t.Errorf("Content-Type = %s", ct)
			}
			var buf bytes.Buffer
			buf.ReadFrom(resp.Body)
			if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
				t.Error("body is not a PNG")
			}
		})
	}

	if resp := post(t, ts, "/api/charts/pie", `{}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown chart: status = %d", resp.StatusCode)
	}
	resp := post(t, ts, "/api/charts/trend", `{"filter":{"regions":["Est"]}}`)
	if body := decodeBody(t, resp); body["state"] != "no_data" {
		t.Errorf("empty chart = %v", body)
	}
}

func TestCORS(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/options", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestNumberMarshal(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1.5, "1.5"},
		{math.NaN(), "null"},
		{math.Inf(-1), "null"},
		{2020, "2020"},
	}
	for _, tt := range tests {
		got, _ := number(tt.in).MarshalJSON()
		if string(got) != tt.want {
			t.Errorf("number(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
