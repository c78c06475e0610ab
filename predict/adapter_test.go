package predict

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/YuminosukeSato/agriyield/pkg/errors"
	"github.com/YuminosukeSato/agriyield/pkg/log"
)

// stubModel returns a fixed yield and records what it was called with.
type stubModel struct {
	names  []string
	yield  float64
	err    error
	panics bool
	calls  int
	last   FeatureRecord
}

func (m *stubModel) Name() string           { return "stub" }
func (m *stubModel) FeatureNames() []string { return m.names }

func (m *stubModel) Predict(fr FeatureRecord) (float64, error) {
	m.calls++
	m.last = fr
	if m.panics {
		var weights []float64
		_ = weights[3]
	}
	return m.yield, m.err
}

func exampleRequest() Request {
	return Request{
		Region:        "Centre",
		Cereal:        "Maïs",
		Year:          2023,
		Area:          5500,
		Temperature:   30,
		Precipitation: 200,
		RainDays:      7,
		Humidity:      65,
		WindSpeed:     22,
		Sunshine:      6,
	}
}

func TestPredictExampleScenario(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	model := &stubModel{names: SchemaNames(), yield: 3.0}
	adapter, err := NewAdapter(model, WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}

	res, err := adapter.Predict(exampleRequest())
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	if res.Yield != 3.0 {
		t.Errorf("Yield = %v, want 3.0", res.Yield)
	}
	if math.Abs(res.TotalProduction-16500) > 1e-9 {
		t.Errorf("TotalProduction = %v, want 16500", res.TotalProduction)
	}
	if math.Abs(res.ReferenceRatio-1.2) > 1e-9 {
		t.Errorf("ReferenceRatio = %v, want 1.2", res.ReferenceRatio)
	}
	if res.ReferenceYield != DefaultReferenceYield || !res.PredictedAt.Equal(fixed) {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.Summary(), "3.00 tonne/ha") {
		t.Errorf("Summary() = %q", res.Summary())
	}
}

func TestFeaturesOrderAndValues(t *testing.T) {
	fr := Features(exampleRequest())

	if got, want := strings.Join(fr.Names(), ","), strings.Join(SchemaNames(), ","); got != want {
		t.Fatalf("Names() = %s, want %s", got, want)
	}
	region, _ := fr.Get("Région")
	if region.Label != "Centre" || !math.IsNaN(region.Value) {
		t.Errorf("Région = %+v", region)
	}
	year, _ := fr.Get("Année")
	if year.Label != "2023" || year.Value != 2023 {
		t.Errorf("Année = %+v", year)
	}
	rain, _ := fr.Get("Nombre_Jour_Pluie")
	if rain.Value != 7 {
		t.Errorf("Nombre_Jour_Pluie = %+v", rain)
	}
	if _, ok := fr.Get("Rendement"); ok {
		t.Error("the target must not be part of the features")
	}
}

func TestPredictSchemaMismatchDoesNotInvokeModel(t *testing.T) {
	tests := []struct {
		name  string
		names []string
	}{
		{"missing column", SchemaNames()[:9]},
		{"extra column", append(SchemaNames(), "Production")},
		{"swapped order", func() []string {
			n := SchemaNames()
			n[3], n[4] = n[4], n[3]
			return n
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &stubModel{names: tt.names, yield: 3}
			adapter, _ := NewAdapter(model)

			_, err := adapter.Predict(exampleRequest())

			var schemaErr *errors.SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("err = %v, want SchemaError", err)
			}
			if model.calls != 0 {
				t.Errorf("model invoked %d times despite schema mismatch", model.calls)
			}
		})
	}
}

func TestPredictModelFailures(t *testing.T) {
	tests := []struct {
		name      string
		model     *stubModel
		inference bool
	}{
		{"model error", &stubModel{names: SchemaNames(), err: errors.New("unknown category")}, true},
		{"model panic", &stubModel{names: SchemaNames(), panics: true}, true},
		{"NaN output", &stubModel{names: SchemaNames(), yield: math.NaN()}, false},
		{"Inf output", &stubModel{names: SchemaNames(), yield: math.Inf(1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := log.NewTestLogger(log.LevelDebug)
			adapter, _ := NewAdapter(tt.model, WithLogger(logger))

			res, err := adapter.Predict(exampleRequest())
			if err == nil || res != nil {
				t.Fatalf("Predict() = (%v, %v), want error", res, err)
			}

			var infErr *errors.InferenceError
			var numErr *errors.NumericalInstabilityError
			if tt.inference && !errors.As(err, &infErr) {
				t.Errorf("err = %v, want InferenceError", err)
			}
			if !tt.inference && !errors.As(err, &numErr) {
				t.Errorf("err = %v, want NumericalInstabilityError", err)
			}
			if errors.UserMessage(err) == "" {
				t.Error("UserMessage() should not be empty")
			}
			if !logger.ContainsField(log.ModelNameKey, "stub") {
				t.Error("failure should be logged with the model name")
			}
		})
	}
}

func TestPredictPanicKeepsCause(t *testing.T) {
	adapter, _ := NewAdapter(&stubModel{names: SchemaNames(), panics: true})

	_, err := adapter.Predict(exampleRequest())

	var panicErr *errors.PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("err = %v, want a PanicError inside the InferenceError", err)
	}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Request)
		param  string
	}{
		{"valid", func(*Request) {}, ""},
		{"empty region", func(r *Request) { r.Region = " " }, "region"},
		{"empty cereal", func(r *Request) { r.Cereal = "" }, "cereal"},
		{"year too old", func(r *Request) { r.Year = 1800 }, "year"},
		{"negative area", func(r *Request) { r.Area = -1 }, "area"},
		{"NaN temperature", func(r *Request) { r.Temperature = math.NaN() }, "temperature"},
		{"negative rain days", func(r *Request) { r.RainDays = -2 }, "rain_days"},
		{"humidity above 100", func(r *Request) { r.Humidity = 120 }, "humidity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := exampleRequest()
			tt.modify(&req)
			err := req.Validate()
			if tt.param == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			var valErr *errors.ValidationError
			if !errors.As(err, &valErr) || valErr.ParamName != tt.param {
				t.Errorf("Validate() = %v, want ValidationError on %s", err, tt.param)
			}
		})
	}
}

func TestPredictInvalidRequestDoesNotInvokeModel(t *testing.T) {
	model := &stubModel{names: SchemaNames(), yield: 3}
	adapter, _ := NewAdapter(model)
	req := exampleRequest()
	req.Humidity = -5

	if _, err := adapter.Predict(req); err == nil {
		t.Fatal("expected a validation error")
	}
	if model.calls != 0 {
		t.Error("model should not be invoked for an invalid request")
	}
}

func TestNewAdapterOptions(t *testing.T) {
	model := &stubModel{names: SchemaNames(), yield: 3}

	if _, err := NewAdapter(nil); err == nil {
		t.Error("nil model should be rejected")
	}
	if _, err := NewAdapter(model, WithReferenceYield(0)); err == nil {
		t.Error("zero reference yield should be rejected")
	}

	adapter, err := NewAdapter(model, WithReferenceYield(3))
	if err != nil {
		t.Fatalf("NewAdapter() error = %v", err)
	}
	res, err := adapter.Predict(exampleRequest())
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if res.ReferenceRatio != 1 {
		t.Errorf("ReferenceRatio = %v, want 1", res.ReferenceRatio)
	}
}
