package predict

import (
	"fmt"
	"time"

	"github.com/YuminosukeSato/agriyield/pkg/errors"
	"github.com/YuminosukeSato/agriyield/pkg/log"
)

// Model is a pre-trained yield regressor.
type Model interface {
	// Name identifies the artifact in logs and error messages.
	Name() string
	// FeatureNames lists the columns the model was trained with, in order.
	FeatureNames() []string
	// Predict returns the yield in t/ha for one feature record.
	Predict(FeatureRecord) (float64, error)
}

// Result is a successful prediction and its derived metrics.
type Result struct {
	Request         Request   `json:"request"`
	Yield           float64   `json:"yield"`
	TotalProduction float64   `json:"total_production"`
	ReferenceRatio  float64   `json:"reference_ratio"`
	ReferenceYield  float64   `json:"reference_yield"`
	Model           string    `json:"model"`
	PredictedAt     time.Time `json:"predicted_at"`
}

// Summary is the one-line success banner.
func (r *Result) Summary() string {
	return fmt.Sprintf("La production prédite est de : %.2f tonne/ha (production totale estimée : %.2f t, %.0f%% du rendement de référence)",
		r.Yield, r.TotalProduction, r.ReferenceRatio*100)
}

// Adapter invokes a Model for prediction requests. It is stateless: no
// retries, no caching.
type Adapter struct {
	model     Model
	reference float64
	now       func() time.Time
	logger    log.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithReferenceYield overrides DefaultReferenceYield.
func WithReferenceYield(v float64) Option {
	return func(a *Adapter) {
		a.reference = v
	}
}

// WithClock sets the time source stamped on results.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		a.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// NewAdapter wraps m.
func NewAdapter(m Model, opts ...Option) (*Adapter, error) {
	if m == nil {
		return nil, errors.NewValidationError("model", "must not be nil", nil)
	}
	a := &Adapter{
		model:     m,
		reference: DefaultReferenceYield,
		now:       time.Now,
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if !(a.reference > 0) {
		return nil, errors.NewValidationError("reference_yield", "must be positive", a.reference)
	}
	return a, nil
}

// Model returns the wrapped model.
func (a *Adapter) Model() Model { return a.model }

// ReferenceYield returns the reference yield in t/ha.
func (a *Adapter) ReferenceYield() float64 { return a.reference }

// CheckSchema compares the model's expected columns with Schema. Names and
// order must match exactly.
func (a *Adapter) CheckSchema() error {
	got := SchemaNames()
	want := a.model.FeatureNames()
	if len(got) == len(want) {
		same := true
		for i := range got {
			if got[i] != want[i] {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}
	return errors.NewSchemaError("predict.Adapter", want, got)
}

// Predict validates req, checks the schema and invokes the model. Errors
// returned by the model and panics inside it become an InferenceError; the
// model is never invoked when the schema differs.
func (a *Adapter) Predict(req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := a.CheckSchema(); err != nil {
		a.logger.Error("model schema mismatch", err, log.ModelNameKey, a.model.Name())
		return nil, err
	}

	features := Features(req)
	var yield float64
	err := errors.SafeExecute("predict.Adapter.Predict", func() error {
		var err error
		yield, err = a.model.Predict(features)
		return err
	})
	if err != nil {
		err = errors.NewInferenceError(a.model.Name(), err)
		a.logger.Error("inference failed", err, log.ModelNameKey, a.model.Name())
		return nil, err
	}
	if err := errors.CheckScalar("predict", yield); err != nil {
		a.logger.Error("model returned a non-finite yield", err, log.ModelNameKey, a.model.Name())
		return nil, err
	}

	res := &Result{
		Request:         req,
		Yield:           yield,
		TotalProduction: yield * req.Area,
		ReferenceRatio:  yield / a.reference,
		ReferenceYield:  a.reference,
		Model:           a.model.Name(),
		PredictedAt:     a.now(),
	}
	a.logger.Info("prediction done",
		log.ModelNameKey, a.model.Name(),
		log.PredictedYieldKey, yield,
	)
	return res, nil
}
