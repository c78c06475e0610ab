// Package dashboard owns the loaded dataset and model for the lifetime of a
// process and exposes the dashboard's sections as plain function calls:
// option lists, the filtered table and its export, the analysis panels,
// the exploration section and the prediction form.
package dashboard

import (
	"io/fs"
	"sync"
	"time"

	"github.com/YuminosukeSato/agriyield/config"
	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/export"
	"github.com/YuminosukeSato/agriyield/filter"
	"github.com/YuminosukeSato/agriyield/pipeline"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
	"github.com/YuminosukeSato/agriyield/pkg/log"
	"github.com/YuminosukeSato/agriyield/predict"
)

// Session is the single handle on the dataset and the model. The dataset is
// read-only; the last prediction is the only mutable state.
type Session struct {
	ds        *dataset.Dataset
	predictor *predict.Adapter
	reference float64
	logger    log.Logger
	now       func() time.Time

	mu   sync.Mutex
	last *predict.Result
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithReferenceYield overrides predict.DefaultReferenceYield.
func WithReferenceYield(v float64) Option {
	return func(s *Session) { s.reference = v }
}

// WithClock sets the time source used to stamp predictions.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New builds a session over an already loaded dataset. m may be nil, in
// which case Predict reports that no model is available.
func New(ds *dataset.Dataset, m predict.Model, opts ...Option) (*Session, error) {
	if ds == nil {
		return nil, errors.NewValidationError("dataset", "must not be nil", nil)
	}
	s := &Session{
		ds:        ds,
		reference: predict.DefaultReferenceYield,
		logger:    log.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if m != nil {
		a, err := predict.NewAdapter(m,
			predict.WithReferenceYield(s.reference),
			predict.WithLogger(s.logger.With(log.ComponentKey, "predict")),
			predict.WithClock(s.now),
		)
		if err != nil {
			return nil, err
		}
		if err := a.CheckSchema(); err != nil {
			return nil, err
		}
		s.predictor = a
	}
	return s, nil
}

// Open loads the dataset and the model named by cfg once. A missing model
// file is logged and leaves the session without a predictor; any other
// model error is returned.
func Open(cfg config.Config, logger log.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Discard()
	}
	start := time.Now()
	ds, err := dataset.LoadFile(cfg.Dataset)
	if err != nil {
		logger.Error("dataset load failed", err, log.SourceKey, cfg.Dataset)
		return nil, err
	}
	logger.Info("dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.SourceKey, cfg.Dataset,
		log.RowsKey, ds.Len(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	var m predict.Model
	switch p, err := pipeline.Load(cfg.Model); {
	case err == nil:
		m = p
		logger.Info("model loaded", log.SourceKey, cfg.Model, log.ModelNameKey, p.Name(), log.FeaturesKey, len(p.FeatureNames()))
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("model not found, prediction disabled", log.SourceKey, cfg.Model)
	default:
		logger.Error("model load failed", err, log.SourceKey, cfg.Model)
		return nil, err
	}

	return New(ds, m, WithLogger(logger), WithReferenceYield(cfg.ReferenceYield))
}

// Dataset returns the loaded dataset.
func (s *Session) Dataset() *dataset.Dataset { return s.ds }

// HasModel reports whether predictions can be made.
func (s *Session) HasModel() bool { return s.predictor != nil }

// ReferenceYield returns the yield predictions are compared against.
func (s *Session) ReferenceYield() float64 { return s.reference }

// Options are the choices offered by the dashboard's input widgets.
type Options struct {
	Regions            []string         `json:"regions"`
	Cereals            []string         `json:"cereals"`
	Years              filter.YearRange `json:"years"`
	ProductivityFields []dataset.Field  `json:"productivity_fields"`
	ClimateFields      []dataset.Field  `json:"climate_fields"`
	CorrelationFields  []dataset.Field  `json:"correlation_fields"`
	DefaultRequest     predict.Request  `json:"default_request"`
	ReferenceYield     float64          `json:"reference_yield"`
	ModelAvailable     bool             `json:"model_available"`
}

// Options lists the selectable values.
func (s *Session) Options() Options {
	opts := Options{
		Regions:            s.ds.Regions(),
		Cereals:            s.ds.Cereals(),
		ProductivityFields: dataset.ProductivityFields,
		ClimateFields:      dataset.ClimateFields,
		CorrelationFields:  correlationFields(),
		DefaultRequest:     predict.DefaultRequest(),
		ReferenceYield:     s.reference,
		ModelAvailable:     s.HasModel(),
	}
	if lo, hi, ok := s.ds.YearRange(); ok {
		opts.Years = filter.YearRange{Min: lo, Max: hi}
	}
	return opts
}

// View applies spec to the whole dataset with the general AND semantics.
func (s *Session) View(spec filter.Spec) (*dataset.View, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	v := filter.Apply(s.ds.All(), spec)
	s.logger.Debug("view filtered",
		log.OperationKey, log.OperationFilter,
		log.ViewRowsKey, v.Len(),
	)
	return v, nil
}

// Table returns the table view for spec using the legacy mode its filled-in
// sets imply.
func (s *Session) Table(spec filter.Spec) (filter.Selection, error) {
	if err := spec.Validate(); err != nil {
		return filter.Selection{}, err
	}
	sel := filter.Select(s.ds.All(), spec)
	attrs := []any{
		log.OperationKey, log.OperationFilter,
		log.FilterModeKey, sel.Mode.String(),
		log.FilterStateKey, sel.State.String(),
	}
	if sel.View != nil {
		attrs = append(attrs, log.ViewRowsKey, sel.View.Len())
	}
	s.logger.Debug("table selected", attrs...)
	return sel, nil
}

// Download is an encoded file ready to be sent.
type Download struct {
	Filename string
	MIME     string
	Data     []byte
}

// ExportView encodes the table view for spec as XLSX. Without a selection
// it returns ErrSelectionRequired; an empty view still exports a header.
func (s *Session) ExportView(spec filter.Spec) (*Download, error) {
	sel, err := s.Table(spec)
	if err != nil {
		return nil, err
	}
	if sel.State == filter.StateSelectionRequired {
		return nil, errors.ErrSelectionRequired
	}
	data, err := export.XLSX(sel.View)
	if err != nil {
		return nil, err
	}
	s.logger.Info("view exported",
		log.OperationKey, log.OperationExport,
		log.ExportFileKey, export.FilteredFilename,
		log.ExportBytesKey, len(data),
		log.ViewRowsKey, sel.View.Len(),
	)
	return &Download{Filename: export.FilteredFilename, MIME: export.MIMEXLSX, Data: data}, nil
}

// Predict runs the model on req. A successful result replaces the stored
// last prediction; a failure leaves it unchanged.
func (s *Session) Predict(req predict.Request) (*predict.Result, error) {
	if s.predictor == nil {
		return nil, errors.NewNotFittedError(pipeline.ModelName, "Predict")
	}
	res, err := s.predictor.Predict(req)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
	return res, nil
}

// LastPrediction returns the most recent successful prediction.
func (s *Session) LastPrediction() (*predict.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.last != nil
}

// ExportPrediction encodes the last prediction as CSV, named after now.
func (s *Session) ExportPrediction(now time.Time) (*Download, error) {
	res, ok := s.LastPrediction()
	if !ok {
		return nil, errors.ErrNoPrediction
	}
	data, err := export.PredictionCSV(res)
	if err != nil {
		return nil, err
	}
	name := export.PredictionFilename(now)
	s.logger.Info("prediction exported",
		log.OperationKey, log.OperationExport,
		log.ExportFileKey, name,
		log.ExportBytesKey, len(data),
	)
	return &Download{Filename: name, MIME: export.MIMECSV, Data: data}, nil
}
