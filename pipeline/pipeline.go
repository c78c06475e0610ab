// Package pipeline is the yield model artifact: a one-hot encoder over the
// categorical columns, a standard scaler over the numeric ones and a
// ridge-stabilised linear regression, stored as JSON.
//
// A *Pipeline satisfies predict.Model.
package pipeline

import (
	"encoding/json"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/agriyield/core/model"
	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/linear"
	"github.com/YuminosukeSato/agriyield/metrics"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
	"github.com/YuminosukeSato/agriyield/pkg/log"
	"github.com/YuminosukeSato/agriyield/predict"
	"github.com/YuminosukeSato/agriyield/preprocessing"
)

// ModelName is the artifact header name.
const ModelName = "YieldPipeline"

// DefaultAlpha is the L2 penalty used by Fit when none is given.
const DefaultAlpha = 1e-3

// Columns the pipeline is trained on. The year is encoded as a category.
var (
	CategoricalColumns = []dataset.Field{dataset.FieldRegion, dataset.FieldCereal, dataset.FieldYear}
	NumericColumns     = []dataset.Field{
		dataset.FieldArea, dataset.FieldTemperature, dataset.FieldPrecipitation,
		dataset.FieldRainDays, dataset.FieldHumidity, dataset.FieldWindSpeed, dataset.FieldSunshine,
	}
	Target = dataset.FieldYield
)

// Pipeline is a fitted yield model.
type Pipeline struct {
	categorical []string
	numeric     []string
	encoder     *preprocessing.OneHotEncoder
	scaler      *preprocessing.StandardScaler
	regressor   *linear.LinearRegression
	report      *metrics.Report
}

var _ predict.Model = (*Pipeline)(nil)

// Name implements predict.Model.
func (p *Pipeline) Name() string { return ModelName }

// FeatureNames implements predict.Model: categorical columns, then numeric.
func (p *Pipeline) FeatureNames() []string {
	out := make([]string, 0, len(p.categorical)+len(p.numeric))
	out = append(out, p.categorical...)
	return append(out, p.numeric...)
}

// Report returns the training metrics stored with the artifact, if any.
func (p *Pipeline) Report() (metrics.Report, bool) {
	if p.report == nil {
		return metrics.Report{}, false
	}
	return *p.report, true
}

// Predict implements predict.Model.
func (p *Pipeline) Predict(fr predict.FeatureRecord) (float64, error) {
	names := p.FeatureNames()
	if got := fr.Names(); !sameStrings(got, names) {
		return 0, errors.NewSchemaError("pipeline.Predict", names, got)
	}

	cats := make([]string, len(p.categorical))
	for j, name := range p.categorical {
		f, _ := fr.Get(name)
		cats[j] = f.Label
		if !p.encoder.Known(j, f.Label) {
			errors.Warn(errors.NewDataConversionWarning("unknown category", "zero vector",
				name+"="+f.Label+" was not seen during training"))
		}
	}
	nums := make([]float64, len(p.numeric))
	for j, name := range p.numeric {
		f, _ := fr.Get(name)
		nums[j] = f.Value
	}
	if err := errors.CheckFinite("pipeline.Predict", nums); err != nil {
		return 0, err
	}

	X, err := p.design([][]string{cats}, mat.NewDense(1, len(nums), nums))
	if err != nil {
		return 0, err
	}
	y, err := p.regressor.Predict(X)
	if err != nil {
		return 0, err
	}
	return y.At(0, 0), nil
}

func (p *Pipeline) design(cats [][]string, nums mat.Matrix) (*mat.Dense, error) {
	encoded, err := p.encoder.Transform(cats)
	if err != nil {
		return nil, err
	}
	scaled, err := p.scaler.Transform(nums)
	if err != nil {
		return nil, err
	}
	r, ce := encoded.Dims()
	_, cs := scaled.Dims()
	X := mat.NewDense(r, ce+cs, nil)
	X.Slice(0, r, 0, ce).(*mat.Dense).Copy(encoded)
	X.Slice(0, r, ce, ce+cs).(*mat.Dense).Copy(scaled)
	return X, nil
}

// Options configures Fit.
type Options struct {
	// Alpha is the L2 penalty; zero selects DefaultAlpha.
	Alpha  float64
	Logger log.Logger
}

// Fit trains a pipeline on view with Rendement as the target. Rows with a
// missing numeric input or target are skipped.
func Fit(view *dataset.View, opts Options) (*Pipeline, error) {
	if view == nil || view.Empty() {
		return nil, errors.ErrNoData
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	alpha := opts.Alpha
	if alpha == 0 {
		alpha = DefaultAlpha
	}

	var (
		cats    [][]string
		numData []float64
		target  []float64
	)
	skipped := 0
	for _, rec := range view.Records() {
		row, nums, y, ok := trainingRow(rec)
		if !ok {
			skipped++
			continue
		}
		cats = append(cats, row)
		numData = append(numData, nums...)
		target = append(target, y)
	}
	if len(target) < 2 {
		return nil, errors.NewModelError("pipeline.Fit", "fewer than two complete rows", errors.ErrNoData)
	}
	if skipped > 0 {
		errors.Warn(errors.NewDataConversionWarning("incomplete row", "skipped",
			"rows with a missing numeric value are left out of training"))
	}

	p := &Pipeline{
		categorical: dataset.FieldNames(CategoricalColumns),
		numeric:     dataset.FieldNames(NumericColumns),
		encoder:     preprocessing.NewOneHotEncoder(),
		scaler:      preprocessing.NewStandardScaler(),
		regressor:   linear.NewLinearRegression(linear.WithAlpha(alpha)),
	}
	if err := p.encoder.Fit(cats); err != nil {
		return nil, err
	}
	nums := mat.NewDense(len(target), len(NumericColumns), numData)
	if err := p.scaler.Fit(nums); err != nil {
		return nil, err
	}
	X, err := p.design(cats, nums)
	if err != nil {
		return nil, err
	}
	y := mat.NewDense(len(target), 1, target)
	if err := p.regressor.Fit(X, y); err != nil {
		return nil, err
	}

	pred, err := p.regressor.Predict(X)
	if err != nil {
		return nil, err
	}
	fitted := make([]float64, len(target))
	for i := range fitted {
		fitted[i] = pred.At(i, 0)
	}
	report, err := metrics.Evaluate(target, fitted)
	if err != nil {
		return nil, err
	}
	p.report = &report

	logger.Info("model fitted",
		log.OperationKey, log.OperationFit,
		log.RowsKey, len(target),
		log.FeaturesKey, p.encoder.NOutputs()+len(NumericColumns),
		log.RMSEKey, report.RMSE,
		log.R2ScoreKey, report.R2,
	)
	return p, nil
}

func trainingRow(rec dataset.Record) (cats []string, nums []float64, y float64, ok bool) {
	cats = make([]string, len(CategoricalColumns))
	for j, f := range CategoricalColumns {
		cats[j], _ = rec.Label(f)
	}
	nums = make([]float64, len(NumericColumns))
	for j, f := range NumericColumns {
		nums[j], _ = rec.Value(f)
		if math.IsNaN(nums[j]) || math.IsInf(nums[j], 0) {
			return nil, nil, 0, false
		}
	}
	y = rec.Yield
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return nil, nil, 0, false
	}
	return cats, nums, y, true
}

type artifactParams struct {
	Categorical []string        `json:"categorical"`
	Numeric     []string        `json:"numeric"`
	Target      string          `json:"target"`
	Encoder     json.RawMessage `json:"encoder"`
	Scaler      json.RawMessage `json:"scaler"`
	Regressor   json.RawMessage `json:"regressor"`
	Training    *metrics.Report `json:"training_metrics,omitempty"`
}

func (p *Pipeline) params() (artifactParams, error) {
	params := artifactParams{
		Categorical: p.categorical,
		Numeric:     p.numeric,
		Target:      string(Target),
	}
	// JSON has no NaN; an undefined R² drops the training metrics.
	if r := p.report; r != nil && errors.CheckFinite("pipeline.Write", []float64{r.MSE, r.MAE, r.R2}) == nil {
		params.Training = r
	}
	components := []struct {
		dst *json.RawMessage
		src model.Persistable
	}{
		{&params.Encoder, p.encoder},
		{&params.Scaler, p.scaler},
		{&params.Regressor, p.regressor},
	}
	for _, c := range components {
		v, err := c.src.Params()
		if err != nil {
			return artifactParams{}, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return artifactParams{}, errors.Wrap(err, "marshal component")
		}
		*c.dst = raw
	}
	return params, nil
}

// Write stores the pipeline as a JSON artifact.
func (p *Pipeline) Write(w io.Writer) error {
	params, err := p.params()
	if err != nil {
		return err
	}
	return model.WriteArtifact(w, ModelName, params)
}

// Save writes the artifact to path.
func (p *Pipeline) Save(path string) error {
	params, err := p.params()
	if err != nil {
		return err
	}
	return model.SaveArtifact(path, ModelName, params)
}

// Read decodes a pipeline artifact and checks it is internally consistent.
func Read(r io.Reader) (*Pipeline, error) {
	raw, err := model.ReadArtifact(r, ModelName)
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

// Load reads the artifact at path.
func Load(path string) (*Pipeline, error) {
	raw, err := model.LoadArtifact(path, ModelName)
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func decode(raw json.RawMessage) (*Pipeline, error) {
	var params artifactParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, errors.NewModelError("pipeline.Read", "invalid params", err)
	}

	p := &Pipeline{
		categorical: params.Categorical,
		numeric:     params.Numeric,
		encoder:     preprocessing.NewOneHotEncoder(),
		scaler:      preprocessing.NewStandardScaler(),
		regressor:   linear.NewLinearRegression(),
		report:      params.Training,
	}
	if err := p.encoder.SetParams(params.Encoder); err != nil {
		return nil, err
	}
	if err := p.scaler.SetParams(params.Scaler); err != nil {
		return nil, err
	}
	if err := p.regressor.SetParams(params.Regressor); err != nil {
		return nil, err
	}

	if len(p.encoder.Categories) != len(p.categorical) {
		return nil, errors.NewDimensionError("pipeline.Read encoder", len(p.categorical), len(p.encoder.Categories), 1)
	}
	if p.scaler.NFeatures != len(p.numeric) {
		return nil, errors.NewDimensionError("pipeline.Read scaler", len(p.numeric), p.scaler.NFeatures, 1)
	}
	if want := p.encoder.NOutputs() + p.scaler.NFeatures; p.regressor.NFeatures != want {
		return nil, errors.NewDimensionError("pipeline.Read regressor", want, p.regressor.NFeatures, 1)
	}
	return p, nil
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
