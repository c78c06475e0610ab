// Package log defines standard attribute keys for agriyield operations.
//
// Using these keys across the dataset, stats, predict and server packages
// keeps the JSON logs filterable with the same field names everywhere
// (e.g. "view.rows", "stats.metric").
package log

// Operation context.
const (
	// ComponentKey identifies which package emitted the record.
	// Examples: "dataset", "stats", "predict", "server"
	ComponentKey = "component"

	// OperationKey names the operation being performed.
	// Standard values are the Operation* constants below.
	OperationKey = "operation"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Data shape.
const (
	// SourceKey is the path of a loaded dataset or model artifact.
	SourceKey = "data.source"

	// RowsKey is the number of rows in a dataset.
	RowsKey = "data.rows"

	// ViewRowsKey is the number of rows in a filtered view.
	ViewRowsKey = "view.rows"

	// FilterModeKey is the legacy selection mode ("region", "cereal", ...).
	FilterModeKey = "filter.mode"

	// FilterStateKey is the selection outcome ("ready", "no_data", ...).
	FilterStateKey = "filter.state"
)

// Statistics.
const (
	MetricKey    = "stats.metric"
	GroupKeysKey = "stats.group_keys"
	GroupsKey    = "stats.groups"
	FieldsKey    = "stats.fields"
)

// Model and prediction.
const (
	// ModelNameKey identifies the model artifact.
	ModelNameKey = "model.name"

	// FeaturesKey is the number of input columns a model expects.
	FeaturesKey = "model.features"

	// PredictedYieldKey is the predicted yield in t/ha.
	PredictedYieldKey = "predict.yield"

	// R2ScoreKey records R² for a training run.
	R2ScoreKey = "metrics.r2_score"

	// RMSEKey records the training RMSE.
	RMSEKey = "metrics.rmse"
)

// Export and HTTP.
const (
	ExportBytesKey   = "export.bytes"
	ExportFileKey    = "export.filename"
	HTTPMethodKey    = "http.method"
	HTTPPathKey      = "http.path"
	HTTPStatusKey    = "http.status"
	HTTPRequestIDKey = "http.request_id"
)

// Error context.
const (
	// ErrorTypeKey categorizes the type of error encountered.
	// Examples: "SchemaError", "InferenceError"
	ErrorTypeKey = "error.type"

	// SuggestionKey provides a hint for resolving the issue.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationLoad      = "load"
	OperationFilter    = "filter"
	OperationDescribe  = "describe"
	OperationCorrelate = "correlate"
	OperationTrend     = "trend"
	OperationExport    = "export"
	OperationPredict   = "predict"
	OperationFit       = "fit"
	OperationRender    = "render"
)
