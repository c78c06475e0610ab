// Package agriyield is the core of a cereal yield dashboard for
// Burkina Faso: one table of regional agricultural and climate records,
// filtered, summarized, charted, exported, and fed to a yield model.
//
// # Layout
//
//   - dataset: the record table, column names, XLSX and CSV loading
//   - filter: region, cereal and year predicates, and the historical
//     table views with their selection states
//   - stats: grouped descriptive statistics, correlation matrices, yearly
//     trends, group means, and scatter relations with a least-squares fit
//   - render: PNG charts of the statistics (gonum/plot)
//   - export: XLSX of a filtered view, CSV of a prediction
//   - predict: the prediction request, feature schema, and the adapter that
//     validates inputs and wraps any model
//   - pipeline: the trained yield model (one-hot, standard scaling, ridge)
//     and its JSON artifact
//   - dashboard: a session holding the dataset, the model and the last
//     prediction; the four dashboard panels and the exploration page
//   - server: the HTTP API over a session
//   - config: settings from .env files and the environment
//   - pkg/errors, pkg/log: error types, user messages and structured logging
//
// # Quick Start
//
// Train a model on the dataset, then serve the dashboard:
//
//	agriyield train --dataset base_finale.xlsx --out model_rendement.json
//	agriyield serve --addr :8080
//
// Or use the packages directly:
//
//	ds, err := dataset.LoadFile("base_finale.xlsx")
//	if err != nil {
//	    return err
//	}
//	view := filter.Apply(ds.All(), filter.Spec{Regions: []string{"Sahel"}})
//	summary, err := stats.Describe(view, []dataset.Field{dataset.FieldCereal}, dataset.FieldYield)
//
// # Error Handling
//
// Errors carry stack traces (github.com/cockroachdb/errors). Sentinels such
// as errors.ErrNoData and errors.ErrSelectionRequired describe empty or
// incomplete selections; errors.UserMessage turns any error into the banner
// shown to the user. Undefined statistics produce warnings, not errors.
package agriyield
