package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/agriyield/config"
	"github.com/YuminosukeSato/agriyield/dashboard"
	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/filter"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
	"github.com/YuminosukeSato/agriyield/pkg/log"
)

// app carries what the persistent flags resolve to.
type app struct {
	envFile  string
	dataset  string
	model    string
	logLevel string

	cfg    config.Config
	logger log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "agriyield",
		Short:         "Cereal yield dashboard: statistics, exports and yield prediction",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file read before the environment")
	pf.StringVar(&a.dataset, "dataset", "", "dataset file, .xlsx or .csv (overrides "+config.EnvDataset+")")
	pf.StringVar(&a.model, "model", "", "model artifact (overrides "+config.EnvModel+")")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides "+config.EnvLogLevel+")")

	root.AddCommand(
		newServeCmd(a),
		newDescribeCmd(a),
		newCorrelateCmd(a),
		newExportCmd(a),
		newPredictCmd(a),
		newTrainCmd(a),
	)
	return root
}

// setup resolves the configuration and installs the loggers. Logs go to
// stderr so that tables on stdout stay clean.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if a.dataset != "" {
		cfg.Dataset = a.dataset
	}
	if a.model != "" {
		cfg.Model = a.model
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := log.SetupLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = logger

	// 警告はzerologで構造化して出す
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zl := zerolog.New(cmd.ErrOrStderr()).Level(level).With().Timestamp().Logger()
	errors.SetZerologWarnFunc(errors.ZerologWarnFunc(zl))
	return nil
}

// session opens the dataset, and the model when withModel is set.
func (a *app) session(withModel bool) (*dashboard.Session, error) {
	if withModel {
		return dashboard.Open(a.cfg, a.logger)
	}
	ds, err := dataset.LoadFile(a.cfg.Dataset)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("dataset loaded", log.SourceKey, a.cfg.Dataset, log.RowsKey, ds.Len())
	return dashboard.New(ds, nil, dashboard.WithLogger(a.logger), dashboard.WithReferenceYield(a.cfg.ReferenceYield))
}

// filterFlags are the selection flags shared by the data commands.
type filterFlags struct {
	regions []string
	cereals []string
	from    int
	to      int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.regions, "region", nil, "regions to keep (repeatable or comma-separated)")
	cmd.Flags().StringSliceVar(&f.cereals, "cereal", nil, "cereals to keep (repeatable or comma-separated)")
	cmd.Flags().IntVar(&f.from, "from", 0, "first year kept")
	cmd.Flags().IntVar(&f.to, "to", 0, "last year kept")
}

// spec builds the filter; an open year bound falls back to the dataset's.
func (f *filterFlags) spec(ds *dataset.Dataset) filter.Spec {
	spec := filter.Spec{Regions: f.regions, Cereals: f.cereals}
	if f.from == 0 && f.to == 0 {
		return spec
	}
	lo, hi, _ := ds.YearRange()
	if f.from != 0 {
		lo = f.from
	}
	if f.to != 0 {
		hi = f.to
	}
	spec.Years = &filter.YearRange{Min: lo, Max: hi}
	return spec
}
