package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/agriyield/dataset"
	"github.com/YuminosukeSato/agriyield/export"
	"github.com/YuminosukeSato/agriyield/pipeline"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
	"github.com/YuminosukeSato/agriyield/pkg/log"
	"github.com/YuminosukeSato/agriyield/predict"
	"github.com/YuminosukeSato/agriyield/server"
	"github.com/YuminosukeSato/agriyield/stats"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Addr
			}
			session, err := a.session(true)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(session,
				server.WithLogger(a.logger),
				server.WithAllowedOrigins(a.cfg.CORSOrigins),
			)
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides AGRIYIELD_ADDR)")
	return cmd
}

func newDescribeCmd(a *app) *cobra.Command {
	var (
		ff     filterFlags
		by     []string
		metric string
	)
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print descriptive statistics of a column per group",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := parseFields("by", by)
			if err != nil {
				return err
			}
			m, err := parseField("metric", metric)
			if err != nil {
				return err
			}
			session, err := a.session(false)
			if err != nil {
				return err
			}
			view, err := session.View(ff.spec(session.Dataset()))
			if err != nil {
				return err
			}
			summary, err := stats.Describe(view, keys, m)
			if err != nil {
				return err
			}
			renderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringSliceVar(&by, "by", []string{string(dataset.FieldRegion)}, "grouping columns, one or two")
	cmd.Flags().StringVar(&metric, "metric", string(dataset.FieldYield), "numeric column to summarize")
	return cmd
}

func newCorrelateCmd(a *app) *cobra.Command {
	var (
		ff     filterFlags
		fields []string
	)
	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Print the correlation matrix of numeric columns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs, err := parseFields("fields", fields)
			if err != nil {
				return err
			}
			session, err := a.session(false)
			if err != nil {
				return err
			}
			view, err := session.View(ff.spec(session.Dataset()))
			if err != nil {
				return err
			}
			corr, err := stats.Correlate(view, fs)
			if err != nil {
				return err
			}
			renderCorrelation(cmd.OutOrStdout(), corr)
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "columns to correlate (default: the dashboard heatmap columns)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		ff  filterFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered rows to an Excel workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.session(false)
			if err != nil {
				return err
			}
			dl, err := session.ExportView(ff.spec(session.Dataset()))
			if err != nil {
				return err
			}
			if out == "" {
				out = dl.Filename
			}
			if err := os.WriteFile(out, dl.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", out, len(dl.Data))
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default "+export.FilteredFilename+")")
	return cmd
}

func newPredictCmd(a *app) *cobra.Command {
	req := predict.DefaultRequest()
	var csvOut string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the yield of one region, cereal and season",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.session(true)
			if err != nil {
				return err
			}
			res, err := session.Predict(req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
			if csvOut == "" {
				return nil
			}
			dl, err := session.ExportPrediction(time.Now())
			if err != nil {
				return err
			}
			return os.WriteFile(csvOut, dl.Data, 0o644)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Region, "region", req.Region, "region")
	f.StringVar(&req.Cereal, "cereal", req.Cereal, "cereal")
	f.IntVar(&req.Year, "year", req.Year, "season")
	f.Float64Var(&req.Area, "area", req.Area, "sown area (ha)")
	f.Float64Var(&req.Temperature, "temperature", req.Temperature, "mean temperature (°C)")
	f.Float64Var(&req.Precipitation, "precipitation", req.Precipitation, "precipitation (mm)")
	f.Float64Var(&req.RainDays, "rain-days", req.RainDays, "number of rain days")
	f.Float64Var(&req.Humidity, "humidity", req.Humidity, "relative humidity (%)")
	f.Float64Var(&req.WindSpeed, "wind-speed", req.WindSpeed, "wind speed (km/h)")
	f.Float64Var(&req.Sunshine, "sunshine", req.Sunshine, "sunshine duration (h)")
	f.StringVar(&csvOut, "csv", "", "also write the prediction to this CSV file")
	return cmd
}

func newTrainCmd(a *app) *cobra.Command {
	var (
		ff    filterFlags
		out   string
		alpha float64
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the yield model on the dataset and save the artifact",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = a.cfg.Model
			}
			session, err := a.session(false)
			if err != nil {
				return err
			}
			view, err := session.View(ff.spec(session.Dataset()))
			if err != nil {
				return err
			}
			p, err := pipeline.Fit(view, pipeline.Options{Alpha: alpha, Logger: a.logger})
			if err != nil {
				return err
			}
			if err := p.Save(out); err != nil {
				return err
			}
			a.logger.Info("model saved", log.ExportFileKey, out, log.ModelNameKey, p.Name())
			if report, ok := p.Report(); ok {
				renderReport(cmd.OutOrStdout(), report)
			}
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "artifact path (default: the configured model)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "ridge penalty (0 selects the default)")
	return cmd
}

func parseField(param, name string) (dataset.Field, error) {
	f, ok := dataset.ParseField(name)
	if !ok {
		return "", errors.NewValidationError(param, "unknown column", name)
	}
	return f, nil
}

func parseFields(param string, names []string) ([]dataset.Field, error) {
	var out []dataset.Field
	for _, n := range names {
		f, err := parseField(param, n)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
