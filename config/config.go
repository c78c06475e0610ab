// Package config reads the runtime settings from the environment, after an
// optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/YuminosukeSato/agriyield/pkg/errors"
	"github.com/YuminosukeSato/agriyield/pkg/log"
	"github.com/YuminosukeSato/agriyield/predict"
)

// Environment variable names.
const (
	EnvDataset        = "AGRIYIELD_DATASET"
	EnvModel          = "AGRIYIELD_MODEL"
	EnvAddr           = "AGRIYIELD_ADDR"
	EnvLogLevel       = "AGRIYIELD_LOG_LEVEL"
	EnvReferenceYield = "AGRIYIELD_REFERENCE_YIELD"
	EnvCORSOrigins    = "AGRIYIELD_CORS_ORIGINS"
)

// Defaults.
const (
	DefaultDataset  = "base_finale.xlsx"
	DefaultModel    = "model_rendement.json"
	DefaultAddr     = ":8080"
	DefaultLogLevel = "info"
)

// DefaultCORSOrigins are the front-end hosts allowed when none are set.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"}

// Config holds the settings shared by every subcommand.
type Config struct {
	Dataset        string
	Model          string
	Addr           string
	LogLevel       string
	ReferenceYield float64
	CORSOrigins    []string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Dataset:        DefaultDataset,
		Model:          DefaultModel,
		Addr:           DefaultAddr,
		LogLevel:       DefaultLogLevel,
		ReferenceYield: predict.DefaultReferenceYield,
		CORSOrigins:    append([]string(nil), DefaultCORSOrigins...),
	}
}

// Load reads the given .env files (".env" when none are given; a missing
// file is not an error) and then the environment. Variables already set in
// the environment win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "load %s", f)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment only.
func FromEnv() (Config, error) {
	cfg := Default()
	cfg.Dataset = getenv(EnvDataset, cfg.Dataset)
	cfg.Model = getenv(EnvModel, cfg.Model)
	cfg.Addr = getenv(EnvAddr, cfg.Addr)
	cfg.LogLevel = getenv(EnvLogLevel, cfg.LogLevel)

	if v := os.Getenv(EnvReferenceYield); v != "" {
		ref, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Config{}, errors.NewValidationError(EnvReferenceYield, "not a number", v)
		}
		cfg.ReferenceYield = ref
	}
	if v := os.Getenv(EnvCORSOrigins); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values that would otherwise fail later.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Dataset) == "" {
		return errors.NewValidationError("dataset", "must not be empty", c.Dataset)
	}
	if !(c.ReferenceYield > 0) {
		return errors.NewValidationError("reference_yield", "must be positive", c.ReferenceYield)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.NewValidationError("log_level", err.Error(), c.LogLevel)
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
