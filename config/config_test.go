package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/agriyield/pkg/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDataset, EnvModel, EnvAddr, EnvLogLevel, EnvReferenceYield, EnvCORSOrigins} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Dataset != DefaultDataset || cfg.Model != DefaultModel || cfg.Addr != DefaultAddr {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ReferenceYield != 2.5 {
		t.Errorf("ReferenceYield = %v, want 2.5", cfg.ReferenceYield)
	}
	if len(cfg.CORSOrigins) != len(DefaultCORSOrigins) {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDataset, "data.csv")
	t.Setenv(EnvReferenceYield, " 3.1 ")
	t.Setenv(EnvCORSOrigins, "https://a.example, ,https://b.example")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Dataset != "data.csv" || cfg.ReferenceYield != 3.1 || cfg.LogLevel != "DEBUG" {
		t.Errorf("cfg = %+v", cfg)
	}
	if strings.Join(cfg.CORSOrigins, "|") != "https://a.example|https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestFromEnvInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"reference not a number", EnvReferenceYield, "abc"},
		{"reference zero", EnvReferenceYield, "0"},
		{"reference negative", EnvReferenceYield, "-2"},
		{"log level", EnvLogLevel, "verbose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			var valErr *errors.ValidationError
			if _, err := FromEnv(); !errors.As(err, &valErr) {
				t.Errorf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	body := EnvModel + "=artifacts/model.json\n" + EnvAddr + "=:9090\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvAddr, ":7070")
	t.Cleanup(func() { os.Unsetenv(EnvModel) })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "artifacts/model.json" {
		t.Errorf("Model = %s", cfg.Model)
	}
	// 既存の環境変数が優先される
	if cfg.Addr != ":7070" {
		t.Errorf("Addr = %s, want :7070", cfg.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("a missing .env should be ignored, got %v", err)
	}
}
