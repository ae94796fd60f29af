package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/covmatch"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	alg, err := cfg.AlgorithmValue()
	require.NoError(t, err)
	assert.Equal(t, covmatch.AlgorithmFLAME, alg)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeFile(t, "run.yaml", `
algorithm: dame
replace: true
c: 0.5
pe_method: xgb
n_flame_iters: 2
weights: [1, 1, 2]
missing:
  data: impute
  holdout: impute
  imputations: 3
early_stop:
  iterations: 4
  unmatched_control: 0.1
export:
  codec: yaml
  compression: lz4
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "dame", cfg.Algorithm)
	assert.True(t, cfg.Replace)
	assert.Equal(t, 0.5, cfg.C)
	assert.Equal(t, 2, cfg.FLAMEIters)
	assert.Equal(t, []float64{1, 1, 2}, cfg.Weights)
	assert.Equal(t, "impute", cfg.Missing.Data)
	assert.Equal(t, 3, cfg.Missing.Imputations)
	assert.Equal(t, 4, cfg.EarlyStop.Iterations)
	assert.Equal(t, 0.1, cfg.EarlyStop.UnmatchedControl)
	assert.Equal(t, "yaml", cfg.Export.Codec)

	// Unset keys keep their defaults.
	assert.Equal(t, covmatch.DefaultEpsilon, cfg.EarlyStop.Epsilon)
	assert.Equal(t, 5, cfg.CVFolds)

	assert.NotEmpty(t, cfg.Options())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"algorithm", "algorithm: exact\n", "Algorithm"},
		{"negative C", "c: -1\n", "Config.C"},
		{"pe method", "pe_method: forest\n", "PEMethod"},
		{"fraction", "early_stop:\n  unmatched_treated: 1.5\n", "UnmatchedTreated"},
		{"negative weight", "weights: [1, -2]\n", "Weights[1]"},
		{"holdout keep", "missing:\n  holdout: keep\n", "Holdout"},
		{"compression", "export:\n  compression: brotli\n", "Compression"},
		{"unknown key", "alpha: 1\n", "alpha"},
		{"malformed", "c: [\n", "run.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "run.yaml", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "run.yaml", "\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
