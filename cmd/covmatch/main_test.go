package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/covmatch/blobstore"
	"github.com/hupe1980/covmatch/export"
)

func TestRunCommand_ExportsResult(t *testing.T) {
	dir := t.TempDir()
	units := writeFile(t, "units.csv", `age,smoker,region,treated,outcome
young,yes,north,1,5
young,no,north,1,3
young,yes,north,0,2
old,no,south,0,1
`)
	cfg := writeFile(t, "run.yaml", "weights: [1, 2, 3]\nexport:\n  compression: none\n")
	metricsFile := filepath.Join(dir, "metrics.prom")
	outDir := filepath.Join(dir, "out")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{
		"run",
		"--units", units,
		"--config", cfg,
		"--out", outDir,
		"--metrics-file", metricsFile,
		"--log-level", "debug",
		"--log-format", "json",
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	assert.Contains(t, stdout.String(), "status:       succeeded")
	assert.Contains(t, stdout.String(), "exported:     runs/")
	assert.Contains(t, stderr.String(), `"msg":"export completed"`)

	w := &export.Writer{Store: blobstore.NewLocalStore(outDir)}
	ids, err := w.List(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 1)

	res, err := w.Read(context.Background(), export.Name(ids[0]))
	require.NoError(t, err)
	assert.Equal(t, ids[0], res.RunID)
	assert.Equal(t, []string{"age", "smoker", "region"}, res.Covariates)
	assert.NotEmpty(t, res.Groups)

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "covmatch_run_seconds")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	_, err := newLogger(&buf, "verbose", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)

	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestVersionCommand(t *testing.T) {
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, stdout.String(), "covmatch dev")
}
