package jobrunner

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-jobrunner/flags"
	"github.com/ethereum-optimism/infra/op-jobrunner/job"
)

// newCLIContext parses args against the application flags.
func newCLIContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags.Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(&cli.App{}, set, nil)
}

func writeJobFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const configJob = `
job:
  category: nightly
  timeout: 30m
  log_level: info
suites:
  - name: unit
    tests:
      - command: ["true"]
`

func TestNewConfigFromJobFile(t *testing.T) {
	path := writeJobFile(t, "job.yaml", configJob)
	ctx := newCLIContext(t, "--job-file", path)

	cfg, err := NewConfig(ctx, testlog.Logger(t, log.LevelInfo))
	require.NoError(t, err)

	assert.Equal(t, path, cfg.JobFile)
	assert.Equal(t, "nightly", cfg.Job.Category)
	assert.Equal(t, 30*time.Minute, cfg.Job.Timeout)
	assert.Equal(t, "info", cfg.Job.LogLevel)
	require.Len(t, cfg.Suites, 1)
	assert.Equal(t, "unit", cfg.Suites[0].Name)
	assert.Empty(t, cfg.HealthzAddr)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestNewConfigFlagsOverrideJobFile(t *testing.T) {
	path := writeJobFile(t, "job.yaml", configJob)
	ctx := newCLIContext(t,
		"--job-file", path,
		"--results-dir", "relative-results",
		"--job-category", "adhoc",
		"--job-timeout", "5s",
		"--job-log-level", "warn",
		"--job-id", "abc123",
		"--dry-run",
		"--disable-extension", "human",
		"--healthz.addr", "127.0.0.1:0",
		"--metrics.enabled",
		"--metrics.addr", "127.0.0.1",
		"--metrics.port", "7301",
	)

	cfg, err := NewConfig(ctx, testlog.Logger(t, log.LevelInfo))
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.Job.ResultsDir))
	assert.Equal(t, "relative-results", filepath.Base(cfg.Job.ResultsDir))
	assert.Equal(t, "adhoc", cfg.Job.Category)
	assert.Equal(t, 5*time.Second, cfg.Job.Timeout)
	assert.Equal(t, "warn", cfg.Job.LogLevel)
	assert.Equal(t, "abc123", cfg.Job.UniqueID)
	assert.True(t, cfg.Job.DryRun)
	assert.Equal(t, []string{"human"}, cfg.DisabledExtensions)
	assert.Equal(t, "127.0.0.1:0", cfg.HealthzAddr)
	assert.Equal(t, "127.0.0.1:7301", cfg.MetricsAddr)
}

func TestNewConfigDefaultLogLevel(t *testing.T) {
	path := writeJobFile(t, "job.toml", "[[suites]]\n[[suites.tests]]\ncommand = [\"true\"]\n")
	ctx := newCLIContext(t, "--job-file", path)

	cfg, err := NewConfig(ctx, testlog.Logger(t, log.LevelInfo))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Job.LogLevel)
}

func TestNewConfigErrors(t *testing.T) {
	t.Run("missing job file flag", func(t *testing.T) {
		_, err := NewConfig(newCLIContext(t), testlog.Logger(t, log.LevelInfo))
		assert.ErrorContains(t, err, "missing required flags")
	})

	t.Run("unreadable job file", func(t *testing.T) {
		ctx := newCLIContext(t, "--job-file", filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := NewConfig(ctx, testlog.Logger(t, log.LevelInfo))
		assert.ErrorContains(t, err, "failed to read job file")
	})

	t.Run("invalid option value", func(t *testing.T) {
		path := writeJobFile(t, "job.yaml", configJob)
		ctx := newCLIContext(t, "--job-file", path, "--job-log-level", "loud")
		_, err := NewConfig(ctx, testlog.Logger(t, log.LevelInfo))
		require.Error(t, err)
		assert.True(t, job.IsOptionValidationError(err))
	})
}
