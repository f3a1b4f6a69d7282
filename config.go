package jobrunner

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-jobrunner/execsuite"
	"github.com/ethereum-optimism/infra/op-jobrunner/flags"
	"github.com/ethereum-optimism/infra/op-jobrunner/job"
	"github.com/ethereum-optimism/infra/op-jobrunner/jobfile"
)

// Config holds the application configuration
type Config struct {
	JobFile            string                 // Absolute path of the job file
	Job                job.Config             // Job settings, job file overridden by flags
	Suites             []execsuite.Definition // Suites declared in the job file
	DisabledExtensions []string
	HealthzAddr        string // Empty disables the healthz server
	MetricsAddr        string // Empty disables the metrics server
	Args               []string
	Log                log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	jobFile := ctx.String(flags.JobFile.Name)
	absJobFile, err := filepath.Abs(jobFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for job file '%s': %w", jobFile, err)
	}
	file, err := jobfile.Load(absJobFile)
	if err != nil {
		return nil, err
	}

	jobCfg := file.JobConfig()
	if ctx.IsSet(flags.ResultsDir.Name) {
		jobCfg.ResultsDir = ctx.String(flags.ResultsDir.Name)
	}
	if ctx.IsSet(flags.JobID.Name) {
		jobCfg.UniqueID = ctx.String(flags.JobID.Name)
	}
	if ctx.IsSet(flags.Category.Name) {
		jobCfg.Category = ctx.String(flags.Category.Name)
	}
	if ctx.IsSet(flags.KeepTmp.Name) {
		jobCfg.KeepTmp = ctx.Bool(flags.KeepTmp.Name)
	}
	if ctx.IsSet(flags.DryRun.Name) {
		jobCfg.DryRun = ctx.Bool(flags.DryRun.Name)
	}
	if ctx.IsSet(flags.DryRunNoCleanup.Name) {
		jobCfg.DryRunNoCleanup = ctx.Bool(flags.DryRunNoCleanup.Name)
	}
	if ctx.IsSet(flags.Timeout.Name) {
		jobCfg.Timeout = ctx.Duration(flags.Timeout.Name)
	}
	if ctx.IsSet(flags.JobLogLevel.Name) || jobCfg.LogLevel == "" {
		jobCfg.LogLevel = ctx.String(flags.JobLogLevel.Name)
	}
	if ctx.IsSet(flags.ReplaySource.Name) {
		jobCfg.ReplaySource = ctx.String(flags.ReplaySource.Name)
	}

	if jobCfg.ResultsDir != "" {
		absResults, err := filepath.Abs(jobCfg.ResultsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for results directory '%s': %w", jobCfg.ResultsDir, err)
		}
		jobCfg.ResultsDir = absResults
	}
	if err := jobCfg.Validate(); err != nil {
		return nil, err
	}

	var metricsAddr string
	if metricsCfg := opmetrics.ReadCLIConfig(ctx); metricsCfg.Enabled {
		metricsAddr = net.JoinHostPort(metricsCfg.ListenAddr, strconv.Itoa(metricsCfg.ListenPort))
	}

	return &Config{
		JobFile:            absJobFile,
		Job:                jobCfg,
		Suites:             file.Suites,
		DisabledExtensions: ctx.StringSlice(flags.DisableExtensions.Name),
		HealthzAddr:        ctx.String(flags.HealthzAddr.Name),
		MetricsAddr:        metricsAddr,
		Args:               os.Args,
		Log:                log,
	}, nil
}
