package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-jobrunner/logging"
)

const EnvVarPrefix = "OP_JOBRUNNER"

var (
	JobFile = &cli.StringFlag{
		Name:     "job-file",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "JOB_FILE"),
		Usage:    "Path to the job file describing the suites to run (.yaml, .yml or .toml)",
	}
	ResultsDir = &cli.StringFlag{
		Name:    "results-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RESULTS_DIR"),
		Usage:   "Base directory for job results. Defaults to $HOME/op-jobrunner/job-results",
	}
	JobID = &cli.StringFlag{
		Name:    "job-id",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "JOB_ID"),
		Usage:   "Use this job id instead of generating one",
	}
	Category = &cli.StringFlag{
		Name:    "job-category",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "JOB_CATEGORY"),
		Usage:   "Also link the job results under this category directory",
	}
	KeepTmp = &cli.BoolFlag{
		Name:    "keep-tmp",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "KEEP_TMP"),
		Usage:   "Keep the job temporary directory inside the results directory",
	}
	DryRun = &cli.BoolFlag{
		Name:    "dry-run",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DRY_RUN"),
		Usage:   "Use a throwaway results directory and leave the latest link alone",
	}
	DryRunNoCleanup = &cli.BoolFlag{
		Name:    "dry-run-no-cleanup",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DRY_RUN_NO_CLEANUP"),
		Usage:   "Keep the dry-run results directory",
	}
	Timeout = &cli.DurationFlag{
		Name:    "job-timeout",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "JOB_TIMEOUT"),
		Usage:   "Maximum wall clock time for the whole job (e.g. '30m'). 0 disables the timeout",
	}
	JobLogLevel = &cli.StringFlag{
		Name:    "job-log-level",
		Value:   logging.DefaultLevel,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "JOB_LOG_LEVEL"),
		Usage:   "Level of the job.log file in the results directory (trace, debug, info, warn, error, crit)",
	}
	ReplaySource = &cli.StringFlag{
		Name:    "replay-source",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPLAY_SOURCE"),
		Usage:   "Id of the job this run replays",
	}
	DisableExtensions = &cli.StringSliceFlag{
		Name:    "disable-extension",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DISABLE_EXTENSION"),
		Usage:   "Name of a job extension to skip (may be repeated)",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz.addr",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Listen address of the healthz and status server. Empty disables it",
	}
)

var requiredFlags = []cli.Flag{
	JobFile,
}

var optionalFlags = []cli.Flag{
	ResultsDir,
	JobID,
	Category,
	KeepTmp,
	DryRun,
	DryRunNoCleanup,
	Timeout,
	JobLogLevel,
	ReplaySource,
	DisableExtensions,
	HealthzAddr,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}
