package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	jobrunner "github.com/ethereum-optimism/infra/op-jobrunner"
	"github.com/ethereum-optimism/infra/op-jobrunner/exitcodes"
	"github.com/ethereum-optimism/infra/op-jobrunner/flags"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Start CLI
	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-jobrunner"
	app.Usage = "Test job runner"
	app.Description = "op-jobrunner runs the suites of a job file and reports a bitmask exit code"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.ExitErrHandler = handleExitErr
	return app
}

// handleExitErr maps errors to the process exit code. Job exit codes pass
// through unchanged; anything else stopped the job from running.
func handleExitErr(c *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		cli.HandleExitCoder(exitErr)
		return
	}
	if jobrunner.IsRuntimeError(err) {
		cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.JobFail.Int()))
		return
	}
	// Unclassified errors crashed the runner.
	cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.Crash.Int()))
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	log := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(log.Handler())
	oplog.SetupDefaults()

	cfg, err := jobrunner.NewConfig(ctx, log)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with JOB_FAIL
		return nil, jobrunner.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config", "config", cfg)

	runner, err := jobrunner.New(ctx.Context, cfg, Version, closeApp)
	if err != nil {
		return nil, jobrunner.NewRuntimeError(fmt.Errorf("failed to create job runner: %w", err))
	}

	return runner, nil
}
