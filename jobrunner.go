package jobrunner

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/ethereum-optimism/infra/op-jobrunner/execsuite"
	"github.com/ethereum-optimism/infra/op-jobrunner/exitcodes"
	"github.com/ethereum-optimism/infra/op-jobrunner/hooks"
	"github.com/ethereum-optimism/infra/op-jobrunner/job"
	"github.com/ethereum-optimism/infra/op-jobrunner/reporting"
	"github.com/ethereum-optimism/infra/op-jobrunner/service"
)

// runner implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &runner{}

// runner builds one job from the configuration, runs it and exits.
type runner struct {
	config  *Config
	version string
	svc     *service.Service
	out     io.Writer

	job     atomic.Pointer[job.Job]
	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*runner, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating job runner with config",
		"jobFile", config.JobFile,
		"suites", len(config.Suites),
		"resultsDir", config.Job.ResultsDir,
		"dryRun", config.Job.DryRun,
		"timeout", config.Job.Timeout)

	return &runner{
		config:  config,
		version: version,
		svc: service.New(service.Config{
			HealthzAddr: config.HealthzAddr,
			MetricsAddr: config.MetricsAddr,
			Log:         config.Log,
		}),
		out:              os.Stdout,
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the job to completion. A non-zero exit code is returned as an
// ExitError; success asks the application to shut down.
// Start implements the cliapp.Lifecycle interface.
func (r *runner) Start(ctx context.Context) error {
	r.running.Store(true)
	r.svc.Start(ctx)

	code, err := r.runJob(ctx)
	if err != nil {
		r.config.Log.Error("Job could not run", "err", err)
		return err
	}
	if code != exitcodes.OK {
		r.config.Log.Warn("Job completed with failures", "exitcode", code)
		return NewExitError(code, nil)
	}

	r.config.Log.Info("Job completed, exiting")
	go func() {
		r.shutdownCallback(nil)
	}()
	return nil
}

func (r *runner) runJob(ctx context.Context) (exitcodes.Code, error) {
	cfg := r.config
	opts := []job.Option{
		job.WithLogger(cfg.Log),
		job.WithDispatcher(hooks.NewDispatcher(cfg.Log,
			hooks.WithBuiltins(),
			hooks.WithDisabled(cfg.DisabledExtensions...))),
		job.WithRenderers(reporting.NewTableRenderer(r.out), reporting.JSONRenderer{}),
		job.WithArgs(cfg.Args),
		job.WithVersion(r.version),
	}

	var j *job.Job
	var err error
	if len(cfg.Suites) == 0 {
		j, err = job.New(cfg.Job, nil, opts...)
	} else {
		j, err = job.FromConfig(cfg.Job, execsuite.Options(cfg.Suites), execsuite.Factory(cfg.Suites, cfg.Log), opts...)
	}
	if err != nil {
		return exitcodes.OK, NewExitError(job.ExitCodeFor(err), err)
	}
	r.job.Store(j)
	r.svc.Healthz.SetJob(j)

	defer func() {
		if err := j.Cleanup(); err != nil {
			cfg.Log.Warn("Job cleanup incomplete", "err", err)
		}
	}()
	if err := j.Setup(ctx); err != nil {
		return exitcodes.OK, NewExitError(job.ExitCodeFor(err), err)
	}
	return j.Run(ctx), nil
}

// Job returns the job built by Start, or nil.
func (r *runner) Job() *job.Job {
	return r.job.Load()
}

// Stop stops the servers started with the job.
// Stop implements the cliapp.Lifecycle interface.
func (r *runner) Stop(ctx context.Context) error {
	r.config.Log.Info("Stopping op-jobrunner")
	if !r.running.Load() {
		r.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	r.running.Store(false)
	r.svc.Shutdown()
	r.config.Log.Info("op-jobrunner stopped successfully")
	return nil
}

// Stopped implements the cliapp.Lifecycle interface.
func (r *runner) Stopped() bool {
	return !r.running.Load()
}
