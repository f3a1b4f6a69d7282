package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/hashicorp/go-multierror"

	"github.com/ethereum-optimism/infra/op-jobrunner/logging"
	"github.com/ethereum-optimism/infra/op-jobrunner/metrics"
	"github.com/ethereum-optimism/infra/op-jobrunner/resultsdir"
)

// Setup allocates the job identity, results directory, job log and
// temporary directories. It must be called exactly once, before Run.
func (j *Job) Setup(ctx context.Context) error {
	if j.setupCalled {
		panic("job: Setup() called twice")
	}
	j.setupCalled = true
	j.setPhase(PhaseSetup)

	_, span := j.tracer.Start(ctx, "phase "+PhaseSetup.String())
	defer span.End()
	start := time.Now()
	defer func() { metrics.RecordPhase(PhaseSetup.String(), time.Since(start)) }()

	base := j.cfg.ResultsDir
	if j.cfg.DryRun && base == "" {
		tmp, err := os.MkdirTemp("", "op-jobrunner-dry-run-")
		if err != nil {
			return WrapError(KindSetup, err, "unable to create dry-run results base")
		}
		base = tmp
		j.dryRunBase = tmp
	}

	alloc, err := resultsdir.NewAllocator(resultsdir.Config{
		BaseDir:    base,
		SkipLatest: j.cfg.DryRun,
		Log:        j.ui,
	})
	if err != nil {
		return WrapError(KindSetup, err, "unable to resolve results base")
	}
	dir, err := alloc.Allocate(j.cfg.UniqueID)
	if err != nil {
		return WrapError(KindSetup, err, "unable to allocate job results directory")
	}
	j.id = dir.ID
	j.resultsDir = dir.Path
	j.logFile = filepath.Join(dir.Path, LogFilename)
	j.result = newResult(j.id, j.logFile)

	level, _ := logging.ParseLevel(logging.DefaultLevel)
	if j.cfg.LogLevel != "" {
		level, _ = logging.ParseLevel(j.cfg.LogLevel)
	}
	session, err := logging.Open(j.logFile, level)
	if err != nil {
		return WrapError(KindSetup, err, "unable to start job log")
	}
	j.session = session
	j.jobLog = session.Logger().With("job", j.id)

	if j.cfg.Category != "" {
		if err := resultsdir.LinkCategory(j.resultsDir, j.cfg.Category); err != nil {
			j.ui.Warn("Unable to link job into category", "category", j.cfg.Category, "err", err)
			j.jobLog.Warn("Unable to link job into category", "category", j.cfg.Category, "err", err)
		}
	}

	if j.cfg.KeepTmp {
		j.baseTmpDir = j.resultsDir
	} else {
		tmp, err := os.MkdirTemp("", "op-jobrunner_tmp_")
		if err != nil {
			return WrapError(KindSetup, err, "unable to create base temporary directory")
		}
		j.baseTmpDir = tmp
		j.ownsBaseTmp = true
	}
	tmpDir, err := os.MkdirTemp(j.baseTmpDir, "op-jobrunner_job_")
	if err != nil {
		return WrapError(KindSetup, err, "unable to create job temporary directory")
	}
	j.tmpDir = tmpDir

	j.jobLog.Info("Job set up", "results_dir", j.resultsDir, "tmp_dir", j.tmpDir)
	return nil
}

// Cleanup closes the job log and removes temporary state. It is safe to call
// more than once and after a failed Setup.
func (j *Job) Cleanup() error {
	if j.cleaned {
		return nil
	}
	j.cleaned = true
	j.setPhase(PhaseCleanup)
	start := time.Now()
	defer func() { metrics.RecordPhase(PhaseCleanup.String(), time.Since(start)) }()

	var result *multierror.Error
	if err := j.session.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	j.session = nil
	j.jobLog = log.NewLogger(log.DiscardHandler())

	if j.ownsBaseTmp && j.baseTmpDir != "" {
		if err := os.RemoveAll(j.baseTmpDir); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to remove temporary directory %s: %w", j.baseTmpDir, err))
		}
	}
	if j.cfg.DryRun && !j.cfg.DryRunNoCleanup {
		// The results base is only removed when the job created it.
		for _, dir := range []string{j.resultsDir, j.dryRunBase} {
			if dir == "" {
				continue
			}
			if err := os.RemoveAll(dir); err != nil {
				result = multierror.Append(result, fmt.Errorf("failed to remove dry-run results %s: %w", dir, err))
			}
		}
	}
	return result.ErrorOrNil()
}

// Close is an alias of Cleanup so a Job can be deferred as an io.Closer.
func (j *Job) Close() error {
	return j.Cleanup()
}
