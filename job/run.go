package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-jobrunner/exitcodes"
	"github.com/ethereum-optimism/infra/op-jobrunner/metrics"
	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
)

const jobDataDirname = "jobdata"

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Run drives the job through its pre-hooks, suite execution, post-hooks and
// rendering, and returns the accumulated exit code. Post-hooks and renderers
// run whatever happened before them. Setup must have succeeded first.
func (j *Job) Run(ctx context.Context) exitcodes.Code {
	if j.tmpDir == "" {
		panic("job: Run() called before a successful Setup()")
	}
	if j.ran {
		panic("job: Run() called twice")
	}
	j.ran = true

	j.mu.Lock()
	if j.timeStart.IsZero() {
		j.timeStart = time.Now()
	}
	j.mu.Unlock()

	j.guard(func() error {
		j.result.TestsTotal = j.Size()
		err := j.inPhase(ctx, PhasePreHooks, func(ctx context.Context) error {
			if err := j.dispatcher.Invoke(ctx, HookPre, j); err != nil {
				return err
			}
			return j.dispatcher.Invoke(ctx, HookPreTests, j)
		})
		if err != nil {
			return err
		}
		return j.inPhase(ctx, PhaseExecute, j.runTests)
	})

	// finalization must survive a cancelled run context
	final := context.WithoutCancel(ctx)
	_ = j.inPhase(final, PhasePostHooks, func(ctx context.Context) error {
		j.guard(func() error { return j.dispatcher.Invoke(ctx, HookPostTests, j) })
		j.captureEnd()
		j.guard(func() error { return j.dispatcher.Invoke(ctx, HookPost, j) })
		return nil
	})
	_ = j.inPhase(final, PhaseRender, func(ctx context.Context) error {
		for _, r := range j.renderers {
			j.guard(func() error { return r.Render(ctx, j.result, j) })
		}
		return nil
	})

	code := j.ExitCode()
	j.jobLog.Info("Job finished", "status", j.Status(), "exitcode", code, "elapsed", j.Elapsed())
	return code
}

// inPhase moves the job into p and runs fn inside a span for it.
func (j *Job) inPhase(ctx context.Context, p Phase, fn func(ctx context.Context) error) error {
	j.setPhase(p)
	ctx, span := j.tracer.Start(ctx, "phase "+p.String())
	defer span.End()
	start := time.Now()
	defer func() { metrics.RecordPhase(p.String(), time.Since(start)) }()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (j *Job) captureEnd() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.timeEnd.IsZero() {
		j.timeEnd = time.Now()
		j.elapsed = j.timeEnd.Sub(j.timeStart)
	}
}

// guard runs fn and turns any error or panic it produces into status and
// exit code contributions. Nothing escapes it.
func (j *Job) guard(fn func() error) {
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &panicError{value: r, stack: debug.Stack()}
			}
		}()
		err = fn()
	}()
	if err != nil {
		j.handleFailure(err)
	}
}

func (j *Job) handleFailure(err error) {
	class, status := Classify(err)
	phase := j.Phase()
	metrics.RecordFailure(phase.String(), class)

	switch class {
	case exitcodes.ClassJobFailure:
		j.override(status)
		var jobErr *Error
		errors.As(err, &jobErr)
		j.ui.Error("Job failed", "kind", jobErr.Kind, "err", err)
		j.jobLog.Error("Job failed", "phase", phase, "kind", jobErr.Kind, "err", err)
	case exitcodes.ClassOptionValidation:
		j.override(status)
		j.ui.Error("Invalid option", "err", err)
		j.jobLog.Error("Invalid option", "phase", phase, "err", err)
	case exitcodes.ClassCrash:
		j.override(status)
		j.ui.Error("Job crashed, please report this error", "err", err, "report", NewIssueLink)
		j.logCrash(phase, err)
	}
	j.flag(exitcodes.ForClass(class))
}

// logCrash writes the failure type, message and stack to the job log.
func (j *Job) logCrash(phase Phase, err error) {
	j.jobLog.Error("Unhandled failure", "phase", phase, "type", fmt.Sprintf("%T", err), "err", err)

	var stack string
	var pe *panicError
	var st stackTracer
	switch {
	case errors.As(err, &pe):
		j.jobLog.Error("Recovered panic", "value", fmt.Sprintf("%v", pe.value))
		stack = string(pe.stack)
	case errors.As(err, &st):
		stack = fmt.Sprintf("%+v", st.StackTrace())
	}
	for _, line := range strings.Split(strings.TrimSpace(stack), "\n") {
		if line != "" {
			j.jobLog.Error(line)
		}
	}
}

// runTests executes every suite in order and folds their outcome tags into
// the result summary and exit code.
func (j *Job) runTests(ctx context.Context) error {
	j.logDebugInfo()
	if err := j.writeJobData(); err != nil {
		j.jobLog.Warn("Unable to record job data", "err", err)
	}

	size := j.Size()
	if len(j.suites) == 0 {
		j.ui.Error("Unable to resolve any reference or resolution led to zero tests")
		j.flag(exitcodes.ForEmpty(0, size))
		j.promote(outcome.StatusFail)
		return nil
	}
	if size == 0 {
		j.ui.Error("No tests found for given test references")
		j.flag(exitcodes.ForEmpty(len(j.suites), size))
	}

	for _, s := range j.suites {
		tags, err := j.runSuite(ctx, s)
		if err != nil {
			return fmt.Errorf("suite %s: %w", s.Name(), err)
		}
		j.result.addSuite(s.Name(), s.Size(), tags)
		// per suite, so a later crash keeps the bits of finished suites
		j.flag(exitcodes.ForTags(tags))
	}

	j.promote(outcome.StatusPass)
	j.ui.Info("Test results available", "path", j.resultsDir)
	return nil
}

func (j *Job) runSuite(ctx context.Context, s Suite) (outcome.TagSet, error) {
	ctx, span := j.tracer.Start(ctx, "suite "+s.Name())
	defer span.End()
	span.SetAttributes(attribute.String("suite", s.Name()), attribute.Int("size", s.Size()))

	j.jobLog.Info("Running suite", "suite", s.Name(), "size", s.Size())
	reported, err := s.Run(ctx, j)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	tags := outcome.NewTagSet()
	for t := range reported {
		if !t.Valid() {
			j.ui.Warn("Ignoring unknown outcome tag", "suite", s.Name(), "tag", t)
			continue
		}
		tags.Add(t)
	}
	metrics.RecordSuiteOutcome(s.Name(), tags)
	j.jobLog.Info("Suite finished", "suite", s.Name(), "tags", tags.String())
	return tags, nil
}

func (j *Job) logDebugInfo() {
	cfg, err := yaml.Marshal(j.cfg)
	if err != nil {
		cfg = []byte(err.Error())
	}
	pwd, _ := os.Getwd()
	j.jobLog.Info("Command line", "args", strings.Join(j.args, " "))
	j.jobLog.Info("Version", "version", j.version)
	j.jobLog.Debug("Config", "config", string(cfg))
	j.jobLog.Info("Directories",
		"results", j.resultsDir,
		"tmp", j.tmpDir,
		"base_tmp", j.baseTmpDir,
		"pwd", pwd)
	j.jobLog.Info("Job ID", "id", j.id)
	if j.cfg.ReplaySource != "" {
		j.jobLog.Info("Replay source job", "id", j.cfg.ReplaySource)
	}
}

// writeJobData records what is needed to reproduce the job under jobdata/.
func (j *Job) writeJobData() error {
	dir := filepath.Join(j.resultsDir, jobDataDirname)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	cfg, err := yaml.Marshal(j.cfg)
	if err != nil {
		return err
	}
	names := make([]string, len(j.suites))
	for i, s := range j.suites {
		names[i] = s.Name()
	}
	pwd, _ := os.Getwd()
	files := map[string]string{
		"config.yaml": string(cfg),
		"args":        strings.Join(j.args, "\n") + "\n",
		"suites":      strings.Join(names, "\n") + "\n",
		"pwd":         pwd + "\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}
