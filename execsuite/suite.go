// Package execsuite implements a job.Suite whose tests are external commands.
//
// A test passes when its command exits zero and fails otherwise. Commands
// that cannot be started are errors. When the job timeout expires or the job
// context is cancelled the running test is reported INTERRUPTED and the tests
// that did not get to run are reported SKIP (timeout) or CANCEL (abort).
package execsuite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum/go-ethereum/log"
	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-jobrunner/job"
	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
	"github.com/ethereum-optimism/infra/op-jobrunner/resultsdir"
)

// Environment variables exported to every test command.
const (
	EnvJobID      = "OP_JOBRUNNER_JOB_ID"
	EnvTmpDir     = "OP_JOBRUNNER_TMP_DIR"
	EnvResultsDir = "OP_JOBRUNNER_RESULTS_DIR"
	EnvSuite      = "OP_JOBRUNNER_SUITE"
)

const waitDelay = 2 * time.Second

// Test is a single command to run.
type Test struct {
	Name    string        `yaml:"name" toml:"name"`
	Command []string      `yaml:"command" toml:"command"`
	Timeout time.Duration `yaml:"timeout,omitempty" toml:"timeout"`
}

// Definition describes a suite before it is resolved.
type Definition struct {
	Name    string            `yaml:"name,omitempty" toml:"name"`
	WorkDir string            `yaml:"workdir,omitempty" toml:"workdir"`
	Env     []string          `yaml:"env,omitempty" toml:"env"`
	Options map[string]string `yaml:"options,omitempty" toml:"options"`
	Tests   []Test            `yaml:"tests" toml:"tests"`
}

// TestResult is the outcome of one test.
type TestResult struct {
	Name     string
	Tag      outcome.Tag
	ExitCode int
	Duration time.Duration
	LogFile  string
	Reason   string
}

// Config holds configuration for creating a Suite
type Config struct {
	Definition
	Log log.Logger
}

// Suite runs a fixed list of commands, one after the other.
type Suite struct {
	name    string
	workDir string
	env     []string
	tests   []Test
	log     log.Logger
	tracer  trace.Tracer
	results []TestResult
}

var _ job.Suite = (*Suite)(nil)

// New resolves cfg into a suite. A suite without tests, or with a command
// that cannot be found, is rejected.
func New(cfg Config) (*Suite, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if len(cfg.Tests) == 0 {
		return nil, job.NewError(job.KindEmptySuite, "suite %q has no tests", cfg.Name)
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = cfg.Options["workdir"]
	}
	if workDir != "" {
		abs, err := filepath.Abs(workDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for workdir '%s': %w", workDir, err)
		}
		workDir = abs
	}

	tests := make([]Test, len(cfg.Tests))
	var missing []string
	for i, t := range cfg.Tests {
		if len(t.Command) == 0 {
			missing = append(missing, fmt.Sprintf("#%d (empty command)", i+1))
			continue
		}
		if !resolvable(t.Command[0], workDir) {
			missing = append(missing, t.Command[0])
			continue
		}
		if t.Name == "" {
			t.Name = strings.Join(t.Command, " ")
		}
		tests[i] = t
	}
	if len(missing) > 0 {
		return nil, job.NewError(job.KindMissingReferences,
			"suite %q could not resolve: %s", cfg.Name, strings.Join(missing, ", "))
	}

	return &Suite{
		name:    cfg.Name,
		workDir: workDir,
		env:     cfg.Env,
		tests:   tests,
		log:     cfg.Log,
		tracer:  otel.Tracer("op-jobrunner/execsuite"),
	}, nil
}

func (s *Suite) Name() string { return s.name }
func (s *Suite) Size() int    { return len(s.tests) }

// Results returns the per-test outcomes of the last Run.
func (s *Suite) Results() []TestResult {
	return append([]TestResult(nil), s.results...)
}

// Run executes every test in order and returns the set of observed tags.
func (s *Suite) Run(ctx context.Context, j *job.Job) (outcome.TagSet, error) {
	if timeout := j.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, j.TimeStart().Add(timeout))
		defer cancel()
	}

	outDir := filepath.Join(j.TestResultsPath(), resultsdir.SafePath(s.name))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, pkgerrors.WithStack(err)
	}

	s.results = s.results[:0]
	tags := outcome.NewTagSet()
	for i, t := range s.tests {
		if err := ctx.Err(); err != nil {
			r := TestResult{Name: t.Name, Tag: notRunTag(err), Reason: err.Error()}
			s.results = append(s.results, r)
			tags.Add(r.Tag)
			continue
		}
		logFile := filepath.Join(outDir, fmt.Sprintf("%03d-%s.log", i+1, resultsdir.SafePath(t.Name)))
		r, err := s.runTest(ctx, j, t, logFile)
		if err != nil {
			return nil, err
		}
		if r.Tag == outcome.TagInterrupted {
			j.SetInterruptedReason(r.Reason)
		}
		s.results = append(s.results, r)
		tags.Add(r.Tag)
	}
	return tags, nil
}

func (s *Suite) runTest(ctx context.Context, j *job.Job, t Test, logFile string) (TestResult, error) {
	ctx, span := s.tracer.Start(ctx, fmt.Sprintf("test %s", t.Name))
	defer span.End()

	testCtx := ctx
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		testCtx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(testCtx, t.Command[0], t.Command[1:]...)
	cmd.Dir = s.workDir
	// bound the wait for output pipes held open by orphaned children
	cmd.WaitDelay = waitDelay
	env := append(os.Environ(), s.env...)
	env = append(env,
		EnvJobID+"="+j.ID(),
		EnvTmpDir+"="+j.TmpDir(),
		EnvResultsDir+"="+j.ResultsDir(),
		EnvSuite+"="+s.name,
	)
	cmd.Env = telemetry.InstrumentEnvironment(ctx, env)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	s.log.Info("Running test", "suite", s.name, "test", t.Name)
	j.JobLog().Debug("Running test command", "suite", s.name, "test", t.Name, "command", cmd.String(), "timeout", t.Timeout)

	start := time.Now()
	runErr := cmd.Run()
	r := TestResult{Name: t.Name, Duration: time.Since(start), LogFile: logFile, ExitCode: -1}
	if cmd.ProcessState != nil {
		r.ExitCode = cmd.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		r.Tag = outcome.TagInterrupted
		r.Reason = interruptReason(ctx.Err(), j.Timeout())
	case testCtx.Err() == context.DeadlineExceeded:
		r.Tag = outcome.TagInterrupted
		r.Reason = fmt.Sprintf("test timed out after %v", t.Timeout)
	case runErr == nil:
		r.Tag = outcome.TagPass
	case errors.As(runErr, &exitErr):
		r.Tag = outcome.TagFail
		r.Reason = "exit status " + strconv.Itoa(r.ExitCode)
	default:
		r.Tag = outcome.TagError
		r.Reason = runErr.Error()
	}
	span.SetAttributes(attribute.String("outcome", string(r.Tag)))

	if err := os.WriteFile(logFile, []byte(stripansi.Strip(output.String())), 0644); err != nil {
		return r, pkgerrors.Wrapf(err, "failed to write output of test %s", t.Name)
	}

	s.log.Info("Test finished", "suite", s.name, "test", t.Name, "outcome", r.Tag, "duration", r.Duration)
	j.JobLog().Info("Test finished",
		"suite", s.name,
		"test", t.Name,
		"outcome", r.Tag,
		"exit_code", r.ExitCode,
		"reason", r.Reason,
		"log", logFile)
	return r, nil
}

func notRunTag(err error) outcome.Tag {
	if errors.Is(err, context.DeadlineExceeded) {
		return outcome.TagSkip
	}
	return outcome.TagCancel
}

func interruptReason(err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("job timeout of %v reached", timeout)
	}
	return "job interrupted: " + err.Error()
}

// resolvable reports whether command can be started from workDir. Bare names
// are looked up in PATH; paths are checked relative to workDir.
func resolvable(command, workDir string) bool {
	if !strings.ContainsRune(command, filepath.Separator) {
		_, err := exec.LookPath(command)
		return err == nil
	}
	path := command
	if !filepath.IsAbs(path) && workDir != "" {
		path = filepath.Join(workDir, path)
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
