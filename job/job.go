package job

import (
	"maps"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-jobrunner/exitcodes"
	"github.com/ethereum-optimism/infra/op-jobrunner/logging"
	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
	"github.com/ethereum-optimism/infra/op-jobrunner/resultsdir"
)

const (
	LogFilename        = "job.log"
	TestResultsDirname = "test-results"
)

// Config is the job configuration. A job keeps its own copy; suites built
// through FromConfig get a copy seeded from it.
type Config struct {
	// UniqueID is used verbatim when set (replays); otherwise an id is generated.
	UniqueID string `yaml:"unique_id,omitempty"`
	// ResultsDir is the base directory holding job results directories.
	ResultsDir      string        `yaml:"results_dir,omitempty"`
	Category        string        `yaml:"category,omitempty"`
	KeepTmp         bool          `yaml:"keep_tmp"`
	DryRun          bool          `yaml:"dry_run"`
	DryRunNoCleanup bool          `yaml:"dry_run_no_cleanup"`
	LogLevel        string        `yaml:"log_level,omitempty"`
	Timeout         time.Duration `yaml:"timeout"`
	ReplaySource    string        `yaml:"replay_source,omitempty"`
	// Options holds free-form settings handed down to suites.
	Options map[string]string `yaml:"options,omitempty"`
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	c.Options = maps.Clone(c.Options)
	return c
}

// Validate checks option values that cannot be repaired with defaults.
func (c Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return &OptionValidationError{Option: "log_level", Value: c.LogLevel, Reason: err.Error()}
		}
	}
	if c.Timeout < 0 {
		return &OptionValidationError{Option: "timeout", Value: c.Timeout, Reason: "must not be negative"}
	}
	if strings.ContainsRune(c.UniqueID, filepath.Separator) {
		return &OptionValidationError{Option: "unique_id", Value: c.UniqueID, Reason: "must not contain a path separator"}
	}
	return nil
}

// Option configures optional collaborators of a Job.
type Option func(*Job)

// WithDispatcher sets the hook dispatcher. The default dispatches nothing.
func WithDispatcher(d Dispatcher) Option {
	return func(j *Job) {
		j.dispatcher = d
	}
}

// WithRenderers appends result renderers, run in the given order.
func WithRenderers(r ...Renderer) Option {
	return func(j *Job) {
		j.renderers = append(j.renderers, r...)
	}
}

// WithLogger sets the interactive (console) logger.
func WithLogger(l log.Logger) Option {
	return func(j *Job) {
		j.ui = l
	}
}

// WithArgs records the command line that started the job.
func WithArgs(args []string) Option {
	return func(j *Job) {
		j.args = slices.Clone(args)
	}
}

// WithVersion records the version of the running tool.
func WithVersion(v string) Option {
	return func(j *Job) {
		j.version = v
	}
}

// Job is one orchestrated execution of one or more suites.
type Job struct {
	cfg        Config
	suites     []Suite
	dispatcher Dispatcher
	renderers  []Renderer
	ui         log.Logger
	jobLog     log.Logger
	tracer     trace.Tracer
	args       []string
	version    string

	id          string
	resultsDir  string
	logFile     string
	tmpDir      string
	baseTmpDir  string
	ownsBaseTmp bool
	dryRunBase  string
	session     *logging.Session
	result      *Result

	setupCalled bool
	ran         bool
	cleaned     bool

	mu                sync.Mutex
	status            outcome.Status
	exitcode          exitcodes.Code
	phase             Phase
	interruptedReason string
	timeStart         time.Time
	timeEnd           time.Time
	elapsed           time.Duration
}

// New creates a job over suites. Suite names must be unique; duplicates fail
// here, before any directory or log file exists.
func New(cfg Config, suites []Suite, opts ...Option) (*Job, error) {
	if err := checkSuiteNames(suites); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	j := &Job{
		cfg:        cfg.Clone(),
		suites:     slices.Clone(suites),
		dispatcher: nopDispatcher{},
		jobLog:     log.NewLogger(log.DiscardHandler()),
		tracer:     otel.Tracer("op-jobrunner/job"),
		status:     outcome.StatusRunning,
		exitcode:   exitcodes.OK,
		phase:      PhaseNew,
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.ui == nil {
		j.ui = log.New()
		j.ui.Error("No logger provided, using default")
	}
	if j.cfg.DryRun && j.cfg.UniqueID == "" {
		j.cfg.UniqueID = resultsdir.DryRunID
	}
	return j, nil
}

// SuiteFactory builds the suite at 1-based position index from its config.
// The decimal index is the suite's default name.
type SuiteFactory func(index int, cfg Config) (Suite, error)

// FromConfig creates a job whose suites are built by factory. Each entry of
// suiteOptions is layered over the job options to form one suite config; no
// entries means a single suite using the job config as is.
func FromConfig(cfg Config, suiteOptions []map[string]string, factory SuiteFactory, opts ...Option) (*Job, error) {
	if len(suiteOptions) == 0 {
		suiteOptions = []map[string]string{nil}
	}
	suites := make([]Suite, 0, len(suiteOptions))
	for i, overlay := range suiteOptions {
		suiteCfg := cfg.Clone()
		if len(overlay) > 0 {
			if suiteCfg.Options == nil {
				suiteCfg.Options = make(map[string]string, len(overlay))
			}
			maps.Copy(suiteCfg.Options, overlay)
		}
		s, err := factory(i+1, suiteCfg)
		if err != nil {
			if IsError(err) || IsOptionValidationError(err) {
				return nil, err
			}
			return nil, WrapError(KindSuite, err, "unable to create suite %d", i+1)
		}
		suites = append(suites, s)
	}
	return New(cfg, suites, opts...)
}

func checkSuiteNames(suites []Suite) error {
	seen := make(map[string]int, len(suites))
	for _, s := range suites {
		seen[s.Name()]++
	}
	var dups []string
	for name, n := range seen {
		if n > 1 {
			dups = append(dups, name)
		}
	}
	if len(dups) == 0 {
		return nil
	}
	sort.Strings(dups)
	return NewError(KindDuplicateSuiteName,
		"job contains suites with the following duplicate name(s): %s. "+
			"Suite names must be unique to guarantee that results will not be overwritten",
		strings.Join(dups, ", "))
}

// ID returns the unique job id, empty until Setup allocated it.
func (j *Job) ID() string { return j.id }

// Config returns a copy of the job configuration.
func (j *Job) Config() Config { return j.cfg.Clone() }

// Timeout is the maximum wall clock duration suites should allow; zero means none.
func (j *Job) Timeout() time.Duration { return j.cfg.Timeout }

func (j *Job) ResultsDir() string { return j.resultsDir }
func (j *Job) LogFile() string    { return j.logFile }
func (j *Job) TmpDir() string     { return j.tmpDir }
func (j *Job) BaseTmpDir() string { return j.baseTmpDir }

// TestResultsPath is where suite engines keep per-test output.
func (j *Job) TestResultsPath() string {
	if j.resultsDir == "" {
		return ""
	}
	return filepath.Join(j.resultsDir, TestResultsDirname)
}

// Suites returns the attached suites in order.
func (j *Job) Suites() []Suite { return slices.Clone(j.suites) }

// FirstSuite returns the first element of the suites sequence, or nil.
func (j *Job) FirstSuite() Suite {
	if len(j.suites) == 0 {
		return nil
	}
	return j.suites[0]
}

// Size is the sum of all suite sizes.
func (j *Job) Size() int {
	total := 0
	for _, s := range j.suites {
		total += s.Size()
	}
	return total
}

// Result is the accumulated result; nil before Setup.
func (j *Job) Result() *Result { return j.result }

// Log is the interactive logger.
func (j *Job) Log() log.Logger { return j.ui }

// JobLog writes only to the persistent job log while the job is set up.
func (j *Job) JobLog() log.Logger { return j.jobLog }

func (j *Job) Status() outcome.Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

func (j *Job) ExitCode() exitcodes.Code {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.exitcode
}

func (j *Job) Phase() Phase {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phase
}

func (j *Job) TimeStart() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.timeStart
}

func (j *Job) TimeEnd() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.timeEnd
}

// Elapsed is the time between the start of Run and the end of execution.
func (j *Job) Elapsed() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.elapsed
}

func (j *Job) InterruptedReason() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.interruptedReason
}

// SetInterruptedReason lets an engine explain why it reported INTERRUPTED.
// The first reason wins.
func (j *Job) SetInterruptedReason(reason string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.interruptedReason == "" {
		j.interruptedReason = reason
	}
}

// flag ORs bits into the exit code. Bits are never cleared.
func (j *Job) flag(bits exitcodes.Code) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.exitcode |= bits
}

// promote sets status only while the job is still running.
func (j *Job) promote(s outcome.Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == outcome.StatusRunning {
		j.status = s
	}
}

// override sets status unconditionally; reserved for classified failures.
func (j *Job) override(s outcome.Status) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = s
}

func (j *Job) setPhase(p Phase) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.phase = p
}
