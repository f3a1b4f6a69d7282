package job

import (
	"context"
	"sync"
	"testing"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
)

// stubSuite reports fixed tags, or fails the way it is told to.
type stubSuite struct {
	name     string
	size     int
	tags     outcome.TagSet
	err      error
	panicVal any
	ran      bool
}

func (s *stubSuite) Name() string { return s.name }
func (s *stubSuite) Size() int    { return s.size }

func (s *stubSuite) Run(_ context.Context, _ *Job) (outcome.TagSet, error) {
	s.ran = true
	if s.panicVal != nil {
		panic(s.panicVal)
	}
	return s.tags, s.err
}

func passing(name string, tags ...outcome.Tag) *stubSuite {
	return &stubSuite{name: name, size: 1, tags: outcome.NewTagSet(tags...)}
}

// recordingDispatcher records every hook it is asked to invoke, along with
// the exit code observed at that point.
type recordingDispatcher struct {
	mu    sync.Mutex
	hooks []string
	codes []uint8
	fail  map[string]error
}

func (d *recordingDispatcher) Invoke(_ context.Context, hook string, j *Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, hook)
	d.codes = append(d.codes, uint8(j.ExitCode()))
	return d.fail[hook]
}

func (d *recordingDispatcher) invoked() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.hooks...)
}

// mockRenderer is a testify mock of Renderer.
type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) Render(ctx context.Context, r *Result, j *Job) error {
	args := m.Called(ctx, r, j)
	return args.Error(0)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{ResultsDir: t.TempDir(), LogLevel: "debug"}
}

func testLogger(t *testing.T) log.Logger {
	return testlog.Logger(t, log.LevelDebug)
}

// newSetUpJob builds a job and runs Setup, registering Cleanup with the test.
func newSetUpJob(t *testing.T, cfg Config, suites []Suite, opts ...Option) *Job {
	t.Helper()
	opts = append([]Option{WithLogger(testLogger(t))}, opts...)
	j, err := New(cfg, suites, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Cleanup() })
	require.NoError(t, j.Setup(context.Background()))
	return j
}
