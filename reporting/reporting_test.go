package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-jobrunner/exitcodes"
	"github.com/ethereum-optimism/infra/op-jobrunner/job"
	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
)

type fixedSuite struct {
	name string
	size int
	tags outcome.TagSet
}

func (s fixedSuite) Name() string { return s.name }
func (s fixedSuite) Size() int    { return s.size }
func (s fixedSuite) Run(context.Context, *job.Job) (outcome.TagSet, error) {
	return s.tags, nil
}

func runJob(t *testing.T, suites []job.Suite, renderers ...job.Renderer) *job.Job {
	t.Helper()
	j, err := job.New(job.Config{ResultsDir: t.TempDir()}, suites,
		job.WithLogger(testlog.Logger(t, log.LevelDebug)),
		job.WithRenderers(renderers...))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Cleanup() })
	require.NoError(t, j.Setup(context.Background()))
	j.Run(context.Background())
	return j
}

func TestTableRenderer(t *testing.T) {
	var out bytes.Buffer
	j := runJob(t, []job.Suite{
		fixedSuite{name: "unit", size: 3, tags: outcome.NewTagSet(outcome.TagPass)},
		fixedSuite{name: "functional", size: 2, tags: outcome.NewTagSet(outcome.TagPass, outcome.TagFail)},
	}, NewTableRenderer(&out))

	printed := out.String()
	assert.Contains(t, printed, "unit")
	assert.Contains(t, printed, "functional")
	assert.Contains(t, printed, "✗ fail")
	assert.Contains(t, printed, "TESTS_FAIL")

	plain, err := os.ReadFile(filepath.Join(j.ResultsDir(), SummaryFilename))
	require.NoError(t, err)
	assert.NotContains(t, string(plain), "\x1b[")
	assert.Contains(t, string(plain), "functional")
}

func TestJSONRenderer(t *testing.T) {
	j := runJob(t, []job.Suite{
		fixedSuite{name: "unit", size: 1, tags: outcome.NewTagSet(outcome.TagInterrupted)},
	}, JSONRenderer{})

	data, err := os.ReadFile(filepath.Join(j.ResultsDir(), JSONFilename))
	require.NoError(t, err)

	var report struct {
		JobID    string   `json:"job_id"`
		Status   string   `json:"status"`
		ExitCode int      `json:"exit_code"`
		ExitBits []string `json:"exit_bits"`
		Summary  []string `json:"summary"`
		Suites   []struct {
			Name string   `json:"name"`
			Tags []string `json:"tags"`
		} `json:"suites"`
	}
	require.NoError(t, json.Unmarshal(data, &report))

	assert.Equal(t, j.ID(), report.JobID)
	assert.Equal(t, "PASS", report.Status)
	assert.Equal(t, exitcodes.Interrupted.Int(), report.ExitCode)
	assert.Equal(t, []string{"INTERRUPTED"}, report.ExitBits)
	assert.Equal(t, []string{"INTERRUPTED"}, report.Summary)
	require.Len(t, report.Suites, 1)
	assert.Equal(t, "unit", report.Suites[0].Name)
}

func TestGetResultString(t *testing.T) {
	assert.Equal(t, "✓ pass", getResultString(outcome.NewTagSet(outcome.TagPass)))
	assert.Equal(t, "✗ fail", getResultString(outcome.NewTagSet(outcome.TagPass, outcome.TagError)))
	assert.Equal(t, "! interrupted", getResultString(outcome.NewTagSet(outcome.TagInterrupted, outcome.TagFail)))
	assert.Equal(t, "- skip", getResultString(outcome.NewTagSet(outcome.TagSkip)))
}
