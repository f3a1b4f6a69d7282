package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-jobrunner/exitcodes"
	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
)

func TestErrToLabel(t *testing.T) {
	assert.Equal(t, "nil", errToLabel(nil))
	assert.Equal(t, "symlink_latest_file_exists", errToLabel(errors.New("symlink latest: file exists")))
}

func TestRecordErrorDetails(t *testing.T) {
	before := testutil.ToFloat64(errorsTotal.WithLabelValues("latest.boom"))
	RecordErrorDetails("latest", errors.New("boom"))
	RecordErrorDetails("latest", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(errorsTotal.WithLabelValues("latest.boom")))
}

func TestRecordJob(t *testing.T) {
	passBefore := testutil.ToFloat64(jobsTotal.WithLabelValues("PASS"))
	failBitBefore := testutil.ToFloat64(exitBitsTotal.WithLabelValues("TESTS_FAIL"))
	crashBefore := testutil.ToFloat64(exitBitsTotal.WithLabelValues("CRASH"))

	RecordJob(outcome.StatusPass, exitcodes.TestsFail, 7, 3*time.Second)

	assert.Equal(t, passBefore+1, testutil.ToFloat64(jobsTotal.WithLabelValues("PASS")))
	assert.Equal(t, failBitBefore+1, testutil.ToFloat64(exitBitsTotal.WithLabelValues("TESTS_FAIL")))
	assert.Equal(t, crashBefore, testutil.ToFloat64(exitBitsTotal.WithLabelValues("CRASH")))
	assert.Equal(t, float64(7), testutil.ToFloat64(jobTests))
	assert.Equal(t, float64(3), testutil.ToFloat64(jobDuration))
}

func TestRecordSuiteOutcome(t *testing.T) {
	before := testutil.ToFloat64(suiteOutcomesTotal.WithLabelValues("unit", "FAIL"))
	RecordSuiteOutcome("unit", outcome.NewTagSet(outcome.TagFail, outcome.TagPass))
	assert.Equal(t, before+1, testutil.ToFloat64(suiteOutcomesTotal.WithLabelValues("unit", "FAIL")))
}

func TestRecordFailure(t *testing.T) {
	before := testutil.ToFloat64(failuresTotal.WithLabelValues("EXECUTE", "crash"))
	RecordFailure("EXECUTE", exitcodes.ClassCrash)
	assert.Equal(t, before+1, testutil.ToFloat64(failuresTotal.WithLabelValues("EXECUTE", "crash")))
}
