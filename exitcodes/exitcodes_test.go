package exitcodes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
)

func TestForTags(t *testing.T) {
	tests := []struct {
		name string
		tags outcome.TagSet
		want Code
	}{
		{"empty", outcome.NewTagSet(), OK},
		{"pass only", outcome.NewTagSet(outcome.TagPass), OK},
		{"skip and cancel", outcome.NewTagSet(outcome.TagSkip, outcome.TagCancel), OK},
		{"fail", outcome.NewTagSet(outcome.TagPass, outcome.TagFail), TestsFail},
		{"error", outcome.NewTagSet(outcome.TagError), TestsFail},
		{"interrupted", outcome.NewTagSet(outcome.TagInterrupted), Interrupted},
		{"interrupted and fail", outcome.NewTagSet(outcome.TagInterrupted, outcome.TagFail), Interrupted | TestsFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForTags(tt.tags))
		})
	}
}

func TestForClass(t *testing.T) {
	assert.Equal(t, OK, ForClass(ClassNone))
	assert.Equal(t, JobFail, ForClass(ClassJobFailure))
	assert.Equal(t, JobFail, ForClass(ClassOptionValidation))
	assert.Equal(t, Crash, ForClass(ClassCrash))
}

func TestForEmpty(t *testing.T) {
	assert.Equal(t, JobFail, ForEmpty(0, 0))
	assert.Equal(t, JobFail, ForEmpty(2, 0))
	assert.Equal(t, OK, ForEmpty(1, 3))
}

func TestCode_StringAndHas(t *testing.T) {
	assert.Equal(t, "OK", OK.String())
	c := JobFail | Interrupted
	assert.Equal(t, "JOB_FAIL|INTERRUPTED", c.String())
	assert.True(t, c.Has(JobFail))
	assert.True(t, c.Has(JobFail|Interrupted))
	assert.False(t, c.Has(Crash))
	assert.Equal(t, 10, c.Int())
}

func TestCode_OrIsMonotonic(t *testing.T) {
	code := OK
	seen := []Code{TestsFail, Crash, TestsFail, OK, Interrupted}
	prev := code
	for _, bits := range seen {
		code |= bits
		assert.True(t, code.Has(prev), "bits of %s must survive in %s", prev, code)
		prev = code
	}
	assert.Equal(t, TestsFail|Crash|Interrupted, code)
}
