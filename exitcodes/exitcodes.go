// Package exitcodes defines the exit status bits used by op-jobrunner and the
// pure mapping from observed job conditions onto them.
//
// Exit codes are a bitmask rather than a single value: several independent
// failure categories can occur within one job, and each one contributes its
// own bit. Bits are only ever combined with a bitwise OR.
//
// * OK (0): Job completed and every test passed
// * TestsFail (1): One or more tests reported FAIL or ERROR
// * JobFail (2): The job could not do its work (validation, no suites, no tests)
// * Crash (4): An unexpected failure happened while running the job
// * Interrupted (8): Test execution was interrupted (timeout or operator abort)
package exitcodes

import (
	"strings"

	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
)

// Code is an accumulated set of exit status bits.
type Code uint8

const (
	OK          Code = 0
	TestsFail   Code = 1 << 0
	JobFail     Code = 1 << 1
	Crash       Code = 1 << 2
	Interrupted Code = 1 << 3
)

var names = []struct {
	bit  Code
	name string
}{
	{TestsFail, "TESTS_FAIL"},
	{JobFail, "JOB_FAIL"},
	{Crash, "CRASH"},
	{Interrupted, "INTERRUPTED"},
}

// Has reports whether every bit of bits is set in c.
func (c Code) Has(bits Code) bool {
	return c&bits == bits
}

// Bits returns the names of the bits set in c, lowest bit first.
func (c Code) Bits() []string {
	var out []string
	for _, n := range names {
		if c&n.bit != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

func (c Code) String() string {
	if c == OK {
		return "OK"
	}
	return strings.Join(c.Bits(), "|")
}

// Int returns the code as a process exit status.
func (c Code) Int() int {
	return int(c)
}

// Class is the classification of a failure raised while a job runs.
type Class int

const (
	// ClassNone means no failure was observed.
	ClassNone Class = iota
	// ClassJobFailure is a recognized job-level failure carrying its own status.
	ClassJobFailure
	// ClassOptionValidation is an invalid option or configuration value.
	ClassOptionValidation
	// ClassCrash is anything unrecognized: a programming error or unexpected failure.
	ClassCrash
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassJobFailure:
		return "job-failure"
	case ClassOptionValidation:
		return "option-validation"
	case ClassCrash:
		return "crash"
	default:
		return "unknown"
	}
}

// ForClass returns the bits contributed by a failure of the given class.
func ForClass(c Class) Code {
	switch c {
	case ClassJobFailure, ClassOptionValidation:
		return JobFail
	case ClassCrash:
		return Crash
	default:
		return OK
	}
}

// ForTags returns the bits contributed by the union of suite outcome tags.
func ForTags(tags outcome.TagSet) Code {
	code := OK
	if tags.Has(outcome.TagInterrupted) {
		code |= Interrupted
	}
	if tags.HasAny(outcome.TagFail, outcome.TagError) {
		code |= TestsFail
	}
	return code
}

// ForEmpty returns JobFail when a job has no suites or resolved zero tests.
func ForEmpty(suites, size int) Code {
	if suites == 0 || size == 0 {
		return JobFail
	}
	return OK
}
