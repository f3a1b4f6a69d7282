package job

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/op-jobrunner/exitcodes"
	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
)

// NewIssueLink is where crash reports should be filed.
const NewIssueLink = "https://github.com/ethereum-optimism/infra/issues/new"

// Kind identifies a recognized job-level failure.
type Kind string

const (
	KindGeneric            Kind = "job error"
	KindSetup              Kind = "setup error"
	KindSuite              Kind = "suite error"
	KindEmptySuite         Kind = "empty suite"
	KindDuplicateSuiteName Kind = "duplicate suite name"
	KindMissingReferences  Kind = "missing references"
)

// Error is a recognized job-level failure. It carries the terminal status the
// job takes when the failure reaches the sequencer.
type Error struct {
	Kind   Kind
	Status outcome.Status
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a job-level failure with ERROR as its declared status.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Status: outcome.StatusError, Msg: fmt.Sprintf(format, args...)}
}

// WrapError creates a job-level failure around err with ERROR as its declared status.
func WrapError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Status: outcome.StatusError, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsError checks if the error is or wraps a job-level Error
func IsError(err error) bool {
	var jobErr *Error
	return err != nil && errors.As(err, &jobErr)
}

// OptionValidationError reports an invalid option value. A job that hits
// one ends with status ERROR.
type OptionValidationError struct {
	Option string
	Value  any
	Reason string
}

func (e *OptionValidationError) Error() string {
	return fmt.Sprintf("invalid value %v for option %s: %s", e.Value, e.Option, e.Reason)
}

// IsOptionValidationError checks if the error is or wraps an OptionValidationError
func IsOptionValidationError(err error) bool {
	var optErr *OptionValidationError
	return err != nil && errors.As(err, &optErr)
}

// panicError is an unrecognized failure recovered from a panic.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Classify maps err onto a failure class and, where the class dictates one,
// the status the job must take. A nil error is ClassNone.
func Classify(err error) (exitcodes.Class, outcome.Status) {
	if err == nil {
		return exitcodes.ClassNone, ""
	}
	var pe *panicError
	if errors.As(err, &pe) {
		return exitcodes.ClassCrash, outcome.StatusError
	}
	var jobErr *Error
	if errors.As(err, &jobErr) {
		status := jobErr.Status
		if !status.Terminal() {
			status = outcome.StatusFail
		}
		return exitcodes.ClassJobFailure, status
	}
	if IsOptionValidationError(err) {
		return exitcodes.ClassOptionValidation, outcome.StatusError
	}
	return exitcodes.ClassCrash, outcome.StatusError
}

// ExitCodeFor returns the exit code contributed by err on its own. It is
// meant for failures outside Run, such as construction or Setup errors.
func ExitCodeFor(err error) exitcodes.Code {
	class, _ := Classify(err)
	return exitcodes.ForClass(class)
}
