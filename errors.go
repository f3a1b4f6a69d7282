package jobrunner

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/infra/op-jobrunner/exitcodes"
)

// RuntimeError represents an operational error that prevented a job from
// being built, such as an unreadable job file. It exits with JOB_FAIL.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// ExitError carries a job's exit code bitmask to the process exit status.
// It implements cli.ExitCoder.
type ExitError struct {
	Code exitcodes.Code
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job failed (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("job finished with exit code %d (%s)", e.Code.Int(), e.Code)
}

// ExitCode implements the cli.ExitCoder interface
func (e *ExitError) ExitCode() int {
	return e.Code.Int()
}

// Unwrap implements the errors.Unwrap interface
func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError
func NewExitError(code exitcodes.Code, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

// IsExitError checks if the error is or wraps an ExitError
func IsExitError(err error) bool {
	var exitErr *ExitError
	return err != nil && errors.As(err, &exitErr)
}
