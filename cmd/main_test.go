package main

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"

	jobrunner "github.com/ethereum-optimism/infra/op-jobrunner"
	"github.com/ethereum-optimism/infra/op-jobrunner/exitcodes"
)

func TestHandleExitErr(t *testing.T) {
	origExiter, origWriter := cli.OsExiter, cli.ErrWriter
	t.Cleanup(func() {
		cli.OsExiter, cli.ErrWriter = origExiter, origWriter
	})
	cli.ErrWriter = io.Discard

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "job exit code passes through",
			err:      jobrunner.NewExitError(exitcodes.TestsFail|exitcodes.Interrupted, nil),
			expected: 9,
		},
		{
			name:     "wrapped job exit code",
			err:      errors.Join(fmt.Errorf("failed to start app: %w", jobrunner.NewExitError(exitcodes.JobFail, nil)), errors.New("ctx")),
			expected: 2,
		},
		{
			name:     "runtime error",
			err:      jobrunner.NewRuntimeError(errors.New("bad job file")),
			expected: exitcodes.JobFail.Int(),
		},
		{
			name:     "unclassified error",
			err:      errors.New("boom"),
			expected: exitcodes.Crash.Int(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := -1
			cli.OsExiter = func(code int) { got = code }
			handleExitErr(nil, tt.err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestHandleExitErrNil(t *testing.T) {
	origExiter := cli.OsExiter
	t.Cleanup(func() { cli.OsExiter = origExiter })
	called := false
	cli.OsExiter = func(int) { called = true }
	handleExitErr(nil, nil)
	assert.False(t, called)
}

func TestNewApp(t *testing.T) {
	app := newApp()
	assert.Equal(t, "op-jobrunner", app.Name)
	assert.NotNil(t, app.Action)
	assert.NotEmpty(t, app.Flags)
}
