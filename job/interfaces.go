package job

import (
	"context"

	"github.com/ethereum-optimism/infra/op-jobrunner/outcome"
)

// Hook names dispatched by the sequencer.
const (
	HookPre       = "pre"
	HookPreTests  = "pre_tests"
	HookPostTests = "post_tests"
	HookPost      = "post"
)

// Suite is a named, sized collection of tests run by an external engine.
type Suite interface {
	// Name is unique within a job.
	Name() string
	// Size is the number of tests the suite resolved.
	Size() int
	// Run executes the suite and reports the categories of outcome observed.
	// A returned error aborts the remaining suites.
	Run(ctx context.Context, j *Job) (outcome.TagSet, error)
}

// Dispatcher invokes a named hook on every registered extension.
type Dispatcher interface {
	Invoke(ctx context.Context, hook string, j *Job) error
}

// Renderer renders the accumulated result once execution is over.
type Renderer interface {
	Render(ctx context.Context, r *Result, j *Job) error
}

type nopDispatcher struct{}

func (nopDispatcher) Invoke(context.Context, string, *Job) error { return nil }
