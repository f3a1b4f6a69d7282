// Package hooks dispatches job lifecycle hooks to registered extensions.
//
// An extension opts into a hook by implementing the matching interface
// (PreJob, PreTests, PostTests, PostJob). Extensions are invoked in order of
// their registered name.
package hooks

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-jobrunner/job"
	"github.com/ethereum-optimism/infra/op-jobrunner/metrics"
)

type PreJob interface {
	PreJob(ctx context.Context, j *job.Job) error
}

type PreTests interface {
	PreTests(ctx context.Context, j *job.Job) error
}

type PostTests interface {
	PostTests(ctx context.Context, j *job.Job) error
}

type PostJob interface {
	PostJob(ctx context.Context, j *job.Job) error
}

// Factory creates an extension. An error means the extension is skipped.
type Factory func(log log.Logger) (any, error)

type registration struct {
	name    string
	factory Factory
}

type dispatcherCfg struct {
	registrations []registration
	disabled      []string
}

type Option func(*dispatcherCfg)

// WithExtension registers an extension under name. A later registration
// under the same name replaces the earlier one.
func WithExtension(name string, f Factory) Option {
	return func(cfg *dispatcherCfg) {
		cfg.registrations = slices.DeleteFunc(cfg.registrations, func(r registration) bool {
			return r.name == name
		})
		cfg.registrations = append(cfg.registrations, registration{name: name, factory: f})
	}
}

// WithDisabled skips the named extensions.
func WithDisabled(names ...string) Option {
	return func(cfg *dispatcherCfg) {
		cfg.disabled = append(cfg.disabled, names...)
	}
}

type extension struct {
	name string
	impl any
}

// Dispatcher implements job.Dispatcher over a fixed set of extensions.
type Dispatcher struct {
	log        log.Logger
	extensions []extension
}

var _ job.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher loads every registered extension. Extensions that fail to
// load are logged and left out.
func NewDispatcher(logger log.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = log.New()
		logger.Error("No logger provided, using default")
	}
	cfg := &dispatcherCfg{}
	for _, opt := range opts {
		opt(cfg)
	}
	sort.Slice(cfg.registrations, func(i, k int) bool {
		return cfg.registrations[i].name < cfg.registrations[k].name
	})

	d := &Dispatcher{log: logger}
	for _, r := range cfg.registrations {
		if slices.Contains(cfg.disabled, r.name) {
			logger.Debug("Extension disabled", "extension", r.name)
			continue
		}
		impl, err := r.factory(logger.With("extension", r.name))
		if err != nil {
			logger.Error("Failed to load extension", "extension", r.name, "err", err)
			metrics.RecordErrorDetails("extension_load", err)
			continue
		}
		d.extensions = append(d.extensions, extension{name: r.name, impl: impl})
	}
	return d
}

// Names returns the loaded extensions in invocation order.
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.extensions))
	for i, e := range d.extensions {
		names[i] = e.name
	}
	return names
}

// Invoke calls hook on every extension implementing it and stops at the
// first failure.
func (d *Dispatcher) Invoke(ctx context.Context, hook string, j *job.Job) error {
	for _, e := range d.extensions {
		var err error
		called := true
		switch hook {
		case job.HookPre:
			if h, ok := e.impl.(PreJob); ok {
				err = h.PreJob(ctx, j)
			} else {
				called = false
			}
		case job.HookPreTests:
			if h, ok := e.impl.(PreTests); ok {
				err = h.PreTests(ctx, j)
			} else {
				called = false
			}
		case job.HookPostTests:
			if h, ok := e.impl.(PostTests); ok {
				err = h.PostTests(ctx, j)
			} else {
				called = false
			}
		case job.HookPost:
			if h, ok := e.impl.(PostJob); ok {
				err = h.PostJob(ctx, j)
			} else {
				called = false
			}
		default:
			return fmt.Errorf("unknown hook %q", hook)
		}
		if !called {
			continue
		}
		if err != nil {
			return fmt.Errorf("extension %s failed in %s hook: %w", e.name, hook, err)
		}
		d.log.Trace("Extension hook done", "extension", e.name, "hook", hook)
	}
	return nil
}
