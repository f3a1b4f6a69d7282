package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// gate wraps a handler that can be switched off for good. Loggers derived
// from it through With or WithGroup share the switch.
type gate struct {
	slog.Handler
	off *atomic.Bool
}

var _ slog.Handler = (*gate)(nil)

func newGate(h slog.Handler) *gate {
	return &gate{Handler: h, off: new(atomic.Bool)}
}

func (g *gate) Enabled(ctx context.Context, level slog.Level) bool {
	return !g.off.Load() && g.Handler.Enabled(ctx, level)
}

func (g *gate) Handle(ctx context.Context, r slog.Record) error {
	if g.off.Load() {
		return nil
	}
	return g.Handler.Handle(ctx, r)
}

func (g *gate) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &gate{Handler: g.Handler.WithAttrs(attrs), off: g.off}
}

func (g *gate) WithGroup(name string) slog.Handler {
	return &gate{Handler: g.Handler.WithGroup(name), off: g.off}
}

func (g *gate) close() {
	g.off.Store(true)
}
