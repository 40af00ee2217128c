package probe

import (
	"context"
	"sync/atomic"
	"time"
)

// Guard wraps a Probe so that a panicking evaluator is caught, logged
// through the supplied reporter, and the probe is marked poisoned. Once
// poisoned, every subsequent Check short-circuits to (false, ErrPoisoned)
// instead of re-invoking the faulty evaluator.
type Guard struct {
	inner    Probe
	poisoned atomic.Bool
	onPanic  func(name string, recovered any)
}

// NewGuard wraps inner with panic containment. onPanic may be nil.
func NewGuard(inner Probe, onPanic func(name string, recovered any)) *Guard {
	return &Guard{inner: inner, onPanic: onPanic}
}

// Name returns the wrapped probe's name.
func (g *Guard) Name() string { return g.inner.Name() }

// Check evaluates the wrapped probe, recovering any panic.
func (g *Guard) Check(ctx context.Context, t time.Time) (ok bool, err error) {
	if g.poisoned.Load() {
		return false, ErrPoisoned
	}

	defer func() {
		if r := recover(); r != nil {
			g.poisoned.Store(true)
			if g.onPanic != nil {
				g.onPanic(g.inner.Name(), r)
			}
			ok, err = false, ErrPoisoned
		}
	}()

	return g.inner.Check(ctx, t)
}
