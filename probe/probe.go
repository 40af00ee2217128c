// Package probe provides the named boolean health signals consumed by
// HealthCheck. A Probe's identity is its name: two probes with equal
// names are the same probe, regardless of which handle created them.
package probe

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidName is returned when a probe constructor is given an empty name.
var ErrInvalidName = errors.New("probe: name must not be empty")

// ErrPoisoned is returned by Check once a probe's evaluator has panicked.
// A poisoned probe never recovers; it reports false for the rest of its
// lifetime.
var ErrPoisoned = errors.New("probe: poisoned by a previous panic")

// Probe is an opaque source of a boolean health signal.
type Probe interface {
	// Name returns the probe's stable identity.
	Name() string
	// Check evaluates the probe at time t. A returned error means the
	// evaluator itself failed; callers must treat that as ok=false.
	Check(ctx context.Context, t time.Time) (bool, error)
}

// Func adapts a plain function into a Probe, for ad hoc or test probes.
type Func struct {
	name string
	fn   func(ctx context.Context, t time.Time) (bool, error)
}

// NewFunc builds a Probe from name and an evaluator function.
func NewFunc(name string, fn func(ctx context.Context, t time.Time) (bool, error)) (*Func, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	return &Func{name: name, fn: fn}, nil
}

// Name returns the probe's name.
func (f *Func) Name() string { return f.name }

// Check invokes the wrapped evaluator.
func (f *Func) Check(ctx context.Context, t time.Time) (bool, error) {
	return f.fn(ctx, t)
}

// SameIdentity reports whether a and b share the same probe identity.
// Identity is name equality only — never pointer equality. An earlier
// revision used pointer identity, which made remove(p.Clone()) impossible;
// this is the deliberate correction.
func SameIdentity(a, b Probe) bool {
	return a.Name() == b.Name()
}
