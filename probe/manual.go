package probe

import (
	"context"
	"sync"
	"time"
)

// Manual is a probe holding a mutable boolean flag. Multiple handles
// returned by cloning a *Manual share the same underlying flag — the
// flag is reference-counted shared state, guarded by a short mutex.
type Manual struct {
	name string
	mu   *sync.Mutex
	ok   *bool
}

// NewManual creates a Manual probe with the given initial state.
func NewManual(name string, initial bool) (*Manual, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	ok := initial
	return &Manual{
		name: name,
		mu:   &sync.Mutex{},
		ok:   &ok,
	}, nil
}

// Name returns the probe's name.
func (m *Manual) Name() string { return m.name }

// Enable marks the probe healthy.
func (m *Manual) Enable() {
	m.mu.Lock()
	*m.ok = true
	m.mu.Unlock()
}

// Disable marks the probe unhealthy.
func (m *Manual) Disable() {
	m.mu.Lock()
	*m.ok = false
	m.mu.Unlock()
}

// Toggle flips the probe's current state.
func (m *Manual) Toggle() {
	m.mu.Lock()
	*m.ok = !*m.ok
	m.mu.Unlock()
}

// Check returns the current flag value. The timestamp is accepted only
// to satisfy the Probe interface; Manual ignores it.
func (m *Manual) Check(_ context.Context, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.ok, nil
}
