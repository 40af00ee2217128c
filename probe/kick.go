package probe

import (
	"context"
	"sync"
	"time"
)

// Kick is a dead-man probe: healthy until margin elapses since the last
// Kick() call (or since construction, if never kicked). Check must never
// allocate; the deadline is a single time.Time comparison.
type Kick struct {
	name   string
	margin time.Duration
	mu     sync.Mutex
	latest time.Time
}

// NewKick creates a Kick probe that decays margin after the last kick
// (or after construction).
func NewKick(name string, margin time.Duration) (*Kick, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	return &Kick{
		name:   name,
		margin: margin,
		latest: time.Now(),
	}, nil
}

// Name returns the probe's name.
func (k *Kick) Name() string { return k.name }

// Kick records the current time as the latest heartbeat.
func (k *Kick) Kick() {
	k.mu.Lock()
	k.latest = time.Now()
	k.mu.Unlock()
}

// Check reports whether t is still within margin of the latest kick.
func (k *Kick) Check(_ context.Context, t time.Time) (bool, error) {
	k.mu.Lock()
	deadline := k.latest.Add(k.margin)
	k.mu.Unlock()
	return t.Before(deadline), nil
}
