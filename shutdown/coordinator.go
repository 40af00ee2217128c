// Package shutdown implements the at-most-once shutdown callback
// coordinator shared by a Hams instance's lifecycle.
package shutdown

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrAlreadyRegistered is returned by Register once a callback is already held.
var ErrAlreadyRegistered = errors.New("shutdown: callback already registered")

// Callback is invoked exactly once when the coordinator fires.
type Callback func(ctx context.Context)

// Coordinator holds at most one shutdown callback and fires it exactly
// once per lifecycle. Concurrent Fire calls race to a single invocation;
// the loser is a no-op.
type Coordinator struct {
	mu       sync.Mutex
	callback Callback
	fireOnce *sync.Once
	onPanic  func(recovered any)
}

// New creates an empty Coordinator. onPanic, if non-nil, is invoked when
// the registered callback panics; it may be nil.
func New(onPanic func(recovered any)) *Coordinator {
	return &Coordinator{fireOnce: &sync.Once{}, onPanic: onPanic}
}

// Register stores cb as the shutdown callback. It succeeds once;
// subsequent calls return ErrAlreadyRegistered until Reset is called.
func (c *Coordinator) Register(cb Callback) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.callback != nil {
		return ErrAlreadyRegistered
	}
	c.callback = cb
	return nil
}

// Fire invokes the registered callback exactly once. If no callback is
// registered, Fire is a no-op. The callback itself runs outside the
// slot's lock. A panicking callback is recovered and reported via
// onPanic rather than crashing the caller's goroutine; because the
// callback only ever runs once regardless (see sync.Once above), a
// panic can never be re-invoked by a later Fire.
func (c *Coordinator) Fire(ctx context.Context) {
	c.mu.Lock()
	cb := c.callback
	once := c.fireOnce
	c.mu.Unlock()

	if cb == nil {
		return
	}
	once.Do(func() {
		c.callSafely(ctx, cb)
	})
}

func (c *Coordinator) callSafely(ctx context.Context, cb Callback) {
	defer func() {
		if r := recover(); r != nil && c.onPanic != nil {
			c.onPanic(r)
		}
	}()
	cb(ctx)
}

// Reset clears the registered callback and the fired-once guard, so the
// same Coordinator can be reused across a Hams instance's repeated
// start/stop cycles.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = nil
	c.fireOnce = &sync.Once{}
}
