// Package healthcheck implements an identity-keyed aggregate over probes,
// the orchestrator-facing "is this app alive/ready" verdict.
package healthcheck

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/PolecatWorks/hams-sub000/probe"
)

// ProbeResult is one probe's contribution to a Result.
type ProbeResult struct {
	Name  string `json:"name"`
	Valid bool   `json:"valid"`
}

// Result is the outcome of evaluating a HealthCheck.
type Result struct {
	Name    string        `json:"name"`
	Valid   bool          `json:"valid"`
	Details []ProbeResult `json:"details,omitempty"`
}

// HealthCheck is an ordered-identity set of probes plus aggregate
// evaluation. Multiple readers (Check) run concurrently with at most one
// writer (Insert/Remove); the writer-excluding lock is never held across
// a probe evaluation.
type HealthCheck struct {
	name string
	mu   sync.RWMutex
	set  map[string]probe.Probe
}

// New creates an empty, named HealthCheck.
func New(name string) *HealthCheck {
	return &HealthCheck{
		name: name,
		set:  make(map[string]probe.Probe),
	}
}

// Name returns the HealthCheck's name (e.g. "alive", "ready").
func (h *HealthCheck) Name() string { return h.name }

// Insert adds p, returning false if a probe with that name already
// resides in the set (the set is unchanged in that case).
func (h *HealthCheck) Insert(p probe.Probe) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.set[p.Name()]; exists {
		return false
	}
	h.set[p.Name()] = p
	return true
}

// Remove drops the probe identified by p.Name(), returning false if no
// such probe resided in the set.
func (h *HealthCheck) Remove(p probe.Probe) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.set[p.Name()]; !exists {
		return false
	}
	delete(h.set, p.Name())
	return true
}

// Len returns the number of probes currently in the set.
func (h *HealthCheck) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.set)
}

// snapshot copies the current probe set under the read lock, so
// evaluation itself never holds a lock across a probe call.
func (h *HealthCheck) snapshot() []probe.Probe {
	h.mu.RLock()
	defer h.mu.RUnlock()

	probes := make([]probe.Probe, 0, len(h.set))
	for _, p := range h.set {
		probes = append(probes, p)
	}
	return probes
}

// Check evaluates every probe concurrently and ANDs the results. No
// short-circuit: every probe is evaluated so the orchestrator-facing
// output is stable and complete. A probe whose evaluator errors
// contributes false to the aggregate and is still listed in details
// when verbose is set; evaluator errors are otherwise only surfaced
// through the combined error return for logging.
func (h *HealthCheck) Check(ctx context.Context, t time.Time, verbose bool) (Result, error) {
	probes := h.snapshot()

	type outcome struct {
		name  string
		valid bool
		err   error
	}

	outcomes := make([]outcome, len(probes))
	var wg sync.WaitGroup
	wg.Add(len(probes))
	for i, p := range probes {
		go func(i int, p probe.Probe) {
			defer wg.Done()
			ok, err := p.Check(ctx, t)
			outcomes[i] = outcome{name: p.Name(), valid: ok, err: err}
		}(i, p)
	}
	wg.Wait()

	result := Result{Name: h.name, Valid: true}
	var combined error
	for _, o := range outcomes {
		if o.err != nil {
			combined = multierr.Append(combined, o.err)
		}
		ok := o.valid && o.err == nil
		if !ok {
			result.Valid = false
		}
		if verbose {
			result.Details = append(result.Details, ProbeResult{Name: o.name, Valid: ok})
		}
	}

	return result, combined
}
