// Package hams is the public facade of HaMS: it composes the probe
// registries, the shutdown coordinator, and the lifecycle/event loop
// that binds an HTTP surface and waits on signals and cancellation.
package hams

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/PolecatWorks/hams-sub000/hamshttp"
	"github.com/PolecatWorks/hams-sub000/healthcheck"
	"github.com/PolecatWorks/hams-sub000/internal/hamslog"
	"github.com/PolecatWorks/hams-sub000/probe"
	"github.com/PolecatWorks/hams-sub000/shutdown"
)

// Sentinel errors surfaced at the embedder-facing boundary.
var (
	// ErrAlreadyRunning is returned by Start when called outside Idle.
	ErrAlreadyRunning = errors.New("hams: already running")
	// ErrNotRunning is returned by Stop when called outside Running.
	ErrNotRunning = errors.New("hams: not running")
	// ErrBindFailure is returned when the HTTP listener could not bind.
	ErrBindFailure = errors.New("hams: failed to bind HTTP listener")
	// ErrGathererPanicked is returned by Metrics when the registered
	// Gatherer's Gather panicked; the panic is recovered and logged rather
	// than crashing the serving goroutine.
	ErrGathererPanicked = errors.New("hams: prometheus gatherer panicked")
)

const defaultBindAddress = "0.0.0.0:8079"
const defaultGracePeriod = 5 * time.Second

// Hams is the embeddable supervisor: the application registers probes
// and a shutdown callback, then calls Start/Stop from its own thread
// while HaMS runs its event loop on a worker goroutine.
type Hams struct {
	name        string
	version     string
	instanceID  string
	bindAddress string
	gracePeriod time.Duration
	logger      *hamslog.Logger

	alive *healthcheck.HealthCheck
	ready *healthcheck.HealthCheck
	shut  *shutdown.Coordinator

	gatherer prometheus.Gatherer

	lifecycle lifecycle
}

// Option configures a Hams at construction time.
type Option interface {
	apply(*Hams)
}

type optionFunc func(*Hams)

func (f optionFunc) apply(h *Hams) { f(h) }

// WithVersion sets the reported application version.
func WithVersion(version string) Option {
	return optionFunc(func(h *Hams) { h.version = version })
}

// WithBindAddress overrides the default "0.0.0.0:8079" bind address.
func WithBindAddress(addr string) Option {
	return optionFunc(func(h *Hams) { h.bindAddress = addr })
}

// WithLogger sets the logger used by the event loop and probe guards.
func WithLogger(l *hamslog.Logger) Option {
	return optionFunc(func(h *Hams) { h.logger = l.Named("hams") })
}

// WithGracePeriod overrides the default 5s HTTP drain grace period.
func WithGracePeriod(d time.Duration) Option {
	return optionFunc(func(h *Hams) { h.gracePeriod = d })
}

// New creates a Hams facade. name must not be empty.
func New(name string, opts ...Option) (*Hams, error) {
	if name == "" {
		return nil, probe.ErrInvalidName
	}

	h := &Hams{
		name:        name,
		instanceID:  uuid.NewString(),
		bindAddress: defaultBindAddress,
		gracePeriod: defaultGracePeriod,
		logger:      hamslog.NewNop(),
		alive:       healthcheck.New("alive"),
		ready:       healthcheck.New("ready"),
	}
	h.shut = shutdown.New(h.onShutdownPanic)
	for _, opt := range opts {
		opt.apply(h)
	}
	return h, nil
}

// InsertAlive adds p to the liveness HealthCheck, wrapped in a Guard so a
// panicking evaluator poisons only that probe instead of the process.
func (h *Hams) InsertAlive(p probe.Probe) bool {
	return h.alive.Insert(probe.NewGuard(p, h.onProbePanic))
}

// RemoveAlive removes p from the liveness HealthCheck.
func (h *Hams) RemoveAlive(p probe.Probe) bool { return h.alive.Remove(p) }

// InsertReady adds p to the readiness HealthCheck, wrapped in a Guard so a
// panicking evaluator poisons only that probe instead of the process.
func (h *Hams) InsertReady(p probe.Probe) bool {
	return h.ready.Insert(probe.NewGuard(p, h.onProbePanic))
}

// RemoveReady removes p from the readiness HealthCheck.
func (h *Hams) RemoveReady(p probe.Probe) bool { return h.ready.Remove(p) }

// onProbePanic logs a probe evaluator's panic. Passed to every Guard this
// facade constructs.
func (h *Hams) onProbePanic(name string, recovered any) {
	h.logger.Errorw("probe evaluator panicked, probe is now poisoned", "probe", name, "panic", recovered)
}

// onShutdownPanic logs a shutdown callback's panic. Passed to this
// facade's shutdown.Coordinator.
func (h *Hams) onShutdownPanic(recovered any) {
	h.logger.Errorw("shutdown callback panicked", "panic", recovered)
}

// RegisterShutdown registers cb as the shutdown callback. It succeeds
// once per lifecycle; a second call returns shutdown.ErrAlreadyRegistered.
func (h *Hams) RegisterShutdown(cb shutdown.Callback) error {
	return h.shut.Register(cb)
}

// RegisterPrometheus registers a Gatherer whose output serves
// /hams/metrics. This is the idiomatic Go shape of the spec's
// (formatter, free, ctx) triple: Gatherer.Gather already returns
// self-contained metric families with no caller-managed buffer
// lifetime, so no separate free function is needed.
func (h *Hams) RegisterPrometheus(g prometheus.Gatherer) error {
	if h.gatherer != nil {
		return shutdown.ErrAlreadyRegistered
	}
	h.gatherer = g
	return nil
}

// VersionInfo reports the facade's identity for /hams/version.
func (h *Hams) VersionInfo() hamshttp.VersionInfo {
	return hamshttp.VersionInfo{
		Name:        h.name,
		Version:     h.version,
		HamsName:    "hams",
		HamsVersion: Version,
	}
}

// CheckAlive evaluates the liveness HealthCheck.
func (h *Hams) CheckAlive(ctx context.Context, t time.Time, verbose bool) hamshttp.CheckResult {
	return h.runCheck(ctx, h.alive, t, verbose)
}

// CheckReady evaluates the readiness HealthCheck.
func (h *Hams) CheckReady(ctx context.Context, t time.Time, verbose bool) hamshttp.CheckResult {
	return h.runCheck(ctx, h.ready, t, verbose)
}

func (h *Hams) runCheck(ctx context.Context, hc *healthcheck.HealthCheck, t time.Time, verbose bool) hamshttp.CheckResult {
	result, err := hc.Check(ctx, t, verbose)
	if err != nil {
		h.logger.Warnw("probe evaluator reported an error", "healthcheck", hc.Name(), "error", err)
	}

	out := hamshttp.CheckResult{Name: result.Name, Valid: result.Valid}
	for _, d := range result.Details {
		out.Details = append(out.Details, hamshttp.ProbeEntry{Name: d.Name, Valid: d.Valid})
	}
	return out
}

// Done returns a channel closed when the event loop exits on its own,
// whether from a signal, cancellation, or an HTTP-triggered shutdown.
// Embedders that only need to wait for natural shutdown (rather than
// force one via Stop) should block on this instead. Returns an
// already-closed channel when Idle.
func (h *Hams) Done() <-chan struct{} {
	return h.lifecycle.done()
}

// RequestShutdown triggers the same cancellation path a signal or an
// explicit Stop would: the event loop tears down and fires the
// shutdown callback at most once.
func (h *Hams) RequestShutdown() {
	h.lifecycle.cancel()
}

// Metrics gathers the registered Prometheus collectors and renders them
// in text exposition format.
func (h *Hams) Metrics(_ context.Context) (io.Reader, bool, error) {
	if h.gatherer == nil {
		return nil, false, nil
	}

	families, err := h.gatherSafely()
	if err != nil {
		return nil, true, err
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, true, err
		}
	}
	return &buf, true, nil
}

func (h *Hams) gatherSafely() (families []*dto.MetricFamily, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Errorw("prometheus gatherer panicked", "panic", r)
			families, err = nil, ErrGathererPanicked
		}
	}()
	return h.gatherer.Gather()
}

// Start transitions Idle -> Running: it spawns the worker goroutine,
// which binds the HTTP surface and hosts the event loop. Start is only
// valid from Idle. A bind failure is not reported by Start: the worker
// exits, Done is closed, and Stop returns the wrapped ErrBindFailure.
func (h *Hams) Start(ctx context.Context) error {
	handler := hamshttp.New(h)
	server := &http.Server{
		Addr:    h.bindAddress,
		Handler: handler,
	}
	return h.lifecycle.start(ctx, server, h.shut, h.logger, h.gracePeriod)
}

// Stop transitions Running -> Stopping -> Idle: it cancels the worker
// goroutine and blocks until it has joined. Stop is only valid from
// Running.
func (h *Hams) Stop(ctx context.Context) error {
	err := h.lifecycle.stop(ctx)
	if err == nil {
		h.shut.Reset()
	}
	return err
}
