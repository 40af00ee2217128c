package hams

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/PolecatWorks/hams-sub000/probe"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestNew_EmptyName(t *testing.T) {
	if _, err := New(""); err != probe.ErrInvalidName {
		t.Errorf("New(\"\") error = %v, want %v", err, probe.ErrInvalidName)
	}
}

func TestHams_StartStop(t *testing.T) {
	h, err := New("sample", WithBindAddress(freeAddr(t)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := h.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestHams_StartTwiceIsAlreadyRunning(t *testing.T) {
	h, err := New("sample", WithBindAddress(freeAddr(t)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer h.Stop(context.Background())

	if err := h.Start(context.Background()); err != ErrAlreadyRunning {
		t.Errorf("second Start() error = %v, want %v", err, ErrAlreadyRunning)
	}
}

func TestHams_StopWithoutStartIsNotRunning(t *testing.T) {
	h, err := New("sample")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := h.Stop(context.Background()); err != ErrNotRunning {
		t.Errorf("Stop() error = %v, want %v", err, ErrNotRunning)
	}
}

func TestHams_BindFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer l.Close()

	h, err := New("sample", WithBindAddress(l.Addr().String()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() did not close after a bind failure")
	}

	if err := h.Stop(context.Background()); !errors.Is(err, ErrBindFailure) {
		t.Errorf("Stop() after bind failure error = %v, want wrapping %v", err, ErrBindFailure)
	}
}

func TestHams_RequestShutdownFiresCallbackOnce(t *testing.T) {
	h, err := New("sample", WithBindAddress(freeAddr(t)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var fired int32
	if err := h.RegisterShutdown(func(context.Context) {
		atomic.AddInt32(&fired, 1)
	}); err != nil {
		t.Fatalf("RegisterShutdown() error = %v", err)
	}

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	h.RequestShutdown()

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done() did not close after RequestShutdown")
	}

	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("shutdown callback fired %d times, want 1", got)
	}

	if err := h.Stop(context.Background()); err != nil {
		t.Errorf("Stop() after natural shutdown error = %v, want nil", err)
	}
}

func TestHams_CheckAliveAndReady(t *testing.T) {
	h, err := New("sample")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ready, err := probe.NewManual("gate", false)
	if err != nil {
		t.Fatalf("NewManual() error = %v", err)
	}
	h.InsertReady(ready)

	result := h.CheckReady(context.Background(), time.Now(), false)
	if result.Valid {
		t.Error("CheckReady() = true before gate is enabled, want false")
	}

	ready.Enable()
	result = h.CheckReady(context.Background(), time.Now(), false)
	if !result.Valid {
		t.Error("CheckReady() = false after gate is enabled, want true")
	}

	aliveResult := h.CheckAlive(context.Background(), time.Now(), false)
	if !aliveResult.Valid {
		t.Error("CheckAlive() = false with no registered probes, want true (vacuous AND)")
	}
}

func TestHams_RegisterPrometheusTwiceFails(t *testing.T) {
	h, err := New("sample")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	gatherer := prometheus.NewRegistry()
	if err := h.RegisterPrometheus(gatherer); err != nil {
		t.Fatalf("RegisterPrometheus() error = %v", err)
	}
	if err := h.RegisterPrometheus(gatherer); err == nil {
		t.Error("second RegisterPrometheus() error = nil, want non-nil")
	}
}

func TestHams_MetricsUnregistered(t *testing.T) {
	h, err := New("sample")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, registered, err := h.Metrics(context.Background())
	if err != nil {
		t.Fatalf("Metrics() error = %v", err)
	}
	if registered {
		t.Error("Metrics() registered = true with no Gatherer registered, want false")
	}
}

type panickingGatherer struct{}

func (panickingGatherer) Gather() ([]*dto.MetricFamily, error) {
	panic("gatherer exploded")
}

func TestHams_MetricsPanicDoesNotCrash(t *testing.T) {
	h, err := New("sample")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := h.RegisterPrometheus(panickingGatherer{}); err != nil {
		t.Fatalf("RegisterPrometheus() error = %v", err)
	}

	_, registered, err := h.Metrics(context.Background())
	if !registered {
		t.Error("Metrics() registered = false with a Gatherer registered, want true")
	}
	if !errors.Is(err, ErrGathererPanicked) {
		t.Errorf("Metrics() error = %v, want wrapping %v", err, ErrGathererPanicked)
	}
}

func TestHams_PanickingProbeDegradesInsteadOfCrashing(t *testing.T) {
	h, err := New("sample")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	flaky, err := probe.NewFunc("flaky", func(context.Context, time.Time) (bool, error) {
		panic("evaluator exploded")
	})
	if err != nil {
		t.Fatalf("NewFunc() error = %v", err)
	}
	h.InsertAlive(flaky)

	result := h.CheckAlive(context.Background(), time.Now(), true)
	if result.Valid {
		t.Error("CheckAlive() = true with a panicking probe, want false")
	}
	if len(result.Details) != 1 || result.Details[0].Valid {
		t.Errorf("CheckAlive() Details = %+v, want one false entry for the poisoned probe", result.Details)
	}
}

func TestHams_PanickingShutdownCallbackDoesNotCrashWorker(t *testing.T) {
	h, err := New("sample", WithBindAddress(freeAddr(t)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := h.RegisterShutdown(func(context.Context) {
		panic("shutdown callback exploded")
	}); err != nil {
		t.Fatalf("RegisterShutdown() error = %v", err)
	}

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	h.RequestShutdown()

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done() did not close after a panicking shutdown callback")
	}

	if err := h.Stop(context.Background()); err != nil {
		t.Errorf("Stop() after a panicking shutdown callback error = %v, want nil", err)
	}
}
