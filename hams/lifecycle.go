package hams

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/PolecatWorks/hams-sub000/internal/hamslog"
	"github.com/PolecatWorks/hams-sub000/shutdown"
)

type runState int32

const (
	stateIdle runState = iota
	stateRunning
	stateStopping
)

// lifecycle is the Idle -> Running -> Stopping -> Idle state machine
// (C4) plus the event loop it drives (C5). It owns the cancellation
// token and the worker goroutine's completion channel; only stop()
// drains that channel.
type lifecycle struct {
	mu         sync.Mutex
	state      runState
	cancelFunc context.CancelFunc
	resultCh   chan error
	doneCh     chan struct{}
}

// start spawns the worker goroutine hosting the event loop. It is only
// valid from Idle.
func (l *lifecycle) start(ctx context.Context, server *http.Server, coordinator *shutdown.Coordinator, logger *hamslog.Logger, grace time.Duration) error {
	l.mu.Lock()
	if l.state != stateIdle {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	resultCh := make(chan error, 1)
	doneCh := make(chan struct{})
	l.state = stateRunning
	l.cancelFunc = cancel
	l.resultCh = resultCh
	l.doneCh = doneCh
	l.mu.Unlock()

	go runLoop(loopCtx, cancel, server, coordinator, logger, grace, resultCh, doneCh)
	return nil
}

// done returns a channel closed when the current (or most recently
// finished) worker goroutine exits, for embedders that want to block
// until HaMS stops on its own (e.g. via signal) without forcing a stop.
// Returns an already-closed channel when Idle.
func (l *lifecycle) done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.doneCh == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return l.doneCh
}

// stop cancels the worker goroutine and blocks until it joins. It is
// only valid from Running; on return the lifecycle is Idle again.
func (l *lifecycle) stop(ctx context.Context) error {
	l.mu.Lock()
	if l.state != stateRunning {
		l.mu.Unlock()
		return ErrNotRunning
	}
	l.state = stateStopping
	cancel := l.cancelFunc
	resultCh := l.resultCh
	l.mu.Unlock()

	cancel()

	var err error
	select {
	case err = <-resultCh:
	case <-ctx.Done():
		err = ctx.Err()
	}

	l.mu.Lock()
	l.state = stateIdle
	l.cancelFunc = nil
	l.resultCh = nil
	l.doneCh = nil
	l.mu.Unlock()

	return err
}

// cancel triggers the same cancellation path stop() does, without
// waiting for the join. Used by the /hams/shutdown HTTP handler, which
// runs concurrently with the event loop and cannot block on its own
// request goroutine. A no-op when not running.
func (l *lifecycle) cancel() {
	l.mu.Lock()
	cancel := l.cancelFunc
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// runLoop is the event loop (C5): a single select over the HTTP server's
// exit, the four shutdown signals (multiplexed onto one channel by
// signal.Notify — functionally the "whichever fires first" six-way wait
// of the design, since a Go channel is already a rendezvous point), and
// the cancellation token. Teardown is deterministic: cancel, then close
// HTTP, then fire the shutdown callback — never the other order.
func runLoop(ctx context.Context, cancel context.CancelFunc, server *http.Server, coordinator *shutdown.Coordinator, logger *hamslog.Logger, grace time.Duration, resultCh chan<- error, doneCh chan<- struct{}) {
	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		resultCh <- errors.Wrap(ErrBindFailure, err.Error())
		close(doneCh)
		return
	}

	serverErrc := make(chan error, 1)
	go func() {
		serverErrc <- server.Serve(listener)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
	defer signal.Stop(sigc)

	var serverAlreadyExited bool
	select {
	case <-serverErrc:
		serverAlreadyExited = true
	case sig := <-sigc:
		logger.Infow("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("cancellation requested, shutting down")
	}

	cancel() // idempotent: ensures the token is cancelled regardless of wake source

	if !serverAlreadyExited {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), grace)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("http server shutdown reported an error", "error", err)
		}
		shutdownCancel()
		<-serverErrc
	}

	coordinator.Fire(context.Background())
	logger.Info("event loop exited")
	resultCh <- nil
	close(doneCh)
}
