package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler cancels a context when SIGINT or SIGTERM arrives, so in-flight
// subprocess work stops cleanly and deferred teardown still runs. It
// complements Guard: the handler interrupts the work phase, the guard
// protects the teardown phase from a second interrupt.
type Handler struct {
	ctx         context.Context //nolint:containedctx // the handler owns the context lifecycle
	cancel      context.CancelFunc
	interrupted chan struct{}
	done        chan struct{}
	sigChan     chan os.Signal

	once     sync.Once
	stopOnce sync.Once
}

// NewHandler starts listening for SIGINT and SIGTERM. The first signal
// cancels the derived context and closes the Interrupted channel.
//
// Usage:
//
//	h := signal.NewHandler(ctx)
//	defer h.Stop()
//	ctx = h.Context()
func NewHandler(parent context.Context) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ctx:         ctx,
		cancel:      cancel,
		interrupted: make(chan struct{}),
		done:        make(chan struct{}),
		// Buffer of 1 ensures signal.Notify doesn't drop signals if the
		// listener is busy.
		sigChan: make(chan os.Signal, 1),
	}

	signal.Notify(h.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go h.listen()

	return h
}

// Context returns the cancellable context. All interruptible work should
// run under it.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Interrupted returns a channel that closes once a signal has arrived.
func (h *Handler) Interrupted() <-chan struct{} {
	return h.interrupted
}

// Stop detaches from signal delivery and cancels the context. Safe to call
// more than once.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigChan)
		close(h.done)
		h.cancel()
	})
}

// handleSignal cancels the context exactly once; later signals are drained
// but have no further effect.
func (h *Handler) handleSignal() {
	h.once.Do(func() {
		h.cancel()
		close(h.interrupted)
	})
}

// listen drains signals until Stop is called or the context ends.
func (h *Handler) listen() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.done:
			return
		case <-h.sigChan:
			h.handleSignal()
		}
	}
}
