// Package signal provides interrupt handling for nixpr.
//
// Import rules:
//   - CAN import: std lib and zerolog only
//   - MUST NOT import: internal packages (to avoid circular dependencies)
package signal

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
)

// Guard defers interrupt signals for the duration of a critical section,
// typically workspace teardown. While the guard is active, SIGINT and
// SIGTERM are recorded and a warning is emitted instead of terminating the
// process; End restores normal signal delivery and reports whether an
// interrupt arrived.
//
// Usage:
//
//	g := signal.Begin(logger, "removing worktree")
//	defer g.End()
//
//	// ... teardown that must not be cut short ...
type Guard struct {
	logger  zerolog.Logger
	action  string
	sigChan chan os.Signal
	done    chan struct{}
	wg      sync.WaitGroup
	endOnce sync.Once

	mu          sync.Mutex
	interrupted bool
}

// Begin installs the deferring handler and starts watching for signals.
// The action string names the critical section in the warning message.
func Begin(logger zerolog.Logger, action string) *Guard {
	g := &Guard{
		logger: logger,
		action: action,
		// Buffer of 1 ensures signal.Notify doesn't drop signals if the
		// watcher is busy.
		sigChan: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}

	signal.Notify(g.sigChan, syscall.SIGINT, syscall.SIGTERM)
	g.wg.Add(1)
	go g.watch()

	return g
}

// End restores the previous signal disposition and returns true if an
// interrupt arrived while the guard was active. Safe to call more than once;
// subsequent calls only report the interrupted state.
func (g *Guard) End() bool {
	g.endOnce.Do(func() {
		signal.Stop(g.sigChan)
		close(g.done)
		g.wg.Wait()
	})

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interrupted
}

// Interrupted reports whether an interrupt has arrived so far.
func (g *Guard) Interrupted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interrupted
}

// watch records deferred signals until End is called. The handler's only job
// is to note the interrupt and warn the user; it never re-raises.
func (g *Guard) watch() {
	defer g.wg.Done()
	for {
		select {
		case <-g.done:
			return
		case sig := <-g.sigChan:
			g.mu.Lock()
			g.interrupted = true
			g.mu.Unlock()
			g.logger.Warn().
				Str("signal", sig.String()).
				Str("action", g.action).
				Msg("interrupt deferred: cleanup in progress, please wait")
		}
	}
}
