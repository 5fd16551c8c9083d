package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/beacond/internal/stats"
)

// ErrProviderClosed is returned by Run when the provider's event stream ends.
var ErrProviderClosed = errors.New("link provider event stream closed")

// Provider is an external connectivity driver. It performs its own
// association and reports the outcome as events; the Gate never drives
// association beyond asking for a reconnect.
type Provider interface {
	// Start begins link management. Events must be readable once Start returns.
	Start(ctx context.Context) error
	// Events streams link events until the provider stops.
	Events() <-chan Event
	// Reconnect requests a new association attempt. It must not block.
	Reconnect() error
}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Gate tracks link availability and gates work that needs the link.
//
// State changes happen under mu; the current State is mirrored in an atomic
// for lock-free snapshots. Waiters block on the connected channel, which is
// closed on entering Connected and replaced on leaving it.
type Gate struct {
	mu        sync.Mutex
	state     atomic.Int32
	connected chan struct{} // closed while Connected
	down      chan struct{} // closed when the current Connected period ends
	retry     *time.Timer
	retries   atomic.Int64

	backoff   Backoff
	reconnect func() error
	counters  *stats.Counters
	logger    *logrus.Logger
}

// GateOptions configures a Gate.
type GateOptions struct {
	Backoff  Backoff         // nil means FixedBackoff{DefaultRetryDelay}
	Counters *stats.Counters // optional
}

// NewGate creates a Gate in the Disconnected state.
func NewGate(opts GateOptions, logger *logrus.Logger) *Gate {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.Backoff == nil {
		opts.Backoff = FixedBackoff{Interval: DefaultRetryDelay}
	}
	if opts.Counters == nil {
		opts.Counters = stats.New()
	}
	g := &Gate{
		connected: make(chan struct{}),
		down:      closedCh,
		backoff:   opts.Backoff,
		reconnect: func() error { return nil },
		counters:  opts.Counters,
		logger:    logger,
	}
	g.state.Store(int32(Disconnected))
	return g
}

// State returns a snapshot of the current link state.
func (g *Gate) State() State {
	return State(g.state.Load())
}

// Retries returns the number of LinkLost events since the link was last acquired.
func (g *Gate) Retries() int64 {
	return g.retries.Load()
}

// WaitConnected blocks until the link is Connected. It returns nil at once if
// the link is already up and ctx.Err() if ctx ends first.
func (g *Gate) WaitConnected(ctx context.Context) error {
	for {
		g.mu.Lock()
		if g.State() == Connected {
			g.mu.Unlock()
			return nil
		}
		ch := g.connected
		g.mu.Unlock()

		select {
		case <-ch:
			// recheck: the link may have been lost again already
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// LinkDown returns a channel closed when the current Connected period ends.
// If the link is not Connected the returned channel is already closed.
func (g *Gate) LinkDown() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.down
}

// OnLinkEvent applies a link event. It never blocks: reconnection requests
// run on their own goroutine and retry delays on a timer.
func (g *Gate) OnLinkEvent(ev Event) {
	g.mu.Lock()
	from := g.State()
	var requestConnect bool

	switch ev {
	case LinkStarted:
		if from != Connected {
			g.stopRetryLocked()
			g.setStateLocked(Connecting)
			requestConnect = true
		}

	case LinkAcquired:
		g.stopRetryLocked()
		g.retries.Store(0)
		if from != Connected {
			g.setStateLocked(Connected)
		}

	case LinkLost:
		attempt := g.retries.Add(1)
		g.counters.Inc(stats.LinkLost)
		g.setStateLocked(Failed)
		g.scheduleRetryLocked(int(attempt))

	default:
		g.mu.Unlock()
		g.logger.WithField("event", ev).Warn("Ignoring unknown link event")
		return
	}

	to := g.State()
	g.mu.Unlock()

	g.logger.WithFields(logrus.Fields{
		"event":   ev,
		"from":    from,
		"to":      to,
		"retries": g.Retries(),
	}).Debug("Link event")

	if requestConnect {
		go g.requestConnect()
	}
}

// setStateLocked moves to s and maintains the waiter channels. g.mu must be held.
func (g *Gate) setStateLocked(s State) {
	prev := g.State()
	if prev == s {
		return
	}
	g.state.Store(int32(s))

	switch {
	case s == Connected:
		close(g.connected)
		g.down = make(chan struct{})
	case prev == Connected:
		g.connected = make(chan struct{})
		close(g.down)
		g.down = closedCh
	}
}

func (g *Gate) scheduleRetryLocked(attempt int) {
	g.stopRetryLocked()
	delay := g.backoff.Delay(attempt)

	g.logger.WithFields(logrus.Fields{
		"attempt": attempt,
		"delay":   delay,
	}).Info("Link lost, reconnecting")

	g.retry = time.AfterFunc(delay, func() {
		g.mu.Lock()
		if g.State() != Failed {
			g.mu.Unlock()
			return
		}
		g.setStateLocked(Connecting)
		g.retry = nil
		g.mu.Unlock()

		g.requestConnect()
	})
}

func (g *Gate) stopRetryLocked() {
	if g.retry != nil {
		g.retry.Stop()
		g.retry = nil
	}
}

func (g *Gate) requestConnect() {
	g.mu.Lock()
	reconnect := g.reconnect
	g.mu.Unlock()

	if err := reconnect(); err != nil {
		g.logger.WithError(err).Warn("Reconnect request failed")
	}
}

// Run starts p and feeds its events into the Gate until ctx ends.
// A Start failure is returned as-is; it is fatal for the caller.
func (g *Gate) Run(ctx context.Context, p Provider) error {
	g.mu.Lock()
	g.reconnect = p.Reconnect
	g.mu.Unlock()

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("failed to start link provider: %w", err)
	}

	defer func() {
		g.mu.Lock()
		g.stopRetryLocked()
		g.mu.Unlock()
	}()

	events := p.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return ErrProviderClosed
			}
			g.OnLinkEvent(ev)
		}
	}
}
