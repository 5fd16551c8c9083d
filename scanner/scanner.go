// Package scanner runs the periodic beacon scan cycle.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/beacond/internal/radio"
	"github.com/srg/beacond/internal/ringchan"
	"github.com/srg/beacond/internal/stats"
)

// Gate is the view of link state the scanner needs.
type Gate interface {
	WaitConnected(ctx context.Context) error
	LinkDown() <-chan struct{}
}

// CycleHook runs after every scan window, on the scanner goroutine.
type CycleHook func(ctx context.Context, summary CycleSummary)

// Options configures a Scanner.
type Options struct {
	Interval        time.Duration // time between cycle starts
	Window          time.Duration // how long the radio listens per cycle
	PauseOnLinkLoss bool          // end the window early when the link drops
	DeviceID        uint8
	DedupCapacity   int
}

// DefaultOptions returns the stock cycle timing.
func DefaultOptions() Options {
	return Options{
		Interval:      8 * time.Second,
		Window:        2 * time.Second,
		DeviceID:      1,
		DedupCapacity: DefaultDedupCapacity,
	}
}

// Validate checks the timing.
func (o Options) Validate() error {
	if o.Window <= 0 {
		return fmt.Errorf("scan window must be positive, got %s", o.Window)
	}
	if o.Interval < o.Window {
		return fmt.Errorf("scan interval %s is shorter than the scan window %s", o.Interval, o.Window)
	}
	if o.DedupCapacity < 0 {
		return fmt.Errorf("dedup capacity must not be negative, got %d", o.DedupCapacity)
	}
	return nil
}

// Scanner drives the scan cycle: wait for the link, listen for one window,
// then run the end-of-cycle hooks (typically a report).
type Scanner struct {
	cycle    *Cycle
	gate     Gate
	opts     Options
	hooks    []CycleHook
	events   *ringchan.RingChannel[CycleSummary]
	nextID   atomic.Uint32
	counters *stats.Counters
	logger   *logrus.Logger
}

// NewScanner creates a Scanner.
func NewScanner(opts Options, r radio.Provider, sink Sink, gate Gate, counters *stats.Counters, logger *logrus.Logger) (*Scanner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if r == nil || sink == nil || gate == nil {
		return nil, errors.New("scanner requires a radio, a sink and a gate")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if counters == nil {
		counters = stats.New()
	}

	return &Scanner{
		cycle: NewCycle(r, sink, CycleOptions{
			DeviceID:      opts.DeviceID,
			DedupCapacity: opts.DedupCapacity,
		}, counters, logger),
		gate:     gate,
		opts:     opts,
		events:   ringchan.New[CycleSummary](16),
		counters: counters,
		logger:   logger,
	}, nil
}

// OnCycleEnd registers a hook. Hooks must be registered before Run.
func (s *Scanner) OnCycleEnd(h CycleHook) {
	s.hooks = append(s.hooks, h)
}

// Events streams cycle summaries. Slow readers lose the oldest ones.
func (s *Scanner) Events() <-chan CycleSummary {
	return s.events.C()
}

// Cycle returns the underlying scan cycle.
func (s *Scanner) Cycle() *Cycle {
	return s.cycle
}

// Run starts a cycle immediately and then every Interval until ctx ends.
// A cycle that waits for the link delays the next one; missed ticks are
// skipped, never queued.
func (s *Scanner) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.logger.WithFields(logrus.Fields{
		"interval":           s.opts.Interval,
		"window":             s.opts.Window,
		"pause_on_link_loss": s.opts.PauseOnLinkLoss,
	}).Info("Scan cycle started")

	for {
		if _, err := s.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.WithError(err).Warn("Scan cycle failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle performs one cycle: wait for the link, scan for one window and
// run the hooks.
func (s *Scanner) RunCycle(ctx context.Context) (CycleSummary, error) {
	if err := s.gate.WaitConnected(ctx); err != nil {
		return CycleSummary{}, err
	}

	id := s.nextID.Add(1)
	if err := s.cycle.Begin(id); err != nil {
		return CycleSummary{ID: id}, err
	}

	var linkDown <-chan struct{}
	if s.opts.PauseOnLinkLoss {
		linkDown = s.gate.LinkDown()
	}

	window := time.NewTimer(s.opts.Window)
	endedEarly := false
	select {
	case <-window.C:
	case <-linkDown:
		endedEarly = true
		s.logger.WithField("cycle", id).Info("Link lost, ending scan window early")
	case <-ctx.Done():
	}
	window.Stop()

	summary, err := s.cycle.End()
	summary.EndedEarly = endedEarly
	s.counters.Inc(stats.Cycles)

	s.logger.WithFields(logrus.Fields{
		"cycle":      summary.ID,
		"observed":   summary.Observed,
		"beacons":    summary.Beacons,
		"duplicates": summary.Duplicates,
		"enqueued":   summary.Enqueued,
		"dropped":    summary.Dropped,
	}).Debug("Scan window closed")

	s.events.ForceSend(summary)

	if err != nil {
		return summary, err
	}
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}

	for _, h := range s.hooks {
		h(ctx, summary)
	}
	return summary, nil
}
