// Package reporter drains the sighting queue and hands every sighting to the
// delivery transport.
//
// Delivery is at-most-once: a sighting that fails to send is logged and
// discarded. Sightings are delivered in queue order; concurrent drains are
// coalesced so two drains never interleave.
package reporter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/beacond/internal/beacon"
	"github.com/srg/beacond/internal/link"
	"github.com/srg/beacond/internal/stats"
	"github.com/srg/beacond/internal/transport"
)

// Source is the queue the reporter drains.
type Source interface {
	TryPop() (beacon.Sighting, bool)
	Len() int
}

// LinkState reports the current link state.
type LinkState interface {
	State() link.State
}

// Options configures a Reporter.
type Options struct {
	// Interval between periodic drains. Zero disables the periodic drain.
	Interval time.Duration
	// ItemDelay is the pause between two deliveries.
	ItemDelay time.Duration
	// RequireLink skips drains while the link is known to be down, leaving
	// sightings queued instead of failing them one by one.
	RequireLink bool
}

// DefaultOptions returns the stock cadence.
func DefaultOptions() Options {
	return Options{
		Interval:    10 * time.Second,
		ItemDelay:   100 * time.Millisecond,
		RequireLink: true,
	}
}

// Result describes one drain.
type Result struct {
	Delivered int
	Failed    int
	Coalesced bool // another drain was running; nothing was done
	Skipped   bool // link down; nothing was done
}

// Stats are the reporter totals since start.
type Stats struct {
	Delivered int64
	Failed    int64
	Drains    int64
	Coalesced int64
}

// Reporter delivers queued sightings.
type Reporter struct {
	src       Source
	transport transport.Transport
	link      LinkState
	opts      Options
	counters  *stats.Counters
	logger    *logrus.Logger

	draining sync.Mutex

	delivered atomic.Int64
	failed    atomic.Int64
	drains    atomic.Int64
	coalesced atomic.Int64
}

// New creates a Reporter. linkState may be nil when RequireLink is off.
func New(src Source, tr transport.Transport, linkState LinkState, opts Options, counters *stats.Counters, logger *logrus.Logger) (*Reporter, error) {
	if src == nil || tr == nil {
		return nil, errors.New("reporter requires a source and a transport")
	}
	if opts.RequireLink && linkState == nil {
		return nil, errors.New("reporter requires link state when RequireLink is set")
	}
	if opts.ItemDelay < 0 || opts.Interval < 0 {
		return nil, errors.New("reporter delays must not be negative")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if counters == nil {
		counters = stats.New()
	}
	return &Reporter{
		src:       src,
		transport: tr,
		link:      linkState,
		opts:      opts,
		counters:  counters,
		logger:    logger,
	}, nil
}

// DrainAndReport delivers queued sightings until the queue is empty or ctx
// ends. If a drain is already in progress it returns at once.
func (r *Reporter) DrainAndReport(ctx context.Context) Result {
	if !r.draining.TryLock() {
		r.coalesced.Add(1)
		return Result{Coalesced: true}
	}
	defer r.draining.Unlock()

	if r.opts.RequireLink && r.link.State() != link.Connected {
		if n := r.src.Len(); n > 0 {
			r.logger.WithField("queued", n).Debug("Link down, holding sightings")
		}
		return Result{Skipped: true}
	}

	r.drains.Add(1)
	var res Result

	for first := true; ; first = false {
		if !first {
			if r.src.Len() == 0 || !r.pause(ctx) {
				break
			}
		}

		s, ok := r.src.TryPop()
		if !ok {
			break
		}

		if err := r.transport.Send(ctx, s); err != nil {
			res.Failed++
			r.failed.Add(1)
			r.counters.Inc(stats.DeliveryFailed)
			r.logger.WithError(err).WithFields(logrus.Fields{
				"cycle":  s.ScanCycleID,
				"beacon": s.BeaconID.String(),
			}).Warn("Sighting delivery failed, discarding")
			continue
		}
		res.Delivered++
		r.delivered.Add(1)
		r.counters.Inc(stats.Delivered)
	}

	if res.Delivered+res.Failed > 0 {
		r.logger.WithFields(logrus.Fields{
			"delivered": res.Delivered,
			"failed":    res.Failed,
		}).Info("Report drained")
	}
	return res
}

// Trigger runs a drain on behalf of an event such as the end of a scan
// cycle. It has the signature of a scanner cycle hook argument.
func (r *Reporter) Trigger(ctx context.Context) {
	res := r.DrainAndReport(ctx)
	if res.Coalesced {
		r.logger.Debug("Report already in progress, trigger coalesced")
	}
}

// Run drains every Interval until ctx ends. With a zero Interval it returns
// immediately.
func (r *Reporter) Run(ctx context.Context) error {
	if r.opts.Interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	r.logger.WithField("interval", r.opts.Interval).Info("Periodic reporter started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.DrainAndReport(ctx)
		}
	}
}

// Stats returns the totals since start.
func (r *Reporter) Stats() Stats {
	return Stats{
		Delivered: r.delivered.Load(),
		Failed:    r.failed.Load(),
		Drains:    r.drains.Load(),
		Coalesced: r.coalesced.Load(),
	}
}

func (r *Reporter) pause(ctx context.Context) bool {
	if r.opts.ItemDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(r.opts.ItemDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
