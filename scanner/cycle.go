package scanner

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/beacond/internal/beacon"
	"github.com/srg/beacond/internal/radio"
	"github.com/srg/beacond/internal/stats"
)

// ErrCycleActive is returned by Begin while a cycle is already running.
var ErrCycleActive = errors.New("scan cycle already active")

// Sink receives sightings. TryPush must not block.
type Sink interface {
	TryPush(beacon.Sighting) bool
}

// CycleSummary describes one finished scan window.
type CycleSummary struct {
	ID         uint32
	Started    time.Time
	Ended      time.Time
	EndedEarly bool // window cut short by link loss

	Observed   int // advertisements heard
	Beacons    int // advertisements that decoded as beacons
	Duplicates int
	Enqueued   int
	Dropped    int
}

// Duration returns how long the window was open.
func (s CycleSummary) Duration() time.Duration {
	return s.Ended.Sub(s.Started)
}

// Cycle runs scan windows: it decodes every advertisement the radio reports,
// drops repeats of a beacon within the window and hands new sightings to
// the sink.
//
// Radio callbacks may arrive on any goroutine. They are serialized by a
// short critical section that never blocks, and ignored outside a window.
type Cycle struct {
	radio    radio.Provider
	sink     Sink
	deviceID uint8
	counters *stats.Counters
	logger   *logrus.Logger

	mu      sync.Mutex
	active  bool
	dedup   *DedupWindow
	summary CycleSummary

	dropped atomic.Int64
}

// CycleOptions configures a Cycle.
type CycleOptions struct {
	DeviceID      uint8
	DedupCapacity int
}

// NewCycle creates a Cycle that scans with r and pushes sightings to sink.
func NewCycle(r radio.Provider, sink Sink, opts CycleOptions, counters *stats.Counters, logger *logrus.Logger) *Cycle {
	if logger == nil {
		logger = logrus.New()
	}
	if counters == nil {
		counters = stats.New()
	}
	return &Cycle{
		radio:    r,
		sink:     sink,
		deviceID: opts.DeviceID,
		counters: counters,
		logger:   logger,
		dedup:    NewDedupWindow(opts.DedupCapacity),
	}
}

// Begin opens the window for cycleID and starts scanning.
func (c *Cycle) Begin(cycleID uint32) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return ErrCycleActive
	}
	c.dedup.Reset()
	c.summary = CycleSummary{ID: cycleID, Started: time.Now()}
	c.active = true
	c.mu.Unlock()

	if err := c.radio.StartScanning(c.OnAdvertisementObserved); err != nil {
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()
		return fmt.Errorf("failed to start scanning: %w", err)
	}

	c.logger.WithField("cycle", cycleID).Debug("Scan window opened")
	return nil
}

// OnAdvertisementObserved handles one advertisement. It never blocks.
func (c *Cycle) OnAdvertisementObserved(raw []byte, rssi int8) {
	fields, err := beacon.Decode(raw)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	c.summary.Observed++

	switch {
	case errors.Is(err, beacon.ErrNotABeacon):
		c.counters.Inc(stats.NotBeacon)
		return
	case err != nil:
		c.counters.Inc(stats.Malformed)
		c.logger.WithError(err).Debug("Ignoring malformed beacon advertisement")
		return
	}
	c.counters.Inc(stats.Decoded)
	c.summary.Beacons++

	switch c.dedup.Insert(fields.BeaconID()) {
	case AlreadySeen:
		c.counters.Inc(stats.Duplicate)
		c.summary.Duplicates++
		return
	case WindowFull:
		c.counters.Inc(stats.DedupFull)
		return
	}

	sighting := beacon.NewSighting(fields, rssi, c.summary.ID, c.deviceID)
	if !c.sink.TryPush(sighting) {
		c.dropped.Add(1)
		c.counters.Inc(stats.Dropped)
		c.summary.Dropped++
		return
	}
	c.counters.Inc(stats.Enqueued)
	c.summary.Enqueued++
}

// End stops scanning and closes the window. Advertisements delivered after
// End returns are ignored.
func (c *Cycle) End() (CycleSummary, error) {
	c.mu.Lock()
	wasActive := c.active
	c.active = false
	c.summary.Ended = time.Now()
	summary := c.summary
	c.mu.Unlock()

	if !wasActive {
		return summary, nil
	}

	if err := c.radio.StopScanning(); err != nil {
		return summary, fmt.Errorf("failed to stop scanning: %w", err)
	}
	return summary, nil
}

// Dropped returns the number of sightings lost to a full queue since start.
func (c *Cycle) Dropped() int64 {
	return c.dropped.Load()
}
