// Package stats keeps named, lock-free pipeline counters.
//
// Counters are created on first use and may be incremented from any
// goroutine, including radio driver callbacks.
package stats

import (
	"sort"
	"sync/atomic"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
)

// Well-known counter names.
const (
	Decoded        = "decoded"
	NotBeacon      = "not_beacon"
	Malformed      = "malformed"
	Duplicate      = "duplicate"
	DedupFull      = "dedup_full"
	Enqueued       = "enqueued"
	Dropped        = "dropped"
	Delivered      = "delivered"
	DeliveryFailed = "delivery_failed"
	LinkLost       = "link_lost"
	Cycles         = "cycles"
)

// Counters is a set of named monotonically increasing counters.
type Counters struct {
	m *hashmap.Map[string, *atomic.Int64]
}

// New creates an empty counter set.
func New() *Counters {
	return &Counters{m: hashmap.New[string, *atomic.Int64]()}
}

func (c *Counters) counter(name string) *atomic.Int64 {
	if v, ok := c.m.Get(name); ok {
		return v
	}
	v, _ := c.m.GetOrInsert(name, new(atomic.Int64))
	return v
}

// Inc adds one to the named counter and returns the new value.
func (c *Counters) Inc(name string) int64 {
	return c.counter(name).Add(1)
}

// Add adds n to the named counter and returns the new value.
func (c *Counters) Add(name string, n int64) int64 {
	return c.counter(name).Add(n)
}

// Get returns the current value of the named counter, zero if never touched.
func (c *Counters) Get(name string) int64 {
	if v, ok := c.m.Get(name); ok {
		return v.Load()
	}
	return 0
}

// Snapshot returns a copy of all counters.
func (c *Counters) Snapshot() map[string]int64 {
	out := make(map[string]int64, c.m.Len())
	c.m.Range(func(name string, v *atomic.Int64) bool {
		out[name] = v.Load()
		return true
	})
	return out
}

// Fields renders the counters as logrus fields in a stable order.
func (c *Counters) Fields() logrus.Fields {
	snap := c.Snapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make(logrus.Fields, len(names))
	for _, name := range names {
		fields[name] = snap[name]
	}
	return fields
}
