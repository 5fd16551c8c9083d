// Package queue provides the bounded hand-off queue between the scan path and
// the reporting path.
package queue

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hedzr/go-ringbuf/v2/mpmc"

	"github.com/srg/beacond/internal/beacon"
)

// MaxCapacity guards against accidental misconfiguration.
const MaxCapacity = 4096

// ErrInvalidCapacity is returned by New for a zero or oversized capacity.
var ErrInvalidCapacity = errors.New("invalid queue capacity")

// Queue is a bounded multi-producer multi-consumer FIFO of values.
//
// Items are stored by value in a lock-free ring buffer. Push and pop never
// block: TryPush fails when the queue holds Cap items and leaves the
// contents untouched. The exact capacity is enforced with an atomic slot
// reservation in front of the ring, so it does not depend on the ring's
// power-of-two sizing.
type Queue[T any] struct {
	ring     mpmc.RingBuffer[T]
	capacity int64
	count    atomic.Int64 // reserved slots: items in the ring plus pushes in flight
	metrics  Metrics
}

// SightingQueue carries beacon sightings from the scan cycle to the reporter.
type SightingQueue = Queue[beacon.Sighting]

// New creates a Queue holding at most capacity items.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidCapacity, capacity, MaxCapacity)
	}
	return &Queue[T]{
		// one spare slot: the ring keeps one cell empty to tell full from empty
		ring:     mpmc.New[T](uint32(capacity + 1)),
		capacity: int64(capacity),
	}, nil
}

// NewSightingQueue creates a SightingQueue with the given capacity.
func NewSightingQueue(capacity int) (*SightingQueue, error) {
	return New[beacon.Sighting](capacity)
}

// TryPush appends item without blocking. It returns false, leaving the queue
// unchanged, when the queue is full.
func (q *Queue[T]) TryPush(item T) bool {
	for {
		n := q.count.Load()
		if n >= q.capacity {
			q.metrics.addRejected()
			return false
		}
		if q.count.CompareAndSwap(n, n+1) {
			break
		}
	}

	if err := q.ring.Enqueue(item); err != nil {
		q.count.Add(-1)
		q.metrics.addRejected()
		return false
	}
	q.metrics.addPushed()
	return true
}

// TryPop removes the oldest item without blocking. ok is false when no item
// is currently available.
func (q *Queue[T]) TryPop() (item T, ok bool) {
	item, err := q.ring.Dequeue()
	if err != nil {
		var zero T
		return zero, false
	}
	q.count.Add(-1)
	q.metrics.addPopped()
	return item, true
}

// DrainAll removes every currently available item and returns them in push order.
// Items pushed while draining may or may not be included.
func (q *Queue[T]) DrainAll() []T {
	n := q.Len()
	if n == 0 {
		return nil
	}
	return q.DrainInto(make([]T, 0, n))
}

// DrainInto appends currently available items to dst, oldest first, without
// growing it past its capacity. It returns the extended slice.
func (q *Queue[T]) DrainInto(dst []T) []T {
	for len(dst) < cap(dst) {
		item, ok := q.TryPop()
		if !ok {
			break
		}
		dst = append(dst, item)
	}
	return dst
}

// Len returns the number of items currently held, including pushes in flight.
func (q *Queue[T]) Len() int {
	return int(q.count.Load())
}

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int {
	return int(q.capacity)
}

// Metrics returns a snapshot of the queue counters.
func (q *Queue[T]) Metrics() Metrics {
	return Metrics{
		Pushed:   atomic.LoadInt64(&q.metrics.Pushed),
		Popped:   atomic.LoadInt64(&q.metrics.Popped),
		Rejected: atomic.LoadInt64(&q.metrics.Rejected),
	}
}

// Metrics are lock-free queue counters.
type Metrics struct {
	Pushed   int64
	Popped   int64
	Rejected int64
}

func (m *Metrics) addPushed()   { atomic.AddInt64(&m.Pushed, 1) }
func (m *Metrics) addPopped()   { atomic.AddInt64(&m.Popped, 1) }
func (m *Metrics) addRejected() { atomic.AddInt64(&m.Rejected, 1) }
