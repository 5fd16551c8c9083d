// Package ringchan provides a bounded channel that never blocks its writer.
package ringchan

import "sync/atomic"

// RingChannel is a bounded channel-like buffer with overwrite-oldest semantics.
//
// Writers never block: when the buffer is full the oldest element is
// discarded. Readers use C() like a normal channel, or TryReceive for
// metric tracking.
//
//	rc := ringchan.New[int](3)
//	for i := 0; i < 10; i++ {
//	    rc.ForceSend(i)
//	}
//	// rc.C() now yields 7, 8, 9
type RingChannel[T any] struct {
	ch      chan T
	metrics Metrics
}

// New creates a RingChannel with the given capacity.
func New[T any](capacity int) *RingChannel[T] {
	if capacity <= 0 {
		panic("ringchan: capacity must be > 0")
	}
	return &RingChannel[T]{ch: make(chan T, capacity)}
}

// C returns the underlying receive-only channel. Reads through C are not
// counted as Processed.
func (rc *RingChannel[T]) C() <-chan T {
	return rc.ch
}

// TrySend inserts without blocking and reports whether there was room.
func (rc *RingChannel[T]) TrySend(v T) bool {
	select {
	case rc.ch <- v:
		rc.metrics.written.Add(1)
		return true
	default:
		return false
	}
}

// ForceSend always succeeds immediately, discarding the oldest element if
// needed. It reports whether an element was discarded.
func (rc *RingChannel[T]) ForceSend(v T) bool {
	for {
		select {
		case rc.ch <- v:
			rc.metrics.written.Add(1)
			return false
		default:
		}

		// another reader may win the race for the oldest element; retry then
		select {
		case <-rc.ch:
			rc.metrics.overwritten.Add(1)
			select {
			case rc.ch <- v:
				rc.metrics.written.Add(1)
			default:
				continue
			}
			return true
		default:
		}
	}
}

// TryReceive attempts a non-blocking receive.
func (rc *RingChannel[T]) TryReceive() (v T, ok bool) {
	select {
	case v, ok = <-rc.ch:
		if ok {
			rc.metrics.processed.Add(1)
		}
		return v, ok
	default:
		var zero T
		return zero, false
	}
}

// Len returns the number of buffered elements.
func (rc *RingChannel[T]) Len() int {
	return len(rc.ch)
}

// Cap returns the channel capacity.
func (rc *RingChannel[T]) Cap() int {
	return cap(rc.ch)
}

// Close closes the underlying channel. Sending after Close panics.
func (rc *RingChannel[T]) Close() {
	close(rc.ch)
}

// Metrics returns a snapshot of the counters.
func (rc *RingChannel[T]) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		Processed:   rc.metrics.processed.Load(),
		Written:     rc.metrics.written.Load(),
		Overwritten: rc.metrics.overwritten.Load(),
	}
}

// Metrics tracks RingChannel activity.
type Metrics struct {
	processed   atomic.Int64
	written     atomic.Int64
	overwritten atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Processed   int64
	Written     int64
	Overwritten int64
}
