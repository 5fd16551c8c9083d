package link

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultRetryDelay is the fixed delay between reconnection attempts.
const DefaultRetryDelay = 5 * time.Second

// Backoff decides how long to wait before reconnection attempt n (n >= 1).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// FixedBackoff waits the same interval before every attempt.
type FixedBackoff struct {
	Interval time.Duration
}

func (b FixedBackoff) Delay(int) time.Duration {
	if b.Interval <= 0 {
		return DefaultRetryDelay
	}
	return b.Interval
}

// DefaultJitter is the randomization factor of ExponentialBackoff: each delay
// is drawn from [d*(1-j), d*(1+j)] around the doubled interval d.
const DefaultJitter = 0.5

// maxDoublings bounds how often Delay steps the schedule; the interval is
// pinned at Max long before that.
const maxDoublings = 64

// ExponentialBackoff doubles the interval per attempt from Base up to Max and
// randomizes each delay by Jitter.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration

	// Jitter is the randomization factor; 0 uses DefaultJitter, negative
	// disables randomization.
	Jitter float64
}

func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	eb := b.schedule()
	var d time.Duration
	for i := 0; i < min(max(attempt, 1), maxDoublings); i++ {
		d = eb.NextBackOff()
	}
	return max(d, time.Millisecond)
}

func (b ExponentialBackoff) schedule() *backoff.ExponentialBackOff {
	base, maxDelay := b.Base, b.Max
	if base <= 0 {
		base = time.Second
	}
	if maxDelay < base {
		maxDelay = base
	}
	jitter := b.Jitter
	switch {
	case jitter == 0:
		jitter = DefaultJitter
	case jitter < 0:
		jitter = 0
	}

	eb := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: jitter,
		Multiplier:          2,
		MaxInterval:         maxDelay,
		MaxElapsedTime:      0, // retry forever
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	eb.Reset()
	return eb
}
