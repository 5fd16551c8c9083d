package link

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// DialFunc opens a connection; it matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// ProbeOptions configures a ProbeProvider.
type ProbeOptions struct {
	Address  string        // host:port to dial, usually the backend
	Interval time.Duration // time between background probes
	Timeout  time.Duration // per-probe dial timeout
	Dial     DialFunc      // nil uses net.Dialer
}

// ProbeProvider infers link state by dialing a TCP endpoint.
//
// Background probes report only transitions. A probe requested through
// Reconnect always reports its outcome, so a failed attempt yields LinkLost
// and the Gate schedules the next one, the way a failed association does.
type ProbeProvider struct {
	opts   ProbeOptions
	events chan Event
	kick   chan struct{}
	up     atomic.Bool
	logger *logrus.Logger
}

// NewProbeProvider creates a ProbeProvider.
func NewProbeProvider(opts ProbeOptions, logger *logrus.Logger) (*ProbeProvider, error) {
	if opts.Address == "" {
		return nil, errors.New("probe address is required")
	}
	if _, _, err := net.SplitHostPort(opts.Address); err != nil {
		return nil, err
	}
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.Dial == nil {
		d := &net.Dialer{}
		opts.Dial = d.DialContext
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &ProbeProvider{
		opts:   opts,
		events: make(chan Event, 8),
		kick:   make(chan struct{}, 1),
		logger: logger,
	}, nil
}

func (p *ProbeProvider) Start(ctx context.Context) error {
	p.emit(ctx, LinkStarted)
	go p.loop(ctx)
	return nil
}

func (p *ProbeProvider) Events() <-chan Event {
	return p.events
}

func (p *ProbeProvider) Reconnect() error {
	select {
	case p.kick <- struct{}{}:
	default:
	}
	return nil
}

func (p *ProbeProvider) loop(ctx context.Context) {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probe(ctx, false)
		case <-p.kick:
			p.probe(ctx, true)
		}
	}
}

func (p *ProbeProvider) probe(ctx context.Context, requested bool) {
	probeCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	conn, err := p.opts.Dial(probeCtx, "tcp", p.opts.Address)
	if err == nil {
		_ = conn.Close()
	}
	if ctx.Err() != nil {
		return
	}

	ok := err == nil
	wasUp := p.up.Swap(ok)
	p.logger.WithFields(logrus.Fields{
		"address":   p.opts.Address,
		"reachable": ok,
		"requested": requested,
	}).Debug("Link probe")

	switch {
	case ok && (!wasUp || requested):
		p.emit(ctx, LinkAcquired)
	case !ok && (wasUp || requested):
		p.emit(ctx, LinkLost)
	}
}

func (p *ProbeProvider) emit(ctx context.Context, ev Event) {
	select {
	case p.events <- ev:
	case <-ctx.Done():
	}
}
