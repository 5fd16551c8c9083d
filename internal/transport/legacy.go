package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smallnest/ringbuffer"

	"github.com/srg/beacond/internal/beacon"
)

// DefaultTxBufferSize is the size of the legacy transmit buffer. Requests
// that do not fit are refused rather than truncated. 100 bytes, the old
// firmware size, overflows once cycle ids reach five digits.
const DefaultTxBufferSize = 128

// SegmentSize is the most the legacy transport hands the socket per write.
const SegmentSize = 32

// DefaultLinger is how long the legacy transport keeps the socket open after
// writing the request.
const DefaultLinger = 50 * time.Millisecond

// DialFunc opens a connection; it matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// LegacyTCP speaks the minimal HTTP/1.0 the backend has always accepted:
//
//	POST /<resource>?<query> HTTP/1.0\r\nHost: <host>:<port>\r\n\r\n
//
// Only connect and write are checked; the response is never read.
type LegacyTCP struct {
	ep     Endpoint
	opts   Options
	dial   DialFunc
	logger *logrus.Logger

	mu  sync.Mutex
	buf *ringbuffer.RingBuffer
	out []byte
}

// NewLegacyTCP creates the legacy transport.
func NewLegacyTCP(ep Endpoint, opts Options, logger *logrus.Logger) *LegacyTCP {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.TxBufferSize <= 0 {
		opts.TxBufferSize = DefaultTxBufferSize
	}
	d := &net.Dialer{Timeout: opts.DialTimeout}
	return &LegacyTCP{
		ep:     ep,
		opts:   opts,
		dial:   d.DialContext,
		logger: logger,
		buf:    ringbuffer.New(opts.TxBufferSize),
		out:    make([]byte, min(SegmentSize, opts.TxBufferSize)),
	}
}

// WithDialer replaces the dialer.
func (t *LegacyTCP) WithDialer(dial DialFunc) *LegacyTCP {
	t.dial = dial
	return t
}

// Request renders the request for s.
func (t *LegacyTCP) Request(s beacon.Sighting) string {
	return fmt.Sprintf("POST /%s HTTP/1.0\r\nHost: %s\r\n\r\n", s.PathAndQuery(t.ep.Resource), t.ep.Address())
}

func (t *LegacyTCP) Send(ctx context.Context, s beacon.Sighting) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	req := t.Request(s)
	// A failed send leaves a partial request behind; it is never resumed.
	t.buf.Reset()
	if _, err := t.buf.WriteString(req); err != nil {
		return fmt.Errorf("%w: %d bytes, buffer holds %d", ErrRequestTooLarge, len(req), t.opts.TxBufferSize)
	}

	conn, err := t.dial(ctx, "tcp", t.ep.Address())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.ep.Address(), err)
	}
	defer func() { _ = conn.Close() }()

	if t.opts.WriteTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(t.opts.WriteTimeout))
	}

	if sent, err := t.flush(conn); err != nil {
		return fmt.Errorf("failed to send request after %d of %d bytes: %w", sent, len(req), err)
	}

	t.logger.WithFields(logrus.Fields{
		"address": t.ep.Address(),
		"cycle":   s.ScanCycleID,
		"beacon":  s.BeaconID.String(),
		"rssi":    s.RSSI,
	}).Debug("Sighting sent")

	if t.opts.Linger > 0 {
		linger := time.NewTimer(t.opts.Linger)
		defer linger.Stop()
		select {
		case <-linger.C:
		case <-ctx.Done():
		}
	}
	return nil
}

// flush drains the transmit buffer into conn one segment at a time. Bytes
// leave the buffer only once the socket has accepted them.
func (t *LegacyTCP) flush(conn net.Conn) (int, error) {
	sent := 0
	for !t.buf.IsEmpty() {
		n, err := t.buf.Peek(t.out)
		if err != nil {
			return sent, fmt.Errorf("failed to read transmit buffer: %w", err)
		}
		w, werr := conn.Write(t.out[:n])
		if w > 0 {
			if _, err := t.buf.TryRead(t.out[:w]); err != nil {
				return sent, fmt.Errorf("failed to advance transmit buffer: %w", err)
			}
			sent += w
		}
		if werr != nil {
			return sent, werr
		}
	}
	return sent, nil
}
