// Package transport delivers sightings to the backend.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/beacond/internal/beacon"
)

// Transport sends one sighting. Implementations bound their own wall-clock
// time; a returned error means the sighting was not delivered.
type Transport interface {
	Send(ctx context.Context, s beacon.Sighting) error
}

// Transport kinds accepted by New.
const (
	KindLegacy = "legacy"
	KindHTTP   = "http"
	KindLog    = "log"
)

// Kinds lists the transport kinds accepted by New.
var Kinds = []string{KindLegacy, KindHTTP, KindLog}

var (
	ErrRequestTooLarge = errors.New("request does not fit the transmit buffer")
	ErrUnknownKind     = errors.New("unknown transport kind")
)

// Endpoint is the fixed backend address and submit resource.
type Endpoint struct {
	Host     string
	Port     int
	Resource string
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Options tunes the network transports.
type Options struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Linger       time.Duration // legacy: wait after the write before closing
	TxBufferSize int           // legacy: transmit buffer size in bytes
}

// DefaultOptions returns the stock timeouts.
func DefaultOptions() Options {
	return Options{
		DialTimeout:  3 * time.Second,
		WriteTimeout: 2 * time.Second,
		Linger:       DefaultLinger,
		TxBufferSize: DefaultTxBufferSize,
	}
}

// New creates a transport of the given kind.
func New(kind string, ep Endpoint, opts Options, logger *logrus.Logger) (Transport, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if kind != KindLog {
		if ep.Host == "" || ep.Port <= 0 || ep.Port > 65535 {
			return nil, fmt.Errorf("invalid backend endpoint %q", ep.Address())
		}
	}

	switch kind {
	case KindLegacy:
		return NewLegacyTCP(ep, opts, logger), nil
	case KindHTTP:
		return NewHTTP(ep, opts, logger), nil
	case KindLog:
		return NewLog(ep, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
