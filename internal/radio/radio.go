// Package radio delivers raw BLE advertisement payloads to the scan cycle.
//
// A Provider starts and stops scanning and calls a Handler for every
// advertisement it sees. Handlers run on the backend's goroutines and must
// not block.
package radio

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
)

// Handler receives one raw advertisement payload (AD structures) and its RSSI.
// raw is only valid for the duration of the call.
type Handler func(raw []byte, rssi int8)

// Provider is a radio scan backend.
type Provider interface {
	StartScanning(handler Handler) error
	StopScanning() error
}

// Backend names accepted by Open.
const (
	BackendGoBLE  = "goble"
	BackendTinyGo = "tinygo"
	BackendReplay = "replay"
)

// Backends lists the backend names accepted by Open.
var Backends = []string{BackendGoBLE, BackendTinyGo, BackendReplay}

// TxPowerUnknown marks a TX power level the backend did not report.
const TxPowerUnknown = 127

var (
	ErrRadioOff       = errors.New("bluetooth radio is off")
	ErrScanInProgress = errors.New("scan already in progress")
	ErrUnsupported    = errors.New("radio backend is not supported on this platform")
	ErrUnknownBackend = errors.New("unknown radio backend")
)

// Options configures a backend.
type Options struct {
	// AllowDuplicates asks the controller to report every advertisement
	// rather than the first per device.
	AllowDuplicates bool

	// FallbackTxPower is used when re-synthesizing a payload from a backend
	// that does not report TX power. TxPowerUnknown leaves the section out.
	FallbackTxPower int

	// ReplayFile is the capture file for the replay backend.
	ReplayFile string
}

// Open creates the named backend.
func Open(backend string, opts Options, logger *logrus.Logger) (Provider, error) {
	if logger == nil {
		logger = logrus.New()
	}

	switch backend {
	case BackendGoBLE:
		return NewGoBLE(opts, logger)
	case BackendTinyGo:
		return NewTinyGo(opts, logger)
	case BackendReplay:
		capture, err := LoadCapture(opts.ReplayFile)
		if err != nil {
			return nil, err
		}
		return NewReplay(capture, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// NormalizeError maps known BLE stack error messages to the package errors.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "is bluetooth turned on"),
		strings.Contains(msg, "bluetooth is turned off"),
		strings.Contains(msg, "powered off"),
		strings.Contains(msg, "rfkill"):
		return fmt.Errorf("%w: %v", ErrRadioOff, err)
	case strings.Contains(msg, "already scanning"),
		strings.Contains(msg, "scan already in progress"),
		strings.Contains(msg, "operation already in progress"):
		return fmt.Errorf("%w: %v", ErrScanInProgress, err)
	default:
		return err
	}
}

func clampRSSI(v int) int8 {
	switch {
	case v > math.MaxInt8:
		return math.MaxInt8
	case v < math.MinInt8:
		return math.MinInt8
	default:
		return int8(v)
	}
}
