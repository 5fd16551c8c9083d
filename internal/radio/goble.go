package radio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
)

// ScanDevice is the part of ble.Device the go-ble backend uses.
type ScanDevice interface {
	Scan(ctx context.Context, allowDup bool, h ble.AdvHandler) error
	Stop() error
}

// DeviceFactory opens the platform HCI device (can be overridden in tests).
//
//nolint:revive // name kept for symmetry with ble device factories
var DeviceFactory = func() (ScanDevice, error) {
	return newPlatformDevice()
}

// scanStartGrace is how long StartScanning waits for an immediate scan failure.
var scanStartGrace = 50 * time.Millisecond

// reportScanError hands err to StartScanning while it is still waiting out
// the grace period; afterwards nobody reads errCh and the error is logged.
func reportScanError(logger *logrus.Logger, err error, errCh chan<- error, started <-chan struct{}) {
	select {
	case errCh <- err:
	case <-started:
		logger.WithError(err).Error("Scan stopped unexpectedly")
	}
}

// rawAdvertisement is implemented by go-ble advertisements that keep the
// packet they were parsed from (HCI on Linux).
type rawAdvertisement interface {
	Data() []byte
}

// GoBLE scans through go-ble/ble.
type GoBLE struct {
	dev    ScanDevice
	opts   Options
	logger *logrus.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewGoBLE opens the platform BLE device.
func NewGoBLE(opts Options, logger *logrus.Logger) (*GoBLE, error) {
	if logger == nil {
		logger = logrus.New()
	}
	dev, err := DeviceFactory()
	if err != nil {
		return nil, NormalizeError(err)
	}
	return &GoBLE{dev: dev, opts: opts, logger: logger}, nil
}

func (g *GoBLE) StartScanning(handler Handler) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancel != nil {
		return ErrScanInProgress
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	started := make(chan struct{})
	errCh := make(chan error)

	go func() {
		defer close(done)
		err := g.dev.Scan(ctx, g.opts.AllowDuplicates, func(a ble.Advertisement) {
			handler(g.payload(a), clampRSSI(a.RSSI()))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			reportScanError(g.logger, NormalizeError(err), errCh, started)
		}
	}()

	select {
	case err := <-errCh:
		cancel()
		<-done
		return err
	case <-time.After(scanStartGrace):
		close(started)
	}

	g.cancel = cancel
	g.done = done
	g.logger.WithField("allow_duplicates", g.opts.AllowDuplicates).Debug("go-ble scan started")
	return nil
}

func (g *GoBLE) StopScanning() error {
	g.mu.Lock()
	cancel, done := g.cancel, g.done
	g.cancel, g.done = nil, nil
	g.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	g.logger.Debug("go-ble scan stopped")
	return nil
}

// Close releases the HCI device.
func (g *GoBLE) Close() error {
	_ = g.StopScanning()
	return NormalizeError(g.dev.Stop())
}

func (g *GoBLE) payload(a ble.Advertisement) []byte {
	if r, ok := a.(rawAdvertisement); ok {
		if data := r.Data(); len(data) > 0 {
			return data
		}
	}

	var services []serviceData
	for _, sd := range a.ServiceData() {
		services = append(services, serviceData{uuid: sd.UUID, data: sd.Data})
	}

	tx := a.TxPowerLevel()
	if tx == TxPowerUnknown {
		tx = g.opts.FallbackTxPower
	}
	return synthesize(a.ManufacturerData(), services, tx)
}
