package radio

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// Adapter is the part of *bluetooth.Adapter the tinygo backend uses.
type Adapter interface {
	Enable() error
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

// AdapterFactory returns the adapter used by the tinygo backend (can be
// overridden in tests).
var AdapterFactory = func() Adapter {
	return bluetooth.DefaultAdapter
}

// advertisementFields is what the tinygo backend reads from a scan result.
type advertisementFields interface {
	Bytes() []byte
	ManufacturerData() []bluetooth.ManufacturerDataElement
	ServiceData() []bluetooth.ServiceDataElement
}

// TinyGo scans through tinygo.org/x/bluetooth (BlueZ over D-Bus on Linux,
// the native stack on boards).
type TinyGo struct {
	adapter Adapter
	opts    Options
	logger  *logrus.Logger

	mu       sync.Mutex
	enabled  bool
	scanning bool
	done     chan struct{}
}

// NewTinyGo creates the tinygo backend. The adapter is enabled on first scan.
func NewTinyGo(opts Options, logger *logrus.Logger) (*TinyGo, error) {
	if logger == nil {
		logger = logrus.New()
	}
	return &TinyGo{adapter: AdapterFactory(), opts: opts, logger: logger}, nil
}

func (t *TinyGo) StartScanning(handler Handler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.scanning {
		return ErrScanInProgress
	}
	if !t.enabled {
		if err := t.adapter.Enable(); err != nil {
			return fmt.Errorf("failed to enable BLE adapter: %w", NormalizeError(err))
		}
		t.enabled = true
	}

	done := make(chan struct{})
	started := make(chan struct{})
	errCh := make(chan error)
	go func() {
		defer close(done)
		err := t.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			handler(t.payload(result.AdvertisementPayload), clampRSSI(int(result.RSSI)))
		})
		if err != nil {
			reportScanError(t.logger, NormalizeError(err), errCh, started)
		}
	}()

	select {
	case err := <-errCh:
		<-done
		return err
	case <-time.After(scanStartGrace):
		close(started)
	}

	t.scanning = true
	t.done = done
	t.logger.Debug("tinygo scan started")
	return nil
}

func (t *TinyGo) StopScanning() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.scanning {
		return nil
	}
	t.scanning = false

	if err := t.adapter.StopScan(); err != nil {
		return NormalizeError(err)
	}
	<-t.done
	t.logger.Debug("tinygo scan stopped")
	return nil
}

func (t *TinyGo) payload(p advertisementFields) []byte {
	if p == nil {
		return nil
	}
	if raw := p.Bytes(); len(raw) > 0 {
		return raw
	}

	var manufacturer []byte
	if mds := p.ManufacturerData(); len(mds) > 0 {
		manufacturer = companyData(mds[0].CompanyID, mds[0].Data)
	}

	var services []serviceData
	for _, sd := range p.ServiceData() {
		if !sd.UUID.Is16Bit() {
			continue
		}
		id := sd.UUID.Get16Bit()
		services = append(services, serviceData{uuid: []byte{byte(id), byte(id >> 8)}, data: sd.Data})
	}

	return synthesize(manufacturer, services, t.opts.FallbackTxPower)
}
