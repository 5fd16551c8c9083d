package transport

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/srg/beacond/internal/beacon"
)

// Log only logs what would have been sent.
type Log struct {
	ep     Endpoint
	logger *logrus.Logger
}

// NewLog creates a dry-run transport.
func NewLog(ep Endpoint, logger *logrus.Logger) *Log {
	if logger == nil {
		logger = logrus.New()
	}
	return &Log{ep: ep, logger: logger}
}

func (t *Log) Send(_ context.Context, s beacon.Sighting) error {
	t.logger.WithFields(logrus.Fields{
		"cycle":     s.ScanCycleID,
		"beacon":    s.BeaconID.String(),
		"rssi":      s.RSSI,
		"tx_power":  s.TxPower,
		"device_id": s.DeviceID,
		"request":   s.PathAndQuery(t.ep.Resource),
	}).Info("Sighting")
	return nil
}
