package radio

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// CapturedAdvertisement is one recorded advertisement.
type CapturedAdvertisement struct {
	Data string `yaml:"data"` // hex encoded AD payload
	RSSI int8   `yaml:"rssi"`

	raw []byte
}

// Capture is a replayable recording of advertisements.
//
//	interval: 100ms
//	loop: true
//	advertisements:
//	  - data: "05ffffff4648 051646595001 020ac5"
//	    rssi: -67
type Capture struct {
	Interval       time.Duration           `yaml:"interval"`
	Loop           bool                    `yaml:"loop"`
	Advertisements []CapturedAdvertisement `yaml:"advertisements"`
}

// DefaultReplayInterval is the delay between replayed advertisements.
const DefaultReplayInterval = 50 * time.Millisecond

// LoadCapture reads a capture file.
func LoadCapture(path string) (*Capture, error) {
	if path == "" {
		return nil, errors.New("replay backend requires a capture file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture file: %w", err)
	}
	return ParseCapture(data)
}

// ParseCapture parses capture YAML. Whitespace inside hex data is ignored.
func ParseCapture(data []byte) (*Capture, error) {
	var c Capture
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse capture: %w", err)
	}
	if c.Interval <= 0 {
		c.Interval = DefaultReplayInterval
	}
	for i := range c.Advertisements {
		clean := strings.Join(strings.Fields(c.Advertisements[i].Data), "")
		raw, err := hex.DecodeString(clean)
		if err != nil {
			return nil, fmt.Errorf("advertisement %d: invalid hex data: %w", i, err)
		}
		c.Advertisements[i].raw = raw
	}
	return &c, nil
}

// Replay plays a Capture back as if it were heard over the air.
type Replay struct {
	capture *Capture
	logger  *logrus.Logger

	mu   sync.Mutex
	pos  int
	stop chan struct{}
	done chan struct{}
}

// NewReplay creates a replay backend. Each scan window continues where the
// previous one stopped.
func NewReplay(capture *Capture, logger *logrus.Logger) *Replay {
	if logger == nil {
		logger = logrus.New()
	}
	if capture.Interval <= 0 {
		capture.Interval = DefaultReplayInterval
	}
	return &Replay{capture: capture, logger: logger}
}

func (r *Replay) StartScanning(handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stop != nil {
		return ErrScanInProgress
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	go r.play(handler, r.stop, r.done)
	return nil
}

func (r *Replay) StopScanning() error {
	r.mu.Lock()
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

func (r *Replay) play(handler Handler, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.capture.Interval)
	defer ticker.Stop()

	for {
		adv, ok := r.next()
		if !ok {
			r.logger.Debug("Replay capture exhausted")
			return
		}
		handler(adv.raw, adv.RSSI)

		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (r *Replay) next() (CapturedAdvertisement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.capture.Advertisements)
	if n == 0 {
		return CapturedAdvertisement{}, false
	}
	if r.pos >= n {
		if !r.capture.Loop {
			return CapturedAdvertisement{}, false
		}
		r.pos = 0
	}
	adv := r.capture.Advertisements[r.pos]
	r.pos++
	return adv, true
}
