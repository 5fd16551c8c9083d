package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/srg/beacond/internal/beacon"
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %s", e.Status)
}

// HTTP posts sightings with net/http and checks the response status.
type HTTP struct {
	ep     Endpoint
	client *http.Client
	logger *logrus.Logger
}

// NewHTTP creates the HTTP transport.
func NewHTTP(ep Endpoint, opts Options, logger *logrus.Logger) *HTTP {
	if logger == nil {
		logger = logrus.New()
	}
	return &HTTP{
		ep:     ep,
		client: &http.Client{Timeout: opts.DialTimeout + opts.WriteTimeout},
		logger: logger,
	}
}

// URL returns the submit URL for s.
func (t *HTTP) URL(s beacon.Sighting) string {
	return "http://" + t.ep.Address() + "/" + s.PathAndQuery(t.ep.Resource)
}

func (t *HTTP) Send(ctx context.Context, s beacon.Sighting) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL(s), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	t.logger.WithFields(logrus.Fields{
		"status": resp.StatusCode,
		"cycle":  s.ScanCycleID,
		"beacon": s.BeaconID.String(),
	}).Debug("Sighting sent")
	return nil
}
