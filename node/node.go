// Package node assembles a beacon node: it builds every component once from
// the configuration and runs the link, scan and report tasks until stopped.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/srg/beacond/internal/groutine"
	"github.com/srg/beacond/internal/link"
	"github.com/srg/beacond/internal/queue"
	"github.com/srg/beacond/internal/radio"
	"github.com/srg/beacond/internal/stats"
	"github.com/srg/beacond/internal/transport"
	"github.com/srg/beacond/pkg/config"
	"github.com/srg/beacond/reporter"
	"github.com/srg/beacond/scanner"
)

// Factories for the external collaborators (can be overridden in tests).
var (
	OpenRadio       = radio.Open
	NewTransport    = transport.New
	NewLinkProvider = newLinkProvider
)

// Node is one running beacon node.
type Node struct {
	cfg      *config.Config
	session  uuid.UUID
	counters *stats.Counters
	logger   *logrus.Logger

	gate      *link.Gate
	provider  link.Provider
	radio     radio.Provider
	queue     *queue.SightingQueue
	transport transport.Transport
	scanner   *scanner.Scanner
	reporter  *reporter.Reporter
}

// New builds a node. Any failure here is fatal for the process.
func New(cfg *config.Config, logger *logrus.Logger) (*Node, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = cfg.NewLogger()
	}

	n := &Node{
		cfg:      cfg,
		session:  uuid.New(),
		counters: stats.New(),
		logger:   logger,
	}
	logger.AddHook(&sessionHook{session: n.session.String()})

	var err error
	if n.queue, err = queue.NewSightingQueue(cfg.Queue.Capacity); err != nil {
		return nil, fmt.Errorf("failed to create sighting queue: %w", err)
	}

	n.gate = link.NewGate(link.GateOptions{
		Backoff:  backoffFor(cfg.Link),
		Counters: n.counters,
	}, logger)

	if n.provider, err = NewLinkProvider(cfg, logger); err != nil {
		return nil, fmt.Errorf("failed to create link provider: %w", err)
	}

	if n.transport, err = NewTransport(cfg.Backend.Transport, Endpoint(cfg), transportOptions(cfg), logger); err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	if n.radio, err = OpenRadio(cfg.Radio.Backend, radio.Options{
		AllowDuplicates: cfg.Radio.AllowDuplicates,
		FallbackTxPower: cfg.Radio.FallbackTxPower,
		ReplayFile:      cfg.Radio.ReplayFile,
	}, logger); err != nil {
		return nil, fmt.Errorf("failed to open radio: %w", err)
	}

	if n.scanner, err = scanner.NewScanner(scanner.Options{
		Interval:        cfg.Scan.Interval,
		Window:          cfg.Scan.Window,
		PauseOnLinkLoss: cfg.Scan.PauseOnLinkLoss,
		DeviceID:        cfg.DeviceID,
		DedupCapacity:   cfg.Scan.DedupCapacity,
	}, n.radio, n.queue, n.gate, n.counters, logger); err != nil {
		n.closeRadio()
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}

	if n.reporter, err = reporter.New(n.queue, n.transport, n.gate, reporter.Options{
		Interval:    cfg.Reporter.Interval,
		ItemDelay:   cfg.Reporter.ItemDelay,
		RequireLink: cfg.Reporter.RequireLink,
	}, n.counters, logger); err != nil {
		n.closeRadio()
		return nil, fmt.Errorf("failed to create reporter: %w", err)
	}

	n.scanner.OnCycleEnd(n.onCycleEnd)
	return n, nil
}

// Run runs the node until ctx ends or a task fails. A cancelled ctx is a
// normal shutdown and returns nil.
func (n *Node) Run(ctx context.Context) error {
	defer n.closeRadio()

	n.logger.WithFields(logrus.Fields{
		"device_id": n.cfg.DeviceID,
		"radio":     n.cfg.Radio.Backend,
		"link":      n.cfg.Link.Provider,
		"transport": n.cfg.Backend.Transport,
		"backend":   Endpoint(n.cfg).Address(),
	}).Info("Beacon node starting")

	g, _ := groutine.NewGroup(ctx, n.logger)
	g.Go("link", func(ctx context.Context) error {
		return n.gate.Run(ctx, n.provider)
	})
	g.Go("scan-cycle", n.scanner.Run)
	if n.cfg.Reporter.Interval > 0 {
		g.Go("reporter", n.reporter.Run)
	}

	err := g.Wait()
	n.logger.WithFields(n.counters.Fields()).Info("Beacon node stopped")

	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (n *Node) onCycleEnd(ctx context.Context, summary scanner.CycleSummary) {
	if n.cfg.Reporter.OnCycleEnd {
		n.reporter.Trigger(ctx)
	}
	if n.logger.IsLevelEnabled(logrus.DebugLevel) {
		n.logger.WithFields(n.counters.Fields()).WithField("cycle", summary.ID).Debug("Pipeline counters")
	}
}

func (n *Node) closeRadio() {
	if c, ok := n.radio.(io.Closer); ok {
		if err := c.Close(); err != nil {
			n.logger.WithError(err).Warn("Failed to close radio")
		}
	}
}

// Session returns the id attached to every log entry of this node.
func (n *Node) Session() uuid.UUID { return n.session }

// Counters returns the pipeline counters.
func (n *Node) Counters() *stats.Counters { return n.counters }

// Gate returns the link gate.
func (n *Node) Gate() *link.Gate { return n.gate }

// Scanner returns the scan cycle runner.
func (n *Node) Scanner() *scanner.Scanner { return n.scanner }

// Reporter returns the reporter.
func (n *Node) Reporter() *reporter.Reporter { return n.reporter }

// Queue returns the sighting queue.
func (n *Node) Queue() *queue.SightingQueue { return n.queue }

// Endpoint returns the backend endpoint of cfg.
func Endpoint(cfg *config.Config) transport.Endpoint {
	return transport.Endpoint{
		Host:     cfg.Backend.Host,
		Port:     cfg.Backend.Port,
		Resource: cfg.Backend.Resource,
	}
}

func transportOptions(cfg *config.Config) transport.Options {
	return transport.Options{
		DialTimeout:  cfg.Backend.DialTimeout,
		WriteTimeout: cfg.Backend.WriteTimeout,
		Linger:       cfg.Backend.Linger,
		TxBufferSize: cfg.Backend.TxBufferSize,
	}
}

func backoffFor(lc config.LinkConfig) link.Backoff {
	if lc.Backoff == config.BackoffExponential {
		return link.ExponentialBackoff{Base: lc.RetryDelay, Max: lc.MaxRetryDelay}
	}
	return link.FixedBackoff{Interval: lc.RetryDelay}
}

func newLinkProvider(cfg *config.Config, logger *logrus.Logger) (link.Provider, error) {
	switch cfg.Link.Provider {
	case config.LinkNetlink:
		p, err := link.NewNetlinkProvider(cfg.Link.Interface, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.LinkProbe:
		p, err := link.NewProbeProvider(link.ProbeOptions{
			Address:  Endpoint(cfg).Address(),
			Interval: cfg.Link.ProbeInterval,
			Timeout:  cfg.Link.ProbeTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.LinkStatic:
		return link.NewStaticProvider(), nil
	default:
		return nil, fmt.Errorf("unknown link provider %q", cfg.Link.Provider)
	}
}

// sessionHook tags every entry with the node session id.
type sessionHook struct {
	session string
}

func (h *sessionHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *sessionHook) Fire(e *logrus.Entry) error {
	if _, ok := e.Data["session"]; !ok {
		e.Data["session"] = h.session
	}
	return nil
}
