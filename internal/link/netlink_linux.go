//go:build linux

package link

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jsimonetti/rtnetlink"
	"github.com/mdlayher/netlink"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// NetlinkProvider follows one network interface through rtnetlink
// notifications. Association is left to the OS (wpa_supplicant, DHCP); the
// provider only reports what it observes:
//
//	interface up                      -> LinkStarted
//	up, running and holding an IPv4   -> LinkAcquired
//	down, no carrier or address gone  -> LinkLost
type NetlinkProvider struct {
	iface   string
	events  chan Event
	tracker *linkTracker
	logger  *logrus.Logger

	// mu guards tracker and started; seed and receive run on different goroutines.
	mu      sync.Mutex
	started bool
}

// NewNetlinkProvider creates a provider for the named interface, e.g. "wlan0".
func NewNetlinkProvider(iface string, logger *logrus.Logger) (*NetlinkProvider, error) {
	if iface == "" {
		return nil, errors.New("netlink provider needs an interface name")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &NetlinkProvider{
		iface:   iface,
		events:  make(chan Event, 16),
		tracker: &linkTracker{},
		logger:  logger,
	}, nil
}

func (p *NetlinkProvider) Start(ctx context.Context) error {
	conn, err := rtnetlink.Dial(&netlink.Config{
		Groups: unix.RTMGRP_LINK | unix.RTMGRP_IPV4_IFADDR,
	})
	if err != nil {
		return fmt.Errorf("failed to open rtnetlink socket: %w", err)
	}

	// Nothing receives on conn yet, so the initial dump can share it.
	if err := p.seed(conn); err != nil {
		_ = conn.Close()
		return err
	}

	p.mu.Lock()
	p.started = true
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go p.receive(ctx, conn)
	return nil
}

func (p *NetlinkProvider) Events() <-chan Event {
	return p.events
}

// Reconnect re-reads the interface state; a link that came back without a
// notification is reported again. The dump runs on its own unicast socket
// while the notification socket stays owned by the receive loop.
func (p *NetlinkProvider) Reconnect() error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return nil
	}

	conn, err := rtnetlink.Dial(nil)
	if err != nil {
		return fmt.Errorf("failed to open rtnetlink query socket: %w", err)
	}
	defer conn.Close()
	return p.seed(conn)
}

// seed resolves the interface and reports its current state.
func (p *NetlinkProvider) seed(conn *rtnetlink.Conn) error {
	links, err := conn.Link.List()
	if err != nil {
		return fmt.Errorf("failed to list links: %w", err)
	}

	var found *rtnetlink.LinkMessage
	for i := range links {
		if links[i].Attributes != nil && links[i].Attributes.Name == p.iface {
			found = &links[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("interface %q not found", p.iface)
	}

	addrs, err := conn.Address.List()
	if err != nil {
		return fmt.Errorf("failed to list addresses: %w", err)
	}
	hasAddr := false
	for _, a := range addrs {
		if a.Index == found.Index && a.Family == unix.AF_INET {
			hasAddr = true
			break
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.publish(p.tracker.reset(found.Index, found.Flags, hasAddr))
	return nil
}

func (p *NetlinkProvider) receive(ctx context.Context, conn *rtnetlink.Conn) {
	for {
		msgs, raw, err := conn.Receive()
		if err != nil {
			if ctx.Err() == nil {
				p.logger.WithError(err).Warn("rtnetlink receive failed")
				p.publish([]Event{LinkLost})
			}
			return
		}

		p.mu.Lock()
		for i, m := range msgs {
			switch msg := m.(type) {
			case *rtnetlink.LinkMessage:
				p.publish(p.tracker.onLink(uint16(raw[i].Header.Type), msg.Index, msg.Flags))
			case *rtnetlink.AddressMessage:
				if msg.Family == unix.AF_INET {
					p.publish(p.tracker.onAddress(uint16(raw[i].Header.Type), msg.Index))
				}
			}
		}
		p.mu.Unlock()
	}
}

// publish never blocks; callers hold p.mu so events leave in tracker order.
func (p *NetlinkProvider) publish(evs []Event) {
	for _, ev := range evs {
		p.logger.WithFields(logrus.Fields{"iface": p.iface, "event": ev}).Debug("Netlink link event")
		select {
		case p.events <- ev:
		default:
			p.logger.WithField("event", ev).Warn("Link event dropped, gate is not keeping up")
		}
	}
}

// linkTracker turns rtnetlink notifications for one interface into link events.
type linkTracker struct {
	index   uint32
	up      bool
	running bool
	addr    bool
	usable  bool
}

func (t *linkTracker) reset(index, flags uint32, hasAddr bool) []Event {
	t.index = index
	t.up = flags&unix.IFF_UP != 0
	t.running = flags&unix.IFF_RUNNING != 0
	t.addr = hasAddr
	t.usable = false

	var evs []Event
	if t.up {
		evs = append(evs, LinkStarted)
	}
	return append(evs, t.evaluate()...)
}

func (t *linkTracker) onLink(msgType uint16, index, flags uint32) []Event {
	if index != t.index {
		return nil
	}
	if msgType == unix.RTM_DELLINK {
		flags = 0
	}

	wasUp := t.up
	t.up = flags&unix.IFF_UP != 0
	t.running = flags&unix.IFF_RUNNING != 0

	var evs []Event
	if t.up && !wasUp {
		evs = append(evs, LinkStarted)
	}
	return append(evs, t.evaluate()...)
}

func (t *linkTracker) onAddress(msgType uint16, index uint32) []Event {
	if index != t.index {
		return nil
	}
	switch msgType {
	case unix.RTM_NEWADDR:
		t.addr = true
	case unix.RTM_DELADDR:
		t.addr = false
	}
	return t.evaluate()
}

func (t *linkTracker) evaluate() []Event {
	usable := t.up && t.running && t.addr
	if usable == t.usable {
		return nil
	}
	t.usable = usable
	if usable {
		return []Event{LinkAcquired}
	}
	return []Event{LinkLost}
}
