//go:build !linux

package link

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// ErrNetlinkUnsupported is returned outside Linux.
var ErrNetlinkUnsupported = errors.New("netlink link provider is only available on linux")

// NetlinkProvider is unavailable on this platform.
type NetlinkProvider struct{}

func NewNetlinkProvider(string, *logrus.Logger) (*NetlinkProvider, error) {
	return nil, ErrNetlinkUnsupported
}

func (p *NetlinkProvider) Start(context.Context) error { return ErrNetlinkUnsupported }
func (p *NetlinkProvider) Events() <-chan Event        { return nil }
func (p *NetlinkProvider) Reconnect() error            { return ErrNetlinkUnsupported }
