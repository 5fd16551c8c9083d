package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/beacond/internal/link"
	"github.com/srg/beacond/pkg/config"
)

func TestBackoffFor(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LinkConfig
		want link.Backoff
	}{
		{
			name: "fixed",
			cfg:  config.LinkConfig{Backoff: config.BackoffFixed, RetryDelay: 5 * time.Second},
			want: link.FixedBackoff{Interval: 5 * time.Second},
		},
		{
			name: "exponential",
			cfg:  config.LinkConfig{Backoff: config.BackoffExponential, RetryDelay: time.Second, MaxRetryDelay: time.Minute},
			want: link.ExponentialBackoff{Base: time.Second, Max: time.Minute},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, backoffFor(tt.cfg))
		})
	}
}

func TestNewLinkProvider(t *testing.T) {
	cfg := config.DefaultConfig()

	cfg.Link.Provider = config.LinkStatic
	p, err := newLinkProvider(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &link.StaticProvider{}, p)

	cfg.Link.Provider = config.LinkProbe
	p, err = newLinkProvider(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &link.ProbeProvider{}, p)

	cfg.Link.Provider = "carrier-pigeon"
	_, err = newLinkProvider(cfg, nil)
	assert.ErrorContains(t, err, "unknown link provider")
}

func TestEndpoint(t *testing.T) {
	ep := Endpoint(config.DefaultConfig())
	assert.Equal(t, "159.196.72.33:5000", ep.Address())
	assert.Equal(t, "rssi_submit", ep.Resource)
}
