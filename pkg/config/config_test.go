package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint8(1), cfg.DeviceID)

	assert.Equal(t, 8*time.Second, cfg.Scan.Interval)
	assert.Equal(t, 2*time.Second, cfg.Scan.Window)
	assert.False(t, cfg.Scan.PauseOnLinkLoss)
	assert.Equal(t, 20, cfg.Scan.DedupCapacity)

	assert.Equal(t, 10, cfg.Queue.Capacity)

	assert.Equal(t, 10*time.Second, cfg.Reporter.Interval)
	assert.Equal(t, 100*time.Millisecond, cfg.Reporter.ItemDelay)
	assert.True(t, cfg.Reporter.OnCycleEnd)

	assert.Equal(t, "159.196.72.33", cfg.Backend.Host)
	assert.Equal(t, 5000, cfg.Backend.Port)
	assert.Equal(t, "rssi_submit", cfg.Backend.Resource)
	assert.Equal(t, "legacy", cfg.Backend.Transport)
	assert.Equal(t, 50*time.Millisecond, cfg.Backend.Linger)

	assert.Equal(t, LinkProbe, cfg.Link.Provider)
	assert.Equal(t, BackoffFixed, cfg.Link.Backoff)
	assert.Equal(t, 5*time.Second, cfg.Link.RetryDelay)
	assert.Equal(t, time.Minute, cfg.Link.MaxRetryDelay)

	assert.Equal(t, "goble", cfg.Radio.Backend)
	assert.Equal(t, 127, cfg.Radio.FallbackTxPower)

	assert.NoError(t, cfg.Validate(), "defaults MUST be valid")
}

func TestParse_OverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
log_level: debug
device_id: 7
scan:
  window: 3s
backend:
  host: 10.0.0.2
  transport: http
link:
  provider: netlink
  interface: wlp2s0
`))
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, cfg.Level())
	assert.Equal(t, uint8(7), cfg.DeviceID)
	assert.Equal(t, 3*time.Second, cfg.Scan.Window)
	assert.Equal(t, 8*time.Second, cfg.Scan.Interval, "unset keys MUST keep their defaults")
	assert.Equal(t, "10.0.0.2", cfg.Backend.Host)
	assert.Equal(t, 5000, cfg.Backend.Port)
	assert.Equal(t, "http", cfg.Backend.Transport)
	assert.Equal(t, "wlp2s0", cfg.Link.Interface)
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beacond.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue:\n  capacity: 32\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Queue.Capacity)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = Parse([]byte("scan: [not, a, map]"))
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	out, err := DefaultConfig().YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "interval: 8s", "durations MUST render human readable")

	cfg, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"window longer than interval", func(c *Config) { c.Scan.Window = 9 * time.Second }, "must not be shorter than scan.window"},
		{"zero window", func(c *Config) { c.Scan.Window = 0 }, "scan.window must be positive"},
		{"zero dedup", func(c *Config) { c.Scan.DedupCapacity = 0 }, "dedup_capacity"},
		{"zero queue", func(c *Config) { c.Queue.Capacity = 0 }, "queue.capacity"},
		{"huge queue", func(c *Config) { c.Queue.Capacity = MaxQueueCapacity + 1 }, "queue.capacity"},
		{"no drains", func(c *Config) { c.Reporter.Interval = 0; c.Reporter.OnCycleEnd = false }, "both disabled"},
		{"unknown transport", func(c *Config) { c.Backend.Transport = "smtp" }, "backend.transport"},
		{"missing host", func(c *Config) { c.Backend.Host = "" }, "backend.host"},
		{"bad port", func(c *Config) { c.Backend.Port = 70000 }, "backend.port"},
		{"unknown provider", func(c *Config) { c.Link.Provider = "carrier" }, "link.provider"},
		{"netlink without interface", func(c *Config) { c.Link.Provider = LinkNetlink; c.Link.Interface = "" }, "link.interface"},
		{"unknown backoff", func(c *Config) { c.Link.Backoff = "random" }, "link.backoff"},
		{"zero retry", func(c *Config) { c.Link.RetryDelay = 0 }, "link.retry_delay"},
		{"exponential max below base", func(c *Config) {
			c.Link.Backoff = BackoffExponential
			c.Link.MaxRetryDelay = time.Second
		}, "max_retry_delay"},
		{"unknown radio", func(c *Config) { c.Radio.Backend = "sdr" }, "radio.backend"},
		{"replay without file", func(c *Config) { c.Radio.Backend = "replay" }, "replay_file"},
		{"tx power range", func(c *Config) { c.Radio.FallbackTxPower = 200 }, "fallback_tx_power"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("log transport needs no host", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Backend.Transport = "log"
		cfg.Backend.Host = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logLevel logrus.Level
	}{
		{name: "creates logger with debug level", level: "debug", logLevel: logrus.DebugLevel},
		{name: "creates logger with info level", level: "info", logLevel: logrus.InfoLevel},
		{name: "creates logger with warn level", level: "warn", logLevel: logrus.WarnLevel},
		{name: "creates logger with error level", level: "error", logLevel: logrus.ErrorLevel},
		{name: "falls back to info", level: "nonsense", logLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}

			logger := cfg.NewLogger()

			assert.NotNil(t, logger)
			assert.Equal(t, tt.logLevel, logger.GetLevel())

			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			assert.True(t, ok)
			assert.True(t, formatter.FullTimestamp)
			assert.Equal(t, time.RFC3339, formatter.TimestampFormat)
		})
	}
}
