// Package config holds the node configuration: defaults, YAML loading,
// validation and the logger factory.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Link provider kinds.
const (
	LinkNetlink = "netlink"
	LinkProbe   = "probe"
	LinkStatic  = "static"
)

// Backoff policies.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

var (
	linkProviders   = []string{LinkNetlink, LinkProbe, LinkStatic}
	backoffPolicies = []string{BackoffFixed, BackoffExponential}
	radioBackends   = []string{"goble", "tinygo", "replay"}
	transportKinds  = []string{"legacy", "http", "log"}
)

// MaxQueueCapacity bounds queue.capacity.
const MaxQueueCapacity = 4096

// Config holds application configuration.
type Config struct {
	LogLevel string `yaml:"log_level" default:"info"`
	DeviceID uint8  `yaml:"device_id" default:"1"`

	Scan     ScanConfig     `yaml:"scan"`
	Queue    QueueConfig    `yaml:"queue"`
	Reporter ReporterConfig `yaml:"reporter"`
	Backend  BackendConfig  `yaml:"backend"`
	Link     LinkConfig     `yaml:"link"`
	Radio    RadioConfig    `yaml:"radio"`
}

// ScanConfig controls the scan cycle.
type ScanConfig struct {
	Interval        time.Duration `yaml:"interval" default:"8s"`
	Window          time.Duration `yaml:"window" default:"2s"`
	PauseOnLinkLoss bool          `yaml:"pause_on_link_loss" default:"false"`
	DedupCapacity   int           `yaml:"dedup_capacity" default:"20"`
}

// QueueConfig sizes the sighting queue.
type QueueConfig struct {
	Capacity int `yaml:"capacity" default:"10"`
}

// ReporterConfig controls delivery cadence.
type ReporterConfig struct {
	Interval    time.Duration `yaml:"interval" default:"10s"` // 0 disables the periodic drain
	ItemDelay   time.Duration `yaml:"item_delay" default:"100ms"`
	OnCycleEnd  bool          `yaml:"on_cycle_end" default:"true"`
	RequireLink bool          `yaml:"require_link" default:"true"`
}

// BackendConfig is the delivery endpoint and transport.
type BackendConfig struct {
	Host         string        `yaml:"host" default:"159.196.72.33"`
	Port         int           `yaml:"port" default:"5000"`
	Resource     string        `yaml:"resource" default:"rssi_submit"`
	Transport    string        `yaml:"transport" default:"legacy"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"3s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"2s"`
	Linger       time.Duration `yaml:"linger" default:"50ms"`
	TxBufferSize int           `yaml:"tx_buffer_size" default:"128"`
}

// LinkConfig selects how link state is observed and how reconnects back off.
type LinkConfig struct {
	Provider      string        `yaml:"provider" default:"probe"`
	Interface     string        `yaml:"interface" default:"wlan0"`
	ProbeInterval time.Duration `yaml:"probe_interval" default:"10s"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout" default:"2s"`
	Backoff       string        `yaml:"backoff" default:"fixed"`
	RetryDelay    time.Duration `yaml:"retry_delay" default:"5s"`
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" default:"1m"`
}

// RadioConfig selects the scan backend.
type RadioConfig struct {
	Backend         string `yaml:"backend" default:"goble"`
	AllowDuplicates bool   `yaml:"allow_duplicates" default:"false"`
	FallbackTxPower int    `yaml:"fallback_tx_power" default:"127"` // 127: none
	ReplayFile      string `yaml:"replay_file"`
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Level returns the parsed log level, InfoLevel if it does not parse.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		add("log_level: %v", err)
	}

	if c.Scan.Window <= 0 {
		add("scan.window must be positive")
	}
	if c.Scan.Interval < c.Scan.Window {
		add("scan.interval (%s) must not be shorter than scan.window (%s)", c.Scan.Interval, c.Scan.Window)
	}
	if c.Scan.DedupCapacity <= 0 {
		add("scan.dedup_capacity must be positive")
	}

	if c.Queue.Capacity <= 0 || c.Queue.Capacity > MaxQueueCapacity {
		add("queue.capacity must be in 1..%d", MaxQueueCapacity)
	}

	if c.Reporter.Interval < 0 || c.Reporter.ItemDelay < 0 {
		add("reporter intervals must not be negative")
	}
	if c.Reporter.Interval == 0 && !c.Reporter.OnCycleEnd {
		add("reporter: periodic and on_cycle_end drains are both disabled, nothing would be delivered")
	}

	if !slices.Contains(transportKinds, c.Backend.Transport) {
		add("backend.transport %q is not one of %v", c.Backend.Transport, transportKinds)
	}
	if c.Backend.Transport != "log" {
		if c.Backend.Host == "" {
			add("backend.host is required")
		}
		if c.Backend.Port <= 0 || c.Backend.Port > 65535 {
			add("backend.port %d is out of range", c.Backend.Port)
		}
	}

	if !slices.Contains(linkProviders, c.Link.Provider) {
		add("link.provider %q is not one of %v", c.Link.Provider, linkProviders)
	}
	if c.Link.Provider == LinkNetlink && c.Link.Interface == "" {
		add("link.interface is required for the netlink provider")
	}
	if !slices.Contains(backoffPolicies, c.Link.Backoff) {
		add("link.backoff %q is not one of %v", c.Link.Backoff, backoffPolicies)
	}
	if c.Link.RetryDelay <= 0 {
		add("link.retry_delay must be positive")
	}
	if c.Link.Backoff == BackoffExponential && c.Link.MaxRetryDelay < c.Link.RetryDelay {
		add("link.max_retry_delay must not be shorter than link.retry_delay")
	}

	if !slices.Contains(radioBackends, c.Radio.Backend) {
		add("radio.backend %q is not one of %v", c.Radio.Backend, radioBackends)
	}
	if c.Radio.Backend == "replay" && c.Radio.ReplayFile == "" {
		add("radio.replay_file is required for the replay backend")
	}
	if c.Radio.FallbackTxPower < -128 || c.Radio.FallbackTxPower > 127 {
		add("radio.fallback_tx_power must be in -128..127")
	}

	return errors.Join(errs...)
}

// NewLogger creates a configured logger instance.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
