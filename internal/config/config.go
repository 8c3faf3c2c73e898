package config

import (
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/tdh8316/probex/internal/scan"
)

// Probe holds the HTTP tier policy.
type Probe struct {
	Concurrency           int      `toml:"concurrency"`
	MaxRetries            int      `toml:"max_retries"`
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
	RetryBackoffMinMS     int      `toml:"retry_backoff_min_ms"`
	RetryBackoffMaxMS     int      `toml:"retry_backoff_max_ms"`
	ErrorBackoffMinMS     int      `toml:"error_backoff_min_ms"`
	ErrorBackoffMaxMS     int      `toml:"error_backoff_max_ms"`
	UserAgents            []string `toml:"user_agents"`
	TorProxyURL           string   `toml:"tor_proxy_url"`
}

// Browser holds the render tier settings.
type Browser struct {
	Enabled        bool   `toml:"enabled"`
	ExecPath       string `toml:"exec_path"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// Headful shows the browser window, for solving challenges by hand.
	Headful        bool   `toml:"headful"`
}

// Registry locates the platform list.
type Registry struct {
	Path      string `toml:"path"`
	UpdateURL string `toml:"update_url"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type Config struct {
	Probe    Probe    `toml:"probe"`
	Browser  Browser  `toml:"browser"`
	Registry Registry `toml:"registry"`
	Logging  Logging  `toml:"logging"`
}

// Load returns defaults overlaid with the TOML file at path. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Registry.Path = strings.TrimSpace(c.Registry.Path)

	agents := c.Probe.UserAgents[:0]
	for _, ua := range c.Probe.UserAgents {
		if ua = strings.TrimSpace(ua); ua != "" {
			agents = append(agents, ua)
		}
	}
	c.Probe.UserAgents = agents
}

// ScanConfig converts the probe section for the scanner.
func (c Config) ScanConfig() scan.Config {
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	cfg := scan.DefaultConfig()
	cfg.Concurrency = c.Probe.Concurrency
	cfg.MaxRetries = c.Probe.MaxRetries
	cfg.RequestTimeout = time.Duration(c.Probe.RequestTimeoutSeconds) * time.Second
	cfg.RetryBackoff = scan.Backoff{Min: ms(c.Probe.RetryBackoffMinMS), Max: ms(c.Probe.RetryBackoffMaxMS)}
	cfg.ErrorBackoff = scan.Backoff{Min: ms(c.Probe.ErrorBackoffMinMS), Max: ms(c.Probe.ErrorBackoffMaxMS)}
	cfg.UserAgents = append([]string(nil), c.Probe.UserAgents...)
	return cfg
}

func (c Config) BrowserTimeout() time.Duration {
	return time.Duration(c.Browser.TimeoutSeconds) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Probe.RequestTimeoutSeconds) * time.Second
}
