package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdh8316/probex/internal/scan"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "probex.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_MatchesScannerPolicy(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	sc := cfg.ScanConfig()
	def := scan.DefaultConfig()
	assert.Equal(t, def.Concurrency, sc.Concurrency)
	assert.Equal(t, def.MaxRetries, sc.MaxRetries)
	assert.Equal(t, def.RequestTimeout, sc.RequestTimeout)
	assert.Equal(t, def.RetryBackoff, sc.RetryBackoff)
	assert.Equal(t, def.ErrorBackoff, sc.ErrorBackoff)
	assert.Len(t, sc.UserAgents, 3)
	assert.Equal(t, 15*time.Second, cfg.BrowserTimeout())
	assert.True(t, cfg.Browser.Enabled)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("  ")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := writeConfig(t, `
[probe]
concurrency = 8
max_retries = 0
user_agents = ["  probex/1.0 ", ""]

[browser]
enabled = false
exec_path = "/usr/bin/chromium"
headful = true

[logging]
level = "DEBUG"
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Probe.Concurrency)
	assert.Equal(t, 0, cfg.Probe.MaxRetries)
	assert.Equal(t, []string{"probex/1.0"}, cfg.Probe.UserAgents)
	assert.Equal(t, defaultRequestTimeoutSeconds, cfg.Probe.RequestTimeoutSeconds)
	assert.False(t, cfg.Browser.Enabled)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.ExecPath)
	assert.True(t, cfg.Browser.Headful)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[probe\nconcurrency = 1"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[probe]\nconcurrency = 0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probe.concurrency")
}

func TestValidate(t *testing.T) {
	mutate := map[string]func(*Config){
		"negative retries":  func(c *Config) { c.Probe.MaxRetries = -1 },
		"zero timeout":      func(c *Config) { c.Probe.RequestTimeoutSeconds = 0 },
		"inverted backoff":  func(c *Config) { c.Probe.RetryBackoffMinMS, c.Probe.RetryBackoffMaxMS = 900, 100 },
		"negative backoff":  func(c *Config) { c.Probe.ErrorBackoffMinMS = -5 },
		"browser timeout":   func(c *Config) { c.Browser.TimeoutSeconds = 0 },
		"unknown level":     func(c *Config) { c.Logging.Level = "loud" },
		"unknown format":    func(c *Config) { c.Logging.Format = "xml" },
		"bad tor proxy url": func(c *Config) { c.Probe.TorProxyURL = "socks5://%zz" },
	}
	for name, fn := range mutate {
		cfg := Default()
		fn(&cfg)
		err := cfg.Validate()
		require.Error(t, err, name)

		// Validation errors carry a stack like the rest of the package.
		_, ok := err.(interface{ StackTrace() errors.StackTrace })
		assert.True(t, ok, name)
	}
}
