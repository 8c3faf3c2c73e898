package config

import (
	"net/url"

	"github.com/pkg/errors"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProbe(); err != nil {
		return err
	}
	if err := c.validateBrowser(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProbe() error {
	p := c.Probe
	if p.Concurrency < 1 {
		return errors.New("probe.concurrency must be at least 1")
	}
	if p.MaxRetries < 0 {
		return errors.New("probe.max_retries must not be negative")
	}
	if p.RequestTimeoutSeconds < 1 {
		return errors.New("probe.request_timeout_seconds must be at least 1")
	}
	if p.RetryBackoffMinMS < 0 || p.RetryBackoffMaxMS < p.RetryBackoffMinMS {
		return errors.Errorf("probe.retry_backoff range [%d, %d] is invalid", p.RetryBackoffMinMS, p.RetryBackoffMaxMS)
	}
	if p.ErrorBackoffMinMS < 0 || p.ErrorBackoffMaxMS < p.ErrorBackoffMinMS {
		return errors.Errorf("probe.error_backoff range [%d, %d] is invalid", p.ErrorBackoffMinMS, p.ErrorBackoffMaxMS)
	}
	if p.TorProxyURL != "" {
		if _, err := url.Parse(p.TorProxyURL); err != nil {
			return errors.Wrap(err, "probe.tor_proxy_url")
		}
	}
	return nil
}

func (c *Config) validateBrowser() error {
	if c.Browser.TimeoutSeconds < 1 {
		return errors.New("browser.timeout_seconds must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return errors.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "console", "text", "json":
	default:
		return errors.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
