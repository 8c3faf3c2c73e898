package config

import (
	"github.com/tdh8316/probex/internal/httpx"
)

const (
	defaultConcurrency           = 5
	defaultMaxRetries            = 2
	defaultRequestTimeoutSeconds = 10
	defaultRetryBackoffMinMS     = 400
	defaultRetryBackoffMaxMS     = 1200
	defaultErrorBackoffMinMS     = 500
	defaultErrorBackoffMaxMS     = 1500
	defaultBrowserTimeoutSeconds = 15
	defaultRegistryUpdateURL     = "https://raw.githubusercontent.com/tdh8316/probex/main/internal/data/platforms.json"
	defaultLogLevel              = "warn"
	defaultLogFormat             = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Probe: Probe{
			Concurrency:           defaultConcurrency,
			MaxRetries:            defaultMaxRetries,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
			RetryBackoffMinMS:     defaultRetryBackoffMinMS,
			RetryBackoffMaxMS:     defaultRetryBackoffMaxMS,
			ErrorBackoffMinMS:     defaultErrorBackoffMinMS,
			ErrorBackoffMaxMS:     defaultErrorBackoffMaxMS,
			UserAgents:            append([]string(nil), httpx.DefaultUserAgents...),
			TorProxyURL:           httpx.DefaultTorProxyURL,
		},
		Browser: Browser{
			Enabled:        true,
			TimeoutSeconds: defaultBrowserTimeoutSeconds,
		},
		Registry: Registry{
			UpdateURL: defaultRegistryUpdateURL,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
