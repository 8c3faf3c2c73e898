package scan

import (
	"fmt"
	"time"
)

// Status is the terminal classification of one probe.
type Status int

const (
	NotFound Status = iota
	Confirmed
	Blocked
)

func (s Status) String() string {
	switch s {
	case Confirmed:
		return "confirmed"
	case Blocked:
		return "blocked"
	default:
		return "not_found"
	}
}

// Outcome is the single terminal result for one (variant, platform) pair.
type Outcome struct {
	Variant  string
	Platform string
	URL      string
	Status   Status

	// Attempts is the number of requests issued; zero when the variant was
	// rejected by the platform's regexCheck.
	Attempts   int
	StatusCode int // last status seen, 0 if no response arrived

	Failures []*TransportFailure
}

// TransportFailure records an attempt that produced no response: a dial or
// TLS error, a timeout, or a body that could not be read.
type TransportFailure struct {
	Platform string
	URL      string
	Attempt  int
	Err      error
}

func (f *TransportFailure) Error() string {
	return fmt.Sprintf("%s: attempt %d: %v", f.Platform, f.Attempt, f.Err)
}

func (f *TransportFailure) Unwrap() error { return f.Err }

// Backoff is a uniform jitter range.
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

type Config struct {
	// Concurrency bounds in-flight platform checks for one variant.
	Concurrency int
	// MaxRetries is the number of retries after the first attempt. Negative
	// values select DefaultMaxRetries.
	MaxRetries     int
	RequestTimeout time.Duration

	// RetryBackoff applies after a response that was neither confirmed nor
	// blocked; ErrorBackoff after a transport failure.
	RetryBackoff Backoff
	ErrorBackoff Backoff

	UserAgents   []string
	MaxBodyBytes int64
}

const (
	DefaultConcurrency    = 5
	DefaultMaxRetries     = 2
	DefaultRequestTimeout = 10 * time.Second
)

// DefaultConfig mirrors the probe policy the tool ships with.
func DefaultConfig() Config {
	return Config{
		Concurrency:    DefaultConcurrency,
		MaxRetries:     DefaultMaxRetries,
		RequestTimeout: DefaultRequestTimeout,
		RetryBackoff:   Backoff{Min: 400 * time.Millisecond, Max: 1200 * time.Millisecond},
		ErrorBackoff:   Backoff{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond},
		MaxBodyBytes:   2 << 20,
	}
}

type ValidationFailure struct {
	Platform  string
	Claimed   string
	Unclaimed string

	Used   Outcome
	Unused Outcome
	Err    error
}
