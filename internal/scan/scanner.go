package scan

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/tdh8316/probex/internal/data"
	"github.com/tdh8316/probex/internal/httpx"
	"github.com/tdh8316/probex/internal/logging"
	"github.com/tdh8316/probex/internal/randx"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

type Scanner struct {
	client httpx.Doer
	cfg    Config
	rnd    randx.Source
	log    logrus.FieldLogger
	sleep  Sleeper

	// Cache compiled regexCheck per platform
	regexCache    sync.Map // platform name -> *regexp2.Regexp
	regexErrCache sync.Map // platform name -> error
}

type Option func(*Scanner)

// WithRand injects the source used for backoff jitter and User-Agent choice.
func WithRand(src randx.Source) Option {
	return func(s *Scanner) { s.rnd = src }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scanner) { s.log = l }
}

// WithSleeper replaces the backoff wait.
func WithSleeper(fn Sleeper) Option {
	return func(s *Scanner) { s.sleep = fn }
}

func NewScanner(client httpx.Doer, cfg Config, opts ...Option) *Scanner {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}

	s := &Scanner{
		client: client,
		cfg:    cfg,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = randx.NewUnseeded()
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	return s
}

// Config returns the effective configuration after defaults were applied.
func (s *Scanner) Config() Config {
	return s.cfg
}

// ScanVariant probes every platform for variant and returns one outcome per
// platform, in registry order. All platforms are launched together; the
// semaphore is the only limit on how many are in flight. Each attempt adds
// one to requests.
func (s *Scanner) ScanVariant(
	ctx context.Context,
	variant string,
	platforms []data.Platform,
	requests *atomic.Int64,
) []Outcome {
	outcomes := make([]Outcome, len(platforms))
	if len(platforms) == 0 {
		return outcomes
	}
	if requests == nil {
		requests = new(atomic.Int64)
	}

	// One User-Agent per pass, like a browser session.
	ua := httpx.PickUserAgent(s.rnd, s.cfg.UserAgents)
	gate := semaphore.NewWeighted(int64(s.cfg.Concurrency))

	var wg sync.WaitGroup
	wg.Add(len(platforms))
	for i, p := range platforms {
		go func() {
			defer wg.Done()
			if err := gate.Acquire(ctx, 1); err != nil {
				outcomes[i] = Outcome{Variant: variant, Platform: p.Name, URL: p.ProfileURL(variant)}
				return
			}
			defer gate.Release(1)
			outcomes[i] = s.Probe(ctx, variant, p, ua, requests)
		}()
	}
	wg.Wait()

	return outcomes
}

// Probe runs the retry loop for a single platform. Transport failures and
// inconclusive responses are retried up to MaxRetries times; exhausting the
// budget yields NotFound rather than an error.
func (s *Scanner) Probe(
	ctx context.Context,
	variant string,
	p data.Platform,
	userAgent string,
	requests *atomic.Int64,
) Outcome {
	out := Outcome{
		Variant:  variant,
		Platform: p.Name,
		URL:      p.ProfileURL(variant),
		Status:   NotFound,
	}
	log := s.log.WithFields(logrus.Fields{"platform": p.Name, "variant": variant})

	if p.RegexCheck != "" {
		re, err := s.getRegex(p.Name, p.RegexCheck)
		if err != nil {
			log.WithError(err).Warn("ignoring invalid regexCheck")
		} else if ok, err := re.MatchString(variant); err != nil {
			log.WithError(err).Warn("regexCheck match error")
		} else if !ok {
			// Username not valid for this platform => not found, no request.
			log.Debug("identifier rejected by regexCheck")
			return out
		}
	}

	attempts := s.cfg.MaxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		requests.Add(1)
		out.Attempts = attempt
		last := attempt == attempts

		code, body, markerPastLimit, err := s.fetch(ctx, out.URL, userAgent, p.Invalid)
		if err != nil {
			f := &TransportFailure{Platform: p.Name, URL: out.URL, Attempt: attempt, Err: err}
			out.Failures = append(out.Failures, f)
			log.WithField("attempt", attempt).WithError(err).Debug("transport failure")
			if !last {
				s.sleep(ctx, s.rnd.Between(s.cfg.ErrorBackoff.Min, s.cfg.ErrorBackoff.Max))
			}
			continue
		}

		out.StatusCode = code
		verdict := Classify(code, body, p.Invalid)
		if verdict == VerdictConfirmed && markerPastLimit {
			verdict = Retry
		}
		switch verdict {
		case VerdictConfirmed:
			out.Status = Confirmed
			log.WithFields(logrus.Fields{"attempt": attempt, "status": code}).Debug("confirmed")
			return out
		case VerdictBlocked:
			// Blocked is never retried here; the render tier decides.
			out.Status = Blocked
			log.WithFields(logrus.Fields{"attempt": attempt, "status": code}).Debug("blocked")
			return out
		}

		log.WithFields(logrus.Fields{"attempt": attempt, "status": code}).Debug("inconclusive response")
		if !last {
			s.sleep(ctx, s.rnd.Between(s.cfg.RetryBackoff.Min, s.cfg.RetryBackoff.Max))
		}
	}

	return out
}

// fetch returns the status and the first MaxBodyBytes of the body. Anything
// past the limit is streamed and only searched for the invalid markers.
func (s *Scanner) fetch(ctx context.Context, rawURL, userAgent string, invalid []string) (int, string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	req, err := httpx.NewRequest(ctx, http.MethodGet, rawURL, nil, userAgent)
	if err != nil {
		return 0, "", false, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		return 0, "", false, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) < s.cfg.MaxBodyBytes || resp.StatusCode != http.StatusOK {
		return resp.StatusCode, string(body), false, nil
	}

	// Carry the raw tail of the kept body so a marker split at the limit
	// is still found.
	found, err := markerInStream(resp.Body, tail(body, invalid), invalid)
	if err != nil {
		return 0, "", false, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, string(body), found, nil
}

const streamChunk = 32 << 10

// markerInStream reports whether any marker occurs case-insensitively in
// carry followed by the rest of r.
func markerInStream(r io.Reader, carry []byte, markers []string) (bool, error) {
	if len(markers) == 0 {
		_, err := io.Copy(io.Discard, r)
		return false, err
	}
	keep := overlap(markers)
	buf := make([]byte, streamChunk)
	window := append([]byte(nil), carry...)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			window = append(window, buf[:n]...)
			if containsAny(string(window), markers) {
				return true, nil
			}
			if len(window) > keep {
				window = append(window[:0], window[len(window)-keep:]...)
			}
		}
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
}

// overlap is how many trailing bytes must be kept between chunks so that no
// marker can straddle a boundary unseen.
func overlap(markers []string) int {
	n := 0
	for _, m := range markers {
		n = max(n, len(m))
	}
	return n + utf8.UTFMax
}

func tail(body []byte, markers []string) []byte {
	keep := overlap(markers)
	if len(body) <= keep {
		return body
	}
	return body[len(body)-keep:]
}

func (s *Scanner) getRegex(platform, expr string) (*regexp2.Regexp, error) {
	if v, ok := s.regexCache.Load(platform); ok {
		return v.(*regexp2.Regexp), nil
	}
	if v, ok := s.regexErrCache.Load(platform); ok {
		return nil, v.(error)
	}

	re, err := regexp2.Compile(expr, 0)
	if err != nil {
		s.regexErrCache.Store(platform, err)
		return nil, err
	}
	s.regexCache.Store(platform, re)
	return re, nil
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
