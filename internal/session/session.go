// Package session sequences one scan: variants are probed one after another,
// each through the concurrent HTTP tier and then the sequential render tier.
package session

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tdh8316/probex/internal/confidence"
	"github.com/tdh8316/probex/internal/data"
	"github.com/tdh8316/probex/internal/logging"
	"github.com/tdh8316/probex/internal/render"
	"github.com/tdh8316/probex/internal/scan"
	"github.com/tdh8316/probex/internal/variant"
)

// ErrEmptySeed is returned before any probing when the identifier is blank.
var ErrEmptySeed = errors.New("username required")

type Tier string

const (
	TierHTTP    Tier = "http"
	TierBrowser Tier = "browser"
)

// Found is one confirmed account.
type Found struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Tier     Tier   `json:"tier"`
}

// Session is the summary of one invocation.
type Session struct {
	ID       string
	Seed     string
	Variants []string

	// Confirmed holds only variants with at least one hit.
	Confirmed map[string][]Found

	// Requests counts every HTTP attempt, retries included.
	Requests       atomic.Int64
	TotalConfirmed int
	Confidence     confidence.Level

	StartedAt time.Time
	Elapsed   time.Duration
}

type Options struct {
	Permutations bool
}

type EventKind int

const (
	EventVariant EventKind = iota
	EventFound
	EventNotFound
	EventBlocked
	EventVerifying
	EventBrowserFound
	EventBrowserFailed
)

// Event is a progress notification for the display layer.
type Event struct {
	Kind     EventKind
	Variant  string
	Platform string
	URL      string
	Err      error
}

// Prober is the HTTP tier.
type Prober interface {
	ScanVariant(ctx context.Context, variant string, platforms []data.Platform, requests *atomic.Int64) []scan.Outcome
}

// Verifier is the render tier.
type Verifier interface {
	Verify(ctx context.Context, platform, url string) render.Verdict
}

type Orchestrator struct {
	prober    Prober
	verifier  Verifier
	platforms []data.Platform
	log       logrus.FieldLogger

	// OnEvent receives progress in order, from the orchestrator's goroutine.
	OnEvent func(Event)

	now func() time.Time
}

func NewOrchestrator(p Prober, v Verifier, platforms []data.Platform, log logrus.FieldLogger) *Orchestrator {
	if log == nil {
		log = logging.Discard()
	}
	return &Orchestrator{
		prober:    p,
		verifier:  v,
		platforms: platforms,
		log:       log,
		now:       time.Now,
	}
}

func (o *Orchestrator) emit(e Event) {
	if o.OnEvent != nil {
		o.OnEvent(e)
	}
}

// Run scans every variant of seed to completion and returns the summary.
// Platform failures never abort the run.
func (o *Orchestrator) Run(ctx context.Context, seed string, opts Options) (*Session, error) {
	if strings.TrimSpace(seed) == "" {
		return nil, ErrEmptySeed
	}

	s := &Session{
		ID:        uuid.NewString(),
		Seed:      seed,
		Variants:  variant.ForSeed(seed, opts.Permutations),
		Confirmed: make(map[string][]Found),
		StartedAt: o.now(),
	}
	log := o.log.WithField("session", s.ID)
	log.WithFields(logrus.Fields{"seed": seed, "variants": len(s.Variants), "platforms": len(o.platforms)}).Info("scan started")

	for _, v := range s.Variants {
		found := o.scanVariant(ctx, s, v)
		if len(found) > 0 {
			s.Confirmed[v] = found
			s.TotalConfirmed += len(found)
		}
	}

	s.Confidence = confidence.FromCount(s.TotalConfirmed)
	s.Elapsed = o.now().Sub(s.StartedAt)
	log.WithFields(logrus.Fields{
		"confirmed":  s.TotalConfirmed,
		"requests":   s.Requests.Load(),
		"confidence": s.Confidence.String(),
		"elapsed":    s.Elapsed,
	}).Info("scan finished")
	return s, nil
}

func (o *Orchestrator) scanVariant(ctx context.Context, s *Session, v string) []Found {
	o.emit(Event{Kind: EventVariant, Variant: v})

	outcomes := o.prober.ScanVariant(ctx, v, o.platforms, &s.Requests)

	var found []Found
	var blocked []scan.Outcome
	for _, out := range outcomes {
		switch out.Status {
		case scan.Confirmed:
			found = append(found, Found{Platform: out.Platform, URL: out.URL, Tier: TierHTTP})
			o.emit(Event{Kind: EventFound, Variant: v, Platform: out.Platform, URL: out.URL})
		case scan.Blocked:
			blocked = append(blocked, out)
			o.emit(Event{Kind: EventBlocked, Variant: v, Platform: out.Platform, URL: out.URL})
		default:
			var err error
			if n := len(out.Failures); n > 0 {
				err = out.Failures[n-1]
			}
			o.emit(Event{Kind: EventNotFound, Variant: v, Platform: out.Platform, URL: out.URL, Err: err})
		}
	}

	// One browser at a time, after the HTTP pass.
	for _, out := range blocked {
		o.emit(Event{Kind: EventVerifying, Variant: v, Platform: out.Platform, URL: out.URL})
		verdict := o.verifier.Verify(ctx, out.Platform, out.URL)
		if verdict.Confirmed {
			found = append(found, Found{Platform: out.Platform, URL: out.URL, Tier: TierBrowser})
			o.emit(Event{Kind: EventBrowserFound, Variant: v, Platform: out.Platform, URL: out.URL})
			continue
		}
		var err error
		if verdict.Err != nil {
			err = verdict.Err
		}
		o.emit(Event{Kind: EventBrowserFailed, Variant: v, Platform: out.Platform, URL: out.URL, Err: err})
	}

	return found
}
