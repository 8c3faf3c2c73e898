// Package render is the slow verification tier: it loads a profile page in
// an isolated headless browser and judges the rendered document.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/tdh8316/probex/internal/logging"
)

const (
	// MinContentLength is the rendered character count a page must exceed to
	// be taken as a profile.
	MinContentLength = 1000

	loginMarker = "login"
)

// ErrNoRenderer is reported when the browser tier is disabled.
var ErrNoRenderer = errors.New("browser verification disabled")

// Renderer loads url and returns the rendered document.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// RenderFailure wraps any error raised while rendering: launch, navigation,
// timeout or a browser crash.
type RenderFailure struct {
	Platform string
	URL      string
	Err      error
}

func (f *RenderFailure) Error() string {
	return fmt.Sprintf("render %s (%s): %v", f.Platform, f.URL, f.Err)
}

func (f *RenderFailure) Unwrap() error { return f.Err }

type Verdict struct {
	Confirmed bool
	LoginWall bool
	Length    int
	Err       *RenderFailure
}

// Decide applies the rendered-content rule: a login prompt anywhere means the
// page is walled and proves nothing; otherwise a long enough page is a
// profile.
func Decide(content string) Verdict {
	v := Verdict{Length: utf8.RuneCountInString(content)}
	if strings.Contains(strings.ToLower(content), loginMarker) {
		v.LoginWall = true
		return v
	}
	v.Confirmed = v.Length > MinContentLength
	return v
}

type Verifier struct {
	renderer Renderer
	log      logrus.FieldLogger
}

func NewVerifier(r Renderer, log logrus.FieldLogger) *Verifier {
	if log == nil {
		log = logging.Discard()
	}
	return &Verifier{renderer: r, log: log}
}

// Verify renders url once and decides. Errors never escape; they come back
// as an unconfirmed verdict carrying the failure.
func (v *Verifier) Verify(ctx context.Context, platform, url string) (verdict Verdict) {
	log := v.log.WithFields(logrus.Fields{"platform": platform, "url": url})

	defer func() {
		if r := recover(); r != nil {
			verdict = Verdict{Err: &RenderFailure{Platform: platform, URL: url, Err: fmt.Errorf("renderer panic: %v", r)}}
			log.WithError(verdict.Err).Warn("render failed")
		}
	}()

	if v.renderer == nil {
		return Verdict{Err: &RenderFailure{Platform: platform, URL: url, Err: ErrNoRenderer}}
	}

	content, err := v.renderer.Render(ctx, url)
	if err != nil {
		f := &RenderFailure{Platform: platform, URL: url, Err: err}
		log.WithError(err).Warn("render failed")
		return Verdict{Err: f}
	}

	verdict = Decide(content)
	log.WithFields(logrus.Fields{
		"length":     verdict.Length,
		"login_wall": verdict.LoginWall,
		"confirmed":  verdict.Confirmed,
	}).Debug("rendered")
	return verdict
}
