package render

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

const DefaultNavigationTimeout = 15 * time.Second

type ChromeConfig struct {
	// ExecPath overrides browser discovery.
	ExecPath  string
	Timeout   time.Duration
	UserAgent string
	ProxyURL  string
	Headful   bool
}

// Chrome renders pages with a headless Chromium driven over the DevTools
// protocol. Every call starts its own browser process with a fresh profile
// and tears it down before returning.
type Chrome struct {
	cfg ChromeConfig
}

func NewChrome(cfg ChromeConfig) *Chrome {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultNavigationTimeout
	}
	return &Chrome{cfg: cfg}
}

func (c *Chrome) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if c.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
	}
	if c.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.cfg.UserAgent))
	}
	if c.cfg.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(c.cfg.ProxyURL))
	}
	if c.cfg.Headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	return opts
}

func (c *Chrome) Render(ctx context.Context, url string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, c.cfg.Timeout)
	defer cancelRun()

	var html string
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", err
	}
	return html, nil
}
