package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/tdh8316/probex/internal/cli"
	"github.com/tdh8316/probex/internal/config"
	"github.com/tdh8316/probex/internal/data"
	"github.com/tdh8316/probex/internal/httpx"
	"github.com/tdh8316/probex/internal/logging"
	"github.com/tdh8316/probex/internal/output"
	"github.com/tdh8316/probex/internal/randx"
	"github.com/tdh8316/probex/internal/render"
	"github.com/tdh8316/probex/internal/report"
	"github.com/tdh8316/probex/internal/scan"
	"github.com/tdh8316/probex/internal/session"
)

// defaultRegistryFile is where --update stores the registry when neither
// --database nor registry.path names a file.
const defaultRegistryFile = "platforms.json"

// rendererFactory is replaced in tests to avoid launching a browser.
var rendererFactory = func(cfg render.ChromeConfig) render.Renderer {
	return render.NewChrome(cfg)
}

func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := cli.Parse(args, stdout, stderr)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "logging error: %v\n", err)
		return 1
	}

	noColor := opts.NoColor || !isTerminal(stdout)
	color.NoColor = noColor
	printer := output.NewPrinter(stdout, noColor, opts.Verbose)
	printer.Banner()

	httpClient, err := httpx.NewClient(httpx.ClientConfig{
		Timeout:     cfg.RequestTimeout(),
		WithTor:     opts.WithTor,
		TorProxyURL: cfg.Probe.TorProxyURL,
	})
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize HTTP client: %v\n", err)
		return 1
	}

	rnd := randx.NewUnseeded()
	if opts.HasRandSeed {
		rnd = randx.New(opts.RandSeed)
	}

	platforms, err := loadPlatforms(ctx, httpClient, rnd, cfg, opts, printer)
	if err != nil {
		fmt.Fprintf(stderr, "registry error: %v\n", err)
		return 1
	}

	if len(opts.Platforms) > 0 {
		platforms = filterPlatforms(platforms, opts.Platforms, printer)
	}

	scanner := scan.NewScanner(httpClient, cfg.ScanConfig(),
		scan.WithRand(rnd),
		scan.WithLogger(logger.WithField("tier", "http")),
	)

	if opts.Test {
		return runTest(ctx, stdout, printer, scanner, platforms)
	}

	if opts.Username == "" {
		if !promptOptions(&opts, stdin, stdout) {
			fmt.Fprintln(stderr, "Username required.")
			return 2
		}
	}

	var renderer render.Renderer
	if cfg.Browser.Enabled {
		chrome := render.ChromeConfig{
			ExecPath:  cfg.Browser.ExecPath,
			Timeout:   cfg.BrowserTimeout(),
			UserAgent: httpx.PickUserAgent(rnd, cfg.Probe.UserAgents),
			Headful:   cfg.Browser.Headful,
		}
		if opts.WithTor {
			chrome.ProxyURL = cfg.Probe.TorProxyURL
		}
		renderer = rendererFactory(chrome)
	}
	verifier := render.NewVerifier(renderer, logger.WithField("tier", "browser"))

	orch := session.NewOrchestrator(scanner, verifier, platforms, logger)
	orch.OnEvent = printer.Event

	s, err := orch.Run(ctx, opts.Username, session.Options{Permutations: opts.Permutations})
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	printer.Summary(s)

	if opts.ReportFile != "" {
		if err := report.Write(opts.ReportFile, s, time.Now()); err != nil {
			fmt.Fprintf(stderr, "failed to write report %q: %v\n", opts.ReportFile, err)
			return 1
		}
		printer.Info("Report saved to %s", opts.ReportFile)
	}

	return 0
}

func loadConfig(opts cli.Options) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return config.Config{}, err
	}

	// Flags override the file.
	if opts.Concurrency > 0 {
		cfg.Probe.Concurrency = opts.Concurrency
	}
	if opts.Timeout > 0 {
		cfg.Probe.RequestTimeoutSeconds = int(opts.Timeout / time.Second)
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(opts.LogLevel)
	}
	if opts.LogFormat != "" {
		cfg.Logging.Format = strings.ToLower(opts.LogFormat)
	}
	if opts.BrowserPath != "" {
		cfg.Browser.ExecPath = opts.BrowserPath
	}
	if opts.NoBrowser {
		cfg.Browser.Enabled = false
	}
	if opts.Headful {
		cfg.Browser.Headful = true
	}
	if opts.DataFile != "" {
		cfg.Registry.Path = opts.DataFile
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func loadPlatforms(
	ctx context.Context,
	client httpx.Doer,
	rnd randx.Source,
	cfg config.Config,
	opts cli.Options,
	printer *output.Printer,
) ([]data.Platform, error) {
	path := cfg.Registry.Path

	if opts.Update {
		if path == "" {
			path = defaultRegistryFile
		}
		printer.Info("Update platform registry: downloading...")
		ua := httpx.PickUserAgent(rnd, cfg.Probe.UserAgents)
		if err := data.UpdateFromRemote(ctx, client, ua, cfg.Registry.UpdateURL, path); err != nil {
			if _, statErr := os.Stat(path); statErr != nil {
				return nil, fmt.Errorf("failed to update registry and no existing registry found: %w", err)
			}
			// Fall back to existing registry.
			printer.Warn("Failed to update registry: %v (using existing)", err)
		} else {
			printer.Info("Registry saved to %s", filepath.Clean(path))
		}
	}

	if path == "" {
		return data.Default(), nil
	}
	return data.LoadPlatforms(path)
}

func filterPlatforms(all []data.Platform, selected []string, printer *output.Printer) []data.Platform {
	kept, unknown := data.Filter(all, selected)
	if len(unknown) > 0 {
		printer.Warn("Unknown platforms ignored: %s", strings.Join(unknown, ", "))
	}
	if len(kept) == 0 {
		printer.Warn("No matching platforms found; using full registry.")
		return all
	}
	printer.Info("Using %d platform(s)", len(kept))
	return kept
}

// promptOptions asks for the scan parameters interactively. It returns false
// when no username was entered.
func promptOptions(opts *cli.Options, stdin io.Reader, stdout io.Writer) bool {
	r := bufio.NewReader(stdin)
	ask := func(q string) string {
		fmt.Fprint(stdout, q)
		line, _ := r.ReadString('\n')
		return strings.TrimSpace(line)
	}

	opts.Username = ask("Enter username to scan: ")
	if opts.Username == "" {
		return false
	}
	if !opts.Permutations {
		opts.Permutations = strings.EqualFold(ask("Enable permutations? (y/n): "), "y")
	}
	if opts.ReportFile == "" && strings.EqualFold(ask("Export report? (y/n): "), "y") {
		opts.ReportFile = ask("Enter report filename: ")
	}
	return true
}

func runTest(ctx context.Context, stdout io.Writer, printer *output.Printer, scanner *scan.Scanner, platforms []data.Platform) int {
	printer.Info("Checking platform validity...")

	failCount, _ := scanner.ValidatePlatforms(ctx, platforms, nil, func(f scan.ValidationFailure) {
		if f.Err != nil {
			printer.Warn("%s: %v", f.Platform, f.Err)
			return
		}
		printer.Warn("%s: Not working (%s: expected confirmed, result is %s | %s: expected not confirmed, result is %s)",
			f.Platform,
			f.Claimed, f.Used.Status,
			f.Unclaimed, f.Unused.Status,
		)
	})

	fmt.Fprintf(stdout, "\n%d of %d platform(s) failed validation.\n", failCount, len(platforms))
	return 0
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
