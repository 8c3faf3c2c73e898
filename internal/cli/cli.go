package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var ErrHelp = errors.New("help requested")

type Options struct {
	Username     string
	Permutations bool
	ReportFile   string

	NoColor   bool
	Verbose   bool
	WithTor   bool
	NoBrowser bool
	Headful   bool
	Update    bool
	Test      bool

	ConfigFile  string
	DataFile    string
	Platforms   []string
	BrowserPath string

	// Zero values mean "use the config file / default".
	Concurrency int
	Timeout     time.Duration
	LogLevel    string
	LogFormat   string

	RandSeed    uint64
	HasRandSeed bool
}

const example = `  probex alice
  probex --username alice --permutations --report alice.json
  probex --platforms github,reddit -v alice
  probex --test`

func newCommand(opts *Options, ran *bool) *cobra.Command {
	var timeoutS int

	cmd := &cobra.Command{
		Use:           "probex [flags] [USERNAME]",
		Short:         "Probex - probe platforms for a username with HTTP and browser verification.",
		Example:       example,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if opts.Username != "" && opts.Username != args[0] {
					return fmt.Errorf("username given twice: %q and %q", opts.Username, args[0])
				}
				opts.Username = args[0]
			}
			opts.Username = strings.TrimSpace(opts.Username)

			if timeoutS < 0 {
				return fmt.Errorf("--timeout must not be negative")
			}
			opts.Timeout = time.Duration(timeoutS) * time.Second
			if opts.Concurrency < 0 {
				return fmt.Errorf("--concurrency must not be negative")
			}
			opts.HasRandSeed = cmd.Flags().Changed("seed")

			var platforms []string
			for _, p := range opts.Platforms {
				if p = strings.TrimSpace(p); p != "" {
					platforms = append(platforms, p)
				}
			}
			opts.Platforms = platforms
			if len(platforms) > 0 {
				// When specifying platforms, show misses/errors too.
				opts.Verbose = true
			}

			*ran = true
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Username, "username", "u", "", "target username")
	f.BoolVarP(&opts.Permutations, "permutations", "p", false, "also scan derived variants of the username")
	f.StringVarP(&opts.ReportFile, "report", "r", "", "write a JSON report to this file")

	f.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "show platforms where the username was not found")
	f.BoolVarP(&opts.WithTor, "tor", "t", false, "route HTTP probes through the Tor SOCKS proxy")
	f.BoolVar(&opts.NoBrowser, "no-browser", false, "skip browser verification of blocked probes")
	f.BoolVar(&opts.Headful, "headful", false, "show the browser window during verification")
	f.BoolVar(&opts.Update, "update", false, "download the platform registry before the run")
	f.BoolVar(&opts.Test, "test", false, "validate the registry using claimed/unclaimed usernames")

	f.StringVarP(&opts.ConfigFile, "config", "c", "", "configuration file (TOML)")
	f.StringVar(&opts.DataFile, "database", "", "platform registry file (default: built-in list)")
	f.StringSliceVar(&opts.Platforms, "platforms", nil, "comma-separated platforms to probe (default: all)")
	f.StringVar(&opts.BrowserPath, "browser", "", "path to a Chrome/Chromium executable")

	f.IntVar(&opts.Concurrency, "concurrency", 0, "max concurrent HTTP probes (default 5)")
	f.IntVar(&timeoutS, "timeout", 0, "HTTP request timeout in seconds (default 10)")
	f.StringVar(&opts.LogLevel, "log-level", "", "diagnostic log level: debug, info, warn, error")
	f.StringVar(&opts.LogFormat, "log-format", "", "diagnostic log format: console or json")
	f.Uint64Var(&opts.RandSeed, "seed", 0, "seed for backoff jitter and User-Agent choice")

	return cmd
}

// Parse reads command-line arguments. ErrHelp is returned after help was
// printed.
func Parse(args []string, stdout, stderr io.Writer) (Options, error) {
	var opts Options
	var ran bool

	cmd := newCommand(&opts, &ran)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		return Options{}, err
	}
	if !ran {
		return Options{}, ErrHelp
	}
	return opts, nil
}
