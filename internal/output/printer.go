package output

import (
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tdh8316/probex/internal/session"
)

const banner = `
 ____            _
|  _ \ _ __ ___ | |__   _____  __
| |_) | '__/ _ \| '_ \ / _ \ \/ /
|  __/| | | (_) | |_) |  __/>  <
|_|   |_|  \___/|_.__/ \___/_/\_\

  Probex - Hybrid username reconnaissance
`

type Printer struct {
	out     io.Writer
	noColor bool
	verbose bool

	logger *log.Logger
}

func NewPrinter(stdout io.Writer, noColor, verbose bool) *Printer {
	return &Printer{
		out:     stdout,
		noColor: noColor,
		verbose: verbose,
		logger:  log.New(stdout, "", 0),
	}
}

func (p *Printer) paint(fn func(string, ...any) string, s string) string {
	if p.noColor {
		return s
	}
	return fn("%s", s)
}

func (p *Printer) Banner() {
	if p.noColor {
		fmt.Fprint(p.out, banner)
		return
	}
	fmt.Fprint(p.out, color.HiCyanString(banner))
}

// Info prints an "[i]" line.
func (p *Printer) Info(format string, args ...any) {
	p.logger.Printf("[%s] %s", p.paint(color.HiBlueString, "i"), fmt.Sprintf(format, args...))
}

// Warn prints an "[!]" line.
func (p *Printer) Warn(format string, args ...any) {
	p.logger.Printf("[%s] %s", p.paint(color.HiRedString, "!"), p.paint(color.HiYellowString, fmt.Sprintf(format, args...)))
}

// Event renders one progress notification. Misses are shown only in
// verbose mode.
func (p *Printer) Event(e session.Event) {
	switch e.Kind {
	case session.EventVariant:
		p.logger.Printf("\nScanning %s on:", p.paint(color.HiGreenString, e.Variant))

	case session.EventFound:
		p.logger.Printf("[%s] %s: %s", p.paint(color.HiGreenString, "+"), p.paint(color.HiWhiteString, e.Platform), e.URL)

	case session.EventBlocked:
		p.logger.Printf("[%s] %s: %s", p.paint(color.HiYellowString, "?"), e.Platform,
			p.paint(color.HiYellowString, "blocked, browser verification required"))

	case session.EventVerifying:
		p.logger.Printf("[%s] %s: %s", p.paint(color.HiBlueString, "~"), e.Platform, "verifying in browser...")

	case session.EventBrowserFound:
		p.logger.Printf("[%s] %s: %s %s", p.paint(color.HiGreenString, "+"), p.paint(color.HiWhiteString, e.Platform),
			e.URL, p.paint(color.HiBlackString, "(browser)"))

	case session.EventBrowserFailed:
		msg := "browser verification failed"
		if e.Err != nil && p.verbose {
			msg += ": " + e.Err.Error()
		}
		p.logger.Printf("[%s] %s: %s", p.paint(color.HiRedString, "-"), e.Platform, p.paint(color.HiYellowString, msg))

	case session.EventNotFound:
		if !p.verbose {
			return
		}
		if e.Err != nil {
			p.logger.Printf("[%s] %s: %s: %s", p.paint(color.HiRedString, "!"), e.Platform,
				p.paint(color.HiMagentaString, "ERROR"), p.paint(color.HiRedString, e.Err.Error()))
			return
		}
		p.logger.Printf("[%s] %s: %s", p.paint(color.HiRedString, "-"), e.Platform, p.paint(color.HiYellowString, "Not Found!"))
	}
}

// Summary prints totals and the confirmed accounts.
func (p *Printer) Summary(s *session.Session) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, SummaryTable(s))

	if s.TotalConfirmed == 0 {
		return
	}
	fmt.Fprintln(p.out, AccountsTable(s))
}

// SummaryTable renders the scan totals.
func SummaryTable(s *session.Session) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Scan Complete")
	tw.AppendRows([]table.Row{
		{"Username", s.Seed},
		{"Variants", len(s.Variants)},
		{"Accounts Found", s.TotalConfirmed},
		{"Confidence", s.Confidence.String()},
		{"Requests Made", s.Requests.Load()},
		{"Scan Time", fmt.Sprintf("%.2f seconds", s.Elapsed.Round(10*time.Millisecond).Seconds())},
	})
	return tw.Render()
}

// AccountsTable lists confirmed accounts grouped by variant.
func AccountsTable(s *session.Session) string {
	variants := make([]string, 0, len(s.Confirmed))
	for v := range s.Confirmed {
		variants = append(variants, v)
	}
	sort.Strings(variants)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Variant", "Platform", "URL", "Via"})
	for _, v := range variants {
		for _, f := range s.Confirmed[v] {
			tw.AppendRow(table.Row{v, f.Platform, f.URL, string(f.Tier)})
		}
	}
	return tw.Render()
}
