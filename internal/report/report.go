// Package report serializes a finished scan session to JSON.
package report

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/tdh8316/probex/internal/session"
)

// Report is the persisted shape of a scan.
type Report struct {
	ID            string                     `json:"id"`
	Username      string                     `json:"username"`
	Variants      []string                   `json:"variants"`
	Results       map[string][]session.Found `json:"results"`
	AccountsFound int                        `json:"accounts_found"`
	Confidence    string                     `json:"confidence"`
	Requests      int64                      `json:"requests"`
	ScanTime      float64                    `json:"scan_time"`
	Timestamp     string                     `json:"timestamp"`
}

// FromSession builds the report for s, stamped with now.
func FromSession(s *session.Session, now time.Time) Report {
	results := make(map[string][]session.Found, len(s.Confirmed))
	for v, found := range s.Confirmed {
		results[v] = append([]session.Found(nil), found...)
	}
	variants := append([]string(nil), s.Variants...)
	sort.Strings(variants)

	return Report{
		ID:            s.ID,
		Username:      s.Seed,
		Variants:      variants,
		Results:       results,
		AccountsFound: s.TotalConfirmed,
		Confidence:    s.Confidence.String(),
		Requests:      s.Requests.Load(),
		ScanTime:      math.Round(s.Elapsed.Seconds()*100) / 100,
		Timestamp:     now.Format(time.RFC3339),
	}
}

// Write stores the report for s at path, creating parent directories.
func Write(path string, s *session.Session, now time.Time) error {
	body, err := json.MarshalIndent(FromSession(s, now), "", "    ")
	if err != nil {
		return errors.Wrap(err, "encode report")
	}
	body = append(body, '\n')

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create report directory")
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, body, 0o600); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "rename %s", path)
	}
	return nil
}
