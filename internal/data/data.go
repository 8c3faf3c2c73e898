package data

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcuadros/go-version"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// MinVersion is the oldest registry format this build understands.
const MinVersion = "1.0"

const Placeholder = "{}"

//go:embed platforms.json
var defaultRegistry []byte

// Platform describes one site an identifier is probed against.
type Platform struct {
	Name string
	URL  string // profile URL with a single {} slot

	// Invalid lists markers whose presence in a 200 body means "no such user".
	Invalid []string

	RegexCheck string
	Claimed    string
	Unclaimed  string
}

// ProfileURL substitutes username into the platform's template.
func (p Platform) ProfileURL(username string) string {
	return strings.Replace(p.URL, Placeholder, username, 1)
}

// Default returns the built-in registry.
func Default() []Platform {
	platforms, err := Parse(defaultRegistry)
	if err != nil {
		panic(fmt.Sprintf("embedded platform registry: %v", err))
	}
	return platforms
}

// LoadPlatforms reads a registry file. Order in the file is preserved.
func LoadPlatforms(filename string) ([]Platform, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "read registry")
	}
	platforms, err := Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "registry %s", filename)
	}
	return platforms, nil
}

// Parse decodes and validates registry JSON.
func Parse(raw []byte) ([]Platform, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("parse json: invalid document")
	}
	doc := gjson.ParseBytes(raw)

	v := doc.Get("version").String()
	if v == "" {
		return nil, errors.New("missing version")
	}
	if version.Compare(v, MinVersion, "<") {
		return nil, errors.Errorf("version %s is older than supported %s", v, MinVersion)
	}

	entries := doc.Get("platforms")
	if !entries.IsArray() {
		return nil, errors.New("platforms must be an array")
	}

	var out []Platform
	seen := make(map[string]struct{})
	for i, e := range entries.Array() {
		p := Platform{
			Name:       strings.TrimSpace(e.Get("name").String()),
			URL:        strings.TrimSpace(e.Get("url").String()),
			RegexCheck: e.Get("regexCheck").String(),
			Claimed:    e.Get("claimed").String(),
			Unclaimed:  e.Get("unclaimed").String(),
		}
		for _, m := range e.Get("invalid").Array() {
			if s := m.String(); s != "" {
				p.Invalid = append(p.Invalid, s)
			}
		}

		if p.Name == "" {
			return nil, errors.Errorf("platform #%d: missing name", i)
		}
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup {
			return nil, errors.Errorf("platform %q: duplicate name", p.Name)
		}
		seen[key] = struct{}{}
		if n := strings.Count(p.URL, Placeholder); n != 1 {
			return nil, errors.Errorf("platform %q: url must contain exactly one %s, found %d", p.Name, Placeholder, n)
		}
		out = append(out, p)
	}

	if len(out) == 0 {
		return nil, errors.New("no platforms defined")
	}
	return out, nil
}

// Filter keeps the platforms named in selected (case-insensitive), in
// registry order. Names that match nothing are returned as unknown.
func Filter(all []Platform, selected []string) (kept []Platform, unknown []string) {
	want := make(map[string]bool, len(selected))
	for _, s := range selected {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		want[strings.ToLower(s)] = false
	}
	for _, p := range all {
		key := strings.ToLower(p.Name)
		if _, ok := want[key]; ok {
			kept = append(kept, p)
			want[key] = true
		}
	}
	for _, s := range selected {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if matched := want[strings.ToLower(s)]; !matched {
			unknown = append(unknown, s)
		}
	}
	return kept, unknown
}

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// UpdateFromRemote downloads a registry, validates it and replaces destPath
// atomically.
func UpdateFromRemote(ctx context.Context, client Doer, userAgent, sourceURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "download registry")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a small snippet for diagnostics.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return errors.Errorf("download failed: %s (%s)", resp.Status, bytes.TrimSpace(snippet))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read registry body")
	}
	if _, err := Parse(body); err != nil {
		return errors.Wrap(err, "downloaded registry rejected")
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	tmp := destPath + ".tmp"
	if err := os.WriteFile(tmp, body, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, destPath)
}
