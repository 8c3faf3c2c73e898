package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/tdh8316/probex/internal/render"
)

type renderFunc func(ctx context.Context, url string) (string, error)

func (f renderFunc) Render(ctx context.Context, url string) (string, error) { return f(ctx, url) }

// newSite serves a long profile at /alice, rate limits /wall/ and 404s
// everything else.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/alice":
			_, _ = w.Write([]byte(strings.Repeat("a", 600)))
		case strings.HasPrefix(r.URL.Path, "/wall/"):
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeFixtures(t *testing.T, srv *httptest.Server) (registry, cfg string) {
	t.Helper()
	dir := t.TempDir()

	registry = filepath.Join(dir, "platforms.json")
	body := fmt.Sprintf(`{
  "version": "1.0",
  "platforms": [
    {"name": "Site", "url": "%[1]s/{}", "invalid": ["Not Found"]},
    {"name": "Wall", "url": "%[1]s/wall/{}"}
  ]
}`, srv.URL)
	require.NoError(t, os.WriteFile(registry, []byte(body), 0o644))

	cfg = filepath.Join(dir, "probex.toml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
[probe]
retry_backoff_min_ms = 0
retry_backoff_max_ms = 0
error_backoff_min_ms = 0
error_backoff_max_ms = 0
`), 0o644))
	return registry, cfg
}

func stubRenderer(t *testing.T, content string) {
	t.Helper()
	orig := rendererFactory
	rendererFactory = func(render.ChromeConfig) render.Renderer {
		return renderFunc(func(context.Context, string) (string, error) { return content, nil })
	}
	t.Cleanup(func() { rendererFactory = orig })
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"--help"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "Usage")
}

func TestRun_BadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), []string{"--no-such-flag"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 2, code)
}

func TestRun_MissingConfigFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(),
		[]string{"--config", filepath.Join(t.TempDir(), "missing.toml"), "alice"},
		strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "config error")
}

func TestRun_ScanWritesReport(t *testing.T) {
	srv := newSite(t)
	registry, cfg := writeFixtures(t, srv)
	stubRenderer(t, strings.Repeat("b", 1100))
	reportPath := filepath.Join(t.TempDir(), "report.json")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(),
		[]string{"--config", cfg, "--database", registry, "--no-color", "--seed", "7", "--report", reportPath, "alice"},
		strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "[+] Site: "+srv.URL+"/alice")
	assert.Contains(t, out, "[?] Wall: blocked, browser verification required")
	assert.Contains(t, out, "(browser)")
	assert.Contains(t, out, "Report saved to "+reportPath)

	raw, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	doc := gjson.ParseBytes(raw)
	assert.Equal(t, "alice", doc.Get("username").String())
	assert.Equal(t, int64(2), doc.Get("accounts_found").Int())
	assert.Equal(t, "Medium", doc.Get("confidence").String())
	// Site answers once; Wall is never retried.
	assert.Equal(t, int64(2), doc.Get("requests").Int())
}

func TestRun_HeadfulReachesRenderer(t *testing.T) {
	srv := newSite(t)
	registry, cfg := writeFixtures(t, srv)

	var got render.ChromeConfig
	orig := rendererFactory
	rendererFactory = func(c render.ChromeConfig) render.Renderer {
		got = c
		return renderFunc(func(context.Context, string) (string, error) { return "", nil })
	}
	t.Cleanup(func() { rendererFactory = orig })

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(),
		[]string{"--config", cfg, "--database", registry, "--no-color", "--headful", "--browser", "/opt/chromium", "alice"},
		strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.True(t, got.Headful)
	assert.Equal(t, "/opt/chromium", got.ExecPath)
}

func TestRun_NoBrowserLeavesBlockedUnconfirmed(t *testing.T) {
	srv := newSite(t)
	registry, cfg := writeFixtures(t, srv)
	stubRenderer(t, strings.Repeat("b", 1100))

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(),
		[]string{"--config", cfg, "--database", registry, "--no-color", "--no-browser", "alice"},
		strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "[-] Wall: browser verification failed")
	assert.NotContains(t, out, "(browser)")
	assert.Contains(t, out, "Low")
}

func TestRun_PlatformFilter(t *testing.T) {
	srv := newSite(t)
	registry, cfg := writeFixtures(t, srv)
	stubRenderer(t, "login")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(),
		[]string{"--config", cfg, "--database", registry, "--no-color", "--platforms", "site,nowhere", "alice"},
		strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "Unknown platforms ignored: nowhere")
	assert.NotContains(t, out, "Wall")
}

func TestRun_PromptsForUsername(t *testing.T) {
	srv := newSite(t)
	registry, cfg := writeFixtures(t, srv)
	stubRenderer(t, "")

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(),
		[]string{"--config", cfg, "--database", registry, "--no-color"},
		strings.NewReader("alice\nn\nn\n"), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "Enter username to scan: ")
	assert.Contains(t, out, "Enable permutations? (y/n): ")
	assert.Contains(t, out, "[+] Site: "+srv.URL+"/alice")
}

func TestRun_PromptEmptyUsername(t *testing.T) {
	srv := newSite(t)
	registry, cfg := writeFixtures(t, srv)

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(),
		[]string{"--config", cfg, "--database", registry, "--no-color"},
		strings.NewReader("\n"), &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "Username required.")
}

func TestRun_ValidateRegistry(t *testing.T) {
	srv := newSite(t)
	dir := t.TempDir()
	registry := filepath.Join(dir, "platforms.json")
	body := fmt.Sprintf(`{
  "version": "1.0",
  "platforms": [
    {"name": "Good", "url": "%[1]s/{}", "claimed": "alice", "unclaimed": "nobody"},
    {"name": "Broken", "url": "%[1]s/wall/{}", "claimed": "alice", "unclaimed": "nobody"},
    {"name": "Untested", "url": "%[1]s/{}"}
  ]
}`, srv.URL)
	require.NoError(t, os.WriteFile(registry, []byte(body), 0o644))
	_, cfg := writeFixtures(t, srv)

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(),
		[]string{"--config", cfg, "--database", registry, "--no-color", "--test"},
		strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "Broken: Not working")
	assert.Contains(t, out, "Untested: missing claimed/unclaimed")
	assert.NotContains(t, out, "Good:")
	assert.Contains(t, out, "2 of 3 platform(s) failed validation.")
}

func TestRun_UpdateRegistry(t *testing.T) {
	srv := newSite(t)
	_, cfg := writeFixtures(t, srv)

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `{"version": "1.0", "platforms": [{"name": "Site", "url": "%s/{}"}]}`, srv.URL)
	}))
	defer remote.Close()

	cfgBody, err := os.ReadFile(cfg)
	require.NoError(t, err)
	dest := filepath.Join(t.TempDir(), "updated.json")
	cfgBody = append(cfgBody, []byte(fmt.Sprintf("\n[registry]\nupdate_url = %q\n", remote.URL))...)
	require.NoError(t, os.WriteFile(cfg, cfgBody, 0o644))

	var stdout, stderr bytes.Buffer
	code := Run(context.Background(),
		[]string{"--config", cfg, "--database", dest, "--update", "--no-color", "--no-browser", "alice"},
		strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.FileExists(t, dest)
	assert.Contains(t, stdout.String(), "[+] Site: "+srv.URL+"/alice")
}
