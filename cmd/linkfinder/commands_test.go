package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/linkfinder-service/internal/entity"
)

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	return executeContext(t, t.Context(), stdin, args...)
}

func executeContext(t *testing.T, ctx context.Context, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestAuditCommand_JSON(t *testing.T) {
	site := newSite(t)
	dir := t.TempDir()
	writeDoc(t, dir, "post.html", `<p><a href="/missing">gone</a> <a href="mailto:a@b.c">mail</a></p>`)

	out, summary, err := execute(t, "", "audit", "--dir", dir, "--site", site.URL, "--json", "--log-level", "error")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1, "the other bucket is hidden without --all")
	var res entity.LinkResult
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &res))
	assert.Equal(t, "post.html", res.DocumentID)
	assert.Equal(t, entity.BucketError, res.Bucket)
	assert.Equal(t, http.StatusNotFound, res.Probe.StatusCode)

	assert.Contains(t, summary, "completed: 2/2 references (100%), 1 errors, 0 warnings, 1 other")
}

func TestAuditCommand_TableAndFailOnError(t *testing.T) {
	site := newSite(t)
	dir := t.TempDir()
	writeDoc(t, dir, "post.html", `<a href="/missing">gone</a><img src='mailto:x'>`)

	out, _, err := execute(t, "", "audit", "--dir", dir, "--site", site.URL, "--all", "--fail-on-error", "--log-level", "error")
	assert.ErrorIs(t, err, errBrokenReferences)
	assert.Contains(t, out, "BUCKET")
	assert.Contains(t, out, "404")
	assert.Contains(t, out, "skipped: non_http_scheme")
}

func TestApplyCommand_FromStdin(t *testing.T) {
	site := newSite(t)
	dir := t.TempDir()
	p := writeDoc(t, dir, "post.html", `<a href="/missing">gone</a>`)

	edits := `[{"document_id":"post.html","index":0,"old_element":"<a href=\"/missing\">","new_value":"/ok"}]`
	out, _, err := execute(t, edits, "apply", "--dir", dir, "--site", site.URL, "--edits", "-", "--log-level", "error")
	require.NoError(t, err)

	var report entity.RewriteReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Success)
	require.Len(t, report.Outcomes, 1)

	content, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, `<a href="/ok">gone</a>`, string(content))
}

func TestApplyCommand_NoMatchFails(t *testing.T) {
	site := newSite(t)
	dir := t.TempDir()
	writeDoc(t, dir, "post.html", `<a href="/other">x</a>`)
	edits := writeDoc(t, t.TempDir(), "edits.json",
		`[{"document_id":"post.html","index":0,"old_element":"<a href=\"/missing\">","new_value":"/ok"}]`)

	_, _, err := execute(t, "", "apply", "--dir", dir, "--site", site.URL, "--edits", edits, "--log-level", "error")
	assert.ErrorContains(t, err, "1 of 1 edits were not applied")
}

func TestSelfPingsCommand(t *testing.T) {
	site := newSite(t)
	dir := t.TempDir()
	p := writeDoc(t, dir, "post.html", `<a href="`+site.URL+`/ok">self</a>`)

	out, _, err := execute(t, "", "selfpings", "--dir", dir, "--site", site.URL, "--policy", "avoid", "--dry-run", "--log-level", "error")
	require.NoError(t, err)
	var edits []entity.RewriteEdit
	require.NoError(t, json.Unmarshal([]byte(out), &edits))
	require.Len(t, edits, 1)
	assert.Equal(t, `<a href="/ok">`, edits[0].NewElement)

	unchanged, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(unchanged), site.URL, "dry run leaves documents alone")

	_, _, err = execute(t, "", "selfpings", "--dir", dir, "--site", site.URL, "--policy", "avoid", "--log-level", "error")
	require.NoError(t, err)
	content, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, `<a href="/ok">self</a>`, string(content))

	_, _, err = execute(t, "", "selfpings", "--dir", dir, "--site", site.URL, "--policy", "sometimes")
	assert.Error(t, err)
}

func TestAuditCommand_InterruptPrintsSummary(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(site.Close)
	dir := t.TempDir()
	writeDoc(t, dir, "post.html", `<a href="/slow">slow</a>`)

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()
	_, summary, err := executeContext(t, ctx, "", "audit", "--dir", dir, "--site", site.URL, "--log-level", "error")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, summary, "cancelled: 0/1 references (0%)")
}

func TestResolveCommand(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		case "/new":
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(site.Close)

	out, _, err := execute(t, "", "resolve", site.URL+"/old", "--site", site.URL, "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, site.URL+"/new\n", out)

	out, _, err = execute(t, "", "resolve", site.URL+"/new", "--site", site.URL, "--log-level", "error")
	require.NoError(t, err)
	assert.Equal(t, site.URL+"/new\n", out, "a URL without redirects resolves to itself")

	_, _, err = execute(t, "", "resolve", "http://127.0.0.1:1/", "--site", site.URL, "--log-level", "error")
	assert.Error(t, err)
}
