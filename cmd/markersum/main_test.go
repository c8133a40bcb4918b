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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marker-finder/markersum/pkg/errors"
	"github.com/marker-finder/markersum/pkg/logger"
	"github.com/marker-finder/markersum/pkg/models"
	"github.com/marker-finder/markersum/pkg/table"
	"github.com/marker-finder/markersum/pkg/tracker"
)

type fixture struct {
	dir    string
	config string
	calls  atomic.Int32
	srv    *httptest.Server
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir()}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(f.srv.Close)
	t.Cleanup(logger.Sync)

	f.config = filepath.Join(f.dir, "markersum.yaml")
	cfg := `generation:
  url: ` + f.srv.URL + `/api/generate
  model: test-model
  timeout: 5s
  probe_timeout: 2s
retry:
  max_attempts: 2
  base_delay: 1ms
cache:
  dir: ` + filepath.Join(f.dir, "summary_cache") + `
tracker:
  db_path: ` + filepath.Join(f.dir, "markersum.db") + `
audit:
  enabled: true
  db_path: ` + filepath.Join(f.dir, "audit.db") + `
log:
  file: ""
`
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0o644))
	return f
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append([]string{"--config", f.config}, args...))
	root.SetOut(&out)
	root.SetErr(&out)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func ollamaReply(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.GenerationRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{"model": req.Model, "response": text, "done": true})
	}
}

func TestRunBatch(t *testing.T) {
	f := newFixture(t, ollamaReply("A grist mill built in 1900 by John Doe."))
	input := filepath.Join(f.dir, "markers.csv")
	output := filepath.Join(f.dir, "out.csv")
	require.NoError(t, os.WriteFile(input, []byte("MarkerID,Inscription\n1,Built in 1900 by John Doe as a grist mill.\n2,\n"), 0o644))

	_, err := f.run(t, "-i", input, "-o", output, "--no-progress")
	require.NoError(t, err)
	// one probe plus one generation
	assert.EqualValues(t, 2, f.calls.Load())

	tbl, err := table.Load(output)
	require.NoError(t, err)
	col := tbl.ColumnIndex("Summary")
	s1, _ := tbl.Get(0, col)
	s2, _ := tbl.Get(1, col)
	assert.Equal(t, "A grist mill built in 1900 by John Doe.", s1)
	assert.Equal(t, "No text available to summarize.", s2)

	tr, err := tracker.New(filepath.Join(f.dir, "markersum.db"))
	require.NoError(t, err)
	defer tr.Close()
	runs, err := tr.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunSucceeded, runs[0].Status)
	assert.Equal(t, 1, runs[0].Stats.Generated)

	out, err := f.run(t, "cache", "get", "1")
	require.NoError(t, err)
	assert.Equal(t, "A grist mill built in 1900 by John Doe.\n", out)

	out, err = f.run(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, runs[0].ID)

	out, err = f.run(t, "audit", "search", "--marker-id", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "test-model")
}

func TestRunMissingColumn(t *testing.T) {
	f := newFixture(t, ollamaReply("unused"))
	input := filepath.Join(f.dir, "markers.csv")
	output := filepath.Join(f.dir, "out.csv")
	require.NoError(t, os.WriteFile(input, []byte("MarkerID,Title\n1,Mill\n"), 0o644))

	_, err := f.run(t, "-i", input, "-o", output, "--no-progress")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
	assert.EqualValues(t, 1, f.calls.Load(), "only the probe reaches the service")
	assert.NoFileExists(t, output)
}

func TestRunRefusesWhenServiceDown(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	input := filepath.Join(f.dir, "markers.csv")
	output := filepath.Join(f.dir, "out.csv")
	require.NoError(t, os.WriteFile(input, []byte("MarkerID,Inscription\n1,Built in 1900 by John Doe.\n"), 0o644))

	_, err := f.run(t, "-i", input, "-o", output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrServiceUnavailable))
	assert.Contains(t, errors.Hints(err), "ollama pull test-model")
	assert.NoFileExists(t, output)
}

func TestTestMode(t *testing.T) {
	f := newFixture(t, ollamaReply("Graceland was built in 1939."))

	out, err := f.run(t, "test")
	require.NoError(t, err)
	assert.Contains(t, out, "Connected.")
	assert.Contains(t, out, "Graceland was built in 1939.")

	out, err = f.run(t, "--test")
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "Generated summary:"))

	entries, err := os.ReadDir(filepath.Join(f.dir, "summary_cache"))
	if err == nil {
		assert.Empty(t, entries, "test mode does not cache")
	}
}

func TestSummarizeURL(t *testing.T) {
	var gotPrompt string
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.GenerationRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotPrompt = req.Prompt
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "A page about a mill."})
	})
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>The mill was built in 1900.</p><p>It closed in 1950.</p></body></html>"))
	}))
	defer page.Close()

	out, err := f.run(t, "summarize-url", page.URL)
	require.NoError(t, err)
	assert.Equal(t, "A page about a mill.\n", out)
	assert.Contains(t, gotPrompt, "The mill was built in 1900. It closed in 1950.")
}

func TestCacheStatsAndClear(t *testing.T) {
	f := newFixture(t, ollamaReply("unused"))
	cacheDir := filepath.Join(f.dir, "summary_cache")
	require.NoError(t, os.MkdirAll(cacheDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "summary_7.txt"), []byte("cached"), 0o644))

	out, err := f.run(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Entries: 1")

	_, err = f.run(t, "cache", "clear")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(cacheDir, "summary_7.txt"))

	_, err = f.run(t, "cache", "get", "7")
	assert.Error(t, err)
}

func TestFormatAuditEntriesEmpty(t *testing.T) {
	assert.Equal(t, "No audit entries found.\n", formatAuditEntries(nil))
	assert.Equal(t, "No audit stats found.\n", formatAuditStats(nil))
}

func TestMCPSummarize(t *testing.T) {
	f := newFixture(t, ollamaReply("A covered bridge from 1872."))

	req := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"markersum_summarize","arguments":{"text":"The covered bridge was built here in 1872.","marker_id":"9"}}}` + "\n"

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs([]string{"--config", f.config, "mcp"})
	root.SetIn(strings.NewReader(req))
	root.SetOut(&out)
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "A covered bridge from 1872.")
	// no probe, one generation
	assert.EqualValues(t, 1, f.calls.Load())

	got, err := f.run(t, "cache", "get", "9")
	require.NoError(t, err)
	assert.Equal(t, "A covered bridge from 1872.\n", got)
}
