package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitializeWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.log")

	require.NoError(t, Initialize(Options{Debug: true, File: path}))
	t.Cleanup(func() {
		Sync()
		Logger = nopLogger()
	})

	Logger.Debugw("Using cached summary", "marker_id", "42")
	Logger.Infow("Saved rows", "rows", 3)
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], `"marker_id":"42"`)
	require.Contains(t, lines[1], `"msg":"Saved rows"`)
}

func TestInitializeInfoLevelDropsDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.log")

	require.NoError(t, Initialize(Options{File: path}))
	t.Cleanup(func() {
		Sync()
		Logger = nopLogger()
	})

	Logger.Debugw("hidden")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, strings.TrimSpace(string(data)))
}
