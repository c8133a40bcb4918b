package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutWritesPlainTextFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "1", "Built in 1900 by John Doe."))

	data, err := os.ReadFile(filepath.Join(dir, "summary_1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Built in 1900 by John Doe.", string(data))
}

func TestGetRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "1", "first"))
	require.NoError(t, s.Put(ctx, "1", "second"))

	summary, ok, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", summary)
}

func TestGetTrimsAndTreatsBlankAsMiss(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary_5.txt"), []byte("  padded \n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary_6.txt"), []byte(" \n"), 0o644))

	summary, ok, err := s.Get(ctx, "5")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "padded", summary)

	_, ok, err = s.Get(ctx, "6")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPathEscapesSeparators(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	p := s.Path("../etc/passwd")
	assert.Equal(t, dir, filepath.Dir(p))
	assert.Equal(t, "summary_..%2Fetc%2Fpasswd.txt", filepath.Base(p))

	assert.Equal(t, filepath.Join(dir, "summary_HM1A2B.txt"), s.Path("HM1A2B"))
}

func TestGetReadFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	// a directory where the entry file should be makes the read fail
	require.NoError(t, os.Mkdir(s.Path("9"), 0o755))

	_, ok, err := s.Get(context.Background(), "9")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestStatsAndClear(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "1", "abc"))
	require.NoError(t, s.Put(ctx, "2", "defgh"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("keep me"), 0o644))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Entries)
	assert.EqualValues(t, 8, stats.Bytes)

	require.NoError(t, s.Clear(ctx))

	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
	assert.FileExists(t, filepath.Join(dir, "notes.md"))
}
