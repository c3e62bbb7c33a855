package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"videooutputd/internal/aspect"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFile_Load_missing_gives_defaults(t *testing.T) {
	f := NewSettingsFile(filepath.Join(t.TempDir(), "aspect.yaml"))
	s, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, aspect.DefaultSettings(), s)
}

func TestSettingsFile_Load_partial_keeps_defaults(t *testing.T) {
	path := writeFile(t, "aspect.yaml", `
default:
  arcPerApp: original
  justScan: "on"
apps:
  com.example.tv:
    arcPerApp: vertZoom
    vertZoomVRatio: 3
    vertZoomVPosition: -12
`)
	s, err := NewSettingsFile(path).Load()
	require.NoError(t, err)

	assert.Equal(t, aspect.ModeOriginal, s.Default.Mode)
	assert.True(t, bool(s.Default.JustScan))
	assert.Equal(t, 12, s.Default.AllDirZoomHRatio)
	assert.Equal(t, aspect.ModeVerticalZoom, s.For("com.example.tv").Mode)
	assert.Equal(t, -12, s.For("com.example.tv").VertZoomVPosition)
}

func TestSettingsFile_Load_rejects_out_of_range(t *testing.T) {
	path := writeFile(t, "aspect.yaml", "default:\n  arcPerApp: 16x9\n  allDirZoomHRatio: 40\n")
	_, err := NewSettingsFile(path).Load()
	assert.ErrorIs(t, err, aspect.ErrOutOfRange)
}

func TestSettingsFile_Load_rejects_unknown_fields(t *testing.T) {
	path := writeFile(t, "aspect.yaml", "defaults:\n  arcPerApp: 16x9\n")
	_, err := NewSettingsFile(path).Load()
	assert.Error(t, err)
}

func TestSettingsFile_Save_then_Load(t *testing.T) {
	f := NewSettingsFile(filepath.Join(t.TempDir(), "aspect.yaml"))
	want := aspect.DefaultSettings().With("com.example.movies", aspect.Params{
		Mode:             aspect.ModeAllDirectionZoom,
		AllDirZoomHRatio: 4,
		AllDirZoomVRatio: 6,
	})

	require.NoError(t, f.Save(want))
	got, err := f.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(f.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestSettingsWatcher_reloads_on_change(t *testing.T) {
	f := NewSettingsFile(filepath.Join(t.TempDir(), "aspect.yaml"))
	require.NoError(t, f.Save(aspect.DefaultSettings()))

	changes := make(chan aspect.Settings, 4)
	w := NewSettingsWatcher(f, slog.New(slog.NewTextHandler(io.Discard, nil)), func(s aspect.Settings) {
		changes <- s
	})
	w.debounce = 20 * time.Millisecond
	assert.Equal(t, "settings-watcher", w.String())

	ctx, cancel := context.WithCancel(context.Background())
	errC := make(chan error, 1)
	go func() { errC <- w.Serve(ctx) }()
	defer func() {
		cancel()
		<-errC
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, f.Save(aspect.DefaultSettings().With("", aspect.Params{Mode: aspect.Mode4x3})))

	select {
	case s := <-changes:
		assert.Equal(t, aspect.Mode4x3, s.Default.Mode)
	case <-time.After(5 * time.Second):
		t.Fatal("settings change not reported")
	}
}
