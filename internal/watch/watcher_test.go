package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatches(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, "", func(context.Context, string) {})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.watcher.Close() })

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write to discovered file", fsnotify.Event{Name: filepath.Join(dir, ".readthedocs.yaml"), Op: fsnotify.Write}, true},
		{"rename of discovered file", fsnotify.Event{Name: filepath.Join(dir, "readthedocs.yml"), Op: fsnotify.Rename}, true},
		{"chmod only", fsnotify.Event{Name: filepath.Join(dir, ".readthedocs.yaml"), Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: filepath.Join(dir, "conf.py"), Op: fsnotify.Write}, false},
		{"sub directory", fsnotify.Event{Name: filepath.Join(dir, "docs", ".readthedocs.yaml"), Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.matches(tt.event))
		})
	}
}

func TestMatchesExplicitFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "docs"), 0o755))
	w, err := New(dir, "docs/rtd.yml", func(context.Context, string) {})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.watcher.Close() })

	assert.True(t, w.matches(fsnotify.Event{Name: filepath.Join(dir, "docs", "rtd.yml"), Op: fsnotify.Write}))
	assert.False(t, w.matches(fsnotify.Event{Name: filepath.Join(dir, "docs", ".readthedocs.yml"), Op: fsnotify.Write}))
}

func TestNewMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), "", func(context.Context, string) {})
	require.Error(t, err)
}

func TestRunDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	changes := make(chan string, 8)
	w, err := New(dir, "", func(_ context.Context, changed string) {
		changes <- changed
	}, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	path := filepath.Join(dir, ".readthedocs.yaml")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("version: 2\n"), 0o600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	select {
	case changed := <-changes:
		assert.Equal(t, path, changed)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
