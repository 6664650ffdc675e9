package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_NotifiesOnWatchedFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	otherFile := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("log:\n  level: info\n"), 0600))

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, w.Watch(configFile))

	changed := make(chan string, 16)
	w.OnChange(func(path string) { changed <- path })
	w.StartAsync()

	require.NoError(t, os.WriteFile(otherFile, []byte("x"), 0600))
	require.NoError(t, os.WriteFile(configFile, []byte("log:\n  level: debug\n"), 0600))

	select {
	case path := <-changed:
		assert.Equal(t, "config.yaml", filepath.Base(path))
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatcher_WatchNonexistentDir(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.Watch("/nonexistent/path/config.yaml"))
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	w.StartAsync()

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
