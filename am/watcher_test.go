package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type overrideEvent struct {
	server string
	ok     bool
}

func startWatcher(t *testing.T) (*ServerOverrideStore, <-chan overrideEvent) {
	t.Helper()
	store := newTestStore(t)
	w, err := NewConfigWatcher(store)
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)

	events := make(chan overrideEvent, 8)
	w.OnChange(func(server string, ok bool) {
		events <- overrideEvent{server, ok}
	})
	w.Start()
	t.Cleanup(func() { _ = w.Stop() })
	return store, events
}

func TestConfigWatcher_ExternalEdit(t *testing.T) {
	store, events := startWatcher(t)

	require.NoError(t, os.WriteFile(store.Path(), []byte("[sync]\nserver = \"wss://other.example\"\n"), 0644))

	select {
	case ev := <-events:
		assert.True(t, ev.ok)
		assert.Equal(t, "wss://other.example", ev.server)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not report external edit")
	}
}

func TestConfigWatcher_IgnoresOwnWrite(t *testing.T) {
	store, events := startWatcher(t)

	require.NoError(t, store.Set("wss://mine.example"))

	select {
	case ev := <-events:
		// A write may surface as several fsnotify events on some platforms;
		// only the first is marked as ours. Whatever arrives must carry our value.
		assert.Equal(t, "wss://mine.example", ev.server)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestIsBackupFile(t *testing.T) {
	assert.True(t, isBackupFile(filepath.Join("x", "am_from_ui.toml.back1")))
	assert.True(t, isBackupFile("am_from_ui.toml.back3"))
	assert.False(t, isBackupFile("am_from_ui.toml"))
	assert.False(t, isBackupFile("am_from_ui.toml.backup"))
}
