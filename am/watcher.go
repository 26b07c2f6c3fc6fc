package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/logger"
)

// OverrideCallback receives the server override after an external edit.
// ok is false when the override was removed.
type OverrideCallback func(server string, ok bool)

// ConfigWatcher watches the override file for edits made by other
// processes and reports the new value
type ConfigWatcher struct {
	store          *ServerOverrideStore
	watcher        *fsnotify.Watcher
	debouncePeriod time.Duration

	mu            sync.Mutex
	callbacks     []OverrideCallback
	debounceTimer *time.Timer

	ownWriteMu sync.Mutex
	isOwnWrite bool
}

// NewConfigWatcher creates a watcher for store's file. The parent
// directory is watched so the file may be created after the watcher starts.
func NewConfigWatcher(store *ServerOverrideStore) (*ConfigWatcher, error) {
	dir := filepath.Dir(store.Path())
	if err := mkdirAll(dir); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "failed to watch config directory %s", dir)
	}

	cw := &ConfigWatcher{
		store:          store,
		watcher:        w,
		debouncePeriod: 500 * time.Millisecond,
	}
	store.AttachWatcher(cw)
	return cw, nil
}

// SetDebounce changes the debounce period (tests use a short one)
func (cw *ConfigWatcher) SetDebounce(d time.Duration) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.debouncePeriod = d
}

// OnChange registers a callback to be called when the override changes
func (cw *ConfigWatcher) OnChange(callback OverrideCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// MarkOwnWrite marks the next write as coming from us (prevents reload loops)
func (cw *ConfigWatcher) MarkOwnWrite() {
	cw.ownWriteMu.Lock()
	defer cw.ownWriteMu.Unlock()
	cw.isOwnWrite = true
}

func (cw *ConfigWatcher) checkOwnWrite() bool {
	cw.ownWriteMu.Lock()
	defer cw.ownWriteMu.Unlock()
	if cw.isOwnWrite {
		cw.isOwnWrite = false
		return true
	}
	return false
}

// Start begins watching for changes
func (cw *ConfigWatcher) Start() {
	go cw.watchLoop()
}

func (cw *ConfigWatcher) watchLoop() {
	target := filepath.Clean(cw.store.Path())
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target || isBackupFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			if cw.checkOwnWrite() {
				logger.Debugw("Config watcher ignoring own write", logger.FieldFile, event.Name)
				continue
			}
			logger.Infow("Config watcher detected change",
				logger.FieldFile, event.Name,
				"op", event.Op.String())
			cw.scheduleReload()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("Config watcher error", logger.FieldError, err)
		}
	}
}

// scheduleReload debounces rapid file changes and triggers reload
func (cw *ConfigWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.debounceTimer = time.AfterFunc(cw.debouncePeriod, cw.reload)
}

func (cw *ConfigWatcher) reload() {
	server, ok := cw.store.Get()
	logger.Infow("Server override reloaded", logger.FieldServer, server, "set", ok)

	cw.mu.Lock()
	callbacks := make([]OverrideCallback, len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.Unlock()

	for _, callback := range callbacks {
		callback(server, ok)
	}
}

// Stop stops watching for config changes
func (cw *ConfigWatcher) Stop() error {
	cw.mu.Lock()
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.mu.Unlock()
	return cw.watcher.Close()
}

// isBackupFile checks if the file is a rotating backup (.back1, .back2, .back3)
func isBackupFile(path string) bool {
	ext := filepath.Ext(path)
	return strings.HasPrefix(ext, ".back") && len(ext) == len(".back1")
}

func mkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}
	return nil
}
