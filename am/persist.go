package am

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/worldtree/errors"
	"github.com/teranos/worldtree/logger"
)

// OverrideFileName is the UI-managed config file holding the server override
const OverrideFileName = "am_from_ui.toml"

// ServerOverrideStore persists the user-chosen sync server under
// sync.server in ~/.worldtree/am_from_ui.toml. It is the only state the
// agent writes to disk.
type ServerOverrideStore struct {
	path string

	mu      sync.Mutex
	watcher *ConfigWatcher
}

// NewServerOverrideStore returns a store backed by path. An empty path
// selects the default location under HomeDir.
func NewServerOverrideStore(path string) *ServerOverrideStore {
	if path == "" {
		path = GetUIConfigPath()
	}
	return &ServerOverrideStore{path: path}
}

// GetUIConfigPath returns the path to the UI-managed config file
func GetUIConfigPath() string {
	dir := HomeDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, OverrideFileName)
}

// Path returns the backing file
func (s *ServerOverrideStore) Path() string {
	return s.path
}

// AttachWatcher marks writes made through this store as own writes on w,
// so the watcher does not report them back.
func (s *ServerOverrideStore) AttachWatcher(w *ConfigWatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcher = w
}

// Get returns the stored override. Read failures are treated as "no
// override" and logged.
func (s *ServerOverrideStore) Get() (string, bool) {
	config, err := s.load()
	if err != nil {
		logger.Warnw("Server override unreadable", logger.FieldFile, s.path, logger.FieldError, err)
		return "", false
	}
	return overrideFrom(config)
}

// Set writes server as the override
func (s *ServerOverrideStore) Set(server string) error {
	if server == "" {
		return errors.NewInvalidRequestError("empty server override")
	}
	config, err := s.load()
	if err != nil {
		return errors.Wrap(err, "failed to load UI config")
	}

	section, _ := config["sync"].(map[string]interface{})
	if section == nil {
		section = make(map[string]interface{})
	}
	section["server"] = server
	config["sync"] = section

	return s.save(config)
}

// Clear removes the override, keeping any other UI-managed settings
func (s *ServerOverrideStore) Clear() error {
	config, err := s.load()
	if err != nil {
		return errors.Wrap(err, "failed to load UI config")
	}
	section, _ := config["sync"].(map[string]interface{})
	if section == nil {
		return nil
	}
	if _, ok := section["server"]; !ok {
		return nil
	}
	delete(section, "server")
	if len(section) == 0 {
		delete(config, "sync")
	}
	return s.save(config)
}

func overrideFrom(config map[string]interface{}) (string, bool) {
	section, _ := config["sync"].(map[string]interface{})
	server, _ := section["server"].(string)
	return server, server != ""
}

// load reads the UI config file, or returns an empty config if it doesn't exist
func (s *ServerOverrideStore) load() (map[string]interface{}, error) {
	if s.path == "" {
		return nil, errors.New("could not determine home directory")
	}
	config := make(map[string]interface{})
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read UI config")
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, "failed to parse UI config")
	}
	return config, nil
}

// save writes the config with a rotating backup
func (s *ServerOverrideStore) save(config map[string]interface{}) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := createBackup(s.path); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	s.mu.Lock()
	if s.watcher != nil {
		s.watcher.MarkOwnWrite()
	}
	s.mu.Unlock()

	if err := os.WriteFile(s.path, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write UI config")
	}
	return nil
}

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		logger.Warnw("Failed to delete old backup", logger.FieldFile, back3, logger.FieldError, err)
	}
	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}
