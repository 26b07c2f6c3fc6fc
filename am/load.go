package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/worldtree/errors"
)

var (
	loadMu        sync.Mutex
	globalConfig  *Config
	viperInstance *viper.Viper
)

// Load reads the worldtree configuration using Viper
func Load() (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()
	if globalConfig != nil {
		return globalConfig, nil
	}

	config, err := LoadWithViper(initViperLocked())
	if err != nil {
		return nil, err
	}
	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	loadMu.Lock()
	defer loadMu.Unlock()
	return initViperLocked()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path, with defaults
// but without environment or other config files
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}
	return LoadWithViper(v)
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	loadMu.Lock()
	defer loadMu.Unlock()
	globalConfig = nil
	viperInstance = nil
}

func initViperLocked() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()
	v.SetEnvPrefix("WORLDTREE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindGlobalEnvVars(v)
	SetDefaults(v)

	for _, path := range configPaths() {
		mergeConfigFile(v, path)
	}

	viperInstance = v
	return v
}

// HomeDir returns ~/.worldtree, or "" when the home directory is unknown
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".worldtree")
}

// configPaths lists config files in precedence order (lowest first):
// system < user < project
func configPaths() []string {
	paths := []string{"/etc/worldtree/am.toml"}
	if dir := HomeDir(); dir != "" {
		paths = append(paths, filepath.Join(dir, "am.toml"))
	}
	if project := findProjectConfig(); project != "" {
		paths = append(paths, project)
	}
	return paths
}

// ConfigPaths returns the files that exist and were merged, lowest
// precedence first
func ConfigPaths() []string {
	var found []string
	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	return found
}

// findProjectConfig searches for am.toml by walking up from the working directory
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, "am.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFile layers one TOML file onto v's config layer, which sits
// below env vars. Missing or unreadable files are skipped.
func mergeConfigFile(v *viper.Viper, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	tmp := viper.New()
	tmp.SetConfigFile(path)
	tmp.SetConfigType("toml")
	if err := tmp.ReadInConfig(); err != nil {
		return
	}
	_ = v.MergeConfigMap(tmp.AllSettings())
}

// GetString returns a configuration value as string using dot notation
func GetString(key string) string {
	return GetViper().GetString(key)
}

// Get returns a configuration value using dot notation
func Get(key string) interface{} {
	return GetViper().Get(key)
}
