package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/alchemist/internal/ollama"
	"github.com/mesh-intelligence/alchemist/internal/paths"
	"github.com/mesh-intelligence/alchemist/pkg/autosave"
	"github.com/mesh-intelligence/alchemist/pkg/query"
	"github.com/mesh-intelligence/alchemist/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyBackend          = "backend"
	cfgKeyDataDir          = "data_dir"
	cfgKeyDBName           = "db_name"
	cfgKeyStaleTime        = "cache.stale_time"
	cfgKeyContentDebounce  = "autosave.content_debounce"
	cfgKeyMetadataDebounce = "autosave.metadata_debounce"
	cfgKeyOllamaURL        = "ollama.base_url"
	cfgKeyOllamaTimeout    = "ollama.timeout"
	cfgKeyLogLevel         = "log_level"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# Alchemist configuration

# Backend selection
backend: sqlite

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Store name; the database file is <data_dir>/<db_name>.db
# db_name: alchemist-library

cache:
  stale_time: 5m

autosave:
  content_debounce: 300ms
  metadata_debounce: 1s

ollama:
  base_url: http://localhost:11434
  timeout: 60s

log_level: warn
`

// loadConfig reads config.yaml from configDir using Viper. It creates the
// config directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyDBName, types.DefaultDBName)
	v.SetDefault(cfgKeyStaleTime, query.DefaultStaleTime)
	v.SetDefault(cfgKeyContentDebounce, autosave.ContentWindow)
	v.SetDefault(cfgKeyMetadataDebounce, autosave.MetadataWindow)
	v.SetDefault(cfgKeyOllamaURL, ollama.DefaultBaseURL)
	v.SetDefault(cfgKeyOllamaTimeout, ollama.DefaultTimeout)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if none exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, paths.ConfigFileName)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// storeConfig builds the types.Config for Attach.
func (a *app) storeConfig() (types.Config, error) {
	dataDir, err := a.resolveDataDir()
	if err != nil {
		return types.Config{}, err
	}
	return types.Config{
		Backend: a.cfg.GetString(cfgKeyBackend),
		DataDir: dataDir,
		DBName:  a.cfg.GetString(cfgKeyDBName),
	}, nil
}

// duration reads a cache or autosave window, rejecting negatives.
func (a *app) duration(key string) (time.Duration, error) {
	d := a.cfg.GetDuration(key)
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
