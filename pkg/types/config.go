package types

import (
	"errors"
	"strings"
)

// Config holds backend selection and parameters for Library.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	DBName  string `json:"db_name" yaml:"db_name" mapstructure:"db_name"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultDBName is the store name used when Config.DBName is empty.
const DefaultDBName = "alchemist-library"

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrDBNameInvalid  = errors.New("db name must not contain path separators")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if strings.ContainsAny(c.DBName, `/\`) || c.DBName == "." || c.DBName == ".." {
		return ErrDBNameInvalid
	}
	return nil
}

// GetDBName returns DBName or DefaultDBName when unset.
func (c Config) GetDBName() string {
	if c.DBName == "" {
		return DefaultDBName
	}
	return c.DBName
}
