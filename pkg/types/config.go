package types

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
)

// Config holds the parameters the CLI resolves before opening the store.
type Config struct {
	DBPath   string `json:"db_path" yaml:"db_path"`
	LogLevel string `json:"log_level" yaml:"log_level"`
	LogFile  string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	PageSize int    `json:"page_size" yaml:"page_size"`
}

// Defaults applied when a key is missing from config.yaml.
const (
	DefaultLogLevel = "warn"
	DefaultPageSize = 20
)

// Config validation errors.
var (
	ErrDBPathEmpty     = errors.New("database path must not be empty")
	ErrDBPathRelative  = errors.New("database path must be absolute")
	ErrLogLevelUnknown = errors.New("unknown log level")
	ErrPageSizeInvalid = errors.New("page size must be positive")
)

// ParseLogLevel maps a level name to a slog level.
func ParseLogLevel(name string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, ErrLogLevelUnknown
	}
	return lvl, nil
}

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return ErrDBPathEmpty
	}
	if !filepath.IsAbs(c.DBPath) {
		return ErrDBPathRelative
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.PageSize <= 0 {
		return ErrPageSizeInvalid
	}
	return nil
}
