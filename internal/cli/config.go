package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/timecard/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDBPath   = "db_path"
	cfgKeyLogLevel = "log_level"
	cfgKeyLogFile  = "log_file"
	cfgKeyPageSize = "page_size"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	DBPath   string `yaml:"db_path,omitempty"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file,omitempty"`
	PageSize int    `yaml:"page_size"`
}

const configHeader = `# timecard configuration
#
# db_path:   database file (overridable by --db and TIMECARD_DB)
# log_level: debug, info, warn or error
# log_file:  append logs to this file instead of stderr
# page_size: tasks per page in listings

`

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	if _, err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), ""); err != nil {
		return nil, fmt.Errorf("write default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, types.DefaultLogLevel)
	v.SetDefault(cfgKeyPageSize, types.DefaultPageSize)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, userError(fmt.Errorf("read config: %w", err))
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml with default values, recording
// dbPath when it is not empty. It reports whether it wrote the file; an
// existing file is left alone.
func writeConfigIfMissing(path, dbPath string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	cfg := configFile{
		DBPath:   dbPath,
		LogLevel: types.DefaultLogLevel,
		PageSize: types.DefaultPageSize,
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	return true, os.WriteFile(path, append([]byte(configHeader), data...), 0o644)
}
