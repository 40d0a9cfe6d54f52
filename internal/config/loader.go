package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configDirName  = ".patchdance"
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "PATCHDANCE"
)

// Load loads the configuration from file, environment variables, and
// defaults, in order of increasing precedence:
// 1. Default values
// 2. Configuration file (~/.patchdance/config.yaml)
// 3. Environment variables (PATCHDANCE_ prefix)
func Load() (*Config, error) {
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("failed to initialize viper: %w", err)
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandConfigPaths(&cfg)

	return &cfg, nil
}

// initViper initializes Viper with the config file path and environment
// variable handling. Reading the file itself happens in Load so callers
// can distinguish "not found" from other errors in one place.
func initViper() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, configDirName)
	configPath := filepath.Join(configDir, configFileName+"."+configFileType)

	viper.SetConfigFile(configPath)
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	return nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "~"
	}

	viper.SetDefault("engine.fuzzy_match_min_confidence", 50)
	viper.SetDefault("engine.fuzzy_match_max_context_mismatch", 3)
	viper.SetDefault("engine.backup_retention_days", 14)
	viper.SetDefault("engine.elide_empty_commits", true)
	viper.SetDefault("engine.transaction_timeout_seconds", 300)
	viper.SetDefault("engine.commit_graph_walk_limit", 0)

	viper.SetDefault("storage.base_path", filepath.Join(homeDir, configDirName))
	viper.SetDefault("storage.database_path", filepath.Join(homeDir, configDirName, "journal.db"))

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file_path", filepath.Join(homeDir, configDirName, "patchdance.log"))
	viper.SetDefault("logging.console", true)
}

// expandHomeDir expands a leading ~ in path to the user's home directory.
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return homeDir
		}
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(homeDir, path[2:])
		}
	}
	return path
}

// expandConfigPaths expands all ~ paths in the configuration struct.
func expandConfigPaths(cfg *Config) {
	cfg.Storage.BasePath = expandHomeDir(cfg.Storage.BasePath)
	cfg.Storage.DatabasePath = expandHomeDir(cfg.Storage.DatabasePath)
	cfg.Logging.FilePath = expandHomeDir(cfg.Logging.FilePath)
}
