package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	configFilePerm = 0600
	configDirPerm  = 0755
)

// EnsureConfigFile ensures the configuration file exists, creating it
// with default values if necessary. Callers should invoke this before
// Load. Security: resolves symlinks and validates paths stay within
// the home directory to guard against symlink attacks.
func EnsureConfigFile() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, configDirName)

	resolvedConfigDir, err := filepath.EvalSymlinks(configDir)
	if err != nil {
		if !isPathWithinHome(configDir, homeDir) {
			return fmt.Errorf("config directory path is outside home directory")
		}
		resolvedConfigDir = configDir
	} else if !isPathWithinHome(resolvedConfigDir, homeDir) {
		return fmt.Errorf("config directory resolves to path outside home directory")
	}

	configPath := filepath.Join(resolvedConfigDir, configFileName+"."+configFileType)

	if _, err := os.Stat(configPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	if err := ensureConfigDirectoryWithPath(resolvedConfigDir, homeDir); err != nil {
		return fmt.Errorf("failed to ensure config directory: %w", err)
	}

	if err := CreateDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create default config: %w", err)
	}

	return nil
}

func ensureConfigDirectoryWithPath(configDir, homeDir string) error {
	resolvedConfigDir, err := filepath.EvalSymlinks(configDir)
	if err != nil {
		if !isPathWithinHome(configDir, homeDir) {
			return fmt.Errorf("config directory path is outside home directory")
		}
		resolvedConfigDir = configDir
	} else if !isPathWithinHome(resolvedConfigDir, homeDir) {
		return fmt.Errorf("config directory is outside home directory")
	}

	if info, err := os.Stat(resolvedConfigDir); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("config path exists but is not a directory: %s", resolvedConfigDir)
		}
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config directory: %w", err)
	}

	if err := os.MkdirAll(resolvedConfigDir, configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	finalResolved, err := filepath.EvalSymlinks(resolvedConfigDir)
	if err == nil && !isPathWithinHome(finalResolved, homeDir) {
		return fmt.Errorf("config directory is outside home directory after creation")
	}

	return nil
}

// CreateDefaultConfig writes the default configuration file.
func CreateDefaultConfig() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, configDirName)
	resolvedConfigDir, err := filepath.EvalSymlinks(configDir)
	if err != nil {
		if !isPathWithinHome(configDir, homeDir) {
			return fmt.Errorf("config directory path is outside home directory")
		}
		resolvedConfigDir = configDir
	} else if !isPathWithinHome(resolvedConfigDir, homeDir) {
		return fmt.Errorf("config directory resolves to path outside home directory")
	}

	configPath := filepath.Join(resolvedConfigDir, configFileName+"."+configFileType)

	defaultCfg := &Config{
		Engine: EngineConfig{
			FuzzyMatchMinConfidence:      50,
			FuzzyMatchMaxContextMismatch: 3,
			BackupRetentionDays:          14,
			ElideEmptyCommits:            true,
			TransactionTimeoutSeconds:    300,
			CommitGraphWalkLimit:         0,
		},
		Storage: StorageConfig{
			BasePath:     "~/" + configDirName,
			DatabasePath: "~/" + configDirName + "/journal.db",
		},
		Logging: LoggingConfig{
			Level:    "info",
			FilePath: "~/" + configDirName + "/patchdance.log",
			Console:  true,
		},
	}

	expandedCfg := *defaultCfg
	expandConfigPaths(&expandedCfg)

	if err := os.MkdirAll(expandedCfg.Storage.BasePath, configDirPerm); err != nil {
		return fmt.Errorf("failed to create storage base path: %w", err)
	}

	if err := validateDefaultConfig(&expandedCfg); err != nil {
		return fmt.Errorf("default configuration validation failed: %w", err)
	}

	if err := Save(defaultCfg); err != nil {
		return fmt.Errorf("failed to save default config: %w", err)
	}

	if err := os.Chmod(configPath, configFilePerm); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	return nil
}

// validateDefaultConfig checks that the default configuration's
// required directories exist and are writable, lenient toward paths
// that a fresh install has not yet created.
func validateDefaultConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	if err := checkWritable(homeDir); err != nil {
		return fmt.Errorf("home directory is not writable: %w", err)
	}

	expandedBasePath := expandHomeDir(cfg.Storage.BasePath)
	parentDir := filepath.Dir(expandedBasePath)
	parentInfo, err := os.Stat(parentDir)
	if err != nil {
		return fmt.Errorf("storage base path parent directory does not exist: %w", err)
	}
	if !parentInfo.IsDir() {
		return fmt.Errorf("storage base path parent is not a directory")
	}
	if err := checkWritable(parentDir); err != nil {
		return fmt.Errorf("storage base path parent is not writable: %w", err)
	}

	return nil
}

// isPathWithinHome reports whether path is homeDir itself or a
// descendant of it, guarding config/storage paths against symlink
// escapes.
func isPathWithinHome(path, homeDir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absHome, err := filepath.Abs(homeDir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absHome, absPath)
	if err != nil {
		return false
	}
	return rel == "." || !strings.HasPrefix(rel, "..")
}

// checkWritable reports whether dir can be written to by creating and
// immediately removing a probe file.
func checkWritable(dir string) error {
	probe := filepath.Join(dir, ".patchdance-write-check")
	f, err := os.Create(probe)
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(probe)
}
