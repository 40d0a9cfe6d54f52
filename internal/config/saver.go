package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Save writes the configuration to ~/.patchdance/config.yaml, creating
// the config directory if needed, with paths rendered in ~ form for
// readability. The config directory is validated to stay within the
// home directory to guard against symlink attacks.
func Save(cfg *Config) error {
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

	if err := os.MkdirAll(resolvedConfigDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	resolvedConfigDir, err = filepath.EvalSymlinks(resolvedConfigDir)
	if err == nil && !isPathWithinHome(resolvedConfigDir, homeDir) {
		return fmt.Errorf("config directory is outside home directory")
	}

	configPath := filepath.Join(resolvedConfigDir, configFileName+"."+configFileType)

	saveCfg := convertPathsToTilde(cfg, homeDir)

	data, err := yaml.Marshal(saveCfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// convertPathsToTilde returns a copy of cfg with absolute paths under
// the home directory rewritten in ~ form.
func convertPathsToTilde(cfg *Config, homeDir string) *Config {
	return &Config{
		Engine: cfg.Engine,
		Storage: StorageConfig{
			BasePath:     convertPathToTilde(cfg.Storage.BasePath, homeDir),
			DatabasePath: convertPathToTilde(cfg.Storage.DatabasePath, homeDir),
		},
		Logging: LoggingConfig{
			Level:    cfg.Logging.Level,
			FilePath: convertPathToTilde(cfg.Logging.FilePath, homeDir),
			Console:  cfg.Logging.Console,
		},
	}
}

// convertPathToTilde converts an absolute path within homeDir to ~
// form, otherwise returns it unchanged.
func convertPathToTilde(path, homeDir string) string {
	if path == "" || strings.HasPrefix(path, "~") {
		return path
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	homeDirAbs, err := filepath.Abs(homeDir)
	if err != nil {
		return path
	}

	relPath, err := filepath.Rel(homeDirAbs, absPath)
	if err != nil {
		return path
	}

	if !strings.HasPrefix(relPath, "..") {
		if relPath == "." {
			return "~"
		}
		return filepath.Join("~", relPath)
	}

	return path
}
