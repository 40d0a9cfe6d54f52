package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func resetViper() {
	viper.Reset()
}

func TestLoad_WithDefaults(t *testing.T) {
	resetViper()
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}

	if cfg.Engine.FuzzyMatchMinConfidence != 50 {
		t.Errorf("Expected FuzzyMatchMinConfidence 50, got %d", cfg.Engine.FuzzyMatchMinConfidence)
	}
	if cfg.Engine.FuzzyMatchMaxContextMismatch != 3 {
		t.Errorf("Expected FuzzyMatchMaxContextMismatch 3, got %d", cfg.Engine.FuzzyMatchMaxContextMismatch)
	}
	if !cfg.Engine.ElideEmptyCommits {
		t.Error("Expected ElideEmptyCommits true by default")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("Failed to get home directory: %v", err)
	}

	expectedBasePath := filepath.Join(homeDir, ".patchdance")
	if cfg.Storage.BasePath != expectedBasePath {
		t.Errorf("Expected Storage.BasePath %q, got %q", expectedBasePath, cfg.Storage.BasePath)
	}

	expectedDatabasePath := filepath.Join(homeDir, ".patchdance", "journal.db")
	if cfg.Storage.DatabasePath != expectedDatabasePath {
		t.Errorf("Expected Storage.DatabasePath %q, got %q", expectedDatabasePath, cfg.Storage.DatabasePath)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Expected Logging.Level info, got %q", cfg.Logging.Level)
	}
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	resetViper()
	os.Setenv("PATCHDANCE_ENGINE_FUZZY_MATCH_MIN_CONFIDENCE", "75")
	os.Setenv("PATCHDANCE_ENGINE_TRANSACTION_TIMEOUT_SECONDS", "60")
	defer func() {
		os.Unsetenv("PATCHDANCE_ENGINE_FUZZY_MATCH_MIN_CONFIDENCE")
		os.Unsetenv("PATCHDANCE_ENGINE_TRANSACTION_TIMEOUT_SECONDS")
		resetViper()
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Engine.FuzzyMatchMinConfidence != 75 {
		t.Errorf("Expected FuzzyMatchMinConfidence overridden by env var, got %d", cfg.Engine.FuzzyMatchMinConfidence)
	}

	if cfg.Engine.TransactionTimeoutSeconds != 60 {
		t.Errorf("Expected TransactionTimeoutSeconds overridden by env var, got %d", cfg.Engine.TransactionTimeoutSeconds)
	}
}

func TestExpandHomeDir(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("Failed to get home directory: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde only",
			input:    "~",
			expected: homeDir,
		},
		{
			name:     "tilde with slash",
			input:    "~/test/path",
			expected: filepath.Join(homeDir, "test", "path"),
		},
		{
			name:     "no tilde",
			input:    "/absolute/path",
			expected: "/absolute/path",
		},
		{
			name:     "relative path",
			input:    "relative/path",
			expected: "relative/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandHomeDir(tt.input)
			if result != tt.expected {
				t.Errorf("expandHomeDir(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}
