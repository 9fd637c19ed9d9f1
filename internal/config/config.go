package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// FileLoggingConfig represents file-based logging configuration.
type FileLoggingConfig struct {
	Enabled    bool   `json:"enabled"`      // Whether file logging is enabled
	Filename   string `json:"filename"`     // Log file path (empty = XDG cache path)
	MaxSizeMB  int    `json:"max_size_mb"`  // Max file size in MB before rotation
	MaxBackups int    `json:"max_backups"`  // Max number of backup files to keep
	MaxAgeDays int    `json:"max_age_days"` // Max age in days before deletion
	Compress   bool   `json:"compress"`     // Whether to compress rotated files
}

// Config represents TotalRecall configuration.
type Config struct {
	LoadingMode        string             `json:"loading_mode"`           // Native library resolution (packaged, unpackaged)
	LibraryType        string             `json:"library_type"`           // Native library variant (standard, logging)
	LibraryPath        string             `json:"library_path"`           // File or directory for unpackaged mode
	AudioHardware      bool               `json:"audio_hardware"`         // False for headless environments
	ProgressIntervalMS int                `json:"progress_interval_ms"`   // Playback progress callback period
	LogLevel           string             `json:"log_level"`              // Log level (debug, info, warn, error)
	FileLogging        *FileLoggingConfig `json:"file_logging,omitempty"` // File logging configuration
}

// ConfigManager handles loading, saving, and validating configuration.
type ConfigManager struct {
	fs  afero.Fs
	xdg *XDGDirs
}

// NewConfigManager creates a configuration manager over the OS filesystem.
func NewConfigManager() *ConfigManager {
	return NewConfigManagerWithFilesystem(afero.NewOsFs())
}

// NewConfigManagerWithFilesystem creates a configuration manager over the
// given filesystem. Tests use a memory filesystem.
func NewConfigManagerWithFilesystem(fs afero.Fs) *ConfigManager {
	slog.Debug("creating new config manager")
	return &ConfigManager{
		fs:  fs,
		xdg: NewXDGDirs(),
	}
}

// GetDefaultConfig returns the default configuration.
func (cm *ConfigManager) GetDefaultConfig() *Config {
	defaultConfig := &Config{
		LoadingMode:        "packaged",
		LibraryType:        "standard",
		LibraryPath:        "",
		AudioHardware:      true,
		ProgressIntervalMS: 100,
		LogLevel:           "warn",
		FileLogging: &FileLoggingConfig{
			Enabled:    true,
			Filename:   "", // Empty = XDG cache path
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}

	slog.Debug("generated default config",
		"loading_mode", defaultConfig.LoadingMode,
		"library_type", defaultConfig.LibraryType,
		"progress_interval_ms", defaultConfig.ProgressIntervalMS,
		"log_level", defaultConfig.LogLevel)

	return defaultConfig
}

// LoadFromFile loads configuration from a specific file. Fields absent
// from the file keep their defaults.
func (cm *ConfigManager) LoadFromFile(filePath string) (*Config, error) {
	slog.Debug("loading config from file", "file_path", filePath)

	data, err := afero.ReadFile(cm.fs, filePath)
	if err != nil {
		slog.Error("failed to read config file", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := cm.GetDefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		slog.Error("failed to parse config JSON", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cm.ValidateConfig(config); err != nil {
		slog.Error("config validation failed", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	slog.Debug("config loaded successfully",
		"file_path", filePath,
		"loading_mode", config.LoadingMode,
		"library_type", config.LibraryType)

	return config, nil
}

// SaveToFile saves configuration to a specific file.
func (cm *ConfigManager) SaveToFile(config *Config, filePath string) error {
	slog.Debug("saving config to file", "file_path", filePath)

	if err := cm.ValidateConfig(config); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	dir := filepath.Dir(filePath)
	if err := cm.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(cm.fs, filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	slog.Info("config saved successfully", "file_path", filePath)
	return nil
}

// LoadConfig loads configuration using XDG path discovery, falling back
// to defaults when no file is found.
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	configPaths := cm.xdg.GetConfigPaths("config.json")
	slog.Debug("searching for config file", "paths", configPaths)

	for _, configPath := range configPaths {
		if _, err := cm.fs.Stat(configPath); err == nil {
			slog.Debug("found config file", "path", configPath)
			return cm.LoadFromFile(configPath)
		}
	}

	slog.Debug("no config file found, using defaults")
	return cm.GetDefaultConfig(), nil
}

// ValidateConfig validates configuration values.
func (cm *ConfigManager) ValidateConfig(config *Config) error {
	var errors []string

	switch config.LoadingMode {
	case "", "packaged", "unpackaged":
	default:
		errors = append(errors, fmt.Sprintf("invalid loading mode '%s', must be one of: packaged, unpackaged", config.LoadingMode))
	}

	switch config.LibraryType {
	case "", "standard", "logging":
	default:
		errors = append(errors, fmt.Sprintf("invalid library type '%s', must be one of: standard, logging", config.LibraryType))
	}

	if config.LoadingMode == "unpackaged" && config.LibraryPath == "" {
		errors = append(errors, "unpackaged loading mode requires library_path")
	}

	if config.ProgressIntervalMS < 0 {
		errors = append(errors, fmt.Sprintf("progress_interval_ms must be >= 0, got %d", config.ProgressIntervalMS))
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if config.LogLevel != "" {
		valid := false
		for _, level := range validLogLevels {
			if config.LogLevel == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("invalid log level '%s', must be one of: %s",
				config.LogLevel, strings.Join(validLogLevels, ", ")))
		}
	}

	if config.FileLogging != nil {
		fileLogging := config.FileLogging
		if fileLogging.MaxSizeMB < 0 {
			errors = append(errors, fmt.Sprintf("file logging max_size_mb must be >= 0, got %d", fileLogging.MaxSizeMB))
		}
		if fileLogging.MaxBackups < 0 {
			errors = append(errors, fmt.Sprintf("file logging max_backups must be >= 0, got %d", fileLogging.MaxBackups))
		}
		if fileLogging.MaxAgeDays < 0 {
			errors = append(errors, fmt.Sprintf("file logging max_age_days must be >= 0, got %d", fileLogging.MaxAgeDays))
		}
	}

	if len(errors) > 0 {
		errMsg := strings.Join(errors, "; ")
		slog.Error("config validation failed", "errors", errMsg)
		return fmt.Errorf("config validation failed: %s", errMsg)
	}

	slog.Debug("config validation passed")
	return nil
}

// MergeConfigs merges two configurations, with override taking precedence.
func (cm *ConfigManager) MergeConfigs(base, override *Config) *Config {
	merged := *base

	if override.LoadingMode != "" {
		merged.LoadingMode = override.LoadingMode
	}
	if override.LibraryType != "" {
		merged.LibraryType = override.LibraryType
	}
	if override.LibraryPath != "" {
		merged.LibraryPath = override.LibraryPath
	}
	if override.ProgressIntervalMS != 0 {
		merged.ProgressIntervalMS = override.ProgressIntervalMS
	}
	if override.LogLevel != "" {
		merged.LogLevel = override.LogLevel
	}
	if override.FileLogging != nil {
		merged.FileLogging = override.FileLogging
	}

	return &merged
}

// ApplyEnvironmentOverrides applies TOTALRECALL_* environment variables
// on top of the config.
func (cm *ConfigManager) ApplyEnvironmentOverrides(config *Config) *Config {
	result := *config

	if mode := os.Getenv("TOTALRECALL_LOADING_MODE"); mode != "" {
		result.LoadingMode = mode
		slog.Debug("applied loading mode from environment", "value", mode)
	}
	if libType := os.Getenv("TOTALRECALL_LIBRARY_TYPE"); libType != "" {
		result.LibraryType = libType
		slog.Debug("applied library type from environment", "value", libType)
	}
	if libPath := os.Getenv("TOTALRECALL_LIBRARY_PATH"); libPath != "" {
		result.LibraryPath = libPath
		slog.Debug("applied library path from environment", "value", libPath)
	}
	if hardware := os.Getenv("TOTALRECALL_AUDIO_HARDWARE"); hardware != "" {
		if v, err := strconv.ParseBool(hardware); err == nil {
			result.AudioHardware = v
			slog.Debug("applied audio hardware flag from environment", "value", v)
		} else {
			slog.Warn("invalid TOTALRECALL_AUDIO_HARDWARE value", "value", hardware)
		}
	}
	if level := os.Getenv("TOTALRECALL_LOG_LEVEL"); level != "" {
		result.LogLevel = level
		slog.Debug("applied log level from environment", "value", level)
	}

	return &result
}

// ResolveLogFilePath returns the log file location: the configured
// filename when set, otherwise the XDG cache path.
func (cm *ConfigManager) ResolveLogFilePath(filename string) string {
	if filename != "" {
		return filename
	}
	return filepath.Join(cm.xdg.GetCachePath("logs"), "totalrecall.log")
}
