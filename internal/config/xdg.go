package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const appDirName = "totalrecall"

// XDGDirs provides XDG Base Directory compliant paths for TotalRecall.
type XDGDirs struct{}

// NewXDGDirs creates a new XDG directory manager.
func NewXDGDirs() *XDGDirs {
	return &XDGDirs{}
}

// GetConfigPaths returns prioritized paths where the config file can be
// found: user config dir first, then system config dirs.
func (x *XDGDirs) GetConfigPaths(filename string) []string {
	var paths []string

	userPath := filepath.Join(xdg.ConfigHome, appDirName, filename)
	paths = append(paths, userPath)

	for _, configDir := range xdg.ConfigDirs {
		paths = append(paths, filepath.Join(configDir, appDirName, filename))
	}

	slog.Debug("generated config paths",
		"filename", filename,
		"total_paths", len(paths),
		"user_path", userPath)

	return paths
}

// GetCachePath returns the cache directory path for a specific purpose.
func (x *XDGDirs) GetCachePath(purpose string) string {
	baseDir := appDirName
	if purpose != "" {
		baseDir = filepath.Join(baseDir, purpose)
	}
	return filepath.Join(xdg.CacheHome, baseDir)
}

// CreateCacheDir ensures the cache directory for a purpose exists.
func (x *XDGDirs) CreateCacheDir(purpose string) error {
	cachePath := x.GetCachePath(purpose)
	if err := os.MkdirAll(cachePath, 0755); err != nil {
		slog.Error("failed to create cache directory", "path", cachePath, "error", err)
		return err
	}
	return nil
}
