package fmod

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/ebitengine/purego"
)

// LoadingMode selects where the native library is resolved from.
type LoadingMode int

const (
	// LoadPackaged resolves the library by name from the OS library path.
	LoadPackaged LoadingMode = iota
	// LoadUnpackaged resolves the library from an explicit filesystem path.
	LoadUnpackaged
)

// LibraryType selects the release or diagnostic build of the library.
type LibraryType int

const (
	LibraryStandard LibraryType = iota
	LibraryLogging
)

// ParseLoadingMode maps a config string to a LoadingMode, defaulting to
// packaged on unrecognized input.
func ParseLoadingMode(s string) LoadingMode {
	switch s {
	case "", "packaged":
		return LoadPackaged
	case "unpackaged":
		return LoadUnpackaged
	default:
		slog.Warn("invalid loading mode, defaulting to packaged", "mode", s)
		return LoadPackaged
	}
}

// ParseLibraryType maps a config string to a LibraryType, defaulting to
// standard on unrecognized input.
func ParseLibraryType(s string) LibraryType {
	switch s {
	case "", "standard":
		return LibraryStandard
	case "logging":
		return LibraryLogging
	default:
		slog.Warn("invalid library type, defaulting to standard", "type", s)
		return LibraryStandard
	}
}

// LoaderConfig carries the recognized native-library options.
type LoaderConfig struct {
	Mode        LoadingMode
	Type        LibraryType
	LibraryPath string // file or directory, used in unpackaged mode
}

// Loader locates and loads the native decoder/mixer shared object and
// binds its symbols. Loading is performed at most once; subsequent Load
// calls return the same Core.
type Loader struct {
	mu   sync.Mutex
	cfg  LoaderConfig
	core Core
}

// NewLoader creates a loader for the given configuration.
func NewLoader(cfg LoaderConfig) *Loader {
	return &Loader{cfg: cfg}
}

// Load resolves, opens, and binds the native library.
func (l *Loader) Load() (core Core, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.core != nil {
		return l.core, nil
	}

	name, err := l.resolveLibrary()
	if err != nil {
		return nil, err
	}

	slog.Debug("loading native audio library", "library", name, "mode", l.cfg.Mode, "type", l.cfg.Type)

	// Symbol registration panics on a missing symbol; surface that as a
	// load error instead of killing the process.
	defer func() {
		if r := recover(); r != nil {
			core = nil
			err = fmt.Errorf("failed to bind native audio library %s: %v", name, r)
		}
	}()

	lib, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		slog.Error("failed to open native audio library", "library", name, "error", err)
		return nil, fmt.Errorf("failed to load native audio library %s: %w", name, err)
	}

	l.core = registerCore(lib)
	slog.Info("native audio library loaded", "library", name)
	return l.core, nil
}

// resolveLibrary returns what Dlopen should be handed: a bare soname in
// packaged mode, an absolute file path in unpackaged mode.
func (l *Loader) resolveLibrary() (string, error) {
	filename := libraryFilename(l.cfg.Type)

	if l.cfg.Mode == LoadPackaged {
		return filename, nil
	}

	path := l.cfg.LibraryPath
	if path == "" {
		return "", fmt.Errorf("unpackaged loading mode requires a library path")
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("native audio library path not found: %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, filename)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("native audio library not found at %s: %w", path, err)
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve native audio library path %s: %w", path, err)
	}
	return abs, nil
}

// libraryFilename returns the platform filename for the library variant.
func libraryFilename(t LibraryType) string {
	base := "libfmod"
	if t == LibraryLogging {
		base = "libfmodL"
	}
	if runtime.GOOS == "darwin" {
		return base + ".dylib"
	}
	return base + ".so"
}
