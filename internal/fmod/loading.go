package fmod

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/ldayton/TotalRecall/internal/audio"
)

// currentAudio is the atomically-swapped triple of handle, native sound,
// and canonical path for the one loaded file.
type currentAudio struct {
	handle *AudioHandle
	sound  uintptr
	path   string
}

// loadingManager owns the current native sound and enforces the
// single-audio paradigm: exactly one file is loaded at a time, and the
// previous sound is only released after its replacement exists.
type loadingManager struct {
	core      Core
	system    uintptr
	state     *stateManager
	lifecycle *handleLifecycle

	mu      sync.Mutex // loading lock
	current *currentAudio
}

func newLoadingManager(core Core, system uintptr, state *stateManager, lifecycle *handleLifecycle) *loadingManager {
	return &loadingManager{
		core:      core,
		system:    system,
		state:     state,
		lifecycle: lifecycle,
	}
}

// LoadAudio loads a file and makes it current. Loading the file that is
// already current returns the existing handle with no generation change.
func (m *loadingManager) LoadAudio(path string) (*AudioHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	canonical, err := m.validateAndNormalize(path)
	if err != nil {
		return nil, err
	}

	if m.current != nil && m.current.path == canonical {
		slog.Debug("audio already loaded", "path", canonical)
		return m.current.handle, nil
	}

	// Create the replacement before releasing what we have, so a failed
	// load leaves the prior audio intact and its handle valid.
	newSound, err := m.createSound(canonical)
	if err != nil {
		return nil, err
	}

	if m.current != nil {
		if res := m.core.SoundRelease(m.current.sound); res != ResOK && res != ResErrInvalidHandle {
			slog.Warn("error releasing previous sound", "path", m.current.path, "result", Describe(res))
		}
	}

	handle := m.lifecycle.CreateHandle(newSound, canonical)
	m.current = &currentAudio{handle: handle, sound: newSound, path: canonical}

	slog.Info("audio loaded", "path", canonical, "handle_id", handle.ID(), "generation", handle.Generation())
	return handle, nil
}

// CurrentMetadata extracts the loaded file's metadata, or reports that
// nothing is loaded.
func (m *loadingManager) CurrentMetadata() (audio.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return audio.Metadata{}, fmt.Errorf("%w: no audio loaded", audio.ErrHandleNotCurrent)
	}
	return m.extractMetadata(m.current.sound)
}

// IsCurrent reports whether handle is the currently loaded audio.
func (m *loadingManager) IsCurrent(handle audio.AudioHandle) bool {
	return m.lifecycle.IsCurrent(handle)
}

// CurrentSound returns the native sound pointer, or 0 when nothing is
// loaded.
func (m *loadingManager) CurrentSound() uintptr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0
	}
	return m.current.sound
}

// CurrentHandle returns the loaded handle, or nil.
func (m *loadingManager) CurrentHandle() *AudioHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.handle
}

// ReleaseAll releases the current sound and clears the current handle.
func (m *loadingManager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if res := m.core.SoundRelease(m.current.sound); res != ResOK && res != ResErrInvalidHandle {
			slog.Warn("error releasing sound", "path", m.current.path, "result", Describe(res))
		}
	}
	// Clear even if release failed so a dead pointer is never reused.
	m.current = nil
	m.lifecycle.Clear()
}

// validateAndNormalize rejects bad paths before any native call and
// resolves the canonical form used for same-file detection.
func (m *loadingManager) validateAndNormalize(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", audio.ErrFileNotFound, path)
		}
		return "", fmt.Errorf("%w: %s: %v", audio.ErrPathInvalid, path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: path is a directory, not a file: %s", audio.ErrPathInvalid, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: cannot read audio file: %s", audio.ErrPathInvalid, path)
	}
	f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: failed to resolve file path: %s", audio.ErrPathInvalid, path)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: failed to resolve file path: %s", audio.ErrPathInvalid, path)
	}
	return canonical, nil
}

// createSound asks the native library for a new sound object. Must be
// called with the loading lock held.
func (m *loadingManager) createSound(canonical string) (uintptr, error) {
	if err := m.state.CheckState(StateInitialized); err != nil {
		return 0, fmt.Errorf("%w: audio engine not initialized", audio.ErrLoadFailed)
	}

	sound, res := m.core.SystemCreateSound(m.system, canonical, ModeDefault|ModeAccurateTime)
	if res != ResOK {
		return 0, loadError(res, canonical)
	}
	if sound == 0 {
		return 0, fmt.Errorf("%w: native library returned null sound for %s", audio.ErrLoadFailed, canonical)
	}
	return sound, nil
}

// extractMetadata reads format, frame count, and sample rate from the
// native sound. Duration comes from frames/frequency rather than the
// millisecond accessor for precision.
func (m *loadingManager) extractMetadata(sound uintptr) (audio.Metadata, error) {
	soundType, channels, bits, res := m.core.SoundGetFormat(sound)
	if res != ResOK {
		return audio.Metadata{}, fmt.Errorf("%w: failed to extract audio format metadata: %s", audio.ErrLoadFailed, Describe(res))
	}

	frequency, _, res := m.core.SoundGetDefaults(sound)
	if res != ResOK {
		return audio.Metadata{}, fmt.Errorf("%w: failed to get sample rate: %s", audio.ErrLoadFailed, Describe(res))
	}

	lengthPCM, res := m.core.SoundGetLength(sound, TimeUnitPCM)
	if res != ResOK {
		return audio.Metadata{}, fmt.Errorf("%w: failed to get total samples: %s", audio.ErrLoadFailed, Describe(res))
	}

	frameCount := int64(lengthPCM)
	sampleRate := int(math.Round(float64(frequency)))

	return audio.Metadata{
		SampleRate:      sampleRate,
		ChannelCount:    int(channels),
		BitsPerSample:   int(bits),
		Format:          formatTag(soundType),
		FrameCount:      frameCount,
		DurationSeconds: float64(frameCount) / float64(sampleRate),
	}, nil
}
