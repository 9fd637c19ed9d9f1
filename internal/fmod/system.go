package fmod

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ldayton/TotalRecall/internal/audio"
)

// Playback mixer configuration: small DSP buffers for low latency, mono
// 48 kHz output for the annotation workflow.
const (
	dspBufferLength = 256
	dspNumBuffers   = 4
	outputRate      = 48000
	maxChannels     = 2
)

// systemManager owns the native system used for playback: creation,
// mixer configuration, and release.
type systemManager struct {
	mu       sync.Mutex
	loader   *Loader
	injected Core // bypasses the loader when set (tests)

	core        Core
	system      uintptr
	initialized bool
}

func newSystemManager(loader *Loader) *systemManager {
	return &systemManager{loader: loader}
}

func newSystemManagerWithCore(core Core) *systemManager {
	return &systemManager{injected: core}
}

// Initialize loads the native library, creates the system, configures
// the mixer, and brings it up. Fails if already initialized; with
// concurrent callers exactly one succeeds.
func (m *systemManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return fmt.Errorf("%w", audio.ErrAlreadyInitialized)
	}

	core := m.injected
	if core == nil {
		loaded, err := m.loader.Load()
		if err != nil {
			return err
		}
		core = loaded
	}

	system, res := core.SystemCreate()
	if res != ResOK {
		return engineError(res, "create native system")
	}

	m.configureForPlayback(core, system)

	if res := core.SystemInit(system, maxChannels, InitNormal); res != ResOK {
		core.SystemRelease(system)
		return engineError(res, "initialize native system")
	}

	m.core = core
	m.system = system
	m.initialized = true

	slog.Info("native audio system initialized",
		"version", m.versionInfoLocked(),
		"buffers", m.bufferInfoLocked(),
		"format", m.formatInfoLocked())
	return nil
}

// configureForPlayback applies the low-latency mixer settings. Failures
// here are logged, not fatal; the native defaults still play audio.
func (m *systemManager) configureForPlayback(core Core, system uintptr) {
	if res := core.SystemSetDSPBufferSize(system, dspBufferLength, dspNumBuffers); res != ResOK {
		slog.Warn("could not set DSP buffer size for low latency", "result", Describe(res))
	}
	if res := core.SystemSetSoftwareFormat(system, outputRate, SpeakerModeMono, 0); res != ResOK {
		slog.Warn("could not set software format", "result", Describe(res))
	}
}

// Update pumps the native system. Safe in any state; a no-op before
// initialization.
func (m *systemManager) Update() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized || m.system == 0 {
		return
	}
	m.core.SystemUpdate(m.system)
}

// Shutdown releases the native system. Idempotent.
func (m *systemManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return
	}
	if m.system != 0 {
		if res := m.core.SystemRelease(m.system); res != ResOK {
			slog.Warn("error releasing native system", "result", Describe(res))
		}
	}
	m.system = 0
	m.initialized = false
}

// IsInitialized reports whether the system is up.
func (m *systemManager) IsInitialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// System returns the native system pointer, or 0 when not initialized.
func (m *systemManager) System() uintptr {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.system
}

// CoreAPI returns the bound library surface, or nil when not initialized.
func (m *systemManager) CoreAPI() Core {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.core
}

// VersionInfo describes the loaded native library version, or "" when
// not initialized.
func (m *systemManager) VersionInfo() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versionInfoLocked()
}

func (m *systemManager) versionInfoLocked() string {
	if !m.initialized || m.system == 0 {
		return ""
	}
	version, build, res := m.core.SystemGetVersion(m.system)
	if res != ResOK {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d (build %d)",
		(version>>16)&0xFFFF, (version>>8)&0xFF, version&0xFF, build)
}

// BufferInfo describes the DSP buffer configuration, or "" when not
// initialized.
func (m *systemManager) BufferInfo() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bufferInfoLocked()
}

func (m *systemManager) bufferInfoLocked() string {
	if !m.initialized || m.system == 0 {
		return ""
	}
	length, num, res := m.core.SystemGetDSPBufferSize(m.system)
	if res != ResOK {
		return ""
	}
	return fmt.Sprintf("%d samples x %d buffers", length, num)
}

// FormatInfo describes the software mixer format, or "" when not
// initialized.
func (m *systemManager) FormatInfo() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.formatInfoLocked()
}

func (m *systemManager) formatInfoLocked() string {
	if !m.initialized || m.system == 0 {
		return ""
	}
	rate, mode, _, res := m.core.SystemGetSoftwareFormat(m.system)
	if res != ResOK {
		return ""
	}
	return fmt.Sprintf("%d Hz, speaker mode: %d", rate, int32(mode))
}
