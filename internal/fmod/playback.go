package fmod

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ldayton/TotalRecall/internal/audio"
)

// playbackManager is a thin wrapper over native channel operations. It
// enforces one channel at a time and leaves state validation to the
// engine facade.
type playbackManager struct {
	core   Core
	system uintptr

	mu             sync.Mutex // playback lock
	currentHandle  *PlaybackHandle
	currentChannel uintptr
}

func newPlaybackManager(core Core, system uintptr) *playbackManager {
	return &playbackManager{core: core, system: system}
}

// Play starts full playback of sound. Any existing channel is cleaned up
// first, so however many callers race, exactly one handle ends current.
func (m *playbackManager) Play(sound uintptr, a *AudioHandle) (*PlaybackHandle, error) {
	return m.start(sound, a, 0, audio.UntilEnd, false)
}

// PlayRange starts playback bounded to [startFrame, endFrame). When
// needsPositioning is set and startFrame is positive, the channel is
// positioned before it is unpaused.
func (m *playbackManager) PlayRange(sound uintptr, a *AudioHandle, startFrame, endFrame int64, needsPositioning bool) (*PlaybackHandle, error) {
	return m.start(sound, a, startFrame, endFrame, needsPositioning)
}

func (m *playbackManager) start(sound uintptr, a *AudioHandle, startFrame, endFrame int64, needsPositioning bool) (*PlaybackHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentChannel != 0 {
		m.cleanupLocked()
	}

	// Start paused so the channel handle exists before audio runs.
	channel, res := m.core.SystemPlaySound(m.system, sound, true)
	if res != ResOK {
		return nil, playbackError(res, "play sound")
	}

	if needsPositioning && startFrame > 0 {
		if res := m.core.ChannelSetPosition(channel, uint32(startFrame), TimeUnitPCM); res != ResOK {
			m.core.ChannelStop(channel)
			return nil, playbackError(res, "set position")
		}
	}

	if res := m.core.ChannelSetPaused(channel, false); res != ResOK {
		m.core.ChannelStop(channel)
		return nil, playbackError(res, "start playback")
	}

	handle := newPlaybackHandle(a, channel, startFrame, endFrame)
	m.currentHandle = handle
	m.currentChannel = channel
	return handle, nil
}

// Pause pauses the current channel. A channel the native layer no longer
// recognizes is cleaned up and the pause is a no-op.
func (m *playbackManager) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentChannel == 0 {
		return fmt.Errorf("%w: no active playback to pause", audio.ErrPlaybackNotActive)
	}

	res := m.core.ChannelSetPaused(m.currentChannel, true)
	if res == ResErrInvalidHandle {
		m.cleanupLocked()
		return nil
	}
	if res != ResOK {
		return playbackError(res, "pause")
	}
	return nil
}

// Resume unpauses the current channel, with the same invalid-handle
// recovery as Pause.
func (m *playbackManager) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentChannel == 0 {
		return fmt.Errorf("%w: no active playback to resume", audio.ErrPlaybackNotActive)
	}

	res := m.core.ChannelSetPaused(m.currentChannel, false)
	if res == ResErrInvalidHandle {
		m.cleanupLocked()
		return nil
	}
	if res != ResOK {
		return playbackError(res, "resume")
	}
	return nil
}

// Stop stops and clears the current channel; a no-op when nothing plays.
func (m *playbackManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentChannel == 0 {
		return
	}
	m.cleanupLocked()
}

// Seek repositions the current channel. INVALID_POSITION is accepted
// silently since the native layer clamps to the valid range.
func (m *playbackManager) Seek(frame int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentChannel == 0 {
		return fmt.Errorf("%w: no active playback to seek", audio.ErrPlaybackNotActive)
	}

	res := m.core.ChannelSetPosition(m.currentChannel, uint32(frame), TimeUnitPCM)
	if res == ResErrInvalidHandle {
		m.cleanupLocked()
		return nil
	}
	if res == ResErrInvalidPosition {
		return nil
	}
	if res != ResOK {
		return playbackError(res, "seek")
	}
	return nil
}

// Position returns the decoded position in frames, or 0 when nothing
// plays or the channel has died.
func (m *playbackManager) Position() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentChannel == 0 {
		return 0
	}

	position, res := m.core.ChannelGetPosition(m.currentChannel, TimeUnitPCM)
	if res == ResErrInvalidHandle {
		m.cleanupLocked()
		return 0
	}
	if res != ResOK {
		slog.Warn("failed to get position", "result", Describe(res))
		return 0
	}
	return int64(position)
}

// CheckFinished reports true and cleans up when the current channel has
// stopped playing (or is no longer valid).
func (m *playbackManager) CheckFinished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentChannel == 0 {
		return false
	}

	playing, res := m.core.ChannelIsPlaying(m.currentChannel)
	if res == ResErrInvalidHandle || (res == ResOK && !playing) {
		m.cleanupLocked()
		return true
	}
	return false
}

// HasActive reports whether a channel is current (playing or paused).
func (m *playbackManager) HasActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentChannel != 0
}

// Current returns the current playback handle, or nil.
func (m *playbackManager) Current() *PlaybackHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentHandle
}

// cleanupLocked stops the channel, deactivates the handle, and clears
// the references. Caller holds the playback lock.
func (m *playbackManager) cleanupLocked() {
	if m.currentChannel != 0 {
		if res := m.core.ChannelStop(m.currentChannel); res != ResOK && res != ResErrInvalidHandle {
			slog.Warn("failed to stop channel during cleanup", "result", Describe(res))
		}
	}
	if m.currentHandle != nil {
		m.currentHandle.markInactive()
	}
	m.currentHandle = nil
	m.currentChannel = 0
}
