package fmod

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ldayton/TotalRecall/internal/audio"
)

// playbackStateMachine enforces legal playback state transitions:
//
//	STOPPED  -> PLAYING
//	PLAYING  -> PAUSED | STOPPED | FINISHED
//	PAUSED   -> PLAYING | STOPPED
//	FINISHED -> PLAYING | STOPPED
//
// SEEKING is never held as a stable state; seeks are announced to
// listeners as a transient pair by the engine.
type playbackStateMachine struct {
	mu    sync.Mutex
	state audio.PlaybackState
}

func newPlaybackStateMachine() *playbackStateMachine {
	return &playbackStateMachine{state: audio.StateStopped}
}

// Current returns the stable state.
func (m *playbackStateMachine) Current() audio.PlaybackState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsActive reports whether playback is playing or paused.
func (m *playbackStateMachine) IsActive() bool {
	s := m.Current()
	return s != audio.StateStopped && s != audio.StateFinished
}

// TransitionToPlaying starts playback from STOPPED or FINISHED (restart).
func (m *playbackStateMachine) TransitionToPlaying() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != audio.StateStopped && m.state != audio.StateFinished {
		return fmt.Errorf("%w: cannot start playback from state %s", audio.ErrPlaybackFailed, m.state)
	}
	m.state = audio.StatePlaying
	return nil
}

// TransitionToPaused pauses from PLAYING only.
func (m *playbackStateMachine) TransitionToPaused() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != audio.StatePlaying {
		return fmt.Errorf("%w: cannot pause from state %s", audio.ErrPlaybackFailed, m.state)
	}
	m.state = audio.StatePaused
	return nil
}

// Resume returns to PLAYING from PAUSED only.
func (m *playbackStateMachine) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != audio.StatePaused {
		return fmt.Errorf("%w: cannot resume from state %s", audio.ErrPlaybackFailed, m.state)
	}
	m.state = audio.StatePlaying
	return nil
}

// TransitionToStopped stops from any non-STOPPED state.
func (m *playbackStateMachine) TransitionToStopped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = audio.StateStopped
}

// TransitionToFinished marks natural completion; only legal from PLAYING.
func (m *playbackStateMachine) TransitionToFinished() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != audio.StatePlaying {
		return fmt.Errorf("%w: cannot finish playback from state %s", audio.ErrPlaybackFailed, m.state)
	}
	m.state = audio.StateFinished
	return nil
}

// ValidateSeekAllowed permits seeking only from PLAYING or PAUSED. Seeks
// are instant, so no state change happens here.
func (m *playbackStateMachine) ValidateSeekAllowed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != audio.StatePlaying && m.state != audio.StatePaused {
		return fmt.Errorf("%w: cannot seek from state %s", audio.ErrPlaybackFailed, m.state)
	}
	return nil
}

// HandleChannelInvalid forces PLAYING/PAUSED to STOPPED when the native
// channel disappears; STOPPED and FINISHED are left as they are.
func (m *playbackStateMachine) HandleChannelInvalid() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != audio.StateStopped && m.state != audio.StateFinished {
		m.state = audio.StateStopped
	}
}

// Reset returns to STOPPED unconditionally.
func (m *playbackStateMachine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = audio.StateStopped
}

// CompareAndSet transitions only when the current state matches expected
// and the transition is legal.
func (m *playbackStateMachine) CompareAndSet(expected, next audio.PlaybackState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != expected {
		return false
	}
	if !isValidPlaybackTransition(expected, next) {
		slog.Warn("invalid playback transition attempt", "from", expected, "to", next)
		return false
	}
	m.state = next
	return true
}

func isValidPlaybackTransition(from, to audio.PlaybackState) bool {
	switch from {
	case audio.StateStopped:
		return to == audio.StatePlaying
	case audio.StateFinished:
		return to == audio.StatePlaying || to == audio.StateStopped
	case audio.StatePlaying:
		return to == audio.StatePaused || to == audio.StateStopped || to == audio.StateFinished
	case audio.StatePaused:
		return to == audio.StatePlaying || to == audio.StateStopped
	default:
		return false
	}
}
