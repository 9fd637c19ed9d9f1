package fmod

import (
	"sync/atomic"

	"github.com/ldayton/TotalRecall/internal/audio"
)

// AudioHandle is the engine's audio.AudioHandle implementation. Validity
// is a pure function of the lifecycle manager's current generation and
// current handle; the handle itself is immutable.
type AudioHandle struct {
	id         int64
	generation int64
	sound      uintptr
	filePath   string
	lifecycle  *handleLifecycle
}

func (h *AudioHandle) ID() int64         { return h.id }
func (h *AudioHandle) Generation() int64 { return h.generation }
func (h *AudioHandle) FilePath() string  { return h.filePath }

func (h *AudioHandle) IsValid() bool {
	return h.lifecycle.IsValid(h)
}

var playbackIDs atomic.Int64

// PlaybackHandle is the engine's audio.PlaybackHandle implementation.
type PlaybackHandle struct {
	id         int64
	audio      *AudioHandle
	channel    uintptr
	startFrame int64
	endFrame   int64
	active     atomic.Bool
}

func newPlaybackHandle(a *AudioHandle, channel uintptr, startFrame, endFrame int64) *PlaybackHandle {
	h := &PlaybackHandle{
		id:         playbackIDs.Add(1),
		audio:      a,
		channel:    channel,
		startFrame: startFrame,
		endFrame:   endFrame,
	}
	h.active.Store(true)
	return h
}

func (h *PlaybackHandle) ID() int64                { return h.id }
func (h *PlaybackHandle) Audio() audio.AudioHandle { return h.audio }
func (h *PlaybackHandle) StartFrame() int64        { return h.startFrame }
func (h *PlaybackHandle) EndFrame() int64          { return h.endFrame }
func (h *PlaybackHandle) IsActive() bool           { return h.active.Load() }

func (h *PlaybackHandle) markInactive() { h.active.Store(false) }

// handleLifecycle tracks handle validity with a generation counter and a
// single current handle. Generation plus identity prevents a stale
// handle with a recycled id from passing validation.
type handleLifecycle struct {
	currentGeneration atomic.Int64
	nextHandleID      atomic.Int64
	currentHandle     atomic.Pointer[AudioHandle]
}

func newHandleLifecycle() *handleLifecycle {
	return &handleLifecycle{}
}

// CreateHandle mints a handle at a fresh generation and installs it as
// the sole current handle, invalidating every prior handle.
func (l *handleLifecycle) CreateHandle(sound uintptr, filePath string) *AudioHandle {
	generation := l.currentGeneration.Add(1)
	id := l.nextHandleID.Add(1)

	handle := &AudioHandle{
		id:         id,
		generation: generation,
		sound:      sound,
		filePath:   filePath,
		lifecycle:  l,
	}
	l.currentHandle.Store(handle)
	return handle
}

// IsValid reports whether h is from the current generation and is the
// current handle.
func (l *handleLifecycle) IsValid(h *AudioHandle) bool {
	if h == nil {
		return false
	}
	return h.generation == l.currentGeneration.Load() && h == l.currentHandle.Load()
}

// IsCurrent reports whether h is the current handle by identity.
func (l *handleLifecycle) IsCurrent(h audio.AudioHandle) bool {
	current := l.currentHandle.Load()
	if current == nil {
		return false
	}
	fh, ok := h.(*AudioHandle)
	return ok && fh == current
}

// CurrentHandle returns the current handle, or nil when no audio is loaded.
func (l *handleLifecycle) CurrentHandle() *AudioHandle {
	return l.currentHandle.Load()
}

// CurrentGeneration returns the generation counter.
func (l *handleLifecycle) CurrentGeneration() int64 {
	return l.currentGeneration.Load()
}

// Clear drops the current handle without touching the generation counter.
func (l *handleLifecycle) Clear() {
	l.currentHandle.Store(nil)
}
