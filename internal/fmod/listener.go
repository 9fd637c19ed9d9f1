package fmod

import (
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ldayton/TotalRecall/internal/audio"
)

const defaultProgressInterval = 100 * time.Millisecond

// listenerManager owns the subscriber registry and the progress monitor.
// Subscribers are kept as a copy-on-write snapshot so no lock is held
// while callbacks run; a panicking subscriber never affects the others
// or the emitter.
type listenerManager struct {
	core      Core
	system    uintptr
	playState *playbackStateMachine
	interval  time.Duration

	listenersMu sync.Mutex
	listeners   []audio.PlaybackListener

	monMu       sync.Mutex
	handle      *PlaybackHandle
	totalFrames int64
	stopCh      chan struct{}
	doneCh      chan struct{}

	shutdown atomic.Bool
}

func newListenerManager(core Core, system uintptr, playState *playbackStateMachine, interval time.Duration) *listenerManager {
	if interval <= 0 {
		interval = defaultProgressInterval
	}
	return &listenerManager{
		core:      core,
		system:    system,
		playState: playState,
		interval:  interval,
	}
}

// AddListener registers a subscriber. Duplicates are permitted. Adding
// after shutdown is rejected and logged.
func (m *listenerManager) AddListener(l audio.PlaybackListener) {
	if m.shutdown.Load() {
		slog.Warn("cannot add listener to shutdown manager")
		return
	}
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	next := make([]audio.PlaybackListener, len(m.listeners)+1)
	copy(next, m.listeners)
	next[len(m.listeners)] = l
	m.listeners = next
}

// RemoveListener removes the first subscriber equal to l by identity.
func (m *listenerManager) RemoveListener(l audio.PlaybackListener) {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	for i, existing := range m.listeners {
		if existing == l {
			next := make([]audio.PlaybackListener, 0, len(m.listeners)-1)
			next = append(next, m.listeners[:i]...)
			next = append(next, m.listeners[i+1:]...)
			m.listeners = next
			return
		}
	}
}

// HasListeners reports whether anyone is subscribed.
func (m *listenerManager) HasListeners() bool {
	return len(m.snapshot()) > 0
}

// ListenerCount returns the number of subscribers.
func (m *listenerManager) ListenerCount() int {
	return len(m.snapshot())
}

func (m *listenerManager) snapshot() []audio.PlaybackListener {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	return m.listeners
}

// StartMonitoring begins periodic progress updates for handle. Any
// previous monitoring is stopped first. The first update runs
// immediately so the start position is captured.
func (m *listenerManager) StartMonitoring(handle *PlaybackHandle, totalFrames int64) {
	if m.shutdown.Load() {
		slog.Warn("cannot start monitoring on shutdown manager")
		return
	}

	m.StopMonitoring()

	m.monMu.Lock()
	m.handle = handle
	m.totalFrames = totalFrames

	if !m.HasListeners() {
		m.monMu.Unlock()
		return
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	m.stopCh = stopCh
	m.doneCh = doneCh
	m.monMu.Unlock()

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.updateProgress()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				m.updateProgress()
			}
		}
	}()
}

// StopMonitoring cancels the progress monitor and waits briefly for the
// goroutine to drain before abandoning it.
func (m *listenerManager) StopMonitoring() {
	doneCh := m.cancelMonitoring()
	if doneCh != nil {
		select {
		case <-doneCh:
		case <-time.After(m.interval):
		}
	}
}

// cancelMonitoring clears monitoring state and signals the goroutine
// without waiting. Used directly from the monitor goroutine itself,
// which must not wait for its own exit.
func (m *listenerManager) cancelMonitoring() chan struct{} {
	m.monMu.Lock()
	defer m.monMu.Unlock()

	m.handle = nil
	m.totalFrames = 0

	doneCh := m.doneCh
	if m.stopCh != nil {
		close(m.stopCh)
		m.stopCh = nil
		m.doneCh = nil
	}
	return doneCh
}

// NotifyStateChanged fans a state change out to all subscribers.
func (m *listenerManager) NotifyStateChanged(handle audio.PlaybackHandle, newState, oldState audio.PlaybackState) {
	for _, l := range m.snapshot() {
		m.invoke("state change", func(l audio.PlaybackListener) {
			l.OnStateChanged(handle, newState, oldState)
		}, l)
	}
}

// NotifyPlaybackComplete emits PLAYING->FINISHED and then the completion
// callback.
func (m *listenerManager) NotifyPlaybackComplete(handle audio.PlaybackHandle) {
	m.NotifyStateChanged(handle, audio.StateFinished, audio.StatePlaying)
	for _, l := range m.snapshot() {
		m.invoke("completion", func(l audio.PlaybackListener) {
			l.OnPlaybackComplete(handle)
		}, l)
	}
}

// NotifyProgress fans a progress tick out to all subscribers.
func (m *listenerManager) NotifyProgress(handle audio.PlaybackHandle, positionFrames, totalFrames int64) {
	for _, l := range m.snapshot() {
		m.invoke("progress", func(l audio.PlaybackListener) {
			l.OnProgress(handle, positionFrames, totalFrames)
		}, l)
	}
}

// NotifyError reports a playback error to all subscribers. handle may be
// nil when the failure happened before a handle existed.
func (m *listenerManager) NotifyError(handle audio.PlaybackHandle, message string) {
	for _, l := range m.snapshot() {
		m.invoke("error", func(l audio.PlaybackListener) {
			l.OnPlaybackError(handle, message)
		}, l)
	}
}

// invoke runs one callback with panic isolation. Panics whose type name
// marks them as test listener failures are logged without a stack.
func (m *listenerManager) invoke(kind string, fn func(audio.PlaybackListener), l audio.PlaybackListener) {
	defer func() {
		if r := recover(); r != nil {
			if strings.HasSuffix(fmt.Sprintf("%T", r), "TestListenerPanic") {
				slog.Warn("error in "+kind+" listener", "error", r)
			} else {
				slog.Warn("error in "+kind+" listener", "error", r, "stack", string(debug.Stack()))
			}
		}
	}()
	fn(l)
}

// updateProgress is one monitor tick: query the decoded position, apply
// latency compensation, fan progress out, and detect completion.
func (m *listenerManager) updateProgress() {
	m.monMu.Lock()
	handle := m.handle
	totalFrames := m.totalFrames
	m.monMu.Unlock()

	if handle == nil || !m.HasListeners() {
		return
	}

	if !handle.IsActive() {
		m.handlePlaybackStopped()
		return
	}

	position, res := m.core.ChannelGetPosition(handle.channel, TimeUnitPCM)
	switch {
	case res == ResOK:
		decoded := int64(position)
		hearing := m.hearingPosition(decoded, handle.audio.sound, handle.startFrame)
		m.NotifyProgress(handle, hearing, totalFrames)
		if handle.endFrame != audio.UntilEnd && hearing >= handle.endFrame {
			m.handlePlaybackStopped()
		}
	case res == ResErrInvalidHandle:
		m.handlePlaybackStopped()
	default:
		slog.Debug("failed to get position", "result", Describe(res))
	}
}

// hearingPosition compensates the decoded position for mixer buffering,
// estimating the sample currently audible at the output. Returns the
// uncompensated position when the buffer configuration is unavailable.
func (m *listenerManager) hearingPosition(decoded int64, sound uintptr, startFrame int64) int64 {
	rel := decoded - startFrame
	if rel < 0 {
		rel = 0
	}

	bufferLength, numBuffers, res := m.core.SystemGetDSPBufferSize(m.system)
	if res != ResOK {
		return decoded
	}
	outRate, _, _, res := m.core.SystemGetSoftwareFormat(m.system)
	if res != ResOK {
		return decoded
	}

	sourceRate := int64(outputRate)
	if frequency, _, res := m.core.SoundGetDefaults(sound); res == ResOK && frequency > 0 {
		sourceRate = int64(frequency)
	}

	if bufferLength == 0 || numBuffers == 0 || outRate <= 0 || sourceRate <= 0 {
		return decoded
	}

	// Mixer lead: the whole buffers queued ahead of the output plus the
	// half buffer being mixed.
	leadOut := int64(bufferLength)*int64(numBuffers-1) + int64(bufferLength)/2

	leadSrc := leadOut
	if int64(outRate) != sourceRate {
		leadSrc = int64(math.Round(float64(leadOut) * float64(sourceRate) / float64(outRate)))
	}
	if leadSrc > rel {
		leadSrc = rel
	}
	return startFrame + (rel - leadSrc)
}

// handlePlaybackStopped deactivates the monitored handle, records the
// terminal state, fires completion once, and stops monitoring.
func (m *listenerManager) handlePlaybackStopped() {
	m.monMu.Lock()
	handle := m.handle
	m.monMu.Unlock()

	if handle != nil {
		handle.markInactive()
		if m.playState != nil && !m.playState.CompareAndSet(audio.StatePlaying, audio.StateFinished) {
			m.playState.HandleChannelInvalid()
		}
		m.NotifyPlaybackComplete(handle)
	}
	m.cancelMonitoring()
}

// Shutdown stops monitoring and clears subscribers. Idempotent; further
// AddListener calls become no-ops.
func (m *listenerManager) Shutdown() {
	if !m.shutdown.CompareAndSwap(false, true) {
		return
	}
	m.StopMonitoring()
	m.listenersMu.Lock()
	m.listeners = nil
	m.listenersMu.Unlock()
}

// IsShutdown reports whether Shutdown has run.
func (m *listenerManager) IsShutdown() bool {
	return m.shutdown.Load()
}
