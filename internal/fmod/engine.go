package fmod

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ldayton/TotalRecall/internal/audio"
)

var _ audio.Engine = (*Engine)(nil)

// Engine is the native-library implementation of audio.Engine. It
// orchestrates the system, loading, playback, and listener managers and
// enforces the operation order and single-playback rule.
//
// The operation lock serializes control operations (load, play, pause,
// resume, stop, seek) against each other; queries take only the current-
// playback mutex plus brief native calls.
type Engine struct {
	state     *stateManager
	lifecycle *handleLifecycle
	system    *systemManager
	loading   *loadingManager
	playback  *playbackManager
	playState *playbackStateMachine
	listeners *listenerManager

	core Core
	sys  uintptr

	opMu sync.Mutex // operation lock

	curMu           sync.Mutex
	currentPlayback *PlaybackHandle
	currentSound    uintptr // non-owning view of the loaded sound, handed to the playback manager on play
}

// Option configures an Engine at open time.
type Option func(*engineOptions)

type engineOptions struct {
	progressInterval time.Duration
}

// WithProgressInterval overrides the progress callback period.
func WithProgressInterval(d time.Duration) Option {
	return func(o *engineOptions) { o.progressInterval = d }
}

// Open loads the native library through loader and brings up a ready
// engine. On failure the partially-initialized system is torn down and
// the engine ends CLOSED.
func Open(loader *Loader, opts ...Option) (*Engine, error) {
	return open(newSystemManager(loader), opts...)
}

// openWithCore builds an engine over an already-bound Core. Tests use
// this to script the native layer.
func openWithCore(core Core, opts ...Option) (*Engine, error) {
	return open(newSystemManagerWithCore(core), opts...)
}

func open(system *systemManager, opts ...Option) (*Engine, error) {
	o := &engineOptions{progressInterval: defaultProgressInterval}
	for _, opt := range opts {
		opt(o)
	}

	state := newStateManager()
	if !state.CompareAndSet(StateUninitialized, StateInitializing) {
		return nil, fmt.Errorf("%w: cannot initialize engine in state %s", audio.ErrEngineState, state.Current())
	}

	if err := system.Initialize(); err != nil {
		system.Shutdown()
		state.CompareAndSet(StateInitializing, StateClosed)
		return nil, err
	}

	core := system.CoreAPI()
	sys := system.System()

	lifecycle := newHandleLifecycle()
	playState := newPlaybackStateMachine()

	e := &Engine{
		state:     state,
		lifecycle: lifecycle,
		system:    system,
		loading:   newLoadingManager(core, sys, state, lifecycle),
		playback:  newPlaybackManager(core, sys),
		playState: playState,
		listeners: newListenerManager(core, sys, playState, o.progressInterval),
		core:      core,
		sys:       sys,
	}

	if !state.CompareAndSet(StateInitializing, StateInitialized) {
		system.Shutdown()
		return nil, fmt.Errorf("%w: engine was closed during initialization", audio.ErrEngineState)
	}
	return e, nil
}

func (e *Engine) checkOperational() error {
	return e.state.CheckState(StateInitialized)
}

// LoadAudio loads path and makes it the current audio. An active
// playback of the previous audio is stopped first, with a STOPPED
// notification, before monitoring can start for the new one.
func (e *Engine) LoadAudio(path string) (audio.AudioHandle, error) {
	if err := e.checkOperational(); err != nil {
		return nil, err
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.stopActivePlaybackLocked()

	handle, err := e.loading.LoadAudio(path)
	if err != nil {
		return nil, err
	}

	e.curMu.Lock()
	e.currentSound = e.loading.CurrentSound()
	e.curMu.Unlock()
	return handle, nil
}

// Play starts full-file playback of the current audio. Fails if another
// playback is active.
func (e *Engine) Play(a audio.AudioHandle) (audio.PlaybackHandle, error) {
	if err := e.checkOperational(); err != nil {
		return nil, err
	}
	meta, err := e.Metadata(a)
	if err != nil {
		return nil, err
	}
	return e.playInternal(a, 0, meta.FrameCount)
}

// PlayRange starts playback of [startFrame, endFrame). A range playback
// interrupts an active playback rather than failing.
func (e *Engine) PlayRange(a audio.AudioHandle, startFrame, endFrame int64) (audio.PlaybackHandle, error) {
	return e.playInternal(a, startFrame, endFrame)
}

func (e *Engine) playInternal(a audio.AudioHandle, startFrame, endFrame int64) (audio.PlaybackHandle, error) {
	if err := e.checkOperational(); err != nil {
		return nil, err
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()
	if err := e.checkOperational(); err != nil {
		return nil, err
	}

	fh, ok := a.(*AudioHandle)
	if !ok {
		return nil, fmt.Errorf("%w: invalid audio handle type", audio.ErrHandleInvalid)
	}
	if !fh.IsValid() {
		return nil, fmt.Errorf("%w", audio.ErrHandleInvalid)
	}
	if !e.lifecycle.IsCurrent(fh) {
		return nil, fmt.Errorf("%w", audio.ErrHandleNotCurrent)
	}
	if startFrame < 0 || endFrame < startFrame {
		return nil, fmt.Errorf("%w: %d to %d", audio.ErrInvalidRange, startFrame, endFrame)
	}

	meta, err := e.loading.CurrentMetadata()
	if err != nil {
		return nil, err
	}
	isRange := startFrame > 0 || endFrame < meta.FrameCount

	current := e.getCurrentPlayback()
	if current != nil && current.IsActive() {
		if !isRange {
			return nil, fmt.Errorf("%w", audio.ErrAnotherPlayback)
		}
		// Range playback takes the channel over from whatever is active.
		e.playback.Stop()
		current.markInactive()
		e.listeners.StopMonitoring()
		e.playState.TransitionToStopped()
		e.listeners.NotifyStateChanged(current, audio.StateStopped, audio.StatePlaying)
		e.setCurrentPlayback(nil)
	}

	sound := e.getCurrentSound()
	var handle *PlaybackHandle
	if isRange {
		handle, err = e.playback.PlayRange(sound, fh, startFrame, endFrame, true)
	} else {
		handle, err = e.playback.Play(sound, fh)
	}
	if err != nil {
		e.listeners.NotifyError(nil, err.Error())
		return nil, err
	}

	e.setCurrentPlayback(handle)
	if err := e.playState.TransitionToPlaying(); err != nil {
		// State drifted while no playback was active; resynchronize.
		e.playState.Reset()
		_ = e.playState.TransitionToPlaying()
	}

	e.listeners.StartMonitoring(handle, endFrame-startFrame)
	e.listeners.NotifyStateChanged(handle, audio.StatePlaying, audio.StateStopped)
	return handle, nil
}

// Pause pauses the playback. Pausing an inactive handle is a no-op.
func (e *Engine) Pause(p audio.PlaybackHandle) error {
	if err := e.checkOperational(); err != nil {
		return err
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()
	if err := e.checkOperational(); err != nil {
		return err
	}

	fp, ok := p.(*PlaybackHandle)
	if !ok {
		return fmt.Errorf("%w: invalid playback handle type", audio.ErrPlaybackNotCurrent)
	}
	if !fp.IsActive() {
		return nil
	}
	if e.getCurrentPlayback() != fp {
		return fmt.Errorf("%w", audio.ErrPlaybackNotCurrent)
	}

	if err := e.playback.Pause(); err != nil {
		return err
	}
	if !e.playback.HasActive() {
		// Channel died under us; the pause dissolves into a stop.
		fp.markInactive()
		e.setCurrentPlayback(nil)
		e.playState.HandleChannelInvalid()
		return nil
	}

	e.playState.CompareAndSet(audio.StatePlaying, audio.StatePaused)
	e.listeners.NotifyStateChanged(fp, audio.StatePaused, audio.StatePlaying)
	return nil
}

// Resume resumes a paused playback. Resuming an inactive handle fails;
// a lost channel is a hard error.
func (e *Engine) Resume(p audio.PlaybackHandle) error {
	if err := e.checkOperational(); err != nil {
		return err
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()
	if err := e.checkOperational(); err != nil {
		return err
	}

	fp, ok := p.(*PlaybackHandle)
	if !ok {
		return fmt.Errorf("%w: invalid playback handle type", audio.ErrPlaybackNotCurrent)
	}
	if !fp.IsActive() {
		return fmt.Errorf("%w: cannot resume inactive playback", audio.ErrPlaybackNotActive)
	}
	if e.getCurrentPlayback() != fp {
		return fmt.Errorf("%w", audio.ErrPlaybackNotCurrent)
	}

	if err := e.playback.Resume(); err != nil {
		return err
	}
	if !e.playback.HasActive() {
		fp.markInactive()
		e.setCurrentPlayback(nil)
		e.playState.HandleChannelInvalid()
		return fmt.Errorf("%w: channel was stopped, cannot resume", audio.ErrChannelLost)
	}

	e.playState.CompareAndSet(audio.StatePaused, audio.StatePlaying)
	e.listeners.NotifyStateChanged(fp, audio.StatePlaying, audio.StatePaused)
	return nil
}

// Stop stops the playback. Stopping an inactive or non-current handle is
// a no-op.
func (e *Engine) Stop(p audio.PlaybackHandle) error {
	if err := e.checkOperational(); err != nil {
		return err
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()
	if err := e.checkOperational(); err != nil {
		return err
	}

	fp, ok := p.(*PlaybackHandle)
	if !ok {
		return fmt.Errorf("%w: invalid playback handle type", audio.ErrPlaybackNotCurrent)
	}
	if !fp.IsActive() {
		return nil
	}
	if e.getCurrentPlayback() != fp {
		return nil
	}

	e.playback.Stop()
	fp.markInactive()
	e.setCurrentPlayback(nil)
	e.listeners.StopMonitoring()
	e.playState.TransitionToStopped()
	e.listeners.NotifyStateChanged(fp, audio.StateStopped, audio.StatePlaying)
	return nil
}

// Seek repositions the playback, bracketing the move with a transient
// SEEKING notification pair so listeners can tell a jump from ordinary
// progress.
func (e *Engine) Seek(p audio.PlaybackHandle, frame int64) error {
	if err := e.checkOperational(); err != nil {
		return err
	}
	e.opMu.Lock()
	defer e.opMu.Unlock()
	if err := e.checkOperational(); err != nil {
		return err
	}

	fp, ok := p.(*PlaybackHandle)
	if !ok {
		return fmt.Errorf("%w: invalid playback handle type", audio.ErrPlaybackNotCurrent)
	}
	if !fp.IsActive() {
		return fmt.Errorf("%w: cannot seek inactive playback", audio.ErrPlaybackNotActive)
	}
	if e.getCurrentPlayback() != fp {
		return fmt.Errorf("%w", audio.ErrPlaybackNotCurrent)
	}
	if frame < 0 {
		return fmt.Errorf("%w: invalid seek position %d", audio.ErrInvalidRange, frame)
	}
	if err := e.playState.ValidateSeekAllowed(); err != nil {
		return err
	}

	paused, res := e.core.ChannelGetPaused(fp.channel)
	wasPaused := res == ResOK && paused

	if err := e.playback.Seek(frame); err != nil {
		return err
	}
	if !e.playback.HasActive() {
		fp.markInactive()
		e.setCurrentPlayback(nil)
		e.playState.HandleChannelInvalid()
		return fmt.Errorf("%w: channel was stopped, cannot seek", audio.ErrChannelLost)
	}

	stable := audio.StatePlaying
	if wasPaused {
		stable = audio.StatePaused
	}
	e.listeners.NotifyStateChanged(fp, audio.StateSeeking, stable)
	e.listeners.NotifyStateChanged(fp, stable, audio.StateSeeking)
	return nil
}

// State reports the stable state of the playback. It may opportunistically
// reap a handle whose channel has died, but never fires listener
// callbacks; completion is always announced by the monitor.
func (e *Engine) State(p audio.PlaybackHandle) (audio.PlaybackState, error) {
	if err := e.checkOperational(); err != nil {
		return audio.StateStopped, err
	}

	fp, ok := p.(*PlaybackHandle)
	if !ok {
		return audio.StateStopped, fmt.Errorf("%w: invalid playback handle type", audio.ErrPlaybackNotCurrent)
	}
	if !fp.IsActive() {
		return audio.StateStopped, nil
	}
	if e.getCurrentPlayback() != fp {
		return audio.StateStopped, nil
	}

	playing, res := e.core.ChannelIsPlaying(fp.channel)
	if res == ResErrInvalidHandle || res == ResErrChannelStolen {
		e.reapStale(fp)
		return audio.StateStopped, nil
	}
	if res != ResOK {
		return audio.StateStopped, playbackError(res, "check playback state")
	}
	if !playing {
		e.reapStale(fp)
		return audio.StateStopped, nil
	}

	paused, res := e.core.ChannelGetPaused(fp.channel)
	if res != ResOK {
		return audio.StateStopped, playbackError(res, "check pause state")
	}
	if paused {
		return audio.StatePaused, nil
	}
	return audio.StatePlaying, nil
}

// reapStale marks a dead handle inactive from a getter path. Idempotent;
// no callbacks fire from here.
func (e *Engine) reapStale(fp *PlaybackHandle) {
	fp.markInactive()
	e.curMu.Lock()
	if e.currentPlayback == fp {
		e.currentPlayback = nil
	}
	e.curMu.Unlock()
	e.playState.HandleChannelInvalid()
}

// Position returns the decoded position of the playback in frames.
func (e *Engine) Position(p audio.PlaybackHandle) (int64, error) {
	if err := e.checkOperational(); err != nil {
		return 0, err
	}

	fp, ok := p.(*PlaybackHandle)
	if !ok {
		return 0, fmt.Errorf("%w: invalid playback handle type", audio.ErrPlaybackNotCurrent)
	}
	if !fp.IsActive() {
		return 0, nil
	}

	position := e.playback.Position()
	if position == 0 && !e.playback.HasActive() {
		e.reapStale(fp)
	}
	return position, nil
}

// IsPlaying reports whether the playback is running and unpaused.
func (e *Engine) IsPlaying(p audio.PlaybackHandle) (bool, error) {
	s, err := e.State(p)
	return s == audio.StatePlaying, err
}

// IsPaused reports whether the playback is paused.
func (e *Engine) IsPaused(p audio.PlaybackHandle) (bool, error) {
	s, err := e.State(p)
	return s == audio.StatePaused, err
}

// IsStopped reports whether the playback is stopped.
func (e *Engine) IsStopped(p audio.PlaybackHandle) (bool, error) {
	s, err := e.State(p)
	return s == audio.StateStopped, err
}

// Metadata returns the current audio's metadata. a must be the currently
// loaded handle.
func (e *Engine) Metadata(a audio.AudioHandle) (audio.Metadata, error) {
	if err := e.checkOperational(); err != nil {
		return audio.Metadata{}, err
	}
	if !e.loading.IsCurrent(a) {
		return audio.Metadata{}, fmt.Errorf("%w", audio.ErrHandleNotCurrent)
	}
	return e.loading.CurrentMetadata()
}

// AddPlaybackListener subscribes a listener to playback events.
func (e *Engine) AddPlaybackListener(l audio.PlaybackListener) {
	e.listeners.AddListener(l)
}

// RemovePlaybackListener unsubscribes a listener.
func (e *Engine) RemovePlaybackListener(l audio.PlaybackListener) {
	e.listeners.RemoveListener(l)
}

// VersionInfo describes the loaded native library, or "" when the engine
// is not initialized.
func (e *Engine) VersionInfo() string { return e.system.VersionInfo() }

// BufferInfo describes the DSP buffer configuration, or "".
func (e *Engine) BufferInfo() string { return e.system.BufferInfo() }

// FormatInfo describes the software mixer format, or "".
func (e *Engine) FormatInfo() string { return e.system.FormatInfo() }

// Close shuts the engine down: stop the channel, shut down the listener
// manager, release the loaded sound, release the native system.
// Idempotent; calling during initialization closes the engine instead of
// letting it come up.
func (e *Engine) Close() error {
	switch e.state.Current() {
	case StateClosed, StateClosing, StateUninitialized:
		return nil
	case StateInitializing:
		e.state.CompareAndSet(StateInitializing, StateClosed)
		return nil
	case StateInitialized:
		if !e.state.CompareAndSet(StateInitialized, StateClosing) {
			return e.Close()
		}
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	current := e.getCurrentPlayback()
	if current != nil {
		if res := e.core.ChannelStop(current.channel); res != ResOK && res != ResErrInvalidHandle {
			slog.Warn("error stopping channel during close", "result", Describe(res))
		}
		current.markInactive()
		e.setCurrentPlayback(nil)
	}

	e.listeners.Shutdown()
	e.playState.Reset()
	e.loading.ReleaseAll()

	e.curMu.Lock()
	e.currentSound = 0
	e.curMu.Unlock()

	e.system.Shutdown()

	if !e.state.CompareAndSet(StateClosing, StateClosed) {
		slog.Warn("unexpected state during close transition")
	}
	return nil
}

// stopActivePlaybackLocked stops any active playback before a load swaps
// the audio out from under it. Caller holds the operation lock.
func (e *Engine) stopActivePlaybackLocked() {
	current := e.getCurrentPlayback()
	if current == nil || !current.IsActive() {
		return
	}
	e.playback.Stop()
	current.markInactive()
	e.listeners.StopMonitoring()
	e.playState.TransitionToStopped()
	e.listeners.NotifyStateChanged(current, audio.StateStopped, audio.StatePlaying)
	e.setCurrentPlayback(nil)
}

func (e *Engine) getCurrentPlayback() *PlaybackHandle {
	e.curMu.Lock()
	defer e.curMu.Unlock()
	return e.currentPlayback
}

func (e *Engine) setCurrentPlayback(p *PlaybackHandle) {
	e.curMu.Lock()
	e.currentPlayback = p
	e.curMu.Unlock()
}

func (e *Engine) getCurrentSound() uintptr {
	e.curMu.Lock()
	defer e.curMu.Unlock()
	return e.currentSound
}
