package fmod

import (
	"errors"
	"sync"
	"testing"

	"github.com/ldayton/TotalRecall/internal/audio"
)

func newTestPlaybackManager(t *testing.T, core *fakeCore) (*playbackManager, uintptr, *AudioHandle) {
	t.Helper()
	system, _ := core.SystemCreate()
	core.addFile("/audio/a.wav", monoFile(48000))
	sound, res := core.SystemCreateSound(system, "/audio/a.wav", ModeDefault)
	if res != ResOK {
		t.Fatalf("create sound failed: %s", Describe(res))
	}
	lifecycle := newHandleLifecycle()
	handle := lifecycle.CreateHandle(sound, "/audio/a.wav")
	return newPlaybackManager(core, system), sound, handle
}

func TestPlaybackManagerPlay(t *testing.T) {
	core := newFakeCore()
	m, sound, ah := newTestPlaybackManager(t, core)

	ph, err := m.Play(sound, ah)
	if err != nil {
		t.Fatalf("play failed: %v", err)
	}
	if !ph.IsActive() {
		t.Error("playback handle must be active")
	}
	if ph.StartFrame() != 0 || ph.EndFrame() != audio.UntilEnd {
		t.Errorf("full play must span [0, UntilEnd), got [%d, %d)", ph.StartFrame(), ph.EndFrame())
	}
	if !m.HasActive() {
		t.Error("manager must report an active playback")
	}
	if m.Current() != ph {
		t.Error("manager must track the handle as current")
	}

	// Channel started unpaused
	paused, res := core.ChannelGetPaused(core.lastChannel())
	if res != ResOK || paused {
		t.Error("channel must be unpaused after play")
	}
}

func TestPlaybackManagerPlayRangePositionsChannel(t *testing.T) {
	core := newFakeCore()
	m, sound, ah := newTestPlaybackManager(t, core)

	ph, err := m.PlayRange(sound, ah, 1000, 2000, true)
	if err != nil {
		t.Fatal(err)
	}
	if ph.StartFrame() != 1000 || ph.EndFrame() != 2000 {
		t.Errorf("unexpected range [%d, %d)", ph.StartFrame(), ph.EndFrame())
	}
	pos, res := core.ChannelGetPosition(core.lastChannel(), TimeUnitPCM)
	if res != ResOK || pos != 1000 {
		t.Errorf("expected channel positioned at 1000, got %d", pos)
	}
}

func TestPlaybackManagerPlayReplacesExisting(t *testing.T) {
	core := newFakeCore()
	m, sound, ah := newTestPlaybackManager(t, core)

	p1, err := m.Play(sound, ah)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := m.Play(sound, ah)
	if err != nil {
		t.Fatal(err)
	}

	if p1.IsActive() {
		t.Error("first handle must be deactivated by the second play")
	}
	if !p2.IsActive() {
		t.Error("second handle must be active")
	}
	if core.channelCount() != 1 {
		t.Errorf("expected one live channel, got %d", core.channelCount())
	}
}

func TestPlaybackManagerConcurrentPlayOneWinner(t *testing.T) {
	core := newFakeCore()
	m, sound, ah := newTestPlaybackManager(t, core)

	var wg sync.WaitGroup
	handles := make(chan *PlaybackHandle, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ph, err := m.Play(sound, ah)
			if err == nil {
				handles <- ph
			}
		}()
	}
	wg.Wait()
	close(handles)

	active := 0
	for ph := range handles {
		if ph.IsActive() {
			active++
			if m.Current() != ph {
				t.Error("the one active handle must be the manager's current")
			}
		}
	}
	if active != 1 {
		t.Errorf("expected exactly one active handle, got %d", active)
	}
	if core.channelCount() != 1 {
		t.Errorf("expected one live channel, got %d", core.channelCount())
	}
}

func TestPlaybackManagerPauseResume(t *testing.T) {
	core := newFakeCore()
	m, sound, ah := newTestPlaybackManager(t, core)

	if err := m.Pause(); !errors.Is(err, audio.ErrPlaybackNotActive) {
		t.Errorf("pause with no playback must fail: %v", err)
	}

	if _, err := m.Play(sound, ah); err != nil {
		t.Fatal(err)
	}
	ch := core.lastChannel()

	if err := m.Pause(); err != nil {
		t.Fatal(err)
	}
	if paused, _ := core.ChannelGetPaused(ch); !paused {
		t.Error("channel must be paused")
	}
	if err := m.Resume(); err != nil {
		t.Fatal(err)
	}
	if paused, _ := core.ChannelGetPaused(ch); paused {
		t.Error("channel must be unpaused")
	}
}

func TestPlaybackManagerInvalidHandleRecovery(t *testing.T) {
	core := newFakeCore()
	m, sound, ah := newTestPlaybackManager(t, core)

	ph, err := m.Play(sound, ah)
	if err != nil {
		t.Fatal(err)
	}
	core.kill(core.lastChannel())

	// Pause on a dead channel is a silent cleanup.
	if err := m.Pause(); err != nil {
		t.Errorf("pause on dead channel must be a no-op: %v", err)
	}
	if ph.IsActive() {
		t.Error("handle must be inactive after cleanup")
	}
	if m.HasActive() {
		t.Error("manager must have no active playback")
	}
}

func TestPlaybackManagerStop(t *testing.T) {
	core := newFakeCore()
	m, sound, ah := newTestPlaybackManager(t, core)

	m.Stop() // no playback: no-op

	ph, err := m.Play(sound, ah)
	if err != nil {
		t.Fatal(err)
	}
	m.Stop()
	if ph.IsActive() {
		t.Error("handle must be inactive after stop")
	}
	if m.HasActive() || m.Current() != nil {
		t.Error("manager must clear the current playback on stop")
	}
}

func TestPlaybackManagerSeek(t *testing.T) {
	core := newFakeCore()
	m, sound, ah := newTestPlaybackManager(t, core)

	if err := m.Seek(0); !errors.Is(err, audio.ErrPlaybackNotActive) {
		t.Errorf("seek with no playback must fail: %v", err)
	}

	if _, err := m.Play(sound, ah); err != nil {
		t.Fatal(err)
	}
	ch := core.lastChannel()

	if err := m.Seek(1234); err != nil {
		t.Fatal(err)
	}
	if pos, _ := core.ChannelGetPosition(ch, TimeUnitPCM); pos != 1234 {
		t.Errorf("expected position 1234, got %d", pos)
	}

	// Out-of-range seek: native clamps, no error surfaces.
	if err := m.Seek(96000 * 2); err != nil {
		t.Errorf("clamped seek must not error: %v", err)
	}
	if pos, _ := core.ChannelGetPosition(ch, TimeUnitPCM); pos != 48000 {
		t.Errorf("expected clamped position 48000, got %d", pos)
	}
}

func TestPlaybackManagerPosition(t *testing.T) {
	core := newFakeCore()
	m, sound, ah := newTestPlaybackManager(t, core)

	if got := m.Position(); got != 0 {
		t.Errorf("expected 0 with no playback, got %d", got)
	}

	if _, err := m.Play(sound, ah); err != nil {
		t.Fatal(err)
	}
	core.setPosition(core.lastChannel(), 777)
	if got := m.Position(); got != 777 {
		t.Errorf("expected 777, got %d", got)
	}

	core.kill(core.lastChannel())
	if got := m.Position(); got != 0 {
		t.Errorf("expected 0 after channel death, got %d", got)
	}
	if m.HasActive() {
		t.Error("dead channel must have been cleaned up")
	}
}

func TestPlaybackManagerCheckFinished(t *testing.T) {
	core := newFakeCore()
	m, sound, ah := newTestPlaybackManager(t, core)

	if m.CheckFinished() {
		t.Error("no playback: nothing to finish")
	}

	ph, err := m.Play(sound, ah)
	if err != nil {
		t.Fatal(err)
	}
	if m.CheckFinished() {
		t.Error("running playback must not report finished")
	}

	core.finish(core.lastChannel())
	if !m.CheckFinished() {
		t.Error("stopped channel must report finished")
	}
	if ph.IsActive() {
		t.Error("handle must be deactivated on finish")
	}
}
