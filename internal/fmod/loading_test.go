package fmod

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ldayton/TotalRecall/internal/audio"
)

func newTestLoadingManager(core *fakeCore) (*loadingManager, *handleLifecycle, *stateManager) {
	state := newStateManager()
	state.TransitionTo(StateInitializing, nil)
	state.TransitionTo(StateInitialized, nil)

	system, _ := core.SystemCreate()
	lifecycle := newHandleLifecycle()
	return newLoadingManager(core, system, state, lifecycle), lifecycle, state
}

func TestLoadAudioPathValidation(t *testing.T) {
	core := newFakeCore()
	m, _, _ := newTestLoadingManager(core)

	t.Run("missing file", func(t *testing.T) {
		_, err := m.LoadAudio(filepath.Join(t.TempDir(), "missing.wav"))
		if !errors.Is(err, audio.ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound, got %v", err)
		}
	})

	t.Run("directory", func(t *testing.T) {
		_, err := m.LoadAudio(t.TempDir())
		if !errors.Is(err, audio.ErrPathInvalid) {
			t.Errorf("expected ErrPathInvalid, got %v", err)
		}
	})
}

func TestLoadAudioSuccess(t *testing.T) {
	core := newFakeCore()
	m, lifecycle, _ := newTestLoadingManager(core)

	path := writeTempAudio(t, core, "a.wav", monoFile(48000))
	h, err := m.LoadAudio(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !h.IsValid() {
		t.Error("loaded handle must be valid")
	}
	if !lifecycle.IsCurrent(h) {
		t.Error("loaded handle must be current")
	}
	if m.CurrentSound() == 0 {
		t.Error("current sound must be set")
	}
}

func TestLoadAudioSameFileIdempotent(t *testing.T) {
	core := newFakeCore()
	m, lifecycle, _ := newTestLoadingManager(core)

	path := writeTempAudio(t, core, "a.wav", monoFile(48000))
	h1, err := m.LoadAudio(path)
	if err != nil {
		t.Fatal(err)
	}
	genAfterFirst := lifecycle.CurrentGeneration()

	h2, err := m.LoadAudio(path)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("loading the same file must return the same handle")
	}
	if lifecycle.CurrentGeneration() != genAfterFirst {
		t.Error("repeat load of the same file must not bump the generation")
	}
	if got := len(core.createdPaths()); got != 1 {
		t.Errorf("expected one native sound creation, got %d", got)
	}
}

func TestLoadAudioReplacesPrevious(t *testing.T) {
	core := newFakeCore()
	m, _, _ := newTestLoadingManager(core)

	pathA := writeTempAudio(t, core, "a.wav", monoFile(48000))
	pathB := writeTempAudio(t, core, "b.wav", monoFile(96000))

	h1, err := m.LoadAudio(pathA)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := m.LoadAudio(pathB)
	if err != nil {
		t.Fatal(err)
	}

	if h1.IsValid() {
		t.Error("previous handle must be invalid after a new load")
	}
	if !h2.IsValid() {
		t.Error("new handle must be valid")
	}

	// The new sound is created before the old is released.
	created := core.createdPaths()
	released := core.releasedPaths()
	if len(created) != 2 || len(released) != 1 {
		t.Fatalf("expected 2 creations and 1 release, got %d and %d", len(created), len(released))
	}
	if released[0] != canonicalPath(t, pathA) {
		t.Errorf("expected release of %s, got %s", pathA, released[0])
	}
}

func TestLoadAudioFailureKeepsCurrent(t *testing.T) {
	core := newFakeCore()
	m, _, _ := newTestLoadingManager(core)

	good := writeTempAudio(t, core, "good.wav", monoFile(48000))
	bad := writeTempAudio(t, core, "bad.wav", fakeFile{createRes: ResErrFileBad})

	h1, err := m.LoadAudio(good)
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.LoadAudio(bad)
	if !errors.Is(err, audio.ErrCorruptedFile) {
		t.Fatalf("expected ErrCorruptedFile, got %v", err)
	}

	if !h1.IsValid() {
		t.Error("prior handle must stay valid when a load fails")
	}
	if len(core.releasedPaths()) != 0 {
		t.Error("prior sound must not be released on load failure")
	}
	if got, err := m.CurrentMetadata(); err != nil || got.FrameCount != 48000 {
		t.Errorf("prior audio must remain current: %v %v", got, err)
	}
}

func TestLoadAudioErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want error
	}{
		{"format", ResErrFormat, audio.ErrUnsupportedFormat},
		{"bad file", ResErrFileBad, audio.ErrCorruptedFile},
		{"memory", ResErrMemory, audio.ErrOutOfMemory},
		{"other", ResErrNotReady, audio.ErrLoadFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			core := newFakeCore()
			m, _, _ := newTestLoadingManager(core)
			path := writeTempAudio(t, core, "x.wav", fakeFile{createRes: tc.res})
			_, err := m.LoadAudio(path)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadAudioRequiresInitializedState(t *testing.T) {
	core := newFakeCore()
	state := newStateManager()
	system, _ := core.SystemCreate()
	m := newLoadingManager(core, system, state, newHandleLifecycle())

	path := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(path, []byte("pcm"), 0o644); err != nil {
		t.Fatal(err)
	}
	core.addFile(canonicalPath(t, path), monoFile(48000))

	_, err := m.LoadAudio(path)
	if !errors.Is(err, audio.ErrLoadFailed) {
		t.Errorf("expected ErrLoadFailed when engine not initialized, got %v", err)
	}
}

func TestCurrentMetadata(t *testing.T) {
	core := newFakeCore()
	m, _, _ := newTestLoadingManager(core)

	path := writeTempAudio(t, core, "speech.wav", fakeFile{
		frames:    1993624,
		rate:      44100,
		channels:  1,
		bits:      16,
		soundType: SoundTypeWAV,
	})
	if _, err := m.LoadAudio(path); err != nil {
		t.Fatal(err)
	}

	meta, err := m.CurrentMetadata()
	if err != nil {
		t.Fatal(err)
	}
	if meta.SampleRate != 44100 || meta.ChannelCount != 1 || meta.BitsPerSample != 16 {
		t.Errorf("unexpected format facts: %+v", meta)
	}
	if meta.Format != "WAV" {
		t.Errorf("expected format WAV, got %s", meta.Format)
	}
	if meta.FrameCount != 1993624 {
		t.Errorf("expected 1993624 frames, got %d", meta.FrameCount)
	}
	want := 1993624.0 / 44100.0
	if math.Abs(meta.DurationSeconds-want) > 1e-9 {
		t.Errorf("expected duration %.9f, got %.9f", want, meta.DurationSeconds)
	}
}

func TestMetadataFormatTags(t *testing.T) {
	tests := []struct {
		soundType SoundType
		want      string
	}{
		{SoundTypeWAV, "WAV"},
		{SoundTypeAIFF, "AIFF"},
		{SoundTypeMPEG, "MP3"},
		{SoundTypeOGGVorbis, "OGG"},
		{SoundTypeFLAC, "FLAC"},
		{SoundTypeOpus, "Opus"},
		{SoundTypeRaw, "RAW"},
		{SoundType(99), "Unknown"},
	}
	for _, tc := range tests {
		if got := formatTag(tc.soundType); got != tc.want {
			t.Errorf("formatTag(%d) = %q, want %q", tc.soundType, got, tc.want)
		}
	}
}

func TestReleaseAll(t *testing.T) {
	core := newFakeCore()
	m, lifecycle, _ := newTestLoadingManager(core)

	path := writeTempAudio(t, core, "a.wav", monoFile(48000))
	h, err := m.LoadAudio(path)
	if err != nil {
		t.Fatal(err)
	}

	m.ReleaseAll()
	if h.IsValid() {
		t.Error("handle must be invalid after ReleaseAll")
	}
	if m.CurrentSound() != 0 {
		t.Error("current sound must be cleared")
	}
	if lifecycle.CurrentHandle() != nil {
		t.Error("lifecycle current handle must be cleared")
	}
	if len(core.releasedPaths()) != 1 {
		t.Error("sound must be released")
	}

	m.ReleaseAll() // idempotent
}
