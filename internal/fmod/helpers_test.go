package fmod

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTempAudio creates a placeholder file on disk and registers its
// canonical path with the fake core so loads succeed. The native layer
// is faked, so the file contents don't matter.
func writeTempAudio(t *testing.T, core *fakeCore, name string, f fakeFile) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("pcm"), 0o644); err != nil {
		t.Fatalf("failed to write temp audio file: %v", err)
	}
	core.addFile(canonicalPath(t, path), f)
	return path
}

func canonicalPath(t *testing.T, path string) string {
	t.Helper()
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("failed to resolve path: %v", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		t.Fatalf("failed to canonicalize path: %v", err)
	}
	return canonical
}

// monoFile is a typical 48 kHz mono WAV as the fake core reports it.
func monoFile(frames uint32) fakeFile {
	return fakeFile{
		frames:    frames,
		rate:      48000,
		channels:  1,
		bits:      16,
		soundType: SoundTypeWAV,
	}
}

// newTestEngine builds an engine over a fresh fake core with a fast
// progress interval.
func newTestEngine(t *testing.T, core *fakeCore) *Engine {
	t.Helper()
	e, err := openWithCore(core, WithProgressInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to open engine: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}
