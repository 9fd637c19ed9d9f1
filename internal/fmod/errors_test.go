package fmod

import (
	"errors"
	"strings"
	"testing"

	"github.com/ldayton/TotalRecall/internal/audio"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		res  Result
		want string
	}{
		{ResOK, "OK (0)"},
		{ResErrInvalidHandle, "ERR_INVALID_HANDLE (30)"},
		{ResErrChannelStolen, "ERR_CHANNEL_STOLEN (3)"},
		{Result(999), "UNKNOWN (999)"},
	}
	for _, tc := range tests {
		if got := Describe(tc.res); got != tc.want {
			t.Errorf("Describe(%d) = %q, want %q", tc.res, got, tc.want)
		}
	}
}

func TestLoadErrorMapping(t *testing.T) {
	tests := []struct {
		res  Result
		want error
	}{
		{ResErrFileNotFound, audio.ErrFileNotFound},
		{ResErrFormat, audio.ErrUnsupportedFormat},
		{ResErrFileBad, audio.ErrCorruptedFile},
		{ResErrMemory, audio.ErrOutOfMemory},
		{ResErrBadCommand, audio.ErrLoadFailed},
	}
	for _, tc := range tests {
		err := loadError(tc.res, "/audio/x.wav")
		if !errors.Is(err, tc.want) {
			t.Errorf("loadError(%d) = %v, want %v", tc.res, err, tc.want)
		}
		if !strings.Contains(err.Error(), "/audio/x.wav") {
			t.Errorf("load error must carry the path: %v", err)
		}
	}
}

func TestPlaybackAndEngineErrors(t *testing.T) {
	err := playbackError(ResErrChannelStolen, "resume")
	if !errors.Is(err, audio.ErrPlaybackFailed) {
		t.Errorf("expected ErrPlaybackFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "resume") || !strings.Contains(err.Error(), "ERR_CHANNEL_STOLEN") {
		t.Errorf("playback error must carry action and code: %v", err)
	}

	err = engineError(ResErrNotReady, "create native system")
	if !errors.Is(err, audio.ErrEngineState) {
		t.Errorf("expected ErrEngineState, got %v", err)
	}
}
