package fmod

import (
	"fmt"

	"github.com/ldayton/TotalRecall/internal/audio"
)

// resultNames gives readable names for the codes this engine observes.
var resultNames = map[Result]string{
	ResOK:                  "OK",
	ResErrBadCommand:       "ERR_BADCOMMAND",
	ResErrChannelAlloc:     "ERR_CHANNEL_ALLOC",
	ResErrChannelStolen:    "ERR_CHANNEL_STOLEN",
	ResErrFileBad:          "ERR_FILE_BAD",
	ResErrFileCouldNotSeek: "ERR_FILE_COULDNOTSEEK",
	ResErrFileEOF:          "ERR_FILE_EOF",
	ResErrFileNotFound:     "ERR_FILE_NOTFOUND",
	ResErrFormat:           "ERR_FORMAT",
	ResErrHeaderMismatch:   "ERR_HEADER_MISMATCH",
	ResErrInitialization:   "ERR_INITIALIZATION",
	ResErrInitialized:      "ERR_INITIALIZED",
	ResErrInvalidHandle:    "ERR_INVALID_HANDLE",
	ResErrInvalidParam:     "ERR_INVALID_PARAM",
	ResErrInvalidPosition:  "ERR_INVALID_POSITION",
	ResErrMemory:           "ERR_MEMORY",
	ResErrNotReady:         "ERR_NOTREADY",
	ResErrUninitialized:    "ERR_UNINITIALIZED",
}

// Describe formats a result code as "ERR_INVALID_HANDLE (30)".
func Describe(res Result) string {
	name, ok := resultNames[res]
	if !ok {
		name = "UNKNOWN"
	}
	return fmt.Sprintf("%s (%d)", name, int32(res))
}

// loadError maps a CreateSound failure code to the load error taxonomy.
// All components route native load failures through here.
func loadError(res Result, path string) error {
	switch res {
	case ResErrFileNotFound:
		return fmt.Errorf("%w: %s", audio.ErrFileNotFound, path)
	case ResErrFormat:
		return fmt.Errorf("%w: %s", audio.ErrUnsupportedFormat, path)
	case ResErrFileBad:
		return fmt.Errorf("%w: %s", audio.ErrCorruptedFile, path)
	case ResErrMemory:
		return fmt.Errorf("%w: %s", audio.ErrOutOfMemory, path)
	default:
		return fmt.Errorf("%w: %s: %s", audio.ErrLoadFailed, path, Describe(res))
	}
}

// playbackError maps a channel operation failure to a playback error.
func playbackError(res Result, action string) error {
	return fmt.Errorf("%w: failed to %s: %s", audio.ErrPlaybackFailed, action, Describe(res))
}

// engineError maps a system/lifecycle operation failure to an engine error.
func engineError(res Result, action string) error {
	return fmt.Errorf("%w: failed to %s: %s", audio.ErrEngineState, action, Describe(res))
}
