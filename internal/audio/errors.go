package audio

import "errors"

// Load errors. Wrapped with file context by the loading layer.
var (
	ErrFileNotFound      = errors.New("audio file not found")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrCorruptedFile     = errors.New("corrupted or invalid audio file")
	ErrOutOfMemory       = errors.New("insufficient memory to load audio file")
	ErrPathInvalid       = errors.New("invalid audio file path")
	ErrLoadFailed        = errors.New("failed to load audio file")
)

// Engine lifecycle errors.
var (
	ErrEngineState        = errors.New("invalid engine state")
	ErrAlreadyInitialized = errors.New("audio system already initialized")
	ErrEngineClosed       = errors.New("audio engine is closed")
)

// Playback errors.
var (
	ErrPlaybackNotActive  = errors.New("playback handle is not active")
	ErrPlaybackNotCurrent = errors.New("playback handle is not the current playback")
	ErrHandleInvalid      = errors.New("audio handle is no longer valid")
	ErrHandleNotCurrent   = errors.New("audio handle is not the currently loaded file")
	ErrInvalidRange       = errors.New("invalid playback range")
	ErrChannelLost        = errors.New("playback channel was lost")
	ErrPlaybackFailed     = errors.New("playback operation failed")
	ErrAnotherPlayback    = errors.New("another playback is already active")
)

// Sample reader errors.
var (
	ErrReaderClosed = errors.New("sample reader is closed")
	ErrReadFailed   = errors.New("failed to read audio samples")
)
