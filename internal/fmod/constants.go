package fmod

// Result is a native result code. OK is zero; everything else is an error
// whose meaning depends on the call site.
type Result int32

const (
	ResOK               Result = 0
	ResErrBadCommand    Result = 1
	ResErrChannelAlloc  Result = 2
	ResErrChannelStolen Result = 3
	ResErrFileBad       Result = 13
	ResErrFileCouldNotSeek Result = 14
	ResErrFileEOF       Result = 16
	ResErrFileNotFound  Result = 18
	ResErrFormat        Result = 19
	ResErrHeaderMismatch Result = 20
	ResErrInitialization Result = 24
	ResErrInitialized   Result = 25
	ResErrInvalidHandle Result = 30
	ResErrInvalidParam  Result = 31
	ResErrInvalidPosition Result = 32
	ResErrMemory        Result = 38
	ResErrNotReady      Result = 41
	ResErrUninitialized Result = 70
)

// headerVersion is passed to System_Create so the library can reject a
// mismatched header.
const headerVersion uint32 = 0x00020308

// Mode flags for CreateSound.
type Mode uint32

const (
	ModeDefault      Mode = 0x00000000
	ModeLoopOff      Mode = 0x00000001
	ModeCreateStream Mode = 0x00000080
	ModeCreateSample Mode = 0x00000100
	ModeAccurateTime Mode = 0x00004000
)

// TimeUnit selects the unit for position and length queries.
type TimeUnit uint32

const (
	TimeUnitMS  TimeUnit = 0x00000001
	TimeUnitPCM TimeUnit = 0x00000002
)

// SpeakerMode for the software mixer format.
type SpeakerMode int32

const (
	SpeakerModeDefault SpeakerMode = 0
	SpeakerModeRaw     SpeakerMode = 1
	SpeakerModeMono    SpeakerMode = 2
	SpeakerModeStereo  SpeakerMode = 3
)

// InitFlags for System_Init.
type InitFlags uint32

const InitNormal InitFlags = 0x00000000

// SoundType identifies the container format the native decoder detected.
type SoundType int32

const (
	SoundTypeUnknown   SoundType = 0
	SoundTypeAIFF      SoundType = 1
	SoundTypeFLAC      SoundType = 4
	SoundTypeMPEG      SoundType = 9
	SoundTypeOGGVorbis SoundType = 10
	SoundTypeRaw       SoundType = 12
	SoundTypeWAV       SoundType = 15
	SoundTypeOpus      SoundType = 24
)

// formatTag maps a native sound type to the metadata format string.
func formatTag(t SoundType) string {
	switch t {
	case SoundTypeWAV:
		return "WAV"
	case SoundTypeAIFF:
		return "AIFF"
	case SoundTypeMPEG:
		return "MP3"
	case SoundTypeOGGVorbis:
		return "OGG"
	case SoundTypeFLAC:
		return "FLAC"
	case SoundTypeOpus:
		return "Opus"
	case SoundTypeRaw:
		return "RAW"
	default:
		return "Unknown"
	}
}
