package fmod

// Core is the callable surface of the native decoder/mixer library.
// System, sound, and channel values are opaque native pointers. Every
// call returns a Result; ResOK means success and out-values are only
// meaningful on success.
//
// The production implementation is created by Loader.Load from a shared
// library resolved at runtime. Tests substitute a scripted fake.
type Core interface {
	SystemCreate() (system uintptr, res Result)
	SystemInit(system uintptr, maxChannels int32, flags InitFlags) Result
	SystemUpdate(system uintptr) Result
	SystemRelease(system uintptr) Result
	SystemSetDSPBufferSize(system uintptr, bufferLength, numBuffers uint32) Result
	SystemGetDSPBufferSize(system uintptr) (bufferLength, numBuffers uint32, res Result)
	SystemSetSoftwareFormat(system uintptr, sampleRate int32, speakerMode SpeakerMode, numRawSpeakers int32) Result
	SystemGetSoftwareFormat(system uintptr) (sampleRate int32, speakerMode SpeakerMode, numRawSpeakers int32, res Result)
	SystemGetVersion(system uintptr) (version, buildNumber uint32, res Result)
	SystemCreateSound(system uintptr, path string, mode Mode) (sound uintptr, res Result)
	SystemPlaySound(system uintptr, sound uintptr, paused bool) (channel uintptr, res Result)

	SoundRelease(sound uintptr) Result
	SoundGetFormat(sound uintptr) (soundType SoundType, channels, bits int32, res Result)
	SoundGetDefaults(sound uintptr) (frequency float32, priority int32, res Result)
	SoundGetLength(sound uintptr, unit TimeUnit) (length uint32, res Result)
	SoundLock(sound uintptr, offset, length uint32) (ptr1, ptr2 uintptr, len1, len2 uint32, res Result)
	SoundUnlock(sound uintptr, ptr1, ptr2 uintptr, len1, len2 uint32) Result

	ChannelStop(channel uintptr) Result
	ChannelSetPaused(channel uintptr, paused bool) Result
	ChannelGetPaused(channel uintptr) (paused bool, res Result)
	ChannelSetPosition(channel uintptr, position uint32, unit TimeUnit) Result
	ChannelGetPosition(channel uintptr, unit TimeUnit) (position uint32, res Result)
	ChannelIsPlaying(channel uintptr) (playing bool, res Result)
}
