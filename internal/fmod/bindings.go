package fmod

import (
	"unsafe"

	"github.com/ebitengine/purego"
)

// libCore implements Core over symbols registered from the shared library.
// All out-parameters cross the boundary as raw pointers; the wrapper
// methods keep that containment local to this file.
type libCore struct {
	systemCreate            func(system unsafe.Pointer, headerVersion uint32) int32
	systemInit              func(system uintptr, maxChannels int32, flags uint32, extraDriverData unsafe.Pointer) int32
	systemUpdate            func(system uintptr) int32
	systemRelease           func(system uintptr) int32
	systemSetDSPBufferSize  func(system uintptr, bufferLength uint32, numBuffers int32) int32
	systemGetDSPBufferSize  func(system uintptr, bufferLength, numBuffers unsafe.Pointer) int32
	systemSetSoftwareFormat func(system uintptr, sampleRate int32, speakerMode int32, numRawSpeakers int32) int32
	systemGetSoftwareFormat func(system uintptr, sampleRate, speakerMode, numRawSpeakers unsafe.Pointer) int32
	systemGetVersion        func(system uintptr, version, buildNumber unsafe.Pointer) int32
	systemCreateSound       func(system uintptr, path string, mode uint32, exInfo unsafe.Pointer, sound unsafe.Pointer) int32
	systemPlaySound         func(system uintptr, sound uintptr, channelGroup uintptr, paused int32, channel unsafe.Pointer) int32

	soundRelease     func(sound uintptr) int32
	soundGetFormat   func(sound uintptr, soundType, format, channels, bits unsafe.Pointer) int32
	soundGetDefaults func(sound uintptr, frequency, priority unsafe.Pointer) int32
	soundGetLength   func(sound uintptr, length unsafe.Pointer, unit uint32) int32
	soundLock        func(sound uintptr, offset, length uint32, ptr1, ptr2, len1, len2 unsafe.Pointer) int32
	soundUnlock      func(sound uintptr, ptr1, ptr2 uintptr, len1, len2 uint32) int32

	channelStop        func(channel uintptr) int32
	channelSetPaused   func(channel uintptr, paused int32) int32
	channelGetPaused   func(channel uintptr, paused unsafe.Pointer) int32
	channelSetPosition func(channel uintptr, position uint32, unit uint32) int32
	channelGetPosition func(channel uintptr, position unsafe.Pointer, unit uint32) int32
	channelIsPlaying   func(channel uintptr, playing unsafe.Pointer) int32
}

// registerCore binds every required symbol from the loaded library.
// Registration panics inside purego on a missing symbol; recover in the
// caller maps that to a load error.
func registerCore(lib uintptr) *libCore {
	c := &libCore{}
	purego.RegisterLibFunc(&c.systemCreate, lib, "FMOD_System_Create")
	purego.RegisterLibFunc(&c.systemInit, lib, "FMOD_System_Init")
	purego.RegisterLibFunc(&c.systemUpdate, lib, "FMOD_System_Update")
	purego.RegisterLibFunc(&c.systemRelease, lib, "FMOD_System_Release")
	purego.RegisterLibFunc(&c.systemSetDSPBufferSize, lib, "FMOD_System_SetDSPBufferSize")
	purego.RegisterLibFunc(&c.systemGetDSPBufferSize, lib, "FMOD_System_GetDSPBufferSize")
	purego.RegisterLibFunc(&c.systemSetSoftwareFormat, lib, "FMOD_System_SetSoftwareFormat")
	purego.RegisterLibFunc(&c.systemGetSoftwareFormat, lib, "FMOD_System_GetSoftwareFormat")
	purego.RegisterLibFunc(&c.systemGetVersion, lib, "FMOD_System_GetVersion")
	purego.RegisterLibFunc(&c.systemCreateSound, lib, "FMOD_System_CreateSound")
	purego.RegisterLibFunc(&c.systemPlaySound, lib, "FMOD_System_PlaySound")
	purego.RegisterLibFunc(&c.soundRelease, lib, "FMOD_Sound_Release")
	purego.RegisterLibFunc(&c.soundGetFormat, lib, "FMOD_Sound_GetFormat")
	purego.RegisterLibFunc(&c.soundGetDefaults, lib, "FMOD_Sound_GetDefaults")
	purego.RegisterLibFunc(&c.soundGetLength, lib, "FMOD_Sound_GetLength")
	purego.RegisterLibFunc(&c.soundLock, lib, "FMOD_Sound_Lock")
	purego.RegisterLibFunc(&c.soundUnlock, lib, "FMOD_Sound_Unlock")
	purego.RegisterLibFunc(&c.channelStop, lib, "FMOD_Channel_Stop")
	purego.RegisterLibFunc(&c.channelSetPaused, lib, "FMOD_Channel_SetPaused")
	purego.RegisterLibFunc(&c.channelGetPaused, lib, "FMOD_Channel_GetPaused")
	purego.RegisterLibFunc(&c.channelSetPosition, lib, "FMOD_Channel_SetPosition")
	purego.RegisterLibFunc(&c.channelGetPosition, lib, "FMOD_Channel_GetPosition")
	purego.RegisterLibFunc(&c.channelIsPlaying, lib, "FMOD_Channel_IsPlaying")
	return c
}

func (c *libCore) SystemCreate() (uintptr, Result) {
	var system uintptr
	res := c.systemCreate(unsafe.Pointer(&system), headerVersion)
	return system, Result(res)
}

func (c *libCore) SystemInit(system uintptr, maxChannels int32, flags InitFlags) Result {
	return Result(c.systemInit(system, maxChannels, uint32(flags), nil))
}

func (c *libCore) SystemUpdate(system uintptr) Result {
	return Result(c.systemUpdate(system))
}

func (c *libCore) SystemRelease(system uintptr) Result {
	return Result(c.systemRelease(system))
}

func (c *libCore) SystemSetDSPBufferSize(system uintptr, bufferLength, numBuffers uint32) Result {
	return Result(c.systemSetDSPBufferSize(system, bufferLength, int32(numBuffers)))
}

func (c *libCore) SystemGetDSPBufferSize(system uintptr) (uint32, uint32, Result) {
	var bufferLength uint32
	var numBuffers int32
	res := c.systemGetDSPBufferSize(system, unsafe.Pointer(&bufferLength), unsafe.Pointer(&numBuffers))
	return bufferLength, uint32(numBuffers), Result(res)
}

func (c *libCore) SystemSetSoftwareFormat(system uintptr, sampleRate int32, speakerMode SpeakerMode, numRawSpeakers int32) Result {
	return Result(c.systemSetSoftwareFormat(system, sampleRate, int32(speakerMode), numRawSpeakers))
}

func (c *libCore) SystemGetSoftwareFormat(system uintptr) (int32, SpeakerMode, int32, Result) {
	var sampleRate, speakerMode, numRawSpeakers int32
	res := c.systemGetSoftwareFormat(system,
		unsafe.Pointer(&sampleRate), unsafe.Pointer(&speakerMode), unsafe.Pointer(&numRawSpeakers))
	return sampleRate, SpeakerMode(speakerMode), numRawSpeakers, Result(res)
}

func (c *libCore) SystemGetVersion(system uintptr) (uint32, uint32, Result) {
	var version, buildNumber uint32
	res := c.systemGetVersion(system, unsafe.Pointer(&version), unsafe.Pointer(&buildNumber))
	return version, buildNumber, Result(res)
}

func (c *libCore) SystemCreateSound(system uintptr, path string, mode Mode) (uintptr, Result) {
	var sound uintptr
	res := c.systemCreateSound(system, path, uint32(mode), nil, unsafe.Pointer(&sound))
	return sound, Result(res)
}

func (c *libCore) SystemPlaySound(system uintptr, sound uintptr, paused bool) (uintptr, Result) {
	var channel uintptr
	var pausedFlag int32
	if paused {
		pausedFlag = 1
	}
	res := c.systemPlaySound(system, sound, 0, pausedFlag, unsafe.Pointer(&channel))
	return channel, Result(res)
}

func (c *libCore) SoundRelease(sound uintptr) Result {
	return Result(c.soundRelease(sound))
}

func (c *libCore) SoundGetFormat(sound uintptr) (SoundType, int32, int32, Result) {
	var soundType, format, channels, bits int32
	res := c.soundGetFormat(sound,
		unsafe.Pointer(&soundType), unsafe.Pointer(&format),
		unsafe.Pointer(&channels), unsafe.Pointer(&bits))
	return SoundType(soundType), channels, bits, Result(res)
}

func (c *libCore) SoundGetDefaults(sound uintptr) (float32, int32, Result) {
	var frequency float32
	var priority int32
	res := c.soundGetDefaults(sound, unsafe.Pointer(&frequency), unsafe.Pointer(&priority))
	return frequency, priority, Result(res)
}

func (c *libCore) SoundGetLength(sound uintptr, unit TimeUnit) (uint32, Result) {
	var length uint32
	res := c.soundGetLength(sound, unsafe.Pointer(&length), uint32(unit))
	return length, Result(res)
}

func (c *libCore) SoundLock(sound uintptr, offset, length uint32) (uintptr, uintptr, uint32, uint32, Result) {
	var ptr1, ptr2 uintptr
	var len1, len2 uint32
	res := c.soundLock(sound, offset, length,
		unsafe.Pointer(&ptr1), unsafe.Pointer(&ptr2),
		unsafe.Pointer(&len1), unsafe.Pointer(&len2))
	return ptr1, ptr2, len1, len2, Result(res)
}

func (c *libCore) SoundUnlock(sound uintptr, ptr1, ptr2 uintptr, len1, len2 uint32) Result {
	return Result(c.soundUnlock(sound, ptr1, ptr2, len1, len2))
}

func (c *libCore) ChannelStop(channel uintptr) Result {
	return Result(c.channelStop(channel))
}

func (c *libCore) ChannelSetPaused(channel uintptr, paused bool) Result {
	var flag int32
	if paused {
		flag = 1
	}
	return Result(c.channelSetPaused(channel, flag))
}

func (c *libCore) ChannelGetPaused(channel uintptr) (bool, Result) {
	var paused int32
	res := c.channelGetPaused(channel, unsafe.Pointer(&paused))
	return paused != 0, Result(res)
}

func (c *libCore) ChannelSetPosition(channel uintptr, position uint32, unit TimeUnit) Result {
	return Result(c.channelSetPosition(channel, position, uint32(unit)))
}

func (c *libCore) ChannelGetPosition(channel uintptr, unit TimeUnit) (uint32, Result) {
	var position uint32
	res := c.channelGetPosition(channel, unsafe.Pointer(&position), uint32(unit))
	return position, Result(res)
}

func (c *libCore) ChannelIsPlaying(channel uintptr) (bool, Result) {
	var playing int32
	res := c.channelIsPlaying(channel, unsafe.Pointer(&playing))
	return playing != 0, Result(res)
}
