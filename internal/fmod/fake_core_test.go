package fmod

import (
	"sync"
	"unsafe"
)

// fakeFile scripts what the native library would report for a path.
type fakeFile struct {
	frames    uint32
	rate      float32
	channels  int32
	bits      int32
	soundType SoundType
	createRes Result // non-OK fails SystemCreateSound with this code
	pcm       []byte // served by SoundLock
}

type fakeSound struct {
	path     string
	file     fakeFile
	released bool
}

type fakeChannel struct {
	sound    uintptr
	position uint32
	paused   bool
	playing  bool
	valid    bool
}

// fakeCore is an in-memory scripted implementation of Core. Tests
// register files, then drive channels by hand (advance, finish, kill)
// to simulate the mixer.
type fakeCore struct {
	mu         sync.Mutex
	nextHandle uintptr

	systems  map[uintptr]bool
	sounds   map[uintptr]*fakeSound
	channels map[uintptr]*fakeChannel
	files    map[string]fakeFile

	bufferLength uint32
	numBuffers   uint32
	outRate      int32
	speakerMode  SpeakerMode

	soundReleases  []string // paths, in release order
	soundCreations []string // paths, in creation order
	pinned         [][]byte
}

func newFakeCore() *fakeCore {
	return &fakeCore{
		nextHandle:   100,
		systems:      make(map[uintptr]bool),
		sounds:       make(map[uintptr]*fakeSound),
		channels:     make(map[uintptr]*fakeChannel),
		files:        make(map[string]fakeFile),
		bufferLength: dspBufferLength,
		numBuffers:   dspNumBuffers,
		outRate:      outputRate,
		speakerMode:  SpeakerModeMono,
	}
}

func (c *fakeCore) next() uintptr {
	c.nextHandle++
	return c.nextHandle
}

// addFile registers a decodable file at path.
func (c *fakeCore) addFile(path string, f fakeFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = f
}

// lastChannel returns the most recently created channel handle.
func (c *fakeCore) lastChannel() uintptr {
	c.mu.Lock()
	defer c.mu.Unlock()
	var last uintptr
	for h := range c.channels {
		if h > last {
			last = h
		}
	}
	return last
}

// advance moves a channel's decode position forward.
func (c *fakeCore) advance(channel uintptr, frames uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch := c.channels[channel]; ch != nil {
		ch.position += frames
	}
}

// setPosition pins a channel's decode position.
func (c *fakeCore) setPosition(channel uintptr, position uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch := c.channels[channel]; ch != nil {
		ch.position = position
	}
}

// kill invalidates a channel, as the mixer does when playback ends.
func (c *fakeCore) kill(channel uintptr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch := c.channels[channel]; ch != nil {
		ch.valid = false
		ch.playing = false
	}
}

// finish marks a channel as done playing but still valid.
func (c *fakeCore) finish(channel uintptr) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch := c.channels[channel]; ch != nil {
		ch.playing = false
	}
}

func (c *fakeCore) channelCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ch := range c.channels {
		if ch.valid {
			n++
		}
	}
	return n
}

func (c *fakeCore) releasedPaths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.soundReleases))
	copy(out, c.soundReleases)
	return out
}

func (c *fakeCore) createdPaths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.soundCreations))
	copy(out, c.soundCreations)
	return out
}

func (c *fakeCore) SystemCreate() (uintptr, Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.next()
	c.systems[h] = true
	return h, ResOK
}

func (c *fakeCore) SystemInit(system uintptr, maxChannels int32, flags InitFlags) Result {
	return ResOK
}

func (c *fakeCore) SystemUpdate(system uintptr) Result { return ResOK }

func (c *fakeCore) SystemRelease(system uintptr) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.systems[system] {
		return ResErrInvalidHandle
	}
	delete(c.systems, system)
	return ResOK
}

func (c *fakeCore) SystemSetDSPBufferSize(system uintptr, bufferLength, numBuffers uint32) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bufferLength = bufferLength
	c.numBuffers = numBuffers
	return ResOK
}

func (c *fakeCore) SystemGetDSPBufferSize(system uintptr) (uint32, uint32, Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bufferLength, c.numBuffers, ResOK
}

func (c *fakeCore) SystemSetSoftwareFormat(system uintptr, sampleRate int32, speakerMode SpeakerMode, numRawSpeakers int32) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outRate = sampleRate
	c.speakerMode = speakerMode
	return ResOK
}

func (c *fakeCore) SystemGetSoftwareFormat(system uintptr) (int32, SpeakerMode, int32, Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outRate, c.speakerMode, 0, ResOK
}

func (c *fakeCore) SystemGetVersion(system uintptr) (uint32, uint32, Result) {
	return 0x00020308, 145, ResOK
}

func (c *fakeCore) SystemCreateSound(system uintptr, path string, mode Mode) (uintptr, Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.files[path]
	if !ok {
		return 0, ResErrFileNotFound
	}
	if f.createRes != ResOK {
		return 0, f.createRes
	}
	h := c.next()
	c.sounds[h] = &fakeSound{path: path, file: f}
	c.soundCreations = append(c.soundCreations, path)
	return h, ResOK
}

func (c *fakeCore) SystemPlaySound(system uintptr, sound uintptr, paused bool) (uintptr, Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sounds[sound]
	if s == nil || s.released {
		return 0, ResErrInvalidHandle
	}
	h := c.next()
	c.channels[h] = &fakeChannel{sound: sound, paused: paused, playing: true, valid: true}
	return h, ResOK
}

func (c *fakeCore) SoundRelease(sound uintptr) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sounds[sound]
	if s == nil || s.released {
		return ResErrInvalidHandle
	}
	s.released = true
	c.soundReleases = append(c.soundReleases, s.path)
	return ResOK
}

func (c *fakeCore) SoundGetFormat(sound uintptr) (SoundType, int32, int32, Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sounds[sound]
	if s == nil || s.released {
		return SoundTypeUnknown, 0, 0, ResErrInvalidHandle
	}
	return s.file.soundType, s.file.channels, s.file.bits, ResOK
}

func (c *fakeCore) SoundGetDefaults(sound uintptr) (float32, int32, Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sounds[sound]
	if s == nil || s.released {
		return 0, 0, ResErrInvalidHandle
	}
	return s.file.rate, 128, ResOK
}

func (c *fakeCore) SoundGetLength(sound uintptr, unit TimeUnit) (uint32, Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sounds[sound]
	if s == nil || s.released {
		return 0, ResErrInvalidHandle
	}
	if unit == TimeUnitMS {
		return uint32(float64(s.file.frames) / float64(s.file.rate) * 1000), ResOK
	}
	return s.file.frames, ResOK
}

func (c *fakeCore) SoundLock(sound uintptr, offset, length uint32) (uintptr, uintptr, uint32, uint32, Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.sounds[sound]
	if s == nil || s.released {
		return 0, 0, 0, 0, ResErrInvalidHandle
	}
	if len(s.file.pcm) == 0 {
		return 0, 0, 0, 0, ResOK
	}
	// Pin the buffer so the pointer stays alive across the copy.
	buf := s.file.pcm
	c.pinned = append(c.pinned, buf)
	return uintptr(unsafe.Pointer(&buf[0])), 0, uint32(len(buf)), 0, ResOK
}

func (c *fakeCore) SoundUnlock(sound uintptr, ptr1, ptr2 uintptr, len1, len2 uint32) Result {
	return ResOK
}

func (c *fakeCore) ChannelStop(channel uintptr) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.channels[channel]
	if ch == nil || !ch.valid {
		return ResErrInvalidHandle
	}
	ch.valid = false
	ch.playing = false
	return ResOK
}

func (c *fakeCore) ChannelSetPaused(channel uintptr, paused bool) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.channels[channel]
	if ch == nil || !ch.valid {
		return ResErrInvalidHandle
	}
	ch.paused = paused
	return ResOK
}

func (c *fakeCore) ChannelGetPaused(channel uintptr) (bool, Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.channels[channel]
	if ch == nil || !ch.valid {
		return false, ResErrInvalidHandle
	}
	return ch.paused, ResOK
}

func (c *fakeCore) ChannelSetPosition(channel uintptr, position uint32, unit TimeUnit) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.channels[channel]
	if ch == nil || !ch.valid {
		return ResErrInvalidHandle
	}
	s := c.sounds[ch.sound]
	if s != nil && position > s.file.frames {
		// The native layer clamps out-of-range seeks.
		ch.position = s.file.frames
		return ResErrInvalidPosition
	}
	ch.position = position
	return ResOK
}

func (c *fakeCore) ChannelGetPosition(channel uintptr, unit TimeUnit) (uint32, Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.channels[channel]
	if ch == nil || !ch.valid {
		return 0, ResErrInvalidHandle
	}
	return ch.position, ResOK
}

func (c *fakeCore) ChannelIsPlaying(channel uintptr) (bool, Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.channels[channel]
	if ch == nil || !ch.valid {
		return false, ResErrInvalidHandle
	}
	return ch.playing, ResOK
}
