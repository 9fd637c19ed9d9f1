package fmod

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/ldayton/TotalRecall/internal/audio"
)

// readerMaxChannels sizes the bulk reader's private system. The reader
// never plays audio; channels only gate concurrent decodes.
const readerMaxChannels = 32

type cachedAudio struct {
	samples  []float64
	metadata audio.Metadata
}

var _ audio.SampleReader = (*SampleReader)(nil)

// SampleReader decodes whole files into normalized float64 buffers on a
// private native system and serves random range reads from the cache.
// It never shares handles with the playback engine.
type SampleReader struct {
	core   Core
	system uintptr

	mu     sync.Mutex // guards cache population and the native system
	cache  map[string]*cachedAudio
	closed bool
}

// NewSampleReader loads the native library through loader and creates
// the reader's own system with minimal init flags.
func NewSampleReader(loader *Loader) (*SampleReader, error) {
	core, err := loader.Load()
	if err != nil {
		return nil, err
	}
	return newSampleReaderWithCore(core)
}

func newSampleReaderWithCore(core Core) (*SampleReader, error) {
	system, res := core.SystemCreate()
	if res != ResOK {
		return nil, engineError(res, "create native system for sample reading")
	}
	if res := core.SystemInit(system, readerMaxChannels, InitNormal); res != ResOK {
		core.SystemRelease(system)
		return nil, engineError(res, "initialize native system for sample reading")
	}

	slog.Debug("sample reader initialized")
	return &SampleReader{
		core:   core,
		system: system,
		cache:  make(map[string]*cachedAudio),
	}, nil
}

// ReadSamples returns up to frameCount frames starting at startFrame.
// The first read of a path decodes the whole file into the cache;
// subsequent reads are slice copies.
func (r *SampleReader) ReadSamples(ctx context.Context, path string, startFrame, frameCount int64) (*audio.Data, error) {
	if startFrame < 0 || frameCount < 0 {
		return nil, fmt.Errorf("%w: negative frame values not allowed", audio.ErrReadFailed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cached, err := r.loadOrGetCached(path)
	if err != nil {
		return nil, err
	}
	return readFromCache(cached, startFrame, frameCount), nil
}

// Metadata reports the file's format, decoding it into the cache if
// necessary.
func (r *SampleReader) Metadata(ctx context.Context, path string) (audio.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return audio.Metadata{}, err
	}
	cached, err := r.loadOrGetCached(path)
	if err != nil {
		return audio.Metadata{}, err
	}
	return cached.metadata, nil
}

// loadOrGetCached populates the per-path cache under the reader lock.
func (r *SampleReader) loadOrGetCached(path string) (*cachedAudio, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("%w", audio.ErrReaderClosed)
	}
	if cached, ok := r.cache[path]; ok {
		return cached, nil
	}

	r.core.SystemUpdate(r.system)

	// Decode the entire file into native memory at once.
	sound, res := r.core.SystemCreateSound(r.system, path, ModeCreateSample)
	if res != ResOK {
		return nil, loadError(res, path)
	}
	defer r.core.SoundRelease(sound)

	soundType, channels, bits, res := r.core.SoundGetFormat(sound)
	if res != ResOK {
		return nil, fmt.Errorf("%w: failed to get sound format: %s", audio.ErrReadFailed, Describe(res))
	}
	frequency, _, res := r.core.SoundGetDefaults(sound)
	if res != ResOK {
		return nil, fmt.Errorf("%w: failed to get sample rate: %s", audio.ErrReadFailed, Describe(res))
	}
	lengthPCM, res := r.core.SoundGetLength(sound, TimeUnitPCM)
	if res != ResOK {
		return nil, fmt.Errorf("%w: failed to get sound length: %s", audio.ErrReadFailed, Describe(res))
	}

	sampleRate := int(frequency + 0.5)
	channelCount := int(channels)
	bitsPerSample := int(bits)
	bytesPerSample := bitsPerSample / 8
	totalFrames := int64(lengthPCM)

	totalBytes := uint32(totalFrames) * uint32(channelCount) * uint32(bytesPerSample)
	ptr1, ptr2, len1, len2, res := r.core.SoundLock(sound, 0, totalBytes)
	if res != ResOK {
		return nil, fmt.Errorf("%w: failed to lock sound data: %s", audio.ErrReadFailed, Describe(res))
	}
	defer r.core.SoundUnlock(sound, ptr1, ptr2, len1, len2)

	buffer := make([]byte, int(len1)+int(len2))
	if len1 > 0 && ptr1 != 0 {
		copy(buffer[:len1], unsafe.Slice((*byte)(unsafe.Pointer(ptr1)), len1))
	}
	if len2 > 0 && ptr2 != 0 {
		copy(buffer[len1:], unsafe.Slice((*byte)(unsafe.Pointer(ptr2)), len2))
	}

	totalSamples := len(buffer) / bytesPerSample
	samples := make([]float64, totalSamples)
	if err := convertToFloat64(buffer, samples, bitsPerSample); err != nil {
		return nil, err
	}

	metadata := audio.Metadata{
		SampleRate:      sampleRate,
		ChannelCount:    channelCount,
		BitsPerSample:   bitsPerSample,
		Format:          formatTag(soundType),
		FrameCount:      totalFrames,
		DurationSeconds: float64(totalFrames) / float64(sampleRate),
	}

	cached := &cachedAudio{samples: samples, metadata: metadata}
	r.cache[path] = cached

	slog.Debug("decoded and cached audio for sample reading",
		"path", path, "frames", totalFrames, "bytes", len(buffer))
	return cached, nil
}

func channelLabel(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}

// readFromCache copies the requested frame range out of the cached
// buffer, truncating at EOF.
func readFromCache(cached *cachedAudio, startFrame, frameCount int64) *audio.Data {
	meta := cached.metadata
	if startFrame >= meta.FrameCount {
		return audio.EmptyData(meta.SampleRate, meta.ChannelCount, startFrame)
	}

	actual := frameCount
	if remaining := meta.FrameCount - startFrame; actual > remaining {
		actual = remaining
	}
	if actual <= 0 {
		return audio.EmptyData(meta.SampleRate, meta.ChannelCount, startFrame)
	}

	startSample := startFrame * int64(meta.ChannelCount)
	sampleCount := actual * int64(meta.ChannelCount)
	samples := make([]float64, sampleCount)
	copy(samples, cached.samples[startSample:startSample+sampleCount])

	return &audio.Data{
		Samples:    samples,
		SampleRate: meta.SampleRate,
		Channels:   meta.ChannelCount,
		StartFrame: startFrame,
		FrameCount: actual,
	}
}

// convertToFloat64 normalizes little-endian signed PCM to [-1, 1].
func convertToFloat64(buffer []byte, samples []float64, bitsPerSample int) error {
	switch bitsPerSample {
	case 16:
		for i := range samples {
			v := int16(uint16(buffer[2*i]) | uint16(buffer[2*i+1])<<8)
			samples[i] = float64(v) / 32768.0
		}
	case 24:
		for i := range samples {
			v := int32(uint32(buffer[3*i]) | uint32(buffer[3*i+1])<<8 | uint32(buffer[3*i+2])<<16)
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF)
			}
			samples[i] = float64(v) / 8388608.0
		}
	case 32:
		for i := range samples {
			v := int32(uint32(buffer[4*i]) | uint32(buffer[4*i+1])<<8 |
				uint32(buffer[4*i+2])<<16 | uint32(buffer[4*i+3])<<24)
			samples[i] = float64(v) / 2147483648.0
		}
	default:
		return fmt.Errorf("%w: unsupported bit depth %d", audio.ErrReadFailed, bitsPerSample)
	}
	return nil
}

// Close releases the cache and the reader's native system. Idempotent.
func (r *SampleReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.cache = nil

	if r.system != 0 {
		r.core.SystemRelease(r.system)
		r.system = 0
	}
	return nil
}
