package waveform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ldayton/TotalRecall/internal/audio"
)

var _ audio.SampleReader = (*Reader)(nil)

// Reader is a pure-Go audio.SampleReader. It decodes files through the
// registry, caches the normalized samples per path, and serves random
// range reads from the cache.
type Reader struct {
	registry *DecoderRegistry

	mu     sync.Mutex
	cache  map[string]*cachedFile
	closed bool
}

type cachedFile struct {
	samples  []float64
	metadata audio.Metadata
}

// NewReader creates a reader with the default decoder registry.
func NewReader() *Reader {
	return NewReaderWithRegistry(NewDefaultRegistry())
}

// NewReaderWithRegistry creates a reader over a custom registry.
func NewReaderWithRegistry(registry *DecoderRegistry) *Reader {
	return &Reader{
		registry: registry,
		cache:    make(map[string]*cachedFile),
	}
}

// ReadSamples returns up to frameCount frames starting at startFrame.
// Fewer frames come back at EOF; a start past EOF yields an empty block.
func (r *Reader) ReadSamples(ctx context.Context, path string, startFrame, frameCount int64) (*audio.Data, error) {
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

	meta := cached.metadata
	if startFrame >= meta.FrameCount {
		return audio.EmptyData(meta.SampleRate, meta.ChannelCount, startFrame), nil
	}

	actual := frameCount
	if remaining := meta.FrameCount - startFrame; actual > remaining {
		actual = remaining
	}
	if actual <= 0 {
		return audio.EmptyData(meta.SampleRate, meta.ChannelCount, startFrame), nil
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
	}, nil
}

// Metadata reports the file's format, decoding it into the cache if
// needed.
func (r *Reader) Metadata(ctx context.Context, path string) (audio.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return audio.Metadata{}, err
	}
	cached, err := r.loadOrGetCached(path)
	if err != nil {
		return audio.Metadata{}, err
	}
	return cached.metadata, nil
}

func (r *Reader) loadOrGetCached(path string) (*cachedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("%w", audio.ErrReaderClosed)
	}
	if cached, ok := r.cache[path]; ok {
		return cached, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", audio.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", audio.ErrPathInvalid, path, err)
	}
	defer f.Close()

	pcm, err := r.registry.DecodeFile(path, f)
	if err != nil {
		return nil, err
	}

	frameCount := pcm.FrameCount()
	cached := &cachedFile{
		samples: pcm.Samples,
		metadata: audio.Metadata{
			SampleRate:      pcm.SampleRate,
			ChannelCount:    pcm.Channels,
			BitsPerSample:   pcm.BitsPerSample,
			Format:          pcm.Format,
			FrameCount:      frameCount,
			DurationSeconds: float64(frameCount) / float64(pcm.SampleRate),
		},
	}
	r.cache[path] = cached

	slog.Debug("decoded and cached audio for waveform reads",
		"path", path,
		"format", pcm.Format,
		"frames", frameCount,
		"channels", pcm.Channels)
	return cached, nil
}

// Close clears the cache; further reads fail. Idempotent.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.cache = nil
	return nil
}
