// Package waveform serves bulk sample reads for waveform rendering
// without the native mixer library. Files are decoded entirely in Go to
// interleaved float64 samples normalized to [-1.0, 1.0], cached per
// path, and served as random range reads.
package waveform

import (
	"errors"
	"io"
)

// Common decoder errors.
var (
	ErrInvalidData       = errors.New("invalid audio data")
	ErrReadFailure       = errors.New("failed to read audio data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// PCM is a fully decoded file: interleaved normalized samples plus the
// format facts needed for metadata.
type PCM struct {
	Samples       []float64 // interleaved, in [-1.0, 1.0]
	Channels      int
	SampleRate    int
	BitsPerSample int
	Format        string // WAV, AIFF, MP3, OGG
}

// FrameCount is the number of PCM frames in the buffer.
func (p *PCM) FrameCount() int64 {
	if p.Channels == 0 {
		return 0
	}
	return int64(len(p.Samples) / p.Channels)
}

// Decoder decodes one audio container format to normalized PCM.
type Decoder interface {
	// Decode reads the full stream and returns normalized samples.
	Decode(reader io.Reader) (*PCM, error)

	// CanDecode checks if this decoder can handle the given filename.
	CanDecode(filename string) bool

	// FormatName returns the name of the format this decoder handles.
	FormatName() string
}
