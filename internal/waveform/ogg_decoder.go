package waveform

import (
	"io"
	"log/slog"
	"strings"

	"github.com/jfreymuth/oggvorbis"
)

// OggDecoder handles OGG Vorbis audio format decoding.
type OggDecoder struct{}

// NewOggDecoder creates a new OGG Vorbis decoder instance.
func NewOggDecoder() *OggDecoder {
	return &OggDecoder{}
}

// Decode reads OGG Vorbis audio data from reader and returns normalized
// PCM. Vorbis decodes to float directly, so no integer rescaling is
// involved.
func (d *OggDecoder) Decode(reader io.Reader) (*PCM, error) {
	data, format, err := oggvorbis.ReadAll(reader)
	if err != nil {
		slog.Error("failed to decode OGG Vorbis data", "error", err)
		return nil, ErrInvalidData
	}
	if format == nil || format.Channels == 0 || format.SampleRate == 0 {
		return nil, ErrInvalidData
	}
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	samples := make([]float64, len(data))
	for i, v := range data {
		samples[i] = float64(v)
	}

	slog.Debug("OGG decode completed",
		"total_samples", len(samples),
		"channels", format.Channels,
		"sample_rate", format.SampleRate)

	return &PCM{
		Samples:       samples,
		Channels:      format.Channels,
		SampleRate:    format.SampleRate,
		BitsPerSample: 16,
		Format:        "OGG",
	}, nil
}

// CanDecode checks if this decoder can handle the given filename.
func (d *OggDecoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".ogg") || strings.HasSuffix(lower, ".oga")
}

// FormatName returns the name of the format this decoder handles.
func (d *OggDecoder) FormatName() string {
	return "OGG"
}
