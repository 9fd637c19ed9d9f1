package waveform

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/go-audio/aiff"
)

// AiffDecoder handles AIFF audio format decoding.
type AiffDecoder struct{}

// NewAiffDecoder creates a new AIFF decoder instance.
func NewAiffDecoder() *AiffDecoder {
	return &AiffDecoder{}
}

// Decode reads AIFF audio data from reader and returns normalized PCM.
func (d *AiffDecoder) Decode(reader io.Reader) (*PCM, error) {
	// go-audio/aiff needs a ReadSeeker
	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read AIFF data", "error", err)
		return nil, ErrReadFailure
	}
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	decoder := aiff.NewDecoder(bytes.NewReader(data))
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		slog.Error("invalid AIFF file format")
		return nil, ErrInvalidData
	}

	sampleRate := int(decoder.SampleRate)
	channels := int(decoder.NumChans)
	bitDepth := int(decoder.SampleBitDepth())

	slog.Debug("AIFF format detected",
		"sample_rate", sampleRate,
		"channels", channels,
		"bits_per_sample", bitDepth)

	if channels == 0 || sampleRate == 0 || bitDepth == 0 {
		return nil, ErrInvalidData
	}

	var scale float64
	switch bitDepth {
	case 16:
		scale = 32768.0
	case 24:
		scale = 8388608.0
	case 32:
		scale = 2147483648.0
	default:
		slog.Error("unsupported AIFF bit depth", "bits", bitDepth)
		return nil, ErrUnsupportedFormat
	}

	pcmBuffer, err := decoder.FullPCMBuffer()
	if err != nil {
		slog.Error("failed to read AIFF samples", "error", err)
		return nil, ErrReadFailure
	}
	if pcmBuffer == nil || len(pcmBuffer.Data) == 0 {
		return nil, ErrInvalidData
	}

	samples := make([]float64, len(pcmBuffer.Data))
	for i, v := range pcmBuffer.Data {
		samples[i] = float64(v) / scale
	}

	slog.Debug("AIFF decode completed",
		"total_samples", len(samples),
		"channels", channels,
		"sample_rate", sampleRate)

	return &PCM{
		Samples:       samples,
		Channels:      channels,
		SampleRate:    sampleRate,
		BitsPerSample: bitDepth,
		Format:        "AIFF",
	}, nil
}

// CanDecode checks if this decoder can handle the given filename.
func (d *AiffDecoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".aiff") || strings.HasSuffix(lower, ".aif")
}

// FormatName returns the name of the format this decoder handles.
func (d *AiffDecoder) FormatName() string {
	return "AIFF"
}
