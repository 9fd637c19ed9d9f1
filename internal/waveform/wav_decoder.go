package waveform

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/youpy/go-wav"
)

// WavDecoder handles WAV audio format decoding.
type WavDecoder struct{}

// NewWavDecoder creates a new WAV decoder instance.
func NewWavDecoder() *WavDecoder {
	return &WavDecoder{}
}

// Decode reads WAV audio data from reader and returns normalized PCM.
func (d *WavDecoder) Decode(reader io.Reader) (*PCM, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		slog.Error("failed to read WAV data", "error", err)
		return nil, ErrReadFailure
	}
	if len(data) == 0 {
		return nil, ErrInvalidData
	}

	wavReader := wav.NewReader(bytes.NewReader(data))

	format, err := wavReader.Format()
	if err != nil {
		slog.Error("failed to read WAV format", "error", err)
		return nil, ErrInvalidData
	}

	slog.Debug("WAV format detected",
		"sample_rate", format.SampleRate,
		"channels", format.NumChannels,
		"bits_per_sample", format.BitsPerSample)

	if format.NumChannels == 0 || format.SampleRate == 0 {
		return nil, ErrInvalidData
	}

	var scale float64
	switch format.BitsPerSample {
	case 16:
		scale = 32768.0
	case 24:
		scale = 8388608.0
	case 32:
		scale = 2147483648.0
	default:
		slog.Error("unsupported WAV bit depth", "bits", format.BitsPerSample)
		return nil, ErrUnsupportedFormat
	}

	var samples []float64
	for {
		chunk, err := wavReader.ReadSamples()
		if err != nil {
			if err == io.EOF {
				break
			}
			slog.Error("failed to read WAV samples", "error", err)
			return nil, ErrReadFailure
		}
		if len(chunk) == 0 {
			break
		}
		for _, sample := range chunk {
			for ch := 0; ch < int(format.NumChannels); ch++ {
				var val int
				if ch < len(sample.Values) {
					val = sample.Values[ch]
				}
				samples = append(samples, float64(val)/scale)
			}
		}
	}

	if len(samples) == 0 {
		return nil, ErrInvalidData
	}

	slog.Debug("WAV decode completed",
		"total_samples", len(samples),
		"channels", format.NumChannels,
		"sample_rate", format.SampleRate)

	return &PCM{
		Samples:       samples,
		Channels:      int(format.NumChannels),
		SampleRate:    int(format.SampleRate),
		BitsPerSample: int(format.BitsPerSample),
		Format:        "WAV",
	}, nil
}

// CanDecode checks if this decoder can handle the given filename.
func (d *WavDecoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".wav") || strings.HasSuffix(lower, ".wave")
}

// FormatName returns the name of the format this decoder handles.
func (d *WavDecoder) FormatName() string {
	return "WAV"
}
