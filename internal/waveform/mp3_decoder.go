package waveform

import (
	"io"
	"log/slog"
	"strings"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// Mp3Decoder handles MP3 audio format decoding.
type Mp3Decoder struct{}

// NewMp3Decoder creates a new MP3 decoder instance.
func NewMp3Decoder() *Mp3Decoder {
	return &Mp3Decoder{}
}

// Decode reads MP3 audio data from reader and returns normalized PCM.
// go-mp3 always emits 16-bit stereo.
func (d *Mp3Decoder) Decode(reader io.Reader) (*PCM, error) {
	decoder, err := mp3.NewDecoder(reader)
	if err != nil {
		slog.Error("failed to create MP3 decoder", "error", err)
		return nil, ErrInvalidData
	}

	sampleRate := decoder.SampleRate()
	if sampleRate <= 0 {
		return nil, ErrInvalidData
	}

	slog.Debug("MP3 format detected", "sample_rate", sampleRate, "channels", 2)

	var samples []float64
	buf := make([]byte, 4096)
	for {
		n, err := decoder.Read(buf)
		for i := 0; i+1 < n; i += 2 {
			v := int16(uint16(buf[i]) | uint16(buf[i+1])<<8)
			samples = append(samples, float64(v)/32768.0)
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			slog.Error("failed to read MP3 PCM data", "error", err)
			return nil, ErrReadFailure
		}
		if n == 0 {
			break
		}
	}

	if len(samples) == 0 {
		return nil, ErrInvalidData
	}

	slog.Debug("MP3 decode completed",
		"total_samples", len(samples),
		"sample_rate", sampleRate)

	return &PCM{
		Samples:       samples,
		Channels:      2,
		SampleRate:    sampleRate,
		BitsPerSample: 16,
		Format:        "MP3",
	}, nil
}

// CanDecode checks if this decoder can handle the given filename.
func (d *Mp3Decoder) CanDecode(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".mp3") || strings.HasSuffix(lower, ".mpeg")
}

// FormatName returns the name of the format this decoder handles.
func (d *Mp3Decoder) FormatName() string {
	return "MP3"
}
