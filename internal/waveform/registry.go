package waveform

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DecoderRegistry manages audio format decoders and provides format
// detection, preferring magic bytes over file extension.
type DecoderRegistry struct {
	decoders []Decoder
}

// NewDecoderRegistry creates a new empty decoder registry.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make([]Decoder, 0)}
}

// NewDefaultRegistry creates a registry with WAV, AIFF, MP3, and OGG
// decoders.
func NewDefaultRegistry() *DecoderRegistry {
	registry := NewDecoderRegistry()
	registry.Register(NewWavDecoder())
	registry.Register(NewAiffDecoder())
	registry.Register(NewMp3Decoder())
	registry.Register(NewOggDecoder())

	slog.Debug("default decoder registry initialized",
		"supported_formats", registry.SupportedFormats())
	return registry
}

// Register adds a decoder to the registry.
func (r *DecoderRegistry) Register(decoder Decoder) {
	if decoder == nil {
		slog.Warn("attempted to register nil decoder")
		return
	}
	r.decoders = append(r.decoders, decoder)
}

// SupportedFormats returns the registered format names.
func (r *DecoderRegistry) SupportedFormats() []string {
	formats := make([]string, 0, len(r.decoders))
	for _, decoder := range r.decoders {
		formats = append(formats, decoder.FormatName())
	}
	return formats
}

// DetectFormat finds a decoder by filename extension, in registration
// order.
func (r *DecoderRegistry) DetectFormat(filename string) Decoder {
	if filename == "" {
		return nil
	}
	for _, decoder := range r.decoders {
		if decoder.CanDecode(filename) {
			return decoder
		}
	}
	return nil
}

// DetectFormatWithContent finds a decoder using magic bytes first, with
// extension as the fallback.
func (r *DecoderRegistry) DetectFormatWithContent(filename string, reader io.Reader) Decoder {
	buffer := make([]byte, 512)
	n, err := reader.Read(buffer)
	if (err != nil && err != io.EOF) || n == 0 {
		return r.DetectFormat(filename)
	}

	mimeStr := strings.ToLower(mimetype.Detect(buffer[:n]).String())
	slog.Debug("magic byte detection", "filename", filename, "mime", mimeStr)

	var decoder Decoder
	switch {
	case strings.Contains(mimeStr, "wav") || mimeStr == "audio/vnd.wave":
		decoder = r.findByFormat("WAV")
	case strings.Contains(mimeStr, "aiff"):
		decoder = r.findByFormat("AIFF")
	case strings.Contains(mimeStr, "mpeg") || strings.Contains(mimeStr, "mp3"):
		decoder = r.findByFormat("MP3")
	case strings.Contains(mimeStr, "ogg"):
		decoder = r.findByFormat("OGG")
	}

	if decoder != nil {
		return decoder
	}
	return r.DetectFormat(filename)
}

func (r *DecoderRegistry) findByFormat(formatName string) Decoder {
	for _, decoder := range r.decoders {
		if strings.EqualFold(decoder.FormatName(), formatName) {
			return decoder
		}
	}
	return nil
}

// DecodeFile decodes an audio file using the appropriate decoder.
func (r *DecoderRegistry) DecodeFile(filename string, reader io.Reader) (*PCM, error) {
	// Buffer the whole content so detection doesn't consume the decoder's
	// input.
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}

	decoder := r.DetectFormatWithContent(filename, bytes.NewReader(content))
	if decoder == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}

	slog.Debug("decoder selected", "filename", filename, "format", decoder.FormatName())

	pcm, err := decoder.Decode(bytes.NewReader(content))
	if err != nil {
		slog.Error("decode failed", "filename", filename, "format", decoder.FormatName(), "error", err)
		return nil, err
	}
	return pcm, nil
}
