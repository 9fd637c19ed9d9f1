package waveform

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

// writeWavFixture encodes a PCM WAV file and returns its raw integer
// samples (interleaved).
func writeWavFixture(t *testing.T, path string, sampleRate, channels, bitDepth, frames int, gen func(frame, ch int) int) []int {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
	defer f.Close()

	data := make([]int, frames*channels)
	for frame := 0; frame < frames; frame++ {
		for ch := 0; ch < channels; ch++ {
			data[frame*channels+ch] = gen(frame, ch)
		}
	}

	enc := gowav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("failed to write fixture samples: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to finalize fixture: %v", err)
	}
	return data
}

// sineGen produces a 16-bit sine at the given cycle length.
func sineGen(amplitude float64, period int) func(frame, ch int) int {
	return func(frame, ch int) int {
		return int(amplitude * 32767 * math.Sin(2*math.Pi*float64(frame)/float64(period)))
	}
}

func fixturePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
