package audio

import "fmt"

// PlaybackState describes the lifecycle of a single playback.
// SEEKING is only ever observed as a transient pair of state-change
// notifications bracketing a seek; getters never return it.
type PlaybackState int

const (
	StateStopped PlaybackState = iota
	StatePlaying
	StatePaused
	StateSeeking
	StateFinished
	StateError
)

func (s PlaybackState) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StatePlaying:
		return "PLAYING"
	case StatePaused:
		return "PAUSED"
	case StateSeeking:
		return "SEEKING"
	case StateFinished:
		return "FINISHED"
	case StateError:
		return "ERROR"
	default:
		return fmt.Sprintf("PlaybackState(%d)", int(s))
	}
}

// Metadata describes a loaded audio file.
type Metadata struct {
	SampleRate      int     // Hz, positive
	ChannelCount    int     // >= 1
	BitsPerSample   int
	Format          string  // WAV, AIFF, MP3, OGG, FLAC, Opus, RAW, Unknown
	FrameCount      int64   // total PCM frames
	DurationSeconds float64 // FrameCount / SampleRate
}

// Data is a block of decoded samples returned by a SampleReader.
// Samples are interleaved and normalized to [-1.0, 1.0].
// Invariant: len(Samples) == ChannelCount * FrameCount.
type Data struct {
	Samples    []float64
	SampleRate int
	Channels   int
	StartFrame int64
	FrameCount int64
}

// NewData validates the sample/frame invariant and returns the block.
func NewData(samples []float64, sampleRate, channels int, startFrame, frameCount int64) (*Data, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("channel count must be positive: %d", channels)
	}
	if startFrame < 0 {
		return nil, fmt.Errorf("start frame cannot be negative: %d", startFrame)
	}
	if frameCount < 0 {
		return nil, fmt.Errorf("frame count cannot be negative: %d", frameCount)
	}
	if int64(len(samples)) != int64(channels)*frameCount {
		return nil, fmt.Errorf("sample slice length %d does not match channels*frames %d",
			len(samples), int64(channels)*frameCount)
	}
	return &Data{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
		StartFrame: startFrame,
		FrameCount: frameCount,
	}, nil
}

// EmptyData returns a zero-frame block positioned at startFrame.
func EmptyData(sampleRate, channels int, startFrame int64) *Data {
	return &Data{
		Samples:    []float64{},
		SampleRate: sampleRate,
		Channels:   channels,
		StartFrame: startFrame,
	}
}

// DurationSeconds is the length of this block in seconds.
func (d *Data) DurationSeconds() float64 {
	return float64(d.FrameCount) / float64(d.SampleRate)
}

// StartTimeSeconds is the block's offset from the beginning of the file.
func (d *Data) StartTimeSeconds() float64 {
	return float64(d.StartFrame) / float64(d.SampleRate)
}

// EndTimeSeconds is StartTimeSeconds plus DurationSeconds.
func (d *Data) EndTimeSeconds() float64 {
	return d.StartTimeSeconds() + d.DurationSeconds()
}
