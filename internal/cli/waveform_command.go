package cli

import (
	"math"

	"github.com/spf13/cobra"

	"github.com/ldayton/TotalRecall/internal/waveform"
)

// newWaveformCommand creates the waveform subcommand: read a frame range
// as normalized samples and summarize it, the same read path a waveform
// view renders from.
func newWaveformCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waveform <file>",
		Short: "Read a sample range for waveform rendering",
		Args:  cobra.ExactArgs(1),
		RunE:  runWaveformE,
	}
	cmd.Flags().Int64("start", 0, "Start frame")
	cmd.Flags().Int64("frames", 48000, "Number of frames to read")
	return cmd
}

func runWaveformE(cmd *cobra.Command, args []string) error {
	cli := cliFromContext(cmd.Context())
	cfg, err := loadAndValidateConfig(cmd, cli)
	if err != nil {
		return err
	}
	setupLogging(cfg, cmd.ErrOrStderr())

	start, _ := cmd.Flags().GetInt64("start")
	frames, _ := cmd.Flags().GetInt64("frames")

	reader := waveform.NewReader()
	defer reader.Close()

	data, err := reader.ReadSamples(cmd.Context(), args[0], start, frames)
	if err != nil {
		return err
	}

	peak := 0.0
	sumSquares := 0.0
	for _, s := range data.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
		sumSquares += s * s
	}
	rms := 0.0
	if len(data.Samples) > 0 {
		rms = math.Sqrt(sumSquares / float64(len(data.Samples)))
	}

	cmd.Printf("read %d frames from frame %d (%d channels @ %d Hz)\n",
		data.FrameCount, data.StartFrame, data.Channels, data.SampleRate)
	cmd.Printf("span: %.3f s - %.3f s\n", data.StartTimeSeconds(), data.EndTimeSeconds())
	cmd.Printf("peak: %.6f  rms: %.6f\n", peak, rms)
	return nil
}
