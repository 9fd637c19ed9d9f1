package cli

import (
	"github.com/spf13/cobra"

	"github.com/ldayton/TotalRecall/internal/waveform"
)

// newInfoCommand creates the info subcommand: report a file's metadata
// using the pure-Go decoders, so it works without the native library.
func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show audio file metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfoE,
	}
}

func runInfoE(cmd *cobra.Command, args []string) error {
	cli := cliFromContext(cmd.Context())
	cfg, err := loadAndValidateConfig(cmd, cli)
	if err != nil {
		return err
	}
	setupLogging(cfg, cmd.ErrOrStderr())

	reader := waveform.NewReader()
	defer reader.Close()

	meta, err := reader.Metadata(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	cmd.Printf("file:            %s\n", args[0])
	cmd.Printf("format:          %s\n", meta.Format)
	cmd.Printf("sample rate:     %d Hz\n", meta.SampleRate)
	cmd.Printf("channels:        %d\n", meta.ChannelCount)
	cmd.Printf("bits per sample: %d\n", meta.BitsPerSample)
	cmd.Printf("frames:          %d\n", meta.FrameCount)
	cmd.Printf("duration:        %.3f s\n", meta.DurationSeconds)
	return nil
}
