package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldayton/TotalRecall/internal/audio"
)

// newPlayCommand creates the play subcommand: load a file, play it (or a
// frame range), and report latency-compensated progress until completion.
func newPlayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Play an audio file or a frame range of it",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlayE,
	}
	cmd.Flags().Int64("from", 0, "Start frame (inclusive)")
	cmd.Flags().Int64("to", 0, "End frame (exclusive; 0 = natural end)")
	return cmd
}

// consoleListener prints playback events and signals completion.
type consoleListener struct {
	out  io.Writer
	once sync.Once
	done chan struct{}
}

func newConsoleListener(out io.Writer) *consoleListener {
	return &consoleListener{out: out, done: make(chan struct{})}
}

func (l *consoleListener) OnProgress(_ audio.PlaybackHandle, positionFrames, totalFrames int64) {
	fmt.Fprintf(l.out, "\rprogress: %d/%d frames", positionFrames, totalFrames)
}

func (l *consoleListener) OnStateChanged(_ audio.PlaybackHandle, newState, oldState audio.PlaybackState) {
	fmt.Fprintf(l.out, "\nstate: %s -> %s\n", oldState, newState)
	if newState == audio.StateStopped {
		l.finish()
	}
}

func (l *consoleListener) OnPlaybackComplete(audio.PlaybackHandle) {
	fmt.Fprintf(l.out, "playback complete\n")
	l.finish()
}

func (l *consoleListener) OnPlaybackError(_ audio.PlaybackHandle, message string) {
	fmt.Fprintf(l.out, "playback error: %s\n", message)
	l.finish()
}

func (l *consoleListener) finish() {
	l.once.Do(func() { close(l.done) })
}

func runPlayE(cmd *cobra.Command, args []string) error {
	cli := cliFromContext(cmd.Context())
	cfg, err := loadAndValidateConfig(cmd, cli)
	if err != nil {
		return err
	}
	setupLogging(cfg, cmd.ErrOrStderr())

	engine, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	handle, err := engine.LoadAudio(args[0])
	if err != nil {
		return err
	}

	meta, err := engine.Metadata(handle)
	if err != nil {
		return err
	}
	cmd.Printf("loaded %s: %s, %d Hz, %d ch, %d frames (%.3f s)\n",
		handle.FilePath(), meta.Format, meta.SampleRate, meta.ChannelCount,
		meta.FrameCount, meta.DurationSeconds)

	listener := newConsoleListener(cmd.OutOrStdout())
	engine.AddPlaybackListener(listener)

	from, _ := cmd.Flags().GetInt64("from")
	to, _ := cmd.Flags().GetInt64("to")

	var playback audio.PlaybackHandle
	if from > 0 || to > 0 {
		if to <= 0 {
			to = meta.FrameCount
		}
		playback, err = engine.PlayRange(handle, from, to)
	} else {
		playback, err = engine.Play(handle)
	}
	if err != nil {
		return err
	}

	// Natural completion arrives through the listener; the deadline only
	// guards against a wedged native channel.
	deadline := time.Duration(float64(time.Second)*meta.DurationSeconds) + 5*time.Second
	select {
	case <-listener.done:
	case <-time.After(deadline):
		cmd.PrintErrf("playback did not finish within %s, stopping\n", deadline)
		if err := engine.Stop(playback); err != nil {
			return err
		}
	}
	return nil
}
