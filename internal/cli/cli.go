package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/ldayton/TotalRecall/internal/config"
	"github.com/ldayton/TotalRecall/internal/fmod"
)

const Version = "1.0.0"

// CLI represents the command-line interface.
type CLI struct {
	rootCmd       *cobra.Command
	configManager *config.ConfigManager
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	slog.Debug("creating new CLI instance")

	rootCmd := &cobra.Command{
		Use:   "totalrecall",
		Short: "TotalRecall audio annotation backend",
		Long:  "TotalRecall is a desktop audio-annotation backend: it loads one audio file at a time, plays frame-accurate ranges with latency-compensated progress, and serves bulk sample reads for waveform rendering.",
	}

	rootCmd.AddCommand(newPlayCommand())
	rootCmd.AddCommand(newInfoCommand())
	rootCmd.AddCommand(newWaveformCommand())

	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("loading-mode", "", "Native library loading mode (packaged, unpackaged)")
	rootCmd.PersistentFlags().String("library-type", "", "Native library variant (standard, logging)")
	rootCmd.PersistentFlags().String("library-path", "", "Native library path for unpackaged mode")

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if version, _ := cmd.Flags().GetBool("version"); version {
			cmd.Printf("totalrecall version %s\n", Version)
			return nil
		}
		return cmd.Help()
	}

	cli := &CLI{rootCmd: rootCmd}
	cli.rootCmd.SetContext(contextWithCLI(cli))
	return cli
}

type cliContextKey struct{}

func contextWithCLI(cli *CLI) context.Context {
	return context.WithValue(context.Background(), cliContextKey{}, cli)
}

func cliFromContext(ctx context.Context) *CLI {
	if cli, ok := ctx.Value(cliContextKey{}).(*CLI); ok {
		return cli
	}
	return nil
}

// Run executes the CLI and returns the process exit code.
func (c *CLI) Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c.rootCmd.SetArgs(args)
	c.rootCmd.SetIn(stdin)
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)

	if err := c.rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// loadAndValidateConfig loads configuration from flags and files, applies
// environment and flag overrides, and validates the result.
func loadAndValidateConfig(cmd *cobra.Command, cli *CLI) (*config.Config, error) {
	if cli.configManager == nil {
		cli.configManager = config.NewConfigManager()
	}
	cm := cli.configManager

	var cfg *config.Config
	var err error
	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		cfg, err = cm.LoadFromFile(configFile)
	} else {
		cfg, err = cm.LoadConfig()
	}
	if err != nil {
		return nil, err
	}

	cfg = cm.ApplyEnvironmentOverrides(cfg)

	if mode, _ := cmd.Flags().GetString("loading-mode"); mode != "" {
		cfg.LoadingMode = mode
	}
	if libType, _ := cmd.Flags().GetString("library-type"); libType != "" {
		cfg.LibraryType = libType
	}
	if libPath, _ := cmd.Flags().GetString("library-path"); libPath != "" {
		cfg.LibraryPath = libPath
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	if err := cm.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLoader builds the native library loader from config.
func newLoader(cfg *config.Config) *fmod.Loader {
	return fmod.NewLoader(fmod.LoaderConfig{
		Mode:        fmod.ParseLoadingMode(cfg.LoadingMode),
		Type:        fmod.ParseLibraryType(cfg.LibraryType),
		LibraryPath: cfg.LibraryPath,
	})
}

// openEngine brings up the native engine per config.
func openEngine(cfg *config.Config) (*fmod.Engine, error) {
	interval := time.Duration(cfg.ProgressIntervalMS) * time.Millisecond
	return fmod.Open(newLoader(cfg), fmod.WithProgressInterval(interval))
}

// setupLogging configures the default slog handler: stderr always, plus
// a rotating file when file logging is enabled.
func setupLogging(cfg *config.Config, stderrWriter io.Writer) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	writers := []io.Writer{stderrWriter}

	if cfg.FileLogging != nil && cfg.FileLogging.Enabled {
		configManager := config.NewConfigManager()
		logFilePath := configManager.ResolveLogFilePath(cfg.FileLogging.Filename)

		logDir := filepath.Dir(logFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			slog.Error("failed to create log directory", "path", logDir, "error", err)
			// Continue without file logging rather than failing
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   logFilePath,
				MaxSize:    cfg.FileLogging.MaxSizeMB,
				MaxBackups: cfg.FileLogging.MaxBackups,
				MaxAge:     cfg.FileLogging.MaxAgeDays,
				Compress:   cfg.FileLogging.Compress,
			}
			writers = append(writers, fileWriter)
			slog.Debug("file logging enabled", "path", logFilePath)
		}
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	slog.Debug("logging setup completed",
		"level", level.String(),
		"writers", len(writers))
}
