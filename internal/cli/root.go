package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tessro/reel/internal/config"
	reelerrors "github.com/tessro/reel/internal/errors"
	"github.com/tessro/reel/internal/logging"
)

var (
	cfgFile string
	jsonOut bool
	verbose bool

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "reel",
	Short: "Play highlight reels of long videos",
	Long: `Reel plays a list of highlight intervals from a long video as one
continuous reel, on a local mpv window or a UPnP renderer on your network.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.reelrc)")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// optionalConfig marks commands that may run before the --config file
// exists.
const optionalConfig = "optional-config"

func initConfig(cmd *cobra.Command) error {
	var err error
	switch {
	case cfgFile == "":
		cfg, err = config.Load()
	case cmd.Annotations[optionalConfig] != "" && !fileExists(cfgFile):
		cfg = config.Default()
	default:
		cfg, err = config.LoadFrom(cfgFile)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", reelerrors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", reelerrors.ErrInvalidConfig, err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logCloser, err = logging.Init(level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, reelerrors.Format(err))
		return 1
	}
	return 0
}

// Config returns the loaded configuration.
func Config() *config.Config {
	return cfg
}

// JSONOutput returns true if JSON output is requested.
func JSONOutput() bool {
	return jsonOut
}

// Verbose returns true if verbose output is requested.
func Verbose() bool {
	return verbose
}
