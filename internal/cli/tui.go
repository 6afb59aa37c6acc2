package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tessro/reel/internal/playback"
	"github.com/tessro/reel/internal/tui"
)

var (
	tuiFlags   reelFlags
	tuiRefresh int
)

var tuiCmd = &cobra.Command{
	Use:     "tui <highlights>",
	Aliases: []string{"ui"},
	Short:   "Play a highlight reel interactively",
	Long: `Launch the interactive terminal player for a highlight reel.

The dashboard provides a live view with:
  • Now Showing - current clip and playhead
  • Reel - every clip in playback order
  • Output - the player the reel is playing on
  • History - clips shown so far

Keyboard shortcuts:
  q, Ctrl+C    Quit
  ?            Help
  Space        Pause/Resume
  n            Next clip
  p            Previous clip
  ↑/↓, j/k     Select clip
  Enter        Play selected clip once
  1-9          Play reel from clip
  r            Replay reel
  Tab          Switch panel`,
	Args: cobra.ExactArgs(1),
	RunE: runTUI,
}

func init() {
	addReelFlags(tuiCmd, &tuiFlags)
	tuiCmd.Flags().IntVar(&tuiRefresh, "refresh", 0, "refresh interval in milliseconds (default from config)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg, args[0], tuiFlags)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := playback.PlayWithRetry(ctx, sess.ctrl, retryPolicy(cfg)); err != nil {
		return err
	}

	refresh := cfg.TUI.RefreshInterval
	if tuiRefresh > 0 {
		refresh = tuiRefresh
	}

	return tui.Run(sess.ctrl, tui.Options{
		RefreshRate: ms(refresh),
		Video:       sess.video,
		Device:      sess.device,
		Theme:       cfg.TUI.Theme,
	})
}
