package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessro/reel/internal/core"
	"github.com/tessro/reel/internal/playback"
	"github.com/tessro/reel/internal/tail"
)

var (
	playFlags     reelFlags
	playNoEmoji   bool
	playTimestamp bool
	playFormat    string
	playInterval  time.Duration
)

var playCmd = &cobra.Command{
	Use:   "play <highlights>",
	Short: "Play a highlight reel",
	Long: `Play every interval of a highlight file in order, then stop.

The highlight file is JSON, YAML or TOML, read from a path, a URL or
standard input ("-"). Events are printed as each clip starts and ends:
  - Interval changes (next clip started)
  - Interval completions (clip played to its end)
  - Interval skips (clip left early)
  - Pause/Resume
  - Reel finished

Press Ctrl+C to stop playback.`,
	Example: `  reel play talk.yaml
  reel play --player upnp --device "Living Room" https://example.com/reels/42
  reel play --player sim --format '{{.Position}}/{{.Total}} {{.Name}}' talk.json`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	addReelFlags(playCmd, &playFlags)
	playCmd.Flags().BoolVar(&playNoEmoji, "no-emoji", false, "disable emoji output")
	playCmd.Flags().BoolVarP(&playTimestamp, "timestamp", "t", false, "show timestamps")
	playCmd.Flags().StringVarP(&playFormat, "format", "f", "", "custom format template")
	playCmd.Flags().DurationVarP(&playInterval, "interval", "i", 0, "pause/resume poll interval (default from config)")

	rootCmd.AddCommand(playCmd)
}

// addReelFlags registers the flags shared by play and tui.
func addReelFlags(cmd *cobra.Command, f *reelFlags) {
	cmd.Flags().StringVarP(&f.player, "player", "p", "", "player backend: mpv, upnp or sim")
	cmd.Flags().StringVarP(&f.device, "device", "d", "", "UPnP renderer name, UUID or IP")
	cmd.Flags().StringVar(&f.video, "video", "", "video to play (overrides the highlight file)")
	cmd.Flags().BoolVar(&f.merge, "merge", false, "merge overlapping intervals")
	cmd.Flags().IntVarP(&f.maxClip, "max", "n", 0, "maximum number of clips (default from config)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	// Handle Ctrl+C gracefully
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg, args[0], playFlags)
	if err != nil {
		return err
	}
	defer sess.Close()

	if Verbose() && sess.reel.Report.Changed() {
		r := sess.reel.Report
		fmt.Fprintf(os.Stderr, "normalized: %d ids generated, %d dropped, %d merged, %d capped\n",
			r.Generated, r.Dropped, r.Merged, r.Capped)
	}

	interval := playInterval
	if interval == 0 {
		interval = ms(cfg.Tail.Interval)
	}
	formatter := tail.NewFormatter(
		tail.WithEmoji(!playNoEmoji && !cfg.Tail.NoEmoji),
		tail.WithTimestamp(playTimestamp || cfg.Tail.Timestamp),
		tail.WithTemplate(playFormat),
	)

	// Register before playing so the first interval is reported.
	watcher := tail.NewWatcher(sess.ctrl, interval)
	sess.ctrl.OnIntervalChange(watcher.Notify)
	defer sess.ctrl.OnIntervalChange(nil)
	defer watcher.Stop()

	if err := playback.PlayWithRetry(ctx, sess.ctrl, retryPolicy(cfg)); err != nil {
		return err
	}

	return followReel(ctx, cmd.OutOrStdout(), watcher, formatter, JSONOutput())
}

// followReel prints watcher events until the reel finishes or ctx ends.
func followReel(ctx context.Context, out io.Writer, watcher *tail.Watcher, formatter *tail.Formatter, asJSON bool) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- watcher.Start(ctx)
	}()

	enc := json.NewEncoder(out)
	for event := range watcher.Events() {
		if asJSON {
			if err := enc.Encode(eventJSON(event)); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(out, formatter.Format(event))
		}
		if event.Type == tail.EventFinished {
			watcher.Stop()
		}
	}

	if err := <-errCh; err != nil && err != context.Canceled {
		return err
	}
	return nil
}

type eventOutput struct {
	Type      string                  `json:"type"`
	Timestamp time.Time               `json:"timestamp"`
	Interval  *core.HighlightInterval `json:"interval,omitempty"`
	Position  int                     `json:"position,omitempty"`
	Total     int                     `json:"total"`
}

func eventJSON(e tail.Event) eventOutput {
	out := eventOutput{
		Type:      e.Type.String(),
		Timestamp: e.Timestamp,
	}

	subject := e.Current
	if e.Type == tail.EventIntervalComplete || e.Type == tail.EventIntervalSkip {
		subject = e.Previous
	}
	if subject != nil {
		out.Interval = subject.Current
		out.Position = subject.Progress.Position
		out.Total = subject.Progress.Total
	}
	return out
}
