package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tessro/reel/internal/core"
)

var highlightsFlags reelFlags

var highlightsCmd = &cobra.Command{
	Use:     "highlights <highlights>",
	Aliases: []string{"ls"},
	Short:   "Validate and list the intervals of a highlight file",
	Long: `Load a highlight file, normalize it the way 'reel play' would, and list
the resulting reel. Nothing is played.`,
	Args: cobra.ExactArgs(1),
	RunE: runHighlights,
}

func init() {
	highlightsCmd.Flags().BoolVar(&highlightsFlags.merge, "merge", false, "merge overlapping intervals")
	highlightsCmd.Flags().IntVarP(&highlightsFlags.maxClip, "max", "n", 0, "maximum number of clips (default from config)")
	rootCmd.AddCommand(highlightsCmd)
}

func runHighlights(cmd *cobra.Command, args []string) error {
	reel, err := loadReel(cmd.Context(), cfg, args[0], highlightsFlags)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if JSONOutput() {
		return json.NewEncoder(out).Encode(struct {
			Video      string                   `json:"video"`
			Title      string                   `json:"title,omitempty"`
			Highlights []core.HighlightInterval `json:"highlights"`
			Generated  int                      `json:"generated"`
			Dropped    int                      `json:"dropped"`
			Merged     int                      `json:"merged"`
			Capped     int                      `json:"capped"`
		}{
			Video:      reel.Doc.Video,
			Title:      reel.Doc.Title,
			Highlights: reel.Intervals,
			Generated:  reel.Report.Generated,
			Dropped:    reel.Report.Dropped,
			Merged:     reel.Report.Merged,
			Capped:     reel.Report.Capped,
		})
	}

	printReel(out, reel)
	return nil
}

func printReel(out io.Writer, reel *loadedReel) {
	if reel.Doc.Title != "" {
		fmt.Fprintln(out, reel.Doc.Title)
	}
	if reel.Doc.Video != "" {
		fmt.Fprintf(out, "Video: %s\n", reel.Doc.Video)
	}
	fmt.Fprintln(out)

	var total float64
	t := NewTableWriter(out, "#", "ID", "NAME", "START", "END", "LENGTH", "REASON")
	for i, iv := range reel.Intervals {
		length := iv.End - iv.Start
		total += length
		t.Row(
			fmt.Sprintf("%d", i+1),
			TruncateString(iv.ID, 12),
			TruncateString(iv.Name, 32),
			FormatDuration(iv.Start),
			FormatDuration(iv.End),
			FormatDuration(length),
			TruncateString(iv.Reason, 40),
		)
	}
	t.Flush()

	fmt.Fprintf(out, "\n%d clips, %s total\n", len(reel.Intervals), FormatDuration(total))

	r := reel.Report
	if r.Changed() {
		fmt.Fprintf(out, "Normalized: %d ids generated, %d dropped, %d merged, %d capped\n",
			r.Generated, r.Dropped, r.Merged, r.Capped)
	}
}
