package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/reel/internal/core"
	"github.com/tessro/reel/internal/tui/styles"
)

// NowShowing displays the current interval and the playhead within it
type NowShowing struct{}

// NewNowShowing creates a new NowShowing component
func NewNowShowing() *NowShowing {
	return &NowShowing{}
}

// Render renders the now showing panel
func (n *NowShowing) Render(st *core.Status, video string, width, height int, focused bool) string {
	title := styles.PanelTitle("Now Showing", focused)

	var content string
	switch {
	case st == nil:
		content = styles.Muted.Render("Waiting for player...")
	case st.Mode == "finished":
		content = styles.Muted.Render("Reel finished. Press r to play it again")
	case !st.HasInterval():
		content = styles.Muted.Render("No interval selected")
	default:
		content = n.renderInterval(st, video, width-4)
	}

	panel := styles.Panel(focused).
		Width(width).
		Height(height)

	return panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		content,
	))
}

func (n *NowShowing) renderInterval(st *core.Status, video string, width int) string {
	iv := st.Current

	icon := styles.StatusIcon(st.Playing)
	name := iv.Name
	if name == "" {
		name = iv.ID
	}
	titleStyle := styles.Title.Width(width - 4)
	header := icon + " " + titleStyle.Render(name)

	clip := styles.Subtitle.Render(fmt.Sprintf("Clip %d of %d", st.Progress.Position, st.Progress.Total))
	reason := styles.Dim.Render(truncate(iv.Reason, width-2))

	// Playhead relative to the interval
	progressWidth := width - 14
	if progressWidth < 10 {
		progressWidth = 10
	}
	elapsed := st.CurrentTime - iv.Start
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > iv.End-iv.Start {
		elapsed = iv.End - iv.Start
	}
	bar := styles.ProgressBar(st.IntervalPercent(), progressWidth)
	progress := fmt.Sprintf("%s %s %s", FormatClock(elapsed), bar, FormatClock(iv.End-iv.Start))

	source := styles.Muted.Render(fmt.Sprintf("%s-%s of %s",
		FormatClock(iv.Start), FormatClock(iv.End), truncate(video, width-20)))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"  "+clip,
		"  "+reason,
		"",
		progress,
		"",
		source,
		n.renderControls(st),
	)
}

func (n *NowShowing) renderControls(st *core.Status) string {
	controls := styles.Dim.Render("⏮ ")

	if st.Playing {
		controls += styles.Playing.Render("⏸")
	} else {
		controls += styles.Paused.Render("▶")
	}

	controls += styles.Dim.Render(" ⏭")

	if st.Sequencing {
		controls += styles.Dim.Render("  auto")
	}

	return lipgloss.NewStyle().
		Align(lipgloss.Center).
		Render(controls)
}

// FormatClock renders seconds as M:SS, or H:MM:SS past the hour.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, total%3600/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
