package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/reel/internal/core"
	"github.com/tessro/reel/internal/tui/styles"
)

// Reel displays the intervals in playback order
type Reel struct {
	offset   int
	selected int
}

// NewReel creates a new Reel component
func NewReel() *Reel {
	return &Reel{}
}

// SelectNext moves the selection down, stopping at the last of n intervals
func (r *Reel) SelectNext(n int) {
	if r.selected < n-1 {
		r.selected++
	}
}

// SelectPrev moves the selection up
func (r *Reel) SelectPrev() {
	if r.selected > 0 {
		r.selected--
	}
}

// Select moves the selection to i
func (r *Reel) Select(i int) {
	if i >= 0 {
		r.selected = i
	}
}

// Selected returns the selected index
func (r *Reel) Selected() int {
	return r.selected
}

// Render renders the reel panel. current is the 0-based index of the
// current interval, or -1.
func (r *Reel) Render(intervals []core.HighlightInterval, current, width, height int, focused bool) string {
	title := styles.PanelTitle(fmt.Sprintf("Reel (%d)", len(intervals)), focused)

	var content string
	if len(intervals) == 0 {
		content = styles.Muted.Render("No highlights loaded")
	} else {
		content = r.renderReel(intervals, current, width-4, height-4, focused)
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

func (r *Reel) renderReel(intervals []core.HighlightInterval, current, width, maxLines int, focused bool) string {
	if r.selected >= len(intervals) {
		r.selected = len(intervals) - 1
	}

	visibleCount := maxLines - 1 // Leave room for "more" indicator
	if visibleCount < 1 {
		visibleCount = 1
	}

	// Keep the selection on screen
	if r.selected < r.offset {
		r.offset = r.selected
	}
	if r.selected >= r.offset+visibleCount {
		r.offset = r.selected - visibleCount + 1
	}

	start := r.offset
	end := start + visibleCount
	if end > len(intervals) {
		end = len(intervals)
	}

	lines := make([]string, 0, end-start+1)

	// Fixed overhead: "XX. " (4) + "▶ " (2) + range "0:00-0:00 " (10)
	const overhead = 16

	for i := start; i < end; i++ {
		iv := intervals[i]

		num := fmt.Sprintf("%2d.", i+1)
		span := fmt.Sprintf("%s-%s", FormatClock(iv.Start), FormatClock(iv.End))
		name := iv.Name
		if name == "" {
			name = iv.ID
		}
		name = truncate(name, width-overhead)

		selector := "  "
		if focused && i == r.selected {
			selector = "▸ "
		}

		var line string
		switch {
		case i == current:
			line = styles.Playing.Render(fmt.Sprintf("%s ▶ %s %s", num, span, name))
		case focused && i == r.selected:
			line = fmt.Sprintf("%s%s %s %s", selector, styles.Dim.Render(num), styles.Muted.Render(span), styles.Highlight.Render(name))
		default:
			line = fmt.Sprintf("%s%s %s %s", selector, styles.Dim.Render(num), styles.Muted.Render(span), name)
		}

		lines = append(lines, line)
	}

	if end < len(intervals) {
		more := styles.Dim.Render(fmt.Sprintf("    ... and %d more", len(intervals)-end))
		lines = append(lines, more)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
