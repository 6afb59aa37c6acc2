package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/reel/internal/core"
	"github.com/tessro/reel/internal/tui/styles"
)

// Output displays the device the reel is playing on
type Output struct{}

// NewOutput creates a new Output component
func NewOutput() *Output {
	return &Output{}
}

// Render renders the output panel
func (o *Output) Render(device core.Device, mode string, width, height int, focused bool) string {
	title := styles.PanelTitle("Output", focused)

	var content string
	if device.Name == "" {
		content = styles.Muted.Render("No player bound")
	} else {
		content = o.renderDevice(device, mode, width-4)
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

func (o *Output) renderDevice(device core.Device, mode string, width int) string {
	icon := styles.DeviceIcon(string(device.Type))
	name := truncate(device.Name, width-3)

	lines := []string{
		fmt.Sprintf("%s %s", icon, styles.Highlight.Render(name)),
		styles.Muted.Render(fmt.Sprintf("  %s", device.Backend)),
	}
	if device.Address != "" {
		lines = append(lines, styles.Dim.Render("  "+truncate(device.Address, width-2)))
	}

	state := styles.Dim.Render("  " + mode)
	if mode == "sequencing" {
		state = styles.Playing.Render("  ● " + mode)
	}
	lines = append(lines, "", state)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
