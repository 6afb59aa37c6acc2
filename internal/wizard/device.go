package wizard

import (
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/tessro/reel/internal/core"
)

// DeviceModel is the bubbletea model for the renderer picker.
type DeviceModel struct {
	devices  []core.Device
	current  string
	cursor   int
	selected *core.Device
	width    int
	height   int
}

// Styles for the device picker
var (
	deviceTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	deviceItemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	deviceSelectedStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Background(lipgloss.Color("237"))

	deviceCurrentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82"))

	deviceDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// NewDeviceModel creates a picker over devices. current is the configured
// default, marked in the list and preselected when present.
func NewDeviceModel(devices []core.Device, current string) DeviceModel {
	m := DeviceModel{
		devices: devices,
		current: current,
		width:   80,
		height:  20,
	}
	for i, d := range devices {
		if m.isCurrent(d) {
			m.cursor = i
			break
		}
	}
	return m
}

func (m DeviceModel) isCurrent(d core.Device) bool {
	return m.current != "" && (d.Name == m.current || d.ID == m.current || d.Address == m.current)
}

// Init initializes the model.
func (m DeviceModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m DeviceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit

		case "enter", " ":
			if len(m.devices) > 0 && m.cursor < len(m.devices) {
				m.selected = &m.devices[m.cursor]
				return m, tea.Quit
			}

		case "up", "k", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j", "ctrl+n":
			if m.cursor < len(m.devices)-1 {
				m.cursor++
			}

		case "home", "g":
			m.cursor = 0

		case "end", "G":
			if len(m.devices) > 0 {
				m.cursor = len(m.devices) - 1
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// View renders the model.
func (m DeviceModel) View() string {
	var b strings.Builder

	b.WriteString(deviceTitleStyle.Render("📺 Select Renderer"))
	b.WriteString("\n\n")

	if len(m.devices) == 0 {
		b.WriteString(deviceDimStyle.Render("No renderers found"))
		b.WriteString("\n\n")
		b.WriteString(deviceDimStyle.Render("Make sure the TV or renderer is on and on the same network."))
	} else {
		for i, device := range m.devices {
			var line strings.Builder

			if m.isCurrent(device) {
				line.WriteString(deviceCurrentStyle.Render("★ "))
			} else {
				line.WriteString(deviceDimStyle.Render("○ "))
			}

			line.WriteString(device.Name)

			info := device.Address
			if device.Model != "" {
				info = device.Model + ", " + info
			}
			line.WriteString(" " + deviceDimStyle.Render("("+info+")"))

			if i == m.cursor {
				b.WriteString(deviceSelectedStyle.Render("▸ " + line.String()))
			} else {
				b.WriteString(deviceItemStyle.Render("  " + line.String()))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(deviceDimStyle.Render("↑/↓ navigate • enter select • esc cancel"))
	b.WriteString("\n")
	b.WriteString(deviceDimStyle.Render("★ configured default"))

	return b.String()
}

// Selected returns the selected device, or nil if none.
func (m DeviceModel) Selected() *core.Device {
	return m.selected
}

// IsTerminal returns true if stdin and stdout are terminals.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// RunDevicePicker runs the picker and returns the selected device, or nil
// if the user cancelled.
func RunDevicePicker(devices []core.Device, current string) (*core.Device, error) {
	p := tea.NewProgram(NewDeviceModel(devices, current))
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	return finalModel.(DeviceModel).Selected(), nil
}
