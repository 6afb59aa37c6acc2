package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tessro/reel/internal/core"
	"github.com/tessro/reel/internal/tui/components"
	"github.com/tessro/reel/internal/tui/styles"
)

// Panel represents which panel is focused
type Panel int

const (
	PanelNowShowing Panel = iota
	PanelReel
	PanelOutput
	PanelHistory
	panelCount
)

const maxHistory = 50

// Controller is the playback surface the TUI drives.
type Controller interface {
	Status(ctx context.Context) core.Status
	Intervals() []core.HighlightInterval
	PlayReel(ctx context.Context) error
	Pause(ctx context.Context)
	Resume(ctx context.Context) error
	SkipNext(ctx context.Context) error
	SkipPrevious(ctx context.Context) error
	PlayIntervalByID(ctx context.Context, id string) error
	SeekToIndexAndPlay(ctx context.Context, i int) error
	OnIntervalChange(fn func(id string))
}

// Options configures the TUI
type Options struct {
	RefreshRate time.Duration
	Video       string
	Device      core.Device
	Theme       string
}

// Model is the main TUI model
type Model struct {
	ctrl         Controller
	opts         Options
	keys         keyMap
	help         help.Model
	width        int
	height       int
	focusedPanel Panel

	// State
	status    *core.Status
	intervals []core.HighlightInterval
	history   []components.HistoryEntry

	// Components
	nowShowing  *components.NowShowing
	reelView    *components.Reel
	outputView  *components.Output
	historyView *components.History

	// Overlays
	showHelp bool

	// Error handling
	lastError   error
	errorExpiry time.Time // When to clear the error

	quitting bool
}

// NewModel creates a new TUI model
func NewModel(ctrl Controller, opts Options) Model {
	if opts.RefreshRate <= 0 {
		opts.RefreshRate = 500 * time.Millisecond
	}
	return Model{
		ctrl:         ctrl,
		opts:         opts,
		keys:         defaultKeyMap(),
		help:         help.New(),
		focusedPanel: PanelReel,
		intervals:    ctrl.Intervals(),
		nowShowing:   components.NewNowShowing(),
		reelView:     components.NewReel(),
		outputView:   components.NewOutput(),
		historyView:  components.NewHistory(),
	}
}

// Messages
type tickMsg time.Time
type statusMsg struct {
	status    core.Status
	intervals []core.HighlightInterval
}
type intervalMsg string
type actionMsg struct{ err error }

// Commands
func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.RefreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return statusMsg{
			status:    m.ctrl.Status(ctx),
			intervals: m.ctrl.Intervals(),
		}
	}
}

// action runs a controller operation off the update loop.
func (m Model) action(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{err: fn(context.Background())}
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.tick(),
		m.fetchStatus(),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.tick(), m.fetchStatus())

	case statusMsg:
		if time.Now().After(m.errorExpiry) {
			m.lastError = nil
		}
		st := msg.status
		m.status = &st
		m.intervals = msg.intervals
		return m, nil

	case intervalMsg:
		m.addToHistory(string(msg))
		return m, m.fetchStatus()

	case actionMsg:
		if msg.err != nil {
			m.lastError = msg.err
			m.errorExpiry = time.Now().Add(5 * time.Second) // Show error for 5 seconds
		}
		return m, m.fetchStatus()
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	// Help overlay
	if m.showHelp {
		if key.Matches(msg, m.keys.Help) || msg.String() == "esc" {
			m.showHelp = false
			m.help.ShowAll = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.help.ShowAll = true
		return m, nil

	case key.Matches(msg, m.keys.NextPane):
		m.focusedPanel = (m.focusedPanel + 1) % panelCount
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if m.status != nil && m.status.Sequencing {
			return m, m.action(func(ctx context.Context) error {
				m.ctrl.Pause(ctx)
				return nil
			})
		}
		return m, m.action(m.ctrl.Resume)

	case key.Matches(msg, m.keys.Next):
		return m, m.action(m.ctrl.SkipNext)

	case key.Matches(msg, m.keys.Prev):
		return m, m.action(m.ctrl.SkipPrevious)

	case key.Matches(msg, m.keys.Replay):
		return m, m.action(m.ctrl.PlayReel)

	case key.Matches(msg, m.keys.Up):
		m.reelView.SelectPrev()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.reelView.SelectNext(len(m.intervals))
		return m, nil

	case key.Matches(msg, m.keys.PlayOne):
		i := m.reelView.Selected()
		if i < 0 || i >= len(m.intervals) {
			return m, nil
		}
		id := m.intervals[i].ID
		return m, m.action(func(ctx context.Context) error {
			return m.ctrl.PlayIntervalByID(ctx, id)
		})

	case key.Matches(msg, m.keys.Jump):
		i := int(msg.String()[0] - '1')
		if i >= len(m.intervals) {
			return m, nil
		}
		m.reelView.Select(i)
		return m, m.action(func(ctx context.Context) error {
			return m.ctrl.SeekToIndexAndPlay(ctx, i)
		})
	}

	return m, nil
}

func (m *Model) addToHistory(id string) {
	if id == "" {
		return
	}
	for _, iv := range m.intervals {
		if iv.ID != id {
			continue
		}
		entry := components.HistoryEntry{Interval: iv, ShownAt: time.Now()}

		// Add to front, keep max entries
		m.history = append([]components.HistoryEntry{entry}, m.history...)
		if len(m.history) > maxHistory {
			m.history = m.history[:maxHistory]
		}
		return
	}
}

// currentIndex returns the 0-based index of the current interval, or -1.
func (m Model) currentIndex() int {
	if m.status == nil || !m.status.HasInterval() {
		return -1
	}
	return m.status.Progress.Position - 1
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.width == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	// Main layout: two columns
	// Left: Now Showing (top), Reel (bottom)
	// Right: Output (top), History (bottom)

	leftWidth := m.width * 60 / 100
	rightWidth := m.width - leftWidth - 2
	topHeight := m.height * 40 / 100
	bottomHeight := m.height - topHeight - 3

	mode := "idle"
	if m.status != nil {
		mode = m.status.Mode
	}

	nowShowing := m.nowShowing.Render(m.status, m.opts.Video, leftWidth-2, topHeight-2, m.focusedPanel == PanelNowShowing)
	reelView := m.reelView.Render(m.intervals, m.currentIndex(), leftWidth-2, bottomHeight-2, m.focusedPanel == PanelReel)
	outputView := m.outputView.Render(m.opts.Device, mode, rightWidth-2, topHeight-2, m.focusedPanel == PanelOutput)
	historyView := m.historyView.Render(m.history, rightWidth-2, bottomHeight-2, m.focusedPanel == PanelHistory)

	leftCol := lipgloss.JoinVertical(lipgloss.Left, nowShowing, reelView)
	rightCol := lipgloss.JoinVertical(lipgloss.Left, outputView, historyView)

	main := lipgloss.JoinHorizontal(lipgloss.Top, leftCol, rightCol)

	return lipgloss.JoinVertical(lipgloss.Left, main, m.renderStatusBar())
}

func (m Model) renderStatusBar() string {
	status := m.help.View(m.keys)

	if m.lastError != nil {
		status = styles.Failure.Render("Error: " + m.lastError.Error())
	}

	return lipgloss.NewStyle().
		Width(m.width).
		Padding(0, 1).
		Render(status)
}

func (m Model) renderHelp() string {
	title := styles.Title.Render("Reel - Keyboard Shortcuts")
	body := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		m.help.View(m.keys),
		"",
		styles.Dim.Render("Press ? or Esc to close"),
	)

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(styles.BorderStyle.Padding(1, 2).Render(body))
}

// Run starts the TUI and blocks until the user quits. Interval changes
// reported by the controller are forwarded to the program as they happen.
func Run(ctrl Controller, opts Options) error {
	styles.SetTheme(opts.Theme)

	p := tea.NewProgram(NewModel(ctrl, opts), tea.WithAltScreen())
	ctrl.OnIntervalChange(func(id string) {
		p.Send(intervalMsg(id))
	})
	defer ctrl.OnIntervalChange(nil)

	_, err := p.Run()
	return err
}
