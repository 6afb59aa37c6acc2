package tail

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/tessro/reel/internal/core"
)

// Formatter formats events for output.
type Formatter struct {
	showEmoji     bool
	showTimestamp bool
	template      *template.Template
}

// FormatterOption configures a Formatter.
type FormatterOption func(*Formatter)

// WithEmoji enables emoji output.
func WithEmoji(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showEmoji = enabled
	}
}

// WithTimestamp enables timestamp output.
func WithTimestamp(enabled bool) FormatterOption {
	return func(f *Formatter) {
		f.showTimestamp = enabled
	}
}

// WithTemplate sets a custom format template.
func WithTemplate(tmpl string) FormatterOption {
	return func(f *Formatter) {
		if tmpl != "" {
			t, err := template.New("format").Parse(tmpl)
			if err == nil {
				f.template = t
			}
		}
	}
}

// NewFormatter creates a new formatter with the given options.
func NewFormatter(opts ...FormatterOption) *Formatter {
	f := &Formatter{
		showEmoji:     true,
		showTimestamp: false,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format formats an event as a string.
func (f *Formatter) Format(e Event) string {
	if f.template != nil {
		return f.formatTemplate(e)
	}
	return f.formatLine(e)
}

// formatLine formats an event as a simple line.
func (f *Formatter) formatLine(e Event) string {
	var parts []string

	// Timestamp
	if f.showTimestamp {
		parts = append(parts, e.Timestamp.Format("15:04:05"))
	}

	// Emoji
	if f.showEmoji {
		parts = append(parts, eventEmoji(e.Type))
	}

	// Event description
	parts = append(parts, f.eventDescription(e))

	return strings.Join(parts, " ")
}

// formatTemplate formats an event using a custom template.
func (f *Formatter) formatTemplate(e Event) string {
	data := templateData{
		Type:      e.Type.String(),
		Emoji:     eventEmoji(e.Type),
		Timestamp: e.Timestamp,
		Time:      e.Timestamp.Format("15:04:05"),
	}

	if st := subject(e); st.HasInterval() {
		data.ID = st.Current.ID
		data.Name = intervalName(st.Current)
		data.Reason = st.Current.Reason
		data.Start = formatClock(st.Current.Start)
		data.End = formatClock(st.Current.End)
		data.Position = st.Progress.Position
		data.Total = st.Progress.Total
	}

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		return f.formatLine(e)
	}
	return buf.String()
}

type templateData struct {
	Type      string
	Emoji     string
	Timestamp time.Time
	Time      string
	ID        string
	Name      string
	Reason    string
	Start     string
	End       string
	Position  int
	Total     int
}

// subject is the snapshot an event is about: the interval that just ended
// for completions and skips, the current one otherwise.
func subject(e Event) *core.Status {
	switch e.Type {
	case EventIntervalComplete, EventIntervalSkip:
		return e.Previous
	default:
		return e.Current
	}
}

// eventDescription returns a human-readable description of the event.
func (f *Formatter) eventDescription(e Event) string {
	st := subject(e)

	switch e.Type {
	case EventIntervalChange:
		if st.HasInterval() {
			return fmt.Sprintf("Now showing [%d/%d]: %s (%s-%s)",
				st.Progress.Position,
				st.Progress.Total,
				intervalName(st.Current),
				formatClock(st.Current.Start),
				formatClock(st.Current.End))
		}
		return "Interval changed"

	case EventIntervalComplete:
		if st.HasInterval() {
			return fmt.Sprintf("Finished: %s", intervalName(st.Current))
		}
		return "Interval completed"

	case EventIntervalSkip:
		if st.HasInterval() {
			return fmt.Sprintf("Skipped: %s", intervalName(st.Current))
		}
		return "Interval skipped"

	case EventPause:
		return "Paused"

	case EventResume:
		return "Resumed"

	case EventFinished:
		return "Reel finished"

	default:
		return "Unknown event"
	}
}

// eventEmoji returns an emoji for the event type.
func eventEmoji(t EventType) string {
	switch t {
	case EventIntervalChange:
		return "🎬"
	case EventIntervalComplete:
		return "✅"
	case EventIntervalSkip:
		return "⏭️"
	case EventPause:
		return "⏸️"
	case EventResume:
		return "▶️"
	case EventFinished:
		return "🏁"
	default:
		return "❓"
	}
}

// String returns the snake_case name of the event type.
func (t EventType) String() string {
	switch t {
	case EventIntervalChange:
		return "interval_change"
	case EventIntervalComplete:
		return "interval_complete"
	case EventIntervalSkip:
		return "interval_skip"
	case EventPause:
		return "pause"
	case EventResume:
		return "resume"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

func intervalName(iv *core.HighlightInterval) string {
	if iv.Name != "" {
		return iv.Name
	}
	return iv.ID
}

// formatClock formats seconds as M:SS, or H:MM:SS past the hour.
func formatClock(seconds float64) string {
	total := int(seconds)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
