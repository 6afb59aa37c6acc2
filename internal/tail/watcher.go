package tail

import (
	"context"
	"sync"
	"time"

	"github.com/tessro/reel/internal/core"
)

// EventType represents the type of playback event.
type EventType int

const (
	EventIntervalChange EventType = iota
	EventIntervalComplete
	EventIntervalSkip
	EventPause
	EventResume
	EventFinished
)

// completeFraction is how much of an interval must have been on screen for
// its end to count as completion rather than a skip.
const completeFraction = 0.8

// Event represents a playback state change.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Previous  *core.Status
	Current   *core.Status
}

// Source is a playback session the watcher follows.
type Source interface {
	Status(ctx context.Context) core.Status
	Intervals() []core.HighlightInterval
}

// Watcher turns interval-change notifications into events and polls the
// session for pause and resume.
type Watcher struct {
	source   Source
	interval time.Duration
	events   chan Event
	changes  chan change
	done     chan struct{}
	stopOnce sync.Once

	now func() time.Time

	// Owned by the Start goroutine.
	shown     *core.Status
	shownAt   time.Time
	pausedAt  time.Time
	pausedFor time.Duration
}

// NewWatcher creates a new state watcher.
func NewWatcher(source Source, interval time.Duration) *Watcher {
	if interval == 0 {
		interval = time.Second
	}
	return &Watcher{
		source:   source,
		interval: interval,
		events:   make(chan Event, 16),
		changes:  make(chan change, 64),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

// Events returns the channel of playback events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// change is an interval-change notification and when it happened.
type change struct {
	id string
	at time.Time
}

// Notify reports that the interval with the given ID became current, or
// that none is current when id is empty. It is meant to be registered as
// the controller's interval-change observer and may be called before Start.
func (w *Watcher) Notify(id string) {
	select {
	case w.changes <- change{id: id, at: w.now()}:
	case <-w.done:
	}
}

// Start emits events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.events)

	prev := w.source.Status(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case c := <-w.changes:
			if !w.emit(ctx, w.intervalEvents(ctx, c)) {
				return ctx.Err()
			}
		case <-ticker.C:
			curr := w.source.Status(ctx)
			if !w.emit(ctx, w.pauseEvents(&prev, &curr)) {
				return ctx.Err()
			}
			prev = curr
		}
	}
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// emit delivers events in order. It returns false if ctx ended first.
func (w *Watcher) emit(ctx context.Context, events []Event) bool {
	for _, e := range events {
		select {
		case w.events <- e:
		case <-w.done:
			return true
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// intervalEvents handles a change notification: the interval on screen
// ends (completed or skipped), the new one starts, and an empty id after
// the last interval finishes the reel.
func (w *Watcher) intervalEvents(ctx context.Context, c change) []Event {
	id, now := c.id, c.at
	var events []Event

	var next *core.Status
	if id != "" {
		next = w.snapshot(id)
	}

	if prev := w.shown; prev != nil {
		eventType := EventIntervalSkip
		if w.completed(now) {
			eventType = EventIntervalComplete
		}
		events = append(events, Event{
			Type:      eventType,
			Timestamp: now,
			Previous:  prev,
			Current:   next,
		})
	}

	if next != nil {
		events = append(events, Event{
			Type:      EventIntervalChange,
			Timestamp: now,
			Previous:  w.shown,
			Current:   next,
		})
	}

	if id == "" {
		st := w.source.Status(ctx)
		if st.Mode == "finished" {
			events = append(events, Event{
				Type:      EventFinished,
				Timestamp: now,
				Previous:  w.shown,
				Current:   &st,
			})
		}
	}

	w.shown = next
	w.shownAt = now
	w.pausedFor = 0
	if !w.pausedAt.IsZero() {
		w.pausedAt = now
	}
	return events
}

// snapshot describes the interval with the given ID as the current one.
func (w *Watcher) snapshot(id string) *core.Status {
	intervals := w.source.Intervals()
	for i := range intervals {
		if intervals[i].ID != id {
			continue
		}
		iv := intervals[i]
		return &core.Status{
			Current:  &iv,
			Progress: core.Progress{Position: i + 1, Total: len(intervals)},
		}
	}
	return nil
}

// completed reports whether the interval on screen was shown, unpaused,
// for most of its length.
func (w *Watcher) completed(now time.Time) bool {
	if !w.shown.HasInterval() {
		return false
	}
	on := now.Sub(w.shownAt) - w.pausedFor
	if !w.pausedAt.IsZero() {
		on -= now.Sub(w.pausedAt)
	}
	length := w.shown.Current.End - w.shown.Current.Start
	return on.Seconds() >= length*completeFraction
}

// pauseEvents compares two polled snapshots for pause and resume.
func (w *Watcher) pauseEvents(prev, curr *core.Status) []Event {
	now := w.now()

	switch {
	case prev.Playing && !curr.Playing && curr.HasInterval():
		if w.pausedAt.IsZero() {
			w.pausedAt = now
		}
		return []Event{{
			Type:      EventPause,
			Timestamp: now,
			Previous:  prev,
			Current:   curr,
		}}

	case !prev.Playing && curr.Playing && sameInterval(prev, curr):
		if !w.pausedAt.IsZero() {
			w.pausedFor += now.Sub(w.pausedAt)
			w.pausedAt = time.Time{}
		}
		return []Event{{
			Type:      EventResume,
			Timestamp: now,
			Previous:  prev,
			Current:   curr,
		}}
	}
	return nil
}

func sameInterval(a, b *core.Status) bool {
	return a.HasInterval() && b.HasInterval() && a.Current.ID == b.Current.ID
}
