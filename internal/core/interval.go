package core

import (
	"fmt"
	"math"
	"time"
)

// MaxSeconds is the latest time an interval may end at: the longest span
// a time.Duration can hold.
const MaxSeconds = float64(math.MaxInt64 / int64(time.Second))

// HighlightInterval is a [Start, End) range of the source video selected as
// worth showing. Times are in seconds.
type HighlightInterval struct {
	ID     string  `json:"id" yaml:"id" toml:"id"`
	Name   string  `json:"name" yaml:"name" toml:"name"`
	Start  float64 `json:"start" yaml:"start" toml:"start"`
	End    float64 `json:"end" yaml:"end" toml:"end"`
	Reason string  `json:"reason,omitempty" yaml:"reason,omitempty" toml:"reason,omitempty"`
}

// Duration returns the length of the interval.
func (h HighlightInterval) Duration() time.Duration {
	if h.End <= h.Start {
		return 0
	}
	return SecondsToDuration(h.End - h.Start)
}

// Validate checks that the interval describes a playable range.
func (h HighlightInterval) Validate() error {
	switch {
	case h.ID == "":
		return fmt.Errorf("interval %q: missing id", h.Name)
	case math.IsNaN(h.Start) || math.IsNaN(h.End):
		return fmt.Errorf("interval %s: start and end must be numbers", h.ID)
	case math.IsInf(h.Start, 0) || math.IsInf(h.End, 0):
		return fmt.Errorf("interval %s: start and end must be finite", h.ID)
	case h.Start < 0:
		return fmt.Errorf("interval %s: start %.3f is negative", h.ID, h.Start)
	case h.End <= h.Start:
		return fmt.Errorf("interval %s: end %.3f must be after start %.3f", h.ID, h.End, h.Start)
	case h.End > MaxSeconds:
		return fmt.Errorf("interval %s: end %.3f is past the %.0fs limit", h.ID, h.End, MaxSeconds)
	}
	return nil
}

// Overlaps reports whether two intervals share any time.
func (h HighlightInterval) Overlaps(o HighlightInterval) bool {
	return h.Start < o.End && o.Start < h.End
}

// SecondsToDuration converts fractional seconds to a time.Duration,
// rounded to the millisecond. Values outside [0, MaxSeconds] are clamped.
func SecondsToDuration(s float64) time.Duration {
	switch {
	case math.IsNaN(s) || s <= 0:
		return 0
	case s >= MaxSeconds:
		return time.Duration(MaxSeconds) * time.Second
	}
	return time.Duration(math.Round(s*1000)) * time.Millisecond
}
