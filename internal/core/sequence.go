package core

import "sort"

// NoIndex is the cursor value of an empty or exhausted sequence.
const NoIndex = -1

// Sequence is the ordered set of highlight intervals for one playback
// session and the cursor into it. It is not safe for concurrent use; the
// playback controller serialises access.
type Sequence struct {
	intervals  []HighlightInterval
	index      int
	sequencing bool
}

// NewSequence creates a sequence holding a sorted copy of intervals.
func NewSequence(intervals []HighlightInterval) *Sequence {
	s := &Sequence{index: NoIndex}
	s.Set(intervals)
	return s
}

// Set replaces the intervals with a copy sorted by start time, moves the
// cursor to the first interval and clears the sequencing flag.
func (s *Sequence) Set(intervals []HighlightInterval) {
	s.intervals = make([]HighlightInterval, len(intervals))
	copy(s.intervals, intervals)
	sort.SliceStable(s.intervals, func(i, j int) bool {
		return s.intervals[i].Start < s.intervals[j].Start
	})

	s.sequencing = false
	if len(s.intervals) == 0 {
		s.index = NoIndex
		return
	}
	s.index = 0
}

// Current returns the interval under the cursor.
func (s *Sequence) Current() (HighlightInterval, bool) {
	if s == nil || s.index < 0 || s.index >= len(s.intervals) {
		return HighlightInterval{}, false
	}
	return s.intervals[s.index], true
}

// Index returns the cursor, or NoIndex.
func (s *Sequence) Index() int {
	if s == nil {
		return NoIndex
	}
	return s.index
}

// Len returns the number of intervals.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.intervals)
}

// IsEmpty returns true if the sequence has no intervals.
func (s *Sequence) IsEmpty() bool {
	return s.Len() == 0
}

// Valid reports whether i addresses an interval.
func (s *Sequence) Valid(i int) bool {
	return i >= 0 && i < s.Len()
}

// IndexOf returns the position of the interval with the given id.
func (s *Sequence) IndexOf(id string) int {
	for i, iv := range s.intervals {
		if iv.ID == id {
			return i
		}
	}
	return NoIndex
}

// MoveTo moves the cursor to i. It returns false and leaves the cursor
// alone if i is out of range.
func (s *Sequence) MoveTo(i int) bool {
	if !s.Valid(i) {
		return false
	}
	s.index = i
	return true
}

// HasNext reports whether an interval follows the cursor.
func (s *Sequence) HasNext() bool {
	return s.index >= 0 && s.index < s.Len()-1
}

// Clear parks the cursor on the sentinel without dropping intervals.
func (s *Sequence) Clear() {
	s.index = NoIndex
	s.sequencing = false
}

// Reset drops all intervals.
func (s *Sequence) Reset() {
	s.intervals = nil
	s.Clear()
}

// Sequencing reports whether the reel is auto-advancing.
func (s *Sequence) Sequencing() bool {
	return s.sequencing
}

// SetSequencing sets the auto-advance flag.
func (s *Sequence) SetSequencing(on bool) {
	s.sequencing = on
}

// Intervals returns a copy of the stored intervals in playback order.
func (s *Sequence) Intervals() []HighlightInterval {
	out := make([]HighlightInterval, len(s.intervals))
	copy(out, s.intervals)
	return out
}

// Progress returns the 1-based position of the cursor for display.
func (s *Sequence) Progress() Progress {
	return Progress{Position: s.Index() + 1, Total: s.Len()}
}

// Progress is the reel position shown to users.
type Progress struct {
	Position int `json:"position"`
	Total    int `json:"total"`
}

// Percent returns Position/Total as a percentage (0-100).
func (p Progress) Percent() float64 {
	if p.Total <= 0 || p.Position <= 0 {
		return 0
	}
	return float64(p.Position) / float64(p.Total) * 100
}
