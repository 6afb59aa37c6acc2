package core

// Status is a point-in-time snapshot of a playback session.
type Status struct {
	Mode        string             `json:"mode"`
	Current     *HighlightInterval `json:"current"`
	Progress    Progress           `json:"progress"`
	Sequencing  bool               `json:"sequencing"`
	Playing     bool               `json:"playing"`
	CurrentTime float64            `json:"current_time"`
}

// HasInterval returns true if an interval is current.
func (s *Status) HasInterval() bool {
	return s != nil && s.Current != nil
}

// IntervalPercent returns how far the playhead is through the current
// interval as a percentage (0-100).
func (s *Status) IntervalPercent() float64 {
	if s == nil || s.Current == nil || s.Current.End <= s.Current.Start {
		return 0
	}
	p := (s.CurrentTime - s.Current.Start) / (s.Current.End - s.Current.Start) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
