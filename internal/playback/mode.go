package playback

// Mode is the state of the playback state machine.
type Mode int

const (
	// Idle means no player is bound.
	Idle Mode = iota
	// Parked means a player is bound and the cursor holds still.
	Parked
	// Sequencing means the reel auto-advances when an interval ends.
	Sequencing
	// Finished means the reel played to its end.
	Finished
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Parked:
		return "parked"
	case Sequencing:
		return "sequencing"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}
