package core

import "context"

// PlayerState is the state code reported by an external video player.
type PlayerState int

const (
	StateUnstarted PlayerState = -1
	StateEnded     PlayerState = 0
	StatePlaying   PlayerState = 1
	StatePaused    PlayerState = 2
	StateBuffering PlayerState = 3
	StateCued      PlayerState = 5
)

// String returns a lowercase name for the state.
func (s PlayerState) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateEnded:
		return "ended"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateCued:
		return "cued"
	default:
		return "unknown"
	}
}

// Player is the control surface of an external video player.
type Player interface {
	// Playback control
	SeekTo(ctx context.Context, seconds float64, allowSeekAhead bool) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error

	// State queries
	State(ctx context.Context) (PlayerState, error)
	CurrentTime(ctx context.Context) (float64, error)

	// Destroy releases the player. The player is unusable afterwards.
	Destroy(ctx context.Context) error

	// Ready reports whether the control surface accepts commands. A player
	// can exist before it is ready.
	Ready() bool
}

// Binding is an in-flight attachment to a player. Ready delivers exactly
// one value: nil once the player has loaded, or the error that stopped it.
type Binding struct {
	Player Player
	Ready  <-chan error
}

// Bound returns a Binding whose ready signal has already fired.
func Bound(p Player) Binding {
	ch := make(chan error, 1)
	ch <- nil
	return Binding{Player: p, Ready: ch}
}

// Failed returns a Binding that reports err as its ready signal.
func Failed(err error) Binding {
	ch := make(chan error, 1)
	ch <- err
	return Binding{Ready: ch}
}
