// Package sim is an in-process player with a virtual playhead. It stands in
// for a real video player in dry runs and demos.
package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tessro/reel/internal/core"
)

// ErrDestroyed is returned by commands sent after Destroy.
var ErrDestroyed = errors.New("sim: player destroyed")

// Options configures a simulated player.
type Options struct {
	// LoadDelay is how long the player takes to become ready.
	LoadDelay time.Duration

	// Duration is the length of the simulated video. Zero means unbounded.
	Duration time.Duration

	// Now returns the current time. Default: time.Now.
	Now func() time.Time

	Logger zerolog.Logger
}

// Player is a simulated video player. The playhead advances in real time
// while playing.
type Player struct {
	id  string
	now func() time.Time
	dur float64
	log zerolog.Logger

	mu        sync.Mutex
	ready     bool
	destroyed bool
	playing   bool
	position  float64   // seconds, as of anchor
	anchor    time.Time // when position was last set
}

// New creates a simulated player and returns a binding that becomes ready
// after opts.LoadDelay.
func New(ctx context.Context, opts Options) core.Binding {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := &Player{
		id:  uuid.NewString(),
		now: opts.Now,
		dur: opts.Duration.Seconds(),
	}
	p.log = opts.Logger.With().Str("session", p.id).Logger()

	ch := make(chan error, 1)
	go func() {
		select {
		case <-time.After(opts.LoadDelay):
		case <-ctx.Done():
			ch <- ctx.Err()
			return
		}
		p.mu.Lock()
		p.ready = true
		p.anchor = p.now()
		p.mu.Unlock()
		p.log.Debug().Msg("sim player ready")
		ch <- nil
	}()

	return core.Binding{Player: p, Ready: ch}
}

// ID returns the session id of this player.
func (p *Player) ID() string {
	return p.id
}

// SeekTo moves the playhead.
func (p *Player) SeekTo(ctx context.Context, seconds float64, allowSeekAhead bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrDestroyed
	}
	p.position = p.clamp(seconds)
	p.anchor = p.now()
	p.log.Debug().Float64("position", p.position).Msg("seek")
	return nil
}

// Play starts the playhead.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrDestroyed
	}
	if !p.playing {
		p.position = p.positionLocked()
		p.anchor = p.now()
		p.playing = true
	}
	return nil
}

// Pause freezes the playhead.
func (p *Player) Pause(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrDestroyed
	}
	if p.playing {
		p.position = p.positionLocked()
		p.anchor = p.now()
		p.playing = false
	}
	return nil
}

// State reports the simulated state.
func (p *Player) State(ctx context.Context) (core.PlayerState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.destroyed:
		return core.StateUnstarted, ErrDestroyed
	case !p.ready:
		return core.StateUnstarted, nil
	case p.dur > 0 && p.positionLocked() >= p.dur:
		return core.StateEnded, nil
	case p.playing:
		return core.StatePlaying, nil
	default:
		return core.StatePaused, nil
	}
}

// CurrentTime returns the playhead position.
func (p *Player) CurrentTime(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return 0, ErrDestroyed
	}
	return p.positionLocked(), nil
}

// Destroy stops the player for good.
func (p *Player) Destroy(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = true
	p.playing = false
	p.ready = false
	return nil
}

// Ready reports whether the simulated load has finished.
func (p *Player) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready && !p.destroyed
}

func (p *Player) positionLocked() float64 {
	pos := p.position
	if p.playing {
		pos += p.now().Sub(p.anchor).Seconds()
	}
	return p.clamp(pos)
}

func (p *Player) clamp(pos float64) float64 {
	if pos < 0 {
		return 0
	}
	if p.dur > 0 && pos > p.dur {
		return p.dur
	}
	return pos
}

// Ensure Player implements core.Player
var _ core.Player = (*Player)(nil)
