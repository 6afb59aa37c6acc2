package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tessro/reel/internal/core"
)

// manualClock fires timers only when Advance is called.
type manualClock struct {
	mu        sync.Mutex
	now       time.Duration
	timers    []*manualTimer
	scheduled []time.Duration
}

type manualTimer struct {
	clock   *manualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	c.scheduled = append(c.scheduled, d)
	return t
}

// Advance moves time forward, firing due timers in order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.f()
	}
}

// Active returns the number of timers that could still fire.
func (c *manualClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *manualClock) Scheduled() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.scheduled))
	copy(out, c.scheduled)
	return out
}

// leakyClock hands out timers whose Stop never wins, like a real timer
// that already fired and is waiting on the controller's lock.
type leakyClock struct {
	mu    sync.Mutex
	funcs []func()
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (c *leakyClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs = append(c.funcs, f)
	return leakyTimer{}
}

func (c *leakyClock) FireAll() {
	c.mu.Lock()
	funcs := c.funcs
	c.funcs = nil
	c.mu.Unlock()
	for _, f := range funcs {
		f()
	}
}

// fakePlayer records the commands it receives.
type fakePlayer struct {
	mu         sync.Mutex
	notReady   bool
	readyAfter int
	readyCalls int
	calls      []string
	state      core.PlayerState
	position   float64
	failPause  bool
	panicPlay  bool
}

func (p *fakePlayer) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *fakePlayer) SeekTo(ctx context.Context, seconds float64, allowSeekAhead bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(fmt.Sprintf("seek:%g", seconds))
	p.position = seconds
	return nil
}

func (p *fakePlayer) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panicPlay {
		panic("play exploded")
	}
	p.record("play")
	p.state = core.StatePlaying
	return nil
}

func (p *fakePlayer) Pause(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("pause")
	if p.failPause {
		return errors.New("video element is gone")
	}
	p.state = core.StatePaused
	return nil
}

func (p *fakePlayer) State(ctx context.Context) (core.PlayerState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, nil
}

func (p *fakePlayer) CurrentTime(ctx context.Context) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position, nil
}

func (p *fakePlayer) Destroy(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("destroy")
	return nil
}

func (p *fakePlayer) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readyCalls++
	if p.readyAfter > 0 {
		return p.readyCalls > p.readyAfter
	}
	return !p.notReady
}

func (p *fakePlayer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *fakePlayer) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

// recorder collects interval-change notifications.
type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) observe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recorder) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}
