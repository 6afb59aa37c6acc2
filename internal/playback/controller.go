// Package playback drives an external video player through a reel of
// highlight intervals.
//
// The Controller owns the interval sequence and the single pending
// transition timer. Playing an interval is: seek to its start, play, wait a
// settling delay for the player's seek to land, then wait the interval's
// duration and move on. Every control operation cancels the pending timer
// before it does anything else, and each timer carries a generation token
// so a callback that lost the race with a cancellation does nothing.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tessro/reel/internal/core"
	reelerrors "github.com/tessro/reel/internal/errors"
)

// NoInterval is reported to the observer when no interval is current.
const NoInterval = ""

// Default settling delays for a YouTube-style embedded player.
const (
	DefaultFirstSettleDelay = 500 * time.Millisecond
	DefaultSettleDelay      = 200 * time.Millisecond
)

// Options configures a Controller.
type Options struct {
	// FirstSettleDelay is waited after the first seek of a session, while
	// the player is still buffering. Default: 500ms.
	FirstSettleDelay time.Duration

	// SettleDelay is waited after every later seek. Default: 200ms.
	SettleDelay time.Duration

	// CommandTimeout bounds each player command. Zero means no timeout.
	CommandTimeout time.Duration

	// Clock schedules transitions. Default: RealClock().
	Clock Clock

	// Logger receives transition and command-failure logs. Default: a
	// disabled logger.
	Logger *zerolog.Logger
}

// Controller is the playback state machine. All methods are safe for
// concurrent use; state transitions are serialised on one mutex.
type Controller struct {
	mu    sync.Mutex
	opts  Options
	clock Clock
	log   zerolog.Logger

	player  core.Player
	seq     *core.Sequence
	mode    Mode
	started bool // a segment has been played since the last reset

	pending Timer
	gen     uint64

	observer func(id string)
	outbox   []string
}

// New creates a Controller with no player bound.
func New(opts Options) *Controller {
	if opts.FirstSettleDelay == 0 {
		opts.FirstSettleDelay = DefaultFirstSettleDelay
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	clock := opts.Clock
	if clock == nil {
		clock = RealClock()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Controller{
		opts:  opts,
		clock: clock,
		log:   logger,
		seq:   core.NewSequence(nil),
		mode:  Idle,
	}
}

// Bind waits for the binding's ready signal and attaches its player. There
// is no timeout beyond ctx; callers that poll readiness apply their own.
func (c *Controller) Bind(ctx context.Context, b core.Binding) error {
	c.mu.Lock()
	bound := c.player != nil
	c.mu.Unlock()
	if bound {
		return reelerrors.ErrAlreadyBound
	}

	if b.Ready != nil {
		select {
		case err := <-b.Ready:
			if err != nil {
				return fmt.Errorf("%w: %w", reelerrors.ErrBindFailed, err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if b.Player == nil {
		return fmt.Errorf("%w: binding has no player", reelerrors.ErrBindFailed)
	}

	c.mu.Lock()
	defer c.unlock()

	if c.player != nil {
		return reelerrors.ErrAlreadyBound
	}
	c.player = b.Player
	c.mode = Parked
	c.log.Debug().Msg("player bound")
	return nil
}

// OnIntervalChange registers the observer notified with the id of each
// interval that becomes current, or NoInterval when the reel ends or is
// emptied. It replaces any earlier observer. The observer runs outside the
// controller's lock and may call back into the controller.
func (c *Controller) OnIntervalChange(fn func(id string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = fn
}

// SetIntervals replaces the reel. The pending transition is discarded, a
// segment in progress is paused and the cursor parks on the first interval.
func (c *Controller) SetIntervals(intervals []core.HighlightInterval) error {
	for _, iv := range intervals {
		if err := iv.Validate(); err != nil {
			return fmt.Errorf("%w: %w", reelerrors.ErrInvalidInterval, err)
		}
	}

	c.mu.Lock()
	defer c.unlock()

	inSegment := c.mode == Sequencing || c.pending != nil
	c.cancel()
	if inSegment && c.ready() == nil {
		c.exec(context.Background(), "pause", c.player.Pause)
	}
	hadCurrent := c.seq.Index() != core.NoIndex
	c.seq.Set(intervals)
	c.started = false
	if c.player != nil {
		c.mode = Parked
	}
	if c.seq.IsEmpty() && hadCurrent {
		c.notify(NoInterval)
	}
	c.log.Debug().Int("count", c.seq.Len()).Msg("intervals set")
	return nil
}

// PlayReel plays the reel from the first interval, auto-advancing to the
// end.
func (c *Controller) PlayReel(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlock()

	if err := c.ready(); err != nil {
		return err
	}
	if c.seq.IsEmpty() {
		return reelerrors.ErrNoIntervals
	}

	c.playReel(ctx)
	return nil
}

func (c *Controller) playReel(ctx context.Context) {
	c.cancel()
	c.seq.MoveTo(0)
	c.seq.SetSequencing(true)
	c.setMode(Sequencing)
	c.startSegment(ctx, c.advance)
	c.notifyCurrent()
}

// Pause stops auto-advance and pauses the player. Any bound controller,
// finished ones included, ends up Parked.
func (c *Controller) Pause(ctx context.Context) {
	c.mu.Lock()
	defer c.unlock()

	c.cancel()
	c.seq.SetSequencing(false)
	if c.mode == Idle {
		return
	}
	if c.ready() == nil {
		c.exec(ctx, "pause", c.player.Pause)
	}
	c.setMode(Parked)
}

// Resume continues the reel from the current interval without moving the
// cursor. After the reel has finished it starts over.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.unlock()

	if err := c.ready(); err != nil {
		return err
	}
	if c.seq.IsEmpty() {
		return reelerrors.ErrNoIntervals
	}
	if _, ok := c.seq.Current(); !ok {
		c.playReel(ctx)
		return nil
	}

	c.seq.SetSequencing(true)
	c.setMode(Sequencing)
	c.startSegment(ctx, c.advance)
	return nil
}

// PlayIntervalByID plays a single interval and pauses at its end without
// advancing.
func (c *Controller) PlayIntervalByID(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.unlock()

	if err := c.ready(); err != nil {
		return err
	}
	idx := c.seq.IndexOf(id)
	if idx == core.NoIndex {
		return fmt.Errorf("%w: %s", reelerrors.ErrIntervalNotFound, id)
	}

	c.cancel()
	changed := c.moveTo(idx)
	c.seq.SetSequencing(false)
	c.setMode(Parked)
	c.startSegment(ctx, c.clipEnded)
	if changed {
		c.notifyCurrent()
	}
	return nil
}

// SeekToIndex parks the cursor on interval i and seeks the player to its
// start. An out-of-range index is logged and ignored.
func (c *Controller) SeekToIndex(ctx context.Context, i int) error {
	c.mu.Lock()
	defer c.unlock()

	if err := c.ready(); err != nil {
		return err
	}
	if err := c.checkIndex(i); err != nil {
		return err
	}

	c.cancel()
	changed := c.moveTo(i)
	c.seq.SetSequencing(false)
	c.setMode(Parked)

	iv, _ := c.seq.Current()
	c.exec(ctx, "seek", func(ctx context.Context) error {
		return c.player.SeekTo(ctx, iv.Start, true)
	})
	c.exec(ctx, "pause", c.player.Pause)
	if changed {
		c.notifyCurrent()
	}
	return nil
}

// SeekToIndexAndPlay moves to interval i and sequences the reel from there.
func (c *Controller) SeekToIndexAndPlay(ctx context.Context, i int) error {
	c.mu.Lock()
	defer c.unlock()

	if err := c.ready(); err != nil {
		return err
	}
	if err := c.checkIndex(i); err != nil {
		return err
	}

	c.cancel()
	changed := c.moveTo(i)
	c.seq.SetSequencing(true)
	c.setMode(Sequencing)
	c.startSegment(ctx, c.advance)
	if changed {
		c.notifyCurrent()
	}
	return nil
}

// SkipNext moves to the following interval. At the last interval it does
// nothing.
func (c *Controller) SkipNext(ctx context.Context) error {
	return c.skip(ctx, 1)
}

// SkipPrevious moves to the preceding interval. At the first interval it
// does nothing.
func (c *Controller) SkipPrevious(ctx context.Context) error {
	return c.skip(ctx, -1)
}

func (c *Controller) skip(ctx context.Context, delta int) error {
	c.mu.Lock()
	defer c.unlock()

	idx := c.seq.Index()
	target := idx + delta
	if idx == core.NoIndex || !c.seq.Valid(target) {
		c.log.Debug().Int("index", idx).Int("delta", delta).Msg("skip at reel boundary ignored")
		return nil
	}

	sequencing := c.seq.Sequencing()
	if sequencing {
		if err := c.ready(); err != nil {
			return err
		}
	}

	c.cancel()
	c.moveTo(target)
	if sequencing {
		c.startSegment(ctx, c.advance)
	}
	c.notifyCurrent()
	return nil
}

// Current returns the current interval.
func (c *Controller) Current() (core.HighlightInterval, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq.Current()
}

// Progress returns the 1-based reel position.
func (c *Controller) Progress() core.Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq.Progress()
}

// Intervals returns the reel in playback order.
func (c *Controller) Intervals() []core.HighlightInterval {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq.Intervals()
}

// Mode returns the state of the state machine.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// IsPlaying reports whether the player says it is playing. Query failures
// count as not playing.
func (c *Controller) IsPlaying(ctx context.Context) bool {
	c.mu.Lock()
	p := c.player
	c.mu.Unlock()

	if p == nil || !p.Ready() {
		return false
	}
	state, err := p.State(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("player state query failed")
		return false
	}
	return state == core.StatePlaying
}

// Status returns a snapshot of the session.
func (c *Controller) Status(ctx context.Context) core.Status {
	c.mu.Lock()
	st := core.Status{
		Mode:       c.mode.String(),
		Progress:   c.seq.Progress(),
		Sequencing: c.seq.Sequencing(),
	}
	if iv, ok := c.seq.Current(); ok {
		st.Current = &iv
	}
	p := c.player
	c.mu.Unlock()

	if p == nil || !p.Ready() {
		return st
	}
	if state, err := p.State(ctx); err == nil {
		st.Playing = state == core.StatePlaying
	}
	if t, err := p.CurrentTime(ctx); err == nil {
		st.CurrentTime = t
	}
	return st
}

// Destroy stops playback, releases the player and clears the reel. The
// controller returns to Idle and can be bound again.
func (c *Controller) Destroy(ctx context.Context) {
	c.mu.Lock()
	defer c.unlock()

	c.cancel()
	hadCurrent := c.seq.Index() != core.NoIndex
	if c.player != nil {
		c.exec(ctx, "pause", c.player.Pause)
		c.exec(ctx, "destroy", c.player.Destroy)
	}
	c.player = nil
	c.seq.Reset()
	c.started = false
	c.setMode(Idle)
	if hadCurrent {
		c.notify(NoInterval)
	}
}

// startSegment seeks to the current interval, plays it and arms the
// settle timer. onEnd runs, locked, when the interval's duration elapses.
func (c *Controller) startSegment(ctx context.Context, onEnd func()) {
	iv, ok := c.seq.Current()
	if !ok {
		return
	}

	c.exec(ctx, "seek", func(ctx context.Context) error {
		return c.player.SeekTo(ctx, iv.Start, true)
	})
	c.exec(ctx, "play", c.player.Play)

	delay := c.opts.SettleDelay
	if !c.started {
		delay = c.opts.FirstSettleDelay
		c.started = true
	}

	c.log.Debug().
		Str("interval", iv.ID).
		Float64("start", iv.Start).
		Dur("settle", delay).
		Msg("segment started")

	c.arm(delay, func() {
		c.arm(iv.Duration(), onEnd)
	})
}

// advance is the segment-end handler while sequencing.
func (c *Controller) advance() {
	if !c.seq.HasNext() {
		c.finish()
		return
	}
	if err := c.ready(); err != nil {
		c.log.Error().Err(err).Msg("cannot advance reel")
		c.seq.SetSequencing(false)
		c.setMode(Parked)
		return
	}

	c.seq.MoveTo(c.seq.Index() + 1)
	c.startSegment(context.Background(), c.advance)
	c.notifyCurrent()
}

// clipEnded is the segment-end handler for a single interval.
func (c *Controller) clipEnded() {
	if c.ready() == nil {
		c.exec(context.Background(), "pause", c.player.Pause)
	}
}

func (c *Controller) finish() {
	if c.ready() == nil {
		c.exec(context.Background(), "pause", c.player.Pause)
	}
	c.seq.Clear()
	c.setMode(Finished)
	c.notify(NoInterval)
}

// arm replaces the pending timer. The callback runs with the lock held and
// only if no cancellation happened in between.
func (c *Controller) arm(d time.Duration, fn func()) {
	c.cancel()
	gen := c.gen
	c.pending = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.unlock()

		if gen != c.gen {
			return
		}
		c.pending = nil
		fn()
	})
}

func (c *Controller) cancel() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.gen++
}

func (c *Controller) ready() error {
	if c.player == nil || !c.player.Ready() {
		return reelerrors.ErrPlayerNotReady
	}
	return nil
}

func (c *Controller) checkIndex(i int) error {
	if c.seq.Valid(i) {
		return nil
	}
	c.log.Warn().Int("index", i).Int("count", c.seq.Len()).Msg("interval index out of range")
	return fmt.Errorf("%w: %d not in [0, %d)", reelerrors.ErrInvalidIndex, i, c.seq.Len())
}

// moveTo moves the cursor and reports whether it changed.
func (c *Controller) moveTo(i int) bool {
	prev := c.seq.Index()
	c.seq.MoveTo(i)
	return prev != i
}

func (c *Controller) setMode(m Mode) {
	if c.mode != m {
		c.log.Debug().Stringer("from", c.mode).Stringer("to", m).Msg("mode changed")
	}
	c.mode = m
}

// exec runs a player command. Failures are logged and swallowed: the
// controller's own state stays consistent whatever the player does.
func (c *Controller) exec(ctx context.Context, name string, fn func(context.Context) error) {
	if c.opts.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CommandTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			c.log.Warn().Str("command", name).Interface("panic", r).Msg("player command panicked")
		}
	}()

	if err := fn(ctx); err != nil {
		ev := c.log.Warn()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", reelerrors.ErrTimeout, err)
		}
		ev.Err(err).Str("command", name).Msg("player command failed")
	}
}

func (c *Controller) notifyCurrent() {
	if iv, ok := c.seq.Current(); ok {
		c.notify(iv.ID)
		return
	}
	c.notify(NoInterval)
}

func (c *Controller) notify(id string) {
	c.outbox = append(c.outbox, id)
}

// unlock releases the lock and then delivers queued notifications.
func (c *Controller) unlock() {
	notes := c.outbox
	c.outbox = nil
	observer := c.observer
	c.mu.Unlock()

	if observer == nil {
		return
	}
	for _, id := range notes {
		observer(id)
	}
}
