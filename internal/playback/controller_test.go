package playback

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/tessro/reel/internal/core"
	reelerrors "github.com/tessro/reel/internal/errors"
)

var twoClips = []core.HighlightInterval{
	{ID: "b", Name: "Second", Start: 20, End: 35},
	{ID: "a", Name: "First", Start: 0, End: 10},
}

var threeClips = []core.HighlightInterval{
	{ID: "a", Start: 0, End: 10},
	{ID: "b", Start: 20, End: 35},
	{ID: "c", Start: 60, End: 62},
}

type harness struct {
	t      *testing.T
	ctrl   *Controller
	clock  *manualClock
	player *fakePlayer
	rec    *recorder
}

func newHarness(t *testing.T, intervals []core.HighlightInterval) *harness {
	t.Helper()

	h := &harness{
		t:      t,
		clock:  &manualClock{},
		player: &fakePlayer{},
		rec:    &recorder{},
	}
	h.ctrl = New(Options{
		FirstSettleDelay: 500 * time.Millisecond,
		SettleDelay:      200 * time.Millisecond,
		Clock:            h.clock,
	})
	h.ctrl.OnIntervalChange(h.rec.observe)

	if err := h.ctrl.Bind(context.Background(), core.Bound(h.player)); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if err := h.ctrl.SetIntervals(intervals); err != nil {
		t.Fatalf("SetIntervals() error = %v", err)
	}
	return h
}

// advance moves the clock and checks the single-timer invariant.
func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	h.clock.Advance(d)
	h.assertAtMostOneTimer()
}

func (h *harness) assertAtMostOneTimer() {
	h.t.Helper()
	if n := h.clock.Active(); n > 1 {
		h.t.Fatalf("%d timers armed, want at most 1", n)
	}
}

func (h *harness) assertIDs(want ...string) {
	h.t.Helper()
	got := h.rec.IDs()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		h.t.Errorf("notifications = %q, want %q", got, want)
	}
}

func (h *harness) assertCalls(want ...string) {
	h.t.Helper()
	got := h.player.Calls()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		h.t.Errorf("player calls = %q, want %q", got, want)
	}
}

func TestPlayReelAdvancesAndFinishes(t *testing.T) {
	h := newHarness(t, twoClips)
	ctx := context.Background()

	if err := h.ctrl.PlayReel(ctx); err != nil {
		t.Fatalf("PlayReel() error = %v", err)
	}
	h.assertIDs("a")
	h.assertCalls("seek:0", "play")
	if h.ctrl.Mode() != Sequencing {
		t.Errorf("Mode() = %v, want sequencing", h.ctrl.Mode())
	}

	// settle, then most of "a"
	h.advance(500 * time.Millisecond)
	h.advance(9999 * time.Millisecond)
	h.assertIDs("a")

	h.advance(time.Millisecond)
	h.assertIDs("a", "b")
	h.assertCalls("seek:0", "play", "seek:20", "play")

	cur, ok := h.ctrl.Current()
	if !ok || cur.ID != "b" {
		t.Fatalf("Current() = %q, %v; want b", cur.ID, ok)
	}

	h.advance(200 * time.Millisecond)
	h.advance(15 * time.Second)
	h.assertIDs("a", "b", NoInterval)
	h.assertCalls("seek:0", "play", "seek:20", "play", "pause")

	if h.ctrl.Mode() != Finished {
		t.Errorf("Mode() = %v, want finished", h.ctrl.Mode())
	}
	if _, ok := h.ctrl.Current(); ok {
		t.Error("Current() ok = true after the reel finished")
	}
	if h.clock.Active() != 0 {
		t.Errorf("Active() = %d after finish, want 0", h.clock.Active())
	}

	// Nothing else ever fires.
	h.advance(time.Hour)
	h.assertIDs("a", "b", NoInterval)
}

func TestSettleDelays(t *testing.T) {
	h := newHarness(t, threeClips)

	if err := h.ctrl.PlayReel(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.advance(time.Hour)

	want := []time.Duration{
		500 * time.Millisecond, 10 * time.Second, // a: first settle
		200 * time.Millisecond, 15 * time.Second, // b
		200 * time.Millisecond, 2 * time.Second, // c
	}
	if got := h.clock.Scheduled(); !reflect.DeepEqual(got, want) {
		t.Errorf("scheduled = %v, want %v", got, want)
	}
}

func TestNotificationCountMatchesIntervals(t *testing.T) {
	h := newHarness(t, threeClips)

	if err := h.ctrl.PlayReel(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		h.advance(100 * time.Millisecond)
	}
	h.advance(time.Hour)

	h.assertIDs("a", "b", "c", NoInterval)
}

func TestPlayReelFailsFast(t *testing.T) {
	t.Run("empty reel", func(t *testing.T) {
		h := newHarness(t, nil)
		err := h.ctrl.PlayReel(context.Background())
		if !errors.Is(err, reelerrors.ErrNoIntervals) {
			t.Errorf("PlayReel() error = %v, want ErrNoIntervals", err)
		}
		if h.clock.Active() != 0 {
			t.Error("timer armed for an empty reel")
		}
		h.assertCalls()
	})

	t.Run("unbound player", func(t *testing.T) {
		clock := &manualClock{}
		c := New(Options{Clock: clock})
		if err := c.SetIntervals(twoClips); err != nil {
			t.Fatal(err)
		}
		err := c.PlayReel(context.Background())
		if !errors.Is(err, reelerrors.ErrPlayerNotReady) {
			t.Errorf("PlayReel() error = %v, want ErrPlayerNotReady", err)
		}
		if clock.Active() != 0 {
			t.Error("timer armed without a player")
		}
		if c.Mode() != Idle {
			t.Errorf("Mode() = %v, want idle", c.Mode())
		}
	})

	t.Run("player without a control surface", func(t *testing.T) {
		clock := &manualClock{}
		p := &fakePlayer{notReady: true}
		c := New(Options{Clock: clock})
		if err := c.Bind(context.Background(), core.Bound(p)); err != nil {
			t.Fatalf("Bind() error = %v", err)
		}
		if err := c.SetIntervals(twoClips); err != nil {
			t.Fatal(err)
		}

		err := c.PlayReel(context.Background())
		if !errors.Is(err, reelerrors.ErrPlayerNotReady) {
			t.Errorf("PlayReel() error = %v, want ErrPlayerNotReady", err)
		}
		if len(p.Calls()) != 0 {
			t.Errorf("player received %q before it was ready", p.Calls())
		}
		if clock.Active() != 0 {
			t.Error("timer armed for a player that is not ready")
		}
	})
}

func TestPauseCancelsPendingTransition(t *testing.T) {
	h := newHarness(t, threeClips)
	ctx := context.Background()

	if err := h.ctrl.PlayReel(ctx); err != nil {
		t.Fatal(err)
	}
	h.advance(500 * time.Millisecond)

	h.ctrl.Pause(ctx)
	if h.clock.Active() != 0 {
		t.Fatalf("Active() = %d after Pause, want 0", h.clock.Active())
	}
	if h.ctrl.Mode() != Parked {
		t.Errorf("Mode() = %v, want parked", h.ctrl.Mode())
	}

	if err := h.ctrl.SeekToIndex(ctx, 1); err != nil {
		t.Fatalf("SeekToIndex() error = %v", err)
	}
	h.player.Reset()

	h.advance(time.Hour)
	h.assertIDs("a", "b")
	h.assertCalls()

	cur, _ := h.ctrl.Current()
	if cur.ID != "b" {
		t.Errorf("Current() = %q, want b", cur.ID)
	}
}

func TestStaleTimerCallbackIsIgnored(t *testing.T) {
	clock := &leakyClock{}
	p := &fakePlayer{}
	rec := &recorder{}
	c := New(Options{Clock: clock})
	c.OnIntervalChange(rec.observe)
	if err := c.Bind(context.Background(), core.Bound(p)); err != nil {
		t.Fatal(err)
	}
	if err := c.SetIntervals(threeClips); err != nil {
		t.Fatal(err)
	}

	if err := c.PlayReel(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Pause(context.Background())

	// The settle timer "fires" after Pause lost the race to stop it.
	clock.FireAll()
	clock.FireAll()

	if c.Mode() != Parked {
		t.Errorf("Mode() = %v, want parked", c.Mode())
	}
	if got := rec.IDs(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("notifications = %q, want [a]", got)
	}
	if got := p.Calls(); !reflect.DeepEqual(got, []string{"seek:0", "play", "pause"}) {
		t.Errorf("player calls = %q", got)
	}
}

func TestSkipBoundsAreNoOps(t *testing.T) {
	h := newHarness(t, twoClips)
	ctx := context.Background()

	if err := h.ctrl.SkipPrevious(ctx); err != nil {
		t.Fatalf("SkipPrevious() error = %v", err)
	}
	if idx := h.ctrl.Progress().Position; idx != 1 {
		t.Errorf("Position = %d, want 1", idx)
	}
	h.assertIDs()

	if err := h.ctrl.SkipNext(ctx); err != nil {
		t.Fatal(err)
	}
	h.assertIDs("b")

	if err := h.ctrl.SkipNext(ctx); err != nil {
		t.Fatalf("SkipNext() error = %v", err)
	}
	if idx := h.ctrl.Progress().Position; idx != 2 {
		t.Errorf("Position = %d, want 2", idx)
	}
	h.assertIDs("b")

	// Parked skips move the cursor without driving the player.
	h.assertCalls()
}

func TestSkipWhileSequencing(t *testing.T) {
	h := newHarness(t, threeClips)
	ctx := context.Background()

	if err := h.ctrl.PlayReel(ctx); err != nil {
		t.Fatal(err)
	}
	h.advance(3 * time.Second)

	if err := h.ctrl.SkipNext(ctx); err != nil {
		t.Fatal(err)
	}
	h.assertAtMostOneTimer()
	h.assertIDs("a", "b")
	h.assertCalls("seek:0", "play", "seek:20", "play")
	if h.ctrl.Mode() != Sequencing {
		t.Errorf("Mode() = %v, want sequencing", h.ctrl.Mode())
	}

	if err := h.ctrl.SkipPrevious(ctx); err != nil {
		t.Fatal(err)
	}
	h.assertIDs("a", "b", "a")

	// The old "a" timer was cancelled; the new one runs its full length.
	h.advance(200*time.Millisecond + 9*time.Second)
	h.assertIDs("a", "b", "a")
	h.advance(time.Second)
	h.assertIDs("a", "b", "a", "b")
}

func TestSeekToIndexOutOfRange(t *testing.T) {
	h := newHarness(t, []core.HighlightInterval{{ID: "x", Start: 5, End: 15}})
	ctx := context.Background()

	for _, i := range []int{5, -1, 1} {
		err := h.ctrl.SeekToIndex(ctx, i)
		if !errors.Is(err, reelerrors.ErrInvalidIndex) {
			t.Errorf("SeekToIndex(%d) error = %v, want ErrInvalidIndex", i, err)
		}
	}
	if err := h.ctrl.SeekToIndexAndPlay(ctx, 7); !errors.Is(err, reelerrors.ErrInvalidIndex) {
		t.Errorf("SeekToIndexAndPlay(7) error = %v, want ErrInvalidIndex", err)
	}

	cur, ok := h.ctrl.Current()
	if !ok || cur.ID != "x" {
		t.Errorf("Current() = %q, %v; want x", cur.ID, ok)
	}
	h.assertCalls()
	h.assertIDs()
}

func TestSeekAndPlayPauseResumeRoundTrip(t *testing.T) {
	h := newHarness(t, threeClips)
	ctx := context.Background()

	if err := h.ctrl.SeekToIndexAndPlay(ctx, 1); err != nil {
		t.Fatal(err)
	}
	h.ctrl.Pause(ctx)
	h.player.Reset()

	if err := h.ctrl.Resume(ctx); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	h.assertCalls("seek:20", "play")

	cur, _ := h.ctrl.Current()
	if cur.ID != "b" {
		t.Errorf("Current() = %q, want b", cur.ID)
	}
	if h.ctrl.Mode() != Sequencing {
		t.Errorf("Mode() = %v, want sequencing", h.ctrl.Mode())
	}

	h.advance(time.Hour)
	h.assertIDs("b", "c", NoInterval)
}

func TestResumeAfterFinishRestarts(t *testing.T) {
	h := newHarness(t, twoClips)
	ctx := context.Background()

	if err := h.ctrl.PlayReel(ctx); err != nil {
		t.Fatal(err)
	}
	h.advance(time.Hour)

	if err := h.ctrl.Resume(ctx); err != nil {
		t.Fatal(err)
	}
	cur, _ := h.ctrl.Current()
	if cur.ID != "a" {
		t.Errorf("Current() = %q, want a", cur.ID)
	}
	h.assertIDs("a", "b", NoInterval, "a")
}

func TestPlayIntervalByIDDoesNotAdvance(t *testing.T) {
	h := newHarness(t, threeClips)
	ctx := context.Background()

	if err := h.ctrl.PlayIntervalByID(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if h.ctrl.Mode() != Parked {
		t.Errorf("Mode() = %v, want parked", h.ctrl.Mode())
	}

	h.advance(time.Hour)
	h.assertIDs("b")
	h.assertCalls("seek:20", "play", "pause")

	cur, _ := h.ctrl.Current()
	if cur.ID != "b" {
		t.Errorf("Current() = %q, want b", cur.ID)
	}

	err := h.ctrl.PlayIntervalByID(ctx, "missing")
	if !errors.Is(err, reelerrors.ErrIntervalNotFound) {
		t.Errorf("PlayIntervalByID(missing) error = %v, want ErrIntervalNotFound", err)
	}
}

func TestSetIntervalsMidPlayback(t *testing.T) {
	h := newHarness(t, threeClips)
	ctx := context.Background()

	if err := h.ctrl.PlayReel(ctx); err != nil {
		t.Fatal(err)
	}
	h.advance(600 * time.Millisecond)

	if err := h.ctrl.SetIntervals([]core.HighlightInterval{{ID: "z", Start: 100, End: 110}}); err != nil {
		t.Fatal(err)
	}
	if h.clock.Active() != 0 {
		t.Errorf("Active() = %d after SetIntervals, want 0", h.clock.Active())
	}
	if h.ctrl.Mode() != Parked {
		t.Errorf("Mode() = %v, want parked", h.ctrl.Mode())
	}
	cur, _ := h.ctrl.Current()
	if cur.ID != "z" {
		t.Errorf("Current() = %q, want z", cur.ID)
	}
	// The old clip must not keep playing.
	h.assertCalls("seek:0", "play", "pause")

	// A new video gets the long settle delay again.
	if err := h.ctrl.PlayReel(ctx); err != nil {
		t.Fatal(err)
	}
	sched := h.clock.Scheduled()
	if last := sched[len(sched)-1]; last != 500*time.Millisecond {
		t.Errorf("settle after reassign = %v, want 500ms", last)
	}
}

func TestSetIntervalsWhileParkedLeavesPlayer(t *testing.T) {
	h := newHarness(t, twoClips)

	if err := h.ctrl.SetIntervals(threeClips); err != nil {
		t.Fatal(err)
	}
	h.assertCalls()
}

func TestSetIntervalsRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		iv   core.HighlightInterval
	}{
		{"inverted", core.HighlightInterval{ID: "bad", Start: 10, End: 2}},
		{"infinite end", core.HighlightInterval{ID: "bad", Start: 0, End: math.Inf(1)}},
		{"end overflows duration", core.HighlightInterval{ID: "bad", Start: 0, End: 1e10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, twoClips)

			err := h.ctrl.SetIntervals([]core.HighlightInterval{tt.iv})
			if !errors.Is(err, reelerrors.ErrInvalidInterval) {
				t.Errorf("SetIntervals() error = %v, want ErrInvalidInterval", err)
			}
			if got := len(h.ctrl.Intervals()); got != 2 {
				t.Errorf("len(Intervals()) = %d, want 2", got)
			}
		})
	}
}

func TestPauseAfterFinishParks(t *testing.T) {
	h := newHarness(t, twoClips)
	ctx := context.Background()

	if err := h.ctrl.PlayReel(ctx); err != nil {
		t.Fatal(err)
	}
	h.advance(time.Hour)
	if h.ctrl.Mode() != Finished {
		t.Fatalf("Mode() = %v, want finished", h.ctrl.Mode())
	}

	h.ctrl.Pause(ctx)
	if h.ctrl.Mode() != Parked {
		t.Errorf("Mode() = %v after Pause, want parked", h.ctrl.Mode())
	}

	// Resume still starts the reel over.
	if err := h.ctrl.Resume(ctx); err != nil {
		t.Fatal(err)
	}
	if cur, ok := h.ctrl.Current(); !ok || cur.ID != "a" {
		t.Errorf("Current() = %q, %v; want a", cur.ID, ok)
	}
}

func TestSetIntervalsEmptyNotifiesNone(t *testing.T) {
	h := newHarness(t, twoClips)

	if err := h.ctrl.SetIntervals(nil); err != nil {
		t.Fatal(err)
	}
	h.assertIDs(NoInterval)
	if p := h.ctrl.Progress(); p.Position != 0 || p.Total != 0 || p.Percent() != 0 {
		t.Errorf("Progress() = %+v", p)
	}
}

func TestCommandFailuresAreSwallowed(t *testing.T) {
	h := newHarness(t, twoClips)
	ctx := context.Background()
	h.player.failPause = true

	if err := h.ctrl.PlayReel(ctx); err != nil {
		t.Fatal(err)
	}
	h.ctrl.Pause(ctx)
	if h.ctrl.Mode() != Parked {
		t.Errorf("Mode() = %v, want parked", h.ctrl.Mode())
	}

	h.player.panicPlay = true
	if err := h.ctrl.Resume(ctx); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if h.ctrl.Mode() != Sequencing {
		t.Errorf("Mode() = %v, want sequencing", h.ctrl.Mode())
	}
	h.assertAtMostOneTimer()
}

func TestDestroy(t *testing.T) {
	h := newHarness(t, twoClips)
	ctx := context.Background()

	if err := h.ctrl.PlayReel(ctx); err != nil {
		t.Fatal(err)
	}
	h.advance(time.Second)
	h.ctrl.Destroy(ctx)

	if h.clock.Active() != 0 {
		t.Errorf("Active() = %d after Destroy, want 0", h.clock.Active())
	}
	h.assertCalls("seek:0", "play", "pause", "destroy")
	h.assertIDs("a", NoInterval)
	if h.ctrl.Mode() != Idle {
		t.Errorf("Mode() = %v, want idle", h.ctrl.Mode())
	}
	if len(h.ctrl.Intervals()) != 0 {
		t.Error("Intervals() not cleared by Destroy")
	}

	h.advance(time.Hour)
	h.assertIDs("a", NoInterval)

	if err := h.ctrl.PlayReel(ctx); !errors.Is(err, reelerrors.ErrPlayerNotReady) {
		t.Errorf("PlayReel() after Destroy error = %v, want ErrPlayerNotReady", err)
	}

	// A destroyed controller can start a new session.
	if err := h.ctrl.Bind(ctx, core.Bound(&fakePlayer{})); err != nil {
		t.Errorf("Bind() after Destroy error = %v", err)
	}
}

func TestBind(t *testing.T) {
	ctx := context.Background()

	t.Run("ready error", func(t *testing.T) {
		c := New(Options{Clock: &manualClock{}})
		err := c.Bind(ctx, core.Failed(errors.New("embed blocked")))
		if !errors.Is(err, reelerrors.ErrBindFailed) {
			t.Errorf("Bind() error = %v, want ErrBindFailed", err)
		}
		if c.Mode() != Idle {
			t.Errorf("Mode() = %v, want idle", c.Mode())
		}
	})

	t.Run("waits for ready", func(t *testing.T) {
		c := New(Options{Clock: &manualClock{}})
		ready := make(chan error, 1)
		done := make(chan error, 1)
		go func() {
			done <- c.Bind(ctx, core.Binding{Player: &fakePlayer{}, Ready: ready})
		}()

		select {
		case err := <-done:
			t.Fatalf("Bind() returned %v before ready", err)
		case <-time.After(20 * time.Millisecond):
		}

		ready <- nil
		if err := <-done; err != nil {
			t.Fatalf("Bind() error = %v", err)
		}
		if c.Mode() != Parked {
			t.Errorf("Mode() = %v, want parked", c.Mode())
		}
	})

	t.Run("context cancelled", func(t *testing.T) {
		c := New(Options{Clock: &manualClock{}})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := c.Bind(cctx, core.Binding{Player: &fakePlayer{}, Ready: make(chan error)})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Bind() error = %v, want context.Canceled", err)
		}
	})

	t.Run("already bound", func(t *testing.T) {
		c := New(Options{Clock: &manualClock{}})
		if err := c.Bind(ctx, core.Bound(&fakePlayer{})); err != nil {
			t.Fatal(err)
		}
		if err := c.Bind(ctx, core.Bound(&fakePlayer{})); !errors.Is(err, reelerrors.ErrAlreadyBound) {
			t.Errorf("second Bind() error = %v, want ErrAlreadyBound", err)
		}
	})
}

func TestIsPlayingAndStatus(t *testing.T) {
	h := newHarness(t, twoClips)
	ctx := context.Background()

	if h.ctrl.IsPlaying(ctx) {
		t.Error("IsPlaying() = true before playback")
	}
	if err := h.ctrl.PlayReel(ctx); err != nil {
		t.Fatal(err)
	}
	if !h.ctrl.IsPlaying(ctx) {
		t.Error("IsPlaying() = false during playback")
	}

	st := h.ctrl.Status(ctx)
	if st.Mode != "sequencing" || !st.Playing || !st.Sequencing {
		t.Errorf("Status() = %+v", st)
	}
	if st.Current == nil || st.Current.ID != "a" {
		t.Errorf("Status().Current = %+v, want a", st.Current)
	}
	if st.Progress.Position != 1 || st.Progress.Total != 2 {
		t.Errorf("Status().Progress = %+v", st.Progress)
	}

	h.ctrl.Pause(ctx)
	if h.ctrl.IsPlaying(ctx) {
		t.Error("IsPlaying() = true after Pause")
	}
}

func TestObserverMayCallBack(t *testing.T) {
	h := newHarness(t, twoClips)
	ctx := context.Background()

	var seen []core.Progress
	h.ctrl.OnIntervalChange(func(id string) {
		seen = append(seen, h.ctrl.Progress())
	})

	if err := h.ctrl.PlayReel(ctx); err != nil {
		t.Fatal(err)
	}
	h.advance(time.Hour)

	if len(seen) != 3 {
		t.Fatalf("observer called %d times, want 3", len(seen))
	}
	if seen[1].Position != 2 {
		t.Errorf("progress seen on second notification = %+v", seen[1])
	}
}
