package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tessro/reel/internal/config"
	"github.com/tessro/reel/internal/core"
	reelerrors "github.com/tessro/reel/internal/errors"
	"github.com/tessro/reel/internal/highlights"
	"github.com/tessro/reel/internal/playback"
	"github.com/tessro/reel/internal/sim"
	"github.com/tessro/reel/internal/tail"
)

const reelYAML = `video: https://example.com/match.mp4
title: Cup final
highlights:
  - id: goal2
    name: Second goal
    start: 3100
    end: 3130
  - id: goal1
    name: Opening goal
    start: 600
    end: 625
    reason: header from a corner
  - id: blip
    start: 900
    end: 900.2
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// isolate points config lookups at an empty home and resets global flags.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Cleanup(func() {
		cfgFile, jsonOut, verbose = "", false, false
	})
}

func TestLoadReel(t *testing.T) {
	c := config.Default()
	path := writeFile(t, "reel.yaml", reelYAML)

	reel, err := loadReel(context.Background(), c, path, reelFlags{})
	if err != nil {
		t.Fatalf("loadReel() error = %v", err)
	}
	if len(reel.Intervals) != 2 {
		t.Fatalf("Intervals = %+v, want 2", reel.Intervals)
	}
	if reel.Intervals[0].ID != "goal1" || reel.Intervals[1].ID != "goal2" {
		t.Errorf("order = %s, %s", reel.Intervals[0].ID, reel.Intervals[1].ID)
	}
	if reel.Report.Dropped != 1 {
		t.Errorf("Report = %+v, want 1 dropped", reel.Report)
	}

	reel, err = loadReel(context.Background(), c, path, reelFlags{maxClip: 1})
	if err != nil || len(reel.Intervals) != 1 || reel.Report.Capped != 1 {
		t.Errorf("loadReel(max 1) = %+v, %v", reel, err)
	}

	empty := writeFile(t, "empty.json", `{"video": "x.mp4", "highlights": []}`)
	if _, err := loadReel(context.Background(), c, empty, reelFlags{}); !errors.Is(err, reelerrors.ErrNoIntervals) {
		t.Errorf("loadReel(empty) error = %v, want ErrNoIntervals", err)
	}
}

func TestOpenSessionSim(t *testing.T) {
	c := config.Default()
	c.Player.Backend = "sim"
	path := writeFile(t, "reel.yaml", reelYAML)

	sess, err := openSession(context.Background(), c, path, reelFlags{})
	if err != nil {
		t.Fatalf("openSession() error = %v", err)
	}
	if sess.device.Backend != core.BackendSim || sess.device.ID == "" {
		t.Errorf("device = %+v", sess.device)
	}
	if sess.video != "https://example.com/match.mp4" {
		t.Errorf("video = %q", sess.video)
	}
	if got := sess.ctrl.Mode(); got != playback.Parked {
		t.Errorf("Mode() = %v, want parked", got)
	}
	if got := len(sess.ctrl.Intervals()); got != 2 {
		t.Errorf("len(Intervals()) = %d, want 2", got)
	}

	sess.Close()
	if got := sess.ctrl.Mode(); got != playback.Idle {
		t.Errorf("Mode() after Close = %v, want idle", got)
	}
}

func TestOpenSessionErrors(t *testing.T) {
	c := config.Default()
	noVideo := writeFile(t, "novideo.json", `{"highlights": [{"id": "a", "start": 0, "end": 5}]}`)

	_, err := openSession(context.Background(), c, noVideo, reelFlags{player: "sim"})
	if err == nil || reelerrors.GetSuggestion(err) == "" {
		t.Errorf("openSession(no video) error = %v, want suggestion", err)
	}

	_, err = openSession(context.Background(), c, noVideo, reelFlags{player: "vlc", video: "x.mp4"})
	if !errors.Is(err, reelerrors.ErrInvalidConfig) {
		t.Errorf("openSession(vlc) error = %v, want ErrInvalidConfig", err)
	}

	c.Player.MPVPath = filepath.Join(t.TempDir(), "no-such-mpv")
	_, err = openSession(context.Background(), c, noVideo, reelFlags{player: "mpv", video: "x.mp4"})
	if !errors.Is(err, reelerrors.ErrBindFailed) {
		t.Errorf("openSession(missing mpv) error = %v, want ErrBindFailed", err)
	}
}

func TestSetConfigValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reel", "config.toml")

	if err := setConfigValue(path, "player.backend", "upnp"); err != nil {
		t.Fatalf("set backend: %v", err)
	}
	if err := setConfigValue(path, "playback.settle_delay", "300"); err != nil {
		t.Fatalf("set settle_delay: %v", err)
	}
	if err := setConfigValue(path, "tail.no_emoji", "true"); err != nil {
		t.Fatalf("set no_emoji: %v", err)
	}

	var got config.Config
	if _, err := toml.DecodeFile(path, &got); err != nil {
		t.Fatal(err)
	}
	if got.Player.Backend != "upnp" || got.Playback.SettleDelay != 300 || !got.Tail.NoEmoji {
		t.Errorf("config = %+v", got)
	}

	tests := []struct {
		key, value string
	}{
		{"playback.settle_delay", "soon"},
		{"tail.no_emoji", "maybe"},
		{"player.backend", "vlc"},
		{"player.colour", "red"},
		{"backend", "mpv"},
	}
	for _, tt := range tests {
		if err := setConfigValue(path, tt.key, tt.value); err == nil {
			t.Errorf("setConfigValue(%s, %s) succeeded", tt.key, tt.value)
		}
	}

	// Rejected values leave the file alone
	if _, err := toml.DecodeFile(path, &got); err != nil || got.Player.Backend != "upnp" {
		t.Errorf("config changed after rejected set: %+v, %v", got, err)
	}
}

func TestPrintReel(t *testing.T) {
	var buf bytes.Buffer
	printReel(&buf, &loadedReel{
		Doc: &highlights.Document{Title: "Cup final", Video: "match.mp4"},
		Intervals: []core.HighlightInterval{
			{ID: "a", Name: "Kickoff", Start: 0, End: 30},
			{ID: "b", Name: "Penalty", Start: 3725, End: 3765, Reason: "drama"},
		},
	})

	out := buf.String()
	for _, want := range []string{"Cup final", "Kickoff", "1:02:05", "drama", "2 clips, 1:10 total"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Normalized") {
		t.Error("unchanged reel reported as normalized")
	}
}

// startReel plays clips on a simulated player and returns a watcher
// registered for the controller's interval changes. The poll interval is
// far longer than any clip.
func startReel(t *testing.T, clips []core.HighlightInterval) *tail.Watcher {
	t.Helper()
	ctx := context.Background()

	ctrl := playback.New(playback.Options{
		FirstSettleDelay: 10 * time.Millisecond,
		SettleDelay:      5 * time.Millisecond,
	})
	if err := ctrl.Bind(ctx, sim.New(ctx, sim.Options{})); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if err := ctrl.SetIntervals(clips); err != nil {
		t.Fatalf("SetIntervals() error = %v", err)
	}

	w := tail.NewWatcher(ctrl, time.Second)
	ctrl.OnIntervalChange(w.Notify)
	t.Cleanup(func() {
		ctrl.OnIntervalChange(nil)
		ctrl.Destroy(ctx)
	})

	if err := ctrl.PlayReel(ctx); err != nil {
		t.Fatalf("PlayReel() error = %v", err)
	}
	return w
}

func TestFollowReel(t *testing.T) {
	var clips []core.HighlightInterval
	for i, name := range []string{"A", "B", "C", "D"} {
		start := float64(i * 10)
		clips = append(clips, core.HighlightInterval{
			ID:    strings.ToLower(name),
			Name:  name,
			Start: start,
			End:   start + 0.05,
		})
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		w := startReel(t, clips)
		f := tail.NewFormatter(tail.WithEmoji(false))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := followReel(ctx, &buf, w, f, false); err != nil {
			t.Fatalf("followReel() error = %v", err)
		}
		want := "Now showing [1/4]: A (0:00-0:00)\n" +
			"Finished: A\n" +
			"Now showing [2/4]: B (0:10-0:10)\n" +
			"Finished: B\n" +
			"Now showing [3/4]: C (0:20-0:20)\n" +
			"Finished: C\n" +
			"Now showing [4/4]: D (0:30-0:30)\n" +
			"Finished: D\n" +
			"Reel finished\n"
		if buf.String() != want {
			t.Errorf("output = %q, want %q", buf.String(), want)
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		w := startReel(t, clips[:2])
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := followReel(ctx, &buf, w, tail.NewFormatter(), true); err != nil {
			t.Fatalf("followReel() error = %v", err)
		}

		var types []string
		dec := json.NewDecoder(&buf)
		for dec.More() {
			var e eventOutput
			if err := dec.Decode(&e); err != nil {
				t.Fatal(err)
			}
			types = append(types, e.Type)
			if e.Type == "interval_complete" && e.Interval == nil {
				t.Errorf("complete event without interval: %+v", e)
			}
		}
		want := "interval_change,interval_complete,interval_change,interval_complete,finished"
		if strings.Join(types, ",") != want {
			t.Errorf("types = %v, want %s", types, want)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		w := tail.NewWatcher(playback.New(playback.Options{}), time.Millisecond)
		if err := followReel(ctx, &bytes.Buffer{}, w, tail.NewFormatter(), false); err != nil {
			t.Errorf("followReel() error = %v, want nil on cancel", err)
		}
	})
}

func TestFormatDuration(t *testing.T) {
	tests := map[float64]string{
		-1:     "0:00",
		59.9:   "0:59",
		600:    "10:00",
		3725.5: "1:02:05",
	}
	for in, want := range tests {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestCommands(t *testing.T) {
	isolate(t)
	path := writeFile(t, "reel.yaml", reelYAML)

	run := func(args ...string) (string, error) {
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetArgs(args)
		err := rootCmd.Execute()
		return buf.String(), err
	}

	out, err := run("version")
	if err != nil || !strings.HasPrefix(out, "reel ") {
		t.Errorf("version = %q, %v", out, err)
	}

	out, err = run("highlights", path)
	if err != nil || !strings.Contains(out, "Opening goal") || !strings.Contains(out, "1 dropped") {
		t.Errorf("highlights = %q, %v", out, err)
	}

	out, err = run("highlights", "--json", path)
	if err != nil {
		t.Fatalf("highlights --json: %v", err)
	}
	var listed struct {
		Highlights []core.HighlightInterval `json:"highlights"`
		Dropped    int                      `json:"dropped"`
	}
	if err := json.Unmarshal([]byte(out), &listed); err != nil || len(listed.Highlights) != 2 || listed.Dropped != 1 {
		t.Errorf("highlights --json = %q, %v", out, err)
	}
	jsonOut = false

	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if _, err := run("config", "--config", cfgPath, "set", "player.backend", "sim"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	out, err = run("config", "--config", cfgPath, "show")
	if err != nil || !strings.Contains(out, `backend = "sim"`) {
		t.Errorf("config show = %q, %v", out, err)
	}
	out, err = run("config", "--config", cfgPath, "path")
	if err != nil || strings.TrimSpace(out) != cfgPath {
		t.Errorf("config path = %q, %v", out, err)
	}
}
