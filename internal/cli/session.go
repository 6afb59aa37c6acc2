package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tessro/reel/internal/config"
	"github.com/tessro/reel/internal/core"
	reelerrors "github.com/tessro/reel/internal/errors"
	"github.com/tessro/reel/internal/highlights"
	"github.com/tessro/reel/internal/logging"
	"github.com/tessro/reel/internal/mpv"
	"github.com/tessro/reel/internal/playback"
	"github.com/tessro/reel/internal/sim"
	"github.com/tessro/reel/internal/upnp"
	"github.com/tessro/reel/internal/wizard"
)

// bindTimeout bounds how long a backend may take to load the video.
const bindTimeout = 30 * time.Second

// reelFlags are the flags shared by commands that open a reel.
type reelFlags struct {
	player  string
	device  string
	video   string
	merge   bool
	maxClip int
}

// loadedReel is a highlight document after normalization.
type loadedReel struct {
	Doc       *highlights.Document
	Intervals []core.HighlightInterval
	Report    highlights.Report
}

// loadReel reads src and turns it into a playable reel.
func loadReel(ctx context.Context, c *config.Config, src string, flags reelFlags) (*loadedReel, error) {
	loader := highlights.NewLoader(ms(c.Highlights.HTTPTimeout), logging.WithComponent("highlights"))
	doc, err := loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	maxClips := c.Highlights.MaxClips
	if flags.maxClip > 0 {
		maxClips = flags.maxClip
	}
	intervals, report := highlights.Normalize(doc.Highlights, highlights.NormalizeOptions{
		MaxClips:    maxClips,
		MinDuration: ms(c.Highlights.MinDuration),
		Merge:       flags.merge,
	})
	if len(intervals) == 0 {
		return nil, fmt.Errorf("%s: %w", src, reelerrors.ErrNoIntervals)
	}

	return &loadedReel{Doc: doc, Intervals: intervals, Report: report}, nil
}

// session is a controller bound to a player with a reel loaded.
type session struct {
	reel   *loadedReel
	video  string
	device core.Device
	ctrl   *playback.Controller
}

// openSession loads the reel, starts the configured backend and binds it.
func openSession(ctx context.Context, c *config.Config, src string, flags reelFlags) (*session, error) {
	reel, err := loadReel(ctx, c, src, flags)
	if err != nil {
		return nil, err
	}

	video := flags.video
	if video == "" {
		video = reel.Doc.Video
	}
	if video == "" {
		return nil, reelerrors.WithSuggestion(
			errors.New("no video to play"),
			"Set 'video' in the highlight file or pass --video",
		)
	}

	logger := logging.WithComponent("playback")
	ctrl := playback.New(playback.Options{
		FirstSettleDelay: c.Playback.FirstSettle(),
		SettleDelay:      c.Playback.Settle(),
		CommandTimeout:   c.Playback.Timeout(),
		Logger:           &logger,
	})
	if err := ctrl.SetIntervals(reel.Intervals); err != nil {
		return nil, err
	}

	backend := c.Player.Backend
	if flags.player != "" {
		backend = flags.player
	}
	deviceName := c.Player.Device
	if flags.device != "" {
		deviceName = flags.device
	}

	bindCtx, cancel := context.WithTimeout(ctx, bindTimeout)
	defer cancel()

	binding, device, err := startBackend(bindCtx, c, backend, deviceName, video, reel)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Bind(bindCtx, binding); err != nil {
		if binding.Player != nil {
			_ = binding.Player.Destroy(context.Background())
		}
		return nil, err
	}

	return &session{reel: reel, video: video, device: device, ctrl: ctrl}, nil
}

// startBackend launches or attaches the named player backend.
func startBackend(ctx context.Context, c *config.Config, backend, deviceName, video string, reel *loadedReel) (core.Binding, core.Device, error) {
	title := reel.Doc.Title

	switch backend {
	case "", string(core.BackendMPV):
		binding := mpv.Launch(ctx, video, mpv.Options{
			Path:      c.Player.MPVPath,
			SocketDir: c.Player.SocketDir,
			Title:     title,
			Logger:    logging.WithComponent("mpv"),
		})
		return binding, core.Device{
			ID:      "mpv",
			Name:    "mpv",
			Type:    core.DeviceTypeComputer,
			Backend: core.BackendMPV,
			Address: c.Player.MPVPath,
		}, nil

	case string(core.BackendUPnP):
		client := newUPnPClient(c, c.UPnP.DiscoveryTimeout)
		device, err := findRenderer(ctx, client, deviceName)
		if err != nil {
			return core.Binding{}, core.Device{}, err
		}
		renderer := upnp.NewRenderer(client, device, logging.WithComponent("upnp"))
		return renderer.Attach(ctx, video, title), device.Core(), nil

	case string(core.BackendSim):
		var end float64
		for _, iv := range reel.Intervals {
			if iv.End > end {
				end = iv.End
			}
		}
		binding := sim.New(ctx, sim.Options{
			Duration: core.SecondsToDuration(end),
			Logger:   logging.WithComponent("sim"),
		})
		id := ""
		if p, ok := binding.Player.(*sim.Player); ok {
			id = p.ID()
		}
		return binding, core.Device{
			ID:      id,
			Name:    "Simulator",
			Type:    core.DeviceTypeOther,
			Backend: core.BackendSim,
		}, nil

	default:
		return core.Binding{}, core.Device{}, reelerrors.WithSuggestion(
			fmt.Errorf("%w: unknown player backend %q", reelerrors.ErrInvalidConfig, backend),
			"Use --player mpv, upnp or sim",
		)
	}
}

// findRenderer discovers renderers and picks the named one. Without a
// name it takes the only renderer, or asks when there are several.
// newUPnPClient returns a discovery client with the configured aliases
// registered.
func newUPnPClient(c *config.Config, timeoutSeconds int) *upnp.Client {
	client := upnp.NewClient(time.Duration(timeoutSeconds) * time.Second)
	for alias, target := range c.UPnP.Aliases {
		client.SetAlias(alias, target)
	}
	return client
}

func findRenderer(ctx context.Context, client *upnp.Client, name string) (*upnp.Device, error) {
	devices, err := client.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover renderers: %w", err)
	}

	if name != "" {
		if d := client.GetDevice(name); d != nil {
			return d, nil
		}
		return nil, fmt.Errorf("%w: %s", reelerrors.ErrDeviceNotFound, name)
	}

	switch len(devices) {
	case 0:
		return nil, fmt.Errorf("%w: no renderers on the network", reelerrors.ErrDeviceNotFound)
	case 1:
		return devices[0], nil
	}

	if !wizard.IsTerminal() {
		return nil, reelerrors.WithSuggestion(
			fmt.Errorf("%d renderers found", len(devices)),
			"Pick one with --device or 'reel config set-device'",
		)
	}

	choices := make([]core.Device, len(devices))
	for i, d := range devices {
		choices[i] = d.Core()
	}
	picked, err := wizard.RunDevicePicker(choices, "")
	if err != nil {
		return nil, fmt.Errorf("renderer picker: %w", err)
	}
	if picked == nil {
		return nil, errors.New("no renderer selected")
	}
	for _, d := range devices {
		if d.UUID == picked.ID {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", reelerrors.ErrDeviceNotFound, picked.Name)
}

// retryPolicy returns the readiness retry policy from config.
func retryPolicy(c *config.Config) playback.RetryPolicy {
	return playback.RetryPolicy{
		Attempts: c.Playback.ReadyRetries,
		Backoff:  c.Playback.Backoff(),
	}
}

// Close stops playback and releases the player.
func (s *session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.ctrl.Destroy(ctx)
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
