package upnp

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tessro/reel/internal/core"
)

// loadPollInterval is how often Attach polls the transport while the
// renderer loads the video.
const loadPollInterval = 250 * time.Millisecond

// Renderer implements core.Player for a UPnP media renderer.
type Renderer struct {
	client *Client
	device *Device
	log    zerolog.Logger
	ready  atomic.Bool
}

// NewRenderer creates a player for the given device.
func NewRenderer(client *Client, device *Device, logger zerolog.Logger) *Renderer {
	return &Renderer{
		client: client,
		device: device,
		log:    logger.With().Str("renderer", device.Name).Logger(),
	}
}

// Attach loads uri on the renderer and returns a binding whose ready signal
// fires once the transport reports loaded media. The renderer keeps
// polling until ctx is done.
func (r *Renderer) Attach(ctx context.Context, uri, title string) core.Binding {
	ch := make(chan error, 1)

	go func() {
		ch <- r.load(ctx, uri, title)
	}()

	return core.Binding{Player: r, Ready: ch}
}

func (r *Renderer) load(ctx context.Context, uri, title string) error {
	metadata, err := videoMetadata(uri, title, 0)
	if err != nil {
		return err
	}
	if err := r.client.SetAVTransportURI(ctx, r.device, uri, metadata); err != nil {
		return fmt.Errorf("set transport URI: %w", err)
	}

	ticker := time.NewTicker(loadPollInterval)
	defer ticker.Stop()

	for {
		info, err := r.client.GetTransportInfo(ctx, r.device)
		if err == nil && info.CurrentTransportState != StateNoMediaPresent {
			r.ready.Store(true)
			r.logLoaded(ctx)
			return nil
		}
		if err != nil {
			r.log.Debug().Err(err).Msg("transport not answering yet")
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for renderer: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (r *Renderer) logLoaded(ctx context.Context) {
	pos, err := r.client.GetPositionInfo(ctx, r.device)
	if err != nil {
		return
	}
	r.log.Debug().
		Str("title", parseTitle(pos.TrackMetaData)).
		Dur("duration", parseDuration(pos.TrackDuration)).
		Msg("media loaded")
}

// SeekTo seeks to an absolute position. Renderers only take whole seconds,
// so the target is rounded.
func (r *Renderer) SeekTo(ctx context.Context, seconds float64, allowSeekAhead bool) error {
	target := formatDuration(time.Duration(math.Round(seconds)) * time.Second)
	return r.client.Seek(ctx, r.device, target)
}

// Play starts playback.
func (r *Renderer) Play(ctx context.Context) error {
	return r.client.Play(ctx, r.device)
}

// Pause pauses playback.
func (r *Renderer) Pause(ctx context.Context) error {
	return r.client.Pause(ctx, r.device)
}

// State maps the AVTransport state onto a player state code.
func (r *Renderer) State(ctx context.Context) (core.PlayerState, error) {
	info, err := r.client.GetTransportInfo(ctx, r.device)
	if err != nil {
		return core.StateUnstarted, fmt.Errorf("get transport info: %w", err)
	}
	return transportState(info.CurrentTransportState), nil
}

// CurrentTime returns the playhead position in seconds.
func (r *Renderer) CurrentTime(ctx context.Context) (float64, error) {
	pos, err := r.client.GetPositionInfo(ctx, r.device)
	if err != nil {
		return 0, fmt.Errorf("get position info: %w", err)
	}
	return parseDuration(pos.RelTime).Seconds(), nil
}

// Destroy stops the transport. The renderer itself stays on.
func (r *Renderer) Destroy(ctx context.Context) error {
	r.ready.Store(false)
	return r.client.Stop(ctx, r.device)
}

// Ready reports whether the renderer has loaded media.
func (r *Renderer) Ready() bool {
	return r.ready.Load()
}

func transportState(s string) core.PlayerState {
	switch s {
	case StatePlaying:
		return core.StatePlaying
	case StatePaused:
		return core.StatePaused
	case StateTransitioning:
		return core.StateBuffering
	case StateStopped:
		return core.StateCued
	case StateNoMediaPresent:
		return core.StateUnstarted
	default:
		return core.StateUnstarted
	}
}

// Ensure Renderer implements core.Player
var _ core.Player = (*Renderer)(nil)
