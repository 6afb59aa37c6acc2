package mpv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tessro/reel/internal/core"
)

const (
	dialInterval = 100 * time.Millisecond
	quitTimeout  = 2 * time.Second
)

// Options configures a launched mpv process.
type Options struct {
	// Path is the mpv executable. Default: "mpv".
	Path string

	// SocketDir holds the IPC socket. Default: os.TempDir().
	SocketDir string

	// Title is shown in mpv's window title.
	Title string

	// Logger receives process and IPC logs.
	Logger zerolog.Logger
}

// Player implements core.Player over an mpv IPC connection.
type Player struct {
	log zerolog.Logger

	mu     sync.Mutex
	ipc    *IPC
	cmd    *exec.Cmd
	socket string

	// exited is closed once the launched process has been reaped.
	exited  chan struct{}
	waitErr error

	ready atomic.Bool
}

// Launch starts mpv paused on source and returns a binding whose ready
// signal fires once mpv has loaded the file. The process is killed if ctx
// is cancelled before then.
func Launch(ctx context.Context, source string, opts Options) core.Binding {
	if opts.Path == "" {
		opts.Path = "mpv"
	}
	if opts.SocketDir == "" {
		opts.SocketDir = os.TempDir()
	}

	p := &Player{
		log:    opts.Logger,
		socket: filepath.Join(opts.SocketDir, "reel-"+uuid.NewString()[:8]+".sock"),
	}

	args := []string{
		"--idle=yes",
		"--pause",
		"--keep-open=yes",
		"--force-window=yes",
		"--input-ipc-server=" + p.socket,
	}
	if opts.Title != "" {
		args = append(args, "--title="+opts.Title)
	}
	args = append(args, source)

	ch := make(chan error, 1)
	p.cmd = exec.Command(opts.Path, args...)
	if err := p.cmd.Start(); err != nil {
		ch <- fmt.Errorf("start mpv: %w", err)
		return core.Binding{Player: p, Ready: ch}
	}
	p.log.Debug().Str("socket", p.socket).Int("pid", p.cmd.Process.Pid).Msg("mpv started")

	p.exited = make(chan struct{})
	go func() {
		p.waitErr = p.cmd.Wait()
		close(p.exited)
	}()

	go func() {
		ipc, err := connect(ctx, p.socket, p.exited)
		if errors.Is(err, errExited) {
			err = p.exitError()
		}
		if err != nil {
			p.kill()
			ch <- err
			return
		}
		if err := p.attach(ctx, ipc); err != nil {
			p.kill()
			ch <- err
			return
		}
		ch <- nil
	}()

	return core.Binding{Player: p, Ready: ch}
}

// Attach wraps an existing IPC connection, such as one to an mpv the user
// started with --input-ipc-server. The ready signal fires once a file is
// loaded.
func Attach(ctx context.Context, ipc *IPC, logger zerolog.Logger) core.Binding {
	p := &Player{log: logger}
	ch := make(chan error, 1)
	go func() {
		ch <- p.attach(ctx, ipc)
	}()
	return core.Binding{Player: p, Ready: ch}
}

var errExited = errors.New("mpv exited")

// connect dials the socket until mpv has created it, giving up if the
// process exits first.
func connect(ctx context.Context, socket string, exited <-chan struct{}) (*IPC, error) {
	ticker := time.NewTicker(dialInterval)
	defer ticker.Stop()

	for {
		ipc, err := Dial(ctx, socket)
		if err == nil {
			return ipc, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for mpv socket: %w", ctx.Err())
		case <-exited:
			return nil, errExited
		case <-ticker.C:
		}
	}
}

// exitError describes how the process ended. Only valid after exited is
// closed.
func (p *Player) exitError() error {
	if p.waitErr != nil {
		return fmt.Errorf("%w before loading the file: %w", errExited, p.waitErr)
	}
	return fmt.Errorf("%w before loading the file", errExited)
}

// attach waits until mpv reports a loaded file, then marks the player ready.
func (p *Player) attach(ctx context.Context, ipc *IPC) error {
	p.mu.Lock()
	p.ipc = ipc
	p.mu.Unlock()

	ipc.OnEvent(func(name string) {
		p.log.Debug().Str("event", name).Msg("mpv event")
	})

	ticker := time.NewTicker(dialInterval)
	defer ticker.Stop()

	for {
		var idle bool
		err := ipc.GetProperty(ctx, "idle-active", &idle)
		switch {
		case err == nil && !idle:
			p.ready.Store(true)
			return nil
		case errors.Is(err, ErrClosed):
			return fmt.Errorf("mpv exited before loading: %w", err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for mpv to load: %w", ctx.Err())
		case <-ipc.Done():
			return fmt.Errorf("mpv exited before loading: %w", ErrClosed)
		case <-ticker.C:
		}
	}
}

// SeekTo seeks to an absolute position. Without allowSeekAhead the seek is
// restricted to keyframes, which is faster on long-GOP streams.
func (p *Player) SeekTo(ctx context.Context, seconds float64, allowSeekAhead bool) error {
	flags := "absolute+exact"
	if !allowSeekAhead {
		flags = "absolute+keyframes"
	}
	_, err := p.conn().Command(ctx, "seek", seconds, flags)
	return err
}

// Play unpauses.
func (p *Player) Play(ctx context.Context) error {
	return p.conn().SetProperty(ctx, "pause", false)
}

// Pause pauses.
func (p *Player) Pause(ctx context.Context) error {
	return p.conn().SetProperty(ctx, "pause", true)
}

// State derives a player state code from mpv's properties.
func (p *Player) State(ctx context.Context) (core.PlayerState, error) {
	ipc := p.conn()

	var idle bool
	if err := ipc.GetProperty(ctx, "idle-active", &idle); err != nil {
		return core.StateUnstarted, err
	}
	if idle {
		return core.StateUnstarted, nil
	}

	var eof bool
	if err := ipc.GetProperty(ctx, "eof-reached", &eof); err != nil && !IsUnavailable(err) {
		return core.StateUnstarted, err
	}
	if eof {
		return core.StateEnded, nil
	}

	var buffering bool
	if err := ipc.GetProperty(ctx, "paused-for-cache", &buffering); err == nil && buffering {
		return core.StateBuffering, nil
	}

	var paused bool
	if err := ipc.GetProperty(ctx, "pause", &paused); err != nil {
		return core.StateUnstarted, err
	}
	if paused {
		return core.StatePaused, nil
	}
	return core.StatePlaying, nil
}

// CurrentTime returns the playhead position in seconds.
func (p *Player) CurrentTime(ctx context.Context) (float64, error) {
	var pos float64
	if err := p.conn().GetProperty(ctx, "time-pos", &pos); err != nil {
		if IsUnavailable(err) {
			return 0, nil
		}
		return 0, err
	}
	return pos, nil
}

// Destroy asks mpv to quit, then kills it if it lingers.
func (p *Player) Destroy(ctx context.Context) error {
	p.ready.Store(false)

	p.mu.Lock()
	ipc, exited := p.ipc, p.exited
	p.mu.Unlock()

	if ipc != nil {
		if _, err := ipc.Command(ctx, "quit"); err != nil && !errors.Is(err, ErrClosed) {
			p.log.Debug().Err(err).Msg("mpv quit failed")
		}
		ipc.Close()
	}
	if exited == nil {
		return nil
	}

	select {
	case <-exited:
	case <-time.After(quitTimeout):
		p.kill()
		<-exited
	}
	os.Remove(p.socket)
	return nil
}

// Ready reports whether mpv has loaded the file.
func (p *Player) Ready() bool {
	return p.ready.Load()
}

func (p *Player) conn() *IPC {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ipc == nil {
		return closedIPC
	}
	return p.ipc
}

func (p *Player) kill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	if p.socket != "" {
		os.Remove(p.socket)
	}
}

// closedIPC answers every command with ErrClosed.
var closedIPC = func() *IPC {
	c := &IPC{err: ErrClosed, done: make(chan struct{})}
	close(c.done)
	return c
}()

// Ensure Player implements core.Player
var _ core.Player = (*Player)(nil)
