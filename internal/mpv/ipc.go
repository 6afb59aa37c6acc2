// Package mpv drives an mpv process over its JSON IPC socket.
package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
)

// ErrClosed is returned for commands issued after the connection closed.
var ErrClosed = errors.New("mpv: connection closed")

// request is one line sent to mpv.
type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// response is one line received from mpv. Lines with Event set are
// asynchronous events rather than replies.
type response struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Event     string          `json:"event"`
}

// IPC is a connection to mpv's input-ipc-server socket. Commands may be
// issued concurrently; replies are matched by request id.
type IPC struct {
	conn net.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	waiting map[int64]chan response
	events  func(name string)
	err     error
	done    chan struct{}
}

// Dial connects to the socket at path.
func Dial(ctx context.Context, path string) (*IPC, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("dial mpv socket: %w", err)
	}
	return newIPC(conn), nil
}

func newIPC(conn net.Conn) *IPC {
	c := &IPC{
		conn:    conn,
		waiting: make(map[int64]chan response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// OnEvent registers a handler for asynchronous events such as
// "file-loaded" or "end-file".
func (c *IPC) OnEvent(fn func(name string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = fn
}

// Command sends a command and waits for its reply.
func (c *IPC) Command(ctx context.Context, args ...any) (json.RawMessage, error) {
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.nextID++
	id := c.nextID
	ch := make(chan response, 1)
	c.waiting[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.waiting, id)
		c.mu.Unlock()
	}()

	line, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}
	line = append(line, '\n')

	c.writeMu.Lock()
	dl, _ := ctx.Deadline()
	c.conn.SetWriteDeadline(dl)
	_, err = c.conn.Write(line)
	c.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "success" {
			return nil, &CommandError{Command: fmt.Sprint(args[0]), Reason: resp.Error}
		}
		return resp.Data, nil
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetProperty reads a property into v.
func (c *IPC) GetProperty(ctx context.Context, name string, v any) error {
	data, err := c.Command(ctx, "get_property", name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// SetProperty writes a property.
func (c *IPC) SetProperty(ctx context.Context, name string, v any) error {
	_, err := c.Command(ctx, "set_property", name, v)
	return err
}

// Close closes the connection. Pending commands fail with ErrClosed.
func (c *IPC) Close() error {
	return c.conn.Close()
}

// Done is closed when the connection is lost.
func (c *IPC) Done() <-chan struct{} {
	return c.done
}

func (c *IPC) readLoop() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var resp response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			continue
		}

		c.mu.Lock()
		if resp.Event != "" {
			fn := c.events
			c.mu.Unlock()
			if fn != nil {
				fn(resp.Event)
			}
			continue
		}
		ch, ok := c.waiting[resp.RequestID]
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}

	c.mu.Lock()
	c.err = ErrClosed
	c.mu.Unlock()
	close(c.done)
}

// CommandError is an error reply from mpv.
type CommandError struct {
	Command string
	Reason  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("mpv %s: %s", e.Command, e.Reason)
}

// IsUnavailable reports whether err is mpv saying a property has no value
// yet, as time-pos does before a file is loaded.
func IsUnavailable(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr) && cmdErr.Reason == "property unavailable"
}
