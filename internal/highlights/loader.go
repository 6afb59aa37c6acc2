package highlights

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	reelerrors "github.com/tessro/reel/internal/errors"
)

// maxDocumentSize bounds how much of a remote document is read.
const maxDocumentSize = 4 << 20

// Loader reads highlight documents from files and HTTP endpoints.
type Loader struct {
	HTTP    *http.Client
	Retries int           // extra attempts for transient HTTP failures
	Backoff time.Duration // initial wait, doubled per retry
	Log     zerolog.Logger
}

// NewLoader creates a loader with the given HTTP timeout.
func NewLoader(timeout time.Duration, logger zerolog.Logger) *Loader {
	return &Loader{
		HTTP:    &http.Client{Timeout: timeout},
		Retries: 3,
		Backoff: 500 * time.Millisecond,
		Log:     logger,
	}
}

// Load reads the document at src, a file path or an http(s) URL. "-"
// reads standard input.
func (l *Loader) Load(ctx context.Context, src string) (*Document, error) {
	var (
		data        []byte
		contentType string
		err         error
	)

	switch {
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		data, contentType, err = l.fetch(ctx, src)
	case src == "-":
		data, err = io.ReadAll(os.Stdin)
	default:
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", reelerrors.ErrSourceUnavailable, src, err)
	}

	name := src
	if u, perr := url.Parse(src); perr == nil && u.Scheme != "" {
		name = u.Path
	}
	doc, err := Parse(data, DetectFormat(name, contentType, data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	l.Log.Debug().Str("source", src).Int("highlights", len(doc.Highlights)).Msg("highlights loaded")
	return doc, nil
}

// fetch GETs src, retrying 429 and 5xx responses with exponential backoff.
func (l *Loader) fetch(ctx context.Context, src string) ([]byte, string, error) {
	backoff := l.Backoff
	var lastErr error

	for attempt := 0; attempt <= l.Retries; attempt++ {
		if attempt > 0 {
			wait := backoff
			if ra, ok := lastErr.(*retryAfterError); ok && ra.after > 0 {
				wait = ra.after
			}
			l.Log.Debug().Err(lastErr).Int("attempt", attempt).Dur("wait", wait).Msg("retrying highlight fetch")

			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(wait):
			}
			backoff *= 2
		}

		data, ct, err := l.get(ctx, src)
		if err == nil {
			return data, ct, nil
		}
		lastErr = err
		if _, transient := err.(*retryAfterError); !transient {
			return nil, "", err
		}
	}
	return nil, "", lastErr
}

type retryAfterError struct {
	status int
	after  time.Duration
}

func (e *retryAfterError) Error() string {
	return fmt.Sprintf("server returned %d", e.status)
}

func (l *Loader) get(ctx context.Context, src string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, application/toml;q=0.8")

	resp, err := l.HTTP.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		e := &retryAfterError{status: resp.StatusCode}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			e.after = time.Duration(secs) * time.Second
		}
		return nil, "", e
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("server returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
