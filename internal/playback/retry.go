package playback

import (
	"context"
	"errors"
	"fmt"
	"time"

	reelerrors "github.com/tessro/reel/internal/errors"
)

// RetryPolicy bounds how long PlayWithRetry waits for a player to become
// ready.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy is five attempts one second apart.
var DefaultRetryPolicy = RetryPolicy{Attempts: 5, Backoff: time.Second}

// PlayWithRetry calls PlayReel until it succeeds, fails with anything other
// than ErrPlayerNotReady, or runs out of attempts.
func PlayWithRetry(ctx context.Context, c *Controller, policy RetryPolicy) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		err = c.PlayReel(ctx)
		if err == nil || !errors.Is(err, reelerrors.ErrPlayerNotReady) {
			return err
		}
		if i == attempts {
			break
		}

		c.log.Debug().Int("attempt", i).Dur("backoff", policy.Backoff).Msg("player not ready, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Backoff):
		}
	}

	return reelerrors.WithSuggestion(
		fmt.Errorf("play reel after %d attempts: %w", attempts, err),
		"The player never became ready. Check that it started and loaded the video",
	)
}
