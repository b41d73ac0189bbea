// Package retry provides a bounded, fixed-delay retry loop for short-lived
// network calls. The loop is explicit (attempt counter plus sleep) so the
// retry budget is visible at the call site and there is no call-stack growth.
package retry

import (
	"context"
	"time"
)

// Config controls the retry behaviour.
type Config struct {
	// Extra is the number of additional attempts after the first one fails.
	// Zero or negative means a single attempt.
	Extra int
	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

// Do calls fn up to cfg.Extra+1 times, sleeping cfg.Delay between attempts.
// It stops early when fn returns nil or ctx is cancelled; the error from the
// last attempt (or the context error) is returned.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	attempts := cfg.Extra + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && cfg.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.Delay):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}
