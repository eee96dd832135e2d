// Package retry is the single retry-policy wrapper applied at every external
// call site (catalog page fetch, batch chunk submit). One policy object,
// bounded attempts, fixed delay between them.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Do runs op up to MaxAttempts times, sleeping Delay between attempts. The
// last error is returned once attempts are exhausted. Context cancellation
// cuts the wait short.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return fmt.Errorf("retry aborted after attempt %d: %w", attempt, ctx.Err())
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
