package server

import (
	"context"
	"time"
)

var (
	maxRetries = 3
	baseDelay  = 100 * time.Millisecond
)

// retryOperation retries a database operation up to maxRetries times with
// exponential backoff, giving up early when ctx is done.
func retryOperation(ctx context.Context, operation func() error) error {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if lastErr = operation(); lastErr == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}

		timer := time.NewTimer(baseDelay * time.Duration(1<<i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}
