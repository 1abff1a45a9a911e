package snapshot

import (
	"context"
	"time"
)

// defaultRetryDelay is the first backoff of a remote write. Tests shorten it.
var defaultRetryDelay = 100 * time.Millisecond

// retryPolicy retries remote writes that fail for transient reasons, doubling the
// delay after every failure.
type retryPolicy struct {
	attempts  int
	delay     time.Duration
	transient func(error) bool
}

func newRetryPolicy(transient func(error) bool) retryPolicy {
	return retryPolicy{attempts: 3, delay: defaultRetryDelay, transient: transient}
}

// do calls fn until it succeeds, fails permanently or runs out of attempts, and
// returns the number of calls made with the last error.
func (p retryPolicy) do(ctx context.Context, fn func(context.Context) error) (int, error) {
	delay := p.delay
	for n := 1; ; n++ {
		err := fn(ctx)
		if err == nil || n >= p.attempts || !p.transient(err) {
			return n, err
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return n, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
