// retry.go defines the outbound connection retry policy.
//
// During cluster start the machines come up in arbitrary order, so the
// first dial to a peer routinely lands before that peer is listening.
// Each peer gets a bounded number of attempts with backoff; a peer that
// never answers is excluded for the rest of the run and is not redialed.
package peer

import (
	"math/rand"
	"time"
)

// RetryConfig controls dial attempts to a single peer.
type RetryConfig struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay after the first failure
	MaxDelay    time.Duration // cap on the backoff delay
}

// DefaultRetry matches the startup window a small local cluster needs:
// five attempts spread over a few seconds.
var DefaultRetry = RetryConfig{
	MaxAttempts: 5,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

// delay computes the wait before the next attempt using exponential
// backoff with jitter: BaseDelay * 2^attempt + random([0, BaseDelay)),
// capped at MaxDelay before the jitter is added. A zero BaseDelay is a
// valid retry-immediately policy: no backoff and no jitter.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := c.BaseDelay << uint(attempt)
	if d > c.MaxDelay || d <= 0 {
		d = c.MaxDelay
	}
	if c.BaseDelay <= 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(int64(c.BaseDelay)))
}
