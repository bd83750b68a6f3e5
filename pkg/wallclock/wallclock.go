// Package wallclock probes the offset between the local wall clock and
// an NTP server. Machines stamp every log line with wall-clock time, and
// the analyzer compares those stamps across machines; the measured
// offset bounds how far such comparisons can be trusted.
package wallclock

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

// DefaultServer is the pool queried when no server is configured.
const DefaultServer = "pool.ntp.org"

const defaultTimeout = 3 * time.Second

// Offset returns the estimated local clock offset against server. The
// query timeout is taken from the context deadline when one is set.
func Offset(ctx context.Context, server string) (time.Duration, error) {
	if server == "" {
		server = DefaultServer
	}
	timeout := defaultTimeout
	if dl, ok := ctx.Deadline(); ok {
		if remain := time.Until(dl); remain < timeout {
			timeout = remain
		}
	}
	if timeout <= 0 {
		return 0, context.DeadlineExceeded
	}

	resp, err := ntp.QueryWithOptions(server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return 0, fmt.Errorf("ntp query %s: %w", server, err)
	}
	if err := resp.Validate(); err != nil {
		return 0, fmt.Errorf("ntp response from %s: %w", server, err)
	}
	return resp.ClockOffset, nil
}
