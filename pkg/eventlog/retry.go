// retry.go handles transient SQLite contention on archive writes.
//
// When a whole cluster runs in one process every machine archives into
// the same database file; WAL mode plus busy_timeout covers most of the
// contention, but modernc.org/sqlite can still surface SQLITE_BUSY and
// SQLITE_LOCKED to the application, which a short retry resolves.
package eventlog

import (
	"math/rand"
	"strings"
	"time"
)

const (
	busyMaxRetries = 3
	busyBaseDelay  = 50 * time.Millisecond
	busyMaxDelay   = 500 * time.Millisecond
)

// isBusyErr reports whether err is a transient SQLite contention error
// worth retrying. Detection is textual; the driver embeds the SQLite
// result code in the message.
func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"database is locked",
		"database table is locked",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// withBusyRetry runs fn, retrying with exponential backoff and jitter
// while it keeps returning transient contention errors.
func withBusyRetry(fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isBusyErr(err) || attempt >= busyMaxRetries {
			return err
		}
		delay := busyBaseDelay << uint(attempt)
		if delay > busyMaxDelay {
			delay = busyMaxDelay
		}
		time.Sleep(delay + time.Duration(rand.Int63n(int64(busyBaseDelay))))
	}
}
