// Package eventlog records a machine's events twice over: a fixed-format
// append-only text log, which is the external interface other tooling
// parses, and an optional SQLite archive used for post-run analysis.
//
// The text format, one line per event:
//
//	<wallClockTime>, <eventType>, L=<logicalClock>[, queue=<n>][, note=<text>]
//
// wallClockTime is float seconds since the Unix epoch with four decimal
// places. queue= appears only on RECEIVE lines (inbound queue length
// after the pop); note= appears on INIT (chosen tick rate) and on
// anomalies. Two machines' logs are merged by the analyzer, so the
// format is compatibility-sensitive and must not drift.
package eventlog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/daviddao/clockmesh/pkg/model"
)

// DefaultPath returns the conventional log file name for a machine.
func DefaultPath(machineID int) string {
	return fmt.Sprintf("machine_%d.log", machineID)
}

// Writer appends event records to a text log. It is written only from
// the machine's event loop goroutine and needs no locking.
type Writer struct {
	w io.Writer
	c io.Closer // nil when writing to a caller-owned sink
}

// NewWriter creates (truncating) the log file at path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open log %q: %w", path, err)
	}
	return &Writer{w: f, c: f}, nil
}

// NewWriterTo returns a Writer appending to w. The caller keeps
// ownership of w; Close is a no-op. Used by tests.
func NewWriterTo(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Append writes one record as a single line.
func (w *Writer) Append(rec model.EventRecord) error {
	if _, err := io.WriteString(w.w, FormatLine(rec)+"\n"); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Close closes the underlying file. Idempotent.
func (w *Writer) Close() error {
	if w.c == nil {
		return nil
	}
	c := w.c
	w.c = nil
	return c.Close()
}

// FormatLine renders one record in the log line format, without the
// trailing newline.
func FormatLine(rec model.EventRecord) string {
	var b strings.Builder
	secs := float64(rec.WallTime.UnixMicro()) / 1e6
	fmt.Fprintf(&b, "%.4f, %s, L=%d", secs, rec.Kind, rec.Clock)
	if rec.HasQueueLen {
		fmt.Fprintf(&b, ", queue=%d", rec.QueueLen)
	}
	if rec.Note != "" {
		fmt.Fprintf(&b, ", note=%s", rec.Note)
	}
	return b.String()
}
