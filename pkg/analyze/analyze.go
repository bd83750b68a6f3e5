// Package analyze parses machine event logs and audits them against the
// Lamport clock rules. It works from the log text alone, so it can check
// any implementation that speaks the log format, not just this one.
//
// What can be verified per machine from its own log: the clock is
// strictly increasing across clock-advancing events, locally-caused
// events (SEND, INTERNAL) advance it by exactly one, and RECEIVE events
// advance it by at least one (the incoming timestamp is not logged, so
// the exact max(c,t)+1 merge is checked in unit tests, not here).
package analyze

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/daviddao/clockmesh/pkg/clock"
	"github.com/daviddao/clockmesh/pkg/model"
)

// Entry is one parsed log line.
type Entry struct {
	Wall        float64 // seconds since epoch
	Kind        model.EventKind
	Clock       int64
	QueueLen    int
	HasQueueLen bool
	Note        string
}

// ParseLine parses one log line of the form
// "<wall>, <kind>, L=<clock>[, queue=<n>][, note=<text>]".
func ParseLine(line string) (Entry, error) {
	fields := strings.Split(line, ", ")
	if len(fields) < 3 {
		return Entry{}, fmt.Errorf("log line %q: want at least 3 fields", line)
	}

	var e Entry
	var err error
	if e.Wall, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return Entry{}, fmt.Errorf("log line %q: bad wall time: %w", line, err)
	}
	e.Kind = model.EventKind(fields[1])

	clkStr, ok := strings.CutPrefix(fields[2], "L=")
	if !ok {
		return Entry{}, fmt.Errorf("log line %q: third field is not L=<clock>", line)
	}
	if e.Clock, err = strconv.ParseInt(clkStr, 10, 64); err != nil {
		return Entry{}, fmt.Errorf("log line %q: bad clock: %w", line, err)
	}

	for i := 3; i < len(fields); i++ {
		switch {
		case strings.HasPrefix(fields[i], "queue="):
			n, err := strconv.Atoi(strings.TrimPrefix(fields[i], "queue="))
			if err != nil {
				return Entry{}, fmt.Errorf("log line %q: bad queue length: %w", line, err)
			}
			e.QueueLen, e.HasQueueLen = n, true
		case strings.HasPrefix(fields[i], "note="):
			// The note runs to the end of the line, commas included.
			e.Note = strings.TrimPrefix(strings.Join(fields[i:], ", "), "note=")
			i = len(fields)
		default:
			return Entry{}, fmt.Errorf("log line %q: unknown field %q", line, fields[i])
		}
	}
	return e, nil
}

// Parse reads a whole log, one entry per non-empty line.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		e, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ParseFile reads and parses the log at path.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Report is the audit result for one machine's log.
type Report struct {
	Source     string
	Events     int
	Counts     map[model.EventKind]int
	FinalClock int64
	TickRate   int // from the INIT note, 0 when absent
	Violations []string
}

// Clean reports whether the audit found no violations.
func (r Report) Clean() bool { return len(r.Violations) == 0 }

// Audit checks entries from one machine's log against the rules the
// machine is supposed to obey. source labels the report (a file name).
func Audit(source string, entries []Entry) Report {
	rep := Report{Source: source, Events: len(entries), Counts: map[model.EventKind]int{}}
	add := func(format string, args ...any) {
		rep.Violations = append(rep.Violations, fmt.Sprintf(format, args...))
	}

	if len(entries) == 0 {
		add("log is empty")
		return rep
	}

	for _, e := range entries {
		rep.Counts[e.Kind]++
		if e.HasQueueLen && e.Kind != model.EventReceive {
			add("%s carries queue= but only RECEIVE may", e.Kind)
		}
	}
	rep.FinalClock = entries[len(entries)-1].Clock

	if first := entries[0]; first.Kind != model.EventInit {
		add("first event is %s, want INIT", first.Kind)
	} else {
		if first.Clock != 0 {
			add("INIT clock is %d, want 0", first.Clock)
		}
		rep.TickRate = tickRateFromNote(first.Note)
	}
	if last := entries[len(entries)-1]; last.Kind != model.EventShutdown {
		add("last event is %s, want SHUTDOWN", last.Kind)
	}

	prev := entries[0].Clock
	for i, e := range entries[1:] {
		switch {
		case e.Kind == model.EventShutdown:
			if e.Clock != prev {
				add("event %d: SHUTDOWN clock %d differs from last value %d", i+1, e.Clock, prev)
			}
		case e.Kind == model.EventReceive:
			if e.Clock < prev+1 {
				add("event %d: RECEIVE clock %d after %d, want >= %d", i+1, e.Clock, prev, prev+1)
			}
			prev = e.Clock
		case e.Kind.AdvancesClock():
			if e.Clock != prev+1 {
				add("event %d: %s clock %d after %d, want exactly %d", i+1, e.Kind, e.Clock, prev, prev+1)
			}
			prev = e.Clock
		default:
			add("event %d: unexpected %s after INIT", i+1, e.Kind)
		}
	}
	return rep
}

// tickRateFromNote extracts N from a note containing "ticks=N".
func tickRateFromNote(note string) int {
	for _, f := range strings.Fields(note) {
		if v, ok := strings.CutPrefix(f, "ticks="); ok {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}

// TimelineEvent is one entry attributed to its machine in a merged,
// totally ordered view of a whole cluster run.
type TimelineEvent struct {
	Machine int
	Entry   Entry
}

// MergeTimeline merges per-machine logs into the Lamport total order:
// by clock value, ties broken by machine ID. Within one machine equal
// clock values (INIT/SHUTDOWN edges) keep their emission order.
func MergeTimeline(perMachine map[int][]Entry) []TimelineEvent {
	var out []TimelineEvent
	for id, entries := range perMachine {
		for _, e := range entries {
			out = append(out, TimelineEvent{Machine: id, Entry: e})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return clock.TotalOrderLess(out[i].Entry.Clock, out[i].Machine, out[j].Entry.Clock, out[j].Machine)
	})
	return out
}
