package eventlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/daviddao/clockmesh/pkg/model"
)

var testWall = time.UnixMicro(1700000000_1234_00) // 1700000000.1234s

func TestFormatLine_Internal(t *testing.T) {
	line := FormatLine(model.EventRecord{WallTime: testWall, Kind: model.EventInternal, Clock: 7})
	want := "1700000000.1234, INTERNAL, L=7"
	if line != want {
		t.Fatalf("got %q, want %q", line, want)
	}
}

func TestFormatLine_ReceiveCarriesQueueLen(t *testing.T) {
	line := FormatLine(model.EventRecord{
		WallTime: testWall, Kind: model.EventReceive, Clock: 10, QueueLen: 2, HasQueueLen: true,
	})
	want := "1700000000.1234, RECEIVE, L=10, queue=2"
	if line != want {
		t.Fatalf("got %q, want %q", line, want)
	}
}

func TestFormatLine_ReceiveQueueZeroStillPresent(t *testing.T) {
	line := FormatLine(model.EventRecord{
		WallTime: testWall, Kind: model.EventReceive, Clock: 3, QueueLen: 0, HasQueueLen: true,
	})
	if !strings.HasSuffix(line, ", queue=0") {
		t.Fatalf("queue=0 must still be rendered: %q", line)
	}
}

func TestFormatLine_InitNote(t *testing.T) {
	line := FormatLine(model.EventRecord{
		WallTime: testWall, Kind: model.EventInit, Clock: 0, Note: "ticks=3",
	})
	want := "1700000000.1234, INIT, L=0, note=ticks=3"
	if line != want {
		t.Fatalf("got %q, want %q", line, want)
	}
}

func TestWriterAppendsLines(t *testing.T) {
	var sb strings.Builder
	w := NewWriterTo(&sb)
	if err := w.Append(model.EventRecord{WallTime: testWall, Kind: model.EventInternal, Clock: 1}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Append(model.EventRecord{WallTime: testWall, Kind: model.EventSendOne, Clock: 2}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[1], "SEND(1), L=2") {
		t.Fatalf("second line: %q", lines[1])
	}
}

func TestWriterFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machine_1.log")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Append(model.EventRecord{WallTime: testWall, Kind: model.EventShutdown, Clock: 42}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if got := string(data); got != "1700000000.1234, SHUTDOWN, L=42\n" {
		t.Fatalf("file content: %q", got)
	}
}

func TestDefaultPath(t *testing.T) {
	if p := DefaultPath(2); p != "machine_2.log" {
		t.Fatalf("got %q, want machine_2.log", p)
	}
}
