package eventlog

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/daviddao/clockmesh/pkg/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.db")
	s, err := OpenStore(path, 1)
	if err != nil {
		t.Fatalf("OpenStore(%q): %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenStoreAssignsRunID(t *testing.T) {
	s := newTestStore(t)
	if s.RunID() == "" {
		t.Fatal("run ID should not be empty")
	}
}

func TestAppendAndEvents(t *testing.T) {
	s := newTestStore(t)
	wall := time.UnixMicro(1700000000_500000)

	recs := []model.EventRecord{
		{WallTime: wall, Kind: model.EventInit, Clock: 0, Note: "ticks=4"},
		{WallTime: wall, Kind: model.EventReceive, Clock: 10, QueueLen: 1, HasQueueLen: true},
		{WallTime: wall, Kind: model.EventInternal, Clock: 11},
	}
	for _, r := range recs {
		if err := s.Append(r); err != nil {
			t.Fatalf("Append(%s): %v", r.Kind, err)
		}
	}

	got, err := s.Events()
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[0].Kind != model.EventInit || got[0].Note != "ticks=4" {
		t.Fatalf("first event: %+v", got[0])
	}
	if !got[1].HasQueueLen || got[1].QueueLen != 1 {
		t.Fatalf("RECEIVE should carry queue length: %+v", got[1])
	}
	if got[2].HasQueueLen {
		t.Fatalf("INTERNAL should not carry queue length: %+v", got[2])
	}
	if got[2].Clock != 11 {
		t.Fatalf("third event clock: got %d, want 11", got[2].Clock)
	}
}

func TestCountEvents(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		if err := s.Append(model.EventRecord{WallTime: time.Now(), Kind: model.EventInternal, Clock: int64(i + 1)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	n, err := s.CountEvents()
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if n != 5 {
		t.Fatalf("got %d, want 5", n)
	}
}

func TestSeparateRunsShareOneDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	s1, err := OpenStore(path, 1)
	if err != nil {
		t.Fatalf("OpenStore machine 1: %v", err)
	}
	defer s1.Close()
	s2, err := OpenStore(path, 2)
	if err != nil {
		t.Fatalf("OpenStore machine 2: %v", err)
	}
	defer s2.Close()

	if s1.RunID() == s2.RunID() {
		t.Fatal("two opens must get distinct run IDs")
	}
	if err := s1.Append(model.EventRecord{WallTime: time.Now(), Kind: model.EventInternal, Clock: 1}); err != nil {
		t.Fatalf("Append s1: %v", err)
	}

	n1, _ := s1.CountEvents()
	n2, _ := s2.CountEvents()
	if n1 != 1 || n2 != 0 {
		t.Fatalf("run isolation broken: got %d/%d, want 1/0", n1, n2)
	}
}

func TestIsBusyErr(t *testing.T) {
	if isBusyErr(nil) {
		t.Fatal("nil is not busy")
	}
	if !isBusyErr(errors.New("SQLITE_BUSY (5): database is locked")) {
		t.Fatal("SQLITE_BUSY should be transient")
	}
	if isBusyErr(errors.New("no such table: events")) {
		t.Fatal("schema errors are not transient")
	}
}

func TestWithBusyRetryGivesUp(t *testing.T) {
	calls := 0
	err := withBusyRetry(func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	})
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls != busyMaxRetries+1 {
		t.Fatalf("got %d calls, want %d", calls, busyMaxRetries+1)
	}
}
