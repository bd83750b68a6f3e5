package clock

import "testing"

func TestTickMonotonicallyIncreases(t *testing.T) {
	var c Clock
	prev := c.Value()
	for i := 0; i < 100; i++ {
		ts := c.Tick()
		if ts <= prev {
			t.Fatalf("Tick %d: got %d, want > %d", i, ts, prev)
		}
		prev = ts
	}
}

func TestThreeLocalEventsFromZero(t *testing.T) {
	var c Clock
	if v := c.Value(); v != 0 {
		t.Fatalf("new clock: got %d, want 0", v)
	}
	c.Tick()
	c.Tick()
	if ts := c.Tick(); ts != 3 {
		t.Fatalf("after three Ticks: got %d, want 3", ts)
	}
}

func TestReceiveMaxPlusOne(t *testing.T) {
	var c Clock
	c.Set(5)

	// Higher remote timestamp: max(5, 9)+1 = 10.
	if ts := c.Receive(9); ts != 10 {
		t.Fatalf("Receive(9) from 5: got %d, want 10", ts)
	}

	// Lower remote timestamp: max(10, 3)+1 = 11.
	if ts := c.Receive(3); ts != 11 {
		t.Fatalf("Receive(3) from 10: got %d, want 11", ts)
	}
}

func TestReceiveLowerTimestamp(t *testing.T) {
	var c Clock
	c.Set(5)
	if ts := c.Receive(2); ts != 6 {
		t.Fatalf("Receive(2) from 5: got %d, want 6", ts)
	}
}

func TestReceiveEqualTimestamp(t *testing.T) {
	var c Clock
	c.Set(10)
	if ts := c.Receive(10); ts != 11 {
		t.Fatalf("Receive(10) from 10: got %d, want 11", ts)
	}
}

func TestSetThenTick(t *testing.T) {
	var c Clock
	c.Set(100)
	if ts := c.Tick(); ts != 101 {
		t.Fatalf("Tick after Set(100): got %d, want 101", ts)
	}
}

func TestTotalOrderLess_DifferentTimestamps(t *testing.T) {
	if !TotalOrderLess(1, 2, 2, 1) {
		t.Fatal("expected (1,m2) < (2,m1)")
	}
	if TotalOrderLess(2, 1, 1, 2) {
		t.Fatal("expected (2,m1) NOT < (1,m2)")
	}
}

func TestTotalOrderLess_SameTimestamp_TieBreakByMachine(t *testing.T) {
	if !TotalOrderLess(5, 1, 5, 2) {
		t.Fatal("expected (5,m1) < (5,m2)")
	}
	if TotalOrderLess(5, 2, 5, 1) {
		t.Fatal("expected (5,m2) NOT < (5,m1)")
	}
}

func TestTotalOrderLess_Equal(t *testing.T) {
	if TotalOrderLess(5, 1, 5, 1) {
		t.Fatal("expected strict less to reject equal events")
	}
}
