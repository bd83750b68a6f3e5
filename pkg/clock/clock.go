// Package clock implements a Lamport logical clock.
//
// From Lamport (1978), two implementation rules govern the clock:
//
//	IR1 (local event): Before any send or internal event, increment the
//	     clock.
//	IR2 (message receipt): On receiving a message with timestamp t,
//	     set the clock to max(own, t) + 1.
//
// Note: Clock is not goroutine-safe. In this architecture each machine's
// clock is touched only by its event loop goroutine; receive goroutines
// enqueue timestamps and never reach the clock directly, so the
// single-writer invariant holds structurally rather than via locking.
package clock

// Clock is a Lamport logical clock. Not goroutine-safe; see package doc.
type Clock struct {
	ts int64
}

// Tick implements IR1: increment the clock for a locally-caused event.
// Returns the new timestamp.
func (c *Clock) Tick() int64 {
	c.ts++
	return c.ts
}

// Receive implements IR2: on consuming a message with timestamp received,
// set the clock to max(own, received) + 1. Returns the new timestamp.
func (c *Clock) Receive(received int64) int64 {
	if received > c.ts {
		c.ts = received
	}
	c.ts++
	return c.ts
}

// Value returns the current clock value without advancing it.
func (c *Clock) Value() int64 { return c.ts }

// Set initializes the clock to a specific value. Used by tests and by
// log auditing to replay a machine's recorded history.
func (c *Clock) Set(v int64) { c.ts = v }

// TotalOrderLess defines a deterministic total order over events from
// different machines. Event A is "less" (happened first in the total
// order) if:
//
//	tsA < tsB, or
//	tsA == tsB and machineA < machineB
//
// This is the standard Lamport total order; the machine-ID tie break
// gives every observer the same ordering without coordination. Used when
// merging per-machine logs into one timeline.
func TotalOrderLess(tsA int64, machineA int, tsB int64, machineB int) bool {
	if tsA != tsB {
		return tsA < tsB
	}
	return machineA < machineB
}
