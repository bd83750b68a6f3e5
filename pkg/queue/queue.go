// Package queue provides the inbound message queue that decouples a
// machine's per-connection receive goroutines from its event loop.
//
// The queue is unbounded: receive goroutines must never block on a slow
// event loop, or one chatty peer could stall reads from every other peer.
// Ordering is FIFO by arrival. Arrival order across different producers
// carries no causal meaning and none is promised; per-producer order is
// preserved because each producer pushes from a single goroutine.
package queue

import (
	"sync"

	"github.com/daviddao/clockmesh/pkg/model"
)

// Inbound is a multi-producer, single-consumer FIFO of received messages.
// Push may be called from any goroutine; Pop and Len are intended for the
// event loop but are safe from anywhere.
type Inbound struct {
	mu   sync.Mutex
	msgs []model.Message
}

// NewInbound returns an empty queue.
func NewInbound() *Inbound {
	return &Inbound{msgs: make([]model.Message, 0, 16)}
}

// Push appends a message to the back of the queue.
func (q *Inbound) Push(m model.Message) {
	q.mu.Lock()
	q.msgs = append(q.msgs, m)
	q.mu.Unlock()
}

// Pop removes and returns the oldest message. The second return value is
// false when the queue is empty.
func (q *Inbound) Pop() (model.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.msgs) == 0 {
		return model.Message{}, false
	}
	m := q.msgs[0]
	q.msgs = q.msgs[1:]
	if len(q.msgs) == 0 {
		q.msgs = nil // release the drained backing array
	}
	return m, true
}

// Len returns the number of queued messages.
func (q *Inbound) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}
