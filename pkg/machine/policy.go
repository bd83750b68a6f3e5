package machine

import (
	"fmt"
	"math/rand"

	"github.com/daviddao/clockmesh/pkg/model"
)

// Action is one outcome of a tick's random draw when the inbound queue
// is empty.
type Action int

const (
	ActionSendOne   Action = iota // send to one randomly chosen peer
	ActionSendOther               // send to the second peer
	ActionBroadcast               // send to every peer
	ActionInternal                // purely local event
)

// Kind maps the action to the event kind it records.
func (a Action) Kind() model.EventKind {
	switch a {
	case ActionSendOne:
		return model.EventSendOne
	case ActionSendOther:
		return model.EventSendOther
	case ActionBroadcast:
		return model.EventBroadcast
	default:
		return model.EventInternal
	}
}

// Policy is a weighted choice over the four actions. Keeping the weights
// explicit makes the distribution auditable and testable with a seeded
// random source instead of being buried in magic sub-ranges.
type Policy struct {
	weights [4]int
	total   int
}

// DefaultPolicy reproduces the classic 1-in-10 split: each send variant
// drawn with probability 1/10, internal events with 7/10.
func DefaultPolicy() Policy {
	p, _ := NewPolicy(1, 1, 1, 7)
	return p
}

// NewPolicy builds a policy from per-action weights, in Action order
// (send-one, send-other, broadcast, internal). Weights must be
// non-negative and sum to a positive total.
func NewPolicy(sendOne, sendOther, broadcast, internal int) (Policy, error) {
	w := [4]int{sendOne, sendOther, broadcast, internal}
	total := 0
	for _, v := range w {
		if v < 0 {
			return Policy{}, fmt.Errorf("policy weight %d is negative", v)
		}
		total += v
	}
	if total == 0 {
		return Policy{}, fmt.Errorf("policy weights sum to zero")
	}
	return Policy{weights: w, total: total}, nil
}

// Choose draws one action from the distribution using r.
func (p Policy) Choose(r *rand.Rand) Action {
	n := r.Intn(p.total)
	for a, w := range p.weights {
		if n < w {
			return Action(a)
		}
		n -= w
	}
	return ActionInternal // unreachable
}

// Probability returns the configured probability of action a.
func (p Policy) Probability(a Action) float64 {
	if a < 0 || int(a) >= len(p.weights) {
		return 0
	}
	return float64(p.weights[a]) / float64(p.total)
}
