// Package model defines the core domain types for clockmesh.
//
// A clockmesh cluster is a handful of machines exchanging timestamped
// messages over TCP while each maintains a Lamport clock (1978): every
// local event increments the clock, every message carries the sender's
// timestamp, and on receipt the clock advances to max(own, received) + 1.
// The resulting order is causal, not real-time — two machines agree on
// "could have influenced", nothing more.
package model

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// PeerAddr identifies one machine's listening endpoint.
type PeerAddr struct {
	Host string
	Port int
}

// String renders the address in host:port form, suitable for net.Dial.
func (p PeerAddr) String() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// ParsePeerAddr parses a single "host:port" string.
func ParsePeerAddr(s string) (PeerAddr, error) {
	host, portStr, err := net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return PeerAddr{}, fmt.Errorf("peer address %q: %w", s, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return PeerAddr{}, fmt.Errorf("peer address %q: bad port %q", s, portStr)
	}
	return PeerAddr{Host: host, Port: port}, nil
}

// ParsePeerList parses a comma-separated "host:port,host:port" list,
// the form peers arrive in from flags and config files.
func ParsePeerList(s string) ([]PeerAddr, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var peers []PeerAddr
	for _, part := range strings.Split(s, ",") {
		p, err := ParsePeerAddr(part)
		if err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}
	return peers, nil
}

// EventKind enumerates the event types a machine records.
type EventKind string

const (
	EventInit      EventKind = "INIT"
	EventReceive   EventKind = "RECEIVE"
	EventSendOne   EventKind = "SEND(1)" // send to one randomly chosen peer
	EventSendOther EventKind = "SEND(2)" // send to the second peer
	EventBroadcast EventKind = "SEND(3)" // send to every peer
	EventInternal  EventKind = "INTERNAL"
	EventShutdown  EventKind = "SHUTDOWN"
)

// IsSend reports whether k is one of the three send kinds.
func (k EventKind) IsSend() bool {
	return k == EventSendOne || k == EventSendOther || k == EventBroadcast
}

// AdvancesClock reports whether an event of this kind moved the Lamport
// clock. INIT and SHUTDOWN record the clock without advancing it.
func (k EventKind) AdvancesClock() bool {
	return k != EventInit && k != EventShutdown
}

// EventRecord is one entry in a machine's append-only event log.
// QueueLen is meaningful only when HasQueueLen is set (RECEIVE events,
// where it carries the inbound queue length after the pop).
type EventRecord struct {
	WallTime    time.Time
	Kind        EventKind
	Clock       int64
	QueueLen    int
	HasQueueLen bool
	Note        string
}
