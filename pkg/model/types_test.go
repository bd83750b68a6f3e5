package model

import "testing"

func TestParsePeerAddr(t *testing.T) {
	p, err := ParsePeerAddr("127.0.0.1:5001")
	if err != nil {
		t.Fatalf("ParsePeerAddr: %v", err)
	}
	if p.Host != "127.0.0.1" || p.Port != 5001 {
		t.Fatalf("got %v, want 127.0.0.1:5001", p)
	}
	if s := p.String(); s != "127.0.0.1:5001" {
		t.Fatalf("String: got %q", s)
	}
}

func TestParsePeerAddr_Bad(t *testing.T) {
	for _, s := range []string{"", "nohost", "host:", "host:notaport", "host:0", "host:70000"} {
		if _, err := ParsePeerAddr(s); err == nil {
			t.Fatalf("ParsePeerAddr(%q): expected error", s)
		}
	}
}

func TestParsePeerList(t *testing.T) {
	peers, err := ParsePeerList("127.0.0.1:5002, 127.0.0.1:5003")
	if err != nil {
		t.Fatalf("ParsePeerList: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("got %d peers, want 2", len(peers))
	}
	if peers[1].Port != 5003 {
		t.Fatalf("second peer port: got %d, want 5003", peers[1].Port)
	}
}

func TestParsePeerList_Empty(t *testing.T) {
	peers, err := ParsePeerList("")
	if err != nil {
		t.Fatalf("ParsePeerList(\"\"): %v", err)
	}
	if peers != nil {
		t.Fatalf("got %v, want nil", peers)
	}
}

func TestAdvancesClock(t *testing.T) {
	advancing := []EventKind{EventReceive, EventSendOne, EventSendOther, EventBroadcast, EventInternal}
	for _, k := range advancing {
		if !k.AdvancesClock() {
			t.Fatalf("%s should advance the clock", k)
		}
	}
	for _, k := range []EventKind{EventInit, EventShutdown} {
		if k.AdvancesClock() {
			t.Fatalf("%s should not advance the clock", k)
		}
	}
}

func TestIsSend(t *testing.T) {
	for _, k := range []EventKind{EventSendOne, EventSendOther, EventBroadcast} {
		if !k.IsSend() {
			t.Fatalf("%s should be a send", k)
		}
	}
	if EventInternal.IsSend() || EventReceive.IsSend() {
		t.Fatal("INTERNAL/RECEIVE should not be sends")
	}
}
