package peer

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/daviddao/clockmesh/pkg/model"
	"github.com/daviddao/clockmesh/pkg/queue"
)

// Listener accepts inbound connections and spawns one ReceiveLoop
// goroutine per accepted socket, all feeding the shared inbound queue.
type Listener struct {
	ln    net.Listener
	inbox *queue.Inbound
	log   *slog.Logger
}

// Listen binds the machine's listening socket. A bind failure is fatal
// to machine startup; the caller aborts.
func Listen(addr model.PeerAddr, inbox *queue.Inbound, log *slog.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr.String(), err)
	}
	return &Listener{ln: ln, inbox: inbox, log: log}, nil
}

// Addr returns the bound address. Useful when listening on port 0.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// AcceptLoop blocks accepting connections until the listener is closed.
// Closing the listener makes the pending Accept fail, which is the
// shutdown signal — there is no separate cancellation channel.
func (l *Listener) AcceptLoop() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				l.log.Warn("accept failed, listener stopping", "error", err)
			}
			return
		}
		go ReceiveLoop(conn, l.inbox, l.log)
	}
}

// Close closes the listening socket, unblocking AcceptLoop. Receive
// loops for already-accepted connections keep draining until their
// sockets close. Safe to call more than once.
func (l *Listener) Close() error {
	err := l.ln.Close()
	if err != nil && errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
