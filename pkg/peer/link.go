// Package peer manages the point-to-point TCP links between machines:
// outbound dialing with bounded retry, the newline-delimited wire codec
// on the send side, and the per-connection receive loops that feed the
// inbound queue.
//
// Links are direction-split: a machine writes only on connections it
// dialed and reads only on connections it accepted. Sends happen solely
// from the event loop goroutine, so a Link needs no internal locking.
package peer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/daviddao/clockmesh/pkg/model"
	"github.com/daviddao/clockmesh/pkg/queue"
)

const dialTimeout = 2 * time.Second

// Link is one outbound connection to a peer machine.
type Link struct {
	PeerID int // ordinal of the peer in this machine's peer list
	Addr   model.PeerAddr
	conn   net.Conn
}

// Dial establishes an outbound link, retrying per cfg. Every failed
// attempt is logged; when all attempts fail the peer is reported
// unreachable and the caller excludes it for the rest of the run.
func Dial(addr model.PeerAddr, peerID int, cfg RetryConfig, log *slog.Logger) (*Link, error) {
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		conn, err := net.DialTimeout("tcp", addr.String(), dialTimeout)
		if err == nil {
			return &Link{PeerID: peerID, Addr: addr, conn: conn}, nil
		}
		lastErr = err
		log.Warn("peer connect attempt failed",
			"peer", addr.String(), "attempt", attempt, "max", cfg.MaxAttempts, "error", err)
		if attempt < cfg.MaxAttempts {
			time.Sleep(cfg.delay(attempt - 1))
		}
	}
	return nil, fmt.Errorf("peer %s unreachable after %d attempts: %w",
		addr.String(), cfg.MaxAttempts, lastErr)
}

// Send writes one message as a single newline-terminated record. A write
// failure means the link is dead; the caller closes and removes it.
func (l *Link) Send(m model.Message) error {
	if _, err := l.conn.Write(m.Encode()); err != nil {
		return fmt.Errorf("send to %s: %w", l.Addr.String(), err)
	}
	return nil
}

// Close closes the underlying connection. Safe to call more than once.
func (l *Link) Close() error {
	err := l.conn.Close()
	if err != nil && errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// ReceiveLoop reads newline-delimited records from conn and pushes each
// parsed message onto the inbound queue. Malformed records are dropped
// with a warning; the loop ends on EOF or a read error and closes the
// connection. Runs on its own goroutine, one per accepted connection.
func ReceiveLoop(conn net.Conn, inbox *queue.Inbound, log *slog.Logger) {
	defer conn.Close()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		m, err := model.ParseMessage(line)
		if err != nil {
			log.Warn("dropping malformed inbound record",
				"remote", conn.RemoteAddr().String(), "error", err)
			continue
		}
		inbox.Push(m)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		log.Warn("receive loop ended", "remote", conn.RemoteAddr().String(), "error", err)
	}
}
