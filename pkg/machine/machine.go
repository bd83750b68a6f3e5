// Package machine runs one node of a clockmesh cluster: the event loop
// that drives a Lamport clock at a configured tick rate, the peer links
// it sends on, and the listener feeding its inbound queue.
//
// Concurrency model: the accept loop and every per-connection receive
// loop run on their own goroutines, but they only push into the inbound
// queue. The clock, the active link set, and the log sinks are touched
// exclusively by the event loop goroutine, so the Lamport single-writer
// invariant holds by construction, not by locking.
package machine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daviddao/clockmesh/pkg/clock"
	"github.com/daviddao/clockmesh/pkg/eventlog"
	"github.com/daviddao/clockmesh/pkg/model"
	"github.com/daviddao/clockmesh/pkg/peer"
	"github.com/daviddao/clockmesh/pkg/queue"
	"github.com/daviddao/clockmesh/pkg/wallclock"
)

// State tracks a machine through its lifecycle.
type State int32

const (
	StateInitializing State = iota
	StateRunning
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Config is the already-validated configuration a Machine is built from.
// Callers own parsing and validation of raw input; New only applies
// defaults and rejects values no parser should have let through.
type Config struct {
	ID       int
	Listen   model.PeerAddr
	Peers    []model.PeerAddr
	Duration time.Duration

	// TicksPerSecond fixes the event loop rate. Zero means "draw
	// uniformly from [1, TickRateBound]", the classic setup where each
	// machine runs at its own speed.
	TicksPerSecond int
	TickRateBound  int // default 6

	Policy Policy           // zero value = DefaultPolicy
	Retry  peer.RetryConfig // zero value = peer.DefaultRetry

	LogPath     string // event log file; default eventlog.DefaultPath(ID)
	ArchivePath string // SQLite archive; empty disables archiving
	NTPServer   string // NTP offset probe at INIT; empty disables

	Logger *slog.Logger // diagnostics only, never the event log
	Rand   *rand.Rand   // injected by tests; nil = time-seeded
}

// Machine is one cluster node. Create with New, drive with Run.
type Machine struct {
	cfg Config
	log *slog.Logger
	rng *rand.Rand

	clk      clock.Clock
	inbox    *queue.Inbound
	links    []*peer.Link
	listener *peer.Listener
	writer   *eventlog.Writer
	archive  *eventlog.Store

	ticks    int
	period   time.Duration
	initDone bool

	state        atomic.Int32
	shutdownOnce sync.Once
}

// New validates cfg, applies defaults, and returns a machine in the
// INITIALIZING state. No sockets are opened until Run.
func New(cfg Config) (*Machine, error) {
	if cfg.ID < 0 {
		return nil, fmt.Errorf("machine id %d is negative", cfg.ID)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("run duration %v must be positive", cfg.Duration)
	}
	if cfg.TicksPerSecond < 0 {
		return nil, fmt.Errorf("ticks per second %d is negative", cfg.TicksPerSecond)
	}
	if cfg.TickRateBound <= 0 {
		cfg.TickRateBound = 6
	}
	if cfg.Policy.total == 0 {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = peer.DefaultRetry
	}
	if cfg.LogPath == "" {
		cfg.LogPath = eventlog.DefaultPath(cfg.ID)
	}

	m := &Machine{
		cfg:   cfg,
		log:   cfg.Logger,
		rng:   cfg.Rand,
		inbox: queue.NewInbound(),
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	m.log = m.log.With("machine", cfg.ID)
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	m.state.Store(int32(StateInitializing))
	return m, nil
}

// State returns the machine's current lifecycle state.
func (m *Machine) State() State { return State(m.state.Load()) }

// Clock returns the current Lamport clock value. Only meaningful from
// the event loop goroutine, or once the machine has terminated.
func (m *Machine) Clock() int64 { return m.clk.Value() }

// TicksPerSecond returns the rate chosen at startup (zero before Run).
func (m *Machine) TicksPerSecond() int { return m.ticks }

func (m *Machine) setState(s State) { m.state.Store(int32(s)) }

// Run performs INIT, drives the event loop until the configured duration
// elapses or ctx is cancelled, then shuts down. The only fatal startup
// errors are failing to open the event log and failing to bind the
// listening socket; unreachable peers are excluded and logged.
func (m *Machine) Run(ctx context.Context) error {
	if err := m.start(ctx); err != nil {
		m.Shutdown()
		return err
	}
	m.setState(StateRunning)
	m.loop(ctx)
	m.Shutdown()
	return nil
}

func (m *Machine) start(ctx context.Context) error {
	m.ticks = m.cfg.TicksPerSecond
	if m.ticks == 0 {
		m.ticks = m.rng.Intn(m.cfg.TickRateBound) + 1
	}
	m.period = time.Second / time.Duration(m.ticks)

	w, err := eventlog.NewWriter(m.cfg.LogPath)
	if err != nil {
		return err
	}
	m.writer = w

	if m.cfg.ArchivePath != "" {
		st, err := eventlog.OpenStore(m.cfg.ArchivePath, m.cfg.ID)
		if err != nil {
			// Analysis convenience, not part of the run contract.
			m.log.Warn("event archive disabled", "error", err)
		} else {
			m.archive = st
		}
	}

	ln, err := peer.Listen(m.cfg.Listen, m.inbox, m.log)
	if err != nil {
		return err
	}
	m.listener = ln
	go ln.AcceptLoop()

	for i, addr := range m.cfg.Peers {
		if addr == m.cfg.Listen {
			continue // own entry in a shared peer list
		}
		link, err := peer.Dial(addr, i, m.cfg.Retry, m.log)
		if err != nil {
			m.log.Warn("peer excluded for this run", "peer", addr.String(), "error", err)
			continue
		}
		m.links = append(m.links, link)
	}

	note := fmt.Sprintf("ticks=%d", m.ticks)
	if m.cfg.NTPServer != "" {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		off, err := wallclock.Offset(probeCtx, m.cfg.NTPServer)
		cancel()
		if err != nil {
			m.log.Warn("ntp probe failed", "server", m.cfg.NTPServer, "error", err)
		} else {
			note += fmt.Sprintf(" ntp_offset=%s", off)
		}
	}
	m.emit(model.EventRecord{Kind: model.EventInit, Note: note})
	m.initDone = true
	return nil
}

func (m *Machine) loop(ctx context.Context) {
	start := time.Now()
	for {
		if ctx.Err() != nil || time.Since(start) >= m.cfg.Duration {
			return
		}
		cycleStart := time.Now()
		m.step()

		// Hold the configured rate; scheduling drift is tolerated,
		// not corrected.
		if remain := m.period - time.Since(cycleStart); remain > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(remain):
			}
		}
	}
}

// step executes exactly one tick. Draining the inbound queue always
// wins over local activity, so message processing is never starved.
func (m *Machine) step() {
	if msg, ok := m.inbox.Pop(); ok {
		m.clk.Receive(msg.Timestamp)
		m.emit(model.EventRecord{
			Kind:        model.EventReceive,
			QueueLen:    m.inbox.Len(),
			HasQueueLen: true,
		})
		return
	}

	action := m.cfg.Policy.Choose(m.rng)
	m.clk.Tick()
	switch action {
	case ActionSendOne:
		m.sendTo(m.randomLink())
	case ActionSendOther:
		m.sendTo(m.secondLink())
	case ActionBroadcast:
		// Snapshot first: a failed send removes the link mid-iteration.
		for _, l := range append([]*peer.Link(nil), m.links...) {
			m.sendTo(l)
		}
	case ActionInternal:
		// Clock already ticked; nothing else to do.
	}
	m.emit(model.EventRecord{Kind: action.Kind()})
}

func (m *Machine) randomLink() *peer.Link {
	if len(m.links) == 0 {
		return nil
	}
	return m.links[m.rng.Intn(len(m.links))]
}

// secondLink returns the second peer when there are at least two,
// falling back to the only peer otherwise.
func (m *Machine) secondLink() *peer.Link {
	if len(m.links) == 0 {
		return nil
	}
	return m.links[1%len(m.links)]
}

// sendTo writes the already-incremented clock value to one link. A send
// failure drops the link from the active set for the rest of the run.
func (m *Machine) sendTo(l *peer.Link) {
	if l == nil {
		return
	}
	msg := model.Message{Timestamp: m.clk.Value(), SenderID: m.cfg.ID}
	if err := l.Send(msg); err != nil {
		m.log.Warn("dropping peer link", "peer", l.PeerID, "addr", l.Addr.String(), "error", err)
		l.Close()
		m.removeLink(l)
	}
}

func (m *Machine) removeLink(target *peer.Link) {
	for i, l := range m.links {
		if l == target {
			m.links = append(m.links[:i], m.links[i+1:]...)
			return
		}
	}
}

// emit records one event. The clock value is read here, after the
// event's update, so a record never carries a pre-update snapshot.
func (m *Machine) emit(rec model.EventRecord) {
	rec.WallTime = time.Now()
	rec.Clock = m.clk.Value()
	if m.writer != nil {
		if err := m.writer.Append(rec); err != nil {
			m.log.Warn("event log write failed", "kind", rec.Kind, "error", err)
		}
	}
	if m.archive != nil {
		if err := m.archive.Append(rec); err != nil {
			m.log.Warn("event archive write failed", "kind", rec.Kind, "error", err)
		}
	}
}

// Shutdown emits the SHUTDOWN record and releases every socket and log
// sink. Idempotent: a second call is a no-op, so the SHUTDOWN record is
// emitted exactly once no matter how the run ends.
func (m *Machine) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.setState(StateShuttingDown)
		// A run that never got past startup has no INIT record, so a
		// SHUTDOWN record alone would leave an inconsistent log.
		if m.initDone {
			m.emit(model.EventRecord{Kind: model.EventShutdown})
		}
		for _, l := range m.links {
			l.Close()
		}
		m.links = nil
		if m.listener != nil {
			m.listener.Close()
		}
		if m.archive != nil {
			m.archive.Close()
		}
		if m.writer != nil {
			m.writer.Close()
		}
		m.setState(StateTerminated)
	})
}
