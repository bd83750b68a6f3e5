package eventlog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/daviddao/clockmesh/pkg/model"

	_ "modernc.org/sqlite"
)

// Store archives event records in SQLite for post-run analysis. Each
// Open creates a new run row with a fresh run ID; every appended record
// is tagged with it, so several machines (or several runs of the same
// machine) can share one database file.
type Store struct {
	db        *sql.DB
	runID     string
	machineID int
}

// OpenStore opens (or creates) the archive database and registers a new
// run for machineID.
func OpenStore(path string, machineID int) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	db.SetMaxOpenConns(2)

	s := &Store{db: db, runID: uuid.NewString(), machineID: machineID}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}

	err = withBusyRetry(func() error {
		_, err := db.Exec(
			`INSERT INTO runs (id, machine_id, started_at) VALUES (?, ?, ?)`,
			s.runID, machineID, time.Now().UTC().Format(time.RFC3339Nano),
		)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id         TEXT PRIMARY KEY,
		machine_id INTEGER NOT NULL,
		started_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id    TEXT NOT NULL REFERENCES runs(id),
		wall_time REAL NOT NULL,
		kind      TEXT NOT NULL,
		clock     INTEGER NOT NULL,
		queue_len INTEGER,
		note      TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RunID returns the identifier assigned to this run at open time.
func (s *Store) RunID() string { return s.runID }

// Append archives one event record.
func (s *Store) Append(rec model.EventRecord) error {
	var queueLen any
	if rec.HasQueueLen {
		queueLen = rec.QueueLen
	}
	var note any
	if rec.Note != "" {
		note = rec.Note
	}
	return withBusyRetry(func() error {
		_, err := s.db.Exec(
			`INSERT INTO events (run_id, wall_time, kind, clock, queue_len, note)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.runID, float64(rec.WallTime.UnixMicro())/1e6, string(rec.Kind), rec.Clock, queueLen, note,
		)
		return err
	})
}

// Events returns this run's records in emission order.
func (s *Store) Events() ([]model.EventRecord, error) {
	rows, err := s.db.Query(
		`SELECT wall_time, kind, clock, queue_len, note
		 FROM events WHERE run_id = ? ORDER BY id`, s.runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []model.EventRecord
	for rows.Next() {
		var (
			wall     float64
			kind     string
			clk      int64
			queueLen sql.NullInt64
			note     sql.NullString
		)
		if err := rows.Scan(&wall, &kind, &clk, &queueLen, &note); err != nil {
			return nil, err
		}
		rec := model.EventRecord{
			WallTime: time.UnixMicro(int64(wall * 1e6)),
			Kind:     model.EventKind(kind),
			Clock:    clk,
			Note:     note.String,
		}
		if queueLen.Valid {
			rec.QueueLen = int(queueLen.Int64)
			rec.HasQueueLen = true
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// CountEvents returns the number of records archived for this run.
func (s *Store) CountEvents() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM events WHERE run_id = ?`, s.runID).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }
