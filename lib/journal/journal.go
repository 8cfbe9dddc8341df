// Package journal records scheduler events in a SQLite database.
package journal

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/illusions/vm"
)

func logger() commonlog.Logger {
	return commonlog.GetLogger("illusions.journal")
}

// Journal is a vm.Observer that appends every event to a SQLite table.
// Write failures are logged and counted; they never stop the engine.
type Journal struct {
	db     *sql.DB
	insert *sql.Stmt
	mu     sync.Mutex
	run    int64
	seq    int64
	failed int
}

// Entry is one recorded event.
type Entry struct {
	Run       int64
	Seq       int64
	Frame     uint64
	Kind      vm.EventKind
	ThreadID  vm.ThreadID
	CallingID vm.ThreadID
	Thread    vm.ThreadKind
	Pass      int
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS events (
	run INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	frame INTEGER NOT NULL,
	kind INTEGER NOT NULL,
	thread_id INTEGER NOT NULL,
	calling_id INTEGER NOT NULL,
	thread_kind INTEGER NOT NULL,
	pass INTEGER NOT NULL,
	PRIMARY KEY (run, seq)
);
CREATE INDEX IF NOT EXISTS events_frame ON events (run, frame);
`

// Open opens or creates the journal at dbPath and starts a new run.
// ":memory:" keeps the journal in memory.
func Open(dbPath, runName string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: an in-memory database is private to its connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	res, err := db.Exec("INSERT INTO runs (name) VALUES (?)", runName)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("starting run: %w", err)
	}
	run, err := res.LastInsertId()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("starting run: %w", err)
	}

	insert, err := db.Prepare(`INSERT INTO events
		(run, seq, frame, kind, thread_id, calling_id, thread_kind, pass)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}

	return &Journal{db: db, insert: insert, run: run}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.insert.Close()
	return j.db.Close()
}

// Run returns the id of the current run.
func (j *Journal) Run() int64 {
	return j.run
}

// Failed returns the number of events that could not be written.
func (j *Journal) Failed() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.failed
}

// ObserveEvent implements vm.Observer.
func (j *Journal) ObserveEvent(ev vm.Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	_, err := j.insert.Exec(j.run, j.seq, int64(ev.Frame), int(ev.Kind),
		int64(ev.ThreadID), int64(ev.CallingID), int(ev.ThreadKind), ev.Pass)
	if err != nil {
		j.failed++
		logger().Errorf("writing %s event: %s", ev.Kind, err)
	}
}

// Events returns the events recorded for a frame of the current run, in
// order.
func (j *Journal) Events(frame uint64) ([]Entry, error) {
	return j.query("WHERE run = ? AND frame = ?", j.run, int64(frame))
}

// All returns every event of the current run.
func (j *Journal) All() ([]Entry, error) {
	return j.query("WHERE run = ?", j.run)
}

// CountKind returns how many events of a kind the current run recorded.
func (j *Journal) CountKind(kind vm.EventKind) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var n int
	err := j.db.QueryRow("SELECT COUNT(*) FROM events WHERE run = ? AND kind = ?", j.run, int(kind)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return n, nil
}

func (j *Journal) query(where string, args ...any) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(`SELECT run, seq, frame, kind, thread_id, calling_id, thread_kind, pass
		FROM events `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                   Entry
			frame, tid, cid     int64
			kind, tkind, passNo int
		)
		if err := rows.Scan(&e.Run, &e.Seq, &frame, &kind, &tid, &cid, &tkind, &passNo); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Frame = uint64(frame)
		e.Kind = vm.EventKind(kind)
		e.ThreadID = vm.ThreadID(tid)
		e.CallingID = vm.ThreadID(cid)
		e.Thread = vm.ThreadKind(tkind)
		e.Pass = passNo
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
