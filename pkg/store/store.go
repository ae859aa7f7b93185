// Package store archives scenario results in SQLite so CI runs can be
// compared over time.
package store

import (
    "database/sql"
    "fmt"
    "time"

    _ "github.com/mattn/go-sqlite3"

    "github.com/clusterlab/sentinel-harness/pkg/timeline"
    "github.com/clusterlab/sentinel-harness/pkg/topology"
    "github.com/clusterlab/sentinel-harness/pkg/verify"
)

// Store wraps one SQLite database file.
type Store struct {
    conn *sql.DB
}

// Open opens (and if needed initializes) the archive at path.
func Open(path string) (*Store, error) {
    conn, err := sql.Open("sqlite3", path)
    if err != nil {
        return nil, fmt.Errorf("store: open %s: %w", path, err)
    }
    s := &Store{conn: conn}
    if err := s.createTables(); err != nil {
        _ = conn.Close()
        return nil, err
    }
    return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.conn.Close() }

func (s *Store) createTables() error {
    stmts := []string{
        `CREATE TABLE IF NOT EXISTS runs (
            id INTEGER PRIMARY KEY,
            scenario TEXT NOT NULL,
            verdict TEXT NOT NULL,
            expected TEXT NOT NULL,
            started TEXT NOT NULL,
            finished TEXT NOT NULL,
            promotion_latency_ms INTEGER NOT NULL
        )`,
        `CREATE TABLE IF NOT EXISTS events (
            run_id INTEGER NOT NULL,
            seq INTEGER NOT NULL,
            at TEXT NOT NULL,
            kind TEXT NOT NULL,
            node TEXT,
            role TEXT,
            config_epoch INTEGER,
            leader_epoch INTEGER,
            partition_name TEXT,
            cause TEXT,
            FOREIGN KEY(run_id) REFERENCES runs(id)
        )`,
    }
    for _, stmt := range stmts {
        if _, err := s.conn.Exec(stmt); err != nil {
            return fmt.Errorf("store: create tables: %w", err)
        }
    }
    return nil
}

// Save archives one result with its full timeline.
func (s *Store) Save(res verify.Result) (int64, error) {
    tx, err := s.conn.Begin()
    if err != nil {
        return 0, fmt.Errorf("store: begin: %w", err)
    }
    defer func() { _ = tx.Rollback() }()

    r, err := tx.Exec(
        `INSERT INTO runs (scenario, verdict, expected, started, finished, promotion_latency_ms) VALUES (?, ?, ?, ?, ?, ?)`,
        res.Scenario, string(res.Verdict), res.Expected.String(),
        res.Started.Format(time.RFC3339Nano), res.Finished.Format(time.RFC3339Nano),
        res.PromotionLatency.Milliseconds(),
    )
    if err != nil {
        return 0, fmt.Errorf("store: insert run: %w", err)
    }
    id, err := r.LastInsertId()
    if err != nil {
        return 0, err
    }
    for i, e := range res.Events {
        if _, err := tx.Exec(
            `INSERT INTO events (run_id, seq, at, kind, node, role, config_epoch, leader_epoch, partition_name, cause)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
            id, i, e.At.Format(time.RFC3339Nano), string(e.Kind), e.Node, string(e.Role),
            e.ConfigEpoch, e.LeaderEpoch, e.Partition, e.Cause,
        ); err != nil {
            return 0, fmt.Errorf("store: insert event: %w", err)
        }
    }
    if err := tx.Commit(); err != nil {
        return 0, fmt.Errorf("store: commit: %w", err)
    }
    return id, nil
}

// RunSummary is one archived run without its events.
type RunSummary struct {
    ID       int64
    Scenario string
    Verdict  verify.Verdict
    Expected string
    Started  time.Time
    Finished time.Time
}

// Recent returns the latest n runs, newest first.
func (s *Store) Recent(n int) ([]RunSummary, error) {
    rows, err := s.conn.Query(
        `SELECT id, scenario, verdict, expected, started, finished FROM runs ORDER BY id DESC LIMIT ?`, n)
    if err != nil {
        return nil, fmt.Errorf("store: query runs: %w", err)
    }
    defer rows.Close()
    var out []RunSummary
    for rows.Next() {
        var r RunSummary
        var verdict, started, finished string
        if err := rows.Scan(&r.ID, &r.Scenario, &verdict, &r.Expected, &started, &finished); err != nil {
            return nil, err
        }
        r.Verdict = verify.Verdict(verdict)
        r.Started, _ = time.Parse(time.RFC3339Nano, started)
        r.Finished, _ = time.Parse(time.RFC3339Nano, finished)
        out = append(out, r)
    }
    return out, rows.Err()
}

// Events returns the archived timeline of one run in order.
func (s *Store) Events(runID int64) ([]timeline.Event, error) {
    rows, err := s.conn.Query(
        `SELECT at, kind, node, role, config_epoch, leader_epoch, partition_name, cause
         FROM events WHERE run_id = ? ORDER BY seq`, runID)
    if err != nil {
        return nil, fmt.Errorf("store: query events: %w", err)
    }
    defer rows.Close()
    var out []timeline.Event
    for rows.Next() {
        var e timeline.Event
        var at, kind, role string
        if err := rows.Scan(&at, &kind, &e.Node, &role, &e.ConfigEpoch, &e.LeaderEpoch, &e.Partition, &e.Cause); err != nil {
            return nil, err
        }
        e.At, _ = time.Parse(time.RFC3339Nano, at)
        e.Kind = timeline.EventKind(kind)
        e.Role = topology.Role(role)
        out = append(out, e)
    }
    return out, rows.Err()
}
