// Package persistence stores evacuation runs, their lifecycle events and
// per-tick statistics in SQLite or PostgreSQL.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/talgya/firedrill/internal/config"
	"github.com/talgya/firedrill/internal/engine"
)

// ErrNotFound is returned when a run or metadata key does not exist.
var ErrNotFound = errors.New("persistence: not found")

// DB wraps a SQL connection for run persistence.
type DB struct {
	conn   *sqlx.DB
	driver string
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID         string  `db:"id" json:"id"`
	Plan       string  `db:"plan" json:"plan"`
	Seed       int64   `db:"seed" json:"seed"`
	ParamsJSON string  `db:"params_json" json:"params"`
	StartedAt  int64   `db:"started_at" json:"started_at"`   // Unix milliseconds
	FinishedAt int64   `db:"finished_at" json:"finished_at"` // 0 while running
	Ticks      int64   `db:"ticks" json:"ticks"`
	Elapsed    float64 `db:"elapsed" json:"elapsed"`
	Total      int     `db:"total" json:"total"`
	Dead       int     `db:"dead" json:"dead"`
	Evacuated  int     `db:"evacuated" json:"evacuated"`
	Safe       int     `db:"safe" json:"safe"`
}

// Finished reports whether FinishRun has been recorded.
func (r RunRecord) Finished() bool { return r.FinishedAt > 0 }

// EventRecord is one stored lifecycle event.
type EventRecord struct {
	RunID       string  `db:"run_id" json:"run_id"`
	Tick        int64   `db:"tick" json:"tick"`
	Elapsed     float64 `db:"elapsed" json:"elapsed"`
	Kind        string  `db:"kind" json:"kind"`
	AgentID     int64   `db:"agent_id" json:"agent_id"`
	Storey      string  `db:"storey" json:"storey"`
	Description string  `db:"description" json:"description"`
}

// TickRecord is one row of per-tick statistics.
type TickRecord struct {
	Tick       int64   `db:"tick"`
	Elapsed    float64 `db:"elapsed"`
	Alive      int     `db:"alive"`
	Dead       int     `db:"dead"`
	Evacuated  int     `db:"evacuated"`
	Safe       int     `db:"safe"`
	Burning    int     `db:"burning"`
	BurnedOut  int     `db:"burned_out"`
	SmokeTotal float64 `db:"smoke_total"`
}

// Open connects to dsn and migrates the schema. A DSN starting with
// postgres:// or postgresql:// selects PostgreSQL; anything else is a
// SQLite file path.
func Open(dsn string) (*DB, error) {
	driver, source := "sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver, source = "postgres", dsn
	}

	conn, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if driver == "sqlite" {
		// One writer keeps SQLite from returning SQLITE_BUSY under WAL.
		conn.SetMaxOpenConns(1)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Driver names the SQL driver in use.
func (db *DB) Driver() string {
	return db.driver
}

func (db *DB) migrate() error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.driver == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		plan TEXT NOT NULL,
		seed BIGINT NOT NULL,
		params_json TEXT NOT NULL,
		started_at BIGINT NOT NULL,
		finished_at BIGINT NOT NULL DEFAULT 0,
		ticks BIGINT NOT NULL DEFAULT 0,
		elapsed REAL NOT NULL DEFAULT 0,
		total INTEGER NOT NULL DEFAULT 0,
		dead INTEGER NOT NULL DEFAULT 0,
		evacuated INTEGER NOT NULL DEFAULT 0,
		safe INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS events (
		id ` + serial + `,
		run_id TEXT NOT NULL,
		tick BIGINT NOT NULL,
		elapsed REAL NOT NULL,
		kind TEXT NOT NULL,
		agent_id BIGINT NOT NULL,
		storey TEXT NOT NULL,
		description TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tick_stats (
		run_id TEXT NOT NULL,
		tick BIGINT NOT NULL,
		elapsed REAL NOT NULL,
		alive INTEGER NOT NULL,
		dead INTEGER NOT NULL,
		evacuated INTEGER NOT NULL,
		safe INTEGER NOT NULL,
		burning INTEGER NOT NULL,
		burned_out INTEGER NOT NULL,
		smoke_total REAL NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartRun records a new run and returns its id.
func (db *DB) StartRun(plan string, seed int64, p config.Params) (string, error) {
	paramsJSON, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	id := uuid.NewString()
	_, err = db.conn.Exec(db.conn.Rebind(
		"INSERT INTO runs (id, plan, seed, params_json, started_at) VALUES (?, ?, ?, ?, ?)"),
		id, plan, seed, string(paramsJSON), time.Now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	slog.Info("run started", "run", id, "plan", plan, "seed", seed)
	return id, nil
}

// SaveEvents appends events for a run.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(tx.Rebind(`INSERT INTO events
		(run_id, tick, elapsed, kind, agent_id, storey, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		_, err := stmt.Exec(runID, int64(e.Tick), e.Elapsed, e.Kind.String(),
			int64(e.AgentID), string(e.Storey), e.Description)
		if err != nil {
			return fmt.Errorf("insert event at tick %d: %w", e.Tick, err)
		}
	}
	return tx.Commit()
}

// SaveTickStats records one statistics sample for a run.
func (db *DB) SaveTickStats(runID string, st engine.Stats) error {
	_, err := db.conn.Exec(db.conn.Rebind(`INSERT INTO tick_stats
		(run_id, tick, elapsed, alive, dead, evacuated, safe, burning, burned_out, smoke_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		runID, int64(st.Tick), st.Elapsed, st.Alive, st.Dead, st.Evacuated, st.Safe,
		st.Burning, st.BurnedOut, st.SmokeTotal,
	)
	return err
}

// FinishRun stamps a run with its final statistics.
func (db *DB) FinishRun(runID string, st engine.Stats) error {
	res, err := db.conn.Exec(db.conn.Rebind(`UPDATE runs SET
		finished_at = ?, ticks = ?, elapsed = ?, total = ?, dead = ?, evacuated = ?, safe = ?
		WHERE id = ?`),
		time.Now().UnixMilli(), int64(st.Tick), st.Elapsed, st.Total, st.Dead, st.Evacuated, st.Safe,
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNotFound)
	}
	slog.Info("run finished", "run", runID, "ticks", st.Tick, "dead", st.Dead, "safe", st.Safe)
	return nil
}

// Run loads one run by id.
func (db *DB) Run(runID string) (RunRecord, error) {
	var r RunRecord
	err := db.conn.Get(&r, db.conn.Rebind("SELECT * FROM runs WHERE id = ?"), runID)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return r, err
}

// RecentEvents returns a run's most recent events, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]EventRecord, error) {
	var events []EventRecord
	err := db.conn.Select(&events, db.conn.Rebind(`SELECT
		run_id, tick, elapsed, kind, agent_id, storey, description
		FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?`),
		runID, limit,
	)
	return events, err
}

// TickStats returns a run's statistics samples in tick order.
func (db *DB) TickStats(runID string) ([]TickRecord, error) {
	var rows []TickRecord
	err := db.conn.Select(&rows, db.conn.Rebind(`SELECT
		tick, elapsed, alive, dead, evacuated, safe, burning, burned_out, smoke_total
		FROM tick_stats WHERE run_id = ? ORDER BY tick`),
		runID,
	)
	return rows, err
}

// SaveMeta stores a key-value pair in run metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(db.conn.Rebind(
		`INSERT INTO run_meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`),
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, db.conn.Rebind("SELECT value FROM run_meta WHERE key = ?"), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("meta %q: %w", key, ErrNotFound)
	}
	return value, err
}
