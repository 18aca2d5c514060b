// Package historydb records completed fetches in a small embedded SQLite
// database, adapting the teacher's JSON MasterList concept onto a real
// database driver already present in its dependency graph.
package historydb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one completed-fetch record.
type Entry struct {
	RunID       uuid.UUID
	Model       string
	Region      string
	Version     string
	OutputPath  string
	Size        int64
	CompletedAt time.Time
}

// DB wraps a SQLite-backed history store.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS history (
	run_id       TEXT PRIMARY KEY,
	model        TEXT NOT NULL,
	region       TEXT NOT NULL,
	version      TEXT NOT NULL,
	output_path  TEXT NOT NULL,
	size         INTEGER NOT NULL,
	completed_at INTEGER NOT NULL
);`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close releases the underlying database handle.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Record inserts a completed-fetch entry.
func (d *DB) Record(e Entry) error {
	const stmt = `
INSERT INTO history (run_id, model, region, version, output_path, size, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
	output_path = excluded.output_path,
	size = excluded.size,
	completed_at = excluded.completed_at;`

	_, err := d.conn.Exec(stmt, e.RunID.String(), e.Model, e.Region, e.Version, e.OutputPath, e.Size, e.CompletedAt.Unix())
	if err != nil {
		return fmt.Errorf("record history entry: %w", err)
	}
	return nil
}

// List returns all history entries, most recently completed first.
func (d *DB) List() ([]Entry, error) {
	rows, err := d.conn.Query(`SELECT run_id, model, region, version, output_path, size, completed_at FROM history ORDER BY completed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			runID     string
			completed int64
			e         Entry
		)
		if err := rows.Scan(&runID, &e.Model, &e.Region, &e.Version, &e.OutputPath, &e.Size, &completed); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		parsed, err := uuid.Parse(runID)
		if err != nil {
			return nil, fmt.Errorf("parse history run id: %w", err)
		}
		e.RunID = parsed
		e.CompletedAt = time.Unix(completed, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
