package report

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// History is the optional SQLite run-history database. It keeps a durable
// record of past runs beyond the JSON summaries, queryable via the
// `history` command.
type History struct {
	conn *sql.DB
}

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_utc TEXT NOT NULL,
	duration_sec REAL NOT NULL,
	host TEXT NOT NULL,
	date TEXT NOT NULL,
	token TEXT NOT NULL,
	volumes_total INTEGER NOT NULL,
	volumes_processed INTEGER NOT NULL,
	failed INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS volumes (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	device TEXT NOT NULL,
	fstype TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	duration_sec REAL NOT NULL,
	error TEXT
);
CREATE INDEX IF NOT EXISTS idx_volumes_run ON volumes(run_id);
`

// OpenHistory opens or creates the database at path.
func OpenHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("report: create history directory: %w", err)
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("report: open history db: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("report: configure history db: %w", err)
	}
	if _, err := conn.Exec(historySchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("report: migrate history db: %w", err)
	}
	return &History{conn: conn}, nil
}

func (h *History) Close() error { return h.conn.Close() }

// InsertRun records a completed run and its per-volume results.
func (h *History) InsertRun(s RunSummary) error {
	tx, err := h.conn.Begin()
	if err != nil {
		return fmt.Errorf("report: begin history insert: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (started_utc, duration_sec, host, date, token, volumes_total, volumes_processed, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.StartedUTC.Format("2006-01-02T15:04:05Z"), s.DurationSec, s.Host, s.Date, s.Token,
		s.VolumesTotal, s.VolumesProcessed, s.Failed(),
	)
	if err != nil {
		return fmt.Errorf("report: insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("report: run id: %w", err)
	}
	for _, r := range s.Results {
		if _, err := tx.Exec(
			`INSERT INTO volumes (run_id, device, fstype, size_bytes, name, status, duration_sec, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, r.Device, r.FSType, r.SizeBytes, r.Name, r.Status, r.DurationSec, r.Error,
		); err != nil {
			return fmt.Errorf("report: insert volume result: %w", err)
		}
	}
	return tx.Commit()
}

// RunRecord is one row of the runs table as returned by RecentRuns.
type RunRecord struct {
	ID               int64   `json:"id"`
	StartedUTC       string  `json:"started_utc"`
	DurationSec      float64 `json:"duration_sec"`
	Host             string  `json:"host"`
	Date             string  `json:"date"`
	Token            string  `json:"token"`
	VolumesTotal     int     `json:"volumes_total"`
	VolumesProcessed int     `json:"volumes_processed"`
	Failed           int     `json:"failed"`
}

// RecentRuns returns up to limit runs, newest first.
func (h *History) RecentRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.conn.Query(
		`SELECT id, started_utc, duration_sec, host, date, token, volumes_total, volumes_processed, failed
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("report: query runs: %w", err)
	}
	defer rows.Close()
	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.StartedUTC, &r.DurationSec, &r.Host, &r.Date, &r.Token,
			&r.VolumesTotal, &r.VolumesProcessed, &r.Failed); err != nil {
			return nil, fmt.Errorf("report: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunVolumes returns the per-volume results recorded for one run.
func (h *History) RunVolumes(runID int64) ([]VolumeResult, error) {
	rows, err := h.conn.Query(
		`SELECT device, fstype, size_bytes, name, status, duration_sec, COALESCE(error, '')
		 FROM volumes WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("report: query volumes: %w", err)
	}
	defer rows.Close()
	var out []VolumeResult
	for rows.Next() {
		var r VolumeResult
		if err := rows.Scan(&r.Device, &r.FSType, &r.SizeBytes, &r.Name, &r.Status, &r.DurationSec, &r.Error); err != nil {
			return nil, fmt.Errorf("report: scan volume: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
