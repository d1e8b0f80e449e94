package sizeopt

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ReportStore keeps a history of optimization runs in SQLite so builds can
// be compared over time.
type ReportStore struct {
	db *sql.DB
}

// RunSummary is the listing row for a stored run.
type RunSummary struct {
	RunID          string    `json:"run_id"`
	Timestamp      time.Time `json:"timestamp"`
	Platform       string    `json:"platform"`
	Tier           string    `json:"tier"`
	TotalBefore    int64     `json:"total_before"`
	TotalAfter     int64     `json:"total_after"`
	SavingsPercent float64   `json:"savings_percent"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	platform TEXT NOT NULL,
	tier TEXT NOT NULL,
	total_before INTEGER NOT NULL,
	total_after INTEGER NOT NULL,
	savings_percent REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS decisions (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	asset TEXT NOT NULL,
	kind TEXT NOT NULL,
	format TEXT NOT NULL,
	original_bytes INTEGER NOT NULL,
	estimated_bytes INTEGER NOT NULL,
	savings_frac REAL NOT NULL,
	accepted INTEGER NOT NULL,
	reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);
`

// OpenReportStore opens (and if needed initializes) a store at path.
func OpenReportStore(path string) (*ReportStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening report store: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing report store: %w", err)
	}

	return &ReportStore{db: db}, nil
}

// SaveReport persists a run and all its decisions in one transaction.
func (s *ReportStore) SaveReport(report *SizeReport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, timestamp, platform, tier, total_before, total_after, savings_percent)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.Timestamp.Format(time.RFC3339Nano), report.Platform, report.Tier,
		report.TotalBefore, report.TotalAfter, report.SavingsPercent,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO decisions (run_id, asset, kind, format, original_bytes, estimated_bytes, savings_frac, accepted, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing decision insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range report.Decisions {
		accepted := 0
		if d.Accepted {
			accepted = 1
		}
		if _, err := stmt.Exec(report.RunID, d.AssetName, string(d.Kind), string(d.Format),
			d.OriginalBytes, d.EstimatedBytes, d.SavingsFrac, accepted, d.Reason); err != nil {
			return fmt.Errorf("inserting decision for %q: %w", d.AssetName, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns run summaries, newest first.
func (s *ReportStore) ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT run_id, timestamp, platform, tier, total_before, total_after, savings_percent
		 FROM runs ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var ts string
		if err := rows.Scan(&r.RunID, &ts, &r.Platform, &r.Tier, &r.TotalBefore, &r.TotalAfter, &r.SavingsPercent); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if r.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parsing run timestamp: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun reconstructs a full report from storage.
func (s *ReportStore) GetRun(runID string) (*SizeReport, error) {
	report := &SizeReport{}
	var ts string
	err := s.db.QueryRow(
		`SELECT run_id, timestamp, platform, tier, total_before, total_after, savings_percent
		 FROM runs WHERE run_id = ?`, runID).
		Scan(&report.RunID, &ts, &report.Platform, &report.Tier,
			&report.TotalBefore, &report.TotalAfter, &report.SavingsPercent)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %q not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run: %w", err)
	}
	if report.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return nil, fmt.Errorf("parsing run timestamp: %w", err)
	}
	report.TotalSavedBytes = report.TotalBefore - report.TotalAfter

	rows, err := s.db.Query(
		`SELECT asset, kind, format, original_bytes, estimated_bytes, savings_frac, accepted, reason
		 FROM decisions WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading decisions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d Decision
		var accepted int
		if err := rows.Scan(&d.AssetName, &d.Kind, &d.Format, &d.OriginalBytes,
			&d.EstimatedBytes, &d.SavingsFrac, &accepted, &d.Reason); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		d.Accepted = accepted != 0
		report.Decisions = append(report.Decisions, d)
	}
	return report, rows.Err()
}

// Close releases the underlying database handle.
func (s *ReportStore) Close() error {
	return s.db.Close()
}
