package db

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// runHistoryLimit caps locally kept bulk-run summaries.
const runHistoryLimit = 50

func InitDB(dataSourceName string) *sql.DB {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		log.Fatalf("Error connecting to sqlite3 db %s: %v", dataSourceName, err)
	}

	if err := db.Ping(); err != nil {
		log.Fatalf("Error pinging db: %v", err)
	}

	return db
}

// RunRecord is one locally stored bulk-run summary.
type RunRecord struct {
	ID            int64
	Mode          string // "find" or "verify"
	Source        string // CSV path
	TotalRows     int
	TotalBatches  int
	FailedBatches int
	Credits       int
	DurationMS    int64
	CreatedAt     time.Time
}

// EnsureRunHistory creates the runs table if missing.
func EnsureRunHistory(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mode TEXT NOT NULL,
		source TEXT,
		total_rows INTEGER,
		total_batches INTEGER,
		failed_batches INTEGER,
		credits INTEGER,
		duration_ms INTEGER,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

// RecordRun inserts a run summary and prunes history past the cap, oldest first.
func RecordRun(db *sql.DB, rec RunRecord) error {
	_, err := db.Exec(
		`INSERT INTO runs (mode, source, total_rows, total_batches, failed_batches, credits, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Mode, rec.Source, rec.TotalRows, rec.TotalBatches, rec.FailedBatches, rec.Credits, rec.DurationMS,
	)
	if err != nil {
		return err
	}

	_, err = db.Exec(
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`,
		runHistoryLimit,
	)
	return err
}

// ListRuns returns the most recent run summaries, newest first.
func ListRuns(db *sql.DB, limit int) ([]RunRecord, error) {
	if limit <= 0 || limit > runHistoryLimit {
		limit = runHistoryLimit
	}

	rows, err := db.Query(
		`SELECT id, mode, source, total_rows, total_batches, failed_batches, credits, duration_ms, created_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.Mode, &rec.Source, &rec.TotalRows, &rec.TotalBatches,
			&rec.FailedBatches, &rec.Credits, &rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
