// Package history persists a record of finished export jobs in SQLite so the
// CLI can show past runs across process restarts.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"clipforge/internal/media"
)

// Record describes one finished export run.
type Record struct {
	ID            int64
	JobID         string
	OutputPath    string
	Codec         media.Codec
	Format        media.Format
	Width         int
	Height        int
	FrameRate     int
	Quality       media.Quality
	Outcome       string
	ErrorMessage  string
	FileSize      int64
	FramesEncoded int64
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Outcome values stored for finished runs.
const (
	OutcomeComplete  = "complete"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Store wraps the SQLite handle.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the history database at dbPath.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS export_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id TEXT NOT NULL,
    output_path TEXT NOT NULL,
    codec TEXT NOT NULL,
    format TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    frame_rate INTEGER NOT NULL,
    quality TEXT NOT NULL,
    outcome TEXT NOT NULL,
    error_message TEXT,
    file_size INTEGER NOT NULL DEFAULT 0,
    frames_encoded INTEGER NOT NULL DEFAULT 0,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_export_history_finished_at
    ON export_history(finished_at DESC);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// Add inserts one finished run and returns its row id.
func (s *Store) Add(ctx context.Context, record *Record) (int64, error) {
	if record == nil {
		return 0, fmt.Errorf("nil history record")
	}
	result, err := s.db.ExecContext(ctx, `
INSERT INTO export_history (
    job_id, output_path, codec, format, width, height, frame_rate,
    quality, outcome, error_message, file_size, frames_encoded,
    started_at, finished_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.JobID,
		record.OutputPath,
		string(record.Codec),
		string(record.Format),
		record.Width,
		record.Height,
		record.FrameRate,
		record.Quality.String(),
		record.Outcome,
		nullableString(record.ErrorMessage),
		record.FileSize,
		record.FramesEncoded,
		record.StartedAt.UTC().Format(time.RFC3339Nano),
		record.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert history record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted id: %w", err)
	}
	record.ID = id
	return id, nil
}

// List returns up to limit records, most recently finished first. A limit of
// zero or less returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	query := `
SELECT id, job_id, output_path, codec, format, width, height, frame_rate,
       quality, outcome, error_message, file_size, frames_encoded,
       started_at, finished_at
FROM export_history
ORDER BY finished_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	var (
		record       Record
		codec        string
		format       string
		quality      string
		errorMessage sql.NullString
		startedAt    string
		finishedAt   string
	)
	if err := rows.Scan(
		&record.ID,
		&record.JobID,
		&record.OutputPath,
		&codec,
		&format,
		&record.Width,
		&record.Height,
		&record.FrameRate,
		&quality,
		&record.Outcome,
		&errorMessage,
		&record.FileSize,
		&record.FramesEncoded,
		&startedAt,
		&finishedAt,
	); err != nil {
		return nil, fmt.Errorf("scan history row: %w", err)
	}

	record.Codec = media.Codec(codec)
	record.Format = media.Format(format)
	if parsed, err := media.ParseQuality(quality); err == nil {
		record.Quality = parsed
	}
	record.ErrorMessage = errorMessage.String
	if parsed, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		record.StartedAt = parsed
	}
	if parsed, err := time.Parse(time.RFC3339Nano, finishedAt); err == nil {
		record.FinishedAt = parsed
	}
	return &record, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk location of the database.
func (s *Store) Path() string { return s.path }

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
