package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/formdrop/formdrop/internal/uid"
)

// timeFormat is the ISO 8601 format used for all timestamps in SQLite.
const timeFormat = "2006-01-02T15:04:05.000Z"

// SQLiteStore implements the ledger Store interface using SQLite as the
// backing database. It provides a durable record of upload outcomes suitable
// for single-node deployments; WAL mode auto-recovers on open, so startup
// after a crash needs no special handling.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore with the given DSN and initializes
// the database schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening SQLite database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing SQLite database: %w", err)
	}
	return s, nil
}

// initDB applies PRAGMAs and creates the required table and index.
// This is safe to call multiple times (idempotent via IF NOT EXISTS).
func (s *SQLiteStore) initDB() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("executing %q: %w", p, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS uploads (
			id            TEXT PRIMARY KEY,
			filename      TEXT NOT NULL,
			stored_name   TEXT NOT NULL DEFAULT '',
			content_type  TEXT NOT NULL DEFAULT '',
			size_bytes    INTEGER NOT NULL DEFAULT 0,
			status        TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_uploads_created_at
			ON uploads(created_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordUpload(ctx context.Context, rec *UploadRecord) error {
	id := rec.ID
	if id == "" {
		id = uid.New()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads
			(id, filename, stored_name, content_type, size_bytes, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.Filename, rec.StoredName, rec.ContentType, rec.SizeBytes,
		rec.Status, rec.ErrorMessage, createdAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting upload record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListUploads(ctx context.Context, limit int) ([]UploadRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, stored_name, content_type, size_bytes, status, error_message, created_at
		FROM uploads
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying upload records: %w", err)
	}
	defer rows.Close()

	var records []UploadRecord
	for rows.Next() {
		var rec UploadRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.StoredName, &rec.ContentType,
			&rec.SizeBytes, &rec.Status, &rec.ErrorMessage, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning upload record: %w", err)
		}
		if t, err := time.Parse(timeFormat, createdAt); err == nil {
			rec.CreatedAt = t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating upload records: %w", err)
	}
	return records, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
