package artifact

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one persisted artifact in the ledger
type Record struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	Detections int       `json:"detections"`
	ClassIDs   []int     `json:"class_ids"`
	Mode       string    `json:"mode"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ledger records saved artifacts in SQLite
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens the ledger database and applies migrations
func OpenLedger(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets /artifacts read while the persister writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the database connection
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS artifacts (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			filename TEXT,
			file_size INTEGER DEFAULT 0,
			detections INTEGER DEFAULT 0,
			class_ids TEXT,
			mode TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := l.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Append inserts a record
func (l *Ledger) Append(r *Record) error {
	classIDs := r.ClassIDs
	if classIDs == nil {
		classIDs = []int{}
	}
	classJSON, err := json.Marshal(classIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal class ids: %w", err)
	}

	query := `INSERT INTO artifacts
		(id, path, filename, file_size, detections, class_ids, mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = l.db.Exec(query, r.ID, r.Path, r.Filename, r.FileSize, r.Detections,
		string(classJSON), r.Mode, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save artifact record: %w", err)
	}
	return nil
}

// Get retrieves a record by id; a missing id returns nil without error
func (l *Ledger) Get(id string) (*Record, error) {
	query := `SELECT id, path, filename, file_size, detections, class_ids, mode, created_at
		FROM artifacts WHERE id = ?`

	r, err := scanRecord(l.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact record: %w", err)
	}
	return r, nil
}

// List returns the most recent records first; limit <= 0 returns all
func (l *Ledger) List(limit int) ([]*Record, error) {
	query := `SELECT id, path, filename, file_size, detections, class_ids, mode, created_at
		FROM artifacts ORDER BY created_at DESC, rowid DESC`
	args := []interface{}{}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifact records: %w", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*Record, error) {
	var r Record
	var filename, classJSON sql.NullString

	if err := s.Scan(&r.ID, &r.Path, &filename, &r.FileSize, &r.Detections,
		&classJSON, &r.Mode, &r.CreatedAt); err != nil {
		return nil, err
	}

	r.Filename = filename.String
	r.ClassIDs = []int{}
	if classJSON.String != "" {
		if err := json.Unmarshal([]byte(classJSON.String), &r.ClassIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal class ids: %w", err)
		}
	}
	return &r, nil
}
