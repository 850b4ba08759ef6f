// Package docdb is the SQLite-backed document metadata store. It tracks
// which files were ingested and their status transitions
// (Pending → Processed → Indexed, or Error); it owns no chunk or vector
// data.
package docdb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"docqa/internal/domain"
)

// ErrNotFound is returned when a document record does not exist.
var ErrNotFound = errors.New("document not found")

type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the metadata database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open document db: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			path TEXT UNIQUE NOT NULL,
			file_name TEXT NOT NULL,
			file_type TEXT NOT NULL,
			file_size INTEGER NOT NULL,
			status TEXT NOT NULL,
			chunk_count INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			metadata TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

// Create inserts a document record, assigning an id and Pending status when
// absent. Re-ingesting a known path replaces the previous record.
func (s *SQLiteStore) Create(rec domain.DocumentRecord) (domain.DocumentRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = domain.StatusPending
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return rec, fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO documents
			(id, path, file_name, file_type, file_size, status, chunk_count, error, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Path, rec.Name, rec.Type, rec.Size, string(rec.Status),
		rec.ChunkCount, rec.Error, string(meta),
		rec.CreatedAt.Format(time.RFC3339), rec.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return rec, fmt.Errorf("failed to insert document %s: %w", rec.Path, err)
	}
	return rec, nil
}

// SetStatus transitions a document and records its chunk count.
func (s *SQLiteStore) SetStatus(id string, status domain.DocumentStatus, chunkCount int) error {
	res, err := s.db.Exec(
		`UPDATE documents SET status = ?, chunk_count = ?, updated_at = ? WHERE id = ?`,
		string(status), chunkCount, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// MarkError transitions a document to the Error status with a description.
func (s *SQLiteStore) MarkError(id string, msg string) error {
	res, err := s.db.Exec(
		`UPDATE documents SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(domain.StatusError), msg, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStore) Get(id string) (domain.DocumentRecord, error) {
	row := s.db.QueryRow(selectColumns+` WHERE id = ?`, id)
	return scanRecord(row)
}

func (s *SQLiteStore) GetByPath(path string) (domain.DocumentRecord, error) {
	row := s.db.QueryRow(selectColumns+` WHERE path = ?`, path)
	return scanRecord(row)
}

func (s *SQLiteStore) List() ([]domain.DocumentRecord, error) {
	rows, err := s.db.Query(selectColumns + ` ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var records []domain.DocumentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectColumns = `SELECT id, path, file_name, file_type, file_size, status, chunk_count, error, metadata, created_at, updated_at FROM documents`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (domain.DocumentRecord, error) {
	var rec domain.DocumentRecord
	var status, meta, created, updated string

	err := row.Scan(&rec.ID, &rec.Path, &rec.Name, &rec.Type, &rec.Size,
		&status, &rec.ChunkCount, &rec.Error, &meta, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("failed to scan document row: %w", err)
	}

	rec.Status = domain.DocumentStatus(status)
	if meta != "" && meta != "null" {
		if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
			return rec, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return rec, nil
}
