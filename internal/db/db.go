// Package db indexes the local product cache in SQLite so the API and CLI
// tools can list and look up downloaded target pixel files without walking
// the cache directory.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// FileRecord is one indexed target pixel file in the cache.
type FileRecord struct {
	ID           string    `json:"id"`
	Target       string    `json:"target"`
	Object       string    `json:"object"`
	Mission      string    `json:"mission"`
	Quarter      int       `json:"quarter"`
	Sector       int       `json:"sector"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	Cadences     int       `json:"cadences"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// NewDB opens (or creates) the cache index at path and ensures the base
// schema exists.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("failed to apply %q: %v", p, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			id                TEXT PRIMARY KEY,
			target            TEXT NOT NULL,
			object            TEXT,
			mission           TEXT NOT NULL,
			quarter           INTEGER DEFAULT 0,
			sector            INTEGER DEFAULT 0,
			path              TEXT NOT NULL UNIQUE,
			size              BIGINT,
			cadences          INTEGER,
			downloaded_at     TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_files_target ON files(target);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// RecordFile inserts or refreshes the index row for a cached file. Re-indexing
// the same path updates size and cadence count in place.
func (db *DB) RecordFile(rec FileRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("file record requires an id")
	}
	if rec.Path == "" {
		return fmt.Errorf("file record requires a path")
	}

	_, err := db.Exec(`
		INSERT INTO files (id, target, object, mission, quarter, sector, path, size, cadences)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			target = excluded.target,
			object = excluded.object,
			mission = excluded.mission,
			quarter = excluded.quarter,
			sector = excluded.sector,
			size = excluded.size,
			cadences = excluded.cadences
	`, rec.ID, rec.Target, rec.Object, rec.Mission, rec.Quarter, rec.Sector, rec.Path, rec.Size, rec.Cadences)
	if err != nil {
		return fmt.Errorf("failed to record file %s: %v", rec.Path, err)
	}
	return nil
}

const fileColumns = `id, target, COALESCE(object, ''), mission, quarter, sector, path, size, cadences, downloaded_at`

func scanFile(row interface{ Scan(...any) error }) (FileRecord, error) {
	var rec FileRecord
	err := row.Scan(&rec.ID, &rec.Target, &rec.Object, &rec.Mission, &rec.Quarter,
		&rec.Sector, &rec.Path, &rec.Size, &rec.Cadences, &rec.DownloadedAt)
	return rec, err
}

// ListFiles returns all indexed files, most recently downloaded first.
func (db *DB) ListFiles() ([]FileRecord, error) {
	rows, err := db.Query(`SELECT ` + fileColumns + ` FROM files ORDER BY downloaded_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %v", err)
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file row: %v", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetFile looks up one record by id. Returns sql.ErrNoRows when absent.
func (db *DB) GetFile(id string) (FileRecord, error) {
	return scanFile(db.QueryRow(`SELECT `+fileColumns+` FROM files WHERE id = ?`, id))
}

// GetFileByPath looks up one record by cache path. Returns sql.ErrNoRows when
// absent.
func (db *DB) GetFileByPath(path string) (FileRecord, error) {
	return scanFile(db.QueryRow(`SELECT `+fileColumns+` FROM files WHERE path = ?`, path))
}

// DeleteFile removes a record by id. Deleting an unknown id is not an error.
func (db *DB) DeleteFile(id string) error {
	if _, err := db.Exec(`DELETE FROM files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete file %s: %v", id, err)
	}
	return nil
}

// CacheStats summarizes the indexed cache.
type CacheStats struct {
	Files      int   `json:"files"`
	TotalBytes int64 `json:"total_bytes"`
}

// Stats returns aggregate counts over the index.
func (db *DB) Stats() (CacheStats, error) {
	var s CacheStats
	err := db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files`).Scan(&s.Files, &s.TotalBytes)
	if err != nil {
		return CacheStats{}, fmt.Errorf("failed to compute cache stats: %v", err)
	}
	return s, nil
}
