package progress

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS puzzle_progress (
	puzzle_id    TEXT PRIMARY KEY,
	puzzle_kind  TEXT NOT NULL,
	pieces       TEXT NOT NULL,
	is_completed INTEGER NOT NULL DEFAULT 0,
	started_at   INTEGER NOT NULL,
	completed_at INTEGER,
	updated_at   INTEGER NOT NULL
);
`

// SQLiteBackend stores one row per puzzle. Row order follows first insertion.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLiteBackend opens or creates the database at path.
func OpenSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Load(puzzleID string) (*Record, error) {
	row := b.db.QueryRow(`SELECT puzzle_id, puzzle_kind, pieces, is_completed, started_at, completed_at
		FROM puzzle_progress WHERE puzzle_id = ?`, puzzleID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return rec, nil
}

func (b *SQLiteBackend) List() ([]Record, error) {
	rows, err := b.db.Query(`SELECT puzzle_id, puzzle_kind, pieces, is_completed, started_at, completed_at
		FROM puzzle_progress ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	recs := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

func (b *SQLiteBackend) Save(rec Record) error {
	pieces, err := json.Marshal(rec.Pieces)
	if err != nil {
		return fmt.Errorf("failed to marshal pieces: %w", err)
	}
	var completedAt sql.NullInt64
	if rec.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: *rec.CompletedAt, Valid: true}
	}

	_, err = b.db.Exec(`INSERT INTO puzzle_progress
		(puzzle_id, puzzle_kind, pieces, is_completed, started_at, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(puzzle_id) DO UPDATE SET
			puzzle_kind = excluded.puzzle_kind,
			pieces = excluded.pieces,
			is_completed = excluded.is_completed,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at`,
		rec.PuzzleID, string(rec.PuzzleKind), string(pieces), rec.IsCompleted,
		rec.StartedAt, completedAt, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Delete(puzzleID string) error {
	res, err := b.db.Exec(`DELETE FROM puzzle_progress WHERE puzzle_id = ?`, puzzleID)
	if err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connection
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		rec         Record
		kind        string
		pieces      string
		completedAt sql.NullInt64
	)
	if err := s.Scan(&rec.PuzzleID, &kind, &pieces, &rec.IsCompleted, &rec.StartedAt, &completedAt); err != nil {
		return nil, err
	}
	rec.PuzzleKind = Kind(kind)
	if err := json.Unmarshal([]byte(pieces), &rec.Pieces); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if completedAt.Valid {
		v := completedAt.Int64
		rec.CompletedAt = &v
	}
	return &rec, nil
}
