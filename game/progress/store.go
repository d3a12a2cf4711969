package progress

import (
	"errors"

	"github.com/inconshreveable/log15"

	"github.com/wricardo/mcp-training/jigsaw/logging"
)

var (
	ErrNotFound = errors.New("progress record not found")
	ErrCorrupt  = errors.New("progress data is corrupt")
	ErrNoID     = errors.New("progress record has no puzzle id")
)

// Backend is the storage behind a Store. Implementations return ErrNotFound
// for missing ids and keep List in first-insertion order.
type Backend interface {
	Load(puzzleID string) (*Record, error)
	List() ([]Record, error)
	Save(rec Record) error
	Delete(puzzleID string) error
	Close() error
}

// Store wraps a Backend and turns its errors into logged absent/false results.
type Store struct {
	backend Backend
	log     log15.Logger
}

// NewStore creates a store over backend. A nil logger discards output.
func NewStore(backend Backend, logger log15.Logger) *Store {
	return &Store{
		backend: backend,
		log:     logging.OrDiscard(logger).New("component", "progress"),
	}
}

// Get returns the record for puzzleID.
func (s *Store) Get(puzzleID string) (Record, bool) {
	rec, err := s.backend.Load(puzzleID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error("Failed to load puzzle progress", "puzzle", puzzleID, "err", err)
		}
		return Record{}, false
	}
	return rec.Clone(), true
}

// Missing reports whether the backend positively has no record for
// puzzleID. A failed read is not a missing record.
func (s *Store) Missing(puzzleID string) bool {
	_, err := s.backend.Load(puzzleID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.log.Error("Failed to load puzzle progress", "puzzle", puzzleID, "err", err)
	}
	return errors.Is(err, ErrNotFound)
}

// GetAll returns every record in first-insertion order. Failures yield an
// empty list.
func (s *Store) GetAll() []Record {
	recs, err := s.backend.List()
	if err != nil {
		s.log.Error("Failed to list puzzle progress", "err", err)
		return []Record{}
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs
}

// Save replaces the record with the same puzzle id, or appends it.
func (s *Store) Save(rec Record) bool {
	if rec.PuzzleID == "" {
		s.log.Warn("Refusing to save puzzle progress", "err", ErrNoID)
		return false
	}
	if err := s.backend.Save(rec.Clone()); err != nil {
		s.log.Error("Failed to save puzzle progress", "puzzle", rec.PuzzleID, "err", err)
		return false
	}
	s.log.Debug("Saved puzzle progress", "puzzle", rec.PuzzleID, "completed", rec.IsCompleted)
	return true
}

// Clear removes the record. Clearing an absent id succeeds.
func (s *Store) Clear(puzzleID string) bool {
	if err := s.backend.Delete(puzzleID); err != nil && !errors.Is(err, ErrNotFound) {
		s.log.Error("Failed to clear puzzle progress", "puzzle", puzzleID, "err", err)
		return false
	}
	return true
}

// Status derives the display status of a puzzle.
func (s *Store) Status(puzzleID string) Status {
	rec, ok := s.Get(puzzleID)
	if !ok {
		return StatusNotStarted
	}
	return StatusOf(rec)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
