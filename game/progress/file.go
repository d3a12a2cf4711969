package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultNamespace matches the key the browser app used in localStorage.
const DefaultNamespace = "globe-trotter-puzzles"

// FileBackend stores every record of a namespace as one JSON array file,
// replaced atomically on each write.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend creates a backend writing <dir>/<namespace>.json.
func NewFileBackend(dir, namespace string) (*FileBackend, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create progress directory: %w", err)
	}
	return &FileBackend{path: filepath.Join(dir, namespace+".json")}, nil
}

// Path returns the backing file.
func (fb *FileBackend) Path() string {
	return fb.path
}

func (fb *FileBackend) Load(puzzleID string) (*Record, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	recs, err := fb.readAll()
	if err != nil {
		return nil, err
	}
	for i := range recs {
		if recs[i].PuzzleID == puzzleID {
			return &recs[i], nil
		}
	}
	return nil, ErrNotFound
}

func (fb *FileBackend) List() ([]Record, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	return fb.readAll()
}

func (fb *FileBackend) Save(rec Record) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	recs, err := fb.readAll()
	if errors.Is(err, ErrCorrupt) {
		// Unreadable contents are replaced, as the browser app did.
		recs, err = nil, nil
	}
	if err != nil {
		return err
	}

	replaced := false
	for i := range recs {
		if recs[i].PuzzleID == rec.PuzzleID {
			recs[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		recs = append(recs, rec)
	}
	return fb.writeAll(recs)
}

func (fb *FileBackend) Delete(puzzleID string) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	recs, err := fb.readAll()
	if err != nil {
		return err
	}
	kept := recs[:0]
	found := false
	for _, rec := range recs {
		if rec.PuzzleID == puzzleID {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		return ErrNotFound
	}
	return fb.writeAll(kept)
}

func (fb *FileBackend) Close() error { return nil }

func (fb *FileBackend) readAll() ([]Record, error) {
	data, err := os.ReadFile(fb.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}
	if len(data) == 0 {
		return []Record{}, nil
	}

	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return recs, nil
}

func (fb *FileBackend) writeAll(recs []Record) error {
	if recs == nil {
		recs = []Record{}
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fb.path), ".progress-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write progress file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync progress file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close progress file: %w", err)
	}
	if err := os.Rename(tmpName, fb.path); err != nil {
		return fmt.Errorf("failed to replace progress file: %w", err)
	}
	return nil
}
