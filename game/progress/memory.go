package progress

import "sync"

// MemoryBackend keeps records in process memory.
type MemoryBackend struct {
	mu      sync.RWMutex
	records []Record
	index   map[string]int
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{index: make(map[string]int)}
}

func (m *MemoryBackend) Load(puzzleID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[puzzleID]
	if !ok {
		return nil, ErrNotFound
	}
	rec := m.records[i].Clone()
	return &rec, nil
}

func (m *MemoryBackend) List() ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, len(m.records))
	for i, rec := range m.records {
		out[i] = rec.Clone()
	}
	return out, nil
}

func (m *MemoryBackend) Save(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i, ok := m.index[rec.PuzzleID]; ok {
		m.records[i] = rec.Clone()
		return nil
	}
	m.index[rec.PuzzleID] = len(m.records)
	m.records = append(m.records, rec.Clone())
	return nil
}

func (m *MemoryBackend) Delete(puzzleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[puzzleID]
	if !ok {
		return ErrNotFound
	}
	m.records = append(m.records[:i], m.records[i+1:]...)
	delete(m.index, puzzleID)
	for j := i; j < len(m.records); j++ {
		m.index[m.records[j].PuzzleID] = j
	}
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
