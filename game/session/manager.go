package session

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/progress"
	"github.com/wricardo/mcp-training/jigsaw/logging"
)

var ErrSessionNotFound = errors.New("session not found")

// Manager tracks open sessions by puzzle id.
type Manager struct {
	sessions   map[string]*Session
	store      ProgressStore
	log        log15.Logger
	clock      func() time.Time
	onComplete func(State)
	mu         sync.RWMutex
}

// NewManager creates a manager whose sessions persist to store.
func NewManager(store ProgressStore, logger log15.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		log:      logging.OrDiscard(logger).New("component", "sessions"),
		clock:    time.Now,
	}
}

// Open returns the open session for the puzzle, or opens one. An already
// open session is returned as is, except that a session reopened by Restore
// takes over the settings, preset and callbacks of its first explicit Open.
// When that Open asks for a different grid the saved layout is discarded and
// a fresh one generated.
func (m *Manager) Open(opts OpenOptions) (*Session, error) {
	return m.open(opts, false)
}

func (m *Manager) open(opts OpenOptions, provisional bool) (*Session, error) {
	kind, err := progress.ParseKind(string(opts.Kind))
	if err != nil {
		return nil, err
	}
	id := progress.PuzzleID(opts.SubjectID, kind)

	m.mu.Lock()
	defer m.mu.Unlock()

	if opts.Logger == nil {
		opts.Logger = m.log
	}
	if opts.Clock == nil {
		opts.Clock = m.clock
	}
	opts.Kind = kind
	opts.OnComplete = m.completionFor(opts.OnComplete)

	if sess, ok := m.sessions[id]; ok {
		sess.touch(m.clock())
		if provisional || !sess.Provisional() {
			return sess, nil
		}
		if err := engine.ValidateSettings(resolveSettings(opts)); err != nil {
			return nil, err
		}
		if sess.adopt(opts) {
			m.log.Info("Applied settings to restored puzzle", "puzzle", id, "preset", opts.Preset)
			return sess, nil
		}
		m.log.Warn("Restored puzzle has a different grid; starting over", "puzzle", id)
	}

	sess, err := Open(m.store, opts)
	if err != nil {
		return nil, err
	}
	sess.provisional = provisional
	m.sessions[id] = sess
	m.log.Info("Opened puzzle", "puzzle", id, "resumed", sess.resumed)
	return sess, nil
}

// SetCompletionHook registers fn to run once per completion edge of every
// session the manager opens, restored ones included.
func (m *Manager) SetCompletionHook(fn func(State)) {
	m.mu.Lock()
	m.onComplete = fn
	m.mu.Unlock()
}

// completionFor chains a per-session callback with the manager hook.
func (m *Manager) completionFor(fn func(State)) func(State) {
	return func(st State) {
		if fn != nil {
			fn(st)
		}
		m.mu.RLock()
		hook := m.onComplete
		m.mu.RUnlock()
		if hook != nil {
			hook(st)
		}
	}
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch(m.clock())
	return sess, nil
}

// List returns all open sessions.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

// Close forgets an open session. Saved progress is kept.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// CleanupIdle closes sessions not touched within maxAge.
func (m *Manager) CleanupIdle(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.clock().Add(-maxAge)
	removed := 0
	for id, sess := range m.sessions {
		if sess.LastAccessedAt().Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Restore reopens in-progress puzzles from saved records. The image and grid
// are derived from the records; threshold and scatter come from defaults
// until the puzzle is opened again with its own settings.
func (m *Manager) Restore(records []progress.Record, defaults engine.Settings) int {
	restored := 0
	for _, rec := range records {
		if rec.IsCompleted || len(rec.Pieces) == 0 {
			continue
		}
		subject, kind, ok := progress.SplitPuzzleID(rec.PuzzleID)
		if !ok {
			continue
		}
		grid := int(math.Round(math.Sqrt(float64(len(rec.Pieces)))))
		settings := defaults
		settings.GridSize = grid
		if _, err := m.open(OpenOptions{
			SubjectID: subject,
			Kind:      kind,
			ImageRef:  rec.Pieces[0].Image,
			Settings:  settings,
		}, true); err != nil {
			m.log.Warn("Failed to restore puzzle", "puzzle", rec.PuzzleID, "err", err)
			continue
		}
		restored++
	}
	if restored > 0 {
		m.log.Info("Restored in-progress puzzles", "count", restored)
	}
	return restored
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccessedAt = now
	s.mu.Unlock()
}
