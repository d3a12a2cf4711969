package session

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/progress"
	"github.com/wricardo/mcp-training/jigsaw/logging"
)

var ErrMissingSubject = errors.New("missing subject id")

// ProgressStore is the subset of progress.Store a session needs.
type ProgressStore interface {
	Get(puzzleID string) (progress.Record, bool)
	Save(rec progress.Record) bool
}

// OpenOptions describe the puzzle to open.
type OpenOptions struct {
	SubjectID string
	Kind      progress.Kind
	ImageRef  string
	// Settings zero fields fall back to engine defaults.
	Settings engine.Settings
	// Threshold, when set, replaces Settings.Threshold after defaults are
	// applied, so an exact-match threshold of zero can be asked for.
	Threshold *float64
	// Preset is informational; Settings is what applies.
	Preset string

	Rand       engine.RandSource
	Clock      func() time.Time
	OnComplete func(State)
	Logger     log15.Logger
}

// State is a snapshot for rendering.
type State struct {
	PuzzleID    string           `json:"puzzle_id"`
	SubjectID   string           `json:"subject_id"`
	Kind        progress.Kind    `json:"kind"`
	ImageRef    string           `json:"image_ref"`
	Preset      string           `json:"preset,omitempty"`
	Settings    engine.Settings  `json:"settings"`
	Pieces      []engine.Piece   `json:"pieces"`
	Drag        engine.DragState `json:"drag"`
	IsCompleted bool             `json:"is_completed"`
	PlacedCount int              `json:"placed_count"`
	TotalPieces int              `json:"total_pieces"`
	StartedAt   int64            `json:"started_at"`
	CompletedAt *int64           `json:"completed_at,omitempty"`
	// Persisted is false when the last save failed.
	Persisted bool `json:"persisted"`
	Resumed   bool `json:"resumed"`
}

// Update is the result of one handler call.
type Update struct {
	State      State             `json:"state"`
	Transition engine.Transition `json:"transition"`
	// Completed is true only on the call that completed the puzzle.
	Completed bool `json:"completed"`
}

// Session is one open puzzle. All handlers are serialized.
type Session struct {
	mu sync.Mutex

	id        string
	subjectID string
	kind      progress.Kind
	imageRef  string
	preset    string
	settings  engine.Settings

	store      ProgressStore
	generator  *engine.Generator
	controller engine.DragController
	clock      func() time.Time
	onComplete func(State)
	log        log15.Logger

	board       engine.Board
	completed   bool
	startedAt   int64
	completedAt *int64
	persisted   bool
	resumed     bool
	// provisional is set on sessions reopened at startup with default
	// settings; see Manager.Open.
	provisional bool

	createdAt      time.Time
	lastAccessedAt time.Time
}

// Open loads saved progress for the puzzle or generates and saves a fresh
// layout.
func Open(store ProgressStore, opts OpenOptions) (*Session, error) {
	if opts.SubjectID == "" {
		return nil, ErrMissingSubject
	}
	kind, err := progress.ParseKind(string(opts.Kind))
	if err != nil {
		return nil, err
	}
	if opts.ImageRef == "" {
		return nil, engine.ErrMissingImage
	}
	settings := resolveSettings(opts)
	if err := engine.ValidateSettings(settings); err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	id := progress.PuzzleID(opts.SubjectID, kind)
	s := &Session{
		id:         id,
		subjectID:  opts.SubjectID,
		kind:       kind,
		imageRef:   opts.ImageRef,
		preset:     opts.Preset,
		settings:   settings,
		store:      store,
		generator:  engine.NewGenerator(opts.Rand, settings.ScatterRange),
		controller: engine.NewDragController(settings.Threshold),
		clock:      clock,
		onComplete: opts.OnComplete,
		log:        logging.OrDiscard(opts.Logger).New("puzzle", id),
	}
	now := clock()
	s.createdAt, s.lastAccessedAt = now, now

	if rec, ok := store.Get(id); ok && engine.ValidLayout(rec.Pieces, settings.GridSize) {
		s.restore(rec)
		s.log.Debug("Resumed puzzle", "placed", engine.PlacedCount(rec.Pieces), "completed", rec.IsCompleted)
		return s, nil
	} else if ok {
		s.log.Warn("Discarding saved progress that does not match the grid", "pieces", len(rec.Pieces), "grid_size", settings.GridSize)
	}

	pieces, err := s.generator.Generate(settings.GridSize, opts.ImageRef)
	if err != nil {
		return nil, fmt.Errorf("failed to generate pieces: %w", err)
	}
	s.board = engine.Board{Pieces: pieces}
	s.startedAt = now.UnixMilli()
	s.persist()
	return s, nil
}

func resolveSettings(opts OpenOptions) engine.Settings {
	settings := opts.Settings.WithDefaults()
	if opts.Threshold != nil {
		settings.Threshold = *opts.Threshold
	}
	return settings
}

func (s *Session) restore(rec progress.Record) {
	s.board = engine.Board{Pieces: engine.ClonePieces(rec.Pieces)}
	s.startedAt = rec.StartedAt
	// A stored flag that disagrees with the pieces is recomputed.
	s.completed = engine.IsComplete(rec.Pieces)
	if s.completed {
		if rec.CompletedAt != nil {
			v := *rec.CompletedAt
			s.completedAt = &v
		} else {
			v := rec.StartedAt
			s.completedAt = &v
		}
	}
	s.board.Frozen = s.completed
	s.persisted = true
	s.resumed = true
}

// Provisional reports whether the session still runs on the default
// settings it was restored with.
func (s *Session) Provisional() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provisional
}

// adopt applies the options of an explicit open to a provisional session.
// It reports false when the requested grid does not match the layout.
func (s *Session) adopt(opts OpenOptions) bool {
	settings := resolveSettings(opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if settings.GridSize*settings.GridSize != len(s.board.Pieces) {
		return false
	}
	s.settings = settings
	s.preset = opts.Preset
	s.controller = engine.NewDragController(settings.Threshold)
	s.generator = engine.NewGenerator(opts.Rand, settings.ScatterRange)
	s.onComplete = opts.OnComplete
	s.provisional = false
	return true
}

// ID returns the puzzle id.
func (s *Session) ID() string { return s.id }

// SubjectID returns the subject the puzzle belongs to.
func (s *Session) SubjectID() string { return s.subjectID }

// Kind returns the puzzle kind.
func (s *Session) Kind() progress.Kind { return s.kind }

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastAccessedAt returns the time of the last handler call.
func (s *Session) LastAccessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessedAt
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// PointerDown starts dragging pieceID if nothing else is being dragged.
func (s *Session) PointerDown(pieceID int, in engine.PointerInput, bounds engine.Rect) Update {
	return s.apply(engine.Normalize(in, pieceID, bounds))
}

// PointerMove moves the active piece.
func (s *Session) PointerMove(in engine.PointerInput, bounds engine.Rect) Update {
	return s.apply(engine.Normalize(in, -1, bounds))
}

// PointerUp releases the active piece, snapping it when close enough.
func (s *Session) PointerUp(in engine.PointerInput) Update {
	return s.apply(engine.Normalize(in, -1, engine.Rect{}))
}

// PointerLeave behaves like PointerUp.
func (s *Session) PointerLeave() Update {
	return s.apply(engine.Event{Action: engine.ActionLeave})
}

// Apply handles an already-normalized event.
func (s *Session) Apply(ev engine.Event) Update {
	return s.apply(ev)
}

func (s *Session) apply(ev engine.Event) Update {
	s.mu.Lock()
	s.lastAccessedAt = s.clock()
	board, tr := s.controller.Apply(s.board, ev)
	if !tr.Changed() {
		u := Update{State: s.snapshot(), Transition: tr}
		s.mu.Unlock()
		return u
	}
	s.board = board
	completed := s.detectCompletion()
	s.persist()
	u := Update{State: s.snapshot(), Transition: tr, Completed: completed}
	onComplete := s.onComplete
	s.mu.Unlock()

	if tr == engine.TransitionSnap {
		s.log.Debug("Piece placed", "placed", u.State.PlacedCount, "total", u.State.TotalPieces)
	}
	if completed {
		s.log.Info("Puzzle completed!", "duration_ms", *u.State.CompletedAt-u.State.StartedAt)
		if onComplete != nil {
			onComplete(u.State)
		}
	}
	return u
}

// detectCompletion records the false->true edge. Callers hold s.mu.
func (s *Session) detectCompletion() bool {
	if s.completed || len(s.board.Pieces) == 0 || !engine.IsComplete(s.board.Pieces) {
		return false
	}
	s.completed = true
	now := s.clock().UnixMilli()
	s.completedAt = &now
	s.board.Frozen = true
	s.board.Drag = engine.DragState{}
	return true
}

// Reset regenerates the layout and restarts the timer. The new start time is
// strictly later than any time previously recorded for this session.
func (s *Session) Reset() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pieces, err := s.generator.Generate(s.settings.GridSize, s.imageRef)
	if err != nil {
		return s.snapshot(), fmt.Errorf("failed to generate pieces: %w", err)
	}

	now := s.clock()
	s.lastAccessedAt = now
	started := now.UnixMilli()
	floor := s.startedAt
	if s.completedAt != nil && *s.completedAt > floor {
		floor = *s.completedAt
	}
	if started <= floor && floor < math.MaxInt64 {
		started = floor + 1
	}

	s.board = engine.Board{Pieces: pieces}
	s.completed = false
	s.completedAt = nil
	s.startedAt = started
	s.resumed = false
	s.persist()
	s.log.Info("Puzzle reset!")
	return s.snapshot(), nil
}

// persist writes the current record. Callers hold s.mu.
func (s *Session) persist() {
	rec := progress.Record{
		PuzzleID:    s.id,
		Pieces:      engine.ClonePieces(s.board.Pieces),
		IsCompleted: s.completed,
		StartedAt:   s.startedAt,
		PuzzleKind:  s.kind,
	}
	if s.completedAt != nil {
		v := *s.completedAt
		rec.CompletedAt = &v
	}
	s.persisted = s.store.Save(rec)
	if !s.persisted {
		s.log.Warn("Progress not saved; continuing in memory")
	}
}

// snapshot builds a State. Callers hold s.mu.
func (s *Session) snapshot() State {
	st := State{
		PuzzleID:    s.id,
		SubjectID:   s.subjectID,
		Kind:        s.kind,
		ImageRef:    s.imageRef,
		Preset:      s.preset,
		Settings:    s.settings,
		Pieces:      engine.ClonePieces(s.board.Pieces),
		Drag:        s.board.Drag,
		IsCompleted: s.completed,
		PlacedCount: engine.PlacedCount(s.board.Pieces),
		TotalPieces: len(s.board.Pieces),
		StartedAt:   s.startedAt,
		Persisted:   s.persisted,
		Resumed:     s.resumed,
	}
	if s.completedAt != nil {
		v := *s.completedAt
		st.CompletedAt = &v
	}
	return st
}
