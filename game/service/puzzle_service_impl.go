package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/progress"
	"github.com/wricardo/mcp-training/jigsaw/game/session"
	"github.com/wricardo/mcp-training/jigsaw/logging"
)

// Option configures the puzzle service.
type Option func(*puzzleServiceImpl)

// WithLogger sets the service logger.
func WithLogger(l log15.Logger) Option {
	return func(s *puzzleServiceImpl) { s.log = logging.OrDiscard(l).New("component", "service") }
}

// WithCompletionHook registers a callback fired once per completed puzzle.
func WithCompletionHook(fn func(session.State)) Option {
	return func(s *puzzleServiceImpl) { s.hooks = append(s.hooks, fn) }
}

// WithRand sets the random source for new layouts.
func WithRand(rnd engine.RandSource) Option {
	return func(s *puzzleServiceImpl) { s.rnd = rnd }
}

// WithClock sets the clock used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *puzzleServiceImpl) { s.clock = clock }
}

// puzzleServiceImpl implements the PuzzleService interface
type puzzleServiceImpl struct {
	sessions SessionManager
	store    ProgressStore
	presets  PresetManager
	hooks    []func(session.State)
	rnd      engine.RandSource
	clock    func() time.Time
	log      log15.Logger
}

// NewPuzzleService creates a new puzzle service instance. It takes over the
// session manager's completion hook, so puzzles restored before the service
// existed report their completion too.
func NewPuzzleService(sessions SessionManager, store ProgressStore, presets PresetManager, opts ...Option) PuzzleService {
	s := &puzzleServiceImpl{
		sessions: sessions,
		store:    store,
		presets:  presets,
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	sessions.SetCompletionHook(s.completed)
	return s
}

// OpenPuzzle opens (or resumes) a puzzle
func (s *puzzleServiceImpl) OpenPuzzle(ctx context.Context, req OpenRequest) (*PuzzleInfo, error) {
	if req.SubjectID == "" {
		return nil, fmt.Errorf("%w: subject_id is required", ErrInvalidRequest)
	}
	kind, err := progress.ParseKind(req.Kind)
	if err != nil {
		return nil, err
	}

	preset, err := s.resolvePreset(req.Preset)
	if err != nil {
		return nil, err
	}
	settings := preset.Settings
	if req.GridSize > 0 {
		settings.GridSize = req.GridSize
	}

	sess, err := s.sessions.Open(session.OpenOptions{
		SubjectID:  req.SubjectID,
		Kind:       kind,
		ImageRef:   req.ImageRef,
		Settings:   settings,
		Threshold:  req.Threshold,
		Preset:     preset.Name,
		Rand:       s.rnd,
		Clock:      s.clock,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open puzzle: %w", err)
	}
	return puzzleInfo(sess), nil
}

func (s *puzzleServiceImpl) resolvePreset(name string) (*engine.Preset, error) {
	if name == "" {
		return s.presets.GetDefault(), nil
	}
	preset, err := s.presets.LoadPreset(name)
	if err == nil {
		return preset, nil
	}
	available, listErr := s.presets.ListPresets()
	if listErr == nil && len(available) > 0 {
		ids := make([]string, 0, len(available))
		for _, p := range available {
			ids = append(ids, p.PresetID)
		}
		return nil, fmt.Errorf("%w: preset '%s' not found. Available presets: %v", ErrInvalidRequest, name, ids)
	}
	return nil, fmt.Errorf("failed to load preset %s: %w", name, err)
}

func (s *puzzleServiceImpl) completed(st session.State) {
	s.log.Info(MessageCompleted, "puzzle", st.PuzzleID, "pieces", st.TotalPieces)
	for _, hook := range s.hooks {
		hook(st)
	}
}

// GetPuzzle returns an open puzzle
func (s *puzzleServiceImpl) GetPuzzle(ctx context.Context, puzzleID string) (*PuzzleInfo, error) {
	sess, err := s.get(puzzleID)
	if err != nil {
		return nil, err
	}
	return puzzleInfo(sess), nil
}

// ListPuzzles returns all open puzzles sorted by id
func (s *puzzleServiceImpl) ListPuzzles(ctx context.Context) ([]*PuzzleInfo, error) {
	sessions := s.sessions.List()
	result := make([]*PuzzleInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, puzzleInfo(sess))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ClosePuzzle closes an open puzzle; its progress is kept
func (s *puzzleServiceImpl) ClosePuzzle(ctx context.Context, puzzleID string) error {
	if err := s.sessions.Close(puzzleID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return fmt.Errorf("%w: %s", ErrPuzzleNotFound, puzzleID)
		}
		return err
	}
	return nil
}

// Pointer applies one pointer event to a puzzle
func (s *puzzleServiceImpl) Pointer(ctx context.Context, puzzleID string, req PointerRequest) (*PointerResult, error) {
	sess, err := s.get(puzzleID)
	if err != nil {
		return nil, err
	}
	in, err := req.PointerInput()
	if err != nil {
		return nil, err
	}

	var u session.Update
	switch in.Action() {
	case engine.ActionPress:
		if req.PieceID == nil {
			return nil, fmt.Errorf("%w: piece_id is required for %s", ErrInvalidRequest, req.Action)
		}
		u = sess.PointerDown(*req.PieceID, in, req.Bounds)
	case engine.ActionMove:
		u = sess.PointerMove(in, req.Bounds)
	case engine.ActionRelease:
		u = sess.PointerUp(in)
	case engine.ActionLeave:
		u = sess.PointerLeave()
	}

	result := &PointerResult{
		Transition: u.Transition,
		Completed:  u.Completed,
		State:      &u.State,
	}
	if u.Completed {
		result.Message = MessageCompleted
	}
	return result, nil
}

// Reset scatters the puzzle again and restarts its timer
func (s *puzzleServiceImpl) Reset(ctx context.Context, puzzleID string) (*PuzzleInfo, error) {
	sess, err := s.get(puzzleID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Reset(); err != nil {
		return nil, fmt.Errorf("failed to reset puzzle: %w", err)
	}
	return puzzleInfo(sess), nil
}

// ListProgress summarizes every saved puzzle
func (s *puzzleServiceImpl) ListProgress(ctx context.Context) ([]progress.Summary, error) {
	recs := s.store.GetAll()
	result := make([]progress.Summary, 0, len(recs))
	for _, rec := range recs {
		result = append(result, progress.Summarize(rec))
	}
	return result, nil
}

// GetProgress returns the saved record of a puzzle
func (s *puzzleServiceImpl) GetProgress(ctx context.Context, puzzleID string) (*progress.Record, error) {
	rec, ok := s.store.Get(puzzleID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProgressNotFound, puzzleID)
	}
	return &rec, nil
}

// ClearProgress deletes saved progress and closes the puzzle if open, so the
// next open starts fresh
func (s *puzzleServiceImpl) ClearProgress(ctx context.Context, puzzleID string) error {
	if !s.store.Clear(puzzleID) {
		return fmt.Errorf("failed to clear progress for %s", puzzleID)
	}
	if err := s.sessions.Close(puzzleID); err == nil {
		s.log.Debug("Closed puzzle after clearing progress", "puzzle", puzzleID)
	}
	return nil
}

// ProgressStats aggregates solve statistics
func (s *puzzleServiceImpl) ProgressStats(ctx context.Context) (*progress.Stats, error) {
	st := progress.ComputeStats(s.store.GetAll())
	return &st, nil
}

// SubjectStatus returns the status of each kind for a subject
func (s *puzzleServiceImpl) SubjectStatus(ctx context.Context, subjectID string) (map[progress.Kind]progress.Status, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidRequest)
	}
	result := make(map[progress.Kind]progress.Status, len(progress.Kinds))
	for _, k := range progress.Kinds {
		if rec, ok := s.store.Get(progress.PuzzleID(subjectID, k)); ok {
			result[k] = progress.StatusOf(rec)
		} else {
			result[k] = progress.StatusNotStarted
		}
	}
	return result, nil
}

// ListPresets returns the available presets
func (s *puzzleServiceImpl) ListPresets(ctx context.Context) ([]*PresetInfo, error) {
	return s.presets.ListPresets()
}

// LoadPreset returns a preset by name
func (s *puzzleServiceImpl) LoadPreset(ctx context.Context, name string) (*engine.Preset, error) {
	return s.presets.LoadPreset(name)
}

func (s *puzzleServiceImpl) get(puzzleID string) (*session.Session, error) {
	sess, err := s.sessions.Get(puzzleID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPuzzleNotFound, puzzleID)
		}
		return nil, err
	}
	return sess, nil
}

func puzzleInfo(sess *session.Session) *PuzzleInfo {
	st := sess.State()
	return &PuzzleInfo{
		ID:             sess.ID(),
		SubjectID:      sess.SubjectID(),
		Kind:           string(sess.Kind()),
		CreatedAt:      sess.CreatedAt(),
		LastAccessedAt: sess.LastAccessedAt(),
		State:          &st,
	}
}
