package service

import (
	"context"
	"errors"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/progress"
	"github.com/wricardo/mcp-training/jigsaw/game/session"
)

var (
	ErrPuzzleNotFound   = errors.New("puzzle not found")
	ErrProgressNotFound = errors.New("progress not found")
	ErrInvalidRequest   = errors.New("invalid request")
)

// PuzzleService defines all puzzle-related operations
type PuzzleService interface {
	// Puzzles
	OpenPuzzle(ctx context.Context, req OpenRequest) (*PuzzleInfo, error)
	GetPuzzle(ctx context.Context, puzzleID string) (*PuzzleInfo, error)
	ListPuzzles(ctx context.Context) ([]*PuzzleInfo, error)
	ClosePuzzle(ctx context.Context, puzzleID string) error

	// Interaction
	Pointer(ctx context.Context, puzzleID string, req PointerRequest) (*PointerResult, error)
	Reset(ctx context.Context, puzzleID string) (*PuzzleInfo, error)

	// Saved progress
	ListProgress(ctx context.Context) ([]progress.Summary, error)
	GetProgress(ctx context.Context, puzzleID string) (*progress.Record, error)
	ClearProgress(ctx context.Context, puzzleID string) error
	ProgressStats(ctx context.Context) (*progress.Stats, error)
	SubjectStatus(ctx context.Context, subjectID string) (map[progress.Kind]progress.Status, error)

	// Presets
	ListPresets(ctx context.Context) ([]*PresetInfo, error)
	LoadPreset(ctx context.Context, name string) (*engine.Preset, error)
}

// SessionManager tracks open sessions
type SessionManager interface {
	Open(opts session.OpenOptions) (*session.Session, error)
	Get(id string) (*session.Session, error)
	List() []*session.Session
	Close(id string) error
	SetCompletionHook(fn func(session.State))
}

// ProgressStore reads and clears saved progress
type ProgressStore interface {
	Get(puzzleID string) (progress.Record, bool)
	GetAll() []progress.Record
	Clear(puzzleID string) bool
}

// PresetManager handles difficulty preset loading
type PresetManager interface {
	LoadPreset(name string) (*engine.Preset, error)
	ListPresets() ([]*PresetInfo, error)
	GetDefault() *engine.Preset
}
