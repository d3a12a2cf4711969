package progress

import "github.com/wricardo/mcp-training/jigsaw/game/engine"

// Status is the badge shown for a puzzle.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// StatusOf derives the status of a stored record.
func StatusOf(rec Record) Status {
	if rec.IsCompleted {
		return StatusCompleted
	}
	return StatusInProgress
}

// SubjectStatus returns the status of every kind for one subject.
func (s *Store) SubjectStatus(subjectID string) map[Kind]Status {
	out := make(map[Kind]Status, len(Kinds))
	for _, k := range Kinds {
		out[k] = s.Status(PuzzleID(subjectID, k))
	}
	return out
}

// Summary is a compact view of a record for listings.
type Summary struct {
	PuzzleID    string `json:"puzzle_id"`
	SubjectID   string `json:"subject_id"`
	Kind        Kind   `json:"kind"`
	Status      Status `json:"status"`
	PlacedCount int    `json:"placed_count"`
	TotalPieces int    `json:"total_pieces"`
	StartedAt   int64  `json:"started_at"`
	CompletedAt *int64 `json:"completed_at,omitempty"`
	// DurationMs is the solve time for completed puzzles.
	DurationMs int64 `json:"duration_ms,omitempty"`
}

// Summarize builds a Summary from a record.
func Summarize(rec Record) Summary {
	subject, kind, ok := SplitPuzzleID(rec.PuzzleID)
	if !ok {
		kind = rec.PuzzleKind
	}
	sum := Summary{
		PuzzleID:    rec.PuzzleID,
		SubjectID:   subject,
		Kind:        kind,
		Status:      StatusOf(rec),
		PlacedCount: engine.PlacedCount(rec.Pieces),
		TotalPieces: len(rec.Pieces),
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
	}
	if d, ok := solveDuration(rec); ok {
		sum.DurationMs = d
	}
	return sum
}

func solveDuration(rec Record) (int64, bool) {
	if !rec.IsCompleted || rec.CompletedAt == nil || *rec.CompletedAt < rec.StartedAt {
		return 0, false
	}
	return *rec.CompletedAt - rec.StartedAt, true
}
