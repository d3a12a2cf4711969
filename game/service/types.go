package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/session"
)

// OpenRequest describes a puzzle to open. GridSize overrides the preset when
// positive; Threshold overrides it whenever set, zero included.
type OpenRequest struct {
	SubjectID string   `json:"subject_id"`
	Kind      string   `json:"kind"`
	ImageRef  string   `json:"image_ref"`
	Preset    string   `json:"preset,omitempty"`
	GridSize  int      `json:"grid_size,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// PuzzleInfo provides information about an open puzzle
type PuzzleInfo struct {
	ID             string         `json:"id"`
	SubjectID      string         `json:"subject_id"`
	Kind           string         `json:"kind"`
	CreatedAt      time.Time      `json:"created_at"`
	LastAccessedAt time.Time      `json:"last_accessed_at"`
	State          *session.State `json:"state"`
}

// PointerRequest is a pointer event from a remote client. Input selects
// "mouse" (default) or "touch"; mouse events use ClientX/ClientY, touch
// events the first entry of Touches.
type PointerRequest struct {
	Action  string              `json:"action"`
	Input   string              `json:"input,omitempty"`
	PieceID *int                `json:"piece_id,omitempty"`
	ClientX float64             `json:"client_x"`
	ClientY float64             `json:"client_y"`
	Touches []engine.TouchPoint `json:"touches,omitempty"`
	Bounds  engine.Rect         `json:"bounds"`
}

// PointerInput builds the device input for the request.
func (r PointerRequest) PointerInput() (engine.PointerInput, error) {
	action, err := engine.ParseAction(r.Action)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	switch strings.ToLower(r.Input) {
	case "", "mouse", "pointer":
		return engine.MouseInput{Kind: action, ClientX: r.ClientX, ClientY: r.ClientY}, nil
	case "touch":
		return engine.TouchInput{Kind: action, Touches: r.Touches}, nil
	}
	return nil, fmt.Errorf("%w: unknown input %q", ErrInvalidRequest, r.Input)
}

// PointerResult contains the outcome of a pointer event
type PointerResult struct {
	Transition engine.Transition `json:"transition"`
	// Completed is true only for the event that finished the puzzle.
	Completed bool           `json:"completed"`
	Message   string         `json:"message,omitempty"`
	State     *session.State `json:"state"`
}

// PresetInfo provides information about a difficulty preset
type PresetInfo struct {
	Filename     string  `json:"filename"`
	PresetID     string  `json:"preset_id"` // The identifier to use when opening puzzles
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	GridSize     int     `json:"grid_size"`
	Threshold    float64 `json:"threshold"`
	ScatterRange float64 `json:"scatter_range"`
}

// Messages shown to players.
const (
	MessageCompleted = "Puzzle completed! 🎉"
	MessageReset     = "Puzzle reset!"
)
