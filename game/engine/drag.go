package engine

import "fmt"

// DragPhase is the drag state machine's phase.
type DragPhase int

const (
	PhaseIdle DragPhase = iota
	PhaseDragging
)

func (p DragPhase) String() string {
	if p == PhaseDragging {
		return "dragging"
	}
	return "idle"
}

func (p DragPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *DragPhase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "dragging":
		*p = PhaseDragging
	case "idle", "":
		*p = PhaseIdle
	default:
		return fmt.Errorf("unknown drag phase %q", b)
	}
	return nil
}

// Offset is a grab offset in percentage units.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DragState tracks the single active drag, if any.
type DragState struct {
	Phase         DragPhase `json:"phase"`
	ActivePieceID int       `json:"active_piece_id"`
	GrabOffset    Offset    `json:"grab_offset"`
}

// Dragging reports whether a piece is being dragged.
func (d DragState) Dragging() bool { return d.Phase == PhaseDragging }

// Board is the state the drag reducer works on.
type Board struct {
	Pieces []Piece   `json:"pieces"`
	Drag   DragState `json:"drag"`
	// Frozen boards ignore presses and moves. Set once the puzzle completes.
	Frozen bool `json:"frozen"`
}

// Transition describes what Apply did.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionGrab
	TransitionDrag
	TransitionSnap
	TransitionDrop
)

func (t Transition) String() string {
	switch t {
	case TransitionGrab:
		return "grab"
	case TransitionDrag:
		return "drag"
	case TransitionSnap:
		return "snap"
	case TransitionDrop:
		return "drop"
	default:
		return "none"
	}
}

func (t Transition) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Transition) UnmarshalText(b []byte) error {
	for _, c := range []Transition{TransitionNone, TransitionGrab, TransitionDrag, TransitionSnap, TransitionDrop} {
		if c.String() == string(b) {
			*t = c
			return nil
		}
	}
	return fmt.Errorf("unknown transition %q", b)
}

// Changed reports whether the board was modified.
func (t Transition) Changed() bool { return t != TransitionNone }

// DragController applies pointer events to a board. It holds no state.
type DragController struct {
	Threshold float64
}

// NewDragController creates a controller with the given snap threshold.
func NewDragController(threshold float64) DragController {
	return DragController{Threshold: threshold}
}

// Apply returns the board after ev. The input board is never mutated.
func (c DragController) Apply(b Board, ev Event) (Board, Transition) {
	switch ev.Action {
	case ActionPress:
		return c.press(b, ev)
	case ActionMove:
		return c.move(b, ev)
	case ActionRelease, ActionLeave:
		return c.release(b)
	}
	return b, TransitionNone
}

func (c DragController) press(b Board, ev Event) (Board, Transition) {
	if b.Frozen || b.Drag.Dragging() || !ev.HasPoint {
		return b, TransitionNone
	}
	idx := FindPiece(b.Pieces, ev.PieceID)
	if idx < 0 || b.Pieces[idx].IsPlaced {
		return b, TransitionNone
	}
	p := b.Pieces[idx]
	b.Drag = DragState{
		Phase:         PhaseDragging,
		ActivePieceID: p.ID,
		GrabOffset:    Offset{X: ev.X - p.X, Y: ev.Y - p.Y},
	}
	return b, TransitionGrab
}

func (c DragController) move(b Board, ev Event) (Board, Transition) {
	if b.Frozen || !b.Drag.Dragging() || !ev.HasPoint {
		return b, TransitionNone
	}
	idx := FindPiece(b.Pieces, b.Drag.ActivePieceID)
	if idx < 0 {
		return b, TransitionNone
	}
	pieces := ClonePieces(b.Pieces)
	p := &pieces[idx]
	p.X = clamp(ev.X-b.Drag.GrabOffset.X, 0, FullScale-p.Width)
	p.Y = clamp(ev.Y-b.Drag.GrabOffset.Y, 0, FullScale-p.Height)
	b.Pieces = pieces
	return b, TransitionDrag
}

func (c DragController) release(b Board) (Board, Transition) {
	if !b.Drag.Dragging() {
		return b, TransitionNone
	}
	idx := FindPiece(b.Pieces, b.Drag.ActivePieceID)
	b.Drag = DragState{}
	if idx < 0 {
		return b, TransitionDrop
	}
	p := b.Pieces[idx]
	if !IsPlaceable(p, p.X, p.Y, c.Threshold) {
		return b, TransitionDrop
	}
	pieces := ClonePieces(b.Pieces)
	pieces[idx] = Snap(p)
	b.Pieces = pieces
	return b, TransitionSnap
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
