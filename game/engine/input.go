package engine

import (
	"fmt"
	"math"
	"strings"
)

// PointerAction is the normalized kind of a pointer event.
type PointerAction int

const (
	ActionNone PointerAction = iota
	ActionPress
	ActionMove
	ActionRelease
	ActionLeave
)

func (a PointerAction) String() string {
	switch a {
	case ActionPress:
		return "down"
	case ActionMove:
		return "move"
	case ActionRelease:
		return "up"
	case ActionLeave:
		return "leave"
	default:
		return "none"
	}
}

// ParseAction accepts DOM-style names for mouse and touch events.
func ParseAction(s string) (PointerAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "down", "press", "pointerdown", "mousedown", "touchstart":
		return ActionPress, nil
	case "move", "pointermove", "mousemove", "touchmove":
		return ActionMove, nil
	case "up", "release", "pointerup", "mouseup", "touchend", "touchcancel":
		return ActionRelease, nil
	case "leave", "pointerleave", "mouseleave":
		return ActionLeave, nil
	}
	return ActionNone, fmt.Errorf("unknown pointer action %q", s)
}

// Rect is the on-screen bounding box of the puzzle container.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether the rect can map screen points to percentages.
func (r Rect) Valid() bool {
	for _, v := range []float64{r.Left, r.Top, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Width > 0 && r.Height > 0
}

// ToPercent converts a client point to container percentages.
func (r Rect) ToPercent(clientX, clientY float64) (float64, float64) {
	return (clientX - r.Left) / r.Width * FullScale, (clientY - r.Top) / r.Height * FullScale
}

// PointerInput is implemented by every device-specific event.
type PointerInput interface {
	Action() PointerAction
	// Position returns the client coordinates, or ok=false when the event
	// carries none.
	Position() (x, y float64, ok bool)
}

// MouseInput is a mouse event in client coordinates.
type MouseInput struct {
	Kind    PointerAction
	ClientX float64
	ClientY float64
}

func (m MouseInput) Action() PointerAction { return m.Kind }

func (m MouseInput) Position() (float64, float64, bool) {
	return m.ClientX, m.ClientY, finite(m.ClientX) && finite(m.ClientY)
}

// TouchPoint is one active touch in client coordinates.
type TouchPoint struct {
	ClientX float64 `json:"client_x"`
	ClientY float64 `json:"client_y"`
}

// TouchInput is a touch event; only the first touch is used. Touch-end
// events usually arrive with no active touches.
type TouchInput struct {
	Kind    PointerAction
	Touches []TouchPoint
}

func (t TouchInput) Action() PointerAction { return t.Kind }

func (t TouchInput) Position() (float64, float64, bool) {
	if len(t.Touches) == 0 {
		return 0, 0, false
	}
	first := t.Touches[0]
	return first.ClientX, first.ClientY, finite(first.ClientX) && finite(first.ClientY)
}

// Event is the device-independent input consumed by DragController.
type Event struct {
	Action  PointerAction
	PieceID int
	// HasPoint is false when the event has no usable position, either
	// because the device gave none or the container bounds are degenerate.
	HasPoint bool
	X        float64
	Y        float64
}

// Normalize converts a device event into percentage space.
func Normalize(in PointerInput, pieceID int, bounds Rect) Event {
	ev := Event{Action: in.Action(), PieceID: pieceID}
	cx, cy, ok := in.Position()
	if !ok || !bounds.Valid() {
		return ev
	}
	ev.X, ev.Y = bounds.ToPercent(cx, cy)
	ev.HasPoint = true
	return ev
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
