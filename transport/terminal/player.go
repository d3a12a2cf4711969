package terminal

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/inconshreveable/log15"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/service"
	"github.com/wricardo/mcp-training/jigsaw/game/session"
	"github.com/wricardo/mcp-training/jigsaw/logging"
)

// messageTTL is how long a toast stays on the status line.
const messageTTL = 3 * time.Second

// Puzzle is the session surface the player drives
type Puzzle interface {
	State() session.State
	PointerDown(pieceID int, in engine.PointerInput, bounds engine.Rect) session.Update
	PointerMove(in engine.PointerInput, bounds engine.Rect) session.Update
	PointerUp(in engine.PointerInput) session.Update
	PointerLeave() session.Update
	Reset() (session.State, error)
}

// Sounds plays feedback; audio.Chime implements it
type Sounds interface {
	PlaySnap()
	PlayComplete()
	PlayReset()
}

type silent struct{}

func (silent) PlaySnap()     {}
func (silent) PlayComplete() {}
func (silent) PlayReset()    {}

var palette = []tcell.Color{
	tcell.NewRGBColor(231, 76, 60),
	tcell.NewRGBColor(46, 204, 113),
	tcell.NewRGBColor(52, 152, 219),
	tcell.NewRGBColor(241, 196, 15),
	tcell.NewRGBColor(155, 89, 182),
	tcell.NewRGBColor(26, 188, 156),
	tcell.NewRGBColor(230, 126, 34),
	tcell.NewRGBColor(236, 112, 160),
	tcell.NewRGBColor(149, 165, 166),
	tcell.NewRGBColor(39, 174, 96),
	tcell.NewRGBColor(41, 128, 185),
	tcell.NewRGBColor(192, 57, 43),
}

var (
	boardStyle  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	statusStyle = tcell.StyleDefault.Bold(true)
	toastStyle  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// Player renders a puzzle on a tcell screen and feeds it mouse events
type Player struct {
	screen tcell.Screen
	puzzle Puzzle
	sounds Sounds
	log    log15.Logger
	clock  func() time.Time

	pressed   bool
	message   string
	messageAt time.Time
}

// NewPlayer creates a player. sounds and logger may be nil.
func NewPlayer(screen tcell.Screen, puzzle Puzzle, sounds Sounds, logger log15.Logger) *Player {
	if sounds == nil {
		sounds = silent{}
	}
	return &Player{
		screen: screen,
		puzzle: puzzle,
		sounds: sounds,
		log:    logging.OrDiscard(logger).New("component", "terminal"),
		clock:  time.Now,
	}
}

// Bounds is the board rectangle in screen cells. Cells are about twice as
// tall as wide, so the board is twice as many columns as rows.
func (p *Player) Bounds() engine.Rect {
	w, h := p.screen.Size()
	rows := h - 4
	cols := 2 * rows
	if cols > w-2 {
		cols = w - 2
		rows = cols / 2
	}
	if rows < 1 || cols < 1 {
		return engine.Rect{}
	}
	return engine.Rect{Left: 1, Top: 1, Width: float64(cols), Height: float64(rows)}
}

// Message returns the current toast, if still visible
func (p *Player) Message() string {
	if p.message == "" || p.clock().Sub(p.messageAt) > messageTTL {
		return ""
	}
	return p.message
}

func (p *Player) toast(msg string) {
	p.message = msg
	p.messageAt = p.clock()
}

// Run draws the puzzle and processes events until quit or ctx is done.
func (p *Player) Run(ctx context.Context) error {
	p.screen.EnableMouse(tcell.MouseDragEvents)
	p.screen.HideCursor()

	events := make(chan tcell.Event)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := p.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	p.Draw()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// expire toasts
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if p.HandleEvent(ev) {
				return nil
			}
		}
		p.Draw()
	}
}

// HandleEvent applies one terminal event. It returns true to quit.
func (p *Player) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return p.handleKey(ev)
	case *tcell.EventMouse:
		p.handleMouse(ev)
	case *tcell.EventResize:
		p.screen.Sync()
	}
	return false
}

func (p *Player) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return true
		case 'r', 'R':
			p.reset()
		}
	}
	return false
}

func (p *Player) reset() {
	st, err := p.puzzle.Reset()
	if err != nil {
		p.log.Error("Failed to reset puzzle", "err", err)
		p.toast("Reset failed: " + err.Error())
		return
	}
	p.pressed = false
	p.sounds.PlayReset()
	p.toast(service.MessageReset)
	p.log.Info(service.MessageReset, "puzzle", st.PuzzleID)
}

func (p *Player) handleMouse(ev *tcell.EventMouse) {
	bounds := p.Bounds()
	if !bounds.Valid() {
		return
	}
	cx, cy := ev.Position()
	// Cell centers, so a click maps to the middle of the cell.
	x, y := float64(cx)+0.5, float64(cy)+0.5
	down := ev.Buttons()&tcell.Button1 != 0

	var u session.Update
	switch {
	case down && !p.pressed:
		p.pressed = true
		px, py := bounds.ToPercent(x, y)
		id, ok := p.pieceAt(px, py)
		if !ok {
			return
		}
		u = p.puzzle.PointerDown(id, engine.MouseInput{Kind: engine.ActionPress, ClientX: x, ClientY: y}, bounds)
	case down:
		if !inside(bounds, x, y) {
			u = p.puzzle.PointerLeave()
			break
		}
		u = p.puzzle.PointerMove(engine.MouseInput{Kind: engine.ActionMove, ClientX: x, ClientY: y}, bounds)
	case p.pressed:
		p.pressed = false
		u = p.puzzle.PointerUp(engine.MouseInput{Kind: engine.ActionRelease, ClientX: x, ClientY: y})
	default:
		return
	}
	p.feedback(u)
}

func (p *Player) feedback(u session.Update) {
	if u.Transition == engine.TransitionSnap {
		p.sounds.PlaySnap()
	}
	if u.Completed {
		p.sounds.PlayComplete()
		p.toast(service.MessageCompleted)
		p.log.Info(service.MessageCompleted, "puzzle", u.State.PuzzleID)
	}
	if !u.State.Persisted && u.Transition.Changed() {
		p.toast("Progress could not be saved")
	}
}

func inside(b engine.Rect, x, y float64) bool {
	return x >= b.Left && x < b.Left+b.Width && y >= b.Top && y < b.Top+b.Height
}

// drawOrder lists pieces bottom to top: placed, loose, then the dragged one.
func drawOrder(st session.State) []engine.Piece {
	order := make([]engine.Piece, 0, len(st.Pieces))
	var active *engine.Piece
	for _, pc := range st.Pieces {
		if pc.IsPlaced {
			order = append(order, pc)
		}
	}
	for i, pc := range st.Pieces {
		if pc.IsPlaced {
			continue
		}
		if st.Drag.Dragging() && pc.ID == st.Drag.ActivePieceID {
			active = &st.Pieces[i]
			continue
		}
		order = append(order, pc)
	}
	if active != nil {
		order = append(order, *active)
	}
	return order
}

// pieceAt returns the topmost loose piece under a board point.
func (p *Player) pieceAt(px, py float64) (int, bool) {
	order := drawOrder(p.puzzle.State())
	for i := len(order) - 1; i >= 0; i-- {
		pc := order[i]
		if pc.IsPlaced {
			continue
		}
		if px >= pc.X && px < pc.X+pc.Width && py >= pc.Y && py < pc.Y+pc.Height {
			return pc.ID, true
		}
	}
	return 0, false
}

// cellRect converts a piece's current position to screen cells [x0,x1)x[y0,y1).
func cellRect(b engine.Rect, pc engine.Piece) (x0, y0, x1, y1 int) {
	scaleX := b.Width / engine.FullScale
	scaleY := b.Height / engine.FullScale
	x0 = int(b.Left + math.Round(pc.X*scaleX))
	y0 = int(b.Top + math.Round(pc.Y*scaleY))
	x1 = int(b.Left + math.Round((pc.X+pc.Width)*scaleX))
	y1 = int(b.Top + math.Round((pc.Y+pc.Height)*scaleY))
	return
}

// Draw renders the board, the pieces and the status lines
func (p *Player) Draw() {
	p.screen.Clear()
	b := p.Bounds()
	st := p.puzzle.State()

	if b.Valid() {
		left, top := int(b.Left), int(b.Top)
		right, bottom := left+int(b.Width), top+int(b.Height)
		for y := top; y < bottom; y++ {
			for x := left; x < right; x++ {
				p.screen.SetContent(x, y, '·', nil, boardStyle)
			}
		}
		for _, pc := range drawOrder(st) {
			p.drawPiece(b, pc, st.Drag.Dragging() && pc.ID == st.Drag.ActivePieceID)
		}
	}

	row := int(b.Top + b.Height + 1)
	status := fmt.Sprintf("%s  %d/%d placed", st.PuzzleID, st.PlacedCount, st.TotalPieces)
	if st.IsCompleted {
		status += "  COMPLETED"
	}
	status += "  [r] reset  [q] quit"
	p.drawText(1, row, status, statusStyle)
	if msg := p.Message(); msg != "" {
		p.drawText(1, row+1, msg, toastStyle)
	}
	p.screen.Show()
}

func (p *Player) drawPiece(b engine.Rect, pc engine.Piece, active bool) {
	x0, y0, x1, y1 := cellRect(b, pc)
	color := palette[pc.ID%len(palette)]
	style := tcell.StyleDefault.Background(color).Foreground(tcell.ColorBlack)
	if pc.IsPlaced {
		style = style.Dim(true)
	}
	if active {
		style = style.Bold(true).Reverse(true)
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			p.screen.SetContent(x, y, ' ', nil, style)
		}
	}

	label := fmt.Sprintf("%d", pc.ID)
	lx := x0 + (x1-x0-len(label))/2
	ly := y0 + (y1-y0)/2
	if x1-x0 >= len(label) && y1 > y0 {
		p.drawText(lx, ly, label, style)
	}
}

func (p *Player) drawText(x, y int, text string, style tcell.Style) {
	for _, r := range text {
		p.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
