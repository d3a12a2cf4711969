package terminal

import (
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/progress"
	"github.com/wricardo/mcp-training/jigsaw/game/service"
	"github.com/wricardo/mcp-training/jigsaw/game/session"
)

// fixedRand scatters every piece to (40, 40).
type fixedRand struct{}

func (fixedRand) Float64() float64 { return 0.5 }

type recordedSounds struct {
	snaps, completes, resets int
}

func (r *recordedSounds) PlaySnap()     { r.snaps++ }
func (r *recordedSounds) PlayComplete() { r.completes++ }
func (r *recordedSounds) PlayReset()    { r.resets++ }

func newTestPlayer(t *testing.T, gridSize int) (*Player, *session.Session, *recordedSounds) {
	t.Helper()
	screen := tcell.NewSimulationScreen("")
	require.NoError(t, screen.Init())
	screen.SetSize(80, 24)
	t.Cleanup(screen.Fini)

	store := progress.NewStore(progress.NewMemoryBackend(), nil)
	sess, err := session.Open(store, session.OpenOptions{
		SubjectID: "USA",
		Kind:      progress.KindImage,
		ImageRef:  "usa.png",
		Settings:  engine.Settings{GridSize: gridSize, Threshold: 10, ScatterRange: 80},
		Rand:      fixedRand{},
	})
	require.NoError(t, err)

	sounds := &recordedSounds{}
	return NewPlayer(screen, sess, sounds, nil), sess, sounds
}

// toCell maps a board percentage to the screen cell containing it.
func toCell(b engine.Rect, px, py float64) (int, int) {
	return int(b.Left + px*b.Width/engine.FullScale), int(b.Top + py*b.Height/engine.FullScale)
}

func mouse(x, y int, buttons tcell.ButtonMask) *tcell.EventMouse {
	return tcell.NewEventMouse(x, y, buttons, tcell.ModNone)
}

func key(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func screenRow(s tcell.Screen, y int) string {
	w, _ := s.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := s.GetContent(x, y)
		b.WriteRune(r)
	}
	return b.String()
}

func TestBounds(t *testing.T) {
	p, _, _ := newTestPlayer(t, 2)
	assert.Equal(t, engine.Rect{Left: 1, Top: 1, Width: 40, Height: 20}, p.Bounds())

	p.screen.(tcell.SimulationScreen).SetSize(30, 40)
	assert.Equal(t, engine.Rect{Left: 1, Top: 1, Width: 28, Height: 14}, p.Bounds())

	p.screen.(tcell.SimulationScreen).SetSize(3, 3)
	assert.False(t, p.Bounds().Valid())
}

func TestSolveWithMouse(t *testing.T) {
	p, sess, sounds := newTestPlayer(t, 2)
	b := p.Bounds()

	// Every piece covers (40..90); the topmost is always the highest
	// loose id, so solve from 3 down to 0.
	for id := 3; id >= 0; id-- {
		pc := sess.State().Pieces[id]
		gx, gy := toCell(b, 65, 65)
		tx, ty := toCell(b, pc.CorrectX+25, pc.CorrectY+25)

		assert.False(t, p.HandleEvent(mouse(gx, gy, tcell.Button1)))
		require.True(t, sess.State().Drag.Dragging())
		require.Equal(t, id, sess.State().Drag.ActivePieceID)

		p.HandleEvent(mouse(tx, ty, tcell.Button1))
		p.HandleEvent(mouse(tx, ty, tcell.ButtonNone))

		placed := sess.State().Pieces[id]
		assert.True(t, placed.IsPlaced, "piece %d", id)
		assert.Equal(t, placed.CorrectX, placed.X)
	}

	st := sess.State()
	assert.True(t, st.IsCompleted)
	assert.Equal(t, 4, sounds.snaps)
	assert.Equal(t, 1, sounds.completes)
	assert.Equal(t, service.MessageCompleted, p.Message())

	// Completed puzzles ignore drags.
	gx, gy := toCell(b, 10, 10)
	p.HandleEvent(mouse(gx, gy, tcell.Button1))
	assert.False(t, sess.State().Drag.Dragging())
	p.HandleEvent(mouse(gx, gy, tcell.ButtonNone))

	p.Draw()
	assert.Contains(t, screenRow(p.screen, int(b.Top+b.Height+1)), "USA-image  4/4 placed  COMPLETED")
}

func TestLeaveBoardReleasesPiece(t *testing.T) {
	p, sess, sounds := newTestPlayer(t, 3)
	b := p.Bounds()

	gx, gy := toCell(b, 56.7, 56.7)
	p.HandleEvent(mouse(gx, gy, tcell.Button1))
	require.Equal(t, 8, sess.State().Drag.ActivePieceID)

	p.HandleEvent(mouse(79, gy, tcell.Button1))
	st := sess.State()
	assert.False(t, st.Drag.Dragging())
	assert.Equal(t, 0, st.PlacedCount)
	assert.Zero(t, sounds.snaps)

	// Coming back with the button still held does not resume the drag.
	p.HandleEvent(mouse(gx, gy, tcell.Button1))
	assert.False(t, sess.State().Drag.Dragging())
	p.HandleEvent(mouse(gx, gy, tcell.ButtonNone))
}

func TestPressOnEmptyBoard(t *testing.T) {
	p, sess, _ := newTestPlayer(t, 2)
	gx, gy := toCell(p.Bounds(), 5, 5)

	p.HandleEvent(mouse(gx, gy, tcell.Button1))
	assert.False(t, sess.State().Drag.Dragging())
	p.HandleEvent(mouse(gx, gy, tcell.ButtonNone))
	assert.False(t, p.pressed)
}

func TestKeys(t *testing.T) {
	p, sess, sounds := newTestPlayer(t, 2)
	now := time.Now()
	p.clock = func() time.Time { return now }
	before := sess.State().StartedAt

	assert.False(t, p.HandleEvent(key('r')))
	assert.Equal(t, 1, sounds.resets)
	assert.Equal(t, service.MessageReset, p.Message())
	assert.Greater(t, sess.State().StartedAt, before)

	now = now.Add(messageTTL + time.Second)
	assert.Empty(t, p.Message())

	assert.True(t, p.HandleEvent(key('q')))
	assert.True(t, p.HandleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	assert.True(t, p.HandleEvent(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModNone)))
	assert.False(t, p.HandleEvent(key('x')))
}

func TestDrawOrder(t *testing.T) {
	st := session.State{
		Pieces: []engine.Piece{
			{ID: 0}, {ID: 1, IsPlaced: true}, {ID: 2}, {ID: 3},
		},
		Drag: engine.DragState{Phase: engine.PhaseDragging, ActivePieceID: 0},
	}
	var ids []int
	for _, pc := range drawOrder(st) {
		ids = append(ids, pc.ID)
	}
	assert.Equal(t, []int{1, 2, 3, 0}, ids)
}
