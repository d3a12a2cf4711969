package main

import (
	"fmt"
	"math"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/game/session"
)

// Move drops a piece with its top-left corner at (X, Y).
type Move struct {
	PieceID int
	X, Y    float64
}

// Strategy picks the next drag from the current state.
type Strategy interface {
	Name() string
	Reset(state *session.State)
	Next(state *session.State) (Move, bool)
	// Observe reports whether the last move snapped the piece.
	Observe(move Move, placed bool)
}

func NewStrategy(name string) (Strategy, error) {
	switch name {
	case "systematic", "":
		return &SystematicStrategy{}, nil
	case "direct":
		return DirectStrategy{}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q (want systematic or direct)", name)
}

// slot is a grid cell's top-left corner.
type slot struct {
	X, Y float64
}

// SystematicStrategy ignores correct positions. It tries every free grid
// slot for the lowest loose piece, in row-major order, remembering misses.
type SystematicStrategy struct {
	slots []slot
	// tried[pieceID][slotIndex] marks slots that did not snap.
	tried map[int]map[int]bool
	last  int
}

func (s *SystematicStrategy) Name() string { return "systematic" }

func (s *SystematicStrategy) Reset(state *session.State) {
	n := int(math.Round(math.Sqrt(float64(len(state.Pieces)))))
	size := engine.FullScale / float64(n)
	s.slots = s.slots[:0]
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			s.slots = append(s.slots, slot{X: float64(col) * size, Y: float64(row) * size})
		}
	}
	s.tried = make(map[int]map[int]bool)
	s.last = -1
}

func (s *SystematicStrategy) Next(state *session.State) (Move, bool) {
	occupied := make(map[int]bool)
	for _, p := range state.Pieces {
		if p.IsPlaced {
			occupied[s.slotAt(p.X, p.Y)] = true
		}
	}

	for _, p := range state.Pieces {
		if p.IsPlaced {
			continue
		}
		for i, sl := range s.slots {
			if occupied[i] || s.tried[p.ID][i] {
				continue
			}
			s.last = i
			return Move{PieceID: p.ID, X: sl.X, Y: sl.Y}, true
		}
		// Every free slot refused this piece.
		return Move{}, false
	}
	return Move{}, false
}

func (s *SystematicStrategy) Observe(move Move, placed bool) {
	if placed || s.last < 0 {
		return
	}
	if s.tried[move.PieceID] == nil {
		s.tried[move.PieceID] = make(map[int]bool)
	}
	s.tried[move.PieceID][s.last] = true
}

// slotAt returns the index of the slot closest to (x, y), or -1.
func (s *SystematicStrategy) slotAt(x, y float64) int {
	best, bestDist := -1, math.Inf(1)
	for i, sl := range s.slots {
		if d := math.Max(math.Abs(sl.X-x), math.Abs(sl.Y-y)); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// DirectStrategy drags each loose piece straight to its correct position.
type DirectStrategy struct{}

func (DirectStrategy) Name() string { return "direct" }

func (DirectStrategy) Reset(*session.State) {}

func (DirectStrategy) Observe(Move, bool) {}

func (DirectStrategy) Next(state *session.State) (Move, bool) {
	for _, p := range state.Pieces {
		if !p.IsPlaced {
			return Move{PieceID: p.ID, X: p.CorrectX, Y: p.CorrectY}, true
		}
	}
	return Move{}, false
}
