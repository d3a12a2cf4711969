package engine

import (
	"fmt"
	"math/rand/v2"
)

// RandSource yields uniform values in [0, 1). *math/rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// RandFunc adapts a plain function to RandSource.
type RandFunc func() float64

func (f RandFunc) Float64() float64 { return f() }

// DefaultRand draws from the process-wide generator.
var DefaultRand RandSource = RandFunc(rand.Float64)

// Generator produces fresh scattered piece sets.
type Generator struct {
	rnd          RandSource
	scatterRange float64
}

// NewGenerator creates a generator. A nil source falls back to DefaultRand and
// a non-positive scatter range to DefaultScatterRange.
func NewGenerator(rnd RandSource, scatterRange float64) *Generator {
	if rnd == nil {
		rnd = DefaultRand
	}
	if scatterRange <= 0 {
		scatterRange = DefaultScatterRange
	}
	return &Generator{rnd: rnd, scatterRange: scatterRange}
}

// ScatterRange returns the exclusive upper bound of initial coordinates.
func (g *Generator) ScatterRange() float64 {
	return g.scatterRange
}

// Generate slices the image into gridSize x gridSize pieces in row-major
// order, each scattered uniformly in [0, scatterRange) on both axes.
func (g *Generator) Generate(gridSize int, imageRef string) ([]Piece, error) {
	if gridSize < MinGridSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGridSize, gridSize)
	}
	if imageRef == "" {
		return nil, ErrMissingImage
	}

	size := FullScale / float64(gridSize)
	pieces := make([]Piece, 0, gridSize*gridSize)
	for row := 0; row < gridSize; row++ {
		for col := 0; col < gridSize; col++ {
			pieces = append(pieces, Piece{
				ID:       row*gridSize + col,
				X:        g.scatter(),
				Y:        g.scatter(),
				CorrectX: float64(col) * size,
				CorrectY: float64(row) * size,
				Width:    size,
				Height:   size,
				Image:    imageRef,
			})
		}
	}
	return pieces, nil
}

func (g *Generator) scatter() float64 {
	v := g.rnd.Float64() * g.scatterRange
	// Guard against sources that return exactly 1.
	if v >= g.scatterRange {
		v = 0
	}
	if v < 0 {
		v = 0
	}
	return v
}

// Generate is a convenience wrapper using the default scatter range.
func Generate(gridSize int, imageRef string, rnd RandSource) ([]Piece, error) {
	return NewGenerator(rnd, DefaultScatterRange).Generate(gridSize, imageRef)
}

// ValidLayout reports whether pieces form a complete gridSize x gridSize set
// with ids 0..n²-1 each appearing once.
func ValidLayout(pieces []Piece, gridSize int) bool {
	if gridSize < MinGridSize || len(pieces) != gridSize*gridSize {
		return false
	}
	seen := make([]bool, len(pieces))
	for _, p := range pieces {
		if p.ID < 0 || p.ID >= len(pieces) || seen[p.ID] {
			return false
		}
		seen[p.ID] = true
	}
	return true
}
