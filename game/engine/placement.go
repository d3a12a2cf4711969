package engine

import "math"

// IsPlaceable reports whether (x, y) is within threshold of the piece's
// correct position on both axes independently.
func IsPlaceable(p Piece, x, y, threshold float64) bool {
	return math.Abs(x-p.CorrectX) <= threshold && math.Abs(y-p.CorrectY) <= threshold
}

// Snap moves the piece onto its correct slot and marks it placed.
func Snap(p Piece) Piece {
	p.X = p.CorrectX
	p.Y = p.CorrectY
	p.IsPlaced = true
	return p
}
