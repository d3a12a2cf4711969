package engine

// IsComplete is true when every piece is placed. An empty set is vacuously
// complete; sessions never hold one.
func IsComplete(pieces []Piece) bool {
	for _, p := range pieces {
		if !p.IsPlaced {
			return false
		}
	}
	return true
}

// PlacedCount returns how many pieces are placed.
func PlacedCount(pieces []Piece) int {
	n := 0
	for _, p := range pieces {
		if p.IsPlaced {
			n++
		}
	}
	return n
}
