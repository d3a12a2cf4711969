package engine

const (
	// FullScale is the container extent in percentage units.
	FullScale = 100.0

	// Defaults used by the classic preset
	DefaultGridSize     = 3
	DefaultThreshold    = 10.0
	DefaultScatterRange = 80.0

	// Validation constants
	MinGridSize = 1
	MaxGridSize = 50
)

// Piece is one rectangular tile of a puzzle. Positions are percentages of
// the puzzle container measured from its top-left corner.
type Piece struct {
	ID       int     `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	CorrectX float64 `json:"correctX"`
	CorrectY float64 `json:"correctY"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Image    string  `json:"image"`
	IsPlaced bool    `json:"isPlaced"`
}

// Row returns the grid row of the piece's correct slot.
func (p Piece) Row() int {
	if p.Height <= 0 {
		return 0
	}
	return int(p.CorrectY/p.Height + 0.5)
}

// Col returns the grid column of the piece's correct slot.
func (p Piece) Col() int {
	if p.Width <= 0 {
		return 0
	}
	return int(p.CorrectX/p.Width + 0.5)
}

// AtCorrectPosition reports whether the piece sits exactly on its slot.
func (p Piece) AtCorrectPosition() bool {
	return p.X == p.CorrectX && p.Y == p.CorrectY
}

// ClonePieces returns a copy of the slice so callers can mutate freely.
func ClonePieces(pieces []Piece) []Piece {
	if pieces == nil {
		return nil
	}
	out := make([]Piece, len(pieces))
	copy(out, pieces)
	return out
}

// FindPiece returns the index of the piece with the given id, or -1.
func FindPiece(pieces []Piece, id int) int {
	for i := range pieces {
		if pieces[i].ID == id {
			return i
		}
	}
	return -1
}
