package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
)

var ErrInvalidKind = errors.New("invalid puzzle kind")

// Kind distinguishes the puzzle variants offered for one subject.
type Kind string

const (
	KindImage Kind = "image"
	KindMap   Kind = "map"
)

// Kinds lists every known kind.
var Kinds = []Kind{KindImage, KindMap}

// ParseKind validates a kind name; empty means image.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindImage:
		return KindImage, nil
	case KindMap:
		return KindMap, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// PuzzleID composes the storage key "<subject>-<kind>". Ids are case-sensitive.
func PuzzleID(subjectID string, kind Kind) string {
	return subjectID + "-" + string(kind)
}

// SplitPuzzleID reverses PuzzleID. ok is false when the id has no known kind suffix.
func SplitPuzzleID(id string) (subjectID string, kind Kind, ok bool) {
	i := strings.LastIndex(id, "-")
	if i <= 0 {
		return id, "", false
	}
	k := Kind(id[i+1:])
	if k != KindImage && k != KindMap {
		return id, "", false
	}
	return id[:i], k, true
}

// Record is the durable progress of one puzzle.
type Record struct {
	PuzzleID    string         `json:"puzzleId"`
	Pieces      []engine.Piece `json:"pieces"`
	IsCompleted bool           `json:"isCompleted"`
	StartedAt   int64          `json:"startedAt"`
	CompletedAt *int64         `json:"completedAt,omitempty"`
	PuzzleKind  Kind           `json:"puzzleKind"`
}

// Clone deep-copies the record.
func (r Record) Clone() Record {
	r.Pieces = engine.ClonePieces(r.Pieces)
	if r.CompletedAt != nil {
		v := *r.CompletedAt
		r.CompletedAt = &v
	}
	return r
}

type recordAlias Record

// UnmarshalJSON also accepts records written by the browser app, which used
// countryCode and puzzleType.
func (r *Record) UnmarshalJSON(data []byte) error {
	var aux struct {
		recordAlias
		CountryCode string `json:"countryCode"`
		PuzzleType  Kind   `json:"puzzleType"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Record(aux.recordAlias)
	if r.PuzzleID == "" {
		r.PuzzleID = aux.CountryCode
	}
	if r.PuzzleKind == "" {
		r.PuzzleKind = aux.PuzzleType
	}
	if r.PuzzleKind == "" {
		if _, k, ok := SplitPuzzleID(r.PuzzleID); ok {
			r.PuzzleKind = k
		} else {
			r.PuzzleKind = KindImage
		}
	}
	return nil
}

// Int64Ptr is a helper for CompletedAt literals.
func Int64Ptr(v int64) *int64 { return &v }
