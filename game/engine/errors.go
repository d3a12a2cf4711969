package engine

import "errors"

var (
	ErrInvalidGridSize = errors.New("invalid grid size")
	ErrMissingImage    = errors.New("missing image reference")
	ErrInvalidSettings = errors.New("invalid puzzle settings")
)
