// Package tiles renders individual puzzle pieces as images.
//
// A piece covers the region of the source image given by its correct
// position and size in percent of the board. Hosts that can slice the
// image themselves (CSS background-position) do not need this package; the
// HTTP API uses it to serve one PNG per piece for everything else.
//
// Usage:
//
//	renderer := tiles.NewRenderer(tiles.NewLoader(""), tiles.WithLogger(logger))
//	png, err := renderer.Tile(ctx, state.ImageRef, piece, 128)
package tiles
