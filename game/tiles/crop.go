package tiles

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
)

// SourceRect maps the piece's correct cell onto the pixel bounds of the
// source image.
func SourceRect(bounds image.Rectangle, p engine.Piece) image.Rectangle {
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	x0 := bounds.Min.X + int(math.Round(p.CorrectX/engine.FullScale*w))
	y0 := bounds.Min.Y + int(math.Round(p.CorrectY/engine.FullScale*h))
	x1 := bounds.Min.X + int(math.Round((p.CorrectX+p.Width)/engine.FullScale*w))
	y1 := bounds.Min.Y + int(math.Round((p.CorrectY+p.Height)/engine.FullScale*h))
	return image.Rect(x0, y0, x1, y1).Intersect(bounds)
}

// Crop cuts the piece out of src. With size > 0 the crop is scaled so its
// longer side is size pixels; otherwise it keeps its native resolution.
func Crop(src image.Image, p engine.Piece, size int) image.Image {
	sr := SourceRect(src.Bounds(), p)
	if sr.Empty() {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	dw, dh := sr.Dx(), sr.Dy()
	if size > 0 {
		if dw >= dh {
			dh = max(1, int(math.Round(float64(size)*float64(dh)/float64(dw))))
			dw = size
		} else {
			dw = max(1, int(math.Round(float64(size)*float64(dw)/float64(dh))))
			dh = size
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	if dw == sr.Dx() && dh == sr.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sr.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sr, draw.Src, nil)
	return dst
}
