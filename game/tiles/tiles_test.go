package tiles

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
)

var quadrantColors = []color.RGBA{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
	{R: 255, G: 255, A: 255},
}

// quadrants returns a 100x80 image whose 2x2 cells have distinct colors.
func quadrants() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 100, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 100; x++ {
			idx := (y/40)*2 + x/50
			img.SetRGBA(x, y, quadrantColors[idx])
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pieces(t *testing.T, n int) []engine.Piece {
	t.Helper()
	ps, err := engine.Generate(n, "img", engine.DefaultRand)
	require.NoError(t, err)
	return ps
}

func TestSourceRect(t *testing.T) {
	ps := pieces(t, 2)
	bounds := image.Rect(0, 0, 100, 80)

	assert.Equal(t, image.Rect(0, 0, 50, 40), SourceRect(bounds, ps[0]))
	assert.Equal(t, image.Rect(50, 0, 100, 40), SourceRect(bounds, ps[1]))
	assert.Equal(t, image.Rect(0, 40, 50, 80), SourceRect(bounds, ps[2]))
	assert.Equal(t, image.Rect(50, 40, 100, 80), SourceRect(bounds, ps[3]))
}

func TestSourceRectTilesImage(t *testing.T) {
	bounds := image.Rect(0, 0, 101, 67)
	area := 0
	for _, p := range pieces(t, 3) {
		r := SourceRect(bounds, p)
		assert.False(t, r.Empty())
		area += r.Dx() * r.Dy()
	}
	assert.Equal(t, 101*67, area)
}

func TestCropNativeSize(t *testing.T) {
	src := quadrants()
	for i, p := range pieces(t, 2) {
		tile := Crop(src, p, 0)
		assert.Equal(t, 50, tile.Bounds().Dx())
		assert.Equal(t, 40, tile.Bounds().Dy())
		r, g, b, _ := tile.At(25, 20).RGBA()
		want := quadrantColors[i]
		assert.Equal(t, uint32(want.R)*0x101, r, "piece %d", i)
		assert.Equal(t, uint32(want.G)*0x101, g, "piece %d", i)
		assert.Equal(t, uint32(want.B)*0x101, b, "piece %d", i)
	}
}

func TestCropScaled(t *testing.T) {
	ps := pieces(t, 2)
	tile := Crop(quadrants(), ps[3], 100)

	assert.Equal(t, 100, tile.Bounds().Dx())
	assert.Equal(t, 80, tile.Bounds().Dy())
	r, g, b, _ := tile.At(50, 40).RGBA()
	assert.InDelta(t, 0xffff, r, 0x200)
	assert.InDelta(t, 0xffff, g, 0x200)
	assert.InDelta(t, 0, b, 0x200)
}

func TestLoaderFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "usa.png"), encodePNG(t, quadrants()), 0644))

	loader := NewLoader(dir)
	img, err := loader.Load(context.Background(), "usa.png")
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())

	_, err = loader.Load(context.Background(), "missing.png")
	assert.Error(t, err)

	_, err = loader.Load(context.Background(), "ftp://example.com/x.png")
	assert.True(t, errors.Is(err, ErrUnsupportedRef))

	_, err = loader.Load(context.Background(), "")
	assert.True(t, errors.Is(err, ErrUnsupportedRef))
}

func TestLoaderStaysInsideDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "images")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "flags"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flags", "usa.png"), encodePNG(t, quadrants()), 0644))
	secret := filepath.Join(root, "secret.png")
	require.NoError(t, os.WriteFile(secret, encodePNG(t, quadrants()), 0644))

	loader := NewLoader(dir)
	_, err := loader.Load(context.Background(), "flags/usa.png")
	require.NoError(t, err)

	for _, ref := range []string{secret, "../secret.png", "flags/../../secret.png"} {
		_, err := loader.Load(context.Background(), ref)
		assert.True(t, errors.Is(err, ErrForbiddenRef), "ref %s: %v", ref, err)
	}
}

func TestLoaderRemoteDisabled(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(encodePNG(t, quadrants()))
	}))
	defer srv.Close()

	_, err := NewLoader("").Load(context.Background(), srv.URL+"/flag.png")
	assert.True(t, errors.Is(err, ErrRemoteDisabled))
	assert.Zero(t, hits)
}

func TestLoaderHTTP(t *testing.T) {
	data := encodePNG(t, quadrants())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/flag.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	loader := NewLoader("")
	loader.AllowRemote = true
	img, err := loader.Load(context.Background(), srv.URL+"/flag.png")
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dy())

	_, err = loader.Load(context.Background(), srv.URL+"/other.png")
	assert.True(t, errors.Is(err, ErrFetch))
}

type countingLoader struct {
	img   image.Image
	calls int
}

func (l *countingLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	l.calls++
	if ref == "broken" {
		return nil, ErrFetch
	}
	return l.img, nil
}

func TestRendererCachesSources(t *testing.T) {
	loader := &countingLoader{img: quadrants()}
	r := NewRenderer(loader, WithCacheSize(1))
	ps := pieces(t, 2)

	data, err := r.Tile(context.Background(), "a", ps[0], 32)
	require.NoError(t, err)
	tile, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, tile.Bounds().Dx())

	_, err = r.Tile(context.Background(), "a", ps[1], 32)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)
	assert.True(t, r.Cached("a"))

	_, err = r.Tile(context.Background(), "b", ps[1], 32)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
	assert.False(t, r.Cached("a"), "oldest entry should be evicted")

	_, err = r.Tile(context.Background(), "broken", ps[0], 32)
	assert.Error(t, err)
	assert.False(t, r.Cached("broken"))
}
