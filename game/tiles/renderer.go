package tiles

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/inconshreveable/log15"

	"github.com/wricardo/mcp-training/jigsaw/game/engine"
	"github.com/wricardo/mcp-training/jigsaw/logging"
)

// DefaultCacheSize is the number of decoded source images kept in memory.
const DefaultCacheSize = 16

// ImageLoader decodes an image reference
type ImageLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// Option configures a Renderer
type Option func(*Renderer)

// WithLogger sets the renderer logger
func WithLogger(l log15.Logger) Option {
	return func(r *Renderer) { r.log = l.New("component", "tiles") }
}

// WithCacheSize bounds the number of cached source images
func WithCacheSize(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.cacheSize = n
		}
	}
}

// Renderer produces PNG tiles and caches decoded sources by reference
type Renderer struct {
	loader    ImageLoader
	cacheSize int
	log       log15.Logger

	mu    sync.Mutex
	cache map[string]image.Image
	order []string
}

// NewRenderer creates a tile renderer
func NewRenderer(loader ImageLoader, opts ...Option) *Renderer {
	r := &Renderer{
		loader:    loader,
		cacheSize: DefaultCacheSize,
		log:       logging.Discard(),
		cache:     make(map[string]image.Image),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Tile renders one piece of imageRef as PNG bytes
func (r *Renderer) Tile(ctx context.Context, imageRef string, p engine.Piece, size int) ([]byte, error) {
	src, err := r.source(ctx, imageRef)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Crop(src, p, size)); err != nil {
		return nil, fmt.Errorf("failed to encode tile: %w", err)
	}
	return buf.Bytes(), nil
}

// Cached reports whether the source for imageRef is in the cache
func (r *Renderer) Cached(imageRef string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.cache[imageRef]
	return ok
}

func (r *Renderer) source(ctx context.Context, imageRef string) (image.Image, error) {
	r.mu.Lock()
	img, ok := r.cache[imageRef]
	r.mu.Unlock()
	if ok {
		return img, nil
	}

	img, err := r.loader.Load(ctx, imageRef)
	if err != nil {
		r.log.Warn("Failed to load puzzle image", "ref", imageRef, "err", err)
		return nil, err
	}
	b := img.Bounds()
	r.log.Debug("Loaded puzzle image", "ref", imageRef, "width", b.Dx(), "height", b.Dy())

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache[imageRef]; !ok {
		r.cache[imageRef] = img
		r.order = append(r.order, imageRef)
		for len(r.order) > r.cacheSize {
			delete(r.cache, r.order[0])
			r.order = r.order[1:]
		}
	}
	return img, nil
}
