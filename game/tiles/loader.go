package tiles

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ErrUnsupportedRef = errors.New("unsupported image reference")
	ErrForbiddenRef   = errors.New("image reference outside the images directory")
	ErrRemoteDisabled = errors.New("remote images are disabled")
	ErrFetch          = errors.New("failed to fetch image")
)

// Loader fetches and decodes source images. File references are relative
// paths inside Dir; absolute paths and paths escaping Dir are refused.
// http:// and https:// references are downloaded only when AllowRemote is set.
type Loader struct {
	Dir         string
	Client      *http.Client
	AllowRemote bool
}

// NewLoader creates a loader resolving paths against dir. Remote images are
// off until AllowRemote is set.
func NewLoader(dir string) *Loader {
	return &Loader{
		Dir:    dir,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Load decodes the image behind ref
func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	switch {
	case ref == "":
		return nil, fmt.Errorf("%w: empty reference", ErrUnsupportedRef)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		if !l.AllowRemote {
			return nil, fmt.Errorf("%w: %s", ErrRemoteDisabled, ref)
		}
		return l.fetch(ctx, ref)
	case strings.Contains(ref, "://"), strings.HasPrefix(ref, "data:"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
	case filepath.IsAbs(ref), !filepath.IsLocal(filepath.FromSlash(ref)):
		return nil, fmt.Errorf("%w: %s", ErrForbiddenRef, ref)
	}

	path := filepath.Join(l.Dir, filepath.FromSlash(ref))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

func (l *Loader) fetch(ctx context.Context, uri string) (image.Image, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: bad status: %d", ErrFetch, resp.StatusCode)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
