package album

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func New(opts ...Option) *Album {
	a := &Album{
		History: NewHistory(),
		fs:      afero.NewOsFs(),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.dl == nil {
		a.dl, _ = NewDownloader("", a.logger)
	}

	return a
}

// Album loads images from files or URLs and remembers which framebuffer
// each one was uploaded to.
type Album struct {
	*History

	fs     afero.Fs
	dl     *Downloader
	cache  *Cache
	logger *zap.Logger
	// options
	width  int
	height int
}

func isURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

func (a *Album) fetch(ctx context.Context, src string) (*VFile, error) {
	if isURL(src) {
		return a.dl.Get(ctx, src)
	}

	if exists, err := afero.Exists(a.fs, src); err != nil {
		return nil, err
	} else if !exists {
		return nil, fmt.Errorf("image %s not found", src)
	}

	return newFile(src, a.fs), nil
}

// Load fetches and decodes src, scaled to the configured fit if any.
func (a *Album) Load(ctx context.Context, src string) (image.Image, error) {
	log := a.logger.With(zap.String("src", src))

	fitted := a.width > 0 && a.height > 0
	if fitted {
		exists, cached, errL := a.cache.LoadImage(src, a.width, a.height)
		if errL != nil {
			return nil, fmt.Errorf("load cache failed: %w", errL)
		}
		if exists {
			log.Debug("cache hit")
			return cached, nil
		}
	}

	vf, err := a.fetch(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetch image failed: %w", err)
	}

	img, err := decode(vf)
	if err != nil {
		return nil, err
	}

	if fitted {
		img = fit(img, a.width, a.height)
		if err := a.cache.SaveImage(src, a.width, a.height, img); err != nil {
			return img, fmt.Errorf("save cache failed: %w", err)
		}
	}

	log.With(zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy())).Debug("loaded")
	return img, nil
}
