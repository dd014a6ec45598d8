package album

import (
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type Option func(a *Album)

// WithFit scales loaded images down to fit inside w×h.
func WithFit(w, h int) Option {
	return func(a *Album) {
		a.width = w
		a.height = h
	}
}

func WithDownloader(dl *Downloader) Option {
	return func(a *Album) {
		a.dl = dl
	}
}

// WithCache keeps fitted images; it has no effect without WithFit.
func WithCache(c *Cache) Option {
	return func(a *Album) {
		a.cache = c
	}
}

// WithFs sets where local sources are read from.
func WithFs(fs afero.Fs) Option {
	return func(a *Album) {
		a.fs = fs
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Album) {
		a.logger = logger
	}
}
