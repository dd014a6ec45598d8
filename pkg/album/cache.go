package album

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/spf13/afero"
)

func NewCache(dir string) (*Cache, error) {
	c := &Cache{}

	if dir == "" {
		return c, nil
	}

	if fs, err := newFs(dir); err != nil {
		return nil, fmt.Errorf("create cache failed: %w", err)
	} else {
		c.fs = fs
	}

	return c, nil
}

func NewCacheFs(fs afero.Fs) *Cache {
	return &Cache{fs: fs}
}

// Cache keeps scaled images as PNG, keyed by source and target size.
type Cache struct {
	fs afero.Fs
}

func (c *Cache) dirname(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}

func (c *Cache) filename(src string, w, h int) string {
	sum := sha1.Sum([]byte(src))
	return fmt.Sprintf("%s/%s.png", c.dirname(w, h), hex.EncodeToString(sum[:]))
}

func (c *Cache) LoadImage(src string, w, h int) (bool, image.Image, error) {
	if c == nil || c.fs == nil {
		return false, nil, nil
	}

	bs, err := afero.ReadFile(c.fs, c.filename(src, w, h))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil, nil
		} else {
			return false, nil, err
		}
	}

	img, err := png.Decode(bytes.NewBuffer(bs))
	if err != nil {
		return false, nil, err
	}

	return true, img, nil
}

func (c *Cache) SaveImage(src string, w, h int, img image.Image) error {
	if c == nil || c.fs == nil {
		return nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}

	dir := c.dirname(w, h)
	if exists, err := afero.DirExists(c.fs, dir); err != nil {
		return err
	} else if !exists {
		if err2 := c.fs.MkdirAll(dir, 0755); err2 != nil {
			return err2
		}
	}

	return afero.WriteFile(c.fs, c.filename(src, w, h), buf.Bytes(), 0644)
}
