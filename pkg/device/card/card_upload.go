package card

import (
	"fmt"
	"image"
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"kmsctl/pkg/bitmap"
	"kmsctl/pkg/drm"
)

// Upload allocates a dumb buffer the size of img, draws img into the
// mapping and registers a framebuffer for it.
func (c *Card) Upload(img image.Image, format drm.PixelFormat) (drm.FramebufferHandle, error) {
	b := img.Bounds()
	start := time.Now()

	db, err := c.dev.CreateDumbBuffer(uint32(b.Dx()), uint32(b.Dy()), format)
	if err != nil {
		return 0, fmt.Errorf("create dumb buffer failed: %w", err)
	}

	if err := c.fill(db, img); err != nil {
		_ = c.dev.DestroyDumbBuffer(db)
		return 0, err
	}

	fb, err := c.dev.AddFramebuffer(db)
	if err != nil {
		_ = c.dev.DestroyDumbBuffer(db)
		return 0, fmt.Errorf("add framebuffer failed: %w", err)
	}

	c.mu.Lock()
	c.buffers[fb] = db
	c.mu.Unlock()

	c.logger.With(
		zap.Uint32("fb", uint32(fb)),
		zap.Stringer("format", format),
		zap.Uint32("pitch", db.Pitch),
		zap.String("size", bytesize.New(float64(db.Size)).String()),
		zap.String("cost", time.Since(start).String()),
	).Debug("transfer")

	return fb, nil
}

func (c *Card) fill(db *drm.DumbBuffer, img image.Image) error {
	m, err := c.dev.MapDumbBuffer(db)
	if err != nil {
		return fmt.Errorf("map dumb buffer failed: %w", err)
	}
	defer func() {
		_ = m.Close()
	}()

	dst, err := bitmap.New(db.Format, m.Bytes(), int(db.Pitch), image.Rect(0, 0, int(db.Width), int(db.Height)))
	if err != nil {
		return err
	}

	if err := c.mixer.Canvas(dst, img); err != nil {
		return fmt.Errorf("draw canvas failed: %w", err)
	}
	return nil
}

// DestroyFramebuffer removes the framebuffer and, when this card uploaded
// it, the dumb buffer behind it.
func (c *Card) DestroyFramebuffer(h drm.FramebufferHandle) error {
	c.mu.Lock()
	db := c.buffers[h]
	c.mu.Unlock()

	released, err := release(c.dev, h, db)
	if released {
		c.mu.Lock()
		delete(c.buffers, h)
		c.mu.Unlock()
	}

	c.trace("rmfb", err, zap.Stringer("object", h.Object()), zap.Bool("owned", db != nil), zap.Bool("released", released))
	return err
}

type bufferDevice interface {
	DestroyFramebuffer(h drm.FramebufferHandle) error
	DestroyDumbBuffer(db *drm.DumbBuffer) error
}

// release runs RMFB for h and then destroys db, if any. A framebuffer the
// kernel no longer knows still has its dumb buffer destroyed; the RMFB
// error is returned either way. released reports whether db is gone.
func release(dev bufferDevice, h drm.FramebufferHandle, db *drm.DumbBuffer) (released bool, err error) {
	rmErr := dev.DestroyFramebuffer(h)
	if rmErr != nil && !drm.IsNotFound(rmErr) {
		return false, rmErr
	}
	if db == nil {
		return false, rmErr
	}

	if err := dev.DestroyDumbBuffer(db); err != nil {
		return false, fmt.Errorf("destroy dumb buffer failed: %w", err)
	}
	return true, rmErr
}

// Close removes every framebuffer this card created, then closes the device.
func (c *Card) Close() error {
	c.mu.Lock()
	fbs := lo.Keys(c.buffers)
	c.mu.Unlock()

	for _, fb := range fbs {
		if err := c.DestroyFramebuffer(fb); err != nil {
			c.logger.With(zap.Uint32("fb", uint32(fb)), zap.Error(err)).Info("cleanup failed")
		}
	}

	if c.master {
		_ = c.dev.DropMaster()
	}

	c.logger.With(zap.Int("framebuffers", len(fbs))).Debug("close")
	return c.dev.Close()
}
