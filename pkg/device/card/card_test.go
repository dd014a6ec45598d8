package card

import (
	"image"
	"image/color"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sys/unix"

	"kmsctl/pkg/drm"
)

// These tests need a DRM device node and are skipped without one.
func openCard(t *testing.T) *Card {
	t.Helper()

	path := os.Getenv("KMSCTL_TEST_CARD")
	if path == "" {
		path = "/dev/dri/card0"
	}
	if _, err := os.Stat(path); err != nil {
		t.Skipf("no drm device at %s", path)
	}

	c, err := New(path, zaptest.NewLogger(t))
	if err != nil {
		t.Skipf("open %s: %s", path, err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpenMissing(t *testing.T) {
	_, err := New("/nonexistent/card9", zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestQueryResources(t *testing.T) {
	c := openCard(t)

	ver, err := c.Driver()
	require.NoError(t, err)
	assert.NotEmpty(t, ver.Name)

	res, err := c.ResourceHandles()
	require.NoError(t, err)

	for _, h := range res.Connectors {
		info, err := c.Connector(h)
		require.NoError(t, err)
		assert.Equal(t, h, info.Handle)
	}
}

func TestUploadRoundTrip(t *testing.T) {
	c := openCard(t)

	if v, err := c.Capability(drm.CapDumbBuffer); err != nil || v == 0 {
		t.Skip("no dumb buffer support")
	}

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	img.Set(3, 3, color.RGBA{G: 0xff, A: 0xff})

	fb, err := c.Upload(img, drm.FormatXRGB8888)
	require.NoError(t, err)

	info, err := c.Framebuffer(fb)
	require.NoError(t, err)
	assert.Equal(t, uint32(16), info.Width)

	require.NoError(t, c.DestroyFramebuffer(fb))
	assert.Empty(t, c.buffers)
}

type fakeBuffers struct {
	rmfb      error
	destroy   error
	destroyed []drm.BufferHandle
}

func (f *fakeBuffers) DestroyFramebuffer(drm.FramebufferHandle) error {
	return f.rmfb
}

func (f *fakeBuffers) DestroyDumbBuffer(db *drm.DumbBuffer) error {
	if f.destroy != nil {
		return f.destroy
	}
	f.destroyed = append(f.destroyed, db.Handle)
	return nil
}

func TestReleaseOwnedBuffer(t *testing.T) {
	dev := &fakeBuffers{}
	released, err := release(dev, 7, &drm.DumbBuffer{Handle: 3})
	require.NoError(t, err)
	assert.True(t, released)
	assert.Equal(t, []drm.BufferHandle{3}, dev.destroyed)

	released, err = release(dev, 8, nil)
	require.NoError(t, err)
	assert.False(t, released)
}

func TestReleaseAfterFramebufferVanished(t *testing.T) {
	dev := &fakeBuffers{rmfb: drm.NewError("MODE_RMFB", unix.ENOENT)}

	released, err := release(dev, 7, &drm.DumbBuffer{Handle: 3})
	assert.True(t, drm.IsNotFound(err))
	assert.True(t, released, "dumb buffer is destroyed even though RMFB failed")
	assert.Equal(t, []drm.BufferHandle{3}, dev.destroyed)
}

func TestReleaseKeepsBufferOnOtherErrors(t *testing.T) {
	dev := &fakeBuffers{rmfb: drm.NewError("MODE_RMFB", unix.EBUSY)}
	released, err := release(dev, 7, &drm.DumbBuffer{Handle: 3})
	assert.ErrorIs(t, err, unix.EBUSY)
	assert.False(t, released)
	assert.Empty(t, dev.destroyed)

	dev = &fakeBuffers{destroy: drm.NewError("MODE_DESTROY_DUMB", unix.EINVAL)}
	released, err = release(dev, 7, &drm.DumbBuffer{Handle: 3})
	assert.ErrorContains(t, err, "destroy dumb buffer failed")
	assert.False(t, released)
}
