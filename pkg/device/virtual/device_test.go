package virtual

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sys/unix"

	"kmsctl/pkg/drm"
	"kmsctl/pkg/proto"
)

func newDevice(t *testing.T) *Device {
	t.Helper()
	return New(zaptest.NewLogger(t))
}

func propByName(t *testing.T, d *Device, obj drm.Object, name string) (drm.PropertyHandle, uint64) {
	t.Helper()

	set, err := d.Properties(obj)
	require.NoError(t, err)
	for _, pv := range set.Values {
		info, err := d.Property(pv.Property)
		require.NoError(t, err)
		if info.Name == name {
			return pv.Property, pv.Value
		}
	}
	t.Fatalf("%s has no visible property %s", obj, name)
	return 0, 0
}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestTopology(t *testing.T) {
	d := newDevice(t)

	res, err := d.ResourceHandles()
	require.NoError(t, err)
	assert.Len(t, res.Connectors, 2)
	assert.Len(t, res.Encoders, 2)
	assert.Len(t, res.Crtcs, 2)
	assert.Empty(t, res.Framebuffers)
	assert.Equal(t, uint32(maxWidth), res.MaxWidth)

	hdmi, err := d.Connector(res.Connectors[0])
	require.NoError(t, err)
	assert.Equal(t, "HDMI-A-1", hdmi.Name())
	assert.Equal(t, drm.Connected, hdmi.Connection)
	require.Len(t, hdmi.Modes, 2)
	pm, ok := hdmi.PreferredMode()
	require.True(t, ok)
	assert.Equal(t, "1920x1080", pm.Name())
	assert.Equal(t, res.Encoders[0], hdmi.Encoder)

	dp, err := d.Connector(res.Connectors[1])
	require.NoError(t, err)
	assert.Equal(t, "DP-1", dp.Name())
	assert.Equal(t, drm.Disconnected, dp.Connection)
	assert.Empty(t, dp.Modes)
	assert.Zero(t, dp.Encoder)

	enc, err := d.Encoder(res.Encoders[0])
	require.NoError(t, err)
	assert.Equal(t, res.Crtcs[0], enc.Crtc)
	assert.Equal(t, uint32(0b11), enc.PossibleCrtcs)

	crtc, err := d.Crtc(res.Crtcs[0])
	require.NoError(t, err)
	require.NotNil(t, crtc.Mode)
	assert.Equal(t, uint16(1920), crtc.Mode.Hdisplay)
	assert.Zero(t, crtc.Framebuffer)

	idle, err := d.Crtc(res.Crtcs[1])
	require.NoError(t, err)
	assert.Nil(t, idle.Mode)

	ver, err := d.Driver()
	require.NoError(t, err)
	assert.Equal(t, "vkms", ver.Name)
}

func TestIdsAreSequential(t *testing.T) {
	d := newDevice(t)
	res, err := d.ResourceHandles()
	require.NoError(t, err)

	assert.Equal(t, res.Crtcs[0]+1, res.Crtcs[1])
	assert.Equal(t, res.Encoders[0]+1, res.Encoders[1])
	assert.Equal(t, uint32(res.Encoders[1])+1, uint32(res.Connectors[0]))
}

func TestUniversalPlanes(t *testing.T) {
	d := newDevice(t)

	planes, err := d.PlaneHandles()
	require.NoError(t, err)
	assert.Len(t, planes, 1, "only the overlay before universal planes")

	require.NoError(t, d.SetClientCapability(drm.ClientCapAtomic, true))
	planes, err = d.PlaneHandles()
	require.NoError(t, err)
	assert.Len(t, planes, 3, "atomic implies universal planes")

	info, err := d.Plane(planes[0])
	require.NoError(t, err)
	assert.Equal(t, uint32(1), info.PossibleCrtcs)
	assert.Contains(t, info.Formats, drm.FormatRGB565)
}

func TestAtomicPropertiesHidden(t *testing.T) {
	d := newDevice(t)
	res, err := d.ResourceHandles()
	require.NoError(t, err)

	set, err := d.Properties(res.Crtcs[0].Object())
	require.NoError(t, err)
	assert.Empty(t, set.Values)

	set, err = d.Properties(res.Connectors[0].Object())
	require.NoError(t, err)
	assert.Len(t, set.Values, 3)

	require.NoError(t, d.SetClientCapability(drm.ClientCapAtomic, true))

	set, err = d.Properties(res.Crtcs[0].Object())
	require.NoError(t, err)
	assert.Len(t, set.Values, 2)

	_, active := propByName(t, d, res.Crtcs[0].Object(), "ACTIVE")
	assert.Equal(t, uint64(1), active)

	h, _ := propByName(t, d, res.Crtcs[0].Object(), "ACTIVE")
	info, err := d.Property(h)
	require.NoError(t, err)
	assert.True(t, info.Atomic())
	assert.Equal(t, drm.ValueBoolean, info.ValueType.Kind)
}

func TestMissingObjects(t *testing.T) {
	d := newDevice(t)

	_, err := d.Connector(999)
	assert.True(t, errors.Is(err, unix.ENOENT))
	_, err = d.Crtc(999)
	assert.True(t, errors.Is(err, unix.ENOENT))
	_, err = d.Property(999)
	assert.True(t, errors.Is(err, unix.ENOENT))
	_, err = d.PropertyBlob(999)
	assert.True(t, errors.Is(err, unix.ENOENT))
	_, err = d.Properties(drm.Object{Type: drm.ObjectPlane, ID: 999})
	assert.True(t, errors.Is(err, unix.ENOENT))
	assert.True(t, errors.Is(d.DestroyFramebuffer(999), unix.ENOENT))

	res, err := d.ResourceHandles()
	require.NoError(t, err)
	_, err = d.Properties(drm.Object{Type: drm.ObjectPlane, ID: uint32(res.Crtcs[0])})
	assert.True(t, errors.Is(err, unix.ENOENT), "type must match")

	_, err = d.Properties(res.Encoders[0].Object())
	assert.True(t, errors.Is(err, unix.EINVAL))
}

func TestRefusalsAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := New(zap.New(core))

	_, err := d.Crtc(999)
	require.Error(t, err)

	refused := logs.FilterMessage("refused").All()
	require.Len(t, refused, 1)
	fields := refused[0].ContextMap()
	assert.Equal(t, "MODE_GETCRTC", fields["op"])
	assert.Equal(t, unix.ENOENT.Error(), fields["error"])
}

func TestSetProperty(t *testing.T) {
	d := newDevice(t)
	res, err := d.ResourceHandles()
	require.NoError(t, err)
	conn := res.Connectors[0].Object()

	dpms, v := propByName(t, d, conn, "DPMS")
	assert.Zero(t, v)
	require.NoError(t, d.SetProperty(conn, dpms, 3))
	_, v = propByName(t, d, conn, "DPMS")
	assert.Equal(t, uint64(3), v)

	err = d.SetProperty(conn, dpms, 9)
	assert.True(t, errors.Is(err, unix.EINVAL), "out of range")

	edid, blob := propByName(t, d, conn, "EDID")
	err = d.SetProperty(conn, edid, 0)
	assert.True(t, errors.Is(err, unix.EINVAL), "immutable")

	data, err := d.PropertyBlob(drm.BlobHandle(blob))
	require.NoError(t, err)
	require.Len(t, data, 128)
	assert.Equal(t, []byte{0, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0}, data[:8])
	var sum byte
	for _, b := range data {
		sum += b
	}
	assert.Zero(t, sum, "checksum")

	err = d.SetProperty(res.Crtcs[0].Object(), dpms, 0)
	assert.True(t, errors.Is(err, unix.EINVAL), "not attached")

	err = d.SetProperty(drm.Object{Type: drm.ObjectConnector, ID: 999}, dpms, 0)
	assert.True(t, errors.Is(err, unix.ENOENT))
}

func TestSetAtomicProperty(t *testing.T) {
	d := newDevice(t)
	res, err := d.ResourceHandles()
	require.NoError(t, err)
	crtc := res.Crtcs[1].Object()

	require.NoError(t, d.SetClientCapability(drm.ClientCapAtomic, true))
	active, _ := propByName(t, d, crtc, "ACTIVE")
	mode, _ := propByName(t, d, crtc, "MODE_ID")

	require.NoError(t, d.SetProperty(crtc, active, 1))
	assert.True(t, errors.Is(d.SetProperty(crtc, active, 2), unix.EINVAL))

	_, edid := propByName(t, d, res.Connectors[0].Object(), "EDID")
	assert.True(t, errors.Is(d.SetProperty(crtc, mode, edid), unix.EINVAL), "not a mode blob")

	_, fhd := propByName(t, d, res.Crtcs[0].Object(), "MODE_ID")
	require.NoError(t, d.SetProperty(crtc, mode, fhd))

	info, err := d.Crtc(res.Crtcs[1])
	require.NoError(t, err)
	require.NotNil(t, info.Mode)
	assert.Equal(t, "1920x1080", info.Mode.Name())

	require.NoError(t, d.SetClientCapability(drm.ClientCapAtomic, false))
	assert.True(t, errors.Is(d.SetProperty(crtc, active, 0), unix.EINVAL), "hidden again")
}

func TestUploadAndDestroy(t *testing.T) {
	d := newDevice(t)
	require.NoError(t, d.SetClientCapability(drm.ClientCapUniversalPlanes, true))

	fb, err := d.Upload(solid(10, 4, color.RGBA{R: 0xff, A: 0xff}), drm.FormatARGB8888)
	require.NoError(t, err)

	info, err := d.Framebuffer(fb)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), info.Width)
	assert.Equal(t, uint32(64), info.Pitch)
	assert.Equal(t, uint32(32), info.Bpp)
	assert.Equal(t, uint32(32), info.Depth)
	assert.NotZero(t, info.Buffer)

	img, err := d.Image(fb)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, img.At(9, 3))

	res, err := d.ResourceHandles()
	require.NoError(t, err)
	assert.Equal(t, []drm.FramebufferHandle{fb}, res.Framebuffers)

	planes, err := d.PlaneHandles()
	require.NoError(t, err)
	require.NoError(t, d.SetPlane(drm.PlaneRequest{
		Plane: planes[0], Crtc: res.Crtcs[0], Framebuffer: fb,
		CrtcW: 10, CrtcH: 4, SrcW: 10 << 16, SrcH: 4 << 16,
	}))

	crtc, err := d.Crtc(res.Crtcs[0])
	require.NoError(t, err)
	assert.Equal(t, fb, crtc.Framebuffer)

	require.NoError(t, d.DestroyFramebuffer(fb))

	plane, err := d.Plane(planes[0])
	require.NoError(t, err)
	assert.Zero(t, plane.Framebuffer)
	assert.Zero(t, plane.Crtc)

	crtc, err = d.Crtc(res.Crtcs[0])
	require.NoError(t, err)
	assert.Nil(t, crtc.Mode, "rmfb disables the crtc")

	hdmi, err := d.Connector(res.Connectors[0])
	require.NoError(t, err)
	assert.Zero(t, hdmi.Encoder)

	_, err = d.Framebuffer(fb)
	assert.True(t, errors.Is(err, unix.ENOENT))
}

func TestUploadRejects(t *testing.T) {
	d := newDevice(t)

	_, err := d.Upload(image.NewRGBA(image.Rect(0, 0, 0, 0)), drm.FormatARGB8888)
	assert.True(t, errors.Is(err, unix.EINVAL))

	_, err = d.Upload(solid(2, 2, color.White), drm.PixelFormat(0x3231564e))
	assert.True(t, errors.Is(err, unix.EINVAL))
}

func TestSetPlaneChecks(t *testing.T) {
	d := newDevice(t)
	require.NoError(t, d.SetClientCapability(drm.ClientCapUniversalPlanes, true))
	res, err := d.ResourceHandles()
	require.NoError(t, err)
	planes, err := d.PlaneHandles()
	require.NoError(t, err)

	fb, err := d.Upload(solid(8, 8, color.White), drm.FormatRGB565)
	require.NoError(t, err)

	err = d.SetPlane(drm.PlaneRequest{Plane: planes[0], Crtc: res.Crtcs[1], Framebuffer: fb, SrcW: 8 << 16, SrcH: 8 << 16})
	assert.True(t, errors.Is(err, unix.EINVAL), "primary 0 cannot drive crtc 1")

	err = d.SetPlane(drm.PlaneRequest{Plane: planes[2], Crtc: res.Crtcs[1], Framebuffer: fb, SrcW: 8 << 16, SrcH: 8 << 16})
	assert.True(t, errors.Is(err, unix.EINVAL), "overlay has no RGB565")

	err = d.SetPlane(drm.PlaneRequest{Plane: planes[0], Crtc: res.Crtcs[0], Framebuffer: fb, SrcW: 9 << 16, SrcH: 8 << 16})
	assert.True(t, errors.Is(err, unix.ENOSPC))

	err = d.SetPlane(drm.PlaneRequest{Plane: planes[0], Crtc: res.Crtcs[0], Framebuffer: 999})
	assert.True(t, errors.Is(err, unix.ENOENT))

	require.NoError(t, d.SetPlane(drm.PlaneRequest{Plane: planes[0], Crtc: res.Crtcs[0], Framebuffer: fb, CrtcX: -4, SrcW: 8 << 16, SrcH: 8 << 16}))
	require.NoError(t, d.SetClientCapability(drm.ClientCapAtomic, true))
	_, x := propByName(t, d, planes[0].Object(), "CRTC_X")
	assert.Equal(t, int64(-4), int64(x))

	require.NoError(t, d.SetPlane(drm.PlaneRequest{Plane: planes[0]}))
	info, err := d.Plane(planes[0])
	require.NoError(t, err)
	assert.Zero(t, info.Framebuffer)
}

func TestClientCapabilities(t *testing.T) {
	d := newDevice(t)

	err := d.SetClientCapability(drm.ClientCapWritebackConnectors, true)
	assert.True(t, errors.Is(err, unix.EINVAL), "needs atomic first")

	enabled := proto.EnableClientCapabilities(d, zaptest.NewLogger(t))
	assert.Equal(t, []drm.ClientCapability{
		drm.ClientCapStereo3D,
		drm.ClientCapUniversalPlanes,
		drm.ClientCapAtomic,
		drm.ClientCapAspectRatio,
		drm.ClientCapWritebackConnectors,
	}, enabled)

	v, err := d.Capability(drm.CapDumbBuffer)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), v)

	_, err = d.Capability(drm.DriverCapability(0x99))
	assert.True(t, errors.Is(err, unix.EINVAL))
}

func TestClose(t *testing.T) {
	d := newDevice(t)
	_, err := d.Upload(solid(2, 2, color.White), drm.FormatXRGB8888)
	require.NoError(t, err)

	require.NoError(t, d.Close())

	_, err = d.ResourceHandles()
	assert.True(t, errors.Is(err, unix.EBADF))
	assert.True(t, errors.Is(d.Close(), unix.EBADF))
}
