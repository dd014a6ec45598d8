package repl

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sys/unix"

	"kmsctl/pkg/album"
	"kmsctl/pkg/device/virtual"
	"kmsctl/pkg/drm"
)

func newSession(t *testing.T, opts ...Option) (*virtual.Device, *Session, afero.Fs) {
	t.Helper()

	logger := zaptest.NewLogger(t)
	fs := afero.NewMemMapFs()
	dev := virtual.New(logger)
	s := NewSession(dev, album.New(album.WithFs(fs), album.WithLogger(logger)), logger, opts...)
	return dev, s, fs
}

func exec(t *testing.T, s *Session, line string) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, s.Execute(&buf, line))
	return buf.String()
}

func execErr(t *testing.T, s *Session, line string) error {
	t.Helper()

	var buf bytes.Buffer
	err := s.Execute(&buf, line)
	require.Error(t, err)
	return err
}

func writePNG(t *testing.T, fs afero.Fs, name string, w, h int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, afero.WriteFile(fs, name, buf.Bytes(), 0o644))
}

func propID(t *testing.T, dev *virtual.Device, obj drm.Object, name string) drm.PropertyHandle {
	t.Helper()

	set, err := dev.Properties(obj)
	require.NoError(t, err)
	for _, pv := range set.Values {
		info, err := dev.Property(pv.Property)
		require.NoError(t, err)
		if info.Name == name {
			return pv.Property
		}
	}
	t.Fatalf("%s has no property %s", obj, name)
	return 0
}

func TestGetResources(t *testing.T) {
	dev, s, _ := newSession(t)

	res, err := dev.ResourceHandles()
	require.NoError(t, err)

	out := exec(t, s, "GetResources")
	assert.Contains(t, out, fmt.Sprintf("\tConnectors: %v\n", res.Connectors))
	assert.Contains(t, out, fmt.Sprintf("\tEncoders: %v\n", res.Encoders))
	assert.Contains(t, out, fmt.Sprintf("\tCRTCS: %v\n", res.Crtcs))
	assert.Contains(t, out, "\tFramebuffers: []\n")
	assert.Contains(t, out, "\tPlanes: [")

	assert.Equal(t, out, exec(t, s, "getresources"))
}

func TestRunLoop(t *testing.T) {
	_, s, _ := newSession(t)

	var out bytes.Buffer
	in := strings.NewReader("Bogus\n\n   \nGetProperty\nQuit\nGetResources\n")
	require.NoError(t, s.Run(context.Background(), in, &out))

	assert.Equal(t, "Bogus\nUnknown command\n\n   \nGetProperty\n\terror: usage: GetProperty <h>\nQuit\n", out.String())
}

func TestRunWithoutEcho(t *testing.T) {
	_, s, _ := newSession(t, WithEcho(false))

	var out bytes.Buffer
	require.NoError(t, s.Run(context.Background(), strings.NewReader("nope\n\n"), &out))
	assert.Equal(t, "Unknown command\n", out.String())
}

func TestRunCancelled(t *testing.T) {
	_, s, _ := newSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, w := io.Pipe()
	defer w.Close()
	assert.NoError(t, s.Run(ctx, r, &bytes.Buffer{}))
}

func TestGetProperties(t *testing.T) {
	dev, s, _ := newSession(t)

	res, err := dev.ResourceHandles()
	require.NoError(t, err)
	hdmi := res.Connectors[0]
	dpms := propID(t, dev, hdmi.Object(), "DPMS")

	out := exec(t, s, fmt.Sprintf("GetProperties Connector %d", hdmi))
	assert.Contains(t, out, fmt.Sprintf("\tProperty: %d (DPMS)\tValue: 0 (On)\n", dpms))
	assert.Contains(t, out, "(EDID)\tValue: Blob(")

	err = execErr(t, s, "GetProperties Connector 999")
	assert.ErrorContains(t, err, "no such Connector(999)")

	err = execErr(t, s, "GetProperties Property 1")
	assert.ErrorContains(t, err, "not addressable")

	err = execErr(t, s, "GetProperties Connector x")
	assert.ErrorContains(t, err, "invalid handle")
}

func TestGetProperty(t *testing.T) {
	dev, s, _ := newSession(t)

	res, err := dev.ResourceHandles()
	require.NoError(t, err)
	dpms := propID(t, dev, res.Connectors[0].Object(), "DPMS")

	out := exec(t, s, fmt.Sprintf("GetProperty %d", dpms))
	assert.Equal(t, "\tName: DPMS\n\tMutable: true\n\tAtomic: false\n\tValue: Enum[On=0 Standby=1 Suspend=2 Off=3]\n", out)

	err = execErr(t, s, "GetProperty 999")
	assert.ErrorContains(t, err, "no such Property(999)")
}

func TestAtomicPropertyNeedsCap(t *testing.T) {
	dev, s, _ := newSession(t)

	res, err := dev.ResourceHandles()
	require.NoError(t, err)
	crtc := res.Crtcs[0]

	assert.NotContains(t, exec(t, s, fmt.Sprintf("GetProperties CRTC %d", crtc)), "ACTIVE")

	assert.Equal(t, "\tOK\n", exec(t, s, "SetClientCap Atomic 1"))

	out := exec(t, s, fmt.Sprintf("GetProperties CRTC %d", crtc))
	assert.Contains(t, out, "(ACTIVE)\tValue: true\n")

	err = execErr(t, s, "SetClientCap CursorPlaneHotspot 1")
	assert.ErrorIs(t, err, unix.EOPNOTSUPP)
}

func TestSetProperty(t *testing.T) {
	dev, s, _ := newSession(t)

	res, err := dev.ResourceHandles()
	require.NoError(t, err)
	hdmi := res.Connectors[0]
	dpms := propID(t, dev, hdmi.Object(), "DPMS")
	edid := propID(t, dev, hdmi.Object(), "EDID")

	out := exec(t, s, fmt.Sprintf("SetProperty Connector %d %d off", hdmi, dpms))
	assert.Equal(t, "\tOK: DPMS = 3 (Off)\n", out)

	set, err := dev.Properties(hdmi.Object())
	require.NoError(t, err)
	v, ok := set.Get(dpms)
	require.True(t, ok)
	assert.Equal(t, uint64(3), v)

	exec(t, s, fmt.Sprintf("SetProperty connector %d %d 1", hdmi, dpms))

	err = execErr(t, s, fmt.Sprintf("SetProperty Connector %d %d 7", hdmi, dpms))
	assert.ErrorContains(t, err, "is not one of")

	err = execErr(t, s, fmt.Sprintf("SetProperty Connector %d %d 0", hdmi, edid))
	assert.ErrorContains(t, err, "immutable")

	planes, err := dev.PlaneHandles()
	require.NoError(t, err)
	rotation := propID(t, dev, planes[0].Object(), "rotation")
	err = execErr(t, s, fmt.Sprintf("SetProperty Connector %d %d 1", hdmi, rotation))
	assert.ErrorContains(t, err, "has no property")

	out = exec(t, s, fmt.Sprintf("SetProperty Plane %d %d rotate-0|reflect-x", planes[0], rotation))
	assert.Equal(t, "\tOK: rotation = 0x11 (rotate-0|reflect-x)\n", out)
}

func TestLoadAndDestroy(t *testing.T) {
	dev, s, fs := newSession(t)
	writePNG(t, fs, "/img/a.png", 16, 8)

	out := exec(t, s, "Load /img/a.png argb8888")
	require.True(t, strings.HasPrefix(out, "\tFramebuffer: "))

	res, err := dev.ResourceHandles()
	require.NoError(t, err)
	require.Len(t, res.Framebuffers, 1)
	fb := res.Framebuffers[0]
	assert.Equal(t, fmt.Sprintf("\tFramebuffer: %d\n", fb), out)

	assert.Equal(t, fmt.Sprintf("\t%d\t16x8\tARGB8888\t/img/a.png\n", fb), exec(t, s, "Images"))

	out = exec(t, s, fmt.Sprintf("GetFramebuffer %d", fb))
	assert.Contains(t, out, "\tSize: 16x8\n")
	assert.Contains(t, out, "\tSource: /img/a.png")

	assert.Equal(t, "\tOK\n", exec(t, s, fmt.Sprintf("DestroyFramebuffer %d", fb)))
	assert.Equal(t, "\tnone\n", exec(t, s, "Images"))

	err = execErr(t, s, fmt.Sprintf("DestroyFramebuffer %d", fb))
	assert.ErrorContains(t, err, "no such Framebuffer")

	err = execErr(t, s, "Load /img/missing.png")
	assert.ErrorContains(t, err, "not found")

	err = execErr(t, s, "Load /img/a.png YUYV")
	assert.Error(t, err)
}

func TestSetPlane(t *testing.T) {
	dev, s, fs := newSession(t)
	writePNG(t, fs, "overlay.png", 4, 4)

	fb, err := s.Load(context.Background(), "overlay.png", drm.FormatARGB8888)
	require.NoError(t, err)

	res, err := dev.ResourceHandles()
	require.NoError(t, err)
	planes, err := dev.PlaneHandles()
	require.NoError(t, err)
	require.Len(t, planes, 1)
	overlay := planes[0]

	out := exec(t, s, fmt.Sprintf("SetPlane %d %d %d 10 20", overlay, res.Crtcs[1], fb))
	assert.Equal(t, "\tOK\n", out)

	info, err := dev.Plane(overlay)
	require.NoError(t, err)
	assert.Equal(t, fb, info.Framebuffer)
	assert.Equal(t, res.Crtcs[1], info.Crtc)

	err = execErr(t, s, fmt.Sprintf("SetPlane %d %d %d 10", overlay, res.Crtcs[1], fb))
	assert.ErrorContains(t, err, "both x and y")

	err = execErr(t, s, fmt.Sprintf("SetPlane %d %d 999", overlay, res.Crtcs[1]))
	assert.ErrorContains(t, err, "no such Framebuffer(999)")

	exec(t, s, fmt.Sprintf("SetPlane %d %d 0", overlay, res.Crtcs[1]))
	info, err = dev.Plane(overlay)
	require.NoError(t, err)
	assert.Zero(t, info.Framebuffer)
}

func TestObjectInfo(t *testing.T) {
	dev, s, _ := newSession(t)

	res, err := dev.ResourceHandles()
	require.NoError(t, err)

	out := exec(t, s, fmt.Sprintf("GetConnector %d", res.Connectors[0]))
	assert.Contains(t, out, "\tName: HDMI-A-1\n")
	assert.Contains(t, out, "\tConnection: Connected\n")
	assert.Contains(t, out, "1920x1080 1920x1080@60 (preferred)\n")

	out = exec(t, s, fmt.Sprintf("GetCrtc %d", res.Crtcs[0]))
	assert.Contains(t, out, "\tMode: 1920x1080 1920x1080@60\n")
	out = exec(t, s, fmt.Sprintf("GetCrtc %d", res.Crtcs[1]))
	assert.Contains(t, out, "\tMode: none\n")

	out = exec(t, s, fmt.Sprintf("GetEncoder %d", res.Encoders[0]))
	assert.Contains(t, out, "\tType: TMDS\n")
	assert.Contains(t, out, "\tPossibleCrtcs: 0b11\n")

	_ = execErr(t, s, fmt.Sprintf("GetEncoder %d", res.Connectors[0]))

	planes, err := dev.PlaneHandles()
	require.NoError(t, err)
	out = exec(t, s, fmt.Sprintf("GetPlane %d", planes[0]))
	assert.Contains(t, out, "\tFormats: ARGB8888 ABGR8888 XRGB8888\n")
}

func TestHandlesAreDecimal(t *testing.T) {
	dev, s, _ := newSession(t)

	res, err := dev.ResourceHandles()
	require.NoError(t, err)
	crtc := res.Crtcs[0]

	want := exec(t, s, fmt.Sprintf("GetCrtc %d", crtc))
	assert.Equal(t, want, exec(t, s, fmt.Sprintf("GetCrtc 0%d", crtc)), "leading zero")
	assert.Equal(t, want, exec(t, s, fmt.Sprintf("GetCrtc %#x", crtc)))

	id, err := parseID("010")
	require.NoError(t, err)
	assert.EqualValues(t, 10, id)
	_, err = parseID("0o10")
	assert.Error(t, err)
}

func TestGetBlob(t *testing.T) {
	dev, s, _ := newSession(t)

	res, err := dev.ResourceHandles()
	require.NoError(t, err)
	set, err := dev.Properties(res.Connectors[0].Object())
	require.NoError(t, err)
	edid, ok := set.Get(propID(t, dev, res.Connectors[0].Object(), "EDID"))
	require.True(t, ok)

	out := exec(t, s, fmt.Sprintf("GetBlob %d", edid))
	assert.Contains(t, out, "\tLength: 128\n")
	assert.Contains(t, out, "\tData: 00ffffffffffff00")
	assert.True(t, strings.HasSuffix(out, "...\n"))

	_ = execErr(t, s, "GetBlob 0")
	_ = execErr(t, s, "GetBlob 999")
}

func TestCapabilities(t *testing.T) {
	_, s, _ := newSession(t)

	assert.Equal(t, "\tDumbBuffer: 1\n", exec(t, s, "GetCap dumbbuffer"))
	assert.Contains(t, exec(t, s, "Capabilities"), "\tCursorWidth: 64\n")

	err := execErr(t, s, "GetCap Teleport")
	assert.ErrorContains(t, err, "unknown driver capability")
}

func TestHelp(t *testing.T) {
	_, s, _ := newSession(t)

	out := exec(t, s, "help")
	for _, c := range builtins() {
		assert.Contains(t, out, c.usage())
	}

	assert.ErrorIs(t, s.Execute(&bytes.Buffer{}, "exit"), ErrQuit)
	assert.ErrorIs(t, s.Execute(&bytes.Buffer{}, "frobnicate"), ErrUnknownCommand)
	assert.NoError(t, s.Execute(&bytes.Buffer{}, "   "))
}
