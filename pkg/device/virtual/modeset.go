package virtual

import (
	"image"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"kmsctl/pkg/bitmap"
	"kmsctl/pkg/drm"
)

const pitchAlign = 64

// SetProperty rejects unknown objects with ENOENT, and properties that are
// not attached, not visible, immutable or out of range with EINVAL.
func (d *Device) SetProperty(obj drm.Object, prop drm.PropertyHandle, value uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "MODE_OBJ_SETPROPERTY"
	if err := d.check(op); err != nil {
		return err
	}

	o := d.lookup(obj)
	if o == nil {
		return d.errorf(op, unix.ENOENT)
	}

	pv := o.find(prop)
	if pv == nil || !d.visible(pv.def) || !pv.def.Mutable() {
		return d.errorf(op, unix.EINVAL)
	}
	if err := pv.def.ValueType.Check(value); err != nil {
		return d.errorf(op, unix.EINVAL)
	}
	if !d.validReference(pv.def, value) {
		return d.errorf(op, unix.EINVAL)
	}

	old := pv.value
	pv.value = value

	d.logger.With(
		zap.Stringer("object", o.Object),
		zap.String("prop", pv.def.Name),
		zap.Uint64("old", old),
		zap.Uint64("value", value),
	).Info("set-property")
	return nil
}

// validReference checks that object and blob values point at something
// that exists. Zero always means none.
func (d *Device) validReference(def *drm.PropertyInfo, value uint64) bool {
	if value == 0 {
		return true
	}
	switch def.ValueType.Kind {
	case drm.ValueObject:
		return d.lookup(drm.Object{Type: def.ValueType.Object, ID: uint32(value)}) != nil
	case drm.ValueBlob:
		if def.Name == propModeID {
			_, ok := d.blobMode(drm.BlobHandle(value))
			return ok
		}
		_, ok := d.blobs[drm.BlobHandle(value)]
		return ok
	}
	return true
}

// Upload creates a dumb buffer sized to img, draws img into it and adds a
// framebuffer for it.
func (d *Device) Upload(img image.Image, format drm.PixelFormat) (drm.FramebufferHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check("MODE_CREATE_DUMB"); err != nil {
		return 0, err
	}

	b := img.Bounds()
	if !format.Known() || b.Empty() || b.Dx() > maxWidth || b.Dy() > maxHeight {
		return 0, d.errorf("MODE_CREATE_DUMB", unix.EINVAL)
	}

	pitch := (bitmap.Stride(format, b.Dx()) + pitchAlign - 1) / pitchAlign * pitchAlign
	pix := make([]byte, pitch*b.Dy())

	dst, err := bitmap.New(format, pix, pitch, image.Rect(0, 0, b.Dx(), b.Dy()))
	if err != nil {
		return 0, err
	}
	if err := d.mixer.Canvas(dst, img); err != nil {
		return 0, err
	}

	d.lastBuffer++
	f := &framebuffer{
		object: object{Object: drm.FramebufferHandle(d.nextID()).Object()},
		width:  uint32(b.Dx()),
		height: uint32(b.Dy()),
		pitch:  uint32(pitch),
		format: format,
		buffer: drm.BufferHandle(d.lastBuffer),
		pix:    pix,
	}
	d.fbs = append(d.fbs, f)

	d.logger.With(
		zap.Uint32("fb", f.ID),
		zap.Stringer("format", format),
		zap.Int("w", b.Dx()),
		zap.Int("h", b.Dy()),
		zap.Int("pitch", pitch),
	).Info("upload")
	return drm.FramebufferHandle(f.ID), nil
}

// Image returns a view of the pixels behind a framebuffer.
func (d *Device) Image(h drm.FramebufferHandle) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	f := d.findFramebuffer(h)
	if f == nil {
		return nil, d.errorf("MODE_GETFB", unix.ENOENT)
	}
	return bitmap.New(f.format, f.pix, int(f.pitch), image.Rect(0, 0, int(f.width), int(f.height)))
}

// DestroyFramebuffer removes the framebuffer. Planes scanning it out are
// disabled, and so are CRTCs whose primary plane showed it.
func (d *Device) DestroyFramebuffer(h drm.FramebufferHandle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "MODE_RMFB"
	if err := d.check(op); err != nil {
		return err
	}

	f := d.findFramebuffer(h)
	if f == nil {
		return d.errorf(op, unix.ENOENT)
	}

	d.detach(f)
	d.fbs = lo.Without(d.fbs, f)

	d.logger.With(zap.Uint32("fb", f.ID)).Info("rmfb")
	return nil
}

func (d *Device) detach(f *framebuffer) {
	for _, p := range d.planes {
		if p.get(propFbID) != uint64(f.ID) {
			continue
		}
		if p.kind() == planePrimary {
			if c := d.findCrtc(drm.CrtcHandle(p.get(propCrtcID))); c != nil {
				d.disableCrtc(c)
			}
		}
		p.set(propFbID, 0)
		p.set(propCrtcID, 0)
	}
}

func (d *Device) disableCrtc(c *crtc) {
	c.set(propActive, 0)
	c.set(propModeID, 0)
	for _, conn := range d.connectors {
		if conn.get(propCrtcID) == uint64(c.ID) {
			conn.set(propCrtcID, 0)
		}
	}
}

// SetPlane mirrors the legacy SETPLANE checks. A zero framebuffer turns
// the plane off; the source rectangle must lie inside the framebuffer.
func (d *Device) SetPlane(req drm.PlaneRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "MODE_SETPLANE"
	if err := d.check(op); err != nil {
		return err
	}

	p := d.findPlane(req.Plane)
	if p == nil {
		return d.errorf(op, unix.ENOENT)
	}

	if req.Framebuffer == 0 {
		p.set(propFbID, 0)
		p.set(propCrtcID, 0)
		d.logger.With(zap.Stringer("plane", p.Object)).Info("plane-off")
		return nil
	}

	c := d.findCrtc(req.Crtc)
	f := d.findFramebuffer(req.Framebuffer)
	if c == nil || f == nil {
		return d.errorf(op, unix.ENOENT)
	}

	if p.possible&(1<<c.index) == 0 {
		return d.errorf(op, unix.EINVAL)
	}
	if !lo.Contains(p.formats, f.format) {
		return d.errorf(op, unix.EINVAL)
	}

	fbW, fbH := uint64(f.width)<<16, uint64(f.height)<<16
	if uint64(req.SrcW) > fbW || uint64(req.SrcX) > fbW-uint64(req.SrcW) ||
		uint64(req.SrcH) > fbH || uint64(req.SrcY) > fbH-uint64(req.SrcH) {
		return d.errorf(op, unix.ENOSPC)
	}

	p.set(propFbID, uint64(f.ID))
	p.set(propCrtcID, uint64(c.ID))
	p.set(propCrtcX, uint64(int64(req.CrtcX)))
	p.set(propCrtcY, uint64(int64(req.CrtcY)))

	d.logger.With(
		zap.Stringer("plane", p.Object),
		zap.Stringer("crtc", c.Object),
		zap.Stringer("fb", f.Object),
		zap.Int32("x", req.CrtcX),
		zap.Int32("y", req.CrtcY),
	).Info("set-plane")
	return nil
}

// Close drops every framebuffer, as closing the device file does.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check("CLOSE"); err != nil {
		return err
	}

	for _, f := range d.fbs {
		d.detach(f)
	}
	n := len(d.fbs)
	d.fbs = nil
	d.closed = true

	d.logger.With(zap.Int("framebuffers", n)).Info("close")
	return nil
}
