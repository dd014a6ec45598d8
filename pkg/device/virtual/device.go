package virtual

import (
	"bytes"
	"encoding/binary"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"kmsctl/pkg/drm"
	"kmsctl/pkg/mixer"
	"kmsctl/pkg/proto"
)

const (
	maxWidth  = 8192
	maxHeight = 8192
	gammaSize = 256
)

var _ proto.Control = (*Device)(nil)

// New builds a virtual card with two connectors (HDMI-A-1 connected,
// DP-1 disconnected), two encoders, two CRTCs, one primary plane per CRTC
// and a shared overlay plane. HDMI-A-1 starts lit on the first CRTC at
// 1920x1080 with nothing scanned out.
func New(logger *zap.Logger, opts ...Option) *Device {
	d := &Device{
		logger: logger,
		mixer:  mixer.NewDrawer(),
		caps:   make(map[drm.ClientCapability]bool),
		props:  make(map[drm.PropertyHandle]*drm.PropertyInfo),
		blobs:  make(map[drm.BlobHandle][]byte),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.registerProperties()
	d.buildTopology()

	return d
}

type Option func(d *Device)

// WithMixer sets the drawer used to fill uploaded buffers.
func WithMixer(m *mixer.Drawer) Option {
	return func(d *Device) {
		d.mixer = m
	}
}

type Device struct {
	mu     sync.Mutex
	logger *zap.Logger
	mixer  *mixer.Drawer
	closed bool

	lastID     uint32
	lastBuffer uint32

	caps  map[drm.ClientCapability]bool
	props map[drm.PropertyHandle]*drm.PropertyInfo
	blobs map[drm.BlobHandle][]byte
	table propertyTable

	connectors []*connector
	encoders   []*encoder
	crtcs      []*crtc
	planes     []*plane
	fbs        []*framebuffer
}

func (d *Device) nextID() uint32 {
	d.lastID++
	return d.lastID
}

func (d *Device) newBlob(data []byte) drm.BlobHandle {
	h := drm.BlobHandle(d.nextID())
	d.blobs[h] = data
	return h
}

func modeBlob(m drm.ModeInfo) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, m)
	return buf.Bytes()
}

func (d *Device) blobMode(h drm.BlobHandle) (*drm.ModeInfo, bool) {
	data, ok := d.blobs[h]
	if !ok || len(data) != binary.Size(drm.ModeInfo{}) {
		return nil, false
	}
	var m drm.ModeInfo
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &m); err != nil {
		return nil, false
	}
	return &m, true
}

func (d *Device) buildTopology() {
	t := d.table

	fhd := drm.NewModeInfo("1920x1080", 1920, 1080, 60)
	fhd.Type |= drm.ModeTypePreferred
	hd := drm.NewModeInfo("1280x720", 1280, 720, 60)

	edid := d.newBlob(buildEDID("Virtual", 510, 290))
	mode := d.newBlob(modeBlob(fhd))

	for i := 0; i < 2; i++ {
		c := &crtc{object: object{Object: drm.CrtcHandle(d.nextID()).Object()}, index: i}
		c.attach(t.active, 0)
		c.attach(t.modeID, 0)
		d.crtcs = append(d.crtcs, c)
	}

	primary := []drm.PixelFormat{drm.FormatXRGB8888, drm.FormatARGB8888, drm.FormatXBGR8888, drm.FormatABGR8888, drm.FormatRGB565}
	overlay := []drm.PixelFormat{drm.FormatARGB8888, drm.FormatABGR8888, drm.FormatXRGB8888}

	for i := range d.crtcs {
		p := &plane{object: object{Object: drm.PlaneHandle(d.nextID()).Object()}, possible: 1 << i, formats: primary}
		p.attach(t.planeType, uint64(planePrimary))
		p.attach(t.fbID, 0)
		p.attach(t.crtcID, 0)
		p.attach(t.crtcX, 0)
		p.attach(t.crtcY, 0)
		p.attach(t.zposFixed, 0)
		p.attach(t.rotation, rotate0)
		d.planes = append(d.planes, p)
	}

	o := &plane{object: object{Object: drm.PlaneHandle(d.nextID()).Object()}, possible: 0b11, formats: overlay}
	o.attach(t.planeType, uint64(planeOverlay))
	o.attach(t.fbID, 0)
	o.attach(t.crtcID, 0)
	o.attach(t.crtcX, 0)
	o.attach(t.crtcY, 0)
	o.attach(t.zpos, 1)
	o.attach(t.rotation, rotate0)
	d.planes = append(d.planes, o)

	for i := 0; i < 2; i++ {
		e := &encoder{object: object{Object: drm.EncoderHandle(d.nextID()).Object()}, typ: drm.EncoderTMDS, possible: 0b11}
		d.encoders = append(d.encoders, e)
	}

	hdmi := &connector{
		object:   object{Object: drm.ConnectorHandle(d.nextID()).Object()},
		typ:      drm.ConnectorHDMIA,
		typeID:   1,
		status:   drm.Connected,
		mmWidth:  510,
		mmHeight: 290,
		encoder:  d.encoders[0],
		modes:    []drm.ModeInfo{fhd, hd},
	}
	hdmi.attach(t.edid, uint64(edid))
	hdmi.attach(t.dpms, dpmsOn)
	hdmi.attach(t.linkStatus, linkGood)
	hdmi.attach(t.crtcID, 0)

	dp := &connector{
		object:  object{Object: drm.ConnectorHandle(d.nextID()).Object()},
		typ:     drm.ConnectorDisplayPort,
		typeID:  1,
		status:  drm.Disconnected,
		encoder: d.encoders[1],
	}
	dp.attach(t.edid, 0)
	dp.attach(t.dpms, dpmsOff)
	dp.attach(t.linkStatus, linkGood)
	dp.attach(t.crtcID, 0)

	d.connectors = append(d.connectors, hdmi, dp)

	first := d.crtcs[0]
	first.set(propActive, 1)
	first.set(propModeID, uint64(mode))
	hdmi.set(propCrtcID, uint64(first.ID))
	d.planes[0].set(propCrtcID, uint64(first.ID))
}

func (d *Device) errorf(op string, errno unix.Errno) error {
	d.logger.With(zap.String("op", op), zap.Error(errno)).Debug("refused")
	return drm.NewError(op, errno)
}

func (d *Device) findConnector(h drm.ConnectorHandle) *connector {
	for _, c := range d.connectors {
		if c.ID == uint32(h) {
			return c
		}
	}
	return nil
}

func (d *Device) findEncoder(h drm.EncoderHandle) *encoder {
	for _, e := range d.encoders {
		if e.ID == uint32(h) {
			return e
		}
	}
	return nil
}

func (d *Device) findCrtc(h drm.CrtcHandle) *crtc {
	for _, c := range d.crtcs {
		if c.ID == uint32(h) {
			return c
		}
	}
	return nil
}

func (d *Device) findPlane(h drm.PlaneHandle) *plane {
	for _, p := range d.planes {
		if p.ID == uint32(h) {
			return p
		}
	}
	return nil
}

func (d *Device) findFramebuffer(h drm.FramebufferHandle) *framebuffer {
	for _, f := range d.fbs {
		if f.ID == uint32(h) {
			return f
		}
	}
	return nil
}

// lookup resolves a mode object by type and id. ObjectAny matches any type.
func (d *Device) lookup(o drm.Object) *object {
	match := func(t drm.ObjectType) bool {
		return o.Type == t || o.Type == drm.ObjectAny
	}

	if match(drm.ObjectConnector) {
		if c := d.findConnector(drm.ConnectorHandle(o.ID)); c != nil {
			return &c.object
		}
	}
	if match(drm.ObjectEncoder) {
		if e := d.findEncoder(drm.EncoderHandle(o.ID)); e != nil {
			return &e.object
		}
	}
	if match(drm.ObjectCrtc) {
		if c := d.findCrtc(drm.CrtcHandle(o.ID)); c != nil {
			return &c.object
		}
	}
	if match(drm.ObjectPlane) {
		if p := d.findPlane(drm.PlaneHandle(o.ID)); p != nil {
			return &p.object
		}
	}
	if match(drm.ObjectFramebuffer) {
		if f := d.findFramebuffer(drm.FramebufferHandle(o.ID)); f != nil {
			return &f.object
		}
	}
	return nil
}

// primaryPlane is the primary plane that can only drive c.
func (d *Device) primaryPlane(c *crtc) *plane {
	for _, p := range d.planes {
		if p.kind() == planePrimary && p.possible == 1<<c.index {
			return p
		}
	}
	return nil
}
