package virtual

import (
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"kmsctl/pkg/drm"
)

func (d *Device) check(op string) error {
	if d.closed {
		return d.errorf(op, unix.EBADF)
	}
	return nil
}

func (d *Device) Driver() (*drm.Version, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check("VERSION"); err != nil {
		return nil, err
	}

	return &drm.Version{
		Major:       1,
		Minor:       0,
		Patch:       0,
		Name:        "vkms",
		Date:        "20180514",
		Description: "Virtual Kernel Mode Setting",
	}, nil
}

var capabilities = map[drm.DriverCapability]uint64{
	drm.CapDumbBuffer:         1,
	drm.CapVBlankHighCrtc:     1,
	drm.CapDumbPreferredDepth: 24,
	drm.CapDumbPreferShadow:   1,
	drm.CapPrime:              3,
	drm.CapTimestampMonotonic: 1,
	drm.CapAsyncPageFlip:      0,
	drm.CapCursorWidth:        64,
	drm.CapCursorHeight:       64,
	drm.CapAddFB2Modifiers:    0,
	drm.CapPageFlipTarget:     0,
	drm.CapCrtcInVBlankEvent:  1,
	drm.CapSyncobj:            0,
	drm.CapSyncobjTimeline:    0,
}

func (d *Device) Capability(capability drm.DriverCapability) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check("GET_CAP"); err != nil {
		return 0, err
	}

	v, ok := capabilities[capability]
	if !ok {
		return 0, d.errorf("GET_CAP", unix.EINVAL)
	}
	return v, nil
}

// SetClientCapability follows the kernel rules: values are 0 or 1,
// writeback connectors need atomic first, enabling atomic also enables
// universal planes, and cursor hotspots are unsupported.
func (d *Device) SetClientCapability(capability drm.ClientCapability, enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "SET_CLIENT_CAP"
	if err := d.check(op); err != nil {
		return err
	}

	switch capability {
	case drm.ClientCapStereo3D, drm.ClientCapUniversalPlanes, drm.ClientCapAspectRatio:
	case drm.ClientCapAtomic:
		if enable {
			d.caps[drm.ClientCapUniversalPlanes] = true
			d.caps[drm.ClientCapAspectRatio] = true
		}
	case drm.ClientCapWritebackConnectors:
		if !d.caps[drm.ClientCapAtomic] {
			return d.errorf(op, unix.EINVAL)
		}
	case drm.ClientCapCursorPlaneHotspot:
		return d.errorf(op, unix.EOPNOTSUPP)
	default:
		return d.errorf(op, unix.EINVAL)
	}

	d.caps[capability] = enable
	d.logger.With(zap.Stringer("cap", capability), zap.Bool("enable", enable)).Info("set-client-cap")
	return nil
}

func (d *Device) ResourceHandles() (*drm.ResourceHandles, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check("MODE_GETRESOURCES"); err != nil {
		return nil, err
	}

	res := &drm.ResourceHandles{
		MinWidth:  1,
		MaxWidth:  maxWidth,
		MinHeight: 1,
		MaxHeight: maxHeight,
	}
	for _, f := range d.fbs {
		res.Framebuffers = append(res.Framebuffers, drm.FramebufferHandle(f.ID))
	}
	for _, c := range d.crtcs {
		res.Crtcs = append(res.Crtcs, drm.CrtcHandle(c.ID))
	}
	for _, c := range d.connectors {
		res.Connectors = append(res.Connectors, drm.ConnectorHandle(c.ID))
	}
	for _, e := range d.encoders {
		res.Encoders = append(res.Encoders, drm.EncoderHandle(e.ID))
	}
	return res, nil
}

// PlaneHandles hides primary and cursor planes until the client enables
// universal planes.
func (d *Device) PlaneHandles() ([]drm.PlaneHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check("MODE_GETPLANERESOURCES"); err != nil {
		return nil, err
	}

	var planes []drm.PlaneHandle
	for _, p := range d.planes {
		if p.kind() != planeOverlay && !d.caps[drm.ClientCapUniversalPlanes] {
			continue
		}
		planes = append(planes, drm.PlaneHandle(p.ID))
	}
	return planes, nil
}

func (d *Device) Connector(h drm.ConnectorHandle) (*drm.ConnectorInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "MODE_GETCONNECTOR"
	if err := d.check(op); err != nil {
		return nil, err
	}

	c := d.findConnector(h)
	if c == nil {
		return nil, d.errorf(op, unix.ENOENT)
	}

	info := &drm.ConnectorInfo{
		Handle:     h,
		Type:       c.typ,
		TypeID:     c.typeID,
		Connection: c.status,
		MmWidth:    c.mmWidth,
		MmHeight:   c.mmHeight,
		Subpixel:   1,
		Encoders:   []drm.EncoderHandle{drm.EncoderHandle(c.encoder.ID)},
		Modes:      append([]drm.ModeInfo(nil), c.modes...),
	}
	if c.get(propCrtcID) != 0 {
		info.Encoder = drm.EncoderHandle(c.encoder.ID)
	}
	return info, nil
}

func (d *Device) Encoder(h drm.EncoderHandle) (*drm.EncoderInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "MODE_GETENCODER"
	if err := d.check(op); err != nil {
		return nil, err
	}

	e := d.findEncoder(h)
	if e == nil {
		return nil, d.errorf(op, unix.ENOENT)
	}

	info := &drm.EncoderInfo{
		Handle:        h,
		Type:          e.typ,
		PossibleCrtcs: e.possible,
	}
	for _, c := range d.connectors {
		if c.encoder == e {
			info.Crtc = drm.CrtcHandle(c.get(propCrtcID))
		}
	}
	return info, nil
}

func (d *Device) Crtc(h drm.CrtcHandle) (*drm.CrtcInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "MODE_GETCRTC"
	if err := d.check(op); err != nil {
		return nil, err
	}

	c := d.findCrtc(h)
	if c == nil {
		return nil, d.errorf(op, unix.ENOENT)
	}

	info := &drm.CrtcInfo{Handle: h, GammaSize: gammaSize}
	if p := d.primaryPlane(c); p != nil && p.get(propCrtcID) == uint64(c.ID) {
		info.Framebuffer = drm.FramebufferHandle(p.get(propFbID))
		info.X = uint32(p.get(propCrtcX))
		info.Y = uint32(p.get(propCrtcY))
	}
	if mode, ok := d.blobMode(drm.BlobHandle(c.get(propModeID))); ok {
		info.Mode = mode
	}
	return info, nil
}

func (d *Device) Plane(h drm.PlaneHandle) (*drm.PlaneInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "MODE_GETPLANE"
	if err := d.check(op); err != nil {
		return nil, err
	}

	p := d.findPlane(h)
	if p == nil {
		return nil, d.errorf(op, unix.ENOENT)
	}

	return &drm.PlaneInfo{
		Handle:        h,
		Crtc:          drm.CrtcHandle(p.get(propCrtcID)),
		Framebuffer:   drm.FramebufferHandle(p.get(propFbID)),
		PossibleCrtcs: p.possible,
		Formats:       append([]drm.PixelFormat(nil), p.formats...),
	}, nil
}

var fbDepth = map[drm.PixelFormat]uint32{
	drm.FormatARGB8888: 32,
	drm.FormatXRGB8888: 24,
	drm.FormatABGR8888: 32,
	drm.FormatXBGR8888: 24,
	drm.FormatRGB565:   16,
}

func (d *Device) Framebuffer(h drm.FramebufferHandle) (*drm.FramebufferInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "MODE_GETFB"
	if err := d.check(op); err != nil {
		return nil, err
	}

	f := d.findFramebuffer(h)
	if f == nil {
		return nil, d.errorf(op, unix.ENOENT)
	}

	return &drm.FramebufferInfo{
		Handle: h,
		Width:  f.width,
		Height: f.height,
		Pitch:  f.pitch,
		Bpp:    f.format.Bpp(),
		Depth:  fbDepth[f.format],
		Buffer: f.buffer,
	}, nil
}

// Properties lists the visible properties of obj. Encoders and
// framebuffers carry none and are refused like the kernel does.
func (d *Device) Properties(obj drm.Object) (*drm.PropertySet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "MODE_OBJ_GETPROPERTIES"
	if err := d.check(op); err != nil {
		return nil, err
	}

	o := d.lookup(obj)
	if o == nil {
		return nil, d.errorf(op, unix.ENOENT)
	}
	if len(o.props) == 0 {
		return nil, d.errorf(op, unix.EINVAL)
	}

	set := &drm.PropertySet{Object: o.Object}
	for _, pv := range o.props {
		if d.visible(pv.def) {
			set.Values = append(set.Values, drm.PropertyValue{Property: pv.def.Handle, Value: pv.value})
		}
	}
	return set, nil
}

func (d *Device) Property(h drm.PropertyHandle) (*drm.PropertyInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "MODE_GETPROPERTY"
	if err := d.check(op); err != nil {
		return nil, err
	}

	p, ok := d.props[h]
	if !ok {
		return nil, d.errorf(op, unix.ENOENT)
	}

	info := *p
	info.ValueType.Enums = append([]drm.EnumValue(nil), p.ValueType.Enums...)
	return &info, nil
}

func (d *Device) PropertyBlob(h drm.BlobHandle) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	const op = "MODE_GETPROPBLOB"
	if err := d.check(op); err != nil {
		return nil, err
	}

	data, ok := d.blobs[h]
	if !ok {
		return nil, d.errorf(op, unix.ENOENT)
	}
	return append([]byte(nil), data...), nil
}
