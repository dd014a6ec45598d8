package drm

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const cardPathFormat = "/dev/dri/card%d"

// Card is an open DRM device node.
type Card struct {
	file *os.File
	path string
}

func Open(path string) (*Card, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return &Card{file: f, path: path}, nil
}

// OpenIndex opens /dev/dri/card<n>.
func OpenIndex(n int) (*Card, error) {
	return Open(fmt.Sprintf(cardPathFormat, n))
}

func (c *Card) Close() error {
	return c.file.Close()
}

func (c *Card) Fd() uintptr {
	return c.file.Fd()
}

func (c *Card) Path() string {
	return c.path
}

func (c *Card) do(op string, req uintptr, arg unsafe.Pointer) error {
	if errno := ioctl(c.file.Fd(), req, arg); errno != 0 {
		return &Error{Op: op, Errno: errno}
	}
	return nil
}

func (c *Card) SetMaster() error {
	return c.do("SET_MASTER", ioctlSetMaster, nil)
}

func (c *Card) DropMaster() error {
	return c.do("DROP_MASTER", ioctlDropMaster, nil)
}

type Version struct {
	Major, Minor, Patch int
	Name                string
	Date                string
	Description         string
}

func (v *Version) String() string {
	return fmt.Sprintf("%s %d.%d.%d (%s, %s)", v.Name, v.Major, v.Minor, v.Patch, v.Description, v.Date)
}

func (c *Card) Version() (*Version, error) {
	return legacyVersion(c.file)
}

func (c *Card) Capability(capability DriverCapability) (uint64, error) {
	return legacyCapability(c.file, capability)
}

func (c *Card) SetClientCapability(capability ClientCapability, enable bool) error {
	arg := sysCap{capability: uint64(capability)}
	if enable {
		arg.value = 1
	}
	return c.do("SET_CLIENT_CAP", ioctlSetClientCap, unsafe.Pointer(&arg))
}

// ResourceHandles lists framebuffers, CRTCs, connectors and encoders. The
// query is repeated when a hotplug grows a list between the count and fill calls.
func (c *Card) ResourceHandles() (*ResourceHandles, error) {
	for {
		var res sysCardRes
		if err := c.do("MODE_GETRESOURCES", ioctlModeGetResources, unsafe.Pointer(&res)); err != nil {
			return nil, err
		}

		counts := res
		fbs := make([]FramebufferHandle, counts.countFbs)
		crtcs := make([]CrtcHandle, counts.countCrtcs)
		conns := make([]ConnectorHandle, counts.countConnectors)
		encs := make([]EncoderHandle, counts.countEncoders)
		res.fbIDPtr = slicePtr(fbs)
		res.crtcIDPtr = slicePtr(crtcs)
		res.connectorIDPtr = slicePtr(conns)
		res.encoderIDPtr = slicePtr(encs)

		if err := c.do("MODE_GETRESOURCES", ioctlModeGetResources, unsafe.Pointer(&res)); err != nil {
			return nil, err
		}
		runtime.KeepAlive(fbs)
		runtime.KeepAlive(crtcs)
		runtime.KeepAlive(conns)
		runtime.KeepAlive(encs)

		if res.countFbs > counts.countFbs || res.countCrtcs > counts.countCrtcs ||
			res.countConnectors > counts.countConnectors || res.countEncoders > counts.countEncoders {
			continue
		}

		return &ResourceHandles{
			Framebuffers: fbs[:res.countFbs],
			Crtcs:        crtcs[:res.countCrtcs],
			Connectors:   conns[:res.countConnectors],
			Encoders:     encs[:res.countEncoders],
			MinWidth:     res.minWidth,
			MaxWidth:     res.maxWidth,
			MinHeight:    res.minHeight,
			MaxHeight:    res.maxHeight,
		}, nil
	}
}

// PlaneHandles lists planes. Primary and cursor planes only show up once
// ClientCapUniversalPlanes is enabled.
func (c *Card) PlaneHandles() ([]PlaneHandle, error) {
	for {
		var res sysGetPlaneRes
		if err := c.do("MODE_GETPLANERESOURCES", ioctlModeGetPlaneRes, unsafe.Pointer(&res)); err != nil {
			return nil, err
		}

		count := res.countPlanes
		planes := make([]PlaneHandle, count)
		res.planeIDPtr = slicePtr(planes)

		if err := c.do("MODE_GETPLANERESOURCES", ioctlModeGetPlaneRes, unsafe.Pointer(&res)); err != nil {
			return nil, err
		}
		runtime.KeepAlive(planes)

		if res.countPlanes > count {
			continue
		}
		return planes[:res.countPlanes], nil
	}
}

// Connector fetches connector state. The first call with no modes makes
// the kernel probe the output.
func (c *Card) Connector(h ConnectorHandle) (*ConnectorInfo, error) {
	for {
		conn := sysGetConnector{connectorID: uint32(h)}
		if err := c.do("MODE_GETCONNECTOR", ioctlModeGetConnector, unsafe.Pointer(&conn)); err != nil {
			return nil, err
		}

		modeCount, encCount := conn.countModes, conn.countEncoders
		modes := make([]ModeInfo, modeCount)
		encs := make([]EncoderHandle, encCount)
		conn.modesPtr = slicePtr(modes)
		conn.encodersPtr = slicePtr(encs)
		conn.countProps = 0
		conn.propsPtr = 0
		conn.propValuesPtr = 0

		if err := c.do("MODE_GETCONNECTOR", ioctlModeGetConnector, unsafe.Pointer(&conn)); err != nil {
			return nil, err
		}
		runtime.KeepAlive(modes)
		runtime.KeepAlive(encs)

		if conn.countModes > modeCount || conn.countEncoders > encCount {
			continue
		}

		return &ConnectorInfo{
			Handle:     h,
			Type:       ConnectorType(conn.connectorType),
			TypeID:     conn.connectorTypeID,
			Connection: Connection(conn.connection),
			MmWidth:    conn.mmWidth,
			MmHeight:   conn.mmHeight,
			Subpixel:   conn.subpixel,
			Encoder:    EncoderHandle(conn.encoderID),
			Encoders:   encs[:conn.countEncoders],
			Modes:      modes[:conn.countModes],
		}, nil
	}
}

func (c *Card) Encoder(h EncoderHandle) (*EncoderInfo, error) {
	enc := sysGetEncoder{encoderID: uint32(h)}
	if err := c.do("MODE_GETENCODER", ioctlModeGetEncoder, unsafe.Pointer(&enc)); err != nil {
		return nil, err
	}
	return &EncoderInfo{
		Handle:         h,
		Type:           EncoderType(enc.encoderType),
		Crtc:           CrtcHandle(enc.crtcID),
		PossibleCrtcs:  enc.possibleCrtcs,
		PossibleClones: enc.possibleClones,
	}, nil
}

func (c *Card) Crtc(h CrtcHandle) (*CrtcInfo, error) {
	crtc := sysCrtc{crtcID: uint32(h)}
	if err := c.do("MODE_GETCRTC", ioctlModeGetCrtc, unsafe.Pointer(&crtc)); err != nil {
		return nil, err
	}
	info := &CrtcInfo{
		Handle:      h,
		Framebuffer: FramebufferHandle(crtc.fbID),
		X:           crtc.x,
		Y:           crtc.y,
		GammaSize:   crtc.gammaSize,
	}
	if crtc.modeValid != 0 {
		mode := crtc.mode
		info.Mode = &mode
	}
	return info, nil
}

func (c *Card) Plane(h PlaneHandle) (*PlaneInfo, error) {
	for {
		plane := sysGetPlane{planeID: uint32(h)}
		if err := c.do("MODE_GETPLANE", ioctlModeGetPlane, unsafe.Pointer(&plane)); err != nil {
			return nil, err
		}

		count := plane.countFormatTypes
		formats := make([]PixelFormat, count)
		plane.formatTypePtr = slicePtr(formats)

		if err := c.do("MODE_GETPLANE", ioctlModeGetPlane, unsafe.Pointer(&plane)); err != nil {
			return nil, err
		}
		runtime.KeepAlive(formats)

		if plane.countFormatTypes > count {
			continue
		}

		return &PlaneInfo{
			Handle:        h,
			Crtc:          CrtcHandle(plane.crtcID),
			Framebuffer:   FramebufferHandle(plane.fbID),
			PossibleCrtcs: plane.possibleCrtcs,
			GammaSize:     plane.gammaSize,
			Formats:       formats[:plane.countFormatTypes],
		}, nil
	}
}

// Framebuffer describes a framebuffer. Buffer is only filled in for the
// master or root.
func (c *Card) Framebuffer(h FramebufferHandle) (*FramebufferInfo, error) {
	fb := sysFBCmd{fbID: uint32(h)}
	if err := c.do("MODE_GETFB", ioctlModeGetFB, unsafe.Pointer(&fb)); err != nil {
		return nil, err
	}
	return &FramebufferInfo{
		Handle: h,
		Width:  fb.width,
		Height: fb.height,
		Pitch:  fb.pitch,
		Bpp:    fb.bpp,
		Depth:  fb.depth,
		Buffer: BufferHandle(fb.handle),
	}, nil
}

func (c *Card) Properties(obj Object) (*PropertySet, error) {
	for {
		arg := sysObjGetProperties{objID: obj.ID, objType: uint32(obj.Type)}
		if err := c.do("MODE_OBJ_GETPROPERTIES", ioctlModeObjGetProperties, unsafe.Pointer(&arg)); err != nil {
			return nil, err
		}

		count := arg.countProps
		props := make([]PropertyHandle, count)
		values := make([]uint64, count)
		arg.propsPtr = slicePtr(props)
		arg.propValuesPtr = slicePtr(values)

		if err := c.do("MODE_OBJ_GETPROPERTIES", ioctlModeObjGetProperties, unsafe.Pointer(&arg)); err != nil {
			return nil, err
		}
		runtime.KeepAlive(props)
		runtime.KeepAlive(values)

		if arg.countProps > count {
			continue
		}

		set := &PropertySet{Object: obj, Values: make([]PropertyValue, arg.countProps)}
		for i := range set.Values {
			set.Values[i] = PropertyValue{Property: props[i], Value: values[i]}
		}
		return set, nil
	}
}

func (c *Card) Property(h PropertyHandle) (*PropertyInfo, error) {
	prop := sysGetProperty{propID: uint32(h)}
	if err := c.do("MODE_GETPROPERTY", ioctlModeGetProperty, unsafe.Pointer(&prop)); err != nil {
		return nil, err
	}

	values := make([]uint64, prop.countValues)
	enums := make([]sysPropertyEnum, prop.countEnumBlobs)
	prop.valuesPtr = slicePtr(values)
	prop.enumBlobPtr = slicePtr(enums)

	if err := c.do("MODE_GETPROPERTY", ioctlModeGetProperty, unsafe.Pointer(&prop)); err != nil {
		return nil, err
	}
	runtime.KeepAlive(values)
	runtime.KeepAlive(enums)

	// Blob properties report blob ids in the enum array on old kernels.
	var decoded []EnumValue
	if prop.flags&(PropEnum|PropBitmask) != 0 {
		decoded = make([]EnumValue, len(enums))
		for i, e := range enums {
			decoded[i] = EnumValue{Value: e.value, Name: cString(e.name[:])}
		}
	}

	return &PropertyInfo{
		Handle:    h,
		Name:      cString(prop.name[:]),
		Flags:     prop.flags,
		ValueType: DecodeValueType(prop.flags, values, decoded),
	}, nil
}

func (c *Card) PropertyBlob(h BlobHandle) ([]byte, error) {
	blob := sysGetBlob{blobID: uint32(h)}
	if err := c.do("MODE_GETPROPBLOB", ioctlModeGetPropBlob, unsafe.Pointer(&blob)); err != nil {
		return nil, err
	}

	data := make([]byte, blob.length)
	blob.data = slicePtr(data)

	if err := c.do("MODE_GETPROPBLOB", ioctlModeGetPropBlob, unsafe.Pointer(&blob)); err != nil {
		return nil, err
	}
	runtime.KeepAlive(data)

	return data, nil
}

func (c *Card) SetProperty(obj Object, prop PropertyHandle, value uint64) error {
	arg := sysObjSetProperty{
		value:   value,
		propID:  uint32(prop),
		objID:   obj.ID,
		objType: uint32(obj.Type),
	}
	return c.do("MODE_OBJ_SETPROPERTY", ioctlModeObjSetProperty, unsafe.Pointer(&arg))
}

// SetCrtc programs a CRTC. A nil mode with no connectors disables it.
func (c *Card) SetCrtc(h CrtcHandle, fb FramebufferHandle, x, y uint32, conns []ConnectorHandle, mode *ModeInfo) error {
	crtc := sysCrtc{
		setConnectorsPtr: slicePtr(conns),
		countConnectors:  uint32(len(conns)),
		crtcID:           uint32(h),
		fbID:             uint32(fb),
		x:                x,
		y:                y,
	}
	if mode != nil {
		crtc.mode = *mode
		crtc.modeValid = 1
	}
	err := c.do("MODE_SETCRTC", ioctlModeSetCrtc, unsafe.Pointer(&crtc))
	runtime.KeepAlive(conns)
	return err
}

// PlaneRequest places a framebuffer region on a CRTC. Source coordinates
// are 16.16 fixed point.
type PlaneRequest struct {
	Plane       PlaneHandle
	Crtc        CrtcHandle
	Framebuffer FramebufferHandle

	CrtcX, CrtcY int32
	CrtcW, CrtcH uint32

	SrcX, SrcY uint32
	SrcW, SrcH uint32
}

func (c *Card) SetPlane(req PlaneRequest) error {
	arg := sysSetPlane{
		planeID: uint32(req.Plane),
		crtcID:  uint32(req.Crtc),
		fbID:    uint32(req.Framebuffer),
		crtcX:   req.CrtcX,
		crtcY:   req.CrtcY,
		crtcW:   req.CrtcW,
		crtcH:   req.CrtcH,
		srcX:    req.SrcX,
		srcY:    req.SrcY,
		srcW:    req.SrcW,
		srcH:    req.SrcH,
	}
	return c.do("MODE_SETPLANE", ioctlModeSetPlane, unsafe.Pointer(&arg))
}

func (c *Card) DestroyFramebuffer(h FramebufferHandle) error {
	return legacyRmFB(c.file, h)
}

var errNoFormat = errors.New("buffer has no pixel format")

// AddFramebuffer registers a dumb buffer for scanout. Formats with a
// legacy depth go through ADDFB, the rest through ADDFB2.
func (c *Card) AddFramebuffer(db *DumbBuffer) (FramebufferHandle, error) {
	if !db.Format.Known() {
		return 0, errNoFormat
	}

	if depth := db.Format.Depth(); depth != 0 {
		fb := sysFBCmd{
			width:  db.Width,
			height: db.Height,
			pitch:  db.Pitch,
			bpp:    db.Format.Bpp(),
			depth:  depth,
			handle: uint32(db.Handle),
		}
		if err := c.do("MODE_ADDFB", ioctlModeAddFB, unsafe.Pointer(&fb)); err != nil {
			return 0, err
		}
		return FramebufferHandle(fb.fbID), nil
	}

	fb := sysFBCmd2{
		width:       db.Width,
		height:      db.Height,
		pixelFormat: uint32(db.Format),
	}
	fb.handles[0] = uint32(db.Handle)
	fb.pitches[0] = db.Pitch
	if err := c.do("MODE_ADDFB2", ioctlModeAddFB2, unsafe.Pointer(&fb)); err != nil {
		return 0, err
	}
	return FramebufferHandle(fb.fbID), nil
}

// IsNotFound reports whether err means the kernel does not know the object.
func IsNotFound(err error) bool {
	return errors.Is(err, unix.ENOENT)
}
