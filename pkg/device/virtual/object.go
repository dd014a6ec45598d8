package virtual

import (
	"kmsctl/pkg/drm"
)

type propValue struct {
	def   *drm.PropertyInfo
	value uint64
}

// object is a mode object with attached properties. Property values are
// the single source of state; the info records are derived from them.
type object struct {
	drm.Object
	props []*propValue
}

func (o *object) attach(def *drm.PropertyInfo, value uint64) {
	o.props = append(o.props, &propValue{def: def, value: value})
}

func (o *object) find(h drm.PropertyHandle) *propValue {
	for _, pv := range o.props {
		if pv.def.Handle == h {
			return pv
		}
	}
	return nil
}

func (o *object) get(name string) uint64 {
	for _, pv := range o.props {
		if pv.def.Name == name {
			return pv.value
		}
	}
	return 0
}

func (o *object) set(name string, value uint64) {
	for _, pv := range o.props {
		if pv.def.Name == name {
			pv.value = value
			return
		}
	}
}

type connector struct {
	object
	typ      drm.ConnectorType
	typeID   uint32
	status   drm.Connection
	mmWidth  uint32
	mmHeight uint32
	encoder  *encoder
	modes    []drm.ModeInfo
}

type encoder struct {
	object
	typ      drm.EncoderType
	possible uint32
}

type crtc struct {
	object
	index int
}

type planeType uint64

const (
	planeOverlay planeType = 0
	planePrimary planeType = 1
	planeCursor  planeType = 2
)

type plane struct {
	object
	possible uint32
	formats  []drm.PixelFormat
}

func (p *plane) kind() planeType {
	return planeType(p.get("type"))
}

type framebuffer struct {
	object
	width  uint32
	height uint32
	pitch  uint32
	format drm.PixelFormat
	buffer drm.BufferHandle
	pix    []byte
}
