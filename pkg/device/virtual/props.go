package virtual

import (
	"kmsctl/pkg/drm"
)

// Property names as the kernel registers them.
const (
	propEDID       = "EDID"
	propDPMS       = "DPMS"
	propLinkStatus = "link-status"
	propCrtcID     = "CRTC_ID"
	propActive     = "ACTIVE"
	propModeID     = "MODE_ID"
	propType       = "type"
	propFbID       = "FB_ID"
	propCrtcX      = "CRTC_X"
	propCrtcY      = "CRTC_Y"
	propZpos       = "zpos"
	propRotation   = "rotation"
)

const (
	dpmsOn  = 0
	dpmsOff = 3

	linkGood = 0

	rotate0 = 1 << 0
)

type propertyTable struct {
	edid       *drm.PropertyInfo
	dpms       *drm.PropertyInfo
	linkStatus *drm.PropertyInfo
	crtcID     *drm.PropertyInfo
	active     *drm.PropertyInfo
	modeID     *drm.PropertyInfo
	planeType  *drm.PropertyInfo
	fbID       *drm.PropertyInfo
	crtcX      *drm.PropertyInfo
	crtcY      *drm.PropertyInfo
	zposFixed  *drm.PropertyInfo
	zpos       *drm.PropertyInfo
	rotation   *drm.PropertyInfo
}

func signedRange(min, max int64) []uint64 {
	return []uint64{uint64(min), uint64(max)}
}

func enumValues(enums []drm.EnumValue) []uint64 {
	values := make([]uint64, len(enums))
	for i, e := range enums {
		values[i] = e.Value
	}
	return values
}

func (d *Device) newProperty(name string, flags uint32, values []uint64, enums []drm.EnumValue) *drm.PropertyInfo {
	p := &drm.PropertyInfo{
		Handle:    drm.PropertyHandle(d.nextID()),
		Name:      name,
		Flags:     flags,
		ValueType: drm.DecodeValueType(flags, values, enums),
	}
	d.props[p.Handle] = p
	return p
}

func (d *Device) registerProperties() {
	planeTypes := []drm.EnumValue{
		{Value: uint64(planeOverlay), Name: "Overlay"},
		{Value: uint64(planePrimary), Name: "Primary"},
		{Value: uint64(planeCursor), Name: "Cursor"},
	}
	dpms := []drm.EnumValue{
		{Value: 0, Name: "On"},
		{Value: 1, Name: "Standby"},
		{Value: 2, Name: "Suspend"},
		{Value: 3, Name: "Off"},
	}
	link := []drm.EnumValue{
		{Value: 0, Name: "Good"},
		{Value: 1, Name: "Bad"},
	}
	rotation := []drm.EnumValue{
		{Value: 0, Name: "rotate-0"},
		{Value: 1, Name: "rotate-90"},
		{Value: 2, Name: "rotate-180"},
		{Value: 3, Name: "rotate-270"},
		{Value: 4, Name: "reflect-x"},
		{Value: 5, Name: "reflect-y"},
	}

	d.table = propertyTable{
		edid:       d.newProperty(propEDID, drm.PropBlob|drm.PropImmutable, nil, nil),
		dpms:       d.newProperty(propDPMS, drm.PropEnum, enumValues(dpms), dpms),
		linkStatus: d.newProperty(propLinkStatus, drm.PropEnum, enumValues(link), link),
		crtcID:     d.newProperty(propCrtcID, drm.PropObject|drm.PropAtomic, []uint64{uint64(drm.ObjectCrtc)}, nil),
		active:     d.newProperty(propActive, drm.PropRange|drm.PropAtomic, []uint64{0, 1}, nil),
		modeID:     d.newProperty(propModeID, drm.PropBlob|drm.PropAtomic, nil, nil),
		planeType:  d.newProperty(propType, drm.PropEnum|drm.PropImmutable, enumValues(planeTypes), planeTypes),
		fbID:       d.newProperty(propFbID, drm.PropObject|drm.PropAtomic, []uint64{uint64(drm.ObjectFramebuffer)}, nil),
		crtcX:      d.newProperty(propCrtcX, drm.PropSignedRange|drm.PropAtomic, signedRange(-1<<31, 1<<31-1), nil),
		crtcY:      d.newProperty(propCrtcY, drm.PropSignedRange|drm.PropAtomic, signedRange(-1<<31, 1<<31-1), nil),
		zposFixed:  d.newProperty(propZpos, drm.PropRange|drm.PropImmutable, []uint64{0, 0}, nil),
		zpos:       d.newProperty(propZpos, drm.PropRange, []uint64{1, 2}, nil),
		rotation:   d.newProperty(propRotation, drm.PropBitmask, enumValues(rotation), rotation),
	}
}

// visible reports whether the client may see def. Atomic properties need
// the Atomic client capability.
func (d *Device) visible(def *drm.PropertyInfo) bool {
	return !def.Atomic() || d.caps[drm.ClientCapAtomic]
}
