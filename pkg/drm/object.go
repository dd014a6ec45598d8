package drm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ObjectType identifies the kind of a mode object in property ioctls.
type ObjectType uint32

const (
	ObjectAny         ObjectType = 0
	ObjectCrtc        ObjectType = 0xcccccccc
	ObjectConnector   ObjectType = 0xc0c0c0c0
	ObjectEncoder     ObjectType = 0xe0e0e0e0
	ObjectMode        ObjectType = 0xdededede
	ObjectProperty    ObjectType = 0xb0b0b0b0
	ObjectFramebuffer ObjectType = 0xfbfbfbfb
	ObjectBlob        ObjectType = 0xbbbbbbbb
	ObjectPlane       ObjectType = 0xeeeeeeee
)

var objectTypeNames = map[ObjectType]string{
	ObjectAny:         "Any",
	ObjectCrtc:        "CRTC",
	ObjectConnector:   "Connector",
	ObjectEncoder:     "Encoder",
	ObjectMode:        "Mode",
	ObjectProperty:    "Property",
	ObjectFramebuffer: "Framebuffer",
	ObjectBlob:        "Blob",
	ObjectPlane:       "Plane",
}

func (t ObjectType) String() string {
	if name, ok := objectTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ObjectType(%#x)", uint32(t))
}

// ParseObjectType accepts the names printed by String, case-insensitively,
// plus the short form "FB".
func ParseObjectType(s string) (ObjectType, error) {
	if strings.EqualFold(s, "fb") {
		return ObjectFramebuffer, nil
	}
	for t, name := range objectTypeNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return 0, errors.Errorf("unknown object type %q", s)
}

// Object names a single mode object by type and id.
type Object struct {
	Type ObjectType
	ID   uint32
}

func (o Object) String() string {
	return fmt.Sprintf("%s(%d)", o.Type, o.ID)
}

// Handles are the ids the kernel hands out for mode objects. They are only
// meaningful for the card that produced them.
type (
	ConnectorHandle   uint32
	EncoderHandle     uint32
	CrtcHandle        uint32
	PlaneHandle       uint32
	FramebufferHandle uint32
	PropertyHandle    uint32
	BlobHandle        uint32

	// BufferHandle is a GEM handle. It is not a mode object.
	BufferHandle uint32
)

func (h ConnectorHandle) Object() Object   { return Object{ObjectConnector, uint32(h)} }
func (h EncoderHandle) Object() Object     { return Object{ObjectEncoder, uint32(h)} }
func (h CrtcHandle) Object() Object        { return Object{ObjectCrtc, uint32(h)} }
func (h PlaneHandle) Object() Object       { return Object{ObjectPlane, uint32(h)} }
func (h FramebufferHandle) Object() Object { return Object{ObjectFramebuffer, uint32(h)} }
func (h PropertyHandle) Object() Object    { return Object{ObjectProperty, uint32(h)} }
func (h BlobHandle) Object() Object        { return Object{ObjectBlob, uint32(h)} }

// Resource is implemented by every mode object handle.
type Resource interface {
	Object() Object
}

// ResourceHandles is the result of MODE_GETRESOURCES.
type ResourceHandles struct {
	Framebuffers []FramebufferHandle
	Crtcs        []CrtcHandle
	Connectors   []ConnectorHandle
	Encoders     []EncoderHandle

	MinWidth, MaxWidth   uint32
	MinHeight, MaxHeight uint32
}

// Contains reports whether o is one of the listed resources. Planes are
// listed separately and never match.
func (r *ResourceHandles) Contains(o Object) bool {
	switch o.Type {
	case ObjectFramebuffer:
		return containsHandle(r.Framebuffers, FramebufferHandle(o.ID))
	case ObjectCrtc:
		return containsHandle(r.Crtcs, CrtcHandle(o.ID))
	case ObjectConnector:
		return containsHandle(r.Connectors, ConnectorHandle(o.ID))
	case ObjectEncoder:
		return containsHandle(r.Encoders, EncoderHandle(o.ID))
	}
	return false
}

// CrtcIndex returns the position of h in the CRTC list, which is the bit
// used by possible_crtcs masks.
func (r *ResourceHandles) CrtcIndex(h CrtcHandle) int {
	for i, c := range r.Crtcs {
		if c == h {
			return i
		}
	}
	return -1
}

func containsHandle[T comparable](list []T, h T) bool {
	for _, v := range list {
		if v == h {
			return true
		}
	}
	return false
}
