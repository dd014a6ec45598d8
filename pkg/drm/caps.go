package drm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// DriverCapability is queried with GET_CAP.
type DriverCapability uint64

const (
	CapDumbBuffer         DriverCapability = 0x1
	CapVBlankHighCrtc     DriverCapability = 0x2
	CapDumbPreferredDepth DriverCapability = 0x3
	CapDumbPreferShadow   DriverCapability = 0x4
	CapPrime              DriverCapability = 0x5
	CapTimestampMonotonic DriverCapability = 0x6
	CapAsyncPageFlip      DriverCapability = 0x7
	CapCursorWidth        DriverCapability = 0x8
	CapCursorHeight       DriverCapability = 0x9
	CapAddFB2Modifiers    DriverCapability = 0x10
	CapPageFlipTarget     DriverCapability = 0x11
	CapCrtcInVBlankEvent  DriverCapability = 0x12
	CapSyncobj            DriverCapability = 0x13
	CapSyncobjTimeline    DriverCapability = 0x14
)

var driverCapNames = map[DriverCapability]string{
	CapDumbBuffer:         "DumbBuffer",
	CapVBlankHighCrtc:     "VBlankHighCrtc",
	CapDumbPreferredDepth: "DumbPreferredDepth",
	CapDumbPreferShadow:   "DumbPreferShadow",
	CapPrime:              "Prime",
	CapTimestampMonotonic: "TimestampMonotonic",
	CapAsyncPageFlip:      "AsyncPageFlip",
	CapCursorWidth:        "CursorWidth",
	CapCursorHeight:       "CursorHeight",
	CapAddFB2Modifiers:    "AddFB2Modifiers",
	CapPageFlipTarget:     "PageFlipTarget",
	CapCrtcInVBlankEvent:  "CrtcInVBlankEvent",
	CapSyncobj:            "Syncobj",
	CapSyncobjTimeline:    "SyncobjTimeline",
}

// DriverCapabilities lists every known driver capability in ascending order.
func DriverCapabilities() []DriverCapability {
	return []DriverCapability{
		CapDumbBuffer, CapVBlankHighCrtc, CapDumbPreferredDepth, CapDumbPreferShadow,
		CapPrime, CapTimestampMonotonic, CapAsyncPageFlip, CapCursorWidth, CapCursorHeight,
		CapAddFB2Modifiers, CapPageFlipTarget, CapCrtcInVBlankEvent, CapSyncobj, CapSyncobjTimeline,
	}
}

func (c DriverCapability) String() string {
	if name, ok := driverCapNames[c]; ok {
		return name
	}
	return fmt.Sprintf("DriverCapability(%#x)", uint64(c))
}

func ParseDriverCapability(s string) (DriverCapability, error) {
	for c, name := range driverCapNames {
		if strings.EqualFold(name, s) {
			return c, nil
		}
	}
	return 0, errors.Errorf("unknown driver capability %q", s)
}

// ClientCapability is toggled with SET_CLIENT_CAP.
type ClientCapability uint64

const (
	ClientCapStereo3D            ClientCapability = 1
	ClientCapUniversalPlanes     ClientCapability = 2
	ClientCapAtomic              ClientCapability = 3
	ClientCapAspectRatio         ClientCapability = 4
	ClientCapWritebackConnectors ClientCapability = 5
	ClientCapCursorPlaneHotspot  ClientCapability = 6
)

var clientCapNames = map[ClientCapability]string{
	ClientCapStereo3D:            "Stereo3D",
	ClientCapUniversalPlanes:     "UniversalPlanes",
	ClientCapAtomic:              "Atomic",
	ClientCapAspectRatio:         "AspectRatio",
	ClientCapWritebackConnectors: "WritebackConnectors",
	ClientCapCursorPlaneHotspot:  "CursorPlaneHotspot",
}

// ClientCapabilities lists every client capability in the order they
// should be enabled; writeback requires atomic to be set first.
func ClientCapabilities() []ClientCapability {
	return []ClientCapability{
		ClientCapStereo3D, ClientCapUniversalPlanes, ClientCapAtomic,
		ClientCapAspectRatio, ClientCapWritebackConnectors, ClientCapCursorPlaneHotspot,
	}
}

func (c ClientCapability) String() string {
	if name, ok := clientCapNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ClientCapability(%d)", uint64(c))
}

func ParseClientCapability(s string) (ClientCapability, error) {
	for c, name := range clientCapNames {
		if strings.EqualFold(name, s) {
			return c, nil
		}
	}
	return 0, errors.Errorf("unknown client capability %q", s)
}
