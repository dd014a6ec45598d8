package drm

import (
	"fmt"
)

type ConnectorType uint32

var connectorTypeNames = []string{
	"Unknown", "VGA", "DVI-I", "DVI-D", "DVI-A", "Composite", "SVIDEO",
	"LVDS", "Component", "DIN", "DP", "HDMI-A", "HDMI-B", "TV", "eDP",
	"Virtual", "DSI", "DPI", "Writeback", "SPI", "USB",
}

const (
	ConnectorUnknown     ConnectorType = 0
	ConnectorVGA         ConnectorType = 1
	ConnectorDisplayPort ConnectorType = 10
	ConnectorHDMIA       ConnectorType = 11
	ConnectorEDP         ConnectorType = 14
	ConnectorVirtual     ConnectorType = 15
	ConnectorWriteback   ConnectorType = 18
)

func (t ConnectorType) String() string {
	if int(t) < len(connectorTypeNames) {
		return connectorTypeNames[t]
	}
	return fmt.Sprintf("ConnectorType(%d)", uint32(t))
}

type Connection uint32

const (
	Connected         Connection = 1
	Disconnected      Connection = 2
	UnknownConnection Connection = 3
)

func (c Connection) String() string {
	switch c {
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	}
	return "Unknown"
}

type ConnectorInfo struct {
	Handle     ConnectorHandle
	Type       ConnectorType
	TypeID     uint32
	Connection Connection
	MmWidth    uint32
	MmHeight   uint32
	Subpixel   uint32
	Encoder    EncoderHandle
	Encoders   []EncoderHandle
	Modes      []ModeInfo
}

// Name follows the kernel naming, e.g. HDMI-A-1.
func (c *ConnectorInfo) Name() string {
	return fmt.Sprintf("%s-%d", c.Type, c.TypeID)
}

// PreferredMode returns the mode flagged preferred, or the first one.
func (c *ConnectorInfo) PreferredMode() (ModeInfo, bool) {
	for _, m := range c.Modes {
		if m.Preferred() {
			return m, true
		}
	}
	if len(c.Modes) > 0 {
		return c.Modes[0], true
	}
	return ModeInfo{}, false
}

type EncoderType uint32

var encoderTypeNames = []string{
	"None", "DAC", "TMDS", "LVDS", "TVDAC", "Virtual", "DSI", "DPMST", "DPI",
}

const (
	EncoderNone    EncoderType = 0
	EncoderTMDS    EncoderType = 2
	EncoderVirtual EncoderType = 5
)

func (t EncoderType) String() string {
	if int(t) < len(encoderTypeNames) {
		return encoderTypeNames[t]
	}
	return fmt.Sprintf("EncoderType(%d)", uint32(t))
}

type EncoderInfo struct {
	Handle         EncoderHandle
	Type           EncoderType
	Crtc           CrtcHandle
	PossibleCrtcs  uint32
	PossibleClones uint32
}

type CrtcInfo struct {
	Handle      CrtcHandle
	Framebuffer FramebufferHandle
	X, Y        uint32
	GammaSize   uint32
	Mode        *ModeInfo
}

type PlaneInfo struct {
	Handle        PlaneHandle
	Crtc          CrtcHandle
	Framebuffer   FramebufferHandle
	PossibleCrtcs uint32
	GammaSize     uint32
	Formats       []PixelFormat
}

type FramebufferInfo struct {
	Handle FramebufferHandle
	Width  uint32
	Height uint32
	Pitch  uint32
	Bpp    uint32
	Depth  uint32
	Buffer BufferHandle
}
