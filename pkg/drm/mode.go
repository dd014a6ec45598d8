package drm

import (
	"bytes"
	"fmt"
)

const (
	displayModeLen = 32
	propNameLen    = 32
)

// Mode type bits.
const (
	ModeTypePreferred = 1 << 3
	ModeTypeDriver    = 1 << 6
	ModeTypeUserdef   = 1 << 5
)

// ModeInfo has the layout of struct drm_mode_modeinfo and is passed to the
// kernel as is.
type ModeInfo struct {
	Clock                                         uint32
	Hdisplay, HsyncStart, HsyncEnd, Htotal, Hskew uint16
	Vdisplay, VsyncStart, VsyncEnd, Vtotal, Vscan uint16

	Vrefresh uint32

	Flags   uint32
	Type    uint32
	RawName [displayModeLen]byte
}

func (m ModeInfo) Name() string {
	return cString(m.RawName[:])
}

func (m ModeInfo) Size() (uint32, uint32) {
	return uint32(m.Hdisplay), uint32(m.Vdisplay)
}

func (m ModeInfo) Preferred() bool {
	return m.Type&ModeTypePreferred != 0
}

func (m ModeInfo) String() string {
	return fmt.Sprintf("%s %dx%d@%d", m.Name(), m.Hdisplay, m.Vdisplay, m.Vrefresh)
}

// NewModeInfo builds a mode with the given name; timings beyond the visible
// area are derived with fixed blanking and are only suitable for virtual outputs.
func NewModeInfo(name string, width, height uint16, refresh uint32) ModeInfo {
	m := ModeInfo{
		Hdisplay:   width,
		HsyncStart: width + 88,
		HsyncEnd:   width + 132,
		Htotal:     width + 280,
		Vdisplay:   height,
		VsyncStart: height + 4,
		VsyncEnd:   height + 9,
		Vtotal:     height + 45,
		Vrefresh:   refresh,
		Type:       ModeTypeDriver,
	}
	m.Clock = uint32(m.Htotal) * uint32(m.Vtotal) * refresh / 1000
	copy(m.RawName[:displayModeLen-1], name)
	return m
}

func cString(b []byte) string {
	name, _, _ := bytes.Cut(b, []byte{0})
	return string(name)
}
