package drm

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// PixelFormat is a DRM fourcc code.
type PixelFormat uint32

func fourcc(a, b, c, d byte) PixelFormat {
	return PixelFormat(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

var (
	FormatARGB8888 = fourcc('A', 'R', '2', '4')
	FormatXRGB8888 = fourcc('X', 'R', '2', '4')
	FormatABGR8888 = fourcc('A', 'B', '2', '4')
	FormatXBGR8888 = fourcc('X', 'B', '2', '4')
	FormatRGB565   = fourcc('R', 'G', '1', '6')
)

type formatInfo struct {
	name  string
	bpp   uint32
	depth uint32
}

var formats = map[PixelFormat]formatInfo{
	FormatARGB8888: {"ARGB8888", 32, 32},
	FormatXRGB8888: {"XRGB8888", 32, 24},
	FormatABGR8888: {"ABGR8888", 32, 0},
	FormatXBGR8888: {"XBGR8888", 32, 0},
	FormatRGB565:   {"RGB565", 16, 16},
}

// Formats lists the formats dumb buffers can be created with.
func Formats() []PixelFormat {
	return []PixelFormat{FormatARGB8888, FormatXRGB8888, FormatABGR8888, FormatXBGR8888, FormatRGB565}
}

func (f PixelFormat) String() string {
	if info, ok := formats[f]; ok {
		return info.name
	}
	b := []byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("PixelFormat(%#x)", uint32(f))
		}
	}
	return string(b)
}

// Bpp is the number of bits per pixel, 0 for unknown formats.
func (f PixelFormat) Bpp() uint32 {
	return formats[f].bpp
}

// Depth is the legacy ADDFB depth. Formats without a legacy equivalent
// report 0 and need ADDFB2.
func (f PixelFormat) Depth() uint32 {
	return formats[f].depth
}

func (f PixelFormat) Known() bool {
	_, ok := formats[f]
	return ok
}

func ParsePixelFormat(s string) (PixelFormat, error) {
	for f, info := range formats {
		if strings.EqualFold(info.name, s) {
			return f, nil
		}
	}
	if len(s) == 4 {
		f := fourcc(s[0], s[1], s[2], s[3])
		if f.Known() {
			return f, nil
		}
	}
	return 0, errors.Errorf("unsupported pixel format %q", s)
}
