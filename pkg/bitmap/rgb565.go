package bitmap

import (
	"image"
	"image/color"
)

// RGB565 is a 16-bit framebuffer with 5 bits of red, 6 of green and 5 of
// blue, stored little endian:
//
//	bit 76543210  76543210
//	    GGGBBBBB  RRRRRGGG
//	    low byte  high byte
//
// There is no alpha channel; every pixel reads back fully opaque.
type RGB565 struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

func NewRGB565(r image.Rectangle) *RGB565 {
	return &RGB565{
		Pix:    make([]byte, pixelBufferLength(2*r.Dx(), r)),
		Stride: 2 * r.Dx(),
		Rect:   r,
	}
}

func (d *RGB565) Bounds() image.Rectangle {
	return d.Rect
}

func (d *RGB565) ColorModel() color.Model {
	return RGB565Model
}

func (d *RGB565) PixOffset(x, y int) int {
	return (y-d.Rect.Min.Y)*d.Stride + (x-d.Rect.Min.X)*2
}

func (d *RGB565) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(d.Rect)) {
		return Color565(0)
	}
	i := d.PixOffset(x, y)
	return Color565(d.Pix[i+1])<<8 | Color565(d.Pix[i])
}

func (d *RGB565) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(d.Rect)) {
		return
	}
	r, g, b, _ := c.RGBA()
	v := toRGB565(r, g, b)
	i := d.PixOffset(x, y)
	d.Pix[i] = byte(v)
	d.Pix[i+1] = byte(v >> 8)
}

var RGB565Model = color.ModelFunc(func(c color.Color) color.Color {
	if v, ok := c.(Color565); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return toRGB565(r, g, b)
})

// toRGB565 keeps the top 5 or 6 bits of each 16-bit channel.
func toRGB565(r, g, b uint32) Color565 {
	return Color565((r & 0xF800) +
		((g & 0xFC00) >> 5) +
		((b & 0xF800) >> 11))
}

// Color565 is a single RRRRRGGGGGGBBBBB pixel.
type Color565 uint16

// RGBA widens each channel back to 16 bits by repeating its bit pattern,
// so all-zero and all-one channels map to 0 and 0xffff.
func (c Color565) RGBA() (r, g, b, a uint32) {
	rBits := uint32(c & 0xF800)
	gBits := uint32(c & 0x7E0)
	bBits := uint32(c & 0x1F)
	r = rBits | rBits>>5 | rBits>>10 | rBits>>15
	g = gBits<<5 | gBits>>1 | gBits>>7
	b = bBits<<11 | bBits<<6 | bBits<<1 | bBits>>4
	a = 0xFFFF
	return
}
