package bitmap

import (
	"image"
	"image/color"
)

// BGRA is the memory layout of DRM ARGB8888 and XRGB8888: 32-bit little
// endian words, so each pixel is stored as B, G, R, A. Colors are
// alpha-premultiplied like image.RGBA. When Opaque is set the alpha byte is
// always written as 0xff.
type BGRA struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
	Opaque bool
}

func (p *BGRA) Bounds() image.Rectangle {
	return p.Rect
}

func (p *BGRA) ColorModel() color.Model {
	return color.RGBAModel
}

func (p *BGRA) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*4
}

func (p *BGRA) At(x, y int) color.Color {
	return p.BGRAAt(x, y)
}

func (p *BGRA) BGRAAt(x, y int) color.RGBA {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	c := color.RGBA{B: p.Pix[i], G: p.Pix[i+1], R: p.Pix[i+2], A: p.Pix[i+3]}
	if p.Opaque {
		c.A = 0xff
	}
	return c
}

func (p *BGRA) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	if p.Opaque {
		rgba.A = 0xff
	}
	i := p.PixOffset(x, y)
	p.Pix[i+0] = rgba.B
	p.Pix[i+1] = rgba.G
	p.Pix[i+2] = rgba.R
	p.Pix[i+3] = rgba.A
}

func (p *BGRA) SubImage(r image.Rectangle) image.Image {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &BGRA{Opaque: p.Opaque}
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return &BGRA{Pix: p.Pix[i:], Stride: p.Stride, Rect: r, Opaque: p.Opaque}
}

// RGBX is XBGR8888: byte order R, G, B and an ignored fourth byte that is
// kept at 0xff.
type RGBX struct {
	*image.RGBA
}

func (p *RGBX) At(x, y int) color.Color {
	return p.RGBAAt(x, y)
}

func (p *RGBX) RGBAAt(x, y int) color.RGBA {
	c := p.RGBA.RGBAAt(x, y)
	if (image.Point{X: x, Y: y}.In(p.Rect)) {
		c.A = 0xff
	}
	return c
}

func (p *RGBX) RGBA64At(x, y int) color.RGBA64 {
	c := p.RGBA.RGBA64At(x, y)
	if (image.Point{X: x, Y: y}.In(p.Rect)) {
		c.A = 0xffff
	}
	return c
}

func (p *RGBX) Set(x, y int, c color.Color) {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	rgba.A = 0xff
	p.RGBA.SetRGBA(x, y, rgba)
}

func (p *RGBX) SetRGBA(x, y int, c color.RGBA) {
	c.A = 0xff
	p.RGBA.SetRGBA(x, y, c)
}

// SetRGBA64 is the path image/draw takes for RGBA64Image destinations.
func (p *RGBX) SetRGBA64(x, y int, c color.RGBA64) {
	c.A = 0xffff
	p.RGBA.SetRGBA64(x, y, c)
}

func (p *RGBX) Opaque() bool {
	return true
}

func (p *RGBX) SubImage(r image.Rectangle) image.Image {
	return &RGBX{RGBA: p.RGBA.SubImage(r).(*image.RGBA)}
}
