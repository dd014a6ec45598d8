package bitmap

import (
	"image"
	"image/draw"

	"github.com/pkg/errors"

	"kmsctl/pkg/drm"
)

// New wraps pixel memory laid out as format. pix must hold at least
// stride*r.Dy() bytes; rows may be padded past the visible width.
func New(format drm.PixelFormat, pix []byte, stride int, r image.Rectangle) (draw.Image, error) {
	bpp := int(format.Bpp() / 8)
	if bpp == 0 {
		return nil, errors.Errorf("no encoder for %s", format)
	}
	if stride < bpp*r.Dx() {
		return nil, errors.Errorf("stride %d too small for %d pixels of %s", stride, r.Dx(), format)
	}
	if len(pix) < pixelBufferLength(stride, r) {
		return nil, errors.Errorf("buffer of %d bytes too small for %dx%d %s", len(pix), r.Dx(), r.Dy(), format)
	}

	switch format {
	case drm.FormatARGB8888:
		return &BGRA{Pix: pix, Stride: stride, Rect: r}, nil
	case drm.FormatXRGB8888:
		return &BGRA{Pix: pix, Stride: stride, Rect: r, Opaque: true}, nil
	case drm.FormatABGR8888:
		return &image.RGBA{Pix: pix, Stride: stride, Rect: r}, nil
	case drm.FormatXBGR8888:
		return &RGBX{RGBA: &image.RGBA{Pix: pix, Stride: stride, Rect: r}}, nil
	case drm.FormatRGB565:
		return &RGB565{Pix: pix, Stride: stride, Rect: r}, nil
	}
	return nil, errors.Errorf("no encoder for %s", format)
}

// Stride is the packed row length in bytes for width pixels of format.
func Stride(format drm.PixelFormat, width int) int {
	return width * int(format.Bpp()) / 8
}

// Encode converts src to tightly packed pixels in the layout of format.
func Encode(src image.Image, format drm.PixelFormat) ([]byte, error) {
	b := src.Bounds()
	stride := Stride(format, b.Dx())
	pix := make([]byte, pixelBufferLength(stride, b))

	dst, err := New(format, pix, stride, b)
	if err != nil {
		return nil, err
	}
	draw.Draw(dst, b, src, b.Min, draw.Src)

	return pix, nil
}

func pixelBufferLength(stride int, r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return stride * r.Dy()
}
