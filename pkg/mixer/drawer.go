package mixer

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

func NewDrawer(opts ...Option) *Drawer {
	d := &Drawer{
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

type Drawer struct {
	logger *zap.Logger
	effs   []Effect
}

// Canvas writes img into dst, aligned to dst's top-left corner. Pixels are
// replaced, not blended.
func (d *Drawer) Canvas(dst draw.Image, img image.Image) error {
	origin := dst.Bounds().Min

	eff := lo.Sample(d.effs)
	if eff == nil {
		r := image.Rectangle{Min: origin, Max: origin.Add(img.Bounds().Size())}
		draw.Draw(dst, r, img, img.Bounds().Min, draw.Src)
		return nil
	}

	src, ok := img.(Image)
	if !ok {
		src = imaging.Clone(img)
	}

	w, err := eff.Process(src)
	if err != nil {
		return err
	}

	n := 0
	for w2 := range w {
		at := origin.Add(w2.At)
		r := image.Rectangle{Min: at, Max: at.Add(w2.Img.Bounds().Size())}
		draw.Draw(dst, r, w2.Img, w2.Img.Bounds().Min, draw.Src)
		n++
	}

	d.logger.With(zap.String("effect", eff.Name()), zap.Int("writes", n)).Debug("canvas")
	return nil
}
