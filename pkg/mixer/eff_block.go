package mixer

import (
	"image"
	"math/rand"

	"github.com/samber/lo"
)

func EffectBlock() Effect {
	return &block{
		size: 32,
		rand: true,
	}
}

// EffectBlockSize writes blocks of a fixed size in scan order.
func EffectBlockSize(size int) Effect {
	return &block{
		size: size,
	}
}

type block struct {
	size int
	rand bool
}

func (e *block) Name() string {
	return "block"
}

func (e *block) Process(img Image) (<-chan Write, error) {
	r := img.Bounds()
	w, h := r.Dx(), r.Dy()

	size := e.size
	if e.rand {
		size = rand.Intn(32) + 8
	}
	if size <= 0 {
		size = 1
	}

	var ws []Write
	for x := 0; x < w; x += size {
		for y := 0; y < h; y += size {
			p0 := r.Min.Add(image.Pt(x, y))
			ws = append(ws, Write{
				At:  image.Pt(x, y),
				Img: img.SubImage(image.Rectangle{Min: p0, Max: p0.Add(image.Pt(size, size))}.Intersect(r)),
			})
		}
	}

	if e.rand {
		ws = lo.Shuffle(ws)
	}

	wc := make(chan Write, len(ws))
	for _, w2 := range ws {
		wc <- w2
	}
	close(wc)

	return wc, nil
}
