package mixer

import (
	"image"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Write is one piece of an image placed at At, relative to the image origin.
type Write struct {
	At  image.Point
	Img image.Image
}

type Image interface {
	image.Image
	SubImage(image.Rectangle) image.Image
}

type Effect interface {
	Name() string
	Process(img Image) (<-chan Write, error)
}

var effects = map[string]func() Effect{
	"none":  func() Effect { return nil },
	"block": EffectBlock,
}

// Lookup returns the effect registered as name. "none" yields a nil Effect.
func Lookup(name string) (Effect, error) {
	fn, ok := effects[name]
	if !ok {
		return nil, errors.Errorf("unknown effect %q, want one of %v", name, Effects())
	}
	return fn(), nil
}

func Effects() []string {
	names := lo.Keys(effects)
	sort.Strings(names)
	return names
}
