package mixer

import (
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Option func(d *Drawer)

func WithEffect(e ...Effect) Option {
	return func(d *Drawer) {
		d.effs = lo.Filter(e, func(x Effect, _ int) bool { return x != nil })
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *Drawer) {
		d.logger = logger
	}
}
