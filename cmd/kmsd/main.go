package main

import (
	"context"
	"net/http"

	flag "github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"kmsctl/pkg/device/card"
	"kmsctl/pkg/device/remote"
	"kmsctl/pkg/device/virtual"
	"kmsctl/pkg/proto"
)

var cardPath = flag.String("card", "/dev/dri/card0", "card path")
var useVirtual = flag.Bool("virtual", false, "serve the in-memory virtual card")
var master = flag.Bool("master", false, "take DRM master")
var listen = flag.String("listen", ":9123", "listen addr")
var debug = flag.Bool("debug", true, "development logging")

func newLogger() (*zap.Logger, error) {
	if *debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newDevice(logger *zap.Logger, lifecycle fx.Lifecycle) (proto.Control, error) {
	var dev proto.Control
	if *useVirtual {
		dev = virtual.New(logger)
	} else {
		var opts []card.Option
		if *master {
			opts = append(opts, card.WithMaster())
		}
		c, err := card.New(*cardPath, logger, opts...)
		if err != nil {
			return nil, err
		}
		dev = c
	}

	lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return dev.Close()
		},
	})

	return dev, nil
}

func main() {
	flag.Parse()

	fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		fx.Provide(
			newLogger,
			func() *http.Server {
				return &http.Server{Addr: *listen}
			},
			newDevice,
		),
		fx.Invoke(
			proto.EnableClientCapabilities,
			remote.Proxy,
		),
	).Run()
}
