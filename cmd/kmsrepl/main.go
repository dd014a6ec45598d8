package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/inhies/go-bytesize"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"kmsctl/pkg/album"
	"kmsctl/pkg/bot"
	"kmsctl/pkg/device/card"
	"kmsctl/pkg/device/remote"
	"kmsctl/pkg/device/virtual"
	"kmsctl/pkg/drm"
	"kmsctl/pkg/mixer"
	"kmsctl/pkg/proto"
	"kmsctl/pkg/repl"
)

var cardPath = flag.String("card", "/dev/dri/card0", "card path or remote addr")
var useVirtual = flag.Bool("virtual", false, "use the in-memory virtual card")
var master = flag.Bool("master", false, "take DRM master")
var images = flag.StringArray("image", nil, "image file or URL to upload (repeatable)")
var format = flag.String("format", "XRGB8888", "pixel format for uploads")
var fitSize = flag.String("fit", "", "scale images down to fit WxH")
var cacheDir = flag.String("cache", "", "directory for scaled images")
var saveDir = flag.String("save", "", "directory to keep downloaded images")
var effect = flag.String("effect", "none", "upload effect: "+strings.Join(mixer.Effects(), ", "))
var echo = flag.Bool("echo", true, "echo each command before its output")
var debug = flag.Bool("debug", true, "development logging")
var tgToken = flag.String("tg-token", "", "telegram bot token")
var tgAllow = flag.Int64Slice("tg-allow", nil, "telegram user ids allowed to use the bot")

var downloadLimit = 32 * bytesize.MB

func init() {
	flag.Var(&downloadLimit, "download-limit", "largest image to download")
}

func newLogger() (*zap.Logger, error) {
	if *debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openDevice(logger *zap.Logger, drawer *mixer.Drawer) (proto.Control, error) {
	switch {
	case *useVirtual:
		return virtual.New(logger, virtual.WithMixer(drawer)), nil
	case strings.Contains(*cardPath, ":"):
		return remote.New(*cardPath)
	}

	opts := []card.Option{card.WithMixer(drawer)}
	if *master {
		opts = append(opts, card.WithMaster())
	}
	return card.New(*cardPath, logger, opts...)
}

func newAlbum(logger *zap.Logger) (*album.Album, error) {
	dlOpts := []album.DownloaderOption{album.WithLimit(downloadLimit)}
	if !*debug {
		dlOpts = append(dlOpts, album.WithQuiet())
	}

	dl, err := album.NewDownloader(*saveDir, logger, dlOpts...)
	if err != nil {
		return nil, err
	}

	opts := []album.Option{album.WithDownloader(dl), album.WithLogger(logger)}

	if *fitSize != "" {
		var w, h int
		if _, err := fmt.Sscanf(*fitSize, "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
			return nil, fmt.Errorf("invalid fit %q", *fitSize)
		}
		opts = append(opts, album.WithFit(w, h))

		if *cacheDir != "" {
			cache, err := album.NewCache(*cacheDir)
			if err != nil {
				return nil, err
			}
			opts = append(opts, album.WithCache(cache))
		}
	}

	return album.New(opts...), nil
}

func main() {
	flag.Parse()

	logger, err := newLogger()
	if err != nil {
		log.Fatal(err)
	}

	pf, err := drm.ParsePixelFormat(*format)
	if err != nil {
		log.Fatal(err)
	}

	eff, err := mixer.Lookup(*effect)
	if err != nil {
		log.Fatal(err)
	}

	dev, err := openDevice(logger, mixer.NewDrawer(mixer.WithEffect(eff), mixer.WithLogger(logger)))
	if err != nil {
		log.Fatal(err)
	}

	if v, err := dev.Driver(); err == nil {
		logger.With(zap.Stringer("driver", v)).Info("opened")
	}

	proto.EnableClientCapabilities(dev, logger)

	p, err := newAlbum(logger)
	if err != nil {
		log.Fatal(err)
	}

	session := repl.NewSession(dev, p, logger, repl.WithEcho(*echo), repl.WithFormat(pf))

	ctx, cancel := context.WithCancel(context.Background())

	for _, src := range *images {
		fb, err := session.Load(ctx, src, pf)
		if err != nil {
			logger.With(zap.String("src", src), zap.Error(err)).Error("upload failed")
			continue
		}
		fmt.Printf("%s: framebuffer %d\n", src, fb)
	}

	var b *bot.Bot
	if *tgToken != "" {
		b, err = bot.New(*tgToken, session, logger, *tgAllow)
		if err != nil {
			log.Fatal(err)
		}
		b.Start()
	}

	exited := make(chan struct{})

	go func() {
		defer close(exited)
		if err := session.Run(ctx, os.Stdin, os.Stdout); err != nil {
			logger.With(zap.Error(err)).Info("console failed")
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-signals:
		logger.Info("shutting down")
		cancel()
		<-exited
	case <-exited:
		cancel()
	}

	if b != nil {
		b.Stop()
	}
	if err := dev.Close(); err != nil {
		logger.With(zap.Error(err)).Info("close failed")
	}
	logger.Info("exited")
}
