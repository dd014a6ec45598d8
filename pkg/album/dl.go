package album

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/inhies/go-bytesize"
	"github.com/samber/lo"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func NewDownloader(dir string, logger *zap.Logger, opts ...DownloaderOption) (*Downloader, error) {
	d := &Downloader{
		cli: resty.New().SetDoNotParseResponse(true).SetTimeout(time.Minute),
		log: logger,
	}

	if dir != "" {
		if fs, err := newFs(dir); err != nil {
			return nil, fmt.Errorf("create downloader failed: %w", err)
		} else {
			d.fs = fs
		}
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

type DownloaderOption func(d *Downloader)

// WithLimit rejects downloads larger than limit.
func WithLimit(limit bytesize.ByteSize) DownloaderOption {
	return func(d *Downloader) {
		d.limit = limit
	}
}

// WithSaveFs keeps every download on fs and serves repeated requests from it.
func WithSaveFs(fs afero.Fs) DownloaderOption {
	return func(d *Downloader) {
		d.fs = fs
	}
}

func WithQuiet() DownloaderOption {
	return func(d *Downloader) {
		d.quiet = true
	}
}

type Downloader struct {
	fs    afero.Fs
	cli   *resty.Client
	log   *zap.Logger
	limit bytesize.ByteSize
	quiet bool
}

func (d *Downloader) filename(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = newName()
	}
	if u.RawQuery != "" {
		sum := sha1.Sum([]byte(u.RawQuery))
		ext := path.Ext(name)
		name = fmt.Sprintf("%s-%s%s", strings.TrimSuffix(name, ext), hex.EncodeToString(sum[:4]), ext)
	}
	return fmt.Sprintf("%s/%s", u.Host, name)
}

func (d *Downloader) Exists(rawURL string) (bool, error) {
	if d.fs == nil {
		return false, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, err
	}
	return afero.Exists(d.fs, d.filename(u))
}

func (d *Downloader) Get(ctx context.Context, rawURL string) (*VFile, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url failed: %w", err)
	}
	file := d.filename(u)

	if d.fs != nil {
		if exists, err := afero.Exists(d.fs, file); err != nil {
			return nil, err
		} else if exists {
			d.log.With(zap.String("url", rawURL), zap.String("file", file)).Debug("download cached")
			return newFile(file, d.fs), nil
		}
	}

	bs, err := d.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	vf := newBytes(file, bs)
	if d.fs != nil {
		if err := d.save(file, bs); err != nil {
			return vf, fmt.Errorf("save download failed: %w", err)
		}
	}

	return vf, nil
}

func (d *Downloader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := d.cli.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	defer func() {
		_ = resp.RawBody().Close()
	}()

	if resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("download failed: %s", resp.Status())
	}

	length := resp.RawResponse.ContentLength
	if d.limit > 0 && length > int64(d.limit) {
		return nil, fmt.Errorf("download failed: %s exceeds limit %s", bytesize.New(float64(length)), d.limit)
	}

	bar := lo.Ternary(d.quiet, progressbar.DefaultBytesSilent, progressbar.DefaultBytes)(length, fmt.Sprintf("Downloading %s", rawURL))

	var body io.Reader = resp.RawBody()
	if d.limit > 0 {
		body = io.LimitReader(body, int64(d.limit)+1)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(io.MultiWriter(&buf, bar), body); err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	if d.limit > 0 && int64(buf.Len()) > int64(d.limit) {
		return nil, fmt.Errorf("download failed: body exceeds limit %s", d.limit)
	}

	d.log.With(zap.String("url", rawURL), zap.String("size", bytesize.New(float64(buf.Len())).String())).Debug("downloaded")
	return buf.Bytes(), nil
}

func (d *Downloader) save(file string, bs []byte) error {
	dir := path.Dir(file)
	if exists, err := afero.DirExists(d.fs, dir); err != nil {
		return err
	} else if !exists {
		if err2 := d.fs.MkdirAll(dir, 0755); err2 != nil {
			return err2
		}
	}

	if err := afero.WriteFile(d.fs, file, bs, 0644); err != nil {
		return err
	}

	d.log.With(zap.String("file", file)).Debug("download saved")
	return nil
}
