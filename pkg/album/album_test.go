package album

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/inhies/go-bytesize"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"kmsctl/pkg/drm"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoadLocalFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/img/1.png", pngBytes(t, 40, 20), 0644))

	a := New(WithFs(fs), WithLogger(zaptest.NewLogger(t)))

	img, err := a.Load(context.Background(), "/img/1.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 20), img.Bounds())

	_, err = a.Load(context.Background(), "/img/missing.png")
	assert.Error(t, err)
}

func TestLoadRejectsGarbage(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "junk.png", []byte("not an image"), 0644))

	_, err := New(WithFs(fs)).Load(context.Background(), "junk.png")
	assert.ErrorContains(t, err, "decode")
}

func TestLoadFitUsesCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	cacheFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "big.png", pngBytes(t, 200, 100), 0644))

	a := New(WithFs(fs), WithFit(50, 50), WithCache(NewCacheFs(cacheFs)))

	img, err := a.Load(context.Background(), "big.png")
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 25, img.Bounds().Dy())

	files, err := afero.ReadDir(cacheFs, "50x50")
	require.NoError(t, err)
	assert.Len(t, files, 1)

	require.NoError(t, fs.Remove("big.png"))
	img, err = a.Load(context.Background(), "big.png")
	require.NoError(t, err, "served from cache")
	assert.Equal(t, 50, img.Bounds().Dx())
}

func TestLoadFitKeepsSmallImages(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "small.png", pngBytes(t, 10, 10), 0644))

	img, err := New(WithFs(fs), WithFit(50, 50)).Load(context.Background(), "small.png")
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
}

func TestLoadURL(t *testing.T) {
	body := pngBytes(t, 8, 8)
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		hits++
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	saveFs := afero.NewMemMapFs()
	logger := zaptest.NewLogger(t)
	dl, err := NewDownloader("", logger, WithQuiet(), WithSaveFs(saveFs))
	require.NoError(t, err)

	a := New(WithDownloader(dl), WithLogger(logger))

	img, err := a.Load(context.Background(), srv.URL+"/pics/cat.png")
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	exists, err := dl.Exists(srv.URL + "/pics/cat.png")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = a.Load(context.Background(), srv.URL+"/pics/cat.png")
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "second load is served from the save dir")

	_, err = a.Load(context.Background(), srv.URL+"/missing.png")
	assert.ErrorContains(t, err, "404")
}

func TestDownloaderLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	limit, err := bytesize.Parse("1KB")
	require.NoError(t, err)

	dl, err := NewDownloader("", zaptest.NewLogger(t), WithQuiet(), WithLimit(limit))
	require.NoError(t, err)

	_, err = dl.Get(context.Background(), srv.URL+"/big.bin")
	assert.ErrorContains(t, err, "exceeds limit")
}

func TestDownloaderNamesAnonymousFiles(t *testing.T) {
	dl, err := NewDownloader("", zaptest.NewLogger(t))
	require.NoError(t, err)

	u := mustParse(t, "http://example.com/")
	name := dl.filename(u)
	assert.Regexp(t, `^example\.com/[0-9a-v]{20}$`, name)

	assert.Equal(t, "example.com/a.png", dl.filename(mustParse(t, "http://example.com/x/a.png")))
	assert.Regexp(t, `^example\.com/a-[0-9a-f]{8}\.png$`, dl.filename(mustParse(t, "http://example.com/x/a.png?id=1")))
}

func TestDownloaderKeepsQueriesApart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.RawQuery))
	}))
	defer srv.Close()

	dl, err := NewDownloader("", zaptest.NewLogger(t), WithQuiet(), WithSaveFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	for _, id := range []string{"1", "2", "1"} {
		vf, err := dl.Get(context.Background(), srv.URL+"/image?id="+id)
		require.NoError(t, err)
		bs, err := vf.Bytes()
		require.NoError(t, err)
		assert.Equal(t, "id="+id, string(bs))
	}

	assert.NotEqual(t,
		dl.filename(mustParse(t, srv.URL+"/image?id=1")),
		dl.filename(mustParse(t, srv.URL+"/image?id=2")))
}

func TestHistory(t *testing.T) {
	a := New()

	a.Add(Entry{Framebuffer: 90, Source: "1.png", Width: 4, Height: 4, Format: drm.FormatARGB8888})
	a.Add(Entry{Framebuffer: 91, Source: "2.png"})
	a.Add(Entry{Framebuffer: 90, Source: "3.png"})

	entries := a.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, drm.FramebufferHandle(91), entries[0].Framebuffer)
	assert.Equal(t, "3.png", entries[1].Source)

	e, ok := a.Lookup(91)
	assert.True(t, ok)
	assert.Equal(t, "2.png", e.Source)

	curr, ok := a.Curr()
	assert.True(t, ok)
	assert.Equal(t, "3.png", curr.Source)

	assert.True(t, a.Remove(91))
	assert.False(t, a.Remove(91))
	_, ok = a.Lookup(91)
	assert.False(t, ok)
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}
