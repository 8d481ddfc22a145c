package imageresize

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeSize(t *testing.T, blob []byte) (int, int, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(blob))
	require.NoError(t, err)
	return cfg.Width, cfg.Height, format
}

func TestParseParams(t *testing.T) {
	values, err := url.ParseQuery("w=100&mh=50&q=300&h=junk")
	require.NoError(t, err)
	p := ParseParams(values)
	assert.Equal(t, Params{Width: 100, MaxHeight: 50, Quality: 100}, p)
	assert.True(t, ParseParams(url.Values{}).IsZero())
}

func TestTargetSize(t *testing.T) {
	w, h := Params{Width: 100}.targetSize(400, 200)
	assert.Equal(t, 100.0, w)
	assert.Equal(t, 50.0, h)

	w, h = Params{Height: 100}.targetSize(400, 200)
	assert.Equal(t, 200.0, w)
	assert.Equal(t, 100.0, h)

	w, h = Params{MaxWidth: 200}.targetSize(400, 200)
	assert.Equal(t, 200.0, w)
	assert.Equal(t, 100.0, h)

	w, h = Params{Quality: 50}.targetSize(400, 200)
	assert.Equal(t, 400.0, w)
	assert.Equal(t, 200.0, h)
}

func TestResize(t *testing.T) {
	r := New(Options{CacheEntries: 2})
	src := pngImage(t, 40, 20)

	got, err := r.Resize("a.png", src, Params{Width: 20})
	require.NoError(t, err)
	w, h, format := decodeSize(t, got)
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, h)
	assert.Equal(t, "png", format)

	again, err := r.Resize("a.png", src, Params{Width: 20})
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Len(t, r.cache, 1)
}

func TestResizeNothingToDo(t *testing.T) {
	r := New(Options{})
	src := pngImage(t, 40, 20)

	got, err := r.Resize("a.png", src, Params{})
	require.NoError(t, err)
	assert.Equal(t, src, got)

	got, err = r.Resize("a.png", src, Params{Width: 40, Height: 20})
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestResizeNotAnImage(t *testing.T) {
	_, err := New(Options{}).Resize("a.txt", []byte("hello"), Params{Width: 10})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCacheEviction(t *testing.T) {
	r := New(Options{CacheEntries: 1})
	src := pngImage(t, 40, 20)
	_, err := r.Resize("a.png", src, Params{Width: 20})
	require.NoError(t, err)
	_, err = r.Resize("a.png", src, Params{Width: 10})
	require.NoError(t, err)
	assert.Len(t, r.cache, 1)
	assert.Len(t, r.cacheOrder, 1)
}

func TestAvatar(t *testing.T) {
	got, err := Avatar(bytes.NewReader(pngImage(t, 300, 200)))
	require.NoError(t, err)
	w, h, format := decodeSize(t, got)
	assert.Equal(t, AvatarSize, w)
	assert.Equal(t, AvatarSize, h)
	assert.Equal(t, "jpeg", format)

	_, err = Avatar(strings.NewReader("not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
