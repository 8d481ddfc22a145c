// Package imageresize scales images: avatars on upload, and any stored
// image on request with w, h, mw, mh and q query parameters.
package imageresize

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"net/url"
	"strconv"
	"sync"

	"github.com/disintegration/imaging"
)

const (
	// AvatarSize is the width and height of stored avatars.
	AvatarSize     = 256
	defaultQuality = 85
	maxDimension   = 4096
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

type Options struct {
	// CacheEntries is the number of resized images kept in memory.
	CacheEntries int
}

type Resizer struct {
	maxEntries int

	cacheLock  sync.Mutex
	cache      map[string][]byte
	cacheOrder []string

	resizeMutexMap     map[string]*sync.Mutex
	resizeMutexMapLock sync.Mutex
}

func New(o Options) *Resizer {
	return &Resizer{
		maxEntries:     o.CacheEntries,
		cache:          make(map[string][]byte),
		resizeMutexMap: make(map[string]*sync.Mutex),
	}
}

// Params holds the requested size, zero values are unset.
type Params struct {
	Width     float64
	Height    float64
	MaxWidth  float64
	MaxHeight float64
	Quality   float64
}

func param2float(params url.Values, param string) (r float64) {
	if val := params.Get(param); val != "" {
		x, _ := strconv.ParseUint(val, 10, 64)
		r = float64(min(x, maxDimension))
	}
	return
}

// ParseParams reads 'w', 'h', 'mw', 'mh' and 'q' query parameters.
func ParseParams(params url.Values) Params {
	return Params{
		Width:     param2float(params, "w"),
		Height:    param2float(params, "h"),
		MaxWidth:  param2float(params, "mw"),
		MaxHeight: param2float(params, "mh"),
		Quality:   min(param2float(params, "q"), 100),
	}
}

// IsZero reports whether no parameter was set.
func (p Params) IsZero() bool {
	return p.Width+p.Height+p.MaxWidth+p.MaxHeight+p.Quality == 0
}

// targetSize calculates the wanted size of an ow x oh image. A missing
// width or height follows the aspect ratio, the result is clipped to the
// maximum width and height.
func (p Params) targetSize(ow, oh float64) (w, h float64) {
	w, h = p.Width, p.Height
	mw, mh := p.MaxWidth, p.MaxHeight
	if w != 0 && h != 0 {
		return
	}

	// aspect ratio
	ar := ow / oh

	if w == 0 && h > 0 {
		w = h * ar
	}
	if h == 0 && w > 0 {
		h = w / ar
	}
	if w == 0 && h == 0 {
		w = ow
		h = oh
	}

	// calculate both max width and max height.
	if mw != 0 || mh != 0 {
		if mh == 0 || (mw > 0 && mh*ar > mw) {
			mh = mw / ar
		}
		if mw == 0 || (mh > 0 && mw/ar > mh) {
			mw = mh * ar
		}
	}

	// clip
	if (mh > 0 && h > mh) || (mw > 0 && w > mw) {
		h = mh
		w = mw
	}
	return
}

// Resize returns blob scaled to p. If nothing needs to change the
// original blob is returned. Results are cached under name.
func (r *Resizer) Resize(name string, blob []byte, p Params) ([]byte, error) {
	if p.IsZero() {
		return blob, nil
	}

	img, format, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, ErrUnsupportedFormat
	}
	ow := float64(img.Bounds().Dx())
	oh := float64(img.Bounds().Dy())
	if ow == 0 || oh == 0 {
		return blob, nil
	}

	w, h := p.targetSize(ow, oh)
	needResize := uint(ow) != uint(w) || uint(oh) != uint(h)
	if !needResize && p.Quality == 0 {
		return blob, nil
	}

	key := fmt.Sprintf("%s:%dx%dq=%d", name, uint(w), uint(h), uint(p.Quality))
	if cached := r.cacheRead(key); cached != nil {
		return cached, nil
	}

	// one resize per name at a time
	r.resizeMutexMapLock.Lock()
	m, ok := r.resizeMutexMap[name]
	if !ok {
		m = &sync.Mutex{}
		r.resizeMutexMap[name] = m
	}
	r.resizeMutexMapLock.Unlock()
	m.Lock()
	defer m.Unlock()

	if cached := r.cacheRead(key); cached != nil {
		return cached, nil
	}

	if needResize {
		img = imaging.Resize(img, int(w), int(h), imaging.Lanczos)
	}
	resized, err := encode(img, format, int(p.Quality))
	if err != nil {
		return nil, err
	}
	r.cacheWrite(key, resized)
	return resized, nil
}

func encode(img image.Image, format string, quality int) ([]byte, error) {
	if quality <= 0 {
		quality = defaultQuality
	}
	var f imaging.Format
	switch format {
	case "jpeg":
		f = imaging.JPEG
	case "png":
		f = imaging.PNG
	case "gif":
		f = imaging.GIF
	default:
		return nil, ErrUnsupportedFormat
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, f, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Resizer) cacheRead(key string) []byte {
	r.cacheLock.Lock()
	defer r.cacheLock.Unlock()
	return r.cache[key]
}

func (r *Resizer) cacheWrite(key string, blob []byte) {
	if r.maxEntries <= 0 {
		return
	}
	r.cacheLock.Lock()
	defer r.cacheLock.Unlock()
	if _, ok := r.cache[key]; ok {
		return
	}
	// evict oldest
	for len(r.cacheOrder) >= r.maxEntries {
		delete(r.cache, r.cacheOrder[0])
		r.cacheOrder = r.cacheOrder[1:]
	}
	r.cache[key] = blob
	r.cacheOrder = append(r.cacheOrder, key)
}

// Avatar decodes an uploaded image, crops it to a centered square and
// scales it to AvatarSize. The result is a JPEG.
func Avatar(src io.Reader) ([]byte, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrUnsupportedFormat
	}
	img = imaging.Fill(img, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(defaultQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
