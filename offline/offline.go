// Package offline keeps a per-user copy of downloaded track metadata on
// local disk, so downloads can be listed while the store is unreachable.
package offline

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/idhash"
)

type Options struct {
	// Dir holds one cache file per user.
	Dir string
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
}

// Cache stores downloaded tracks per user.
type Cache struct {
	dir string
	fs  *gacheFs

	mu    sync.Mutex
	users map[string]*gache.Cache[[]model.DownloadedTrack]
}

func New(o *Options) *Cache {
	fs := o.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Cache{
		dir:   o.Dir,
		fs:    &gacheFs{fs: afero.Afero{Fs: fs}},
		users: make(map[string]*gache.Cache[[]model.DownloadedTrack]),
	}
}

// Path returns the cache file of a user.
func (c *Cache) Path(userID string) string {
	return filepath.Join(c.dir, idhash.Hash(userID)+".json")
}

func (c *Cache) cacher(userID string) *gache.Cache[[]model.DownloadedTrack] {
	if g, ok := c.users[userID]; ok {
		return g
	}
	g := gache.New[[]model.DownloadedTrack](&gache.Options{
		Path:       c.Path(userID),
		FileSystem: c.fs,
	})
	c.users[userID] = g
	return g
}

// Get returns the cached downloads of a user, newest first.
func (c *Cache) Get(userID string) ([]model.DownloadedTrack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(userID)
}

func (c *Cache) getLocked(userID string) ([]model.DownloadedTrack, error) {
	cached, expired, err := c.cacher(userID).Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return []model.DownloadedTrack{}, nil
	}
	return cached, nil
}

// Replace overwrites the cached downloads of a user.
func (c *Cache) Replace(userID string, downloads []model.DownloadedTrack) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if downloads == nil {
		downloads = []model.DownloadedTrack{}
	}
	return c.cacher(userID).Set(downloads)
}

// Add puts d in front of the cached downloads, replacing an older entry
// of the same video.
func (c *Cache) Add(userID string, d model.DownloadedTrack) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, err := c.getLocked(userID)
	if err != nil {
		return err
	}
	cached = lo.Reject(cached, func(old model.DownloadedTrack, _ int) bool {
		return old.VideoID == d.VideoID
	})
	return c.cacher(userID).Set(append([]model.DownloadedTrack{d}, cached...))
}

// Remove drops the download with id.
func (c *Cache) Remove(userID, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, err := c.getLocked(userID)
	if err != nil {
		return err
	}
	cached = lo.Reject(cached, func(old model.DownloadedTrack, _ int) bool {
		return old.ID == id
	})
	return c.cacher(userID).Set(cached)
}

// gacheFs adapts an afero filesystem to gache.FileSystem.
type gacheFs struct {
	fs afero.Afero
}

func (g *gacheFs) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	return g.fs.OpenFile(name, flag, perm)
}

func (g *gacheFs) MkdirAll(path string, perm os.FileMode) error {
	return g.fs.MkdirAll(path, perm)
}
