package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/djherbis/times"
	"github.com/spf13/afero"
)

type LocalOptions struct {
	// Dir is the root directory on the OS filesystem.
	Dir string
	// Fs replaces the OS filesystem, Dir is ignored when set.
	Fs        afero.Fs
	PublicURL string
}

// Local stores blobs as files.
type Local struct {
	fs afero.Afero
	// osDir is set when blobs live on the OS filesystem.
	osDir     string
	publicURL string
}

func NewLocal(o *LocalOptions) (*Local, error) {
	l := &Local{publicURL: o.PublicURL}
	if o.Fs != nil {
		l.fs = afero.Afero{Fs: o.Fs}
		return l, nil
	}
	if o.Dir == "" {
		return nil, errors.New("no storage directory configured")
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return nil, err
	}
	l.osDir = o.Dir
	l.fs = afero.Afero{Fs: afero.NewBasePathFs(afero.NewOsFs(), o.Dir)}
	return l, nil
}

func (l *Local) Put(_ context.Context, key string, r io.Reader, _ string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := l.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return err
	}
	// write to a temporary file so readers never see a partial blob
	tmp := key + ".tmp"
	if err := l.fs.WriteReader(tmp, r); err != nil {
		l.fs.Remove(tmp)
		return err
	}
	return l.fs.Rename(tmp, key)
}

func (l *Local) Get(ctx context.Context, key string) (io.ReadCloser, *Blob, error) {
	blob, err := l.Stat(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	f, err := l.fs.Open(blob.Key)
	if err != nil {
		return nil, nil, mapFsError(err)
	}
	return f, blob, nil
}

func (l *Local) Stat(_ context.Context, key string) (*Blob, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	fi, err := l.fs.Stat(key)
	if err != nil {
		return nil, mapFsError(err)
	}
	if fi.IsDir() {
		return nil, ErrNotFound
	}
	blob := &Blob{
		Key:         key,
		Size:        fi.Size(),
		ContentType: contentTypeOf(key),
		Modified:    fi.ModTime(),
	}
	if l.osDir != "" {
		if ts, err := times.Stat(filepath.Join(l.osDir, filepath.FromSlash(key))); err == nil {
			blob.Modified = ts.ModTime()
			if ts.HasBirthTime() {
				blob.Created = ts.BirthTime()
			}
		}
	}
	return blob, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	return mapFsError(l.fs.Remove(key))
}

func (l *Local) URL(key string) string {
	return joinURL(l.publicURL, key)
}

func (l *Local) Close() error {
	return nil
}

func mapFsError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
