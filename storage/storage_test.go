package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestCleanKey(t *testing.T) {
	for _, key := range []string{"a.jpg", "avatars/u1.jpg", "a/b/c"} {
		got, err := cleanKey(key)
		assert.NoError(t, err, key)
		assert.Equal(t, key, got)
	}
	for _, key := range []string{"", "/abs", "../x", "a/../../x", "a//b", "a/./b", ".", "a\\b"} {
		_, err := cleanKey(key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "avatars/u1.jpg", strings.NewReader("jpegdata"), "image/jpeg"))

	blob, err := s.Stat(ctx, "avatars/u1.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(8), blob.Size)
	assert.Equal(t, "image/jpeg", blob.ContentType)
	assert.False(t, blob.Modified.IsZero())

	rc, blob, err := s.Get(ctx, "avatars/u1.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "jpegdata", string(data))
	assert.Equal(t, "avatars/u1.jpg", blob.Key)

	// overwrite
	require.NoError(t, s.Put(ctx, "avatars/u1.jpg", strings.NewReader("new"), "image/jpeg"))
	blob, err = s.Stat(ctx, "avatars/u1.jpg")
	require.NoError(t, err)
	assert.Equal(t, int64(3), blob.Size)

	require.NoError(t, s.Delete(ctx, "avatars/u1.jpg"))
	_, err = s.Stat(ctx, "avatars/u1.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = s.Get(ctx, "avatars/u1.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "avatars/u1.jpg"), ErrNotFound)

	assert.ErrorIs(t, s.Put(ctx, "../escape", strings.NewReader("x"), ""), ErrInvalidKey)
	_, err = s.Stat(ctx, "avatars")
	assert.Error(t, err)
}

func TestLocalMemFs(t *testing.T) {
	s, err := NewLocal(&LocalOptions{Fs: afero.NewMemMapFs(), PublicURL: "/blobs/"})
	require.NoError(t, err)
	testStore(t, s)
	assert.Equal(t, "/blobs/avatars/u1.jpg", s.URL("avatars/u1.jpg"))
}

func TestLocalOsFs(t *testing.T) {
	s, err := NewLocal(&LocalOptions{Dir: t.TempDir(), PublicURL: "/blobs"})
	require.NoError(t, err)
	testStore(t, s)
}

func TestLocalNeedsDir(t *testing.T) {
	_, err := NewLocal(&LocalOptions{})
	assert.Error(t, err)
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(context.Background(), Config{Type: "ftp"})
	assert.Error(t, err)
}

func TestGCSURL(t *testing.T) {
	ctx := context.Background()
	g, err := NewGCS(ctx, &GCSOptions{
		Bucket:        "wavesync",
		Prefix:        "prod",
		ClientOptions: []option.ClientOption{option.WithoutAuthentication()},
	})
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, "https://storage.googleapis.com/wavesync/prod/avatars/u1.jpg", g.URL("avatars/u1.jpg"))
	assert.Empty(t, g.URL("../x"))

	g.publicURL = "https://cdn.example.com"
	assert.Equal(t, "https://cdn.example.com/prod/avatars/u1.jpg", g.URL("avatars/u1.jpg"))

	_, err = NewGCS(ctx, &GCSOptions{})
	assert.Error(t, err)
}
