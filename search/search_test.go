package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikbos/wavesync/player"
)

var tracks = []player.Track{
	{VideoID: "jfKfPfyJRdk", Title: "lofi hip hop radio - beats to relax/study to", Artist: "Lofi Girl"},
	{VideoID: "4xDzrJKXOOY", Title: "Dark Ambient Music - The Abyss", Artist: "Cryo Chamber"},
	{VideoID: "cryo2", Title: "Ice Temples", Artist: "Cryo Chamber", Thumbnail: "https://example.com/t.jpg"},
}

func newIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	require.NoError(t, idx.Add(context.Background(), tracks...))
	return idx
}

func TestIndexSearch(t *testing.T) {
	idx := newIndex(t)
	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	got, err := idx.Search(context.Background(), "lofi", 10)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "jfKfPfyJRdk", got[0].VideoID)
	assert.Equal(t, "Lofi Girl", got[0].Artist)

	got, err = idx.Search(context.Background(), "Cryo Chamber", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	ids := []string{got[0].VideoID, got[1].VideoID}
	assert.ElementsMatch(t, []string{"4xDzrJKXOOY", "cryo2"}, ids)
}

func TestIndexSearchEmpty(t *testing.T) {
	got, err := newIndex(t).Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIndexSimilar(t *testing.T) {
	idx := newIndex(t)
	got, err := idx.Similar(context.Background(), tracks[1], 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cryo2", got[0].VideoID)
	assert.Equal(t, "https://example.com/t.jpg", got[0].Thumbnail)

	_, err = idx.Similar(context.Background(), player.Track{VideoID: "x"}, 10)
	assert.Error(t, err)
}

type fakeRemote struct {
	tracks []player.Track
	err    error
	calls  int
}

func (f *fakeRemote) Search(context.Context, string) ([]player.Track, error) {
	f.calls++
	return f.tracks, f.err
}

func TestServiceRemoteResultsAreIndexed(t *testing.T) {
	idx, err := NewIndex()
	require.NoError(t, err)
	defer idx.Close()

	remote := &fakeRemote{tracks: tracks[:1]}
	s := New(&Options{Remote: remote, Index: idx})

	res, err := s.Search(context.Background(), "lofi")
	require.NoError(t, err)
	assert.Equal(t, SourceYouTube, res.Source)
	assert.Len(t, res.Tracks, 1)

	remote.err = errors.New("quota exceeded")
	res, err = s.Search(context.Background(), "lofi")
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)
	require.Len(t, res.Tracks, 1)
	assert.Equal(t, "jfKfPfyJRdk", res.Tracks[0].VideoID)
}

func TestServiceWithoutRemote(t *testing.T) {
	s := New(&Options{Index: newIndex(t)})
	res, err := s.Search(context.Background(), "abyss")
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)
	require.NotEmpty(t, res.Tracks)
	assert.Equal(t, "4xDzrJKXOOY", res.Tracks[0].VideoID)

	res, err = s.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, res.Tracks)
}

const searchResponse = `{
  "items": [
    {
      "id": {"kind": "youtube#video", "videoId": "abc123"},
      "snippet": {
        "title": "Rock &amp; Roll",
        "channelTitle": "Some Band",
        "thumbnails": {"default": {"url": "https://i.ytimg.com/vi/abc123/default.jpg"}}
      }
    },
    {
      "id": {"kind": "youtube#channel"},
      "snippet": {"title": "not a video"}
    }
  ]
}`

func TestYouTubeSearch(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchResponse))
	}))
	defer srv.Close()

	yt, err := NewYouTube(context.Background(), "secret", srv.URL+"/")
	require.NoError(t, err)

	res, err := yt.Search(context.Background(), "rock")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, player.Track{
		VideoID:   "abc123",
		Title:     "Rock & Roll",
		Artist:    "Some Band",
		Thumbnail: "https://i.ytimg.com/vi/abc123/default.jpg",
	}, res[0])

	require.NotNil(t, got)
	assert.True(t, strings.HasSuffix(got.URL.Path, "/search"))
	q := got.URL.Query()
	assert.Equal(t, "rock", q.Get("q"))
	assert.Equal(t, "snippet", q.Get("part"))
	assert.Equal(t, "video", q.Get("type"))
	assert.Equal(t, "10", q.Get("maxResults"))
	assert.Equal(t, "secret", q.Get("key"))
}

func TestYouTubeNeedsKey(t *testing.T) {
	_, err := NewYouTube(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
