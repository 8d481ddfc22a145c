package gallery

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikbos/wavesync/database"
	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/player"
)

type fakeStore struct {
	history []model.TrackInfo
	library []model.TrackInfo
	prefs   *model.Preferences
	err     error
}

func filter(rows []model.TrackInfo, q database.TrackQuery) []model.TrackInfo {
	var out []model.TrackInfo
	for _, r := range rows {
		if q.ArtistLike != "" && !strings.Contains(strings.ToLower(r.Artist), strings.ToLower(q.ArtistLike)) {
			continue
		}
		if len(q.Artists) > 0 && !slices.Contains(q.Artists, r.Artist) {
			continue
		}
		out = append(out, r)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out
}

func (f *fakeStore) GetHistory(_ context.Context, userID string, q database.TrackQuery) ([]model.HistoryEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.HistoryEntry
	for _, r := range filter(f.history, q) {
		out = append(out, model.HistoryEntry{UserID: userID, TrackInfo: r})
	}
	return out, nil
}

func (f *fakeStore) GetLibrary(_ context.Context, userID string, q database.TrackQuery) ([]model.LibraryEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.LibraryEntry
	for _, r := range filter(f.library, q) {
		out = append(out, model.LibraryEntry{UserID: userID, TrackInfo: r})
	}
	return out, nil
}

func (f *fakeStore) GetPreferences(context.Context, string) (*model.Preferences, error) {
	if f.prefs == nil {
		return nil, model.ErrNotFound
	}
	return f.prefs, nil
}

func info(id, artist, title string) model.TrackInfo {
	return model.TrackInfo{VideoID: id, Artist: artist, Title: title}
}

func newGallery(store Store) *Gallery {
	return New(&Options{Store: store, Rand: rand.New(rand.NewPCG(1, 2))})
}

func TestSearchMergesHistoryAndLibrary(t *testing.T) {
	store := &fakeStore{
		history: []model.TrackInfo{info("1", "Face", "a"), info("2", "Pharaoh", "b")},
		library: []model.TrackInfo{info("1", "Face", "a"), info("3", "face", "Album - c")},
	}
	res, err := newGallery(store).Search(context.Background(), "u1", "face")
	require.NoError(t, err)
	require.Len(t, res.Artists, 1)
	assert.Equal(t, "Face", res.Artists[0].Name)
	assert.Equal(t, 2, res.Artists[0].TotalTracks)
	assert.Empty(t, res.Groups)
}

func TestSearchStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("offline")}
	_, err := newGallery(store).Search(context.Background(), "u1", "")
	assert.Error(t, err)
}

func TestWaveWithoutPreferences(t *testing.T) {
	store := &fakeStore{history: []model.TrackInfo{info("1", "Face", "a")}}
	w, err := newGallery(store).Wave(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, w.Tracks)

	store.prefs = &model.Preferences{PreferredArtists: []string{"Face"}}
	w, err = newGallery(store).Wave(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, w.Tracks, "unconfigured preferences")
}

func TestWaveCollectsPreferredArtists(t *testing.T) {
	store := &fakeStore{
		history: []model.TrackInfo{info("1", "Face", "a"), info("2", "Pharaoh", "b"), info("3", "Face feat. X", "c")},
		library: []model.TrackInfo{info("1", "Face", "a"), info("4", "FACE", "d")},
		prefs:   &model.Preferences{PreferredArtists: []string{"Face"}, IsConfigured: true},
	}
	w, err := newGallery(store).Wave(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Face"}, w.Artists)

	ids := make([]string, 0, len(w.Tracks))
	for _, tr := range w.Tracks {
		ids = append(ids, tr.VideoID)
	}
	assert.ElementsMatch(t, []string{"1", "3", "4"}, ids)
}

func TestPlayWaveLoadsQueue(t *testing.T) {
	store := &fakeStore{
		history: []model.TrackInfo{info("1", "Face", "a"), info("2", "Face", "b")},
		prefs:   &model.Preferences{PreferredArtists: []string{"Face"}, IsConfigured: true},
	}
	c := player.New(&player.Options{Go: func(func()) {}})
	defer c.Close()

	w, err := newGallery(store).PlayWave(context.Background(), c, "u1")
	require.NoError(t, err)
	s := c.State()
	assert.Len(t, s.Queue.Tracks, 2)
	current, ok := s.CurrentTrack.Get()
	require.True(t, ok)
	assert.Equal(t, w.Tracks[0].VideoID, current.VideoID)
}

func TestPlayWaveEmpty(t *testing.T) {
	c := player.New(&player.Options{Go: func(func()) {}})
	defer c.Close()
	_, err := newGallery(&fakeStore{}).PlayWave(context.Background(), c, "u1")
	assert.ErrorIs(t, err, player.ErrEmptyQueue)
	assert.False(t, c.State().CurrentTrack.IsPresent())
}

func TestPersonal(t *testing.T) {
	store := &fakeStore{
		history: []model.TrackInfo{info("1", "Face", "a"), info("2", "Pharaoh", "b")},
		library: []model.TrackInfo{info("1", "Face", "a"), info("3", "Face", "c")},
		prefs:   &model.Preferences{PreferredArtists: []string{"Face"}},
	}
	tracks, err := newGallery(store).Personal(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "1", tracks[0].VideoID)
	assert.Equal(t, "3", tracks[1].VideoID)
}

func TestRecommendationsFromHistory(t *testing.T) {
	store := &fakeStore{
		history: []model.TrackInfo{info("1", "Face", "a"), info("2", "", "b"), info("3", "Face", "c")},
	}
	tracks, err := newGallery(store).Recommendations(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
}
