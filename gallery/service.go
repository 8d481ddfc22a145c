package gallery

import (
	"cmp"
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/erikbos/wavesync/database"
	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/player"
)

const (
	searchWindow        = 1000
	recommendWindow     = 50
	recommendTopArtists = 5
	recommendLimit      = 12
	waveExactLimit      = 50
	wavePartialLimit    = 30
	personalLimit       = 20
	personalResults     = 6
)

// Store is the part of the repository the gallery reads from.
type Store interface {
	GetHistory(ctx context.Context, userID string, q database.TrackQuery) ([]model.HistoryEntry, error)
	GetLibrary(ctx context.Context, userID string, q database.TrackQuery) ([]model.LibraryEntry, error)
	GetPreferences(ctx context.Context, userID string) (*model.Preferences, error)
}

type Options struct {
	Store Store
	// Rand shuffles the wave, defaults to the global source.
	Rand *rand.Rand
}

type Gallery struct {
	store   Store
	shuffle func([]player.Track)
}

func New(o *Options) *Gallery {
	g := &Gallery{
		store: o.Store,
		shuffle: func(tracks []player.Track) {
			lo.Shuffle(tracks)
		},
	}
	if o.Rand != nil {
		r := o.Rand
		g.shuffle = func(tracks []player.Track) {
			r.Shuffle(len(tracks), func(i, j int) {
				tracks[i], tracks[j] = tracks[j], tracks[i]
			})
		}
	}
	return g
}

// SearchResult is the gallery view of a search.
type SearchResult struct {
	Artists []ArtistInfo `json:"artists"`
	// Groups holds the artists with at least MinGroupTracks tracks.
	Groups []ArtistInfo `json:"groups"`
}

// Search groups the history and library tracks of a user by artist,
// keeping artists that match query.
func (g *Gallery) Search(ctx context.Context, userID, query string) (*SearchResult, error) {
	tracks, err := g.userTracks(ctx, userID, database.TrackQuery{Limit: searchWindow})
	if err != nil {
		return nil, err
	}
	artists := GroupByArtist(Dedup(tracks), query)
	return &SearchResult{
		Artists: artists,
		Groups:  ArtistGroups(artists),
	}, nil
}

// Recommendations returns recently played tracks of the artists the user
// played most.
func (g *Gallery) Recommendations(ctx context.Context, userID string) ([]player.Track, error) {
	history, err := g.store.GetHistory(ctx, userID, database.TrackQuery{Limit: recommendWindow})
	if err != nil {
		return nil, err
	}
	return Recommend(historyTracks(history)), nil
}

// Recommend picks from history, most recent first, the tracks of the
// artists played most often. Only the most recent plays are considered.
func Recommend(history []player.Track) []player.Track {
	if len(history) > recommendWindow {
		history = history[:recommendWindow]
	}

	type artistCount struct {
		artist string
		count  int
	}
	var counts []artistCount
	index := make(map[string]int)
	for _, t := range history {
		if t.Artist == "" {
			continue
		}
		i, ok := index[t.Artist]
		if !ok {
			i = len(counts)
			index[t.Artist] = i
			counts = append(counts, artistCount{artist: t.Artist})
		}
		counts[i].count++
	}
	slices.SortStableFunc(counts, func(a, b artistCount) int {
		return cmp.Compare(b.count, a.count)
	})
	if len(counts) > recommendTopArtists {
		counts = counts[:recommendTopArtists]
	}

	top := make(map[string]bool, len(counts))
	for _, c := range counts {
		top[c.artist] = true
	}
	tracks := lo.Filter(history, func(t player.Track, _ int) bool {
		return top[t.Artist]
	})
	if len(tracks) > recommendLimit {
		tracks = tracks[:recommendLimit]
	}
	return tracks
}

// Wave is a shuffled queue of tracks by the preferred artists of a user.
type Wave struct {
	Artists []string       `json:"artists"`
	Tracks  []player.Track `json:"tracks"`
}

// Wave collects history and library tracks of the preferred artists.
// Users without configured preferences get an empty wave.
func (g *Gallery) Wave(ctx context.Context, userID string) (*Wave, error) {
	artists, err := g.preferredArtists(ctx, userID, true)
	if err != nil || len(artists) == 0 {
		return &Wave{Artists: artists, Tracks: []player.Track{}}, err
	}

	var tracks []player.Track
	for _, artist := range artists {
		exact, err := g.userTracks(ctx, userID, database.TrackQuery{Artists: []string{artist}, Limit: waveExactLimit})
		if err != nil {
			return nil, err
		}
		partial, err := g.userTracks(ctx, userID, database.TrackQuery{ArtistLike: artist, Limit: wavePartialLimit})
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, exact...)
		tracks = append(tracks, partial...)
	}

	tracks = lo.Filter(Dedup(tracks), func(t player.Track, _ int) bool {
		return matchesAny(t.Artist, artists)
	})
	g.shuffle(tracks)
	return &Wave{Artists: artists, Tracks: tracks}, nil
}

// PlayWave builds the wave and hands it to c as its queue.
func (g *Gallery) PlayWave(ctx context.Context, c *player.Coordinator, userID string) (*Wave, error) {
	w, err := g.Wave(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(w.Tracks) == 0 {
		return w, player.ErrEmptyQueue
	}
	return w, c.PlayQueue(w.Tracks, 0)
}

// Personal returns a few history and library tracks whose artist is one of
// the preferred artists of the user.
func (g *Gallery) Personal(ctx context.Context, userID string) ([]player.Track, error) {
	artists, err := g.preferredArtists(ctx, userID, false)
	if err != nil || len(artists) == 0 {
		return []player.Track{}, err
	}
	q := database.TrackQuery{Artists: artists, Limit: personalLimit}
	tracks, err := g.userTracks(ctx, userID, q)
	if err != nil {
		return nil, err
	}
	tracks = Dedup(tracks)
	if len(tracks) > personalResults {
		tracks = tracks[:personalResults]
	}
	return tracks, nil
}

func (g *Gallery) preferredArtists(ctx context.Context, userID string, configured bool) ([]string, error) {
	prefs, err := g.store.GetPreferences(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if configured && !prefs.IsConfigured {
		return nil, nil
	}
	return prefs.PreferredArtists, nil
}

// userTracks returns history tracks followed by library tracks.
func (g *Gallery) userTracks(ctx context.Context, userID string, q database.TrackQuery) ([]player.Track, error) {
	history, err := g.store.GetHistory(ctx, userID, q)
	if err != nil {
		return nil, err
	}
	library, err := g.store.GetLibrary(ctx, userID, q)
	if err != nil {
		return nil, err
	}
	tracks := historyTracks(history)
	for _, e := range library {
		tracks = append(tracks, player.FromInfo(e.TrackInfo))
	}
	return tracks, nil
}

func historyTracks(history []model.HistoryEntry) []player.Track {
	return lo.Map(history, func(e model.HistoryEntry, _ int) player.Track {
		return player.FromInfo(e.TrackInfo)
	})
}

// matchesAny reports whether artist and one of names contain each other,
// ignoring case.
func matchesAny(artist string, names []string) bool {
	artist = strings.ToLower(artist)
	return lo.SomeBy(names, func(name string) bool {
		name = strings.ToLower(name)
		return strings.Contains(artist, name) || strings.Contains(name, artist)
	})
}
