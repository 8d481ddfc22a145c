// Package gallery builds artist views over the tracks a user has played
// or saved: de-duplication, grouping by artist, recommendations and the
// wave queue.
package gallery

import (
	"cmp"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"

	"github.com/erikbos/wavesync/player"
)

const (
	// MinGroupTracks is the number of tracks an artist needs to show up
	// as an artist group.
	MinGroupTracks = 10
	// SinglesAlbum collects tracks whose title carries no album part.
	SinglesAlbum = "Singles"

	albumSeparator = "-"
)

// ArtistInfo groups the tracks of one artist.
type ArtistInfo struct {
	// Name is the spelling of the first track seen for this artist.
	Name        string         `json:"name"`
	Tracks      []player.Track `json:"tracks"`
	TotalTracks int            `json:"total_tracks"`
	// Albums is a heuristic derived from track titles, not authoritative.
	Albums []string `json:"albums"`
}

// Dedup removes tracks with a videoID seen earlier in the list.
func Dedup(tracks []player.Track) []player.Track {
	return lo.UniqBy(tracks, func(t player.Track) string {
		return t.VideoID
	})
}

// GroupByArtist groups tracks by lower-cased artist name, keeping only
// artists matching query. An empty query matches all artists. Groups are
// sorted by track count, largest first; equal counts keep first-seen order.
func GroupByArtist(tracks []player.Track, query string) []ArtistInfo {
	var order []string
	byArtist := make(map[string][]player.Track)
	for _, t := range tracks {
		key := strings.ToLower(t.Artist)
		if _, ok := byArtist[key]; !ok {
			order = append(order, key)
		}
		byArtist[key] = append(byArtist[key], t)
	}

	artists := make([]ArtistInfo, 0, len(order))
	for _, key := range order {
		if !MatchArtist(query, key) {
			continue
		}
		group := byArtist[key]
		artists = append(artists, ArtistInfo{
			Name:        group[0].Artist,
			Tracks:      group,
			TotalTracks: len(group),
			Albums:      Albums(group),
		})
	}
	slices.SortStableFunc(artists, func(a, b ArtistInfo) int {
		return cmp.Compare(b.TotalTracks, a.TotalTracks)
	})
	return artists
}

// ArtistGroups returns the artists with at least MinGroupTracks tracks.
func ArtistGroups(artists []ArtistInfo) []ArtistInfo {
	return lo.Filter(artists, func(a ArtistInfo, _ int) bool {
		return a.TotalTracks >= MinGroupTracks
	})
}

// MatchArtist reports whether artist matches query. Matching is
// case-insensitive and fuzzy: the characters of query must appear in
// artist in order, so a plain substring always matches.
func MatchArtist(query, artist string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(artist), strings.ToLower(query)) {
		return true
	}
	return fuzzy.MatchFold(query, artist)
}

// Albums guesses album names from titles shaped "Album - Song". Titles
// without separator end up in SinglesAlbum.
func Albums(tracks []player.Track) []string {
	albums := make([]string, 0)
	for _, t := range tracks {
		album := SinglesAlbum
		if parts := strings.Split(t.Title, albumSeparator); len(parts) > 1 {
			album = strings.TrimSpace(parts[0])
		}
		if album == "" {
			continue
		}
		albums = append(albums, album)
	}
	return lo.Uniq(albums)
}
