package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/player"
	"github.com/erikbos/wavesync/recommend"
)

const (
	// artistResolveDistance is how many typos a preferred artist may
	// contain and still be mapped to a known artist.
	artistResolveDistance = 2
	maxPreferredArtists   = 50
	similarTracksSize     = 10
)

// GET /preferences
func (a *API) getPreferencesHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	prefs, err := a.repo.GetPreferences(r.Context(), s.UserID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			storeerror(w, r, err, "preferences not found")
			return
		}
		prefs = &model.Preferences{UserID: s.UserID}
	}
	serveJSON(makePreferences(*prefs), w)
}

// PUT /preferences
//
// updatePreferencesHandler stores the preferred artists. Names close to a
// known artist are replaced by that artist.
func (a *API) updatePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	var req PreferencesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	artists := ResolveArtists(req.PreferredArtists)
	if len(artists) > maxPreferredArtists {
		apierror(w, "too many preferred artists", http.StatusBadRequest)
		return
	}
	prefs := model.Preferences{
		UserID:           s.UserID,
		PreferredArtists: artists,
		IsConfigured:     true,
	}
	if err := a.repo.UpsertPreferences(r.Context(), prefs); err != nil {
		storeerror(w, r, err, "preferences not found")
		return
	}
	a.getPreferencesHandler(w, r)
}

// ResolveArtists trims names, maps them onto known artists where possible
// and drops empty and duplicate names.
func ResolveArtists(names []string) []string {
	resolved := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if artist, ok := recommend.Resolve(name, artistResolveDistance); ok {
			name = artist.Name
		}
		resolved = append(resolved, name)
	}
	return lo.UniqBy(resolved, strings.ToLower)
}

type RecommendationsResponse struct {
	InitialArtists []recommend.Artist `json:"initial_artists"`
	SimilarArtists []recommend.Artist `json:"similar_artists"`
	Tracks         []player.Track     `json:"tracks"`
	IsConfigured   bool               `json:"is_configured"`
}

// GET /recommendations
//
// recommendationsHandler returns the artists to pick from, artists similar
// to the picked ones, and tracks by the picked artists.
func (a *API) recommendationsHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	response := RecommendationsResponse{
		InitialArtists: recommend.InitialArtists,
		SimilarArtists: []recommend.Artist{},
		Tracks:         []player.Track{},
	}
	prefs, err := a.repo.GetPreferences(r.Context(), s.UserID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		serveJSON(response, w)
		return
	case err != nil:
		storeerror(w, r, err, "preferences not found")
		return
	}
	response.IsConfigured = prefs.IsConfigured
	response.SimilarArtists = recommend.Similar(prefs.PreferredArtists)

	tracks, err := a.gallery.Personal(r.Context(), s.UserID)
	if err != nil {
		storeerror(w, r, err, "tracks not found")
		return
	}
	response.Tracks = tracks
	serveJSON(response, w)
}

// GET /recommendations/artists
//
// similarArtistsHandler returns artists similar to ?selected= artists.
func (a *API) similarArtistsHandler(w http.ResponseWriter, r *http.Request) {
	serveJSON(recommend.Similar(r.URL.Query()["selected"]), w)
}

// GET /gallery/search
//
// gallerySearchHandler groups the tracks of the user by artist, ?q= filters artists.
func (a *API) gallerySearchHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	result, err := a.gallery.Search(r.Context(), s.UserID, r.URL.Query().Get("q"))
	if err != nil {
		storeerror(w, r, err, "tracks not found")
		return
	}
	serveJSON(result, w)
}

// GET /gallery/recommendations
//
// galleryRecommendationsHandler returns tracks of the most played artists.
func (a *API) galleryRecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	tracks, err := a.gallery.Recommendations(r.Context(), s.UserID)
	if err != nil {
		storeerror(w, r, err, "tracks not found")
		return
	}
	serveJSON(tracks, w)
}

// GET /wave
func (a *API) waveHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	wave, err := a.gallery.Wave(r.Context(), s.UserID)
	if err != nil {
		storeerror(w, r, err, "tracks not found")
		return
	}
	serveJSON(wave, w)
}

// POST /wave/play
//
// wavePlayHandler loads the wave of the user as the queue of the session.
func (a *API) wavePlayHandler(w http.ResponseWriter, r *http.Request) {
	s, c := a.coordinator(w, r)
	if c == nil {
		return
	}
	if _, err := a.gallery.PlayWave(r.Context(), c, s.UserID); err != nil {
		if errors.Is(err, player.ErrEmptyQueue) {
			apierror(w, "no tracks for preferred artists", http.StatusNotFound)
			return
		}
		storeerror(w, r, err, "tracks not found")
		return
	}
	serveJSON(c.State(), w)
}

// GET /search
//
// searchHandler finds tracks for ?q=
func (a *API) searchHandler(w http.ResponseWriter, r *http.Request) {
	if s := getSession(w, r); s == nil {
		return
	}
	result, err := a.search.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		apierror(w, "search failed", http.StatusServiceUnavailable)
		return
	}
	serveJSON(result, w)
}

// GET /search/similar/{video}
//
// searchSimilarHandler returns known tracks of ?artist= other than video.
func (a *API) searchSimilarHandler(w http.ResponseWriter, r *http.Request) {
	if s := getSession(w, r); s == nil {
		return
	}
	track := player.Track{
		VideoID: mux.Vars(r)["video"],
		Artist:  r.URL.Query().Get("artist"),
	}
	if track.Artist == "" {
		apierror(w, "artist is required", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || size <= 0 {
		size = similarTracksSize
	}
	tracks, err := a.search.Similar(r.Context(), track, min(size, maxListLimit))
	if err != nil {
		apierror(w, "search failed", http.StatusServiceUnavailable)
		return
	}
	serveJSON(tracks, w)
}
