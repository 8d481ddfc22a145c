package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/erikbos/wavesync/database"
	"github.com/erikbos/wavesync/database/model"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// GET /library
//
// libraryHandler lists the library of the user, newest first, optionally
// filtered on ?artist=
func (a *API) libraryHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	q := database.TrackQuery{
		ArtistLike: r.URL.Query().Get("artist"),
		Limit:      limitParam(r),
	}
	entries, err := a.repo.GetLibrary(r.Context(), s.UserID, q)
	if err != nil {
		storeerror(w, r, err, "library not found")
		return
	}
	serveJSON(makeLibraryTracks(entries), w)
}

// POST /library
//
// libraryAddHandler saves a track to the library.
func (a *API) libraryAddHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	var track model.TrackInfo
	if !decodeJSON(w, r, &track) {
		return
	}
	if track.VideoID == "" {
		apierror(w, "video_id is required", http.StatusBadRequest)
		return
	}
	entry, err := a.repo.AddToLibrary(r.Context(), s.UserID, track)
	if err != nil {
		storeerror(w, r, err, "track not found")
		return
	}
	a.syncLibraryFlag(s.AccessToken, track.VideoID, true)
	serveJSONStatus(makeLibraryTracks([]model.LibraryEntry{*entry})[0], http.StatusCreated, w)
}

// DELETE /library/{video}
func (a *API) libraryDeleteHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	videoID := mux.Vars(r)["video"]
	if err := a.repo.RemoveFromLibrary(r.Context(), s.UserID, videoID); err != nil {
		storeerror(w, r, err, "track not found")
		return
	}
	a.syncLibraryFlag(s.AccessToken, videoID, false)
	w.WriteHeader(http.StatusNoContent)
}

// GET /history
//
// historyHandler lists played tracks, most recent first.
func (a *API) historyHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	q := database.TrackQuery{
		ArtistLike: r.URL.Query().Get("artist"),
		Limit:      limitParam(r),
	}
	entries, err := a.repo.GetHistory(r.Context(), s.UserID, q)
	if err != nil {
		storeerror(w, r, err, "history not found")
		return
	}
	serveJSON(makeHistoryTracks(entries), w)
}

// syncLibraryFlag updates the in-library flag of the session player when
// the library was changed outside of it.
func (a *API) syncLibraryFlag(token, videoID string, inLibrary bool) {
	if a.sessions == nil {
		return
	}
	if c, ok := a.sessions.Lookup(token); ok {
		c.SetInLibrary(videoID, inLibrary)
	}
}

func limitParam(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
