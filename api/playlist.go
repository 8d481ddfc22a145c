package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/erikbos/wavesync/auth"
	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/player"
)

// GET /playlists
//
// getPlaylistsHandler lists the playlists of the user.
func (a *API) getPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	playlists, err := a.repo.GetPlaylists(r.Context(), s.UserID)
	if err != nil {
		storeerror(w, r, err, "playlist not found")
		return
	}
	serveJSON(lo.Map(playlists, func(p model.Playlist, _ int) PlaylistResponse {
		return makePlaylist(p)
	}), w)
}

// POST /playlists
//
// createPlaylistHandler creates a new playlist
func (a *API) createPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	var req PlaylistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		apierror(w, "name is required", http.StatusBadRequest)
		return
	}
	playlistID, err := a.repo.CreatePlaylist(r.Context(), model.Playlist{
		UserID:      s.UserID,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		storeerror(w, r, err, "playlist not found")
		return
	}
	playlist, err := a.repo.GetPlaylist(r.Context(), s.UserID, playlistID)
	if err != nil {
		storeerror(w, r, err, "playlist not found")
		return
	}
	serveJSONStatus(makePlaylist(*playlist), http.StatusCreated, w)
}

// GET /playlists/{playlist}
func (a *API) getPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	playlist := a.ownPlaylist(w, r, s)
	if playlist == nil {
		return
	}
	serveJSON(makePlaylist(*playlist), w)
}

// PUT /playlists/{playlist}
//
// updatePlaylistHandler renames a playlist and updates its description.
func (a *API) updatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	var req PlaylistRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		apierror(w, "name is required", http.StatusBadRequest)
		return
	}
	playlistID := mux.Vars(r)["playlist"]
	if err := a.repo.UpdatePlaylist(r.Context(), model.Playlist{
		ID:          playlistID,
		UserID:      s.UserID,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}); err != nil {
		storeerror(w, r, err, "playlist not found")
		return
	}
	playlist, err := a.repo.GetPlaylist(r.Context(), s.UserID, playlistID)
	if err != nil {
		storeerror(w, r, err, "playlist not found")
		return
	}
	serveJSON(makePlaylist(*playlist), w)
}

// DELETE /playlists/{playlist}
func (a *API) deletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	if err := a.repo.DeletePlaylist(r.Context(), s.UserID, mux.Vars(r)["playlist"]); err != nil {
		storeerror(w, r, err, "playlist not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /playlists/{playlist}/tracks
//
// getPlaylistTracksHandler lists the tracks of a playlist ordered by position.
func (a *API) getPlaylistTracksHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	playlist := a.ownPlaylist(w, r, s)
	if playlist == nil {
		return
	}
	tracks, err := a.repo.GetPlaylistTracks(r.Context(), playlist.ID)
	if err != nil {
		storeerror(w, r, err, "playlist not found")
		return
	}
	serveJSON(makePlaylistTracks(tracks), w)
}

// POST /playlists/{playlist}/tracks
//
// addPlaylistTrackHandler appends a track to a playlist.
func (a *API) addPlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
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
	playlist := a.ownPlaylist(w, r, s)
	if playlist == nil {
		return
	}
	if err := a.repo.AddTrackToPlaylist(r.Context(), playlist.ID, track); err != nil {
		storeerror(w, r, err, "playlist not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /playlists/{playlist}/tracks/{video}
func (a *API) deletePlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	playlist := a.ownPlaylist(w, r, s)
	if playlist == nil {
		return
	}
	if err := a.repo.RemoveTrackFromPlaylist(r.Context(), playlist.ID, mux.Vars(r)["video"]); err != nil {
		storeerror(w, r, err, "track not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /playlists/{playlist}/tracks/{video}/move/{index}
//
// movePlaylistTrackHandler moves a track to a new position.
func (a *API) movePlaylistTrackHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	vars := mux.Vars(r)
	newIndex, err := strconv.Atoi(vars["index"])
	if err != nil || newIndex < 0 {
		apierror(w, "invalid index", http.StatusBadRequest)
		return
	}
	playlist := a.ownPlaylist(w, r, s)
	if playlist == nil {
		return
	}
	if err := a.repo.MovePlaylistTrack(r.Context(), playlist.ID, vars["video"], newIndex); err != nil {
		storeerror(w, r, err, "track not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /playlists/{playlist}/play
//
// playPlaylistHandler queues all tracks of a playlist, starting at ?start=
func (a *API) playPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	s, c := a.coordinator(w, r)
	if c == nil {
		return
	}
	playlist := a.ownPlaylist(w, r, s)
	if playlist == nil {
		return
	}
	entries, err := a.repo.GetPlaylistTracks(r.Context(), playlist.ID)
	if err != nil {
		storeerror(w, r, err, "playlist not found")
		return
	}
	start, _ := strconv.Atoi(r.URL.Query().Get("start"))
	tracks := lo.Map(entries, func(e model.PlaylistTrack, _ int) player.Track {
		return player.FromInfo(e.TrackInfo)
	})
	if !playQueue(w, c, tracks, start) {
		return
	}
	serveJSON(c.State(), w)
}

// ownPlaylist returns the playlist named in the path if it belongs to
// the session user, otherwise it writes a not found error.
func (a *API) ownPlaylist(w http.ResponseWriter, r *http.Request, s *auth.Session) *model.Playlist {
	playlist, err := a.repo.GetPlaylist(r.Context(), s.UserID, mux.Vars(r)["playlist"])
	if err != nil {
		storeerror(w, r, err, "playlist not found")
		return nil
	}
	return playlist
}
