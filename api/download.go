package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/erikbos/wavesync/database/model"
)

// GET /downloads
//
// getDownloadsHandler lists the downloaded tracks of the user. When the
// store cannot be reached the offline copy is served instead.
func (a *API) getDownloadsHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	downloads, err := a.repo.GetDownloads(r.Context(), s.UserID)
	if err != nil {
		if a.offline == nil {
			storeerror(w, r, err, "downloads not found")
			return
		}
		logrus.WithError(err).WithField("user", s.UserID).Warn("Serving downloads from offline cache")
		cached, cacheErr := a.offline.Get(s.UserID)
		if cacheErr != nil {
			storeerror(w, r, err, "downloads not found")
			return
		}
		serveJSON(DownloadsResponse{Downloads: cached, Offline: true}, w)
		return
	}
	if a.offline != nil {
		if err := a.offline.Replace(s.UserID, downloads); err != nil {
			logrus.WithError(err).Warn("Could not update offline cache")
		}
	}
	serveJSON(DownloadsResponse{Downloads: downloads}, w)
}

// POST /downloads
//
// addDownloadHandler records a track as downloaded.
func (a *API) addDownloadHandler(w http.ResponseWriter, r *http.Request) {
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
	d, err := a.repo.AddDownload(r.Context(), s.UserID, track)
	if err != nil {
		storeerror(w, r, err, "download not found")
		return
	}
	if a.offline != nil {
		if err := a.offline.Add(s.UserID, *d); err != nil {
			logrus.WithError(err).Warn("Could not update offline cache")
		}
	}
	serveJSONStatus(d, http.StatusCreated, w)
}

// DELETE /downloads/{download}
func (a *API) deleteDownloadHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	id := mux.Vars(r)["download"]
	if err := a.repo.RemoveDownload(r.Context(), s.UserID, id); err != nil {
		storeerror(w, r, err, "download not found")
		return
	}
	if a.offline != nil {
		if err := a.offline.Remove(s.UserID, id); err != nil {
			logrus.WithError(err).Warn("Could not update offline cache")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
