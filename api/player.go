package api

import (
	"errors"
	"net/http"

	"github.com/erikbos/wavesync/player"
)

// GET /player
//
// playerStateHandler returns the playback state of the session.
func (a *API) playerStateHandler(w http.ResponseWriter, r *http.Request) {
	_, c := a.coordinator(w, r)
	if c == nil {
		return
	}
	serveJSON(c.State(), w)
}

// POST /player/play
//
// playerPlayHandler plays a single track, clearing the queue. Without a
// track a fallback track starts when nothing is current.
func (a *API) playerPlayHandler(w http.ResponseWriter, r *http.Request) {
	_, c := a.coordinator(w, r)
	if c == nil {
		return
	}
	var req PlayRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	switch {
	case req.Track != nil:
		if req.Track.VideoID == "" {
			apierror(w, "track video_id is required", http.StatusBadRequest)
			return
		}
		a.rememberTracks(r, *req.Track)
		c.PlayTrack(*req.Track)
	case !c.State().CurrentTrack.IsPresent():
		c.TogglePlay()
	}
	serveJSON(c.State(), w)
}

// POST /player/queue
//
// playerQueueHandler replaces the queue and starts playing at start.
func (a *API) playerQueueHandler(w http.ResponseWriter, r *http.Request) {
	_, c := a.coordinator(w, r)
	if c == nil {
		return
	}
	var req QueueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := c.PlayQueue(req.Tracks, req.Start); err != nil {
		apierror(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.rememberTracks(r, req.Tracks...)
	serveJSON(c.State(), w)
}

// POST /player/toggle
func (a *API) playerToggleHandler(w http.ResponseWriter, r *http.Request) {
	_, c := a.coordinator(w, r)
	if c == nil {
		return
	}
	c.TogglePlay()
	serveJSON(c.State(), w)
}

// POST /player/next
func (a *API) playerNextHandler(w http.ResponseWriter, r *http.Request) {
	_, c := a.coordinator(w, r)
	if c == nil {
		return
	}
	c.NextTrack()
	serveJSON(c.State(), w)
}

// POST /player/prev
func (a *API) playerPrevHandler(w http.ResponseWriter, r *http.Request) {
	_, c := a.coordinator(w, r)
	if c == nil {
		return
	}
	c.PrevTrack()
	serveJSON(c.State(), w)
}

// POST /player/seek
//
// playerSeekHandler moves the playhead, ignored while the widget is not ready.
func (a *API) playerSeekHandler(w http.ResponseWriter, r *http.Request) {
	_, c := a.coordinator(w, r)
	if c == nil {
		return
	}
	var req SeekRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c.HandleProgressChange(req.Seconds)
	serveJSON(c.State(), w)
}

// POST /player/volume
func (a *API) playerVolumeHandler(w http.ResponseWriter, r *http.Request) {
	_, c := a.coordinator(w, r)
	if c == nil {
		return
	}
	var req VolumeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c.HandleVolumeChange(req.Level)
	serveJSON(c.State(), w)
}

// POST /player/mute
func (a *API) playerMuteHandler(w http.ResponseWriter, r *http.Request) {
	_, c := a.coordinator(w, r)
	if c == nil {
		return
	}
	c.ToggleMute()
	serveJSON(c.State(), w)
}

// POST /player/library
//
// playerAddToLibraryHandler saves the current track to the library and
// returns the resulting notice.
func (a *API) playerAddToLibraryHandler(w http.ResponseWriter, r *http.Request) {
	_, c := a.coordinator(w, r)
	if c == nil {
		return
	}
	serveNotice(c.AddToLibrary(r.Context()), w)
}

// DELETE /player/library
func (a *API) playerRemoveFromLibraryHandler(w http.ResponseWriter, r *http.Request) {
	_, c := a.coordinator(w, r)
	if c == nil {
		return
	}
	serveNotice(c.RemoveFromLibrary(r.Context()), w)
}

// rememberTracks adds tracks to the local search index.
func (a *API) rememberTracks(r *http.Request, tracks ...player.Track) {
	if a.search != nil {
		a.search.Remember(r.Context(), tracks...)
	}
}

// playQueue loads tracks into the coordinator of the session.
func playQueue(w http.ResponseWriter, c *player.Coordinator, tracks []player.Track, start int) bool {
	if err := c.PlayQueue(tracks, start); err != nil {
		if errors.Is(err, player.ErrEmptyQueue) {
			apierror(w, "nothing to play", http.StatusNotFound)
			return false
		}
		apierror(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
