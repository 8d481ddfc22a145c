// Package api implements the REST interface of the server.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/erikbos/wavesync/auth"
	"github.com/erikbos/wavesync/database"
	"github.com/erikbos/wavesync/gallery"
	"github.com/erikbos/wavesync/imageresize"
	"github.com/erikbos/wavesync/offline"
	"github.com/erikbos/wavesync/realtime"
	"github.com/erikbos/wavesync/search"
	"github.com/erikbos/wavesync/session"
	"github.com/erikbos/wavesync/storage"
)

const defaultRequestTimeout = 10 * time.Second

// QueryParameters are the query parameter names handlers read.
var QueryParameters = []string{"access_token", "artist", "limit", "q", "selected", "start", "w", "h", "mw", "mh"}

type Options struct {
	Repo     database.Repository
	Auth     *auth.Provider
	Sessions *session.Registry
	Gallery  *gallery.Gallery
	Search   *search.Service
	Offline  *offline.Cache
	Storage  storage.Store
	Resizer  *imageresize.Resizer
	// Broker delivers inserted chat messages to subscribers.
	Broker realtime.Broker
	// RequestTimeout bounds the handling of every request.
	RequestTimeout time.Duration
}

type API struct {
	repo           database.Repository
	auth           *auth.Provider
	sessions       *session.Registry
	gallery        *gallery.Gallery
	search         *search.Service
	offline        *offline.Cache
	storage        storage.Store
	resizer        *imageresize.Resizer
	broker         realtime.Broker
	requestTimeout time.Duration
}

func New(o *Options) *API {
	a := &API{
		repo:           o.Repo,
		auth:           o.Auth,
		sessions:       o.Sessions,
		gallery:        o.Gallery,
		search:         o.Search,
		offline:        o.Offline,
		storage:        o.Storage,
		resizer:        o.Resizer,
		broker:         o.Broker,
		requestTimeout: o.RequestTimeout,
	}
	if a.requestTimeout <= 0 {
		a.requestTimeout = defaultRequestTimeout
	}
	if a.resizer == nil {
		a.resizer = imageresize.New(imageresize.Options{})
	}
	// signing out drops the playback coordinator of the session
	if a.auth != nil && a.sessions != nil {
		a.auth.OnSessionChange(a.sessions.HandleSessionChange)
	}
	return a
}

func (a *API) RegisterHandlers(r *mux.Router) {
	r.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(true)))

	// public endpoints, bounded by the request timeout
	public := func(handler http.HandlerFunc) http.Handler {
		return handlers.CompressHandler(a.timeoutmiddleware(handler))
	}
	// middleware for endpoints to check valid auth token
	middleware := func(handler http.HandlerFunc) http.Handler {
		return handlers.CompressHandler(a.timeoutmiddleware(a.authmiddleware(handler)))
	}

	r.Handle("/health", http.HandlerFunc(a.healthHandler))

	r.Handle("/auth/signup", public(a.signUpHandler)).Methods("POST")
	r.Handle("/auth/signin", public(a.signInHandler)).Methods("POST")
	r.Handle("/auth/reset", public(a.resetPasswordHandler)).Methods("POST")
	r.Handle("/auth/reset/confirm", public(a.confirmResetHandler)).Methods("POST")
	r.Handle("/auth/session", middleware(a.sessionHandler)).Methods("GET")
	r.Handle("/auth/signout", middleware(a.signOutHandler)).Methods("POST")

	r.Handle("/player", middleware(a.playerStateHandler)).Methods("GET")
	r.Handle("/player/play", middleware(a.playerPlayHandler)).Methods("POST")
	r.Handle("/player/queue", middleware(a.playerQueueHandler)).Methods("POST")
	r.Handle("/player/toggle", middleware(a.playerToggleHandler)).Methods("POST")
	r.Handle("/player/next", middleware(a.playerNextHandler)).Methods("POST")
	r.Handle("/player/prev", middleware(a.playerPrevHandler)).Methods("POST")
	r.Handle("/player/seek", middleware(a.playerSeekHandler)).Methods("POST")
	r.Handle("/player/volume", middleware(a.playerVolumeHandler)).Methods("POST")
	r.Handle("/player/mute", middleware(a.playerMuteHandler)).Methods("POST")
	r.Handle("/player/library", middleware(a.playerAddToLibraryHandler)).Methods("POST")
	r.Handle("/player/library", middleware(a.playerRemoveFromLibraryHandler)).Methods("DELETE")

	r.Handle("/library", middleware(a.libraryHandler)).Methods("GET")
	r.Handle("/library", middleware(a.libraryAddHandler)).Methods("POST")
	r.Handle("/library/{video}", middleware(a.libraryDeleteHandler)).Methods("DELETE")
	r.Handle("/history", middleware(a.historyHandler)).Methods("GET")

	r.Handle("/playlists", middleware(a.getPlaylistsHandler)).Methods("GET")
	r.Handle("/playlists", middleware(a.createPlaylistHandler)).Methods("POST")
	r.Handle("/playlists/{playlist}", middleware(a.getPlaylistHandler)).Methods("GET")
	r.Handle("/playlists/{playlist}", middleware(a.updatePlaylistHandler)).Methods("PUT")
	r.Handle("/playlists/{playlist}", middleware(a.deletePlaylistHandler)).Methods("DELETE")
	r.Handle("/playlists/{playlist}/tracks", middleware(a.getPlaylistTracksHandler)).Methods("GET")
	r.Handle("/playlists/{playlist}/tracks", middleware(a.addPlaylistTrackHandler)).Methods("POST")
	r.Handle("/playlists/{playlist}/tracks/{video}", middleware(a.deletePlaylistTrackHandler)).Methods("DELETE")
	r.Handle("/playlists/{playlist}/tracks/{video}/move/{index}", middleware(a.movePlaylistTrackHandler)).Methods("POST")
	r.Handle("/playlists/{playlist}/play", middleware(a.playPlaylistHandler)).Methods("POST")

	r.Handle("/profile", middleware(a.getMyProfileHandler)).Methods("GET")
	r.Handle("/profile", middleware(a.updateProfileHandler)).Methods("PUT")
	r.Handle("/profile/avatar", middleware(a.uploadAvatarHandler)).Methods("POST")
	r.Handle("/profile/search", middleware(a.searchProfilesHandler)).Methods("GET")
	r.Handle("/profile/{user}", middleware(a.getProfileHandler)).Methods("GET")

	r.Handle("/friends", middleware(a.getFriendsHandler)).Methods("GET")
	r.Handle("/friends", middleware(a.requestFriendHandler)).Methods("POST")
	r.Handle("/friends/{friendship}", middleware(a.respondFriendHandler)).Methods("PUT")
	r.Handle("/friends/{friendship}", middleware(a.deleteFriendHandler)).Methods("DELETE")

	r.Handle("/chats", middleware(a.getChatsHandler)).Methods("GET")
	r.Handle("/chats", middleware(a.openChatHandler)).Methods("POST")
	r.Handle("/chats/{chat}/messages", middleware(a.getMessagesHandler)).Methods("GET")
	r.Handle("/chats/{chat}/messages", middleware(a.sendMessageHandler)).Methods("POST")

	r.Handle("/preferences", middleware(a.getPreferencesHandler)).Methods("GET")
	r.Handle("/preferences", middleware(a.updatePreferencesHandler)).Methods("PUT")
	r.Handle("/recommendations", middleware(a.recommendationsHandler)).Methods("GET")
	r.Handle("/recommendations/artists", public(a.similarArtistsHandler)).Methods("GET")
	r.Handle("/gallery/search", middleware(a.gallerySearchHandler)).Methods("GET")
	r.Handle("/gallery/recommendations", middleware(a.galleryRecommendationsHandler)).Methods("GET")
	r.Handle("/wave", middleware(a.waveHandler)).Methods("GET")
	r.Handle("/wave/play", middleware(a.wavePlayHandler)).Methods("POST")

	r.Handle("/search", middleware(a.searchHandler)).Methods("GET")
	r.Handle("/search/similar/{video}", middleware(a.searchSimilarHandler)).Methods("GET")

	r.Handle("/downloads", middleware(a.getDownloadsHandler)).Methods("GET")
	r.Handle("/downloads", middleware(a.addDownloadHandler)).Methods("POST")
	r.Handle("/downloads/{download}", middleware(a.deleteDownloadHandler)).Methods("DELETE")

	// blobs can be fetched without auth, avatars are shown to other users
	r.Handle("/blobs/{key:.+}", public(a.blobHandler)).Methods("GET", "HEAD")
}

// GET /health
//
// healthHandler reports whether the store is reachable.
func (a *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.repo.Ping(r.Context()); err != nil {
		apierror(w, ErrStoreUnavailable, http.StatusServiceUnavailable)
		return
	}
	serveJSON(map[string]string{"status": "ok"}, w)
}
