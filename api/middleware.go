package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/erikbos/wavesync/auth"
	"github.com/erikbos/wavesync/player"
)

type contextKey int

const contextSession contextKey = iota

// BearerToken returns the access token of a request. Browsers cannot set
// headers on websocket upgrades, so the access_token query parameter is
// accepted as well.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("access_token")
}

// authmiddleware validates the access token and stores the session in
// the request context.
func (a *API) authmiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			apierror(w, "no token provided", http.StatusUnauthorized)
			return
		}
		s, err := a.auth.GetCurrentSession(r.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrNoSession) {
				logrus.WithError(err).Warn("Error validating access token")
			}
			apierror(w, "invalid access token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), contextSession, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// timeoutmiddleware bounds store calls made while handling a request.
func (a *API) timeoutmiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), a.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getSession returns the session from the request context populated by
// authmiddleware()
//
// if not found sends an HTTP unauthorized error
func getSession(w http.ResponseWriter, r *http.Request) *auth.Session {
	s, ok := r.Context().Value(contextSession).(*auth.Session)
	if ok {
		return s
	}
	apierror(w, "session not found", http.StatusUnauthorized)
	return nil
}

// coordinator returns the playback coordinator of the request session.
func (a *API) coordinator(w http.ResponseWriter, r *http.Request) (*auth.Session, *player.Coordinator) {
	s := getSession(w, r)
	if s == nil {
		return nil, nil
	}
	return s, a.sessions.Get(s)
}
