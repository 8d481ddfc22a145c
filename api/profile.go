package api

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/idhash"
	"github.com/erikbos/wavesync/imageresize"
)

const (
	maxAvatarSize     = 10 << 20
	profileSearchSize = 20
)

// GET /profile
func (a *API) getMyProfileHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	a.serveProfile(w, r, s.UserID)
}

// GET /profile/{user}
func (a *API) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	if s := getSession(w, r); s == nil {
		return
	}
	a.serveProfile(w, r, mux.Vars(r)["user"])
}

func (a *API) serveProfile(w http.ResponseWriter, r *http.Request, userID string) {
	profile, err := a.repo.GetProfile(r.Context(), userID)
	if err != nil {
		storeerror(w, r, err, "profile not found")
		return
	}
	serveJSON(makeProfile(*profile), w)
}

// PUT /profile
//
// updateProfileHandler updates display name, bio and tag. A tag taken by
// another user results in a conflict.
func (a *API) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	var req ProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profile, err := a.repo.GetProfile(r.Context(), s.UserID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			storeerror(w, r, err, "profile not found")
			return
		}
		profile = &model.Profile{UserID: s.UserID}
	}
	profile.DisplayName = strings.TrimSpace(req.DisplayName)
	profile.Bio = strings.TrimSpace(req.Bio)
	profile.Tag = strings.TrimPrefix(strings.TrimSpace(req.Tag), "@")
	if err := a.repo.UpsertProfile(r.Context(), profile); err != nil {
		if errors.Is(err, model.ErrConflict) {
			apierror(w, "tag already taken", http.StatusConflict)
			return
		}
		storeerror(w, r, err, "profile not found")
		return
	}
	a.serveProfile(w, r, s.UserID)
}

// GET /profile/search
//
// searchProfilesHandler finds users by tag or display name, ?q=
func (a *API) searchProfilesHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	term := strings.TrimPrefix(strings.TrimSpace(r.URL.Query().Get("q")), "@")
	if term == "" {
		serveJSON([]ProfileResponse{}, w)
		return
	}
	profiles, err := a.repo.SearchProfiles(r.Context(), term, profileSearchSize)
	if err != nil {
		storeerror(w, r, err, "profile not found")
		return
	}
	profiles = lo.Reject(profiles, func(p model.Profile, _ int) bool {
		return p.UserID == s.UserID
	})
	rankProfiles(profiles, term)
	serveJSON(lo.Map(profiles, func(p model.Profile, _ int) ProfileResponse {
		return makeProfile(p)
	}), w)
}

// rankProfiles orders profiles by how closely tag or display name matches term.
func rankProfiles(profiles []model.Profile, term string) {
	rank := func(p model.Profile) int {
		ranks := lo.Filter([]int{
			fuzzy.RankMatchFold(term, p.Tag),
			fuzzy.RankMatchFold(term, p.DisplayName),
		}, func(r int, _ int) bool { return r >= 0 })
		if len(ranks) == 0 {
			return math.MaxInt
		}
		return lo.Min(ranks)
	}
	slices.SortStableFunc(profiles, func(a, b model.Profile) int {
		return cmp.Compare(rank(a), rank(b))
	})
}

// POST /profile/avatar
//
// uploadAvatarHandler crops the uploaded image to a square, stores it and
// points the profile avatar at it.
func (a *API) uploadAvatarHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	if a.storage == nil {
		apierror(w, "blob storage not configured", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	body := r.Body
	if err := r.ParseMultipartForm(maxAvatarSize); err == nil {
		file, _, err := r.FormFile("avatar")
		if err != nil {
			apierror(w, "avatar form field is required", http.StatusBadRequest)
			return
		}
		defer file.Close()
		body = file
	}
	avatar, err := imageresize.Avatar(body)
	if err != nil {
		apierror(w, "could not decode image", http.StatusUnsupportedMediaType)
		return
	}

	key := fmt.Sprintf("avatars/%s/%d.jpg", idhash.Hash(s.UserID), time.Now().UnixNano())
	if err := a.storage.Put(r.Context(), key, bytes.NewReader(avatar), "image/jpeg"); err != nil {
		storeerror(w, r, err, "avatar not found")
		return
	}

	profile, err := a.repo.GetProfile(r.Context(), s.UserID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			storeerror(w, r, err, "profile not found")
			return
		}
		profile = &model.Profile{UserID: s.UserID}
	}
	previous := profile.AvatarURL
	profile.AvatarURL = a.storage.URL(key)
	if err := a.repo.UpsertProfile(r.Context(), profile); err != nil {
		storeerror(w, r, err, "profile not found")
		return
	}
	a.deleteOldAvatar(r, previous)
	a.serveProfile(w, r, s.UserID)
}

// deleteOldAvatar removes a replaced avatar if it is one of ours.
func (a *API) deleteOldAvatar(r *http.Request, previous string) {
	if previous == "" {
		return
	}
	idx := strings.Index(previous, "avatars/")
	if idx < 0 || a.storage.URL(previous[idx:]) != previous {
		return
	}
	if err := a.storage.Delete(r.Context(), previous[idx:]); err != nil {
		logrus.WithError(err).WithField("key", previous[idx:]).Debug("Could not delete old avatar")
	}
}
