package api

import (
	"errors"
	"net/http"

	"github.com/erikbos/wavesync/auth"
)

// POST /auth/signup
//
// signUpHandler registers a new account and returns its session.
func (a *API) signUpHandler(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := a.auth.SignUp(r.Context(), req.Email, req.Password, clientOf(r, req.DeviceName))
	if err != nil {
		autherror(w, r, err)
		return
	}
	serveJSONStatus(s, http.StatusCreated, w)
}

// POST /auth/signin
//
// signInHandler signs in with email and password.
func (a *API) signInHandler(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := a.auth.SignInWithPassword(r.Context(), req.Email, req.Password, clientOf(r, req.DeviceName))
	if err != nil {
		autherror(w, r, err)
		return
	}
	serveJSON(s, w)
}

// POST /auth/reset
//
// resetPasswordHandler mails a password reset link. The response does not
// reveal whether the address has an account.
func (a *API) resetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.auth.ResetPasswordForEmail(r.Context(), req.Email); err != nil {
		autherror(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// POST /auth/reset/confirm
//
// confirmResetHandler sets a new password using a reset token.
func (a *API) confirmResetHandler(w http.ResponseWriter, r *http.Request) {
	var req ResetConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := a.auth.ConfirmPasswordReset(r.Context(), req.Token, req.Password, clientOf(r, ""))
	if err != nil {
		autherror(w, r, err)
		return
	}
	serveJSON(s, w)
}

// GET /auth/session
//
// sessionHandler returns the current session.
func (a *API) sessionHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	serveJSON(s, w)
}

// POST /auth/signout
//
// signOutHandler revokes the access token of the request.
func (a *API) signOutHandler(w http.ResponseWriter, r *http.Request) {
	s := getSession(w, r)
	if s == nil {
		return
	}
	if err := a.auth.SignOut(r.Context(), s.AccessToken); err != nil {
		autherror(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func clientOf(r *http.Request, deviceName string) auth.Client {
	if deviceName == "" {
		deviceName = r.UserAgent()
	}
	return auth.Client{
		DeviceName:    deviceName,
		RemoteAddress: r.RemoteAddr,
	}
}

// autherror maps identity provider errors onto HTTP responses.
func autherror(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrNoSession):
		apierror(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, auth.ErrEmailInUse):
		apierror(w, err.Error(), http.StatusConflict)
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidResetToken):
		apierror(w, err.Error(), http.StatusBadRequest)
	default:
		storeerror(w, r, err, "user not found")
	}
}
