package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/player"
	"github.com/erikbos/wavesync/storage"
)

const (
	ErrInvalidJSONPayload = "invalid JSON payload"
	ErrStoreUnavailable   = "store unavailable"
)

// HTTPError represents a structured HTTP error response.
type HTTPError struct {
	Status  int                 `json:"status"`
	Type    string              `json:"type,omitempty"`
	Title   string              `json:"title,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	TraceID string              `json:"traceId,omitempty"`
}

// statusTypeMap maps HTTP status codes to RFC 9110 types.
var statusTypeMap = map[int]string{
	400: "https://tools.ietf.org/html/rfc9110#section-15.5.1",  // Bad Request
	401: "https://tools.ietf.org/html/rfc9110#section-15.5.2",  // Unauthorized
	403: "https://tools.ietf.org/html/rfc9110#section-15.5.3",  // Forbidden
	404: "https://tools.ietf.org/html/rfc9110#section-15.5.5",  // Not Found
	405: "https://tools.ietf.org/html/rfc9110#section-15.5.6",  // Method Not Allowed
	409: "https://tools.ietf.org/html/rfc9110#section-15.5.10", // Conflict
	413: "https://tools.ietf.org/html/rfc9110#section-15.5.14", // Content Too Large
	415: "https://tools.ietf.org/html/rfc9110#section-15.5.16", // Unsupported Media Type
	500: "https://tools.ietf.org/html/rfc9110#section-15.6.1",  // Internal Server Error
	503: "https://tools.ietf.org/html/rfc9110#section-15.6.4",  // Service Unavailable
	504: "https://tools.ietf.org/html/rfc9110#section-15.6.5",  // Gateway Timeout
}

// apierror writes a structured error response.
func apierror(w http.ResponseWriter, msg string, status int) {
	response := HTTPError{
		Status: status,
		Title:  msg,
	}
	if typeURL, ok := statusTypeMap[status]; ok {
		response.Type = typeURL
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

// storeerror writes the error response for a failed store call.
func storeerror(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, model.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		apierror(w, notFound, http.StatusNotFound)
	case errors.Is(err, model.ErrConflict):
		apierror(w, "already exists", http.StatusConflict)
	case errors.Is(err, context.DeadlineExceeded):
		apierror(w, "store request timed out", http.StatusGatewayTimeout)
	default:
		logrus.WithError(err).WithField("path", r.URL.Path).Warn("Store request failed")
		apierror(w, ErrStoreUnavailable, http.StatusServiceUnavailable)
	}
}

func serveJSON(obj any, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(obj)
}

// serveNotice writes a notice, error notices get status 503.
func serveNotice(n player.Notice, w http.ResponseWriter) {
	if n.IsError() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(n)
		return
	}
	serveJSON(n, w)
}

// decodeJSON reads the request body into v, writing an error response
// when that fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		apierror(w, ErrInvalidJSONPayload, http.StatusBadRequest)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		apierror(w, ErrInvalidJSONPayload, http.StatusBadRequest)
		return false
	}
	return true
}

// serveJSONStatus writes obj with a non-200 status.
func serveJSONStatus(obj any, status int, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(obj)
}
