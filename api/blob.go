package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/erikbos/wavesync/imageresize"
	"github.com/erikbos/wavesync/storage"
)

// maxResizeSize is the largest image that is resized on the fly.
const maxResizeSize = 20 << 20

// GET /blobs/{key}
//
// blobHandler serves a stored blob. Images are scaled when any of
// w, h, mw, mh or q are given.
func (a *API) blobHandler(w http.ResponseWriter, r *http.Request) {
	if a.storage == nil {
		apierror(w, "blob storage not configured", http.StatusNotFound)
		return
	}
	key := mux.Vars(r)["key"]
	rc, blob, err := a.storage.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			apierror(w, "invalid key", http.StatusBadRequest)
			return
		}
		storeerror(w, r, err, "blob not found")
		return
	}
	defer rc.Close()

	params := imageresize.ParseParams(r.URL.Query())
	if params.IsZero() || !strings.HasPrefix(blob.ContentType, "image/") || blob.Size > maxResizeSize {
		w.Header().Set("Content-Type", blob.ContentType)
		w.Header().Set("Content-Length", strconv.FormatInt(blob.Size, 10))
		w.Header().Set("Cache-Control", "max-age=86400")
		if !blob.Modified.IsZero() {
			w.Header().Set("Last-Modified", blob.Modified.UTC().Format(http.TimeFormat))
		}
		if r.Method == http.MethodHead {
			return
		}
		_, _ = io.Copy(w, rc)
		return
	}

	data, err := io.ReadAll(rc)
	if err != nil {
		storeerror(w, r, err, "blob not found")
		return
	}
	resized, err := a.resizer.Resize(key, data, params)
	if err != nil {
		apierror(w, "could not resize image", http.StatusUnsupportedMediaType)
		return
	}
	w.Header().Set("Cache-Control", "max-age=86400")
	http.ServeContent(w, r, "", blob.Modified, bytes.NewReader(resized))
}
