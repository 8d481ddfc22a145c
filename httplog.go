package main

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// statusWriter proxies http.ResponseWriter
// and stores the requests status and length.
type statusWriter struct {
	http.ResponseWriter
	status int
	length int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (length int, err error) {
	if w.status == 0 {
		w.status = 200
	}
	length, err = w.ResponseWriter.Write(b)
	w.length += length
	return
}

// Hijack lets websocket upgrades take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if w.status == 0 {
		w.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// HttpLog calls ServeHTTP with a custom responsewriter that
// stores the requests status and length so we can log it.
func HttpLog(handle http.Handler) http.HandlerFunc {
	if handle == nil {
		handle = http.DefaultServeMux
	}
	return func(w http.ResponseWriter, request *http.Request) {
		start := time.Now()
		writer := statusWriter{w, 0, 0}
		handle.ServeHTTP(&writer, request)
		latency := time.Since(start)

		// access tokens can be passed in the query, never log them
		path := request.URL.Path

		entry := logrus.WithFields(logrus.Fields{
			"remote":    request.RemoteAddr,
			"method":    request.Method,
			"path":      path,
			"proto":     request.Proto,
			"status":    writer.status,
			"length":    writer.length,
			"useragent": request.Header.Get("User-Agent"),
			"latency":   latency.Milliseconds(),
		})
		if writer.status >= 500 {
			entry.Warn("request")
		} else {
			entry.Info("request")
		}
	}
}
