// Package storage stores blobs such as avatars, on local disk or in a
// Google Cloud Storage bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

// Blob describes a stored object.
type Blob struct {
	Key         string
	Size        int64
	ContentType string
	Modified    time.Time
	// Created is zero when the backend does not track it.
	Created time.Time
}

// Store is a blob store.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, *Blob, error)
	Stat(ctx context.Context, key string) (*Blob, error)
	Delete(ctx context.Context, key string) error
	// URL returns where clients can fetch the blob.
	URL(key string) string
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	// Type is local or gcs.
	Type   string
	Dir    string
	Bucket string
	// PublicURL is the base URL blobs are served from.
	PublicURL string
}

// New creates the configured store.
func New(ctx context.Context, c Config) (Store, error) {
	switch c.Type {
	case "", "local":
		return NewLocal(&LocalOptions{Dir: c.Dir, PublicURL: c.PublicURL})
	case "gcs":
		return NewGCS(ctx, &GCSOptions{Bucket: c.Bucket, PublicURL: c.PublicURL})
	default:
		return nil, errors.New("unknown storage type " + c.Type)
	}
}

// cleanKey validates a slash separated key, it may not escape its root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") || cleaned != key {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func contentTypeOf(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func joinURL(base, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + key
}
