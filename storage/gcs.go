package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSOptions struct {
	Bucket string
	// Prefix is prepended to every object name.
	Prefix    string
	PublicURL string
	// ClientOptions are passed to the GCS client, e.g. credentials.
	ClientOptions []option.ClientOption
}

// GCS stores blobs in a Google Cloud Storage bucket.
type GCS struct {
	client    *storage.Client
	bucket    string
	prefix    string
	publicURL string
}

func NewGCS(ctx context.Context, o *GCSOptions) (*GCS, error) {
	if o.Bucket == "" {
		return nil, errors.New("no gcs bucket configured")
	}
	client, err := storage.NewClient(ctx, o.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCS{
		client:    client,
		bucket:    o.Bucket,
		prefix:    o.Prefix,
		publicURL: o.PublicURL,
	}, nil
}

func (g *GCS) objectName(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if g.prefix != "" {
		return g.prefix + "/" + key, nil
	}
	return key, nil
}

func (g *GCS) object(key string) (*storage.ObjectHandle, error) {
	name, err := g.objectName(key)
	if err != nil {
		return nil, err
	}
	return g.client.Bucket(g.bucket).Object(name), nil
}

func (g *GCS) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	obj, err := g.object(key)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = contentTypeOf(key)
	}
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return fmt.Errorf("failed to copy blob to GCS: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (g *GCS) Get(ctx context.Context, key string) (io.ReadCloser, *Blob, error) {
	blob, err := g.Stat(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	obj, err := g.object(key)
	if err != nil {
		return nil, nil, err
	}
	rc, err := obj.NewReader(ctx)
	if err != nil {
		return nil, nil, mapGCSError(err)
	}
	return rc, blob, nil
}

func (g *GCS) Stat(ctx context.Context, key string) (*Blob, error) {
	obj, err := g.object(key)
	if err != nil {
		return nil, err
	}
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return nil, mapGCSError(err)
	}
	return &Blob{
		Key:         key,
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Modified:    attrs.Updated,
		Created:     attrs.Created,
	}, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	obj, err := g.object(key)
	if err != nil {
		return err
	}
	return mapGCSError(obj.Delete(ctx))
}

// URL returns the public URL of the object, blobs are expected to be
// publicly readable.
func (g *GCS) URL(key string) string {
	name, err := g.objectName(key)
	if err != nil {
		return ""
	}
	if g.publicURL != "" {
		return joinURL(g.publicURL, name)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, name)
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func mapGCSError(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	return err
}
