package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/erikbos/wavesync/api"
	"github.com/erikbos/wavesync/auth"
	"github.com/erikbos/wavesync/config"
	"github.com/erikbos/wavesync/database"
	"github.com/erikbos/wavesync/gallery"
	"github.com/erikbos/wavesync/imageresize"
	"github.com/erikbos/wavesync/muxnormalizer"
	"github.com/erikbos/wavesync/offline"
	"github.com/erikbos/wavesync/player"
	"github.com/erikbos/wavesync/realtime"
	"github.com/erikbos/wavesync/search"
	"github.com/erikbos/wavesync/session"
	"github.com/erikbos/wavesync/storage"
	"github.com/erikbos/wavesync/wsapi"
)

const (
	shutdownTimeout  = 10 * time.Second
	evictionInterval = time.Minute
	// resizedImageCacheEntries bounds the in-memory cache of resized images.
	resizedImageCacheEntries = 256
)

// serve wires all components and serves http until ctx is done or
// the process receives SIGINT or SIGTERM.
func serve(ctx context.Context, c *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.Info("dbinit")
	repo, err := database.New(&c.Database)
	if err != nil {
		return fmt.Errorf("database.New: %w", err)
	}
	defer repo.Close()
	repo.StartBackgroundJobs(ctx)

	broker, err := newBroker(c.Realtime)
	if err != nil {
		return fmt.Errorf("realtime: %w", err)
	}
	defer broker.Close()

	provider := auth.New(&auth.Options{
		Repo:               repo,
		ResetTokenLifetime: c.Auth.ResetTokenLifetime,
		ResetURL:           c.Auth.ResetURL,
	})

	online := func(ctx context.Context) bool {
		return repo.Ping(ctx) == nil
	}
	sessions := session.New(func(userID string) *player.Coordinator {
		return player.New(&player.Options{
			Store:          repo,
			UserID:         userID,
			Online:         online,
			PollInterval:   c.Player.PollInterval,
			RequestTimeout: c.RequestTimeout,
			FallbackTracks: c.Player.FallbackTracks,
			Logger:         logrus.WithField("user", userID),
		})
	})
	defer sessions.Close()
	if c.Player.IdleTimeout > 0 {
		go sessions.EvictionJob(ctx, evictionInterval, c.Player.IdleTimeout)
	}

	searcher, closeIndex, err := newSearch(ctx, c.Search)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	defer closeIndex()

	blobs, err := storage.New(ctx, storage.Config{
		Type:      c.Storage.Type,
		Dir:       c.Storage.Dir,
		Bucket:    c.Storage.Bucket,
		PublicURL: c.Storage.PublicURL,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer blobs.Close()

	logrus.Info("building mux")
	r := mux.NewRouter()

	// websocket routes go first, the REST router wraps handlers in compression
	ws := wsapi.New(&wsapi.Options{
		Auth:           provider,
		Sessions:       sessions,
		Chats:          repo,
		Broker:         broker,
		RequestTimeout: c.RequestTimeout,
		Logger:         logrus.WithField("component", "wsapi"),
	})
	ws.RegisterHandlers(r)

	a := api.New(&api.Options{
		Repo:           repo,
		Auth:           provider,
		Sessions:       sessions,
		Gallery:        gallery.New(&gallery.Options{Store: repo}),
		Search:         searcher,
		Offline:        offline.New(&offline.Options{Dir: c.Offline.Dir}),
		Storage:        blobs,
		Resizer:        imageresize.New(imageresize.Options{CacheEntries: resizedImageCacheEntries}),
		Broker:         broker,
		RequestTimeout: c.RequestTimeout,
	})
	a.RegisterHandlers(r)

	normalizer, err := muxnormalizer.New(r, api.QueryParameters)
	if err != nil {
		return fmt.Errorf("muxnormalizer: %w", err)
	}

	srv := &http.Server{
		Addr:              c.Listen.Address,
		Handler:           HttpLog(newCors(c.Cors).Handler(normalizer.Middleware(r))),
		ReadHeaderTimeout: c.RequestTimeout,
	}

	errc := make(chan error, 1)
	if c.Listen.TlsCert != "" && c.Listen.TlsKey != "" {
		kpr, err := NewKeypairReloader(ctx, c.Listen.TlsCert, c.Listen.TlsKey)
		if err != nil {
			return fmt.Errorf("error loading keypair: %w", err)
		}
		srv.TLSConfig = &tls.Config{
			MinVersion:     tls.VersionTLS13,
			GetCertificate: kpr.GetCertificateFunc(),
		}
		logrus.Infof("Serving HTTPS on %s", c.Listen.Address)
		go func() { errc <- srv.ListenAndServeTLS("", "") }()
	} else {
		logrus.Infof("Serving HTTP on %s", c.Listen.Address)
		go func() { errc <- srv.ListenAndServe() }()
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newBroker(c config.Realtime) (realtime.Broker, error) {
	if c.Type == "redis" {
		logrus.WithField("addr", c.Addr).Info("Using redis for realtime delivery")
		return realtime.NewRedisBroker(c.Addr)
	}
	return realtime.NewMemoryBroker(), nil
}

// newSearch returns the catalog search, querying YouTube when an API key is configured.
func newSearch(ctx context.Context, c config.Search) (*search.Service, func(), error) {
	index, err := search.NewIndex()
	if err != nil {
		return nil, nil, err
	}
	o := &search.Options{
		Index:  index,
		Logger: logrus.WithField("component", "search"),
	}
	if c.APIKey != "" {
		yt, err := search.NewYouTube(ctx, c.APIKey, c.Endpoint)
		if err != nil {
			index.Close()
			return nil, nil, err
		}
		o.Remote = yt
	} else {
		logrus.Warn("No search API key configured, searching the local index only")
	}
	return search.New(o), func() { index.Close() }, nil
}

func newCors(c config.Cors) *cors.Cors {
	if len(c.Origins) == 0 {
		return cors.Default()
	}
	return cors.New(cors.Options{
		AllowedOrigins:   c.Origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
}
