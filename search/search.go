// Package search finds tracks, online through YouTube and offline in a
// local index of every track the server has seen.
package search

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/erikbos/wavesync/player"
)

// Source tells where search results came from.
type Source string

const (
	SourceYouTube Source = "youtube"
	SourceLocal   Source = "local"
)

// Result holds the tracks found for a query.
type Result struct {
	Source Source         `json:"source"`
	Tracks []player.Track `json:"tracks"`
}

// Remote is an online track search.
type Remote interface {
	Search(ctx context.Context, query string) ([]player.Track, error)
}

type Options struct {
	// Remote is optional, without it only the local index is searched.
	Remote Remote
	Index  *Index
	Logger logrus.FieldLogger
}

// Service searches the remote first and falls back to the local index.
type Service struct {
	remote Remote
	index  *Index
	log    logrus.FieldLogger
}

func New(o *Options) *Service {
	s := &Service{
		remote: o.Remote,
		index:  o.Index,
		log:    o.Logger,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

// Search finds tracks for query. Remote results are added to the local
// index. An empty query returns no tracks.
func (s *Service) Search(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &Result{Source: SourceLocal, Tracks: []player.Track{}}, nil
	}

	if s.remote != nil {
		tracks, err := s.remote.Search(ctx, query)
		if err == nil {
			s.Remember(ctx, tracks...)
			return &Result{Source: SourceYouTube, Tracks: tracks}, nil
		}
		s.log.WithError(err).WithField("query", query).Warn("Remote search failed, using local index")
	}

	tracks, err := s.index.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}
	return &Result{Source: SourceLocal, Tracks: tracks}, nil
}

// Remember adds tracks to the local index.
func (s *Service) Remember(ctx context.Context, tracks ...player.Track) {
	if err := s.index.Add(ctx, tracks...); err != nil {
		s.log.WithError(err).Warn("Error indexing tracks")
	}
}

// Similar returns known tracks of the same artist as t.
func (s *Service) Similar(ctx context.Context, t player.Track, size int) ([]player.Track, error) {
	return s.index.Similar(ctx, t, size)
}
