package search

import (
	"context"
	"errors"
	"html"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/erikbos/wavesync/player"
)

const maxResults = 10

// ErrNoAPIKey is returned when YouTube search is used without a key.
var ErrNoAPIKey = errors.New("no youtube api key configured")

// YouTube searches videos with the YouTube Data API.
type YouTube struct {
	service *youtube.Service
}

// NewYouTube creates a client, endpoint overrides the API base URL when set.
func NewYouTube(ctx context.Context, apiKey, endpoint string) (*YouTube, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &YouTube{service: service}, nil
}

// Search returns up to ten videos matching query. The channel title
// stands in for the artist.
func (y *YouTube) Search(ctx context.Context, query string) ([]player.Track, error) {
	resp, err := y.service.Search.List([]string{"snippet"}).
		Q(query).
		MaxResults(maxResults).
		Type("video").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	tracks := make([]player.Track, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		t := player.Track{
			VideoID: item.Id.VideoId,
			Title:   html.UnescapeString(item.Snippet.Title),
			Artist:  html.UnescapeString(item.Snippet.ChannelTitle),
		}
		if th := item.Snippet.Thumbnails; th != nil && th.Default != nil {
			t.Thumbnail = th.Default.Url
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}
