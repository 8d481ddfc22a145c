// Package player holds the playback coordinator shared by every surface
// that shows or controls playback of a session.
package player

import (
	"fmt"
	"math"

	"github.com/erikbos/wavesync/database/model"
)

// Track is a playable video. Tracks are values and copied freely.
type Track struct {
	VideoID   string `json:"video_id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Info returns the store representation of the track, duration is
// formatted m:ss and left empty when unknown.
func (t Track) Info(duration float64) model.TrackInfo {
	info := model.TrackInfo{
		VideoID:   t.VideoID,
		Title:     t.Title,
		Artist:    t.Artist,
		Thumbnail: t.Thumbnail,
	}
	if duration > 0 {
		info.Duration = FormatTime(duration)
	}
	return info
}

// FromInfo converts a stored track back into a Track.
func FromInfo(info model.TrackInfo) Track {
	return Track{
		VideoID:   info.VideoID,
		Title:     info.Title,
		Artist:    info.Artist,
		Thumbnail: info.Thumbnail,
	}
}

// FormatTime formats seconds as m:ss.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// DefaultFallbackTracks are played when playback is requested without a
// track and nothing is queued.
var DefaultFallbackTracks = []Track{
	{
		VideoID: "jfKfPfyJRdk",
		Title:   "lofi hip hop radio - beats to relax/study to",
		Artist:  "Lofi Girl",
	},
	{
		VideoID: "4xDzrJKXOOY",
		Title:   "Dark Ambient Music - The Abyss",
		Artist:  "Cryo Chamber",
	},
	{
		VideoID: "5qap5aO4i9A",
		Title:   "Dark Synthwave Mix",
		Artist:  "Various Artists",
	},
}
