package api

import (
	"time"

	"github.com/samber/lo"

	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/player"
)

type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// DeviceName is optional, defaults to the user agent.
	DeviceName string `json:"device_name,omitempty"`
}

type ResetRequest struct {
	Email string `json:"email"`
}

type ResetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type PlayRequest struct {
	Track *player.Track `json:"track,omitempty"`
}

type QueueRequest struct {
	Tracks []player.Track `json:"tracks"`
	Start  int            `json:"start"`
}

type SeekRequest struct {
	Seconds float64 `json:"seconds"`
}

type VolumeRequest struct {
	Level int `json:"level"`
}

type TrackResponse struct {
	ID string `json:"id,omitempty"`
	model.TrackInfo
	Added    *time.Time `json:"added,omitempty"`
	PlayedAt *time.Time `json:"played_at,omitempty"`
	Position *int       `json:"position,omitempty"`
}

func makeLibraryTracks(entries []model.LibraryEntry) []TrackResponse {
	return lo.Map(entries, func(e model.LibraryEntry, _ int) TrackResponse {
		return TrackResponse{ID: e.ID, TrackInfo: e.TrackInfo, Added: &e.Added}
	})
}

func makeHistoryTracks(entries []model.HistoryEntry) []TrackResponse {
	return lo.Map(entries, func(e model.HistoryEntry, _ int) TrackResponse {
		return TrackResponse{ID: e.ID, TrackInfo: e.TrackInfo, PlayedAt: &e.PlayedAt}
	})
}

func makePlaylistTracks(entries []model.PlaylistTrack) []TrackResponse {
	return lo.Map(entries, func(e model.PlaylistTrack, _ int) TrackResponse {
		return TrackResponse{TrackInfo: e.TrackInfo, Added: &e.Added, Position: &e.Position}
	})
}

type PlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

type PlaylistResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsPublic    bool      `json:"is_public"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

func makePlaylist(p model.Playlist) PlaylistResponse {
	return PlaylistResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		Name:        p.Name,
		Description: p.Description,
		IsPublic:    p.IsPublic,
		Created:     p.Created,
		Updated:     p.Updated,
	}
}

type ProfileRequest struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	Tag         string `json:"tag"`
}

type ProfileResponse struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio,omitempty"`
	Tag         string    `json:"tag,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Updated     time.Time `json:"updated"`
}

func makeProfile(p model.Profile) ProfileResponse {
	return ProfileResponse{
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
		Bio:         p.Bio,
		Tag:         p.Tag,
		AvatarURL:   p.AvatarURL,
		Updated:     p.Updated,
	}
}

type FriendRequest struct {
	UserID string `json:"user_id"`
}

type FriendResponseRequest struct {
	Accept bool `json:"accept"`
}

type FriendshipResponse struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requester_id"`
	AddresseeID string    `json:"addressee_id"`
	Status      string    `json:"status"`
	Created     time.Time `json:"created"`
}

func makeFriendship(f model.Friendship) FriendshipResponse {
	return FriendshipResponse{
		ID:          f.ID,
		RequesterID: f.RequesterID,
		AddresseeID: f.AddresseeID,
		Status:      string(f.Status),
		Created:     f.Created,
	}
}

type ChatRequest struct {
	UserID string `json:"user_id"`
}

type ChatResponse struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Name    string    `json:"name,omitempty"`
	Created time.Time `json:"created"`
}

func makeChat(c model.Chat) ChatResponse {
	return ChatResponse{ID: c.ID, Type: c.Type, Name: c.Name, Created: c.Created}
}

type MessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse is also the payload published to chat subscribers.
type MessageResponse struct {
	ID          string    `json:"id"`
	ChatID      string    `json:"chat_id"`
	SenderID    string    `json:"sender_id"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	Created     time.Time `json:"created_at"`
}

func MakeMessage(m model.Message) MessageResponse {
	return MessageResponse{
		ID:          m.ID,
		ChatID:      m.ChatID,
		SenderID:    m.SenderID,
		Content:     m.Content,
		MessageType: m.MessageType,
		Created:     m.Created,
	}
}

type PreferencesRequest struct {
	PreferredArtists []string `json:"preferred_artists"`
}

type PreferencesResponse struct {
	PreferredArtists []string  `json:"preferred_artists"`
	IsConfigured     bool      `json:"is_configured"`
	Updated          time.Time `json:"updated"`
}

func makePreferences(p model.Preferences) PreferencesResponse {
	artists := p.PreferredArtists
	if artists == nil {
		artists = []string{}
	}
	return PreferencesResponse{
		PreferredArtists: artists,
		IsConfigured:     p.IsConfigured,
		Updated:          p.Updated,
	}
}

type DownloadsResponse struct {
	Downloads []model.DownloadedTrack `json:"downloads"`
	// Offline is set when the list was served from the offline cache.
	Offline bool `json:"offline,omitempty"`
}
