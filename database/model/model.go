package model

import (
	"errors"
	"time"
)

var (
	ErrNoConfiguration = errors.New("database filename not set")
	ErrNoDbHandle      = errors.New("db connection not available")
	ErrNotFound        = errors.New("not found")
	ErrInvalidPassword = errors.New("invalid password")
	// ErrConflict is returned when a write violates a uniqueness
	// constraint, e.g. adding a track that is already in the library.
	ErrConflict = errors.New("already exists")
)

// User represents a user in the system.
type User struct {
	// ID is the unique identifier for the user.
	ID string
	// Email is the address the user signs in with.
	Email string
	// Password is the hashed password of the user.
	Password string
	// Created is the time the user was created.
	Created time.Time
	// LastLogin is the last time the user logged in.
	LastLogin time.Time
	// LastUsed is the last time the user was active.
	LastUsed time.Time
}

// AccessToken represents an access token for a user.
type AccessToken struct {
	// UserID is the ID of the user associated with the token.
	UserID string
	// Token is the access token string.
	Token string
	// DeviceName is the name of the device.
	DeviceName string
	// RemoteAddress is the remote address of the client.
	RemoteAddress string
	// Created is the time the token was created.
	Created time.Time
	// LastUsed is the last time the token was used.
	LastUsed time.Time
}

// PasswordReset is a pending password reset request.
type PasswordReset struct {
	Token   string
	UserID  string
	Created time.Time
	Expires time.Time
}

// TrackInfo is the track metadata stored alongside library, history and
// playlist rows.
type TrackInfo struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	// Thumbnail URL, empty if unknown.
	Thumbnail string `json:"thumbnail_url,omitempty"`
	// Duration formatted as m:ss, empty if unknown.
	Duration string `json:"duration,omitempty"`
}

// LibraryEntry is a track saved to a user's library.
type LibraryEntry struct {
	ID     string
	UserID string
	TrackInfo
	Added time.Time
}

// HistoryEntry records a track having been played by a user.
type HistoryEntry struct {
	ID     string
	UserID string
	TrackInfo
	PlayedAt time.Time
}

// Playlist represents a named, ordered user playlist.
type Playlist struct {
	// ID is the unique identifier for the playlist.
	ID string
	// UserID is the identifier of the user who owns the playlist.
	UserID string
	// Name of the playlist.
	Name        string
	Description string
	IsPublic    bool
	Created     time.Time
	Updated     time.Time
}

// PlaylistTrack is a track at a position in a playlist.
type PlaylistTrack struct {
	PlaylistID string
	TrackInfo
	Position int
	Added    time.Time
}

// Profile holds the public profile of a user.
type Profile struct {
	UserID      string
	DisplayName string
	Bio         string
	// Tag is a unique handle other users can find a user by.
	Tag       string
	AvatarURL string
	Updated   time.Time
}

// FriendshipStatus is the state of a friend request.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipDeclined FriendshipStatus = "declined"
)

// Friendship links a requester and an addressee.
type Friendship struct {
	ID          string
	RequesterID string
	AddresseeID string
	Status      FriendshipStatus
	Created     time.Time
}

// Chat is a conversation between participants.
type Chat struct {
	ID      string
	Type    string
	Name    string
	Created time.Time
}

// Message is a single chat message.
type Message struct {
	ID          string
	ChatID      string
	SenderID    string
	Content     string
	MessageType string
	Created     time.Time
}

// Preferences holds the artists a user picked for recommendations.
type Preferences struct {
	UserID           string
	PreferredArtists []string
	IsConfigured     bool
	Updated          time.Time
}

// DownloadedTrack is metadata of a track the user marked as downloaded.
// No audio is stored.
type DownloadedTrack struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	TrackInfo
	DownloadedAt time.Time `json:"downloaded_at"`
}
