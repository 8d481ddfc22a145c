package database

import (
	"context"
	"errors"

	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/database/sqlite"
)

// Repository is the remote store consumed by the rest of the server.
// Every entity has typed methods; no untyped rows leave this package.
type Repository interface {
	UserRepo
	AccessTokenRepo
	PasswordResetRepo
	LibraryRepo
	HistoryRepo
	PlaylistRepo
	ProfileRepo
	FriendshipRepo
	ChatRepo
	PreferencesRepo
	DownloadRepo
	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
	// StartBackgroundJobs starts periodic cache flushing.
	StartBackgroundJobs(ctx context.Context)
	Close() error
}

type UserRepo interface {
	// GetUser retrieves a user by email address.
	GetUser(ctx context.Context, email string) (*model.User, error)
	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	// InsertUser inserts a new user, returns model.ErrConflict if the email is taken.
	InsertUser(ctx context.Context, user *model.User) error
	// UpsertUser updates an existing user.
	UpsertUser(ctx context.Context, user *model.User) error
}

type AccessTokenRepo interface {
	// CreateAccessToken creates a new token for the user.
	CreateAccessToken(ctx context.Context, t model.AccessToken) (string, error)
	// GetAccessToken returns token details.
	GetAccessToken(ctx context.Context, token string) (*model.AccessToken, error)
	// GetAccessTokens returns all tokens of a user.
	GetAccessTokens(ctx context.Context, userID string) ([]model.AccessToken, error)
	// DeleteAccessToken revokes a token.
	DeleteAccessToken(ctx context.Context, token string) error
}

type PasswordResetRepo interface {
	CreatePasswordReset(ctx context.Context, r model.PasswordReset) error
	GetPasswordReset(ctx context.Context, token string) (*model.PasswordReset, error)
	DeletePasswordReset(ctx context.Context, token string) error
}

// TrackQuery filters library and history selects.
type TrackQuery = sqlite.TrackQuery

type LibraryRepo interface {
	// AddToLibrary stores a track, returns model.ErrConflict if the
	// (user, videoID) pair is already present.
	AddToLibrary(ctx context.Context, userID string, track model.TrackInfo) (*model.LibraryEntry, error)
	// RemoveFromLibrary deletes the (user, videoID) row.
	RemoveFromLibrary(ctx context.Context, userID, videoID string) error
	// IsInLibrary reports whether (user, videoID) exists.
	IsInLibrary(ctx context.Context, userID, videoID string) (bool, error)
	// GetLibrary returns library rows, newest first.
	GetLibrary(ctx context.Context, userID string, q TrackQuery) ([]model.LibraryEntry, error)
}

type HistoryRepo interface {
	AddHistory(ctx context.Context, userID string, track model.TrackInfo) (*model.HistoryEntry, error)
	// GetHistory returns history rows, most recently played first.
	GetHistory(ctx context.Context, userID string, q TrackQuery) ([]model.HistoryEntry, error)
}

type PlaylistRepo interface {
	CreatePlaylist(ctx context.Context, p model.Playlist) (playlistID string, err error)
	GetPlaylists(ctx context.Context, userID string) ([]model.Playlist, error)
	GetPlaylist(ctx context.Context, userID, playlistID string) (*model.Playlist, error)
	UpdatePlaylist(ctx context.Context, p model.Playlist) error
	DeletePlaylist(ctx context.Context, userID, playlistID string) error
	AddTrackToPlaylist(ctx context.Context, playlistID string, track model.TrackInfo) error
	RemoveTrackFromPlaylist(ctx context.Context, playlistID, videoID string) error
	GetPlaylistTracks(ctx context.Context, playlistID string) ([]model.PlaylistTrack, error)
	MovePlaylistTrack(ctx context.Context, playlistID, videoID string, newIndex int) error
}

type ProfileRepo interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	// UpsertProfile stores a profile, returns model.ErrConflict if the tag is taken.
	UpsertProfile(ctx context.Context, p *model.Profile) error
	// SearchProfiles returns profiles whose tag or display name contains term.
	SearchProfiles(ctx context.Context, term string, limit int) ([]model.Profile, error)
}

type FriendshipRepo interface {
	CreateFriendship(ctx context.Context, f model.Friendship) (*model.Friendship, error)
	GetFriendship(ctx context.Context, id string) (*model.Friendship, error)
	UpdateFriendshipStatus(ctx context.Context, id string, status model.FriendshipStatus) error
	DeleteFriendship(ctx context.Context, id string) error
	GetFriendships(ctx context.Context, userID string) ([]model.Friendship, error)
}

type ChatRepo interface {
	// FindDirectChat returns the direct chat between two users.
	FindDirectChat(ctx context.Context, userA, userB string) (*model.Chat, error)
	// CreateDirectChat creates a direct chat with both users as participants.
	CreateDirectChat(ctx context.Context, userA, userB string) (*model.Chat, error)
	IsChatParticipant(ctx context.Context, chatID, userID string) (bool, error)
	GetChats(ctx context.Context, userID string) ([]model.Chat, error)
	InsertMessage(ctx context.Context, m model.Message) (*model.Message, error)
	GetMessages(ctx context.Context, chatID string, limit int) ([]model.Message, error)
}

type PreferencesRepo interface {
	GetPreferences(ctx context.Context, userID string) (*model.Preferences, error)
	UpsertPreferences(ctx context.Context, p model.Preferences) error
}

type DownloadRepo interface {
	AddDownload(ctx context.Context, userID string, track model.TrackInfo) (*model.DownloadedTrack, error)
	RemoveDownload(ctx context.Context, userID, id string) error
	GetDownloads(ctx context.Context, userID string) ([]model.DownloadedTrack, error)
}

// ConfigFile holds configuration options
type ConfigFile struct {
	Sqlite sqlite.ConfigFile `mapstructure:"sqlite"`
}

// New creates the configured repository.
func New(o *ConfigFile) (Repository, error) {
	if o == nil {
		return nil, errors.New("no database configuration provided")
	}
	return sqlite.New(&o.Sqlite)
}
