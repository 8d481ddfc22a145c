package sqlite

import (
	"context"
	"time"

	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/idhash"
)

// trackRow holds the track columns shared by library, history,
// playlist and download tables.
type trackRow struct {
	VideoID   string `db:"videoid"`
	Title     string `db:"title"`
	Artist    string `db:"artist"`
	Thumbnail string `db:"thumbnail"`
	Duration  string `db:"duration"`
}

func (r trackRow) toModel() model.TrackInfo {
	return model.TrackInfo{
		VideoID:   r.VideoID,
		Title:     r.Title,
		Artist:    r.Artist,
		Thumbnail: r.Thumbnail,
		Duration:  r.Duration,
	}
}

func trackArgs(args map[string]any, t model.TrackInfo) map[string]any {
	args["videoid"] = t.VideoID
	args["title"] = t.Title
	args["artist"] = t.Artist
	args["thumbnail"] = t.Thumbnail
	args["duration"] = t.Duration
	return args
}

// AddToLibrary stores a track in the library of a user.
func (s *SqliteRepo) AddToLibrary(ctx context.Context, userID string, track model.TrackInfo) (*model.LibraryEntry, error) {
	entry := &model.LibraryEntry{
		ID:        idhash.NewRandomID(),
		UserID:    userID,
		TrackInfo: track,
		Added:     time.Now().UTC(),
	}
	_, err := s.dbWriteHandle.NamedExecContext(ctx, `INSERT INTO user_library (id, userid, videoid, title, artist, thumbnail, duration, added)
		VALUES (:id, :userid, :videoid, :title, :artist, :thumbnail, :duration, :added)`,
		trackArgs(map[string]any{
			"id":     entry.ID,
			"userid": userID,
			"added":  entry.Added,
		}, track))
	if err != nil {
		return nil, mapError(err)
	}
	return entry, nil
}

// RemoveFromLibrary deletes a track from the library of a user.
func (s *SqliteRepo) RemoveFromLibrary(ctx context.Context, userID, videoID string) error {
	_, err := s.dbWriteHandle.ExecContext(ctx, `DELETE FROM user_library WHERE userid=? AND videoid=?`, userID, videoID)
	return err
}

// IsInLibrary reports whether a track is in the library of a user.
func (s *SqliteRepo) IsInLibrary(ctx context.Context, userID, videoID string) (bool, error) {
	var count int
	if err := s.dbReadHandle.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM user_library WHERE userid=? AND videoid=?`, userID, videoID); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetLibrary returns the library of a user, most recently added first.
func (s *SqliteRepo) GetLibrary(ctx context.Context, userID string, q TrackQuery) ([]model.LibraryEntry, error) {
	query, args, err := trackFilter(`SELECT id, userid, videoid, title, artist, thumbnail, duration, added
		FROM user_library WHERE userid=?`, []any{userID}, q, "added DESC, rowid DESC")
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID     string `db:"id"`
		UserID string `db:"userid"`
		trackRow
		Added time.Time `db:"added"`
	}
	if err := s.dbReadHandle.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	entries := make([]model.LibraryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.LibraryEntry{
			ID:        r.ID,
			UserID:    r.UserID,
			TrackInfo: r.trackRow.toModel(),
			Added:     r.Added,
		})
	}
	return entries, nil
}
