package sqlite

import (
	"context"
	"time"

	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/idhash"
)

type playlistRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	IsPublic    bool      `db:"ispublic"`
	UserID      string    `db:"userid"`
	Created     time.Time `db:"created"`
	Updated     time.Time `db:"updated"`
}

func (r playlistRow) toModel() model.Playlist {
	return model.Playlist{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Description: r.Description,
		IsPublic:    r.IsPublic,
		Created:     r.Created,
		Updated:     r.Updated,
	}
}

// CreatePlaylist creates a new, empty playlist.
func (s *SqliteRepo) CreatePlaylist(ctx context.Context, newPlaylist model.Playlist) (playlistID string, err error) {
	// every create playlist will have a unique id
	newPlaylist.ID = idhash.NewRandomID()
	now := time.Now().UTC()

	if _, err = s.dbWriteHandle.NamedExecContext(ctx, `INSERT INTO playlist (id, name, description, ispublic, userid, created, updated)
		VALUES (:id, :name, :description, :ispublic, :userid, :created, :updated)`,
		map[string]any{
			"id":          newPlaylist.ID,
			"name":        newPlaylist.Name,
			"description": newPlaylist.Description,
			"ispublic":    newPlaylist.IsPublic,
			"userid":      newPlaylist.UserID,
			"created":     now,
			"updated":     now,
		}); err != nil {
		return "", mapError(err)
	}
	return newPlaylist.ID, nil
}

// GetPlaylists returns all playlists of a user, most recently updated first.
func (s *SqliteRepo) GetPlaylists(ctx context.Context, userID string) ([]model.Playlist, error) {
	var rows []playlistRow
	if err := s.dbReadHandle.SelectContext(ctx, &rows,
		`SELECT id, name, description, ispublic, userid, created, updated FROM playlist WHERE userid=? ORDER BY updated DESC`,
		userID); err != nil {
		return nil, err
	}
	playlists := make([]model.Playlist, 0, len(rows))
	for _, r := range rows {
		playlists = append(playlists, r.toModel())
	}
	return playlists, nil
}

// GetPlaylist returns a playlist owned by a user.
func (s *SqliteRepo) GetPlaylist(ctx context.Context, userID, playlistID string) (*model.Playlist, error) {
	var row playlistRow
	if err := s.dbReadHandle.GetContext(ctx, &row,
		`SELECT id, name, description, ispublic, userid, created, updated FROM playlist WHERE userid=? AND id=? LIMIT 1`,
		userID, playlistID); err != nil {
		return nil, mapError(err)
	}
	p := row.toModel()
	return &p, nil
}

// UpdatePlaylist updates name, description and visibility of a playlist.
func (s *SqliteRepo) UpdatePlaylist(ctx context.Context, p model.Playlist) error {
	res, err := s.dbWriteHandle.NamedExecContext(ctx, `UPDATE playlist SET name=:name, description=:description,
		ispublic=:ispublic, updated=:updated WHERE id=:id AND userid=:userid`,
		map[string]any{
			"id":          p.ID,
			"userid":      p.UserID,
			"name":        p.Name,
			"description": p.Description,
			"ispublic":    p.IsPublic,
			"updated":     time.Now().UTC(),
		})
	if err != nil {
		return mapError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeletePlaylist deletes a playlist and its tracks.
func (s *SqliteRepo) DeletePlaylist(ctx context.Context, userID, playlistID string) error {
	res, err := s.dbWriteHandle.ExecContext(ctx, `DELETE FROM playlist WHERE userid=? AND id=?`, userID, playlistID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// AddTrackToPlaylist appends a track to the end of a playlist.
func (s *SqliteRepo) AddTrackToPlaylist(ctx context.Context, playlistID string, track model.TrackInfo) error {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// get the highest order number of the playlist to determine the order of the new track
	var maxOrder int
	if err = tx.GetContext(ctx, &maxOrder,
		"SELECT COALESCE(MAX(itemorder), 0) FROM playlist_item WHERE playlistid=?", playlistID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if _, err := tx.NamedExecContext(ctx, `INSERT INTO playlist_item (playlistid, videoid, title, artist, thumbnail, duration, itemorder, timestamp)
		VALUES (:playlistid, :videoid, :title, :artist, :thumbnail, :duration, :itemorder, :timestamp)`,
		trackArgs(map[string]any{
			"playlistid": playlistID,
			"itemorder":  maxOrder + 1,
			"timestamp":  now,
		}, track)); err != nil {
		return mapError(err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE playlist SET updated=? WHERE id=?`, now, playlistID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveTrackFromPlaylist removes a track from a playlist.
func (s *SqliteRepo) RemoveTrackFromPlaylist(ctx context.Context, playlistID, videoID string) error {
	res, err := s.dbWriteHandle.ExecContext(ctx, `DELETE FROM playlist_item WHERE playlistid=? AND videoid=?`, playlistID, videoID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// GetPlaylistTracks returns the tracks of a playlist ordered by position.
// Positions are renumbered from 0.
func (s *SqliteRepo) GetPlaylistTracks(ctx context.Context, playlistID string) ([]model.PlaylistTrack, error) {
	var rows []struct {
		PlaylistID string `db:"playlistid"`
		trackRow
		ItemOrder int       `db:"itemorder"`
		Timestamp time.Time `db:"timestamp"`
	}
	if err := s.dbReadHandle.SelectContext(ctx, &rows,
		`SELECT playlistid, videoid, title, artist, thumbnail, duration, itemorder, timestamp
		FROM playlist_item WHERE playlistid=? ORDER BY itemorder`, playlistID); err != nil {
		return nil, err
	}
	tracks := make([]model.PlaylistTrack, 0, len(rows))
	for i, r := range rows {
		tracks = append(tracks, model.PlaylistTrack{
			PlaylistID: r.PlaylistID,
			TrackInfo:  r.trackRow.toModel(),
			Position:   i,
			Added:      r.Timestamp,
		})
	}
	return tracks, nil
}

// MovePlaylistTrack moves a track to newIndex, shifting the tracks in between.
func (s *SqliteRepo) MovePlaylistTrack(ctx context.Context, playlistID, videoID string, newIndex int) error {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var order []string
	if err := tx.SelectContext(ctx, &order,
		`SELECT videoid FROM playlist_item WHERE playlistid=? ORDER BY itemorder`, playlistID); err != nil {
		return err
	}
	from := -1
	for i, id := range order {
		if id == videoID {
			from = i
			break
		}
	}
	if from == -1 {
		return model.ErrNotFound
	}
	newIndex = max(0, min(newIndex, len(order)-1))

	order = append(order[:from], order[from+1:]...)
	order = append(order[:newIndex], append([]string{videoID}, order[newIndex:]...)...)

	for i, id := range order {
		if _, err := tx.ExecContext(ctx, `UPDATE playlist_item SET itemorder=? WHERE playlistid=? AND videoid=?`,
			i+1, playlistID, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
