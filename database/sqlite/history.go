package sqlite

import (
	"context"
	"time"

	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/idhash"
)

// AddHistory records that a user started playing a track.
func (s *SqliteRepo) AddHistory(ctx context.Context, userID string, track model.TrackInfo) (*model.HistoryEntry, error) {
	entry := &model.HistoryEntry{
		ID:        idhash.NewRandomID(),
		UserID:    userID,
		TrackInfo: track,
		PlayedAt:  time.Now().UTC(),
	}
	_, err := s.dbWriteHandle.NamedExecContext(ctx, `INSERT INTO listening_history (id, userid, videoid, title, artist, thumbnail, duration, playedat)
		VALUES (:id, :userid, :videoid, :title, :artist, :thumbnail, :duration, :playedat)`,
		trackArgs(map[string]any{
			"id":       entry.ID,
			"userid":   userID,
			"playedat": entry.PlayedAt,
		}, track))
	if err != nil {
		return nil, mapError(err)
	}
	return entry, nil
}

// GetHistory returns the listening history of a user, most recent first.
func (s *SqliteRepo) GetHistory(ctx context.Context, userID string, q TrackQuery) ([]model.HistoryEntry, error) {
	query, args, err := trackFilter(`SELECT id, userid, videoid, title, artist, thumbnail, duration, playedat
		FROM listening_history WHERE userid=?`, []any{userID}, q, "playedat DESC, rowid DESC")
	if err != nil {
		return nil, err
	}

	var rows []struct {
		ID     string `db:"id"`
		UserID string `db:"userid"`
		trackRow
		PlayedAt time.Time `db:"playedat"`
	}
	if err := s.dbReadHandle.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	entries := make([]model.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.HistoryEntry{
			ID:        r.ID,
			UserID:    r.UserID,
			TrackInfo: r.trackRow.toModel(),
			PlayedAt:  r.PlayedAt,
		})
	}
	return entries, nil
}
