package sqlite

import (
	"context"
	"time"

	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/idhash"
)

// AddDownload records that a user downloaded a track.
func (s *SqliteRepo) AddDownload(ctx context.Context, userID string, track model.TrackInfo) (*model.DownloadedTrack, error) {
	d := &model.DownloadedTrack{
		ID:           idhash.NewRandomID(),
		UserID:       userID,
		TrackInfo:    track,
		DownloadedAt: time.Now().UTC(),
	}
	_, err := s.dbWriteHandle.NamedExecContext(ctx, `INSERT INTO downloaded_tracks (id, userid, videoid, title, artist, thumbnail, duration, downloadedat)
		VALUES (:id, :userid, :videoid, :title, :artist, :thumbnail, :duration, :downloadedat)`,
		trackArgs(map[string]any{
			"id":           d.ID,
			"userid":       userID,
			"downloadedat": d.DownloadedAt,
		}, track))
	if err != nil {
		return nil, mapError(err)
	}
	return d, nil
}

// RemoveDownload deletes a download record of a user.
func (s *SqliteRepo) RemoveDownload(ctx context.Context, userID, id string) error {
	res, err := s.dbWriteHandle.ExecContext(ctx, `DELETE FROM downloaded_tracks WHERE userid=? AND id=?`, userID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// GetDownloads returns the downloaded tracks of a user, newest first.
func (s *SqliteRepo) GetDownloads(ctx context.Context, userID string) ([]model.DownloadedTrack, error) {
	var rows []struct {
		ID     string `db:"id"`
		UserID string `db:"userid"`
		trackRow
		DownloadedAt time.Time `db:"downloadedat"`
	}
	if err := s.dbReadHandle.SelectContext(ctx, &rows, `SELECT id, userid, videoid, title, artist, thumbnail, duration, downloadedat
		FROM downloaded_tracks WHERE userid=? ORDER BY downloadedat DESC`, userID); err != nil {
		return nil, err
	}
	downloads := make([]model.DownloadedTrack, 0, len(rows))
	for _, r := range rows {
		downloads = append(downloads, model.DownloadedTrack{
			ID:           r.ID,
			UserID:       r.UserID,
			TrackInfo:    r.trackRow.toModel(),
			DownloadedAt: r.DownloadedAt,
		})
	}
	return downloads, nil
}
