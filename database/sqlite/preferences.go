package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"github.com/erikbos/wavesync/database/model"
)

// GetPreferences returns the recommendation preferences of a user.
func (s *SqliteRepo) GetPreferences(ctx context.Context, userID string) (*model.Preferences, error) {
	var row struct {
		UserID           string    `db:"userid"`
		PreferredArtists string    `db:"preferredartists"`
		IsConfigured     bool      `db:"isconfigured"`
		Updated          time.Time `db:"updated"`
	}
	if err := s.dbReadHandle.GetContext(ctx, &row,
		`SELECT userid, preferredartists, isconfigured, updated FROM user_preferences WHERE userid=? LIMIT 1`, userID); err != nil {
		return nil, mapError(err)
	}
	p := &model.Preferences{
		UserID:       row.UserID,
		IsConfigured: row.IsConfigured,
		Updated:      row.Updated,
	}
	if err := json.Unmarshal([]byte(row.PreferredArtists), &p.PreferredArtists); err != nil {
		return nil, err
	}
	return p, nil
}

// UpsertPreferences stores the recommendation preferences of a user.
func (s *SqliteRepo) UpsertPreferences(ctx context.Context, p model.Preferences) error {
	artists := p.PreferredArtists
	if artists == nil {
		artists = []string{}
	}
	encoded, err := json.Marshal(artists)
	if err != nil {
		return err
	}
	_, err = s.dbWriteHandle.NamedExecContext(ctx, `INSERT INTO user_preferences (userid, preferredartists, isconfigured, updated)
		VALUES (:userid, :preferredartists, :isconfigured, :updated)
		ON CONFLICT(userid) DO UPDATE SET preferredartists=excluded.preferredartists,
		isconfigured=excluded.isconfigured, updated=excluded.updated`,
		map[string]any{
			"userid":           p.UserID,
			"preferredartists": string(encoded),
			"isconfigured":     p.IsConfigured,
			"updated":          time.Now().UTC(),
		})
	return mapError(err)
}
