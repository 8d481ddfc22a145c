package sqlite

import (
	"context"
	"time"

	"github.com/erikbos/wavesync/database/model"
)

type profileRow struct {
	UserID      string    `db:"userid"`
	DisplayName string    `db:"displayname"`
	Bio         string    `db:"bio"`
	Tag         string    `db:"tag"`
	AvatarURL   string    `db:"avatarurl"`
	Updated     time.Time `db:"updated"`
}

func (r profileRow) toModel() model.Profile {
	return model.Profile{
		UserID:      r.UserID,
		DisplayName: r.DisplayName,
		Bio:         r.Bio,
		Tag:         r.Tag,
		AvatarURL:   r.AvatarURL,
		Updated:     r.Updated,
	}
}

// GetProfile returns the profile of a user.
func (s *SqliteRepo) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var row profileRow
	if err := s.dbReadHandle.GetContext(ctx, &row,
		`SELECT userid, displayname, bio, tag, avatarurl, updated FROM profiles WHERE userid=? LIMIT 1`, userID); err != nil {
		return nil, mapError(err)
	}
	p := row.toModel()
	return &p, nil
}

// UpsertProfile stores a profile. A tag already used by another user
// results in model.ErrConflict.
func (s *SqliteRepo) UpsertProfile(ctx context.Context, p *model.Profile) error {
	p.Updated = time.Now().UTC()
	_, err := s.dbWriteHandle.NamedExecContext(ctx, `INSERT INTO profiles (userid, displayname, bio, tag, avatarurl, updated)
		VALUES (:userid, :displayname, :bio, :tag, :avatarurl, :updated)
		ON CONFLICT(userid) DO UPDATE SET displayname=excluded.displayname, bio=excluded.bio,
		tag=excluded.tag, avatarurl=excluded.avatarurl, updated=excluded.updated`,
		map[string]any{
			"userid":      p.UserID,
			"displayname": p.DisplayName,
			"bio":         p.Bio,
			"tag":         p.Tag,
			"avatarurl":   p.AvatarURL,
			"updated":     p.Updated,
		})
	return mapError(err)
}

// SearchProfiles returns profiles whose tag or display name contains term.
func (s *SqliteRepo) SearchProfiles(ctx context.Context, term string, limit int) ([]model.Profile, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + escapeLike(term) + "%"
	var rows []profileRow
	if err := s.dbReadHandle.SelectContext(ctx, &rows,
		`SELECT userid, displayname, bio, tag, avatarurl, updated FROM profiles
		WHERE tag LIKE ? ESCAPE '\' OR displayname LIKE ? ESCAPE '\'
		ORDER BY tag LIMIT ?`, like, like, limit); err != nil {
		return nil, err
	}
	profiles := make([]model.Profile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, r.toModel())
	}
	return profiles, nil
}
