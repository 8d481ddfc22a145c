package sqlite

import (
	"context"
	"time"

	"github.com/erikbos/wavesync/database/model"
)

// CreatePasswordReset stores a pending password reset.
func (s *SqliteRepo) CreatePasswordReset(ctx context.Context, r model.PasswordReset) error {
	const query = `INSERT INTO password_resets (token, userid, created, expires) VALUES (?, ?, ?, ?)`
	_, err := s.dbWriteHandle.ExecContext(ctx, query, r.Token, r.UserID, r.Created.UTC(), r.Expires.UTC())
	return mapError(err)
}

// GetPasswordReset returns a pending password reset.
func (s *SqliteRepo) GetPasswordReset(ctx context.Context, token string) (*model.PasswordReset, error) {
	var row struct {
		Token   string    `db:"token"`
		UserID  string    `db:"userid"`
		Created time.Time `db:"created"`
		Expires time.Time `db:"expires"`
	}
	const query = `SELECT token, userid, created, expires FROM password_resets WHERE token=? LIMIT 1`
	if err := s.dbReadHandle.GetContext(ctx, &row, query, token); err != nil {
		return nil, mapError(err)
	}
	return &model.PasswordReset{
		Token:   row.Token,
		UserID:  row.UserID,
		Created: row.Created,
		Expires: row.Expires,
	}, nil
}

// DeletePasswordReset removes a password reset.
func (s *SqliteRepo) DeletePasswordReset(ctx context.Context, token string) error {
	_, err := s.dbWriteHandle.ExecContext(ctx, `DELETE FROM password_resets WHERE token=?`, token)
	return err
}
