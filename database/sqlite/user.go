package sqlite

import (
	"context"
	"database/sql"

	"github.com/erikbos/wavesync/database/model"
)

// GetUser retrieves a user by email address.
func (s *SqliteRepo) GetUser(ctx context.Context, email string) (user *model.User, err error) {
	const query = `SELECT id,
		email,
		password,
		created,
		lastlogin,
		lastused FROM users WHERE email=? LIMIT 1`
	return sqlScanUser(s.dbReadHandle.QueryRowContext(ctx, query, email))
}

// GetUserByID retrieves a user from the database by their ID.
func (s *SqliteRepo) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	const query = `SELECT id,
		email,
		password,
		created,
		lastlogin,
		lastused FROM users WHERE id=? LIMIT 1`
	return sqlScanUser(s.dbReadHandle.QueryRowContext(ctx, query, userID))
}

func sqlScanUser(row *sql.Row) (*model.User, error) {
	var user model.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Password,
		&user.Created,
		&user.LastLogin,
		&user.LastUsed); err != nil {
		return nil, model.ErrNotFound
	}
	return &user, nil
}

// InsertUser inserts a new user, the email address must not be in use.
func (s *SqliteRepo) InsertUser(ctx context.Context, user *model.User) error {
	const query = `INSERT INTO users (id, email, password, created, lastlogin, lastused) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.dbWriteHandle.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Password,
		user.Created.UTC(),
		user.LastLogin.UTC(),
		user.LastUsed.UTC())
	return mapError(err)
}

// UpsertUser upserts a user into the database.
func (s *SqliteRepo) UpsertUser(ctx context.Context, user *model.User) error {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `REPLACE INTO users (id, email, password, created, lastlogin, lastused) VALUES (?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Password,
		user.Created.UTC(),
		user.LastLogin.UTC(),
		user.LastUsed.UTC())
	if err != nil {
		return mapError(err)
	}
	return tx.Commit()
}
