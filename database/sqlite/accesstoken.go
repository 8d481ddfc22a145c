package sqlite

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/erikbos/wavesync/database/model"
)

// CreateAccessToken creates new token.
func (s *SqliteRepo) CreateAccessToken(ctx context.Context, t model.AccessToken) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.Token = rand.Text()
	now := time.Now().UTC()
	t.Created = now
	t.LastUsed = now

	// Store accesstoken in database
	if err := s.storeToken(ctx, t); err != nil {
		return "", err
	}

	// Store accesstoken in memory
	s.accessTokenCache[t.Token] = &t

	return t.Token, nil
}

// GetAccessToken returns accesstoken details based upon tokenid.
func (s *SqliteRepo) GetAccessToken(ctx context.Context, token string) (*model.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Try our in-memory store first
	if at, ok := s.accessTokenCache[token]; ok {
		// Update token timestamp so we can keep track of in-use tokens
		at.LastUsed = time.Now().UTC()
		c := *at
		return &c, nil
	}

	// try database
	var row accessTokenRow
	const query = `SELECT userid, token, devicename, remoteaddress, created, lastused FROM accesstokens WHERE token=? LIMIT 1`
	if err := s.dbReadHandle.GetContext(ctx, &row, query, token); err != nil {
		return nil, model.ErrNotFound
	}
	t := row.toModel()
	t.LastUsed = time.Now().UTC()
	s.accessTokenCache[token] = &t
	c := t
	return &c, nil
}

// GetAccessTokens returns all access tokens of a user.
func (s *SqliteRepo) GetAccessTokens(ctx context.Context, userID string) ([]model.AccessToken, error) {
	var rows []accessTokenRow
	const query = `SELECT userid, token, devicename, remoteaddress, created, lastused FROM accesstokens WHERE userid=?`
	if err := s.dbReadHandle.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}
	tokens := make([]model.AccessToken, 0, len(rows))
	for _, r := range rows {
		tokens = append(tokens, r.toModel())
	}
	return tokens, nil
}

// DeleteAccessToken removes a token from cache and database.
func (s *SqliteRepo) DeleteAccessToken(ctx context.Context, token string) error {
	s.mu.Lock()
	delete(s.accessTokenCache, token)
	s.mu.Unlock()

	_, err := s.dbWriteHandle.ExecContext(ctx, `DELETE FROM accesstokens WHERE token=?`, token)
	return err
}

type accessTokenRow struct {
	UserID        string    `db:"userid"`
	Token         string    `db:"token"`
	DeviceName    string    `db:"devicename"`
	RemoteAddress string    `db:"remoteaddress"`
	Created       time.Time `db:"created"`
	LastUsed      time.Time `db:"lastused"`
}

func (r accessTokenRow) toModel() model.AccessToken {
	return model.AccessToken{
		UserID:        r.UserID,
		Token:         r.Token,
		DeviceName:    r.DeviceName,
		RemoteAddress: r.RemoteAddress,
		Created:       r.Created,
		LastUsed:      r.LastUsed,
	}
}

// accessTokenBackgroundJob writes changed accesstokens to database.
func (s *SqliteRepo) accessTokenBackgroundJob(ctx context.Context, interval time.Duration) {
	s.mu.Lock()
	s.accessTokenCacheSyncTime = time.Now().UTC()
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.writeChangedAccessTokensToDB(ctx); err != nil {
				logrus.WithError(err).Warn("Error writing access tokens to db")
			}
		}
	}
}

// writeChangedAccessTokensToDB writes updated access tokens to db to persist last use date.
func (s *SqliteRepo) writeChangedAccessTokensToDB(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, value := range s.accessTokenCache {
		if value.LastUsed.After(s.accessTokenCacheSyncTime) {
			if err := s.storeToken(ctx, *value); err != nil {
				return err
			}
		}
	}
	s.accessTokenCacheSyncTime = time.Now().UTC()
	return nil
}

// storeToken stores an access token in the database
func (s *SqliteRepo) storeToken(ctx context.Context, t model.AccessToken) error {
	if s.dbWriteHandle == nil {
		return model.ErrNoDbHandle
	}
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `INSERT OR REPLACE INTO accesstokens (userid, token, devicename, remoteaddress, created, lastused)
		VALUES (:userid, :token, :devicename, :remoteaddress, :created, :lastused)`,
		accessTokenRow{
			UserID:        t.UserID,
			Token:         t.Token,
			DeviceName:    t.DeviceName,
			RemoteAddress: t.RemoteAddress,
			Created:       t.Created.UTC(),
			LastUsed:      t.LastUsed.UTC(),
		})
	if err != nil {
		return err
	}
	return tx.Commit()
}
