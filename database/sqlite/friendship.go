package sqlite

import (
	"context"
	"time"

	"github.com/erikbos/wavesync/database/model"
	"github.com/erikbos/wavesync/idhash"
)

type friendshipRow struct {
	ID          string    `db:"id"`
	RequesterID string    `db:"requesterid"`
	AddresseeID string    `db:"addresseeid"`
	Status      string    `db:"status"`
	Created     time.Time `db:"created"`
}

func (r friendshipRow) toModel() model.Friendship {
	return model.Friendship{
		ID:          r.ID,
		RequesterID: r.RequesterID,
		AddresseeID: r.AddresseeID,
		Status:      model.FriendshipStatus(r.Status),
		Created:     r.Created,
	}
}

// CreateFriendship stores a friend request. A request between the same two
// users in either direction results in model.ErrConflict.
func (s *SqliteRepo) CreateFriendship(ctx context.Context, f model.Friendship) (*model.Friendship, error) {
	tx, err := s.dbWriteHandle.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM friendships
		WHERE (requesterid=? AND addresseeid=?) OR (requesterid=? AND addresseeid=?)`,
		f.RequesterID, f.AddresseeID, f.AddresseeID, f.RequesterID); err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, model.ErrConflict
	}

	f.ID = idhash.NewRandomID()
	f.Created = time.Now().UTC()
	if f.Status == "" {
		f.Status = model.FriendshipPending
	}
	if _, err := tx.NamedExecContext(ctx, `INSERT INTO friendships (id, requesterid, addresseeid, status, created)
		VALUES (:id, :requesterid, :addresseeid, :status, :created)`,
		friendshipRow{
			ID:          f.ID,
			RequesterID: f.RequesterID,
			AddresseeID: f.AddresseeID,
			Status:      string(f.Status),
			Created:     f.Created,
		}); err != nil {
		return nil, mapError(err)
	}
	return &f, tx.Commit()
}

// GetFriendship returns a friendship by id.
func (s *SqliteRepo) GetFriendship(ctx context.Context, id string) (*model.Friendship, error) {
	var row friendshipRow
	if err := s.dbReadHandle.GetContext(ctx, &row,
		`SELECT id, requesterid, addresseeid, status, created FROM friendships WHERE id=? LIMIT 1`, id); err != nil {
		return nil, mapError(err)
	}
	f := row.toModel()
	return &f, nil
}

// UpdateFriendshipStatus sets the status of a friendship.
func (s *SqliteRepo) UpdateFriendshipStatus(ctx context.Context, id string, status model.FriendshipStatus) error {
	res, err := s.dbWriteHandle.ExecContext(ctx, `UPDATE friendships SET status=? WHERE id=?`, string(status), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteFriendship removes a friendship.
func (s *SqliteRepo) DeleteFriendship(ctx context.Context, id string) error {
	_, err := s.dbWriteHandle.ExecContext(ctx, `DELETE FROM friendships WHERE id=?`, id)
	return err
}

// GetFriendships returns all friendships a user is part of.
func (s *SqliteRepo) GetFriendships(ctx context.Context, userID string) ([]model.Friendship, error) {
	var rows []friendshipRow
	if err := s.dbReadHandle.SelectContext(ctx, &rows,
		`SELECT id, requesterid, addresseeid, status, created FROM friendships
		WHERE requesterid=? OR addresseeid=? ORDER BY created DESC`, userID, userID); err != nil {
		return nil, err
	}
	friendships := make([]model.Friendship, 0, len(rows))
	for _, r := range rows {
		friendships = append(friendships, r.toModel())
	}
	return friendships, nil
}
