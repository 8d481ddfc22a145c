package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/erikbos/wavesync/database/model"
)

type SqliteRepo struct {
	// Read db handle
	dbReadHandle *sqlx.DB
	// Handle specfically for writes
	dbWriteHandle *sqlx.DB
	// in-memory access token store, last use is written to the database periodically.
	accessTokenCache map[string]*model.AccessToken
	// last time the access token cache was synced to the database
	accessTokenCacheSyncTime time.Time
	// mutex to protect access to in-memory stores
	mu sync.Mutex
}

// ConfigFile holds configuration options
type ConfigFile struct {
	Filename string `mapstructure:"filename" yaml:"filename"`
}

// TrackQuery filters library and history selects.
type TrackQuery struct {
	// ArtistLike matches artist names containing this string, case-insensitive.
	ArtistLike string
	// Artists restricts results to these exact artist names.
	Artists []string
	// Limit caps the number of rows, 0 means no limit.
	Limit int
}

// New initializes a sqlite database and creates schema if necssary.
func New(o *ConfigFile) (*SqliteRepo, error) {
	if o == nil || o.Filename == "" {
		return nil, model.ErrNoConfiguration
	}

	dsn := o.Filename + "?_foreign_keys=on&_busy_timeout=5000"

	dbHandle, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	dbHandle.SetMaxOpenConns(max(4, runtime.NumCPU()))

	writeDB, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite needs to have a single writer
	writeDB.SetMaxOpenConns(1)

	if err := dbInitSchema(writeDB); err != nil {
		return nil, err
	}

	d := &SqliteRepo{
		dbReadHandle:     dbHandle,
		dbWriteHandle:    writeDB,
		accessTokenCache: make(map[string]*model.AccessToken),
	}
	return d, nil
}

// StartBackgroundJobs starts background jobs for the database repository.
// these jobs handle periodic syncing of in-memory caches to the database.
func (s *SqliteRepo) StartBackgroundJobs(ctx context.Context) {
	syncInterval := 10 * time.Second

	go s.accessTokenBackgroundJob(ctx, syncInterval)
}

// Ping reports whether the database is reachable.
func (s *SqliteRepo) Ping(ctx context.Context) error {
	if s.dbReadHandle == nil {
		return model.ErrNoDbHandle
	}
	return s.dbReadHandle.PingContext(ctx)
}

// Close closes both database handles.
func (s *SqliteRepo) Close() error {
	return errors.Join(s.dbReadHandle.Close(), s.dbWriteHandle.Close())
}

// mapError translates driver errors into model errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %s", model.ErrConflict, sqliteErr.Error())
		}
	}
	return err
}

// trackFilter appends the TrackQuery conditions to a query.
func trackFilter(query string, args []any, q TrackQuery, orderBy string) (string, []any, error) {
	if q.ArtistLike != "" {
		query += " AND artist LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(q.ArtistLike)+"%")
	}
	if len(q.Artists) > 0 {
		in, inArgs, err := sqlx.In(" AND artist IN (?)", q.Artists)
		if err != nil {
			return "", nil, err
		}
		query += in
		args = append(args, inArgs...)
	}
	query += " ORDER BY " + orderBy
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}
	return query, args, nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
