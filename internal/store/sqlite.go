package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/deep-research/internal/db"
	"github.com/sells-group/deep-research/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Times are stored as
// unix milliseconds so expiry comparisons do not depend on SQLite's date
// functions.
type SQLiteStore struct {
	db        *sql.DB
	upsertSQL string
	nowFunc   func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	upsert, err := db.UpsertSQL(upsertColumns, db.Question)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn, upsertSQL: upsert, nowFunc: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS research_cache (
	cache_key  TEXT PRIMARY KEY,
	entry      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_research_cache_expires_at ON research_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetBundle(ctx context.Context, key string) (*model.CacheEntry, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT entry FROM research_cache WHERE cache_key = ? AND expires_at >= ?`,
		key, s.nowFunc().UnixMilli(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get bundle %s", key)
	}
	return unmarshalEntry([]byte(data))
}

func (s *SQLiteStore) PutBundle(ctx context.Context, key string, entry model.CacheEntry, ttl time.Duration) error {
	data, err := marshalEntry(entry)
	if err != nil {
		return err
	}

	created := entry.Timestamp
	if created.IsZero() {
		created = s.nowFunc()
	}

	_, err = s.db.ExecContext(ctx, s.upsertSQL,
		key, string(data), created.UnixMilli(), created.Add(ttl).UnixMilli(),
	)
	return eris.Wrapf(err, "sqlite: put bundle %s", key)
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM research_cache WHERE expires_at < ?`,
		s.nowFunc().UnixMilli(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
