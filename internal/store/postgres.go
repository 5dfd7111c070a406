package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/deep-research/internal/db"
	"github.com/sells-group/deep-research/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool      db.Pool
	closeFn   func()
	upsertSQL string
	nowFunc   func() time.Time
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns > 0 {
		pgxCfg.MaxConns = maxConns
	}
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	s, err := newPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.closeFn = pool.Close
	return s, nil
}

func newPostgresStore(pool db.Pool) (*PostgresStore, error) {
	upsert, err := db.UpsertSQL(upsertColumns, db.Dollar)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool, upsertSQL: upsert, nowFunc: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS research_cache (
	cache_key  TEXT PRIMARY KEY,
	entry      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_research_cache_expires_at ON research_cache(expires_at);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetBundle(ctx context.Context, key string) (*model.CacheEntry, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT entry FROM research_cache WHERE cache_key = $1 AND expires_at >= $2`,
		key, s.nowFunc().UTC(),
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get bundle %s", key)
	}
	return unmarshalEntry(data)
}

func (s *PostgresStore) PutBundle(ctx context.Context, key string, entry model.CacheEntry, ttl time.Duration) error {
	data, err := marshalEntry(entry)
	if err != nil {
		return err
	}

	created := entry.Timestamp
	if created.IsZero() {
		created = s.nowFunc()
	}
	created = created.UTC()

	_, err = s.pool.Exec(ctx, s.upsertSQL, key, data, created, created.Add(ttl))
	return eris.Wrapf(err, "postgres: put bundle %s", key)
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM research_cache WHERE expires_at < $1`,
		s.nowFunc().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired")
	}
	return int(tag.RowsAffected()), nil
}
