// Package store persists research cache entries so they survive restarts
// and can be shared between processes. It is the second tier behind the
// in-memory cache.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/db"
	"github.com/sells-group/deep-research/internal/model"
)

const (
	cacheTable = "research_cache"

	defaultSQLitePath = "deep-research.db"
)

// Store defines the persistence interface for cached research bundles.
type Store interface {
	// GetBundle returns the live entry for key, or nil when missing or
	// expired.
	GetBundle(ctx context.Context, key string) (*model.CacheEntry, error)
	// PutBundle upserts the entry for key, expiring ttl after its timestamp.
	PutBundle(ctx context.Context, key string, entry model.CacheEntry, ttl time.Duration) error
	// DeleteExpired removes expired rows and reports how many were removed.
	DeleteExpired(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open builds the store selected by cfg.Driver and migrates it. An empty
// driver returns a nil Store and no error.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "":
		return nil, nil
	case "sqlite":
		path := cfg.DatabaseURL
		if path == "" {
			path = defaultSQLitePath
		}
		st, err = NewSQLite(path)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, cfg.MaxConns)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

var upsertColumns = db.UpsertConfig{
	Table:        cacheTable,
	Columns:      []string{"cache_key", "entry", "created_at", "expires_at"},
	ConflictKeys: []string{"cache_key"},
}

func marshalEntry(entry model.CacheEntry) ([]byte, error) {
	data, err := json.Marshal(entry)
	return data, eris.Wrap(err, "store: marshal entry")
}

func unmarshalEntry(data []byte) (*model.CacheEntry, error) {
	var entry model.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal entry")
	}
	return &entry, nil
}
