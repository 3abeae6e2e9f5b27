package storage

import (
	"context"
	"database/sql"

	"github.com/nonibytes/crmquery/crmquery/storage/sqlbuilder"
)

type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Store is a key/value store for cached metadata snapshots
type Store interface {
	Backend() Backend
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, keys ...string) error
	// Keys returns the stored keys starting with prefix, sorted
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Adapter abstracts database-specific operations
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() sqlbuilder.PlaceholderStyle
	Connect(ctx context.Context) (*sql.DB, error)
	SQL() SQL
}

// SQL holds the statements a database adapter provides
type SQL struct {
	DDL string

	Get  string
	Put  string
	Keys string

	// DeleteIn is completed with a placeholder list
	DeleteIn string
}
