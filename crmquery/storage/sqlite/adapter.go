package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/nonibytes/crmquery/crmquery/storage"
	"github.com/nonibytes/crmquery/crmquery/storage/sqlbuilder"
)

// Driver names registered by the supported SQLite drivers
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3
)

type Adapter struct {
	Path       string
	DriverName string
}

func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: DriverModernc}
}

func NewWithDriver(path, driver string) *Adapter {
	if driver == "" {
		driver = DriverModernc
	}
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle {
	return sqlbuilder.PlaceholderQuestion
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	dsn := a.Path
	if !strings.Contains(dsn, "?") {
		dsn = dsn + "?_busy_timeout=5000"
	} else {
		dsn = dsn + "&_busy_timeout=5000"
	}
	db, err := sql.Open(a.DriverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")
	return db, nil
}

func (a *Adapter) SQL() storage.SQL {
	return SQLTemplates
}

var SQLTemplates = storage.SQL{
	DDL: `CREATE TABLE IF NOT EXISTS meta_cache (
  key        TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  updated_at INTEGER NOT NULL
);`,
	Get:      "SELECT value FROM meta_cache WHERE key = ?1",
	Put:      "INSERT INTO meta_cache(key, value, updated_at) VALUES(?1, ?2, ?3) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
	Keys:     "SELECT key FROM meta_cache WHERE substr(key, 1, ?1) = ?2 ORDER BY key",
	DeleteIn: "DELETE FROM meta_cache WHERE key IN ",
}
