package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/nonibytes/crmquery/crmquery/storage"
	"github.com/nonibytes/crmquery/crmquery/storage/sqlbuilder"
)

type Adapter struct {
	DSN    string
	Schema string // used as dedicated schema via search_path
}

func New(dsn, schema string) *Adapter {
	return &Adapter{DSN: dsn, Schema: schema}
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle { return sqlbuilder.PlaceholderDollar }

func (a *Adapter) SQL() storage.SQL { return SQLTemplates }

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidSchema reports whether name can be used unescaped as a schema name
func ValidSchema(name string) bool {
	return schemaNameRe.MatchString(name)
}

func quoteIdent(ident string) string {
	return `"` + ident + `"`
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	if !ValidSchema(a.Schema) {
		return nil, fmt.Errorf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String())
	}

	// the schema must exist before search_path can point at it
	cfg0, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	db0 := stdlib.OpenDB(*cfg0)
	defer db0.Close()
	if _, err := db0.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(a.Schema)); err != nil {
		return nil, err
	}

	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", quoteIdent(a.Schema))

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

var SQLTemplates = storage.SQL{
	DDL: `CREATE TABLE IF NOT EXISTS meta_cache (
  key        TEXT PRIMARY KEY,
  value      BYTEA NOT NULL,
  updated_at BIGINT NOT NULL
);`,
	Get:      "SELECT value FROM meta_cache WHERE key = $1",
	Put:      "INSERT INTO meta_cache(key, value, updated_at) VALUES($1, $2, $3) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
	Keys:     "SELECT key FROM meta_cache WHERE substr(key, 1, $1) = $2 ORDER BY key",
	DeleteIn: "DELETE FROM meta_cache WHERE key IN ",
}
