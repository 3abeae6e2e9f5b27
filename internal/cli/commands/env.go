package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nonibytes/crmquery/crmquery/codec"
	cqerrors "github.com/nonibytes/crmquery/crmquery/errors"
	"github.com/nonibytes/crmquery/crmquery/meta"
	"github.com/nonibytes/crmquery/crmquery/storage"
	"github.com/nonibytes/crmquery/crmquery/storage/postgres"
	"github.com/nonibytes/crmquery/crmquery/storage/sqlite"
	"github.com/nonibytes/crmquery/internal/cliopt"
	"github.com/nonibytes/crmquery/internal/cliutil"
)

// Env is shared by every command. Opts is filled in by flag parsing and
// Logger by the root command before any command runs.
type Env struct {
	Opts   *cliopt.GlobalOptions
	Logger *slog.Logger
}

func (e *Env) format() cliutil.OutputFormat {
	return cliutil.ParseOutputFormat(e.Opts.Format)
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// OpenStore opens the configured cache backend
func (e *Env) OpenStore(ctx context.Context) (storage.Store, error) {
	g := *e.Opts
	switch storage.Backend(strings.ToLower(g.Backend)) {
	case storage.BackendMemory:
		return storage.NewMemory(), nil
	case storage.BackendSQLite:
		path := cliutil.ResolveSQLitePath(g)
		e.logger().Debug("opening sqlite cache", "path", path, "driver", g.SQLiteDriver)
		return storage.Open(ctx, sqlite.NewWithDriver(path, g.SQLiteDriver))
	case storage.BackendPostgres:
		if g.PostgresDSN == "" {
			return nil, cqerrors.NewError(cqerrors.ErrConfig, "postgres backend needs --pg-dsn or CRMQUERY_PG_DSN")
		}
		if !postgres.ValidSchema(g.PostgresSchema) {
			return nil, cqerrors.NewError(cqerrors.ErrConfig, "invalid postgres schema name: "+g.PostgresSchema)
		}
		e.logger().Debug("opening postgres cache", "schema", g.PostgresSchema)
		return storage.Open(ctx, postgres.New(g.PostgresDSN, g.PostgresSchema))
	default:
		return nil, cqerrors.NewError(cqerrors.ErrUsage, "unknown backend: "+g.Backend)
	}
}

// OpenCache opens the store and wraps it in a metadata cache.
// Callers close the cache's Store when done.
func (e *Env) OpenCache(ctx context.Context) (*meta.Cache, error) {
	c, ok := codec.ByName(e.Opts.Codec)
	if !ok {
		return nil, cqerrors.NewError(cqerrors.ErrUsage, "unknown codec: "+e.Opts.Codec)
	}
	store, err := e.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	return meta.NewCache(store, meta.CacheOptions{
		Codec:  c,
		TTL:    e.Opts.TTL,
		Logger: e.logger(),
	}), nil
}
