package cliopt

import (
	"time"

	"github.com/spf13/pflag"
)

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
// Values come from defaults, then CRMQUERY_* environment variables, then flags.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command and per-command code.
type GlobalOptions struct {
	Backend        string        `mapstructure:"backend"`
	SQLitePath     string        `mapstructure:"sqlite_path"`
	SQLiteDriver   string        `mapstructure:"sqlite_driver"`
	PostgresDSN    string        `mapstructure:"pg_dsn"`
	PostgresSchema string        `mapstructure:"pg_schema"`
	Codec          string        `mapstructure:"codec"`
	TTL            time.Duration `mapstructure:"ttl"`

	Format   string `mapstructure:"format"`
	LogLevel string `mapstructure:"log_level"`
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Backend:        "sqlite",
		SQLitePath:     "crmquery.db",
		SQLiteDriver:   "sqlite",
		PostgresSchema: "crmquery",
		Codec:          "go-json",
		TTL:            24 * time.Hour,
		Format:         "pretty",
		LogLevel:       "warn",
	}
}

func BindGlobalFlags(fs *pflag.FlagSet, g *GlobalOptions) {
	fs.StringVar(&g.Backend, "backend", g.Backend, "cache backend: memory|sqlite|postgres")

	fs.StringVar(&g.SQLitePath, "sqlite-path", g.SQLitePath, "sqlite directory or explicit .db file path")
	fs.StringVar(&g.SQLiteDriver, "sqlite-driver", g.SQLiteDriver, "sqlite driver: sqlite (pure Go) | sqlite3 (cgo)")

	fs.StringVar(&g.PostgresDSN, "pg-dsn", g.PostgresDSN, "postgres DSN")
	fs.StringVar(&g.PostgresSchema, "pg-schema", g.PostgresSchema, "postgres schema holding the cache table")

	fs.StringVar(&g.Codec, "codec", g.Codec, "snapshot codec: go-json|msgpack")
	fs.DurationVar(&g.TTL, "ttl", g.TTL, "how long cached metadata counts as fresh")

	fs.StringVar(&g.Format, "format", g.Format, "output: pretty|json")
	fs.StringVar(&g.LogLevel, "log-level", g.LogLevel, "log level: debug|info|warn|error")
}
