package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"

	cqerrors "github.com/nonibytes/crmquery/crmquery/errors"
)

// EnvPrefix prefixes every environment variable the CLI reads
const EnvPrefix = "CRMQUERY_"

// Load fills target from an optional .env file and environment variables.
// prefix: Environment variable prefix (e.g. "CRMQUERY_")
// target: Pointer to the config struct; keys are the variable names without
// the prefix, lower-cased (CRMQUERY_PG_DSN -> pg_dsn). Fields with no matching
// variable keep their current value.
func Load(prefix string, target any) error {
	v := viper.New()
	prefixUpper := strings.ToUpper(prefix)

	// 1. Load from .env file (if exists)
	file := viper.New()
	file.SetConfigFile(".env")
	file.SetConfigType("env")
	if err := file.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return cqerrors.Wrap(cqerrors.ErrConfig, "read .env", err)
		}
	}
	for _, key := range file.AllKeys() {
		upper := strings.ToUpper(key)
		if strings.HasPrefix(upper, prefixUpper) {
			v.Set(propKey(upper, prefixUpper), file.Get(key))
		}
	}

	// 2. Environment variables override the file
	for _, envStr := range os.Environ() {
		key, value, ok := strings.Cut(envStr, "=")
		if !ok || !strings.HasPrefix(key, prefixUpper) {
			continue
		}
		v.Set(propKey(key, prefixUpper), value)
	}

	// 3. Unmarshal into struct
	if err := v.Unmarshal(target); err != nil {
		return cqerrors.Wrap(cqerrors.ErrConfig, "unmarshal config", err)
	}
	return nil
}

// propKey maps CRMQUERY_SQLITE_PATH to sqlite_path
func propKey(key, prefix string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimPrefix(key, prefix)), "_")
}
