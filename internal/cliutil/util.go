package cliutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/nonibytes/crmquery/internal/cliopt"
)

type OutputFormat string

const (
	FormatPretty OutputFormat = "pretty"
	FormatJSON   OutputFormat = "json"
)

func ParseOutputFormat(s string) OutputFormat {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON
	default:
		return FormatPretty
	}
}

func PrintJSON(w io.Writer, v any) error {
	b, err := gojson.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// ReadInput returns the contents of the file named by arg, or of stdin when arg is "-".
func ReadInput(stdin io.Reader, arg string) ([]byte, error) {
	if arg == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(arg)
}

// ResolveSQLitePath turns --sqlite-path into a database file. A directory
// (existing, or written with a trailing separator) gets crmquery.db inside it.
func ResolveSQLitePath(g cliopt.GlobalOptions) string {
	p := g.SQLitePath
	if p == "" {
		return "crmquery.db"
	}
	if strings.HasSuffix(p, string(filepath.Separator)) {
		return filepath.Join(p, "crmquery.db")
	}
	if fi, err := os.Stat(p); err == nil && fi.IsDir() {
		return filepath.Join(p, "crmquery.db")
	}
	return p
}
