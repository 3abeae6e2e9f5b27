package where

import (
	"fmt"
	"strings"

	cqerrors "github.com/nonibytes/crmquery/crmquery/errors"
)

// Dialect selects the target query language
type Dialect int

const (
	// Search is the full-text (Lucene style) dialect
	Search Dialect = iota
	// Query is the structured (JPQL style) dialect
	Query
)

func (d Dialect) String() string {
	switch d {
	case Search:
		return "search"
	case Query:
		return "query"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

// ParseDialect maps a dialect name to its Dialect
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "search", "lucene":
		return Search, nil
	case "query", "":
		return Query, nil
	default:
		return 0, cqerrors.NewError(cqerrors.ErrUsage, fmt.Sprintf("unknown dialect %q", s))
	}
}

// operator keys recognised inside a field's object
var reserved = map[string]bool{
	"isNull":   true,
	"min":      true,
	"max":      true,
	"any":      true,
	"all":      true,
	"not":      true,
	"like":     true,
	"lookup":   true,
	"with":     true,
	"without":  true,
	"or":       true,
	"orMinMax": true,
	"memberOf": true,
}

// Reserved reports whether key is an operator key rather than a field name
func Reserved(key string) bool { return reserved[key] }

// Where is never constructed; see New.
type Where struct{}

// New always fails: the compiler is a set of functions, not an object.
func New() (*Where, error) {
	return nil, cqerrors.NewError(cqerrors.ErrUsage, "where: cannot construct a static compiler")
}

// Build compiles spec into an expression tree for the given dialect
func Build(spec Spec, d Dialect) Expr {
	if d == Search {
		return searchTerms(spec)
	}
	return queryTerms(spec)
}

// Compile compiles spec to its text form for the given dialect
func Compile(spec Spec, d Dialect) string {
	return Render(Build(spec, d))
}

// ToSearch compiles spec to the full-text search dialect
func ToSearch(spec Spec) string { return Compile(spec, Search) }

// ToQuery compiles spec to the structured query dialect
func ToQuery(spec Spec) string { return Compile(spec, Query) }
