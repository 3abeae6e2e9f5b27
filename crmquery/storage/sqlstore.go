package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"

	cqerrors "github.com/nonibytes/crmquery/crmquery/errors"
	"github.com/nonibytes/crmquery/crmquery/storage/sqlbuilder"
)

// SQLStore is a Store over a database/sql connection
type SQLStore struct {
	adapter Adapter
	db      *sql.DB
	now     func() time.Time
}

// Open connects through the adapter and creates the cache table if needed
func Open(ctx context.Context, a Adapter) (*SQLStore, error) {
	db, err := a.Connect(ctx)
	if err != nil {
		return nil, cqerrors.Wrap(cqerrors.ErrBackend, "connect "+string(a.Backend()), err)
	}
	if _, err := db.ExecContext(ctx, a.SQL().DDL); err != nil {
		_ = db.Close()
		return nil, cqerrors.Wrap(cqerrors.ErrSQL, "create cache table", err)
	}
	return &SQLStore{adapter: a, db: db, now: time.Now}, nil
}

func (s *SQLStore) Backend() Backend { return s.adapter.Backend() }

// DB exposes the underlying connection
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.adapter.SQL().Get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cqerrors.Wrap(cqerrors.ErrSQL, "get "+key, err)
	}
	return value, true, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, s.adapter.SQL().Put, key, value, s.now().UnixMilli()); err != nil {
		return cqerrors.Wrap(cqerrors.ErrSQL, "put "+key, err)
	}
	return nil
}

func (s *SQLStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	b := sqlbuilder.New(s.adapter.PlaceholderStyle())
	q := s.adapter.SQL().DeleteIn + b.In(keys)
	if _, err := s.db.ExecContext(ctx, q, b.Args()...); err != nil {
		return cqerrors.Wrap(cqerrors.ErrSQL, "remove", err)
	}
	return nil
}

func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.adapter.SQL().Keys, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return nil, cqerrors.Wrap(cqerrors.ErrSQL, "list keys", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, cqerrors.Wrap(cqerrors.ErrSQL, "scan key", err)
		}
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, cqerrors.Wrap(cqerrors.ErrSQL, "list keys", err)
	}
	return out, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
