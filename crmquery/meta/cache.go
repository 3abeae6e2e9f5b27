package meta

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nonibytes/crmquery/crmquery/codec"
	cqerrors "github.com/nonibytes/crmquery/crmquery/errors"
	"github.com/nonibytes/crmquery/crmquery/storage"
)

// KeyPrefix prefixes every cached snapshot key
const KeyPrefix = "meta/"

// DefaultTTL is how long a snapshot counts as fresh
const DefaultTTL = 24 * time.Hour

// Key returns the storage key of an entity's snapshot
func Key(entity string) string { return KeyPrefix + entity }

type CacheOptions struct {
	Codec  codec.Codec
	TTL    time.Duration
	Logger *slog.Logger
	Now    func() time.Time
}

func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		Codec:  codec.Default,
		TTL:    DefaultTTL,
		Logger: slog.Default(),
		Now:    time.Now,
	}
}

// Cache holds one immutable Schema snapshot per entity type.
// Merges for an entity are serialized; readers never block.
type Cache struct {
	store storage.Store
	opts  CacheOptions

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu     sync.Mutex // serializes loads and merges
	loaded atomic.Bool
	snap   atomic.Pointer[Schema]
}

// NewCache creates a cache persisting to store (in-memory when nil)
func NewCache(store storage.Store, opts CacheOptions) *Cache {
	def := DefaultCacheOptions()
	if store == nil {
		store = storage.NewMemory()
	}
	if opts.Codec == nil {
		opts.Codec = def.Codec
	}
	if opts.TTL <= 0 {
		opts.TTL = def.TTL
	}
	if opts.Logger == nil {
		opts.Logger = def.Logger
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &Cache{store: store, opts: opts, entries: make(map[string]*entry)}
}

// Store returns the backing store
func (c *Cache) Store() storage.Store { return c.store }

func (c *Cache) entry(entity string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[entity]
	if !ok {
		e = &entry{}
		c.entries[entity] = e
	}
	return e
}

// load hydrates e from the store; callers hold e.mu
func (c *Cache) load(ctx context.Context, entity string, e *entry) error {
	if e.loaded.Load() {
		return nil
	}
	data, ok, err := c.store.Get(ctx, Key(entity))
	if err != nil {
		return cqerrors.WrapEntity(cqerrors.ErrIO, entity, "load snapshot", err)
	}
	if ok {
		s, err := c.decode(data)
		if err != nil {
			return cqerrors.WrapEntity(cqerrors.ErrCodec, entity, "decode snapshot", err)
		}
		e.snap.Store(s)
	}
	e.loaded.Store(true)
	return nil
}

// Get returns the cached snapshot for entity, nil when nothing is known.
// The returned Schema must not be modified.
func (c *Cache) Get(ctx context.Context, entity string) (*Schema, error) {
	e := c.entry(entity)
	if !e.loaded.Load() {
		e.mu.Lock()
		err := c.load(ctx, entity, e)
		e.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
	return e.snap.Load(), nil
}

// Merge folds resp into the entity's snapshot and persists the result.
// A persistence failure still leaves the merged snapshot in memory.
// When the stored snapshot cannot be read, nothing is merged.
func (c *Cache) Merge(ctx context.Context, entity string, resp *Schema) (*Schema, error) {
	e := c.entry(entity)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := c.load(ctx, entity, e); err != nil {
		// an undecodable snapshot is replaced; a failed read must not be
		if !cqerrors.IsCode(err, cqerrors.ErrCodec) {
			return nil, err
		}
		c.opts.Logger.Warn("meta cache snapshot unreadable, replacing it", "entity", entity, "error", err)
		e.loaded.Store(true)
	}

	next := e.snap.Load().Merge(resp)
	if next.Entity == "" {
		next.Entity = entity
	}
	next.DateCached = Timestamp(c.opts.Now().UnixMilli())
	e.snap.Store(next)

	data, err := c.encode(next)
	if err != nil {
		return next, cqerrors.WrapEntity(cqerrors.ErrCodec, entity, "encode snapshot", err)
	}
	if err := c.store.Put(ctx, Key(entity), data); err != nil {
		return next, cqerrors.WrapEntity(cqerrors.ErrIO, entity, "persist snapshot", err)
	}
	c.opts.Logger.Debug("meta cache merged", "entity", entity, "fields", len(next.Fields))
	return next, nil
}

// Remove evicts the entity's snapshot
func (c *Cache) Remove(ctx context.Context, entity string) error {
	return c.remove(ctx, []string{entity})
}

func (c *Cache) remove(ctx context.Context, entities []string) error {
	if len(entities) == 0 {
		return nil
	}
	keys := make([]string, len(entities))
	for i, entity := range entities {
		e := c.entry(entity)
		e.mu.Lock()
		e.snap.Store(nil)
		e.loaded.Store(true)
		e.mu.Unlock()
		keys[i] = Key(entity)
	}
	if err := c.store.Remove(ctx, keys...); err != nil {
		return cqerrors.Wrap(cqerrors.ErrIO, "remove snapshots", err)
	}
	return nil
}

// Fresh reports whether the entity's snapshot was cached within the TTL
func (c *Cache) Fresh(ctx context.Context, entity string) bool {
	s, err := c.Get(ctx, entity)
	if err != nil || s == nil {
		return false
	}
	if s.DateCached == 0 {
		return true
	}
	expiration := c.opts.Now().Add(-c.opts.TTL).UnixMilli()
	return int64(s.DateCached) > expiration
}

// Version is the server's last-modified stamp for one entity type
type Version struct {
	Entity           string    `json:"entity"`
	DateLastModified Timestamp `json:"dateLastModified,omitempty"`
}

// Validate evicts snapshots whose DateLastModified differs from the server's,
// and every entity the server lists without a timestamp. It returns the
// entities that had a snapshot and were evicted.
func (c *Cache) Validate(ctx context.Context, versions []Version) ([]string, error) {
	var drop, evicted []string
	for _, v := range versions {
		s, err := c.Get(ctx, v.Entity)
		if err != nil {
			c.opts.Logger.Warn("meta cache unreadable, evicting", "entity", v.Entity, "error", err)
			drop = append(drop, v.Entity)
			continue
		}
		if v.DateLastModified != 0 && (s == nil || s.DateLastModified == v.DateLastModified) {
			continue
		}
		drop = append(drop, v.Entity)
		if s != nil {
			evicted = append(evicted, v.Entity)
		}
	}
	if err := c.remove(ctx, drop); err != nil {
		return evicted, err
	}
	if len(evicted) > 0 {
		c.opts.Logger.Info("meta cache evicted stale entities", "entities", evicted)
	}
	return evicted, nil
}

// Entities lists the entity types with a persisted snapshot
func (c *Cache) Entities(ctx context.Context) ([]string, error) {
	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, cqerrors.Wrap(cqerrors.ErrIO, "list snapshots", err)
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = strings.TrimPrefix(k, KeyPrefix)
	}
	return out, nil
}

// snapshots are stored as "<codec name>\n<payload>"
func (c *Cache) encode(s *Schema) ([]byte, error) {
	payload, err := c.opts.Codec.Marshal(s)
	if err != nil {
		return nil, err
	}
	name := c.opts.Codec.Name()
	out := make([]byte, 0, len(name)+1+len(payload))
	out = append(out, name...)
	out = append(out, '\n')
	return append(out, payload...), nil
}

func (c *Cache) decode(data []byte) (*Schema, error) {
	name, payload, ok := bytes.Cut(data, []byte{'\n'})
	if !ok {
		return nil, cqerrors.NewError(cqerrors.ErrCodec, "snapshot has no codec header")
	}
	cd, ok := codec.ByName(string(name))
	if !ok {
		return nil, cqerrors.NewError(cqerrors.ErrCodec, "unknown snapshot codec "+string(name))
	}
	var s Schema
	if err := cd.Unmarshal(payload, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
