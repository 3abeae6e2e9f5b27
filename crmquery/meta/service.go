package meta

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	cqerrors "github.com/nonibytes/crmquery/crmquery/errors"
)

// Metadata detail levels understood by the server
const (
	StyleBasic = "basic"
	StyleFull  = "full"
	StyleTrack = "track"
)

// Request asks the server for metadata of some fields of one entity
type Request struct {
	Entity string
	Fields string // field selection, "*" for all
	Layout string
	Style  string
}

// Fetcher retrieves metadata from the server
type Fetcher interface {
	FetchMeta(ctx context.Context, req Request) (*Schema, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, req Request) (*Schema, error)

func (f FetcherFunc) FetchMeta(ctx context.Context, req Request) (*Schema, error) {
	return f(ctx, req)
}

// Service resolves field metadata, fetching only what the cache lacks
type Service struct {
	Cache   *Cache
	Fetcher Fetcher
	// Limiter throttles fetches when set
	Limiter *rate.Limiter
	Logger  *slog.Logger
	// Style is sent with every request; StyleFull when empty
	Style string
	// Concurrency caps GetMany's parallel lookups; 0 means unlimited
	Concurrency int

	group singleflight.Group
}

func NewService(cache *Cache, fetcher Fetcher) *Service {
	return &Service{Cache: cache, Fetcher: fetcher, Logger: slog.Default(), Style: StyleFull}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Get returns descriptors for the requested fields of entity, id first
func (s *Service) Get(ctx context.Context, entity string, requested []string) ([]Descriptor, error) {
	return s.GetLayout(ctx, entity, requested, "")
}

// GetLayout is Get that always fetches when a layout is named
func (s *Service) GetLayout(ctx context.Context, entity string, requested []string, layout string) ([]Descriptor, error) {
	snap, err := s.Cache.Get(ctx, entity)
	if err != nil {
		if !cqerrors.IsCode(err, cqerrors.ErrCodec) {
			return nil, err
		}
		s.logger().Warn("meta cache snapshot unreadable, fetching everything", "entity", entity, "error", err)
		snap = nil
	}
	residual := Residual(snap, strings.Join(requested, ","))
	if residual != "" || layout != "" {
		if err := s.fetch(ctx, entity, residual, layout); err != nil {
			return nil, err
		}
		if snap, err = s.Cache.Get(ctx, entity); err != nil {
			return nil, err
		}
	}
	return snap.Extract(requested), nil
}

func (s *Service) fetch(ctx context.Context, entity, residual, layout string) error {
	if s.Fetcher == nil {
		return cqerrors.NewError(cqerrors.ErrUsage, "meta service has no fetcher")
	}
	if residual == "" {
		residual = "*"
	}
	key := entity + "\x00" + layout + "\x00" + residual
	_, err, shared := s.group.Do(key, func() (any, error) {
		if s.Limiter != nil {
			if err := s.Limiter.Wait(ctx); err != nil {
				return nil, cqerrors.WrapEntity(cqerrors.ErrFetch, entity, "rate limit", err)
			}
		}
		style := s.Style
		if style == "" {
			style = StyleFull
		}
		req := Request{Entity: entity, Fields: residual, Layout: layout, Style: style}
		s.logger().Debug("fetching meta", "entity", entity, "fields", residual, "layout", layout)
		resp, err := s.Fetcher.FetchMeta(ctx, req)
		if err != nil {
			return nil, cqerrors.WrapEntity(cqerrors.ErrFetch, entity, "fetch meta", err)
		}
		if resp == nil {
			return nil, cqerrors.WrapEntity(cqerrors.ErrFetch, entity, "empty meta response", nil)
		}
		if _, err := s.Cache.Merge(ctx, entity, resp); err != nil {
			// the in-memory snapshot is updated even when persisting fails
			s.logger().Warn("meta cache persist failed", "entity", entity, "error", err)
		}
		return nil, nil
	})
	if shared {
		s.logger().Debug("meta fetch shared", "entity", entity)
	}
	return err
}

// Missing returns the residual field selection for entity
func (s *Service) Missing(ctx context.Context, entity string, requested []string) (string, error) {
	snap, err := s.Cache.Get(ctx, entity)
	if err != nil {
		return "", err
	}
	return Residual(snap, strings.Join(requested, ",")), nil
}

// GetMany resolves several entities in parallel
func (s *Service) GetMany(ctx context.Context, requested map[string][]string) (map[string][]Descriptor, error) {
	g, gctx := errgroup.WithContext(ctx)
	if s.Concurrency > 0 {
		g.SetLimit(s.Concurrency)
	}
	var mu sync.Mutex
	out := make(map[string][]Descriptor, len(requested))
	for entity, names := range requested {
		g.Go(func() error {
			ds, err := s.Get(gctx, entity, names)
			if err != nil {
				return err
			}
			mu.Lock()
			out[entity] = ds
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate evicts stale snapshots; see Cache.Validate
func (s *Service) Validate(ctx context.Context, versions []Version) ([]string, error) {
	return s.Cache.Validate(ctx, versions)
}

