package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-upgrades/core"
)

const bindingCacheKeyPrefix = "go-upgrades::binding::v1"

// cachedBindingEntry wraps the lookup outcome so registry misses are
// cached alongside hits and do not hammer the base store.
type cachedBindingEntry struct {
	Record core.BindingRecord
	Found  bool
}

type CachedBindingStore struct {
	base  core.BindingStore
	cache repositorycache.CacheService
}

func NewCachedBindingStore(
	base core.BindingStore,
	cacheService repositorycache.CacheService,
) (*CachedBindingStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base binding store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: binding cache service is required")
	}
	return &CachedBindingStore{base: base, cache: cacheService}, nil
}

// BindingCacheKey returns the deterministic cache key contract for
// binding reads: go-upgrades::binding::v1::<name> with the name segment
// URL-path escaped after trimming.
func BindingCacheKey(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("sqlstore: binding name is required")
	}
	return strings.Join([]string{bindingCacheKeyPrefix, url.PathEscape(name)}, "::"), nil
}

func (s *CachedBindingStore) Save(ctx context.Context, in core.BindingRecord) (core.BindingRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.BindingRecord{}, fmt.Errorf("sqlstore: cached binding store is not configured")
	}
	saved, err := s.base.Save(ctx, in)
	if err != nil {
		return core.BindingRecord{}, err
	}

	cacheKey, err := BindingCacheKey(saved.Name)
	if err != nil {
		return core.BindingRecord{}, err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.BindingRecord{}, err
	}
	return saved, nil
}

func (s *CachedBindingStore) Get(ctx context.Context, name string) (core.BindingRecord, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.BindingRecord{}, false, fmt.Errorf("sqlstore: cached binding store is not configured")
	}
	cacheKey, err := BindingCacheKey(name)
	if err != nil {
		return core.BindingRecord{}, false, err
	}

	entry, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedBindingEntry, error) {
		record, found, fetchErr := s.base.Get(ctx, name)
		if fetchErr != nil {
			return cachedBindingEntry{}, fetchErr
		}
		return cachedBindingEntry{Record: record, Found: found}, nil
	})
	if err != nil {
		return core.BindingRecord{}, false, err
	}
	return entry.Record, entry.Found, nil
}

// List always reads through to the base store; collection results churn
// on every pin change and are not worth invalidation bookkeeping.
func (s *CachedBindingStore) List(ctx context.Context) ([]core.BindingRecord, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached binding store is not configured")
	}
	return s.base.List(ctx)
}

func (s *CachedBindingStore) Delete(ctx context.Context, name string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached binding store is not configured")
	}
	if err := s.base.Delete(ctx, name); err != nil {
		return err
	}

	cacheKey, err := BindingCacheKey(name)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.BindingStore = (*CachedBindingStore)(nil)
