package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-connect/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const resolvedUserCacheKeyPrefix = "go-connect::resolved_user::v1"

// CachedResolvedUserStore fronts a resolved-user store with a read-through
// cache. The mapping is read on every orchestrator operation and changes
// only when an aggregator re-resolves a user, so writes invalidate and
// reads populate.
type CachedResolvedUserStore struct {
	base  core.ResolvedUserStore
	cache repositorycache.CacheService
}

func NewCachedResolvedUserStore(
	base core.ResolvedUserStore,
	cacheService repositorycache.CacheService,
) (*CachedResolvedUserStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base resolved user store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: resolved user cache service is required")
	}
	return &CachedResolvedUserStore{base: base, cache: cacheService}, nil
}

// ResolvedUserCacheKey returns the deterministic cache key contract:
// go-connect::resolved_user::v1::<aggregator>::<user_id>, each segment
// URL-path escaped after normalization.
func ResolvedUserCacheKey(aggregator string, userID string) (string, error) {
	aggregator = strings.TrimSpace(strings.ToLower(aggregator))
	userID = strings.TrimSpace(userID)
	if aggregator == "" {
		return "", fmt.Errorf("sqlstore: aggregator is required")
	}
	if userID == "" {
		return "", fmt.Errorf("sqlstore: user id is required")
	}
	return strings.Join([]string{
		resolvedUserCacheKeyPrefix,
		url.PathEscape(aggregator),
		url.PathEscape(userID),
	}, "::"), nil
}

type cachedResolvedUser struct {
	ResolvedID string
	Found      bool
}

func (s *CachedResolvedUserStore) Get(ctx context.Context, aggregator string, userID string) (string, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", false, fmt.Errorf("sqlstore: cached resolved user store is not configured")
	}
	cacheKey, err := ResolvedUserCacheKey(aggregator, userID)
	if err != nil {
		return "", false, err
	}

	entry, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedResolvedUser, error) {
		resolved, found, fetchErr := s.base.Get(ctx, aggregator, userID)
		if fetchErr != nil {
			return cachedResolvedUser{}, fetchErr
		}
		return cachedResolvedUser{ResolvedID: resolved, Found: found}, nil
	})
	if err != nil {
		return "", false, err
	}
	return entry.ResolvedID, entry.Found, nil
}

func (s *CachedResolvedUserStore) Set(ctx context.Context, aggregator string, userID string, resolvedID string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached resolved user store is not configured")
	}
	if err := s.base.Set(ctx, aggregator, userID, resolvedID); err != nil {
		return err
	}
	cacheKey, err := ResolvedUserCacheKey(aggregator, userID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.ResolvedUserStore = (*CachedResolvedUserStore)(nil)
