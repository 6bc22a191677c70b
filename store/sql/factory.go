package sqlstore

import (
	"fmt"
	"time"

	"github.com/goliatone/go-connect/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

// RepositoryFactory builds the durable store set from a persistence
// client or a raw bun db and satisfies core.StoreProvider.
type RepositoryFactory struct {
	db    *bun.DB
	ttl   time.Duration
	cache repositorycache.CacheService

	correlationStore   *CorrelationStore
	resolvedUserStore  *ResolvedUserStore
	cachedResolvedUser *CachedResolvedUserStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

// WithCorrelationTTL overrides the default record expiry applied when the
// caller's write does not carry one.
func (f *RepositoryFactory) WithCorrelationTTL(ttl time.Duration) *RepositoryFactory {
	if f != nil && ttl > 0 {
		f.ttl = ttl
	}
	return f
}

// WithResolvedUserCache fronts resolved-user reads with a read-through
// cache service.
func (f *RepositoryFactory) WithResolvedUserCache(cacheService repositorycache.CacheService) *RepositoryFactory {
	if f != nil && cacheService != nil {
		f.cache = cacheService
	}
	return f
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.correlationStore != nil && f.resolvedUserStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) CorrelationStore() core.CorrelationStore {
	if f == nil {
		return nil
	}
	return f.correlationStore
}

func (f *RepositoryFactory) ResolvedUserStore() core.ResolvedUserStore {
	if f == nil {
		return nil
	}
	if f.cachedResolvedUser != nil {
		return f.cachedResolvedUser
	}
	return f.resolvedUserStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	correlationStore, err := NewCorrelationStore(f.db, f.ttl)
	if err != nil {
		return err
	}
	f.correlationStore = correlationStore

	resolvedUserStore, err := NewResolvedUserStore(f.db)
	if err != nil {
		return err
	}
	f.resolvedUserStore = resolvedUserStore

	if f.cache != nil {
		cached, err := NewCachedResolvedUserStore(resolvedUserStore, f.cache)
		if err != nil {
			return err
		}
		f.cachedResolvedUser = cached
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

var _ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
var _ core.StoreProvider = (*RepositoryFactory)(nil)
