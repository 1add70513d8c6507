package upgrades

import (
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-upgrades/core"
	"github.com/goliatone/go-upgrades/directory"
	"github.com/goliatone/go-upgrades/proxy"
	sqlstore "github.com/goliatone/go-upgrades/store/sql"
	"github.com/uptrace/bun"
)

func DirectoryPackage(options ...directory.PackageOption) core.VersionedProvider {
	return directory.NewPackage(options...)
}

func InMemoryProxyFactory(options ...proxy.FactoryOption) core.ProxyFactory {
	return proxy.NewFactory(options...)
}

func OwnerGuard(initialOwner core.Address, options ...core.OwnerGuardOption) (core.AccessGuard, error) {
	return core.NewOwnerGuard(initialOwner, options...)
}

func MemoryEventBus() core.EventBus {
	return core.NewMemoryEventBus()
}

func MemoryBindingStore() core.BindingStore {
	return core.NewMemoryBindingStore()
}

func MemoryOwnershipStore() core.OwnershipStore {
	return core.NewMemoryOwnershipStore()
}

func MemoryEventJournal() core.EventJournal {
	return core.NewMemoryEventJournal()
}

func StaticLocator(packages ...core.VersionedProvider) core.PackageLocator {
	return core.NewStaticPackageLocator(packages...)
}

func SQLBindingStore(db *bun.DB) (core.BindingStore, error) {
	return sqlstore.NewBindingStore(db)
}

func SQLOwnershipStore(db *bun.DB) (core.OwnershipStore, error) {
	return sqlstore.NewOwnershipStore(db)
}

func SQLEventJournal(db *bun.DB) (core.EventJournal, error) {
	return sqlstore.NewEventJournal(db)
}

func SQLRepositoryFactory(db *bun.DB) (*sqlstore.RepositoryFactory, error) {
	return sqlstore.NewRepositoryFactoryFromDB(db)
}

func PersistenceRepositoryFactory(client *persistence.Client) (*sqlstore.RepositoryFactory, error) {
	return sqlstore.NewRepositoryFactoryFromPersistence(client)
}

func CachedSQLBindingStore(base core.BindingStore, cacheService repositorycache.CacheService) (core.BindingStore, error) {
	return sqlstore.NewCachedBindingStore(base, cacheService)
}
