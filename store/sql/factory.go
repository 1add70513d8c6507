package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-upgrades/core"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db *bun.DB

	bindingStore   *BindingStore
	ownershipStore *OwnershipStore
	eventJournal   *EventJournal
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
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
	if f.bindingStore != nil && f.ownershipStore != nil && f.eventJournal != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) BindingStore() core.BindingStore {
	if f == nil {
		return nil
	}
	return f.bindingStore
}

func (f *RepositoryFactory) OwnershipStore() core.OwnershipStore {
	if f == nil {
		return nil
	}
	return f.ownershipStore
}

func (f *RepositoryFactory) EventJournal() core.EventJournal {
	if f == nil {
		return nil
	}
	return f.eventJournal
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	bindingStore, err := NewBindingStore(f.db)
	if err != nil {
		return err
	}
	f.bindingStore = bindingStore

	ownershipStore, err := NewOwnershipStore(f.db)
	if err != nil {
		return err
	}
	f.ownershipStore = ownershipStore

	eventJournal, err := NewEventJournal(f.db)
	if err != nil {
		return err
	}
	f.eventJournal = eventJournal

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
