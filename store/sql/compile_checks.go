package sqlstore

import "github.com/goliatone/go-upgrades/core"

var (
	_ core.BindingStore           = (*BindingStore)(nil)
	_ core.OwnershipStore         = (*OwnershipStore)(nil)
	_ core.EventJournal           = (*EventJournal)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
