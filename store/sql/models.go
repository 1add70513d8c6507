package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type bindingRecord struct {
	bun.BaseModel `bun:"table:upgrade_bindings,alias:ub"`

	ID             string     `bun:"id,pk"`
	Name           string     `bun:"name,notnull"`
	PackageAddress string     `bun:"package_address,notnull"`
	Version        string     `bun:"version,notnull"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete"`
}

type ownershipRecord struct {
	bun.BaseModel `bun:"table:upgrade_ownership,alias:uo"`

	ID            string    `bun:"id,pk"`
	Owner         string    `bun:"owner,notnull"`
	PreviousOwner string    `bun:"previous_owner"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type upgradeEventRecord struct {
	bun.BaseModel `bun:"table:upgrade_events,alias:ue"`

	ID             string         `bun:"id,pk"`
	EventType      string         `bun:"event_type,notnull"`
	PackageName    string         `bun:"package_name"`
	PackageAddress string         `bun:"package_address"`
	Version        string         `bun:"version"`
	ProxyAddress   string         `bun:"proxy_address"`
	PreviousOwner  string         `bun:"previous_owner"`
	NewOwner       string         `bun:"new_owner"`
	Actor          string         `bun:"actor"`
	Metadata       map[string]any `bun:"metadata,type:jsonb,notnull"`
	EmittedAt      time.Time      `bun:"emitted_at,notnull"`
	CreatedAt      time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
