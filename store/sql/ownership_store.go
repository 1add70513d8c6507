package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-upgrades/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OwnershipStore keeps the trusted-owner lineage in upgrade_ownership.
// Save appends a row per transfer so Current always resolves from the
// newest record and the handoff history stays queryable.
type OwnershipStore struct {
	db   *bun.DB
	repo repository.Repository[*ownershipRecord]
}

func NewOwnershipStore(db *bun.DB) (*OwnershipStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*ownershipRecord](db, ownershipHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid ownership repository wiring: %w", err)
		}
	}
	return &OwnershipStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *OwnershipStore) Current(ctx context.Context) (core.OwnershipRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.OwnershipRecord{}, false, fmt.Errorf("sqlstore: ownership store is not configured")
	}

	record := &ownershipRecord{}
	err := s.db.NewSelect().
		Model(record).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.OwnershipRecord{}, false, nil
		}
		return core.OwnershipRecord{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *OwnershipStore) Save(ctx context.Context, in core.OwnershipRecord) (core.OwnershipRecord, error) {
	if s == nil || s.db == nil {
		return core.OwnershipRecord{}, fmt.Errorf("sqlstore: ownership store is not configured")
	}
	if in.Owner.IsZero() {
		return core.OwnershipRecord{}, fmt.Errorf("sqlstore: owner address is required")
	}
	now := time.Now().UTC()
	updatedAt := in.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	var out core.OwnershipRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		previous := ""
		current := &ownershipRecord{}
		err := tx.NewSelect().
			Model(current).
			OrderExpr("?TableAlias.created_at DESC").
			Limit(1).
			Scan(ctx)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		if err == nil {
			previous = current.Owner
		}

		record := &ownershipRecord{
			ID:            uuid.NewString(),
			Owner:         in.Owner.String(),
			PreviousOwner: previous,
			CreatedAt:     now,
			UpdatedAt:     updatedAt,
		}
		if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
			return insertErr
		}
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.OwnershipRecord{}, err
	}
	return out, nil
}
