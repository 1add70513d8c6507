package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-upgrades/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BindingStore mirrors committed registry bindings into upgrade_bindings.
// One live row per package name; Delete soft-deletes so prior pins stay
// inspectable.
type BindingStore struct {
	db   *bun.DB
	repo repository.Repository[*bindingRecord]
}

func NewBindingStore(db *bun.DB) (*BindingStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*bindingRecord](db, bindingHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid binding repository wiring: %w", err)
		}
	}
	return &BindingStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *BindingStore) Save(ctx context.Context, in core.BindingRecord) (core.BindingRecord, error) {
	if s == nil || s.db == nil {
		return core.BindingRecord{}, fmt.Errorf("sqlstore: binding store is not configured")
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return core.BindingRecord{}, fmt.Errorf("sqlstore: binding name is required")
	}
	if in.PackageAddress.IsZero() {
		return core.BindingRecord{}, fmt.Errorf("sqlstore: package address is required")
	}
	if strings.TrimSpace(in.Version) == "" {
		return core.BindingRecord{}, fmt.Errorf("sqlstore: version is required")
	}
	now := time.Now().UTC()

	var out core.BindingRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findBindingTx(ctx, tx, in.Name)
		if err != nil {
			return err
		}
		if record == nil {
			record = newBindingRecord(in, now)
			record.ID = uuid.NewString()
			if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
				if isUniqueViolation(insertErr) {
					record, err = findBindingTx(ctx, tx, in.Name)
					if err != nil {
						return err
					}
					if record == nil {
						return insertErr
					}
				} else {
					return insertErr
				}
			}
			out = record.toDomain()
			return nil
		}

		record.PackageAddress = in.PackageAddress.String()
		record.Version = in.Version
		record.UpdatedAt = now
		if !in.UpdatedAt.IsZero() {
			record.UpdatedAt = in.UpdatedAt
		}
		if _, updateErr := tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx); updateErr != nil {
			return updateErr
		}
		out = record.toDomain()
		return nil
	})
	if err != nil {
		return core.BindingRecord{}, err
	}
	return out, nil
}

func (s *BindingStore) Get(ctx context.Context, name string) (core.BindingRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.BindingRecord{}, false, fmt.Errorf("sqlstore: binding store is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return core.BindingRecord{}, false, fmt.Errorf("sqlstore: binding name is required")
	}

	record := &bindingRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", name).
		Where("?TableAlias.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.BindingRecord{}, false, nil
		}
		return core.BindingRecord{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *BindingStore) List(ctx context.Context) ([]core.BindingRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: binding store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.deleted_at IS NULL")
		}),
		repository.OrderBy("name ASC"),
	)
	if err != nil {
		return nil, err
	}

	out := make([]core.BindingRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

func (s *BindingStore) Delete(ctx context.Context, name string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: binding store is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("sqlstore: binding name is required")
	}

	// Soft delete; bun rewrites this into an UPDATE on deleted_at.
	_, err := s.db.NewDelete().
		Model((*bindingRecord)(nil)).
		Where("?TableAlias.name = ?", name).
		Where("?TableAlias.deleted_at IS NULL").
		Exec(ctx)
	return err
}

func findBindingTx(ctx context.Context, tx bun.Tx, name string) (*bindingRecord, error) {
	record := &bindingRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", strings.TrimSpace(name)).
		Where("?TableAlias.deleted_at IS NULL").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}
