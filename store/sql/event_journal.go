package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-upgrades/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EventJournal persists lifecycle events in upgrade_events. Rows are
// append-only; List serves the audit trail newest first.
type EventJournal struct {
	db   *bun.DB
	repo repository.Repository[*upgradeEventRecord]
}

func NewEventJournal(db *bun.DB) (*EventJournal, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*upgradeEventRecord](db, eventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid event repository wiring: %w", err)
		}
	}
	return &EventJournal{
		db:   db,
		repo: repo,
	}, nil
}

func (s *EventJournal) Append(ctx context.Context, event core.Event) (core.Event, error) {
	if s == nil || s.db == nil {
		return core.Event{}, fmt.Errorf("sqlstore: event journal is not configured")
	}
	if strings.TrimSpace(event.Type) == "" {
		return core.Event{}, fmt.Errorf("sqlstore: event type is required")
	}

	record := newEventRecord(event, time.Now().UTC())
	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Event{}, err
	}
	return record.toDomain(), nil
}

func (s *EventJournal) List(ctx context.Context, filter core.EventFilter) (core.EventPage, error) {
	if s == nil || s.db == nil {
		return core.EventPage{}, fmt.Errorf("sqlstore: event journal is not configured")
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return core.EventPage{}, fmt.Errorf("sqlstore: event paging bounds must not be negative")
	}

	records := []*upgradeEventRecord{}
	q := s.db.NewSelect().Model(&records)

	if len(filter.Types) > 0 {
		q = q.Where("?TableAlias.event_type IN (?)", bun.In(filter.Types))
	}
	if name := strings.TrimSpace(filter.PackageName); name != "" {
		q = q.Where("?TableAlias.package_name = ?", name)
	}
	if !filter.ProxyAddress.IsZero() {
		q = q.Where("?TableAlias.proxy_address = ?", filter.ProxyAddress.String())
	}
	if !filter.Since.IsZero() {
		q = q.Where("?TableAlias.emitted_at >= ?", filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		q = q.Where("?TableAlias.emitted_at <= ?", filter.Until.UTC())
	}

	q = q.OrderExpr("?TableAlias.emitted_at DESC").
		OrderExpr("?TableAlias.created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return core.EventPage{}, err
	}

	events := make([]core.Event, 0, len(records))
	for _, record := range records {
		events = append(events, record.toDomain())
	}
	return core.EventPage{
		Events: events,
		Total:  total,
	}, nil
}
