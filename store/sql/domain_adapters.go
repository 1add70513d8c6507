package sqlstore

import (
	"time"

	"github.com/goliatone/go-upgrades/core"
)

func newBindingRecord(in core.BindingRecord, now time.Time) *bindingRecord {
	updatedAt := in.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}
	return &bindingRecord{
		Name:           in.Name,
		PackageAddress: in.PackageAddress.String(),
		Version:        in.Version,
		CreatedAt:      now,
		UpdatedAt:      updatedAt,
	}
}

func (r *bindingRecord) toDomain() core.BindingRecord {
	if r == nil {
		return core.BindingRecord{}
	}
	return core.BindingRecord{
		Name:           r.Name,
		PackageAddress: core.Address(r.PackageAddress),
		Version:        r.Version,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (r *ownershipRecord) toDomain() core.OwnershipRecord {
	if r == nil {
		return core.OwnershipRecord{}
	}
	return core.OwnershipRecord{
		Owner:     core.Address(r.Owner),
		UpdatedAt: r.UpdatedAt,
	}
}

func newEventRecord(event core.Event, now time.Time) *upgradeEventRecord {
	emittedAt := event.EmittedAt
	if emittedAt.IsZero() {
		emittedAt = now
	}
	return &upgradeEventRecord{
		ID:             event.ID,
		EventType:      event.Type,
		PackageName:    event.PackageName,
		PackageAddress: event.PackageAddress.String(),
		Version:        event.Version,
		ProxyAddress:   event.ProxyAddress.String(),
		PreviousOwner:  event.PreviousOwner.String(),
		NewOwner:       event.NewOwner.String(),
		Actor:          event.Actor.String(),
		Metadata:       copyAnyMap(event.Metadata),
		EmittedAt:      emittedAt,
		CreatedAt:      now,
	}
}

func (r *upgradeEventRecord) toDomain() core.Event {
	if r == nil {
		return core.Event{}
	}
	return core.Event{
		ID:             r.ID,
		Type:           r.EventType,
		PackageName:    r.PackageName,
		PackageAddress: core.Address(r.PackageAddress),
		Version:        r.Version,
		ProxyAddress:   core.Address(r.ProxyAddress),
		PreviousOwner:  core.Address(r.PreviousOwner),
		NewOwner:       core.Address(r.NewOwner),
		Actor:          core.Address(r.Actor),
		Metadata:       copyAnyMap(r.Metadata),
		EmittedAt:      r.EmittedAt,
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
