package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// MemoryBindingStore keeps binding records in process memory. It backs
// tests and hosts that want durability semantics without a database.
type MemoryBindingStore struct {
	mu      sync.RWMutex
	records map[string]BindingRecord
}

func NewMemoryBindingStore() *MemoryBindingStore {
	return &MemoryBindingStore{records: make(map[string]BindingRecord)}
}

func (s *MemoryBindingStore) Save(ctx context.Context, record BindingRecord) (BindingRecord, error) {
	if s == nil {
		return BindingRecord{}, goerrors.New("binding store is not configured", goerrors.CategoryInternal).
			WithTextCode(UpgradesErrorInternal)
	}
	record.Name = strings.TrimSpace(record.Name)
	if record.Name == "" {
		return BindingRecord{}, goerrors.New("binding name is required", goerrors.CategoryBadInput).
			WithTextCode(UpgradesErrorBadInput)
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Name] = record
	return record, nil
}

func (s *MemoryBindingStore) Get(ctx context.Context, name string) (BindingRecord, bool, error) {
	if s == nil {
		return BindingRecord{}, false, nil
	}
	name = strings.TrimSpace(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[name]
	return record, ok, nil
}

func (s *MemoryBindingStore) List(ctx context.Context) ([]BindingRecord, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]BindingRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryBindingStore) Delete(ctx context.Context, name string) error {
	if s == nil {
		return nil
	}
	name = strings.TrimSpace(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, name)
	return nil
}

// MemoryOwnershipStore holds the single persisted owner record.
type MemoryOwnershipStore struct {
	mu     sync.RWMutex
	record OwnershipRecord
	loaded bool
}

func NewMemoryOwnershipStore() *MemoryOwnershipStore {
	return &MemoryOwnershipStore{}
}

func (s *MemoryOwnershipStore) Current(ctx context.Context) (OwnershipRecord, bool, error) {
	if s == nil {
		return OwnershipRecord{}, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record, s.loaded, nil
}

func (s *MemoryOwnershipStore) Save(ctx context.Context, record OwnershipRecord) (OwnershipRecord, error) {
	if s == nil {
		return OwnershipRecord{}, goerrors.New("ownership store is not configured", goerrors.CategoryInternal).
			WithTextCode(UpgradesErrorInternal)
	}
	if record.Owner.IsZero() {
		return OwnershipRecord{}, goerrors.New("owner address is required", goerrors.CategoryBadInput).
			WithTextCode(UpgradesErrorBadInput)
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = record
	s.loaded = true
	return record, nil
}

// MemoryEventJournal appends events in arrival order and lists newest first.
type MemoryEventJournal struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryEventJournal() *MemoryEventJournal {
	return &MemoryEventJournal{events: make([]Event, 0)}
}

func (j *MemoryEventJournal) Append(ctx context.Context, event Event) (Event, error) {
	if j == nil {
		return Event{}, goerrors.New("event journal is not configured", goerrors.CategoryInternal).
			WithTextCode(UpgradesErrorInternal)
	}
	event = stampEvent(event)
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event.Clone())
	return event, nil
}

func (j *MemoryEventJournal) List(ctx context.Context, filter EventFilter) (EventPage, error) {
	if j == nil {
		return EventPage{}, nil
	}
	j.mu.RLock()
	matched := make([]Event, 0, len(j.events))
	for _, event := range j.events {
		if filter.Matches(event) {
			matched = append(matched, event.Clone())
		}
	}
	j.mu.RUnlock()

	// newest first
	sort.SliceStable(matched, func(i, k int) bool {
		return matched[i].EmittedAt.After(matched[k].EmittedAt)
	})

	limit, offset := filter.normalizedWindow()
	total := len(matched)
	if offset >= total {
		return EventPage{Events: []Event{}, Total: total}, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return EventPage{Events: matched[offset:end], Total: total}, nil
}

// StaticPackageLocator resolves package addresses from a fixed handle set.
// Hosts register the live providers they constructed so persisted bindings
// can be rehydrated at Start.
type StaticPackageLocator struct {
	mu       sync.RWMutex
	packages map[Address]VersionedProvider
}

func NewStaticPackageLocator(packages ...VersionedProvider) *StaticPackageLocator {
	locator := &StaticPackageLocator{packages: make(map[Address]VersionedProvider)}
	for _, pkg := range packages {
		locator.Register(pkg)
	}
	return locator
}

func (l *StaticPackageLocator) Register(pkg VersionedProvider) {
	if l == nil || pkg == nil {
		return
	}
	address := NormalizeAddress(pkg.Address().String())
	if address.IsZero() {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.packages[address] = pkg
}

func (l *StaticPackageLocator) Locate(ctx context.Context, address Address) (VersionedProvider, bool, error) {
	if l == nil {
		return nil, false, nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	pkg, ok := l.packages[NormalizeAddress(address.String())]
	return pkg, ok, nil
}

var (
	_ BindingStore   = (*MemoryBindingStore)(nil)
	_ OwnershipStore = (*MemoryOwnershipStore)(nil)
	_ EventJournal   = (*MemoryEventJournal)(nil)
	_ PackageLocator = (*StaticPackageLocator)(nil)
)
