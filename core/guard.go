package core

import (
	"context"
	"errors"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

var (
	ErrUnauthorized    = errors.New("core: caller is not the current owner")
	ErrOwnerNotSet     = errors.New("core: owner is not set")
	ErrInvalidNewOwner = errors.New("core: new owner address is required")
)

// OwnerGuard is the default AccessGuard: a single designated owner address,
// rotated only through TransferOwnership. Alternate authorization schemes
// implement AccessGuard and substitute at assembly time.
type OwnerGuard struct {
	mu     sync.RWMutex
	owner  Address
	store  OwnershipStore
	bus    EventBus
	logger Logger
	nowFn  func() time.Time
}

type OwnerGuardOption func(*OwnerGuard)

func WithOwnerGuardStore(store OwnershipStore) OwnerGuardOption {
	return func(g *OwnerGuard) {
		g.store = store
	}
}

func WithOwnerGuardBus(bus EventBus) OwnerGuardOption {
	return func(g *OwnerGuard) {
		g.bus = bus
	}
}

func WithOwnerGuardLogger(logger Logger) OwnerGuardOption {
	return func(g *OwnerGuard) {
		g.logger = logger
	}
}

func NewOwnerGuard(initialOwner Address, options ...OwnerGuardOption) (*OwnerGuard, error) {
	owner := NormalizeAddress(string(initialOwner))
	if owner.IsZero() {
		return nil, goerrors.Wrap(ErrOwnerNotSet, goerrors.CategoryBadInput, "initial owner address is required").
			WithTextCode(UpgradesErrorBadInput)
	}
	guard := &OwnerGuard{
		owner: owner,
		nowFn: time.Now,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(guard)
	}
	guard.logger = glog.Ensure(guard.logger)
	return guard, nil
}

func (g *OwnerGuard) CurrentOwner(ctx context.Context) (Address, error) {
	if g == nil {
		return ZeroAddress, goerrors.Wrap(ErrOwnerNotSet, goerrors.CategoryInternal, "owner guard is not configured").
			WithTextCode(UpgradesErrorInternal)
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.owner, nil
}

func (g *OwnerGuard) Authorize(ctx context.Context, caller Address) error {
	owner, err := g.CurrentOwner(ctx)
	if err != nil {
		return err
	}
	caller = NormalizeAddress(string(caller))
	if caller.IsZero() {
		return goerrors.New("caller address is required", goerrors.CategoryBadInput).
			WithTextCode(UpgradesErrorBadInput)
	}
	if !AddressesEqual(caller, owner) {
		return goerrors.Wrap(ErrUnauthorized, goerrors.CategoryAuthz, "caller is not the current owner").
			WithTextCode(UpgradesErrorUnauthorized).
			WithMetadata(map[string]any{"caller": caller.String()})
	}
	return nil
}

// TransferOwnership rotates the owner. The caller must be the current owner
// and the new owner must be a non-zero address. When an OwnershipStore is
// configured the durable write happens first; a store failure leaves the
// in-memory owner unchanged.
func (g *OwnerGuard) TransferOwnership(ctx context.Context, req TransferOwnershipRequest) (OwnershipRecord, error) {
	if g == nil {
		return OwnershipRecord{}, goerrors.Wrap(ErrOwnerNotSet, goerrors.CategoryInternal, "owner guard is not configured").
			WithTextCode(UpgradesErrorInternal)
	}
	if err := g.Authorize(ctx, req.Caller); err != nil {
		return OwnershipRecord{}, err
	}
	newOwner := NormalizeAddress(string(req.NewOwner))
	if newOwner.IsZero() {
		return OwnershipRecord{}, goerrors.Wrap(ErrInvalidNewOwner, goerrors.CategoryBadInput, "new owner address is required").
			WithTextCode(UpgradesErrorBadInput)
	}

	g.mu.Lock()
	previous := g.owner
	record := OwnershipRecord{Owner: newOwner, UpdatedAt: g.now()}
	if g.store != nil {
		saved, err := g.store.Save(ctx, record)
		if err != nil {
			g.mu.Unlock()
			return OwnershipRecord{}, goerrors.Wrap(err, goerrors.CategoryOperation, "persisting ownership transfer failed").
				WithTextCode(UpgradesErrorOperationFailed)
		}
		record = saved
	}
	g.owner = newOwner
	g.mu.Unlock()

	g.publishTransfer(ctx, previous, newOwner)
	return record, nil
}

// Restore loads a persisted owner, replacing the seed owner. A missing
// record keeps the current owner.
func (g *OwnerGuard) Restore(ctx context.Context) error {
	if g == nil || g.store == nil {
		return nil
	}
	record, ok, err := g.store.Current(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "loading persisted owner failed").
			WithTextCode(UpgradesErrorOperationFailed)
	}
	if !ok || record.Owner.IsZero() {
		return nil
	}
	g.mu.Lock()
	g.owner = NormalizeAddress(string(record.Owner))
	g.mu.Unlock()
	return nil
}

func (g *OwnerGuard) publishTransfer(ctx context.Context, previous, next Address) {
	if g.bus == nil {
		return
	}
	event := Event{
		Type:          EventOwnershipTransferred,
		PreviousOwner: previous,
		NewOwner:      next,
		Actor:         previous,
		EmittedAt:     g.now(),
	}
	if err := g.bus.Publish(ctx, event); err != nil {
		g.logger.Error("ownership transfer event publish failed", "error", err.Error())
	}
}

func (g *OwnerGuard) now() time.Time {
	if g == nil || g.nowFn == nil {
		return time.Now()
	}
	return g.nowFn()
}

var (
	_ AccessGuard          = (*OwnerGuard)(nil)
	_ OwnershipTransferrer = (*OwnerGuard)(nil)
)
