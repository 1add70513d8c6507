package proxy

import (
	"context"
	"math/big"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-upgrades/core"
)

// CallRecord captures one payload the proxy executed: the implementation it
// ran against, the raw payload, and the value that rode along.
type CallRecord struct {
	Implementation core.Address
	CallData       []byte
	Value          *big.Int
	At             time.Time
}

func (r CallRecord) clone() CallRecord {
	out := r
	out.CallData = append([]byte(nil), r.CallData...)
	if r.Value != nil {
		out.Value = new(big.Int).Set(r.Value)
	}
	return out
}

// Proxy is an in-process stand-in for an upgradeable proxy. Every operation
// and introspection is admin-only; everyone else gets an authorization
// error, exactly like the transparent proxy pattern it models.
type Proxy struct {
	mu             sync.RWMutex
	address        core.Address
	admin          core.Address
	implementation core.Address
	balance        *big.Int
	calls          []CallRecord
	handler        CallHandler
	nowFn          func() time.Time
}

func (p *Proxy) Address() core.Address {
	if p == nil {
		return core.ZeroAddress
	}
	return p.address
}

func (p *Proxy) Implementation(_ context.Context, caller core.Address) (core.Address, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.requireAdmin(caller); err != nil {
		return core.ZeroAddress, err
	}
	return p.implementation, nil
}

func (p *Proxy) Admin(_ context.Context, caller core.Address) (core.Address, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.requireAdmin(caller); err != nil {
		return core.ZeroAddress, err
	}
	return p.admin, nil
}

func (p *Proxy) UpgradeTo(_ context.Context, caller core.Address, implementation core.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	p.implementation = core.NormalizeAddress(implementation.String())
	return nil
}

// UpgradeToAndCall swaps the implementation and executes the migration
// payload against it. A handler failure reverts the swap, the balance, and
// the call log, leaving the proxy exactly as it was.
func (p *Proxy) UpgradeToAndCall(ctx context.Context, caller core.Address, implementation core.Address, callData []byte, value *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireAdmin(caller); err != nil {
		return err
	}

	previousImplementation := p.implementation
	previousBalance := new(big.Int).Set(p.balance)
	previousCalls := len(p.calls)

	p.implementation = core.NormalizeAddress(implementation.String())
	record := p.recordCallLocked(callData, value)

	if p.handler != nil {
		if err := p.handler(ctx, CallView{
			Proxy:          p.address,
			Implementation: p.implementation,
			CallData:       record.CallData,
			Value:          record.Value,
		}); err != nil {
			p.implementation = previousImplementation
			p.balance = previousBalance
			p.calls = p.calls[:previousCalls]
			return goerrors.Wrap(err, goerrors.CategoryOperation, "migration call failed, upgrade rolled back").
				WithTextCode(core.UpgradesErrorOperationFailed)
		}
	}
	return nil
}

func (p *Proxy) ChangeAdmin(_ context.Context, caller core.Address, newAdmin core.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireAdmin(caller); err != nil {
		return err
	}
	newAdmin = core.NormalizeAddress(newAdmin.String())
	if newAdmin.IsZero() {
		return goerrors.New("new admin address is required", goerrors.CategoryBadInput).
			WithTextCode(core.UpgradesErrorBadInput)
	}
	p.admin = newAdmin
	return nil
}

// Balance reports the total value forwarded through init and migration
// calls. The returned value is a copy.
func (p *Proxy) Balance() *big.Int {
	if p == nil {
		return new(big.Int)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Set(p.balance)
}

// Calls returns a detached copy of the call log, oldest first.
func (p *Proxy) Calls() []CallRecord {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]CallRecord, len(p.calls))
	for i, record := range p.calls {
		out[i] = record.clone()
	}
	return out
}

func (p *Proxy) requireAdmin(caller core.Address) error {
	if !core.AddressesEqual(caller, p.admin) {
		return goerrors.New("caller is not the proxy admin", goerrors.CategoryAuthz).
			WithTextCode(core.UpgradesErrorProxyAdminOnly).
			WithMetadata(map[string]any{
				"proxy":  p.address.String(),
				"caller": caller.String(),
			})
	}
	return nil
}

// recordCallLocked appends a call record and credits the balance. The
// caller holds the write lock.
func (p *Proxy) recordCallLocked(callData []byte, value *big.Int) CallRecord {
	record := CallRecord{
		Implementation: p.implementation,
		CallData:       append([]byte(nil), callData...),
		At:             p.now(),
	}
	if value != nil {
		record.Value = new(big.Int).Set(value)
		p.balance.Add(p.balance, value)
	}
	p.calls = append(p.calls, record)
	return record
}

func (p *Proxy) now() time.Time {
	if p.nowFn == nil {
		return time.Now().UTC()
	}
	return p.nowFn().UTC()
}

var _ core.Proxy = (*Proxy)(nil)
