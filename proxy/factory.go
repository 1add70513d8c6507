package proxy

import (
	"context"
	"math/big"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-upgrades/core"
)

// CallView is the read-only shape a CallHandler receives for each init or
// migration payload routed through a proxy.
type CallView struct {
	Proxy          core.Address
	Implementation core.Address
	CallData       []byte
	Value          *big.Int
}

// CallHandler executes init and migration payloads on behalf of a proxy.
// Returning an error aborts the surrounding deploy or upgrade.
type CallHandler func(ctx context.Context, call CallView) error

// Factory deploys in-process proxies and keeps a ledger of every proxy it
// created, keyed by address.
type Factory struct {
	mu       sync.RWMutex
	handler  CallHandler
	deployed map[core.Address]*Proxy
	nowFn    func() time.Time
}

type FactoryOption func(*Factory)

// WithCallHandler installs the handler that runs init and migration
// payloads for every proxy this factory deploys.
func WithCallHandler(handler CallHandler) FactoryOption {
	return func(f *Factory) {
		f.handler = handler
	}
}

// WithClock overrides the timestamp source for call records.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		if now != nil {
			f.nowFn = now
		}
	}
}

func NewFactory(opts ...FactoryOption) *Factory {
	factory := &Factory{
		deployed: make(map[core.Address]*Proxy),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

// DeployInput aliases the orchestrator's deploy shape so callers wiring the
// factory directly do not import core for it.
type DeployInput = core.DeployProxyInput

// Deploy creates a proxy under a fresh address. When init data is present
// it runs through the call handler first; a handler failure means no proxy
// exists afterwards.
func (f *Factory) Deploy(ctx context.Context, input DeployInput) (core.Proxy, error) {
	admin := core.NormalizeAddress(input.Admin.String())
	if admin.IsZero() {
		return nil, goerrors.New("proxy admin is required", goerrors.CategoryBadInput).
			WithTextCode(core.UpgradesErrorBadInput)
	}

	instance := &Proxy{
		address:        core.NewAddress(),
		admin:          admin,
		implementation: core.NormalizeAddress(input.Implementation.String()),
		balance:        new(big.Int),
		handler:        f.handler,
		nowFn:          f.nowFn,
	}

	if len(input.InitData) > 0 || (input.Value != nil && input.Value.Sign() > 0) {
		instance.mu.Lock()
		record := instance.recordCallLocked(input.InitData, input.Value)
		instance.mu.Unlock()
		if f.handler != nil {
			if err := f.handler(ctx, CallView{
				Proxy:          instance.address,
				Implementation: instance.implementation,
				CallData:       record.CallData,
				Value:          record.Value,
			}); err != nil {
				return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "proxy initialization failed").
					WithTextCode(core.UpgradesErrorOperationFailed).
					WithMetadata(map[string]any{
						"implementation": instance.implementation.String(),
					})
			}
		}
	}

	f.mu.Lock()
	f.deployed[instance.address] = instance
	f.mu.Unlock()
	return instance, nil
}

// Lookup returns a previously deployed proxy by address.
func (f *Factory) Lookup(address core.Address) (*Proxy, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	instance, ok := f.deployed[core.NormalizeAddress(address.String())]
	return instance, ok
}

// Deployed reports how many proxies this factory has created.
func (f *Factory) Deployed() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.deployed)
}

var _ core.ProxyFactory = (*Factory)(nil)
