package devkit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-upgrades/core"
)

// StaticProvider publishes a fixed version to contract to address table. It
// never changes after construction, which makes degraded-binding scenarios
// easy to stage: pin the registry to a version the table omits.
type StaticProvider struct {
	address  core.Address
	versions map[string]map[string]core.Address
}

// NewStaticProvider copies the table. A zero address gets a generated one.
func NewStaticProvider(address core.Address, versions map[string]map[string]core.Address) *StaticProvider {
	cloned := make(map[string]map[string]core.Address, len(versions))
	for version, contracts := range versions {
		version = strings.TrimSpace(version)
		if version == "" {
			continue
		}
		table := make(map[string]core.Address, len(contracts))
		for contract, implementation := range contracts {
			contract = strings.TrimSpace(contract)
			implementation = core.NormalizeAddress(implementation.String())
			if contract == "" || implementation.IsZero() {
				continue
			}
			table[contract] = implementation
		}
		cloned[version] = table
	}
	normalized := core.NormalizeAddress(address.String())
	if normalized.IsZero() {
		normalized = core.NewAddress()
	}
	return &StaticProvider{address: normalized, versions: cloned}
}

func (p *StaticProvider) Address() core.Address {
	if p == nil {
		return core.ZeroAddress
	}
	return p.address
}

func (p *StaticProvider) HasVersion(_ context.Context, version string) (bool, error) {
	if p == nil {
		return false, nil
	}
	_, ok := p.versions[strings.TrimSpace(version)]
	return ok, nil
}

func (p *StaticProvider) Version(_ context.Context, version string) (core.ImplementationProvider, bool, error) {
	if p == nil {
		return nil, false, nil
	}
	table, ok := p.versions[strings.TrimSpace(version)]
	if !ok {
		return nil, false, nil
	}
	return staticImplementations(table), true, nil
}

type staticImplementations map[string]core.Address

func (s staticImplementations) Implementation(_ context.Context, contractName string) (core.Address, bool, error) {
	address, ok := s[strings.TrimSpace(contractName)]
	if !ok || address.IsZero() {
		return core.ZeroAddress, false, nil
	}
	return address, true, nil
}

// RecordingBus is an event bus that keeps every published event in arrival
// order while still fanning out to subscribers. Handler errors are joined,
// matching the in-memory bus contract.
type RecordingBus struct {
	mu       sync.Mutex
	events   []core.Event
	handlers []core.EventHandler
}

func NewRecordingBus() *RecordingBus {
	return &RecordingBus{}
}

func (b *RecordingBus) Publish(ctx context.Context, event core.Event) error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	b.events = append(b.events, event.Clone())
	handlers := make([]core.EventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	var errs []error
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := handler.HandleEvent(ctx, event.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("devkit: event handler failed for %s: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

func (b *RecordingBus) Subscribe(handler core.EventHandler) {
	if b == nil || handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Events returns a detached copy of everything published, oldest first.
func (b *RecordingBus) Events() []core.Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.Event, len(b.events))
	for i, event := range b.events {
		out[i] = event.Clone()
	}
	return out
}

// EventTypes returns the published type strings in publish order.
func (b *RecordingBus) EventTypes() []string {
	events := b.Events()
	out := make([]string, len(events))
	for i, event := range events {
		out[i] = event.Type
	}
	return out
}

// GuardScript is one scripted Authorize outcome. A nil Err allows the call.
type GuardScript struct {
	Err error
}

// ScriptedGuard is an access guard whose Authorize outcomes follow a script
// in call order. Past the last entry the final outcome repeats; with no
// script it enforces a plain owner check. Every caller is recorded.
type ScriptedGuard struct {
	mu      sync.Mutex
	owner   core.Address
	scripts []GuardScript
	callers []core.Address
}

func NewScriptedGuard(owner core.Address, scripts ...GuardScript) *ScriptedGuard {
	return &ScriptedGuard{
		owner:   core.NormalizeAddress(owner.String()),
		scripts: append([]GuardScript(nil), scripts...),
	}
}

func (g *ScriptedGuard) CurrentOwner(context.Context) (core.Address, error) {
	if g == nil {
		return core.ZeroAddress, fmt.Errorf("devkit: scripted guard is nil")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner, nil
}

func (g *ScriptedGuard) Authorize(_ context.Context, caller core.Address) error {
	if g == nil {
		return fmt.Errorf("devkit: scripted guard is nil")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.callers = append(g.callers, core.NormalizeAddress(caller.String()))
	index := len(g.callers) - 1
	if index < len(g.scripts) {
		return g.scripts[index].Err
	}
	if len(g.scripts) > 0 {
		return g.scripts[len(g.scripts)-1].Err
	}
	if !core.AddressesEqual(caller, g.owner) {
		return goerrors.Wrap(core.ErrUnauthorized, goerrors.CategoryAuthz, "caller is not the current owner").
			WithTextCode(core.UpgradesErrorUnauthorized).
			WithMetadata(map[string]any{"caller": caller.String()})
	}
	return nil
}

// Callers returns every caller Authorize has seen, in call order.
func (g *ScriptedGuard) Callers() []core.Address {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]core.Address(nil), g.callers...)
}

// SetOwner rotates the owner the guard reports and enforces by default.
func (g *ScriptedGuard) SetOwner(owner core.Address) {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.owner = core.NormalizeAddress(owner.String())
}

var (
	_ core.VersionedProvider      = (*StaticProvider)(nil)
	_ core.ImplementationProvider = (staticImplementations)(nil)
	_ core.EventBus               = (*RecordingBus)(nil)
	_ core.AccessGuard            = (*ScriptedGuard)(nil)
)
