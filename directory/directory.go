package directory

import (
	"context"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-upgrades/core"
)

// Directory maps contract names to implementation addresses. It implements
// core.ImplementationProvider. Writes are rejected after Freeze.
type Directory struct {
	mu              sync.RWMutex
	implementations map[string]core.Address
	frozen          bool
}

func NewDirectory() *Directory {
	return &Directory{implementations: make(map[string]core.Address)}
}

// NewDirectoryFrom builds a directory pre-populated with the given
// implementations. The input map is copied.
func NewDirectoryFrom(implementations map[string]core.Address) *Directory {
	dir := NewDirectory()
	for contract, address := range implementations {
		contract = strings.TrimSpace(contract)
		address = core.NormalizeAddress(address.String())
		if contract == "" || address.IsZero() {
			continue
		}
		dir.implementations[contract] = address
	}
	return dir
}

// SetImplementation binds a contract name to an implementation address.
func (d *Directory) SetImplementation(contract string, address core.Address) error {
	contract = strings.TrimSpace(contract)
	if contract == "" {
		return goerrors.New("contract name is required", goerrors.CategoryBadInput).
			WithTextCode(core.UpgradesErrorBadInput)
	}
	address = core.NormalizeAddress(address.String())
	if address.IsZero() {
		return goerrors.New("implementation address is required", goerrors.CategoryBadInput).
			WithTextCode(core.UpgradesErrorBadInput)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frozen {
		return goerrors.New("directory is frozen", goerrors.CategoryConflict).
			WithTextCode(core.UpgradesErrorOperationFailed)
	}
	d.implementations[contract] = address
	return nil
}

// UnsetImplementation removes a contract binding. Removing a name that was
// never bound is a no-op.
func (d *Directory) UnsetImplementation(contract string) error {
	contract = strings.TrimSpace(contract)
	if contract == "" {
		return goerrors.New("contract name is required", goerrors.CategoryBadInput).
			WithTextCode(core.UpgradesErrorBadInput)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frozen {
		return goerrors.New("directory is frozen", goerrors.CategoryConflict).
			WithTextCode(core.UpgradesErrorOperationFailed)
	}
	delete(d.implementations, contract)
	return nil
}

// Implementation resolves a contract name. Absence is a comma-ok miss, not
// an error.
func (d *Directory) Implementation(_ context.Context, contract string) (core.Address, bool, error) {
	if d == nil {
		return core.ZeroAddress, false, nil
	}
	contract = strings.TrimSpace(contract)

	d.mu.RLock()
	defer d.mu.RUnlock()
	address, ok := d.implementations[contract]
	if !ok || address.IsZero() {
		return core.ZeroAddress, false, nil
	}
	return address, true, nil
}

// Freeze makes the directory immutable. Freezing twice is an error so
// release pipelines notice double-finalization.
func (d *Directory) Freeze() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frozen {
		return goerrors.New("directory is already frozen", goerrors.CategoryConflict).
			WithTextCode(core.UpgradesErrorOperationFailed)
	}
	d.frozen = true
	return nil
}

func (d *Directory) Frozen() bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.frozen
}

// Contracts lists the bound contract names in no particular order.
func (d *Directory) Contracts() []string {
	if d == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.implementations))
	for contract := range d.implementations {
		out = append(out, contract)
	}
	return out
}

var _ core.ImplementationProvider = (*Directory)(nil)
