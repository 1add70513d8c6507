package upgrades

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-upgrades/core"
)

// PackageRegistrar receives live package handles so persisted bindings can
// be rehydrated against them. StaticLocator satisfies it.
type PackageRegistrar interface {
	Register(pkg core.VersionedProvider)
}

type PackagePack struct {
	Name     string
	Packages []core.VersionedProvider
}

type ContractManifestPack struct {
	Name      string
	Package   string
	Contracts []string
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

type ExtensionHooks struct {
	mu sync.RWMutex

	packagePacks  map[string]PackagePack
	manifestPacks map[string]ContractManifestPack
	bundles       map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		packagePacks:  map[string]PackagePack{},
		manifestPacks: map[string]ContractManifestPack{},
		bundles:       map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterPackagePack(pack PackagePack) error {
	if h == nil {
		return fmt.Errorf("upgrades: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("upgrades: package pack name is required")
	}
	if len(pack.Packages) == 0 {
		return fmt.Errorf("upgrades: package pack %q has no packages", name)
	}

	normalized := PackagePack{
		Name:     name,
		Packages: append([]core.VersionedProvider(nil), pack.Packages...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.packagePacks[name]; exists {
		return fmt.Errorf("upgrades: package pack %q already registered", name)
	}
	h.packagePacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterContractManifestPack(pack ContractManifestPack) error {
	if h == nil {
		return fmt.Errorf("upgrades: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	packageName := strings.TrimSpace(pack.Package)
	if name == "" {
		return fmt.Errorf("upgrades: contract manifest pack name is required")
	}
	if packageName == "" {
		return fmt.Errorf("upgrades: contract manifest pack %q package name is required", name)
	}
	if len(pack.Contracts) == 0 {
		return fmt.Errorf("upgrades: contract manifest pack %q has no contracts", name)
	}

	normalized := ContractManifestPack{
		Name:      name,
		Package:   packageName,
		Contracts: append([]string(nil), pack.Contracts...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.manifestPacks[name]; exists {
		return fmt.Errorf("upgrades: contract manifest pack %q already registered", name)
	}
	h.manifestPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("upgrades: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("upgrades: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("upgrades: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("upgrades: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

func (h *ExtensionHooks) ApplyPackagePacks(registrar PackageRegistrar) error {
	if h == nil {
		return nil
	}
	if registrar == nil {
		return fmt.Errorf("upgrades: package registrar is required")
	}

	packs := h.PackagePacks()
	for _, pack := range packs {
		for _, pkg := range pack.Packages {
			if pkg == nil {
				return fmt.Errorf("upgrades: package pack %q contains nil package", pack.Name)
			}
			if pkg.Address().IsZero() {
				return fmt.Errorf("upgrades: package pack %q contains package without address", pack.Name)
			}
			registrar.Register(pkg)
		}
	}
	return nil
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("upgrades: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) PackagePacks() []PackagePack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.packagePacks))
	for name := range h.packagePacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]PackagePack, 0, len(names))
	for _, name := range names {
		pack := h.packagePacks[name]
		out = append(out, PackagePack{
			Name:     pack.Name,
			Packages: append([]core.VersionedProvider(nil), pack.Packages...),
		})
	}
	return out
}

func (h *ExtensionHooks) ContractManifest(packageName string) []string {
	if h == nil {
		return nil
	}
	packageName = strings.TrimSpace(packageName)
	h.mu.RLock()
	defer h.mu.RUnlock()

	packNames := make([]string, 0, len(h.manifestPacks))
	for name, pack := range h.manifestPacks {
		if pack.Package == packageName {
			packNames = append(packNames, name)
		}
	}
	sort.Strings(packNames)

	out := []string{}
	for _, name := range packNames {
		pack := h.manifestPacks[name]
		out = append(out, pack.Contracts...)
	}
	return append([]string(nil), out...)
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
