package devkit

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-upgrades/core"
)

// absentVersion is probed during provider conformance. Providers under
// validation must not publish it.
const absentVersion = "0.0.0-devkit-absent"

// ValidateVersionedProviderConformance drives a provider through the
// contract the registry depends on: a stable address, a published version
// that resolves the given contract, and comma-ok misses for versions the
// provider does not publish.
func ValidateVersionedProviderConformance(
	ctx context.Context,
	provider core.VersionedProvider,
	version string,
	contractName string,
) error {
	if provider == nil {
		return fmt.Errorf("devkit: versioned provider is required")
	}
	version = strings.TrimSpace(version)
	contractName = strings.TrimSpace(contractName)
	if version == "" || contractName == "" {
		return fmt.Errorf("devkit: version and contract name are required")
	}
	if provider.Address().IsZero() {
		return fmt.Errorf("devkit: provider address must not be zero")
	}

	ok, err := provider.HasVersion(ctx, version)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("devkit: provider should publish version %q", version)
	}

	implementations, ok, err := provider.Version(ctx, version)
	if err != nil {
		return err
	}
	if !ok || implementations == nil {
		return fmt.Errorf("devkit: provider should resolve version %q", version)
	}
	address, ok, err := implementations.Implementation(ctx, contractName)
	if err != nil {
		return err
	}
	if !ok || address.IsZero() {
		return fmt.Errorf("devkit: version %q should resolve contract %q", version, contractName)
	}

	if ok, err := provider.HasVersion(ctx, absentVersion); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("devkit: provider should not publish %q", absentVersion)
	}
	if _, ok, err := provider.Version(ctx, absentVersion); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("devkit: absent version lookup should miss, not resolve")
	}
	return nil
}

// ValidateProxyConformance checks admin-only enforcement, upgrade
// visibility, and the one-way admin handover. It mutates the proxy: pass a
// throwaway instance. Afterwards the outsider is the admin and the proxy
// points at newImplementation.
func ValidateProxyConformance(
	ctx context.Context,
	prx core.Proxy,
	admin core.Address,
	outsider core.Address,
	newImplementation core.Address,
) error {
	if prx == nil {
		return fmt.Errorf("devkit: proxy is required")
	}
	if admin.IsZero() || outsider.IsZero() || core.AddressesEqual(admin, outsider) {
		return fmt.Errorf("devkit: admin and outsider must be distinct non-zero addresses")
	}
	if newImplementation.IsZero() {
		return fmt.Errorf("devkit: new implementation address is required")
	}
	if prx.Address().IsZero() {
		return fmt.Errorf("devkit: proxy address must not be zero")
	}

	reportedAdmin, err := prx.Admin(ctx, admin)
	if err != nil {
		return fmt.Errorf("devkit: admin should read proxy admin: %w", err)
	}
	if !core.AddressesEqual(reportedAdmin, admin) {
		return fmt.Errorf("devkit: proxy should report %q as admin, got %q", admin, reportedAdmin)
	}

	if _, err := prx.Implementation(ctx, outsider); err == nil {
		return fmt.Errorf("devkit: implementation read should be admin-only")
	}
	if err := prx.UpgradeTo(ctx, outsider, newImplementation); err == nil {
		return fmt.Errorf("devkit: upgrade should be admin-only")
	}

	if err := prx.UpgradeTo(ctx, admin, newImplementation); err != nil {
		return fmt.Errorf("devkit: admin upgrade should succeed: %w", err)
	}
	current, err := prx.Implementation(ctx, admin)
	if err != nil {
		return err
	}
	if !core.AddressesEqual(current, newImplementation) {
		return fmt.Errorf("devkit: upgrade should be visible to the admin, got %q", current)
	}

	if err := prx.ChangeAdmin(ctx, outsider, outsider); err == nil {
		return fmt.Errorf("devkit: admin transfer should be admin-only")
	}
	if err := prx.ChangeAdmin(ctx, admin, outsider); err != nil {
		return fmt.Errorf("devkit: admin transfer should succeed: %w", err)
	}
	if _, err := prx.Admin(ctx, admin); err == nil {
		return fmt.Errorf("devkit: previous admin should lose access after transfer")
	}
	handedOver, err := prx.Admin(ctx, outsider)
	if err != nil {
		return fmt.Errorf("devkit: new admin should read proxy admin: %w", err)
	}
	if !core.AddressesEqual(handedOver, outsider) {
		return fmt.Errorf("devkit: proxy should report %q as admin after transfer, got %q", outsider, handedOver)
	}
	return nil
}

// ValidateBindingStoreConformance runs a save, read, list, upsert, delete
// round trip under an unused binding name.
func ValidateBindingStoreConformance(ctx context.Context, store core.BindingStore, name string) error {
	if store == nil {
		return fmt.Errorf("devkit: binding store is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("devkit: binding name is required")
	}

	if _, ok, err := store.Get(ctx, name); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("devkit: binding name %q must be unused before validation", name)
	}

	saved, err := store.Save(ctx, core.BindingRecord{
		Name:           name,
		PackageAddress: core.Address("devkit-package-1"),
		Version:        "1.0.0",
	})
	if err != nil {
		return err
	}
	if saved.Name != name || saved.Version != "1.0.0" {
		return fmt.Errorf("devkit: save should echo the stored record, got %+v", saved)
	}

	loaded, ok, err := store.Get(ctx, name)
	if err != nil {
		return err
	}
	if !ok || loaded.Version != "1.0.0" || !core.AddressesEqual(loaded.PackageAddress, core.Address("devkit-package-1")) {
		return fmt.Errorf("devkit: get should return the saved binding, got ok=%v record=%+v", ok, loaded)
	}

	records, err := store.List(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, record := range records {
		if record.Name == name {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("devkit: list should include %q", name)
	}

	if _, err := store.Save(ctx, core.BindingRecord{
		Name:           name,
		PackageAddress: core.Address("devkit-package-1"),
		Version:        "1.1.0",
	}); err != nil {
		return err
	}
	repinned, ok, err := store.Get(ctx, name)
	if err != nil {
		return err
	}
	if !ok || repinned.Version != "1.1.0" {
		return fmt.Errorf("devkit: save should upsert the existing binding, got ok=%v version=%q", ok, repinned.Version)
	}

	if err := store.Delete(ctx, name); err != nil {
		return err
	}
	if _, ok, err := store.Get(ctx, name); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("devkit: deleted binding should not be readable")
	}
	return nil
}
