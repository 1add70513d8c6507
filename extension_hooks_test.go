package upgrades

import (
	"context"
	"testing"

	"github.com/goliatone/go-upgrades/core"
	"github.com/goliatone/go-upgrades/directory"
)

func TestExtensionHooks_RegisterAndApplyPackagePacks(t *testing.T) {
	hooks := NewExtensionHooks()
	pack := PackagePack{
		Name: "downstream-pack",
		Packages: []core.VersionedProvider{
			DirectoryPackage(directory.WithAddress("pkg_custom")),
		},
	}
	if err := hooks.RegisterPackagePack(pack); err != nil {
		t.Fatalf("register package pack: %v", err)
	}
	if err := hooks.RegisterPackagePack(pack); err == nil {
		t.Fatalf("expected duplicate package pack registration error")
	}

	locator := core.NewStaticPackageLocator()
	if err := hooks.ApplyPackagePacks(locator); err != nil {
		t.Fatalf("apply package packs: %v", err)
	}
	if _, ok, err := locator.Locate(context.Background(), "pkg_custom"); err != nil || !ok {
		t.Fatalf("expected package pack registration in locator, ok=%v err=%v", ok, err)
	}
}

func TestExtensionHooks_ContractManifestsAndBundles(t *testing.T) {
	hooks := NewExtensionHooks()
	if err := hooks.RegisterContractManifestPack(ContractManifestPack{
		Name:      "pack_b",
		Package:   "math",
		Contracts: []string{"Calculator"},
	}); err != nil {
		t.Fatalf("register contract manifest pack b: %v", err)
	}
	if err := hooks.RegisterContractManifestPack(ContractManifestPack{
		Name:      "pack_a",
		Package:   "math",
		Contracts: []string{"Adder"},
	}); err != nil {
		t.Fatalf("register contract manifest pack a: %v", err)
	}
	contracts := hooks.ContractManifest("math")
	if len(contracts) != 2 {
		t.Fatalf("expected two manifest contracts, got %d", len(contracts))
	}
	if contracts[0] != "Adder" || contracts[1] != "Calculator" {
		t.Fatalf("expected deterministic manifest pack ordering, got %#v", contracts)
	}

	if err := hooks.RegisterCommandQueryBundle("lifecycle_bundle", func(service CommandQueryService) (any, error) {
		return map[string]any{
			"upgrade_fn": service.UpgradeProxy,
			"owner_fn":   service.Owner,
		}, nil
	}); err != nil {
		t.Fatalf("register bundle: %v", err)
	}
	if err := hooks.RegisterCommandQueryBundle("lifecycle_bundle", func(CommandQueryService) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate bundle registration error")
	}

	svc := &stubFacadeService{}
	bundles, err := hooks.BuildCommandQueryBundles(svc)
	if err != nil {
		t.Fatalf("build bundles: %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("expected one bundle, got %d", len(bundles))
	}
	if _, ok := bundles["lifecycle_bundle"]; !ok {
		t.Fatalf("expected lifecycle_bundle entry in built bundles")
	}
}
