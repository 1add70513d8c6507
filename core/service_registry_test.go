package core

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestSetPackage_RegistersPinnedVersion(t *testing.T) {
	ctx := context.Background()
	svc, recorder := newTestService(t)

	pkg := newFakePackage("0xpkg-core").
		withVersion("1.0", newFakeProvider(map[string]Address{"Token": "0xAAA"}))

	binding, err := svc.SetPackage(ctx, SetPackageRequest{
		Caller:  testOwner,
		Name:    "Core",
		Package: pkg,
		Version: "1.0",
	})
	if err != nil {
		t.Fatalf("set package: %v", err)
	}
	if binding.Name != "Core" || binding.Version != "1.0" {
		t.Fatalf("unexpected binding: %+v", binding)
	}
	if binding.PackageAddress != "0xpkg-core" {
		t.Fatalf("expected package address in binding, got %q", binding.PackageAddress)
	}

	stored, ok, err := svc.Package(ctx, "Core")
	if err != nil {
		t.Fatalf("get package: %v", err)
	}
	if !ok {
		t.Fatalf("expected binding after set")
	}
	if stored.Package != VersionedProvider(pkg) || stored.Version != "1.0" {
		t.Fatalf("expected stored handle and version back, got %+v", stored)
	}

	events := recorder.byType(EventPackageChanged)
	if len(events) != 1 {
		t.Fatalf("expected one package changed event, got %d", len(events))
	}
	event := events[0]
	if event.PackageName != "Core" || event.PackageAddress != "0xpkg-core" || event.Version != "1.0" {
		t.Fatalf("unexpected event payload: %+v", event)
	}
	if event.Actor != testOwner {
		t.Fatalf("expected actor %q, got %q", testOwner, event.Actor)
	}
	if event.ID == "" || event.EmittedAt.IsZero() {
		t.Fatalf("expected stamped event, got %+v", event)
	}
}

func TestSetPackage_RejectsUnregisteredVersion(t *testing.T) {
	ctx := context.Background()
	svc, recorder := newTestService(t)

	pkg := newFakePackage("0xpkg-core").
		withVersion("1.0", newFakeProvider(nil))

	_, err := svc.SetPackage(ctx, SetPackageRequest{
		Caller:  testOwner,
		Name:    "Core",
		Package: pkg,
		Version: "9.9",
	})
	if err == nil {
		t.Fatalf("expected invalid version error")
	}
	if !errors.Is(err, ErrInvalidVersion) {
		t.Fatalf("expected ErrInvalidVersion in chain, got %v", err)
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected go-errors type, got %T", err)
	}
	if richErr.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", richErr.Category)
	}
	if richErr.TextCode != UpgradesErrorInvalidVersion {
		t.Fatalf("expected invalid version text code, got %q", richErr.TextCode)
	}

	if _, ok, _ := svc.Package(ctx, "Core"); ok {
		t.Fatalf("rejected set must not register a binding")
	}
	if len(recorder.snapshot()) != 0 {
		t.Fatalf("rejected set must not emit events")
	}
}

func TestSetPackage_InvalidVersionKeepsExistingBinding(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	pkg := registerPackage(t, svc, "Core", "1.0", map[string]Address{"Token": "0xAAA"})

	_, err := svc.SetPackage(ctx, SetPackageRequest{
		Caller:  testOwner,
		Name:    "Core",
		Package: pkg,
		Version: "2.0",
	})
	if !errors.Is(err, ErrInvalidVersion) {
		t.Fatalf("expected invalid version error, got %v", err)
	}

	binding, ok, err := svc.Package(ctx, "Core")
	if err != nil || !ok {
		t.Fatalf("expected original binding to remain, ok=%v err=%v", ok, err)
	}
	if binding.Version != "1.0" {
		t.Fatalf("expected pin to stay at 1.0, got %q", binding.Version)
	}
}

func TestSetPackage_RejectsNonOwner(t *testing.T) {
	ctx := context.Background()
	svc, recorder := newTestService(t)

	pkg := newFakePackage("0xpkg-core").
		withVersion("1.0", newFakeProvider(nil))

	_, err := svc.SetPackage(ctx, SetPackageRequest{
		Caller:  testOutsider,
		Name:    "Core",
		Package: pkg,
		Version: "1.0",
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}

	if _, ok, _ := svc.Package(ctx, "Core"); ok {
		t.Fatalf("unauthorized set must not register a binding")
	}
	if len(recorder.snapshot()) != 0 {
		t.Fatalf("unauthorized set must not emit events")
	}
}

func TestSetPackage_ValidatesInput(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	var richErr *goerrors.Error

	_, err := svc.SetPackage(ctx, SetPackageRequest{
		Caller:  testOwner,
		Name:    "   ",
		Package: newFakePackage("0xpkg"),
		Version: "1.0",
	})
	if !goerrors.As(err, &richErr) || richErr.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad input for blank name, got %v", err)
	}

	_, err = svc.SetPackage(ctx, SetPackageRequest{
		Caller:  testOwner,
		Name:    "Core",
		Package: nil,
		Version: "1.0",
	})
	if !goerrors.As(err, &richErr) || richErr.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad input for nil package, got %v", err)
	}
}

func TestSetPackage_WrapsVersionCheckFailure(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	pkg := newFakePackage("0xpkg-core")
	pkg.checkErr = errors.New("provider offline")

	_, err := svc.SetPackage(ctx, SetPackageRequest{
		Caller:  testOwner,
		Name:    "Core",
		Package: pkg,
		Version: "1.0",
	})
	if err == nil {
		t.Fatalf("expected version check failure")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected go-errors type, got %T", err)
	}
	if richErr.Category != goerrors.CategoryOperation {
		t.Fatalf("expected operation category, got %q", richErr.Category)
	}
}

func TestSetPackage_OverwriteTakesLastWrite(t *testing.T) {
	ctx := context.Background()
	svc, recorder := newTestService(t)

	registerPackage(t, svc, "Core", "1.0", map[string]Address{"Token": "0xAAA"})
	replacement := newFakePackage("0xpkg-next").
		withVersion("2.0", newFakeProvider(map[string]Address{"Token": "0xBBB"}))

	if _, err := svc.SetPackage(ctx, SetPackageRequest{
		Caller:  testOwner,
		Name:    "Core",
		Package: replacement,
		Version: "2.0",
	}); err != nil {
		t.Fatalf("overwrite set: %v", err)
	}

	binding, ok, err := svc.Package(ctx, "Core")
	if err != nil || !ok {
		t.Fatalf("expected binding after overwrite, ok=%v err=%v", ok, err)
	}
	if binding.Package != VersionedProvider(replacement) || binding.Version != "2.0" {
		t.Fatalf("expected replacement to win, got %+v", binding)
	}

	events := recorder.byType(EventPackageChanged)
	if len(events) != 2 {
		t.Fatalf("expected two package changed events, got %d", len(events))
	}
	if events[1].PackageAddress != "0xpkg-next" || events[1].Version != "2.0" {
		t.Fatalf("unexpected overwrite event: %+v", events[1])
	}
}

func TestSetPackage_StoreFailureRollsBackFreshBinding(t *testing.T) {
	ctx := context.Background()
	store := newFailingBindingStore()
	store.saveErr = errors.New("disk full")
	svc, recorder := newTestService(t, WithBindingStore(store))

	pkg := newFakePackage("0xpkg-core").
		withVersion("1.0", newFakeProvider(nil))

	_, err := svc.SetPackage(ctx, SetPackageRequest{
		Caller:  testOwner,
		Name:    "Core",
		Package: pkg,
		Version: "1.0",
	})
	if err == nil {
		t.Fatalf("expected set to fail when the store write fails")
	}

	if _, ok, _ := svc.Package(ctx, "Core"); ok {
		t.Fatalf("failed set must leave no binding behind")
	}
	if len(recorder.snapshot()) != 0 {
		t.Fatalf("failed set must not emit events")
	}
}

func TestSetPackage_StoreFailureRestoresPreviousBinding(t *testing.T) {
	ctx := context.Background()
	store := newFailingBindingStore()
	svc, _ := newTestService(t, WithBindingStore(store))

	original := registerPackage(t, svc, "Core", "1.0", map[string]Address{"Token": "0xAAA"})

	store.saveErr = errors.New("disk full")
	replacement := newFakePackage("0xpkg-next").
		withVersion("2.0", newFakeProvider(nil))

	_, err := svc.SetPackage(ctx, SetPackageRequest{
		Caller:  testOwner,
		Name:    "Core",
		Package: replacement,
		Version: "2.0",
	})
	if err == nil {
		t.Fatalf("expected overwrite to fail when the store write fails")
	}

	binding, ok, err := svc.Package(ctx, "Core")
	if err != nil || !ok {
		t.Fatalf("expected previous binding to survive, ok=%v err=%v", ok, err)
	}
	if binding.Package != VersionedProvider(original) || binding.Version != "1.0" {
		t.Fatalf("expected rollback to the previous binding, got %+v", binding)
	}
}

func TestUnsetPackage_RemovesBindingAndEmitsClearedEvent(t *testing.T) {
	ctx := context.Background()
	svc, recorder := newTestService(t)

	registerPackage(t, svc, "Core", "1.0", map[string]Address{"Token": "0xAAA"})

	if err := svc.UnsetPackage(ctx, UnsetPackageRequest{Caller: testOwner, Name: "Core"}); err != nil {
		t.Fatalf("unset package: %v", err)
	}

	binding, ok, err := svc.Package(ctx, "Core")
	if err != nil {
		t.Fatalf("get package: %v", err)
	}
	if ok {
		t.Fatalf("expected binding to be gone after unset")
	}
	if binding.Name != "Core" || binding.PackageAddress != ZeroAddress || binding.Version != "" {
		t.Fatalf("expected empty tuple for unset name, got %+v", binding)
	}

	events := recorder.byType(EventPackageChanged)
	if len(events) != 2 {
		t.Fatalf("expected set and unset events, got %d", len(events))
	}
	cleared := events[1]
	if cleared.PackageAddress != ZeroAddress || cleared.Version != "" {
		t.Fatalf("unset event must carry the zero address and empty version, got %+v", cleared)
	}
	if cleared.PackageName != "Core" {
		t.Fatalf("unset event must name the package, got %q", cleared.PackageName)
	}
}

func TestUnsetPackage_UnknownNameReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	err := svc.UnsetPackage(ctx, UnsetPackageRequest{Caller: testOwner, Name: "Ghost"})
	if !errors.Is(err, ErrPackageNotFound) {
		t.Fatalf("expected package not found, got %v", err)
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected go-errors type, got %T", err)
	}
	if richErr.Category != goerrors.CategoryNotFound {
		t.Fatalf("expected not found category, got %q", richErr.Category)
	}
	if richErr.TextCode != UpgradesErrorPackageNotFound {
		t.Fatalf("expected package not found text code, got %q", richErr.TextCode)
	}
}

func TestUnsetPackage_RejectsNonOwner(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	registerPackage(t, svc, "Core", "1.0", nil)

	err := svc.UnsetPackage(ctx, UnsetPackageRequest{Caller: testOutsider, Name: "Core"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if _, ok, _ := svc.Package(ctx, "Core"); !ok {
		t.Fatalf("unauthorized unset must keep the binding")
	}
}

func TestUnsetPackage_StoreFailureRestoresBinding(t *testing.T) {
	ctx := context.Background()
	store := newFailingBindingStore()
	svc, recorder := newTestService(t, WithBindingStore(store))

	registerPackage(t, svc, "Core", "1.0", nil)
	store.deleteErr = errors.New("disk full")

	err := svc.UnsetPackage(ctx, UnsetPackageRequest{Caller: testOwner, Name: "Core"})
	if err == nil {
		t.Fatalf("expected unset to fail when the store delete fails")
	}

	if _, ok, _ := svc.Package(ctx, "Core"); !ok {
		t.Fatalf("failed unset must restore the binding")
	}
	if events := recorder.byType(EventPackageChanged); len(events) != 1 {
		t.Fatalf("failed unset must not emit a cleared event, got %d events", len(events))
	}
}

func TestPackage_AbsentNameReturnsEmptyTupleWithoutError(t *testing.T) {
	svc, _ := newTestService(t)

	binding, ok, err := svc.Package(context.Background(), "Ghost")
	if err != nil {
		t.Fatalf("lookup must not error on absence: %v", err)
	}
	if ok {
		t.Fatalf("expected no binding")
	}
	if binding.Name != "Ghost" || binding.PackageAddress != ZeroAddress || binding.Version != "" {
		t.Fatalf("expected empty tuple, got %+v", binding)
	}
}

func TestProvider_ResolvesPinnedVersion(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	impl := newFakeProvider(map[string]Address{"Token": "0xAAA"})
	pkg := newFakePackage("0xpkg-core").withVersion("1.0", impl)
	if _, err := svc.SetPackage(ctx, SetPackageRequest{
		Caller:  testOwner,
		Name:    "Core",
		Package: pkg,
		Version: "1.0",
	}); err != nil {
		t.Fatalf("set package: %v", err)
	}

	provider, ok, err := svc.Provider(ctx, "Core")
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	if !ok {
		t.Fatalf("expected provider for pinned version")
	}
	if provider != ImplementationProvider(impl) {
		t.Fatalf("expected the pinned provider handle back")
	}
}

func TestProvider_AbsentNameResolvesToNothing(t *testing.T) {
	svc, _ := newTestService(t)

	provider, ok, err := svc.Provider(context.Background(), "Ghost")
	if err != nil {
		t.Fatalf("provider lookup must not error on absence: %v", err)
	}
	if ok || provider != nil {
		t.Fatalf("expected no provider, got ok=%v provider=%v", ok, provider)
	}
}

func TestProvider_PinSurvivesVersionDisappearing(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	pkg := registerPackage(t, svc, "Core", "1.0", map[string]Address{"Token": "0xAAA"})
	pkg.dropVersion("1.0")

	binding, ok, err := svc.Package(ctx, "Core")
	if err != nil || !ok {
		t.Fatalf("pin must stay registered, ok=%v err=%v", ok, err)
	}
	if binding.Version != "1.0" {
		t.Fatalf("pin must not be re-validated, got version %q", binding.Version)
	}

	provider, ok, err := svc.Provider(ctx, "Core")
	if err != nil {
		t.Fatalf("provider lookup after drop: %v", err)
	}
	if ok || provider != nil {
		t.Fatalf("dropped version must resolve to nothing, got ok=%v", ok)
	}
}

func TestProvider_WrapsProviderLookupFailure(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	pkg := registerPackage(t, svc, "Core", "1.0", nil)
	pkg.fetchErr = errors.New("provider offline")

	_, _, err := svc.Provider(ctx, "Core")
	if err == nil {
		t.Fatalf("expected provider lookup failure")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected go-errors type, got %T", err)
	}
	if richErr.Category != goerrors.CategoryOperation {
		t.Fatalf("expected operation category, got %q", richErr.Category)
	}
}

func TestImplementation_ResolvesContractAddress(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	registerPackage(t, svc, "Core", "1.0", map[string]Address{"Token": "0xAAA"})

	address, ok, err := svc.Implementation(ctx, "Core", "Token")
	if err != nil {
		t.Fatalf("implementation: %v", err)
	}
	if !ok || address != "0xAAA" {
		t.Fatalf("expected 0xAAA, got ok=%v address=%q", ok, address)
	}
}

func TestImplementation_MissesResolveToZeroWithoutError(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	registerPackage(t, svc, "Core", "1.0", map[string]Address{"Token": "0xAAA"})

	for _, tc := range []struct {
		name     string
		pkg      string
		contract string
	}{
		{name: "unknown package", pkg: "Ghost", contract: "Token"},
		{name: "unknown contract", pkg: "Core", contract: "Ghost"},
	} {
		address, ok, err := svc.Implementation(ctx, tc.pkg, tc.contract)
		if err != nil {
			t.Fatalf("%s: lookup must not error, got %v", tc.name, err)
		}
		if ok || address != ZeroAddress {
			t.Fatalf("%s: expected zero address miss, got ok=%v address=%q", tc.name, ok, address)
		}
	}
}
