package core

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

type fixedOptionsResolver struct {
	cfg Config
}

func (r *fixedOptionsResolver) Resolve(Config, Config, Config) (Config, error) {
	return r.cfg, nil
}

func TestNewService_DefaultDependencies(t *testing.T) {
	svc, err := NewService(Config{InitialOwner: string(testOwner)})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	deps := svc.Dependencies()
	if deps.Logger == nil {
		t.Fatalf("expected default logger")
	}
	if deps.ErrorFactory == nil {
		t.Fatalf("expected default error factory")
	}
	if deps.ErrorMapper == nil {
		t.Fatalf("expected default error mapper")
	}
	if deps.ConfigProvider == nil {
		t.Fatalf("expected default config provider")
	}
	if deps.OptionsResolver == nil {
		t.Fatalf("expected default options resolver")
	}
	if got := svc.Config().ServiceName; got != "upgrades" {
		t.Fatalf("expected default config service_name=upgrades, got %q", got)
	}
}

func TestNewService_WithXOverrides(t *testing.T) {
	customLogger := newCaptureLogger()
	customProvider := stubLoggerProvider{logger: customLogger}
	customMetrics := newCaptureMetrics()
	customFactory := func(message string, category ...goerrors.Category) *goerrors.Error {
		return goerrors.New("custom:"+message, category...)
	}
	sentinel := errors.New("sentinel")
	customMapper := func(error) *goerrors.Error {
		return goerrors.Wrap(sentinel, goerrors.CategoryOperation, "mapped")
	}
	persistenceClient := &struct{ Name string }{Name: "persistence"}
	configProvider := &fixedConfigProvider{cfg: Config{ServiceName: "from-provider"}}
	optionsResolver := &fixedOptionsResolver{cfg: Config{
		ServiceName:  "resolved",
		InitialOwner: string(testOwner),
	}}
	guard, err := NewOwnerGuard(testOwner)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	factory := newFakeProxyFactory()
	bus := NewMemoryEventBus()
	bindings := NewMemoryBindingStore()
	ownership := NewMemoryOwnershipStore()
	journal := NewMemoryEventJournal()
	locator := NewStaticPackageLocator()
	enqueuer := &captureEnqueuer{}

	svc, err := NewService(Config{ServiceName: "runtime"},
		WithLogger(customLogger),
		WithLoggerProvider(customProvider),
		WithMetricsRecorder(customMetrics),
		WithErrorFactory(customFactory),
		WithErrorMapper(customMapper),
		WithPersistenceClient(persistenceClient),
		WithConfigProvider(configProvider),
		WithOptionsResolver(optionsResolver),
		WithAccessGuard(guard),
		WithProxyFactory(factory),
		WithEventBus(bus),
		WithBindingStore(bindings),
		WithOwnershipStore(ownership),
		WithEventJournal(journal),
		WithPackageLocator(locator),
		WithJobEnqueuer(enqueuer),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	deps := svc.Dependencies()
	if deps.Logger != Logger(customLogger) {
		t.Fatalf("expected custom logger override")
	}
	if deps.MetricsRecorder != MetricsRecorder(customMetrics) {
		t.Fatalf("expected custom metrics recorder")
	}
	if deps.PersistenceClient != any(persistenceClient) {
		t.Fatalf("expected persistence client override")
	}
	if deps.Guard != AccessGuard(guard) {
		t.Fatalf("expected provided guard")
	}
	if deps.ProxyFactory != ProxyFactory(factory) {
		t.Fatalf("expected provided proxy factory")
	}
	if deps.EventBus != EventBus(bus) {
		t.Fatalf("expected provided event bus")
	}
	if deps.BindingStore != BindingStore(bindings) {
		t.Fatalf("expected provided binding store")
	}
	if deps.OwnershipStore != OwnershipStore(ownership) {
		t.Fatalf("expected provided ownership store")
	}
	if deps.EventJournal != EventJournal(journal) {
		t.Fatalf("expected provided event journal")
	}
	if deps.PackageLocator != PackageLocator(locator) {
		t.Fatalf("expected provided package locator")
	}
	if deps.JobEnqueuer != JobEnqueuer(enqueuer) {
		t.Fatalf("expected provided job enqueuer")
	}
	if got := svc.Config().ServiceName; got != "resolved" {
		t.Fatalf("expected resolver output to win, got %q", got)
	}

	mapped := svc.mapError(errors.New("anything"))
	if !errors.Is(mapped, sentinel) {
		t.Fatalf("expected custom mapper to run, got %v", mapped)
	}
}

func TestNewService_BuildsStoresThroughRepositoryFactory(t *testing.T) {
	bindings := NewMemoryBindingStore()
	ownership := NewMemoryOwnershipStore()
	journal := NewMemoryEventJournal()
	factory := stubStoreFactory{provider: stubStoreProvider{
		bindings:  bindings,
		ownership: ownership,
		journal:   journal,
	}}

	svc, err := NewService(Config{
		ServiceName:  "upgrades-test",
		InitialOwner: string(testOwner),
	}, WithRepositoryFactory(factory))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	deps := svc.Dependencies()
	if deps.BindingStore != BindingStore(bindings) {
		t.Fatalf("expected factory-built binding store")
	}
	if deps.OwnershipStore != OwnershipStore(ownership) {
		t.Fatalf("expected factory-built ownership store")
	}
	if deps.EventJournal != EventJournal(journal) {
		t.Fatalf("expected factory-built event journal")
	}
}

type stubStoreProvider struct {
	bindings  BindingStore
	ownership OwnershipStore
	journal   EventJournal
}

func (p stubStoreProvider) BindingStore() BindingStore     { return p.bindings }
func (p stubStoreProvider) OwnershipStore() OwnershipStore { return p.ownership }
func (p stubStoreProvider) EventJournal() EventJournal     { return p.journal }

type stubStoreFactory struct {
	provider StoreProvider
}

func (f stubStoreFactory) BuildStores(any) (StoreProvider, error) {
	return f.provider, nil
}

func TestGoOptionsResolver_RuntimeOverridesConfigOverridesDefaults(t *testing.T) {
	resolved, err := GoOptionsResolver{}.Resolve(
		DefaultConfig(),
		Config{ServiceName: "from-config", Audit: AuditConfig{BatchSize: 25}},
		Config{ServiceName: "from-runtime"},
	)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ServiceName != "from-runtime" {
		t.Fatalf("expected runtime layer to win, got %q", resolved.ServiceName)
	}
	if resolved.Audit.BatchSize != 25 {
		t.Fatalf("expected config layer value to survive, got %d", resolved.Audit.BatchSize)
	}
}

func TestGoOptionsResolver_ZeroRuntimeValuesDoNotMaskConfig(t *testing.T) {
	resolved, err := GoOptionsResolver{}.Resolve(
		DefaultConfig(),
		Config{
			ServiceName:  "from-config",
			InitialOwner: "0xcfg",
			Lifecycle:    LifecycleConfig{RejectUnresolved: true},
		},
		Config{},
	)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ServiceName != "from-config" {
		t.Fatalf("expected config layer to survive an empty runtime, got %q", resolved.ServiceName)
	}
	if !resolved.Lifecycle.RejectUnresolved {
		t.Fatalf("expected lifecycle flag from the config layer")
	}
	if resolved.InitialOwner != "0xcfg" {
		t.Fatalf("expected config owner, got %q", resolved.InitialOwner)
	}
}

func TestCfgxConfigProvider_LoadsRawValuesOverDefaults(t *testing.T) {
	provider := NewCfgxConfigProvider(staticRawConfigLoader{Values: map[string]any{
		"service_name":  "loaded-name",
		"initial_owner": "0xcfg",
		"lifecycle": map[string]any{
			"reject_unresolved": true,
		},
	}})

	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "loaded-name" {
		t.Fatalf("expected loaded name, got %q", cfg.ServiceName)
	}
	if cfg.InitialOwner != "0xcfg" {
		t.Fatalf("expected loaded owner, got %q", cfg.InitialOwner)
	}
	if !cfg.Lifecycle.RejectUnresolved {
		t.Fatalf("expected loaded lifecycle flag")
	}
}

func TestCfgxConfigProvider_EmptyLoaderKeepsDefaults(t *testing.T) {
	provider := NewCfgxConfigProvider(nil)

	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "upgrades" {
		t.Fatalf("expected defaults to pass through, got %q", cfg.ServiceName)
	}
}

func TestCfgxConfigProvider_RejectsInvalidRawConfig(t *testing.T) {
	provider := NewCfgxConfigProvider(staticRawConfigLoader{Values: map[string]any{
		"audit": map[string]any{"batch_size": -2},
	}})

	if _, err := provider.Load(context.Background(), DefaultConfig()); err == nil {
		t.Fatalf("expected validation failure for negative batch size")
	}
}
