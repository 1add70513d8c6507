package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

var (
	ErrInvalidVersion  = errors.New("core: version is not registered on the package")
	ErrPackageNotFound = errors.New("core: no binding exists for the package name")
	ErrProxyAdminOnly  = errors.New("core: operation requires proxy administration")
)

// JobIDBindingAudit names the queued form of the binding audit sweep.
const JobIDBindingAudit = "upgrades.binding.audit"

// Service wires the registry, guard, orchestration, and event plumbing
// behind one API. A single mutex serializes every mutating operation end to
// end so authorization, validation, the state write, the store mirror, and
// event emission commit as one linearized transition.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	persistenceClient any
	repositoryFactory any
	guard             AccessGuard
	proxyFactory      ProxyFactory
	eventBus          EventBus
	registry          *Registry
	auditor           *BindingAuditor
	bindingStore      BindingStore
	ownershipStore    OwnershipStore
	eventJournal      EventJournal
	packageLocator    PackageLocator
	jobEnqueuer       JobEnqueuer
	identity          Address

	mu    sync.Mutex
	nowFn func() time.Time
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorFactory      ErrorFactory
	ErrorMapper       ErrorMapper
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	PersistenceClient any
	RepositoryFactory any
	Guard             AccessGuard
	ProxyFactory      ProxyFactory
	EventBus          EventBus
	Registry          *Registry
	BindingStore      BindingStore
	OwnershipStore    OwnershipStore
	EventJournal      EventJournal
	PackageLocator    PackageLocator
	JobEnqueuer       JobEnqueuer
	Identity          Address
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("upgrades", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("upgrades"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.repositoryFactory != nil &&
		(builder.bindingStore == nil || builder.ownershipStore == nil || builder.eventJournal == nil) {
		var stores StoreProvider
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			built, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			stores = built
		} else if provided, ok := builder.repositoryFactory.(StoreProvider); ok {
			stores = provided
		}
		if stores != nil {
			if builder.bindingStore == nil {
				builder.bindingStore = stores.BindingStore()
			}
			if builder.ownershipStore == nil {
				builder.ownershipStore = stores.OwnershipStore()
			}
			if builder.eventJournal == nil {
				builder.eventJournal = stores.EventJournal()
			}
		}
	}

	if builder.eventBus == nil {
		builder.eventBus = NewMemoryEventBus()
	}
	if builder.eventJournal != nil {
		builder.eventBus.Subscribe(NewJournalProjector(builder.eventJournal))
	}

	if builder.guard == nil {
		initialOwner := NormalizeAddress(finalConfig.InitialOwner)
		if initialOwner.IsZero() {
			return nil, mapBuildError(builder.errorMapper,
				fmt.Errorf("core: initial_owner is required when no access guard is provided"))
		}
		guardOptions := []OwnerGuardOption{
			WithOwnerGuardBus(builder.eventBus),
			WithOwnerGuardLogger(logger),
		}
		if builder.ownershipStore != nil {
			guardOptions = append(guardOptions, WithOwnerGuardStore(builder.ownershipStore))
		}
		guard, guardErr := NewOwnerGuard(initialOwner, guardOptions...)
		if guardErr != nil {
			return nil, mapBuildError(builder.errorMapper, guardErr)
		}
		builder.guard = guard
	}

	identity := NormalizeAddress(string(builder.identity))
	if identity.IsZero() {
		identity = NewAddress()
	}

	registry := NewRegistry()
	auditor := NewBindingAuditor(registry, finalConfig.Audit.BatchSize, logger)

	return &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		guard:             builder.guard,
		proxyFactory:      builder.proxyFactory,
		eventBus:          builder.eventBus,
		registry:          registry,
		auditor:           auditor,
		bindingStore:      builder.bindingStore,
		ownershipStore:    builder.ownershipStore,
		eventJournal:      builder.eventJournal,
		packageLocator:    builder.packageLocator,
		jobEnqueuer:       builder.jobEnqueuer,
		identity:          identity,
		nowFn:             time.Now,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// Identity returns the address this service presents to proxies it
// administers.
func (s *Service) Identity() Address {
	if s == nil {
		return ZeroAddress
	}
	return s.identity
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorFactory:      s.errorFactory,
		ErrorMapper:       s.errorMapper,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		Guard:             s.guard,
		ProxyFactory:      s.proxyFactory,
		EventBus:          s.eventBus,
		Registry:          s.registry,
		BindingStore:      s.bindingStore,
		OwnershipStore:    s.ownershipStore,
		EventJournal:      s.eventJournal,
		PackageLocator:    s.packageLocator,
		JobEnqueuer:       s.jobEnqueuer,
		Identity:          s.identity,
	}
}

// Start rehydrates persisted state when bootstrap is enabled. Bindings whose
// package address cannot be located keep their durable record but stay out
// of the live registry until a locator can resolve them.
func (s *Service) Start(ctx context.Context) (err error) {
	if s == nil {
		return fmt.Errorf("core: service is not initialized")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "start", err, fields)
	}()

	if !s.config.Bootstrap.LoadPersistedState {
		return nil
	}

	if restorer, ok := s.guard.(interface{ Restore(context.Context) error }); ok {
		if restoreErr := restorer.Restore(ctx); restoreErr != nil {
			err = s.mapError(restoreErr)
			return err
		}
	}

	if s.bindingStore == nil {
		s.logWarn(ctx, "bootstrap requested without a binding store", fields)
		return nil
	}
	records, listErr := s.bindingStore.List(ctx)
	if listErr != nil {
		err = s.mapError(listErr)
		return err
	}
	restored := 0
	for _, record := range records {
		if s.packageLocator == nil {
			s.logWarn(ctx, "bootstrap requires a package locator to rehydrate bindings", map[string]any{
				"package": record.Name,
			})
			break
		}
		pkg, ok, locateErr := s.packageLocator.Locate(ctx, record.PackageAddress)
		if locateErr != nil {
			err = s.mapError(locateErr)
			return err
		}
		if !ok || pkg == nil {
			s.logWarn(ctx, "persisted binding skipped: package address not locatable", map[string]any{
				"package":         record.Name,
				"package_address": record.PackageAddress.String(),
			})
			continue
		}
		s.registry.Set(record.Name, ProviderBinding{Package: pkg, Version: record.Version})
		restored++
	}
	fields["bindings_restored"] = restored
	return nil
}

// Stop exists for lifecycle symmetry; the service holds no background work.
func (s *Service) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.logInfo(ctx, "service stopped", map[string]any{})
	return nil
}

// Owner reports the guard's current owner.
func (s *Service) Owner(ctx context.Context) (owner Address, err error) {
	if s == nil || s.guard == nil {
		return ZeroAddress, fmt.Errorf("core: access guard is not configured")
	}
	owner, err = s.guard.CurrentOwner(ctx)
	if err != nil {
		err = s.mapError(err)
		return ZeroAddress, err
	}
	return owner, nil
}

// TransferOwnership rotates the authorized principal when the configured
// guard supports it.
func (s *Service) TransferOwnership(ctx context.Context, req TransferOwnershipRequest) (record OwnershipRecord, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"caller":    req.Caller.String(),
		"new_owner": req.NewOwner.String(),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "transfer_ownership", err, fields)
	}()

	if s == nil || s.guard == nil {
		err = s.mapError(fmt.Errorf("core: access guard is not configured"))
		return OwnershipRecord{}, err
	}
	transferrer, ok := s.guard.(OwnershipTransferrer)
	if !ok {
		err = s.errorFactory("configured access guard does not support ownership transfer", goerrors.CategoryOperation).
			WithTextCode(UpgradesErrorOperationFailed)
		return OwnershipRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record, err = transferrer.TransferOwnership(ctx, req)
	if err != nil {
		err = s.mapError(err)
		return OwnershipRecord{}, err
	}
	return record, nil
}

// Events lists journaled notifications when a journal is configured.
func (s *Service) Events(ctx context.Context, filter EventFilter) (page EventPage, err error) {
	if s == nil || s.eventJournal == nil {
		return EventPage{}, goerrors.New("event journal is not configured", goerrors.CategoryOperation).
			WithTextCode(UpgradesErrorOperationFailed)
	}
	page, err = s.eventJournal.List(ctx, filter)
	if err != nil {
		err = s.mapError(err)
		return EventPage{}, err
	}
	return page, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

// emit publishes committed events. Delivery problems degrade to warnings;
// the state transition already happened.
func (s *Service) emit(ctx context.Context, event Event) {
	if s == nil || s.eventBus == nil {
		return
	}
	event.EmittedAt = s.now()
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logWarn(ctx, "event delivery degraded", map[string]any{
			"event_type": event.Type,
			"error":      err.Error(),
		})
		s.recordCounter(ctx, "upgrades.events.delivery_failures.total", 1, map[string]string{
			"event_type": event.Type,
		})
	}
}

func (s *Service) now() time.Time {
	if s == nil || s.nowFn == nil {
		return time.Now().UTC()
	}
	return s.nowFn().UTC()
}

func requireBindingName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", goerrors.New("package name is required", goerrors.CategoryBadInput).
			WithTextCode(UpgradesErrorBadInput)
	}
	return name, nil
}

func requireContractName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", goerrors.New("contract name is required", goerrors.CategoryBadInput).
			WithTextCode(UpgradesErrorBadInput)
	}
	return name, nil
}

func requireProxyHandle(proxy Proxy) error {
	if proxy == nil {
		return goerrors.New("proxy handle is required", goerrors.CategoryBadInput).
			WithTextCode(UpgradesErrorBadInput)
	}
	return nil
}
