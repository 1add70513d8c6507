package upgrades

import "github.com/goliatone/go-upgrades/core"

type Config = core.Config

type LifecycleConfig = core.LifecycleConfig

type BootstrapConfig = core.BootstrapConfig

type AuditConfig = core.AuditConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type AccessGuard = core.AccessGuard
type ProxyFactory = core.ProxyFactory
type EventBus = core.EventBus
type BindingStore = core.BindingStore
type OwnershipStore = core.OwnershipStore
type EventJournal = core.EventJournal
type PackageLocator = core.PackageLocator
type JobEnqueuer = core.JobEnqueuer

type Address = core.Address
type VersionedProvider = core.VersionedProvider
type ImplementationProvider = core.ImplementationProvider
type Proxy = core.Proxy

type SetPackageRequest = core.SetPackageRequest
type UnsetPackageRequest = core.UnsetPackageRequest

type CreateProxyRequest = core.CreateProxyRequest

type UpgradeProxyRequest = core.UpgradeProxyRequest
type UpgradeProxyAndCallRequest = core.UpgradeProxyAndCallRequest

type ChangeProxyAdminRequest = core.ChangeProxyAdminRequest

type TransferOwnershipRequest = core.TransferOwnershipRequest

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithAccessGuard       = core.WithAccessGuard
	WithProxyFactory      = core.WithProxyFactory
	WithEventBus          = core.WithEventBus
	WithBindingStore      = core.WithBindingStore
	WithOwnershipStore    = core.WithOwnershipStore
	WithEventJournal      = core.WithEventJournal
	WithPackageLocator    = core.WithPackageLocator
	WithJobEnqueuer       = core.WithJobEnqueuer
	WithIdentity          = core.WithIdentity
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
