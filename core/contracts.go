package core

import (
	"context"
	"math/big"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// VersionedProvider is one package's set of published versions. The registry
// references providers, it never owns them; their lifetime is external.
type VersionedProvider interface {
	// Address returns the provider's stable identity, carried in change
	// notifications and persisted binding records.
	Address() Address

	// HasVersion reports whether the provider currently publishes version.
	HasVersion(ctx context.Context, version string) (bool, error)

	// Version returns the implementation provider for one published
	// version. ok is false when the version is not (or no longer) known.
	Version(ctx context.Context, version string) (ImplementationProvider, bool, error)
}

// ImplementationProvider resolves contract names to implementation addresses
// for one specific version.
type ImplementationProvider interface {
	Implementation(ctx context.Context, contractName string) (Address, bool, error)
}

// Proxy is an externally-owned upgradeable proxy. Every operation carries
// the caller identity because the collaborator enforces admin-only access
// on its own side.
type Proxy interface {
	Address() Address
	Implementation(ctx context.Context, caller Address) (Address, error)
	Admin(ctx context.Context, caller Address) (Address, error)
	UpgradeTo(ctx context.Context, caller Address, implementation Address) error
	UpgradeToAndCall(ctx context.Context, caller Address, implementation Address, callData []byte, value *big.Int) error
	ChangeAdmin(ctx context.Context, caller Address, newAdmin Address) error
}

type DeployProxyInput struct {
	Admin          Address
	Implementation Address
	InitData       []byte
	Value          *big.Int
}

// ProxyFactory constructs proxy instances. Construction is atomic: when the
// initialization payload fails, no proxy exists afterwards.
type ProxyFactory interface {
	Deploy(ctx context.Context, input DeployProxyInput) (Proxy, error)
}

// AccessGuard is the pluggable authorization capability. Every mutating
// registry operation and every proxy-administration operation must pass
// Authorize before any state changes.
type AccessGuard interface {
	CurrentOwner(ctx context.Context) (Address, error)
	Authorize(ctx context.Context, caller Address) error
}

// OwnershipTransferrer is the optional guard capability that rotates the
// authorized principal.
type OwnershipTransferrer interface {
	TransferOwnership(ctx context.Context, req TransferOwnershipRequest) (OwnershipRecord, error)
}

// BindingStore mirrors registry bindings for durability. The in-memory map
// stays canonical; stores only observe committed writes.
type BindingStore interface {
	Save(ctx context.Context, record BindingRecord) (BindingRecord, error)
	Get(ctx context.Context, name string) (BindingRecord, bool, error)
	List(ctx context.Context) ([]BindingRecord, error)
	Delete(ctx context.Context, name string) error
}

type OwnershipStore interface {
	Current(ctx context.Context) (OwnershipRecord, bool, error)
	Save(ctx context.Context, record OwnershipRecord) (OwnershipRecord, error)
}

// PackageLocator maps a persisted package address back to a live provider
// handle during bootstrap.
type PackageLocator interface {
	Locate(ctx context.Context, address Address) (VersionedProvider, bool, error)
}

// EventJournal is an append-only log of emitted notifications.
type EventJournal interface {
	Append(ctx context.Context, event Event) (Event, error)
	List(ctx context.Context, filter EventFilter) (EventPage, error)
}

type EventHandler interface {
	HandleEvent(ctx context.Context, event Event) error
}

type EventHandlerFunc func(ctx context.Context, event Event) error

func (f EventHandlerFunc) HandleEvent(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// EventBus fans committed events out to subscribers. Publish happens after
// the state transition; handler failures never unwind the operation.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(handler EventHandler)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// StoreProvider exposes the persistence surfaces a repository factory built.
type StoreProvider interface {
	BindingStore() BindingStore
	OwnershipStore() OwnershipStore
	EventJournal() EventJournal
}

// RepositoryStoreFactory builds stores from a persistence client. The client
// stays untyped here so the core does not import database packages.
type RepositoryStoreFactory interface {
	BuildStores(client any) (StoreProvider, error)
}

type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

// UpgradeService is the full operation surface the service implements.
// Downstream packages depend on this interface so fakes can stand in.
type UpgradeService interface {
	SetPackage(ctx context.Context, req SetPackageRequest) (PackageBinding, error)
	UnsetPackage(ctx context.Context, req UnsetPackageRequest) error
	Package(ctx context.Context, name string) (PackageBinding, bool, error)
	Provider(ctx context.Context, name string) (ImplementationProvider, bool, error)
	Implementation(ctx context.Context, name, contract string) (Address, bool, error)
	CreateProxy(ctx context.Context, req CreateProxyRequest) (ProxyInfo, error)
	UpgradeProxy(ctx context.Context, req UpgradeProxyRequest) error
	UpgradeProxyAndCall(ctx context.Context, req UpgradeProxyAndCallRequest) error
	ProxyImplementation(ctx context.Context, proxy Proxy) (Address, error)
	ProxyAdmin(ctx context.Context, proxy Proxy) (Address, error)
	ChangeProxyAdmin(ctx context.Context, req ChangeProxyAdminRequest) error
	Owner(ctx context.Context) (Address, error)
	TransferOwnership(ctx context.Context, req TransferOwnershipRequest) (OwnershipRecord, error)
	Events(ctx context.Context, filter EventFilter) (EventPage, error)
	BindingAudit(ctx context.Context) (AuditReport, error)
	ScheduleBindingAudit(ctx context.Context) error
}
