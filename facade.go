package upgrades

import (
	"context"
	"fmt"
	"reflect"

	upgradescommand "github.com/goliatone/go-upgrades/command"
	"github.com/goliatone/go-upgrades/core"
	upgradesquery "github.com/goliatone/go-upgrades/query"
)

type CommandQueryService interface {
	upgradescommand.MutatingService
	upgradescommand.AuditSchedulingService
	upgradesquery.RegistryReader
	upgradesquery.OwnershipReader
	upgradesquery.ProxyInspector
	upgradesquery.AuditRunner
}

type Commands struct {
	SetPackage           *upgradescommand.SetPackageCommand
	UnsetPackage         *upgradescommand.UnsetPackageCommand
	CreateProxy          *upgradescommand.CreateProxyCommand
	UpgradeProxy         *upgradescommand.UpgradeProxyCommand
	UpgradeProxyAndCall  *upgradescommand.UpgradeProxyAndCallCommand
	ChangeProxyAdmin     *upgradescommand.ChangeProxyAdminCommand
	TransferOwnership    *upgradescommand.TransferOwnershipCommand
	ScheduleBindingAudit *upgradescommand.ScheduleBindingAuditCommand
}

type Queries struct {
	GetPackage            *upgradesquery.GetPackageQuery
	ResolveImplementation *upgradesquery.ResolveImplementationQuery
	GetOwner              *upgradesquery.GetOwnerQuery
	ListEvents            *upgradesquery.ListEventsQuery
	ProxyImplementation   *upgradesquery.ProxyImplementationQuery
	ProxyAdmin            *upgradesquery.ProxyAdminQuery
	RunBindingAudit       *upgradesquery.RunBindingAuditQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	eventReader upgradesquery.EventReader
}

func WithEventReader(reader upgradesquery.EventReader) FacadeOption {
	return func(options *facadeOptions) {
		options.eventReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("upgrades: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.eventReader
	if reader == nil {
		reader = resolveEventReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		SetPackage:           upgradescommand.NewSetPackageCommand(service),
		UnsetPackage:         upgradescommand.NewUnsetPackageCommand(service),
		CreateProxy:          upgradescommand.NewCreateProxyCommand(service),
		UpgradeProxy:         upgradescommand.NewUpgradeProxyCommand(service),
		UpgradeProxyAndCall:  upgradescommand.NewUpgradeProxyAndCallCommand(service),
		ChangeProxyAdmin:     upgradescommand.NewChangeProxyAdminCommand(service),
		TransferOwnership:    upgradescommand.NewTransferOwnershipCommand(service),
		ScheduleBindingAudit: upgradescommand.NewScheduleBindingAuditCommand(service),
	}
	facade.queries = Queries{
		GetPackage:            upgradesquery.NewGetPackageQuery(service),
		ResolveImplementation: upgradesquery.NewResolveImplementationQuery(service),
		GetOwner:              upgradesquery.NewGetOwnerQuery(service),
		ListEvents:            upgradesquery.NewListEventsQuery(reader),
		ProxyImplementation:   upgradesquery.NewProxyImplementationQuery(service),
		ProxyAdmin:            upgradesquery.NewProxyAdminQuery(service),
		RunBindingAudit:       upgradesquery.NewRunBindingAuditQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// resolveEventReader finds a journal-backed reader for the ListEvents query
// when the host did not pass one. Services that expose events directly win;
// otherwise the service dependencies are probed for a journal, including
// repository factories that construct one on demand.
func resolveEventReader(service CommandQueryService) upgradesquery.EventReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(upgradesquery.EventReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return nil
	}
	deps := provider.Dependencies()
	if deps.EventJournal != nil {
		return journalEventReader{journal: deps.EventJournal}
	}
	if deps.RepositoryFactory == nil {
		return nil
	}

	factoryValue := reflect.ValueOf(deps.RepositoryFactory)
	if !factoryValue.IsValid() {
		return nil
	}
	if factoryValue.Kind() == reflect.Ptr && factoryValue.IsNil() {
		return nil
	}
	method := factoryValue.MethodByName("EventJournal")
	if !method.IsValid() || method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return nil
	}

	results, ok := safeReflectCall(method)
	if !ok {
		return nil
	}
	if len(results) != 1 {
		return nil
	}
	candidate := results[0]
	if !candidate.IsValid() {
		return nil
	}
	if candidate.Kind() == reflect.Ptr && candidate.IsNil() {
		return nil
	}
	journal, ok := candidate.Interface().(core.EventJournal)
	if !ok {
		return nil
	}
	return journalEventReader{journal: journal}
}

type journalEventReader struct {
	journal core.EventJournal
}

func (r journalEventReader) Events(ctx context.Context, filter core.EventFilter) (core.EventPage, error) {
	if r.journal == nil {
		return core.EventPage{}, fmt.Errorf("upgrades: event journal is required")
	}
	return r.journal.List(ctx, filter)
}

func safeReflectCall(method reflect.Value) (_ []reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return method.Call(nil), true
}
