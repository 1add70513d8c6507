package query

import (
	"context"

	"github.com/goliatone/go-upgrades/core"
)

type RegistryReader interface {
	Package(ctx context.Context, name string) (core.PackageBinding, bool, error)
	Implementation(ctx context.Context, name string, contract string) (core.Address, bool, error)
}

type OwnershipReader interface {
	Owner(ctx context.Context) (core.Address, error)
}

type EventReader interface {
	Events(ctx context.Context, filter core.EventFilter) (core.EventPage, error)
}

type ProxyInspector interface {
	ProxyImplementation(ctx context.Context, proxy core.Proxy) (core.Address, error)
	ProxyAdmin(ctx context.Context, proxy core.Proxy) (core.Address, error)
}

type AuditRunner interface {
	BindingAudit(ctx context.Context) (core.AuditReport, error)
}

type GetPackageQuery struct {
	reader RegistryReader
}

func NewGetPackageQuery(reader RegistryReader) *GetPackageQuery {
	return &GetPackageQuery{reader: reader}
}

// Query resolves the binding for one package name. Registry misses come
// back as not-found errors so dispatcher callers get an envelope instead
// of a zero binding.
func (q *GetPackageQuery) Query(ctx context.Context, msg GetPackageMessage) (core.PackageBinding, error) {
	if q == nil || q.reader == nil {
		return core.PackageBinding{}, queryDependencyError("query: registry reader is required")
	}
	binding, ok, err := q.reader.Package(ctx, msg.Name)
	if err != nil {
		return core.PackageBinding{}, err
	}
	if !ok {
		return core.PackageBinding{}, queryNotFoundError("query: no binding exists for the package name")
	}
	return binding, nil
}

type ResolveImplementationQuery struct {
	reader RegistryReader
}

func NewResolveImplementationQuery(reader RegistryReader) *ResolveImplementationQuery {
	return &ResolveImplementationQuery{reader: reader}
}

func (q *ResolveImplementationQuery) Query(ctx context.Context, msg ResolveImplementationMessage) (core.Address, error) {
	if q == nil || q.reader == nil {
		return core.ZeroAddress, queryDependencyError("query: registry reader is required")
	}
	address, ok, err := q.reader.Implementation(ctx, msg.PackageName, msg.ContractName)
	if err != nil {
		return core.ZeroAddress, err
	}
	if !ok {
		return core.ZeroAddress, queryNotFoundError("query: contract does not resolve to an implementation")
	}
	return address, nil
}

type GetOwnerQuery struct {
	reader OwnershipReader
}

func NewGetOwnerQuery(reader OwnershipReader) *GetOwnerQuery {
	return &GetOwnerQuery{reader: reader}
}

func (q *GetOwnerQuery) Query(ctx context.Context, _ GetOwnerMessage) (core.Address, error) {
	if q == nil || q.reader == nil {
		return core.ZeroAddress, queryDependencyError("query: ownership reader is required")
	}
	return q.reader.Owner(ctx)
}

type ListEventsQuery struct {
	reader EventReader
}

func NewListEventsQuery(reader EventReader) *ListEventsQuery {
	return &ListEventsQuery{reader: reader}
}

func (q *ListEventsQuery) Query(ctx context.Context, msg ListEventsMessage) (core.EventPage, error) {
	if q == nil || q.reader == nil {
		return core.EventPage{}, queryDependencyError("query: event reader is required")
	}
	return q.reader.Events(ctx, msg.Filter)
}

type ProxyImplementationQuery struct {
	inspector ProxyInspector
}

func NewProxyImplementationQuery(inspector ProxyInspector) *ProxyImplementationQuery {
	return &ProxyImplementationQuery{inspector: inspector}
}

func (q *ProxyImplementationQuery) Query(ctx context.Context, msg ProxyImplementationMessage) (core.Address, error) {
	if q == nil || q.inspector == nil {
		return core.ZeroAddress, queryDependencyError("query: proxy inspector is required")
	}
	return q.inspector.ProxyImplementation(ctx, msg.Proxy)
}

type ProxyAdminQuery struct {
	inspector ProxyInspector
}

func NewProxyAdminQuery(inspector ProxyInspector) *ProxyAdminQuery {
	return &ProxyAdminQuery{inspector: inspector}
}

func (q *ProxyAdminQuery) Query(ctx context.Context, msg ProxyAdminMessage) (core.Address, error) {
	if q == nil || q.inspector == nil {
		return core.ZeroAddress, queryDependencyError("query: proxy inspector is required")
	}
	return q.inspector.ProxyAdmin(ctx, msg.Proxy)
}

type RunBindingAuditQuery struct {
	runner AuditRunner
}

func NewRunBindingAuditQuery(runner AuditRunner) *RunBindingAuditQuery {
	return &RunBindingAuditQuery{runner: runner}
}

func (q *RunBindingAuditQuery) Query(ctx context.Context, _ RunBindingAuditMessage) (core.AuditReport, error) {
	if q == nil || q.runner == nil {
		return core.AuditReport{}, queryDependencyError("query: audit runner is required")
	}
	return q.runner.BindingAudit(ctx)
}
