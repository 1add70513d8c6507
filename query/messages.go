package query

import (
	"strings"

	"github.com/goliatone/go-upgrades/core"
)

const (
	TypeGetPackage            = "upgrades.query.package.get"
	TypeResolveImplementation = "upgrades.query.implementation.resolve"
	TypeGetOwner              = "upgrades.query.owner.get"
	TypeListEvents            = "upgrades.query.events.list"
	TypeProxyImplementation   = "upgrades.query.proxy.implementation"
	TypeProxyAdmin            = "upgrades.query.proxy.admin"
	TypeRunBindingAudit       = "upgrades.query.audit.run"
)

type GetPackageMessage struct {
	Name string
}

func (GetPackageMessage) Type() string { return TypeGetPackage }

func (m GetPackageMessage) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return queryValidationError("name", "package name is required")
	}
	return nil
}

type ResolveImplementationMessage struct {
	PackageName  string
	ContractName string
}

func (ResolveImplementationMessage) Type() string { return TypeResolveImplementation }

func (m ResolveImplementationMessage) Validate() error {
	if strings.TrimSpace(m.PackageName) == "" {
		return queryValidationError("package_name", "package name is required")
	}
	if strings.TrimSpace(m.ContractName) == "" {
		return queryValidationError("contract_name", "contract name is required")
	}
	return nil
}

type GetOwnerMessage struct{}

func (GetOwnerMessage) Type() string { return TypeGetOwner }

func (GetOwnerMessage) Validate() error { return nil }

type ListEventsMessage struct {
	Filter core.EventFilter
}

func (ListEventsMessage) Type() string { return TypeListEvents }

func (m ListEventsMessage) Validate() error {
	if m.Filter.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	if m.Filter.Offset < 0 {
		return queryValidationError("offset", "offset must be >= 0")
	}
	return nil
}

type ProxyImplementationMessage struct {
	Proxy core.Proxy
}

func (ProxyImplementationMessage) Type() string { return TypeProxyImplementation }

func (m ProxyImplementationMessage) Validate() error {
	if m.Proxy == nil {
		return queryValidationError("proxy", "proxy handle is required")
	}
	return nil
}

type ProxyAdminMessage struct {
	Proxy core.Proxy
}

func (ProxyAdminMessage) Type() string { return TypeProxyAdmin }

func (m ProxyAdminMessage) Validate() error {
	if m.Proxy == nil {
		return queryValidationError("proxy", "proxy handle is required")
	}
	return nil
}

type RunBindingAuditMessage struct{}

func (RunBindingAuditMessage) Type() string { return TypeRunBindingAudit }

func (RunBindingAuditMessage) Validate() error { return nil }
