package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-upgrades/core"
)

var (
	_ gocmd.Querier[GetPackageMessage, core.PackageBinding]     = (*GetPackageQuery)(nil)
	_ gocmd.Querier[ResolveImplementationMessage, core.Address] = (*ResolveImplementationQuery)(nil)
	_ gocmd.Querier[GetOwnerMessage, core.Address]              = (*GetOwnerQuery)(nil)
	_ gocmd.Querier[ListEventsMessage, core.EventPage]          = (*ListEventsQuery)(nil)
	_ gocmd.Querier[ProxyImplementationMessage, core.Address]   = (*ProxyImplementationQuery)(nil)
	_ gocmd.Querier[ProxyAdminMessage, core.Address]            = (*ProxyAdminQuery)(nil)
	_ gocmd.Querier[RunBindingAuditMessage, core.AuditReport]   = (*RunBindingAuditQuery)(nil)
)
