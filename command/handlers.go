package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-upgrades/core"
)

type MutatingService interface {
	SetPackage(ctx context.Context, req core.SetPackageRequest) (core.PackageBinding, error)
	UnsetPackage(ctx context.Context, req core.UnsetPackageRequest) error
	CreateProxy(ctx context.Context, req core.CreateProxyRequest) (core.ProxyInfo, error)
	UpgradeProxy(ctx context.Context, req core.UpgradeProxyRequest) error
	UpgradeProxyAndCall(ctx context.Context, req core.UpgradeProxyAndCallRequest) error
	ChangeProxyAdmin(ctx context.Context, req core.ChangeProxyAdminRequest) error
	TransferOwnership(ctx context.Context, req core.TransferOwnershipRequest) (core.OwnershipRecord, error)
}

type AuditSchedulingService interface {
	ScheduleBindingAudit(ctx context.Context) error
}

type SetPackageCommand struct {
	service MutatingService
}

func NewSetPackageCommand(service MutatingService) *SetPackageCommand {
	return &SetPackageCommand{service: service}
}

func (c *SetPackageCommand) Execute(ctx context.Context, msg SetPackageMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: set package service is required")
	}
	out, err := c.service.SetPackage(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UnsetPackageCommand struct {
	service MutatingService
}

func NewUnsetPackageCommand(service MutatingService) *UnsetPackageCommand {
	return &UnsetPackageCommand{service: service}
}

func (c *UnsetPackageCommand) Execute(ctx context.Context, msg UnsetPackageMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: unset package service is required")
	}
	return c.service.UnsetPackage(ctx, msg.Request)
}

type CreateProxyCommand struct {
	service MutatingService
}

func NewCreateProxyCommand(service MutatingService) *CreateProxyCommand {
	return &CreateProxyCommand{service: service}
}

func (c *CreateProxyCommand) Execute(ctx context.Context, msg CreateProxyMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: create proxy service is required")
	}
	out, err := c.service.CreateProxy(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpgradeProxyCommand struct {
	service MutatingService
}

func NewUpgradeProxyCommand(service MutatingService) *UpgradeProxyCommand {
	return &UpgradeProxyCommand{service: service}
}

func (c *UpgradeProxyCommand) Execute(ctx context.Context, msg UpgradeProxyMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: upgrade proxy service is required")
	}
	return c.service.UpgradeProxy(ctx, msg.Request)
}

type UpgradeProxyAndCallCommand struct {
	service MutatingService
}

func NewUpgradeProxyAndCallCommand(service MutatingService) *UpgradeProxyAndCallCommand {
	return &UpgradeProxyAndCallCommand{service: service}
}

func (c *UpgradeProxyAndCallCommand) Execute(ctx context.Context, msg UpgradeProxyAndCallMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: upgrade proxy service is required")
	}
	return c.service.UpgradeProxyAndCall(ctx, msg.Request)
}

type ChangeProxyAdminCommand struct {
	service MutatingService
}

func NewChangeProxyAdminCommand(service MutatingService) *ChangeProxyAdminCommand {
	return &ChangeProxyAdminCommand{service: service}
}

func (c *ChangeProxyAdminCommand) Execute(ctx context.Context, msg ChangeProxyAdminMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: change proxy admin service is required")
	}
	return c.service.ChangeProxyAdmin(ctx, msg.Request)
}

type TransferOwnershipCommand struct {
	service MutatingService
}

func NewTransferOwnershipCommand(service MutatingService) *TransferOwnershipCommand {
	return &TransferOwnershipCommand{service: service}
}

func (c *TransferOwnershipCommand) Execute(ctx context.Context, msg TransferOwnershipMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: transfer ownership service is required")
	}
	out, err := c.service.TransferOwnership(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ScheduleBindingAuditCommand struct {
	service AuditSchedulingService
}

func NewScheduleBindingAuditCommand(service AuditSchedulingService) *ScheduleBindingAuditCommand {
	return &ScheduleBindingAuditCommand{service: service}
}

func (c *ScheduleBindingAuditCommand) Execute(ctx context.Context, _ ScheduleBindingAuditMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: audit scheduling service is required")
	}
	return c.service.ScheduleBindingAudit(ctx)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
