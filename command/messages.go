package command

import (
	"strings"

	"github.com/goliatone/go-upgrades/core"
)

const (
	TypeSetPackage           = "upgrades.command.package.set"
	TypeUnsetPackage         = "upgrades.command.package.unset"
	TypeCreateProxy          = "upgrades.command.proxy.create"
	TypeUpgradeProxy         = "upgrades.command.proxy.upgrade"
	TypeUpgradeProxyAndCall  = "upgrades.command.proxy.upgrade_and_call"
	TypeChangeProxyAdmin     = "upgrades.command.proxy.change_admin"
	TypeTransferOwnership    = "upgrades.command.ownership.transfer"
	TypeScheduleBindingAudit = "upgrades.command.audit.schedule"
)

type SetPackageMessage struct {
	Request core.SetPackageRequest
}

func (SetPackageMessage) Type() string { return TypeSetPackage }

func (m SetPackageMessage) Validate() error {
	if err := validateCaller(m.Request.Caller); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.Name) == "" {
		return commandValidationError("name", "package name is required")
	}
	if m.Request.Package == nil {
		return commandValidationError("package", "package handle is required")
	}
	if strings.TrimSpace(m.Request.Version) == "" {
		return commandValidationError("version", "version is required")
	}
	return nil
}

type UnsetPackageMessage struct {
	Request core.UnsetPackageRequest
}

func (UnsetPackageMessage) Type() string { return TypeUnsetPackage }

func (m UnsetPackageMessage) Validate() error {
	if err := validateCaller(m.Request.Caller); err != nil {
		return err
	}
	if strings.TrimSpace(m.Request.Name) == "" {
		return commandValidationError("name", "package name is required")
	}
	return nil
}

type CreateProxyMessage struct {
	Request core.CreateProxyRequest
}

func (CreateProxyMessage) Type() string { return TypeCreateProxy }

// Validate skips the caller: proxy creation is open to anyone.
func (m CreateProxyMessage) Validate() error {
	if strings.TrimSpace(m.Request.PackageName) == "" {
		return commandValidationError("package_name", "package name is required")
	}
	if strings.TrimSpace(m.Request.ContractName) == "" {
		return commandValidationError("contract_name", "contract name is required")
	}
	return nil
}

type UpgradeProxyMessage struct {
	Request core.UpgradeProxyRequest
}

func (UpgradeProxyMessage) Type() string { return TypeUpgradeProxy }

func (m UpgradeProxyMessage) Validate() error {
	if err := validateCaller(m.Request.Caller); err != nil {
		return err
	}
	if m.Request.Proxy == nil {
		return commandValidationError("proxy", "proxy handle is required")
	}
	if strings.TrimSpace(m.Request.PackageName) == "" {
		return commandValidationError("package_name", "package name is required")
	}
	if strings.TrimSpace(m.Request.ContractName) == "" {
		return commandValidationError("contract_name", "contract name is required")
	}
	return nil
}

type UpgradeProxyAndCallMessage struct {
	Request core.UpgradeProxyAndCallRequest
}

func (UpgradeProxyAndCallMessage) Type() string { return TypeUpgradeProxyAndCall }

func (m UpgradeProxyAndCallMessage) Validate() error {
	if err := validateCaller(m.Request.Caller); err != nil {
		return err
	}
	if m.Request.Proxy == nil {
		return commandValidationError("proxy", "proxy handle is required")
	}
	if strings.TrimSpace(m.Request.PackageName) == "" {
		return commandValidationError("package_name", "package name is required")
	}
	if strings.TrimSpace(m.Request.ContractName) == "" {
		return commandValidationError("contract_name", "contract name is required")
	}
	if len(m.Request.CallData) == 0 {
		return commandValidationError("call_data", "migration payload is required")
	}
	return nil
}

type ChangeProxyAdminMessage struct {
	Request core.ChangeProxyAdminRequest
}

func (ChangeProxyAdminMessage) Type() string { return TypeChangeProxyAdmin }

func (m ChangeProxyAdminMessage) Validate() error {
	if err := validateCaller(m.Request.Caller); err != nil {
		return err
	}
	if m.Request.Proxy == nil {
		return commandValidationError("proxy", "proxy handle is required")
	}
	if m.Request.NewAdmin.IsZero() {
		return commandValidationError("new_admin", "new admin address is required")
	}
	return nil
}

type TransferOwnershipMessage struct {
	Request core.TransferOwnershipRequest
}

func (TransferOwnershipMessage) Type() string { return TypeTransferOwnership }

func (m TransferOwnershipMessage) Validate() error {
	if err := validateCaller(m.Request.Caller); err != nil {
		return err
	}
	if m.Request.NewOwner.IsZero() {
		return commandValidationError("new_owner", "new owner address is required")
	}
	return nil
}

type ScheduleBindingAuditMessage struct{}

func (ScheduleBindingAuditMessage) Type() string { return TypeScheduleBindingAudit }

func (ScheduleBindingAuditMessage) Validate() error { return nil }

func validateCaller(caller core.Address) error {
	if caller.IsZero() {
		return commandValidationError("caller", "caller address is required")
	}
	return nil
}
