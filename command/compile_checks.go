package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[SetPackageMessage]           = (*SetPackageCommand)(nil)
	_ gocmd.Commander[UnsetPackageMessage]         = (*UnsetPackageCommand)(nil)
	_ gocmd.Commander[CreateProxyMessage]          = (*CreateProxyCommand)(nil)
	_ gocmd.Commander[UpgradeProxyMessage]         = (*UpgradeProxyCommand)(nil)
	_ gocmd.Commander[UpgradeProxyAndCallMessage]  = (*UpgradeProxyAndCallCommand)(nil)
	_ gocmd.Commander[ChangeProxyAdminMessage]     = (*ChangeProxyAdminCommand)(nil)
	_ gocmd.Commander[TransferOwnershipMessage]    = (*TransferOwnershipCommand)(nil)
	_ gocmd.Commander[ScheduleBindingAuditMessage] = (*ScheduleBindingAuditCommand)(nil)
)
