package core

import (
	"fmt"
	"strings"
)

// LifecycleConfig tunes proxy lifecycle policy. RejectUnresolved opts into
// failing Create/Upgrade when resolution is absent instead of passing the
// zero implementation through to the proxy.
type LifecycleConfig struct {
	RejectUnresolved bool `koanf:"reject_unresolved" mapstructure:"reject_unresolved"`
}

// BootstrapConfig controls Start-time rehydration from configured stores.
type BootstrapConfig struct {
	LoadPersistedState bool `koanf:"load_persisted_state" mapstructure:"load_persisted_state"`
}

// AuditConfig bounds the binding audit sweep. A zero BatchSize checks every
// binding in one pass.
type AuditConfig struct {
	BatchSize int `koanf:"batch_size" mapstructure:"batch_size"`
}

type Config struct {
	ServiceName  string          `koanf:"service_name" mapstructure:"service_name"`
	InitialOwner string          `koanf:"initial_owner" mapstructure:"initial_owner"`
	Lifecycle    LifecycleConfig `koanf:"lifecycle" mapstructure:"lifecycle"`
	Bootstrap    BootstrapConfig `koanf:"bootstrap" mapstructure:"bootstrap"`
	Audit        AuditConfig     `koanf:"audit" mapstructure:"audit"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "upgrades",
		Lifecycle:   LifecycleConfig{},
		Bootstrap:   BootstrapConfig{},
		Audit:       AuditConfig{},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Audit.BatchSize < 0 {
		return fmt.Errorf("core: audit.batch_size must not be negative")
	}
	return nil
}
