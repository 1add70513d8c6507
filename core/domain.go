package core

import (
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Address identifies packages, implementations, proxies, and principals.
// The empty string is the zero address and stands for absence wherever an
// address travels beyond a comma-ok boundary.
type Address string

const ZeroAddress Address = ""

func (a Address) String() string {
	return string(a)
}

func (a Address) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}

// NormalizeAddress trims surrounding whitespace so lookups and comparisons
// are stable regardless of caller formatting.
func NormalizeAddress(value string) Address {
	return Address(strings.TrimSpace(value))
}

// NewAddress allocates a fresh opaque address. In-process collaborators use
// it wherever a deployed artifact would otherwise mint an identity.
func NewAddress() Address {
	return Address(uuid.NewString())
}

func AddressesEqual(a, b Address) bool {
	return NormalizeAddress(string(a)) == NormalizeAddress(string(b))
}

// ProviderBinding pins one package name to a provider handle at a version.
// A nil Package means the binding is absent and Version carries no meaning.
type ProviderBinding struct {
	Package VersionedProvider
	Version string
}

func (b ProviderBinding) Absent() bool {
	return b.Package == nil
}

// PackageBinding is the raw binding tuple reads return. PackageAddress is
// the provider's identity so observers can track pins without holding the
// live handle.
type PackageBinding struct {
	Name           string
	Package        VersionedProvider
	PackageAddress Address
	Version        string
}

// ProxyInfo describes a proxy the orchestrator created. The registry keeps
// no record of it afterwards; callers track the address themselves.
type ProxyInfo struct {
	Address        Address
	Admin          Address
	Implementation Address
	PackageName    string
	ContractName   string
	CreatedAt      time.Time
}

type SetPackageRequest struct {
	Caller  Address
	Name    string
	Package VersionedProvider
	Version string
}

type UnsetPackageRequest struct {
	Caller Address
	Name   string
}

type CreateProxyRequest struct {
	Caller       Address
	PackageName  string
	ContractName string
	InitData     []byte
	Value        *big.Int
}

type UpgradeProxyRequest struct {
	Caller       Address
	Proxy        Proxy
	PackageName  string
	ContractName string
}

type UpgradeProxyAndCallRequest struct {
	Caller       Address
	Proxy        Proxy
	PackageName  string
	ContractName string
	CallData     []byte
	Value        *big.Int
}

type ChangeProxyAdminRequest struct {
	Caller   Address
	Proxy    Proxy
	NewAdmin Address
}

type TransferOwnershipRequest struct {
	Caller   Address
	NewOwner Address
}

// BindingRecord is the durable mirror of one registry binding. Live provider
// handles are never persisted; rehydration goes through a PackageLocator.
type BindingRecord struct {
	Name           string
	PackageAddress Address
	Version        string
	UpdatedAt      time.Time
}

type OwnershipRecord struct {
	Owner     Address
	UpdatedAt time.Time
}

const (
	EventPackageChanged       = "upgrades.package.changed"
	EventProxyCreated         = "upgrades.proxy.created"
	EventOwnershipTransferred = "upgrades.ownership.transferred"
)

// Event is the notification envelope published after a state transition
// commits. Only the fields relevant to the event type are populated.
type Event struct {
	ID             string
	Type           string
	PackageName    string
	PackageAddress Address
	Version        string
	ProxyAddress   Address
	PreviousOwner  Address
	NewOwner       Address
	Actor          Address
	Metadata       map[string]any
	EmittedAt      time.Time
}

func (e Event) Clone() Event {
	out := e
	out.Metadata = copyAnyMap(e.Metadata)
	return out
}

type EventFilter struct {
	Types        []string
	PackageName  string
	ProxyAddress Address
	Since        time.Time
	Until        time.Time
	Limit        int
	Offset       int
}

type EventPage struct {
	Events []Event
	Total  int
}

// BindingHealth classifies what an audit sweep observed for one binding.
type BindingHealth string

const (
	// BindingHealthy means the pinned version still resolves upstream.
	BindingHealthy BindingHealth = "healthy"
	// BindingDegraded means the provider no longer reports the pinned
	// version; reads degrade to absence until the pin is corrected.
	BindingDegraded BindingHealth = "degraded"
	// BindingUnreachable means the provider errored during the check.
	BindingUnreachable BindingHealth = "unreachable"
)

type AuditFinding struct {
	Name           string
	PackageAddress Address
	Version        string
	Health         BindingHealth
	Detail         string
}

type AuditReport struct {
	StartedAt   time.Time
	FinishedAt  time.Time
	Checked     int
	Healthy     int
	Degraded    int
	Unreachable int
	Findings    []AuditFinding
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func cloneBigInt(value *big.Int) *big.Int {
	if value == nil {
		return nil
	}
	return new(big.Int).Set(value)
}
