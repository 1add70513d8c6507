package directory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-upgrades/core"
)

type packageVersion struct {
	label     string
	parsed    *semver.Version
	directory *Directory
}

// Package collects implementation directories under version labels. It
// implements core.VersionedProvider and can back a registry binding
// directly.
type Package struct {
	mu       sync.RWMutex
	address  core.Address
	versions map[string]packageVersion
}

type PackageOption func(*Package)

// WithAddress fixes the package identity instead of allocating one.
func WithAddress(address core.Address) PackageOption {
	return func(p *Package) {
		p.address = core.NormalizeAddress(address.String())
	}
}

func NewPackage(options ...PackageOption) *Package {
	pkg := &Package{versions: make(map[string]packageVersion)}
	for _, opt := range options {
		if opt != nil {
			opt(pkg)
		}
	}
	if pkg.address.IsZero() {
		pkg.address = core.NewAddress()
	}
	return pkg
}

func (p *Package) Address() core.Address {
	if p == nil {
		return core.ZeroAddress
	}
	return p.address
}

// AddVersion registers a directory under a version label. The label must
// parse as semver (a leading "v" and missing segments are tolerated) and
// must not already be registered.
func (p *Package) AddVersion(version string, dir *Directory) error {
	label := strings.TrimSpace(version)
	if label == "" {
		return goerrors.New("version label is required", goerrors.CategoryBadInput).
			WithTextCode(core.UpgradesErrorBadInput)
	}
	if dir == nil {
		return goerrors.New("implementation directory is required", goerrors.CategoryBadInput).
			WithTextCode(core.UpgradesErrorBadInput)
	}
	parsed, err := parseVersionLabel(label)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "version label is not valid semver").
			WithTextCode(core.UpgradesErrorInvalidVersion).
			WithMetadata(map[string]any{"version": label})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.versions[label]; exists {
		return goerrors.New("version label is already registered", goerrors.CategoryConflict).
			WithTextCode(core.UpgradesErrorOperationFailed).
			WithMetadata(map[string]any{"version": label})
	}
	p.versions[label] = packageVersion{label: label, parsed: parsed, directory: dir}
	return nil
}

// RemoveVersion forgets a version label. Registry pins referencing it keep
// working against whatever the registry stored; they simply stop resolving.
func (p *Package) RemoveVersion(version string) error {
	label := strings.TrimSpace(version)

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.versions[label]; !exists {
		return goerrors.New("version label is not registered", goerrors.CategoryNotFound).
			WithTextCode(core.UpgradesErrorPackageNotFound).
			WithMetadata(map[string]any{"version": label})
	}
	delete(p.versions, label)
	return nil
}

func (p *Package) HasVersion(_ context.Context, version string) (bool, error) {
	if p == nil {
		return false, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.versions[strings.TrimSpace(version)]
	return ok, nil
}

func (p *Package) Version(_ context.Context, version string) (core.ImplementationProvider, bool, error) {
	if p == nil {
		return nil, false, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.versions[strings.TrimSpace(version)]
	if !ok || entry.directory == nil {
		return nil, false, nil
	}
	return entry.directory, true, nil
}

// Directory returns the raw directory behind a version label so hosts can
// keep publishing implementations into an unfrozen release.
func (p *Package) Directory(version string) (*Directory, bool) {
	if p == nil {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.versions[strings.TrimSpace(version)]
	if !ok {
		return nil, false
	}
	return entry.directory, true
}

// Latest reports the highest registered version by semver order.
func (p *Package) Latest() (string, *Directory, bool) {
	if p == nil {
		return "", nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	var best packageVersion
	found := false
	for _, entry := range p.versions {
		if !found || entry.parsed.GreaterThan(best.parsed) {
			best = entry
			found = true
		}
	}
	if !found {
		return "", nil, false
	}
	return best.label, best.directory, true
}

// Versions lists registered labels in ascending semver order.
func (p *Package) Versions() []string {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	entries := make([]packageVersion, 0, len(p.versions))
	for _, entry := range p.versions {
		entries = append(entries, entry)
	}
	p.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].parsed.LessThan(entries[j].parsed)
	})
	labels := make([]string, len(entries))
	for i, entry := range entries {
		labels[i] = entry.label
	}
	return labels
}

// parseVersionLabel strips a leading "v" and parses the label leniently, so
// short labels like "1.0" are acceptable.
func parseVersionLabel(label string) (*semver.Version, error) {
	return semver.NewVersion(strings.TrimPrefix(label, "v"))
}

var _ core.VersionedProvider = (*Package)(nil)
