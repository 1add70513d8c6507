package core

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SetPackage pins a package name to (provider, version). The caller must be
// the current owner and the provider must report the version at call time;
// the pin is never re-validated afterwards. Last write wins.
func (s *Service) SetPackage(ctx context.Context, req SetPackageRequest) (binding PackageBinding, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"package": req.Name,
		"version": req.Version,
		"caller":  req.Caller.String(),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "set_package", err, fields)
	}()

	name, err := requireBindingName(req.Name)
	if err != nil {
		return PackageBinding{}, err
	}
	if req.Package == nil {
		err = goerrors.New("package handle is required", goerrors.CategoryBadInput).
			WithTextCode(UpgradesErrorBadInput)
		return PackageBinding{}, err
	}
	version := strings.TrimSpace(req.Version)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.guard.Authorize(ctx, req.Caller); err != nil {
		err = s.mapError(err)
		return PackageBinding{}, err
	}

	known, checkErr := req.Package.HasVersion(ctx, version)
	if checkErr != nil {
		err = s.mapError(goerrors.Wrap(checkErr, goerrors.CategoryOperation, "package version check failed").
			WithTextCode(UpgradesErrorOperationFailed))
		return PackageBinding{}, err
	}
	if !known {
		err = goerrors.Wrap(ErrInvalidVersion, goerrors.CategoryValidation, "version is not registered on the package").
			WithTextCode(UpgradesErrorInvalidVersion).
			WithMetadata(map[string]any{"package": name, "version": version})
		return PackageBinding{}, err
	}

	previous, hadPrevious := s.registry.Get(name)
	s.registry.Set(name, ProviderBinding{Package: req.Package, Version: version})

	packageAddress := req.Package.Address()
	if s.bindingStore != nil {
		if _, saveErr := s.bindingStore.Save(ctx, BindingRecord{
			Name:           name,
			PackageAddress: packageAddress,
			Version:        version,
			UpdatedAt:      s.now(),
		}); saveErr != nil {
			if hadPrevious {
				s.registry.Set(name, previous)
			} else {
				s.registry.Unset(name)
			}
			err = s.mapError(goerrors.Wrap(saveErr, goerrors.CategoryOperation, "persisting package binding failed").
				WithTextCode(UpgradesErrorOperationFailed))
			return PackageBinding{}, err
		}
	}

	s.emit(ctx, Event{
		Type:           EventPackageChanged,
		PackageName:    name,
		PackageAddress: packageAddress,
		Version:        version,
		Actor:          req.Caller,
	})

	return PackageBinding{
		Name:           name,
		Package:        req.Package,
		PackageAddress: packageAddress,
		Version:        version,
	}, nil
}

// UnsetPackage removes a binding entirely. Missing bindings are a NotFound
// failure, and the change notification carries the zero address with an
// empty version.
func (s *Service) UnsetPackage(ctx context.Context, req UnsetPackageRequest) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"package": req.Name,
		"caller":  req.Caller.String(),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "unset_package", err, fields)
	}()

	name, err := requireBindingName(req.Name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.guard.Authorize(ctx, req.Caller); err != nil {
		err = s.mapError(err)
		return err
	}

	previous, ok := s.registry.Get(name)
	if !ok {
		err = goerrors.Wrap(ErrPackageNotFound, goerrors.CategoryNotFound, "no binding exists for the package name").
			WithTextCode(UpgradesErrorPackageNotFound).
			WithMetadata(map[string]any{"package": name})
		return err
	}

	s.registry.Unset(name)
	if s.bindingStore != nil {
		if deleteErr := s.bindingStore.Delete(ctx, name); deleteErr != nil {
			s.registry.Set(name, previous)
			err = s.mapError(goerrors.Wrap(deleteErr, goerrors.CategoryOperation, "removing persisted package binding failed").
				WithTextCode(UpgradesErrorOperationFailed))
			return err
		}
	}

	s.emit(ctx, Event{
		Type:           EventPackageChanged,
		PackageName:    name,
		PackageAddress: ZeroAddress,
		Version:        "",
		Actor:          req.Caller,
	})
	return nil
}

// Package reads the raw binding tuple. Absence is reported through ok, not
// an error.
func (s *Service) Package(ctx context.Context, name string) (binding PackageBinding, ok bool, err error) {
	if s == nil {
		return PackageBinding{}, false, nil
	}
	name = strings.TrimSpace(name)
	stored, found := s.registry.Get(name)
	if !found {
		return PackageBinding{Name: name}, false, nil
	}
	return PackageBinding{
		Name:           name,
		Package:        stored.Package,
		PackageAddress: stored.Package.Address(),
		Version:        stored.Version,
	}, true, nil
}

// Provider resolves the binding's provider handle at the pinned version.
// The pin may have degraded upstream since it was set, in which case the
// provider reports absence and so does this read.
func (s *Service) Provider(ctx context.Context, name string) (provider ImplementationProvider, ok bool, err error) {
	if s == nil {
		return nil, false, nil
	}
	binding, found := s.registry.Get(strings.TrimSpace(name))
	if !found {
		return nil, false, nil
	}
	provider, ok, err = binding.Package.Version(ctx, binding.Version)
	if err != nil {
		err = s.mapError(goerrors.Wrap(err, goerrors.CategoryOperation, "provider lookup failed").
			WithTextCode(UpgradesErrorOperationFailed))
		return nil, false, err
	}
	if !ok || provider == nil {
		return nil, false, nil
	}
	return provider, true, nil
}

// Implementation composes Provider with the provider's contract lookup.
// Absence at any hop yields (ZeroAddress, false, nil); it is never an error.
func (s *Service) Implementation(ctx context.Context, name, contract string) (address Address, ok bool, err error) {
	if s == nil {
		return ZeroAddress, false, nil
	}
	provider, found, err := s.Provider(ctx, name)
	if err != nil {
		return ZeroAddress, false, err
	}
	if !found {
		return ZeroAddress, false, nil
	}
	contract = strings.TrimSpace(contract)
	address, ok, err = provider.Implementation(ctx, contract)
	if err != nil {
		err = s.mapError(goerrors.Wrap(err, goerrors.CategoryOperation, "implementation lookup failed").
			WithTextCode(UpgradesErrorOperationFailed))
		return ZeroAddress, false, err
	}
	if !ok || address.IsZero() {
		return ZeroAddress, false, nil
	}
	return address, true, nil
}
