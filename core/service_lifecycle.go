package core

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// CreateProxy resolves (package, contract) and deploys a fresh proxy bound
// to the result, with this service's identity as admin. Creation is open to
// any caller; only mutating and admin-forwarding operations are owner-gated.
// When resolution is absent the proxy is still deployed pointed at the zero
// implementation unless lifecycle.reject_unresolved is set.
func (s *Service) CreateProxy(ctx context.Context, req CreateProxyRequest) (info ProxyInfo, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"package":  req.PackageName,
		"contract": req.ContractName,
		"caller":   req.Caller.String(),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "create_proxy", err, fields)
	}()

	name, err := requireBindingName(req.PackageName)
	if err != nil {
		return ProxyInfo{}, err
	}
	contract, err := requireContractName(req.ContractName)
	if err != nil {
		return ProxyInfo{}, err
	}
	if s.proxyFactory == nil {
		err = goerrors.New("proxy factory is not configured", goerrors.CategoryOperation).
			WithTextCode(UpgradesErrorOperationFailed)
		return ProxyInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	implementation, err := s.resolveLifecycleTarget(ctx, name, contract)
	if err != nil {
		return ProxyInfo{}, err
	}

	proxy, deployErr := s.proxyFactory.Deploy(ctx, DeployProxyInput{
		Admin:          s.identity,
		Implementation: implementation,
		InitData:       req.InitData,
		Value:          cloneBigInt(req.Value),
	})
	if deployErr != nil {
		err = s.mapError(goerrors.Wrap(deployErr, goerrors.CategoryOperation, "proxy deployment failed").
			WithTextCode(UpgradesErrorOperationFailed))
		return ProxyInfo{}, err
	}

	info = ProxyInfo{
		Address:        proxy.Address(),
		Admin:          s.identity,
		Implementation: implementation,
		PackageName:    name,
		ContractName:   contract,
		CreatedAt:      s.now(),
	}
	fields["proxy"] = info.Address.String()

	s.emit(ctx, Event{
		Type:         EventProxyCreated,
		ProxyAddress: info.Address,
		PackageName:  name,
		Actor:        req.Caller,
		Metadata: map[string]any{
			"contract":       contract,
			"implementation": implementation.String(),
		},
	})
	return info, nil
}

// UpgradeProxy re-points an existing proxy at the freshly resolved
// implementation. Owner only. Resolution absence passes through exactly as
// in CreateProxy.
func (s *Service) UpgradeProxy(ctx context.Context, req UpgradeProxyRequest) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"package":  req.PackageName,
		"contract": req.ContractName,
		"caller":   req.Caller.String(),
	}
	if req.Proxy != nil {
		fields["proxy"] = req.Proxy.Address().String()
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "upgrade_proxy", err, fields)
	}()

	if err = requireProxyHandle(req.Proxy); err != nil {
		return err
	}
	name, err := requireBindingName(req.PackageName)
	if err != nil {
		return err
	}
	contract, err := requireContractName(req.ContractName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.guard.Authorize(ctx, req.Caller); err != nil {
		err = s.mapError(err)
		return err
	}

	implementation, err := s.resolveLifecycleTarget(ctx, name, contract)
	if err != nil {
		return err
	}

	if upgradeErr := req.Proxy.UpgradeTo(ctx, s.identity, implementation); upgradeErr != nil {
		err = s.mapError(upgradeErr)
		return err
	}
	return nil
}

// UpgradeProxyAndCall re-points the proxy and atomically forwards value and
// a migration payload against the new implementation. Owner only.
func (s *Service) UpgradeProxyAndCall(ctx context.Context, req UpgradeProxyAndCallRequest) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"package":  req.PackageName,
		"contract": req.ContractName,
		"caller":   req.Caller.String(),
	}
	if req.Proxy != nil {
		fields["proxy"] = req.Proxy.Address().String()
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "upgrade_proxy_and_call", err, fields)
	}()

	if err = requireProxyHandle(req.Proxy); err != nil {
		return err
	}
	name, err := requireBindingName(req.PackageName)
	if err != nil {
		return err
	}
	contract, err := requireContractName(req.ContractName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.guard.Authorize(ctx, req.Caller); err != nil {
		err = s.mapError(err)
		return err
	}

	implementation, err := s.resolveLifecycleTarget(ctx, name, contract)
	if err != nil {
		return err
	}

	if upgradeErr := req.Proxy.UpgradeToAndCall(ctx, s.identity, implementation, req.CallData, cloneBigInt(req.Value)); upgradeErr != nil {
		err = s.mapError(upgradeErr)
		return err
	}
	return nil
}

// ProxyImplementation asks the proxy for its current implementation using
// this service's identity, since the collaborator only answers its admin.
func (s *Service) ProxyImplementation(ctx context.Context, proxy Proxy) (address Address, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	if proxy != nil {
		fields["proxy"] = proxy.Address().String()
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "proxy_implementation", err, fields)
	}()

	if err = requireProxyHandle(proxy); err != nil {
		return ZeroAddress, err
	}
	address, lookupErr := proxy.Implementation(ctx, s.identity)
	if lookupErr != nil {
		err = s.mapError(lookupErr)
		return ZeroAddress, err
	}
	return address, nil
}

// ProxyAdmin reports the proxy's administrator through the same admin-only
// introspection channel.
func (s *Service) ProxyAdmin(ctx context.Context, proxy Proxy) (address Address, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	if proxy != nil {
		fields["proxy"] = proxy.Address().String()
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "proxy_admin", err, fields)
	}()

	if err = requireProxyHandle(proxy); err != nil {
		return ZeroAddress, err
	}
	address, lookupErr := proxy.Admin(ctx, s.identity)
	if lookupErr != nil {
		err = s.mapError(lookupErr)
		return ZeroAddress, err
	}
	return address, nil
}

// ChangeProxyAdmin hands administration of one proxy to a new address.
// Owner only, and one-way: afterwards this service can no longer upgrade or
// introspect that proxy.
func (s *Service) ChangeProxyAdmin(ctx context.Context, req ChangeProxyAdminRequest) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"caller":    req.Caller.String(),
		"new_admin": req.NewAdmin.String(),
	}
	if req.Proxy != nil {
		fields["proxy"] = req.Proxy.Address().String()
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "change_proxy_admin", err, fields)
	}()

	if err = requireProxyHandle(req.Proxy); err != nil {
		return err
	}
	newAdmin := NormalizeAddress(string(req.NewAdmin))
	if newAdmin.IsZero() {
		err = goerrors.New("new admin address is required", goerrors.CategoryBadInput).
			WithTextCode(UpgradesErrorBadInput)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.guard.Authorize(ctx, req.Caller); err != nil {
		err = s.mapError(err)
		return err
	}

	if changeErr := req.Proxy.ChangeAdmin(ctx, s.identity, newAdmin); changeErr != nil {
		err = s.mapError(changeErr)
		return err
	}
	return nil
}

// resolveLifecycleTarget resolves the implementation for create/upgrade.
// Absent resolution returns the zero address by contract; strict mode turns
// it into a validation failure instead.
func (s *Service) resolveLifecycleTarget(ctx context.Context, name, contract string) (Address, error) {
	implementation, ok, err := s.Implementation(ctx, name, contract)
	if err != nil {
		return ZeroAddress, err
	}
	if ok {
		return implementation, nil
	}
	if s.config.Lifecycle.RejectUnresolved {
		return ZeroAddress, goerrors.New("implementation did not resolve for package and contract", goerrors.CategoryValidation).
			WithTextCode(UpgradesErrorInvalidVersion).
			WithMetadata(map[string]any{"package": name, "contract": contract})
	}
	s.logWarn(ctx, "proceeding with unresolved implementation", map[string]any{
		"package":  name,
		"contract": contract,
	})
	return ZeroAddress, nil
}
