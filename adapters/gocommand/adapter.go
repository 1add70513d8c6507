package gocommand

import (
	"context"
	"fmt"
	"strings"

	upgradescommand "github.com/goliatone/go-upgrades/command"
	upgradesquery "github.com/goliatone/go-upgrades/query"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeCommandFunc[T any](handler command.CommandFunc[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(handler, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func SubscribeQueryFunc[T any, R any](qry command.QueryFunc[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// ServiceBackend is the full handler surface RegisterServiceHandlers binds
// to the dispatcher. The root upgrade service satisfies it.
type ServiceBackend interface {
	upgradescommand.MutatingService
	upgradescommand.AuditSchedulingService
	upgradesquery.RegistryReader
	upgradesquery.OwnershipReader
	upgradesquery.EventReader
	upgradesquery.ProxyInspector
	upgradesquery.AuditRunner
}

// RegisterServiceHandlers binds every upgrade command and query handler for
// one backend: eight commands and seven queries. A failed registration
// unwinds the subscriptions made so far, leaving the dispatcher untouched.
func RegisterServiceHandlers(
	adapter *RegistryAdapter,
	backend ServiceBackend,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if backend == nil {
		return nil, fmt.Errorf("gocommand: service backend is required")
	}

	subscriptions := make([]commanddispatcher.Subscription, 0, 15)
	keep := func(subscription commanddispatcher.Subscription, err error) error {
		if err != nil {
			return err
		}
		subscriptions = append(subscriptions, subscription)
		return nil
	}
	unwind := func(err error) ([]commanddispatcher.Subscription, error) {
		UnsubscribeAll(subscriptions)
		return nil, err
	}

	if err := keep(RegisterAndSubscribe(adapter, upgradescommand.NewSetPackageCommand(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribe(adapter, upgradescommand.NewUnsetPackageCommand(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribe(adapter, upgradescommand.NewCreateProxyCommand(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribe(adapter, upgradescommand.NewUpgradeProxyCommand(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribe(adapter, upgradescommand.NewUpgradeProxyAndCallCommand(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribe(adapter, upgradescommand.NewChangeProxyAdminCommand(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribe(adapter, upgradescommand.NewTransferOwnershipCommand(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribe(adapter, upgradescommand.NewScheduleBindingAuditCommand(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}

	if err := keep(RegisterAndSubscribeQuery(adapter, upgradesquery.NewGetPackageQuery(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribeQuery(adapter, upgradesquery.NewResolveImplementationQuery(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribeQuery(adapter, upgradesquery.NewGetOwnerQuery(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribeQuery(adapter, upgradesquery.NewListEventsQuery(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribeQuery(adapter, upgradesquery.NewProxyImplementationQuery(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribeQuery(adapter, upgradesquery.NewProxyAdminQuery(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}
	if err := keep(RegisterAndSubscribeQuery(adapter, upgradesquery.NewRunBindingAuditQuery(backend), runnerOpts...)); err != nil {
		return unwind(err)
	}

	return subscriptions, nil
}

// UnsubscribeAll releases every subscription in the slice, skipping nils.
func UnsubscribeAll(subscriptions []commanddispatcher.Subscription) {
	for _, subscription := range subscriptions {
		if subscription == nil {
			continue
		}
		subscription.Unsubscribe()
	}
}
