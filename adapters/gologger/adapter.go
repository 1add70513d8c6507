// Package gologger bridges glog loggers into the go-job logging contracts
// so queue workers running the binding audit report through the same
// provider as the service that enqueued them.
package gologger

import (
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// DefaultComponent names the logging component for upgrade job workers when
// the caller does not supply one.
const DefaultComponent = "upgrades.jobs"

// Resolve picks a logger with deterministic precedence provider > logger >
// nop, under the given component name. A blank name falls back to
// DefaultComponent.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(componentName(name), provider, logger)
}

// ToJobProvider maps a glog provider to the go-job logger provider contract.
// A nil provider stays nil so go-job applies its own default.
func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

// ToJobLogger maps a glog logger to the go-job logger contract. A nil
// logger stays nil so go-job applies its own default.
func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves the glog pair and returns it alongside the go-job
// bridges, so worker assembly wires both sides from one call.
func ResolveForJob(
	name string,
	provider glog.LoggerProvider,
	logger glog.Logger,
) (glog.LoggerProvider, glog.Logger, job.LoggerProvider, job.Logger) {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return resolvedProvider, resolvedLogger, ToJobProvider(resolvedProvider), ToJobLogger(resolvedLogger)
}

func componentName(name string) string {
	if strings.TrimSpace(name) == "" {
		return DefaultComponent
	}
	return name
}
