// Package core implements a versioned-dependency registry gated by a
// single-owner authorization guard, plus the orchestration of upgradeable
// proxy lifecycles against externally-owned collaborators.
//
// Registry state is a process-wide mapping from package name to a pinned
// (provider, version) pair. A binding is admitted only when the provider
// reported the version at set time; the registry never re-validates after
// the fact, so resolution may degrade to absence if the upstream provider
// drops the version later.
package core
