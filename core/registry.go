package core

import (
	"sort"
	"strings"
	"sync"
)

// Registry is the explicit state object behind package resolution: a
// process-wide mapping from package name to ProviderBinding. It protects
// the map for concurrent readers; whole-operation atomicity (authorize,
// validate, write, mirror, emit) is serialized one level up by the Service.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]ProviderBinding
}

func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[string]ProviderBinding),
	}
}

func (r *Registry) Get(name string) (ProviderBinding, bool) {
	if r == nil {
		return ProviderBinding{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ProviderBinding{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	binding, ok := r.bindings[name]
	if !ok || binding.Absent() {
		return ProviderBinding{}, false
	}
	return binding, true
}

// Set overwrites any prior binding for the name. Last write wins; there is
// no merge.
func (r *Registry) Set(name string, binding ProviderBinding) {
	if r == nil {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" || binding.Absent() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[name] = binding
}

// Unset removes the binding and reports whether one existed.
func (r *Registry) Unset(name string) bool {
	if r == nil {
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	binding, ok := r.bindings[name]
	if !ok || binding.Absent() {
		return false
	}
	delete(r.bindings, name)
	return true
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies the current bindings so sweeps can walk them without
// holding the registry lock across provider calls.
func (r *Registry) Snapshot() map[string]ProviderBinding {
	if r == nil {
		return map[string]ProviderBinding{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ProviderBinding, len(r.bindings))
	for name, binding := range r.bindings {
		out[name] = binding
	}
	return out
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
