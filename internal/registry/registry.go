// Package registry resolves (role, cloud) pairs to provider factories.
//
// Providers register their factories explicitly at startup; resource kind
// packages wrap Resolve with typed accessors. The default registry is
// populated once before any concurrent lookups happen, after which it is
// read-mostly.
package registry

import (
	"fmt"
	"sync"
)

// Role identifies a resource kind in the registry.
type Role string

const (
	RolePlacementGroupSpec Role = "placement_group_spec"
	RolePlacementGroup     Role = "placement_group"
	RoleVMSpec             Role = "vm_spec"
	RoleVM                 Role = "vm"
	RoleDiskSpec           Role = "disk_spec"
	RoleDisk               Role = "disk"
)

// ResolutionError reports that no factory is registered for a (role, cloud)
// pair. It indicates a missing provider implementation or a typo in the
// cloud identifier and is not retryable.
type ResolutionError struct {
	Role  Role
	Cloud string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no %s implementation registered for cloud %q", e.Role, e.Cloud)
}

// AlreadyRegisteredError reports a second registration for a (role, cloud)
// pair: two providers are fighting over a cloud tag.
type AlreadyRegisteredError struct {
	Role  Role
	Cloud string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("registry: duplicate registration for (%s, %s)", e.Role, e.Cloud)
}

// Registry maps (role, cloud) pairs to factories. Factories are stored as
// any; the resource kind packages type-assert them behind typed wrappers.
type Registry struct {
	mu      sync.RWMutex
	entries map[key]any
}

type key struct {
	role  Role
	cloud string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[key]any)}
}

// Register adds a factory for (role, cloud). Registering a second factory
// for the same pair is rejected: exactly one implementation may claim a
// pair, and a duplicate means two providers are fighting over a cloud tag.
func (r *Registry) Register(role Role, cloud string, factory any) error {
	if cloud == "" {
		return fmt.Errorf("registry: empty cloud identifier for role %s", role)
	}
	if factory == nil {
		return fmt.Errorf("registry: nil factory for (%s, %s)", role, cloud)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{role: role, cloud: cloud}
	if _, exists := r.entries[k]; exists {
		return &AlreadyRegisteredError{Role: role, Cloud: cloud}
	}
	r.entries[k] = factory
	return nil
}

// MustRegister is Register for startup wiring, where a duplicate is a
// programming error.
func (r *Registry) MustRegister(role Role, cloud string, factory any) {
	if err := r.Register(role, cloud, factory); err != nil {
		panic(err)
	}
}

// Resolve returns the factory registered for (role, cloud).
func (r *Registry) Resolve(role Role, cloud string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.entries[key{role: role, cloud: cloud}]
	if !ok {
		return nil, &ResolutionError{Role: role, Cloud: cloud}
	}
	return factory, nil
}

// Clouds returns the cloud identifiers registered for a role.
func (r *Registry) Clouds(role Role) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var clouds []string
	for k := range r.entries {
		if k.role == role {
			clouds = append(clouds, k.cloud)
		}
	}
	return clouds
}

// Default is the process-wide registry. Provider packages register into it
// during startup wiring.
var Default = New()
