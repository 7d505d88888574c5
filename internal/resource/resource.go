// Package resource defines the lifecycle contract for cloud-provisioned
// entities.
//
// Provider implementations supply the raw Create/Delete/Exists operations;
// Managed wraps them with the state machine the orchestrator relies on:
//
//	uninitialized --Create--> active --Delete--> deleted
//
// A failed Create or Delete moves the resource to the failed state, which is
// terminal except for best-effort Delete. Concrete resources copy the fields
// they need out of their spec at construction time and do not retain the
// spec itself.
package resource

import (
	"context"
	"fmt"
	"sync"
)

// State is the lifecycle state of a managed resource.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateActive        State = "active"
	StateDeleted       State = "deleted"
	StateFailed        State = "failed"
)

// Resource is the provider-side lifecycle contract. Implementations perform
// blocking provider API calls and own no retry policy; retries are applied
// by the caller around Managed.Create/Delete.
type Resource interface {
	Create(ctx context.Context) error
	Delete(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
}

// LifecycleError reports a failed or rejected lifecycle operation along
// with the state the resource was in, so the caller can always decide the
// next action without re-querying the provider.
type LifecycleError struct {
	Op    string
	State State
	Err   error
}

func (e *LifecycleError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s rejected in state %s", e.Op, e.State)
	}
	return fmt.Sprintf("%s failed in state %s: %v", e.Op, e.State, e.Err)
}

func (e *LifecycleError) Unwrap() error { return e.Err }

// Managed enforces the lifecycle state machine around a Resource.
type Managed struct {
	res Resource

	mu    sync.Mutex
	state State
}

// Manage wraps a freshly constructed resource. The resource must not have
// been created yet.
func Manage(res Resource) *Managed {
	return &Managed{res: res, state: StateUninitialized}
}

// State returns the current lifecycle state.
func (m *Managed) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Resource returns the wrapped provider resource, for post-create attribute
// access by callers that know its concrete type.
func (m *Managed) Resource() Resource { return m.res }

// Create drives the resource from uninitialized to active. A second Create
// is rejected with a LifecycleError rather than silently re-running the
// provider operation; idempotent creation, where a provider offers it, is
// the concrete implementation's business.
func (m *Managed) Create(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateUninitialized {
		defer m.mu.Unlock()
		return &LifecycleError{Op: "create", State: m.state}
	}
	m.mu.Unlock()

	err := m.res.Create(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateFailed
		return &LifecycleError{Op: "create", State: StateFailed, Err: err}
	}
	m.state = StateActive
	return nil
}

// Delete drives the resource to deleted. Deleting an already-deleted
// resource is a no-op; deleting from the failed state is allowed as
// best-effort cleanup. Deleting a resource that was never created is
// rejected.
func (m *Managed) Delete(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateDeleted:
		m.mu.Unlock()
		return nil
	case StateUninitialized:
		defer m.mu.Unlock()
		return &LifecycleError{Op: "delete", State: m.state}
	}
	m.mu.Unlock()

	err := m.res.Delete(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateFailed
		return &LifecycleError{Op: "delete", State: StateFailed, Err: err}
	}
	m.state = StateDeleted
	return nil
}

// Exists queries the provider. It is valid in any state; the orchestrator
// uses it to decide cleanup actions after failures.
func (m *Managed) Exists(ctx context.Context) (bool, error) {
	return m.res.Exists(ctx)
}
