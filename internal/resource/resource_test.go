package resource

import (
	"context"
	"errors"
	"testing"
)

// fakeResource counts operations and fails on demand.
type fakeResource struct {
	createErr error
	deleteErr error
	creates   int
	deletes   int
	exists    bool
}

func (f *fakeResource) Create(ctx context.Context) error {
	f.creates++
	return f.createErr
}

func (f *fakeResource) Delete(ctx context.Context) error {
	f.deletes++
	return f.deleteErr
}

func (f *fakeResource) Exists(ctx context.Context) (bool, error) {
	return f.exists, nil
}

func TestLifecycleHappyPath(t *testing.T) {
	ctx := context.Background()
	fake := &fakeResource{}
	m := Manage(fake)

	if m.State() != StateUninitialized {
		t.Fatalf("fresh resource state = %s, want %s", m.State(), StateUninitialized)
	}

	if err := m.Create(ctx); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if m.State() != StateActive {
		t.Fatalf("state after Create = %s, want %s", m.State(), StateActive)
	}

	if err := m.Delete(ctx); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if m.State() != StateDeleted {
		t.Fatalf("state after Delete = %s, want %s", m.State(), StateDeleted)
	}
	if fake.creates != 1 || fake.deletes != 1 {
		t.Errorf("provider ops = %d creates, %d deletes, want 1 and 1", fake.creates, fake.deletes)
	}
}

func TestDoubleCreateRejected(t *testing.T) {
	ctx := context.Background()
	fake := &fakeResource{}
	m := Manage(fake)

	if err := m.Create(ctx); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	err := m.Create(ctx)
	if err == nil {
		t.Fatal("second Create() not rejected")
	}
	var le *LifecycleError
	if !errors.As(err, &le) {
		t.Fatalf("error type = %T, want *LifecycleError", err)
	}
	if fake.creates != 1 {
		t.Errorf("provider Create ran %d times, want 1", fake.creates)
	}
	if m.State() != StateActive {
		t.Errorf("state after rejected Create = %s, want %s", m.State(), StateActive)
	}
}

func TestCreateFailureIsTerminal(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("quota exceeded")
	fake := &fakeResource{createErr: boom}
	m := Manage(fake)

	err := m.Create(ctx)
	if err == nil {
		t.Fatal("Create() expected error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("Create() error does not wrap provider error: %v", err)
	}
	if m.State() != StateFailed {
		t.Fatalf("state after failed Create = %s, want %s", m.State(), StateFailed)
	}

	// Create cannot be retried through the same Managed wrapper...
	if err := m.Create(ctx); err == nil {
		t.Error("Create() accepted from failed state")
	}

	// ...but best-effort Delete is allowed.
	if err := m.Delete(ctx); err != nil {
		t.Errorf("Delete() from failed state rejected: %v", err)
	}
	if m.State() != StateDeleted {
		t.Errorf("state after cleanup Delete = %s, want %s", m.State(), StateDeleted)
	}
}

func TestDeleteBeforeCreateRejected(t *testing.T) {
	m := Manage(&fakeResource{})
	if err := m.Delete(context.Background()); err == nil {
		t.Fatal("Delete() accepted on uninitialized resource")
	}
}

func TestDeleteTwiceIsNoOp(t *testing.T) {
	ctx := context.Background()
	fake := &fakeResource{}
	m := Manage(fake)

	if err := m.Create(ctx); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if err := m.Delete(ctx); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if err := m.Delete(ctx); err != nil {
		t.Fatalf("second Delete() = %v, want no-op", err)
	}
	if fake.deletes != 1 {
		t.Errorf("provider Delete ran %d times, want 1", fake.deletes)
	}
}

func TestDeleteFailure(t *testing.T) {
	ctx := context.Background()
	fake := &fakeResource{deleteErr: errors.New("still attached")}
	m := Manage(fake)

	if err := m.Create(ctx); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if err := m.Delete(ctx); err == nil {
		t.Fatal("Delete() expected error")
	}
	if m.State() != StateFailed {
		t.Fatalf("state after failed Delete = %s, want %s", m.State(), StateFailed)
	}

	// Retrying Delete after the provider recovers succeeds.
	fake.deleteErr = nil
	if err := m.Delete(ctx); err != nil {
		t.Fatalf("Delete() retry unexpected error: %v", err)
	}
	if m.State() != StateDeleted {
		t.Errorf("state = %s, want %s", m.State(), StateDeleted)
	}
}
