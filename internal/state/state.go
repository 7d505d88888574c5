// Package state persists run state in etcd so interrupted runs can be
// inspected and cleaned up later.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const runsPrefix = "/benchswarm/runs/"

// ResourceRecord identifies one provisioned cloud resource within a run.
// Role matches the registry role names.
type ResourceRecord struct {
	Role  string `json:"role"`
	Cloud string `json:"cloud"`
	Name  string `json:"name"`
	ID    string `json:"id,omitempty"`
	Zone  string `json:"zone,omitempty"`
}

// VMState tracks one VM's progress through the run
type VMState struct {
	Name            string   `json:"name"`
	InstanceID      string   `json:"instance_id"`
	InstanceIP      string   `json:"instance_ip"`
	Zone            string   `json:"zone"`
	Status          string   `json:"status"` // "pending", "running", "completed", "failed"
	CompletedStages []string `json:"completed_stages"`
	Error           string   `json:"error,omitempty"`
}

// RunState represents the state of a benchmark run
type RunState struct {
	mu sync.RWMutex

	ID        string             `json:"id"`
	Benchmark string             `json:"benchmark"`
	Cloud     string             `json:"cloud"`
	Status    string             `json:"status"` // "provisioning", "running", "completed", "failed", "cleaned"
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Resources []ResourceRecord   `json:"resources"`
	VMs       map[string]VMState `json:"vms"`
}

// NewRun creates a new empty run state
func NewRun(id, benchmark, cloud string) *RunState {
	now := time.Now()
	return &RunState{
		ID:        id,
		Benchmark: benchmark,
		Cloud:     cloud,
		Status:    "provisioning",
		CreatedAt: now,
		UpdatedAt: now,
		VMs:       make(map[string]VMState),
	}
}

// AddResource records a provisioned resource
func (r *RunState) AddResource(rec ResourceRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Resources = append(r.Resources, rec)
}

// SetStatus updates the run status
func (r *RunState) SetStatus(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
}

// UpdateVM updates the state of a specific VM safely
func (r *RunState) UpdateVM(name string, updateFn func(*VMState)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vmState, exists := r.VMs[name]
	if !exists {
		vmState = VMState{Name: name, Status: "pending"}
	}

	updateFn(&vmState)
	r.VMs[name] = vmState
}

// GetVM returns a copy of the VM state
func (r *RunState) GetVM(name string) (VMState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	vmState, exists := r.VMs[name]
	return vmState, exists
}

func (r *RunState) marshal() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.UpdatedAt = time.Now()
	return json.Marshal(r)
}

// Store defines the interface for run state persistence
type Store interface {
	SaveRun(ctx context.Context, run *RunState) error
	GetRun(ctx context.Context, runID string) (*RunState, error)
	DeleteRun(ctx context.Context, runID string) error
	ListRuns(ctx context.Context) ([]*RunState, error)
	Close() error
}

// EtcdStore handles run state persistence using etcd
type EtcdStore struct {
	client *clientv3.Client
}

// NewStore creates a new Store backed by etcd
func NewStore(endpoints []string) (Store, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return &EtcdStore{client: cli}, nil
}

// Close closes the etcd client connection
func (s *EtcdStore) Close() error {
	return s.client.Close()
}

// SaveRun saves the run state
func (s *EtcdStore) SaveRun(ctx context.Context, run *RunState) error {
	data, err := run.marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}
	_, err = s.client.Put(ctx, runsPrefix+run.ID, string(data))
	if err != nil {
		return fmt.Errorf("failed to save run state to etcd: %w", err)
	}
	return nil
}

// GetRun retrieves the run state
func (s *EtcdStore) GetRun(ctx context.Context, runID string) (*RunState, error) {
	resp, err := s.client.Get(ctx, runsPrefix+runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run state from etcd: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	var run RunState
	if err := json.Unmarshal(resp.Kvs[0].Value, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run state: %w", err)
	}
	return &run, nil
}

// DeleteRun deletes the run state
func (s *EtcdStore) DeleteRun(ctx context.Context, runID string) error {
	_, err := s.client.Delete(ctx, runsPrefix+runID)
	if err != nil {
		return fmt.Errorf("failed to delete run state from etcd: %w", err)
	}
	return nil
}

// ListRuns returns every recorded run
func (s *EtcdStore) ListRuns(ctx context.Context) ([]*RunState, error) {
	resp, err := s.client.Get(ctx, runsPrefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list runs from etcd: %w", err)
	}

	runs := make([]*RunState, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var run RunState
		if err := json.Unmarshal(kv.Value, &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run state for %s: %w", kv.Key, err)
		}
		runs = append(runs, &run)
	}
	return runs, nil
}
