package e2e_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"benchswarm/internal/benchmark"
	"benchswarm/internal/config"
	"benchswarm/internal/control"
	"benchswarm/internal/disk"
	"benchswarm/internal/placement"
	"benchswarm/internal/registry"
	"benchswarm/internal/resource"
	"benchswarm/internal/runner"
	"benchswarm/internal/spec"
	"benchswarm/internal/sshkeys"
	"benchswarm/internal/state"
	"benchswarm/internal/vm"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const mockCloud = "MockCloud"

// cloudCounters tracks provider calls across every mock resource
type cloudCounters struct {
	groupCreates atomic.Int64
	groupDeletes atomic.Int64
	vmCreates    atomic.Int64
	vmDeletes    atomic.Int64
	diskCreates  atomic.Int64
	diskDeletes  atomic.Int64
}

type mockGroup struct{ c *cloudCounters }

func (g *mockGroup) Create(ctx context.Context) error {
	g.c.groupCreates.Add(1)
	return nil
}

func (g *mockGroup) Delete(ctx context.Context) error {
	g.c.groupDeletes.Add(1)
	return nil
}

func (g *mockGroup) Exists(ctx context.Context) (bool, error) { return true, nil }

type mockVM struct {
	c    *cloudCounters
	name string
	zone string
	info *vm.Info
}

func (v *mockVM) Create(ctx context.Context) error {
	v.c.vmCreates.Add(1)
	v.info = &vm.Info{
		ID:     "mock-instance-" + v.name,
		IP:     "127.0.0.1",
		Name:   v.name,
		Zone:   v.zone,
		Status: "running",
	}
	return nil
}

func (v *mockVM) Delete(ctx context.Context) error {
	v.c.vmDeletes.Add(1)
	return nil
}

func (v *mockVM) Exists(ctx context.Context) (bool, error) { return v.info != nil, nil }

func (v *mockVM) Info() (*vm.Info, error) {
	if v.info == nil {
		return nil, fmt.Errorf("instance %s not created", v.name)
	}
	return v.info, nil
}

type mockDisk struct{ c *cloudCounters }

func (d *mockDisk) Create(ctx context.Context) error {
	d.c.diskCreates.Add(1)
	return nil
}

func (d *mockDisk) Delete(ctx context.Context) error {
	d.c.diskDeletes.Add(1)
	return nil
}

func (d *mockDisk) Exists(ctx context.Context) (bool, error) { return true, nil }

// mockFile implements io.ReadWriteCloser for testing
type mockFile struct {
	buf    *bytes.Buffer
	closed bool
}

func (m *mockFile) Read(p []byte) (n int, err error)  { return m.buf.Read(p) }
func (m *mockFile) Write(p []byte) (n int, err error) { return m.buf.Write(p) }
func (m *mockFile) Close() error {
	m.closed = true
	return nil
}

// OpenFileCall records a call to OpenFile
type OpenFileCall struct {
	Path    string
	Flags   int
	Content *bytes.Buffer
}

// SyncCall records a call to Sync
type SyncCall struct {
	RemotePath string
	LocalPath  string
}

// MockController implements control.Controller with tracking of commands
// and file operations
type MockController struct {
	mu            sync.Mutex
	InstanceName  string
	FailCommand   string
	Commands      []string
	OpenFileCalls []OpenFileCall
	SyncCalls     []SyncCall
}

func (m *MockController) Close() error { return nil }

func (m *MockController) Run(command string) error {
	m.mu.Lock()
	m.Commands = append(m.Commands, command)
	fail := m.FailCommand != "" && command == m.FailCommand
	m.mu.Unlock()

	if fail {
		return fmt.Errorf("command %q exited with status 1", command)
	}
	return nil
}

func (m *MockController) OpenFile(path string, flags int) (io.ReadWriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := &bytes.Buffer{}
	m.OpenFileCalls = append(m.OpenFileCalls, OpenFileCall{Path: path, Flags: flags, Content: buf})
	return &mockFile{buf: buf}, nil
}

func (m *MockController) GetInstanceName() string { return m.InstanceName }

func (m *MockController) Sync(remotePath, localPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SyncCalls = append(m.SyncCalls, SyncCall{RemotePath: remotePath, LocalPath: localPath})
	return nil
}

func (m *MockController) RanCommands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Commands...)
}

func (m *MockController) RanSyncs() []SyncCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SyncCall(nil), m.SyncCalls...)
}

// ControllerRecorder hands out MockControllers and remembers every one it
// created so specs can assert on per-VM activity afterwards.
type ControllerRecorder struct {
	mu          sync.Mutex
	FailCommand string
	controllers []*MockController
}

func (r *ControllerRecorder) Factory(cfg control.Config) (control.Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &MockController{InstanceName: cfg.InstanceName, FailCommand: r.FailCommand}
	r.controllers = append(r.controllers, c)
	return c, nil
}

func (r *ControllerRecorder) All() []*MockController {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*MockController(nil), r.controllers...)
}

// MemStore implements state.Store in memory
type MemStore struct {
	mu   sync.Mutex
	runs map[string]*state.RunState
}

func NewMemStore() *MemStore {
	return &MemStore{runs: make(map[string]*state.RunState)}
}

func (s *MemStore) SaveRun(ctx context.Context, run *state.RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *MemStore) GetRun(ctx context.Context, runID string) (*state.RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return run, nil
}

func (s *MemStore) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
	return nil
}

func (s *MemStore) ListRuns(ctx context.Context) ([]*state.RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make([]*state.RunState, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *MemStore) Close() error { return nil }

func newMockRegistry(c *cloudCounters) *registry.Registry {
	r := registry.New()

	r.MustRegister(registry.RolePlacementGroupSpec, mockCloud,
		placement.SpecFactory(func(cfg map[string]any, ov spec.Overrides) (*placement.Spec, error) {
			s, err := placement.DecodeSpec(mockCloud, cfg, ov, placement.BaseOptions())
			if err != nil {
				return nil, err
			}
			s.Style = placement.ResolveStyle(s.Style, placement.StyleCluster, placement.StyleSpread)
			return s, nil
		}))
	r.MustRegister(registry.RolePlacementGroup, mockCloud,
		placement.Factory(func(s *placement.Spec) (resource.Resource, error) {
			return &mockGroup{c: c}, nil
		}))
	r.MustRegister(registry.RoleVMSpec, mockCloud,
		vm.SpecFactory(func(cfg map[string]any, ov spec.Overrides) (*vm.Spec, error) {
			return vm.DecodeSpec(mockCloud, cfg, ov, vm.BaseOptions())
		}))
	r.MustRegister(registry.RoleVM, mockCloud,
		vm.Factory(func(s *vm.Spec, name, sshPublicKey string) (vm.VM, error) {
			return &mockVM{c: c, name: name, zone: s.Zone}, nil
		}))
	r.MustRegister(registry.RoleDiskSpec, mockCloud,
		disk.SpecFactory(func(cfg map[string]any, ov spec.Overrides) (*disk.Spec, error) {
			return disk.DecodeSpec(mockCloud, cfg, ov, disk.BaseOptions())
		}))
	r.MustRegister(registry.RoleDisk, mockCloud,
		disk.Factory(func(s *disk.Spec, name string) (resource.Resource, error) {
			return &mockDisk{c: c}, nil
		}))

	return r
}

func parseBenchmarkYAML(data string) *benchmark.Benchmark {
	b, err := benchmark.Parse([]byte(data))
	Expect(err).NotTo(HaveOccurred())
	return b
}

var _ = Describe("Benchmark run", func() {
	var (
		cfg      *config.Config
		counters *cloudCounters
		recorder *ControllerRecorder
		store    *MemStore
		run      *runner.Runner
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		counters = &cloudCounters{}
		recorder = &ControllerRecorder{}
		store = NewMemStore()

		cfg = &config.Config{
			Provider:   config.ProviderConfig{Type: mockCloud},
			MaxWorkers: 4,
			SetupCommands: []string{
				"sudo apt-get update -y",
				"sudo apt-get install -y fio",
			},
			ResultsDir: GinkgoT().TempDir(),
		}

		keys := &sshkeys.StaticKeyProvider{
			Keys: &sshkeys.KeyPair{PrivateKey: "mock-private-key", PublicKey: "mock-public-key"},
		}
		run = runner.New(cfg, newMockRegistry(counters), keys, store, recorder.Factory)
	})

	Context("Full benchmark execution", func() {
		It("provisions the fleet, runs the workload, and tears everything down", func() {
			b := parseBenchmarkYAML(`
name: fio-read
vm_count: 3
disks_per_vm: 1
placement_group:
  style: cluster
  zone: mock-zone-a
vm:
  zone: mock-zone-a
disk:
  zone: mock-zone-a
  size_gb: 50
workload:
  - fio --name=read --filename=/dev/sdb --rw=read --output=/tmp/results/fio.json
results_path: /tmp/results
`)
			Expect(run.Run(ctx, b, spec.Overrides{})).To(Succeed())

			Expect(counters.groupCreates.Load()).To(Equal(int64(1)))
			Expect(counters.groupDeletes.Load()).To(Equal(int64(1)))
			Expect(counters.vmCreates.Load()).To(Equal(int64(3)))
			Expect(counters.vmDeletes.Load()).To(Equal(int64(3)))
			Expect(counters.diskCreates.Load()).To(Equal(int64(3)))
			Expect(counters.diskDeletes.Load()).To(Equal(int64(3)))

			controllers := recorder.All()
			Expect(controllers).To(HaveLen(3))
			for _, c := range controllers {
				commands := c.RanCommands()
				Expect(commands).To(HaveLen(3))
				Expect(commands[0]).To(Equal("sudo apt-get update -y"))
				Expect(commands[1]).To(Equal("sudo apt-get install -y fio"))
				Expect(commands[2]).To(ContainSubstring("fio --name=read"))

				syncs := c.RanSyncs()
				Expect(syncs).To(HaveLen(1))
				Expect(syncs[0].RemotePath).To(Equal("/tmp/results"))
				Expect(syncs[0].LocalPath).To(ContainSubstring(c.InstanceName))
			}

			runs, err := store.ListRuns(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(1))
			Expect(runs[0].Status).To(Equal("completed"))
			Expect(runs[0].Benchmark).To(Equal("fio-read"))
			Expect(runs[0].VMs).To(HaveLen(3))
			for _, v := range runs[0].VMs {
				Expect(v.Status).To(Equal("completed"))
				Expect(v.CompletedStages).To(Equal([]string{"provisioned", "setup", "workload", "synced"}))
				Expect(v.InstanceIP).To(Equal("127.0.0.1"))
			}

			// one group, three VMs, three disks
			Expect(runs[0].Resources).To(HaveLen(7))
		})

		It("skips the placement group when the style resolves to none", func() {
			b := parseBenchmarkYAML(`
name: solo
vm_count: 1
placement_group:
  style: none
vm:
  zone: mock-zone-a
workload:
  - uname -a
`)
			Expect(run.Run(ctx, b, spec.Overrides{})).To(Succeed())

			Expect(counters.groupCreates.Load()).To(BeZero())
			Expect(counters.vmCreates.Load()).To(Equal(int64(1)))

			runs, err := store.ListRuns(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(1))
			Expect(runs[0].Status).To(Equal("completed"))
		})
	})

	Context("Workload failure", func() {
		It("records the failure and still deletes every resource", func() {
			recorder.FailCommand = "stress-ng --cpu 0 --timeout 60s"

			b := parseBenchmarkYAML(`
name: stress
vm_count: 2
placement_group:
  style: spread
  zone: mock-zone-a
vm:
  zone: mock-zone-a
workload:
  - stress-ng --cpu 0 --timeout 60s
`)
			err := run.Run(ctx, b, spec.Overrides{})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("workload"))

			Expect(counters.vmDeletes.Load()).To(Equal(counters.vmCreates.Load()))
			Expect(counters.groupDeletes.Load()).To(Equal(int64(1)))

			runs, lerr := store.ListRuns(ctx)
			Expect(lerr).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(1))
			Expect(runs[0].Status).To(Equal("failed"))
			for _, v := range runs[0].VMs {
				Expect(v.Status).To(Equal("failed"))
				Expect(v.Error).NotTo(BeEmpty())
			}
		})
	})

	Context("Concurrent runs", func() {
		It("executes two benchmarks against the same store", func() {
			b1 := parseBenchmarkYAML(`
name: first
vm_count: 2
placement_group:
  style: cluster
  zone: mock-zone-a
vm:
  zone: mock-zone-a
workload:
  - echo first
`)
			b2 := parseBenchmarkYAML(`
name: second
vm_count: 2
placement_group:
  style: none
vm:
  zone: mock-zone-b
workload:
  - echo second
`)

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i, b := range []*benchmark.Benchmark{b1, b2} {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					errs[i] = run.Run(ctx, b, spec.Overrides{})
				}()
			}
			wg.Wait()

			Expect(errs[0]).NotTo(HaveOccurred())
			Expect(errs[1]).NotTo(HaveOccurred())

			runs, err := store.ListRuns(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(2))
			names := []string{runs[0].Benchmark, runs[1].Benchmark}
			Expect(names).To(ConsistOf("first", "second"))
			for _, r := range runs {
				Expect(r.Status).To(Equal("completed"))
			}

			Expect(counters.vmCreates.Load()).To(Equal(int64(4)))
			Expect(counters.vmDeletes.Load()).To(Equal(int64(4)))
			Expect(counters.groupCreates.Load()).To(Equal(int64(1)))
		})
	})
})
