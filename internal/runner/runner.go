// Package runner orchestrates benchmark runs: provision the placement
// group and VM fleet, execute the workload over SSH, sync results back,
// and tear everything down in reverse order.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"benchswarm/internal/benchmark"
	"benchswarm/internal/config"
	"benchswarm/internal/control"
	"benchswarm/internal/disk"
	"benchswarm/internal/logging"
	"benchswarm/internal/placement"
	"benchswarm/internal/registry"
	"benchswarm/internal/resource"
	"benchswarm/internal/retry"
	"benchswarm/internal/spec"
	"benchswarm/internal/sshkeys"
	"benchswarm/internal/state"
	"benchswarm/internal/vm"

	"github.com/alitto/pond/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// provisionPolicy governs retries around provider create and delete calls.
var provisionPolicy = retry.Policy{
	MaxAttempts: 3,
	Backoff:     5 * time.Second,
	MaxBackoff:  30 * time.Second,
}

// retried applies the provisioning retry policy to each provider operation.
// It sits below the lifecycle state machine: a Create that succeeds on the
// second attempt still lands the resource in the active state.
type retried struct {
	res resource.Resource
}

func (r retried) Create(ctx context.Context) error {
	return retry.Do(ctx, provisionPolicy, r.res.Create)
}

func (r retried) Delete(ctx context.Context) error {
	return retry.Do(ctx, provisionPolicy, r.res.Delete)
}

func (r retried) Exists(ctx context.Context) (bool, error) {
	return r.res.Exists(ctx)
}

func manage(res resource.Resource) *resource.Managed {
	return resource.Manage(retried{res: res})
}

// Runner executes benchmark runs against the configured provider.
type Runner struct {
	cfg   *config.Config
	reg   *registry.Registry
	keys  sshkeys.KeyProvider
	store state.Store

	newController control.Factory
}

// New creates a new Runner. controllerFactory builds the SSH controller for
// each provisioned VM; pass control.NewController outside of tests.
func New(cfg *config.Config, reg *registry.Registry, keys sshkeys.KeyProvider,
	store state.Store, controllerFactory control.Factory) *Runner {
	return &Runner{
		cfg:           cfg,
		reg:           reg,
		keys:          keys,
		store:         store,
		newController: controllerFactory,
	}
}

// Run provisions the fleet described by b, executes the workload on every
// VM, syncs results, and deletes everything it created. The run is recorded
// in the state store so interrupted runs can be found and cleaned up.
func (r *Runner) Run(ctx context.Context, b *benchmark.Benchmark, ov spec.Overrides) error {
	cloud := r.cfg.Provider.Type
	runID := uuid.NewString()
	run := state.NewRun(runID, b.Name, cloud)

	logging.Logger().Info("starting benchmark run",
		zap.String("run_id", runID),
		zap.String("benchmark", b.Name),
		zap.String("cloud", cloud),
		zap.Int("vm_count", b.VMCount),
		zap.Strings("workload", logging.TruncateSlice(b.Workload, 5)))

	keyPair, err := r.keys.GetOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("failed to get SSH key pair: %w", err)
	}

	// Validate every spec up front so nothing is provisioned when any
	// section of the benchmark is invalid.
	pgSpec, err := placement.NewSpec(r.reg, cloud, b.PlacementGroup, ov)
	if err != nil {
		return fmt.Errorf("invalid placement group config: %w", err)
	}
	vmSpec, err := vm.NewSpec(r.reg, cloud, b.VM, ov)
	if err != nil {
		return fmt.Errorf("invalid vm config: %w", err)
	}
	var diskSpec *disk.Spec
	if b.DisksPerVM > 0 {
		diskSpec, err = disk.NewSpec(r.reg, cloud, b.Disk, ov)
		if err != nil {
			return fmt.Errorf("invalid disk config: %w", err)
		}
	}

	if err := r.store.SaveRun(ctx, run); err != nil {
		return err
	}

	group, err := r.createPlacementGroup(ctx, run, pgSpec)
	if err != nil {
		run.SetStatus("failed")
		r.saveRun(ctx, run)
		return err
	}

	runErr := r.runFleet(ctx, run, b, vmSpec, diskSpec, keyPair)

	if group != nil {
		if err := group.Delete(ctx); err != nil {
			logging.Logger().Error("failed to delete placement group", zap.Error(err))
			runErr = errors.Join(runErr, err)
		}
	}

	if runErr != nil {
		run.SetStatus("failed")
	} else {
		run.SetStatus("completed")
	}
	r.saveRun(ctx, run)

	logging.Logger().Info("benchmark run finished",
		zap.String("run_id", runID),
		zap.Bool("success", runErr == nil))

	return runErr
}

// createPlacementGroup provisions the group when the resolved style calls
// for one. A none style means no group resource at all.
func (r *Runner) createPlacementGroup(ctx context.Context, run *state.RunState, s *placement.Spec) (*resource.Managed, error) {
	if s.Style == placement.StyleNone {
		logging.Logger().Info("no placement group requested")
		return nil, nil
	}

	group, err := placement.New(r.reg, s)
	if err != nil {
		return nil, err
	}
	managed := manage(group)

	logging.Logger().Info("creating placement group",
		zap.String("style", s.Style),
		zap.String("zone", s.Zone))

	if err := managed.Create(ctx); err != nil {
		return nil, fmt.Errorf("failed to create placement group: %w", err)
	}

	run.AddResource(state.ResourceRecord{
		Role:  string(registry.RolePlacementGroup),
		Cloud: s.Cloud,
		Zone:  s.Zone,
	})
	r.saveRun(ctx, run)

	return managed, nil
}

// runFleet provisions every VM concurrently and runs the workload on each.
func (r *Runner) runFleet(ctx context.Context, run *state.RunState, b *benchmark.Benchmark,
	vmSpec *vm.Spec, diskSpec *disk.Spec, keyPair *sshkeys.KeyPair) error {

	workersCount := min(r.cfg.MaxWorkers, b.VMCount)
	pool := pond.NewPool(workersCount)

	var mu sync.Mutex
	var errs []error

	for i := 0; i < b.VMCount; i++ {
		pool.Submit(func() {
			name := fmt.Sprintf("benchswarm-%s", uuid.NewString())
			if err := r.runWorker(ctx, run, b, vmSpec, diskSpec, keyPair, name); err != nil {
				logging.Logger().Error("worker failed",
					zap.String("vm", name),
					zap.Error(err))

				run.UpdateVM(name, func(v *state.VMState) {
					v.Status = "failed"
					v.Error = err.Error()
				})
				r.saveRun(ctx, run)

				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
			}
		})
	}

	pool.StopAndWait()
	return errors.Join(errs...)
}

// runWorker provisions one VM (plus its scratch disks), runs setup and the
// workload, syncs results, and deletes what it created.
func (r *Runner) runWorker(ctx context.Context, run *state.RunState, b *benchmark.Benchmark,
	vmSpec *vm.Spec, diskSpec *disk.Spec, keyPair *sshkeys.KeyPair, name string) error {

	machine, err := vm.New(r.reg, vmSpec, name, keyPair.PublicKey)
	if err != nil {
		return err
	}
	managed := manage(machine)

	run.UpdateVM(name, func(v *state.VMState) {
		v.Status = "pending"
		v.Zone = vmSpec.Zone
	})

	logging.Logger().Info("creating worker vm",
		zap.String("name", name),
		zap.String("zone", vmSpec.Zone))

	if err := managed.Create(ctx); err != nil {
		return fmt.Errorf("failed to create vm: %w", err)
	}
	defer func() {
		logging.Logger().Info("deleting worker vm", zap.String("name", name))
		if err := managed.Delete(ctx); err != nil {
			logging.Logger().Error("failed to delete vm",
				zap.String("name", name),
				zap.Error(err))
		}
	}()

	info, err := machine.Info()
	if err != nil {
		return err
	}

	run.AddResource(state.ResourceRecord{
		Role:  string(registry.RoleVM),
		Cloud: vmSpec.Cloud,
		Name:  name,
		ID:    info.ID,
		Zone:  info.Zone,
	})
	run.UpdateVM(name, func(v *state.VMState) {
		v.Status = "running"
		v.InstanceID = info.ID
		v.InstanceIP = info.IP
		v.Zone = info.Zone
		v.CompletedStages = append(v.CompletedStages, "provisioned")
	})
	r.saveRun(ctx, run)

	disks, err := r.createDisks(ctx, run, b, diskSpec, name)
	if err != nil {
		return err
	}
	defer func() {
		for _, d := range disks {
			if err := d.Delete(ctx); err != nil {
				logging.Logger().Error("failed to delete disk", zap.Error(err))
			}
		}
	}()

	controller, err := r.newController(control.Config{
		Host:         info.IP,
		User:         vmSpec.Username,
		PrivateKey:   keyPair.PrivateKey,
		Timeout:      5 * time.Minute,
		SSHTimeout:   30 * time.Second,
		InstanceName: name,
	})
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}
	defer func() {
		if err := controller.Close(); err != nil {
			logging.Logger().Warn("failed to close controller",
				zap.String("instance", name),
				zap.Error(err))
		}
	}()

	if err := r.setupVM(controller); err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	run.UpdateVM(name, func(v *state.VMState) {
		v.CompletedStages = append(v.CompletedStages, "setup")
	})

	if err := runWorkload(controller, b.Workload); err != nil {
		return fmt.Errorf("workload failed: %w", err)
	}
	run.UpdateVM(name, func(v *state.VMState) {
		v.CompletedStages = append(v.CompletedStages, "workload")
	})

	if b.ResultsPath != "" {
		localPath := filepath.Join(r.cfg.ResultsDir, run.ID, name)
		if err := controller.Sync(b.ResultsPath, localPath); err != nil {
			return fmt.Errorf("failed to sync results: %w", err)
		}
		run.UpdateVM(name, func(v *state.VMState) {
			v.CompletedStages = append(v.CompletedStages, "synced")
		})
	}

	run.UpdateVM(name, func(v *state.VMState) {
		v.Status = "completed"
	})
	r.saveRun(ctx, run)

	return nil
}

// createDisks provisions the per-VM scratch volumes.
func (r *Runner) createDisks(ctx context.Context, run *state.RunState, b *benchmark.Benchmark,
	diskSpec *disk.Spec, vmName string) ([]*resource.Managed, error) {

	if diskSpec == nil {
		return nil, nil
	}

	var disks []*resource.Managed
	for i := 0; i < b.DisksPerVM; i++ {
		diskName := fmt.Sprintf("%s-disk-%d", vmName, i)

		d, err := disk.New(r.reg, diskSpec, diskName)
		if err != nil {
			return disks, err
		}
		managed := manage(d)

		if err := managed.Create(ctx); err != nil {
			return disks, fmt.Errorf("failed to create disk %s: %w", diskName, err)
		}
		disks = append(disks, managed)

		run.AddResource(state.ResourceRecord{
			Role:  string(registry.RoleDisk),
			Cloud: diskSpec.Cloud,
			Name:  diskName,
			Zone:  diskSpec.Zone,
		})
	}
	r.saveRun(ctx, run)

	return disks, nil
}

func (r *Runner) setupVM(controller control.Controller) error {
	for i, cmd := range r.cfg.SetupCommands {
		logging.Logger().Debug("executing setup command",
			zap.Int("step", i+1),
			zap.Int("total", len(r.cfg.SetupCommands)),
			zap.String("command", cmd))

		if err := controller.Run(cmd); err != nil {
			return err
		}
	}
	return nil
}

func runWorkload(controller control.Controller, commands []string) error {
	for i, cmd := range commands {
		logging.Logger().Info("executing workload command",
			zap.Int("step", i+1),
			zap.Int("total", len(commands)),
			zap.String("instance", controller.GetInstanceName()))

		if err := controller.Run(cmd); err != nil {
			return fmt.Errorf("workload command %d failed: %w", i+1, err)
		}
	}
	return nil
}

// saveRun persists the run state, logging instead of failing the run when
// the store is unreachable mid-flight.
func (r *Runner) saveRun(ctx context.Context, run *state.RunState) {
	if err := r.store.SaveRun(ctx, run); err != nil {
		logging.Logger().Warn("failed to save run state", zap.Error(err))
	}
}
