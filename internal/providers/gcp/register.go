package gcp

import (
	"context"
	"fmt"

	"benchswarm/internal/config"
	"benchswarm/internal/disk"
	"benchswarm/internal/placement"
	"benchswarm/internal/registry"
	"benchswarm/internal/resource"
	"benchswarm/internal/spec"
	"benchswarm/internal/vm"

	"github.com/google/uuid"
)

// Register builds the shared provider client and installs every GCP factory
// into the registry.
func Register(ctx context.Context, r *registry.Registry, cfg *config.GCPConfig) error {
	p, err := New(ctx, cfg.ProjectID, cfg.CredentialsPath)
	if err != nil {
		return fmt.Errorf("failed to initialize GCP provider: %w", err)
	}

	if err := placement.RegisterSpec(r, Cloud, func(c map[string]any, ov spec.Overrides) (*placement.Spec, error) {
		s, err := placement.DecodeSpec(Cloud, c, ov, placement.BaseOptions())
		if err != nil {
			return nil, err
		}
		s.Style = placement.ResolveStyle(s.Style, placement.StyleCluster, placement.StyleSpread)
		return s, nil
	}); err != nil {
		return err
	}

	if err := placement.Register(r, Cloud, func(s *placement.Spec) (resource.Resource, error) {
		if s.Zone == "" {
			return nil, fmt.Errorf("GCP placement group requires a zone")
		}
		name := fmt.Sprintf("benchswarm-pg-%s", uuid.New().String())
		return NewPlacementGroup(p, s, name), nil
	}); err != nil {
		return err
	}

	if err := vm.RegisterSpec(r, Cloud, func(c map[string]any, ov spec.Overrides) (*vm.Spec, error) {
		return vm.DecodeSpec(Cloud, c, ov, vm.BaseOptions())
	}); err != nil {
		return err
	}

	if err := vm.Register(r, Cloud, func(s *vm.Spec, name, sshPublicKey string) (vm.VM, error) {
		return NewVM(p, s, name, sshPublicKey), nil
	}); err != nil {
		return err
	}

	if err := disk.RegisterSpec(r, Cloud, func(c map[string]any, ov spec.Overrides) (*disk.Spec, error) {
		return disk.DecodeSpec(Cloud, c, ov, disk.BaseOptions())
	}); err != nil {
		return err
	}

	return disk.Register(r, Cloud, func(s *disk.Spec, name string) (resource.Resource, error) {
		return NewDisk(p, s, name), nil
	})
}
