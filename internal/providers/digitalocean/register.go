package digitalocean

import (
	"context"

	"benchswarm/internal/config"
	"benchswarm/internal/disk"
	"benchswarm/internal/option"
	"benchswarm/internal/placement"
	"benchswarm/internal/registry"
	"benchswarm/internal/resource"
	"benchswarm/internal/spec"
	"benchswarm/internal/vm"
)

// placementOptions narrows the style choices to what DigitalOcean can
// honor: the degradable variants and none. Hard styles fail validation.
func placementOptions() spec.Options {
	return spec.Merge(placement.BaseOptions(), spec.Options{
		"style": option.String{
			Default: option.StringDefault(placement.StyleNone),
			Choices: []string{
				placement.StyleClusterIfSupported,
				placement.StyleSpreadIfSupported,
				placement.StyleNone,
			},
		},
	})
}

// Register builds the shared provider client and installs every
// DigitalOcean factory into the registry. No placement group factory is
// registered; every accepted style resolves to none.
func Register(ctx context.Context, r *registry.Registry, cfg *config.DigitalOceanConfig) error {
	p := New(ctx, cfg.Token)

	if err := placement.RegisterSpec(r, Cloud, func(c map[string]any, ov spec.Overrides) (*placement.Spec, error) {
		s, err := placement.DecodeSpec(Cloud, c, ov, placementOptions())
		if err != nil {
			return nil, err
		}
		s.Style = placement.ResolveStyle(s.Style)
		return s, nil
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
