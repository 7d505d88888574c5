// Package disk defines the block storage resource kind.
package disk

import (
	"fmt"

	"benchswarm/internal/option"
	"benchswarm/internal/registry"
	"benchswarm/internal/resource"
	"benchswarm/internal/spec"
)

// Spec is the validated configuration for one block storage volume.
type Spec struct {
	Cloud  string
	SizeGB int64
	Type   string // empty means the provider default volume type
	Zone   string
}

// SpecFactory builds a provider-resolved Spec from raw config values and
// runtime overrides.
type SpecFactory func(cfg map[string]any, ov spec.Overrides) (*Spec, error)

// Factory builds the provider volume for a validated Spec. name must be
// unique within the run.
type Factory func(s *Spec, name string) (resource.Resource, error)

// BaseOptions returns the decoder set shared by every provider.
func BaseOptions() spec.Options {
	return spec.Options{
		"size_gb": option.Int{Default: option.IntDefault(50), Min: option.IntDefault(1)},
		"type":    option.String{NoneOK: true},
		"zone":    option.String{},
	}
}

// DecodeSpec is the shared decode path used by provider spec factories.
func DecodeSpec(cloud string, cfg map[string]any, ov spec.Overrides, opts spec.Options) (*Spec, error) {
	merged := make(map[string]any, len(cfg))
	for k, v := range cfg {
		merged[k] = v
	}
	ov.ApplyBase(merged)

	decoded, err := spec.Decode("disk", merged, opts)
	if err != nil {
		return nil, err
	}

	s := &Spec{Cloud: cloud}
	s.SizeGB, _ = spec.GetInt(decoded, "size_gb")
	s.Type, _ = spec.GetString(decoded, "type")
	s.Zone, _ = spec.GetString(decoded, "zone")
	return s, nil
}

// RegisterSpec registers a provider's spec factory for cloud.
func RegisterSpec(r *registry.Registry, cloud string, f SpecFactory) error {
	return r.Register(registry.RoleDiskSpec, cloud, f)
}

// Register registers a provider's volume factory for cloud.
func Register(r *registry.Registry, cloud string, f Factory) error {
	return r.Register(registry.RoleDisk, cloud, f)
}

// NewSpec resolves the spec factory for cloud and builds a Spec from cfg.
func NewSpec(r *registry.Registry, cloud string, cfg map[string]any, ov spec.Overrides) (*Spec, error) {
	factory, err := r.Resolve(registry.RoleDiskSpec, cloud)
	if err != nil {
		return nil, err
	}
	f, ok := factory.(SpecFactory)
	if !ok {
		return nil, fmt.Errorf("disk spec factory for %q has wrong type %T", cloud, factory)
	}
	return f(cfg, ov)
}

// New resolves the volume factory for s.Cloud and builds the provider
// volume.
func New(r *registry.Registry, s *Spec, name string) (resource.Resource, error) {
	factory, err := r.Resolve(registry.RoleDisk, s.Cloud)
	if err != nil {
		return nil, err
	}
	f, ok := factory.(Factory)
	if !ok {
		return nil, fmt.Errorf("disk factory for %q has wrong type %T", s.Cloud, factory)
	}
	return f(s, name)
}
