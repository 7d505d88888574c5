// Package vm defines the virtual machine resource kind: the validated shape
// spec, the provider contract, and the typed registry accessors.
package vm

import (
	"fmt"

	"benchswarm/internal/option"
	"benchswarm/internal/registry"
	"benchswarm/internal/resource"
	"benchswarm/internal/spec"
)

// Spec is the validated machine shape for one VM. Identity (the instance
// name) and credentials are per-instance construction arguments, not
// configuration.
type Spec struct {
	Cloud    string
	Cores    int64
	MemoryGB int64
	DiskGB   int64
	Image    string // empty means the provider default image
	Zone     string
	Username string
}

// Info describes a created instance. Valid only after Create succeeds.
type Info struct {
	ID     string
	IP     string
	Name   string
	Zone   string
	Status string
}

// VM is the provider contract for virtual machines.
type VM interface {
	resource.Resource
	// Info returns the created instance's attributes. It fails before
	// Create has completed successfully.
	Info() (*Info, error)
}

// SpecFactory builds a provider-resolved Spec from raw config values and
// runtime overrides.
type SpecFactory func(cfg map[string]any, ov spec.Overrides) (*Spec, error)

// Factory builds the provider VM for a validated Spec. name must be unique
// within the run; sshPublicKey is installed for Spec.Username.
type Factory func(s *Spec, name, sshPublicKey string) (VM, error)

// BaseOptions returns the decoder set shared by every provider.
func BaseOptions() spec.Options {
	return spec.Options{
		"cores":     option.Int{Default: option.IntDefault(2), Min: option.IntDefault(1)},
		"memory_gb": option.Int{Default: option.IntDefault(2), Min: option.IntDefault(1)},
		"disk_gb":   option.Int{Default: option.IntDefault(20), Min: option.IntDefault(10)},
		"image":     option.String{NoneOK: true},
		"zone":      option.String{},
		"username":  option.String{Default: option.StringDefault("benchswarm")},
	}
}

// ApplyOverrides layers runtime flag values over cfg.
func ApplyOverrides(cfg map[string]any, ov spec.Overrides) {
	ov.ApplyBase(cfg)
	if ov.Image != nil {
		cfg["image"] = *ov.Image
	}
	if ov.Username != nil {
		cfg["username"] = *ov.Username
	}
}

// DecodeSpec is the shared decode path used by provider spec factories.
func DecodeSpec(cloud string, cfg map[string]any, ov spec.Overrides, opts spec.Options) (*Spec, error) {
	merged := make(map[string]any, len(cfg))
	for k, v := range cfg {
		merged[k] = v
	}
	ApplyOverrides(merged, ov)

	decoded, err := spec.Decode("vm", merged, opts)
	if err != nil {
		return nil, err
	}

	s := &Spec{Cloud: cloud}
	s.Cores, _ = spec.GetInt(decoded, "cores")
	s.MemoryGB, _ = spec.GetInt(decoded, "memory_gb")
	s.DiskGB, _ = spec.GetInt(decoded, "disk_gb")
	s.Image, _ = spec.GetString(decoded, "image")
	s.Zone, _ = spec.GetString(decoded, "zone")
	s.Username, _ = spec.GetString(decoded, "username")
	return s, nil
}

// RegisterSpec registers a provider's spec factory for cloud.
func RegisterSpec(r *registry.Registry, cloud string, f SpecFactory) error {
	return r.Register(registry.RoleVMSpec, cloud, f)
}

// Register registers a provider's VM factory for cloud.
func Register(r *registry.Registry, cloud string, f Factory) error {
	return r.Register(registry.RoleVM, cloud, f)
}

// NewSpec resolves the spec factory for cloud and builds a Spec from cfg.
func NewSpec(r *registry.Registry, cloud string, cfg map[string]any, ov spec.Overrides) (*Spec, error) {
	factory, err := r.Resolve(registry.RoleVMSpec, cloud)
	if err != nil {
		return nil, err
	}
	f, ok := factory.(SpecFactory)
	if !ok {
		return nil, fmt.Errorf("vm spec factory for %q has wrong type %T", cloud, factory)
	}
	return f(cfg, ov)
}

// New resolves the VM factory for s.Cloud and builds the provider VM.
func New(r *registry.Registry, s *Spec, name, sshPublicKey string) (VM, error) {
	factory, err := r.Resolve(registry.RoleVM, s.Cloud)
	if err != nil {
		return nil, err
	}
	f, ok := factory.(Factory)
	if !ok {
		return nil, fmt.Errorf("vm factory for %q has wrong type %T", s.Cloud, factory)
	}
	return f(s, name, sshPublicKey)
}
