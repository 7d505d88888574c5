// Package placement defines the placement group resource kind: the validated
// spec built from configuration, the style vocabulary, and the typed
// registry accessors that resolve provider implementations by cloud.
package placement

import (
	"fmt"

	"benchswarm/internal/option"
	"benchswarm/internal/registry"
	"benchswarm/internal/resource"
	"benchswarm/internal/spec"
)

// Placement group styles. The *_if_supported variants degrade to StyleNone
// on providers without the corresponding capability instead of failing
// validation.
const (
	StyleCluster            = "cluster"
	StyleClusterIfSupported = "cluster_if_supported"
	StyleSpread             = "spread"
	StyleSpreadIfSupported  = "spread_if_supported"
	StyleNone               = "none"
)

// Styles lists every accepted placement group style.
var Styles = []string{
	StyleCluster,
	StyleClusterIfSupported,
	StyleSpread,
	StyleSpreadIfSupported,
	StyleNone,
}

// Spec is the validated configuration for one placement group.
type Spec struct {
	Cloud string
	Style string
	Zone  string // empty when the group is not pinned to a zone
}

// SpecFactory builds a provider-resolved Spec from raw config values and
// runtime overrides.
type SpecFactory func(cfg map[string]any, ov spec.Overrides) (*Spec, error)

// Factory builds the provider resource for a validated Spec.
type Factory func(s *Spec) (resource.Resource, error)

// BaseOptions returns the decoder set shared by every provider. Providers
// merge tighter constraints (typically a narrowed style choice list) on top.
func BaseOptions() spec.Options {
	return spec.Options{
		"style": option.String{
			Default: option.StringDefault(StyleNone),
			Choices: Styles,
		},
		"zone": option.String{NoneOK: true},
	}
}

// ApplyOverrides layers runtime flag values over cfg: shared overrides
// first, then the placement-specific style flag.
func ApplyOverrides(cfg map[string]any, ov spec.Overrides) {
	ov.ApplyBase(cfg)
	if ov.PlacementStyle != nil {
		cfg["style"] = *ov.PlacementStyle
	}
}

// DecodeSpec is the shared decode path used by provider spec factories:
// copy the raw config, apply overrides, batch-decode against opts, and bind
// the result. Construction is all-or-nothing.
func DecodeSpec(cloud string, cfg map[string]any, ov spec.Overrides, opts spec.Options) (*Spec, error) {
	merged := make(map[string]any, len(cfg))
	for k, v := range cfg {
		merged[k] = v
	}
	ApplyOverrides(merged, ov)

	decoded, err := spec.Decode("placement_group", merged, opts)
	if err != nil {
		return nil, err
	}

	s := &Spec{Cloud: cloud}
	s.Style, _ = spec.GetString(decoded, "style")
	s.Zone, _ = spec.GetString(decoded, "zone")
	return s, nil
}

// ResolveStyle maps the *_if_supported styles onto what the provider
// actually offers, falling back to StyleNone. Hard styles pass through
// unchanged; the provider's choice list has already rejected unsupported
// ones.
func ResolveStyle(style string, supported ...string) string {
	has := func(want string) bool {
		for _, s := range supported {
			if s == want {
				return true
			}
		}
		return false
	}
	switch style {
	case StyleClusterIfSupported:
		if has(StyleCluster) {
			return StyleCluster
		}
		return StyleNone
	case StyleSpreadIfSupported:
		if has(StyleSpread) {
			return StyleSpread
		}
		return StyleNone
	default:
		return style
	}
}

// RegisterSpec registers a provider's spec factory for cloud.
func RegisterSpec(r *registry.Registry, cloud string, f SpecFactory) error {
	return r.Register(registry.RolePlacementGroupSpec, cloud, f)
}

// Register registers a provider's resource factory for cloud.
func Register(r *registry.Registry, cloud string, f Factory) error {
	return r.Register(registry.RolePlacementGroup, cloud, f)
}

// NewSpec resolves the spec factory for cloud and builds a Spec from cfg.
func NewSpec(r *registry.Registry, cloud string, cfg map[string]any, ov spec.Overrides) (*Spec, error) {
	factory, err := r.Resolve(registry.RolePlacementGroupSpec, cloud)
	if err != nil {
		return nil, err
	}
	f, ok := factory.(SpecFactory)
	if !ok {
		return nil, fmt.Errorf("placement group spec factory for %q has wrong type %T", cloud, factory)
	}
	return f(cfg, ov)
}

// New resolves the resource factory for s.Cloud and builds the provider
// placement group.
func New(r *registry.Registry, s *Spec) (resource.Resource, error) {
	factory, err := r.Resolve(registry.RolePlacementGroup, s.Cloud)
	if err != nil {
		return nil, err
	}
	f, ok := factory.(Factory)
	if !ok {
		return nil, fmt.Errorf("placement group factory for %q has wrong type %T", s.Cloud, factory)
	}
	return f(s)
}
