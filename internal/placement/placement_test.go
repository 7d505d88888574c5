package placement

import (
	"context"
	"errors"
	"testing"

	"benchswarm/internal/registry"
	"benchswarm/internal/resource"
	"benchswarm/internal/spec"
)

type nopGroup struct{ s *Spec }

func (g *nopGroup) Create(ctx context.Context) error         { return nil }
func (g *nopGroup) Delete(ctx context.Context) error         { return nil }
func (g *nopGroup) Exists(ctx context.Context) (bool, error) { return false, nil }

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	specFactory := func(cfg map[string]any, ov spec.Overrides) (*Spec, error) {
		return DecodeSpec("GCP", cfg, ov, BaseOptions())
	}
	if err := RegisterSpec(r, "GCP", SpecFactory(specFactory)); err != nil {
		t.Fatalf("RegisterSpec() unexpected error: %v", err)
	}
	if err := Register(r, "GCP", Factory(func(s *Spec) (resource.Resource, error) {
		return &nopGroup{s: s}, nil
	})); err != nil {
		t.Fatalf("Register() unexpected error: %v", err)
	}
	return r
}

func TestNewSpecFromConfig(t *testing.T) {
	r := testRegistry(t)

	s, err := NewSpec(r, "GCP", map[string]any{"zone": "us-central1-a"}, spec.Overrides{})
	if err != nil {
		t.Fatalf("NewSpec() unexpected error: %v", err)
	}
	if s.Zone != "us-central1-a" {
		t.Errorf("Zone = %q, want us-central1-a", s.Zone)
	}
	if s.Style != StyleNone {
		t.Errorf("Style = %q, want defaulted %q", s.Style, StyleNone)
	}
	if s.Cloud != "GCP" {
		t.Errorf("Cloud = %q, want GCP", s.Cloud)
	}
}

func TestNewSpecZoneOmitted(t *testing.T) {
	r := testRegistry(t)

	s, err := NewSpec(r, "GCP", map[string]any{}, spec.Overrides{})
	if err != nil {
		t.Fatalf("NewSpec() unexpected error: %v", err)
	}
	if s.Zone != "" {
		t.Errorf("Zone = %q, want empty for omitted none_ok option", s.Zone)
	}
}

func TestNewSpecStyleOverride(t *testing.T) {
	r := testRegistry(t)
	style := StyleSpread

	s, err := NewSpec(r, "GCP",
		map[string]any{"style": StyleCluster},
		spec.Overrides{PlacementStyle: &style})
	if err != nil {
		t.Fatalf("NewSpec() unexpected error: %v", err)
	}
	if s.Style != StyleSpread {
		t.Errorf("Style = %q, want flag override %q", s.Style, StyleSpread)
	}
}

func TestNewSpecOverrideDoesNotMutateConfig(t *testing.T) {
	r := testRegistry(t)
	style := StyleSpread
	cfg := map[string]any{"style": StyleCluster}

	if _, err := NewSpec(r, "GCP", cfg, spec.Overrides{PlacementStyle: &style}); err != nil {
		t.Fatalf("NewSpec() unexpected error: %v", err)
	}
	if cfg["style"] != StyleCluster {
		t.Errorf("caller config mutated: style = %v", cfg["style"])
	}
}

func TestNewSpecInvalidStyle(t *testing.T) {
	r := testRegistry(t)

	_, err := NewSpec(r, "GCP", map[string]any{"style": "ring"}, spec.Overrides{})
	if err == nil {
		t.Fatal("NewSpec() accepted unknown style")
	}
	var ve *spec.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error type = %T, want *spec.ValidationError", err)
	}
}

func TestUnknownCloud(t *testing.T) {
	r := testRegistry(t)

	_, err := NewSpec(r, "NONEXISTENT-CLOUD", map[string]any{}, spec.Overrides{})
	var re *registry.ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("NewSpec() error = %v, want *registry.ResolutionError", err)
	}

	_, err = New(r, &Spec{Cloud: "NONEXISTENT-CLOUD"})
	if !errors.As(err, &re) {
		t.Fatalf("New() error = %v, want *registry.ResolutionError", err)
	}
}

func TestNewResolvesRegisteredFactory(t *testing.T) {
	r := testRegistry(t)

	s := &Spec{Cloud: "GCP", Style: StyleCluster, Zone: "us-central1-a"}
	res, err := New(r, s)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	g, ok := res.(*nopGroup)
	if !ok {
		t.Fatalf("New() returned %T, want *nopGroup", res)
	}
	if g.s != s {
		t.Error("factory did not receive the spec")
	}
}

func TestResolveStyle(t *testing.T) {
	tests := []struct {
		style     string
		supported []string
		want      string
	}{
		{StyleClusterIfSupported, []string{StyleCluster, StyleSpread}, StyleCluster},
		{StyleClusterIfSupported, []string{StyleSpread}, StyleNone},
		{StyleSpreadIfSupported, []string{StyleSpread}, StyleSpread},
		{StyleSpreadIfSupported, nil, StyleNone},
		{StyleCluster, nil, StyleCluster},
		{StyleNone, []string{StyleCluster}, StyleNone},
	}
	for _, tt := range tests {
		if got := ResolveStyle(tt.style, tt.supported...); got != tt.want {
			t.Errorf("ResolveStyle(%q, %v) = %q, want %q", tt.style, tt.supported, got, tt.want)
		}
	}
}
