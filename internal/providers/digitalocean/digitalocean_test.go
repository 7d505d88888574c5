package digitalocean

import (
	"errors"
	"testing"

	"benchswarm/internal/placement"
	"benchswarm/internal/spec"
	"benchswarm/internal/vm"
)

func TestDropletSize(t *testing.T) {
	tests := []struct {
		cores    int64
		memoryGB int64
		want     string
	}{
		{1, 2, "s-1vcpu-2gb"},
		{2, 4, "s-2vcpu-4gb"},
		{4, 8, "s-4vcpu-8gb"},
		{2, 8, "s-4vcpu-8gb"},
	}

	for _, tt := range tests {
		if got := dropletSize(tt.cores, tt.memoryGB); got != tt.want {
			t.Errorf("dropletSize(%d, %d) = %q, want %q", tt.cores, tt.memoryGB, got, tt.want)
		}
	}
}

func TestPlacementOptionsRejectHardStyles(t *testing.T) {
	cfg := map[string]any{
		"style": placement.StyleCluster,
	}
	_, err := placement.DecodeSpec(Cloud, cfg, spec.Overrides{}, placementOptions())

	var verr *spec.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *spec.ValidationError, got %v", err)
	}
}

func TestPlacementOptionsDegradableStyleResolvesToNone(t *testing.T) {
	cfg := map[string]any{
		"style": placement.StyleClusterIfSupported,
	}
	s, err := placement.DecodeSpec(Cloud, cfg, spec.Overrides{}, placementOptions())
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	if got := placement.ResolveStyle(s.Style); got != placement.StyleNone {
		t.Errorf("resolved style = %q, want %q", got, placement.StyleNone)
	}
}

func TestNewVMCopiesSpecFields(t *testing.T) {
	s := &vm.Spec{
		Cloud:    Cloud,
		Cores:    2,
		MemoryGB: 4,
		Zone:     "nyc3",
		Image:    "ubuntu-22-04-x64",
		Username: "bench",
	}
	v := NewVM(&Provider{}, s, "vm-1", "ssh-rsa AAAA")

	s.Zone = "fra1"
	s.MemoryGB = 64

	if v.region != "nyc3" {
		t.Errorf("region = %q, want %q", v.region, "nyc3")
	}
	if v.memoryGB != 4 {
		t.Errorf("memoryGB = %d, want 4", v.memoryGB)
	}
}
