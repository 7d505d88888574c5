package gcp

import (
	"testing"

	"benchswarm/internal/placement"
	"benchswarm/internal/vm"
)

func TestRegionFromZone(t *testing.T) {
	tests := []struct {
		zone string
		want string
	}{
		{"us-central1-a", "us-central1"},
		{"europe-west4-b", "europe-west4"},
		{"us-central1", "us-central"},
		{"nozone", "nozone"},
	}

	for _, tt := range tests {
		if got := regionFromZone(tt.zone); got != tt.want {
			t.Errorf("regionFromZone(%q) = %q, want %q", tt.zone, got, tt.want)
		}
	}
}

func TestMachineType(t *testing.T) {
	tests := []struct {
		name     string
		cores    int64
		memoryGB int64
		want     string
	}{
		{"small", 1, 2, "e2-medium"},
		{"two cores", 2, 8, "e2-standard-2"},
		{"four cores", 4, 16, "e2-standard-4"},
		{"large", 8, 32, "e2-standard-8"},
		{"memory pushes tier", 2, 16, "e2-standard-4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := machineType(tt.cores, tt.memoryGB); got != tt.want {
				t.Errorf("machineType(%d, %d) = %q, want %q", tt.cores, tt.memoryGB, got, tt.want)
			}
		})
	}
}

func TestNewVMCopiesSpecFields(t *testing.T) {
	s := &vm.Spec{
		Cloud:    Cloud,
		Cores:    2,
		MemoryGB: 4,
		DiskGB:   20,
		Zone:     "us-central1-a",
		Image:    "projects/ubuntu-os-cloud/global/images/family/ubuntu-2204-lts",
		Username: "bench",
	}
	v := NewVM(&Provider{}, s, "vm-1", "ssh-rsa AAAA")

	// Mutating the spec after construction must not leak into the resource.
	s.Zone = "europe-west1-b"
	s.Cores = 16

	if v.zone != "us-central1-a" {
		t.Errorf("zone = %q, want %q", v.zone, "us-central1-a")
	}
	if v.cores != 2 {
		t.Errorf("cores = %d, want 2", v.cores)
	}
}

func TestNewPlacementGroupCopiesSpecFields(t *testing.T) {
	s := &placement.Spec{Cloud: Cloud, Style: placement.StyleCluster, Zone: "us-central1-a"}
	g := NewPlacementGroup(&Provider{}, s, "pg-1")

	s.Style = placement.StyleSpread
	s.Zone = "europe-west1-b"

	if g.style != placement.StyleCluster {
		t.Errorf("style = %q, want %q", g.style, placement.StyleCluster)
	}
	if g.region != "us-central1" {
		t.Errorf("region = %q, want %q", g.region, "us-central1")
	}
}
