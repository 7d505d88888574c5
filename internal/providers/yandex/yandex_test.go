package yandex

import (
	"testing"

	"benchswarm/internal/disk"
	"benchswarm/internal/vm"
)

func TestNewVMCopiesSpecFields(t *testing.T) {
	s := &vm.Spec{
		Cloud:    Cloud,
		Cores:    2,
		MemoryGB: 4,
		DiskGB:   20,
		Zone:     "ru-central1-a",
		Username: "bench",
	}
	v := NewVM(&Provider{}, s, "vm-1", "ssh-rsa AAAA")

	// Mutating the spec after construction must not leak into the resource.
	s.Zone = "ru-central1-b"
	s.Cores = 32

	if v.zone != "ru-central1-a" {
		t.Errorf("zone = %q, want %q", v.zone, "ru-central1-a")
	}
	if v.cores != 2 {
		t.Errorf("cores = %d, want 2", v.cores)
	}
}

func TestNewDiskCopiesSpecFields(t *testing.T) {
	s := &disk.Spec{Cloud: Cloud, SizeGB: 50, Type: "network-ssd", Zone: "ru-central1-a"}
	d := NewDisk(&Provider{}, s, "disk-1")

	s.SizeGB = 1
	s.Type = ""

	if d.sizeGB != 50 {
		t.Errorf("sizeGB = %d, want 50", d.sizeGB)
	}
	if d.diskType != "network-ssd" {
		t.Errorf("diskType = %q, want %q", d.diskType, "network-ssd")
	}
}
