package gcp

import (
	"context"
	"fmt"

	"benchswarm/internal/disk"
	"benchswarm/internal/logging"

	"go.uber.org/zap"
	"google.golang.org/api/compute/v1"
)

const defaultDiskType = "pd-balanced"

// Disk is a Compute Engine persistent disk. It copies the fields it
// consumes from the spec at construction.
type Disk struct {
	provider *Provider
	name     string
	zone     string
	diskType string
	sizeGB   int64
}

// NewDisk creates the provider resource for a validated spec.
func NewDisk(p *Provider, s *disk.Spec, name string) *Disk {
	return &Disk{
		provider: p,
		name:     name,
		zone:     s.Zone,
		diskType: s.Type,
		sizeGB:   s.SizeGB,
	}
}

// Create provisions the persistent disk.
func (d *Disk) Create(ctx context.Context) error {
	p := d.provider

	diskType := d.diskType
	if diskType == "" {
		diskType = defaultDiskType
	}

	cd := &compute.Disk{
		Name:   d.name,
		SizeGb: d.sizeGB,
		Type:   fmt.Sprintf("zones/%s/diskTypes/%s", d.zone, diskType),
	}

	logging.Logger().Info("Creating GCP disk",
		zap.String("name", d.name),
		zap.String("zone", d.zone),
		zap.Int64("size_gb", d.sizeGB))

	op, err := p.service.Disks.Insert(p.projectID, d.zone, cd).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create disk: %w", err)
	}

	return p.waitForZoneOperation(ctx, op.Name, d.zone)
}

// Delete removes the persistent disk.
func (d *Disk) Delete(ctx context.Context) error {
	p := d.provider

	logging.Logger().Info("Deleting GCP disk",
		zap.String("name", d.name),
		zap.String("zone", d.zone))

	op, err := p.service.Disks.Delete(p.projectID, d.zone, d.name).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete disk: %w", err)
	}

	return p.waitForZoneOperation(ctx, op.Name, d.zone)
}

// Exists reports whether the disk is present.
func (d *Disk) Exists(ctx context.Context) (bool, error) {
	p := d.provider

	_, err := p.service.Disks.Get(p.projectID, d.zone, d.name).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
