package digitalocean

import (
	"context"
	"fmt"

	"benchswarm/internal/disk"
	"benchswarm/internal/logging"

	"github.com/digitalocean/godo"
	"go.uber.org/zap"
)

// Disk is a DigitalOcean block storage volume. It copies the fields it
// consumes from the spec at construction.
type Disk struct {
	provider *Provider
	name     string
	region   string
	sizeGB   int64
	volumeID string
}

// NewDisk creates the provider resource for a validated spec.
func NewDisk(p *Provider, s *disk.Spec, name string) *Disk {
	return &Disk{
		provider: p,
		name:     name,
		region:   s.Zone,
		sizeGB:   s.SizeGB,
	}
}

// Create provisions the volume. Volumes become available synchronously.
func (d *Disk) Create(ctx context.Context) error {
	logging.Logger().Info("Creating DigitalOcean volume",
		zap.String("name", d.name),
		zap.String("region", d.region),
		zap.Int64("size_gb", d.sizeGB))

	volume, _, err := d.provider.client.Storage.CreateVolume(ctx, &godo.VolumeCreateRequest{
		Region:        d.region,
		Name:          d.name,
		SizeGigaBytes: d.sizeGB,
		Description:   "benchswarm scratch volume",
	})
	if err != nil {
		return fmt.Errorf("failed to create volume: %w", err)
	}
	d.volumeID = volume.ID

	logging.Logger().Info("DigitalOcean volume created",
		zap.String("name", d.name),
		zap.String("id", d.volumeID))

	return nil
}

// Delete removes the volume.
func (d *Disk) Delete(ctx context.Context) error {
	if d.volumeID == "" {
		return nil
	}

	logging.Logger().Info("Deleting DigitalOcean volume",
		zap.String("name", d.name),
		zap.String("id", d.volumeID))

	resp, err := d.provider.client.Storage.DeleteVolume(ctx, d.volumeID)
	if err != nil {
		if isNotFound(resp) {
			return nil
		}
		return fmt.Errorf("failed to delete volume: %w", err)
	}
	return nil
}

// Exists reports whether the volume is present.
func (d *Disk) Exists(ctx context.Context) (bool, error) {
	if d.volumeID == "" {
		return false, nil
	}

	_, resp, err := d.provider.client.Storage.GetVolume(ctx, d.volumeID)
	if err != nil {
		if isNotFound(resp) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
