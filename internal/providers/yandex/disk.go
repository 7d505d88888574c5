package yandex

import (
	"context"
	"fmt"

	"benchswarm/internal/disk"
	"benchswarm/internal/logging"

	"github.com/yandex-cloud/go-genproto/yandex/cloud/compute/v1"
	"go.uber.org/zap"
)

const defaultDiskType = "network-hdd"

// Disk is a Yandex Cloud network disk. It copies the fields it consumes
// from the spec at construction.
type Disk struct {
	provider *Provider
	name     string
	zone     string
	diskType string
	sizeGB   int64
	diskID   string
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

// Create provisions the disk and waits for the operation to complete.
func (d *Disk) Create(ctx context.Context) error {
	p := d.provider

	diskType := d.diskType
	if diskType == "" {
		diskType = defaultDiskType
	}

	logging.Logger().Info("Creating Yandex Cloud disk",
		zap.String("name", d.name),
		zap.String("zone", d.zone),
		zap.Int64("size_gb", d.sizeGB))

	pop, err := p.sdk.Compute().Disk().Create(ctx, &compute.CreateDiskRequest{
		FolderId: p.folderID,
		Name:     d.name,
		ZoneId:   d.zone,
		TypeId:   diskType,
		Size:     d.sizeGB * gib,
	})
	if err != nil {
		return fmt.Errorf("failed to create disk: %w", err)
	}

	resp, err := p.waitOperation(ctx, pop)
	if err != nil {
		return err
	}

	created, ok := resp.(*compute.Disk)
	if !ok {
		return fmt.Errorf("unexpected operation response type %T", resp)
	}
	d.diskID = created.Id

	logging.Logger().Info("Yandex Cloud disk created",
		zap.String("name", d.name),
		zap.String("id", d.diskID))

	return nil
}

// Delete removes the disk and waits for the operation to complete.
func (d *Disk) Delete(ctx context.Context) error {
	if d.diskID == "" {
		return nil
	}

	logging.Logger().Info("Deleting Yandex Cloud disk",
		zap.String("name", d.name),
		zap.String("id", d.diskID))

	pop, err := d.provider.sdk.Compute().Disk().Delete(ctx, &compute.DeleteDiskRequest{
		DiskId: d.diskID,
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete disk: %w", err)
	}

	op, err := d.provider.sdk.WrapOperation(pop, nil)
	if err != nil {
		return fmt.Errorf("failed to wrap operation: %w", err)
	}
	return op.Wait(ctx)
}

// Exists reports whether the disk is present.
func (d *Disk) Exists(ctx context.Context) (bool, error) {
	if d.diskID == "" {
		return false, nil
	}

	_, err := d.provider.sdk.Compute().Disk().Get(ctx, &compute.GetDiskRequest{
		DiskId: d.diskID,
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
